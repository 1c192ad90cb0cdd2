package risk

import (
	"time"

	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/readings"
)

type Tier string

const (
	TierNormal   Tier = "normal"
	TierAtRisk   Tier = "at_risk"
	TierFollowUp Tier = "follow_up"
)

const DefaultWindow = 30 * 24 * time.Hour

// TierFor: 0 → normal, 1 → at_risk, 2 o más → follow_up.
func TierFor(triggerCount int) Tier {
	switch {
	case triggerCount <= 0:
		return TierNormal
	case triggerCount == 1:
		return TierAtRisk
	default:
		return TierFollowUp
	}
}

// Classification es el último cálculo de riesgo de un adulto mayor.
// La ventana es semiabierta: [WindowStart, WindowEnd).
type Classification struct {
	ElderID string

	Tier         Tier
	TriggerCount int

	MissedDays      int
	AbnormalRecords int

	WindowStart time.Time
	WindowEnd   time.Time
}

// Aggregate clasifica sin tocar sus entradas. El instante de un hecho
// diario es el inicio de su fecha en loc.
func Aggregate(
	elderID string,
	facts []adherence.Fact,
	records []readings.Record,
	start, end time.Time,
	loc *time.Location,
) Classification {
	c := Classification{
		ElderID:     elderID,
		WindowStart: start,
		WindowEnd:   end,
	}

	for _, f := range facts {
		if f.ElderID != elderID || !f.HasMissed() {
			continue
		}
		if inWindow(f.Date.Start(loc), start, end) {
			c.MissedDays++
		}
	}

	for _, rec := range records {
		if rec.ElderID != elderID || !rec.FlaggedAbnormal || rec.Status != readings.StatusActive {
			continue
		}
		if inWindow(rec.RecordedAt, start, end) {
			c.AbnormalRecords++
		}
	}

	c.TriggerCount = c.MissedDays + c.AbnormalRecords
	c.Tier = TierFor(c.TriggerCount)
	return c
}

func inWindow(t, start, end time.Time) bool {
	return !t.Before(start) && t.Before(end)
}

// DashboardSummary resume los adultos mayores vinculados a un cuidador/OSM.
type DashboardSummary struct {
	ManagerID string

	NormalCount   int
	AtRiskCount   int
	FollowUpCount int

	Elders []Classification
}

func (d *DashboardSummary) add(c Classification) {
	switch c.Tier {
	case TierNormal:
		d.NormalCount++
	case TierAtRisk:
		d.AtRiskCount++
	case TierFollowUp:
		d.FollowUpCount++
	}
	d.Elders = append(d.Elders, c)
}
