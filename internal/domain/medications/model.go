package medications

import (
	"sort"
	"time"

	"medication-adherence/internal/platform/clock"
)

type MealInstruction string

const (
	MealBefore  MealInstruction = "before-meal"
	MealAfter   MealInstruction = "after-meal"
	MealWith    MealInstruction = "with-meal"
	MealBedtime MealInstruction = "bedtime"
)

// ScheduleVersion es un juego de horarios reemplazado por una edición.
// Rigió para las tomas programadas antes de Until.
type ScheduleVersion struct {
	TimesOfDay []clock.TimeOfDay `json:"times_of_day"`
	Until      time.Time         `json:"until"`
}

type Medication struct {
	ID      string
	ElderID string

	Name            string
	DosageText      string
	MealInstruction MealInstruction

	// Horarios vigentes. Orden ascendente, sin repetidos.
	TimesOfDay []clock.TimeOfDay

	// Horarios reemplazados, en orden cronológico.
	PastSchedules []ScheduleVersion

	StartDate clock.Date
	EndDate   *clock.Date // inclusiva; nil = sin fin

	ImageRef string

	CreatedBy     string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	DeactivatedAt *time.Time
}

func (m Medication) IsDeactivated() bool {
	return m.DeactivatedAt != nil
}

// ActiveOn indica si la fecha d (zona loc) puede tener tomas.
// Además del rango [StartDate, EndDate], no hay tomas antes del día de creación
// ni después del día de desactivación; ese día lo recorta DosesOn por instante.
func (m Medication) ActiveOn(d clock.Date, loc *time.Location) bool {
	if d.Before(m.StartDate) {
		return false
	}
	if m.EndDate != nil && d.After(*m.EndDate) {
		return false
	}
	if !m.CreatedAt.IsZero() && d.Before(clock.DateOf(m.CreatedAt.In(loc))) {
		return false
	}
	if m.DeactivatedAt != nil && d.After(clock.DateOf(m.DeactivatedAt.In(loc))) {
		return false
	}
	return true
}

// HasDoseAt indica si (d, tod) es una toma del medicamento. Cada toma se rige
// por los horarios vigentes en su instante programado, así que editar o dar de
// baja nunca altera tomas ya transcurridas.
func (m Medication) HasDoseAt(d clock.Date, tod clock.TimeOfDay, loc *time.Location) bool {
	if !m.ActiveOn(d, loc) {
		return false
	}
	at := tod.On(d, loc)
	if m.DeactivatedAt != nil && !at.Before(*m.DeactivatedAt) {
		return false
	}
	return containsTime(m.timesAt(at), tod)
}

// DosesOn devuelve, ordenados, los horarios con toma en la fecha d.
func (m Medication) DosesOn(d clock.Date, loc *time.Location) []clock.TimeOfDay {
	if !m.ActiveOn(d, loc) {
		return nil
	}

	seen := map[clock.TimeOfDay]struct{}{}
	out := make([]clock.TimeOfDay, 0, len(m.TimesOfDay))
	add := func(times []clock.TimeOfDay) {
		for _, tod := range times {
			if _, ok := seen[tod]; ok {
				continue
			}
			seen[tod] = struct{}{}
			if m.HasDoseAt(d, tod, loc) {
				out = append(out, tod)
			}
		}
	}
	for _, v := range m.PastSchedules {
		add(v.TimesOfDay)
	}
	add(m.TimesOfDay)

	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// timesAt: la primera versión pasada que seguía vigente en at; si no, la actual.
func (m Medication) timesAt(at time.Time) []clock.TimeOfDay {
	for _, v := range m.PastSchedules {
		if at.Before(v.Until) {
			return v.TimesOfDay
		}
	}
	return m.TimesOfDay
}

func containsTime(times []clock.TimeOfDay, tod clock.TimeOfDay) bool {
	for _, t := range times {
		if t == tod {
			return true
		}
	}
	return false
}

func sameTimes(a, b []clock.TimeOfDay) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
