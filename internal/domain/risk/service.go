package risk

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/domain/readings"
	"medication-adherence/internal/platform/clock"
)

var ErrInvalidInput = errors.New("invalid input")

type FactReader interface {
	FactsSince(ctx context.Context, elderID string, from time.Time) ([]adherence.Fact, error)
}

type AbnormalReader interface {
	AbnormalBetween(ctx context.Context, elderID string, from, to time.Time) ([]readings.Record, error)
}

type LinkedElderLister interface {
	LinkedElders(ctx context.Context, managerID string) ([]string, error)
}

type Service struct {
	facts   FactReader
	records AbnormalReader
	links   LinkedElderLister
	clock   *clock.Clock
	window  time.Duration
}

// NewService: window <= 0 usa DefaultWindow (30 días).
func NewService(facts FactReader, records AbnormalReader, links LinkedElderLister, clk *clock.Clock, window time.Duration) *Service {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Service{
		facts:   facts,
		records: records,
		links:   links,
		clock:   clk,
		window:  window,
	}
}

func (s *Service) Window() time.Duration { return s.window }

// Classify recalcula bajo demanda sobre [now - window, now).
func (s *Service) Classify(ctx context.Context, elderID string) (Classification, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" {
		return Classification{}, ErrInvalidInput
	}

	end := s.clock.Now()
	start := end.Add(-s.window)

	facts, err := s.facts.FactsSince(ctx, elderID, start)
	if err != nil {
		return Classification{}, err
	}
	records, err := s.records.AbnormalBetween(ctx, elderID, start, end)
	if err != nil {
		return Classification{}, err
	}

	return Aggregate(elderID, facts, records, start, end, s.clock.Location()), nil
}

// Dashboard clasifica cada adulto mayor vinculado. Orden: follow_up primero,
// luego más disparadores, luego id.
func (s *Service) Dashboard(ctx context.Context, managerID string) (DashboardSummary, error) {
	managerID = strings.TrimSpace(managerID)
	if managerID == "" {
		return DashboardSummary{}, ErrInvalidInput
	}

	elders, err := s.links.LinkedElders(ctx, managerID)
	if err != nil {
		return DashboardSummary{}, err
	}

	out := DashboardSummary{
		ManagerID: managerID,
		Elders:    make([]Classification, 0, len(elders)),
	}
	for _, elderID := range elders {
		c, err := s.Classify(ctx, elderID)
		if err != nil {
			return DashboardSummary{}, err
		}
		out.add(c)
	}

	sort.SliceStable(out.Elders, func(i, j int) bool {
		a, b := out.Elders[i], out.Elders[j]
		if rank(a.Tier) != rank(b.Tier) {
			return rank(a.Tier) > rank(b.Tier)
		}
		if a.TriggerCount != b.TriggerCount {
			return a.TriggerCount > b.TriggerCount
		}
		return a.ElderID < b.ElderID
	})

	return out, nil
}

func rank(t Tier) int {
	switch t {
	case TierFollowUp:
		return 2
	case TierAtRisk:
		return 1
	default:
		return 0
	}
}
