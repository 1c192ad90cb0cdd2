package adherence

import (
	"context"
	"errors"
	"strings"
	"time"

	"medication-adherence/internal/domain/doses"
	"medication-adherence/internal/platform/clock"
)

var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrNotFound       = errors.New("not found")
	ErrDateNotElapsed = errors.New("date has not elapsed yet")
	ErrLockBusy       = errors.New("rollover already running for elder and date")
)

// maxHistoryDays limita el rango de History.
const maxHistoryDays = 366

// DoseSnapshotter entrega tomas y confirmaciones de una fecha.
type DoseSnapshotter interface {
	Snapshot(ctx context.Context, elderID string, date clock.Date) ([]doses.Instance, doses.ConfirmedSet, error)
}

type Service struct {
	repo   Repository
	doses  DoseSnapshotter
	locker Locker
	clock  *clock.Clock
}

func NewService(repo Repository, snap DoseSnapshotter, locker Locker, clk *clock.Clock) *Service {
	if locker == nil {
		locker = NewKeyedLocker()
	}
	return &Service{
		repo:   repo,
		doses:  snap,
		locker: locker,
		clock:  clk,
	}
}

// Rollover cierra la fecha para un adulto mayor: cuenta tomas confirmadas y
// perdidas y sobrescribe el hecho. Solo fechas ya transcurridas.
func (s *Service) Rollover(ctx context.Context, elderID string, date clock.Date) (Fact, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" || date.IsZero() {
		return Fact{}, ErrInvalidInput
	}
	if !date.Before(s.clock.Today()) {
		return Fact{}, ErrDateNotElapsed
	}

	unlock, err := s.locker.Lock(ctx, lockKey(elderID, date))
	if err != nil {
		return Fact{}, err
	}
	defer unlock()

	items, confirmed, err := s.doses.Snapshot(ctx, elderID, date)
	if err != nil {
		return Fact{}, err
	}

	f := Fact{
		ElderID:    elderID,
		Date:       date,
		Expected:   len(items),
		ComputedAt: s.clock.Now(),
	}
	for _, inst := range items {
		if _, ok := confirmed.ConfirmedAt(inst.Key); ok {
			f.Confirmed++
		}
	}
	f.Missed = f.Expected - f.Confirmed

	if err := s.repo.Upsert(ctx, f); err != nil {
		return Fact{}, err
	}
	return f, nil
}

func (s *Service) Get(ctx context.Context, elderID string, date clock.Date) (Fact, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" || date.IsZero() {
		return Fact{}, ErrInvalidInput
	}
	f, err := s.repo.Get(ctx, elderID, date)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Fact{}, ErrNotFound
		}
		return Fact{}, err
	}
	return f, nil
}

// History devuelve hechos en [from, to]. Sin rango: los últimos 7 días cerrados.
func (s *Service) History(ctx context.Context, elderID string, from, to clock.Date) ([]Fact, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" {
		return nil, ErrInvalidInput
	}

	if to.IsZero() {
		to = s.clock.Today().AddDays(-1)
	}
	if from.IsZero() {
		from = to.AddDays(-6)
	}
	if to.Before(from) {
		return nil, ErrInvalidInput
	}
	if from.AddDays(maxHistoryDays).Before(to) {
		return nil, ErrInvalidInput
	}

	return s.repo.ListByElder(ctx, elderID, from, to)
}

// FactsSince implementa la lectura que usa el agregador de riesgo:
// hechos con fecha en [from, hoy].
func (s *Service) FactsSince(ctx context.Context, elderID string, from time.Time) ([]Fact, error) {
	loc := s.clock.Location()
	return s.repo.ListByElder(ctx, elderID, clock.DateOf(from.In(loc)), s.clock.Today())
}
