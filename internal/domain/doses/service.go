package doses

import (
	"context"
	"errors"
	"strings"
	"time"

	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/clock"
)

var (
	ErrInvalidInput = errors.New("invalid input")
)

// MedicationLister evita depender del Service concreto de medications.
type MedicationLister interface {
	ListByElder(ctx context.Context, elderID string, includeInactive bool) ([]medications.Medication, error)
}

// LedgerReader entrega las confirmaciones de un día ya cargadas.
type LedgerReader interface {
	ConfirmedOn(ctx context.Context, elderID string, date clock.Date) (ConfirmedSet, error)
}

type Service struct {
	meds   MedicationLister
	ledger LedgerReader
	clock  *clock.Clock
}

func NewService(meds MedicationLister, ledger LedgerReader, clk *clock.Clock) *Service {
	return &Service{
		meds:   meds,
		ledger: ledger,
		clock:  clk,
	}
}

// View es una toma con su estado evaluado al momento de la lectura.
type View struct {
	Instance

	State       State
	ScheduledAt time.Time
	ConfirmedAt *time.Time
}

// Instances deriva las tomas de la fecha (incluye medicamentos ya desactivados
// para fechas anteriores a la baja).
func (s *Service) Instances(ctx context.Context, elderID string, date clock.Date) ([]Instance, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" || date.IsZero() {
		return nil, ErrInvalidInput
	}

	meds, err := s.meds.ListByElder(ctx, elderID, true)
	if err != nil {
		return nil, err
	}
	return Generate(meds, elderID, date, s.clock.Location()), nil
}

// Snapshot carga tomas y confirmaciones de la fecha en una sola pasada.
func (s *Service) Snapshot(ctx context.Context, elderID string, date clock.Date) ([]Instance, ConfirmedSet, error) {
	items, err := s.Instances(ctx, elderID, date)
	if err != nil {
		return nil, nil, err
	}
	if len(items) == 0 {
		return items, ConfirmedSet{}, nil
	}

	confirmed, err := s.ledger.ConfirmedOn(ctx, elderID, date)
	if err != nil {
		return nil, nil, err
	}
	return items, confirmed, nil
}

func (s *Service) ListForDate(ctx context.Context, elderID string, date clock.Date) ([]View, error) {
	items, confirmed, err := s.Snapshot(ctx, elderID, date)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	loc := s.clock.Location()

	out := make([]View, 0, len(items))
	for _, inst := range items {
		v := View{
			Instance:    inst,
			State:       Evaluate(inst, now, confirmed),
			ScheduledAt: inst.TimeOfDay.On(inst.Date, loc),
		}
		if at, ok := confirmed.ConfirmedAt(inst.Key); ok {
			at := at
			v.ConfirmedAt = &at
		}
		out = append(out, v)
	}
	return out, nil
}

// ListToday: tomas de hoy (fecha del reloj del backend) con su estado.
func (s *Service) ListToday(ctx context.Context, elderID string) (clock.Date, []View, error) {
	today := s.clock.Today()
	items, err := s.ListForDate(ctx, elderID, today)
	return today, items, err
}
