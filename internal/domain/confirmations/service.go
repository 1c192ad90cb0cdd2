package confirmations

import (
	"context"
	"errors"
	"strings"

	"medication-adherence/internal/domain/doses"
	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/clock"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("dose not found")
	ErrOutOfWindow  = errors.New("confirmation out of window")
	ErrDoseLocked   = errors.New("dose not yet due")
	ErrFutureDate   = errors.New("date is in the future")
	ErrDuplicate    = errors.New("confirmation already exists")
)

// MedicationGetter evita depender del Service concreto de medications.
type MedicationGetter interface {
	GetByID(ctx context.Context, id string) (medications.Medication, error)
}

type Service struct {
	repo  Repository
	meds  MedicationGetter
	clock *clock.Clock
}

func NewService(repo Repository, meds MedicationGetter, clk *clock.Clock) *Service {
	return &Service{
		repo:  repo,
		meds:  meds,
		clock: clk,
	}
}

type ConfirmInput struct {
	ElderID      string
	ActorID      string
	MedicationID string
	TimeOfDay    clock.TimeOfDay
	// Date vacío = hoy. Cualquier otra fecha queda fuera de ventana.
	Date clock.Date
}

// Confirm registra la toma de hoy. El día y la hora salen del reloj del backend.
func (s *Service) Confirm(ctx context.Context, in ConfirmInput) (Result, error) {
	elderID := strings.TrimSpace(in.ElderID)
	medID := strings.TrimSpace(in.MedicationID)
	if elderID == "" || medID == "" {
		return Result{}, ErrInvalidInput
	}

	now := s.clock.Now()
	today := clock.DateOf(now)

	date := in.Date
	if date.IsZero() {
		date = today
	}
	if !date.Equal(today) {
		return Result{}, ErrOutOfWindow
	}

	if res, ok, err := s.alreadyConfirmed(ctx, elderID, medID, date, in.TimeOfDay); err != nil || ok {
		return res, err
	}

	inst, err := s.resolve(ctx, elderID, medID, date, in.TimeOfDay)
	if err != nil {
		return Result{}, err
	}

	if doses.Evaluate(inst, now, nil) == doses.StateLocked {
		return Result{}, ErrDoseLocked
	}

	return s.insert(ctx, Event{
		ID:           uuid.NewString(),
		ElderID:      elderID,
		MedicationID: medID,
		Date:         date,
		TimeOfDay:    in.TimeOfDay,
		ConfirmedAt:  now,
		ActorID:      firstNonEmpty(in.ActorID, elderID),
	})
}

type BackfillInput struct {
	ElderID      string
	ActorID      string
	MedicationID string
	Date         clock.Date
	TimeOfDay    clock.TimeOfDay
}

// Backfill es la corrección administrativa: acepta fechas pasadas, nunca futuras.
// Quien la use debe volver a correr el cierre de adherencia de esa fecha.
func (s *Service) Backfill(ctx context.Context, in BackfillInput) (Result, error) {
	elderID := strings.TrimSpace(in.ElderID)
	medID := strings.TrimSpace(in.MedicationID)
	if elderID == "" || medID == "" || in.Date.IsZero() || strings.TrimSpace(in.ActorID) == "" {
		return Result{}, ErrInvalidInput
	}

	now := s.clock.Now()
	if in.Date.After(clock.DateOf(now)) {
		return Result{}, ErrFutureDate
	}

	if res, ok, err := s.alreadyConfirmed(ctx, elderID, medID, in.Date, in.TimeOfDay); err != nil || ok {
		return res, err
	}

	inst, err := s.resolve(ctx, elderID, medID, in.Date, in.TimeOfDay)
	if err != nil {
		return Result{}, err
	}
	if doses.Evaluate(inst, now, nil) == doses.StateLocked {
		return Result{}, ErrDoseLocked
	}

	return s.insert(ctx, Event{
		ID:           uuid.NewString(),
		ElderID:      elderID,
		MedicationID: medID,
		Date:         in.Date,
		TimeOfDay:    in.TimeOfDay,
		ConfirmedAt:  now,
		ActorID:      strings.TrimSpace(in.ActorID),
		Backfilled:   true,
	})
}

// ConfirmedOn implementa doses.LedgerReader.
func (s *Service) ConfirmedOn(ctx context.Context, elderID string, date clock.Date) (doses.ConfirmedSet, error) {
	items, err := s.ListByElderDate(ctx, elderID, date)
	if err != nil {
		return nil, err
	}

	out := make(doses.ConfirmedSet, len(items))
	for _, e := range items {
		out[e.Key()] = e.ConfirmedAt
	}
	return out, nil
}

func (s *Service) ListByElderDate(ctx context.Context, elderID string, date clock.Date) ([]Event, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" || date.IsZero() {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByElderDate(ctx, elderID, date)
}

// alreadyConfirmed consulta el ledger antes que el medicamento: una toma ya
// confirmada sigue siendo AlreadyConfirmed aunque luego se edite o dé de baja.
func (s *Service) alreadyConfirmed(ctx context.Context, elderID, medID string, date clock.Date, tod clock.TimeOfDay) (Result, bool, error) {
	e, err := s.repo.GetByKey(ctx, doses.Key{MedicationID: medID, Date: date, TimeOfDay: tod})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Result{}, false, nil
		}
		return Result{}, false, err
	}
	if e.ElderID != elderID {
		return Result{}, false, nil
	}
	return Result{Outcome: OutcomeAlreadyConfirmed, Event: e}, true, nil
}

func (s *Service) resolve(ctx context.Context, elderID, medID string, date clock.Date, tod clock.TimeOfDay) (doses.Instance, error) {
	m, err := s.meds.GetByID(ctx, medID)
	if err != nil {
		if errors.Is(err, medications.ErrNotFound) || errors.Is(err, medications.ErrInvalidInput) {
			return doses.Instance{}, ErrNotFound
		}
		return doses.Instance{}, err
	}

	if m.ElderID != elderID || !m.HasDoseAt(date, tod, s.clock.Location()) {
		return doses.Instance{}, ErrNotFound
	}
	return doses.InstanceOf(m, date, tod), nil
}

// insert traduce el conflicto de unicidad en AlreadyConfirmed.
func (s *Service) insert(ctx context.Context, e Event) (Result, error) {
	err := s.repo.Insert(ctx, e)
	if err == nil {
		return Result{Outcome: OutcomeAccepted, Event: e}, nil
	}
	if !errors.Is(err, ErrDuplicate) {
		return Result{}, err
	}

	existing, err := s.repo.GetByKey(ctx, e.Key())
	if err != nil {
		return Result{}, err
	}
	return Result{Outcome: OutcomeAlreadyConfirmed, Event: existing}, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
