package readings

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrDuplicate    = errors.New("record already exists")
)

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		now:  time.Now,
	}
}

func (s *Service) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type RecordInput struct {
	ID          string // opcional; permite reentregas idempotentes
	ElderID     string
	RecordedAt  time.Time
	SystolicBP  *int
	DiastolicBP *int
	Pulse       *int
	// nil = se calcula con los umbrales.
	FlaggedAbnormal *bool
	Source          Source
	RecordedBy      string
}

// Record guarda un registro de riesgo. Si el id ya existe devuelve el existente
// sin error (reentrega del mismo mensaje).
func (s *Service) Record(ctx context.Context, in RecordInput) (Record, bool, error) {
	elderID := strings.TrimSpace(in.ElderID)
	if elderID == "" || in.RecordedAt.IsZero() {
		return Record{}, false, ErrInvalidInput
	}
	for _, v := range []*int{in.SystolicBP, in.DiastolicBP, in.Pulse} {
		if v != nil && (*v <= 0 || *v > 400) {
			return Record{}, false, ErrInvalidInput
		}
	}
	if in.FlaggedAbnormal == nil && in.SystolicBP == nil && in.DiastolicBP == nil && in.Pulse == nil {
		return Record{}, false, ErrInvalidInput
	}

	now := s.now()
	if in.RecordedAt.After(now.Add(5 * time.Minute)) {
		return Record{}, false, ErrInvalidInput
	}

	src := in.Source
	if src == "" {
		src = SourceManual
	}

	flagged := IsAbnormal(in.SystolicBP, in.DiastolicBP, in.Pulse)
	if in.FlaggedAbnormal != nil {
		flagged = *in.FlaggedAbnormal
	}

	id := strings.TrimSpace(in.ID)
	if id == "" {
		id = uuid.NewString()
	}

	rec := Record{
		ID:              id,
		ElderID:         elderID,
		RecordedAt:      in.RecordedAt,
		SystolicBP:      in.SystolicBP,
		DiastolicBP:     in.DiastolicBP,
		Pulse:           in.Pulse,
		FlaggedAbnormal: flagged,
		Source:          src,
		RecordedBy:      strings.TrimSpace(in.RecordedBy),
		Status:          StatusActive,
		CreatedAt:       now,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		if errors.Is(err, ErrDuplicate) {
			existing, gerr := s.repo.GetByID(ctx, id)
			if gerr != nil {
				return Record{}, false, gerr
			}
			return existing, false, nil
		}
		return Record{}, false, err
	}
	return rec, true, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	rec, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return rec, nil
}

func (s *Service) ListByElder(ctx context.Context, elderID string, filter ListFilter) ([]Record, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByElder(ctx, elderID, filter)
}

// AbnormalBetween devuelve registros activos marcados como anormales en [from, to).
func (s *Service) AbnormalBetween(ctx context.Context, elderID string, from, to time.Time) ([]Record, error) {
	return s.ListByElder(ctx, elderID, ListFilter{
		From:         &from,
		To:           &to,
		OnlyAbnormal: true,
	})
}

// Void marca el registro como anulado (no se borra) y deja de contar para riesgo.
func (s *Service) Void(ctx context.Context, id string) (Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Record{}, ErrInvalidInput
	}
	if err := s.repo.Void(ctx, id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return Record{}, ErrNotFound
		}
		return Record{}, err
	}
	return s.repo.GetByID(ctx, id)
}
