package medications

import (
	"context"
	"errors"
	"strings"
	"time"

	"medication-adherence/internal/platform/clock"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrDeactivated  = errors.New("medication deactivated")
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	now      func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{
		repo:     repo,
		validate: newValidator(),
		now:      time.Now,
	}
}

// SetNow reemplaza el reloj (el router usa el reloj de la zona configurada).
func (s *Service) SetNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

type CreateInput struct {
	ElderID         string
	Name            string
	DosageText      string
	MealInstruction MealInstruction
	TimesOfDay      []string
	StartDate       clock.Date
	EndDate         *clock.Date
	ImageRef        string
}

func (s *Service) Create(ctx context.Context, actorID string, in CreateInput) (Medication, error) {
	def := definition{
		ElderID:         strings.TrimSpace(in.ElderID),
		Name:            strings.TrimSpace(in.Name),
		DosageText:      strings.TrimSpace(in.DosageText),
		MealInstruction: strings.TrimSpace(string(in.MealInstruction)),
		TimesOfDay:      normalizeTimes(in.TimesOfDay),
		ImageRef:        strings.TrimSpace(in.ImageRef),
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
	}
	if in.TimesOfDay == nil {
		def.TimesOfDay = nil
	}

	times, err := check(s.validate, def)
	if err != nil {
		return Medication{}, err
	}

	now := s.now()
	m := Medication{
		ID:              uuid.NewString(),
		ElderID:         def.ElderID,
		Name:            def.Name,
		DosageText:      def.DosageText,
		MealInstruction: MealInstruction(def.MealInstruction),
		TimesOfDay:      times,
		StartDate:       def.StartDate,
		EndDate:         def.EndDate,
		ImageRef:        def.ImageRef,
		CreatedBy:       strings.TrimSpace(actorID),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// UpdateInput sigue semántica PATCH: nil = sin cambios.
type UpdateInput struct {
	Name            *string
	DosageText      *string
	MealInstruction *MealInstruction
	TimesOfDay      []string
	StartDate       *clock.Date
	EndDate         *clock.Date
	ClearEndDate    bool
	ImageRef        *string
}

// Update revalida la definición completa resultante. Las fechas ya transcurridas
// no cambian: se rechaza mover startDate/endDate sobre ellas y los horarios
// nuevos solo rigen para tomas futuras.
func (s *Service) Update(ctx context.Context, id string, in UpdateInput) (Medication, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return Medication{}, err
	}
	if m.IsDeactivated() {
		return Medication{}, ErrDeactivated
	}

	def := definition{
		ElderID:         m.ElderID,
		Name:            m.Name,
		DosageText:      m.DosageText,
		MealInstruction: string(m.MealInstruction),
		TimesOfDay:      timesToStrings(m.TimesOfDay),
		ImageRef:        m.ImageRef,
		StartDate:       m.StartDate,
		EndDate:         m.EndDate,
	}

	if in.Name != nil {
		def.Name = strings.TrimSpace(*in.Name)
	}
	if in.DosageText != nil {
		def.DosageText = strings.TrimSpace(*in.DosageText)
	}
	if in.MealInstruction != nil {
		def.MealInstruction = strings.TrimSpace(string(*in.MealInstruction))
	}
	if in.TimesOfDay != nil {
		def.TimesOfDay = normalizeTimes(in.TimesOfDay)
	}
	if in.StartDate != nil {
		def.StartDate = *in.StartDate
	}
	if in.ClearEndDate {
		def.EndDate = nil
	} else if in.EndDate != nil {
		end := *in.EndDate
		def.EndDate = &end
	}
	if in.ImageRef != nil {
		def.ImageRef = strings.TrimSpace(*in.ImageRef)
	}

	times, err := check(s.validate, def)
	if err != nil {
		return Medication{}, err
	}

	now := s.now()
	if err := checkElapsedUnchanged(m, def.StartDate, def.EndDate, now); err != nil {
		return Medication{}, err
	}

	// Los horarios nuevos rigen desde ahora; los anteriores quedan para las tomas ya programadas.
	if !sameTimes(m.TimesOfDay, times) {
		m.PastSchedules = append(append([]ScheduleVersion(nil), m.PastSchedules...), ScheduleVersion{
			TimesOfDay: m.TimesOfDay,
			Until:      now,
		})
	}

	m.Name = def.Name
	m.DosageText = def.DosageText
	m.MealInstruction = MealInstruction(def.MealInstruction)
	m.TimesOfDay = times
	m.StartDate = def.StartDate
	m.EndDate = def.EndDate
	m.ImageRef = def.ImageRef
	m.UpdatedAt = now

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

// Deactivate es la baja lógica: deja de generar tomas futuras, conserva historia.
func (s *Service) Deactivate(ctx context.Context, id string) (Medication, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return Medication{}, err
	}

	// Idempotente
	if m.IsDeactivated() {
		return m, nil
	}

	now := s.now()
	m.DeactivatedAt = &now
	m.UpdatedAt = now

	if err := s.repo.Update(ctx, m); err != nil {
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Medication{}, ErrInvalidInput
	}
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Medication{}, ErrNotFound
		}
		return Medication{}, err
	}
	return m, nil
}

func (s *Service) ListByElder(ctx context.Context, elderID string, includeInactive bool) ([]Medication, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" {
		return nil, ErrInvalidInput
	}

	items, err := s.repo.ListByElder(ctx, elderID)
	if err != nil {
		return nil, err
	}
	if includeInactive {
		return items, nil
	}

	out := make([]Medication, 0, len(items))
	for _, m := range items {
		if !m.IsDeactivated() {
			out = append(out, m)
		}
	}
	return out, nil
}

func (s *Service) ListElderIDs(ctx context.Context) ([]string, error) {
	return s.repo.ListElderIDs(ctx)
}
