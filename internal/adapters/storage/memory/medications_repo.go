package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/clock"
)

type medicationRepo struct {
	mu   sync.RWMutex
	byID map[string]medications.Medication
}

func NewMedicationRepo() medications.Repository {
	return &medicationRepo{
		byID: make(map[string]medications.Medication),
	}
}

func (r *medicationRepo) Create(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.ID == "" {
		return errors.New("medication id required")
	}
	if _, exists := r.byID[m.ID]; exists {
		return errors.New("medication already exists")
	}
	r.byID[m.ID] = cloneMedication(m)
	return nil
}

func (r *medicationRepo) Update(ctx context.Context, m medications.Medication) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[m.ID]; !exists {
		return medications.ErrNotFound
	}
	r.byID[m.ID] = cloneMedication(m)
	return nil
}

func (r *medicationRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m, ok := r.byID[id]
	if !ok {
		return medications.Medication{}, medications.ErrNotFound
	}
	return cloneMedication(m), nil
}

func (r *medicationRepo) ListByElder(ctx context.Context, elderID string) ([]medications.Medication, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]medications.Medication, 0)
	for _, m := range r.byID {
		if m.ElderID == elderID {
			out = append(out, cloneMedication(m))
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *medicationRepo) ListElderIDs(ctx context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := map[string]struct{}{}
	out := make([]string, 0)
	for _, m := range r.byID {
		if _, ok := seen[m.ElderID]; ok {
			continue
		}
		seen[m.ElderID] = struct{}{}
		out = append(out, m.ElderID)
	}
	sort.Strings(out)
	return out, nil
}

// los slices de horarios no deben compartirse con el llamador
func cloneMedication(m medications.Medication) medications.Medication {
	m.TimesOfDay = append([]clock.TimeOfDay(nil), m.TimesOfDay...)
	if m.PastSchedules != nil {
		past := make([]medications.ScheduleVersion, len(m.PastSchedules))
		for i, v := range m.PastSchedules {
			v.TimesOfDay = append([]clock.TimeOfDay(nil), v.TimesOfDay...)
			past[i] = v
		}
		m.PastSchedules = past
	}
	return m
}
