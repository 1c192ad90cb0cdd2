package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"medication-adherence/internal/domain/confirmations"
	"medication-adherence/internal/domain/doses"
	"medication-adherence/internal/platform/clock"
)

// confirmationRepo: el mapa por clave es la restricción de unicidad.
type confirmationRepo struct {
	mu    sync.RWMutex
	byKey map[doses.Key]confirmations.Event
}

func NewConfirmationRepo() confirmations.Repository {
	return &confirmationRepo{
		byKey: make(map[doses.Key]confirmations.Event),
	}
}

func (r *confirmationRepo) Insert(ctx context.Context, e confirmations.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e.ID == "" {
		return errors.New("confirmation id required")
	}
	k := e.Key()
	if _, exists := r.byKey[k]; exists {
		return confirmations.ErrDuplicate
	}
	r.byKey[k] = e
	return nil
}

func (r *confirmationRepo) GetByKey(ctx context.Context, k doses.Key) (confirmations.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.byKey[k]
	if !ok {
		return confirmations.Event{}, confirmations.ErrNotFound
	}
	return e, nil
}

func (r *confirmationRepo) ListByElderDate(ctx context.Context, elderID string, date clock.Date) ([]confirmations.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]confirmations.Event, 0)
	for _, e := range r.byKey {
		if e.ElderID == elderID && e.Date.Equal(date) {
			out = append(out, e)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeOfDay != out[j].TimeOfDay {
			return out[i].TimeOfDay < out[j].TimeOfDay
		}
		return out[i].MedicationID < out[j].MedicationID
	})
	return out, nil
}
