package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"medication-adherence/internal/domain/readings"
)

type readingRepo struct {
	mu   sync.RWMutex
	byID map[string]readings.Record
}

func NewReadingRepo() readings.Repository {
	return &readingRepo{
		byID: make(map[string]readings.Record),
	}
}

func (r *readingRepo) Create(ctx context.Context, rec readings.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if rec.ID == "" {
		return errors.New("record id required")
	}
	if _, exists := r.byID[rec.ID]; exists {
		return readings.ErrDuplicate
	}
	r.byID[rec.ID] = rec
	return nil
}

func (r *readingRepo) GetByID(ctx context.Context, id string) (readings.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.byID[id]
	if !ok {
		return readings.Record{}, readings.ErrNotFound
	}
	return rec, nil
}

func (r *readingRepo) ListByElder(ctx context.Context, elderID string, filter readings.ListFilter) ([]readings.Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]readings.Record, 0)
	for _, rec := range r.byID {
		if rec.ElderID != elderID {
			continue
		}
		if !filter.IncludeVoided && rec.Status == readings.StatusVoided {
			continue
		}
		if filter.OnlyAbnormal && !rec.FlaggedAbnormal {
			continue
		}
		if filter.From != nil && rec.RecordedAt.Before(*filter.From) {
			continue
		}
		if filter.To != nil && !rec.RecordedAt.Before(*filter.To) {
			continue
		}
		out = append(out, rec)
	}

	// más recientes primero
	sort.Slice(out, func(i, j int) bool {
		if out[i].RecordedAt.Equal(out[j].RecordedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].RecordedAt.After(out[j].RecordedAt)
	})

	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *readingRepo) Void(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.byID[id]
	if !ok {
		return readings.ErrNotFound
	}
	rec.Status = readings.StatusVoided
	r.byID[id] = rec
	return nil
}
