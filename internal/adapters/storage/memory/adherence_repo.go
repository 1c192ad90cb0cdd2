package memory

import (
	"context"
	"sort"
	"sync"

	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/platform/clock"
)

type factKey struct {
	elderID string
	date    clock.Date
}

type adherenceRepo struct {
	mu    sync.RWMutex
	byKey map[factKey]adherence.Fact
}

func NewAdherenceRepo() adherence.Repository {
	return &adherenceRepo{
		byKey: make(map[factKey]adherence.Fact),
	}
}

func (r *adherenceRepo) Upsert(ctx context.Context, f adherence.Fact) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.byKey[factKey{elderID: f.ElderID, date: f.Date}] = f
	return nil
}

func (r *adherenceRepo) Get(ctx context.Context, elderID string, date clock.Date) (adherence.Fact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	f, ok := r.byKey[factKey{elderID: elderID, date: date}]
	if !ok {
		return adherence.Fact{}, adherence.ErrNotFound
	}
	return f, nil
}

func (r *adherenceRepo) ListByElder(ctx context.Context, elderID string, from, to clock.Date) ([]adherence.Fact, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]adherence.Fact, 0)
	for k, f := range r.byKey {
		if k.elderID != elderID {
			continue
		}
		if k.date.Before(from) || k.date.After(to) {
			continue
		}
		out = append(out, f)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}
