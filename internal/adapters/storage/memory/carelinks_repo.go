package memory

import (
	"context"
	"errors"
	"sort"
	"sync"

	"medication-adherence/internal/domain/carelinks"
)

type careLinkRepo struct {
	mu   sync.RWMutex
	byID map[string]carelinks.Link
}

func NewCareLinkRepo() carelinks.Repository {
	return &careLinkRepo{
		byID: make(map[string]carelinks.Link),
	}
}

func (r *careLinkRepo) Create(ctx context.Context, l carelinks.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l.ID == "" {
		return errors.New("link id required")
	}
	if _, exists := r.byID[l.ID]; exists {
		return errors.New("link already exists")
	}
	r.byID[l.ID] = l
	return nil
}

func (r *careLinkRepo) Update(ctx context.Context, l carelinks.Link) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[l.ID]; !exists {
		return carelinks.ErrNotFound
	}
	r.byID[l.ID] = l
	return nil
}

func (r *careLinkRepo) GetByID(ctx context.Context, id string) (carelinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.byID[id]
	if !ok {
		return carelinks.Link{}, carelinks.ErrNotFound
	}
	return l, nil
}

// Si por data sucia hubiera varios activos, gana el más reciente por UpdatedAt.
func (r *careLinkRepo) GetActive(ctx context.Context, managerID, elderID string) (carelinks.Link, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var winner carelinks.Link
	has := false

	for _, l := range r.byID {
		if l.ManagerID != managerID || l.ElderID != elderID {
			continue
		}
		if l.Status != carelinks.StatusActive {
			continue
		}
		if !has || l.UpdatedAt.After(winner.UpdatedAt) {
			winner = l
			has = true
		}
	}

	if !has {
		return carelinks.Link{}, carelinks.ErrNotFound
	}
	return winner, nil
}

func (r *careLinkRepo) ListByManager(ctx context.Context, managerID string) ([]carelinks.Link, error) {
	return r.list(func(l carelinks.Link) bool { return l.ManagerID == managerID }), nil
}

func (r *careLinkRepo) ListByElder(ctx context.Context, elderID string) ([]carelinks.Link, error) {
	return r.list(func(l carelinks.Link) bool { return l.ElderID == elderID }), nil
}

func (r *careLinkRepo) list(match func(carelinks.Link) bool) []carelinks.Link {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]carelinks.Link, 0)
	for _, l := range r.byID {
		if match(l) {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}
