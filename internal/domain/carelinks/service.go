package carelinks

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"medication-adherence/internal/ports/auth"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
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

var _ auth.ElderAccess = (*Service)(nil)

type LinkInput struct {
	ManagerID   string
	ManagerRole auth.Role
	ElderID     string
}

// Link es idempotente: si ya hay un vínculo activo lo devuelve.
func (s *Service) Link(ctx context.Context, in LinkInput) (Link, error) {
	managerID := strings.TrimSpace(in.ManagerID)
	elderID := strings.TrimSpace(in.ElderID)

	if managerID == "" || elderID == "" || managerID == elderID {
		return Link{}, ErrInvalidInput
	}
	if !in.ManagerRole.IsManager() {
		return Link{}, ErrInvalidInput
	}

	existing, err := s.repo.GetActive(ctx, managerID, elderID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Link{}, err
	}

	now := s.now()
	l := Link{
		ID:          uuid.NewString(),
		ManagerID:   managerID,
		ManagerRole: in.ManagerRole,
		ElderID:     elderID,
		Status:      StatusActive,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.repo.Create(ctx, l); err != nil {
		return Link{}, err
	}
	return l, nil
}

// Unlink revoca el vínculo activo (idempotente sobre vínculos ya revocados).
func (s *Service) Unlink(ctx context.Context, managerID, elderID string) (Link, error) {
	managerID = strings.TrimSpace(managerID)
	elderID = strings.TrimSpace(elderID)
	if managerID == "" || elderID == "" {
		return Link{}, ErrInvalidInput
	}

	l, err := s.repo.GetActive(ctx, managerID, elderID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Link{}, ErrNotFound
		}
		return Link{}, err
	}

	now := s.now()
	l.Status = StatusRevoked
	l.UpdatedAt = now
	l.RevokedAt = &now

	if err := s.repo.Update(ctx, l); err != nil {
		return Link{}, err
	}
	return l, nil
}

func (s *Service) ListByManager(ctx context.Context, managerID string) ([]Link, error) {
	managerID = strings.TrimSpace(managerID)
	if managerID == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.ListByManager(ctx, managerID)
}

// LinkedElders devuelve los adultos mayores con vínculo activo, sin repetir y ordenados.
func (s *Service) LinkedElders(ctx context.Context, managerID string) ([]string, error) {
	items, err := s.ListByManager(ctx, managerID)
	if err != nil {
		return nil, err
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(items))
	for _, l := range items {
		if l.Status != StatusActive {
			continue
		}
		if _, ok := seen[l.ElderID]; ok {
			continue
		}
		seen[l.ElderID] = struct{}{}
		out = append(out, l.ElderID)
	}
	sort.Strings(out)
	return out, nil
}

// CanView: admin siempre; el propio adulto mayor; cuidador/OSM vinculado.
func (s *Service) CanView(ctx context.Context, c auth.Claims, elderID string) error {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" || strings.TrimSpace(c.UserID) == "" {
		return auth.ErrNotAuthorized
	}

	switch {
	case c.Role == auth.RoleAdmin:
		return nil
	case c.Role == auth.RoleElder:
		if c.UserID == elderID {
			return nil
		}
		return auth.ErrNotAuthorized
	case c.Role.IsManager():
		return s.requireLink(ctx, c.UserID, elderID)
	default:
		return auth.ErrNotAuthorized
	}
}

// CanManage: solo admin o cuidador/OSM vinculado.
func (s *Service) CanManage(ctx context.Context, c auth.Claims, elderID string) error {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" || strings.TrimSpace(c.UserID) == "" {
		return auth.ErrNotAuthorized
	}

	switch {
	case c.Role == auth.RoleAdmin:
		return nil
	case c.Role.IsManager():
		return s.requireLink(ctx, c.UserID, elderID)
	default:
		return auth.ErrNotAuthorized
	}
}

func (s *Service) requireLink(ctx context.Context, managerID, elderID string) error {
	_, err := s.repo.GetActive(ctx, managerID, elderID)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return auth.ErrNotAuthorized
	}
	return err
}
