package carelinks

import "context"

type Repository interface {
	Create(ctx context.Context, l Link) error
	Update(ctx context.Context, l Link) error
	GetByID(ctx context.Context, id string) (Link, error)
	// GetActive devuelve el vínculo activo más reciente o ErrNotFound.
	GetActive(ctx context.Context, managerID, elderID string) (Link, error)
	ListByManager(ctx context.Context, managerID string) ([]Link, error)
	ListByElder(ctx context.Context, elderID string) ([]Link, error)
}
