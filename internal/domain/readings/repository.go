package readings

import (
	"context"
	"time"
)

type Repository interface {
	// Create devuelve ErrDuplicate si el id ya existe.
	Create(ctx context.Context, rec Record) error
	GetByID(ctx context.Context, id string) (Record, error)
	ListByElder(ctx context.Context, elderID string, filter ListFilter) ([]Record, error)
	Void(ctx context.Context, id string) error
}

// ListFilter: From inclusivo, To exclusivo (sobre RecordedAt).
type ListFilter struct {
	From          *time.Time
	To            *time.Time
	OnlyAbnormal  bool
	IncludeVoided bool
	Limit         int
}
