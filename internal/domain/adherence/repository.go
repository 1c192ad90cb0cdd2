package adherence

import (
	"context"

	"medication-adherence/internal/platform/clock"
)

type Repository interface {
	// Upsert sobrescribe el hecho de (elder, fecha) si ya existía.
	Upsert(ctx context.Context, f Fact) error
	Get(ctx context.Context, elderID string, date clock.Date) (Fact, error)
	// ListByElder devuelve hechos con fecha en [from, to], orden ascendente.
	ListByElder(ctx context.Context, elderID string, from, to clock.Date) ([]Fact, error)
}
