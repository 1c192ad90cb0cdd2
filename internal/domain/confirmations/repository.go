package confirmations

import (
	"context"

	"medication-adherence/internal/domain/doses"
	"medication-adherence/internal/platform/clock"
)

type Repository interface {
	// Insert debe ser atómico sobre (medicamento, fecha, horario):
	// si la clave ya existe devuelve ErrDuplicate y no escribe nada.
	Insert(ctx context.Context, e Event) error
	GetByKey(ctx context.Context, k doses.Key) (Event, error)
	ListByElderDate(ctx context.Context, elderID string, date clock.Date) ([]Event, error)
}
