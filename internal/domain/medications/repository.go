package medications

import "context"

type Repository interface {
	Create(ctx context.Context, m Medication) error
	Update(ctx context.Context, m Medication) error
	GetByID(ctx context.Context, id string) (Medication, error)
	ListByElder(ctx context.Context, elderID string) ([]Medication, error)
	// ListElderIDs: adultos mayores con al menos un medicamento registrado.
	ListElderIDs(ctx context.Context) ([]string, error)
}
