package auth

import "context"

// AuthVerifier verifica un token y devuelve claims o error.
type AuthVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// ElderAccess decide si un actor ya autenticado puede ver o gestionar
// los datos de un adulto mayor. Devuelve ErrNotAuthorized si no.
type ElderAccess interface {
	CanView(ctx context.Context, c Claims, elderID string) error
	CanManage(ctx context.Context, c Claims, elderID string) error
}
