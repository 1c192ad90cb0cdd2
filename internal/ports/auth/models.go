package auth

import "errors"

// ErrNotAuthorized: el actor no puede operar sobre ese adulto mayor.
var ErrNotAuthorized = errors.New("not authorized")

type Role string

const (
	RoleElder     Role = "elder"
	RoleCaregiver Role = "caregiver"
	RoleOSM       Role = "osm"
	RoleAdmin     Role = "admin"
)

// IsManager: cuidador u OSM (voluntario de salud).
func (r Role) IsManager() bool {
	return r == RoleCaregiver || r == RoleOSM
}

func (r Role) Valid() bool {
	switch r {
	case RoleElder, RoleCaregiver, RoleOSM, RoleAdmin:
		return true
	}
	return false
}

// Claims representa la información extraída del token.
type Claims struct {
	UserID string
	Role   Role
	Email  string
}
