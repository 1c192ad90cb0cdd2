package carelinks

import (
	"time"

	"medication-adherence/internal/ports/auth"
)

type Status string

const (
	StatusActive  Status = "active"
	StatusRevoked Status = "revoked"
)

// Link vincula un cuidador u OSM con un adulto mayor.
type Link struct {
	ID string

	ManagerID   string
	ManagerRole auth.Role // caregiver | osm
	ElderID     string

	Status Status

	CreatedAt time.Time
	UpdatedAt time.Time
	RevokedAt *time.Time
}
