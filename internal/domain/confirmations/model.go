package confirmations

import (
	"time"

	"medication-adherence/internal/domain/doses"
	"medication-adherence/internal/platform/clock"
)

// Event es inmutable: nunca se actualiza ni se borra.
type Event struct {
	ID      string
	ElderID string

	MedicationID string
	Date         clock.Date
	TimeOfDay    clock.TimeOfDay

	ConfirmedAt time.Time
	ActorID     string
	Backfilled  bool // corrección administrativa
}

func (e Event) Key() doses.Key {
	return doses.Key{
		MedicationID: e.MedicationID,
		Date:         e.Date,
		TimeOfDay:    e.TimeOfDay,
	}
}

type Outcome string

const (
	OutcomeAccepted         Outcome = "accepted"
	OutcomeAlreadyConfirmed Outcome = "already_confirmed"
)

// Result devuelve el evento vigente para la clave (nuevo o el existente).
type Result struct {
	Outcome Outcome
	Event   Event
}
