package doses

import (
	"fmt"
	"time"

	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/clock"
)

// Key identifica una toma: (medicamento, fecha, horario).
type Key struct {
	MedicationID string
	Date         clock.Date
	TimeOfDay    clock.TimeOfDay
}

func (k Key) String() string {
	return fmt.Sprintf("%s/%s/%s", k.MedicationID, k.Date, k.TimeOfDay)
}

// Instance es una toma derivada; no se persiste.
type Instance struct {
	Key

	ElderID         string
	MedicationName  string
	DosageText      string
	MealInstruction medications.MealInstruction
	ImageRef        string
}

type State string

const (
	StateLocked     State = "locked"
	StateActionable State = "actionable"
	StateConfirmed  State = "confirmed"
	StateMissed     State = "missed"
)

// Ledger es la vista de solo lectura de confirmaciones que usa el evaluador.
type Ledger interface {
	ConfirmedAt(k Key) (time.Time, bool)
}

// ConfirmedSet es una instantánea de confirmaciones ya cargada.
type ConfirmedSet map[Key]time.Time

func (s ConfirmedSet) ConfirmedAt(k Key) (time.Time, bool) {
	t, ok := s[k]
	return t, ok
}
