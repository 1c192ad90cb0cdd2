package doses

import (
	"time"

	"medication-adherence/internal/platform/clock"
)

// Evaluate decide el estado de una toma. nowLocal debe venir ya en la zona
// del despliegue. No bloquea ni consulta nada: todo llega cargado.
func Evaluate(inst Instance, nowLocal time.Time, ledger Ledger) State {
	if ledger != nil {
		if _, ok := ledger.ConfirmedAt(inst.Key); ok {
			return StateConfirmed
		}
	}

	today := clock.DateOf(nowLocal)
	switch {
	case inst.Date.After(today):
		return StateLocked
	case inst.Date.Before(today):
		// el día ya pasó: nunca vuelve a ser accionable
		return StateMissed
	}

	if clock.TimeOfDayOf(nowLocal) < inst.TimeOfDay {
		return StateLocked
	}
	return StateActionable
}
