package doses

import (
	"sort"
	"time"

	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/clock"
)

// Generate deriva las tomas de un adulto mayor para una fecha.
// Es pura: mismo input, mismo output. Orden: horario, nombre, id.
func Generate(meds []medications.Medication, elderID string, date clock.Date, loc *time.Location) []Instance {
	out := make([]Instance, 0)
	for _, m := range meds {
		if m.ElderID != elderID {
			continue
		}
		for _, tod := range m.DosesOn(date, loc) {
			out = append(out, InstanceOf(m, date, tod))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.TimeOfDay != b.TimeOfDay {
			return a.TimeOfDay < b.TimeOfDay
		}
		if a.MedicationName != b.MedicationName {
			return a.MedicationName < b.MedicationName
		}
		return a.MedicationID < b.MedicationID
	})
	return out
}

// InstanceOf arma la toma (m, date, tod) sin validar que exista.
func InstanceOf(m medications.Medication, date clock.Date, tod clock.TimeOfDay) Instance {
	return Instance{
		Key: Key{
			MedicationID: m.ID,
			Date:         date,
			TimeOfDay:    tod,
		},
		ElderID:         m.ElderID,
		MedicationName:  m.Name,
		DosageText:      m.DosageText,
		MealInstruction: m.MealInstruction,
		ImageRef:        m.ImageRef,
	}
}
