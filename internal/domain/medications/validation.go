package medications

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"medication-adherence/internal/platform/clock"

	"github.com/go-playground/validator/v10"
)

// ValidationError detalla qué campos fallaron y con qué regla.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+e.Fields[k])
	}
	return fmt.Sprintf("%s: %s", ErrInvalidInput.Error(), strings.Join(parts, ", "))
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// definition es la forma validable de un medicamento, antes de parsear horarios.
type definition struct {
	ElderID         string   `validate:"required"`
	Name            string   `validate:"required,max=200"`
	DosageText      string   `validate:"required,max=500"`
	MealInstruction string   `validate:"required,oneof=before-meal after-meal with-meal bedtime"`
	TimesOfDay      []string `validate:"required,min=1,unique,dive,hhmm"`
	ImageRef        string   `validate:"omitempty,url,max=2048"`
	StartDate       clock.Date
	EndDate         *clock.Date
}

var fieldNames = map[string]string{
	"ElderID":         "elder_id",
	"Name":            "name",
	"DosageText":      "dosage_text",
	"MealInstruction": "meal_instruction",
	"TimesOfDay":      "times_of_day",
	"ImageRef":        "image_url",
}

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("hhmm", func(fl validator.FieldLevel) bool {
		_, err := clock.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	return v
}

// check valida la definición completa y devuelve los horarios ya parseados y ordenados.
func check(v *validator.Validate, d definition) ([]clock.TimeOfDay, error) {
	fields := map[string]string{}

	if err := v.Struct(d); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return nil, err
		}
		for _, fe := range verrs {
			// dive reporta "TimesOfDay[1]"
			base := fe.StructField()
			if i := strings.IndexByte(base, '['); i >= 0 {
				base = base[:i]
			}
			name := fieldNames[base]
			if name == "" {
				name = strings.ToLower(base)
			}
			if _, seen := fields[name]; !seen {
				fields[name] = fe.Tag()
			}
		}
	}

	if d.StartDate.IsZero() {
		fields["start_date"] = "required"
	}
	if d.EndDate != nil && !d.StartDate.IsZero() && d.EndDate.Before(d.StartDate) {
		fields["end_date"] = "gte_start_date"
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}

	times := make([]clock.TimeOfDay, 0, len(d.TimesOfDay))
	for _, raw := range d.TimesOfDay {
		tod, err := clock.ParseTimeOfDay(raw)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"times_of_day": "hhmm"}}
		}
		times = append(times, tod)
	}
	sort.Slice(times, func(i, j int) bool { return times[i] < times[j] })
	return times, nil
}

// checkElapsedUnchanged rechaza cambios de rango que agreguen o quiten tomas
// en fechas anteriores al día de now (zona de now).
func checkElapsedUnchanged(m Medication, start clock.Date, end *clock.Date, now time.Time) error {
	today := clock.DateOf(now)
	created := clock.Date{}
	if !m.CreatedAt.IsZero() {
		created = clock.DateOf(m.CreatedAt.In(now.Location()))
	}

	oldFrom, oldTo, oldOK := elapsedRange(m.StartDate, m.EndDate, created, today)
	newFrom, newTo, newOK := elapsedRange(start, end, created, today)

	fields := map[string]string{}
	switch {
	case oldOK != newOK:
		if !start.Equal(m.StartDate) {
			fields["start_date"] = "elapsed_dates"
		}
		if !equalEnd(end, m.EndDate) {
			fields["end_date"] = "elapsed_dates"
		}
	case oldOK:
		if !oldFrom.Equal(newFrom) {
			fields["start_date"] = "elapsed_dates"
		}
		if !oldTo.Equal(newTo) {
			fields["end_date"] = "elapsed_dates"
		}
	}
	if len(fields) > 0 {
		return &ValidationError{Fields: fields}
	}
	return nil
}

// elapsedRange es el tramo [from, to] de fechas ya transcurridas con tomas; ok=false si es vacío.
func elapsedRange(start clock.Date, end *clock.Date, created, today clock.Date) (from, to clock.Date, ok bool) {
	from = start
	if created.After(from) {
		from = created
	}
	to = today.AddDays(-1)
	if end != nil && end.Before(to) {
		to = *end
	}
	return from, to, !from.After(to)
}

func equalEnd(a, b *clock.Date) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}

func normalizeTimes(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, strings.TrimSpace(s))
	}
	return out
}

func timesToStrings(in []clock.TimeOfDay) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		out = append(out, t.String())
	}
	return out
}
