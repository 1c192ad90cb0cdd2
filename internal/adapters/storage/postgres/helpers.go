package postgres

import (
	"database/sql"
	"encoding/json"
	"time"

	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/clock"

	"github.com/jackc/pgx/v5/pgtype"
)

func toNullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func fromNullTime(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

// sqlDate: DATE se escribe como medianoche UTC del día calendario.
func sqlDate(d clock.Date) time.Time {
	return d.Start(time.UTC)
}

func toNullDate(d *clock.Date) sql.NullTime {
	if d == nil {
		return sql.NullTime{Valid: false}
	}
	return sql.NullTime{Time: sqlDate(*d), Valid: true}
}

func fromNullDate(nt sql.NullTime) *clock.Date {
	if !nt.Valid {
		return nil
	}
	d := clock.DateOf(nt.Time.UTC())
	return &d
}

func toNullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{Valid: false}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func fromNullInt(n sql.NullInt64) *int {
	if !n.Valid {
		return nil
	}
	v := int(n.Int64)
	return &v
}

func timesToText(in []clock.TimeOfDay) []string {
	out := make([]string, 0, len(in))
	for _, t := range in {
		out = append(out, t.String())
	}
	return out
}

func textToTimes(in []string) ([]clock.TimeOfDay, error) {
	out := make([]clock.TimeOfDay, 0, len(in))
	for _, s := range in {
		t, err := clock.ParseTimeOfDay(s)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// textArray escanea TEXT[] vía database/sql. pgtype.Map no es seguro para
// uso concurrente, así que se crea uno por lectura.
func textArray(dst *[]string) sql.Scanner {
	return pgtype.NewMap().SQLScanner(dst)
}

// schedulesToJSON serializa el historial de horarios para la columna JSONB.
func schedulesToJSON(in []medications.ScheduleVersion) (string, error) {
	if in == nil {
		in = []medications.ScheduleVersion{}
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func jsonToSchedules(raw []byte) ([]medications.ScheduleVersion, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var out []medications.ScheduleVersion
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}
