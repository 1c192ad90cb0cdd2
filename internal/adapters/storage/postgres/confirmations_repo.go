package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"medication-adherence/internal/domain/confirmations"
	"medication-adherence/internal/domain/doses"
	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/storeerr"
)

type ConfirmationsRepo struct {
	db *sql.DB
}

func NewConfirmationsRepo(db *sql.DB) *ConfirmationsRepo {
	return &ConfirmationsRepo{db: db}
}

const confirmationColumns = `
	id, elder_id, medication_id,
	scheduled_date, time_of_day,
	confirmed_at, actor_id, backfilled`

// Insert se apoya en la restricción UNIQUE: 0 filas afectadas = ya confirmado.
func (r *ConfirmationsRepo) Insert(ctx context.Context, e confirmations.Event) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO dose_confirmations (`+confirmationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (medication_id, scheduled_date, time_of_day) DO NOTHING
	`,
		e.ID,
		e.ElderID,
		e.MedicationID,
		sqlDate(e.Date),
		e.TimeOfDay.String(),
		e.ConfirmedAt,
		e.ActorID,
		e.Backfilled,
	)
	if err != nil {
		return storeerr.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.Wrap(err)
	}
	if n == 0 {
		return confirmations.ErrDuplicate
	}
	return nil
}

func (r *ConfirmationsRepo) GetByKey(ctx context.Context, k doses.Key) (confirmations.Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+confirmationColumns+`
		FROM dose_confirmations
		WHERE medication_id = $1 AND scheduled_date = $2 AND time_of_day = $3
	`, k.MedicationID, sqlDate(k.Date), k.TimeOfDay.String())

	e, err := scanConfirmation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return confirmations.Event{}, confirmations.ErrNotFound
		}
		return confirmations.Event{}, storeerr.Wrap(err)
	}
	return e, nil
}

func (r *ConfirmationsRepo) ListByElderDate(ctx context.Context, elderID string, date clock.Date) ([]confirmations.Event, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+confirmationColumns+`
		FROM dose_confirmations
		WHERE elder_id = $1 AND scheduled_date = $2
		ORDER BY time_of_day ASC, medication_id ASC
	`, elderID, sqlDate(date))
	if err != nil {
		return nil, storeerr.Wrap(err)
	}
	defer rows.Close()

	out := make([]confirmations.Event, 0)
	for rows.Next() {
		e, err := scanConfirmation(rows)
		if err != nil {
			return nil, storeerr.Wrap(err)
		}
		out = append(out, e)
	}
	return out, storeerr.Wrap(rows.Err())
}

func scanConfirmation(s rowScanner) (confirmations.Event, error) {
	var e confirmations.Event
	var date sql.NullTime
	var tod string

	if err := s.Scan(
		&e.ID,
		&e.ElderID,
		&e.MedicationID,
		&date,
		&tod,
		&e.ConfirmedAt,
		&e.ActorID,
		&e.Backfilled,
	); err != nil {
		return confirmations.Event{}, err
	}

	t, err := clock.ParseTimeOfDay(strings.TrimSpace(tod))
	if err != nil {
		return confirmations.Event{}, err
	}
	e.TimeOfDay = t
	if d := fromNullDate(date); d != nil {
		e.Date = *d
	}
	return e, nil
}
