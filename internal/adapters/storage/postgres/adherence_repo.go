package postgres

import (
	"context"
	"database/sql"
	"errors"

	"medication-adherence/internal/domain/adherence"
	"medication-adherence/internal/platform/clock"
	"medication-adherence/internal/platform/storeerr"
)

type AdherenceRepo struct {
	db *sql.DB
}

func NewAdherenceRepo(db *sql.DB) *AdherenceRepo {
	return &AdherenceRepo{db: db}
}

func (r *AdherenceRepo) Upsert(ctx context.Context, f adherence.Fact) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO adherence_facts (
			elder_id, fact_date,
			expected, confirmed, missed,
			computed_at
		) VALUES ($1,$2,$3,$4,$5,$6)
		ON CONFLICT (elder_id, fact_date) DO UPDATE
		SET
			expected = EXCLUDED.expected,
			confirmed = EXCLUDED.confirmed,
			missed = EXCLUDED.missed,
			computed_at = EXCLUDED.computed_at
	`,
		f.ElderID,
		sqlDate(f.Date),
		f.Expected,
		f.Confirmed,
		f.Missed,
		f.ComputedAt,
	)
	return storeerr.Wrap(err)
}

func (r *AdherenceRepo) Get(ctx context.Context, elderID string, date clock.Date) (adherence.Fact, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT elder_id, fact_date, expected, confirmed, missed, computed_at
		FROM adherence_facts
		WHERE elder_id = $1 AND fact_date = $2
	`, elderID, sqlDate(date))

	f, err := scanFact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return adherence.Fact{}, adherence.ErrNotFound
		}
		return adherence.Fact{}, storeerr.Wrap(err)
	}
	return f, nil
}

func (r *AdherenceRepo) ListByElder(ctx context.Context, elderID string, from, to clock.Date) ([]adherence.Fact, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT elder_id, fact_date, expected, confirmed, missed, computed_at
		FROM adherence_facts
		WHERE elder_id = $1 AND fact_date BETWEEN $2 AND $3
		ORDER BY fact_date ASC
	`, elderID, sqlDate(from), sqlDate(to))
	if err != nil {
		return nil, storeerr.Wrap(err)
	}
	defer rows.Close()

	out := make([]adherence.Fact, 0)
	for rows.Next() {
		f, err := scanFact(rows)
		if err != nil {
			return nil, storeerr.Wrap(err)
		}
		out = append(out, f)
	}
	return out, storeerr.Wrap(rows.Err())
}

func scanFact(s rowScanner) (adherence.Fact, error) {
	var f adherence.Fact
	var date sql.NullTime

	if err := s.Scan(
		&f.ElderID,
		&date,
		&f.Expected,
		&f.Confirmed,
		&f.Missed,
		&f.ComputedAt,
	); err != nil {
		return adherence.Fact{}, err
	}
	if d := fromNullDate(date); d != nil {
		f.Date = *d
	}
	return f, nil
}
