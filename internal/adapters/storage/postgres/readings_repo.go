package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"medication-adherence/internal/domain/readings"
	"medication-adherence/internal/platform/storeerr"
)

type ReadingsRepo struct {
	db *sql.DB
}

func NewReadingsRepo(db *sql.DB) *ReadingsRepo {
	return &ReadingsRepo{db: db}
}

const readingColumns = `
	id, elder_id, recorded_at,
	systolic_bp, diastolic_bp, pulse,
	flagged_abnormal, source, recorded_by,
	status, created_at`

func (r *ReadingsRepo) Create(ctx context.Context, rec readings.Record) error {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO risk_records (`+readingColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		ON CONFLICT (id) DO NOTHING
	`,
		rec.ID,
		rec.ElderID,
		rec.RecordedAt,
		toNullInt(rec.SystolicBP),
		toNullInt(rec.DiastolicBP),
		toNullInt(rec.Pulse),
		rec.FlaggedAbnormal,
		string(rec.Source),
		rec.RecordedBy,
		string(rec.Status),
		rec.CreatedAt,
	)
	if err != nil {
		return storeerr.Wrap(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.Wrap(err)
	}
	if n == 0 {
		return readings.ErrDuplicate
	}
	return nil
}

func (r *ReadingsRepo) GetByID(ctx context.Context, id string) (readings.Record, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return readings.Record{}, readings.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+readingColumns+`
		FROM risk_records
		WHERE id = $1
	`, id)

	rec, err := scanReading(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return readings.Record{}, readings.ErrNotFound
		}
		return readings.Record{}, storeerr.Wrap(err)
	}
	return rec, nil
}

func (r *ReadingsRepo) ListByElder(ctx context.Context, elderID string, filter readings.ListFilter) ([]readings.Record, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" {
		return nil, nil
	}

	sb := strings.Builder{}
	sb.WriteString(`
		SELECT ` + readingColumns + `
		FROM risk_records
		WHERE elder_id = $1
	`)

	args := []any{elderID}
	argN := 2

	if !filter.IncludeVoided {
		sb.WriteString(" AND status = 'active'")
	}
	if filter.OnlyAbnormal {
		sb.WriteString(" AND flagged_abnormal")
	}

	// from inclusivo, to exclusivo
	if filter.From != nil {
		sb.WriteString(fmt.Sprintf(" AND recorded_at >= $%d", argN))
		args = append(args, *filter.From)
		argN++
	}
	if filter.To != nil {
		sb.WriteString(fmt.Sprintf(" AND recorded_at < $%d", argN))
		args = append(args, *filter.To)
		argN++
	}

	sb.WriteString(" ORDER BY recorded_at DESC, id DESC")
	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argN))
		args = append(args, filter.Limit)
	}

	rows, err := r.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, storeerr.Wrap(err)
	}
	defer rows.Close()

	out := make([]readings.Record, 0)
	for rows.Next() {
		rec, err := scanReading(rows)
		if err != nil {
			return nil, storeerr.Wrap(err)
		}
		out = append(out, rec)
	}
	return out, storeerr.Wrap(rows.Err())
}

func (r *ReadingsRepo) Void(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE risk_records
		SET status = 'voided'
		WHERE id = $1
	`, id)
	if err != nil {
		return storeerr.Wrap(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return readings.ErrNotFound
	}
	return nil
}

func scanReading(s rowScanner) (readings.Record, error) {
	var rec readings.Record
	var sys, dia, pulse sql.NullInt64
	var source, status string

	if err := s.Scan(
		&rec.ID,
		&rec.ElderID,
		&rec.RecordedAt,
		&sys,
		&dia,
		&pulse,
		&rec.FlaggedAbnormal,
		&source,
		&rec.RecordedBy,
		&status,
		&rec.CreatedAt,
	); err != nil {
		return readings.Record{}, err
	}

	rec.SystolicBP = fromNullInt(sys)
	rec.DiastolicBP = fromNullInt(dia)
	rec.Pulse = fromNullInt(pulse)
	rec.Source = readings.Source(source)
	rec.Status = readings.Status(status)
	return rec, nil
}
