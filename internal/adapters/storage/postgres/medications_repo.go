package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"medication-adherence/internal/domain/medications"
	"medication-adherence/internal/platform/storeerr"
)

type MedicationsRepo struct {
	db *sql.DB
}

func NewMedicationsRepo(db *sql.DB) *MedicationsRepo {
	return &MedicationsRepo{db: db}
}

const medicationColumns = `
	id, elder_id,
	name, dosage_text, meal_instruction,
	times_of_day, past_schedules, start_date, end_date,
	image_ref, created_by,
	created_at, updated_at, deactivated_at`

func (r *MedicationsRepo) Create(ctx context.Context, m medications.Medication) error {
	past, err := schedulesToJSON(m.PastSchedules)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO medications (`+medicationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
	`,
		m.ID,
		m.ElderID,
		m.Name,
		m.DosageText,
		string(m.MealInstruction),
		timesToText(m.TimesOfDay),
		past,
		sqlDate(m.StartDate),
		toNullDate(m.EndDate),
		m.ImageRef,
		m.CreatedBy,
		m.CreatedAt,
		m.UpdatedAt,
		toNullTime(m.DeactivatedAt),
	)
	return storeerr.Wrap(err)
}

func (r *MedicationsRepo) Update(ctx context.Context, m medications.Medication) error {
	past, err := schedulesToJSON(m.PastSchedules)
	if err != nil {
		return err
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE medications
		SET
			name = $2,
			dosage_text = $3,
			meal_instruction = $4,
			times_of_day = $5,
			past_schedules = $6,
			start_date = $7,
			end_date = $8,
			image_ref = $9,
			updated_at = $10,
			deactivated_at = $11
		WHERE id = $1
	`,
		m.ID,
		m.Name,
		m.DosageText,
		string(m.MealInstruction),
		timesToText(m.TimesOfDay),
		past,
		sqlDate(m.StartDate),
		toNullDate(m.EndDate),
		m.ImageRef,
		m.UpdatedAt,
		toNullTime(m.DeactivatedAt),
	)
	if err != nil {
		return storeerr.Wrap(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return medications.ErrNotFound
	}
	return nil
}

func (r *MedicationsRepo) GetByID(ctx context.Context, id string) (medications.Medication, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return medications.Medication{}, medications.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE id = $1
	`, id)

	m, err := scanMedication(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return medications.Medication{}, medications.ErrNotFound
		}
		return medications.Medication{}, storeerr.Wrap(err)
	}
	return m, nil
}

func (r *MedicationsRepo) ListByElder(ctx context.Context, elderID string) ([]medications.Medication, error) {
	elderID = strings.TrimSpace(elderID)
	if elderID == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT `+medicationColumns+`
		FROM medications
		WHERE elder_id = $1
		ORDER BY created_at ASC, id ASC
	`, elderID)
	if err != nil {
		return nil, storeerr.Wrap(err)
	}
	defer rows.Close()

	out := make([]medications.Medication, 0)
	for rows.Next() {
		m, err := scanMedication(rows)
		if err != nil {
			return nil, storeerr.Wrap(err)
		}
		out = append(out, m)
	}
	return out, storeerr.Wrap(rows.Err())
}

func (r *MedicationsRepo) ListElderIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT DISTINCT elder_id
		FROM medications
		ORDER BY elder_id ASC
	`)
	if err != nil {
		return nil, storeerr.Wrap(err)
	}
	defer rows.Close()

	out := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, storeerr.Wrap(err)
		}
		out = append(out, id)
	}
	return out, storeerr.Wrap(rows.Err())
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMedication(s rowScanner) (medications.Medication, error) {
	var m medications.Medication
	var meal string
	var times []string
	var past []byte
	var start sql.NullTime
	var end, deactivatedAt sql.NullTime

	if err := s.Scan(
		&m.ID,
		&m.ElderID,
		&m.Name,
		&m.DosageText,
		&meal,
		textArray(&times),
		&past,
		&start,
		&end,
		&m.ImageRef,
		&m.CreatedBy,
		&m.CreatedAt,
		&m.UpdatedAt,
		&deactivatedAt,
	); err != nil {
		return medications.Medication{}, err
	}

	tods, err := textToTimes(times)
	if err != nil {
		return medications.Medication{}, err
	}

	schedules, err := jsonToSchedules(past)
	if err != nil {
		return medications.Medication{}, err
	}

	m.MealInstruction = medications.MealInstruction(meal)
	m.TimesOfDay = tods
	m.PastSchedules = schedules
	if d := fromNullDate(start); d != nil {
		m.StartDate = *d
	}
	m.EndDate = fromNullDate(end)
	m.DeactivatedAt = fromNullTime(deactivatedAt)
	return m, nil
}
