package postgres

import (
	"context"
	"database/sql"
	"fmt"
)

// schema es idempotente; cada sentencia se aplica en orden.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS medications (
		id               TEXT PRIMARY KEY,
		elder_id         TEXT NOT NULL,
		name             TEXT NOT NULL,
		dosage_text      TEXT NOT NULL DEFAULT '',
		meal_instruction TEXT NOT NULL,
		times_of_day     TEXT[] NOT NULL,
		past_schedules   JSONB NOT NULL DEFAULT '[]',
		start_date       DATE NOT NULL,
		end_date         DATE,
		image_ref        TEXT NOT NULL DEFAULT '',
		created_by       TEXT NOT NULL DEFAULT '',
		created_at       TIMESTAMPTZ NOT NULL,
		updated_at       TIMESTAMPTZ NOT NULL,
		deactivated_at   TIMESTAMPTZ,
		CHECK (end_date IS NULL OR end_date >= start_date)
	)`,
	`ALTER TABLE medications ADD COLUMN IF NOT EXISTS past_schedules JSONB NOT NULL DEFAULT '[]'`,
	`CREATE INDEX IF NOT EXISTS medications_elder_idx ON medications (elder_id)`,

	`CREATE TABLE IF NOT EXISTS dose_confirmations (
		id             TEXT PRIMARY KEY,
		elder_id       TEXT NOT NULL,
		medication_id  TEXT NOT NULL REFERENCES medications (id),
		scheduled_date DATE NOT NULL,
		time_of_day    CHAR(5) NOT NULL,
		confirmed_at   TIMESTAMPTZ NOT NULL,
		actor_id       TEXT NOT NULL,
		backfilled     BOOLEAN NOT NULL DEFAULT FALSE,
		UNIQUE (medication_id, scheduled_date, time_of_day)
	)`,
	`CREATE INDEX IF NOT EXISTS dose_confirmations_elder_date_idx
		ON dose_confirmations (elder_id, scheduled_date)`,

	`CREATE TABLE IF NOT EXISTS adherence_facts (
		elder_id    TEXT NOT NULL,
		fact_date   DATE NOT NULL,
		expected    INTEGER NOT NULL,
		confirmed   INTEGER NOT NULL,
		missed      INTEGER NOT NULL,
		computed_at TIMESTAMPTZ NOT NULL,
		PRIMARY KEY (elder_id, fact_date)
	)`,

	`CREATE TABLE IF NOT EXISTS risk_records (
		id               TEXT PRIMARY KEY,
		elder_id         TEXT NOT NULL,
		recorded_at      TIMESTAMPTZ NOT NULL,
		systolic_bp      INTEGER,
		diastolic_bp     INTEGER,
		pulse            INTEGER,
		flagged_abnormal BOOLEAN NOT NULL,
		source           TEXT NOT NULL,
		recorded_by      TEXT NOT NULL DEFAULT '',
		status           TEXT NOT NULL,
		created_at       TIMESTAMPTZ NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS risk_records_elder_time_idx ON risk_records (elder_id, recorded_at)`,

	`CREATE TABLE IF NOT EXISTS care_links (
		id           TEXT PRIMARY KEY,
		manager_id   TEXT NOT NULL,
		manager_role TEXT NOT NULL,
		elder_id     TEXT NOT NULL,
		status       TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL,
		revoked_at   TIMESTAMPTZ
	)`,
	`CREATE INDEX IF NOT EXISTS care_links_manager_idx ON care_links (manager_id, elder_id)`,
}

// Migrate crea el esquema si no existe.
func Migrate(ctx context.Context, db *sql.DB) error {
	for i, stmt := range schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate step %d: %w", i+1, err)
		}
	}
	return nil
}
