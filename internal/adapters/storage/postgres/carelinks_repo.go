package postgres

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"medication-adherence/internal/domain/carelinks"
	"medication-adherence/internal/platform/storeerr"
	"medication-adherence/internal/ports/auth"
)

type CareLinksRepo struct {
	db *sql.DB
}

func NewCareLinksRepo(db *sql.DB) *CareLinksRepo {
	return &CareLinksRepo{db: db}
}

const careLinkColumns = `
	id, manager_id, manager_role, elder_id,
	status, created_at, updated_at, revoked_at`

func (r *CareLinksRepo) Create(ctx context.Context, l carelinks.Link) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO care_links (`+careLinkColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`,
		l.ID,
		l.ManagerID,
		string(l.ManagerRole),
		l.ElderID,
		string(l.Status),
		l.CreatedAt,
		l.UpdatedAt,
		toNullTime(l.RevokedAt),
	)
	return storeerr.Wrap(err)
}

func (r *CareLinksRepo) Update(ctx context.Context, l carelinks.Link) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE care_links
		SET
			status = $2,
			updated_at = $3,
			revoked_at = $4
		WHERE id = $1
	`,
		l.ID,
		string(l.Status),
		l.UpdatedAt,
		toNullTime(l.RevokedAt),
	)
	if err != nil {
		return storeerr.Wrap(err)
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return carelinks.ErrNotFound
	}
	return nil
}

func (r *CareLinksRepo) GetByID(ctx context.Context, id string) (carelinks.Link, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return carelinks.Link{}, carelinks.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+careLinkColumns+`
		FROM care_links
		WHERE id = $1
	`, id)
	return r.one(row)
}

func (r *CareLinksRepo) GetActive(ctx context.Context, managerID, elderID string) (carelinks.Link, error) {
	managerID = strings.TrimSpace(managerID)
	elderID = strings.TrimSpace(elderID)
	if managerID == "" || elderID == "" {
		return carelinks.Link{}, carelinks.ErrNotFound
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+careLinkColumns+`
		FROM care_links
		WHERE manager_id = $1
		  AND elder_id = $2
		  AND status = 'active'
		ORDER BY updated_at DESC
		LIMIT 1
	`, managerID, elderID)
	return r.one(row)
}

func (r *CareLinksRepo) ListByManager(ctx context.Context, managerID string) ([]carelinks.Link, error) {
	return r.list(ctx, `
		SELECT `+careLinkColumns+`
		FROM care_links
		WHERE manager_id = $1
		ORDER BY created_at ASC
	`, managerID)
}

func (r *CareLinksRepo) ListByElder(ctx context.Context, elderID string) ([]carelinks.Link, error) {
	return r.list(ctx, `
		SELECT `+careLinkColumns+`
		FROM care_links
		WHERE elder_id = $1
		ORDER BY created_at ASC
	`, elderID)
}

func (r *CareLinksRepo) one(row *sql.Row) (carelinks.Link, error) {
	l, err := scanCareLink(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return carelinks.Link{}, carelinks.ErrNotFound
		}
		return carelinks.Link{}, storeerr.Wrap(err)
	}
	return l, nil
}

func (r *CareLinksRepo) list(ctx context.Context, query, arg string) ([]carelinks.Link, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, storeerr.Wrap(err)
	}
	defer rows.Close()

	out := make([]carelinks.Link, 0)
	for rows.Next() {
		l, err := scanCareLink(rows)
		if err != nil {
			return nil, storeerr.Wrap(err)
		}
		out = append(out, l)
	}
	return out, storeerr.Wrap(rows.Err())
}

func scanCareLink(s rowScanner) (carelinks.Link, error) {
	var l carelinks.Link
	var role, status string
	var revokedAt sql.NullTime

	if err := s.Scan(
		&l.ID,
		&l.ManagerID,
		&role,
		&l.ElderID,
		&status,
		&l.CreatedAt,
		&l.UpdatedAt,
		&revokedAt,
	); err != nil {
		return carelinks.Link{}, err
	}

	l.ManagerRole = auth.Role(role)
	l.Status = carelinks.Status(status)
	l.RevokedAt = fromNullTime(revokedAt)
	return l, nil
}
