package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdesk.org/internal/auth"
	"taskdesk.org/internal/ids"
)

// Organization store -------------------------------------------------------

type orgStore struct{ db *sql.DB }

const orgColumns = `id, name, slug, description, settings, active, created_at, updated_at`

func scanOrg(row interface{ Scan(...any) error }) (*auth.Organization, error) {
	var (
		org      auth.Organization
		settings []byte
	)
	if err := row.Scan(&org.ID, &org.Name, &org.Slug, &org.Description, &settings,
		&org.Active, &org.CreatedAt, &org.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &org.Settings); err != nil {
			return nil, fmt.Errorf("decode settings: %w", err)
		}
	}
	return &org, nil
}

func (s *orgStore) Create(ctx context.Context, org *auth.Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	settings, err := json.Marshal(org.Settings)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (id, name, slug, description, settings, active)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, org.ID, org.Name, org.Slug, org.Description, settings, org.Active)
	if err := row.Scan(&org.CreatedAt, &org.UpdatedAt); err != nil {
		return mapInsertError(err)
	}
	return nil
}

func (s *orgStore) Find(ctx context.Context, id string) (*auth.Organization, error) {
	return scanOrg(s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where id = $1`, id))
}

func (s *orgStore) FindBySlug(ctx context.Context, slug string) (*auth.Organization, error) {
	return scanOrg(s.db.QueryRowContext(ctx,
		`select `+orgColumns+` from organizations where slug = $1`, slug))
}

func (s *orgStore) List(ctx context.Context) ([]*auth.Organization, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+orgColumns+` from organizations order by created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.Organization
	for rows.Next() {
		org, err := scanOrg(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, org)
	}
	return result, rows.Err()
}

func (s *orgStore) Update(ctx context.Context, id string, upd auth.OrganizationUpdate) (*auth.Organization, error) {
	sets := []string{`updated_at = now()`}
	args := []any{id}
	add := func(expr string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if upd.Name != nil {
		add(`name = $%d`, *upd.Name)
	}
	if upd.Description != nil {
		add(`description = $%d`, *upd.Description)
	}
	if upd.Settings != nil {
		settings, err := json.Marshal(*upd.Settings)
		if err != nil {
			return nil, fmt.Errorf("encode settings: %w", err)
		}
		add(`settings = $%d`, settings)
	}
	if upd.Active != nil {
		add(`active = $%d`, *upd.Active)
	}
	query := `update organizations set ` + strings.Join(sets, ", ") +
		` where id = $1 returning ` + orgColumns
	return scanOrg(s.db.QueryRowContext(ctx, query, args...))
}

func (s *orgStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `delete from organizations where id = $1`, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}

// User store ---------------------------------------------------------------

type userStore struct{ db *sql.DB }

const userColumns = `id, organization_id, name, email, role, active, last_login_at, created_at, updated_at`

func scanUser(row interface{ Scan(...any) error }) (*auth.User, error) {
	var (
		u         auth.User
		lastLogin sql.NullTime
	)
	if err := row.Scan(&u.ID, &u.OrganizationID, &u.Name, &u.Email, &u.Role,
		&u.Active, &lastLogin, &u.CreatedAt, &u.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	if lastLogin.Valid {
		t := lastLogin.Time
		u.LastLoginAt = &t
	}
	return &u, nil
}

func (s *userStore) Create(ctx context.Context, u *auth.User) error {
	if u.ID == "" {
		u.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into users (id, organization_id, name, email, role, active)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, u.ID, u.OrganizationID, u.Name, u.Email, u.Role, u.Active)
	if err := row.Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapInsertError(err)
	}
	return nil
}

func (s *userStore) Find(ctx context.Context, id string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where id = $1`, id))
}

func (s *userStore) FindByEmail(ctx context.Context, email string) (*auth.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`select `+userColumns+` from users where email = $1`, email))
}

func (s *userStore) ListByOrg(ctx context.Context, orgID string) ([]*auth.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+userColumns+` from users where organization_id = $1 order by created_at`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*auth.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, u)
	}
	return result, rows.Err()
}

func (s *userStore) CountByOrg(ctx context.Context, orgID string) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`select count(*) from users where organization_id = $1`, orgID).Scan(&count)
	return count, err
}

func (s *userStore) Update(ctx context.Context, id string, upd auth.UserUpdate) (*auth.User, error) {
	sets := []string{`updated_at = now()`}
	args := []any{id}
	add := func(expr string, val any) {
		args = append(args, val)
		sets = append(sets, fmt.Sprintf(expr, len(args)))
	}
	if upd.Name != nil {
		add(`name = $%d`, *upd.Name)
	}
	if upd.Role != nil {
		add(`role = $%d`, *upd.Role)
	}
	if upd.Active != nil {
		add(`active = $%d`, *upd.Active)
	}
	query := `update users set ` + strings.Join(sets, ", ") +
		` where id = $1 returning ` + userColumns
	return scanUser(s.db.QueryRowContext(ctx, query, args...))
}

func (s *userStore) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`update users set last_login_at = $2, updated_at = $2 where id = $1`, id, at.UTC())
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return auth.ErrNotFound
	}
	return nil
}
