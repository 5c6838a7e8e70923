package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"taskdesk.org/internal/auth"
	"taskdesk.org/internal/ids"
)

type sessionStore struct{ db *sql.DB }

const sessionColumns = `id, user_id, token, expires_at, active, ip, user_agent, created_at`

func scanSession(row interface{ Scan(...any) error }) (*auth.Session, error) {
	var s auth.Session
	if err := row.Scan(&s.ID, &s.UserID, &s.Token, &s.ExpiresAt, &s.Active,
		&s.Client.IP, &s.Client.UserAgent, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (s *sessionStore) Create(ctx context.Context, session *auth.Session) error {
	if session.ID == "" {
		session.ID = ids.New()
	}
	_, err := s.db.ExecContext(ctx, `
		insert into sessions (id, user_id, token, expires_at, active, ip, user_agent, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
	`, session.ID, session.UserID, session.Token, session.ExpiresAt, session.Active,
		session.Client.IP, session.Client.UserAgent, session.CreatedAt)
	return mapInsertError(err)
}

func (s *sessionStore) FindByToken(ctx context.Context, token string) (*auth.Session, error) {
	return scanSession(s.db.QueryRowContext(ctx,
		`select `+sessionColumns+` from sessions where token = $1`, token))
}

func (s *sessionStore) ListByUser(ctx context.Context, userID string) ([]*auth.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+sessionColumns+` from sessions where user_id = $1 order by created_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (s *sessionStore) ListExpired(ctx context.Context, cutoff time.Time) ([]*auth.Session, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+sessionColumns+` from sessions where expires_at < $1`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (s *sessionStore) Deactivate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `update sessions set active = false where id = $1`, id)
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

func collectSessions(rows *sql.Rows) ([]*auth.Session, error) {
	var result []*auth.Session
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, session)
	}
	return result, rows.Err()
}
