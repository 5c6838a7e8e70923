package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdesk.org/internal/obs"
)

const (
	defaultSessionTTL = 7 * 24 * time.Hour

	// Token uniqueness is a store constraint, not a pre-check; Create retries
	// on a collision.
	tokenBytes       = 32
	maxTokenAttempts = 5
)

// TokenSource generates opaque session tokens.
type TokenSource func() (string, error)

func randomToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// SessionService manages the session lifecycle: issuance, validation,
// revocation and pruning. Expiry is lazy; validity is recomputed from the
// stored expiry timestamp on every check.
type SessionService struct {
	store    Store
	now      func() time.Time
	ttl      time.Duration
	newToken TokenSource
}

// SessionOption configures SessionService behavior.
type SessionOption func(*SessionService) error

// WithClock overrides the time source (useful for tests).
func WithClock(fn func() time.Time) SessionOption {
	return func(s *SessionService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// WithSessionTTL configures the fixed lifetime applied to new sessions.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) error {
		if ttl <= 0 {
			return errors.New("auth: session ttl must be positive")
		}
		s.ttl = ttl
		return nil
	}
}

// WithTokenSource overrides token generation (useful for tests).
func WithTokenSource(fn TokenSource) SessionOption {
	return func(s *SessionService) error {
		if fn != nil {
			s.newToken = fn
		}
		return nil
	}
}

// NewSessionService constructs a SessionService with optional configuration.
func NewSessionService(store Store, opts ...SessionOption) (*SessionService, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	svc := &SessionService{
		store:    store,
		now:      time.Now,
		ttl:      defaultSessionTTL,
		newToken: randomToken,
	}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// TTL returns the fixed session lifetime.
func (s *SessionService) TTL() time.Duration { return s.ttl }

// Create mints a session for the principal and updates their last-login
// timestamp. A token collision surfaces from the store as ErrConflict and is
// retried with a fresh token.
func (s *SessionService) Create(ctx context.Context, userID string, client ClientMeta) (*Session, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	if _, err := s.store.Users(ctx).Find(ctx, userID); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	var session *Session
	for attempt := 0; attempt < maxTokenAttempts; attempt++ {
		token, err := s.newToken()
		if err != nil {
			return nil, err
		}
		candidate := &Session{
			UserID:    userID,
			Token:     token,
			ExpiresAt: now.Add(s.ttl),
			Active:    true,
			Client:    client,
			CreatedAt: now,
		}
		err = s.store.Sessions(ctx).Create(ctx, candidate)
		if errors.Is(err, ErrConflict) {
			continue
		}
		if err != nil {
			return nil, err
		}
		session = candidate
		break
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session token space exhausted", ErrConflict)
	}

	if err := s.store.Users(ctx).TouchLastLogin(ctx, userID, now); err != nil {
		return nil, err
	}
	obs.SessionIssued()
	return session, nil
}

// Validate resolves a token to its session. It returns (nil, nil) when the
// session is absent, revoked or past its expiry; no state is mutated.
func (s *SessionService) Validate(ctx context.Context, token string) (*Session, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	session, err := s.store.Sessions(ctx).FindByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if !session.Active || !s.now().Before(session.ExpiresAt) {
		return nil, nil
	}
	return session, nil
}

// Revoke deactivates the session behind the token. It returns the affected
// session id, or an empty string when the token is unknown or the session is
// already inactive; neither case is an error.
func (s *SessionService) Revoke(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", nil
	}
	session, err := s.store.Sessions(ctx).FindByToken(ctx, token)
	if errors.Is(err, ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !session.Active {
		return "", nil
	}
	if err := s.store.Sessions(ctx).Deactivate(ctx, session.ID); err != nil {
		return "", err
	}
	obs.SessionsRevoked(1)
	return session.ID, nil
}

// RevokeAll deactivates every active session of the principal and returns
// the number of sessions actually changed.
func (s *SessionService) RevokeAll(ctx context.Context, userID string) (int, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return 0, fmt.Errorf("%w: user_id is required", ErrInvalidInput)
	}
	sessions, err := s.store.Sessions(ctx).ListByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	revoked := 0
	for _, session := range sessions {
		if !session.Active {
			continue
		}
		if err := s.store.Sessions(ctx).Deactivate(ctx, session.ID); err != nil {
			return revoked, err
		}
		revoked++
	}
	obs.SessionsRevoked(revoked)
	return revoked, nil
}

// PruneExpired deactivates sessions whose expiry has passed and returns the
// number changed. It never deletes records and skips already-inactive
// sessions, so it is safe to run repeatedly and concurrently with reads.
func (s *SessionService) PruneExpired(ctx context.Context) (int, error) {
	now := s.now().UTC()
	expired, err := s.store.Sessions(ctx).ListExpired(ctx, now)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, session := range expired {
		if !session.Active {
			continue
		}
		if err := s.store.Sessions(ctx).Deactivate(ctx, session.ID); err != nil {
			return pruned, err
		}
		pruned++
	}
	obs.SessionsPruned(pruned)
	return pruned, nil
}
