package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskdesk.org/internal/obs"
)

// defaultAuditLimit bounds queries when the caller does not supply a limit.
const defaultAuditLimit = 100

// AuditService appends to and queries the append-only audit log.
type AuditService struct {
	store Store
	now   func() time.Time
}

// NewAuditService constructs an AuditService.
func NewAuditService(store Store, opts ...AuditOption) (*AuditService, error) {
	if store == nil {
		return nil, errors.New("auth: store is required")
	}
	svc := &AuditService{store: store, now: time.Now}
	for _, opt := range opts {
		if err := opt(svc); err != nil {
			return nil, err
		}
	}
	return svc, nil
}

// AuditOption configures AuditService behavior.
type AuditOption func(*AuditService) error

// WithAuditClock overrides the time source (useful for tests).
func WithAuditClock(fn func() time.Time) AuditOption {
	return func(s *AuditService) error {
		if fn != nil {
			s.now = fn
		}
		return nil
	}
}

// Record appends an entry and returns its id. Action and resource content
// is free-form; only a non-empty action is required.
func (s *AuditService) Record(ctx context.Context, entry AuditEntry) (string, error) {
	if strings.TrimSpace(entry.Action) == "" {
		return "", fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}
	if err := s.store.Audit(ctx).Append(ctx, &entry); err != nil {
		return "", err
	}
	obs.AuditEntryWritten()
	return entry.ID, nil
}

// Query returns entries newest first, bounded by limit (default 100).
//
// The organization filter always wins the primary index: when both an
// organization and an actor are given, the lookup runs over the organization
// index and the actor is applied in memory afterwards. An actor outside the
// organization therefore yields an empty result rather than an error. The
// limit bounds the primary lookup, before secondary filtering.
func (s *AuditService) Query(ctx context.Context, filter AuditFilter, limit int) ([]*AuditEntry, error) {
	if limit <= 0 {
		limit = defaultAuditLimit
	}

	var (
		entries []*AuditEntry
		err     error
	)
	switch {
	case filter.OrganizationID != "":
		entries, err = s.store.Audit(ctx).ListByOrganization(ctx, filter.OrganizationID, limit)
	case filter.ActorID != "":
		entries, err = s.store.Audit(ctx).ListByActor(ctx, filter.ActorID, limit)
	default:
		entries, err = s.store.Audit(ctx).ListRecent(ctx, limit)
	}
	if err != nil {
		return nil, err
	}

	secondaryActor := filter.OrganizationID != "" && filter.ActorID != ""
	result := make([]*AuditEntry, 0, len(entries))
	for _, entry := range entries {
		if secondaryActor && entry.ActorID != filter.ActorID {
			continue
		}
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		result = append(result, entry)
	}
	return result, nil
}
