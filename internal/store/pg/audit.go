package pg

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"taskdesk.org/internal/auth"
	"taskdesk.org/internal/ids"
)

type auditStore struct{ db *sql.DB }

const auditColumns = `id, actor_id, organization_id, action, resource, resource_id, metadata, ip, user_agent, created_at`

func (s *auditStore) Append(ctx context.Context, entry *auth.AuditEntry) error {
	if entry.ID == "" {
		entry.ID = ids.New()
	}
	metadata := []byte("{}")
	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("encode metadata: %w", err)
		}
		metadata = encoded
	}
	_, err := s.db.ExecContext(ctx, `
		insert into audit_entries (id, actor_id, organization_id, action, resource, resource_id, metadata, ip, user_agent, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, entry.ID, entry.ActorID, entry.OrganizationID, entry.Action, entry.Resource,
		entry.ResourceID, metadata, entry.Client.IP, entry.Client.UserAgent, entry.CreatedAt)
	return mapInsertError(err)
}

func (s *auditStore) ListByOrganization(ctx context.Context, orgID string, limit int) ([]*auth.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+auditColumns+` from audit_entries where organization_id = $1 order by created_at desc limit $2`,
		orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAudit(rows)
}

func (s *auditStore) ListByActor(ctx context.Context, actorID string, limit int) ([]*auth.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+auditColumns+` from audit_entries where actor_id = $1 order by created_at desc limit $2`,
		actorID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAudit(rows)
}

func (s *auditStore) ListRecent(ctx context.Context, limit int) ([]*auth.AuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`select `+auditColumns+` from audit_entries order by created_at desc limit $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAudit(rows)
}

func collectAudit(rows *sql.Rows) ([]*auth.AuditEntry, error) {
	var result []*auth.AuditEntry
	for rows.Next() {
		var (
			entry    auth.AuditEntry
			metadata []byte
		)
		if err := rows.Scan(&entry.ID, &entry.ActorID, &entry.OrganizationID, &entry.Action,
			&entry.Resource, &entry.ResourceID, &metadata, &entry.Client.IP,
			&entry.Client.UserAgent, &entry.CreatedAt); err != nil {
			return nil, err
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &entry.Metadata); err != nil {
				return nil, fmt.Errorf("decode metadata: %w", err)
			}
		}
		result = append(result, &entry)
	}
	return result, rows.Err()
}
