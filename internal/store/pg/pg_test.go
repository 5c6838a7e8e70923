package pg

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"taskdesk.org/internal/auth"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewStore(db), mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	}
}

func TestOrgCreateMapsUniqueViolation(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("insert into organizations").
		WithArgs(sqlmock.AnyArg(), "Acme", "acme", "", sqlmock.AnyArg(), true).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "organizations_slug_key"})

	err := store.Organizations(context.Background()).Create(context.Background(), &auth.Organization{
		Name:   "Acme",
		Slug:   "acme",
		Active: true,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestOrgCreateAssignsID(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("insert into organizations").
		WithArgs(sqlmock.AnyArg(), "Acme", "acme", "", sqlmock.AnyArg(), true).
		WillReturnRows(sqlmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	org := &auth.Organization{Name: "Acme", Slug: "acme", Active: true}
	if err := store.Organizations(context.Background()).Create(context.Background(), org); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if org.ID == "" {
		t.Fatal("Create should assign an id")
	}
	if !org.CreatedAt.Equal(now) {
		t.Fatalf("created_at = %v, want %v", org.CreatedAt, now)
	}
}

func TestUserCreateMapsForeignKeyViolation(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("insert into users").
		WillReturnError(&pgconn.PgError{Code: "23503", ConstraintName: "users_organization_id_fkey"})

	err := store.Users(context.Background()).Create(context.Background(), &auth.User{
		OrganizationID: "missing",
		Name:           "Alice",
		Email:          "alice@acme.test",
		Role:           auth.RoleUser,
		Active:         true,
	})
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSessionCreateMapsTokenCollision(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("insert into sessions").
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "sessions_token_key"})

	err := store.Sessions(context.Background()).Create(context.Background(), &auth.Session{
		UserID:    "u1",
		Token:     "tok",
		ExpiresAt: time.Now().Add(time.Hour),
		Active:    true,
	})
	if !errors.Is(err, auth.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestSessionFindByToken(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	cols := []string{"id", "user_id", "token", "expires_at", "active", "ip", "user_agent", "created_at"}
	mock.ExpectQuery("select .* from sessions where token = ").
		WithArgs("tok").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("s1", "u1", "tok", now.Add(time.Hour), true, "10.0.0.1", "curl", now))

	session, err := store.Sessions(context.Background()).FindByToken(context.Background(), "tok")
	if err != nil {
		t.Fatalf("FindByToken: %v", err)
	}
	if session.ID != "s1" || session.UserID != "u1" || !session.Active {
		t.Fatalf("unexpected session: %+v", session)
	}
	if session.Client.IP != "10.0.0.1" {
		t.Fatalf("client meta lost: %+v", session.Client)
	}
}

func TestSessionDeactivateMissing(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("update sessions set active = false").
		WithArgs("nope").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.Sessions(context.Background()).Deactivate(context.Background(), "nope")
	if !errors.Is(err, auth.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestAuditAppendAndListByOrganization(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectExec("insert into audit_entries").
		WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &auth.AuditEntry{
		ActorID:        "u1",
		OrganizationID: "org1",
		Action:         "task.create",
		Resource:       "task",
		Metadata:       map[string]string{"key": "value"},
		CreatedAt:      time.Now().UTC(),
	}
	if err := store.Audit(context.Background()).Append(context.Background(), entry); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if entry.ID == "" {
		t.Fatal("Append should assign an id")
	}

	now := time.Now().UTC()
	cols := []string{"id", "actor_id", "organization_id", "action", "resource", "resource_id", "metadata", "ip", "user_agent", "created_at"}
	mock.ExpectQuery("select .* from audit_entries where organization_id = .* order by created_at desc limit").
		WithArgs("org1", 50).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow("a2", "u1", "org1", "task.delete", "task", "t2", []byte(`{}`), "", "", now).
			AddRow("a1", "u1", "org1", "task.create", "task", "t1", []byte(`{"key":"value"}`), "", "", now.Add(-time.Minute)))

	entries, err := store.Audit(context.Background()).ListByOrganization(context.Background(), "org1", 50)
	if err != nil {
		t.Fatalf("ListByOrganization: %v", err)
	}
	if len(entries) != 2 || entries[0].ID != "a2" {
		t.Fatalf("unexpected entries: %+v", entries)
	}
	if entries[1].Metadata["key"] != "value" {
		t.Fatalf("metadata lost: %+v", entries[1].Metadata)
	}
}

func TestUserUpdateBuildsPatch(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	cols := []string{"id", "organization_id", "name", "email", "role", "active", "last_login_at", "created_at", "updated_at"}
	mock.ExpectQuery("update users set updated_at = now\\(\\), role = ").
		WithArgs("u1", "manager").
		WillReturnRows(sqlmock.NewRows(cols).AddRow("u1", "org1", "Alice", "alice@acme.test", "manager", true, nil, now, now))

	role := auth.RoleManager
	user, err := store.Users(context.Background()).Update(context.Background(), "u1", auth.UserUpdate{Role: &role})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if user.Role != auth.RoleManager {
		t.Fatalf("role = %s", user.Role)
	}
	if user.LastLoginAt != nil {
		t.Fatalf("last_login_at should be nil, got %v", user.LastLoginAt)
	}
}
