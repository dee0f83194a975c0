// Package audit persists the data-change trail of tenant requests in
// Postgres.
package audit

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinic/clinic/internal/platform/db"
	"github.com/clinic/clinic/internal/platform/middleware"
)

// Schema is the Postgres schema holding the audit tables.
const Schema = "audit"

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the embedded SQL migrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// NewMigrator returns a migrator for the audit schema.
func NewMigrator(pool *pgxpool.Pool) (*db.Migrator, error) {
	return db.NewMigrator(pool, Migrations(), Schema)
}

// Event is a stored audit row.
type Event struct {
	ID         uuid.UUID `json:"id"`
	Tenant     string    `json:"tenant"`
	UserID     string    `json:"userId"`
	Role       string    `json:"role"`
	Action     string    `json:"action"`
	Resource   string    `json:"resource"`
	ResourceID string    `json:"resourceId"`
	Method     string    `json:"method"`
	Path       string    `json:"path"`
	Status     int       `json:"status"`
	RequestID  string    `json:"requestId"`
	IPAddress  string    `json:"ipAddress"`
	UserAgent  string    `json:"userAgent"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Filter narrows a search. Tenant is mandatory.
type Filter struct {
	Tenant     string
	UserID     string
	Resource   string
	ResourceID string
	Action     string
	From       *time.Time
	To         *time.Time
	Limit      int
	Offset     int
}

// Querier is the subset of pgxpool.Pool the store uses.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store writes and searches audit events.
type Store struct {
	q       Querier
	timeout time.Duration
}

// NewStore creates a store backed by q, usually a *pgxpool.Pool.
func NewStore(q Querier) *Store {
	return &Store{q: q, timeout: 5 * time.Second}
}

const insertEvent = `
	INSERT INTO audit.audit_event (
		id, tenant, user_id, role, action, resource, resource_id,
		method, path, status, request_id, ip_address, user_agent, recorded_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`

// RecordAccess implements middleware.AuditRecorder.
func (s *Store) RecordAccess(ctx context.Context, e middleware.AuditEntry) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	recorded := e.Timestamp
	if recorded.IsZero() {
		recorded = time.Now().UTC()
	}
	_, err := s.q.Exec(ctx, insertEvent,
		uuid.New(), e.Tenant, e.UserID, e.Role, e.Action, e.Resource, e.ResourceID,
		e.Method, e.Path, e.StatusCode, e.RequestID, e.IPAddress, e.UserAgent, recorded,
	)
	if err != nil {
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

const selectColumns = `id, tenant, user_id, role, action, resource, resource_id,
		method, path, status, request_id, ip_address, user_agent, recorded_at`

// Search returns the page of events matching f, newest first, and the total
// number of matches.
func (s *Store) Search(ctx context.Context, f Filter) ([]Event, int64, error) {
	if f.Tenant == "" {
		return nil, 0, db.ErrTenantRequired
	}
	where, args := buildWhere(f)

	var total int64
	if err := s.q.QueryRow(ctx, "SELECT count(*) FROM audit.audit_event WHERE "+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("audit: count events: %w", err)
	}

	limit, offset := f.Limit, f.Offset
	if limit <= 0 {
		limit = 100
	}
	query := fmt.Sprintf("SELECT %s FROM audit.audit_event WHERE %s ORDER BY recorded_at DESC LIMIT %d OFFSET %d",
		selectColumns, where, limit, offset)

	rows, err := s.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("audit: search events: %w", err)
	}
	defer rows.Close()

	events := []Event{}
	for rows.Next() {
		var ev Event
		if err := rows.Scan(&ev.ID, &ev.Tenant, &ev.UserID, &ev.Role, &ev.Action, &ev.Resource, &ev.ResourceID,
			&ev.Method, &ev.Path, &ev.Status, &ev.RequestID, &ev.IPAddress, &ev.UserAgent, &ev.RecordedAt); err != nil {
			return nil, 0, fmt.Errorf("audit: scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("audit: iterate events: %w", err)
	}
	return events, total, nil
}

// buildWhere renders f as a parameterised WHERE clause. The tenant predicate
// always comes first.
func buildWhere(f Filter) (string, []any) {
	clauses := []string{"tenant = $1"}
	args := []any{f.Tenant}

	add := func(column string, value any) {
		args = append(args, value)
		clauses = append(clauses, fmt.Sprintf("%s $%d", column, len(args)))
	}
	if f.UserID != "" {
		add("user_id =", f.UserID)
	}
	if f.Resource != "" {
		add("resource =", f.Resource)
	}
	if f.ResourceID != "" {
		add("resource_id =", f.ResourceID)
	}
	if f.Action != "" {
		add("action =", f.Action)
	}
	if f.From != nil {
		add("recorded_at >=", *f.From)
	}
	if f.To != nil {
		add("recorded_at <=", *f.To)
	}
	return strings.Join(clauses, " AND "), args
}
