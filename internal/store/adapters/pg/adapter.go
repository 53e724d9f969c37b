// Package pg implementa el adapter PostgreSQL del Policy Store y del
// sink de auditoría. Esquema en migrations/postgres.
package pg

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/store"
	migrations "github.com/dropDatabas3/authgate/migrations/postgres"
)

func init() {
	store.RegisterAdapter(&pgAdapter{})
}

type pgAdapter struct{}

func (a *pgAdapter) Name() string { return "postgres" }

func (a *pgAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("pg: DSN required")
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	if err := applyMigrations(ctx, pool); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: migrate: %w", err)
	}
	return &pgConnection{pool: pool}, nil
}

// applyMigrations ejecuta el esquema embebido en orden ascendente.
// Los archivos son idempotentes (IF NOT EXISTS), así que re-aplicar
// en cada arranque es seguro.
func applyMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	entries, err := migrations.AuthzFS.ReadDir(migrations.AuthzDir)
	if err != nil {
		return err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		sql, err := migrations.AuthzFS.ReadFile(path.Join(migrations.AuthzDir, name))
		if err != nil {
			return err
		}
		if _, err := pool.Exec(ctx, string(sql)); err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
	}
	return nil
}

type pgConnection struct{ pool *pgxpool.Pool }

func (c *pgConnection) Name() string                  { return "postgres" }
func (c *pgConnection) Ping(ctx context.Context) error { return c.pool.Ping(ctx) }
func (c *pgConnection) Close() error                  { c.pool.Close(); return nil }

func (c *pgConnection) Policies() repository.PolicyRepository { return &policyRepo{pool: c.pool} }
func (c *pgConnection) Audit() repository.AuditRepository     { return &auditRepo{pool: c.pool} }

func storageErr(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", repository.ErrStorage, op, err)
}

// ─── PolicyRepository ───

type policyRepo struct{ pool *pgxpool.Pool }

func scanRole(perms []byte, role *repository.Role) error {
	if len(perms) == 0 {
		return nil
	}
	return json.Unmarshal(perms, &role.Permissions)
}

func (r *policyRepo) LoadRoles(ctx context.Context) (map[string]repository.Role, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT name, description, permissions, inherits, system, created_at, updated_at
		FROM authz_roles`)
	if err != nil {
		return nil, storageErr("load roles", err)
	}
	defer rows.Close()

	roles := map[string]repository.Role{}
	for rows.Next() {
		var role repository.Role
		var perms []byte
		if err := rows.Scan(&role.Name, &role.Description, &perms, &role.Inherits,
			&role.System, &role.CreatedAt, &role.UpdatedAt); err != nil {
			return nil, storageErr("scan role", err)
		}
		if err := scanRole(perms, &role); err != nil {
			return nil, storageErr("decode permissions", err)
		}
		roles[role.Name] = role
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("load roles", err)
	}
	return roles, nil
}

func (r *policyRepo) SaveRole(ctx context.Context, role repository.Role) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	// Validate-then-commit: el grafo se valida dentro de la transacción,
	// con las filas bloqueadas, antes de escribir nada.
	rows, err := tx.Query(ctx, `SELECT name, inherits FROM authz_roles FOR UPDATE`)
	if err != nil {
		return storageErr("lock roles", err)
	}
	graph := map[string]repository.Role{}
	for rows.Next() {
		var node repository.Role
		if err := rows.Scan(&node.Name, &node.Inherits); err != nil {
			rows.Close()
			return storageErr("scan role", err)
		}
		graph[node.Name] = node
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return storageErr("lock roles", err)
	}
	graph[role.Name] = role
	if err := repository.ValidateRoleGraph(graph); err != nil {
		return err
	}

	perms, err := json.Marshal(role.Permissions)
	if err != nil {
		return storageErr("encode permissions", err)
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO authz_roles (name, description, permissions, inherits, system, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (name) DO UPDATE SET
			description = EXCLUDED.description,
			permissions = EXCLUDED.permissions,
			inherits    = EXCLUDED.inherits,
			updated_at  = EXCLUDED.updated_at`,
		role.Name, role.Description, perms, role.Inherits, role.System,
		role.CreatedAt, role.UpdatedAt)
	if err != nil {
		return storageErr("upsert role", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func (r *policyRepo) DeleteRole(ctx context.Context, name string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return storageErr("begin", err)
	}
	defer tx.Rollback(ctx)

	var system bool
	err = tx.QueryRow(ctx, `SELECT system FROM authz_roles WHERE name = $1 FOR UPDATE`, name).Scan(&system)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ErrNotFound
	}
	if err != nil {
		return storageErr("get role", err)
	}
	if system {
		return repository.ErrSystemRole
	}

	var dependent string
	err = tx.QueryRow(ctx, `SELECT name FROM authz_roles WHERE $1 = ANY(inherits) LIMIT 1`, name).Scan(&dependent)
	if err == nil {
		return fmt.Errorf("%w: %s inherits %s", repository.ErrRoleInUse, dependent, name)
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return storageErr("check dependents", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM authz_roles WHERE name = $1`, name); err != nil {
		return storageErr("delete role", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func (r *policyRepo) SaveRoleAssignment(ctx context.Context, a repository.RoleAssignment) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO authz_role_assignments (user_id, role, assigned_by, reason, assigned_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id, role) DO UPDATE SET
			assigned_by = EXCLUDED.assigned_by,
			reason      = EXCLUDED.reason,
			assigned_at = EXCLUDED.assigned_at`,
		a.UserID, a.Role, a.AssignedBy, a.Reason, a.AssignedAt)
	if err != nil {
		return storageErr("save assignment", err)
	}
	return nil
}

func (r *policyRepo) DeleteRoleAssignment(ctx context.Context, userID, role string) error {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM authz_role_assignments WHERE user_id = $1 AND role = $2`, userID, role)
	if err != nil {
		return storageErr("delete assignment", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *policyRepo) ListRoleAssignments(ctx context.Context, userID string) ([]repository.RoleAssignment, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, role, assigned_by, reason, assigned_at
		FROM authz_role_assignments WHERE user_id = $1 ORDER BY role`, userID)
	if err != nil {
		return nil, storageErr("list assignments", err)
	}
	defer rows.Close()

	var out []repository.RoleAssignment
	for rows.Next() {
		var a repository.RoleAssignment
		if err := rows.Scan(&a.UserID, &a.Role, &a.AssignedBy, &a.Reason, &a.AssignedAt); err != nil {
			return nil, storageErr("scan assignment", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (r *policyRepo) SaveTemporaryGrant(ctx context.Context, g repository.TemporaryGrant) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO authz_temporary_grants (id, user_id, resource, action, scope, granted_by, granted_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		g.ID, g.UserID, g.Resource, g.Action, g.Scope, g.GrantedBy, g.GrantedAt, g.ExpiresAt)
	if err != nil {
		return storageErr("save grant", err)
	}
	return nil
}

func (r *policyRepo) ListTemporaryGrants(ctx context.Context, userID string) ([]repository.TemporaryGrant, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, user_id, resource, action, scope, granted_by, granted_at, expires_at
		FROM authz_temporary_grants WHERE user_id = $1 ORDER BY granted_at`, userID)
	if err != nil {
		return nil, storageErr("list grants", err)
	}
	defer rows.Close()

	var out []repository.TemporaryGrant
	for rows.Next() {
		var g repository.TemporaryGrant
		if err := rows.Scan(&g.ID, &g.UserID, &g.Resource, &g.Action, &g.Scope,
			&g.GrantedBy, &g.GrantedAt, &g.ExpiresAt); err != nil {
			return nil, storageErr("scan grant", err)
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *policyRepo) DeleteTemporaryGrant(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM authz_temporary_grants WHERE id = $1`, id)
	if err != nil {
		return storageErr("delete grant", err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *policyRepo) DeleteExpiredTemporaryGrants(ctx context.Context, asOf time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM authz_temporary_grants WHERE expires_at <= $1`, asOf)
	if err != nil {
		return 0, storageErr("delete expired grants", err)
	}
	return int(tag.RowsAffected()), nil
}

func (r *policyRepo) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id FROM authz_role_assignments
		UNION
		SELECT user_id FROM authz_temporary_grants
		ORDER BY user_id`)
	if err != nil {
		return nil, storageErr("list users", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, storageErr("scan user", err)
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (r *policyRepo) Counts(ctx context.Context, asOf time.Time) (repository.PolicyCounts, error) {
	var out repository.PolicyCounts
	err := r.pool.QueryRow(ctx, `
		SELECT
			(SELECT count(*) FROM authz_roles),
			(SELECT count(*) FROM authz_role_assignments),
			(SELECT count(*) FROM authz_temporary_grants WHERE expires_at > $1),
			(SELECT count(*) FROM (
				SELECT user_id FROM authz_role_assignments
				UNION
				SELECT user_id FROM authz_temporary_grants) u)`,
		asOf).Scan(&out.Roles, &out.Assignments, &out.TemporaryGrants, &out.Users)
	if err != nil {
		return out, storageErr("counts", err)
	}
	return out, nil
}

// ─── AuditRepository ───

type auditRepo struct{ pool *pgxpool.Pool }

func (r *auditRepo) Append(ctx context.Context, e repository.AuditEntry) error {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO authz_audit (id, at, actor, user_id, kind, role, resource, action, scope, result, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		e.ID, e.Timestamp, e.Actor, e.UserID, e.Kind, e.Role, e.Resource, e.Action, e.Scope, e.Result, e.Reason)
	if err != nil {
		return fmt.Errorf("%w: insert: %v", repository.ErrAuditWrite, err)
	}
	return nil
}

func (r *auditRepo) Query(ctx context.Context, f repository.AuditFilter) ([]repository.AuditEntry, error) {
	q := `
		SELECT seq, id, at, actor, user_id, kind, role, resource, action, scope, result, reason
		FROM authz_audit
		WHERE ($1 = '' OR user_id = $1)
		  AND ($2::timestamptz IS NULL OR at >= $2)
		ORDER BY at DESC, seq DESC`
	args := []any{f.UserID, nullableTime(f.Since)}
	if f.Limit > 0 {
		q += ` LIMIT $3`
		args = append(args, f.Limit)
	}
	rows, err := r.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, storageErr("query audit", err)
	}
	defer rows.Close()

	var out []repository.AuditEntry
	for rows.Next() {
		var e repository.AuditEntry
		if err := rows.Scan(&e.Seq, &e.ID, &e.Timestamp, &e.Actor, &e.UserID,
			&e.Kind, &e.Role, &e.Resource, &e.Action, &e.Scope, &e.Result, &e.Reason); err != nil {
			return nil, storageErr("scan audit", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *auditRepo) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.pool.QueryRow(ctx, `SELECT count(*) FROM authz_audit`).Scan(&n); err != nil {
		return 0, storageErr("count audit", err)
	}
	return n, nil
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
