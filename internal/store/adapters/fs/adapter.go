// Package fs implementa el adapter FileSystem del Policy Store.
// Persiste roles, asignaciones y grants como YAML bajo el data dir,
// con escrituras atómicas y un RWMutex para lectores concurrentes.
package fs

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dropDatabas3/authgate/internal/audit"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/store"
	"github.com/dropDatabas3/authgate/internal/util/atomicwrite"
)

func init() {
	store.RegisterAdapter(&fsAdapter{})
}

type fsAdapter struct{}

func (a *fsAdapter) Name() string { return "fs" }

func (a *fsAdapter) Connect(ctx context.Context, cfg store.AdapterConfig) (store.Connection, error) {
	root := cfg.DataDir
	if root == "" {
		root = "data"
	}

	// Verificar que existe, si no existe lo creamos automáticamente
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			if mkErr := os.MkdirAll(root, 0o755); mkErr != nil {
				return nil, fmt.Errorf("fs: failed to create root path %s: %w", root, mkErr)
			}
		} else {
			return nil, fmt.Errorf("fs: root path error: %w", err)
		}
	} else if !info.IsDir() {
		return nil, fmt.Errorf("fs: root path is not a directory: %s", root)
	}

	auditPath := cfg.AuditPath
	if auditPath == "" {
		auditPath = filepath.Join(root, "audit.log")
	} else if mkErr := os.MkdirAll(filepath.Dir(auditPath), 0o755); mkErr != nil {
		return nil, fmt.Errorf("fs: failed to create audit dir: %w", mkErr)
	}

	return &fsConnection{
		root:     root,
		auditLog: audit.NewFileLog(auditPath),
	}, nil
}

// fsConnection representa una conexión activa al FileSystem.
type fsConnection struct {
	root     string
	mu       sync.RWMutex
	auditLog *audit.FileLog
}

func (c *fsConnection) Name() string { return "fs" }

func (c *fsConnection) Ping(ctx context.Context) error {
	_, err := os.Stat(c.root)
	return err
}

func (c *fsConnection) Close() error { return c.auditLog.Close() }

func (c *fsConnection) Policies() repository.PolicyRepository { return &policyRepo{conn: c} }
func (c *fsConnection) Audit() repository.AuditRepository     { return c.auditLog }

// ─── Layout ───

func (c *fsConnection) rolesFile() string       { return filepath.Join(c.root, "roles.yaml") }
func (c *fsConnection) assignmentsFile() string { return filepath.Join(c.root, "assignments.yaml") }
func (c *fsConnection) grantsFile() string      { return filepath.Join(c.root, "grants.yaml") }

// Documentos YAML. Se leen y escriben completos: el volumen de políticas
// es pequeño y el reemplazo atómico del archivo da la atomicidad que
// exige el contrato del Policy Store.

type rolesDoc struct {
	Roles map[string]repository.Role `yaml:"roles"`
}

type assignmentsDoc struct {
	Assignments map[string][]repository.RoleAssignment `yaml:"assignments"`
}

type grantsDoc struct {
	Grants map[string][]repository.TemporaryGrant `yaml:"grants"`
}

func readYAML[T any](path string, out *T) error {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // archivo ausente = documento vacío
		}
		return fmt.Errorf("%w: read %s: %v", repository.ErrStorage, path, err)
	}
	if err := yaml.Unmarshal(b, out); err != nil {
		return fmt.Errorf("%w: parse %s: %v", repository.ErrStorage, path, err)
	}
	return nil
}

func writeYAML(path string, doc any) error {
	b, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", repository.ErrStorage, path, err)
	}
	if err := atomicwrite.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("%w: write %s: %v", repository.ErrStorage, path, err)
	}
	return nil
}

// ─── PolicyRepository ───

type policyRepo struct{ conn *fsConnection }

func (r *policyRepo) LoadRoles(ctx context.Context) (map[string]repository.Role, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()
	return r.loadRolesLocked()
}

func (r *policyRepo) loadRolesLocked() (map[string]repository.Role, error) {
	var doc rolesDoc
	if err := readYAML(r.conn.rolesFile(), &doc); err != nil {
		return nil, err
	}
	if doc.Roles == nil {
		doc.Roles = map[string]repository.Role{}
	}
	return doc.Roles, nil
}

func (r *policyRepo) SaveRole(ctx context.Context, role repository.Role) error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	roles, err := r.loadRolesLocked()
	if err != nil {
		return err
	}
	candidate := make(map[string]repository.Role, len(roles)+1)
	for k, v := range roles {
		candidate[k] = v
	}
	candidate[role.Name] = role

	// Validate-then-commit: un ciclo rechaza la edición sin tocar el archivo.
	if err := repository.ValidateRoleGraph(candidate); err != nil {
		return err
	}
	return writeYAML(r.conn.rolesFile(), rolesDoc{Roles: candidate})
}

func (r *policyRepo) DeleteRole(ctx context.Context, name string) error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	roles, err := r.loadRolesLocked()
	if err != nil {
		return err
	}
	role, ok := roles[name]
	if !ok {
		return repository.ErrNotFound
	}
	if role.System {
		return repository.ErrSystemRole
	}
	for _, other := range roles {
		for _, parent := range other.Inherits {
			if parent == name {
				return fmt.Errorf("%w: %s inherits %s", repository.ErrRoleInUse, other.Name, name)
			}
		}
	}
	delete(roles, name)
	return writeYAML(r.conn.rolesFile(), rolesDoc{Roles: roles})
}

func (r *policyRepo) SaveRoleAssignment(ctx context.Context, a repository.RoleAssignment) error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var doc assignmentsDoc
	if err := readYAML(r.conn.assignmentsFile(), &doc); err != nil {
		return err
	}
	if doc.Assignments == nil {
		doc.Assignments = map[string][]repository.RoleAssignment{}
	}
	list := doc.Assignments[a.UserID]
	for i, existing := range list {
		if existing.Role == a.Role {
			// Una sola membresía por (user, role): la re-asignación reemplaza.
			list[i] = a
			doc.Assignments[a.UserID] = list
			return writeYAML(r.conn.assignmentsFile(), doc)
		}
	}
	doc.Assignments[a.UserID] = append(list, a)
	return writeYAML(r.conn.assignmentsFile(), doc)
}

func (r *policyRepo) DeleteRoleAssignment(ctx context.Context, userID, role string) error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var doc assignmentsDoc
	if err := readYAML(r.conn.assignmentsFile(), &doc); err != nil {
		return err
	}
	list := doc.Assignments[userID]
	for i, existing := range list {
		if existing.Role == role {
			list = append(list[:i], list[i+1:]...)
			if len(list) == 0 {
				delete(doc.Assignments, userID)
			} else {
				doc.Assignments[userID] = list
			}
			return writeYAML(r.conn.assignmentsFile(), doc)
		}
	}
	return repository.ErrNotFound
}

func (r *policyRepo) ListRoleAssignments(ctx context.Context, userID string) ([]repository.RoleAssignment, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var doc assignmentsDoc
	if err := readYAML(r.conn.assignmentsFile(), &doc); err != nil {
		return nil, err
	}
	list := doc.Assignments[userID]
	out := make([]repository.RoleAssignment, len(list))
	copy(out, list)
	return out, nil
}

func (r *policyRepo) SaveTemporaryGrant(ctx context.Context, g repository.TemporaryGrant) error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var doc grantsDoc
	if err := readYAML(r.conn.grantsFile(), &doc); err != nil {
		return err
	}
	if doc.Grants == nil {
		doc.Grants = map[string][]repository.TemporaryGrant{}
	}
	doc.Grants[g.UserID] = append(doc.Grants[g.UserID], g)
	return writeYAML(r.conn.grantsFile(), doc)
}

func (r *policyRepo) ListTemporaryGrants(ctx context.Context, userID string) ([]repository.TemporaryGrant, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var doc grantsDoc
	if err := readYAML(r.conn.grantsFile(), &doc); err != nil {
		return nil, err
	}
	list := doc.Grants[userID]
	out := make([]repository.TemporaryGrant, len(list))
	copy(out, list)
	return out, nil
}

func (r *policyRepo) DeleteTemporaryGrant(ctx context.Context, id string) error {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var doc grantsDoc
	if err := readYAML(r.conn.grantsFile(), &doc); err != nil {
		return err
	}
	for user, list := range doc.Grants {
		for i, g := range list {
			if g.ID == id {
				list = append(list[:i], list[i+1:]...)
				if len(list) == 0 {
					delete(doc.Grants, user)
				} else {
					doc.Grants[user] = list
				}
				return writeYAML(r.conn.grantsFile(), doc)
			}
		}
	}
	return repository.ErrNotFound
}

func (r *policyRepo) DeleteExpiredTemporaryGrants(ctx context.Context, asOf time.Time) (int, error) {
	r.conn.mu.Lock()
	defer r.conn.mu.Unlock()

	var doc grantsDoc
	if err := readYAML(r.conn.grantsFile(), &doc); err != nil {
		return 0, err
	}
	removed := 0
	for user, list := range doc.Grants {
		kept := list[:0]
		for _, g := range list {
			if g.LiveAt(asOf) {
				kept = append(kept, g)
			} else {
				removed++
			}
		}
		if len(kept) == 0 {
			delete(doc.Grants, user)
		} else {
			doc.Grants[user] = kept
		}
	}
	if removed == 0 {
		return 0, nil
	}
	if err := writeYAML(r.conn.grantsFile(), doc); err != nil {
		return 0, err
	}
	return removed, nil
}

func (r *policyRepo) ListUsers(ctx context.Context) ([]string, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var adoc assignmentsDoc
	if err := readYAML(r.conn.assignmentsFile(), &adoc); err != nil {
		return nil, err
	}
	var gdoc grantsDoc
	if err := readYAML(r.conn.grantsFile(), &gdoc); err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(adoc.Assignments)+len(gdoc.Grants))
	for u := range adoc.Assignments {
		set[u] = struct{}{}
	}
	for u := range gdoc.Grants {
		set[u] = struct{}{}
	}
	users := make([]string, 0, len(set))
	for u := range set {
		users = append(users, u)
	}
	sort.Strings(users)
	return users, nil
}

func (r *policyRepo) Counts(ctx context.Context, asOf time.Time) (repository.PolicyCounts, error) {
	r.conn.mu.RLock()
	defer r.conn.mu.RUnlock()

	var out repository.PolicyCounts

	roles, err := r.loadRolesLocked()
	if err != nil {
		return out, err
	}
	out.Roles = len(roles)

	var adoc assignmentsDoc
	if err := readYAML(r.conn.assignmentsFile(), &adoc); err != nil {
		return out, err
	}
	var gdoc grantsDoc
	if err := readYAML(r.conn.grantsFile(), &gdoc); err != nil {
		return out, err
	}

	set := make(map[string]struct{})
	for u, list := range adoc.Assignments {
		set[u] = struct{}{}
		out.Assignments += len(list)
	}
	for u, list := range gdoc.Grants {
		set[u] = struct{}{}
		for _, g := range list {
			if g.LiveAt(asOf) {
				out.TemporaryGrants++
			}
		}
	}
	out.Users = len(set)
	return out, nil
}
