package authz

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/dropDatabas3/authgate/internal/audit"
	"github.com/dropDatabas3/authgate/internal/cache/memory"
	"github.com/dropDatabas3/authgate/internal/domain/repository"
	"github.com/dropDatabas3/authgate/internal/store"
	_ "github.com/dropDatabas3/authgate/internal/store/adapters/fs"
)

// fakeClock permite avanzar el tiempo en tests de expiración.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type testEnv struct {
	m     *Manager
	audit *audit.FileLog
	pol   repository.PolicyRepository
	clock *fakeClock
}

// newTestEnv levanta el motor completo sobre el adapter fs en un
// directorio temporal, con el catálogo predefinido sembrado.
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	dir := t.TempDir()
	clock := newFakeClock()

	conn, err := store.Open(context.Background(), "fs", store.AdapterConfig{DataDir: filepath.Join(dir, "data")})
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	pol := conn.Policies()
	if err := SeedDefaultRoles(context.Background(), pol, clock.Now); err != nil {
		t.Fatalf("SeedDefaultRoles failed: %v", err)
	}

	log := audit.NewFileLog(filepath.Join(dir, "audit.log"))
	pc := NewPermissionCache(memory.New(time.Minute), time.Minute)
	m := NewManager(pol, log, pc, WithClock(clock.Now))
	t.Cleanup(func() { m.Close() })

	return &testEnv{m: m, audit: log, pol: pol, clock: clock}
}

func TestAssignCheckRevokeRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.m.AssignRole(ctx, "alice", "premium_user", "admin-1", "upgrade"); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	// premium_user hereda premium, que otorga tool:execute:premium
	ok, err := env.m.CheckPermission(ctx, "alice", "tool", "execute", "premium")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if !ok {
		t.Fatal("expected (tool, execute, premium) allowed for premium_user")
	}

	// y tool:execute:ai vía la misma herencia
	ok, err = env.m.CheckPermission(ctx, "alice", "tool", "execute", "ai")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if !ok {
		t.Fatal("expected (tool, execute, ai) allowed for premium_user")
	}

	// pero nada de admin
	ok, err = env.m.CheckPermission(ctx, "alice", "system", "admin", "*")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if ok {
		t.Fatal("expected (system, admin, *) denied for premium_user")
	}

	if err := env.m.RevokeRole(ctx, "alice", "premium_user", "admin-1", "downgrade"); err != nil {
		t.Fatalf("RevokeRole failed: %v", err)
	}

	// read-your-writes: el check inmediato ya no ve el rol
	ok, err = env.m.CheckPermission(ctx, "alice", "tool", "execute", "premium")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if ok {
		t.Fatal("expected denial immediately after revoke")
	}

	roles, err := env.m.GetUserRoles(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserRoles failed: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("expected no roles after revoke, got %v", roles)
	}
}

func TestAssignUnknownRoleRejected(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	err := env.m.AssignRole(ctx, "bob", "no-such-role", "admin-1", "")
	if !errors.Is(err, repository.ErrUnknownRole) {
		t.Fatalf("expected ErrUnknownRole, got %v", err)
	}

	roles, err := env.m.GetUserRoles(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUserRoles failed: %v", err)
	}
	if len(roles) != 0 {
		t.Fatalf("expected no roles, got %v", roles)
	}

	// el rechazo queda auditado
	entries, err := env.audit.Query(ctx, repository.AuditFilter{UserID: "bob"})
	if err != nil {
		t.Fatalf("audit Query failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Result != repository.AuditResultRejected {
		t.Fatalf("expected one rejected entry, got %+v", entries)
	}
}

func TestAssignIdempotent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := env.m.AssignRole(ctx, "alice", "free_user", "admin-1", ""); err != nil {
			t.Fatalf("AssignRole #%d failed: %v", i+1, err)
		}
	}

	roles, err := env.m.GetUserRoles(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserRoles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "free_user" {
		t.Fatalf("expected single membership [free_user], got %v", roles)
	}

	// dos intentos, dos entradas de auditoría: success y repeat
	entries, err := env.audit.Query(ctx, repository.AuditFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("audit Query failed: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 audit entries, got %d", len(entries))
	}
	// Query devuelve más recientes primero
	if entries[0].Result != repository.AuditResultRepeat || entries[1].Result != repository.AuditResultSuccess {
		t.Fatalf("expected [repeat, success], got [%s, %s]", entries[0].Result, entries[1].Result)
	}
}

func TestRevokeNotHeldIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.m.RevokeRole(ctx, "carol", "premium_user", "admin-1", ""); err != nil {
		t.Fatalf("expected revoke of non-held role to succeed, got %v", err)
	}

	entries, err := env.audit.Query(ctx, repository.AuditFilter{UserID: "carol"})
	if err != nil {
		t.Fatalf("audit Query failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Result != repository.AuditResultRepeat {
		t.Fatalf("expected one repeat entry, got %+v", entries)
	}
}

func TestTemporaryGrantLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	expires := env.clock.Now().Add(time.Hour)
	g, err := env.m.GrantTemporaryPermission(ctx, "dave", "tool", "execute", "external", expires, "admin-1")
	if err != nil {
		t.Fatalf("GrantTemporaryPermission failed: %v", err)
	}
	if g.ID == "" {
		t.Fatal("expected grant to receive an ID")
	}

	ok, err := env.m.CheckPermission(ctx, "dave", "tool", "execute", "external")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if !ok {
		t.Fatal("expected live grant to allow")
	}

	// vencido: denegado aunque el sweep nunca corrió
	env.clock.Advance(2 * time.Hour)
	ok, err = env.m.CheckPermission(ctx, "dave", "tool", "execute", "external")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if ok {
		t.Fatal("expected expired grant to deny without sweep")
	}

	live, err := env.m.GetTemporaryPermissions(ctx, "dave")
	if err != nil {
		t.Fatalf("GetTemporaryPermissions failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatalf("expected no live grants, got %d", len(live))
	}

	// el sweep remueve exactamente el grant vencido y luego es no-op
	removed, err := env.m.CleanupExpiredPermissions(ctx)
	if err != nil {
		t.Fatalf("CleanupExpiredPermissions failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	removed, err = env.m.CleanupExpiredPermissions(ctx)
	if err != nil {
		t.Fatalf("second cleanup failed: %v", err)
	}
	if removed != 0 {
		t.Fatalf("expected idempotent sweep, got %d removed", removed)
	}
}

func TestGrantInvalidExpiry(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, expires := range []time.Time{
		env.clock.Now(),                   // exactamente ahora
		env.clock.Now().Add(-time.Minute), // pasado
	} {
		_, err := env.m.GrantTemporaryPermission(ctx, "eve", "tool", "execute", "basic", expires, "admin-1")
		if !errors.Is(err, repository.ErrInvalidExpiry) {
			t.Fatalf("expires=%s: expected ErrInvalidExpiry, got %v", expires, err)
		}
	}

	live, err := env.m.GetTemporaryPermissions(ctx, "eve")
	if err != nil {
		t.Fatalf("GetTemporaryPermissions failed: %v", err)
	}
	if len(live) != 0 {
		t.Fatal("rejected grant must not be stored")
	}
}

func TestOverlappingGrantsAllowed(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	short := env.clock.Now().Add(30 * time.Minute)
	long := env.clock.Now().Add(3 * time.Hour)
	for _, exp := range []time.Time{short, long} {
		if _, err := env.m.GrantTemporaryPermission(ctx, "frank", "resource", "write", "shared", exp, "admin-1"); err != nil {
			t.Fatalf("GrantTemporaryPermission failed: %v", err)
		}
	}

	// vencido el corto, el largo sigue permitiendo
	env.clock.Advance(time.Hour)
	ok, err := env.m.CheckPermission(ctx, "frank", "resource", "write", "shared")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if !ok {
		t.Fatal("expected remaining grant to allow")
	}
}

func TestWildcardViaAdminRole(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.m.AssignRole(ctx, "root", "admin", "bootstrap", ""); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	// admin hereda enterprise, que otorga tool:execute:*
	cases := []struct {
		resource, action, scope string
		want                    bool
	}{
		{"tool", "execute", "anything", true},
		{"system", "admin", "cluster", true},
		{"mcp", "admin", "config", true},
		{"billing", "refund", "all", false}, // recurso fuera del catálogo
	}
	for _, c := range cases {
		got, err := env.m.CheckPermission(ctx, "root", c.resource, c.action, c.scope)
		if err != nil {
			t.Fatalf("CheckPermission(%s,%s,%s) failed: %v", c.resource, c.action, c.scope, err)
		}
		if got != c.want {
			t.Fatalf("CheckPermission(%s,%s,%s) = %v, want %v", c.resource, c.action, c.scope, got, c.want)
		}
	}
}

func TestCycleRejectedAndCatalogUntouched(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := repository.Role{Name: "team-a", Description: "equipo A"}
	if err := env.m.UpsertRole(ctx, a, "admin-1"); err != nil {
		t.Fatalf("UpsertRole(team-a) failed: %v", err)
	}
	b := repository.Role{Name: "team-b", Inherits: []string{"team-a"}}
	if err := env.m.UpsertRole(ctx, b, "admin-1"); err != nil {
		t.Fatalf("UpsertRole(team-b) failed: %v", err)
	}

	// cerrar el ciclo a -> b -> a debe rechazarse sin escribir
	cyclic := repository.Role{Name: "team-a", Inherits: []string{"team-b"}}
	err := env.m.UpsertRole(ctx, cyclic, "admin-1")
	if !errors.Is(err, repository.ErrCyclicRole) {
		t.Fatalf("expected ErrCyclicRole, got %v", err)
	}

	got, err := env.m.GetRole(ctx, "team-a")
	if err != nil {
		t.Fatalf("GetRole failed: %v", err)
	}
	if len(got.Inherits) != 0 {
		t.Fatalf("catalog changed despite rejected cycle: %+v", got)
	}
}

func TestDeleteRoleGuards(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// system role: intocable
	err := env.m.DeleteRole(ctx, "admin", "admin-1")
	if !errors.Is(err, repository.ErrSystemRole) {
		t.Fatalf("expected ErrSystemRole, got %v", err)
	}

	// rol heredado por otro: en uso
	parent := repository.Role{Name: "parent"}
	if err := env.m.UpsertRole(ctx, parent, "admin-1"); err != nil {
		t.Fatalf("UpsertRole(parent) failed: %v", err)
	}
	child := repository.Role{Name: "child", Inherits: []string{"parent"}}
	if err := env.m.UpsertRole(ctx, child, "admin-1"); err != nil {
		t.Fatalf("UpsertRole(child) failed: %v", err)
	}
	err = env.m.DeleteRole(ctx, "parent", "admin-1")
	if !errors.Is(err, repository.ErrRoleInUse) {
		t.Fatalf("expected ErrRoleInUse, got %v", err)
	}

	// sin dependientes sí se puede
	if err := env.m.DeleteRole(ctx, "child", "admin-1"); err != nil {
		t.Fatalf("DeleteRole(child) failed: %v", err)
	}
	if err := env.m.DeleteRole(ctx, "parent", "admin-1"); err != nil {
		t.Fatalf("DeleteRole(parent) failed: %v", err)
	}
}

func TestRoleEditInvalidatesCache(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	custom := repository.Role{Name: "analyst"}
	if err := env.m.UpsertRole(ctx, custom, "admin-1"); err != nil {
		t.Fatalf("UpsertRole failed: %v", err)
	}
	if err := env.m.AssignRole(ctx, "grace", "analyst", "admin-1", ""); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	ok, err := env.m.CheckPermission(ctx, "grace", "report", "read", "all")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if ok {
		t.Fatal("role without permissions must deny")
	}

	// agregar el permiso al rol debe verse en el siguiente check
	custom.Permissions = []repository.Permission{{Resource: "report", Action: "read", Scope: "*"}}
	if err := env.m.UpsertRole(ctx, custom, "admin-1"); err != nil {
		t.Fatalf("UpsertRole failed: %v", err)
	}
	ok, err = env.m.CheckPermission(ctx, "grace", "report", "read", "all")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if !ok {
		t.Fatal("expected role edit to take effect immediately")
	}
}

func TestDeniedChecksAudited(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	ok, err := env.m.CheckPermission(ctx, "mallory", "system", "admin", "*")
	if err != nil {
		t.Fatalf("CheckPermission failed: %v", err)
	}
	if ok {
		t.Fatal("expected denial for user without roles")
	}

	// Close drena la cola asíncrona de denials antes de consultar.
	if err := env.m.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	entries, err := env.audit.Query(ctx, repository.AuditFilter{UserID: "mallory"})
	if err != nil {
		t.Fatalf("audit Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 denial entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Kind != repository.AuditKindCheck || e.Result != repository.AuditResultDenied {
		t.Fatalf("unexpected entry: %+v", e)
	}
	if e.Resource != "system" || e.Action != "admin" || e.Scope != "*" {
		t.Fatalf("denial entry missing tuple: %+v", e)
	}
}

func TestPermissionHistoryOrderAndLimit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	steps := []struct {
		role string
		fn   func() error
	}{
		{"free_user", func() error { return env.m.AssignRole(ctx, "heidi", "free_user", "a", "") }},
		{"premium_user", func() error { return env.m.AssignRole(ctx, "heidi", "premium_user", "a", "") }},
		{"free_user", func() error { return env.m.RevokeRole(ctx, "heidi", "free_user", "a", "") }},
	}
	for _, s := range steps {
		env.clock.Advance(time.Second)
		if err := s.fn(); err != nil {
			t.Fatalf("step %s failed: %v", s.role, err)
		}
	}

	history, err := env.m.GetPermissionHistory(ctx, "heidi", 2)
	if err != nil {
		t.Fatalf("GetPermissionHistory failed: %v", err)
	}
	if len(history) != 2 {
		t.Fatalf("expected limit of 2, got %d", len(history))
	}
	// más recientes primero: el revoke encabeza
	if history[0].Kind != repository.AuditKindRevokeRole {
		t.Fatalf("expected revoke first, got %+v", history[0])
	}
}

func TestDebugPermissionTrace(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.m.AssignRole(ctx, "ivan", "premium_user", "admin-1", ""); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	trace, err := env.m.DebugPermission(ctx, "ivan", "tool", "execute", "ai")
	if err != nil {
		t.Fatalf("DebugPermission failed: %v", err)
	}
	if !trace.Allowed {
		t.Fatal("expected allowed trace")
	}
	if trace.MatchedRole != "premium" {
		t.Fatalf("expected match in premium, got %q", trace.MatchedRole)
	}
	if trace.MatchedPermission == nil || trace.MatchedPermission.Scope != "ai" {
		t.Fatalf("unexpected matched permission: %+v", trace.MatchedPermission)
	}
	// el cierre arranca en el rol directo y baja por herencia
	if len(trace.Closure) != 3 || trace.Closure[0] != "premium_user" {
		t.Fatalf("unexpected closure: %v", trace.Closure)
	}

	trace, err = env.m.DebugPermission(ctx, "ivan", "system", "admin", "*")
	if err != nil {
		t.Fatalf("DebugPermission failed: %v", err)
	}
	if trace.Allowed || trace.MatchedPermission != nil || trace.MatchedGrant != nil {
		t.Fatalf("expected clean denial trace, got %+v", trace)
	}
}

func TestRoleMutationAuditCarriesRoleField(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.m.AssignRole(ctx, "alice", "premium_user", "admin-1", ""); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}

	entries, err := env.audit.Query(ctx, repository.AuditFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	e := entries[0]
	if e.Role != "premium_user" {
		t.Fatalf("expected role field premium_user, got %q", e.Role)
	}
	// scope queda reservado para tuplas de permiso, nunca nombres de rol
	if e.Scope != "" {
		t.Fatalf("role name leaked into scope: %q", e.Scope)
	}
}

// Cerrar el Manager mientras hay checks denegados en vuelo no debe
// panicar por un send sobre el canal de denials ya cerrado.
func TestCloseConcurrentWithDeniedChecks(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				if _, err := env.m.CheckPermission(ctx, "nobody", "tool", "execute", "x"); err != nil {
					t.Errorf("CheckPermission failed: %v", err)
					return
				}
			}
		}()
	}
	env.m.Close()
	wg.Wait()
}

// flakyAudit falla los primeros n appends y después delega.
type flakyAudit struct {
	repository.AuditRepository
	mu    sync.Mutex
	fails int
}

func (f *flakyAudit) Append(ctx context.Context, e repository.AuditEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("sink unavailable")
	}
	return f.AuditRepository.Append(ctx, e)
}

func TestAuditFailureRollsBackAssignment(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	clock := newFakeClock()

	conn, err := store.Open(ctx, "fs", store.AdapterConfig{DataDir: filepath.Join(dir, "data")})
	if err != nil {
		t.Fatalf("store.Open failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	pol := conn.Policies()
	if err := SeedDefaultRoles(ctx, pol, clock.Now); err != nil {
		t.Fatalf("SeedDefaultRoles failed: %v", err)
	}

	log := audit.NewFileLog(filepath.Join(dir, "audit.log"))
	flaky := &flakyAudit{AuditRepository: log, fails: 1}
	pc := NewPermissionCache(memory.New(time.Minute), time.Minute)
	m := NewManager(pol, flaky, pc, WithClock(clock.Now))
	t.Cleanup(func() { m.Close() })

	err = m.AssignRole(ctx, "alice", "premium_user", "admin-1", "")
	if !repository.IsAuditWrite(err) {
		t.Fatalf("expected ErrAuditWrite, got %v", err)
	}

	// fail-closed: la asignación fue compensada
	list, err := pol.ListRoleAssignments(ctx, "alice")
	if err != nil {
		t.Fatalf("ListRoleAssignments failed: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("assignment survived a failed audit write: %+v", list)
	}

	// y el historial registra el rollback, no un success huérfano
	entries, err := log.Query(ctx, repository.AuditFilter{UserID: "alice"})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(entries) != 1 || entries[0].Result != repository.AuditResultRolledBack {
		t.Fatalf("expected a single rolled_back entry, got %+v", entries)
	}
	if entries[0].Role != "premium_user" {
		t.Fatalf("rollback entry without role: %+v", entries[0])
	}
}

func TestAuthorizationStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if err := env.m.AssignRole(ctx, "alice", "free_user", "admin-1", ""); err != nil {
		t.Fatalf("AssignRole failed: %v", err)
	}
	if _, err := env.m.GrantTemporaryPermission(ctx, "bob", "tool", "execute", "basic", env.clock.Now().Add(time.Hour), "admin-1"); err != nil {
		t.Fatalf("GrantTemporaryPermission failed: %v", err)
	}

	// dos checks del mismo usuario: un miss y un hit
	for i := 0; i < 2; i++ {
		if _, err := env.m.CheckPermission(ctx, "alice", "tool", "read", "all"); err != nil {
			t.Fatalf("CheckPermission failed: %v", err)
		}
	}

	stats, err := env.m.GetAuthorizationStats(ctx)
	if err != nil {
		t.Fatalf("GetAuthorizationStats failed: %v", err)
	}
	if stats.Users != 2 {
		t.Fatalf("expected 2 users, got %d", stats.Users)
	}
	if stats.Roles != 7 { // catálogo predefinido
		t.Fatalf("expected 7 roles, got %d", stats.Roles)
	}
	if stats.Assignments != 1 || stats.ActiveGrants != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.AuditEntries < 2 {
		t.Fatalf("expected at least 2 audit entries, got %d", stats.AuditEntries)
	}
	if stats.CacheHits != 1 || stats.CacheMisses != 1 {
		t.Fatalf("expected 1 hit / 1 miss, got %d/%d", stats.CacheHits, stats.CacheMisses)
	}
	if stats.CacheHitRatio != 0.5 {
		t.Fatalf("expected hit ratio 0.5, got %f", stats.CacheHitRatio)
	}
}
