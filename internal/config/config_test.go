package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Addr != ":8080" {
		t.Fatalf("expected default addr :8080, got %s", c.Server.Addr)
	}
	if c.Storage.Driver != "fs" {
		t.Fatalf("expected default driver fs, got %s", c.Storage.Driver)
	}
	if c.Cache.Kind != "memory" {
		t.Fatalf("expected default cache memory, got %s", c.Cache.Kind)
	}
	if c.Storage.DataDir == "" {
		t.Fatal("expected a resolved data dir")
	}
	// el audit log relativo cuelga del data dir
	if !filepath.IsAbs(c.Audit.Path) && c.Audit.Path != filepath.Join(c.Storage.DataDir, "audit.log") {
		t.Fatalf("unexpected audit path: %s", c.Audit.Path)
	}
	if c.CacheTTL() != 5*time.Minute {
		t.Fatalf("expected cache ttl 5m, got %s", c.CacheTTL())
	}
}

func TestLoadYAMLAndEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
server:
  addr: ":9090"
  admin_api_key: "file-key"
storage:
  driver: postgres
  dsn: "postgres://localhost/authz"
authz:
  cache_ttl: "30s"
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	// env pisa YAML
	t.Setenv("ADMIN_API_KEY", "env-key")
	t.Setenv("AUTHGATE_DATA_DIR", filepath.Join(dir, "data"))

	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if c.Server.Addr != ":9090" {
		t.Fatalf("expected addr from YAML, got %s", c.Server.Addr)
	}
	if c.Server.AdminAPIKey != "env-key" {
		t.Fatalf("expected env override for admin key, got %s", c.Server.AdminAPIKey)
	}
	if c.Storage.Driver != "postgres" || c.Storage.DSN == "" {
		t.Fatalf("unexpected storage config: %+v", c.Storage)
	}
	if c.Storage.DataDir != filepath.Join(dir, "data") {
		t.Fatalf("expected data dir from env, got %s", c.Storage.DataDir)
	}
	if c.CacheTTL() != 30*time.Second {
		t.Fatalf("expected cache ttl 30s, got %s", c.CacheTTL())
	}
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("AUTHZ_CACHE_TTL", "not-a-duration")
	if _, err := Load(""); err == nil {
		t.Fatal("expected error for invalid duration")
	}
}
