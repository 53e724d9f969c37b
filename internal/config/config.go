package config

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	// Bloque app (opcional en YAML). Si no está, queda vacío.
	App struct {
		// dev | staging | prod
		Env string `yaml:"app_env"`
	} `yaml:"app"`

	Server struct {
		Addr string `yaml:"addr"`
		// Clave para los endpoints /v1/admin/*. Vacía ⇒ admin abierto (solo dev).
		AdminAPIKey string `yaml:"admin_api_key"`
	} `yaml:"server"`

	Storage struct {
		Driver string `yaml:"driver"` // fs | postgres
		// DataDir es la raíz del driver fs y del audit log.
		DataDir  string `yaml:"data_dir"`
		DSN      string `yaml:"dsn"`
		Postgres struct {
			MaxConns        int    `yaml:"max_conns"`
			ConnMaxLifetime string `yaml:"conn_max_lifetime"`
		} `yaml:"postgres"`
	} `yaml:"storage"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr string `yaml:"addr"`
			DB   int    `yaml:"db"`
		} `yaml:"redis"`
		Memory struct {
			DefaultTTL string `yaml:"default_ttl"`
		} `yaml:"memory"`
	} `yaml:"cache"`

	Authz struct {
		// TTL de las entradas del permission cache.
		CacheTTL string `yaml:"cache_ttl"`
		// Intervalo del sweep de grants vencidos. 0 ⇒ sin sweep periódico.
		SweepInterval string `yaml:"sweep_interval"`
		// No sembrar el catálogo predefinido aunque el store esté vacío.
		DisableSeed bool `yaml:"disable_seed"`
	} `yaml:"authz"`

	Audit struct {
		// Ruta del audit log del driver fs. Relativa ⇒ bajo data_dir.
		Path string `yaml:"path"`
	} `yaml:"audit"`
}

// Load lee el YAML (si existe), aplica defaults y pisa con variables
// de entorno. Un path vacío o inexistente no es error: el motor
// arranca con defaults y env, sin archivo.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return nil, err
		}
		if err == nil {
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, err
			}
		}
	}

	// sane defaults
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "fs"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Memory.DefaultTTL == "" {
		c.Cache.Memory.DefaultTTL = "5m"
	}
	if c.Authz.CacheTTL == "" {
		c.Authz.CacheTTL = "5m"
	}
	if c.Authz.SweepInterval == "" {
		c.Authz.SweepInterval = "1m"
	}
	if c.Audit.Path == "" {
		c.Audit.Path = "audit.log"
	}

	// Overrides por env
	c.applyEnvOverrides()

	if c.Storage.DataDir == "" {
		c.Storage.DataDir = defaultDataDir()
	}
	if !filepath.IsAbs(c.Audit.Path) {
		c.Audit.Path = filepath.Join(c.Storage.DataDir, c.Audit.Path)
	}

	// validate string durations
	for _, s := range []string{
		c.Cache.Memory.DefaultTTL,
		c.Authz.CacheTTL,
		c.Authz.SweepInterval,
	} {
		if s != "" {
			if _, err := time.ParseDuration(s); err != nil {
				return nil, err
			}
		}
	}
	if c.Storage.Postgres.ConnMaxLifetime != "" {
		if _, err := time.ParseDuration(c.Storage.Postgres.ConnMaxLifetime); err != nil {
			return nil, err
		}
	}

	return &c, nil
}

// CacheTTL retorna el TTL del permission cache ya parseado.
func (c *Config) CacheTTL() time.Duration {
	d, _ := time.ParseDuration(c.Authz.CacheTTL)
	return d
}

// SweepInterval retorna el intervalo del sweep ya parseado.
func (c *Config) SweepInterval() time.Duration {
	d, _ := time.ParseDuration(c.Authz.SweepInterval)
	return d
}

// MemoryTTL retorna el TTL por defecto del cache en memoria.
func (c *Config) MemoryTTL() time.Duration {
	d, _ := time.ParseDuration(c.Cache.Memory.DefaultTTL)
	return d
}

// defaultDataDir resuelve la raíz de datos cuando no hay override:
// el directorio de configuración del usuario, o ./data/authgate si
// el sistema no expone uno.
func defaultDataDir() string {
	if base, err := os.UserConfigDir(); err == nil && base != "" {
		return filepath.Join(base, "authgate")
	}
	return filepath.Join(".", "data", "authgate")
}

// ---- Helpers env ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}
func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}
func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

// applyEnvOverrides: pisa config.yaml con variables de entorno.
func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}

	// SERVER
	if v, ok := getEnvStr("SERVER_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvStr("ADMIN_API_KEY"); ok {
		c.Server.AdminAPIKey = v
	}

	// STORAGE
	if v, ok := getEnvStr("STORAGE_DRIVER"); ok {
		c.Storage.Driver = v
	}
	if v, ok := getEnvStr("STORAGE_DSN"); ok {
		c.Storage.DSN = v
	}
	// AUTHGATE_DATA_DIR es el único knob que la mayoría de los
	// despliegues fs necesita tocar.
	if v, ok := getEnvStr("AUTHGATE_DATA_DIR"); ok {
		c.Storage.DataDir = strings.TrimSpace(v)
	}
	if v, ok := getEnvInt("POSTGRES_MAX_CONNS"); ok {
		c.Storage.Postgres.MaxConns = v
	}
	if v, ok := getEnvStr("POSTGRES_CONN_MAX_LIFETIME"); ok {
		c.Storage.Postgres.ConnMaxLifetime = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = v
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("CACHE_MEMORY_DEFAULT_TTL"); ok {
		c.Cache.Memory.DefaultTTL = v
	}

	// AUTHZ
	if v, ok := getEnvStr("AUTHZ_CACHE_TTL"); ok {
		c.Authz.CacheTTL = v
	}
	if v, ok := getEnvStr("AUTHZ_SWEEP_INTERVAL"); ok {
		c.Authz.SweepInterval = v
	}
	if v, ok := getEnvBool("AUTHZ_DISABLE_SEED"); ok {
		c.Authz.DisableSeed = v
	}

	// AUDIT
	if v, ok := getEnvStr("AUDIT_PATH"); ok {
		c.Audit.Path = v
	}
}
