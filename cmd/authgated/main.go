// authgated es el daemon del motor de autorización.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/authgate/internal/authz"
	"github.com/dropDatabas3/authgate/internal/config"
	adminctrl "github.com/dropDatabas3/authgate/internal/http/controllers/admin"
	healthctrl "github.com/dropDatabas3/authgate/internal/http/controllers/health"
	"github.com/dropDatabas3/authgate/internal/http/router"
	"github.com/dropDatabas3/authgate/internal/infra/cachefactory"
	"github.com/dropDatabas3/authgate/internal/observability/logger"
	"github.com/dropDatabas3/authgate/internal/store"
	_ "github.com/dropDatabas3/authgate/internal/store/adapters/fs"
	_ "github.com/dropDatabas3/authgate/internal/store/adapters/pg"
)

func main() {
	flagConfig := flag.String("config", "config.yaml", "ruta del archivo de configuración YAML")
	flagEnvFile := flag.String("env-file", ".env", "archivo .env opcional")
	flag.Parse()

	// .env es best-effort: en producción las vars vienen del entorno.
	_ = godotenv.Load(*flagEnvFile)

	cfg, err := config.Load(*flagConfig)
	if err != nil {
		logger.L().Fatal("config load failed", logger.Err(err))
	}

	logger.Init(logger.Config{Env: cfg.App.Env, Level: os.Getenv("LOG_LEVEL")})
	defer func() { _ = logger.Sync() }()
	log := logger.Named("authgated")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ─── Policy Store ───
	conn, err := store.Open(ctx, cfg.Storage.Driver, store.AdapterConfig{
		DataDir:   cfg.Storage.DataDir,
		AuditPath: cfg.Audit.Path,
		DSN:       cfg.Storage.DSN,
	})
	if err != nil {
		log.Fatal("store open failed", logger.String("driver", cfg.Storage.Driver), logger.Err(err))
	}
	defer conn.Close()

	policies := conn.Policies()
	if !cfg.Authz.DisableSeed {
		if err := authz.SeedDefaultRoles(ctx, policies, time.Now); err != nil {
			log.Fatal("seed default roles failed", logger.Err(err))
		}
	}

	// ─── Audit Log ───
	// El driver fs escribe en cfg.Audit.Path; postgres audita en tabla.
	auditRepo := conn.Audit()

	// ─── Permission Cache ───
	var ccfg cachefactory.Config
	ccfg.Kind = cfg.Cache.Kind
	ccfg.Redis.Addr = cfg.Cache.Redis.Addr
	ccfg.Redis.DB = cfg.Cache.Redis.DB
	ccfg.Memory.DefaultTTL = cfg.Cache.Memory.DefaultTTL
	backend, err := cachefactory.Open(ccfg)
	if err != nil {
		log.Fatal("cache open failed", logger.Err(err))
	}
	permCache := authz.NewPermissionCache(backend, cfg.CacheTTL())

	// ─── Manager ───
	manager := authz.NewManager(policies, auditRepo, permCache)
	defer manager.Close()

	// Sweep periódico de grants vencidos. La corrección no depende de
	// él (el check filtra en vivo); solo contiene el crecimiento del store.
	if interval := cfg.SweepInterval(); interval > 0 {
		go func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					if _, err := manager.CleanupExpiredPermissions(ctx); err != nil {
						log.Warn("periodic cleanup failed", logger.Err(err))
					}
				}
			}
		}()
	}

	// ─── HTTP ───
	handler := router.New(router.Deps{
		Admin:       adminctrl.NewControllers(manager),
		Health:      healthctrl.NewController(conn),
		AdminAPIKey: cfg.Server.AdminAPIKey,
	})

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("driver", conn.Name()),
			logger.String("cache", cfg.Cache.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", logger.Err(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("shutdown incomplete", logger.Err(err))
	}
}
