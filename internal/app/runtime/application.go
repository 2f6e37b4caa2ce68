// Package runtime wires configuration, storage, and the HTTP surface into a
// runnable application.
package runtime

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"

	app "github.com/vitaltrack/healthd/internal/app"
	"github.com/vitaltrack/healthd/internal/app/blob"
	s3blob "github.com/vitaltrack/healthd/internal/app/blob/s3"
	"github.com/vitaltrack/healthd/internal/app/cache"
	"github.com/vitaltrack/healthd/internal/app/httpapi"
	"github.com/vitaltrack/healthd/internal/app/identity"
	"github.com/vitaltrack/healthd/internal/app/storage/postgres"
	"github.com/vitaltrack/healthd/internal/config"
	"github.com/vitaltrack/healthd/internal/platform/migrations"
	"github.com/vitaltrack/healthd/pkg/logger"
)

// Application wires core dependencies and manages the HTTP server lifecycle.
type Application struct {
	cfg        *config.Config
	log        *logger.Logger
	httpServer *http.Server
	db         *sqlx.DB
	redis      *cache.Redis
}

// NewApplication constructs a fully wired application from configuration.
func NewApplication(ctx context.Context, cfg *config.Config) (*Application, error) {
	log := logger.New(logger.LoggingConfig{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	}).Named("healthd")

	a := &Application{cfg: cfg, log: log}

	stores := app.Stores{}
	var initSchema func(ctx context.Context) error
	if cfg.Database.DSN != "" {
		db, err := postgres.Open(ctx, cfg.Database.DSN, postgres.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = db

		store := postgres.New(db)
		stores = app.Stores{Vitals: store, Documents: store, Identities: store}
		initSchema = func(ctx context.Context) error {
			return migrations.Apply(ctx, db.DB)
		}

		if cfg.Database.MigrateOnStart {
			if err := migrations.Apply(ctx, db.DB); err != nil {
				db.Close()
				return nil, fmt.Errorf("apply migrations: %w", err)
			}
		}
	} else {
		log.Warn("no database configured; using in-memory stores")
	}

	var blobs blob.Store
	if cfg.Blob.Driver == "s3" {
		s3Store, err := s3blob.New(ctx, s3blob.Config{
			Bucket:    cfg.Blob.Bucket,
			KeyPrefix: cfg.Blob.KeyPrefix,
			BaseURL:   cfg.Blob.BaseURL,
		})
		if err != nil {
			a.close()
			return nil, fmt.Errorf("configure s3 blob store: %w", err)
		}
		blobs = s3Store
	}

	var summaryCache cache.Cache
	if cfg.Redis.Addr != "" {
		redisCache, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			log.WithError(err).Warn("redis unreachable; summary caching disabled")
		} else {
			a.redis = redisCache
			summaryCache = redisCache
		}
	}

	var resolver identity.Resolver
	if cfg.Auth.JWTSecret != "" {
		resolver = identity.NewJWT(cfg.Auth.JWTSecret)
	} else {
		log.Warn("no JWT secret configured; every request resolves to the demo identity")
		resolver = identity.NewStatic(cfg.Auth.DemoOwner, cfg.Auth.DemoName)
	}

	application := app.New(stores, app.Options{Blobs: blobs, Cache: summaryCache}, log)
	handler := httpapi.NewHandler(application, httpapi.Config{
		Resolver:           resolver,
		InitSchema:         initSchema,
		CORSOrigins:        cfg.Server.CORSOrigins,
		RateLimitPerSecond: cfg.RateLimit.RequestsPerSecond,
		RateLimitBurst:     cfg.RateLimit.Burst,
		AuditLogSize:       cfg.Audit.Size,
		AuditLogPath:       cfg.Audit.Path,
	})

	a.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
	return a, nil
}

// Run starts the HTTP server and blocks until the context is cancelled or the
// server fails.
func (a *Application) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.log.WithField("addr", a.httpServer.Addr).Info("HTTP server listening")
		if err := a.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-errCh:
		return err
	}
}

// Shutdown gracefully stops the HTTP server and closes storage handles.
func (a *Application) Shutdown(ctx context.Context) error {
	timeout := a.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
		return err
	}
	a.close()
	return nil
}

func (a *Application) close() {
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.log.WithError(err).Warn("error closing database connection")
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.WithError(err).Warn("error closing redis connection")
		}
	}
}
