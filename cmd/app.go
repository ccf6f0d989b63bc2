package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"saas-auth-server/config"
	"saas-auth-server/internal/handler"
	"saas-auth-server/internal/metrics"
	"saas-auth-server/internal/migrations"
	"saas-auth-server/internal/notifier"
	"saas-auth-server/internal/ports"
	"saas-auth-server/internal/repository"
	"saas-auth-server/internal/security"
	"saas-auth-server/internal/service"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/spf13/cobra"
	httpSwagger "github.com/swaggo/http-swagger"
)

// application : everything serve, migrate and purge share
type application struct {
	cfg         *config.AppConfig
	db          *config.Database
	redis       *config.RedisClient
	sessions    *repository.SessionRepository
	permissions *repository.PermissionRepository
	auth        *service.AuthenticationService
	metrics     *metrics.AuthMetrics
}

func newApplication(ctx context.Context, configPath string) (*application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}

	db, err := config.SetupDatabase(&cfg.DatabaseConfig)
	if err != nil {
		return nil, err
	}
	app := &application{cfg: cfg, db: db}

	if cfg.DatabaseConfig.RunMigrations {
		if err := migrations.Up(ctx, db.DB.DB); err != nil {
			app.Close()
			return nil, err
		}
	}

	var cache ports.BlacklistCache
	if cfg.RedisConfig.Enabled {
		app.redis, err = config.SetupRedis(&cfg.RedisConfig)
		if err != nil {
			app.Close()
			return nil, err
		}
		cache = repository.NewBlacklistCacheRepository(app.redis)
	}

	users := repository.NewUserRepository(db)
	app.permissions = repository.NewPermissionRepository(db)
	app.sessions = repository.NewSessionRepository(db, cache)
	app.metrics = metrics.NewAuthMetrics()

	app.auth = service.NewAuthenticationService(service.AuthDependencies{
		Users:          users,
		Sessions:       app.sessions,
		Devices:        repository.NewDeviceRepository(db),
		Permissions:    app.permissions,
		Codec:          security.NewTokenCodec(&cfg.JWT),
		Hasher:         security.NewBcryptHasher(cfg.Security.BcryptCost),
		Notifier:       notifier.NewWebhookNotifier(&cfg.Webhook),
		Metrics:        app.metrics,
		AllowedVendors: cfg.Vendor.Allowed,
	})
	return app, nil
}

func (a *application) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("redis close: %v", err)
		}
	}
	if err := a.db.Close(); err != nil {
		log.Printf("database close: %v", err)
	}
}

func serve(ctx context.Context, configPath string) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	app, err := newApplication(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	limiter := security.NewIPRateLimiter(app.cfg.RateLimit.PerSecond, app.cfg.RateLimit.Burst)
	guard := security.NewAuthGuard(app.auth, app.permissions)

	srv, router := config.SetupServer(app.cfg.ServerAddr)
	router.Use(middleware.RealIP)
	router.Use(middleware.Recoverer)
	router.Use(app.metrics.Instrument)
	router.Get("/swagger/*", httpSwagger.WrapHandler)
	router.Method(http.MethodGet, "/metrics", app.metrics.Handler())

	handler.MountRoutes(router,
		handler.NewAuthenticationHandler(app.auth, &app.cfg.Vendor),
		handler.NewUserHandler(app.auth),
		handler.NewAdminHandler(app.auth, app.auth),
		guard,
		limiter,
	)

	go runMaintenance(ctx, app.sessions, limiter, app.cfg.PurgeInterval())

	return runServer(ctx, srv)
}

func migrate(ctx context.Context, configPath string) error {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("config load failed: %w", err)
	}
	db, err := config.SetupDatabase(&cfg.DatabaseConfig)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Printf("database close: %v", err)
		}
	}()

	if err := migrations.Up(ctx, db.DB.DB); err != nil {
		return err
	}
	log.Println("migrations applied")
	return nil
}

func purge(ctx context.Context, cmd *cobra.Command, configPath string) error {
	app, err := newApplication(ctx, configPath)
	if err != nil {
		return err
	}
	defer app.Close()

	purged, err := app.sessions.PurgeExpired(ctx, time.Now())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "purged %d expired rows\n", purged)
	return nil
}

// runMaintenance : periodic purge of expired rows and idle rate-limiter entries
func runMaintenance(ctx context.Context, sessions ports.SessionStore, limiter *security.IPRateLimiter, interval time.Duration) {
	if interval <= 0 {
		log.Printf("[Maintenance] non-positive interval %s, purge loop disabled", interval)
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			purged, err := sessions.PurgeExpired(ctx, time.Now())
			if err != nil {
				log.Printf("[Maintenance] purge failed: %v", err)
			} else if purged > 0 {
				log.Printf("[Maintenance] purged %d expired rows", purged)
			}
			limiter.Cleanup()
		}
	}
}

func runServer(ctx context.Context, server *http.Server) error {
	serverErrors := make(chan error, 1)
	go func() {
		log.Println("server listening on " + server.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	signalChannel := make(chan os.Signal, 1)
	signal.Notify(signalChannel, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalChannel)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case sig := <-signalChannel:
		log.Printf("received %v, shutting down", sig)
	}

	shutDownCtx, shutDownCancel := context.WithTimeout(ctx, 5*time.Second)
	defer shutDownCancel()

	if err := server.Shutdown(shutDownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	log.Println("server stopped")
	return nil
}
