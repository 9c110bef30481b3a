package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bryanwahyu/paperlens/internal/application"
	appanalysis "github.com/bryanwahyu/paperlens/internal/application/analysis"
	"github.com/bryanwahyu/paperlens/internal/application/authstate"
	"github.com/bryanwahyu/paperlens/internal/config"
	domain "github.com/bryanwahyu/paperlens/internal/domain/analysis"
	"github.com/bryanwahyu/paperlens/internal/infra/ai"
	mysqlp "github.com/bryanwahyu/paperlens/internal/infra/db/mysql"
	pgp "github.com/bryanwahyu/paperlens/internal/infra/db/postgres"
	"github.com/bryanwahyu/paperlens/internal/infra/db/sqlitelocal"
	"github.com/bryanwahyu/paperlens/internal/infra/httpserver"
	minioStore "github.com/bryanwahyu/paperlens/internal/infra/storage"
	"github.com/bryanwahyu/paperlens/internal/middleware"
	"github.com/bryanwahyu/paperlens/internal/settings"
)

func main() {
	// path config.yaml
	path := "config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		path = v
	}

	// load config
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("config load error: %v", err)
	}

	// load persisted preferences (versioned, migrated on read)
	prefs, err := settings.Load(cfg.Startup.SettingsPath)
	if err != nil {
		log.Fatalf("settings load error: %v", err)
	}

	ctx := context.Background()

	// local fallback cache, always present
	local, err := sqlitelocal.Open(ctx, cfg.LocalCache.Path)
	if err != nil {
		log.Fatalf("local cache open error: %v", err)
	}
	defer local.Close()

	checkers := map[string]middleware.HealthChecker{}

	// remote session store is optional; without it the service runs local-only
	var remote domain.SessionRepository
	switch cfg.Database.Driver {
	case "postgres":
		db, err := pgp.Connect(ctx, cfg.PostgresDSN())
		if err != nil {
			log.Fatalf("postgres connect error: %v", err)
		}
		defer db.Close()
		remote = pgp.NewSessionRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "mysql":
		db, err := mysqlp.Connect(ctx, cfg.MySQLDSN())
		if err != nil {
			log.Fatalf("mysql connect error: %v", err)
		}
		defer db.Close()
		remote = mysqlp.NewSessionRepository(db)
		checkers["database"] = &middleware.DatabaseHealthChecker{DB: db}
	case "":
		log.Println("no remote store configured, running in local mode")
	default:
		log.Fatalf("unknown database driver: %s", cfg.Database.Driver)
	}

	// raw text archive, optional
	var artifacts domain.ArtifactStore
	if cfg.Minio.Endpoint != "" {
		store, err := minioStore.New(ctx,
			cfg.Minio.Endpoint,
			cfg.Minio.Region,
			cfg.Minio.BucketName,
			cfg.Minio.AccessKey,
			cfg.Minio.SecretKey,
			cfg.Minio.UseSSL,
		)
		if err != nil {
			log.Fatalf("minio init error: %v", err)
		}
		artifacts = store
	}

	svc := &appanalysis.Service{
		Remote:    remote,
		Local:     local,
		Artifacts: artifacts,
		NewCritic: func(provider, apiKey, endpoint, model string) (domain.Critic, error) {
			critic, err := ai.NewCritic(ai.Spec{
				Provider: provider,
				APIKey:   apiKey,
				Endpoint: endpoint,
				Model:    model,
			}, cfg.RequestTimeout())
			if err != nil {
				return nil, err
			}
			return critic, nil
		},
		Clock:          application.SystemClock{},
		RestoreTimeout: cfg.RestoreTimeout(),
	}

	// auth-state transitions drive history refresh and cached-identity churn
	notifier := authstate.NewNotifier()
	unsubscribe := notifier.Subscribe(func(c authstate.Change) {
		svc.OnAuthChange(ctx, c)
		switch c.Event {
		case authstate.SignedIn, authstate.Recovered:
			prefs.CachedOwnerID = c.OwnerID
		case authstate.SignedOut:
			prefs.ClearIdentity()
		}
		if err := prefs.Save(cfg.Startup.SettingsPath); err != nil {
			log.Printf("settings save error: %v", err)
		}
	})
	defer unsubscribe()

	// startup restore: bounded by the restore timeout, never blocks serving
	svc.Restore(ctx, prefs.CachedOwnerID)
	log.Printf("restore finished, state=%s", svc.State())

	mux := httpserver.NewRouter(svc, cfg, prefs, checkers)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// run server
	go func() {
		log.Printf("server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	log.Println("shutting down server...")

	ctx2, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx2); err != nil {
		log.Printf("shutdown error: %v", err)
	}
}
