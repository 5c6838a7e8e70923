package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"taskdesk.org/internal/auth"
	"taskdesk.org/internal/config"
	"taskdesk.org/internal/httpapi"
	"taskdesk.org/internal/obs"
	"taskdesk.org/internal/store/memory"
	"taskdesk.org/internal/store/pg"
)

var (
	version = "0.3.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	var (
		store auth.Store
		db    *sql.DB
	)
	if cfg.DSN != "" {
		pgStore, err := pg.Open(cfg.DSN)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db = pgStore.DB()
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
		db.SetConnMaxLifetime(cfg.DBConnMaxLifetime)
		store = pgStore
	} else {
		log.Println("no DSN configured, using in-memory store")
		store = memory.New()
	}

	sessions, err := auth.NewSessionService(store, auth.WithSessionTTL(cfg.SessionTTL))
	if err != nil {
		log.Fatalf("sessions: %v", err)
	}
	audit, err := auth.NewAuditService(store)
	if err != nil {
		log.Fatalf("audit: %v", err)
	}
	gateway, err := auth.NewGateway(store, sessions, audit)
	if err != nil {
		log.Fatalf("gateway: %v", err)
	}
	directory, err := auth.NewDirectory(store, sessions)
	if err != nil {
		log.Fatalf("directory: %v", err)
	}

	api := httpapi.New(httpapi.ReadyProbe{DB: db}, version, sessions, gateway, directory, audit)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if cfg.PruneInterval > 0 {
		go pruneLoop(ctx, sessions, cfg.PruneInterval)
	}

	log.Printf("Starting taskdesk-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	_ = srv.Shutdown(shutdownCtx)
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

// pruneLoop deactivates expired sessions on a fixed interval.
func pruneLoop(ctx context.Context, sessions *auth.SessionService, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := sessions.PruneExpired(ctx)
			if err != nil {
				obs.LogEvent("session_prune_failed", map[string]any{"error": err.Error()})
				continue
			}
			if n > 0 {
				obs.LogEvent("sessions_pruned", map[string]any{"count": n})
			}
		}
	}
}
