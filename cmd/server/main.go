/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the FlyTAU operations server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (defaults, optional YAML file, FLYTAU_* env)
  2. Open the store selected by database.driver
  3. Build the engine with the configured timeout and retry policy
  4. Register the seed fleet document, if configured
  5. Configure HTTP router and the maintenance scheduler
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to a YAML config file (optional)

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the maintenance scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close the store

EXAMPLES:
  # File database with defaults
  ./server

  # Throwaway in-memory store
  FLYTAU_DATABASE_DRIVER=memory ./server

  # PostgreSQL
  FLYTAU_DATABASE_DRIVER=postgres FLYTAU_DATABASE_URL=postgres://flytau@localhost/flytau ./server

SEE ALSO:
  - config/config.go: settings and defaults
  - api/server.go: Router configuration
  - api/scheduler.go: Maintenance scheduler
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/flytau/ops-engine/airline"
	"github.com/flytau/ops-engine/airline/store"
	"github.com/flytau/ops-engine/api"
	"github.com/flytau/ops-engine/config"
	"github.com/flytau/ops-engine/factory"
	"github.com/flytau/ops-engine/store/postgres"
	"github.com/flytau/ops-engine/store/sqlite"
)

// backend is what the server needs from a store.
type backend interface {
	airline.TxStore
	api.Resetter
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	st, closeStore, err := openStore(ctx, cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer closeStore()

	engine := airline.NewEngine(st)
	engine.OpTimeout = cfg.Engine.OpTimeout
	engine.MaxAttempts = cfg.Engine.MaxAttempts

	handler := api.NewHandler(engine, st)

	if cfg.Seed.File != "" {
		if err := seed(ctx, handler.Fleet, engine, cfg.Seed.File); err != nil {
			log.Fatalf("Failed to seed fleet: %v", err)
		}
	}

	router := api.NewRouter(handler)

	scheduler := api.NewMaintenanceScheduler(engine)
	scheduler.CheckInterval = cfg.Scheduler.Interval
	scheduler.Enabled = cfg.Scheduler.Enabled
	scheduler.Start()

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("[Server] Listening on http://localhost%s (store: %s)", server.Addr, cfg.Database.Driver)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("[Server] Shutting down...")
	scheduler.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Forced to shut down: %v", err)
	}

	log.Println("[Server] Stopped")
}

func openStore(ctx context.Context, db config.DatabaseConfig) (backend, func(), error) {
	switch db.Driver {
	case config.DriverMemory:
		return store.NewMemory(), func() {}, nil
	case config.DriverSQLite:
		s, err := sqlite.New(db.Path)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case config.DriverPostgres:
		s, err := postgres.Open(ctx, db.URL)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", db.Driver)
	}
}

func seed(ctx context.Context, f *factory.FleetFactory, engine *airline.Engine, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fleet, err := f.ParseFleet(string(data))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	sum, err := f.Apply(ctx, engine, fleet)
	if err != nil {
		return err
	}
	log.Printf("[Server] Seeded %s: %d registered, %d already present", path, sum.Registered, sum.Skipped)
	return nil
}
