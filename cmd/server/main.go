/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the revenue forecast server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env + environment), then command-line flags
  2. Open the store (SQLite or PostgreSQL)
  3. Apply a seed file, if given
  4. Create API handler, optional redis cache, snapshot scheduler
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_PORT)
  -db      SQLite database path (overrides SQLITE_PATH)
           Use ":memory:" for in-memory database
  -seed    JSON or YAML seed file loaded at startup

ENVIRONMENT:
  See config/config.go. Highlights:
  DB_DRIVER=postgres      use PG_* settings instead of SQLite
  REDIS_ADDR=host:6379    enable the forecast result cache
  SNAPSHOT_INTERVAL=60    snapshot the running month every 60 minutes

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the snapshot scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close cache and database connections

EXAMPLES:
  ./server -db=":memory:" -seed=./examples/portfolio.yaml
  DB_DRIVER=postgres PG_HOST=db ./server

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - config/config.go: Settings
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/warp/revenue-engine/api"
	"github.com/warp/revenue-engine/cache"
	"github.com/warp/revenue-engine/config"
	"github.com/warp/revenue-engine/store/postgres"
	"github.com/warp/revenue-engine/store/sqldb"
	"github.com/warp/revenue-engine/store/sqlite"
)

func main() {
	cfg := config.Load()

	// Flags
	port := flag.String("port", cfg.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.SQLitePath, "SQLite database path")
	seedPath := flag.String("seed", "", "JSON or YAML seed file")
	flag.Parse()

	// Initialize store
	store, err := openStore(cfg, *dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer store.Close()

	// Initialize handler
	handler := api.NewHandler(store)
	handler.Engine.Concurrency = cfg.Forecast.Concurrency

	if *seedPath != "" {
		seed, err := handler.Factory.LoadSeedFile(*seedPath)
		if err != nil {
			log.Fatalf("Failed to load seed: %v", err)
		}
		if err := seed.Apply(context.Background(), store); err != nil {
			log.Fatalf("Failed to apply seed: %v", err)
		}
		log.Printf("Seeded %d companies, %d metrics, %d projects from %s",
			len(seed.Companies), len(seed.Metrics), len(seed.Projects), *seedPath)
	}

	if cfg.CacheEnabled() {
		client, err := cache.NewRedisConnection(cache.ConnectionInfo{
			Addr:        cfg.Redis.Addr,
			Password:    cfg.Redis.Password,
			DB:          cfg.Redis.DB,
			MaxRetries:  cfg.Redis.MaxRetries,
			DialTimeout: time.Duration(cfg.Redis.DialTimeout) * time.Second,
			Timeout:     time.Duration(cfg.Redis.Timeout) * time.Second,
		})
		if err != nil {
			log.Fatalf("Failed to connect to redis: %v", err)
		}
		rc := cache.NewRedis(client, cfg.Redis.Prefix, cfg.Forecast.CacheTTL)
		defer rc.Close()
		handler.Cache = rc
		log.Printf("[Cache] Using redis at %s (ttl %v)", cfg.Redis.Addr, cfg.Forecast.CacheTTL)
	}

	if cfg.Forecast.SnapshotInterval > 0 {
		handler.Snapshots.Interval = cfg.Forecast.SnapshotInterval
		handler.Snapshots.Enabled = true
	}
	handler.Snapshots.Start()

	// Create router
	router := api.NewRouter(handler)

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server starting on http://localhost:%s (%s)", *port, cfg.DBDriver)
		log.Printf("API available at http://localhost:%s/api", *port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	handler.Snapshots.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server stopped")
}

func openStore(cfg config.AppConfig, sqlitePath string) (*sqldb.Store, error) {
	switch cfg.DBDriver {
	case "sqlite":
		return sqlite.Open(sqlitePath)
	case "postgres":
		return postgres.Open(postgres.ConnectionInfo{
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Username: cfg.Postgres.User,
			DBName:   cfg.Postgres.DBName,
			SSLMode:  cfg.Postgres.SSLMode,
			Password: cfg.Postgres.Password,
		})
	default:
		return nil, fmt.Errorf("unknown DB_DRIVER %q (use sqlite or postgres)", cfg.DBDriver)
	}
}
