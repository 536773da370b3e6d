/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the game room booking server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, config.yaml, environment)
  2. Build the logger
  3. Load booking rules (preset or RULES_FILE)
  4. Initialize SQLite store and the reservation ledger
  5. Configure HTTP router
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database

ENVIRONMENT:
  APP_PORT, DB_PATH, TZ, ENV, LOG_LEVEL, RULES_FILE,
  RATE_LIMIT_PER_MIN, ALLOWED_ORIGINS

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

SEE ALSO:
  - api/server.go: Router configuration
  - config/config.go: Settings
  - gameroom/presets.go: Default rules
*/
package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/warp/gameroom-engine/api"
	"github.com/warp/gameroom-engine/config"
	"github.com/warp/gameroom-engine/gameroom"
	"github.com/warp/gameroom-engine/schedule"
	"github.com/warp/gameroom-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.String("port", "", "HTTP server port")
	dbPath := flag.String("db", "", "SQLite database path")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *port != "" {
		cfg.AppPort = *port
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	logger, err := config.NewLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	// Booking rules. A broken rule set must stop the process.
	rules, err := gameroom.LoadRules(cfg.RulesFile, cfg.Timezone)
	if err != nil {
		logger.Fatal("Invalid booking rules", zap.Error(err))
	}

	// Initialize store
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer store.Close()

	ledger := schedule.NewLedger(store, rules.Buffer)
	clock := schedule.NewSystemClock(rules.Location)
	service := gameroom.NewService(rules, ledger, clock, nil, logger)

	handler := api.NewHandler(service, logger)
	router := api.NewRouter(handler, api.RouterOptions{
		AllowedOrigins:  cfg.Origins(),
		RateLimitPerMin: cfg.RateLimitPerMin,
	})

	server := &http.Server{
		Addr:         ":" + cfg.AppPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("Server starting",
			zap.String("addr", server.Addr),
			zap.String("db", cfg.DBPath),
			zap.String("timezone", rules.Location.String()))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server stopped")
}
