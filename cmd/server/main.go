/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the release date calculation server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags
  2. Initialize SQLite store
  3. Load early-release configuration (built-in or from JSON file)
  4. Build the engine with its collaborators
  5. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (default: 8080)
  -db      SQLite database path (default: release.db)
           Use ":memory:" for in-memory database
  -config  Optional JSON file of early-release configurations.
           When absent, the built-in SDS40 configuration is used.

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (30s timeout)
  3. Close database connection
  4. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/release.db"

  # Run with in-memory database and a staged configuration
  ./server -db=":memory:" -config=./configs/sds40.json

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
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

	"github.com/rs/zerolog"

	"github.com/warp/release-engine/api"
	"github.com/warp/release-engine/calc"
	"github.com/warp/release-engine/calculators"
	"github.com/warp/release-engine/factory"
	"github.com/warp/release-engine/legislation"
	"github.com/warp/release-engine/store/sqlite"
)

func main() {
	// Flags
	port := flag.Int("port", 8080, "HTTP server port")
	dbPath := flag.String("db", "release.db", "SQLite database path")
	configPath := flag.String("config", "", "early-release configuration JSON file (optional)")
	flag.Parse()

	log := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).
		With().Timestamp().Logger()

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer store.Close()

	// Early-release configuration: built-in SDS40 unless a file is given
	configs := legislation.Configurations()
	if *configPath != "" {
		data, err := os.ReadFile(*configPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to read configuration file")
		}
		configs, err = factory.ParseConfigurations(data)
		if err != nil {
			log.Fatal().Err(err).Str("path", *configPath).Msg("failed to parse configuration file")
		}
		log.Info().Int("configurations", len(configs)).Str("path", *configPath).Msg("loaded configuration file")
	}

	// Working day service fed from the stored holiday calendar
	holidays, err := store.LoadBankHolidays(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load bank holidays")
	}
	services := calculators.NewServices(holidays)

	engine := calc.NewEngine(configs, legislation.SDS40Tranches(), services, log)

	// Wire HTTP layer
	handler := api.NewHandler(engine, store, log)
	router := api.NewRouter(handler)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Info().Int("port", *port).Msg("server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
