/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the riding school server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Parse command-line flags, load config (file, env, defaults)
  2. Build the logger
  3. Open the SQLite store (migrations run here)
  4. Build the document sink and card generator
  5. Build milestone notifiers (log, optionally AMQP)
  6. Wire schedule, groups and reports services into the API handler
  7. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -config  Path to config.yaml (default: search ./config and .)
  -port    HTTP server port, overrides server.address
  -db      SQLite database path, overrides database.path
           Use ":memory:" for in-memory database

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop accepting new connections
  2. Wait for active requests to complete (server.shutdown_timeout)
  3. Close the AMQP connection and database
  4. Exit

EXAMPLES:
  ./server -db="./data/school.db"
  RIDING_CARDS_STORAGE=minio RIDING_MINIO_ENDPOINT=localhost:9000 ./server

SEE ALSO:
  - config/config.go: Settings and defaults
  - api/server.go: Router configuration
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/garnzell/riding-school/api"
	"github.com/garnzell/riding-school/cards"
	"github.com/garnzell/riding-school/config"
	"github.com/garnzell/riding-school/groups"
	"github.com/garnzell/riding-school/logging"
	"github.com/garnzell/riding-school/notify"
	"github.com/garnzell/riding-school/reports"
	"github.com/garnzell/riding-school/schedule"
	"github.com/garnzell/riding-school/school"
	"github.com/garnzell/riding-school/store/sqlite"
	"github.com/rs/zerolog"
)

func main() {
	// Flags
	configPath := flag.String("config", "", "Path to config file")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	dbPath := flag.String("db", "", "SQLite database path (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Server.Address = fmt.Sprintf(":%d", *port)
	}
	if *dbPath != "" {
		cfg.Database.Path = *dbPath
	}

	log := logging.New(cfg.Logging.Level, cfg.Logging.Pretty, cfg.Logging.NoColor)
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid configuration")
	}

	// Initialize store
	store, err := sqlite.New(cfg.Database.Path, log)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Database.Path).Msg("Failed to initialize database")
	}
	defer store.Close()

	generator, err := newCardGenerator(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize document storage")
	}

	notifier, closeNotifier, err := newNotifier(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize notifications")
	}
	defer closeNotifier()

	policy := school.CountPolicy{ExcludeSingleLessons: cfg.Reports.ExcludeSingleLessons}
	handler := api.NewHandler(api.Deps{
		Store:          store,
		Schedule:       schedule.NewMutator(store, policy, notifier, log),
		Groups:         groups.NewResolver(store, log),
		Reports:        reports.NewService(store, generator, policy, log),
		Printer:        generator,
		DropEmptySlots: cfg.Schedule.DropEmptySlots,
	}, log)

	router := api.NewRouter(handler, api.RouterOptions{AllowedOrigins: cfg.CORS.AllowedOrigins})

	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Info().
			Str("address", cfg.Server.Address).
			Str("database", cfg.Database.Path).
			Str("cards_storage", cfg.Cards.Storage).
			Bool("drop_empty_slots", cfg.Schedule.DropEmptySlots).
			Bool("exclude_single_lessons", cfg.Reports.ExcludeSingleLessons).
			Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func newCardGenerator(cfg *config.Config, log zerolog.Logger) (*cards.Generator, error) {
	memberPrice, err := cfg.School.MemberPrice()
	if err != nil {
		return nil, err
	}
	nonMemberPrice, err := cfg.School.NonMemberPrice()
	if err != nil {
		return nil, err
	}

	var sink cards.Sink
	switch cfg.Cards.Storage {
	case config.StorageMinio:
		sink, err = cards.NewMinioSink(cards.MinioConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			UseSSL:    cfg.MinIO.UseSSL,
		}, log)
	default:
		sink, err = cards.NewFileSink(cfg.Cards.Dir)
	}
	if err != nil {
		return nil, err
	}

	return cards.NewGenerator(cards.Options{
		SchoolName:     cfg.School.Name,
		MemberPrice:    memberPrice,
		NonMemberPrice: nonMemberPrice,
		Currency:       cfg.School.Currency,
	}, sink, log), nil
}

// newNotifier always logs crossings and publishes them when a broker is configured.
func newNotifier(cfg *config.Config, log zerolog.Logger) (schedule.Notifier, func(), error) {
	notifiers := notify.Multi{notify.NewLogNotifier(log)}
	if cfg.Notify.AMQPURL == "" {
		return notifiers, func() {}, nil
	}

	publisher, err := notify.DialAMQP(notify.AMQPConfig{
		URL:        cfg.Notify.AMQPURL,
		Exchange:   cfg.Notify.Exchange,
		RoutingKey: cfg.Notify.RoutingKey,
	}, log)
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {
		if err := publisher.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close AMQP connection")
		}
	}
	return append(notifiers, publisher), closeFn, nil
}
