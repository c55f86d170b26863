package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"newsdeck/internal/config"
	"newsdeck/internal/database"
	importfeeds "newsdeck/internal/import"
	"newsdeck/internal/ingest"
	"newsdeck/internal/server"
	"newsdeck/internal/store"
)

func init() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Secrets and connection settings may live in a .env file, like the
	// deployment environment provides them.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn().Err(err).Msg("Could not load .env file")
	}
}

func usage() {
	fmt.Println("Usage: newsdeck [command] [options]")
	fmt.Println("Commands: import, ingest, server")
	fmt.Println("\nFor command-specific options, use: newsdeck [command] -h")
}

func main() {
	cfg := config.DefaultConfig()

	importCmd := flag.NewFlagSet("import", flag.ExitOnError)
	importCmd.StringVar(&cfg.FeedsCSVPath, "csv", config.GetEnvString("NEWSDECK_CSV_PATH", config.DefaultFeedsCSVPath),
		"Path to the feeds CSV file (env: NEWSDECK_CSV_PATH)")
	importCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSDECK_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: NEWSDECK_DB_PATH)")

	var resetDB bool
	importCmd.BoolVar(&resetDB, "reset", config.GetEnvBool("NEWSDECK_RESET_DB", false),
		"Delete the database file before importing (env: NEWSDECK_RESET_DB)")

	var importLogLevel string
	importCmd.StringVar(&importLogLevel, "log-level", config.GetEnvString("NEWSDECK_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: NEWSDECK_LOG_LEVEL)")

	ingestCmd := flag.NewFlagSet("ingest", flag.ExitOnError)
	ingestCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSDECK_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: NEWSDECK_DB_PATH)")

	ingestCmd.DurationVar(&cfg.Interval, "interval", config.GetEnvDuration("NEWSDECK_INTERVAL", 0),
		"Interval between ingestion passes (e.g. 30m), 0 for one-shot mode (env: NEWSDECK_INTERVAL, minutes or a Go duration)")

	ingestCmd.DurationVar(&cfg.FetchTimeout, "fetch-timeout", config.GetEnvDuration("NEWSDECK_FETCH_TIMEOUT", cfg.FetchTimeout),
		"Per-feed HTTP fetch timeout (env: NEWSDECK_FETCH_TIMEOUT)")

	ingestCmd.IntVar(&cfg.WorkerCount, "workers", config.GetEnvInt("NEWSDECK_WORKER_COUNT", config.DefaultWorkerCount),
		"Number of concurrent feed fetches (env: NEWSDECK_WORKER_COUNT)")

	ingestCmd.IntVar(&cfg.RetentionDays, "retention", config.GetEnvInt("NEWSDECK_RETENTION_DAYS", config.DefaultRetentionDays),
		"Number of days to retain unbookmarked feed items (env: NEWSDECK_RETENTION_DAYS)")

	var ingestLogLevel string
	ingestCmd.StringVar(&ingestLogLevel, "log-level", config.GetEnvString("NEWSDECK_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: NEWSDECK_LOG_LEVEL)")

	serverCmd := flag.NewFlagSet("server", flag.ExitOnError)
	serverCmd.StringVar(&cfg.DBPath, "db", config.GetEnvString("NEWSDECK_DB_PATH", config.DefaultDBPath),
		"Path to the SQLite database file (env: NEWSDECK_DB_PATH)")

	serverCmd.StringVar(&cfg.ServerHost, "host", config.GetEnvString("NEWSDECK_HOST", config.DefaultServerHost),
		"Host to bind the server to (env: NEWSDECK_HOST)")

	serverCmd.IntVar(&cfg.ServerPort, "port", config.GetEnvInt("NEWSDECK_PORT", config.DefaultServerPort),
		"Port to listen on (env: NEWSDECK_PORT)")

	serverCmd.IntVar(&cfg.WorkerCount, "workers", config.GetEnvInt("NEWSDECK_WORKER_COUNT", config.DefaultWorkerCount),
		"Number of concurrent feed fetches for cron-triggered ingestion (env: NEWSDECK_WORKER_COUNT)")

	var serverLogLevel string
	serverCmd.StringVar(&serverLogLevel, "log-level", config.GetEnvString("NEWSDECK_LOG_LEVEL", config.DefaultLogLevel),
		"Log level: debug, info, warn, error (env: NEWSDECK_LOG_LEVEL)")

	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "import":
		importCmd.Parse(os.Args[2:])
		applyLogLevel(importLogLevel, cfg)

		if err := runImport(cfg, resetDB); err != nil {
			log.Error().Err(err).Msg("Import failed")
			os.Exit(1)
		}

	case "ingest":
		ingestCmd.Parse(os.Args[2:])
		applyLogLevel(ingestLogLevel, cfg)

		if err := runIngest(cfg); err != nil {
			log.Error().Err(err).Msg("Ingestion failed")
			os.Exit(1)
		}

	case "server":
		serverCmd.Parse(os.Args[2:])
		applyLogLevel(serverLogLevel, cfg)

		if err := runServer(cfg); err != nil {
			log.Error().Err(err).Msg("Server failed")
			os.Exit(1)
		}

	case "-h", "--help", "help":
		usage()
		os.Exit(0)

	default:
		log.Error().Str("command", os.Args[1]).Msg("Unknown command")
		usage()
		os.Exit(1)
	}
}

// applyLogLevel resolves the effective level: the flag value wins, a
// malformed flag falls back to the environment, then to the default.
func applyLogLevel(levelStr string, cfg *config.Config) {
	cfg.LogLevel = config.GetEnvLogLevel("NEWSDECK_LOG_LEVEL", cfg.LogLevel)
	if level, err := zerolog.ParseLevel(levelStr); err == nil {
		cfg.LogLevel = level
	}
	zerolog.SetGlobalLevel(cfg.LogLevel)
}

// runImport seeds the feeds table from a CSV file. reset drops the
// database file first so the import starts from an empty schema.
func runImport(cfg *config.Config, reset bool) error {
	if reset {
		log.Warn().Str("path", cfg.DBPath).Msg("Resetting database before import")
		if err := database.DeleteDB(cfg.DBPath); err != nil {
			return fmt.Errorf("failed to reset database: %w", err)
		}
	}

	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	importer := importfeeds.NewImporter(store.NewStore(db))
	return importer.ImportFeeds(context.Background(), cfg.FeedsCSVPath)
}

// runIngest executes ingestion passes either once or periodically.
func runIngest(cfg *config.Config) error {
	if cfg.Interval <= 0 {
		log.Info().Msg("Running in one-shot mode")
	} else {
		log.Info().Int64("interval_minutes", int64(cfg.Interval.Minutes())).Msg("Running in periodic mode")
	}

	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	st := store.NewStore(db)
	runner := ingest.NewRunner(st, ingest.Options{
		WorkerCount:  cfg.WorkerCount,
		FetchTimeout: cfg.FetchTimeout,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-shutdown
		log.Info().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	if err := runIngestionPass(ctx, st, runner, cfg); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info().Msg("Ingestion pass canceled by shutdown signal")
			return nil
		}
		return err
	}

	if cfg.Interval == 0 {
		log.Info().Msg("One-shot ingestion completed, exiting")
		return nil
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info().
		Dur("interval", cfg.Interval).
		Time("next_run", time.Now().Add(cfg.Interval)).
		Msg("Waiting for next ingestion pass")

	for {
		select {
		case <-ticker.C:
			log.Info().Msg("Starting scheduled ingestion pass")

			if err := runIngestionPass(ctx, st, runner, cfg); err != nil {
				if errors.Is(err, context.Canceled) {
					log.Info().Msg("Ingestion pass canceled by shutdown signal")
					return nil
				}
				log.Error().Err(err).Msg("Ingestion pass failed")
				// Continue to the next pass rather than exiting
			}

			log.Info().
				Time("next_run", time.Now().Add(cfg.Interval)).
				Msg("Waiting for next ingestion pass")

		case <-ctx.Done():
			log.Info().Msg("Shutting down periodic ingestion")
			return nil
		}
	}
}

// runIngestionPass executes a single ingestion pass followed by a purge
// of expired items.
func runIngestionPass(ctx context.Context, st *store.Store, runner *ingest.Runner, cfg *config.Config) error {
	passCtx, cancel := context.WithTimeout(ctx, 10*time.Minute)
	defer cancel()

	startTime := time.Now()
	result, err := runner.Run(passCtx)
	if err != nil {
		return fmt.Errorf("ingestion error: %w", err)
	}

	log.Info().
		Dur("duration", time.Since(startTime)).
		Int("total_new_items", result.TotalNewItems).
		Msg("Ingestion pass finished")

	for _, sr := range result.Results {
		if sr.Error != "" {
			log.Warn().Str("feed", sr.Feed).Str("error", sr.Error).Msg("Source failed during pass")
		}
	}

	purgeCtx, purgeCancel := context.WithTimeout(ctx, time.Minute)
	defer purgeCancel()

	purgedCount, purgeErr := st.PurgeOldItems(purgeCtx, cfg.RetentionDays)
	if purgeErr != nil {
		log.Error().Err(purgeErr).Msg("Failed to purge old items")
	} else if purgedCount > 0 {
		log.Info().Int64("purged_count", purgedCount).Msg("Purged old feed items")
	}

	return nil
}

// runServer starts the HTTP API server with the provided configuration.
func runServer(cfg *config.Config) error {
	db, err := database.NewDB(database.NewConfig(cfg.DBPath))
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to initialize database")
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer db.Close()

	st := store.NewStore(db)
	runner := ingest.NewRunner(st, ingest.Options{
		WorkerCount:  cfg.WorkerCount,
		FetchTimeout: cfg.FetchTimeout,
	})

	return server.RunServer(st, runner, cfg.ListenAddr(), cfg.APIKey, cfg.CronSecret, log.Logger)
}
