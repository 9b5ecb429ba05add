package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/sqlora/internal/config"
	"github.com/dbsmedya/sqlora/internal/logger"
	"github.com/dbsmedya/sqlora/internal/validate"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// Persistent CLI flags that override config file and environment values
var (
	cfgFile       string
	envFile       string
	logLevel      string
	logFormat     string
	adminUser     string
	adminPassword string
	adminDSN      string
)

// outputWriter is used for printing results, can be overridden in tests
var outputWriter io.Writer = os.Stdout

// exitCode is the process exit code for runs that complete with warnings.
// Fatal errors exit 1 through Execute; validation warnings exit 2.
var exitCode int

var rootCmd = &cobra.Command{
	Use:   "sqlora",
	Short: "SQLite to Oracle migrator",
	Long: `A CLI tool for migrating SQLite databases into Oracle schemas:
schema translation, user provisioning, batched data transfer and validation.

Features:
  - Type mapping from SQLite affinities to Oracle column types
  - Dependency-ordered table creation with deferred cyclic foreign keys
  - One Oracle user per source database, derived from the file name
  - Transactional batch inserts with progress reporting
  - Post-migration validation (tables, columns, row counts)`,
	Version: Version,
}

// Execute runs the root command. Fatal errors exit 1; a migration that
// completes but validates with warnings exits 2.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "",
		"Path to JSON config file (default ~/.sqlora.json)")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", "",
		"Path to .env file (default ./.env)")

	// Admin connection overrides
	rootCmd.PersistentFlags().StringVar(&adminUser, "user", "",
		"Oracle admin user")
	rootCmd.PersistentFlags().StringVar(&adminPassword, "password", "",
		"Oracle admin password")
	rootCmd.PersistentFlags().StringVar(&adminDSN, "dsn", "",
		"Oracle DSN (host:port/service)")

	// Logging overrides
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")
}

// loadConfig resolves configuration, applies the persistent and per-command
// flag overrides, validates it and builds the logger.
func loadConfig(extra *config.Overrides) (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(cfgFile, envFile)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}

	if extra == nil {
		extra = &config.Overrides{}
	}
	extra.AdminUser = adminUser
	extra.AdminPassword = adminPassword
	extra.AdminDSN = adminDSN
	extra.LogLevel = logLevel
	extra.LogFormat = logFormat
	cfg.ApplyOverrides(extra)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

// boolFlag returns the flag value only when the user set it, so unset flags
// never mask environment or config file values.
func boolFlag(cmd *cobra.Command, name string, value bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

// signalContext returns a context cancelled on SIGINT or SIGTERM so the
// current batch finishes before the process exits.
func signalContext(log *logger.Logger) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Warn("Received shutdown signal - completing current batch...")
		cancel()
	}()

	return ctx, cancel
}

// colorTerminal reports whether stdout is a terminal, so reports written to
// pipes and files stay free of escape codes.
func colorTerminal() bool {
	info, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// reportOutcome maps a validation verdict onto the process exit code.
// Missing tables are a hard failure; any other finding exits 2.
func reportOutcome(rep *validate.Report) error {
	if rep == nil {
		return nil
	}
	switch rep.Outcome() {
	case validate.OutcomeFailure:
		return fmt.Errorf("validation failed: %d table(s) missing on the target", len(rep.MissingTables()))
	case validate.OutcomeSuccessWithWarnings:
		exitCode = 2
	}
	return nil
}
