package cmd

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/sqlora/internal/config"
	"github.com/dbsmedya/sqlora/internal/migrate"
	"github.com/dbsmedya/sqlora/internal/report"
)

var (
	migrateNewUsername     string
	migrateNewPassword     string
	migrateSchemaOnly      bool
	migrateOnlyFKKeys      bool
	migrateDropTables      bool
	migrateForceRecreate   bool
	migrateYes             bool
	migrateUseAdminUser    bool
	migrateSkipValidation  bool
	migrateContinueOnError bool
	migrateBatchSize       int
	migrateOutputFile      string
	migrateUseVarchar      bool
	migrateSampleText      bool
	migrateNoProgress      bool
	migrateCheckOnly       bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate [source.sqlite]",
	Short: "Migrate a SQLite database into an Oracle schema",
	Long: `Migrate extracts the source schema, generates Oracle DDL, provisions a
dedicated Oracle user (derived from the file name unless overridden),
creates the tables, transfers the data in batches and validates the result.

Foreign keys involved in reference cycles are added after the data so
cyclic rows load. Exit code is 0 on success, 1 on failure and 2 when the
migration completed but validation reported warnings.

Example:
  sqlora migrate northwind.sqlite --dsn localhost:1521/free --password secret`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMigrate,
}

func init() {
	migrateCmd.Flags().StringVar(&migrateNewUsername, "new-username", "",
		"Target Oracle user (default: derived from the source file name)")
	migrateCmd.Flags().StringVar(&migrateNewPassword, "new-password", "",
		"Target user password (default: same as the username)")
	migrateCmd.Flags().BoolVar(&migrateSchemaOnly, "schema-only", false,
		"Create schema objects without transferring rows")
	migrateCmd.Flags().BoolVar(&migrateOnlyFKKeys, "only-fk-keys", false,
		"Keep only primary-key and foreign-key columns (schema skeleton)")
	migrateCmd.Flags().BoolVar(&migrateDropTables, "drop-tables", false,
		"Drop existing tables in the target schema first")
	migrateCmd.Flags().BoolVar(&migrateForceRecreate, "force-recreate", false,
		"Drop and recreate the target user (requires --yes)")
	migrateCmd.Flags().BoolVarP(&migrateYes, "yes", "y", false,
		"Confirm destructive operations")
	migrateCmd.Flags().BoolVar(&migrateUseAdminUser, "use-admin-user", false,
		"Create objects in the admin user's own schema (no provisioning)")
	migrateCmd.Flags().BoolVar(&migrateSkipValidation, "skip-validation", false,
		"Skip post-migration validation")
	migrateCmd.Flags().BoolVar(&migrateContinueOnError, "continue-on-error", false,
		"Record failed tables and keep transferring instead of aborting")
	migrateCmd.Flags().IntVar(&migrateBatchSize, "batch-size", 0,
		"Override rows per insert transaction")
	migrateCmd.Flags().StringVarP(&migrateOutputFile, "output-file", "o", "",
		"Write a replayable SQL script (DDL plus literal INSERTs)")
	migrateCmd.Flags().BoolVar(&migrateUseVarchar, "use-varchar", false,
		"Map TEXT columns to VARCHAR2 instead of CLOB where possible")
	migrateCmd.Flags().BoolVar(&migrateSampleText, "sample-text", false,
		"Sample stored TEXT lengths to pick VARCHAR2 vs CLOB per column")
	migrateCmd.Flags().BoolVar(&migrateNoProgress, "no-progress", false,
		"Disable per-table progress bars")
	migrateCmd.Flags().BoolVar(&migrateCheckOnly, "check-only", false,
		"Run preflight checks only, change nothing")

	rootCmd.AddCommand(migrateCmd)
}

func migrateOverrides(cmd *cobra.Command) *config.Overrides {
	o := &config.Overrides{
		NewUsername:        migrateNewUsername,
		NewPassword:        migrateNewPassword,
		BatchSize:          migrateBatchSize,
		OutputSQLFile:      migrateOutputFile,
		SchemaOnly:         boolFlag(cmd, "schema-only", migrateSchemaOnly),
		OnlyFKKeys:         boolFlag(cmd, "only-fk-keys", migrateOnlyFKKeys),
		DropTables:         boolFlag(cmd, "drop-tables", migrateDropTables),
		ForceRecreate:      boolFlag(cmd, "force-recreate", migrateForceRecreate),
		ConfirmDestructive: boolFlag(cmd, "yes", migrateYes),
		UseAdminUser:       boolFlag(cmd, "use-admin-user", migrateUseAdminUser),
		SkipValidation:     boolFlag(cmd, "skip-validation", migrateSkipValidation),
		ContinueOnError:    boolFlag(cmd, "continue-on-error", migrateContinueOnError),
		UseVarchar:         boolFlag(cmd, "use-varchar", migrateUseVarchar),
		SampleText:         boolFlag(cmd, "sample-text", migrateSampleText),
	}
	if cmd.Flags().Changed("no-progress") {
		progress := !migrateNoProgress
		o.Progress = &progress
	}
	return o
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(migrateOverrides(cmd))
	if err != nil {
		return err
	}

	source := cfg.SourcePath
	if len(args) > 0 {
		source = args[0]
	}
	if source == "" {
		return fmt.Errorf("no source database: pass a path or set %s", config.EnvSQLiteDB)
	}

	p := migrate.NewPipeline(cfg, log)

	ctx, cancel := signalContext(log)
	defer cancel()

	if migrateCheckOnly {
		if err := p.Preflight(ctx, source); err != nil {
			return fmt.Errorf("preflight failed: %w", err)
		}
		fmt.Fprintln(outputWriter, "Preflight OK")
		return nil
	}

	log.Infow("Starting migration", "source", source, "dsn", cfg.AdminDSN)

	result, err := p.Run(ctx, source)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Migration cancelled by user")
			return nil
		}
		return fmt.Errorf("migration failed: %w", err)
	}

	printResult(result)
	return reportOutcome(result.Validation)
}

func printResult(res *migrate.Result) {
	fmt.Fprintf(outputWriter, "\n=== Migration Complete ===\n")
	fmt.Fprintf(outputWriter, "Source: %s\n", res.SourcePath)
	fmt.Fprintf(outputWriter, "User: %s\n", res.Username)
	fmt.Fprintf(outputWriter, "Mode: %s\n", res.Mode)
	fmt.Fprintf(outputWriter, "URI: %s\n", res.URI)
	fmt.Fprintf(outputWriter, "Tables Created: %d\n", len(res.Script.TableStatements))

	if res.Transfer != nil {
		fmt.Fprintf(outputWriter, "Tables Transferred: %d\n", res.Transfer.TablesTransferred)
		fmt.Fprintf(outputWriter, "Rows Transferred: %d\n", res.Transfer.RowsTransferred)
		fmt.Fprintf(outputWriter, "Duration: %s\n", res.Transfer.Duration)
		if len(res.Transfer.TablesFailed) > 0 {
			fmt.Fprintf(outputWriter, "Tables Failed: %s\n", strings.Join(res.Transfer.TablesFailed, ", "))
		}
	}

	if res.Validation != nil {
		fmt.Fprintln(outputWriter)
		report.NewPrinter(outputWriter, colorTerminal()).Validation(res.Validation)
	}
}
