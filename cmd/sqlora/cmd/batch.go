package cmd

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/sqlora/internal/config"
	"github.com/dbsmedya/sqlora/internal/migrate"
	"github.com/dbsmedya/sqlora/internal/report"
	"github.com/dbsmedya/sqlora/internal/validate"
)

var (
	batchPattern         string
	batchWorkers         int
	batchURIFile         string
	batchNewPassword     string
	batchSchemaOnly      bool
	batchOnlyFKKeys      bool
	batchDropTables      bool
	batchForceRecreate   bool
	batchYes             bool
	batchSkipValidation  bool
	batchContinueOnError bool
	batchBatchSize       int
	batchUseVarchar      bool
	batchSampleText      bool
	batchNoProgress      bool
)

var batchCmd = &cobra.Command{
	Use:   "batch [dir]",
	Short: "Migrate every matching SQLite database under a directory",
	Long: `Batch migrates each file matching the pattern into its own Oracle user,
derived from the file name. Files are processed concurrently up to the
worker limit; results are reported in input order.

Without --continue-on-error the first failure cancels the remaining
files. With --uri-file, one oracle:// connection URI per migrated
database is written when the run completes.

Example:
  sqlora batch ./dumps --pattern "*.sqlite" --workers 4 --uri-file uris.txt`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBatch,
}

func init() {
	batchCmd.Flags().StringVar(&batchPattern, "pattern", "",
		"Comma-separated glob patterns for source files (default \"*.sqlite,*.db\")")
	batchCmd.Flags().IntVar(&batchWorkers, "workers", 0,
		"Number of databases migrated concurrently")
	batchCmd.Flags().StringVar(&batchURIFile, "uri-file", "",
		"Write one connection URI per migrated database")
	batchCmd.Flags().StringVar(&batchNewPassword, "new-password", "",
		"Password for every provisioned user (default: same as each username)")
	batchCmd.Flags().BoolVar(&batchSchemaOnly, "schema-only", false,
		"Create schema objects without transferring rows")
	batchCmd.Flags().BoolVar(&batchOnlyFKKeys, "only-fk-keys", false,
		"Keep only primary-key and foreign-key columns (schema skeleton)")
	batchCmd.Flags().BoolVar(&batchDropTables, "drop-tables", false,
		"Drop existing tables in each target schema first")
	batchCmd.Flags().BoolVar(&batchForceRecreate, "force-recreate", false,
		"Drop and recreate each target user (requires --yes)")
	batchCmd.Flags().BoolVarP(&batchYes, "yes", "y", false,
		"Confirm destructive operations")
	batchCmd.Flags().BoolVar(&batchSkipValidation, "skip-validation", false,
		"Skip post-migration validation")
	batchCmd.Flags().BoolVar(&batchContinueOnError, "continue-on-error", false,
		"Attempt every file even when one fails")
	batchCmd.Flags().IntVar(&batchBatchSize, "batch-size", 0,
		"Override rows per insert transaction")
	batchCmd.Flags().BoolVar(&batchUseVarchar, "use-varchar", false,
		"Map TEXT columns to VARCHAR2 instead of CLOB where possible")
	batchCmd.Flags().BoolVar(&batchSampleText, "sample-text", false,
		"Sample stored TEXT lengths to pick VARCHAR2 vs CLOB per column")
	batchCmd.Flags().BoolVar(&batchNoProgress, "no-progress", false,
		"Disable per-table progress bars")

	rootCmd.AddCommand(batchCmd)
}

func batchOverrides(cmd *cobra.Command) *config.Overrides {
	o := &config.Overrides{
		Pattern:            batchPattern,
		Workers:            batchWorkers,
		OutputURIFile:      batchURIFile,
		NewPassword:        batchNewPassword,
		BatchSize:          batchBatchSize,
		SchemaOnly:         boolFlag(cmd, "schema-only", batchSchemaOnly),
		OnlyFKKeys:         boolFlag(cmd, "only-fk-keys", batchOnlyFKKeys),
		DropTables:         boolFlag(cmd, "drop-tables", batchDropTables),
		ForceRecreate:      boolFlag(cmd, "force-recreate", batchForceRecreate),
		ConfirmDestructive: boolFlag(cmd, "yes", batchYes),
		SkipValidation:     boolFlag(cmd, "skip-validation", batchSkipValidation),
		ContinueOnError:    boolFlag(cmd, "continue-on-error", batchContinueOnError),
		UseVarchar:         boolFlag(cmd, "use-varchar", batchUseVarchar),
		SampleText:         boolFlag(cmd, "sample-text", batchSampleText),
	}
	if cmd.Flags().Changed("no-progress") {
		progress := !batchNoProgress
		o.Progress = &progress
	}
	return o
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(batchOverrides(cmd))
	if err != nil {
		return err
	}

	dir := cfg.SourceDir
	if len(args) > 0 {
		dir = args[0]
	}
	if dir == "" {
		dir = "."
	}

	p := migrate.NewPipeline(cfg, log)

	ctx, cancel := signalContext(log)
	defer cancel()

	results, runErr := p.RunBatch(ctx, dir)
	if len(results) > 0 {
		fmt.Fprintln(outputWriter)
		printBatchSummary(results)
	}

	if runErr != nil {
		if errors.Is(runErr, context.Canceled) {
			log.Warn("Batch run cancelled by user")
			return nil
		}
		return fmt.Errorf("batch failed: %w", runErr)
	}

	failed, warned := tallyBatch(results)
	if failed > 0 {
		return fmt.Errorf("%d of %d migrations failed", failed, len(results))
	}
	if warned > 0 {
		exitCode = 2
	}
	return nil
}

func printBatchSummary(results []migrate.BatchResult) {
	rows := make([]report.BatchRow, 0, len(results))
	for _, r := range results {
		row := report.BatchRow{
			Source: filepath.Base(r.Source),
			Err:    r.Err,
		}
		switch {
		case r.Err != nil:
			row.Outcome = "FAILED"
		case r.Result != nil && r.Result.Validation != nil:
			row.Outcome = r.Result.Validation.Outcome().String()
		default:
			row.Outcome = validate.OutcomeSuccess.String()
		}
		if r.Result != nil {
			row.Username = r.Result.Username
			if r.Result.Transfer != nil {
				row.Tables = r.Result.Transfer.TablesTransferred
				row.Rows = r.Result.Transfer.RowsTransferred
			}
		}
		rows = append(rows, row)
	}
	report.NewPrinter(outputWriter, colorTerminal()).BatchSummary(rows)
}

func tallyBatch(results []migrate.BatchResult) (failed, warned int) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			failed++
		case r.Result != nil && r.Result.Validation != nil:
			switch r.Result.Validation.Outcome() {
			case validate.OutcomeFailure:
				failed++
			case validate.OutcomeSuccessWithWarnings:
				warned++
			}
		}
	}
	return failed, warned
}
