package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/sqlora/internal/config"
	"github.com/dbsmedya/sqlora/internal/migrate"
	"github.com/dbsmedya/sqlora/internal/report"
)

var (
	reloadRetry       int
	reloadUseVarchar  bool
	reloadTables      []string
	reloadReportFile  string
	reloadNewUsername string
	reloadNewPassword string
	reloadBatchSize   int
	reloadNoProgress  bool
)

var reloadCmd = &cobra.Command{
	Use:   "reload <source.sqlite>",
	Short: "Re-create tables that failed to migrate",
	Long: `Reload validates an earlier migration and re-creates only the tables
missing on the target, transfers their rows and replays the deferred
constraints and indexes. Already-present objects are skipped.

Use --use-varchar to re-create the missing tables with VARCHAR2 columns,
the fallback for tables that failed on type fidelity the first time.
--table restricts the reload to the named tables.

Example:
  sqlora reload northwind.sqlite --retry 2 --use-varchar`,
	Args: cobra.ExactArgs(1),
	RunE: runReload,
}

func init() {
	reloadCmd.Flags().IntVar(&reloadRetry, "retry", 1,
		"Number of create-and-reload attempts")
	reloadCmd.Flags().BoolVar(&reloadUseVarchar, "use-varchar", false,
		"Re-create missing tables with VARCHAR2 columns")
	reloadCmd.Flags().StringSliceVar(&reloadTables, "table", nil,
		"Restrict the reload to the named source tables (repeatable)")
	reloadCmd.Flags().StringVar(&reloadReportFile, "report-file", "",
		"Write a plain-text validation report")
	reloadCmd.Flags().StringVar(&reloadNewUsername, "new-username", "",
		"Target Oracle user (default: derived from the source file name)")
	reloadCmd.Flags().StringVar(&reloadNewPassword, "new-password", "",
		"Target user password (default: same as the username)")
	reloadCmd.Flags().IntVar(&reloadBatchSize, "batch-size", 0,
		"Override rows per insert transaction")
	reloadCmd.Flags().BoolVar(&reloadNoProgress, "no-progress", false,
		"Disable per-table progress bars")

	rootCmd.AddCommand(reloadCmd)
}

func runReload(cmd *cobra.Command, args []string) error {
	o := &config.Overrides{
		NewUsername: reloadNewUsername,
		NewPassword: reloadNewPassword,
		BatchSize:   reloadBatchSize,
	}
	if cmd.Flags().Changed("no-progress") {
		progress := !reloadNoProgress
		o.Progress = &progress
	}

	cfg, log, err := loadConfig(o)
	if err != nil {
		return err
	}

	p := migrate.NewPipeline(cfg, log)

	ctx, cancel := signalContext(log)
	defer cancel()

	rep, err := p.Reload(ctx, args[0], migrate.ReloadOptions{
		Retry:      reloadRetry,
		UseVarchar: reloadUseVarchar,
		Tables:     reloadTables,
		ReportFile: reloadReportFile,
	})
	if rep != nil {
		report.NewPrinter(outputWriter, colorTerminal()).Validation(rep)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			log.Warn("Reload cancelled by user")
			return nil
		}
		return fmt.Errorf("reload failed: %w", err)
	}

	return reportOutcome(rep)
}
