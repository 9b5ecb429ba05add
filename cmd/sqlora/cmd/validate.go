package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/sqlora/internal/config"
	"github.com/dbsmedya/sqlora/internal/migrate"
	"github.com/dbsmedya/sqlora/internal/report"
	"github.com/dbsmedya/sqlora/internal/validate"
)

var (
	validateNewUsername  string
	validateNewPassword  string
	validateUseAdminUser bool
	validateSchemaOnly   bool
	validateOnlyFKKeys   bool
	validateReportFile   string
)

var validateCmd = &cobra.Command{
	Use:   "validate <source.sqlite>",
	Short: "Validate an earlier migration against its source",
	Long: `Validate compares the source database with the migrated Oracle schema:
every table and column must exist on the target with a compatible type,
and row counts must match for full migrations.

Missing tables fail the run (exit 1). Column or row-count findings are
warnings (exit 2). Nothing on the target is changed.

Example:
  sqlora validate northwind.sqlite --report-file northwind-report.txt`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().StringVar(&validateNewUsername, "new-username", "",
		"Target Oracle user (default: derived from the source file name)")
	validateCmd.Flags().StringVar(&validateNewPassword, "new-password", "",
		"Target user password (default: same as the username)")
	validateCmd.Flags().BoolVar(&validateUseAdminUser, "use-admin-user", false,
		"Validate against the admin user's own schema")
	validateCmd.Flags().BoolVar(&validateSchemaOnly, "schema-only", false,
		"Validate a schema-only migration (skips row counts)")
	validateCmd.Flags().BoolVar(&validateOnlyFKKeys, "only-fk-keys", false,
		"Validate a key-skeleton migration (skips row counts)")
	validateCmd.Flags().StringVar(&validateReportFile, "report-file", "",
		"Write a plain-text validation report")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(&config.Overrides{
		NewUsername:  validateNewUsername,
		NewPassword:  validateNewPassword,
		UseAdminUser: boolFlag(cmd, "use-admin-user", validateUseAdminUser),
		SchemaOnly:   boolFlag(cmd, "schema-only", validateSchemaOnly),
		OnlyFKKeys:   boolFlag(cmd, "only-fk-keys", validateOnlyFKKeys),
	})
	if err != nil {
		return err
	}

	p := migrate.NewPipeline(cfg, log)

	ctx, cancel := signalContext(log)
	defer cancel()

	rep, err := p.Check(ctx, args[0])
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	report.NewPrinter(outputWriter, colorTerminal()).Validation(rep)

	if validateReportFile != "" {
		if err := writeReport(validateReportFile, rep); err != nil {
			return err
		}
	}

	return reportOutcome(rep)
}

func writeReport(path string, rep *validate.Report) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating report file: %w", err)
	}
	defer f.Close()

	report.NewPrinter(f, false).Validation(rep)
	return nil
}
