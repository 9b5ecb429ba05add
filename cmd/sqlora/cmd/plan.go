package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dbsmedya/sqlora/internal/config"
	"github.com/dbsmedya/sqlora/internal/migrate"
)

var (
	planNewUsername string
	planSchemaOnly  bool
	planOnlyFKKeys  bool
	planUseVarchar  bool
	planSampleText  bool
	planOutputFile  string
)

var planCmd = &cobra.Command{
	Use:   "plan <source.sqlite>",
	Short: "Show the migration plan without touching Oracle",
	Long: `Plan extracts the source schema and generates the Oracle DDL, then
displays what a migration would do:

  - Table creation order (dependency-sorted)
  - Column mappings with resolved Oracle types
  - Foreign keys deferred until after data transfer
  - Indexes

No Oracle connection is made. With --output-file the full SQL script is
written for review or manual replay.

Example:
  sqlora plan northwind.sqlite -o northwind.sql`,
	Args: cobra.ExactArgs(1),
	RunE: runPlan,
}

func init() {
	planCmd.Flags().StringVar(&planNewUsername, "new-username", "",
		"Target Oracle user (default: derived from the source file name)")
	planCmd.Flags().BoolVar(&planSchemaOnly, "schema-only", false,
		"Plan a schema-only migration")
	planCmd.Flags().BoolVar(&planOnlyFKKeys, "only-fk-keys", false,
		"Plan a key-skeleton migration")
	planCmd.Flags().BoolVar(&planUseVarchar, "use-varchar", false,
		"Map TEXT columns to VARCHAR2 instead of CLOB where possible")
	planCmd.Flags().BoolVar(&planSampleText, "sample-text", false,
		"Sample stored TEXT lengths to pick VARCHAR2 vs CLOB per column")
	planCmd.Flags().StringVarP(&planOutputFile, "output-file", "o", "",
		"Write the full SQL script to a file")

	rootCmd.AddCommand(planCmd)
}

func runPlan(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig(&config.Overrides{
		NewUsername: planNewUsername,
		SchemaOnly:  boolFlag(cmd, "schema-only", planSchemaOnly),
		OnlyFKKeys:  boolFlag(cmd, "only-fk-keys", planOnlyFKKeys),
		UseVarchar:  boolFlag(cmd, "use-varchar", planUseVarchar),
		SampleText:  boolFlag(cmd, "sample-text", planSampleText),
	})
	if err != nil {
		return err
	}

	p := migrate.NewPipeline(cfg, log)

	ctx, cancel := signalContext(log)
	defer cancel()

	script, err := p.Plan(ctx, args[0])
	if err != nil {
		return fmt.Errorf("plan failed: %w", err)
	}

	fmt.Fprintf(outputWriter, "Source: %s\n", script.Source)
	fmt.Fprintf(outputWriter, "Mode: %s\n", p.Mode())
	fmt.Fprintln(outputWriter)

	fmt.Fprintf(outputWriter, "Creation order (%d tables):\n", len(script.CreationOrder))
	for i, name := range script.CreationOrder {
		m := script.Mapping(name)
		fmt.Fprintf(outputWriter, "  [%d] %s -> %s\n", i+1, m.Source, m.Target)
		for _, c := range m.Columns {
			fmt.Fprintf(outputWriter, "      %-30s %-30s %s\n", c.Source, c.Target, c.TargetType)
		}
	}

	fmt.Fprintln(outputWriter)
	fmt.Fprintf(outputWriter, "Deferred constraints (%d, added after data transfer):\n", len(script.ConstraintStatements))
	for _, stmt := range script.ConstraintStatements {
		fmt.Fprintf(outputWriter, "  %s\n", stmt)
	}

	fmt.Fprintln(outputWriter)
	fmt.Fprintf(outputWriter, "Indexes: %d\n", len(script.IndexStatements))

	if planOutputFile != "" {
		if err := os.WriteFile(planOutputFile, []byte(script.Render()), 0644); err != nil {
			return fmt.Errorf("writing script file: %w", err)
		}
		fmt.Fprintf(outputWriter, "\nScript written to %s\n", planOutputFile)
	}

	return nil
}
