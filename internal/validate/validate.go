// Package validate compares the migrated Oracle schema and data against the
// source database and produces a findings report.
package validate

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/dbsmedya/sqlora/internal/ddl"
	"github.com/dbsmedya/sqlora/internal/logger"
	"github.com/dbsmedya/sqlora/internal/oracle"
	"github.com/dbsmedya/sqlora/internal/sqlite"
	"github.com/dbsmedya/sqlora/internal/types"
)

// Outcome is the overall verdict of a validation run.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeSuccessWithWarnings
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "SUCCESS"
	case OutcomeSuccessWithWarnings:
		return "SUCCESS_WITH_WARNINGS"
	case OutcomeFailure:
		return "FAILURE"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// FindingKind identifies one category of mismatch.
type FindingKind string

const (
	// FindingMissingTable means a source table never made it to Oracle.
	// This is the only finding that fails the run outright.
	FindingMissingTable FindingKind = "MISSING_TABLE"
	// FindingColumnMissing means a mapped column is absent from the target.
	FindingColumnMissing FindingKind = "COLUMN_MISSING"
	// FindingColumnType means the target column type falls outside the
	// expected type's equivalence family.
	FindingColumnType FindingKind = "COLUMN_TYPE"
	// FindingRowCount means source and target row counts disagree.
	FindingRowCount FindingKind = "ROW_COUNT"
)

// Finding is one validation mismatch.
type Finding struct {
	Kind     FindingKind
	Table    string
	Column   string
	Expected string
	Actual   string
}

func (f Finding) String() string {
	switch f.Kind {
	case FindingMissingTable:
		return fmt.Sprintf("[%s] table %s not found in target schema", f.Kind, f.Table)
	case FindingColumnMissing:
		return fmt.Sprintf("[%s] %s.%s missing from target table", f.Kind, f.Table, f.Column)
	case FindingColumnType:
		return fmt.Sprintf("[%s] %s.%s expected %s, found %s", f.Kind, f.Table, f.Column, f.Expected, f.Actual)
	case FindingRowCount:
		return fmt.Sprintf("[%s] %s expected %s rows, found %s", f.Kind, f.Table, f.Expected, f.Actual)
	default:
		return fmt.Sprintf("[%s] %s.%s", f.Kind, f.Table, f.Column)
	}
}

// Report is the result of one validation run. Findings are ordered by table
// declaration order, then by check order within a table.
type Report struct {
	SourcePath    string
	Username      string
	TablesChecked int
	RowsChecked   int64
	Findings      []Finding
	Duration      time.Duration
}

// Outcome derives the verdict. Missing tables fail the run; every other
// finding downgrades success to a warning.
func (r *Report) Outcome() Outcome {
	warnings := false
	for _, f := range r.Findings {
		if f.Kind == FindingMissingTable {
			return OutcomeFailure
		}
		warnings = true
	}
	if warnings {
		return OutcomeSuccessWithWarnings
	}
	return OutcomeSuccess
}

// MissingTables returns the source names of tables absent from the target.
func (r *Report) MissingTables() []string {
	var out []string
	for _, f := range r.Findings {
		if f.Kind == FindingMissingTable {
			out = append(out, f.Table)
		}
	}
	return out
}

// Validator compares the migrated schema and data against the source.
type Validator struct {
	source *sqlite.DB
	target *sql.DB
	schema *types.Schema
	script *ddl.Script

	// skipRowCounts is set for schema-only and fk-skeleton migrations,
	// where target row counts are not expected to match.
	skipRowCounts bool

	log *logger.Logger
}

// New creates a Validator. The script supplies the source-to-target name
// mapping produced at generation time.
func New(source *sqlite.DB, target *sql.DB, schema *types.Schema, script *ddl.Script, mode types.MigrationMode, log *logger.Logger) (*Validator, error) {
	if source == nil {
		return nil, fmt.Errorf("source database is nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target database is nil")
	}
	if schema == nil || script == nil {
		return nil, fmt.Errorf("schema and script are required")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Validator{
		source:        source,
		target:        target,
		schema:        schema,
		script:        script,
		skipRowCounts: mode != types.ModeFull,
		log:           log,
	}, nil
}

// Validate checks every mapped table. A validation mismatch is report data,
// not an error: the error return covers only failures to read either side.
func (v *Validator) Validate(ctx context.Context) (*Report, error) {
	start := time.Now()
	report := &Report{SourcePath: v.source.Path()}

	for _, mapping := range v.script.Mappings() {
		if err := ctx.Err(); err != nil {
			return report, fmt.Errorf("validation interrupted: %w", err)
		}

		table := v.schema.Table(mapping.Source)
		cols, err := oracle.TableColumns(ctx, v.target, mapping.Target)
		if err != nil {
			return report, fmt.Errorf("describing target table %s: %w", mapping.Target, err)
		}
		if len(cols) == 0 {
			report.Findings = append(report.Findings, Finding{
				Kind:  FindingMissingTable,
				Table: table.Name,
			})
			v.log.Errorw("target table missing", "table", table.Name, "target", mapping.Target)
			continue
		}

		report.TablesChecked++
		v.checkColumns(report, table, mapping, cols)

		if !v.skipRowCounts {
			if err := v.checkRowCount(ctx, report, table, mapping); err != nil {
				return report, err
			}
		}
	}

	report.Duration = time.Since(start)
	v.log.Infow("validation complete",
		"tables", report.TablesChecked,
		"rows", report.RowsChecked,
		"findings", len(report.Findings),
		"outcome", report.Outcome().String())
	return report, nil
}

func (v *Validator) checkColumns(report *Report, table *types.TableDescriptor, mapping *ddl.TableMapping, cols []oracle.CatalogColumn) {
	byName := make(map[string]oracle.CatalogColumn, len(cols))
	for _, c := range cols {
		byName[strings.ToUpper(c.Name)] = c
	}

	for _, cm := range mapping.Columns {
		actual, ok := byName[strings.ToUpper(cm.Target)]
		if !ok {
			report.Findings = append(report.Findings, Finding{
				Kind:   FindingColumnMissing,
				Table:  table.Name,
				Column: cm.Source,
			})
			continue
		}

		expected := baseType(cm.TargetType)
		if !sameFamily(expected, actual.DataType) {
			report.Findings = append(report.Findings, Finding{
				Kind:     FindingColumnType,
				Table:    table.Name,
				Column:   cm.Source,
				Expected: expected,
				Actual:   actual.DataType,
			})
		}
	}
}

func (v *Validator) checkRowCount(ctx context.Context, report *Report, table *types.TableDescriptor, mapping *ddl.TableMapping) error {
	sourceCount, err := v.source.CountRows(ctx, table.Name)
	if err != nil {
		return fmt.Errorf("counting source rows in %s: %w", table.Name, err)
	}
	targetCount, err := oracle.CountRows(ctx, v.target, mapping.Target)
	if err != nil {
		return fmt.Errorf("counting target rows in %s: %w", mapping.Target, err)
	}

	report.RowsChecked += sourceCount
	if sourceCount != targetCount {
		report.Findings = append(report.Findings, Finding{
			Kind:     FindingRowCount,
			Table:    table.Name,
			Expected: fmt.Sprintf("%d", sourceCount),
			Actual:   fmt.Sprintf("%d", targetCount),
		})
	}
	return nil
}

// baseType strips length, precision and identity clauses from a generated
// type: NUMBER(19) -> NUMBER, NUMBER GENERATED ... -> NUMBER.
func baseType(targetType string) string {
	t := strings.ToUpper(strings.TrimSpace(targetType))
	if i := strings.IndexAny(t, "( "); i > 0 {
		t = t[:i]
	}
	return t
}

// typeFamilies groups Oracle types that satisfy the same expectation. A
// NUMBER column surviving as FLOAT, or VARCHAR2 as NVARCHAR2, is a warning
// at most, not a structural failure.
var typeFamilies = map[string]string{
	"NUMBER":        "numeric",
	"FLOAT":         "numeric",
	"BINARY_DOUBLE": "numeric",
	"BINARY_FLOAT":  "numeric",
	"VARCHAR2":      "text",
	"NVARCHAR2":     "text",
	"CHAR":          "text",
	"NCHAR":         "text",
	"CLOB":          "text",
	"NCLOB":         "text",
	"BLOB":          "binary",
	"RAW":           "binary",
	"LONG":          "binary",
	"LONG RAW":      "binary",
}

func sameFamily(expected, actual string) bool {
	ef, eok := typeFamilies[baseType(expected)]
	af, aok := typeFamilies[baseType(actual)]
	if eok && aok {
		return ef == af
	}
	return strings.EqualFold(baseType(expected), baseType(actual))
}
