package report

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dbsmedya/sqlora/internal/validate"
)

func TestValidation_CleanReport(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Validation(&validate.Report{
		SourcePath:    "northwind.sqlite",
		Username:      "dbnorthwind",
		TablesChecked: 5,
		RowsChecked:   1200,
	})

	out := buf.String()
	assert.Contains(t, out, "Validation: SUCCESS")
	assert.Contains(t, out, "northwind.sqlite")
	assert.Contains(t, out, "dbnorthwind")
	assert.Contains(t, out, "5 checked")
	assert.Contains(t, out, "1200 checked")
	assert.NotContains(t, out, "findings")
}

func TestValidation_Findings(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Validation(&validate.Report{
		SourcePath: "northwind.sqlite",
		Findings: []validate.Finding{
			{Kind: validate.FindingMissingTable, Table: "orders"},
			{Kind: validate.FindingRowCount, Table: "users", Expected: "3", Actual: "2"},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "Validation: FAILURE")
	assert.Contains(t, out, "findings (2):")
	assert.Contains(t, out, "[MISSING_TABLE]")
	assert.Contains(t, out, "[ROW_COUNT]")
}

func TestValidation_NoColorWhenDisabled(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.Validation(&validate.Report{SourcePath: "x.sqlite"})
	assert.NotContains(t, buf.String(), "\x1b[", "disabled color must not emit escape codes")
}

func TestBatchSummary_Alignment(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.BatchSummary([]BatchRow{
		{Source: "a.sqlite", Username: "dba", Outcome: "SUCCESS", Tables: 3, Rows: 100},
		{Source: "much-longer-name.sqlite", Username: "dbmuchlongername", Outcome: "SUCCESS_WITH_WARNINGS", Tables: 12, Rows: 54321},
	})

	lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
	assert.True(t, strings.HasPrefix(lines[0], "SOURCE"))

	// The USER column starts at the same offset on every row.
	headerIdx := strings.Index(lines[0], "USER")
	assert.Equal(t, headerIdx, strings.Index(lines[1], "dba"))
	assert.Equal(t, headerIdx, strings.Index(lines[2], "dbmuchlongername"))

	assert.Contains(t, buf.String(), "2 database(s), 0 failed")
}

func TestBatchSummary_FailedRow(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.BatchSummary([]BatchRow{
		{Source: "ok.sqlite", Username: "dbok", Outcome: "SUCCESS", Tables: 1, Rows: 10},
		{Source: "bad.sqlite", Username: "dbbad", Err: errors.New("ORA-12541: TNS:no listener")},
	})

	out := buf.String()
	assert.Contains(t, out, "ORA-12541")
	assert.Contains(t, out, "2 database(s), 1 failed")
}

func TestBatchSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, false)

	p.BatchSummary(nil)
	assert.Contains(t, buf.String(), "No databases migrated.")
}
