package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/sqlora/internal/migrate"
	"github.com/dbsmedya/sqlora/internal/transfer"
	"github.com/dbsmedya/sqlora/internal/validate"
)

func TestBatchCommandStructure(t *testing.T) {
	assert.NotNil(t, batchCmd)
	assert.Equal(t, "batch [dir]", batchCmd.Use)
	assert.NotNil(t, batchCmd.RunE)

	for _, name := range []string{
		"pattern", "workers", "uri-file", "new-password", "continue-on-error",
		"schema-only", "only-fk-keys", "batch-size", "yes", "no-progress",
	} {
		assert.NotNil(t, batchCmd.Flags().Lookup(name), "flag %s should exist", name)
	}
}

func batchFixture() []migrate.BatchResult {
	return []migrate.BatchResult{
		{
			Source: "/data/clean.sqlite",
			Result: &migrate.Result{
				Username:   "clean",
				Transfer:   &transfer.Stats{TablesTransferred: 3, RowsTransferred: 100},
				Validation: &validate.Report{},
			},
		},
		{
			Source: "/data/warned.sqlite",
			Result: &migrate.Result{
				Username: "warned",
				Transfer: &transfer.Stats{TablesTransferred: 2, RowsTransferred: 50},
				Validation: &validate.Report{Findings: []validate.Finding{
					{Kind: validate.FindingRowCount, Table: "users"},
				}},
			},
		},
		{
			Source: "/data/broken.sqlite",
			Err:    assert.AnError,
		},
	}
}

func TestTallyBatch(t *testing.T) {
	failed, warned := tallyBatch(batchFixture())
	assert.Equal(t, 1, failed)
	assert.Equal(t, 1, warned)

	failed, warned = tallyBatch([]migrate.BatchResult{
		{Source: "a.sqlite", Result: &migrate.Result{Validation: &validate.Report{Findings: []validate.Finding{
			{Kind: validate.FindingMissingTable, Table: "orders"},
		}}}},
	})
	assert.Equal(t, 1, failed, "missing tables count as failures")
	assert.Equal(t, 0, warned)
}

func TestPrintBatchSummary(t *testing.T) {
	originalWriter := outputWriter
	defer func() { outputWriter = originalWriter }()

	var buf bytes.Buffer
	outputWriter = &buf

	printBatchSummary(batchFixture())

	output := buf.String()
	assert.Contains(t, output, "SOURCE")
	assert.Contains(t, output, "clean.sqlite", "sources print as base names")
	assert.NotContains(t, output, "/data/", "directories are noise in the summary")
	assert.Contains(t, output, validate.OutcomeSuccess.String())
	assert.Contains(t, output, validate.OutcomeSuccessWithWarnings.String())
	assert.Contains(t, output, "FAILED")
	assert.Contains(t, output, "3 database(s), 1 failed")
}

func TestRunBatchNoMatches(t *testing.T) {
	originalWriter := outputWriter
	defer func() { outputWriter = originalWriter }()
	outputWriter = &bytes.Buffer{}

	err := runBatch(batchCmd, []string{t.TempDir()})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no source databases")
}
