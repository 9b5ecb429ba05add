// Package transfer moves table data from the source database into Oracle in
// bounded transactional batches.
package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/gosuri/uiprogress"

	"github.com/dbsmedya/sqlora/internal/ddl"
	"github.com/dbsmedya/sqlora/internal/logger"
	"github.com/dbsmedya/sqlora/internal/sqlite"
)

// DefaultBatchSize bounds one insert transaction when no size is configured.
const DefaultBatchSize = 500

// Stats contains statistics about the transfer.
type Stats struct {
	TablesTransferred int
	TablesSkipped     int
	TablesFailed      []string
	RowsTransferred   int64
	RowsPerTable      map[string]int64
	Duration          time.Duration
}

// Options adjust transfer behavior.
type Options struct {
	// BatchSize is the number of rows committed per transaction.
	BatchSize int

	// ContinueOnError records a failed table and moves on instead of
	// aborting the whole transfer.
	ContinueOnError bool

	// Progress renders per-table progress bars on stdout.
	Progress bool

	// Only restricts the transfer to the named source tables. Empty means
	// every mapped table.
	Only []string

	// EmitSQL, when set, receives a literal INSERT for every transferred
	// row, letting the caller build a replayable script file.
	EmitSQL func(stmt string)
}

// Engine streams rows from one source database into the target schema.
// Tables are processed in creation order so inline foreign keys hold during
// the transfer.
type Engine struct {
	source *sqlite.DB
	target *sql.DB
	script *ddl.Script
	opts   Options
	log    *logger.Logger
}

// New creates a transfer engine.
func New(source *sqlite.DB, target *sql.DB, script *ddl.Script, opts Options, log *logger.Logger) (*Engine, error) {
	if source == nil {
		return nil, fmt.Errorf("source database is nil")
	}
	if target == nil {
		return nil, fmt.Errorf("target database is nil")
	}
	if script == nil {
		return nil, fmt.Errorf("script is nil")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Engine{source: source, target: target, script: script, opts: opts, log: log}, nil
}

// Transfer copies every mapped table. Each batch commits or rolls back as a
// unit; cancellation is honored between batches so a committed prefix is
// never torn mid-transaction.
func (e *Engine) Transfer(ctx context.Context) (*Stats, error) {
	start := time.Now()
	stats := &Stats{RowsPerTable: make(map[string]int64)}

	var progress *uiprogress.Progress
	if e.opts.Progress {
		progress = uiprogress.New()
		progress.Start()
		defer progress.Stop()
	}

	only := make(map[string]bool, len(e.opts.Only))
	for _, t := range e.opts.Only {
		only[strings.ToUpper(t)] = true
	}

	for _, mapping := range e.script.Mappings() {
		if err := ctx.Err(); err != nil {
			return stats, fmt.Errorf("transfer interrupted: %w", err)
		}
		if len(only) > 0 && !only[strings.ToUpper(mapping.Source)] {
			continue
		}

		total, err := e.source.CountRows(ctx, mapping.Source)
		if err != nil {
			if failErr := e.recordFailure(stats, mapping.Source, err); failErr != nil {
				return stats, failErr
			}
			continue
		}
		if total == 0 {
			e.log.Debugw("table empty, skipping", "table", mapping.Source)
			stats.TablesSkipped++
			continue
		}

		bar := e.tableBar(progress, mapping.Source, total)
		rows, err := e.transferTable(ctx, mapping, total, bar)
		stats.RowsTransferred += rows
		stats.RowsPerTable[mapping.Source] = rows
		if err != nil {
			if failErr := e.recordFailure(stats, mapping.Source, err); failErr != nil {
				return stats, failErr
			}
			continue
		}

		stats.TablesTransferred++
		e.log.Debugw("table transferred", "table", mapping.Source, "rows", rows)
	}

	stats.Duration = time.Since(start)
	e.log.Infow("transfer complete",
		"tables", stats.TablesTransferred,
		"skipped", stats.TablesSkipped,
		"failed", len(stats.TablesFailed),
		"rows", stats.RowsTransferred,
		"duration", stats.Duration.String())
	return stats, nil
}

func (e *Engine) recordFailure(stats *Stats, table string, err error) error {
	if !e.opts.ContinueOnError {
		return fmt.Errorf("table %s: %w", table, err)
	}
	e.log.Errorw("table transfer failed, continuing", "table", table, "error", err)
	stats.TablesFailed = append(stats.TablesFailed, table)
	return nil
}

func (e *Engine) tableBar(progress *uiprogress.Progress, table string, total int64) *uiprogress.Bar {
	if progress == nil {
		return nil
	}
	bar := progress.AddBar(int(total)).AppendCompleted()
	bar.PrependFunc(func(b *uiprogress.Bar) string {
		return fmt.Sprintf("%-24s %d/%d", table, b.Current(), total)
	})
	return bar
}

// transferTable streams one table's rows in batches. The row count returned
// covers committed rows only.
func (e *Engine) transferTable(ctx context.Context, mapping *ddl.TableMapping, total int64, bar *uiprogress.Bar) (int64, error) {
	rows, err := e.source.Rows(ctx, mapping.Source, mapping.SourceColumns())
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	insert := ddl.BindInsert(mapping)
	width := len(mapping.Columns)

	var committed int64
	batch := make([][]any, 0, e.opts.BatchSize)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("transfer interrupted: %w", err)
		}
		if err := e.insertBatch(ctx, insert, batch); err != nil {
			return err
		}
		if e.opts.EmitSQL != nil {
			for _, values := range batch {
				e.opts.EmitSQL(ddl.LiteralInsert(mapping, values))
			}
		}
		committed += int64(len(batch))
		if bar != nil {
			bar.Set(int(committed))
		}
		batch = batch[:0]
		return nil
	}

	for rows.Next() {
		values := make([]any, width)
		ptrs := make([]any, width)
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return committed, fmt.Errorf("scanning source row: %w", err)
		}

		batch = append(batch, values)
		if len(batch) >= e.opts.BatchSize {
			if err := flush(); err != nil {
				return committed, err
			}
		}
	}
	if err := rows.Err(); err != nil {
		return committed, fmt.Errorf("reading source rows: %w", err)
	}

	if err := flush(); err != nil {
		return committed, err
	}
	return committed, nil
}

// insertBatch writes one batch inside its own transaction. Any insert
// failure rolls the whole batch back.
func (e *Engine) insertBatch(ctx context.Context, insert string, batch [][]any) error {
	tx, err := e.target.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning batch transaction: %w", err)
	}
	defer func() {
		if tx != nil {
			if rbErr := tx.Rollback(); rbErr != nil && rbErr != sql.ErrTxDone {
				e.log.Errorw("batch rollback failed", "error", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for _, values := range batch {
		if _, err := stmt.ExecContext(ctx, values...); err != nil {
			return fmt.Errorf("inserting row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing batch: %w", err)
	}
	tx = nil
	return nil
}
