// Package sqlite reads schema metadata and rows from SQLite source databases.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"strings"

	_ "modernc.org/sqlite" // SQLite driver (pure Go)

	"github.com/dbsmedya/sqlora/internal/logger"
	"github.com/dbsmedya/sqlora/internal/typemap"
	"github.com/dbsmedya/sqlora/internal/types"
)

// SourceReadError reports an unreadable, locked or corrupt source database.
// It is fatal for the affected source file.
type SourceReadError struct {
	Path string
	Err  error
}

func (e *SourceReadError) Error() string {
	return fmt.Sprintf("cannot read source database %s: %v", e.Path, e.Err)
}

func (e *SourceReadError) Unwrap() error {
	return e.Err
}

// DB is a read-only handle on one SQLite source database.
type DB struct {
	path string
	db   *sql.DB
	log  *logger.Logger
}

// Open opens the source database read-only and probes it, so a missing,
// locked or non-database file fails here rather than mid-extraction.
func Open(path string, log *logger.Logger) (*DB, error) {
	if log == nil {
		log = logger.NewDefault()
	}

	if _, err := os.Stat(path); err != nil {
		return nil, &SourceReadError{Path: path, Err: err}
	}

	db, err := sql.Open("sqlite", path+"?mode=ro")
	if err != nil {
		return nil, &SourceReadError{Path: path, Err: err}
	}

	// sql.Open is lazy; the probe is what actually touches the file.
	var version int
	if err := db.QueryRow("PRAGMA schema_version").Scan(&version); err != nil {
		_ = db.Close()
		return nil, &SourceReadError{Path: path, Err: err}
	}

	return &DB{path: path, db: db, log: log.WithDatabase(path)}, nil
}

// Path returns the source file path.
func (d *DB) Path() string {
	return d.path
}

// Close releases the underlying handle.
func (d *DB) Close() error {
	return d.db.Close()
}

// Extract builds the schema model: user tables in declaration order, each
// with columns, primary keys, foreign keys and secondary indexes. Column and
// foreign key order match the source declaration order; table creation
// ordering is the DDL generator's concern.
func (d *DB) Extract(ctx context.Context) (*types.Schema, error) {
	schema := types.NewSchema(d.path)

	names, err := d.tableNames(ctx)
	if err != nil {
		return nil, &SourceReadError{Path: d.path, Err: err}
	}

	for _, name := range names {
		table, err := d.extractTable(ctx, name)
		if err != nil {
			return nil, &SourceReadError{Path: d.path, Err: err}
		}
		if err := schema.AddTable(table); err != nil {
			return nil, &SourceReadError{Path: d.path, Err: err}
		}
	}

	resolveImplicitFKTargets(schema)

	d.log.Debugw("Schema extracted", "tables", schema.Len())
	return schema, nil
}

// tableNames lists user tables in declaration order, skipping SQLite internals.
func (d *DB) tableNames(ctx context.Context) ([]string, error) {
	rows, err := d.db.QueryContext(ctx,
		`SELECT name FROM sqlite_master
		 WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
		 ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sqlite_master: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (d *DB) extractTable(ctx context.Context, name string) (*types.TableDescriptor, error) {
	table := &types.TableDescriptor{Name: name}

	if err := d.readColumns(ctx, table); err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	if err := d.readForeignKeys(ctx, table); err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}
	if err := d.readIndexes(ctx, table); err != nil {
		return nil, fmt.Errorf("table %s: %w", name, err)
	}

	return table, nil
}

// readColumns fills columns and primary key names from PRAGMA table_info.
func (d *DB) readColumns(ctx context.Context, table *types.TableDescriptor) error {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA table_info(%s)", quote(table.Name)))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	// pk is the 1-based position within the primary key, 0 for non-key columns.
	type pkCol struct {
		name string
		pos  int
	}
	var pks []pkCol

	for rows.Next() {
		var (
			cid      int
			colName  string
			declared sql.NullString
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &colName, &declared, &notNull, &dflt, &pk); err != nil {
			return err
		}

		col := types.ColumnDescriptor{
			Name:         colName,
			DeclaredType: declared.String,
			Affinity:     typemap.ResolveAffinity(declared.String),
			NotNull:      notNull != 0,
			PrimaryKey:   pk > 0,
		}
		if dflt.Valid {
			col.Default = dflt.String
			col.HasDefault = true
		}
		table.Columns = append(table.Columns, col)

		if pk > 0 {
			pks = append(pks, pkCol{name: colName, pos: pk})
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	// table_info emits columns in declaration order, not key order.
	for pos := 1; pos <= len(pks); pos++ {
		for _, p := range pks {
			if p.pos == pos {
				table.PrimaryKeys = append(table.PrimaryKeys, p.name)
			}
		}
	}
	return nil
}

// readForeignKeys groups PRAGMA foreign_key_list rows into composite keys.
// The pragma numbers constraints in reverse declaration order (the last
// declared key gets id 0), so groups are emitted by descending id.
func (d *DB) readForeignKeys(ctx context.Context, table *types.TableDescriptor) error {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA foreign_key_list(%s)", quote(table.Name)))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	byID := map[int]*types.ForeignKeyDescriptor{}
	maxID := -1

	for rows.Next() {
		var (
			id, seq            int
			refTable, from     string
			to                 sql.NullString
			onUpdate, onDelete string
			match              string
		)
		if err := rows.Scan(&id, &seq, &refTable, &from, &to, &onUpdate, &onDelete, &match); err != nil {
			return err
		}

		fk, ok := byID[id]
		if !ok {
			fk = &types.ForeignKeyDescriptor{
				RefTable: refTable,
				OnDelete: d.mapAction(table.Name, "ON DELETE", onDelete),
				OnUpdate: d.mapUpdateAction(table.Name, onUpdate),
			}
			byID[id] = fk
			if id > maxID {
				maxID = id
			}
		}
		fk.Columns = append(fk.Columns, from)
		// to is NULL when the key references the target's implicit primary key.
		if to.Valid {
			fk.RefColumns = append(fk.RefColumns, to.String)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for id := maxID; id >= 0; id-- {
		if fk, ok := byID[id]; ok {
			table.ForeignKeys = append(table.ForeignKeys, *fk)
		}
	}
	return nil
}

// mapAction downgrades ON DELETE actions Oracle cannot express to NO ACTION.
func (d *DB) mapAction(tableName, clause, action string) types.RefAction {
	switch strings.ToUpper(action) {
	case "CASCADE":
		return types.ActionCascade
	case "SET NULL":
		return types.ActionSetNull
	case "NO ACTION", "":
		return types.ActionNoAction
	default:
		d.log.Warnw("Downgrading unsupported foreign key action",
			"table", tableName, "clause", clause, "action", action)
		return types.ActionNoAction
	}
}

// mapUpdateAction downgrades every non-default ON UPDATE action: Oracle has
// no ON UPDATE clause at all.
func (d *DB) mapUpdateAction(tableName, action string) types.RefAction {
	upper := strings.ToUpper(action)
	if upper != "NO ACTION" && upper != "" {
		d.log.Warnw("Downgrading unsupported foreign key action",
			"table", tableName, "clause", "ON UPDATE", "action", action)
	}
	return types.ActionNoAction
}

// readIndexes collects secondary indexes, skipping the ones SQLite creates
// for the primary key and any the target cannot express directly.
func (d *DB) readIndexes(ctx context.Context, table *types.TableDescriptor) error {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_list(%s)", quote(table.Name)))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	type idx struct {
		name   string
		unique bool
	}
	var candidates []idx

	for rows.Next() {
		var (
			seq     int
			name    string
			unique  int
			origin  string
			partial int
		)
		if err := rows.Scan(&seq, &name, &unique, &origin, &partial); err != nil {
			return err
		}
		if origin == "pk" {
			continue
		}
		if partial != 0 {
			d.log.Warnw("Skipping partial index", "table", table.Name, "index", name)
			continue
		}
		candidates = append(candidates, idx{name: name, unique: unique != 0})
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, c := range candidates {
		cols, err := d.indexColumns(ctx, c.name)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			// Expression indexes report NULL column names.
			d.log.Warnw("Skipping expression index", "table", table.Name, "index", c.name)
			continue
		}
		table.Indexes = append(table.Indexes, types.IndexDescriptor{
			Name:    c.name,
			Columns: cols,
			Unique:  c.unique,
		})
	}
	return nil
}

func (d *DB) indexColumns(ctx context.Context, indexName string) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, fmt.Sprintf("PRAGMA index_info(%s)", quote(indexName)))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var cols []string
	for rows.Next() {
		var (
			seqno, cid int
			name       sql.NullString
		)
		if err := rows.Scan(&seqno, &cid, &name); err != nil {
			return nil, err
		}
		if !name.Valid {
			return nil, nil
		}
		cols = append(cols, name.String)
	}
	return cols, rows.Err()
}

// resolveImplicitFKTargets fills in reference columns for foreign keys that
// point at another table's implicit primary key. Done after all tables exist
// since the referenced table may be declared later in the file.
func resolveImplicitFKTargets(schema *types.Schema) {
	for _, table := range schema.Tables() {
		for i := range table.ForeignKeys {
			fk := &table.ForeignKeys[i]
			if len(fk.RefColumns) > 0 {
				continue
			}
			if ref := schema.Table(fk.RefTable); ref != nil {
				fk.RefColumns = append(fk.RefColumns, ref.PrimaryKeys...)
			}
		}
	}
}

// CountRows returns the row count for a table.
func (d *DB) CountRows(ctx context.Context, table string) (int64, error) {
	var count int64
	err := d.db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", quote(table))).Scan(&count)
	if err != nil {
		return 0, &SourceReadError{Path: d.path, Err: fmt.Errorf("count %s: %w", table, err)}
	}
	return count, nil
}

// Rows streams all rows of a table with columns in descriptor order.
func (d *DB) Rows(ctx context.Context, table string, columns []string) (*sql.Rows, error) {
	quoted := make([]string, len(columns))
	for i, c := range columns {
		quoted[i] = quote(c)
	}
	query := fmt.Sprintf("SELECT %s FROM %s", strings.Join(quoted, ", "), quote(table))
	rows, err := d.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &SourceReadError{Path: d.path, Err: fmt.Errorf("read %s: %w", table, err)}
	}
	return rows, nil
}

// MaxTextLength returns the longest stored value of a text column, used when
// sampling is enabled to decide VARCHAR2 versus CLOB.
func (d *DB) MaxTextLength(ctx context.Context, table, column string) (int64, error) {
	var max sql.NullInt64
	query := fmt.Sprintf("SELECT MAX(LENGTH(%s)) FROM %s", quote(column), quote(table))
	if err := d.db.QueryRowContext(ctx, query).Scan(&max); err != nil {
		return 0, &SourceReadError{Path: d.path, Err: fmt.Errorf("sample %s.%s: %w", table, column, err)}
	}
	return max.Int64, nil
}

// quote wraps an identifier in double quotes with embedded quotes doubled.
func quote(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}
