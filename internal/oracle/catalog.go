package oracle

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dbsmedya/sqlora/internal/sqlutil"
)

// CatalogColumn is one column as the Oracle data dictionary describes it.
type CatalogColumn struct {
	Name     string
	DataType string
	Nullable bool
}

// Preflight verifies the connection answers a trivial query.
func Preflight(ctx context.Context, db *sql.DB) error {
	var one int
	if err := db.QueryRowContext(ctx, "SELECT 1 FROM DUAL").Scan(&one); err != nil {
		return fmt.Errorf("preflight query failed: %w", err)
	}
	return nil
}

// ListTables returns the connected user's table names, sorted.
func ListTables(ctx context.Context, db *sql.DB) ([]string, error) {
	rows, err := db.QueryContext(ctx, "SELECT table_name FROM user_tables ORDER BY table_name")
	if err != nil {
		return nil, fmt.Errorf("listing tables: %w", err)
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// TableColumns returns a table's columns in dictionary order (COLUMN_ID).
func TableColumns(ctx context.Context, db *sql.DB, table string) ([]CatalogColumn, error) {
	rows, err := db.QueryContext(ctx,
		"SELECT column_name, data_type, nullable FROM user_tab_columns WHERE table_name = :1 ORDER BY column_id",
		table)
	if err != nil {
		return nil, fmt.Errorf("describing table %s: %w", table, err)
	}
	defer rows.Close()

	var cols []CatalogColumn
	for rows.Next() {
		var c CatalogColumn
		var nullable string
		if err := rows.Scan(&c.Name, &c.DataType, &nullable); err != nil {
			return nil, err
		}
		c.Nullable = nullable == "Y"
		cols = append(cols, c)
	}
	return cols, rows.Err()
}

// CountRows returns the row count of one table.
func CountRows(ctx context.Context, db *sql.DB, table string) (int64, error) {
	name, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return 0, err
	}

	var count int64
	if err := db.QueryRowContext(ctx, fmt.Sprintf("SELECT COUNT(*) FROM %s", name)).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting rows in %s: %w", table, err)
	}
	return count, nil
}
