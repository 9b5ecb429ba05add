package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dbsmedya/sqlora/internal/sqlutil"
)

// Provision creates the target user with the grants the migration needs.
// An existing user is reused as-is; recreating it is a separate, explicitly
// destructive operation (DropUser).
func (m *Manager) Provision(ctx context.Context, username, password string) error {
	log := m.log.WithUser(username)

	create := fmt.Sprintf(`CREATE USER %s IDENTIFIED BY "%s"`, username, strings.ReplaceAll(password, `"`, `""`))
	if _, err := m.Admin.ExecContext(ctx, create); err != nil {
		if Classify(err) != ClassAlreadyExists {
			return &ExecutionError{Statement: "CREATE USER", Err: err}
		}
		log.Infow("user already exists, reusing")
	} else {
		log.Infow("user created")
	}

	if _, err := m.Admin.ExecContext(ctx, fmt.Sprintf("GRANT CONNECT, RESOURCE TO %s", username)); err != nil {
		return &ExecutionError{Statement: "GRANT CONNECT, RESOURCE", Err: err}
	}

	// Some editions reject per-tablespace quotas for locally managed users;
	// fall back to the blanket grant.
	if _, err := m.Admin.ExecContext(ctx, fmt.Sprintf("ALTER USER %s QUOTA UNLIMITED ON USERS", username)); err != nil {
		log.Warnw("quota grant failed, falling back to UNLIMITED TABLESPACE", "error", err)
		if _, err := m.Admin.ExecContext(ctx, fmt.Sprintf("GRANT UNLIMITED TABLESPACE TO %s", username)); err != nil {
			return &ExecutionError{Statement: "GRANT UNLIMITED TABLESPACE", Err: err}
		}
	}

	return nil
}

// DropUser removes the target user and everything it owns. The caller must
// have collected an explicit confirmation before invoking this.
func (m *Manager) DropUser(ctx context.Context, username string) error {
	log := m.log.WithUser(username)

	stmt := fmt.Sprintf("DROP USER %s CASCADE", username)
	if _, err := m.Admin.ExecContext(ctx, stmt); err != nil {
		if Classify(err) == ClassMissing {
			log.Infow("user does not exist, nothing to drop")
			return nil
		}
		return &ExecutionError{Statement: "DROP USER CASCADE", Err: err}
	}

	log.Infow("user dropped")
	return nil
}

// DropTables drops every table the connected user owns, leaving the user and
// its grants in place. CASCADE CONSTRAINTS makes the drop order irrelevant.
func (m *Manager) DropTables(ctx context.Context, db *sql.DB) error {
	tables, err := ListTables(ctx, db)
	if err != nil {
		return err
	}

	for _, table := range tables {
		name, err := sqlutil.QuoteIdentifierSafe(table)
		if err != nil {
			return err
		}
		stmt := fmt.Sprintf("DROP TABLE %s CASCADE CONSTRAINTS", name)
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			if Classify(err) == ClassMissing {
				continue
			}
			return &ExecutionError{Statement: stmt, Err: err}
		}
		m.log.Debugw("table dropped", "table", table)
	}

	m.log.Infow("existing tables dropped", "count", len(tables))
	return nil
}
