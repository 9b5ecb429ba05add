package oracle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// ExecutionError reports a statement the target database rejected.
type ExecutionError struct {
	Statement string
	Err       error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("statement failed: %s: %v", summarize(e.Statement), e.Err)
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}

func summarize(stmt string) string {
	s := strings.Join(strings.Fields(stmt), " ")
	if len(s) > 120 {
		s = s[:117] + "..."
	}
	return s
}

// ExecScript runs DDL statements in order. Statements failing because the
// object already exists are skipped, so replaying a script into a
// half-provisioned schema converges instead of failing.
func (m *Manager) ExecScript(ctx context.Context, db *sql.DB, statements []string) error {
	for _, stmt := range statements {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if _, err := db.ExecContext(ctx, stmt); err != nil {
			switch Classify(err) {
			case ClassAlreadyExists:
				m.log.Warnw("object already exists, skipping", "statement", summarize(stmt))
				continue
			default:
				return &ExecutionError{Statement: stmt, Err: err}
			}
		}
	}
	return nil
}
