package transfer

import (
	"context"
	"database/sql"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dbsmedya/sqlora/internal/ddl"
	"github.com/dbsmedya/sqlora/internal/sqlite"
	"github.com/dbsmedya/sqlora/internal/typemap"
	"github.com/dbsmedya/sqlora/internal/types"
)

func sourceFixture(t *testing.T, stmts ...string) *sqlite.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "fixture.sqlite")
	db, err := sql.Open("sqlite", path)
	require.NoError(t, err)
	for _, stmt := range stmts {
		_, err := db.Exec(stmt)
		require.NoError(t, err, "statement: %s", stmt)
	}
	require.NoError(t, db.Close())

	src, err := sqlite.Open(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = src.Close() })
	return src
}

func scriptFor(t *testing.T, src *sqlite.DB) (*types.Schema, *ddl.Script) {
	t.Helper()

	schema, err := src.Extract(context.Background())
	require.NoError(t, err)
	require.NoError(t, typemap.Resolve(schema, typemap.Options{}))

	script, err := ddl.Generate(schema, ddl.Options{Mode: types.ModeFull})
	require.NoError(t, err)
	return schema, script
}

func mockTarget(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

const usersInsert = "INSERT INTO USERS (ID, NAME) VALUES (:1, :2)"

func expectBatch(mock sqlmock.Sqlmock, insert string, rows int) {
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(insert))
	for i := 0; i < rows; i++ {
		prep.ExpectExec().WillReturnResult(sqlmock.NewResult(0, 1))
	}
	mock.ExpectCommit()
}

func TestTransfer_BatchBoundaries(t *testing.T) {
	src := sourceFixture(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO users (name) VALUES ('a'), ('b'), ('c')",
	)
	_, script := scriptFor(t, src)
	target, mock := mockTarget(t)

	// Three rows with a batch size of two: a full batch, then the remainder.
	expectBatch(mock, usersInsert, 2)
	expectBatch(mock, usersInsert, 1)

	engine, err := New(src, target, script, Options{BatchSize: 2}, nil)
	require.NoError(t, err)

	stats, err := engine.Transfer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TablesTransferred)
	assert.Equal(t, int64(3), stats.RowsTransferred)
	assert.Equal(t, int64(3), stats.RowsPerTable["users"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_FailedBatchRollsBack(t *testing.T) {
	src := sourceFixture(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO users (name) VALUES ('a'), ('b'), ('c')",
	)
	_, script := scriptFor(t, src)
	target, mock := mockTarget(t)

	expectBatch(mock, usersInsert, 2)
	mock.ExpectBegin()
	prep := mock.ExpectPrepare(regexp.QuoteMeta(usersInsert))
	prep.ExpectExec().WillReturnError(fmt.Errorf("ORA-01400: cannot insert NULL"))
	mock.ExpectRollback()

	engine, err := New(src, target, script, Options{BatchSize: 2}, nil)
	require.NoError(t, err)

	stats, err := engine.Transfer(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "users")

	// Only the committed batch counts.
	assert.Equal(t, int64(2), stats.RowsTransferred)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_ContinueOnError(t *testing.T) {
	src := sourceFixture(t,
		"CREATE TABLE bad (id INTEGER PRIMARY KEY, v TEXT)",
		"CREATE TABLE good (id INTEGER PRIMARY KEY, v TEXT)",
		"INSERT INTO bad (v) VALUES ('x')",
		"INSERT INTO good (v) VALUES ('y')",
	)
	_, script := scriptFor(t, src)
	target, mock := mockTarget(t)

	mock.ExpectBegin()
	badPrep := mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO BAD (ID, V) VALUES (:1, :2)"))
	badPrep.ExpectExec().WillReturnError(fmt.Errorf("ORA-12899: value too large for column"))
	mock.ExpectRollback()

	expectBatch(mock, "INSERT INTO GOOD (ID, V) VALUES (:1, :2)", 1)

	engine, err := New(src, target, script, Options{BatchSize: 10, ContinueOnError: true}, nil)
	require.NoError(t, err)

	stats, err := engine.Transfer(context.Background())
	require.NoError(t, err, "continue-on-error must not abort the transfer")

	assert.Equal(t, []string{"bad"}, stats.TablesFailed)
	assert.Equal(t, 1, stats.TablesTransferred)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_SkipsEmptyTables(t *testing.T) {
	src := sourceFixture(t, "CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)")
	_, script := scriptFor(t, src)
	target, mock := mockTarget(t)

	engine, err := New(src, target, script, Options{}, nil)
	require.NoError(t, err)

	stats, err := engine.Transfer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.TablesTransferred)
	assert.Equal(t, 1, stats.TablesSkipped)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_Cancelled(t *testing.T) {
	src := sourceFixture(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO users (name) VALUES ('a')",
	)
	_, script := scriptFor(t, src)
	target, _ := mockTarget(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	engine, err := New(src, target, script, Options{}, nil)
	require.NoError(t, err)

	_, err = engine.Transfer(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestTransfer_EmitSQL(t *testing.T) {
	src := sourceFixture(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"INSERT INTO users (name) VALUES ('O''Brien')",
	)
	_, script := scriptFor(t, src)
	target, mock := mockTarget(t)

	expectBatch(mock, usersInsert, 1)

	var emitted []string
	engine, err := New(src, target, script, Options{
		EmitSQL: func(stmt string) { emitted = append(emitted, stmt) },
	}, nil)
	require.NoError(t, err)

	_, err = engine.Transfer(context.Background())
	require.NoError(t, err)

	require.Len(t, emitted, 1)
	assert.Equal(t, "INSERT INTO USERS (ID, NAME) VALUES (1, 'O''Brien')", emitted[0])
}

func TestTransfer_BulkRows(t *testing.T) {
	faker := gofakeit.New(11)

	stmts := []string{"CREATE TABLE people (id INTEGER PRIMARY KEY, name TEXT, city TEXT)"}
	for i := 0; i < 25; i++ {
		name := strings.ReplaceAll(faker.Name(), "'", "''")
		city := strings.ReplaceAll(faker.City(), "'", "''")
		stmts = append(stmts, fmt.Sprintf("INSERT INTO people (name, city) VALUES ('%s', '%s')", name, city))
	}
	src := sourceFixture(t, stmts...)
	_, script := scriptFor(t, src)
	target, mock := mockTarget(t)

	peopleInsert := "INSERT INTO PEOPLE (ID, NAME, CITY) VALUES (:1, :2, :3)"
	expectBatch(mock, peopleInsert, 10)
	expectBatch(mock, peopleInsert, 10)
	expectBatch(mock, peopleInsert, 5)

	engine, err := New(src, target, script, Options{BatchSize: 10}, nil)
	require.NoError(t, err)

	stats, err := engine.Transfer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, int64(25), stats.RowsTransferred)
	assert.Equal(t, 1, stats.TablesTransferred)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransfer_OnlyFilter(t *testing.T) {
	src := sourceFixture(t,
		"CREATE TABLE users (id INTEGER PRIMARY KEY, name TEXT)",
		"CREATE TABLE orders (id INTEGER PRIMARY KEY, note TEXT)",
		"INSERT INTO users (name) VALUES ('a')",
		"INSERT INTO orders (note) VALUES ('n')",
	)
	_, script := scriptFor(t, src)
	target, mock := mockTarget(t)

	// Only users is expected; orders must never be touched.
	expectBatch(mock, usersInsert, 1)

	engine, err := New(src, target, script, Options{Only: []string{"USERS"}}, nil)
	require.NoError(t, err)

	stats, err := engine.Transfer(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.TablesTransferred)
	assert.Equal(t, int64(1), stats.RowsTransferred)
	assert.NotContains(t, stats.RowsPerTable, "orders")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestNew_Validation(t *testing.T) {
	src := sourceFixture(t, "CREATE TABLE t (id INTEGER PRIMARY KEY)")
	_, script := scriptFor(t, src)
	target, _ := mockTarget(t)

	_, err := New(nil, target, script, Options{}, nil)
	assert.Error(t, err)

	_, err = New(src, nil, script, Options{}, nil)
	assert.Error(t, err)

	_, err = New(src, target, nil, Options{}, nil)
	assert.Error(t, err)

	engine, err := New(src, target, script, Options{BatchSize: -1}, nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchSize, engine.opts.BatchSize)
}
