package migrations

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFiles(t *testing.T) {
	pg, err := Files(BackendPostgres)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_trade_records.sql", "002_directory.sql"}, pg)

	ch, err := Files(BackendClickhouse)
	require.NoError(t, err)
	assert.Equal(t, []string{"001_equity_snapshots.sql"}, ch)

	_, err = Files("mysql")
	assert.Error(t, err)
}

type recordingPG struct {
	scripts []string
	failOn  string
}

func (r *recordingPG) Exec(_ context.Context, sql string, _ ...any) (pgconn.CommandTag, error) {
	if r.failOn != "" && strings.Contains(sql, r.failOn) {
		return pgconn.CommandTag{}, errors.New("boom")
	}
	r.scripts = append(r.scripts, sql)
	return pgconn.CommandTag{}, nil
}

type recordingCH struct {
	stmts []string
}

func (r *recordingCH) Exec(_ context.Context, query string, _ ...any) error {
	r.stmts = append(r.stmts, query)
	return nil
}

func TestPostgres_AppliesFilesInOrder(t *testing.T) {
	db := &recordingPG{}
	require.NoError(t, Postgres(context.Background(), db))
	require.Len(t, db.scripts, 2)
	assert.Contains(t, db.scripts[0], "trade_records")
	assert.Contains(t, db.scripts[1], "profiles")
}

func TestPostgres_StopsOnError(t *testing.T) {
	db := &recordingPG{failOn: "profiles"}
	err := Postgres(context.Background(), db)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "002_directory.sql")
	assert.Len(t, db.scripts, 1)
}

func TestClickhouse_OneStatementPerExec(t *testing.T) {
	db := &recordingCH{}
	require.NoError(t, Clickhouse(context.Background(), db))
	require.NotEmpty(t, db.stmts)
	for _, s := range db.stmts {
		assert.NotContains(t, s, ";")
	}
	assert.Contains(t, strings.Join(db.stmts, "\n"), "equity_snapshots")
}

func TestCreateClickhouseDatabase(t *testing.T) {
	db := &recordingCH{}
	require.NoError(t, CreateClickhouseDatabase(context.Background(), db, "ops"))
	assert.Equal(t, []string{"CREATE DATABASE IF NOT EXISTS ops"}, db.stmts)

	assert.Error(t, CreateClickhouseDatabase(context.Background(), db, "ops; DROP"))
	assert.Error(t, CreateClickhouseDatabase(context.Background(), db, ""))
}

func TestSplitStatements(t *testing.T) {
	sql := `
-- comment; with semicolon
CREATE TABLE a (x String);

CREATE TABLE b (y String)
ENGINE = MergeTree();
`
	stmts := splitStatements(sql)
	require.Len(t, stmts, 2)
	assert.Equal(t, "CREATE TABLE a (x String)", stmts[0])
	assert.Contains(t, stmts[1], "ENGINE = MergeTree()")
}

func TestValidateNoSemicolonInStrings(t *testing.T) {
	assert.NoError(t, validateNoSemicolonInStrings(`SELECT 'it''s fine';`))
	assert.Error(t, validateNoSemicolonInStrings(`SELECT 'a;b';`))
}

func TestClickhouseDatabase(t *testing.T) {
	db, err := ClickhouseDatabase("clickhouse://default:@localhost:9000/ops")
	require.NoError(t, err)
	assert.Equal(t, "ops", db)

	_, err = ClickhouseDatabase("clickhouse://localhost:9000")
	assert.Error(t, err)
}
