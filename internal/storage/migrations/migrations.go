// Package migrations applies the embedded PostgreSQL and ClickHouse schema.
// Every file is idempotent (IF NOT EXISTS), so migrations run on every startup.
package migrations

import (
	"context"
	"fmt"
	"io/fs"
	"net/url"
	"path"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
)

// Backend directories inside the embedded schema.
const (
	BackendPostgres   = "postgres"
	BackendClickhouse = "clickhouse"
)

// PostgresExecer runs a multi-statement script. Satisfied by pgxpool.Pool and pgx.Conn.
type PostgresExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// ClickhouseExecer runs one statement. Satisfied by the clickhouse-go driver.Conn.
type ClickhouseExecer interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// Files lists the migration files of a backend in apply order.
func Files(backend string) ([]string, error) {
	entries, err := fs.ReadDir(schema, backend)
	if err != nil {
		return nil, fmt.Errorf("read embedded %s migrations: %w", backend, err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

func read(backend, file string) (string, error) {
	data, err := fs.ReadFile(schema, path.Join(backend, file))
	if err != nil {
		return "", fmt.Errorf("read migration %s/%s: %w", backend, file, err)
	}
	return string(data), nil
}

// Postgres applies every PostgreSQL file. Files run whole; pgx sends them as one simple query.
func Postgres(ctx context.Context, db PostgresExecer) error {
	files, err := Files(BackendPostgres)
	if err != nil {
		return err
	}
	for _, file := range files {
		sql, err := read(BackendPostgres, file)
		if err != nil {
			return err
		}
		if strings.TrimSpace(sql) == "" {
			continue
		}
		if _, err := db.Exec(ctx, sql); err != nil {
			return fmt.Errorf("apply migration %s: %w", file, err)
		}
	}
	return nil
}

// Clickhouse applies every ClickHouse file statement by statement;
// the native protocol accepts one statement per Exec.
func Clickhouse(ctx context.Context, db ClickhouseExecer) error {
	files, err := Files(BackendClickhouse)
	if err != nil {
		return err
	}
	for _, file := range files {
		sql, err := read(BackendClickhouse, file)
		if err != nil {
			return err
		}
		if err := validateNoSemicolonInStrings(sql); err != nil {
			return fmt.Errorf("validate migration %s: %w", file, err)
		}
		for _, stmt := range splitStatements(sql) {
			if err := db.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply migration %s: %w", file, err)
			}
		}
	}
	return nil
}

// CreateClickhouseDatabase creates name on a connection opened without a default database.
func CreateClickhouseDatabase(ctx context.Context, admin ClickhouseExecer, name string) error {
	if name == "" || strings.ContainsAny(name, " ;`'\"") {
		return fmt.Errorf("invalid clickhouse database name %q", name)
	}
	if err := admin.Exec(ctx, "CREATE DATABASE IF NOT EXISTS "+name); err != nil {
		return fmt.Errorf("create database %s: %w", name, err)
	}
	return nil
}

// ClickhouseDatabase returns the database named in the DSN path.
func ClickhouseDatabase(dsn string) (string, error) {
	u, err := url.Parse(dsn)
	if err != nil {
		return "", fmt.Errorf("parse clickhouse dsn: %w", err)
	}
	db := strings.TrimPrefix(u.Path, "/")
	if db == "" {
		return "", fmt.Errorf("clickhouse dsn missing database")
	}
	return db, nil
}

// splitStatements drops blank and "--" comment lines, then splits on semicolons.
// Migrations must not put semicolons inside string literals or block comments.
func splitStatements(input string) []string {
	var kept []string
	for _, line := range strings.Split(input, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "--") {
			continue
		}
		kept = append(kept, line)
	}

	var stmts []string
	for _, part := range strings.Split(strings.Join(kept, "\n"), ";") {
		if stmt := strings.TrimSpace(part); stmt != "" {
			stmts = append(stmts, stmt)
		}
	}
	return stmts
}

// validateNoSemicolonInStrings rejects SQL with a semicolon inside a quoted literal.
func validateNoSemicolonInStrings(sql string) error {
	inString := false
	for i := 0; i < len(sql); i++ {
		switch sql[i] {
		case '\'':
			if inString && i+1 < len(sql) && sql[i+1] == '\'' {
				i++
				continue
			}
			inString = !inString
		case ';':
			if inString {
				return fmt.Errorf("semicolon inside string literal at offset %d", i)
			}
		}
	}
	return nil
}
