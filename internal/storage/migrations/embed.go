package migrations

import "embed"

// schema holds the SQL files, one directory per backend.
//
//go:embed postgres/*.sql clickhouse/*.sql
var schema embed.FS
