package migrations

import "embed"

// FS contains embedded SQLite migrations for fundlock storage.
//
//go:embed *.sql
var FS embed.FS
