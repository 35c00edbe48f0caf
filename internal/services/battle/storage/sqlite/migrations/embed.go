package migrations

import "embed"

// FS contains embedded SQLite migrations for the battle archive.
//
//go:embed *.sql
var FS embed.FS
