// Package migrations embeds the SQLite schema applied at startup.
package migrations

import "embed"

// FS holds the ordered *.up.sql migration files.
//
//go:embed *.up.sql
var FS embed.FS
