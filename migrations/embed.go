// Package migrations embeds the SQL migrations for the user context table.
package migrations

import "embed"

// FS holds the embedded SQL migration files.
//
//go:embed *.sql
var FS embed.FS
