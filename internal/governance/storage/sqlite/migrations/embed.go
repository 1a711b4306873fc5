// Package migrations embeds the governance schema migration files.
package migrations

import "embed"

// FS holds the SQL migration files applied at store open.
//
//go:embed *.sql
var FS embed.FS
