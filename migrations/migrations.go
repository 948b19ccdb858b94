// Package migrations embeds the goose SQL migrations for the catalog schema.
package migrations

import "embed"

// FS holds the migration files; goose reads them from its root.
//
//go:embed *.sql
var FS embed.FS
