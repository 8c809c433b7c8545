// Package migrations embeds the SQL migration files applied to the
// tasks table by golang-migrate.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
