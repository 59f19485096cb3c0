// Package migrations embeds the knives game schema migrations.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
