// Package migrations embeds the combat document store schema.
package migrations

import "embed"

// FS holds the forward-only migrations applied at open.
//
//go:embed *.sql
var FS embed.FS
