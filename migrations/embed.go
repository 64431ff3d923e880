// Package migrations embeds the Postgres schema migrations
package migrations

import "embed"

// FS holds the numbered up and down SQL files
//
//go:embed *.sql
var FS embed.FS
