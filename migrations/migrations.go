// Package migrations embeds the goose SQL migrations of the account server.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
