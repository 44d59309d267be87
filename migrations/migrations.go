// Package migrations embeds the SQL schema applied by cmd/server at startup.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
