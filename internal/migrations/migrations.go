// Package migrations embeds the SQL schema migrations applied at worker startup
package migrations

import "embed"

// Files holds the embedded migration SQL, applied in filename order
//
//go:embed *.sql
var Files embed.FS
