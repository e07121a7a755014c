package migrations

import "embed"

// FS contains the embedded SQL store migrations.
//
//go:embed *.sql
var FS embed.FS
