package migrations

import "embed"

// FS migraciones SQL del kardex, aplicadas en orden de nombre.
//
//go:embed *.sql
var FS embed.FS
