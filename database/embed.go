package database

import "embed"

// EmbeddedMigrations holds migrations/*.sql; use Migrations for an fs.FS
// rooted at that directory.
//
//go:embed migrations/*.sql
var EmbeddedMigrations embed.FS
