// Package migrations holds the embedded Postgres schema, applied with bun/migrate.
// Each file registers itself; bun derives the migration name from the file name.
package migrations

import "github.com/uptrace/bun/migrate"

var Migrations = migrate.NewMigrations()
