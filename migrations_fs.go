package bankconnect

import (
	"embed"
	"io/fs"
)

// migrationsFS holds the token schema migration tree, with the sqlite
// dialect alternative under data/sql/migrations/sqlite.
//
//go:embed data/sql/migrations/*.sql data/sql/migrations/sqlite/*.sql
var migrationsFS embed.FS

// GetMigrationsFS returns the embedded migration tree.
func GetMigrationsFS() fs.FS {
	return migrationsFS
}
