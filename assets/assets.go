// Package assets embeds the SQL migrations of the local database.
package assets

import (
	"embed"
	"io/fs"
)

//go:embed migrations/*.sql
var embedFS embed.FS

// Migrations returns the migration files rooted at the migrations directory.
func Migrations() fs.FS {
	sub, err := fs.Sub(embedFS, "migrations")
	if err != nil {
		// the directory is embedded, Sub only fails on an invalid name
		panic(err)
	}

	return sub
}
