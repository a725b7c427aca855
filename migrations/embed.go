// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests and server bootstrap.
// Each dialect keeps its own directory; the schemas are equivalent.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed postgres/*.sql sqlite/*.sql
var files embed.FS

// PostgresFS returns the Postgres migrations rooted at their directory,
// ready for goose.NewProvider(goose.DialectPostgres, ...).
func PostgresFS() fs.FS { return sub("postgres") }

// SQLiteFS returns the SQLite migrations for goose.DialectSQLite3.
func SQLiteFS() fs.FS { return sub("sqlite") }

func sub(dir string) fs.FS {
	f, err := fs.Sub(files, dir)
	if err != nil {
		// Only fails for an invalid path, which is a compile-time constant here.
		panic("migrations: " + err.Error())
	}
	return f
}
