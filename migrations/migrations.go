// Package migrations embeds the PostgreSQL schema and seed files.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed sql/*.sql seeds/*.sql
var files embed.FS

// SQL returns the schema migrations.
func SQL() fs.FS {
	sub, err := fs.Sub(files, "sql")
	if err != nil {
		panic(err)
	}
	return sub
}

// Seeds returns the demo data seeds.
func Seeds() fs.FS {
	sub, err := fs.Sub(files, "seeds")
	if err != nil {
		panic(err)
	}
	return sub
}
