// Package migrations embeds the SQL migration files so they can be used
// by the goose programmatic API in tests and server bootstrap.
//
// Two sets live here: remote/ holds the Postgres schema of the shared trip
// store, and local/ holds the SQLite schema of the on-device key-value store.
package migrations

import (
	"embed"
	"io/fs"
)

//go:embed remote/*.sql local/*.sql
var embedded embed.FS

// Remote returns the Postgres migrations for the remote trip store.
// Pass it to goose.NewProvider with goose.DialectPostgres.
func Remote() fs.FS {
	return mustSub("remote")
}

// Local returns the SQLite migrations for the local key-value store.
// Pass it to goose.NewProvider with goose.DialectSQLite3.
func Local() fs.FS {
	return mustSub("local")
}

func mustSub(dir string) fs.FS {
	sub, err := fs.Sub(embedded, dir)
	if err != nil {
		// Unreachable: dir is embedded above.
		panic("migrations: " + err.Error())
	}
	return sub
}
