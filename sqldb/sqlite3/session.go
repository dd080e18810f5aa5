// Package sqlite3 registers the sqlite3 driver and provides a session store.
package sqlite3

import (
	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	_ "github.com/mattn/go-sqlite3"

	"github.com/wansing/docflow/sqldb"
)

func NewSessionStore(db *sqldb.DB) (scs.Store, error) {

	for _, stmt := range []string{
		`CREATE TABLE IF NOT EXISTS sessions (
			token TEXT PRIMARY KEY,
			data BLOB NOT NULL,
			expiry REAL NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS sessions_expiry_idx ON sessions(expiry)`,
	} {
		if _, err := db.Exec(stmt); err != nil {
			return nil, err
		}
	}

	return sqlite3store.New(db.DB), nil
}
