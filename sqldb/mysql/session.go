// Package mysql registers the mysql driver and provides a session store.
package mysql

import (
	"github.com/alexedwards/scs/mysqlstore"
	"github.com/alexedwards/scs/v2"
	_ "github.com/go-sql-driver/mysql"

	"github.com/wansing/docflow/sqldb"
)

func NewSessionStore(db *sqldb.DB) (scs.Store, error) {

	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS sessions (
			token CHAR(43) PRIMARY KEY,
			data BLOB NOT NULL,
			expiry TIMESTAMP(6) NOT NULL,
			INDEX sessions_expiry_idx (expiry)
		)`); err != nil {
		return nil, err
	}

	return mysqlstore.New(db.DB), nil
}
