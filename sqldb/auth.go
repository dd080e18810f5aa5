package sqldb

import (
	"github.com/wansing/docflow/auth"
)

// NewAuthDB creates the tables of users, groups, chains, chain assignments and access rules.
func NewAuthDB(db *DB) *auth.AuthDB {
	return &auth.AuthDB{
		AccessDB: NewAccessDB(db),
		AssignDB: NewAssignDB(db),
		ChainDB:  NewChainDB(db),
		GroupDB:  NewGroupDB(db),
		UserDB:   NewUserDB(db),
	}
}
