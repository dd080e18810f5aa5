package auth

import (
	"errors"
)

type AuthDB struct {
	AccessDB
	AssignDB
	ChainDB
	GroupDB
	UserDB
}

var (
	ErrEmptyPassword = errors.New("refusing to set empty password")
	ErrUnauthorized  = errors.New("unauthorized")
	ErrNoChain       = errors.New("no review chain")
)

// shadows AuthDB.UserDB.SetPassword
func (a *AuthDB) SetPassword(u User, password string) error {
	if password == "" {
		return ErrEmptyPassword
	}
	return a.UserDB.SetPassword(u, password)
}
