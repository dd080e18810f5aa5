package auth

import (
	"errors"

	"github.com/wansing/docflow/core"
)

type AccessDB interface {
	GetAccessRules(path string) (map[int]int, error)    // group id -> permission
	GetAllAccessRules() (map[string]map[int]int, error) // path -> (group id -> permission)
	InsertAccessRule(path string, groupID int, perm int) error
	RemoveAccessRule(path string, groupID int) error
}

// AddAccessRule shadows AuthDB.AccessDB.InsertAccessRule.
func (a *AuthDB) AddAccessRule(path string, groupID int, perm Permission) error {
	if !perm.Valid() {
		return errors.New("invalid permission")
	}
	path, err := core.CleanPath(path)
	if err != nil {
		return err
	}
	group, err := a.GetGroup(groupID)
	if err != nil {
		return err
	}
	return a.AccessDB.InsertAccessRule(path, group.ID(), int(perm))
}

// HasPermission is like RequirePermission, but returns a bool.
func (a *AuthDB) HasPermission(perm Permission, path string, u User) (bool, error) {
	switch err := a.RequirePermission(perm, path, u); err {
	case nil:
		return true, nil
	case ErrUnauthorized:
		return false, nil
	default:
		return false, err
	}
}

// RequirePermission returns ErrUnauthorized if the given user does not have the given permission on the path.
// Rules are inherited from the folders above the path. On failure, it makes use of the convention that "edit" implies "read".
func (a *AuthDB) RequirePermission(perm Permission, path string, u User) error {

	groups, err := a.GetGroupsOf(u)
	if err != nil {
		return err
	}
	groups = append(groups, AllUsers{})

	for _, ancestor := range core.Ancestors(path) {
		switch err := a.requireRule(perm, ancestor, u, groups); err {
		case nil:
			return nil
		case ErrUnauthorized:
			continue
		default:
			return err
		}
	}

	// edit implies read

	if perm == Read && u != nil {
		rs, err := a.ReleaseState(path, u)
		if err == ErrNoChain {
			return ErrUnauthorized
		}
		if err != nil {
			return err
		}
		if rs.CanEdit() {
			return nil // authorized
		}
	}

	return ErrUnauthorized
}

// requireRule checks if a path has a rule which gives permission to one of the groups.
func (a *AuthDB) requireRule(required Permission, path string, u User, groups []Group) error {

	if u == nil && required > Read {
		return ErrUnauthorized
	}

	rules, err := a.GetAccessRules(path)
	if err != nil {
		return err
	}

	for _, group := range groups {
		if myPermission, ok := rules[group.ID()]; ok {
			var myPerm = Permission(myPermission)
			if !myPerm.Valid() {
				return errors.New("invalid permission")
			}
			if myPerm >= required {
				return nil
			}
		}
	}

	return ErrUnauthorized
}
