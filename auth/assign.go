package auth

import (
	"github.com/wansing/docflow/core"
)

// An AssignDB assigns review chains to paths.
// A path can bear zero or one chains for itself and zero or one chains for everything below it.
type AssignDB interface {
	AssignChainID(path string, childrenOnly bool, chainID int) error
	GetAssignedChainID(path string, childrenOnly bool) (int, error) // zero if not assigned
	GetAllChainAssignments() (map[string]map[bool]int, error)       // path -> childrenOnly -> chain id
	UnassignChain(path string, childrenOnly bool) error
}

// AssignChain shadows AuthDB.AssignDB.AssignChainID.
func (a *AuthDB) AssignChain(path string, childrenOnly bool, chainID int) error {
	path, err := core.CleanPath(path)
	if err != nil {
		return err
	}
	if _, err := a.ChainDB.GetChain(chainID); err != nil {
		return err
	}
	return a.AssignDB.AssignChainID(path, childrenOnly, chainID)
}

// GetChainOf returns the chain which applies (but is not necessarily directly assigned) to the path.
func (a *AuthDB) GetChainOf(path string) (*Chain, error) {

	// check path itself (with childrenOnly == false)

	chain, err := a.getAssignedChain(path, false)
	if err != nil {
		return nil, err
	}
	if chain != nil {
		return chain, nil
	}

	if path != "/" {

		var parent = core.ParentPath(path)

		// check parent with childrenOnly == true

		chain, err = a.getAssignedChain(parent, true)
		if err != nil {
			return nil, err
		}
		if chain != nil {
			return chain, nil
		}

		// else recurse to parent

		return a.GetChainOf(parent)
	}

	return nil, ErrNoChain
}

func (a *AuthDB) getAssignedChain(path string, childrenOnly bool) (*Chain, error) {
	var chainID, err = a.AssignDB.GetAssignedChainID(path, childrenOnly)
	if err != nil {
		return nil, err
	}
	if chainID == 0 {
		return nil, nil
	}
	return a.GetChain(chainID)
}

// ReleaseState returns the ReleaseState which describes the relation between a document path and a user.
func (a *AuthDB) ReleaseState(path string, u User) (*ReleaseState, error) {
	var chain, err = a.GetChainOf(path)
	if err != nil {
		return nil, err
	}
	return GetReleaseState(chain, u)
}
