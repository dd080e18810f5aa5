package auth

import (
	"bytes"
	"errors"
)

type DBChain interface {
	ID() int
	Name() string
	Groups() ([]int, error) // can be empty
}

type ChainDB interface {
	Delete(c DBChain) error
	GetAllChains(limit, offset int) ([]DBChain, error)
	GetChain(id int) (DBChain, error)
	GetChainByName(name string) (DBChain, error)
	InsertChain(name string) (DBChain, error)
	UpdateChain(c DBChain, groups []int) error
}

// Chain wraps DBChain and caches its Groups.
type Chain struct {
	DBChain
	groupDB      GroupDB
	groups       []Group
	groupsLoaded bool
}

// Groups shadows Chain.DBChain.Groups.
func (c *Chain) Groups() ([]Group, error) {

	if !c.groupsLoaded {

		groupIDs, err := c.DBChain.Groups()
		if err != nil {
			return nil, err
		}

		for _, groupID := range groupIDs {
			group, err := c.groupDB.GetGroup(groupID)
			if err != nil {
				return nil, err
			}
			c.groups = append(c.groups, group)
		}

		c.groupsLoaded = true
	}

	return c.groups, nil
}

func (c *Chain) String() string {
	var buf bytes.Buffer
	buf.WriteString(c.Name())
	groups, _ := c.Groups()
	if len(groups) > 0 {
		buf.WriteString(" (")
		for i, group := range groups {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(group.Name())
		}
		buf.WriteString(")")
	}
	return buf.String()
}

func (a *AuthDB) wrapChain(c DBChain) *Chain {
	return &Chain{
		DBChain: c,
		groupDB: a.GroupDB,
	}
}

// GetAllChains shadows AuthDB.ChainDB.GetAllChains.
func (a *AuthDB) GetAllChains(limit, offset int) ([]*Chain, error) {
	var chains, err = a.ChainDB.GetAllChains(limit, offset)
	var result = make([]*Chain, len(chains))
	for i := range chains {
		result[i] = a.wrapChain(chains[i])
	}
	return result, err
}

// GetChain shadows AuthDB.ChainDB.GetChain.
func (a *AuthDB) GetChain(id int) (*Chain, error) {
	var c, err = a.ChainDB.GetChain(id)
	if err != nil {
		return nil, err
	}
	return a.wrapChain(c), nil
}

// UpdateChain shadows AuthDB.ChainDB.UpdateChain.
func (a *AuthDB) UpdateChain(c DBChain, groupIDs []int) error {
	if len(groupIDs) == 0 {
		return errors.New("chain must contain at least one group")
	}
	for _, groupID := range groupIDs {
		if groupID == 0 {
			return errors.New("all users is not allowed in chain")
		}
	}
	return a.ChainDB.UpdateChain(c, groupIDs)
}
