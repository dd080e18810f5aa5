package auth

// A ReleaseState contains the relation between a document path and a user, with respect to the review chain of the path.
//
// It follows the subset model (see the package comment).
type ReleaseState struct {
	chain    *Chain
	groups   []Group // cached
	isMember []bool  // cached, refers to groups
}

func GetReleaseState(chain *Chain, user User) (*ReleaseState, error) {

	groups, err := chain.Groups()
	if err != nil {
		return nil, err
	}

	var isMember = make([]bool, len(groups))
	if user != nil {
		for i := range groups {
			isMember[i], err = groups[i].HasMember(user)
			if err != nil {
				return nil, err
			}
		}
	}

	return &ReleaseState{
		chain:    chain,
		groups:   groups,
		isMember: isMember,
	}, nil
}

// CanEdit returns whether the user is a member of any group of the chain.
func (rs *ReleaseState) CanEdit() bool {
	for _, is := range rs.isMember {
		if is {
			return true
		}
	}
	return false
}

// CanPublish returns whether the user is a member of the last group of the chain.
func (rs *ReleaseState) CanPublish() bool {
	return len(rs.isMember) > 0 && rs.isMember[len(rs.isMember)-1]
}

// PublishGroup returns the last group of the chain, or nil if the chain is empty.
func (rs *ReleaseState) PublishGroup() Group {
	if len(rs.groups) == 0 {
		return nil
	}
	return rs.groups[len(rs.groups)-1]
}

func (rs *ReleaseState) Chain() *Chain {
	return rs.chain
}
