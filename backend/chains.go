package backend

import (
	"net/http"
	"sort"

	"github.com/julienschmidt/httprouter"
)

type chainJSON struct {
	ID          int              `json:"id"`
	Name        string           `json:"name"`
	Groups      []groupJSON      `json:"groups"`
	Assignments []assignmentJSON `json:"assignments"`
}

type assignmentJSON struct {
	Path         string `json:"path"`
	ChildrenOnly bool   `json:"children_only"`
}

// chains lists the review chains and where they are assigned.
func chains(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if err := ctx.requireRootAdmin(); err != nil {
		return err
	}

	all, err := ctx.Auth.GetAllChains(listLimit, 0)
	if err != nil {
		return err
	}
	assignments, err := ctx.Auth.GetAllChainAssignments()
	if err != nil {
		return err
	}

	var result = []chainJSON{}
	for _, c := range all {
		groups, err := c.Groups()
		if err != nil {
			return err
		}
		var cj = chainJSON{
			ID:          c.ID(),
			Name:        c.Name(),
			Groups:      []groupJSON{},
			Assignments: []assignmentJSON{},
		}
		for _, g := range groups {
			cj.Groups = append(cj.Groups, groupJSON{ID: g.ID(), Name: g.Name()})
		}
		for path, entry := range assignments {
			for childrenOnly, chainID := range entry {
				if chainID == c.ID() {
					cj.Assignments = append(cj.Assignments, assignmentJSON{Path: path, ChildrenOnly: childrenOnly})
				}
			}
		}
		sort.Slice(cj.Assignments, func(i, j int) bool {
			if cj.Assignments[i].Path == cj.Assignments[j].Path {
				return !cj.Assignments[i].ChildrenOnly
			}
			return cj.Assignments[i].Path < cj.Assignments[j].Path
		})
		result = append(result, cj)
	}
	return respond(w, result)
}
