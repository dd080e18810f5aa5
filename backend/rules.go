package backend

import (
	"fmt"
	"net/http"
	"sort"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/auth"
)

type ruleJSON struct {
	Path       string    `json:"path"`
	Group      groupJSON `json:"group"`
	Permission string    `json:"permission"`
}

// rules lists all access rules, ordered by path.
func rules(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if err := ctx.requireRootAdmin(); err != nil {
		return err
	}

	raw, err := ctx.Auth.GetAllAccessRules()
	if err != nil {
		return err
	}

	var result = []ruleJSON{}
	for path, groupMap := range raw {
		for groupID, permInt := range groupMap {
			g, err := ctx.Auth.GetGroup(groupID)
			if err != nil {
				return fmt.Errorf("getting group %d: %w", groupID, err)
			}
			perm := auth.Permission(permInt)
			if !perm.Valid() {
				return fmt.Errorf("invalid permission: %d", permInt)
			}
			result = append(result, ruleJSON{
				Path:       path,
				Group:      groupJSON{ID: g.ID(), Name: g.Name()},
				Permission: perm.String(),
			})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Path == result[j].Path {
			return result[i].Group.ID < result[j].Group.ID
		}
		return result[i].Path < result[j].Path
	})

	return respond(w, result)
}
