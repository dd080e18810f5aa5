package backend

import (
	"database/sql"
	"errors"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/core"
)

type groupJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

type groupMembersJSON struct {
	groupJSON
	Members []userJSON `json:"members"`
}

func notFound(what string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return &core.WorkflowError{Op: "get", Reason: what + " not found", Err: core.ErrNotFound}
	}
	return err
}

// groups lists all groups. POST creates a group.
func groups(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if err := ctx.requireRootAdmin(); err != nil {
		return err
	}

	if req.Method == http.MethodPost {
		name := strings.TrimSpace(req.PostFormValue("name"))
		if name == "" {
			return badRequest("missing group name")
		}
		g, err := ctx.Auth.InsertGroup(name)
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusCreated, groupJSON{ID: g.ID(), Name: g.Name()})
	}

	all, err := ctx.Auth.GetAllGroups(listLimit, 0)
	if err != nil {
		return err
	}
	var result = []groupJSON{}
	for _, g := range all {
		result = append(result, groupJSON{ID: g.ID(), Name: g.Name()})
	}
	return respond(w, result)
}

// group returns a group and its members.
func group(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if err := ctx.requireRootAdmin(); err != nil {
		return err
	}

	id, err := strconv.Atoi(params.ByName("id"))
	if err != nil {
		return badRequest("invalid group id")
	}
	g, err := ctx.Auth.GetGroup(id)
	if err != nil {
		return notFound("group", err)
	}

	memberIDs, err := g.Members()
	if err != nil {
		return err
	}

	var result = groupMembersJSON{
		groupJSON: groupJSON{ID: g.ID(), Name: g.Name()},
		Members:   []userJSON{},
	}
	for memberID := range memberIDs {
		member, err := ctx.Auth.GetUser(memberID)
		if err != nil {
			return err
		}
		result.Members = append(result.Members, userJSON{ID: member.ID(), Name: member.Name()})
	}
	sort.Slice(result.Members, func(i, j int) bool {
		return result.Members[i].Name < result.Members[j].Name
	})
	return respond(w, result)
}
