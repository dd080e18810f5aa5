package backend

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
)

const listLimit = 100000 // assuming there are not more than 100k users or groups

// users lists all users. POST creates a user with the given name.
func users(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if err := ctx.requireRootAdmin(); err != nil {
		return err
	}

	if req.Method == http.MethodPost {
		name := strings.TrimSpace(req.PostFormValue("name"))
		if name == "" {
			return badRequest("missing user name")
		}
		u, err := ctx.Auth.InsertUser(name)
		if err != nil {
			return err
		}
		if password := req.PostFormValue("password"); password != "" {
			if err := ctx.Auth.SetPassword(u, password); err != nil {
				return err
			}
		}
		ctx.Log.Info().Str("user", u.Name()).Str("by", ctx.User.Name()).Msg("user created")
		return writeJSON(w, http.StatusCreated, userJSON{ID: u.ID(), Name: u.Name()})
	}

	all, err := ctx.Auth.GetAllUsers(listLimit, 0)
	if err != nil {
		return err
	}
	var result = []userJSON{}
	for _, u := range all {
		result = append(result, userJSON{ID: u.ID(), Name: u.Name()})
	}
	return respond(w, result)
}

type userGroupsJSON struct {
	userJSON
	Groups []groupJSON `json:"groups"`
}

// user returns a user and their groups. Users can see themselves.
func user(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	id, err := strconv.Atoi(params.ByName("id"))
	if err != nil {
		return badRequest("invalid user id")
	}
	if id != ctx.User.ID() {
		if err := ctx.requireRootAdmin(); err != nil {
			return err
		}
	}

	u, err := ctx.Auth.GetUser(id)
	if err != nil {
		return notFound("user", err)
	}
	groups, err := ctx.Auth.GetGroupsOf(u)
	if err != nil {
		return err
	}

	var result = userGroupsJSON{
		userJSON: userJSON{ID: u.ID(), Name: u.Name()},
		Groups:   []groupJSON{},
	}
	for _, g := range groups {
		result.Groups = append(result.Groups, groupJSON{ID: g.ID(), Name: g.Name()})
	}
	return respond(w, result)
}
