package backend

import (
	"net/http"
	"strconv"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/auth"
)

// access changes the access rules and the review chain of a path.
// Values: "group" with "permission" (a permission name, or empty to remove the rule), "chain" with optional "children_only".
func access(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	p, err := path(params)
	if err != nil {
		return err
	}
	if err := ctx.Auth.RequirePermission(auth.Admin, p, ctx.User); err != nil {
		return ErrAdminRequired
	}

	if s := req.PostFormValue("group"); s != "" {
		groupID, err := strconv.Atoi(s)
		if err != nil {
			return badRequest("invalid group %q", s)
		}
		if name := req.PostFormValue("permission"); name == "" {
			if err := ctx.Auth.RemoveAccessRule(p, groupID); err != nil {
				return err
			}
		} else {
			perm, ok := auth.ParsePermission(name)
			if !ok {
				return badRequest("invalid permission %q", name)
			}
			if err := ctx.Auth.AddAccessRule(p, groupID, perm); err != nil {
				return err
			}
		}
	}

	if s := req.PostFormValue("chain"); s != "" {
		chainID, err := strconv.Atoi(s)
		if err != nil {
			return badRequest("invalid chain %q", s)
		}
		if err := ctx.Auth.AssignChain(p, req.PostFormValue("children_only") != "", chainID); err != nil {
			return err
		}
	}

	ctx.Log.Info().Str("path", p).Str("by", ctx.User.Name()).Msg("access changed")
	w.WriteHeader(http.StatusNoContent)
	return nil
}
