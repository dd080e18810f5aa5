package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"
)

type rootJSON struct {
	User     *userJSON `json:"user,omitempty"`
	Admin    bool      `json:"admin"`
	Language string    `json:"language"`
	DocTypes []string  `json:"doctypes"`
}

// root describes the session.
func root(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	var result = rootJSON{
		Language: ctx.Lang.String(),
		DocTypes: ctx.DocTypes.All(),
	}
	if ctx.LoggedIn() {
		result.User = &userJSON{ID: ctx.User.ID(), Name: ctx.User.Name()}
		result.Admin = ctx.IsRootAdmin()
	}
	return respond(w, result)
}
