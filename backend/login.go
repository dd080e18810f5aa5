package backend

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"
)

type userJSON struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func login(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	name := strings.TrimSpace(req.PostFormValue("name"))
	password := req.PostFormValue("password")

	u, err := ctx.Auth.LoginUser(name, password)
	if err != nil {
		ctx.Log.Info().Str("user", name).Msg("login failed")
		return ErrLogin
	}

	if err := ctx.Sessions.RenewToken(req.Context()); err != nil {
		return err
	}
	ctx.Sessions.Put(req.Context(), "uid", u.ID())

	return respond(w, userJSON{ID: u.ID(), Name: u.Name()})
}
