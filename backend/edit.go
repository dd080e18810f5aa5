package backend

import (
	"errors"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/workflow"
)

// authPath returns the path which access rules are looked up for.
func authPath(h *core.Handle) string {
	if h.InAttic() {
		return h.OriginalPath
	}
	return h.Path
}

// doc returns the document with its variants, requests and the hints of its default workflow.
func doc(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	p, err := path(params)
	if err != nil {
		return err
	}
	d, err := ctx.document(p)
	if err != nil {
		return err
	}

	if err := ctx.Auth.RequirePermission(auth.Read, authPath(d.Handle), ctx.User); err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return core.Unauthorized("doc", "%s may not read %s", auth.Name(ctx.User), p)
		}
		return err
	}

	var result = newDocumentJSON(d)

	if ctx.LoggedIn() {
		wf, err := ctx.Manager.GetWorkflow(req.Context(), workflow.CategoryDefault, core.HandleOf(d.Handle.ID), ctx.User)
		switch {
		case err == nil:
			result.Workflow = wf.Kind()
			if result.Hints, err = wf.Hints(req.Context()); err != nil {
				return err
			}
		case errors.Is(err, core.ErrNoWorkflow), errors.Is(err, core.ErrUnauthorized):
		default:
			return err
		}
	}

	return respond(w, result)
}

func obtain(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.basic(params)
	if err != nil {
		return err
	}
	v, err := wf.ObtainEditableInstance(req.Context())
	if err != nil {
		return err
	}
	return respond(w, newVariantJSON(v))
}

func update(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	if err := req.ParseForm(); err != nil {
		return badRequest("%v", err)
	}
	props, err := properties(req)
	if err != nil {
		return err
	}
	wf, err := ctx.basic(params)
	if err != nil {
		return err
	}
	v, err := wf.UpdateEditableInstance(req.Context(), req.PostFormValue("content"), props)
	if err != nil {
		return err
	}
	return respond(w, newVariantJSON(v))
}

func commit(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.basic(params)
	if err != nil {
		return err
	}
	v, err := wf.CommitEditableInstance(req.Context())
	if err != nil {
		return err
	}
	return respond(w, newVariantJSON(v))
}

func dispose(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.basic(params)
	if err != nil {
		return err
	}
	v, err := wf.DisposeEditableInstance(req.Context())
	if err != nil {
		return err
	}
	return respond(w, newVariantJSON(v))
}
