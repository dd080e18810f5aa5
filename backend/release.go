package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/workflow"
)

// requestAction returns a handler which files a request of the given type. An optional "scheduled" value defers it.
func requestAction(typ core.RequestType) handler {
	return func(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

		scheduled, err := timeValue(req, "scheduled")
		if err != nil {
			return err
		}

		wf, err := ctx.basic(params)
		if err != nil {
			return err
		}

		var r *core.Request
		switch typ {
		case core.RequestPublish:
			r, err = wf.RequestPublication(req.Context(), scheduled)
		case core.RequestDepublish:
			r, err = wf.RequestDepublication(req.Context(), scheduled)
		case core.RequestDelete:
			if !scheduled.IsZero() {
				return badRequest("deletion requests can't be scheduled")
			}
			r, err = wf.RequestDeletion(req.Context())
		}
		if err != nil {
			return err
		}
		return writeJSON(w, http.StatusCreated, newRequestJSON(r))
	}
}

func publish(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.full(params)
	if err != nil {
		return err
	}
	v, err := wf.Publish(req.Context())
	if err != nil {
		return err
	}
	return respond(w, newVariantJSON(v))
}

func depublish(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.full(params)
	if err != nil {
		return err
	}
	v, err := wf.Depublish(req.Context())
	if err != nil {
		return err
	}
	return respond(w, newVariantJSON(v))
}

func unlock(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.full(params)
	if err != nil {
		return err
	}
	v, err := wf.Unlock(req.Context())
	if err != nil {
		return err
	}
	return respond(w, newVariantJSON(v))
}

// del moves a document to the attic. Documents in the attic are removed for good.
func del(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	wf, err := ctx.workflow(workflow.CategoryDefault, params)
	if err != nil {
		return err
	}

	switch wf := wf.(type) {
	case *workflow.Default:
		if err := wf.Delete(req.Context()); err != nil {
			return err
		}
		w.WriteHeader(http.StatusNoContent)
		return nil
	case *workflow.FullReviewedActions:
		v, err := wf.Delete(req.Context())
		if err != nil {
			return err
		}
		if v == nil { // removed at once
			w.WriteHeader(http.StatusNoContent)
			return nil
		}
		return respond(w, struct {
			Path    string       `json:"path"`
			Variant *variantJSON `json:"variant"`
		}{
			Path:    wf.Path(),
			Variant: newVariantJSON(v),
		})
	default:
		return core.Unauthorized("delete", "deleting requires publish permission, file a deletion request instead")
	}
}

// request returns the workflow of the request with the id parameter.
func (ctx *context) request(params httprouter.Params) (*workflow.Request, error) {
	wf, err := ctx.Manager.GetWorkflow(ctx.req.Context(), workflow.CategoryDefault, core.RequestOf(params.ByName("id")), ctx.User)
	if err != nil {
		return nil, err
	}
	r, ok := wf.(*workflow.Request)
	if !ok {
		return nil, core.NoWorkflow("request", "no request workflow")
	}
	return r, nil
}

func accept(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.request(params)
	if err != nil {
		return err
	}
	v, err := wf.AcceptRequest(req.Context())
	if err != nil {
		return err
	}
	if v == nil {
		w.WriteHeader(http.StatusNoContent)
		return nil
	}
	return respond(w, newVariantJSON(v))
}

func reject(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.request(params)
	if err != nil {
		return err
	}
	r, err := wf.RejectRequest(req.Context(), req.PostFormValue("reason"))
	if err != nil {
		return err
	}
	return respond(w, newRequestJSON(r))
}

// revoke cancels a request.
func revoke(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.request(params)
	if err != nil {
		return err
	}
	if err := wf.CancelRequest(req.Context()); err != nil {
		return err
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}
