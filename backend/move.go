package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/workflow"
)

func (ctx *context) coreWorkflow(params httprouter.Params) (*workflow.Default, error) {
	wf, err := ctx.workflow(workflow.CategoryCore, params)
	if err != nil {
		return nil, err
	}
	d, ok := wf.(*workflow.Default)
	if !ok {
		return nil, core.NoWorkflow("core", "no core workflow")
	}
	return d, nil
}

func rename(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.coreWorkflow(params)
	if err != nil {
		return err
	}
	h, err := wf.Rename(req.Context(), req.PostFormValue("name"))
	if err != nil {
		return err
	}
	return respond(w, newHandleJSON(h))
}

func move(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.coreWorkflow(params)
	if err != nil {
		return err
	}
	h, err := wf.Move(req.Context(), req.PostFormValue("folder"))
	if err != nil {
		return err
	}
	return respond(w, newHandleJSON(h))
}

// restore brings a document back from the attic.
func restore(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.coreWorkflow(params)
	if err != nil {
		return err
	}
	h, err := wf.Restore(req.Context())
	if err != nil {
		return err
	}
	return respond(w, newHandleJSON(h))
}
