package backend

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/workflow"
)

func (ctx *context) folder(params httprouter.Params) (*workflow.Folder, error) {
	wf, err := ctx.Manager.GetWorkflow(ctx.req.Context(), workflow.CategoryDefault, core.Folder(params.ByName("path")), ctx.User)
	if err != nil {
		return nil, err
	}
	return wf.(*workflow.Folder), nil
}

// create adds a document to the folder.
func create(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	if err := req.ParseForm(); err != nil {
		return badRequest("%v", err)
	}
	props, err := properties(req)
	if err != nil {
		return err
	}

	folder, err := ctx.folder(params)
	if err != nil {
		return err
	}

	h, err := folder.Add(req.Context(), req.PostFormValue("name"), req.PostFormValue("doctype"), req.PostFormValue("content"), props)
	if err != nil {
		return err
	}
	w.Header().Set("Location", "/doc"+h.Path)
	return writeJSON(w, http.StatusCreated, newHandleJSON(h))
}

type listJSON struct {
	Path      string         `json:"path"`
	Documents []*handleJSON  `json:"documents"`
	Hints     workflow.Hints `json:"hints"`
}

// list returns the documents in the folder.
func list(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	folder, err := ctx.folder(params)
	if err != nil {
		return err
	}

	handles, err := folder.List(req.Context())
	if err != nil {
		return err
	}
	hints, err := folder.Hints(req.Context())
	if err != nil {
		return err
	}

	var result = listJSON{
		Path:      folder.Path(),
		Documents: []*handleJSON{},
		Hints:     hints,
	}
	for _, h := range handles {
		result.Documents = append(result.Documents, newHandleJSON(h))
	}
	return respond(w, result)
}
