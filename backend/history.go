package backend

import (
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/workflow"
)

func (ctx *context) version(params httprouter.Params) (*workflow.Version, error) {
	wf, err := ctx.workflow(workflow.CategoryVersioning, params)
	if err != nil {
		return nil, err
	}
	v, ok := wf.(*workflow.Version)
	if !ok {
		return nil, core.NoWorkflow("version", "no versioning workflow")
	}
	return v, nil
}

func requireTimestamp(req *http.Request) (time.Time, error) {
	ts, err := timeValue(req, "ts")
	if err != nil {
		return time.Time{}, err
	}
	if ts.IsZero() {
		return time.Time{}, badRequest("missing ts")
	}
	return ts, nil
}

type historyJSON struct {
	Entries []workflow.HistoryEntry `json:"entries"`
	Hints   workflow.Hints          `json:"hints"`
}

func history(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	wf, err := ctx.version(params)
	if err != nil {
		return err
	}
	entries, err := wf.List(req.Context())
	if err != nil {
		return err
	}
	hints, err := wf.Hints(req.Context())
	if err != nil {
		return err
	}
	return respond(w, historyJSON{Entries: entries, Hints: hints})
}

func version(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	ts, err := requireTimestamp(req)
	if err != nil {
		return err
	}
	wf, err := ctx.version(params)
	if err != nil {
		return err
	}
	s, err := wf.Retrieve(req.Context(), ts)
	if err != nil {
		return err
	}
	if s == nil {
		return &core.WorkflowError{Op: "retrieve", Reason: "no version at " + ts.Format(time.RFC3339Nano), Err: core.ErrNotFound}
	}
	return respond(w, snapshotJSON{
		Created:    s.Created,
		Labels:     s.Labels,
		State:      s.State,
		Content:    s.Content,
		Properties: s.Properties,
	})
}

func revert(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
	ts, err := requireTimestamp(req)
	if err != nil {
		return err
	}
	wf, err := ctx.version(params)
	if err != nil {
		return err
	}
	v, err := wf.Revert(req.Context(), ts)
	if err != nil {
		return err
	}
	return respond(w, newVariantJSON(v))
}
