package backend

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/util"
	"github.com/wansing/docflow/workflow"
)

var (
	ErrLogin         = errors.New("wrong username or password")
	ErrLoginRequired = errors.New("login required")
	ErrAdminRequired = errors.New("admin permission required")
)

// statusOf maps workflow errors to HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, ErrLogin), errors.Is(err, ErrLoginRequired):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrUnauthorized), errors.Is(err, core.ErrNoWorkflow), errors.Is(err, ErrAdminRequired):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, core.ErrPrecondition), errors.Is(err, errBadRequest):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...interface{}) error {
	return &core.WorkflowError{Op: "parse", Reason: fmt.Sprintf(format, args...), Err: errBadRequest}
}

type errorJSON struct {
	Error  string `json:"error"`
	Op     string `json:"op,omitempty"`
	Reason string `json:"reason,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	var status = statusOf(err)
	var body = errorJSON{Error: err.Error()}
	var werr *core.WorkflowError
	if errors.As(err, &werr) {
		body.Op = werr.Op
		body.Reason = werr.Reason
	}
	if status >= http.StatusInternalServerError {
		body = errorJSON{Error: http.StatusText(status)}
	}
	writeJSON(w, status, body)
}

// writeJSON encodes v before writing the header, so an encoding error can still be answered with an error status.
// Write errors are not returned, as the status has been sent already.
func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding response: %w", err)
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(append(body, '\n'))
	return nil
}

// trackingWriter records whether the header has been written.
type trackingWriter struct {
	http.ResponseWriter
	wroteHeader bool
}

func (w *trackingWriter) WriteHeader(statusCode int) {
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *trackingWriter) Write(p []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(p)
}

func respond(w http.ResponseWriter, v interface{}) error {
	return writeJSON(w, http.StatusOK, v)
}

// path returns the cleaned "path" parameter.
func path(params httprouter.Params) (string, error) {
	p, err := core.CleanPath(params.ByName("path"))
	if err != nil {
		return "", badRequest("%v", err)
	}
	return p, nil
}

// properties parses the "property" form values like "language=de". It returns nil if there are none.
func properties(req *http.Request) (map[string]string, error) {
	values := req.Form["property"]
	if len(values) == 0 {
		return nil, nil
	}
	var props = make(map[string]string, len(values))
	for _, kv := range values {
		k, v, found := strings.Cut(kv, "=")
		k = strings.TrimSpace(k)
		if !found || k == "" {
			return nil, badRequest("invalid property %q", kv)
		}
		props[k] = v
	}
	return props, nil
}

// timeValue parses an optional time form value.
func timeValue(req *http.Request, key string) (time.Time, error) {
	s := strings.TrimSpace(req.FormValue(key))
	if s == "" {
		return time.Time{}, nil
	}
	t, err := util.ParseTime(s)
	if err != nil {
		return time.Time{}, badRequest("%v", err)
	}
	return t, nil
}

func intValue(req *http.Request, key string, def int) (int, error) {
	s := req.FormValue(key)
	if s == "" {
		return def, nil
	}
	i, err := strconv.Atoi(s)
	if err != nil {
		return 0, badRequest("invalid %s: %q", key, s)
	}
	return i, nil
}

// handle looks up the handle at the given path.
func (ctx *context) handle(path string) (*core.Handle, error) {
	var h *core.Handle
	err := core.WithTx(ctx.req.Context(), ctx.Store, func(tx core.Tx) error {
		var err error
		h, err = tx.GetHandleByPath(ctx.req.Context(), path)
		return err
	})
	return h, err
}

// document loads the document at the given path.
func (ctx *context) document(path string) (*core.Document, error) {
	var doc *core.Document
	err := core.WithTx(ctx.req.Context(), ctx.Store, func(tx core.Tx) error {
		h, err := tx.GetHandleByPath(ctx.req.Context(), path)
		if err != nil {
			return err
		}
		doc, err = core.LoadDocument(ctx.req.Context(), tx, h.ID)
		return err
	})
	return doc, err
}

// workflow returns the workflow of the document at the path parameter.
// If the request carries a "revision" value, it must match the revision of the document.
func (ctx *context) workflow(category string, params httprouter.Params) (workflow.Workflow, error) {
	p, err := path(params)
	if err != nil {
		return nil, err
	}
	h, err := ctx.handle(p)
	if err != nil {
		return nil, err
	}
	wf, err := ctx.Manager.GetWorkflow(ctx.req.Context(), category, core.HandleOf(h.ID), ctx.User)
	if err != nil {
		return nil, err
	}
	if s := ctx.req.FormValue("revision"); s != "" {
		rev, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return nil, badRequest("invalid revision %q", s)
		}
		if r, ok := wf.(interface{ Revision() int64 }); ok && r.Revision() != rev {
			return nil, &core.WorkflowError{Op: "getWorkflow", Reason: "the document has been modified in the meantime", Err: core.ErrConflict}
		}
	}
	return wf, nil
}

// basic returns the reviewed actions workflow of the document at the path parameter.
func (ctx *context) basic(params httprouter.Params) (*workflow.BasicReviewedActions, error) {
	wf, err := ctx.workflow(workflow.CategoryDefault, params)
	if err != nil {
		return nil, err
	}
	switch wf := wf.(type) {
	case *workflow.BasicReviewedActions:
		return wf, nil
	case *workflow.FullReviewedActions:
		return wf.BasicReviewedActions, nil
	default:
		return nil, core.NoWorkflow("reviewedActions", "the document has no reviewed actions workflow")
	}
}

// full returns the full reviewed actions workflow of the document at the path parameter.
func (ctx *context) full(params httprouter.Params) (*workflow.FullReviewedActions, error) {
	wf, err := ctx.workflow(workflow.CategoryDefault, params)
	if err != nil {
		return nil, err
	}
	full, ok := wf.(*workflow.FullReviewedActions)
	if !ok {
		return nil, core.Unauthorized("fullReviewedActions", "%s may not publish %s", auth.Name(ctx.User), params.ByName("path"))
	}
	return full, nil
}

func (ctx *context) requireRootAdmin() error {
	if !ctx.IsRootAdmin() {
		return ErrAdminRequired
	}
	return nil
}
