package backend

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"golang.org/x/text/language"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/doctype"
	"github.com/wansing/docflow/workflow"
)

var previewTmpl = template.Must(template.New("preview").Parse(`<!DOCTYPE html>
<html lang="{{ .Lang }}">
	<head>
		<meta charset="utf-8">
		<title>{{ .Title }}</title>
	</head>
	<body>
		{{ .Body }}
	</body>
</html>`))

type previewData struct {
	Lang  string
	Title string
	Body  template.HTML
}

// previewVariant selects the variant which the user sees. Editors see the preview, others see the live variant.
// With "draft" set, the holder sees their draft.
func (ctx *context) previewVariant(doc *core.Document, wantDraft bool) (*core.Variant, error) {

	var tag = core.Live
	if ctx.LoggedIn() {
		switch _, err := ctx.Manager.GetWorkflow(ctx.req.Context(), workflow.CategoryDefault, core.HandleOf(doc.Handle.ID), ctx.User); {
		case err == nil:
			tag = core.Preview
		case errors.Is(err, core.ErrNoWorkflow), errors.Is(err, core.ErrUnauthorized):
		default:
			return nil, err
		}
	}

	if wantDraft {
		if draft := doc.Draft(); draft.IsHeldBy(auth.Name(ctx.User)) {
			return draft, nil
		}
		return nil, core.Precondition("preview", "you hold no draft of %s", doc.Handle.Path)
	}

	for _, state := range variantOrder {
		if v := doc.Variants[state]; v != nil && v.IsAvailable(tag) {
			return v, nil
		}
	}
	return nil, &core.WorkflowError{Op: "preview", Reason: "no " + tag + " variant", Err: core.ErrNotFound}
}

// preview renders the document with its document type. With "teaser" set, the body ends at the more marker.
func preview(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {

	p, err := path(params)
	if err != nil {
		return err
	}
	doc, err := ctx.document(p)
	if err != nil {
		return err
	}
	if doc.Handle.InAttic() {
		return &core.WorkflowError{Op: "preview", Reason: "the document has been deleted", Err: core.ErrNotFound}
	}
	if err := ctx.Auth.RequirePermission(auth.Read, doc.Handle.Path, ctx.User); err != nil {
		if errors.Is(err, auth.ErrUnauthorized) {
			return core.Unauthorized("preview", "%s may not read %s", auth.Name(ctx.User), p)
		}
		return err
	}

	v, err := ctx.previewVariant(doc, req.FormValue("draft") != "")
	if err != nil {
		return err
	}

	docType, ok := ctx.DocTypes.Get(doc.Handle.DocType)
	if !ok {
		return &core.WorkflowError{Op: "preview", Reason: "unknown document type " + doc.Handle.DocType, Err: core.ErrPrecondition}
	}
	body, err := docType.Render(v.Content, doc.Handle.Path)
	if err != nil {
		return err
	}
	if req.FormValue("teaser") != "" {
		body = doctype.Teaser(body)
	}

	// a language property wins over the Accept-Language header
	var lang = ctx.Lang
	if tag, err := language.Parse(v.Property("language")); err == nil {
		lang = tag
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Language", lang.String())
	return previewTmpl.Execute(w, previewData{
		Lang:  lang.String(),
		Title: docType.Title(v.Content, doc.Handle.Path),
		Body:  template.HTML(body),
	})
}
