package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/doctype"
)

// BasicReviewedActions is the workflow of editors. They edit drafts and request publication, depublication and deletion.
type BasicReviewedActions struct {
	subject
}

func requireEdit(o *op) error {
	if !o.access.edit {
		return core.Unauthorized(o.method, "%s may not edit %s", o.user, o.doc.Handle.Path)
	}
	return nil
}

func checkObtain(doc *core.Document, docType *doctype.DocType, user string) error {
	const op = "obtainEditableInstance"
	if doc.Handle.InAttic() {
		return core.Precondition(op, "the document has been deleted")
	}
	if !docType.Editable {
		return core.Precondition(op, "documents of type %s can't be edited", docType.Code)
	}
	if foreign := doc.ForeignDraft(user); foreign != nil {
		return core.Precondition(op, "the document is being edited by %s", foreign.Holder)
	}
	if doc.Draft() != nil {
		return nil // own draft
	}
	if r := doc.PendingRequest(); r != nil {
		return core.Precondition(op, "a %s request is pending", r.Type)
	}
	if doc.Current() == nil {
		return core.Precondition(op, "there is no variant to edit")
	}
	return nil
}

func ownDraft(doc *core.Document, method, user string) (*core.Variant, error) {
	draft := doc.Draft()
	if draft == nil {
		return nil, core.Precondition(method, "there is no draft")
	}
	if !draft.IsHeldBy(user) {
		return nil, core.Precondition(method, "the draft is held by %s", draft.Holder)
	}
	return draft, nil
}

func checkRequest(doc *core.Document, method string, typ core.RequestType) error {
	if doc.Handle.InAttic() {
		return core.Precondition(method, "the document has been deleted")
	}
	if draft := doc.Draft(); draft != nil {
		return core.Precondition(method, "the document is being edited by %s", draft.Holder)
	}
	switch typ {
	case core.RequestDelete:
		// rejected requests count as well, they must be cancelled first
		if len(doc.Requests) > 0 {
			return core.Precondition(method, "another request exists")
		}
	default:
		if r := doc.PendingRequest(); r != nil {
			return core.Precondition(method, "a %s request is pending", r.Type)
		}
	}
	switch typ {
	case core.RequestPublish:
		if doc.Unpublished() == nil {
			return core.Precondition(method, "there are no changes to publish")
		}
	case core.RequestDepublish:
		if doc.Published() == nil {
			return core.Precondition(method, "the document is not published")
		}
	}
	return nil
}

// ObtainEditableInstance returns a draft held by the caller. If there is none yet, it is copied from the unpublished variant,
// or from the published variant if there is no unpublished one.
func (w *BasicReviewedActions) ObtainEditableInstance(ctx context.Context) (*core.Variant, error) {
	return mutate(ctx, &w.subject, "obtainEditableInstance", nil, func(o *op) (*core.Variant, error) {
		if err := requireEdit(o); err != nil {
			return nil, err
		}
		if err := checkObtain(o.doc, o.docType, o.user); err != nil {
			return nil, err
		}
		if draft := o.doc.Draft(); draft != nil {
			return draft, nil
		}
		source := o.doc.Current()
		draft := o.newVariant(core.Draft, source.Content, source.Properties)
		draft.Holder = o.user
		return draft, o.insertVariant(draft)
	})
}

// UpdateEditableInstance replaces content and properties of the caller's draft. If props is nil, the properties are kept.
func (w *BasicReviewedActions) UpdateEditableInstance(ctx context.Context, content string, props map[string]string) (*core.Variant, error) {
	var args = map[string]interface{}{"content": content, "properties": props}
	return mutate(ctx, &w.subject, "updateEditableInstance", args, func(o *op) (*core.Variant, error) {
		if err := requireEdit(o); err != nil {
			return nil, err
		}
		draft, err := ownDraft(o.doc, o.method, o.user)
		if err != nil {
			return nil, err
		}
		draft.Content = content
		if props != nil {
			draft.Properties = core.CopyProperties(props)
		}
		return draft, o.updateVariant(draft)
	})
}

// CommitEditableInstance folds the caller's draft into the unpublished variant and removes the draft.
func (w *BasicReviewedActions) CommitEditableInstance(ctx context.Context) (*core.Variant, error) {
	return mutate(ctx, &w.subject, "commitEditableInstance", nil, func(o *op) (*core.Variant, error) {
		if err := requireEdit(o); err != nil {
			return nil, err
		}
		draft, err := ownDraft(o.doc, o.method, o.user)
		if err != nil {
			return nil, err
		}
		unpublished := o.doc.Unpublished()
		if unpublished == nil {
			return draft, o.setState(draft, core.Unpublished)
		}
		if err := o.deleteVariant(draft); err != nil {
			return nil, err
		}
		unpublished.Content = draft.Content
		unpublished.Properties = core.CopyProperties(draft.Properties)
		return unpublished, o.updateVariant(unpublished)
	})
}

// DisposeEditableInstance discards the caller's draft. It returns the unpublished or published variant.
func (w *BasicReviewedActions) DisposeEditableInstance(ctx context.Context) (*core.Variant, error) {
	return mutate(ctx, &w.subject, "disposeEditableInstance", nil, func(o *op) (*core.Variant, error) {
		if err := requireEdit(o); err != nil {
			return nil, err
		}
		draft, err := ownDraft(o.doc, o.method, o.user)
		if err != nil {
			return nil, err
		}
		if err := o.deleteVariant(draft); err != nil {
			return nil, err
		}
		return o.doc.Current(), nil
	})
}

// RequestPublication requests the publication of the unpublished variant. If at is not zero, the request can't be accepted before.
func (w *BasicReviewedActions) RequestPublication(ctx context.Context, at time.Time) (*core.Request, error) {
	return w.request(ctx, "requestPublication", core.RequestPublish, at)
}

func (w *BasicReviewedActions) RequestDepublication(ctx context.Context, at time.Time) (*core.Request, error) {
	return w.request(ctx, "requestDepublication", core.RequestDepublish, at)
}

// RequestDeletion fails if any other request exists, even a rejected one.
func (w *BasicReviewedActions) RequestDeletion(ctx context.Context) (*core.Request, error) {
	return w.request(ctx, "requestDeletion", core.RequestDelete, time.Time{})
}

func (w *BasicReviewedActions) request(ctx context.Context, method string, typ core.RequestType, at time.Time) (*core.Request, error) {
	var args interface{}
	if !at.IsZero() {
		args = map[string]time.Time{"scheduled": at}
	}
	return mutate(ctx, &w.subject, method, args, func(o *op) (*core.Request, error) {
		if err := requireEdit(o); err != nil {
			return nil, err
		}
		if err := checkRequest(o.doc, method, typ); err != nil {
			return nil, err
		}
		var r = &core.Request{
			ID:        uuid.NewString(),
			HandleID:  o.doc.Handle.ID,
			Type:      typ,
			Scheduled: at,
			Username:  o.user,
			Created:   o.now,
		}
		return r, o.insertRequest(r)
	})
}

// Hints returns which operations the caller can invoke now.
func (w *BasicReviewedActions) Hints(ctx context.Context) (Hints, error) {
	a, err := w.m.access(w.authPath(), w.user)
	if err != nil {
		return nil, err
	}
	var hints Hints
	err = w.read(ctx, func(tx core.Tx, doc *core.Document) error {
		hints = basicHints(doc, w.m.docType(doc.Handle.DocType), a, w.username())
		return nil
	})
	return hints, err
}

func basicHints(doc *core.Document, docType *doctype.DocType, a access, user string) Hints {
	_, draftErr := ownDraft(doc, "", user)
	var ownsDraft = a.edit && draftErr == nil
	return Hints{
		"obtainEditableInstance":  a.edit && checkObtain(doc, docType, user) == nil,
		"updateEditableInstance":  ownsDraft,
		"commitEditableInstance":  ownsDraft,
		"disposeEditableInstance": ownsDraft,
		"requestPublication":      a.edit && checkRequest(doc, "", core.RequestPublish) == nil,
		"requestDepublication":    a.edit && checkRequest(doc, "", core.RequestDepublish) == nil,
		"requestDeletion":         a.edit && checkRequest(doc, "", core.RequestDelete) == nil,
	}
}
