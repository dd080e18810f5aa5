package workflow

import (
	"errors"

	"github.com/wansing/docflow/core"
)

// The transitions are shared by the full reviewed actions and by accepted requests.
// Requests skip the pending request check, as they are the pending request.

func checkPublish(doc *core.Document, method string, viaRequest bool) error {
	if doc.Handle.InAttic() {
		return core.Precondition(method, "the document has been deleted")
	}
	if draft := doc.Draft(); draft != nil {
		return core.Precondition(method, "the document is being edited by %s", draft.Holder)
	}
	if r := doc.PendingRequest(); r != nil && !viaRequest {
		return core.Precondition(method, "a %s request is pending", r.Type)
	}
	if doc.Unpublished() == nil {
		return core.Precondition(method, "there are no changes to publish")
	}
	return nil
}

func checkDepublish(doc *core.Document, method string, viaRequest bool) error {
	if doc.Handle.InAttic() {
		return core.Precondition(method, "the document has been deleted")
	}
	if draft := doc.Draft(); draft != nil {
		return core.Precondition(method, "the document is being edited by %s", draft.Holder)
	}
	if r := doc.PendingRequest(); r != nil && !viaRequest {
		return core.Precondition(method, "a %s request is pending", r.Type)
	}
	if doc.Published() == nil {
		return core.Precondition(method, "the document is not published")
	}
	return nil
}

func checkDelete(doc *core.Document, method, user string, viaRequest bool) error {
	if r := doc.PendingRequest(); r != nil && !viaRequest {
		return core.Precondition(method, "a %s request is pending", r.Type)
	}
	if foreign := doc.ForeignDraft(user); foreign != nil {
		return core.Precondition(method, "the document is being edited by %s", foreign.Holder)
	}
	return nil
}

// publish promotes the unpublished variant. The replaced published variant is captured before.
func publish(o *op, viaRequest bool) (*core.Variant, error) {

	if err := checkPublish(o.doc, o.method, viaRequest); err != nil {
		return nil, err
	}

	var promoted = o.doc.Unpublished()

	if old := o.doc.Published(); old != nil {
		if _, err := o.snapshot(old, "publish"); err != nil {
			return nil, err
		}
		if err := o.deleteVariant(old); err != nil {
			return nil, err
		}
	}

	if err := o.setState(promoted, core.Published); err != nil {
		return nil, err
	}

	if _, err := o.snapshot(promoted, "publish"); err != nil {
		return nil, err
	}

	return promoted, nil
}

// depublish retracts the published variant. It is kept as the unpublished variant, unless there is one already.
func depublish(o *op, viaRequest bool) (*core.Variant, error) {

	if err := checkDepublish(o.doc, o.method, viaRequest); err != nil {
		return nil, err
	}

	var published = o.doc.Published()

	if _, err := o.snapshot(published, "depublish"); err != nil {
		return nil, err
	}

	var result = o.doc.Unpublished()
	if result != nil {
		if err := o.deleteVariant(published); err != nil {
			return nil, err
		}
	} else {
		if err := o.setState(published, core.Unpublished); err != nil {
			return nil, err
		}
		result = published
	}

	// marks the end of the published period in the history
	if _, err := o.snapshot(result, "depublish"); err != nil {
		return nil, err
	}

	return result, nil
}

// remove moves the document to the attic, or removes it if it is in the attic already or if retention says so.
// It returns the remaining variant, or nil if the document has been removed.
func remove(o *op, viaRequest bool) (*core.Variant, error) {

	if err := checkDelete(o.doc, o.method, o.user, viaRequest); err != nil {
		return nil, err
	}

	var h = o.doc.Handle

	if h.InAttic() || o.cfg.Retention == RetentionRemove {
		return nil, o.removeHandle()
	}

	if _, err := o.snapshot(o.doc.Published(), "delete"); err != nil {
		return nil, err
	}

	var suffix = h.ID
	if len(suffix) > 8 {
		suffix = suffix[:8]
	}
	var atticPath = core.JoinPath(o.cfg.Attic, h.Name()+"-"+suffix)
	switch _, err := o.tx.GetHandleByPath(o.ctx, atticPath); {
	case err == nil:
		return nil, core.Precondition(o.method, "%s exists already", atticPath)
	case errors.Is(err, core.ErrNotFound):
	default:
		return nil, err
	}

	var keep = o.doc.Current()
	if keep == nil {
		keep = o.doc.Draft()
	}

	var variants []*core.Variant
	for _, v := range o.doc.Variants {
		variants = append(variants, v)
	}
	for _, v := range variants {
		if v != keep {
			if err := o.deleteVariant(v); err != nil {
				return nil, err
			}
		}
	}

	for _, r := range append([]*core.Request(nil), o.doc.Requests...) {
		if err := o.deleteRequest(r); err != nil {
			return nil, err
		}
	}

	h.OriginalPath = h.Path
	h.Path = atticPath
	o.changed = true

	if keep == nil {
		return nil, nil
	}
	return keep, o.setState(keep, core.Deleted)
}
