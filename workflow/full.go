package workflow

import (
	"context"

	"github.com/wansing/docflow/core"
)

// FullReviewedActions is the workflow of publishers. In addition to the basic actions,
// they publish, depublish and delete documents directly.
type FullReviewedActions struct {
	*BasicReviewedActions
}

func requirePublish(o *op) error {
	if !o.access.publish {
		return core.Unauthorized(o.method, "%s may not publish %s", o.user, o.doc.Handle.Path)
	}
	return nil
}

func (w *FullReviewedActions) Publish(ctx context.Context) (*core.Variant, error) {
	return mutate(ctx, &w.subject, "publish", nil, func(o *op) (*core.Variant, error) {
		if err := requirePublish(o); err != nil {
			return nil, err
		}
		return publish(o, false)
	})
}

func (w *FullReviewedActions) Depublish(ctx context.Context) (*core.Variant, error) {
	return mutate(ctx, &w.subject, "depublish", nil, func(o *op) (*core.Variant, error) {
		if err := requirePublish(o); err != nil {
			return nil, err
		}
		return depublish(o, false)
	})
}

// Delete moves the document to the attic, or removes it, depending on the retention policy.
func (w *FullReviewedActions) Delete(ctx context.Context) (*core.Variant, error) {
	return mutate(ctx, &w.subject, "delete", nil, func(o *op) (*core.Variant, error) {
		if err := requirePublish(o); err != nil {
			return nil, err
		}
		return remove(o, false)
	})
}

// Unlock removes a draft which is held by someone else.
func (w *FullReviewedActions) Unlock(ctx context.Context) (*core.Variant, error) {
	return mutate(ctx, &w.subject, "unlock", nil, func(o *op) (*core.Variant, error) {
		if !o.access.admin {
			return nil, core.Unauthorized(o.method, "%s may not unlock %s", o.user, o.doc.Handle.Path)
		}
		draft := o.doc.ForeignDraft(o.user)
		if draft == nil {
			return nil, core.Precondition(o.method, "there is no draft held by someone else")
		}
		if err := o.deleteVariant(draft); err != nil {
			return nil, err
		}
		return o.doc.Current(), nil
	})
}

func (w *FullReviewedActions) Hints(ctx context.Context) (Hints, error) {
	a, err := w.m.access(w.authPath(), w.user)
	if err != nil {
		return nil, err
	}
	var hints Hints
	err = w.read(ctx, func(tx core.Tx, doc *core.Document) error {
		var user = w.username()
		hints = basicHints(doc, w.m.docType(doc.Handle.DocType), a, user)
		hints["publish"] = a.publish && checkPublish(doc, "", false) == nil
		hints["depublish"] = a.publish && checkDepublish(doc, "", false) == nil
		hints["delete"] = a.publish && checkDelete(doc, "", user, false) == nil
		hints["unlock"] = a.admin && doc.ForeignDraft(user) != nil
		return nil
	})
	return hints, err
}
