package workflow

import (
	"context"
	"time"

	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/doctype"
)

// Version is the history workflow of a document, or of one of its variants.
type Version struct {
	subject
	variantID string // empty at handle scope
}

// VariantID returns the id of the variant, or the empty string if the workflow operates on the whole document.
func (w *Version) VariantID() string {
	return w.variantID
}

// variant returns the variant whose history is considered.
func (w *Version) variant(doc *core.Document) *core.Variant {
	if w.variantID != "" {
		for _, v := range doc.Variants {
			if v.ID == w.variantID {
				return v
			}
		}
		return nil
	}
	if v := doc.Current(); v != nil {
		return v
	}
	return doc.Variants[core.Deleted]
}

// filter returns whether a snapshot belongs to the history. At handle scope, only published snapshots count.
// The snapshot must be similar to the variant.
func (w *Version) filter(doc *core.Document) func(s *core.Snapshot) bool {
	var props map[string]string
	if v := w.variant(doc); v != nil {
		props = v.Properties
	}
	return func(s *core.Snapshot) bool {
		if w.variantID != "" {
			if s.VariantID != w.variantID {
				return false
			}
		} else if s.State != core.Published {
			return false
		}
		return s.Similar(props, doc.Handle.Discriminators)
	}
}

// Version captures the current state of the variant.
func (w *Version) Version(ctx context.Context) (*core.Snapshot, error) {
	return mutate(ctx, &w.subject, "version", nil, func(o *op) (*core.Snapshot, error) {
		if err := requireEdit(o); err != nil {
			return nil, err
		}
		if !o.docType.Versioned {
			return nil, core.Precondition(o.method, "documents of type %s are not versioned", o.docType.Code)
		}
		v := w.variant(o.doc)
		if v == nil {
			return nil, core.Precondition(o.method, "there is no variant to version")
		}
		return o.snapshot(v, "version")
	})
}

func (w *Version) requireRead(method string) error {
	a, err := w.m.access(w.authPath(), w.user)
	if err != nil {
		return err
	}
	if !a.read {
		return core.Unauthorized(method, "%s may not read %s", userName(w.user), w.path)
	}
	return nil
}

// List returns the history, ordered by time.
func (w *Version) List(ctx context.Context) ([]HistoryEntry, error) {
	if err := w.requireRead("list"); err != nil {
		return nil, err
	}
	var entries []HistoryEntry
	err := w.read(ctx, func(tx core.Tx, doc *core.Document) error {
		snapshots, err := tx.GetSnapshots(ctx, doc.Handle.ID)
		if err != nil {
			return err
		}
		entries = history(snapshots, w.filter(doc))
		return nil
	})
	return entries, err
}

// Retrieve returns the snapshot which has been created at ts and belongs to the history. It returns nil if there is none.
func (w *Version) Retrieve(ctx context.Context, ts time.Time) (*core.Snapshot, error) {
	if err := w.requireRead("retrieve"); err != nil {
		return nil, err
	}
	var result *core.Snapshot
	err := w.read(ctx, func(tx core.Tx, doc *core.Document) error {
		snapshots, err := tx.GetSnapshots(ctx, doc.Handle.ID)
		if err != nil {
			return err
		}
		var keep = w.filter(doc)
		for _, s := range snapshots {
			if s.Created.Equal(ts) && keep(s) {
				result = s
				return nil
			}
		}
		return nil
	})
	return result, err
}

// checkRevert is like checkObtain, but refuses any existing draft, as the draft would be overwritten.
func checkRevert(doc *core.Document, docType *doctype.DocType, user string) error {
	if err := checkObtain(doc, docType, user); err != nil {
		return err
	}
	if doc.Draft() != nil {
		return core.Precondition("revert", "commit or dispose your draft first")
	}
	return nil
}

// Revert restores the content of the version at ts. The unpublished variant is captured first.
// Then the content is written through a draft, so the result is the unpublished variant.
// It fails while a draft exists.
func (w *Version) Revert(ctx context.Context, ts time.Time) (result *core.Variant, err error) {

	var started = time.Now()
	var args = map[string]time.Time{"ts": ts}
	defer func() {
		w.m.record(ctx, w.kind, "revert", w.username(), w.path, args, result, err, started)
	}()

	ctx, err = enter(ctx, "revert", w.m.cfg.MaxDepth)
	if err != nil {
		return nil, err
	}

	ctx, unlock, err := w.m.lock(ctx, "handle:"+w.handleID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	s, err := w.Retrieve(ctx, ts)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, core.Precondition("revert", "there is no version at %s", ts.Format(time.RFC3339Nano))
	}

	_, err = mutate(ctx, &w.subject, "versionUnpublished", nil, func(o *op) (*core.Snapshot, error) {
		if err := requireEdit(o); err != nil {
			return nil, err
		}
		if err := checkRevert(o.doc, o.docType, o.user); err != nil {
			return nil, err
		}
		return o.snapshot(o.doc.Unpublished(), "revert")
	})
	if err != nil {
		return nil, err
	}

	basic, err := w.m.basic(ctx, w.handleID, w.user)
	if err != nil {
		return nil, err
	}

	if _, err := basic.ObtainEditableInstance(ctx); err != nil {
		return nil, err
	}
	if _, err := basic.UpdateEditableInstance(ctx, s.Content, s.Properties); err != nil {
		basic.DisposeEditableInstance(ctx)
		return nil, err
	}
	result, err = basic.CommitEditableInstance(ctx)
	if err != nil {
		basic.DisposeEditableInstance(ctx)
		return nil, err
	}

	return result, w.reload(ctx)
}

// RestoreTo writes the content of the version at ts to a draft held by the caller. The draft may belong to another document.
func (w *Version) RestoreTo(ctx context.Context, ts time.Time, draftID string) (*core.Variant, error) {

	s, err := w.Retrieve(ctx, ts)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, core.Precondition("restoreTo", "there is no version at %s", ts.Format(time.RFC3339Nano))
	}

	wf, err := w.m.GetWorkflow(ctx, CategoryVersioning, core.VariantOf(draftID), w.user)
	if err != nil {
		return nil, err
	}
	target := wf.(*Version)

	var args = map[string]interface{}{"ts": ts, "draft": draftID}
	return mutate(ctx, &target.subject, "restoreTo", args, func(o *op) (*core.Variant, error) {
		if err := requireEdit(o); err != nil {
			return nil, err
		}
		draft, err := ownDraft(o.doc, o.method, o.user)
		if err != nil {
			return nil, err
		}
		if draft.ID != draftID {
			return nil, core.Precondition(o.method, "the target is not a draft")
		}
		draft.Content = s.Content
		draft.Properties = core.CopyProperties(s.Properties)
		return draft, o.updateVariant(draft)
	})
}

func (w *Version) Hints(ctx context.Context) (Hints, error) {
	a, err := w.m.access(w.authPath(), w.user)
	if err != nil {
		return nil, err
	}
	var hints Hints
	err = w.read(ctx, func(tx core.Tx, doc *core.Document) error {
		var docType = w.m.docType(doc.Handle.DocType)
		var v = w.variant(doc)
		hints = Hints{
			"version":  a.edit && docType.Versioned && v != nil,
			"list":     a.read,
			"retrieve": a.read,
			"revert":   a.edit && checkRevert(doc, docType, w.username()) == nil,
		}
		return nil
	})
	return hints, err
}
