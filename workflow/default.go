package workflow

import (
	"context"
	"errors"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
)

// Default is the workflow of documents in the attic, and of core operations like renaming and moving.
type Default struct {
	subject
}

func (w *Default) can(perm auth.Permission, path string) (bool, error) {
	return w.m.auth.HasPermission(perm, path, w.user)
}

func checkRelocate(doc *core.Document, method, user string) error {
	if doc.Handle.InAttic() {
		return core.Precondition(method, "the document has been deleted")
	}
	if foreign := doc.ForeignDraft(user); foreign != nil {
		return core.Precondition(method, "the document is being edited by %s", foreign.Holder)
	}
	if r := doc.PendingRequest(); r != nil {
		return core.Precondition(method, "a %s request is pending", r.Type)
	}
	return nil
}

func requireFree(o *op, path string) error {
	switch _, err := o.tx.GetHandleByPath(o.ctx, path); {
	case err == nil:
		return core.Precondition(o.method, "%s exists already", path)
	case errors.Is(err, core.ErrNotFound):
		return nil
	default:
		return err
	}
}

// Rename changes the last segment of the path.
func (w *Default) Rename(ctx context.Context, name string) (*core.Handle, error) {
	var slug = core.NormalizeSlug(name)
	if slug == "" {
		return nil, core.Precondition("rename", "invalid name %q", name)
	}
	return w.relocate(ctx, "rename", map[string]string{"name": name}, core.ParentPath(w.path), slug)
}

// Move moves the document to another folder.
func (w *Default) Move(ctx context.Context, folder string) (*core.Handle, error) {
	folder, err := core.CleanPath(folder)
	if err != nil {
		return nil, core.Precondition("move", "%v", err)
	}
	return w.relocate(ctx, "move", map[string]string{"folder": folder}, folder, core.BaseName(w.path))
}

func (w *Default) relocate(ctx context.Context, method string, args interface{}, folder, name string) (*core.Handle, error) {

	var oldFolder = core.ParentPath(w.path)

	canRemove, err := w.can(auth.Remove, oldFolder)
	if err != nil {
		return nil, err
	}
	canCreate, err := w.can(auth.Create, folder)
	if err != nil {
		return nil, err
	}

	return mutate(ctx, &w.subject, method, args, func(o *op) (*core.Handle, error) {
		if !canRemove {
			return nil, core.Unauthorized(o.method, "%s may not remove documents from %s", o.user, oldFolder)
		}
		if !canCreate {
			return nil, core.Unauthorized(o.method, "%s may not add documents to %s", o.user, folder)
		}
		if err := checkRelocate(o.doc, o.method, o.user); err != nil {
			return nil, err
		}
		var newPath = core.JoinPath(folder, name)
		if core.IsBelow(newPath, o.cfg.Attic) {
			return nil, core.Precondition(o.method, "documents can't be moved to the attic, delete them instead")
		}
		if newPath == o.doc.Handle.Path {
			return o.doc.Handle, nil
		}
		if err := requireFree(o, newPath); err != nil {
			return nil, err
		}
		o.doc.Handle.Path = newPath
		o.changed = true
		return o.doc.Handle, nil
	})
}

// Restore brings a document back from the attic to its original location. Its variant becomes the unpublished variant.
func (w *Default) Restore(ctx context.Context) (*core.Handle, error) {

	canCreate, err := w.can(auth.Create, core.ParentPath(w.authPath()))
	if err != nil {
		return nil, err
	}

	return mutate(ctx, &w.subject, "restore", nil, func(o *op) (*core.Handle, error) {
		if !canCreate {
			return nil, core.Unauthorized(o.method, "%s may not add documents to %s", o.user, core.ParentPath(o.doc.Handle.OriginalPath))
		}
		var h = o.doc.Handle
		if !h.InAttic() {
			return nil, core.Precondition(o.method, "the document is not in the attic")
		}
		if err := requireFree(o, h.OriginalPath); err != nil {
			return nil, err
		}
		if v := o.doc.Variants[core.Deleted]; v != nil {
			if err := o.setState(v, core.Unpublished); err != nil {
				return nil, err
			}
		}
		h.Path = h.OriginalPath
		h.OriginalPath = ""
		o.changed = true
		return h, nil
	})
}

// Delete removes a document from the attic, including its history.
func (w *Default) Delete(ctx context.Context) error {

	canRemove, err := w.can(auth.Remove, core.ParentPath(w.authPath()))
	if err != nil {
		return err
	}

	_, err = mutate(ctx, &w.subject, "delete", nil, func(o *op) (*core.Handle, error) {
		if !canRemove {
			return nil, core.Unauthorized(o.method, "%s may not remove documents from %s", o.user, core.ParentPath(o.doc.Handle.OriginalPath))
		}
		if !o.doc.Handle.InAttic() {
			return nil, core.Precondition(o.method, "the document is not in the attic")
		}
		return o.doc.Handle, o.removeHandle()
	})
	return err
}

func (w *Default) Hints(ctx context.Context) (Hints, error) {
	var hints Hints
	err := w.read(ctx, func(tx core.Tx, doc *core.Document) error {
		var inAttic = doc.Handle.InAttic()
		var relocatable = checkRelocate(doc, "", w.username()) == nil
		hints = Hints{
			"rename":  !inAttic && relocatable,
			"move":    !inAttic && relocatable,
			"restore": inAttic,
			"delete":  inAttic,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var folder = core.ParentPath(w.authPath())
	canCreate, err := w.can(auth.Create, folder)
	if err != nil {
		return nil, err
	}
	canRemove, err := w.can(auth.Remove, folder)
	if err != nil {
		return nil, err
	}
	hints["rename"] = hints["rename"] && canCreate && canRemove
	hints["move"] = hints["move"] && canRemove
	hints["restore"] = hints["restore"] && canCreate
	hints["delete"] = hints["delete"] && canRemove
	return hints, nil
}
