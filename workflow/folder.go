package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
)

// Folder is the workflow of a folder. It adds and lists documents.
type Folder struct {
	m    *Manager
	user auth.User
	path string
}

func (f *Folder) Kind() Kind {
	return KindFolder
}

func (f *Folder) Category() string {
	return CategoryDefault
}

func (f *Folder) Path() string {
	return f.path
}

func (f *Folder) require(method string, perm auth.Permission) error {
	ok, err := f.m.auth.HasPermission(perm, f.path, f.user)
	if err != nil {
		return err
	}
	if !ok {
		return core.Unauthorized(method, "%s lacks %s permission on %s", userName(f.user), perm, f.path)
	}
	return nil
}

// Add creates a document with an unpublished variant.
func (f *Folder) Add(ctx context.Context, name, docType, content string, props map[string]string) (h *core.Handle, err error) {

	const method = "add"

	var started = time.Now()
	var path = core.JoinPath(f.path, core.NormalizeSlug(name))
	var args = map[string]interface{}{"name": name, "doctype": docType, "properties": props}

	defer func() {
		f.m.record(ctx, KindFolder, method, auth.Name(f.user), path, args, h, err, started)
	}()

	if core.NormalizeSlug(name) == "" {
		return nil, core.Precondition(method, "invalid name %q", name)
	}
	if core.IsBelow(path, f.m.cfg.Attic) {
		return nil, core.Precondition(method, "documents can't be added to the attic")
	}
	t, ok := f.m.docTypes.Get(docType)
	if !ok {
		return nil, core.Precondition(method, "unknown document type %q", docType)
	}

	ctx, err = enter(ctx, method, f.m.cfg.MaxDepth)
	if err != nil {
		return nil, err
	}

	if err := f.require(method, auth.Create); err != nil {
		return nil, err
	}

	ctx, unlock, err := f.m.lock(ctx, "path:"+path)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var now = f.m.Now()
	var user = auth.Name(f.user)

	err = core.WithTx(ctx, f.m.store, func(tx core.Tx) error {

		switch _, err := tx.GetHandleByPath(ctx, path); {
		case err == nil:
			return core.Precondition(method, "%s exists already", path)
		case errors.Is(err, core.ErrNotFound):
		default:
			return err
		}

		var doc = &core.Document{
			Handle: &core.Handle{
				ID:             uuid.NewString(),
				Path:           path,
				DocType:        t.Code,
				Discriminators: append([]string{}, t.Discriminators...),
				Created:        now,
			},
			Variants: map[core.State]*core.Variant{},
		}
		var v = &core.Variant{
			ID:         uuid.NewString(),
			HandleID:   doc.Handle.ID,
			State:      core.Unpublished,
			Content:    content,
			Properties: core.CopyProperties(props),
			Creator:    user,
			Created:    now,
			Modifier:   user,
			Modified:   now,
		}
		doc.Variants[core.Unpublished] = v
		doc.Refresh()

		if err := tx.InsertHandle(ctx, doc.Handle); err != nil {
			return err
		}
		if err := tx.InsertVariant(ctx, v); err != nil {
			return err
		}
		h = doc.Handle
		return nil
	})
	if err != nil {
		return nil, err
	}
	return h, nil
}

// List returns the documents directly in the folder.
func (f *Folder) List(ctx context.Context) ([]*core.Handle, error) {
	if err := f.require("list", auth.Read); err != nil {
		return nil, err
	}
	var handles []*core.Handle
	err := core.WithTx(ctx, f.m.store, func(tx core.Tx) error {
		var err error
		handles, err = tx.GetHandlesIn(ctx, f.path)
		return err
	})
	return handles, err
}

func (f *Folder) Hints(ctx context.Context) (Hints, error) {
	canCreate, err := f.m.auth.HasPermission(auth.Create, f.path, f.user)
	if err != nil {
		return nil, err
	}
	canRead, err := f.m.auth.HasPermission(auth.Read, f.path, f.user)
	if err != nil {
		return nil, err
	}
	return Hints{
		"add":  canCreate && !core.IsBelow(f.path, f.m.cfg.Attic),
		"list": canRead,
	}, nil
}
