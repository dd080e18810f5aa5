package workflow

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/doctype"
)

// subject is the document a workflow operates on, as seen at the revision the workflow knows.
type subject struct {
	m            *Manager
	user         auth.User
	kind         Kind
	category     string
	handleID     string
	path         string
	originalPath string
	revision     int64
}

func (s *subject) Kind() Kind {
	return s.kind
}

func (s *subject) Category() string {
	return s.category
}

// HandleID returns the id of the document handle.
func (s *subject) HandleID() string {
	return s.handleID
}

// Path returns the path of the document as known by the workflow.
func (s *subject) Path() string {
	return s.path
}

// Revision returns the handle revision the workflow expects. Mutations fail with core.ErrConflict if it is outdated.
func (s *subject) Revision() int64 {
	return s.revision
}

func (s *subject) username() string {
	return auth.Name(s.user)
}

func (s *subject) inAttic() bool {
	return s.originalPath != ""
}

// authPath returns the path which access rules and review chains are looked up for.
// Documents in the attic keep the rules of their original location.
func (s *subject) authPath() string {
	if s.inAttic() {
		return s.originalPath
	}
	return s.path
}

func (s *subject) follow(h *core.Handle) {
	s.path = h.Path
	s.originalPath = h.OriginalPath
	s.revision = h.Revision
}

// reload makes the workflow follow changes done by others, like nested workflows.
func (s *subject) reload(ctx context.Context) error {
	return core.WithTx(ctx, s.m.store, func(tx core.Tx) error {
		h, err := tx.GetHandle(ctx, s.handleID)
		if err != nil {
			return err
		}
		s.follow(h)
		return nil
	})
}

// read loads the document in a transaction which is rolled back afterwards.
func (s *subject) read(ctx context.Context, fn func(tx core.Tx, doc *core.Document) error) error {
	tx, err := s.m.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	doc, err := core.LoadDocument(ctx, tx, s.handleID)
	if err != nil {
		return err
	}
	return fn(tx, doc)
}

// An op is one mutating workflow call. Its helpers keep doc in sync with the store.
type op struct {
	ctx     context.Context
	tx      core.Tx
	doc     *core.Document
	docType *doctype.DocType
	access  access
	method  string
	user    string
	now     time.Time
	cfg     Config
	changed bool
	removed bool      // the handle has been removed
	snapped time.Time // of the last snapshot
}

func (o *op) insertVariant(v *core.Variant) error {
	if err := o.tx.InsertVariant(o.ctx, v); err != nil {
		return err
	}
	o.doc.Variants[v.State] = v
	o.changed = true
	return nil
}

func (o *op) updateVariant(v *core.Variant) error {
	v.Modifier = o.user
	v.Modified = o.now
	if err := o.tx.UpdateVariant(o.ctx, v); err != nil {
		return err
	}
	o.changed = true
	return nil
}

// setState changes the state of v. The target state must be free.
func (o *op) setState(v *core.Variant, state core.State) error {
	delete(o.doc.Variants, v.State)
	v.State = state
	if state != core.Draft {
		v.Holder = ""
	}
	o.doc.Variants[state] = v
	return o.updateVariant(v)
}

func (o *op) deleteVariant(v *core.Variant) error {
	if err := o.tx.DeleteVariant(o.ctx, v.ID); err != nil {
		return err
	}
	delete(o.doc.Variants, v.State)
	o.changed = true
	return nil
}

func (o *op) insertRequest(r *core.Request) error {
	if err := o.tx.InsertRequest(o.ctx, r); err != nil {
		return err
	}
	o.doc.Requests = append(o.doc.Requests, r)
	o.changed = true
	return nil
}

func (o *op) deleteRequest(r *core.Request) error {
	if err := o.tx.DeleteRequest(o.ctx, r.ID); err != nil {
		return err
	}
	var kept = o.doc.Requests[:0]
	for _, other := range o.doc.Requests {
		if other.ID != r.ID {
			kept = append(kept, other)
		}
	}
	o.doc.Requests = kept
	o.changed = true
	return nil
}

// snapshot captures v. It does nothing if v is nil or the document type is not versioned.
func (o *op) snapshot(v *core.Variant, label string) (*core.Snapshot, error) {
	if v == nil || !o.docType.Versioned {
		return nil, nil
	}
	var s = core.NewSnapshot(uuid.NewString(), v)
	s.Labels = []string{label}
	s.Created = o.now
	if !s.Created.After(o.snapped) {
		s.Created = o.snapped.Add(time.Nanosecond)
	}
	o.snapped = s.Created
	if err := o.tx.InsertSnapshot(o.ctx, s); err != nil {
		return nil, err
	}
	o.changed = true
	return s, nil
}

func (o *op) removeHandle() error {
	if err := o.tx.DeleteHandle(o.ctx, o.doc.Handle.ID); err != nil {
		return err
	}
	o.removed = true
	return nil
}

func (o *op) newVariant(state core.State, content string, props map[string]string) *core.Variant {
	return &core.Variant{
		ID:         uuid.NewString(),
		HandleID:   o.doc.Handle.ID,
		State:      state,
		Content:    content,
		Properties: core.CopyProperties(props),
		Creator:    o.user,
		Created:    o.now,
		Modifier:   o.user,
		Modified:   o.now,
	}
}

// mutate runs fn on a freshly loaded document. The document lock is held and the revision is checked.
// Afterwards it refreshes availability and summary, bumps the revision and records the call.
func mutate[T any](ctx context.Context, s *subject, method string, args interface{}, fn func(o *op) (T, error)) (result T, err error) {

	var started = time.Now()
	var path = s.path

	defer func() {
		s.m.record(ctx, s.kind, method, s.username(), path, args, result, err, started)
	}()

	ctx, err = enter(ctx, method, s.m.cfg.MaxDepth)
	if err != nil {
		return result, err
	}

	a, err := s.m.access(s.authPath(), s.user)
	if err != nil {
		return result, err
	}

	ctx, unlock, err := s.m.lock(ctx, "handle:"+s.handleID)
	if err != nil {
		return result, err
	}
	defer unlock()

	tx, err := s.m.store.Begin(ctx)
	if err != nil {
		return result, err
	}

	doc, err := core.LoadDocument(ctx, tx, s.handleID)
	if err != nil {
		tx.Rollback()
		return result, err
	}

	if doc.Handle.Revision != s.revision {
		tx.Rollback()
		return result, &core.WorkflowError{
			Op:     method,
			Reason: "the document has been modified, please reload it",
			Err:    core.ErrConflict,
		}
	}

	var o = &op{
		ctx:     ctx,
		tx:      tx,
		doc:     doc,
		docType: s.m.docType(doc.Handle.DocType),
		access:  a,
		method:  method,
		user:    s.username(),
		now:     s.m.Now(),
		cfg:     s.m.cfg,
	}

	result, err = fn(o)
	if err != nil {
		tx.Rollback()
		var zero T
		return zero, err
	}

	if o.changed && !o.removed {
		for _, v := range doc.Refresh() {
			if err = tx.UpdateVariant(ctx, v); err != nil {
				tx.Rollback()
				var zero T
				return zero, err
			}
		}
		if err = tx.UpdateHandle(ctx, doc.Handle); err != nil {
			tx.Rollback()
			var zero T
			return zero, err
		}
	}

	if err = tx.Commit(); err != nil {
		var zero T
		return zero, err
	}

	path = doc.Handle.Path
	if !o.removed {
		s.follow(doc.Handle)
	}
	return result, nil
}
