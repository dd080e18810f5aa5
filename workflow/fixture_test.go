package workflow

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/doctype"
	"github.com/wansing/docflow/eventlog"
	"github.com/wansing/docflow/sqldb"
)

var bg = context.Background()

// fixture has a review chain "editors, publishers" on the whole tree, and an admin.
type fixture struct {
	t         *testing.T
	m         *Manager
	store     *sqldb.DocumentDB
	events    *eventlog.Logger
	editor    auth.User
	editor2   auth.User
	publisher auth.User
	admin     auth.User
	outsider  auth.User

	mu    sync.Mutex
	clock time.Time
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.sqlite3") + "?_busy_timeout=10000&_journal=WAL&_txlock=immediate"
	db, err := sqldb.OpenDriver("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var a = sqldb.NewAuthDB(db)

	user := func(name string) auth.User {
		u, err := a.InsertUser(name)
		require.NoError(t, err)
		return u
	}
	group := func(name string, members ...auth.User) auth.DBGroup {
		g, err := a.InsertGroup(name)
		require.NoError(t, err)
		for _, m := range members {
			require.NoError(t, a.Join(g, m))
		}
		return g
	}

	var f = &fixture{
		t:         t,
		editor:    user("editor"),
		editor2:   user("editor2"),
		publisher: user("publisher"),
		admin:     user("admin"),
		outsider:  user("outsider"),
		clock:     time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}

	editors := group("editors", f.editor, f.editor2)
	publishers := group("publishers", f.publisher)
	admins := group("admins", f.admin)

	chain, err := a.InsertChain("review")
	require.NoError(t, err)
	require.NoError(t, a.UpdateChain(chain, []int{editors.ID(), publishers.ID()}))
	require.NoError(t, a.AssignChain("/", false, chain.ID()))

	require.NoError(t, a.AddAccessRule("/", editors.ID(), auth.Remove))
	require.NoError(t, a.AddAccessRule("/", publishers.ID(), auth.Remove))
	require.NoError(t, a.AddAccessRule("/", admins.ID(), auth.Admin))

	var docTypes = doctype.Builtin()
	docTypes.Add(&doctype.DocType{
		Code:           "article",
		Name:           "Article",
		Discriminators: []string{"language"},
		Editable:       true,
		Versioned:      true,
		Renderer:       doctype.Markdown{},
	})
	docTypes.Add(&doctype.DocType{
		Code:     "fixed",
		Name:     "Not editable",
		Renderer: doctype.Raw{},
	})

	f.store = sqldb.NewDocumentDB(db)
	f.events = eventlog.New(sqldb.NewEventDB(db), eventlog.Config{MaxEntries: 1000}, zerolog.Nop(), nil)

	f.m = NewManager(f.store, a, docTypes, cfg)
	f.m.Events = f.events
	f.m.Now = f.now
	return f
}

// now advances the clock by one second on every call.
func (f *fixture) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.clock = f.clock.Add(time.Second)
	return f.clock
}

func (f *fixture) workflow(category string, ref core.Ref, u auth.User) Workflow {
	f.t.Helper()
	wf, err := f.m.GetWorkflow(bg, category, ref, u)
	require.NoError(f.t, err)
	return wf
}

func (f *fixture) basic(h *core.Handle, u auth.User) *BasicReviewedActions {
	f.t.Helper()
	wf := f.workflow(CategoryDefault, core.HandleOf(h.ID), u)
	switch wf := wf.(type) {
	case *BasicReviewedActions:
		return wf
	case *FullReviewedActions:
		return wf.BasicReviewedActions
	}
	f.t.Fatalf("unexpected workflow %T", wf)
	return nil
}

func (f *fixture) full(h *core.Handle, u auth.User) *FullReviewedActions {
	f.t.Helper()
	wf, ok := f.workflow(CategoryDefault, core.HandleOf(h.ID), u).(*FullReviewedActions)
	require.True(f.t, ok)
	return wf
}

func (f *fixture) request(r *core.Request, u auth.User) *Request {
	f.t.Helper()
	wf, ok := f.workflow(CategoryDefault, core.RequestOf(r.ID), u).(*Request)
	require.True(f.t, ok)
	return wf
}

func (f *fixture) version(h *core.Handle, u auth.User) *Version {
	f.t.Helper()
	wf, ok := f.workflow(CategoryVersioning, core.HandleOf(h.ID), u).(*Version)
	require.True(f.t, ok)
	return wf
}

func (f *fixture) defaultOf(h *core.Handle, u auth.User) *Default {
	f.t.Helper()
	wf, ok := f.workflow(CategoryCore, core.HandleOf(h.ID), u).(*Default)
	require.True(f.t, ok)
	return wf
}

func (f *fixture) add(folder, name, docType, content string, props map[string]string) *core.Handle {
	f.t.Helper()
	folderWF, ok := f.workflow(CategoryDefault, core.Folder(folder), f.editor).(*Folder)
	require.True(f.t, ok)
	h, err := folderWF.Add(bg, name, docType, content, props)
	require.NoError(f.t, err)
	return h
}

// published adds a document and publishes it.
func (f *fixture) published(name, content string) *core.Handle {
	f.t.Helper()
	h := f.add("/news", name, "markdown", content, nil)
	_, err := f.full(h, f.publisher).Publish(bg)
	require.NoError(f.t, err)
	return h
}

func (f *fixture) load(handleID string) *core.Document {
	f.t.Helper()
	var doc *core.Document
	require.NoError(f.t, core.WithTx(bg, f.store, func(tx core.Tx) error {
		var err error
		doc, err = core.LoadDocument(bg, tx, handleID)
		return err
	}))
	return doc
}

// edit runs obtain, update and commit.
func (f *fixture) edit(h *core.Handle, u auth.User, content string, props map[string]string) *core.Variant {
	f.t.Helper()
	wf := f.basic(h, u)
	_, err := wf.ObtainEditableInstance(bg)
	require.NoError(f.t, err)
	_, err = wf.UpdateEditableInstance(bg, content, props)
	require.NoError(f.t, err)
	v, err := wf.CommitEditableInstance(bg)
	require.NoError(f.t, err)
	return v
}
