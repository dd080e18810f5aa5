package backend

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/alexedwards/scs/v2/memstore"
	"github.com/julienschmidt/httprouter"
	_ "github.com/mattn/go-sqlite3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/doctype"
	"github.com/wansing/docflow/eventlog"
	"github.com/wansing/docflow/metrics"
	"github.com/wansing/docflow/sqldb"
	"github.com/wansing/docflow/workflow"
)

const password = "secret"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	dsn := "file:" + filepath.Join(t.TempDir(), "test.sqlite3") + "?_busy_timeout=10000&_journal=WAL&_txlock=immediate"
	db, err := sqldb.OpenDriver("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	var a = sqldb.NewAuthDB(db)

	user := func(name string) auth.User {
		u, err := a.InsertUser(name)
		require.NoError(t, err)
		require.NoError(t, a.SetPassword(u, password))
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

	editors := group("editors", user("editor"))
	publishers := group("publishers", user("publisher"))
	admins := group("admins", user("admin"))

	chain, err := a.InsertChain("review")
	require.NoError(t, err)
	require.NoError(t, a.UpdateChain(chain, []int{editors.ID(), publishers.ID()}))
	require.NoError(t, a.AssignChain("/", false, chain.ID()))
	require.NoError(t, a.AddAccessRule("/", 0, auth.Read))
	require.NoError(t, a.AddAccessRule("/", editors.ID(), auth.Remove))
	require.NoError(t, a.AddAccessRule("/", publishers.ID(), auth.Remove))
	require.NoError(t, a.AddAccessRule("/", admins.ID(), auth.Admin))

	var reg = prometheus.NewRegistry()
	var m = metrics.New(reg)
	var docTypes = doctype.Builtin()
	var store = sqldb.NewDocumentDB(db)
	var events = eventlog.New(sqldb.NewEventDB(db), eventlog.Config{MaxEntries: 100}, zerolog.Nop(), m)

	var manager = workflow.NewManager(store, a, docTypes, workflow.Config{})
	manager.Events = events
	manager.Metrics = m

	var b = &Backend{
		Auth:     a,
		Store:    store,
		Manager:  manager,
		DocTypes: docTypes,
		Events:   events,
		Sessions: NewSessionManager(memstore.New(), ""),
		Gatherer: reg,
		Log:      zerolog.Nop(),
	}

	srv := httptest.NewServer(b.Handler())
	t.Cleanup(srv.Close)
	return srv
}

type client struct {
	t   *testing.T
	srv *httptest.Server
	*http.Client
}

func newClient(t *testing.T, srv *httptest.Server) *client {
	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	return &client{
		t:      t,
		srv:    srv,
		Client: &http.Client{Jar: jar},
	}
}

// login returns a client with a session of the given user.
func loginAs(t *testing.T, srv *httptest.Server, name string) *client {
	c := newClient(t, srv)
	resp, _ := c.do(http.MethodPost, "/login", url.Values{"name": {name}, "password": {password}})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	return c
}

func (c *client) do(method, path string, values url.Values) (*http.Response, []byte) {
	c.t.Helper()
	var body io.Reader
	if method != http.MethodGet {
		body = strings.NewReader(values.Encode())
	} else if len(values) > 0 {
		path += "?" + values.Encode()
	}
	req, err := http.NewRequest(method, c.srv.URL+path, body)
	require.NoError(c.t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept-Language", "de-DE,de;q=0.9,en;q=0.5")
	resp, err := c.Do(req)
	require.NoError(c.t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(c.t, err)
	return resp, data
}

// expect runs the request, checks the status and decodes the json response into v, if v is not nil.
func (c *client) expect(status int, method, path string, values url.Values, v interface{}) {
	c.t.Helper()
	resp, data := c.do(method, path, values)
	require.Equal(c.t, status, resp.StatusCode, "%s %s: %s", method, path, data)
	if v != nil {
		require.NoError(c.t, json.Unmarshal(data, v))
	}
}

func itoa(i int64) string {
	return strconv.FormatInt(i, 10)
}

func TestLogin(t *testing.T) {
	srv := newTestServer(t)

	anonymous := newClient(t, srv)
	anonymous.expect(http.StatusUnauthorized, http.MethodPost, "/login", url.Values{"name": {"editor"}, "password": {"wrong"}}, nil)
	anonymous.expect(http.StatusUnauthorized, http.MethodPost, "/edit/news/first", nil, nil)

	var r rootJSON
	anonymous.expect(http.StatusOK, http.MethodGet, "/", nil, &r)
	assert.Nil(t, r.User)
	assert.Equal(t, "de", r.Language[:2])
	assert.Contains(t, r.DocTypes, "markdown")

	editor := loginAs(t, srv, "editor")
	editor.expect(http.StatusOK, http.MethodGet, "/", nil, &r)
	require.NotNil(t, r.User)
	assert.Equal(t, "editor", r.User.Name)
	assert.False(t, r.Admin)

	editor.expect(http.StatusNoContent, http.MethodPost, "/logout", nil, nil)
	editor.expect(http.StatusUnauthorized, http.MethodPost, "/logout", nil, nil)
}

func TestReviewOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	editor := loginAs(t, srv, "editor")
	publisher := loginAs(t, srv, "publisher")
	anonymous := newClient(t, srv)

	var h handleJSON
	editor.expect(http.StatusCreated, http.MethodPost, "/add/news", url.Values{"name": {"First"}, "doctype": {"markdown"}, "content": {"# Hello\n\nworld"}}, &h)
	assert.Equal(t, "/news/first", h.Path)

	var d documentJSON
	editor.expect(http.StatusOK, http.MethodGet, "/doc/news/first", nil, &d)
	assert.Equal(t, "new", string(d.Handle.Summary))
	assert.Equal(t, workflow.KindBasic, d.Workflow)
	assert.True(t, d.Hints["obtainEditableInstance"])
	require.Len(t, d.Variants, 1)

	// nothing is live yet
	anonymous.expect(http.StatusNotFound, http.MethodGet, "/preview/news/first", nil, nil)

	var v variantJSON
	editor.expect(http.StatusOK, http.MethodPost, "/edit/news/first", nil, &v)
	assert.Equal(t, "draft", string(v.State))
	assert.Equal(t, "editor", v.Holder)

	editor.expect(http.StatusOK, http.MethodPut, "/draft/news/first", url.Values{"content": {"# Hello\n\nworld!"}, "property": {"language=de"}}, &v)
	assert.Equal(t, "de", v.Properties["language"])
	editor.expect(http.StatusOK, http.MethodPost, "/commit/news/first", nil, &v)
	assert.Equal(t, "unpublished", string(v.State))

	var r requestJSON
	editor.expect(http.StatusCreated, http.MethodPost, "/request/publish/news/first", nil, &r)
	assert.Equal(t, "publish", string(r.Type))

	editor.expect(http.StatusForbidden, http.MethodPost, "/requests/"+r.ID+"/accept", nil, nil)
	editor.expect(http.StatusUnprocessableEntity, http.MethodPost, "/request/delete/news/first", nil, nil)

	publisher.expect(http.StatusOK, http.MethodPost, "/requests/"+r.ID+"/accept", nil, &v)
	assert.Equal(t, "published", string(v.State))
	publisher.expect(http.StatusNotFound, http.MethodPost, "/requests/"+r.ID+"/accept", nil, nil)

	resp, body := anonymous.do(http.MethodGet, "/preview/news/first", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "de", resp.Header.Get("Content-Language"))
	assert.Contains(t, string(body), "<title>Hello</title>")
	assert.Contains(t, string(body), "<p>world!</p>")

	editor.expect(http.StatusOK, http.MethodGet, "/doc/news/first", nil, &d)
	assert.Equal(t, "live", string(d.Handle.Summary))
	assert.Empty(t, d.Requests)
}

func TestErrorStatus(t *testing.T) {
	srv := newTestServer(t)
	editor := loginAs(t, srv, "editor")
	publisher := loginAs(t, srv, "publisher")

	editor.expect(http.StatusNotFound, http.MethodGet, "/doc/nothing", nil, nil)
	editor.expect(http.StatusUnprocessableEntity, http.MethodPost, "/add/news", url.Values{"name": {"first"}, "doctype": {"unknown"}}, nil)

	var h handleJSON
	editor.expect(http.StatusCreated, http.MethodPost, "/add/news", url.Values{"name": {"first"}, "doctype": {"markdown"}, "content": {"v1"}}, &h)

	editor.expect(http.StatusForbidden, http.MethodPost, "/publish/news/first", nil, nil)
	publisher.expect(http.StatusOK, http.MethodPost, "/publish/news/first", nil, nil)
	publisher.expect(http.StatusUnprocessableEntity, http.MethodPost, "/publish/news/first", nil, nil)

	// stale revision
	editor.expect(http.StatusConflict, http.MethodPost, "/edit/news/first", url.Values{"revision": {"999"}}, nil)

	var d documentJSON
	editor.expect(http.StatusOK, http.MethodGet, "/doc/news/first", nil, &d)
	editor.expect(http.StatusOK, http.MethodPost, "/edit/news/first", url.Values{"revision": {itoa(d.Handle.Revision)}}, nil)

	// the draft is held by editor
	publisher.expect(http.StatusUnprocessableEntity, http.MethodPost, "/edit/news/first", nil, nil)

	var e errorJSON
	publisher.expect(http.StatusUnprocessableEntity, http.MethodPost, "/depublish/news/first", nil, &e)
	assert.Equal(t, "depublish", e.Op)
	assert.NotEmpty(t, e.Reason)
}

func TestHistoryOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	editor := loginAs(t, srv, "editor")
	publisher := loginAs(t, srv, "publisher")

	editor.expect(http.StatusCreated, http.MethodPost, "/add/news", url.Values{"name": {"first"}, "doctype": {"markdown"}, "content": {"v1"}}, nil)
	publisher.expect(http.StatusOK, http.MethodPost, "/publish/news/first", nil, nil)
	editor.expect(http.StatusOK, http.MethodPost, "/edit/news/first", nil, nil)
	editor.expect(http.StatusOK, http.MethodPut, "/draft/news/first", url.Values{"content": {"v2"}}, nil)
	editor.expect(http.StatusOK, http.MethodPost, "/commit/news/first", nil, nil)
	publisher.expect(http.StatusOK, http.MethodPost, "/publish/news/first", nil, nil)

	var hist historyJSON
	editor.expect(http.StatusOK, http.MethodGet, "/history/news/first", nil, &hist)
	require.Len(t, hist.Entries, 2)
	assert.True(t, hist.Hints["revert"])

	var ts = hist.Entries[0].Created.Format("2006-01-02T15:04:05.999999999Z07:00")

	var s snapshotJSON
	editor.expect(http.StatusOK, http.MethodGet, "/version/news/first", url.Values{"ts": {ts}}, &s)
	assert.Equal(t, "v1", s.Content)
	editor.expect(http.StatusUnprocessableEntity, http.MethodGet, "/version/news/first", nil, nil)
	editor.expect(http.StatusNotFound, http.MethodGet, "/version/news/first", url.Values{"ts": {"2000-01-01"}}, nil)

	var v variantJSON
	editor.expect(http.StatusOK, http.MethodPost, "/revert/news/first", url.Values{"ts": {ts}}, &v)
	assert.Equal(t, "unpublished", string(v.State))
	assert.Equal(t, "v1", v.Content)
}

func TestAtticOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	editor := loginAs(t, srv, "editor")
	publisher := loginAs(t, srv, "publisher")

	editor.expect(http.StatusCreated, http.MethodPost, "/add/news", url.Values{"name": {"first"}, "doctype": {"markdown"}, "content": {"v1"}}, nil)

	var deleted struct {
		Path string `json:"path"`
	}
	publisher.expect(http.StatusOK, http.MethodPost, "/delete/news/first", nil, &deleted)
	assert.True(t, strings.HasPrefix(deleted.Path, "/attic/first-"))

	editor.expect(http.StatusNotFound, http.MethodGet, "/doc/news/first", nil, nil)

	var h handleJSON
	editor.expect(http.StatusOK, http.MethodPost, "/restore"+deleted.Path, nil, &h)
	assert.Equal(t, "/news/first", h.Path)

	editor.expect(http.StatusOK, http.MethodPost, "/rename/news/first", url.Values{"name": {"renamed"}}, &h)
	assert.Equal(t, "/news/renamed", h.Path)
	editor.expect(http.StatusOK, http.MethodPost, "/move/news/renamed", url.Values{"folder": {"/archive"}}, &h)
	assert.Equal(t, "/archive/renamed", h.Path)

	var l listJSON
	editor.expect(http.StatusOK, http.MethodGet, "/list/archive", nil, &l)
	require.Len(t, l.Documents, 1)
	assert.Equal(t, "/archive/renamed", l.Documents[0].Path)
	assert.True(t, l.Hints["add"])
}

func TestAdminOverHTTP(t *testing.T) {
	srv := newTestServer(t)
	admin := loginAs(t, srv, "admin")
	editor := loginAs(t, srv, "editor")

	editor.expect(http.StatusCreated, http.MethodPost, "/add/news", url.Values{"name": {"first"}, "doctype": {"raw"}}, nil)

	editor.expect(http.StatusForbidden, http.MethodGet, "/events", nil, nil)
	editor.expect(http.StatusForbidden, http.MethodGet, "/users", nil, nil)

	var events []eventJSON
	admin.expect(http.StatusOK, http.MethodGet, "/events", url.Values{"limit": {"10"}}, &events)
	require.Len(t, events, 1)
	assert.Equal(t, "add", events[0].Method)
	assert.Equal(t, "editor", events[0].User)
	admin.expect(http.StatusUnprocessableEntity, http.MethodGet, "/events", url.Values{"limit": {"0"}}, nil)

	var u userJSON
	admin.expect(http.StatusCreated, http.MethodPost, "/users", url.Values{"name": {"newbie"}, "password": {"pw"}}, &u)
	var all []userJSON
	admin.expect(http.StatusOK, http.MethodGet, "/users", nil, &all)
	assert.Len(t, all, 4)

	var g groupJSON
	admin.expect(http.StatusCreated, http.MethodPost, "/groups", url.Values{"name": {"readers"}}, &g)
	admin.expect(http.StatusNoContent, http.MethodPost, "/access/news", url.Values{"group": {itoa(int64(g.ID))}, "permission": {"read"}}, nil)
	admin.expect(http.StatusUnprocessableEntity, http.MethodPost, "/access/news", url.Values{"group": {itoa(int64(g.ID))}, "permission": {"everything"}}, nil)
	editor.expect(http.StatusForbidden, http.MethodPost, "/access/news", url.Values{"group": {itoa(int64(g.ID))}, "permission": {"admin"}}, nil)

	var rs []ruleJSON
	admin.expect(http.StatusOK, http.MethodGet, "/rules", nil, &rs)
	require.Len(t, rs, 5)
	assert.Equal(t, "/news", rs[4].Path)
	assert.Equal(t, "read", rs[4].Permission)

	var cs []chainJSON
	admin.expect(http.StatusOK, http.MethodGet, "/chains", nil, &cs)
	require.Len(t, cs, 1)
	assert.Len(t, cs[0].Groups, 2)
	assert.Equal(t, []assignmentJSON{{Path: "/"}}, cs[0].Assignments)

	var ug userGroupsJSON
	editor.expect(http.StatusOK, http.MethodGet, "/users/1", nil, &ug)
	assert.Equal(t, "editor", ug.Name)
	require.Len(t, ug.Groups, 1)
	editor.expect(http.StatusForbidden, http.MethodGet, "/users/2", nil, nil)

	var gm groupMembersJSON
	admin.expect(http.StatusOK, http.MethodGet, "/groups/1", nil, &gm)
	assert.Equal(t, []userJSON{{ID: 1, Name: "editor"}}, gm.Members)
	admin.expect(http.StatusNotFound, http.MethodGet, "/groups/99", nil, nil)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := newTestServer(t)
	editor := loginAs(t, srv, "editor")
	editor.expect(http.StatusCreated, http.MethodPost, "/add/news", url.Values{"name": {"first"}, "doctype": {"raw"}}, nil)

	resp, body := newClient(t, srv).do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `docflow_workflow_calls_total{method="add",outcome="ok",workflow="Folder"} 1`)
}

func TestErrorAfterResponse(t *testing.T) {
	b := &Backend{
		Sessions: NewSessionManager(memstore.New(), ""),
		Log:      zerolog.Nop(),
	}
	router := httprouter.New()
	router.Handle(http.MethodGet, "/written", b.middleware(false, func(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
		if err := respond(w, map[string]string{"ok": "yes"}); err != nil {
			return err
		}
		return errors.New("failed afterwards")
	}))
	router.Handle(http.MethodGet, "/unencodable", b.middleware(false, func(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error {
		return respond(w, map[string]interface{}{"ch": make(chan int)})
	}))
	handler := b.Sessions.LoadAndSave(router)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/written", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":"yes"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/unencodable", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var e errorJSON
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &e))
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), e.Error)
}

func TestCreateLocation(t *testing.T) {
	srv := newTestServer(t)
	editor := loginAs(t, srv, "editor")
	resp, data := editor.do(http.MethodPost, "/add/news", url.Values{"name": {"First"}, "doctype": {"raw"}})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	assert.Equal(t, "/doc/news/first", resp.Header.Get("Location"))
}
