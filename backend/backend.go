// Package backend provides the JSON HTTP API of docflow.
package backend

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/doctype"
	"github.com/wansing/docflow/eventlog"
	"github.com/wansing/docflow/workflow"
)

type Backend struct {
	Auth     *auth.AuthDB
	Store    core.Store
	Manager  *workflow.Manager
	DocTypes doctype.Registry
	Events   *eventlog.Logger
	Sessions *scs.SessionManager
	Gatherer prometheus.Gatherer // serves /metrics if not nil
	Log      zerolog.Logger
}

// NewSessionManager returns a session manager whose cookie is restricted to cookiePath.
func NewSessionManager(store scs.Store, cookiePath string) *scs.SessionManager {
	var sessions = scs.New()
	sessions.Store = store
	sessions.Cookie.Path = cookiePath + "/"
	sessions.Cookie.Persist = false                 // required for the GDPR cookie consent exemption
	sessions.Cookie.SameSite = http.SameSiteLaxMode // GET requests don't modify anything
	sessions.Cookie.Secure = false                  // else running on localhost or behind a http proxy fails
	sessions.IdleTimeout = 12 * time.Hour
	sessions.Lifetime = 720 * time.Hour
	return sessions
}

var langMatcher = language.NewMatcher([]language.Tag{
	language.AmericanEnglish, // default
	language.German,
})

// we need the backend in the handlers
type context struct {
	*Backend
	w    http.ResponseWriter
	req  *http.Request
	User auth.User // nil if not logged in
	Lang language.Tag
}

func (ctx *context) LoggedIn() bool {
	return ctx.User != nil
}

func (ctx *context) IsRootAdmin() bool {
	ok, err := ctx.Auth.HasPermission(auth.Admin, "/", ctx.User)
	return ok && err == nil
}

type handler func(w http.ResponseWriter, req *http.Request, ctx *context, params httprouter.Params) error

func (b *Backend) middleware(requireLoggedIn bool, f handler) httprouter.Handle {
	return func(rw http.ResponseWriter, req *http.Request, params httprouter.Params) {

		var w = &trackingWriter{ResponseWriter: rw}
		var ctx = &context{
			Backend: b,
			w:       w,
			req:     req,
		}
		ctx.Lang, _ = language.MatchStrings(langMatcher, req.Header.Get("Accept-Language"))

		if uid := b.Sessions.GetInt(req.Context(), "uid"); uid != 0 {
			if u, err := b.Auth.GetUser(uid); err == nil && u != nil {
				ctx.User = u
			}
			// ignore errors
		}

		if requireLoggedIn && !ctx.LoggedIn() {
			writeError(w, ErrLoginRequired)
			return
		}

		if err := f(w, req, ctx, params); err != nil {
			if w.wroteHeader {
				// too late for an error response
				b.Log.Error().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("writing response failed")
				return
			}
			if status := statusOf(err); status >= http.StatusInternalServerError {
				b.Log.Error().Err(err).Str("method", req.Method).Str("path", req.URL.Path).Msg("request failed")
			}
			writeError(w, err)
		}
	}
}

// Handler returns the router, wrapped in the session middleware.
func (b *Backend) Handler() http.Handler {

	var router = httprouter.New()

	var public = func(method, path string, f handler) {
		router.Handle(method, path, b.middleware(false, f))
	}
	var private = func(method, path string, f handler) {
		router.Handle(method, path, b.middleware(true, f))
	}

	public(http.MethodGet, "/", root)
	public(http.MethodPost, "/login", login)
	public(http.MethodGet, "/doc/*path", doc)
	public(http.MethodGet, "/preview/*path", preview)

	private(http.MethodPost, "/logout", logout)
	private(http.MethodGet, "/list/*path", list)
	private(http.MethodPost, "/add/*path", create)

	private(http.MethodPost, "/edit/*path", obtain)
	private(http.MethodPut, "/draft/*path", update)
	private(http.MethodPost, "/commit/*path", commit)
	private(http.MethodPost, "/dispose/*path", dispose)

	private(http.MethodPost, "/request/publish/*path", requestAction(core.RequestPublish))
	private(http.MethodPost, "/request/depublish/*path", requestAction(core.RequestDepublish))
	private(http.MethodPost, "/request/delete/*path", requestAction(core.RequestDelete))

	private(http.MethodPost, "/publish/*path", publish)
	private(http.MethodPost, "/depublish/*path", depublish)
	private(http.MethodPost, "/delete/*path", del)
	private(http.MethodPost, "/unlock/*path", unlock)

	private(http.MethodPost, "/requests/:id/accept", accept)
	private(http.MethodPost, "/requests/:id/reject", reject)
	private(http.MethodPost, "/requests/:id/cancel", revoke)

	private(http.MethodGet, "/history/*path", history)
	private(http.MethodGet, "/version/*path", version)
	private(http.MethodPost, "/revert/*path", revert)

	private(http.MethodPost, "/rename/*path", rename)
	private(http.MethodPost, "/move/*path", move)
	private(http.MethodPost, "/restore/*path", restore)

	private(http.MethodGet, "/events", events)
	private(http.MethodGet, "/users", users)
	private(http.MethodPost, "/users", users)
	private(http.MethodGet, "/users/:id", user)
	private(http.MethodGet, "/groups", groups)
	private(http.MethodPost, "/groups", groups)
	private(http.MethodGet, "/groups/:id", group)
	private(http.MethodGet, "/chains", chains)
	private(http.MethodGet, "/rules", rules)
	private(http.MethodPost, "/access/*path", access)

	if b.Gatherer != nil {
		router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(b.Gatherer, promhttp.HandlerOpts{}))
	}

	return b.Sessions.LoadAndSave(router)
}
