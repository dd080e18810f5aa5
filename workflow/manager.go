package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/wansing/docflow/auth"
	"github.com/wansing/docflow/core"
	"github.com/wansing/docflow/doctype"
	"github.com/wansing/docflow/eventlog"
	"github.com/wansing/docflow/lock"
	"github.com/wansing/docflow/metrics"
	"github.com/wansing/docflow/util"
)

// Authorizer is implemented by *auth.AuthDB.
type Authorizer interface {
	HasPermission(perm auth.Permission, path string, u auth.User) (bool, error)
	ReleaseState(path string, u auth.User) (*auth.ReleaseState, error)
}

type Retention string

const (
	RetentionAttic  Retention = "attic"  // deleted documents are moved to the attic
	RetentionRemove Retention = "remove" // deleted documents are removed at once
)

type Config struct {
	Attic     string // folder of deleted documents
	Retention Retention
	MaxDepth  int // of nested workflow calls
}

type Manager struct {
	store    core.Store
	auth     Authorizer
	docTypes doctype.Registry
	cfg      Config

	Events  *eventlog.Logger // may be nil
	Locker  lock.Locker
	Metrics *metrics.Metrics // may be nil
	Log     zerolog.Logger
	Now     func() time.Time
}

func NewManager(store core.Store, authorizer Authorizer, docTypes doctype.Registry, cfg Config) *Manager {
	if cfg.Attic == "" {
		cfg.Attic = "/attic"
	}
	if cfg.Retention == "" {
		cfg.Retention = RetentionAttic
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 8
	}
	return &Manager{
		store:    store,
		auth:     authorizer,
		docTypes: docTypes,
		cfg:      cfg,
		Locker:   lock.NewMemory(),
		Log:      zerolog.Nop(),
		Now:      time.Now,
	}
}

// GetWorkflow returns the workflow of the given category for ref.
func (m *Manager) GetWorkflow(ctx context.Context, category string, ref core.Ref, user auth.User) (Workflow, error) {

	const op = "getWorkflow"

	if ref.Kind == core.FolderRef {
		if category != CategoryDefault {
			return nil, core.NoWorkflow(op, "no %s workflow for folders", category)
		}
		path, err := core.CleanPath(ref.Path)
		if err != nil {
			return nil, core.Precondition(op, "%v", err)
		}
		return &Folder{
			m:    m,
			user: user,
			path: path,
		}, nil
	}

	var handleID, variantID, requestID string

	err := core.WithTx(ctx, m.store, func(tx core.Tx) error {
		switch ref.Kind {
		case core.HandleRef:
			handleID = ref.ID
		case core.VariantRef:
			v, err := tx.GetVariant(ctx, ref.ID)
			if err != nil {
				return err
			}
			handleID = v.HandleID
			variantID = v.ID
		case core.RequestRef:
			r, err := tx.GetRequest(ctx, ref.ID)
			if err != nil {
				return err
			}
			handleID = r.HandleID
			requestID = r.ID
		default:
			return core.NoWorkflow(op, "unknown reference %s", ref)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s, err := m.subject(ctx, handleID, user, category)
	if err != nil {
		return nil, err
	}

	switch category {
	case CategoryDefault:
		if requestID != "" {
			s.kind = KindRequest
			return &Request{subject: s, requestID: requestID}, nil
		}
		if s.inAttic() {
			s.kind = KindDefault
			return &Default{subject: s}, nil
		}
		a, err := m.access(s.authPath(), user)
		if err != nil {
			return nil, err
		}
		switch {
		case a.publish:
			s.kind = KindFull
			return &FullReviewedActions{&BasicReviewedActions{subject: s}}, nil
		case a.edit:
			s.kind = KindBasic
			return &BasicReviewedActions{subject: s}, nil
		default:
			return nil, core.NoWorkflow(op, "%s may not edit %s", userName(user), s.path)
		}
	case CategoryVersioning:
		if requestID != "" {
			break
		}
		a, err := m.access(s.authPath(), user)
		if err != nil {
			return nil, err
		}
		if !a.read {
			return nil, core.Unauthorized(op, "%s may not read %s", userName(user), s.path)
		}
		s.kind = KindVersion
		return &Version{subject: s, variantID: variantID}, nil
	case CategoryCore:
		if requestID != "" || variantID != "" {
			break
		}
		s.kind = KindDefault
		return &Default{subject: s}, nil
	}

	return nil, core.NoWorkflow(op, "no %s workflow for %s", category, ref)
}

// AcceptDue accepts every scheduled request which is due at now. It continues after failures and returns them joined.
func (m *Manager) AcceptDue(ctx context.Context, now time.Time, user auth.User) ([]*core.Request, error) {

	var due []*core.Request
	err := core.WithTx(ctx, m.store, func(tx core.Tx) error {
		var err error
		due, err = tx.GetDueRequests(ctx, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	var accepted = []*core.Request{}
	var errs []error
	for _, r := range due {
		wf, err := m.GetWorkflow(ctx, CategoryDefault, core.RequestOf(r.ID), user)
		if err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", r.ID, err))
			continue
		}
		if _, err := wf.(*Request).acceptAt(ctx, now); err != nil {
			errs = append(errs, fmt.Errorf("request %s: %w", r.ID, err))
			continue
		}
		accepted = append(accepted, r)
	}
	return accepted, errors.Join(errs...)
}

func (m *Manager) subject(ctx context.Context, handleID string, user auth.User, category string) (subject, error) {
	var h *core.Handle
	err := core.WithTx(ctx, m.store, func(tx core.Tx) error {
		var err error
		h, err = tx.GetHandle(ctx, handleID)
		return err
	})
	if err != nil {
		return subject{}, err
	}
	return subject{
		m:            m,
		user:         user,
		category:     category,
		handleID:     h.ID,
		path:         h.Path,
		originalPath: h.OriginalPath,
		revision:     h.Revision,
	}, nil
}

// docType returns the registered document type, or a type which can't be edited.
func (m *Manager) docType(code string) *doctype.DocType {
	if t, ok := m.docTypes.Get(code); ok {
		return t
	}
	return &doctype.DocType{
		Code:      code,
		Name:      code,
		Versioned: true,
	}
}

// An access describes what a user may do with a document.
type access struct {
	read    bool
	edit    bool
	publish bool
	admin   bool
}

func (m *Manager) access(path string, u auth.User) (access, error) {

	var a access

	rs, err := m.auth.ReleaseState(path, u)
	switch {
	case err == nil:
		a.edit = rs.CanEdit()
		a.publish = rs.CanPublish()
	case errors.Is(err, auth.ErrNoChain):
	default:
		return a, err
	}

	if a.admin, err = m.auth.HasPermission(auth.Admin, path, u); err != nil {
		return a, err
	}
	if a.read, err = m.auth.HasPermission(auth.Read, path, u); err != nil {
		return a, err
	}

	if a.admin {
		a.edit = true
		a.publish = true
	}
	if a.edit {
		a.read = true
	}
	return a, nil
}

func (m *Manager) lock(ctx context.Context, key string) (context.Context, lock.Unlock, error) {
	if holds(ctx, key) {
		return ctx, func() {}, nil
	}
	var start = time.Now()
	unlock, err := m.Locker.Lock(ctx, key)
	if err != nil {
		return ctx, nil, err
	}
	m.Metrics.ObserveLockWait(time.Since(start))
	return withHeld(ctx, key), unlock, nil
}

// record writes metrics, the debug log and the event log.
func (m *Manager) record(ctx context.Context, kind Kind, method, user, path string, args, result interface{}, err error, started time.Time) {

	var outcome = outcomeOf(err)
	m.Metrics.ObserveCall(string(kind), method, outcome, time.Since(started))

	var errString string
	if err != nil {
		errString = err.Error()
		m.Log.Warn().Err(err).Str("workflow", string(kind)).Str("method", method).Str("user", user).Str("path", path).Msg("workflow call failed")
	} else {
		m.Log.Debug().Str("workflow", string(kind)).Str("method", method).Str("user", user).Str("path", path).Msg("workflow call")
	}

	m.Events.Log(context.WithoutCancel(ctx), eventlog.Entry{
		Time:   m.Now(),
		User:   user,
		Class:  string(kind),
		Method: method,
		Args:   encode(args),
		Result: encode(result),
		Path:   path,
		Error:  errString,
	})
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, core.ErrPrecondition):
		return "precondition"
	case errors.Is(err, core.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, core.ErrConflict):
		return "conflict"
	case errors.Is(err, core.ErrNotFound):
		return "not_found"
	case errors.Is(err, core.ErrReentrancy):
		return "reentrancy"
	default:
		return "error"
	}
}

const maxEncoded = 1024

func encode(v interface{}) string {
	if v == nil {
		return ""
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return util.Trunc(string(buf), maxEncoded)
}

func userName(u auth.User) string {
	if u == nil {
		return "anonymous"
	}
	return u.Name()
}

// basic returns the basic reviewed actions of a document, without checking whether the user may publish.
func (m *Manager) basic(ctx context.Context, handleID string, user auth.User) (*BasicReviewedActions, error) {
	s, err := m.subject(ctx, handleID, user, CategoryDefault)
	if err != nil {
		return nil, err
	}
	s.kind = KindBasic
	return &BasicReviewedActions{subject: s}, nil
}
