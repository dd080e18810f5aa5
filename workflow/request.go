package workflow

import (
	"context"
	"time"

	"github.com/wansing/docflow/core"
)

// Request is the workflow of a publication, depublication or deletion request.
type Request struct {
	subject
	requestID string
}

func (w *Request) RequestID() string {
	return w.requestID
}

func findRequest(doc *core.Document, method, id string) (*core.Request, error) {
	for _, r := range doc.Requests {
		if r.ID == id {
			return r, nil
		}
	}
	return nil, &core.WorkflowError{Op: method, Reason: "the request does not exist anymore", Err: core.ErrNotFound}
}

func checkAccept(r *core.Request, method string, now time.Time) error {
	if !r.IsPending() {
		return core.Precondition(method, "the request has been rejected")
	}
	if !r.IsDue(now) {
		return core.Precondition(method, "the request is scheduled for %s", r.Scheduled.Format(time.RFC3339))
	}
	return nil
}

// AcceptRequest executes the requested transition and removes the request.
// It returns the resulting variant, which is nil if the document has been removed.
func (w *Request) AcceptRequest(ctx context.Context) (*core.Variant, error) {
	return w.acceptAt(ctx, w.m.Now())
}

func (w *Request) acceptAt(ctx context.Context, now time.Time) (*core.Variant, error) {
	var accepted core.RequestType
	v, err := mutate(ctx, &w.subject, "acceptRequest", nil, func(o *op) (*core.Variant, error) {
		if err := requirePublish(o); err != nil {
			return nil, err
		}
		r, err := findRequest(o.doc, o.method, w.requestID)
		if err != nil {
			return nil, err
		}
		if err := checkAccept(r, o.method, now); err != nil {
			return nil, err
		}

		var result *core.Variant
		switch r.Type {
		case core.RequestPublish:
			result, err = publish(o, true)
		case core.RequestDepublish:
			result, err = depublish(o, true)
		case core.RequestDelete:
			result, err = remove(o, true)
		default:
			return nil, core.Precondition(o.method, "unknown request type %s", r.Type)
		}
		if err != nil {
			return nil, err
		}

		if !o.removed {
			if _, err := findRequest(o.doc, o.method, r.ID); err == nil { // not removed by the transition
				if err := o.deleteRequest(r); err != nil {
					return nil, err
				}
			}
		}
		accepted = r.Type
		return result, nil
	})
	if err == nil {
		w.m.Metrics.RequestAccepted(string(accepted))
	}
	return v, err
}

// RejectRequest marks the request as rejected. It stays until the requester cancels it.
func (w *Request) RejectRequest(ctx context.Context, reason string) (*core.Request, error) {
	return mutate(ctx, &w.subject, "rejectRequest", map[string]string{"reason": reason}, func(o *op) (*core.Request, error) {
		if err := requirePublish(o); err != nil {
			return nil, err
		}
		r, err := findRequest(o.doc, o.method, w.requestID)
		if err != nil {
			return nil, err
		}
		if !r.IsPending() {
			return nil, core.Precondition(o.method, "the request has been rejected already")
		}
		r.Type = core.RequestRejected
		r.Reason = reason
		if err := o.tx.UpdateRequest(o.ctx, r); err != nil {
			return nil, err
		}
		o.changed = true
		return r, nil
	})
}

// CancelRequest removes a pending or rejected request. Only the requester and admins can do this.
func (w *Request) CancelRequest(ctx context.Context) error {
	_, err := mutate(ctx, &w.subject, "cancelRequest", nil, func(o *op) (*core.Request, error) {
		r, err := findRequest(o.doc, o.method, w.requestID)
		if err != nil {
			return nil, err
		}
		if r.Username != o.user && !o.access.admin {
			return nil, core.Unauthorized(o.method, "only %s or an admin may cancel the request", r.Username)
		}
		return r, o.deleteRequest(r)
	})
	return err
}

func (w *Request) Hints(ctx context.Context) (Hints, error) {
	a, err := w.m.access(w.authPath(), w.user)
	if err != nil {
		return nil, err
	}
	var hints = Hints{}
	err = w.read(ctx, func(tx core.Tx, doc *core.Document) error {
		r, err := findRequest(doc, "", w.requestID)
		if err != nil {
			return err
		}
		hints["acceptRequest"] = a.publish && checkAccept(r, "", w.m.Now()) == nil
		hints["rejectRequest"] = a.publish && r.IsPending()
		hints["cancelRequest"] = r.Username == w.username() || a.admin
		return nil
	})
	return hints, err
}
