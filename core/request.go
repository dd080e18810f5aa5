package core

import "time"

// A Request proposes a lifecycle change of a handle.
type Request struct {
	ID        string
	HandleID  string
	Type      RequestType
	Scheduled time.Time // zero if the request may be accepted immediately
	Reason    string    // rejection reason
	Username  string    // requester
	Created   time.Time
}

// IsPending returns whether the request still awaits acceptance or rejection.
func (r *Request) IsPending() bool {
	return r != nil && r.Type != RequestRejected
}

// IsDue returns whether a scheduled request may be executed at the given time.
func (r *Request) IsDue(now time.Time) bool {
	return r.Scheduled.IsZero() || !now.Before(r.Scheduled)
}
