package core

// State discriminates the variants of a handle.
type State string

const (
	Draft       State = "draft"
	Unpublished State = "unpublished"
	Published   State = "published"
	Deleted     State = "deleted" // the only variant of a handle in the attic
)

func (s State) Valid() bool {
	switch s {
	case Draft, Unpublished, Published, Deleted:
		return true
	default:
		return false
	}
}

// Availability tags control which audience sees a variant.
const (
	Live    = "live"
	Preview = "preview"
)

// Summary is derived from the variants of a handle. It is cached on the handle for visibility filtering.
type Summary string

const (
	SummaryNew     Summary = "new"     // never published
	SummaryLive    Summary = "live"    // published, no unpublished changes
	SummaryChanged Summary = "changed" // published, with unpublished changes
	SummaryDeleted Summary = "deleted" // in the attic
)

type RequestType string

const (
	RequestPublish   RequestType = "publish"
	RequestDepublish RequestType = "depublish"
	RequestDelete    RequestType = "delete"
	RequestRejected  RequestType = "rejected"
)

func (t RequestType) Valid() bool {
	switch t {
	case RequestPublish, RequestDepublish, RequestDelete, RequestRejected:
		return true
	default:
		return false
	}
}
