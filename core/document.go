package core

import (
	"context"
	"fmt"
)

// A Document is a handle together with its variants and requests, as read in one transaction.
type Document struct {
	Handle   *Handle
	Variants map[State]*Variant
	Requests []*Request
}

func LoadDocument(ctx context.Context, tx Tx, handleID string) (*Document, error) {

	handle, err := tx.GetHandle(ctx, handleID)
	if err != nil {
		return nil, err
	}

	variants, err := tx.GetVariants(ctx, handleID)
	if err != nil {
		return nil, err
	}

	requests, err := tx.GetRequests(ctx, handleID)
	if err != nil {
		return nil, err
	}

	var doc = &Document{
		Handle:   handle,
		Variants: make(map[State]*Variant),
		Requests: requests,
	}
	for _, v := range variants {
		if _, ok := doc.Variants[v.State]; ok {
			return nil, fmt.Errorf("handle %s has more than one %s variant", handleID, v.State)
		}
		doc.Variants[v.State] = v
	}
	return doc, nil
}

func (d *Document) Draft() *Variant {
	return d.Variants[Draft]
}

func (d *Document) Unpublished() *Variant {
	return d.Variants[Unpublished]
}

func (d *Document) Published() *Variant {
	return d.Variants[Published]
}

// Current returns the variant that editing starts from: the unpublished variant if present, else the published one.
func (d *Document) Current() *Variant {
	if v := d.Unpublished(); v != nil {
		return v
	}
	return d.Published()
}

// PendingRequest returns the request which is not rejected, if any.
func (d *Document) PendingRequest() *Request {
	for _, r := range d.Requests {
		if r.IsPending() {
			return r
		}
	}
	return nil
}

// ForeignDraft returns the draft if it is held by someone other than username.
func (d *Document) ForeignDraft(username string) *Variant {
	if draft := d.Draft(); draft != nil && draft.Holder != username {
		return draft
	}
	return nil
}

// Refresh recomputes availability tags and the handle summary. It returns the variants whose availability changed.
func (d *Document) Refresh() []*Variant {

	var changed []*Variant

	for state, v := range d.Variants {
		var want []string
		switch state {
		case Unpublished:
			want = []string{Preview}
		case Published:
			want = []string{Live}
			if d.Unpublished() == nil {
				want = append(want, Preview)
			}
		}
		want = normalizeAvailability(want)
		if !equalStrings(v.Availability, want) {
			v.Availability = want
			changed = append(changed, v)
		}
	}

	d.Handle.Summary = d.summary()
	return changed
}

func (d *Document) summary() Summary {
	switch {
	case d.Handle.InAttic():
		return SummaryDeleted
	case d.Published() != nil && d.Unpublished() != nil:
		return SummaryChanged
	case d.Published() != nil:
		return SummaryLive
	default:
		return SummaryNew
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
