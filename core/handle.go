package core

import "time"

// A Handle groups all variants of one logical document.
type Handle struct {
	ID             string
	Path           string
	DocType        string
	Discriminators []string // property names, see Similar
	Summary        Summary
	OriginalPath   string // set while the handle is in the attic
	Revision       int64  // incremented by every mutation, used for compare-and-swap
	Created        time.Time
}

func (h *Handle) Name() string {
	return BaseName(h.Path)
}

func (h *Handle) Folder() string {
	return ParentPath(h.Path)
}

// InAttic returns whether the handle has been soft-deleted.
func (h *Handle) InAttic() bool {
	return h.OriginalPath != ""
}
