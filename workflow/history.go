package workflow

import (
	"time"

	"github.com/wansing/docflow/core"
)

// A HistoryEntry is a version in the history of a document. Placeholder entries have no labels.
// They mark where the history has been interrupted, like by depublication.
type HistoryEntry struct {
	Created     time.Time `json:"created"`
	Labels      []string  `json:"labels"`
	Placeholder bool      `json:"placeholder"`
	content     string
}

// history lists the snapshots which pass keep. Consecutive kept snapshots with the same content are collapsed into the first one.
// A placeholder is inserted before a kept snapshot if snapshots have been left out since the previous kept one.
func history(snapshots []*core.Snapshot, keep func(s *core.Snapshot) bool) []HistoryEntry {

	var entries = []HistoryEntry{}
	var last *HistoryEntry
	var gapSince time.Time // first left-out snapshot after the last kept one

	for _, s := range snapshots {

		if !keep(s) {
			if last != nil && gapSince.IsZero() {
				gapSince = s.Created
			}
			continue
		}

		if !gapSince.IsZero() {
			entries = append(entries, HistoryEntry{
				Created:     gapSince,
				Labels:      []string{},
				Placeholder: true,
			})
			gapSince = time.Time{}
			last = nil
		}

		if last != nil && last.content == s.Content {
			last.Labels = appendNew(last.Labels, s.Labels...)
			continue
		}

		entries = append(entries, HistoryEntry{
			Created: s.Created,
			Labels:  appendNew(nil, s.Labels...),
			content: s.Content,
		})
		last = &entries[len(entries)-1]
	}

	return entries
}

func appendNew(list []string, items ...string) []string {
	for _, item := range items {
		var found bool
		for _, l := range list {
			if l == item {
				found = true
				break
			}
		}
		if !found {
			list = append(list, item)
		}
	}
	return list
}
