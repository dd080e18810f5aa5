package core

import (
	"sort"
	"time"
)

// A Variant is one state-specific copy of a document's content.
type Variant struct {
	ID           string
	HandleID     string
	State        State
	Holder       string   // drafts only
	Availability []string // subset of {Live, Preview}
	Content      string
	Properties   map[string]string
	Creator      string
	Created      time.Time
	Modifier     string
	Modified     time.Time
}

func (v *Variant) IsAvailable(tag string) bool {
	if v == nil {
		return false
	}
	for _, a := range v.Availability {
		if a == tag {
			return true
		}
	}
	return false
}

// IsHeldBy returns whether v is a draft owned by the given user name.
func (v *Variant) IsHeldBy(username string) bool {
	return v != nil && v.State == Draft && v.Holder != "" && v.Holder == username
}

func (v *Variant) Property(name string) string {
	if v == nil || v.Properties == nil {
		return ""
	}
	return v.Properties[name]
}

// CopyProperties returns a copy of props which is never nil.
func CopyProperties(props map[string]string) map[string]string {
	var result = make(map[string]string, len(props))
	for k, v := range props {
		result[k] = v
	}
	return result
}

func normalizeAvailability(tags []string) []string {
	var seen = make(map[string]struct{})
	var result = []string{}
	for _, t := range tags {
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		result = append(result, t)
	}
	sort.Strings(result)
	return result
}
