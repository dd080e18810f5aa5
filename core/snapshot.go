package core

import "time"

// A Snapshot is an immutable copy of a variant at a point in time.
type Snapshot struct {
	ID         string
	HandleID   string
	VariantID  string
	State      State // state of the variant when it was captured
	Name       string
	Labels     []string
	Content    string
	Properties map[string]string
	Created    time.Time // strictly increasing per handle
}

// Similar returns whether s represents the same logical content shape as a variant with the given properties.
// Two shapes are similar if all discriminator properties are equal.
func (s *Snapshot) Similar(props map[string]string, discriminators []string) bool {
	if s == nil {
		return false
	}
	for _, d := range discriminators {
		if s.Properties[d] != props[d] {
			return false
		}
	}
	return true
}

// NewSnapshot captures v. Name, labels and timestamp are set by the caller.
func NewSnapshot(id string, v *Variant) *Snapshot {
	return &Snapshot{
		ID:         id,
		HandleID:   v.HandleID,
		VariantID:  v.ID,
		State:      v.State,
		Content:    v.Content,
		Properties: CopyProperties(v.Properties),
	}
}
