package util

import (
	"fmt"
	"time"
)

var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04",
	"02.01.2006 15:04",
	"2006-01-02",
}

// ParseTime parses a string like "2006-01-02 15:04", "02.01.2006 15:04" or an RFC 3339 timestamp.
// Times without zone are interpreted in the local time zone.
func ParseTime(ts string) (time.Time, error) {
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, ts, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("can't parse time %q", ts)
}
