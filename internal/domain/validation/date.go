package validation

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

// ParseDate reads a form date. A calendar date ("2006-01-02") is anchored at
// noon in loc; an RFC 3339 timestamp is taken as is. Blank or unparseable
// input yields nil, which the date rule reports as missing.
func ParseDate(raw string, loc *time.Location) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if loc == nil {
		loc = time.Local
	}

	if d, err := time.ParseInLocation(DateLayout, raw, loc); err == nil {
		t := time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc)
		return &t
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return &t
	}
	return nil
}
