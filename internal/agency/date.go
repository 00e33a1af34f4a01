package agency

import (
	"strings"
	"time"
)

// DateState distinguishes "the feed carried no date" from "the feed carried
// a date we could not read". Scoring and change detection treat both as an
// unknown date, but reporting needs to tell them apart.
type DateState int

const (
	DateAbsent DateState = iota
	DateInvalid
	DateKnown
)

// Date is the result of parsing an approval-date string. Parsing never
// fails upward: a malformed date degrades to DateInvalid and merging
// proceeds with whatever else is known.
type Date struct {
	Time  time.Time
	State DateState
}

// Ptr returns the parsed time for known dates and nil otherwise.
func (d Date) Ptr() *time.Time {
	if d.State != DateKnown {
		return nil
	}
	t := d.Time
	return &t
}

// Agency feeds disagree on date syntax; these are the formats observed
// across FDA (compact), EMA (ISO) and MFDS (compact, ISO, dotted) exports.
var dateLayouts = []string{"20060102", "2006-01-02", "2006.01.02"}

// ParseDate reads an approval-date string in any accepted layout.
func ParseDate(raw string) Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{State: DateAbsent}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Date{Time: t, State: DateKnown}
		}
	}
	return Date{State: DateInvalid}
}
