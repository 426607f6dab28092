// Package events derives what the catalogue shows from stored event records:
// pass/upcoming status, filter selections, card presentation and labels.
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/Genoux/website/internal/domain"
)

// DefaultTimezone is where organisers schedule events.
const DefaultTimezone = "America/Toronto"

// ErrInvalidSchedule indicates an event whose date or time cannot be parsed.
var ErrInvalidSchedule = errors.New("events: invalid schedule")

// Status is the pass/upcoming classification of an event.
type Status string

const (
	StatusUpcoming Status = "upcoming"
	StatusPassed   Status = "passed"
)

// Classify reports Passed when the start is strictly before now. An event
// starting exactly now is still upcoming.
func Classify(startsAt, now time.Time) Status {
	if startsAt.Before(now) {
		return StatusPassed
	}
	return StatusUpcoming
}

// StartsAt combines the stored date and time in loc. A missing time means
// midnight.
func StartsAt(ev domain.Event, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	date := strings.TrimSpace(ev.Date)
	if date == "" {
		return time.Time{}, fmt.Errorf("%w: event %q has no date", ErrInvalidSchedule, ev.ID)
	}
	if ts, err := time.Parse(time.RFC3339, date); err == nil {
		return ts.In(loc), nil
	}
	clock := normaliseClock(ev.Time)
	ts, err := time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: event %q: %v", ErrInvalidSchedule, ev.ID, err)
	}
	return ts, nil
}

// ClassifyEvent resolves the event start and classifies it. Events whose
// schedule cannot be parsed are treated as passed so they never offer
// registration.
func ClassifyEvent(ev domain.Event, now time.Time, loc *time.Location) Status {
	start, err := StartsAt(ev, loc)
	if err != nil {
		return StatusPassed
	}
	return Classify(start, now)
}

// normaliseClock accepts "HH:MM" or "HH:MM:SS" as stored by the backend.
func normaliseClock(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "00:00"
	}
	if len(raw) > 5 && raw[2] == ':' && raw[5] == ':' {
		return raw[:5]
	}
	return raw
}
