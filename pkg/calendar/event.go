// Package calendar turns maintenance windows and driver assignments into one
// ordered collection of calendar events and renders views over it.
package calendar

import (
	"errors"
	"fmt"
	"time"
)

// Category tags which source an event came from.
type Category string

const (
	CategoryMaintenance Category = "maintenance"
	CategoryAssignment  Category = "assignment"
	// CategoryBlackout marks externally seeded depot closures. The merge
	// engine never replaces these.
	CategoryBlackout Category = "blackout"
)

// Owned reports whether the merge engine replaces events of this category on
// refresh.
func (c Category) Owned() bool {
	return c == CategoryMaintenance || c == CategoryAssignment
}

// ParseCategory accepts the lower-case category names used on the wire.
func ParseCategory(s string) (Category, error) {
	switch Category(s) {
	case CategoryMaintenance, CategoryAssignment, CategoryBlackout:
		return Category(s), nil
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// ErrNoData is returned by adapters and sources when a payload is absent or
// has no data field.
var ErrNoData = errors.New("calendar: no data")

// Event is one normalized calendar entry. Values are never mutated once built.
type Event struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Title      string    `json:"title"`
	Category   Category  `json:"category"`
	SourceID   uint      `json:"sourceId"`
	DetailNote string    `json:"detailNote"`
	DriverName string    `json:"driverName,omitempty"`
	// EndUnknown is set when the source carried neither an end time nor an
	// estimate; End then equals Start.
	EndUnknown bool `json:"endUnknown,omitempty"`
}

// Key identifies an event for cancel and detail lookups.
type Key struct {
	Category Category
	SourceID uint
}

func (e Event) Key() Key {
	return Key{Category: e.Category, SourceID: e.SourceID}
}

// Duration is End minus Start.
func (e Event) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Range is a half-open time interval.
type Range struct {
	Start time.Time
	End   time.Time
}

// Valid reports whether both ends are set and End is not before Start.
func (r Range) Valid() bool {
	return !r.Start.IsZero() && !r.End.IsZero() && !r.End.Before(r.Start)
}

// Overlaps reports whether r and o share any instant.
func (r Range) Overlaps(o Range) bool {
	return r.Start.Before(o.End) && o.Start.Before(r.End)
}

// isoLayout matches what browsers produce for Date.toISOString.
const isoLayout = "2006-01-02T15:04:05.000Z"

// FormatISO renders t in UTC with millisecond precision.
func FormatISO(t time.Time) string {
	return t.UTC().Format(isoLayout)
}

var parseLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 with or without fractional seconds, and
// zone-less local timestamps which are read in UTC.
func ParseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	for _, layout := range parseLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}
