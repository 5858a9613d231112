package calendar

import (
	"fmt"
	"time"
)

// DateKey is the local calendar day of t as YYYY-MM-DD.
func DateKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}
	return t.In(loc).Format("2006-01-02")
}

// HourSlot is one row of the single-day hour list.
type HourSlot struct {
	Hour   int     `json:"hour"`
	Label  string  `json:"label"`
	Events []Event `json:"events"`
}

// Empty reports whether clicking the slot should start a new creation.
func (h HourSlot) Empty() bool {
	return len(h.Events) == 0
}

// DayView buckets the events that start on day into 24 hour slots. Grouping
// uses the local day and hour of Start only, so an event spanning several
// hours or midnight appears exactly once.
func DayView(events []Event, day time.Time, loc *time.Location) []HourSlot {
	if loc == nil {
		loc = time.Local
	}
	key := DateKey(day, loc)

	slots := make([]HourSlot, 24)
	for h := range slots {
		slots[h] = HourSlot{Hour: h, Label: fmt.Sprintf("%02d:00", h)}
	}
	for _, ev := range events {
		start := ev.Start.In(loc)
		if start.Format("2006-01-02") != key {
			continue
		}
		h := start.Hour()
		slots[h].Events = append(slots[h].Events, ev)
	}
	return slots
}

// FilterByCategory returns the events of one category. An empty category
// returns everything. The input is not modified.
func FilterByCategory(events []Event, cat Category) []Event {
	out := make([]Event, 0, len(events))
	for _, ev := range events {
		if cat == "" || ev.Category == cat {
			out = append(out, ev)
		}
	}
	return out
}

// DayColumn is one day of the week grid.
type DayColumn struct {
	Date   string  `json:"date"`
	Events []Event `json:"events"`
}

// WeekView lays out the week containing anchor, starting on weekStart, with
// each event placed on the local day it starts.
func WeekView(events []Event, anchor time.Time, weekStart time.Weekday, loc *time.Location) []DayColumn {
	if loc == nil {
		loc = time.Local
	}
	first := StartOfWeek(anchor, weekStart, loc)

	cols := make([]DayColumn, 7)
	index := make(map[string]int, 7)
	for i := range cols {
		d := first.AddDate(0, 0, i)
		cols[i].Date = d.Format("2006-01-02")
		index[cols[i].Date] = i
	}
	for _, ev := range events {
		if i, ok := index[DateKey(ev.Start, loc)]; ok {
			cols[i].Events = append(cols[i].Events, ev)
		}
	}
	return cols
}

// StartOfWeek returns local midnight of the first day of t's week.
func StartOfWeek(t time.Time, weekStart time.Weekday, loc *time.Location) time.Time {
	local := t.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	offset := (int(midnight.Weekday()) - int(weekStart) + 7) % 7
	return midnight.AddDate(0, 0, -offset)
}

// HourRange builds the default one-hour slot used when an empty hour is
// clicked in the day list.
func HourRange(day time.Time, hour int, loc *time.Location) Range {
	if loc == nil {
		loc = time.Local
	}
	local := day.In(loc)
	start := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, loc)
	return Range{Start: start, End: start.Add(time.Hour)}
}

// Style is how a category is drawn.
type Style struct {
	Color string `json:"color"`
	Icon  string `json:"icon"`
}

// StyleFor keeps presentation out of the event data.
func StyleFor(c Category) Style {
	switch c {
	case CategoryMaintenance:
		return Style{Color: "#f59e0b", Icon: "wrench"}
	case CategoryAssignment:
		return Style{Color: "#3b82f6", Icon: "user"}
	case CategoryBlackout:
		return Style{Color: "#6b7280", Icon: "ban"}
	default:
		return Style{Color: "#9ca3af", Icon: "calendar"}
	}
}
