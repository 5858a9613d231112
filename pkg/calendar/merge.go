package calendar

import "sort"

// Merge rebuilds the collection from existing events and freshly normalized
// ones. Every category present in fresh replaces the existing events of that
// category; categories missing from fresh keep whatever they had, so a soft
// failure leaves stale data in place. The result is sorted and shares no
// backing array with its inputs.
func Merge(existing []Event, fresh map[Category][]Event) []Event {
	size := 0
	for _, evs := range fresh {
		size += len(evs)
	}
	out := make([]Event, 0, len(existing)+size)

	for _, ev := range existing {
		if _, replaced := fresh[ev.Category]; replaced {
			continue
		}
		out = append(out, ev)
	}
	for _, cat := range sortedCategories(fresh) {
		out = append(out, fresh[cat]...)
	}

	SortEvents(out)
	return out
}

// SortEvents orders events by start, then category, then source id.
func SortEvents(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.SourceID < b.SourceID
	})
}

func sortedCategories(m map[Category][]Event) []Category {
	cats := make([]Category, 0, len(m))
	for c := range m {
		cats = append(cats, c)
	}
	sort.Slice(cats, func(i, j int) bool { return cats[i] < cats[j] })
	return cats
}

// Find returns the event identified by key.
func Find(events []Event, key Key) (Event, bool) {
	for _, ev := range events {
		if ev.Key() == key {
			return ev, true
		}
	}
	return Event{}, false
}
