package calendar

import (
	"fmt"
	"io"
	"time"

	ical "github.com/arran4/golang-ical"
)

// ICSProductID identifies exported feeds.
const ICSProductID = "-//fleetdesk//fleet-scheduler//EN"

// WriteICS serializes events as an iCalendar feed named name. stamp is used
// as DTSTAMP for every event.
func WriteICS(w io.Writer, name string, events []Event, stamp time.Time) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ICSProductID)
	cal.SetName(name)

	for _, ev := range events {
		ve := cal.AddEvent(EventUID(ev))
		ve.SetDtStampTime(stamp.UTC())
		ve.SetStartAt(ev.Start.UTC())
		ve.SetEndAt(ev.End.UTC())
		ve.SetSummary(ev.Title)
		if ev.DetailNote != "" {
			ve.SetDescription(ev.DetailNote)
		}
		ve.AddProperty(ical.ComponentPropertyCategories, string(ev.Category))
	}

	_, err := io.WriteString(w, cal.Serialize())
	return err
}

// EventUID is stable across exports for the same source record.
func EventUID(ev Event) string {
	return fmt.Sprintf("%s-%d@fleetdesk", ev.Category, ev.SourceID)
}
