package calendar

import (
	"strings"
	"time"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// NormalizeMaintenance converts one maintenance page into events. It returns
// ErrNoData when the page or its data field is missing. Records whose start
// cannot be parsed are dropped.
func NormalizeMaintenance(page *models.MaintenancePage) ([]Event, error) {
	if page == nil || page.Data == nil {
		return nil, ErrNoData
	}

	out := make([]Event, 0, len(page.Data))
	for _, rec := range page.Data {
		ev, ok := maintenanceEvent(rec)
		if !ok {
			continue
		}
		out = append(out, ev)
	}
	return out, nil
}

func maintenanceEvent(rec models.MaintenanceRecord) (Event, bool) {
	start, err := ParseTimestamp(rec.StartTime)
	if err != nil {
		return Event{}, false
	}

	title := "Maintenance: " + rec.ServiceTypeName
	ev := Event{
		Start:      start,
		Title:      title,
		Category:   CategoryMaintenance,
		SourceID:   rec.ID,
		DetailNote: title,
	}

	end, ok := maintenanceEnd(rec)
	switch {
	case !ok:
		ev.End = start
		ev.EndUnknown = true
	case end.Before(start):
		ev.End = start
	default:
		ev.End = end
	}
	return ev, true
}

// maintenanceEnd prefers the recorded end time and falls back to the repair
// estimate.
func maintenanceEnd(rec models.MaintenanceRecord) (t time.Time, ok bool) {
	if rec.EndTime != nil && *rec.EndTime != "" {
		if t, err := ParseTimestamp(*rec.EndTime); err == nil {
			return t, true
		}
	}
	if t, err := ParseTimestamp(rec.RepairEta); err == nil {
		return t, true
	}
	return t, false
}

// NormalizeAssignments converts assignment records into events. A nil slice
// means the payload was absent and yields ErrNoData; an empty slice is a
// valid empty result.
func NormalizeAssignments(records []models.AssignmentRecord) ([]Event, error) {
	if records == nil {
		return nil, ErrNoData
	}

	out := make([]Event, 0, len(records))
	for _, rec := range records {
		start, err := ParseTimestamp(rec.StartDate)
		if err != nil {
			continue
		}
		end, err := ParseTimestamp(rec.EndDate)
		if err != nil || end.Before(start) {
			end = start
		}

		name := DriverName(rec.Driver)
		title := "Assignment: " + name
		out = append(out, Event{
			Start:      start,
			End:        end,
			Title:      title,
			Category:   CategoryAssignment,
			SourceID:   rec.ID,
			DetailNote: title,
			DriverName: name,
		})
	}
	return out, nil
}

// DriverName joins first and last name, treating missing parts as empty.
func DriverName(d *models.AssignmentDriver) string {
	if d == nil || d.User == nil {
		return ""
	}
	return strings.TrimSpace(d.User.FirstName + " " + d.User.LastName)
}
