// Package reminders writes notification rows for maintenance windows and
// assignments that are about to start.
package reminders

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/logging"
)

// upcoming is an event a preference may be reminded of
type upcoming struct {
	category  calendar.Category
	sourceID  uint
	vehicleID uint
	title     string
	start     time.Time
}

// Dispatcher turns upcoming events into notifications
type Dispatcher struct {
	Store *database.Store
	Now   func() time.Time
	// Location formats start times in messages
	Location *time.Location
}

func New(store *database.Store, loc *time.Location) *Dispatcher {
	if loc == nil {
		loc = time.UTC
	}
	return &Dispatcher{Store: store, Now: time.Now, Location: loc}
}

// RunOnce records a notification for every preference and event starting
// within the preference's lead time. Events already notified are skipped.
// It returns how many notifications were written.
func (d *Dispatcher) RunOnce(ctx context.Context) (int, error) {
	prefs, err := d.Store.ListPreferences(ctx, "")
	if err != nil {
		return 0, fmt.Errorf("list preferences: %w", err)
	}
	if len(prefs) == 0 {
		return 0, nil
	}

	now := d.Now().UTC()
	var horizon time.Duration
	for _, p := range prefs {
		if lead := time.Duration(p.LeadMinutes) * time.Minute; lead > horizon {
			horizon = lead
		}
	}

	events, err := d.upcoming(ctx, now, now.Add(horizon))
	if err != nil {
		return 0, err
	}

	created := 0
	for _, p := range prefs {
		cutoff := now.Add(time.Duration(p.LeadMinutes) * time.Minute)
		for _, ev := range events {
			if !wants(p, ev) || !ev.start.Before(cutoff) {
				continue
			}
			ok, err := d.Store.RecordNotification(ctx, &database.Notification{
				PreferenceID: p.ID,
				EventKey:     calendar.EventUID(calendar.Event{Category: ev.category, SourceID: ev.sourceID}),
				Email:        p.Email,
				Message:      d.message(ev),
				EventStart:   ev.start,
			})
			if err != nil {
				return created, fmt.Errorf("record notification: %w", err)
			}
			if ok {
				created++
			}
		}
	}
	return created, nil
}

func (d *Dispatcher) upcoming(ctx context.Context, from, to time.Time) ([]upcoming, error) {
	maints, err := d.Store.MaintenancesBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list maintenances: %w", err)
	}
	assigns, err := d.Store.AssignmentsBetween(ctx, from, to)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}

	out := make([]upcoming, 0, len(maints)+len(assigns))
	for _, m := range maints {
		out = append(out, upcoming{
			category:  calendar.CategoryMaintenance,
			sourceID:  m.ID,
			vehicleID: m.VehicleID,
			title:     "Maintenance: " + m.ServiceType.Name,
			start:     m.StartTime,
		})
	}
	for _, a := range assigns {
		out = append(out, upcoming{
			category:  calendar.CategoryAssignment,
			sourceID:  a.ID,
			vehicleID: a.VehicleID,
			title:     "Assignment: " + strings.TrimSpace(a.Driver.FirstName+" "+a.Driver.LastName),
			start:     a.StartDate,
		})
	}
	return out, nil
}

func wants(p database.NotificationPreference, ev upcoming) bool {
	if p.VehicleID != 0 && p.VehicleID != ev.vehicleID {
		return false
	}
	switch ev.category {
	case calendar.CategoryMaintenance:
		return p.Maintenance
	case calendar.CategoryAssignment:
		return p.Assignment
	}
	return false
}

func (d *Dispatcher) message(ev upcoming) string {
	return fmt.Sprintf("%s on vehicle %d starts at %s", ev.title, ev.vehicleID, ev.start.In(d.Location).Format("2006-01-02 15:04"))
}

// Start runs RunOnce on the cron schedule spec until the returned cron is
// stopped
func (d *Dispatcher) Start(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(d.Location))
	_, err := c.AddFunc(spec, func() {
		n, err := d.RunOnce(ctx)
		if err != nil {
			logging.Error("reminder run failed", err)
			return
		}
		if n > 0 {
			logging.Info("reminders written", "count", n)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("reminder schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
