package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/client"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/config"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/interaction"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// session wires the interaction machine to the API for one vehicle
type session struct {
	cfg     config.Config
	api     *client.Client
	engine  *calendar.Engine
	machine *interaction.Machine
	dialog  *maintenanceDialog
	notify  *printNotifier
}

type sessionIO struct {
	out       io.Writer
	errOut    io.Writer
	in        io.Reader
	assumeYes bool
}

func newAPI(opts *rootOptions) (config.Config, *client.Client, error) {
	cfg, err := config.FromEnv()
	if err != nil {
		return cfg, nil, err
	}
	base := cfg.APIURL
	if opts.apiURL != "" {
		base = strings.TrimRight(opts.apiURL, "/")
	}
	return cfg, client.New(base, nil, cfg.HTTPTimeout), nil
}

func newSession(ctx context.Context, opts *rootOptions, vehicleID uint, sio sessionIO) (*session, error) {
	if vehicleID == 0 {
		return nil, errors.New("--vehicle is required")
	}
	cfg, api, err := newAPI(opts)
	if err != nil {
		return nil, err
	}

	features, err := api.Features(ctx)
	if err != nil {
		return nil, fmt.Errorf("load features: %w", err)
	}
	vehicle, err := api.GetVehicle(ctx, vehicleID)
	if err != nil {
		return nil, fmt.Errorf("load vehicle %d: %w", vehicleID, err)
	}

	s := &session{cfg: cfg, api: api}
	s.notify = &printNotifier{out: sio.out, errOut: sio.errOut}
	s.engine = calendar.NewEngine(api)
	for i, b := range cfg.Blackouts {
		s.engine.Seed(calendar.Event{
			Start: b.Start, End: b.End, Title: b.Title,
			Category: calendar.CategoryBlackout, SourceID: uint(i + 1), DetailNote: b.Title,
		})
	}
	s.dialog = &maintenanceDialog{api: api, notify: s.notify}

	s.machine = interaction.New(interaction.Deps{
		Features:    interaction.FeaturesFrom(features),
		Backend:     api,
		Refresher:   s.engine,
		Notifier:    s.notify,
		Confirmer:   &promptConfirmer{in: bufio.NewReader(sio.in), out: sio.out, assumeYes: sio.assumeYes},
		Maintenance: s.dialog,
	}, models.VehicleRow{}, cfg.Location)

	if err := s.machine.SetVehicle(ctx, vehicle); err != nil {
		return nil, fmt.Errorf("load calendar: %w", err)
	}
	return s, nil
}

// startSlot selects r, or hour on day when r is empty, and reports whether
// the type choice opened
func (s *session) startSlot(r calendar.Range, day time.Time, hour int) error {
	var err error
	if r.Start.IsZero() {
		err = s.machine.ClickHour(day, hour)
	} else {
		err = s.machine.SelectSlot(r)
	}
	if err != nil {
		return err
	}
	if s.machine.State() != interaction.EventTypeChoice {
		return errors.New("no event types can be created")
	}
	return nil
}

type printNotifier struct {
	out    io.Writer
	errOut io.Writer
}

func (n *printNotifier) Success(msg string) { fmt.Fprintln(n.out, msg) }

func (n *printNotifier) Error(msg string) {
	fmt.Fprintln(n.errOut, "error: "+msg)
}

type promptConfirmer struct {
	in        *bufio.Reader
	out       io.Writer
	assumeYes bool
}

func (c *promptConfirmer) Confirm(prompt string) bool {
	if c.assumeYes {
		return true
	}
	fmt.Fprintf(c.out, "%s [y/N] ", prompt)
	line, _ := c.in.ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

// maintenanceDialog submits the maintenance form from command line flags
type maintenanceDialog struct {
	api    *client.Client
	notify *printNotifier

	serviceTypeID uint
	notes         string

	created *models.MaintenanceRecord
	err     error
}

func (d *maintenanceDialog) Open(ctx context.Context, req interaction.MaintenanceRequest, onClose func()) {
	defer onClose()

	rec, err := d.api.CreateMaintenance(ctx, models.CreateMaintenanceInput{
		Vehicle:       req.Vehicle.ID,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		ServiceTypeID: d.serviceTypeID,
		Notes:         d.notes,
	})
	if err != nil {
		d.err = err
		d.notify.Error("Failed to create maintenance")
		return
	}
	d.created = rec
	d.notify.Success("Maintenance created successfully")
}

// parseLocal reads a flag timestamp; values without a zone are in loc
func parseLocal(s string, loc *time.Location) (time.Time, error) {
	for _, layout := range []string{"2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02T15:04:05"} {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return calendar.ParseTimestamp(s)
}

func parseDay(s string, loc *time.Location) (time.Time, error) {
	if s == "" {
		return time.Now().In(loc), nil
	}
	return time.ParseInLocation("2006-01-02", s, loc)
}
