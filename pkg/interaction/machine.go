// Package interaction drives one operator's attempt to inspect or create a
// calendar event: slot selection, category choice, the category form,
// submission and the refresh that follows.
package interaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/logging"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// State is the current step of an interaction.
type State int

const (
	Idle State = iota
	SlotChosen
	EventTypeChoice
	CreatingAssignment
	CreatingMaintenance
	ViewingDetails
)

var stateNames = [...]string{
	Idle:                "idle",
	SlotChosen:          "slot_chosen",
	EventTypeChoice:     "event_type_choice",
	CreatingAssignment:  "creating_assignment",
	CreatingMaintenance: "creating_maintenance",
	ViewingDetails:      "viewing_details",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

var (
	// ErrInvalidTransition is returned when an action does not apply to the
	// current state. The state is left unchanged.
	ErrInvalidTransition = errors.New("interaction: invalid transition")
	// ErrValidation is returned when a submit is rejected before any call.
	ErrValidation = errors.New("interaction: validation failed")
	// ErrRequestFailed is returned when the backend reported failure.
	ErrRequestFailed = errors.New("interaction: request failed")
)

// Notification texts.
const (
	MsgAssignmentCreated   = "Assignment created successfully"
	MsgAssignmentFailed    = "Failed to create assignment"
	MsgAssignmentMissing   = "Please select a driver, a start and an end time"
	MsgAssignmentCancelled = "Assignment cancelled successfully"
	MsgCancelFailed        = "Failed to cancel assignment"
	MsgRefreshFailed       = "Failed to refresh calendar"
	PromptCancelAssignment = "Are you sure you want to cancel this assignment?"
)

// Pending is the draft of an in-progress creation.
type Pending struct {
	Range    calendar.Range
	Category calendar.Category
	DriverID uint
}

// Machine is the interaction state machine for one calendar view. It is
// driven from a single goroutine, like the UI it backs, and is not safe for
// concurrent use.
type Machine struct {
	deps    Deps
	vehicle models.VehicleRow
	loc     *time.Location

	state    State
	pending  Pending
	selected calendar.Event
}

// New builds a machine for vehicle. loc is used for hour-click slots; nil
// means time.Local.
func New(deps Deps, vehicle models.VehicleRow, loc *time.Location) *Machine {
	if loc == nil {
		loc = time.Local
	}
	return &Machine{deps: deps, vehicle: vehicle, loc: loc}
}

func (m *Machine) State() State               { return m.state }
func (m *Machine) Pending() Pending           { return m.pending }
func (m *Machine) Selected() calendar.Event   { return m.selected }
func (m *Machine) Vehicle() models.VehicleRow { return m.vehicle }

// Options lists the categories the type-choice dialog offers.
func (m *Machine) Options() []calendar.Category {
	var out []calendar.Category
	for _, c := range []calendar.Category{calendar.CategoryAssignment, calendar.CategoryMaintenance} {
		if m.offers(c) {
			out = append(out, c)
		}
	}
	return out
}

func (m *Machine) offers(c calendar.Category) bool {
	f, ok := categoryFeature[c]
	if !ok || m.deps.Features == nil || !m.deps.Features.IsEnabled(f) {
		return false
	}
	if c == calendar.CategoryMaintenance && m.deps.Maintenance == nil {
		return false
	}
	return true
}

// SetVehicle switches the subject vehicle, drops any interaction in progress
// and refreshes the calendar.
func (m *Machine) SetVehicle(ctx context.Context, v models.VehicleRow) error {
	m.vehicle = v
	m.reset()
	return m.deps.Refresher.Refresh(ctx, v.ID)
}

// SelectSlot starts a creation for r. When no category is enabled the
// selection is inert and the machine stays Idle.
func (m *Machine) SelectSlot(r calendar.Range) error {
	if m.state != Idle {
		return m.invalid("select slot")
	}
	if !r.Valid() {
		return fmt.Errorf("%w: empty or inverted time range", ErrValidation)
	}

	m.pending = Pending{Range: r}
	m.state = SlotChosen

	if len(m.Options()) == 0 {
		m.reset()
		return nil
	}
	m.state = EventTypeChoice
	return nil
}

// ClickHour synthesizes a one-hour slot at hour on day, as the single-day
// list does for an empty hour.
func (m *Machine) ClickHour(day time.Time, hour int) error {
	if hour < 0 || hour > 23 {
		return fmt.Errorf("%w: hour %d out of range", ErrValidation, hour)
	}
	return m.SelectSlot(calendar.HourRange(day, hour, m.loc))
}

// ChooseType fixes the category of the pending creation. Choosing
// maintenance hands control to the maintenance dialog.
func (m *Machine) ChooseType(ctx context.Context, c calendar.Category) error {
	if m.state != EventTypeChoice {
		return m.invalid("choose type")
	}
	if !m.offers(c) {
		return fmt.Errorf("%w: category %q is not offered", ErrInvalidTransition, c)
	}

	m.pending.Category = c
	switch c {
	case calendar.CategoryAssignment:
		m.state = CreatingAssignment
	case calendar.CategoryMaintenance:
		m.state = CreatingMaintenance
		req := MaintenanceRequest{
			Vehicle:   m.vehicle,
			StartTime: calendar.FormatISO(m.pending.Range.Start),
			EndTime:   calendar.FormatISO(m.pending.Range.End),
		}
		m.deps.Maintenance.Open(ctx, req, func() { m.MaintenanceClosed(ctx) })
	}
	return nil
}

// SelectDriver is the driver table's row-click callback.
func (m *Machine) SelectDriver(driverID uint) error {
	if m.state != CreatingAssignment {
		return m.invalid("select driver")
	}
	m.pending.DriverID = driverID
	return nil
}

// AdjustRange refines start and end in the assignment form.
func (m *Machine) AdjustRange(r calendar.Range) error {
	if m.state != CreatingAssignment {
		return m.invalid("adjust range")
	}
	m.pending.Range = r
	return nil
}

// Submit creates the pending assignment. Missing fields are rejected with an
// error notification and no call. A failed call leaves the form open.
func (m *Machine) Submit(ctx context.Context) error {
	if m.state != CreatingAssignment {
		return m.invalid("submit")
	}

	p := m.pending
	if p.DriverID == 0 || p.Range.Start.IsZero() || p.Range.End.IsZero() || m.vehicle.ID == 0 {
		m.deps.Notifier.Error(MsgAssignmentMissing)
		return ErrValidation
	}
	if p.Range.End.Before(p.Range.Start) {
		m.deps.Notifier.Error(MsgAssignmentMissing)
		return fmt.Errorf("%w: end before start", ErrValidation)
	}

	in := models.CreateAssignmentInput{
		DriverID:  p.DriverID,
		VehicleID: m.vehicle.ID,
		StartDate: calendar.FormatISO(p.Range.Start),
		EndDate:   calendar.FormatISO(p.Range.End),
	}
	resp, err := m.deps.Backend.CreateDriverVehicleAssignment(ctx, in)
	if err == nil && (resp == nil || resp.Status != "success") {
		err = ErrRequestFailed
	}
	if err != nil {
		logging.Error("create assignment failed", err, "vehicle_id", m.vehicle.ID, "driver_id", p.DriverID)
		m.deps.Notifier.Error(MsgAssignmentFailed)
		return fmt.Errorf("create assignment: %w", err)
	}

	m.deps.Notifier.Success(MsgAssignmentCreated)
	m.reset()
	m.refresh(ctx)
	return nil
}

// Cancel discards the pending creation or closes the details view.
func (m *Machine) Cancel() error {
	switch m.state {
	case Idle:
		return nil
	case SlotChosen, EventTypeChoice, CreatingAssignment, ViewingDetails:
		m.reset()
		return nil
	default:
		// the maintenance dialog owns its own cancel
		return m.invalid("cancel")
	}
}

// MaintenanceClosed is the maintenance dialog's close callback.
func (m *Machine) MaintenanceClosed(ctx context.Context) {
	if m.state != CreatingMaintenance {
		logging.Debug("ignoring maintenance close", "state", m.state)
		return
	}
	m.reset()
	m.refresh(ctx)
}

// ClickEvent opens the details of an existing event.
func (m *Machine) ClickEvent(ev calendar.Event) error {
	if m.state != Idle {
		return m.invalid("click event")
	}
	m.selected = ev
	m.state = ViewingDetails
	return nil
}

// CloseDetails returns from the details view.
func (m *Machine) CloseDetails() error {
	if m.state != ViewingDetails {
		return m.invalid("close details")
	}
	m.reset()
	return nil
}

// CanCancelSelected reports whether the details view shows a cancel action.
func (m *Machine) CanCancelSelected() bool {
	return m.state == ViewingDetails && m.selected.Category == calendar.CategoryAssignment
}

// CancelAssignment deletes the assignment shown in the details view after
// confirmation. A declined prompt changes nothing.
func (m *Machine) CancelAssignment(ctx context.Context) error {
	if !m.CanCancelSelected() {
		return m.invalid("cancel assignment")
	}
	if !m.deps.Confirmer.Confirm(PromptCancelAssignment) {
		return nil
	}

	id := m.selected.SourceID
	resp, err := m.deps.Backend.DeleteDriverAssignment(ctx, id)
	if err == nil && (resp == nil || !resp.Success) {
		err = ErrRequestFailed
	}
	if err != nil {
		logging.Error("cancel assignment failed", err, "assignment_id", id)
		m.deps.Notifier.Error(MsgCancelFailed)
		return fmt.Errorf("delete assignment %d: %w", id, err)
	}

	m.deps.Notifier.Success(MsgAssignmentCancelled)
	m.reset()
	m.refresh(ctx)
	return nil
}

func (m *Machine) refresh(ctx context.Context) {
	if err := m.deps.Refresher.Refresh(ctx, m.vehicle.ID); err != nil {
		logging.Error("calendar refresh failed", err, "vehicle_id", m.vehicle.ID)
		m.deps.Notifier.Error(MsgRefreshFailed)
	}
}

func (m *Machine) reset() {
	m.state = Idle
	m.pending = Pending{}
	m.selected = calendar.Event{}
}

func (m *Machine) invalid(action string) error {
	return fmt.Errorf("%w: %s while %s", ErrInvalidTransition, action, m.state)
}
