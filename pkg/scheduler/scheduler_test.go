package scheduler

import (
	"testing"
	"time"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

func TestCheck_VehicleAndDriverOverlap(t *testing.T) {
	start := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	drivers := map[uint]*Driver{
		1: {ID: 1, Name: "Alice"},
		2: {ID: 2, Name: "Bob"},
	}
	bookings := map[uint]*Booking{
		10: {ID: 10, DriverID: 1, VehicleID: 100, Start: start, End: start.Add(2 * time.Hour)},
	}
	s := NewScheduler(drivers, bookings)

	conflicts := s.Check(Booking{DriverID: 2, VehicleID: 100, Start: start.Add(time.Hour), End: start.Add(3 * time.Hour)})
	if len(conflicts) != 1 || conflicts[0].Kind != models.ConflictVehicleBusy {
		t.Errorf("Expected vehicle busy conflict, got %+v", conflicts)
	}

	conflicts = s.Check(Booking{DriverID: 1, VehicleID: 200, Start: start.Add(time.Hour), End: start.Add(3 * time.Hour)})
	if len(conflicts) != 1 || conflicts[0].Kind != models.ConflictDriverBusy || conflicts[0].BookingID != 10 {
		t.Errorf("Expected driver busy conflict on booking 10, got %+v", conflicts)
	}

	conflicts = s.Check(Booking{DriverID: 1, VehicleID: 100, Start: start.Add(2 * time.Hour), End: start.Add(3 * time.Hour)})
	if len(conflicts) != 0 {
		t.Errorf("Expected back-to-back booking to be fine, got %+v", conflicts)
	}
}

func TestCheck_MaxHours(t *testing.T) {
	start := time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC)
	drivers := map[uint]*Driver{1: {ID: 1, MaxHours: 10}}
	bookings := map[uint]*Booking{
		1: {ID: 1, DriverID: 1, VehicleID: 5, Start: start, End: start.Add(8 * time.Hour)},
	}
	s := NewScheduler(drivers, bookings)

	if drivers[1].AssignedHours != 8.0 {
		t.Errorf("Expected prefill to record 8.0 hours, got %f", drivers[1].AssignedHours)
	}

	next := start.Add(24 * time.Hour)
	conflicts := s.Check(Booking{DriverID: 1, VehicleID: 5, Start: next, End: next.Add(3 * time.Hour)})
	if len(conflicts) != 1 || conflicts[0].Kind != models.ConflictMaxHours {
		t.Errorf("Expected max hours conflict, got %+v", conflicts)
	}
}

func TestTrack_OverlapWithoutHours(t *testing.T) {
	start := time.Date(2025, 6, 8, 20, 0, 0, 0, time.UTC)
	drivers := map[uint]*Driver{1: {ID: 1, MaxHours: 10}}
	s := NewScheduler(drivers, map[uint]*Booking{})

	later := &Booking{ID: 9, DriverID: 1, VehicleID: 5, Start: start.Add(12 * time.Hour), End: start.Add(16 * time.Hour)}
	s.Track(later)
	s.Track(later)

	if drivers[1].AssignedHours != 0 {
		t.Errorf("Expected tracked booking not to add hours, got %f", drivers[1].AssignedHours)
	}
	if len(drivers[1].Bookings) != 1 {
		t.Errorf("Expected booking tracked once, got %v", drivers[1].Bookings)
	}

	conflicts := s.Check(Booking{DriverID: 2, VehicleID: 5, Start: start, End: start.Add(14 * time.Hour)})
	if len(conflicts) != 1 || conflicts[0].Kind != models.ConflictVehicleBusy || conflicts[0].BookingID != 9 {
		t.Errorf("Expected vehicle busy on 9, got %+v", conflicts)
	}
}

func TestCheck_InvalidRange(t *testing.T) {
	s := NewScheduler(map[uint]*Driver{}, map[uint]*Booking{})
	start := time.Now()
	conflicts := s.Check(Booking{DriverID: 1, VehicleID: 1, Start: start, End: start})
	if len(conflicts) != 1 || conflicts[0].Kind != models.ConflictInvalidRange {
		t.Errorf("Expected invalid range, got %+v", conflicts)
	}
}

func TestSuggest_LeastBookedFirst(t *testing.T) {
	start := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
	drivers := map[uint]*Driver{
		1: {ID: 1, Name: "Alice"},
		2: {ID: 2, Name: "Bob"},
		3: {ID: 3, Name: "Carol"},
	}
	bookings := map[uint]*Booking{
		1: {ID: 1, DriverID: 1, VehicleID: 9, Start: start.Add(-48 * time.Hour), End: start.Add(-44 * time.Hour)},
		2: {ID: 2, DriverID: 3, VehicleID: 8, Start: start, End: start.Add(time.Hour)},
	}
	s := NewScheduler(drivers, bookings)

	got, reasons := s.Suggest(Booking{VehicleID: 7, Start: start, End: start.Add(2 * time.Hour)})
	if len(reasons) != 0 {
		t.Errorf("Expected no reasons, got %v", reasons)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(got))
	}
	if got[0].DriverID != 2 || got[1].DriverID != 1 {
		t.Errorf("Expected Bob before Alice, got %+v", got)
	}
}

func TestSuggest_NobodyFits(t *testing.T) {
	start := time.Date(2025, 6, 3, 8, 0, 0, 0, time.UTC)
	drivers := map[uint]*Driver{1: {ID: 1, MaxHours: 1}}
	s := NewScheduler(drivers, map[uint]*Booking{})

	got, reasons := s.Suggest(Booking{VehicleID: 7, Start: start, End: start.Add(2 * time.Hour)})
	if len(got) != 0 || len(reasons) != 1 {
		t.Errorf("Expected a single max hours reason, got %+v / %v", got, reasons)
	}
}

func TestCalculateFairnessScore(t *testing.T) {
	s := &Scheduler{Drivers: map[uint]*Driver{
		1: {ID: 1, AssignedHours: 4},
		2: {ID: 2, AssignedHours: 4},
	}}
	if score := s.CalculateFairnessScore(); score != 100.0 {
		t.Errorf("Expected perfect fairness, got %f", score)
	}
	s.Drivers[2].AssignedHours = 0
	if score := s.CalculateFairnessScore(); score != 0.0 {
		t.Errorf("Expected 0 fairness, got %f", score)
	}
}
