package scheduler

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// Driver is a driver as the scheduler sees it
type Driver struct {
	ID            uint
	Name          string
	MaxHours      float64 // per checking window, 0 means unlimited
	AssignedHours float64
	Bookings      []uint
}

// Booking is an existing or proposed driver-vehicle assignment
type Booking struct {
	ID        uint
	DriverID  uint
	VehicleID uint
	Start     time.Time
	End       time.Time
}

// Scheduler checks proposed assignments against the existing ones
type Scheduler struct {
	Drivers  map[uint]*Driver
	Bookings map[uint]*Booking
}

// NewScheduler creates a new scheduler instance and records the hours each
// driver already has booked
func NewScheduler(drivers map[uint]*Driver, bookings map[uint]*Booking) *Scheduler {
	s := &Scheduler{Drivers: drivers, Bookings: bookings}
	s.Prefill()
	return s
}

// Prefill records existing bookings against their drivers
func (s *Scheduler) Prefill() {
	ids := make([]uint, 0, len(s.Bookings))
	for id := range s.Bookings {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	for _, id := range ids {
		b := s.Bookings[id]
		drv, ok := s.Drivers[b.DriverID]
		if !ok {
			continue
		}
		drv.Bookings = append(drv.Bookings, b.ID)
		drv.AssignedHours += s.DurationHours(b.Start, b.End)
	}
}

// Track adds a booking for overlap checks without counting its hours. Used
// for bookings outside the window the hours were prefilled for.
func (s *Scheduler) Track(b *Booking) {
	if _, ok := s.Bookings[b.ID]; ok {
		return
	}
	s.Bookings[b.ID] = b
	if drv, ok := s.Drivers[b.DriverID]; ok {
		drv.Bookings = append(drv.Bookings, b.ID)
	}
}

// DurationHours calculates the duration between two times in hours
func (s *Scheduler) DurationHours(start, end time.Time) float64 {
	return end.Sub(start).Hours()
}

// Overlap checks if two time ranges overlap
func (s *Scheduler) Overlap(aStart, aEnd, bStart, bEnd time.Time) bool {
	return aStart.Before(bEnd) && bStart.Before(aEnd)
}

// WouldOverlap checks if a driver's existing bookings overlap with a new one
func (s *Scheduler) WouldOverlap(driver *Driver, candidate Booking) (uint, bool) {
	for _, id := range driver.Bookings {
		existing := s.Bookings[id]
		if existing.ID == candidate.ID {
			continue
		}
		if s.Overlap(existing.Start, existing.End, candidate.Start, candidate.End) {
			return existing.ID, true
		}
	}
	return 0, false
}

// VehicleBusy checks if the candidate's vehicle already has an overlapping booking
func (s *Scheduler) VehicleBusy(candidate Booking) (uint, bool) {
	for _, b := range s.sortedBookings() {
		if b.VehicleID != candidate.VehicleID || b.ID == candidate.ID {
			continue
		}
		if s.Overlap(b.Start, b.End, candidate.Start, candidate.End) {
			return b.ID, true
		}
	}
	return 0, false
}

// Check returns every reason the candidate booking cannot be made
func (s *Scheduler) Check(candidate Booking) []models.ConflictReason {
	var out []models.ConflictReason

	if !candidate.End.After(candidate.Start) {
		out = append(out, models.ConflictReason{Kind: models.ConflictInvalidRange, Message: "end must be after start"})
		return out
	}

	if id, busy := s.VehicleBusy(candidate); busy {
		out = append(out, models.ConflictReason{
			Kind:      models.ConflictVehicleBusy,
			BookingID: id,
			Message:   fmt.Sprintf("vehicle %d is already assigned in this window", candidate.VehicleID),
		})
	}

	drv, ok := s.Drivers[candidate.DriverID]
	if !ok {
		return out
	}
	if id, overlaps := s.WouldOverlap(drv, candidate); overlaps {
		out = append(out, models.ConflictReason{
			Kind:      models.ConflictDriverBusy,
			BookingID: id,
			Message:   fmt.Sprintf("driver %d is already assigned in this window", drv.ID),
		})
	}
	if drv.MaxHours > 0 && drv.AssignedHours+s.DurationHours(candidate.Start, candidate.End) > drv.MaxHours {
		out = append(out, models.ConflictReason{
			Kind:    models.ConflictMaxHours,
			Message: fmt.Sprintf("driver %d would exceed %.1f hours", drv.ID, drv.MaxHours),
		})
	}
	return out
}

// Suggest ranks the drivers who could take the candidate slot, least booked
// first. When nobody fits, the reasons are summarized instead.
func (s *Scheduler) Suggest(candidate Booking) ([]models.DriverSuggestion, []string) {
	var out []models.DriverSuggestion
	maxHoursCount := 0
	overlapCount := 0

	duration := s.DurationHours(candidate.Start, candidate.End)
	for _, drv := range s.sortedDrivers() {
		_, overlaps := s.WouldOverlap(drv, candidate)
		fitsHours := drv.MaxHours <= 0 || drv.AssignedHours+duration <= drv.MaxHours

		if !overlaps && fitsHours {
			out = append(out, models.DriverSuggestion{
				DriverID:      drv.ID,
				Name:          drv.Name,
				AssignedHours: drv.AssignedHours,
			})
			continue
		}
		if overlaps {
			overlapCount++
		}
		if !fitsHours {
			maxHoursCount++
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].AssignedHours < out[j].AssignedHours })

	var reasons []string
	if len(out) == 0 {
		if maxHoursCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d drivers were at max hours", maxHoursCount))
		}
		if overlapCount > 0 {
			reasons = append(reasons, fmt.Sprintf("%d drivers had overlapping assignments", overlapCount))
		}
		if len(reasons) == 0 {
			reasons = append(reasons, "no drivers found")
		}
	}
	return out, reasons
}

// CalculateFairnessScore returns a percentage (0-100) representing how evenly
// hours are distributed. 100% is perfectly fair (Standard Deviation = 0).
func (s *Scheduler) CalculateFairnessScore() float64 {
	if len(s.Drivers) == 0 {
		return 100.0
	}

	var sum float64
	for _, d := range s.Drivers {
		sum += d.AssignedHours
	}
	if sum == 0 {
		return 100.0
	}

	mean := sum / float64(len(s.Drivers))

	var varianceSum float64
	for _, d := range s.Drivers {
		diff := d.AssignedHours - mean
		varianceSum += diff * diff
	}
	stdDev := math.Sqrt(varianceSum / float64(len(s.Drivers)))

	score := (1.0 - (stdDev / mean)) * 100.0
	if score < 0 {
		return 0.0
	}
	return score
}

func (s *Scheduler) sortedDrivers() []*Driver {
	out := make([]*Driver, 0, len(s.Drivers))
	for _, d := range s.Drivers {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Scheduler) sortedBookings() []*Booking {
	out := make([]*Booking, 0, len(s.Bookings))
	for _, b := range s.Bookings {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
