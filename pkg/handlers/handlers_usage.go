package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/scheduler"
)

// GetFleetUsage returns driver and vehicle hours for the week containing date
func (h *Handler) GetFleetUsage(c *gin.Context) {
	day, err := h.parseDay(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD or an ISO-8601 timestamp"})
		return
	}
	from := calendar.StartOfWeek(day, h.Config.WeekStart, h.location())
	to := from.AddDate(0, 0, 7)

	assigns, err := h.Store.AssignmentsBetween(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}
	maints, err := h.Store.MaintenancesBetween(c.Request.Context(), from, to)
	if err != nil {
		h.fail(c, err)
		return
	}

	drivers := make(map[uint]*scheduler.Driver)
	bookings := make(map[uint]*scheduler.Booking, len(assigns))
	for _, a := range assigns {
		if _, ok := drivers[a.DriverID]; !ok {
			drivers[a.DriverID] = &scheduler.Driver{ID: a.DriverID}
		}
		bookings[a.ID] = &scheduler.Booking{ID: a.ID, DriverID: a.DriverID, VehicleID: a.VehicleID, Start: a.StartDate, End: a.EndDate}
	}
	s := scheduler.NewScheduler(drivers, bookings)

	driverHours := make(map[uint]float64, len(drivers))
	for id, d := range s.Drivers {
		driverHours[id] = d.AssignedHours
	}

	vehicleStats := make(map[uint]gin.H)
	stat := func(id uint) gin.H {
		if _, ok := vehicleStats[id]; !ok {
			vehicleStats[id] = gin.H{"assignment_hours": 0.0, "maintenance_hours": 0.0}
		}
		return vehicleStats[id]
	}
	for _, b := range s.Bookings {
		v := stat(b.VehicleID)
		v["assignment_hours"] = v["assignment_hours"].(float64) + s.DurationHours(b.Start, b.End)
	}
	var totalMaintenance float64
	for _, m := range maints {
		if m.EndTime == nil {
			continue
		}
		hours := s.DurationHours(m.StartTime, *m.EndTime)
		v := stat(m.VehicleID)
		v["maintenance_hours"] = v["maintenance_hours"].(float64) + hours
		totalMaintenance += hours
	}

	c.JSON(http.StatusOK, gin.H{
		"week_start":     calendar.DateKey(from, h.location()),
		"driver_hours":   driverHours,
		"vehicles":       vehicleStats,
		"fairness_score": s.CalculateFairnessScore(),
		"totals": gin.H{
			"assignments":       len(assigns),
			"maintenances":      len(maints),
			"maintenance_hours": totalMaintenance,
		},
	})
}
