package handlers

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
)

// blackoutEvents turns configured depot closures into externally seeded events
func (h *Handler) blackoutEvents() []calendar.Event {
	out := make([]calendar.Event, 0, len(h.Config.Blackouts))
	for i, b := range h.Config.Blackouts {
		out = append(out, calendar.Event{
			Start:      b.Start,
			End:        b.End,
			Title:      b.Title,
			Category:   calendar.CategoryBlackout,
			SourceID:   uint(i + 1),
			DetailNote: b.Title,
		})
	}
	return out
}

// vehicleEvents runs one refresh of the merge engine for the vehicle
func (h *Handler) vehicleEvents(ctx context.Context, vehicleID uint) ([]calendar.Event, error) {
	engine := calendar.NewEngine(h.Store)
	engine.Seed(h.blackoutEvents()...)
	if err := engine.Refresh(ctx, vehicleID); err != nil {
		return nil, err
	}
	return engine.Events(), nil
}

// VehicleCalendar renders the merged calendar of a vehicle as a day list, a
// week grid or a flat event list
func (h *Handler) VehicleCalendar(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}

	var tab calendar.Category
	if t := c.Query("tab"); t != "" && t != "all" {
		var err error
		if tab, err = calendar.ParseCategory(t); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	day, err := h.parseDay(c.Query("date"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD or an ISO-8601 timestamp"})
		return
	}

	v, err := h.Store.GetVehicle(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	events, err := h.vehicleEvents(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	events = calendar.FilterByCategory(events, tab)

	styles := gin.H{}
	for _, cat := range []calendar.Category{calendar.CategoryMaintenance, calendar.CategoryAssignment, calendar.CategoryBlackout} {
		styles[string(cat)] = calendar.StyleFor(cat)
	}
	resp := gin.H{
		"vehicle":  database.VehicleRow(*v),
		"features": h.features(),
		"styles":   styles,
	}

	loc := h.location()
	switch view := c.DefaultQuery("view", "all"); view {
	case "day":
		resp["view"] = view
		resp["date"] = calendar.DateKey(day, loc)
		resp["slots"] = calendar.DayView(events, day, loc)
	case "week":
		resp["view"] = view
		resp["days"] = calendar.WeekView(events, day, h.Config.WeekStart, loc)
	case "all":
		resp["view"] = view
		resp["events"] = events
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "view must be day, week or all"})
		return
	}
	c.JSON(http.StatusOK, resp)
}

// VehicleCalendarICS exports the merged calendar of a vehicle as iCalendar
func (h *Handler) VehicleCalendarICS(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	v, err := h.Store.GetVehicle(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	events, err := h.vehicleEvents(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}

	var buf bytes.Buffer
	if err := calendar.WriteICS(&buf, v.Name, events, h.now()); err != nil {
		h.fail(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=vehicle-%d.ics", id))
	c.Data(http.StatusOK, "text/calendar; charset=utf-8", buf.Bytes())
}
