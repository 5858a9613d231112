package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

func (h *Handler) features() models.Features {
	return models.Features{
		Assignment:  h.Config.Features.Assignment,
		Maintenance: h.Config.Features.Maintenance,
	}
}

// ListVehicles returns every vehicle
func (h *Handler) ListVehicles(c *gin.Context) {
	vehicles, err := h.Store.ListVehicles(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	out := make([]models.VehicleRow, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, database.VehicleRow(v))
	}
	c.JSON(http.StatusOK, out)
}

// GetVehicle returns one vehicle
func (h *Handler) GetVehicle(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	v, err := h.Store.GetVehicle(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, database.VehicleRow(*v))
}

// ListDrivers returns one page of the driver table
func (h *Handler) ListDrivers(c *gin.Context) {
	page, pageSize := database.Paginate(queryInt(c, "page", 1), queryInt(c, "page_size", 10))

	drivers, total, err := h.Store.ListDrivers(c.Request.Context(), page, pageSize, c.Query("search"))
	if err != nil {
		h.fail(c, err)
		return
	}
	out := models.DriverPage{Data: make([]models.DriverRow, 0, len(drivers)), Total: total, Page: page, PageSize: pageSize}
	for _, d := range drivers {
		out.Data = append(out.Data, database.DriverRow(d))
	}
	c.JSON(http.StatusOK, out)
}

// DriverSuggestions lists drivers free for a slot on the vehicle
func (h *Handler) DriverSuggestions(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	start, err := calendar.ParseTimestamp(c.Query("start"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be an ISO-8601 timestamp"})
		return
	}
	end, err := calendar.ParseTimestamp(c.Query("end"))
	if err != nil || !end.After(start) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "end must be an ISO-8601 timestamp after start"})
		return
	}

	resp, err := h.Store.SuggestDrivers(c.Request.Context(), id, start, end)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListServiceTypes returns the maintenance service types
func (h *Handler) ListServiceTypes(c *gin.Context) {
	types, err := h.Store.ListServiceTypes(c.Request.Context())
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, types)
}

// parseDay accepts YYYY-MM-DD or a full timestamp. Empty means today.
func (h *Handler) parseDay(s string) (time.Time, error) {
	loc := h.location()
	s = strings.TrimSpace(s)
	if s == "" {
		return h.now().In(loc), nil
	}
	if d, err := time.ParseInLocation("2006-01-02", s, loc); err == nil {
		return d, nil
	}
	t, err := calendar.ParseTimestamp(s)
	if err != nil {
		return time.Time{}, err
	}
	return t.In(loc), nil
}
