package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/logging"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// ListMaintenances returns one page of maintenance windows
func (h *Handler) ListMaintenances(c *gin.Context) {
	page := queryInt(c, "page", 1)
	pageSize := queryInt(c, "page_size", 10)

	out, err := h.Store.FetchMaintenances(c.Request.Context(), page, pageSize, queryUint(c, "vehicle_id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// CreateMaintenance handles the maintenance creation dialog
func (h *Handler) CreateMaintenance(c *gin.Context) {
	if !h.Config.Features.Maintenance {
		c.JSON(http.StatusForbidden, gin.H{"error": "maintenance creation is disabled"})
		return
	}

	var input models.CreateMaintenanceInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.Vehicle == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "vehicle is required"})
		return
	}
	if input.ServiceTypeID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "service_type_id is required"})
		return
	}
	start, err := calendar.ParseTimestamp(input.StartTime)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start_time must be an ISO-8601 timestamp"})
		return
	}

	m := database.Maintenance{
		VehicleID:     input.Vehicle,
		ServiceTypeID: input.ServiceTypeID,
		StartTime:     start,
		Notes:         strings.TrimSpace(input.Notes),
	}
	if input.EndTime != "" {
		end, err := calendar.ParseTimestamp(input.EndTime)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "end_time must be an ISO-8601 timestamp"})
			return
		}
		m.EndTime = &end
	}

	if err := h.Store.CreateMaintenance(c.Request.Context(), &m); err != nil {
		h.fail(c, err)
		return
	}
	logging.Info("maintenance created", "id", m.ID, "vehicle", m.VehicleID)
	c.JSON(http.StatusCreated, gin.H{"status": "success", "data": database.MaintenanceRecord(m)})
}

// DeleteMaintenance removes a maintenance window
func (h *Handler) DeleteMaintenance(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteMaintenance(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DeleteResponse{Success: true})
}

// CreateMaintenancePlan expands a recurrence rule into maintenance windows
func (h *Handler) CreateMaintenancePlan(c *gin.Context) {
	if !h.Config.Features.Maintenance {
		c.JSON(http.StatusForbidden, gin.H{"error": "maintenance creation is disabled"})
		return
	}
	vehicleID, ok := paramID(c)
	if !ok {
		return
	}

	var input models.MaintenancePlanInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if input.RRule == "" || input.ServiceTypeID == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "rrule and service_type_id are required"})
		return
	}
	start, err := calendar.ParseTimestamp(input.Start)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "start must be an ISO-8601 timestamp"})
		return
	}
	var until time.Time
	if input.Until != "" {
		if until, err = calendar.ParseTimestamp(input.Until); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "until must be an ISO-8601 timestamp"})
			return
		}
	}

	minutes := input.DurationMinutes
	if minutes <= 0 {
		st, err := h.Store.GetServiceType(c.Request.Context(), input.ServiceTypeID)
		if err != nil {
			h.fail(c, fmt.Errorf("%w: unknown service type %d", database.ErrValidation, input.ServiceTypeID))
			return
		}
		minutes = st.DefaultDurationMinutes
	}

	windows, truncated, err := calendar.ExpandPlan(calendar.Plan{
		RRule:    input.RRule,
		Start:    start,
		Until:    until,
		Duration: time.Duration(minutes) * time.Minute,
	})
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ref, rows, err := h.Store.CreateMaintenancePlan(c.Request.Context(), vehicleID, input.ServiceTypeID, windows, strings.TrimSpace(input.Notes))
	if err != nil {
		h.fail(c, err)
		return
	}

	data := make([]models.MaintenanceRecord, 0, len(rows))
	for _, m := range rows {
		data = append(data, database.MaintenanceRecord(m))
	}
	logging.Info("maintenance plan created", "plan", ref, "vehicle", vehicleID, "windows", len(rows), "truncated", truncated)
	c.JSON(http.StatusCreated, gin.H{
		"status":    "success",
		"planRef":   ref,
		"truncated": truncated,
		"data":      data,
	})
}
