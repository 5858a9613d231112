package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
)

// ListPreferences returns reminder preferences, optionally for one email
func (h *Handler) ListPreferences(c *gin.Context) {
	prefs, err := h.Store.ListPreferences(c.Request.Context(), c.Query("email"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"preferences": prefs})
}

// CreatePreference subscribes an email to reminders
func (h *Handler) CreatePreference(c *gin.Context) {
	var req struct {
		Email       string `json:"email"`
		VehicleID   uint   `json:"vehicle_id"`
		LeadMinutes int    `json:"lead_minutes"`
		Maintenance bool   `json:"maintenance"`
		Assignment  bool   `json:"assignment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	pref := database.NotificationPreference{
		Email:       strings.TrimSpace(req.Email),
		VehicleID:   req.VehicleID,
		LeadMinutes: req.LeadMinutes,
		Maintenance: req.Maintenance,
		Assignment:  req.Assignment,
	}
	if err := h.Store.CreatePreference(c.Request.Context(), &pref); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, pref)
}

// ListNotifications returns the latest reminders written by the scheduler
func (h *Handler) ListNotifications(c *gin.Context) {
	list, err := h.Store.ListNotifications(c.Request.Context(), c.Query("email"), queryInt(c, "limit", 50))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": list})
}
