package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/config"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/logging"
)

// Version is reported by the index route
const Version = "1.0.0"

// Handler contains dependencies for the route handlers
type Handler struct {
	Store  *database.Store
	Config config.Config
	// Now is the clock used for defaults such as today's calendar day
	Now func() time.Time
}

// New builds a handler over store with the given configuration
func New(store *database.Store, cfg config.Config) *Handler {
	store.MaxDriverHours = cfg.MaxDriverHours
	return &Handler{Store: store, Config: cfg, Now: time.Now}
}

// Routes registers every endpoint on r
func (h *Handler) Routes(r *gin.Engine) {
	r.Use(RequestID())

	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "Fleet Scheduler API",
			"version": Version,
		})
	})

	api := r.Group("/api")
	{
		api.GET("/features", h.GetFeatures)
		api.GET("/usage", h.GetFleetUsage)

		api.GET("/vehicles", h.ListVehicles)
		api.GET("/vehicles/:id", h.GetVehicle)
		api.GET("/vehicles/:id/assignments", h.VehicleAssignments)
		api.GET("/vehicles/:id/calendar", h.VehicleCalendar)
		api.GET("/vehicles/:id/calendar.ics", h.VehicleCalendarICS)
		api.GET("/vehicles/:id/driver-suggestions", h.DriverSuggestions)
		api.POST("/vehicles/:id/maintenance-plans", h.CreateMaintenancePlan)

		api.GET("/drivers", h.ListDrivers)
		api.GET("/service-types", h.ListServiceTypes)

		api.GET("/maintenances", h.ListMaintenances)
		api.POST("/maintenances", h.CreateMaintenance)
		api.DELETE("/maintenances/:id", h.DeleteMaintenance)

		api.POST("/driver-vehicle-assignments", h.CreateAssignment)
		api.POST("/driver-vehicle-assignments/csv", h.ImportAssignmentsCSV)
		api.DELETE("/driver-vehicle-assignments/:id", h.DeleteAssignment)
		api.POST("/validate/assignment", h.ValidateAssignment)

		api.GET("/notification-preferences", h.ListPreferences)
		api.POST("/notification-preferences", h.CreatePreference)
		api.GET("/notifications", h.ListNotifications)
	}
}

// NewRouter returns a gin engine with logging, recovery and all routes
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	h.Routes(r)
	return r
}

// RequestID stamps every request and response with an X-Request-ID
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("requestID", id)
		c.Header("X-Request-ID", id)
		c.Next()
	}
}

// GetFeatures reports which event categories may be created
func (h *Handler) GetFeatures(c *gin.Context) {
	c.JSON(http.StatusOK, h.features())
}

func (h *Handler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *Handler) location() *time.Location {
	if h.Config.Location == nil {
		return time.UTC
	}
	return h.Config.Location
}

// fail maps store errors to status codes
func (h *Handler) fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, database.ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		logging.Error("request failed", err, "path", c.FullPath(), "request_id", c.GetString("requestID"))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func paramID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func queryUint(c *gin.Context, key string) uint {
	v, err := strconv.ParseUint(c.Query(key), 10, 64)
	if err != nil {
		return 0
	}
	return uint(v)
}
