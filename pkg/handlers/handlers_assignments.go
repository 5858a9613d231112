package handlers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/calendar"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/logging"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// VehicleAssignments returns all assignments of a vehicle
func (h *Handler) VehicleAssignments(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	out, err := h.Store.FetchVehicleAssignments(c.Request.Context(), id)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

// assignmentFromInput validates the create payload. The error message is
// safe to return to the client.
func assignmentFromInput(input models.CreateAssignmentInput) (database.DriverVehicleAssignment, error) {
	var a database.DriverVehicleAssignment
	if input.DriverID == 0 {
		return a, errors.New("driverId is required")
	}
	if input.VehicleID == 0 {
		return a, errors.New("vehicleId is required")
	}
	start, err := calendar.ParseTimestamp(input.StartDate)
	if err != nil {
		return a, errors.New("startDate must be an ISO-8601 timestamp")
	}
	end, err := calendar.ParseTimestamp(input.EndDate)
	if err != nil {
		return a, errors.New("endDate must be an ISO-8601 timestamp")
	}
	a.DriverID = input.DriverID
	a.VehicleID = input.VehicleID
	a.StartDate = start
	a.EndDate = end
	return a, nil
}

// CreateAssignment assigns a driver to a vehicle for a time window
func (h *Handler) CreateAssignment(c *gin.Context) {
	if !h.Config.Features.Assignment {
		c.JSON(http.StatusForbidden, gin.H{"error": "assignment creation is disabled"})
		return
	}

	var input models.CreateAssignmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := assignmentFromInput(input)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conflicts, err := h.Store.CreateAssignment(c.Request.Context(), &a)
	if errors.Is(err, database.ErrConflict) {
		c.JSON(http.StatusConflict, gin.H{"error": "assignment conflicts with existing bookings", "conflicts": conflicts})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}

	logging.Info("assignment created", "id", a.ID, "driver", a.DriverID, "vehicle", a.VehicleID)
	c.JSON(http.StatusCreated, models.CreateAssignmentResponse{
		Status: "success",
		Data:   database.AssignmentRecord(a),
	})
}

// DeleteAssignment cancels an assignment
func (h *Handler) DeleteAssignment(c *gin.Context) {
	id, ok := paramID(c)
	if !ok {
		return
	}
	if err := h.Store.DeleteAssignment(c.Request.Context(), id); err != nil {
		h.fail(c, err)
		return
	}
	logging.Info("assignment deleted", "id", id)
	c.JSON(http.StatusOK, models.DeleteResponse{Success: true})
}

// ImportAssignmentsCSV creates assignments from an uploaded CSV with the
// columns driver_id, vehicle_id, start and end. Rows that fail validation
// or conflict are reported and skipped.
func (h *Handler) ImportAssignmentsCSV(c *gin.Context) {
	if !h.Config.Features.Assignment {
		c.JSON(http.StatusForbidden, gin.H{"error": "assignment creation is disabled"})
		return
	}

	file, _ := c.FormFile("assignments_file")
	if file == nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "assignments_file is required"})
		return
	}
	f, err := file.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open assignments file"})
		return
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read assignments header"})
		return
	}
	cols := make(map[string]int)
	for i, name := range header {
		cols[strings.TrimSpace(name)] = i
	}
	for _, name := range []string{"driver_id", "vehicle_id", "start", "end"} {
		if _, ok := cols[name]; !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "missing column " + name})
			return
		}
	}

	type rejected struct {
		Row       int                     `json:"row"`
		Error     string                  `json:"error"`
		Conflicts []models.ConflictReason `json:"conflicts,omitempty"`
	}
	var rejects []rejected
	var created []models.AssignmentRecord

	row := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		row++
		if err != nil {
			rejects = append(rejects, rejected{Row: row, Error: err.Error()})
			continue
		}

		driverID, _ := strconv.ParseUint(record[cols["driver_id"]], 10, 64)
		vehicleID, _ := strconv.ParseUint(record[cols["vehicle_id"]], 10, 64)
		a, err := assignmentFromInput(models.CreateAssignmentInput{
			DriverID:  uint(driverID),
			VehicleID: uint(vehicleID),
			StartDate: strings.TrimSpace(record[cols["start"]]),
			EndDate:   strings.TrimSpace(record[cols["end"]]),
		})
		if err != nil {
			rejects = append(rejects, rejected{Row: row, Error: err.Error()})
			continue
		}

		conflicts, err := h.Store.CreateAssignment(c.Request.Context(), &a)
		if err != nil {
			rejects = append(rejects, rejected{Row: row, Error: err.Error(), Conflicts: conflicts})
			continue
		}
		created = append(created, database.AssignmentRecord(a))
	}

	var outCSV strings.Builder
	writer := csv.NewWriter(&outCSV)
	writer.Write([]string{"assignment_id", "driver_id", "driver_name", "vehicle_id", "start", "end"})
	for _, rec := range created {
		writer.Write([]string{
			strconv.FormatUint(uint64(rec.ID), 10),
			strconv.FormatUint(uint64(rec.DriverID), 10),
			calendar.DriverName(rec.Driver),
			strconv.FormatUint(uint64(rec.VehicleID), 10),
			rec.StartDate,
			rec.EndDate,
		})
	}
	writer.Flush()

	logging.Info("assignments imported", "created", len(created), "rejected", len(rejects))
	c.JSON(http.StatusOK, gin.H{
		"created":  len(created),
		"rejected": rejects,
		"csv":      outCSV.String(),
		"summary":  fmt.Sprintf("%d created, %d rejected", len(created), len(rejects)),
	})
}
