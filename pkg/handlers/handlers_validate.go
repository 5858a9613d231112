package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/fleetdesk/fleet-scheduler-api/pkg/database"
	"github.com/fleetdesk/fleet-scheduler-api/pkg/models"
)

// ValidateAssignment checks an assignment draft without storing it
func (h *Handler) ValidateAssignment(c *gin.Context) {
	var input models.CreateAssignmentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	a, err := assignmentFromInput(input)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}

	conflicts, err := h.Store.CheckAssignment(c.Request.Context(), a)
	if errors.Is(err, database.ErrNotFound) {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": err.Error()})
		return
	}
	if err != nil {
		h.fail(c, err)
		return
	}
	if len(conflicts) > 0 {
		c.JSON(http.StatusOK, gin.H{"valid": false, "error": conflicts[0].Message, "conflicts": conflicts})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid": true,
		"stats": gin.H{
			"duration_hours": a.EndDate.Sub(a.StartDate).Hours(),
		},
	})
}
