package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fuel_tracker/internal/models"
)

type vehicleView struct {
	models.Vehicle
	Status *models.VehicleStatus `json:"status,omitempty"`
}

// ListVehicles returns the registry joined with each vehicle's live status.
func (h *Handler) ListVehicles(c *gin.Context) {
	ctx := c.Request.Context()

	vehicles, err := h.store.ListVehicles(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing vehicles: " + err.Error()})
		return
	}
	statuses, err := h.store.ListVehicleStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading vehicle status: " + err.Error()})
		return
	}
	byUnit := make(map[int64]*models.VehicleStatus, len(statuses))
	for i := range statuses {
		byUnit[statuses[i].UnitID] = &statuses[i]
	}

	out := make([]vehicleView, 0, len(vehicles))
	for _, v := range vehicles {
		out = append(out, vehicleView{Vehicle: v, Status: byUnit[v.UnitID]})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}
