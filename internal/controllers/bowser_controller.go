package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"fuel_tracker/internal/geo"
	"fuel_tracker/internal/models"
)

type bowserView struct {
	models.Bowser
	Status *models.BowserStatus `json:"status,omitempty"`
}

// ListBowsers returns every bowser with its geofence and live status.
func (h *Handler) ListBowsers(c *gin.Context) {
	ctx := c.Request.Context()

	bowsers, err := h.store.ListBowsers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing bowsers: " + err.Error()})
		return
	}
	statuses, err := h.store.ListBowserStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading bowser status: " + err.Error()})
		return
	}
	byUnit := make(map[int64]*models.BowserStatus, len(statuses))
	for i := range statuses {
		byUnit[statuses[i].UnitID] = &statuses[i]
	}

	out := make([]bowserView, 0, len(bowsers))
	for _, b := range bowsers {
		out = append(out, bowserView{Bowser: b, Status: byUnit[b.UnitID]})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// ListGeofences renders the dispensing points as a GeoJSON FeatureCollection.
func (h *Handler) ListGeofences(c *gin.Context) {
	ctx := c.Request.Context()

	fences, err := h.store.ListGeofences(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing geofences: " + err.Error()})
		return
	}
	bowsers, err := h.store.ListBowsers(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing bowsers: " + err.Error()})
		return
	}
	owners := make(map[uint]models.Bowser, len(bowsers))
	for _, b := range bowsers {
		owners[b.GeofenceID] = b
	}

	c.JSON(http.StatusOK, geo.GeofencesGeoJSON(fences, owners, h.defaultRadius))
}
