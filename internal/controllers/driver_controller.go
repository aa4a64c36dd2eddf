package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (h *Handler) ListDrivers(c *gin.Context) {
	drivers, err := h.store.ListDrivers(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing drivers: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": drivers})
}
