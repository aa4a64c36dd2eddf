package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"fuel_tracker/internal/models"
	"fuel_tracker/internal/store"
)

var validStatuses = map[models.TransactionStatus]bool{
	models.TransactionPending:     true,
	models.TransactionPartial:     true,
	models.TransactionCompleted:   true,
	models.TransactionDiscrepancy: true,
	models.TransactionTimedOut:    true,
}

// ListTransactions supports ?status=&driver_id=&vehicle_id=&bowser_id=&limit=&offset=
func (h *Handler) ListTransactions(c *gin.Context) {
	var f store.TransactionFilter

	if s := c.Query("status"); s != "" {
		f.Status = models.TransactionStatus(s)
		if !validStatuses[f.Status] {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid status: " + s})
			return
		}
	}

	ids := map[string]*uint{"driver_id": &f.DriverID, "vehicle_id": &f.VehicleID, "bowser_id": &f.BowserID}
	for key, dst := range ids {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		n, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + key})
			return
		}
		*dst = uint(n)
	}

	var err error
	if f.Limit, err = intQuery(c, "limit"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit"})
		return
	}
	if f.Offset, err = intQuery(c, "offset"); err != nil || f.Offset < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid offset"})
		return
	}

	txs, err := h.store.ListTransactions(c.Request.Context(), f)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error listing transactions: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": txs})
}

// GetTransaction returns one transaction and the fuel events it consumed.
func (h *Handler) GetTransaction(c *gin.Context) {
	tx, events, err := h.store.GetTransaction(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Transaction not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error fetching transaction: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"transaction": tx, "fuel_events": events})
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
