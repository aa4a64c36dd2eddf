package controllers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"fuel_tracker/internal/scheduler"
)

// GetStatus reports service health, the raw-event backlog and transaction
// counts per status.
func (h *Handler) GetStatus(c *gin.Context) {
	ctx := c.Request.Context()

	if err := h.store.Ping(ctx); err != nil {
		logrus.WithError(err).Error("Status check: database unreachable")
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "Database unreachable"})
		return
	}

	backlog, err := h.store.Backlog(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error reading backlog: " + err.Error()})
		return
	}
	counts, err := h.store.CountByStatus(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Error counting transactions: " + err.Error()})
		return
	}

	resp := gin.H{
		"status":       "running",
		"started_at":   h.started,
		"uptime":       time.Since(h.started).Round(time.Second).String(),
		"backlog":      backlog,
		"transactions": counts,
		"ws_clients":   h.hub.ClientCount(),
	}
	if last, ok := h.refresher.Last(); ok {
		resp["last_tick"] = last
	}
	c.JSON(http.StatusOK, resp)
}

// RefreshData runs a tick now. The caller waits up to the refresh timeout;
// a tick still running after that is reported as in progress.
func (h *Handler) RefreshData(c *gin.Context) {
	res, err := h.refresher.Refresh(c.Request.Context())
	switch {
	case errors.Is(err, scheduler.ErrQueueFull), errors.Is(err, scheduler.ErrStopped):
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": err.Error()})
		return
	}

	switch res.Status {
	case scheduler.StatusCompleted:
		c.JSON(http.StatusOK, gin.H{"success": true, "message": res.Message, "request_id": res.RequestID, "report": res.Report})
	case scheduler.StatusInProgress:
		c.JSON(http.StatusAccepted, gin.H{"success": nil, "message": res.Message, "request_id": res.RequestID})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": res.Message, "error": res.Error, "request_id": res.RequestID})
	}
}

// GetRefreshResult lets a caller poll a request that outlived its timeout.
func (h *Handler) GetRefreshResult(c *gin.Context) {
	res, ok := h.refresher.Result(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Refresh request not found"})
		return
	}
	c.JSON(http.StatusOK, res)
}
