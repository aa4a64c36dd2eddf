package routes

import (
	"github.com/gin-gonic/gin"

	"fuel_tracker/internal/controllers"
)

func APIRoutes(r *gin.Engine, h *controllers.Handler) {
	api := r.Group("/api")
	{
		api.GET("/status", h.GetStatus)
		api.POST("/refresh-data", h.RefreshData)
		api.GET("/refresh-data/:id", h.GetRefreshResult)

		api.GET("/vehicles", h.ListVehicles)
		api.GET("/bowsers", h.ListBowsers)
		api.GET("/drivers", h.ListDrivers)
		api.GET("/geofences", h.ListGeofences)

		api.GET("/transactions", h.ListTransactions)
		api.GET("/transactions/:id", h.GetTransaction)
	}
}
