package routes

import (
	"github.com/gin-gonic/gin"

	"fuel_tracker/internal/controllers"
)

func WebSocketRoutes(r *gin.Engine, h *controllers.Handler) {
	wsRoutes := r.Group("/ws")
	{
		wsRoutes.GET("/transactions", h.HandleTransactionWebSocket)
	}
}
