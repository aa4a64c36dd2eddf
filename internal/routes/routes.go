package routes

import (
	"io"
	"os"

	ginlog "github.com/gin-contrib/logger"
	"github.com/gin-gonic/gin"

	"fuel_tracker/internal/controllers"
	"fuel_tracker/internal/middleware"
)

// SetupRouter builds the engine. Access logs go to w (the rotating log file
// in production); nil means stdout.
func SetupRouter(h *controllers.Handler, w io.Writer) *gin.Engine {
	if w == nil {
		w = os.Stdout
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ginlog.SetLogger(
		ginlog.WithWriter(w),
		ginlog.WithUTC(true),
		ginlog.WithSkipPath([]string{"/api/status"}),
	))
	r.Use(middleware.CORS())

	APIRoutes(r, h)
	WebSocketRoutes(r, h)

	return r
}
