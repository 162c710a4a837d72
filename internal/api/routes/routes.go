// server/internal/api/routes/routes.go
package routes

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"smartbin-api-server/internal/api/handlers"
	"smartbin-api-server/internal/api/middleware"
	"smartbin-api-server/internal/metrics"
	"smartbin-api-server/internal/models"
	"smartbin-api-server/internal/services"
	"smartbin-api-server/internal/socket"
)

// Deps are the components the router hands to its handlers.
type Deps struct {
	Tokens       middleware.TokenParser
	Bins         *services.BinService
	Alerts       *services.AlertService
	Users        *services.UserService
	CleaningLogs *services.CleaningLogService
	Shifts       *services.ShiftLogService
	Pipeline     handlers.Ingester
	Hub          *socket.Hub
	Metrics      *metrics.Metrics
	CORSOrigins  []string
	Log          zerolog.Logger
}

func SetupRouter(d Deps) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	var observer middleware.RequestObserver
	if d.Metrics != nil {
		observer = d.Metrics
	}
	router.Use(middleware.Logger(d.Log, observer))
	router.Use(cors.New(corsConfig(d.CORSOrigins)))

	binHandler := &handlers.BinHandler{Bins: d.Bins, Pipeline: d.Pipeline}
	alertHandler := &handlers.AlertHandler{Alerts: d.Alerts}
	userHandler := &handlers.UserHandler{Users: d.Users}
	cleaningHandler := &handlers.CleaningLogHandler{Logs: d.CleaningLogs}
	shiftHandler := &handlers.ShiftHandler{Shifts: d.Shifts}
	webSocketHandler := &handlers.WebSocketHandler{Hub: d.Hub, Log: d.Log.With().Str("component", "websocket").Logger()}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if d.Metrics != nil {
		router.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	apiV1 := router.Group("/api/v1")
	{
		// === PUBLIC ===
		authPublic := apiV1.Group("/auth")
		{
			authPublic.POST("/register", userHandler.Register)
			authPublic.POST("/login", userHandler.Login)
			authPublic.POST("/refresh", userHandler.Refresh)
		}

		// === AUTHENTICATED, any role ===
		protected := apiV1.Group("")
		protected.Use(middleware.Authenticate(d.Tokens))
		protected.Use(middleware.RequireRole(models.RoleGuest))
		{
			protected.POST("/auth/logout", userHandler.Logout)
			protected.GET("/ws", webSocketHandler.ServeWs)

			protected.GET("/bins", binHandler.GetAllBins)
			protected.GET("/bins/:id", binHandler.GetBinByID)
			protected.GET("/bins/:id/history", binHandler.GetBinHistory)

			protected.GET("/alerts", alertHandler.GetAllAlerts)
			protected.GET("/alerts/active", alertHandler.GetActiveAlerts)
			protected.GET("/alerts/bin/:binId", alertHandler.GetAlertsByBin)
		}

		// === SalesManager and above ===
		staff := protected.Group("")
		staff.Use(middleware.RequireRole(models.RoleSalesManager))
		{
			staff.POST("/bins", binHandler.CreateBin)
			staff.PUT("/bins/:id", binHandler.UpdateBin)
			staff.PATCH("/bins/:id/status", binHandler.UpdateBinStatus)
			staff.DELETE("/bins/:id", binHandler.DeleteBin)
			staff.POST("/bins/:id/telemetry", binHandler.PostTelemetry)

			staff.POST("/alerts", alertHandler.CreateAlert)
			staff.PATCH("/alerts/:id/resolve", alertHandler.ResolveAlert)

			cleaning := staff.Group("/cleaning-logs")
			{
				cleaning.GET("", cleaningHandler.GetAllCleaningLogs)
				cleaning.POST("", cleaningHandler.CreateCleaningLog)
				cleaning.POST("/log", cleaningHandler.LogCleaning)
				cleaning.GET("/:id", cleaningHandler.GetCleaningLogByID)
				cleaning.DELETE("/:id", cleaningHandler.DeleteCleaningLog)
				cleaning.POST("/:id/photo", cleaningHandler.UploadPhoto)
			}

			shifts := staff.Group("/shifts")
			{
				shifts.GET("", shiftHandler.GetAllShifts)
				shifts.POST("/start", shiftHandler.StartShift)
				shifts.GET("/:id", shiftHandler.GetShiftByID)
				shifts.POST("/:id/end", shiftHandler.EndShift)
				shifts.DELETE("/:id", shiftHandler.DeleteShift)
			}
		}

		// === Admin only ===
		admin := protected.Group("")
		admin.Use(middleware.RequireRole(models.RoleAdmin))
		{
			admin.DELETE("/alerts/:id", alertHandler.DeleteAlert)
			admin.POST("/bins/seed/:count", binHandler.SeedBins)

			users := admin.Group("/users")
			{
				users.GET("", userHandler.GetAllUsers)
				users.POST("", userHandler.CreateUser)
				users.GET("/:id", userHandler.GetUserByID)
				users.PUT("/:id", userHandler.UpdateUser)
				users.PATCH("/:id/role", userHandler.UpdateUserRole)
				users.DELETE("/:id", userHandler.DeleteUser)
			}
		}
	}

	return router
}

// corsConfig allows every origin unless a list is configured.
func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
	}
	return cfg
}
