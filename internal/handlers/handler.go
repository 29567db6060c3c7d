package handlers

import (
	"servopanel/internal/logger"
	"servopanel/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies. A nil logger
// discards output.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), h.requestLogger)

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)

	h.registerAPIRoutes(router)

	// Event stream (HTTP upgrade), same port
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1")
	{
		h.registerServoRoutes(api)
		h.registerFleetRoutes(api)
		h.registerLogRoutes(api)
	}
}

func (h *Handler) registerServoRoutes(api *gin.RouterGroup) {
	servos := api.Group("/servos")
	{
		servos.GET("", h.listServos)
		servos.POST("", h.addServo)
		servos.GET("/:id", h.getServo)
		servos.PUT("/:id", h.updateServo)
		servos.DELETE("/:id", h.removeServo)

		// Debounced: {"angle":120} → 202
		servos.POST("/:id/target", h.scheduleTarget)
		servos.POST("/:id/nudge", h.nudge)
		servos.POST("/:id/preset/:preset", h.preset)

		// Immediate: waits for the backend answer
		servos.POST("/:id/angle", h.setAngle)
		servos.POST("/:id/sweep", h.sweep)
	}
}

func (h *Handler) registerFleetRoutes(api *gin.RouterGroup) {
	fleet := api.Group("/fleet")
	{
		fleet.POST("/reload", h.reloadFleet)
		fleet.POST("/center_all", h.centerAll)
		fleet.GET("/connectivity", h.connectivity)
		fleet.GET("/status", h.statuses)
	}
}

func (h *Handler) registerLogRoutes(api *gin.RouterGroup) {
	logs := api.Group("/logs")
	{
		logs.GET("", h.getLogs)
	}
}
