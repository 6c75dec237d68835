// internal/routes/routes.go
package routes

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerfiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"vx4-service/internal/config"
	"vx4-service/internal/handler"
	"vx4-service/internal/middleware"
	"vx4-service/internal/service"
	"vx4-service/internal/utils"
)

// Router holds all dependencies for routing
type Router struct {
	ctx               context.Context
	config            *config.Config
	logger            *zap.Logger
	controllerService *service.ControllerService
	discoveryService  *service.DiscoveryService
	monitorService    *service.MonitorService
	eventBus          *handler.EventBus

	wsHandler *handler.WebSocketHandler
}

// NewRouter creates a new router instance. ctx bounds background work
// started through the API (event forwarding, monitoring).
func NewRouter(
	ctx context.Context,
	config *config.Config,
	logger *zap.Logger,
	controllerService *service.ControllerService,
	discoveryService *service.DiscoveryService,
	monitorService *service.MonitorService,
	eventBus *handler.EventBus,
) *Router {
	return &Router{
		ctx:               ctx,
		config:            config,
		logger:            logger,
		controllerService: controllerService,
		discoveryService:  discoveryService,
		monitorService:    monitorService,
		eventBus:          eventBus,
	}
}

// SetupRouter creates and configures the Gin router
func (r *Router) SetupRouter() *gin.Engine {
	if r.config.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	r.addMiddleware(router)
	r.addRoutes(router)

	return router
}

// WebSocket returns the WebSocket handler created by SetupRouter.
func (r *Router) WebSocket() *handler.WebSocketHandler {
	return r.wsHandler
}

// addMiddleware adds middleware to the router
func (r *Router) addMiddleware(router *gin.Engine) {
	router.Use(middleware.RecoveryMiddleware(r.logger))
	router.Use(middleware.RequestIDMiddleware())

	serviceLogger := utils.NewServiceLogger(r.logger, "http-server")
	router.Use(middleware.LoggingMiddleware(serviceLogger))

	router.Use(middleware.CORSMiddleware(&r.config.Security))

	r.logger.Info("Middleware configured")
}

// addRoutes sets up all application routes
func (r *Router) addRoutes(router *gin.Engine) {
	healthHandler := handler.NewHealthHandler(r.controllerService, r.config, r.logger)
	controllerHandler := handler.NewControllerHandler(r.controllerService, r.logger)
	discoveryHandler := handler.NewDiscoveryHandler(r.discoveryService, r.logger)
	monitorHandler := handler.NewMonitorHandler(r.ctx, r.monitorService, r.logger)
	r.wsHandler = handler.NewWebSocketHandler(r.controllerService, r.eventBus, &r.config.Security, r.logger)
	r.wsHandler.Start(r.ctx)

	r.addHealthRoutes(router, healthHandler)

	apiV1 := router.Group("/api/v1")
	r.addControllerRoutes(apiV1, controllerHandler)
	r.addStationRoutes(apiV1, controllerHandler)
	r.addDiscoveryRoutes(apiV1, discoveryHandler)
	r.addMonitorRoutes(apiV1, monitorHandler)

	r.wsHandler.RegisterRoutes(router.Group("/ws"))

	r.addDocumentationRoutes(router)

	r.logger.Info("All routes configured successfully")
}

// addHealthRoutes sets up health check routes
func (r *Router) addHealthRoutes(router *gin.Engine, handler *handler.HealthHandler) {
	health := router.Group("")
	{
		health.GET("/health", handler.HealthCheck)
		health.GET("/ready", handler.ReadinessCheck)
		health.GET("/live", handler.LivenessCheck)
	}
}

// addControllerRoutes sets up serial link routes
func (r *Router) addControllerRoutes(api *gin.RouterGroup, handler *handler.ControllerHandler) {
	controller := api.Group("/controller")
	{
		controller.GET("", handler.GetStatus)
		controller.POST("/connect", handler.Connect)
		controller.POST("/disconnect", handler.Disconnect)
	}
}

// addStationRoutes sets up per-station read and set-point routes
func (r *Router) addStationRoutes(api *gin.RouterGroup, handler *handler.ControllerHandler) {
	stations := api.Group("/stations")
	{
		stations.GET("", handler.ListStations)

		station := stations.Group("/:station")
		{
			station.GET("/pv", handler.ReadPV)
			station.GET("/sv", handler.ReadSV)
			station.PUT("/sv", handler.SetSV)
		}
	}
}

// addDiscoveryRoutes sets up port and station discovery routes
func (r *Router) addDiscoveryRoutes(api *gin.RouterGroup, handler *handler.DiscoveryHandler) {
	api.GET("/ports", handler.ListPorts)
	api.GET("/discovery/stations", handler.ScanStations)
}

// addMonitorRoutes sets up polling control routes
func (r *Router) addMonitorRoutes(api *gin.RouterGroup, handler *handler.MonitorHandler) {
	monitor := api.Group("/monitor")
	{
		monitor.POST("/start", handler.Start)
		monitor.POST("/stop", handler.Stop)
	}
}

// addDocumentationRoutes sets up documentation routes
func (r *Router) addDocumentationRoutes(router *gin.Engine) {
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerfiles.Handler))

	router.GET("/docs", func(c *gin.Context) {
		c.Redirect(http.StatusMovedPermanently, "/swagger/index.html")
	})
}
