package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the gin engine with middleware and all routes.
func NewRouter(handler *Handler, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(requestLogger(handler.logger))
	router.Use(gin.Recovery())

	corsConfig := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}
	if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = allowedOrigins
	}
	router.Use(cors.New(corsConfig))

	SetupRoutes(router, handler)
	return router
}

func SetupRoutes(router *gin.Engine, handler *Handler) {
	router.GET("/health", handler.HealthCheck)

	api := router.Group("/api")
	{
		api.GET("/listings", handler.GetListings)
		api.GET("/filters", handler.GetFilters)
		api.PUT("/filters/featured", handler.UpdateFeaturedFilters)
		api.GET("/page", handler.GetPage)
		api.GET("/browse", handler.GetBrowse)
		api.POST("/browse", handler.PostBrowse)
		api.POST("/refresh", handler.RefreshCatalog)
	}
}
