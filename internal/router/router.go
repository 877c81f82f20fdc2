package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "doctrack/docs"
	"doctrack/internal/handler"
	"doctrack/internal/middleware"
	"doctrack/internal/service"
)

// Setup configures the Gin engine with all routes and middleware. A nil
// authSvc leaves the API unauthenticated; a nil metrics handler omits
// /metrics.
func Setup(
	authSvc service.AuthService,
	corsOrigins []string,
	docH *handler.DocumentHandler,
	exportH *handler.ExportHandler,
	healthH *handler.HealthHandler,
	metrics http.Handler,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	v1 := r.Group("/api/v1")
	if authSvc != nil {
		v1.Use(middleware.AuthMiddleware(authSvc))
	}

	types := v1.Group("/types/:type")

	// Direct path: load, modify, save
	docs := types.Group("/documents")
	docs.POST("", docH.Create)
	docs.GET("/:id", docH.GetByID)
	docs.PATCH("/:id", docH.Patch)
	docs.DELETE("/:id", docH.Delete)
	docs.GET("/:id/history", docH.History)
	docs.GET("/:id/history/export", exportH.Export)
	docs.POST("/:id/history/archive", exportH.Archive)

	// Query path: partial updates by filter
	types.POST("/update-one", docH.UpdateOne)
	types.POST("/find-one-and-update", docH.FindOneAndUpdate)
	types.POST("/update", docH.Update)
	types.POST("/update-many", docH.UpdateMany)

	return r
}
