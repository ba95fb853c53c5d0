package http

import (
	"github.com/gin-gonic/gin"

	"github.com/storelift/migrator/internal/database"
)

// RouterConfig holds everything the router needs.
type RouterConfig struct {
	DB         *database.Database
	Runs       RunStore
	Records    RecordStore
	Dispatcher Dispatcher
	Version    string
}

// NewRouter creates and configures the HTTP router with all endpoints.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	healthController := NewHealthController(cfg.DB, cfg.Version)
	router.GET("/health", healthController.Status)

	runController := NewRunController(cfg.Runs, cfg.Records, cfg.Dispatcher)
	api := router.Group("/api")
	{
		api.POST("/runs", runController.CreateRun)
		api.GET("/runs", runController.ListRuns)
		api.GET("/runs/:id", runController.GetRun)
		api.GET("/runs/:id/progress", runController.Progress)
		api.POST("/runs/:id/dispatch", runController.DispatchRun)
		api.DELETE("/runs/:id", runController.DeleteRun)
		api.GET("/runs/:id/records", runController.ListRecords)
	}

	return router
}
