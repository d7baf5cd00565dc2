package api

import (
	"net/http"

	"github.com/devadigapratham/filavault/api/handlers"
	"github.com/devadigapratham/filavault/raft"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// SetupRouter sets up the API routes. membership may be nil when the node
// does not accept cluster changes over HTTP.
func SetupRouter(handler *handlers.Handler, membership http.Handler, logger *zap.Logger) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), handlers.RequestLogger(logger))

	router.GET("/status", handler.Status)

	if membership != nil {
		router.Any("/raft/*action", gin.WrapH(http.StripPrefix("/raft", membership)))
	}

	api := router.Group("/api/v1")
	api.Use(handler.RaftLeaderMiddleware())
	{
		// Preset endpoints
		api.GET("/presets", handler.GetPresets)
		api.GET("/presets/match", handler.MatchPreset)
		api.POST("/presets", handler.UpsertPreset)
		api.POST("/presets/import", handler.ImportPresets)
		api.POST("/presets/rescan", handler.RescanPresets)
		api.DELETE("/presets/:id", handler.DeletePreset)
		api.POST("/presets/:id/fork", handler.ForkPreset)
		api.GET("/presets/:id/matches", handler.CountMatches)
		api.POST("/presets/:id/apply", handler.ApplyPreset)

		// Filament endpoints
		api.GET("/filaments", handler.GetFilaments)
		api.POST("/filaments", handler.CreateFilament)
		api.GET("/filaments/export.xlsx", handler.ExportFilaments)
		api.PUT("/filaments/:id", handler.UpdateFilament)
		api.DELETE("/filaments/:id", handler.DeleteFilament)
		api.POST("/filaments/:id/preset", handler.SaveFilamentAsPreset)

		// Printer endpoints
		api.POST("/printers", handler.CreatePrinter)
		api.GET("/printers", handler.GetPrinters)

		// Print job endpoints
		api.POST("/print_jobs", handler.CreatePrintJob)
		api.GET("/print_jobs", handler.GetPrintJobs)
		api.POST("/print_jobs/:id/status", handler.UpdatePrintJobStatus)
	}

	return router
}

// MembershipHandler exposes join and leave for a running node
func MembershipHandler(node *raft.Node) http.Handler {
	return raft.NewTransport(node).RaftHandler()
}
