package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes registers all HTTP routes
func registerRoutes(app *fiber.App, deps *Dependencies) {
	// Health and observability routes
	app.Get("/health", deps.HealthHandler.Health)
	app.Get("/ready", deps.HealthHandler.Ready)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// API documentation
	deps.DocsHandler.RegisterRoutes(app)

	v1 := app.Group("/v1")
	{
		// Trace lifecycle
		v1.Post("/traces", deps.TracesHandler.CreateTrace)
		v1.Get("/traces", deps.TracesHandler.ListTraces)
		v1.Get("/traces/open", deps.TracesHandler.ListOpenTraces)
		v1.Get("/traces/:traceId", deps.TracesHandler.GetTrace)
		v1.Delete("/traces/:traceId", deps.TracesHandler.DeleteTrace)
		v1.Post("/traces/:traceId/open", deps.TracesHandler.OpenTrace)
		v1.Post("/traces/:traceId/close", deps.TracesHandler.CloseTrace)
		v1.Post("/traces/:traceId/events", deps.TracesHandler.IngestEvents)

		// Analysis resolution and registration
		v1.Get("/traces/:traceId/analyses", deps.AnalysesHandler.ListAnalyses)
		v1.Post("/traces/:traceId/analyses", deps.AnalysesHandler.RegisterModule)
		v1.Get("/traces/:traceId/analyses/:name", deps.AnalysesHandler.GetAnalysis)
		v1.Get("/traces/:traceId/backends", deps.AnalysesHandler.ListBackends)
		v1.Post("/traces/:traceId/backends/:name/export", deps.AnalysesHandler.ExportBackend)

		// Scripted analyses
		v1.Post("/traces/:traceId/scripts", deps.ScriptsHandler.SubmitScript)
		v1.Get("/runs", deps.ScriptsHandler.ListRuns)
		v1.Get("/runs/:runId", deps.ScriptsHandler.GetRun)

		// Data providers
		v1.Get("/traces/:traceId/providers/:name/histogram", deps.ProvidersHandler.QueryHistogram)
		v1.Get("/providers/series/:seriesId/style", deps.ProvidersHandler.GetSeriesStyle)
	}
}
