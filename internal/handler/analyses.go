package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/service"
)

// AnalysesHandler handles analysis resolution endpoints
type AnalysesHandler struct {
	analysisService *service.AnalysisService
	traceService    *service.TraceService
	logger          *zap.Logger
}

// NewAnalysesHandler creates a new analyses handler
func NewAnalysesHandler(analysisService *service.AnalysisService, traceService *service.TraceService, logger *zap.Logger) *AnalysesHandler {
	return &AnalysesHandler{
		analysisService: analysisService,
		traceService:    traceService,
		logger:          logger,
	}
}

// GetAnalysis handles GET /v1/traces/:traceId/analyses/:name
//
// The lookup walks the trace's constituents in declared order and
// matches modules by exact name or ID. A module that simply does not
// exist is a 404 on the wire but not a server error.
func (h *AnalysesHandler) GetAnalysis(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}
	name := c.Params("name")

	module, err := h.analysisService.GetTraceAnalysis(c.Context(), id, name)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return respondError(c, err, "Trace is not open")
		}
		h.logger.Error("failed to resolve analysis", zap.Error(err))
		return respondError(c, err, "Failed to resolve analysis")
	}
	if module == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "No analysis matches the given name or ID",
		})
	}

	return c.JSON(module)
}

// ListAnalyses handles GET /v1/traces/:traceId/analyses
func (h *AnalysesHandler) ListAnalyses(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	modules, err := h.analysisService.ListModules(c.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return respondError(c, err, "Trace is not open")
		}
		h.logger.Error("failed to list analyses", zap.Error(err))
		return respondError(c, err, "Failed to list analyses")
	}

	return c.JSON(fiber.Map{"analyses": modules})
}

// RegisterModule handles POST /v1/traces/:traceId/analyses
func (h *AnalysesHandler) RegisterModule(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	var module domain.AnalysisModule
	if err := c.BodyParser(&module); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}
	if module.Type == "" {
		module.Type = domain.AnalysisTypeBuiltin
	}

	if err := h.traceService.RegisterModule(c.Context(), id, module); err != nil {
		if apperrors.IsAppError(err) {
			return respondError(c, err, "Failed to register module")
		}
		h.logger.Error("failed to register module", zap.Error(err))
		return respondError(c, err, "Failed to register module")
	}

	return c.SendStatus(fiber.StatusCreated)
}

// ExportBackend handles POST /v1/traces/:traceId/backends/:name/export
//
// Queues a CSV export of a saved backend to object storage. The kind
// query parameter selects the backend; segment stores are the default.
func (h *AnalysesHandler) ExportBackend(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}
	name := c.Params("name")

	kind := domain.BackendKind(c.Query("kind", string(domain.BackendSegmentStore)))
	if kind != domain.BackendSegmentStore && kind != domain.BackendStateSystem {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Unknown backend kind",
		})
	}

	if err := h.analysisService.RequestExport(c.Context(), id, name, kind); err != nil {
		if apperrors.IsAppError(err) {
			return respondError(c, err, "Failed to queue export")
		}
		h.logger.Error("failed to queue export", zap.Error(err))
		return respondError(c, err, "Failed to queue export")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"status": "enqueued"})
}

// ListBackends handles GET /v1/traces/:traceId/backends
func (h *AnalysesHandler) ListBackends(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	records, err := h.analysisService.ListBackends(c.Context(), id)
	if err != nil {
		h.logger.Error("failed to list backends", zap.Error(err))
		return respondError(c, err, "Failed to list backends")
	}

	return c.JSON(fiber.Map{"backends": records})
}
