package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/service"
)

// ScriptsHandler handles script submission and run endpoints
type ScriptsHandler struct {
	scriptService *service.ScriptService
	logger        *zap.Logger
}

// NewScriptsHandler creates a new scripts handler
func NewScriptsHandler(scriptService *service.ScriptService, logger *zap.Logger) *ScriptsHandler {
	return &ScriptsHandler{
		scriptService: scriptService,
		logger:        logger,
	}
}

// SubmitScript handles POST /v1/traces/:traceId/scripts
func (h *ScriptsHandler) SubmitScript(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	var submission domain.ScriptSubmission
	if err := c.BodyParser(&submission); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	run, err := h.scriptService.Submit(c.Context(), id, &submission)
	if err != nil {
		if apperrors.IsAppError(err) {
			return respondError(c, err, "Failed to submit script")
		}
		h.logger.Error("failed to submit script", zap.Error(err))
		return respondError(c, err, "Failed to submit script")
	}

	status := fiber.StatusOK
	if run.Status == domain.RunStatusPending {
		status = fiber.StatusAccepted
	}
	return c.Status(status).JSON(run)
}

// GetRun handles GET /v1/runs/:runId
func (h *ScriptsHandler) GetRun(c *fiber.Ctx) error {
	runID := c.Params("runId")

	run, err := h.scriptService.GetRun(c.Context(), runID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return respondError(c, err, "Run not found")
		}
		h.logger.Error("failed to get run", zap.Error(err))
		return respondError(c, err, "Failed to get run")
	}

	return c.JSON(run)
}

// ListRuns handles GET /v1/runs
func (h *ScriptsHandler) ListRuns(c *fiber.Ctx) error {
	filter := &domain.ScriptRunFilter{}
	if name := c.Query("analysisName"); name != "" {
		filter.AnalysisName = &name
	}
	if status := c.Query("status"); status != "" {
		s := domain.RunStatus(status)
		filter.Status = &s
	}
	p := ParsePagination(c, 100)

	runs, err := h.scriptService.ListRuns(c.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		h.logger.Error("failed to list runs", zap.Error(err))
		return respondError(c, err, "Failed to list runs")
	}

	return c.JSON(fiber.Map{"runs": runs})
}
