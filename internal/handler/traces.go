package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/domain"
	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/service"
	"github.com/tracelab/tracelab/internal/validator"
)

// TracesHandler handles trace lifecycle endpoints
type TracesHandler struct {
	traceService *service.TraceService
	logger       *zap.Logger
}

// NewTracesHandler creates a new traces handler
func NewTracesHandler(traceService *service.TraceService, logger *zap.Logger) *TracesHandler {
	return &TracesHandler{
		traceService: traceService,
		logger:       logger,
	}
}

// CreateTrace handles POST /v1/traces
func (h *TracesHandler) CreateTrace(c *fiber.Ctx) error {
	var input domain.TraceInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}
	if err := validator.Validate(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": err.Error(),
		})
	}

	trace, err := h.traceService.Create(c.Context(), &input)
	if err != nil {
		if apperrors.IsValidation(err) {
			return respondError(c, err, "Invalid trace input")
		}
		h.logger.Error("failed to create trace", zap.Error(err))
		return respondError(c, err, "Failed to create trace")
	}

	return c.Status(fiber.StatusCreated).JSON(trace)
}

// ListTraces handles GET /v1/traces
func (h *TracesHandler) ListTraces(c *fiber.Ctx) error {
	filter := &domain.TraceFilter{}
	if name := c.Query("name"); name != "" {
		filter.Name = &name
	}
	if exp := c.Query("experiment"); exp != "" {
		val := exp == "true"
		filter.Experiment = &val
	}
	p := ParsePagination(c, 100)

	list, err := h.traceService.List(c.Context(), filter, p.Limit, p.Offset)
	if err != nil {
		h.logger.Error("failed to list traces", zap.Error(err))
		return respondError(c, err, "Failed to list traces")
	}

	return c.JSON(list)
}

// GetTrace handles GET /v1/traces/:traceId
func (h *TracesHandler) GetTrace(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	trace, err := h.traceService.Get(c.Context(), id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return respondError(c, err, "Trace not found")
		}
		h.logger.Error("failed to get trace", zap.Error(err))
		return respondError(c, err, "Failed to get trace")
	}

	return c.JSON(trace)
}

// OpenTrace handles POST /v1/traces/:traceId/open
func (h *TracesHandler) OpenTrace(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	trace, err := h.traceService.Open(c.Context(), id)
	if err != nil {
		if apperrors.IsAppError(err) {
			return respondError(c, err, "Failed to open trace")
		}
		h.logger.Error("failed to open trace", zap.Error(err))
		return respondError(c, err, "Failed to open trace")
	}

	return c.JSON(trace)
}

// CloseTrace handles POST /v1/traces/:traceId/close
func (h *TracesHandler) CloseTrace(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	if err := h.traceService.Close(c.Context(), id); err != nil {
		return respondError(c, err, "Failed to close trace")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// ListOpenTraces handles GET /v1/traces/open
func (h *TracesHandler) ListOpenTraces(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"traces": h.traceService.ListOpen()})
}

// DeleteTrace handles DELETE /v1/traces/:traceId
func (h *TracesHandler) DeleteTrace(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	if err := h.traceService.Delete(c.Context(), id); err != nil {
		if apperrors.IsAppError(err) {
			return respondError(c, err, "Failed to delete trace")
		}
		h.logger.Error("failed to delete trace", zap.Error(err))
		return respondError(c, err, "Failed to delete trace")
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// IngestEvents handles POST /v1/traces/:traceId/events
func (h *TracesHandler) IngestEvents(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}

	var body struct {
		Events []domain.TraceEvent `json:"events"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid request body",
		})
	}

	if err := h.traceService.IngestEvents(c.Context(), id, body.Events); err != nil {
		if apperrors.IsNotFound(err) {
			return respondError(c, err, "Trace not found")
		}
		h.logger.Error("failed to ingest events", zap.Error(err))
		return respondError(c, err, "Failed to ingest events")
	}

	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"accepted": len(body.Events)})
}
