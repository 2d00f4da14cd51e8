package handler

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/tracelab/tracelab/internal/pkg/errors"
	"github.com/tracelab/tracelab/internal/service"
)

// ProvidersHandler handles data provider query endpoints
type ProvidersHandler struct {
	providerService *service.ProviderService
	logger          *zap.Logger
}

// NewProvidersHandler creates a new providers handler
func NewProvidersHandler(providerService *service.ProviderService, logger *zap.Logger) *ProvidersHandler {
	return &ProvidersHandler{
		providerService: providerService,
		logger:          logger,
	}
}

// QueryHistogram handles GET /v1/traces/:traceId/providers/:name/histogram
func (h *ProvidersHandler) QueryHistogram(c *fiber.Ctx) error {
	id, err := parseTraceID(c)
	if err != nil {
		return err
	}
	name := c.Params("name")

	from := parseQueryInt64(c, "from", 0)
	to := parseQueryInt64(c, "to", 0)
	buckets := parseQueryInt(c, "buckets", 100)

	model, err := h.providerService.QueryHistogram(c.Context(), id, name, from, to, buckets)
	if err != nil {
		if apperrors.IsAppError(err) {
			return respondError(c, err, "Failed to query histogram")
		}
		h.logger.Error("failed to query histogram", zap.Error(err))
		return respondError(c, err, "Failed to query histogram")
	}

	return c.JSON(model)
}

// GetSeriesStyle handles GET /v1/providers/series/:seriesId/style
func (h *ProvidersHandler) GetSeriesStyle(c *fiber.Ctx) error {
	seriesID, err := strconv.ParseInt(c.Params("seriesId"), 10, 64)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error":   "Bad Request",
			"message": "Invalid series ID",
		})
	}

	return c.JSON(h.providerService.GetSeriesStyle(seriesID))
}
