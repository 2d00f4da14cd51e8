package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/tracelab/tracelab/internal/domain"
	"github.com/tracelab/tracelab/internal/registry"
	"github.com/tracelab/tracelab/internal/service"
)

func newAnalysesApp(t *testing.T) (*fiber.App, *registry.Registry) {
	t.Helper()
	reg := registry.New()
	analysisService := service.NewAnalysisService(reg, registry.NewResolver(reg), nil, nil)

	app := fiber.New()
	h := NewAnalysesHandler(analysisService, nil, zap.NewNop())
	app.Get("/v1/traces/:traceId/analyses/:name", h.GetAnalysis)
	app.Get("/v1/traces/:traceId/analyses", h.ListAnalyses)
	return app, reg
}

func openTestTrace(t *testing.T, reg *registry.Registry, name string) *domain.Trace {
	t.Helper()
	trace := &domain.Trace{ID: uuid.New(), Name: name}
	require.NoError(t, reg.Open(trace))
	return trace
}

func TestGetAnalysis(t *testing.T) {
	t.Run("resolves by name", func(t *testing.T) {
		app, reg := newAnalysesApp(t)
		trace := openTestTrace(t, reg, "kernel")
		require.NoError(t, reg.RegisterModule(trace.ID, domain.AnalysisModule{
			ID: "cpu.usage", Name: "CPU Usage", Type: domain.AnalysisTypeBuiltin,
		}))

		req := httptest.NewRequest(http.MethodGet, "/v1/traces/"+trace.ID.String()+"/analyses/CPU%20Usage", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var module domain.AnalysisModule
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&module))
		assert.Equal(t, "cpu.usage", module.ID)
	})

	t.Run("resolves by id", func(t *testing.T) {
		app, reg := newAnalysesApp(t)
		trace := openTestTrace(t, reg, "kernel")
		require.NoError(t, reg.RegisterModule(trace.ID, domain.AnalysisModule{
			ID: "cpu.usage", Name: "CPU Usage", Type: domain.AnalysisTypeBuiltin,
		}))

		req := httptest.NewRequest(http.MethodGet, "/v1/traces/"+trace.ID.String()+"/analyses/cpu.usage", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("missing analysis is 404", func(t *testing.T) {
		app, reg := newAnalysesApp(t)
		trace := openTestTrace(t, reg, "kernel")

		req := httptest.NewRequest(http.MethodGet, "/v1/traces/"+trace.ID.String()+"/analyses/nothing", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("closed trace is 404", func(t *testing.T) {
		app, _ := newAnalysesApp(t)

		req := httptest.NewRequest(http.MethodGet, "/v1/traces/"+uuid.NewString()+"/analyses/anything", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("invalid trace id is 400", func(t *testing.T) {
		app, _ := newAnalysesApp(t)

		req := httptest.NewRequest(http.MethodGet, "/v1/traces/not-a-uuid/analyses/anything", nil)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
