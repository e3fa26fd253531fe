package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vizgen/vizgen-engine/pkg/chart"
	"github.com/vizgen/vizgen-engine/pkg/config"
	"github.com/vizgen/vizgen-engine/pkg/llm"
	"github.com/vizgen/vizgen-engine/pkg/schema"
	"github.com/vizgen/vizgen-engine/pkg/services"
)

type healthExecutor struct {
	pingErr error
}

func (h *healthExecutor) Execute(context.Context, string, time.Duration, int) ([]map[string]any, error) {
	return nil, nil
}

func (h *healthExecutor) Ping(context.Context) error { return h.pingErr }

func newHealthHandler(t *testing.T, pingErr error) *HealthHandler {
	t.Helper()

	cache := schema.NewCache(func(context.Context) (*schema.Description, error) {
		return &schema.Description{DatabaseName: "shop", Dialect: schema.DialectSQLite}, nil
	}, 0, nil)

	svc := services.NewChartService(cache, services.NewGenerator(llm.NewMockClient(), nil),
		&healthExecutor{pingErr: pingErr}, nil, services.QueryLimits{}, chart.DefaultOptions(), nil)

	cfg := &config.Config{Version: "test-version", Env: "test"}
	return NewHealthHandler(cfg, svc, nil)
}

func TestHealthEndpoint(t *testing.T) {
	handler := newHealthHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	handler.Health(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
}

func TestPingEndpoint(t *testing.T) {
	handler := newHealthHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	rec := httptest.NewRecorder()
	handler.Ping(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp PingResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	require.Equal(t, "ok", resp.Status)
	require.Equal(t, "test-version", resp.Version)
	require.Equal(t, "vizgen-engine", resp.Service)
}

func TestDatabaseHealthEndpoint(t *testing.T) {
	handler := newHealthHandler(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/health/database", nil)
	rec := httptest.NewRecorder()
	handler.Database(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var health services.DatabaseHealth
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&health))
	require.True(t, health.OK)
	require.Equal(t, "shop", health.DatabaseName)
}

func TestDatabaseHealthEndpointDown(t *testing.T) {
	handler := newHealthHandler(t, errors.New("connection refused"))

	req := httptest.NewRequest(http.MethodGet, "/health/database", nil)
	rec := httptest.NewRecorder()
	handler.Database(rec, req)

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
