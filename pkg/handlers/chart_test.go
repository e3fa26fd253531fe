package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vizgen/vizgen-engine/pkg/chart"
	"github.com/vizgen/vizgen-engine/pkg/llm"
	"github.com/vizgen/vizgen-engine/pkg/schema"
	"github.com/vizgen/vizgen-engine/pkg/services"
)

const testReply = `{
  "analysis": {"intent": "totals", "tablesUsed": ["sales"], "chartType": "bar", "aggregation": "sum", "groupBy": "category", "filters": []},
  "sqlQuery": "SELECT category, SUM(amount) AS total_amount FROM sales WHERE category IS NOT NULL GROUP BY category LIMIT 20",
  "chartSpec": {
    "$schema": "https://vega.github.io/schema/vega-lite/v5.json",
    "data": {"values": []},
    "mark": "bar",
    "encoding": {"x": {"field": "category", "type": "nominal"}, "y": {"field": "total_amount", "type": "quantitative"}}
  },
  "explanation": "Totals per category."
}`

type stubExecutor struct {
	rows []map[string]any
	err  error
}

func (s *stubExecutor) Execute(context.Context, string, time.Duration, int) ([]map[string]any, error) {
	return s.rows, s.err
}

func (s *stubExecutor) Ping(context.Context) error { return nil }

func newTestHandler(t *testing.T, replyContent string, exec services.QueryExecutor) *ChartHandler {
	t.Helper()

	client := llm.NewMockClient()
	client.GenerateResponseFunc = func(context.Context, string, string, float64) (*llm.GenerateResult, error) {
		return &llm.GenerateResult{Content: replyContent}, nil
	}

	cache := schema.NewCache(func(context.Context) (*schema.Description, error) {
		return &schema.Description{
			DatabaseName: "shop",
			Dialect:      schema.DialectPostgres,
			Tables:       []schema.Table{{Name: "sales"}},
		}, nil
	}, 0, nil)

	svc := services.NewChartService(cache, services.NewGenerator(client, nil), exec, nil,
		services.QueryLimits{}, chart.DefaultOptions(), nil)
	return NewChartHandler(svc, nil, nil)
}

func newMux(h *ChartHandler) *http.ServeMux {
	mux := http.NewServeMux()
	h.RegisterRoutes(mux)
	return mux
}

func TestGenerateChartEndpoint(t *testing.T) {
	exec := &stubExecutor{rows: []map[string]any{{"category": "books", "total_amount": 12.0}}}
	mux := newMux(newTestHandler(t, testReply, exec))

	req := httptest.NewRequest(http.MethodPost, "/api/chart",
		strings.NewReader(`{"prompt": "Show total sales by category"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Contains(t, resp["sqlQuery"], "GROUP BY category")
	require.NotNil(t, resp["chartSpec"])
}

func TestGenerateChartRejectsEmptyPrompt(t *testing.T) {
	mux := newMux(newTestHandler(t, testReply, &stubExecutor{}))

	req := httptest.NewRequest(http.MethodPost, "/api/chart",
		strings.NewReader(`{"prompt": "   "}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateChartRejectsBadBody(t *testing.T) {
	mux := newMux(newTestHandler(t, testReply, &stubExecutor{}))

	req := httptest.NewRequest(http.MethodPost, "/api/chart", strings.NewReader("not json"))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGenerateChartGuardRejectionMapsTo422(t *testing.T) {
	reply := strings.Replace(testReply,
		"SELECT category, SUM(amount) AS total_amount FROM sales WHERE category IS NOT NULL GROUP BY category LIMIT 20",
		"DROP TABLE sales", 1)
	mux := newMux(newTestHandler(t, reply, &stubExecutor{}))

	req := httptest.NewRequest(http.MethodPost, "/api/chart",
		strings.NewReader(`{"prompt": "nuke it"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "sql_rejected", body["error"])
	require.NotEmpty(t, body["hint"])
}

func TestGenerateChartUnparseableReplyMapsTo502(t *testing.T) {
	mux := newMux(newTestHandler(t, "no json here", &stubExecutor{}))

	req := httptest.NewRequest(http.MethodPost, "/api/chart",
		strings.NewReader(`{"prompt": "anything"}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestGetSchemaEndpoint(t *testing.T) {
	mux := newMux(newTestHandler(t, testReply, &stubExecutor{}))

	req := httptest.NewRequest(http.MethodGet, "/api/schema", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var desc schema.Description
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &desc))
	require.Equal(t, "shop", desc.DatabaseName)
	require.Len(t, desc.Tables, 1)
}

func TestInvalidateSchemaEndpoint(t *testing.T) {
	mux := newMux(newTestHandler(t, testReply, &stubExecutor{}))

	req := httptest.NewRequest(http.MethodPost, "/api/schema/invalidate", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWidgetEndpointsDisabled(t *testing.T) {
	mux := newMux(newTestHandler(t, testReply, &stubExecutor{}))

	req := httptest.NewRequest(http.MethodGet, "/api/widgets/recent", nil)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}
