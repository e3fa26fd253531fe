package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/apperrors"
	"github.com/vizgen/vizgen-engine/pkg/repositories"
	"github.com/vizgen/vizgen-engine/pkg/services"
)

// maxPromptLength bounds the accepted question size.
const maxPromptLength = 2000

// ChartHandler exposes the prompt-to-chart pipeline and the schema
// snapshot endpoints.
type ChartHandler struct {
	charts  *services.ChartService
	widgets *repositories.WidgetRepository
	logger  *zap.Logger
}

// NewChartHandler creates a new ChartHandler. widgets may be nil when
// persistence is disabled.
func NewChartHandler(charts *services.ChartService, widgets *repositories.WidgetRepository, logger *zap.Logger) *ChartHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChartHandler{charts: charts, widgets: widgets, logger: logger}
}

// RegisterRoutes registers the chart handler's routes on the given mux.
func (h *ChartHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chart", h.GenerateChart)
	mux.HandleFunc("GET /api/schema", h.GetSchema)
	mux.HandleFunc("POST /api/schema/invalidate", h.InvalidateSchema)
	mux.HandleFunc("GET /api/widgets", h.ListWidgets)
	mux.HandleFunc("GET /api/widgets/recent", h.GetRecentWidget)
}

type generateChartRequest struct {
	Prompt string `json:"prompt"`
}

// GenerateChart handles POST /api/chart.
func (h *ChartHandler) GenerateChart(w http.ResponseWriter, r *http.Request) {
	var req generateChartRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "request body must be JSON with a prompt field", "")
		return
	}

	prompt := strings.TrimSpace(req.Prompt)
	if prompt == "" {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "prompt must not be empty", "")
		return
	}
	if len(prompt) > maxPromptLength {
		_ = ErrorResponse(w, http.StatusBadRequest, "invalid_request", "prompt is too long", "")
		return
	}

	resp, err := h.charts.GenerateChartFromPrompt(r.Context(), prompt)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, resp)
}

// writePipelineError maps error kinds to HTTP statuses and attaches the
// category-derived hint.
func (h *ChartHandler) writePipelineError(w http.ResponseWriter, err error) {
	kind := apperrors.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case apperrors.KindSQLRejected:
		status = http.StatusUnprocessableEntity
	case apperrors.KindGeneration:
		status = http.StatusBadGateway
	case apperrors.KindIntrospection, apperrors.KindDatabase:
		status = http.StatusInternalServerError
	}

	h.logger.Warn("chart generation failed",
		zap.String("kind", string(kind)),
		zap.Error(err))

	_ = ErrorResponse(w, status, string(kind), err.Error(), apperrors.Hint(err))
}

// GetSchema handles GET /api/schema. ?refresh=true forces
// re-introspection.
func (h *ChartHandler) GetSchema(w http.ResponseWriter, r *http.Request) {
	forceRefresh := r.URL.Query().Get("refresh") == "true"

	desc, err := h.charts.GetSchema(r.Context(), forceRefresh)
	if err != nil {
		h.writePipelineError(w, err)
		return
	}

	_ = WriteJSON(w, http.StatusOK, desc)
}

// InvalidateSchema handles POST /api/schema/invalidate.
func (h *ChartHandler) InvalidateSchema(w http.ResponseWriter, r *http.Request) {
	h.charts.InvalidateSchemaCache()
	_ = WriteJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

// ListWidgets handles GET /api/widgets.
func (h *ChartHandler) ListWidgets(w http.ResponseWriter, r *http.Request) {
	if h.widgets == nil {
		_ = ErrorResponse(w, http.StatusNotFound, "not_enabled", "widget persistence is disabled", "")
		return
	}

	widgets, err := h.widgets.List(r.Context(), 50)
	if err != nil {
		_ = ErrorResponse(w, http.StatusInternalServerError, "database", err.Error(), "")
		return
	}

	_ = WriteJSON(w, http.StatusOK, widgets)
}

// GetRecentWidget handles GET /api/widgets/recent.
func (h *ChartHandler) GetRecentWidget(w http.ResponseWriter, r *http.Request) {
	if h.widgets == nil {
		_ = ErrorResponse(w, http.StatusNotFound, "not_enabled", "widget persistence is disabled", "")
		return
	}

	widget, err := h.widgets.GetMostRecent(r.Context())
	if errors.Is(err, repositories.ErrNoWidgets) {
		_ = ErrorResponse(w, http.StatusNotFound, "not_found", "no widgets saved yet", "")
		return
	}
	if err != nil {
		_ = ErrorResponse(w, http.StatusInternalServerError, "database", err.Error(), "")
		return
	}

	_ = WriteJSON(w, http.StatusOK, widget)
}
