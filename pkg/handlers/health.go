package handlers

import (
	"net/http"
	"os"
	"runtime"

	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/config"
	"github.com/vizgen/vizgen-engine/pkg/services"
)

// PingResponse contains service status and version information.
type PingResponse struct {
	Status      string `json:"status"`
	Version     string `json:"version"`
	Service     string `json:"service"`
	GoVersion   string `json:"go_version"`
	Hostname    string `json:"hostname"`
	Environment string `json:"environment"`
}

// HealthHandler handles health check and ping endpoints.
type HealthHandler struct {
	cfg    *config.Config
	charts *services.ChartService
	logger *zap.Logger
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(cfg *config.Config, charts *services.ChartService, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{cfg: cfg, charts: charts, logger: logger}
}

// RegisterRoutes registers the health handler's routes on the given mux.
func (h *HealthHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", h.Health)
	mux.HandleFunc("/ping", h.Ping)
	mux.HandleFunc("/health/database", h.Database)
	mux.HandleFunc("/health/generation", h.Generation)
}

// Health handles GET /health requests with a bare liveness answer.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// Ping handles GET /ping requests with service details.
func (h *HealthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	hostname, err := os.Hostname()
	if err != nil {
		http.Error(w, "failed to get hostname", http.StatusInternalServerError)
		return
	}

	_ = WriteJSON(w, http.StatusOK, PingResponse{
		Status:      "ok",
		Version:     h.cfg.Version,
		Service:     "vizgen-engine",
		GoVersion:   runtime.Version(),
		Hostname:    hostname,
		Environment: h.cfg.Env,
	})
}

// Database handles GET /health/database: pings the analytics database.
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	health := h.charts.CheckDatabaseHealth(r.Context())
	status := http.StatusOK
	if !health.OK {
		status = http.StatusServiceUnavailable
	}
	_ = WriteJSON(w, status, health)
}

// Generation handles GET /health/generation: probes the text-generation
// endpoint with a minimal request.
func (h *HealthHandler) Generation(w http.ResponseWriter, r *http.Request) {
	health := h.charts.CheckGenerationServiceHealth(r.Context())
	status := http.StatusOK
	if !health.OK {
		status = http.StatusServiceUnavailable
	}
	_ = WriteJSON(w, status, health)
}
