package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/apperrors"
	"github.com/vizgen/vizgen-engine/pkg/chart"
	"github.com/vizgen/vizgen-engine/pkg/models"
	"github.com/vizgen/vizgen-engine/pkg/schema"
	"github.com/vizgen/vizgen-engine/pkg/sql"
)

// widgetSaveTimeout bounds the fire-and-forget persistence side effect.
const widgetSaveTimeout = 10 * time.Second

// QueryExecutor runs guarded read queries with bounds.
type QueryExecutor interface {
	Execute(ctx context.Context, sqlText string, timeout time.Duration, maxRows int) ([]map[string]any, error)
	Ping(ctx context.Context) error
}

// WidgetStore persists generated charts.
type WidgetStore interface {
	Save(ctx context.Context, widget *models.Widget) error
}

// QueryLimits bound a single chart query.
type QueryLimits struct {
	Timeout time.Duration
	MaxRows int
}

// ChartService runs the prompt-to-chart pipeline: schema snapshot,
// generation, admission check, bounded execution, spec enhancement, and
// summarization.
type ChartService struct {
	cache     *schema.Cache
	generator *Generator
	executor  QueryExecutor
	widgets   WidgetStore
	limits    QueryLimits
	chartOpts chart.Options
	logger    *zap.Logger
}

// NewChartService wires the pipeline stages together. widgets may be
// nil, which disables persistence.
func NewChartService(cache *schema.Cache, generator *Generator, executor QueryExecutor, widgets WidgetStore, limits QueryLimits, chartOpts chart.Options, logger *zap.Logger) *ChartService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChartService{
		cache:     cache,
		generator: generator,
		executor:  executor,
		widgets:   widgets,
		limits:    limits,
		chartOpts: chartOpts,
		logger:    logger.Named("chart_service"),
	}
}

// ChartResponse is the full pipeline output for one prompt.
type ChartResponse struct {
	Analysis     models.Analysis    `json:"analysis"`
	SQLQuery     string             `json:"sqlQuery"`
	ChartSpec    map[string]any     `json:"chartSpec"`
	Rows         []map[string]any   `json:"rows"`
	Summary      chart.Summary      `json:"summary"`
	Alternatives []chart.Suggestion `json:"alternatives,omitempty"`
	Explanation  string             `json:"explanation,omitempty"`
	TokensUsed   models.TokenUsage  `json:"tokensUsed"`
	Warnings     []string           `json:"warnings,omitempty"`
}

// GenerateChartFromPrompt runs the whole pipeline for one question.
// Guard warnings are attached to the response but never block; an empty
// result set is a success path rendered as the placeholder spec.
func (s *ChartService) GenerateChartFromPrompt(ctx context.Context, prompt string) (*ChartResponse, error) {
	var warnings []string
	if check := sql.CheckPromptForInjection(prompt); check != nil {
		s.logger.Warn("prompt matched injection fingerprint",
			zap.String("fingerprint", check.Fingerprint))
		warnings = append(warnings, "the prompt resembles a SQL injection payload; the generated query was checked as usual")
	}

	desc, err := s.cache.Get(ctx, false)
	if err != nil {
		return nil, err
	}

	generated, err := s.generator.Generate(ctx, prompt, desc)
	if err != nil {
		return nil, err
	}

	verdict := sql.Check(generated.SQLQuery, desc)
	if !verdict.Valid {
		return nil, apperrors.Rejected(verdict.Errors)
	}
	warnings = append(warnings, verdict.Warnings...)

	rows, err := s.executor.Execute(ctx, generated.SQLQuery, s.limits.Timeout, s.limits.MaxRows)
	if err != nil {
		return nil, err
	}

	enhanced, err := chart.Enhance(generated.ChartSpec, rows, s.chartOpts)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGeneration, "finalize chart spec", err)
	}

	response := &ChartResponse{
		Analysis:     generated.Analysis,
		SQLQuery:     generated.SQLQuery,
		ChartSpec:    enhanced,
		Rows:         rows,
		Summary:      chart.Summarize(rows),
		Alternatives: chart.SuggestAlternatives(rows, generated.Analysis),
		Explanation:  generated.Explanation,
		TokensUsed:   generated.TokensUsed,
		Warnings:     warnings,
	}

	s.saveWidgetAsync(prompt, generated, enhanced)

	return response, nil
}

// saveWidgetAsync persists the generated chart without blocking the
// response. Failures are logged and otherwise ignored.
func (s *ChartService) saveWidgetAsync(prompt string, generated *models.GenerationResult, enhanced map[string]any) {
	if s.widgets == nil {
		return
	}

	specJSON, err := json.Marshal(enhanced)
	if err != nil {
		s.logger.Warn("skipping widget save", zap.Error(err))
		return
	}
	analysisJSON, err := json.Marshal(generated.Analysis)
	if err != nil {
		s.logger.Warn("skipping widget save", zap.Error(err))
		return
	}

	widget := &models.Widget{
		ID:         uuid.New(),
		Prompt:     prompt,
		SQLQuery:   generated.SQLQuery,
		ChartSpec:  specJSON,
		Analysis:   analysisJSON,
		MostRecent: true,
		CreatedAt:  time.Now().UTC(),
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), widgetSaveTimeout)
		defer cancel()
		if err := s.widgets.Save(ctx, widget); err != nil {
			s.logger.Warn("widget save failed",
				zap.String("widget_id", widget.ID.String()),
				zap.Error(err))
		}
	}()
}

// GetSchema returns the current schema snapshot, refreshing first when
// forceRefresh is set.
func (s *ChartService) GetSchema(ctx context.Context, forceRefresh bool) (*schema.Description, error) {
	return s.cache.Get(ctx, forceRefresh)
}

// InvalidateSchemaCache drops the cached snapshot so the next read
// re-introspects.
func (s *ChartService) InvalidateSchemaCache() {
	s.cache.Invalidate()
}

// DatabaseHealth reports database reachability.
type DatabaseHealth struct {
	OK           bool   `json:"ok"`
	Dialect      string `json:"dialect,omitempty"`
	DatabaseName string `json:"databaseName,omitempty"`
	Error        string `json:"error,omitempty"`
}

// CheckDatabaseHealth pings the database and reports what it is.
func (s *ChartService) CheckDatabaseHealth(ctx context.Context) DatabaseHealth {
	if err := s.executor.Ping(ctx); err != nil {
		return DatabaseHealth{Error: err.Error()}
	}

	health := DatabaseHealth{OK: true}
	if desc, err := s.cache.Get(ctx, false); err == nil {
		health.Dialect = string(desc.Dialect)
		health.DatabaseName = desc.DatabaseName
	}
	return health
}

// GenerationHealth reports text-generation service reachability.
type GenerationHealth struct {
	OK    bool   `json:"ok"`
	Model string `json:"model,omitempty"`
	Error string `json:"error,omitempty"`
}

// CheckGenerationServiceHealth sends a minimal request to verify the
// generation endpoint answers.
func (s *ChartService) CheckGenerationServiceHealth(ctx context.Context) GenerationHealth {
	if _, err := s.generator.client.GenerateResponse(ctx,
		`Reply with the JSON object {"ok": true}.`, "", 0); err != nil {
		return GenerationHealth{Error: err.Error()}
	}
	return GenerationHealth{OK: true, Model: s.generator.client.Model()}
}
