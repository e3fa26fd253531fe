package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/chart"
	"github.com/vizgen/vizgen-engine/pkg/config"
	"github.com/vizgen/vizgen-engine/pkg/datasource"
	"github.com/vizgen/vizgen-engine/pkg/handlers"
	"github.com/vizgen/vizgen-engine/pkg/llm"
	"github.com/vizgen/vizgen-engine/pkg/middleware"
	"github.com/vizgen/vizgen-engine/pkg/repositories"
	"github.com/vizgen/vizgen-engine/pkg/schema"
	"github.com/vizgen/vizgen-engine/pkg/services"
)

// Version is set at build time via ldflags
var Version = "dev"

func main() {
	cfg, err := config.Load(Version)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger, err := newLogger(cfg.Env)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck // flush on exit is best-effort

	logger.Info("configuration loaded",
		zap.String("environment", cfg.Env),
		zap.String("dialect", cfg.Database.Dialect),
		zap.String("llm_provider", cfg.LLM.Provider),
		zap.String("llm_model", cfg.LLM.Model))

	dialect := schema.Dialect(cfg.Database.Dialect)
	dsn, err := cfg.Database.DSN()
	if err != nil {
		logger.Fatal("invalid database config", zap.Error(err))
	}

	db, err := datasource.Open(dialect, dsn, logger)
	if err != nil {
		logger.Fatal("failed to connect to analytics database", zap.Error(err))
	}
	defer db.Close()

	introspector, err := datasource.NewIntrospector(db, dialect, cfg.Database.Database, logger)
	if err != nil {
		logger.Fatal("failed to create introspector", zap.Error(err))
	}
	cache := schema.NewCache(introspector.Introspect, cfg.Schema.CacheTTL(), logger)

	client, err := newLLMClient(cfg, logger)
	if err != nil {
		logger.Fatal("failed to create generation client", zap.Error(err))
	}

	widgets, err := repositories.NewWidgetRepository(context.Background(), db, logger)
	if err != nil {
		logger.Fatal("failed to prepare widget storage", zap.Error(err))
	}

	chartService := services.NewChartService(
		cache,
		services.NewGenerator(client, logger),
		datasource.NewExecutor(db, logger),
		widgets,
		services.QueryLimits{
			Timeout: cfg.Query.Timeout(),
			MaxRows: cfg.Query.MaxRows,
		},
		chart.Options{
			Responsive: cfg.Chart.Responsive,
			Tooltip:    cfg.Chart.Tooltip,
			Theme:      cfg.Chart.Theme,
		},
		logger,
	)

	mux := http.NewServeMux()
	handlers.NewHealthHandler(cfg, chartService, logger).RegisterRoutes(mux)
	handlers.NewChartHandler(chartService, widgets, logger).RegisterRoutes(mux)

	handler := middleware.RequestLogger(logger)(mux)

	addr := fmt.Sprintf("%s:%s", cfg.BindAddr, cfg.Port)
	logger.Info("starting vizgen-engine",
		zap.String("addr", addr),
		zap.String("version", cfg.Version))
	if err := http.ListenAndServe(addr, handler); err != nil {
		logger.Fatal("server failed", zap.Error(err))
	}
}

// newLogger builds a production logger outside local development.
func newLogger(env string) (*zap.Logger, error) {
	if env == "local" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// newLLMClient selects the generation provider from configuration.
func newLLMClient(cfg *config.Config, logger *zap.Logger) (llm.Client, error) {
	llmCfg := &llm.Config{
		Endpoint: cfg.LLM.Endpoint,
		Model:    cfg.LLM.Model,
		APIKey:   cfg.LLM.APIKey,
		Timeout:  cfg.LLM.Timeout(),
	}

	switch cfg.LLM.Provider {
	case "anthropic":
		return llm.NewAnthropicClient(llmCfg, logger)
	default:
		return llm.NewOpenAIClient(llmCfg, logger)
	}
}
