// Package services wires the pipeline stages into the operations the
// transport layer exposes.
package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/apperrors"
	"github.com/vizgen/vizgen-engine/pkg/llm"
	"github.com/vizgen/vizgen-engine/pkg/models"
	"github.com/vizgen/vizgen-engine/pkg/prompts"
	"github.com/vizgen/vizgen-engine/pkg/schema"
)

// generationTemperature keeps replies deterministic enough that the
// same question yields structurally similar SQL.
const generationTemperature = 0.2

// Generator turns a user question plus a schema snapshot into a
// validated SQL query and chart spec via the text-generation client.
type Generator struct {
	client llm.Client
	logger *zap.Logger
}

// NewGenerator creates a generator over a text-generation client.
func NewGenerator(client llm.Client, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		client: client,
		logger: logger.Named("generator"),
	}
}

// generationReply mirrors the JSON document the model is instructed to
// produce. vegaSpec is accepted as an alternate key for chartSpec since
// some models rename it despite the instructions.
type generationReply struct {
	Analysis    models.Analysis `json:"analysis"`
	SQLQuery    string          `json:"sqlQuery"`
	ChartSpec   map[string]any  `json:"chartSpec"`
	VegaSpec    map[string]any  `json:"vegaSpec"`
	Explanation string          `json:"explanation"`
}

// Generate sends one generation request and validates the reply
// structurally. Validation failures surface as generation errors naming
// the missing field so the caller's hint stays actionable.
func (g *Generator) Generate(ctx context.Context, question string, desc *schema.Description) (*models.GenerationResult, error) {
	instructions := prompts.BuildChartGenerationPrompt(desc)
	userMessage := fmt.Sprintf("%s\n# Question\n\n%s\n", instructions, question)

	resp, err := g.client.GenerateResponse(ctx, userMessage,
		prompts.ChartGenerationSystemMessage(), generationTemperature)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindGeneration, "generation request", err)
	}

	reply, err := llm.ParseJSONResponse[generationReply](resp.Content)
	if err != nil {
		g.logger.Warn("unparseable generation reply",
			zap.String("model", g.client.Model()),
			zap.Int("length", len(resp.Content)))
		return nil, apperrors.Wrap(apperrors.KindGeneration, "parse reply", err)
	}

	chartSpec := reply.ChartSpec
	if chartSpec == nil {
		chartSpec = reply.VegaSpec
	}

	if err := validateReply(reply.SQLQuery, chartSpec, reply.Analysis); err != nil {
		return nil, err
	}

	g.logger.Debug("generation reply accepted",
		zap.String("model", g.client.Model()),
		zap.String("chartType", reply.Analysis.ChartType),
		zap.Int("totalTokens", resp.TotalTokens))

	return &models.GenerationResult{
		Analysis:    reply.Analysis,
		SQLQuery:    reply.SQLQuery,
		ChartSpec:   chartSpec,
		Explanation: reply.Explanation,
		TokensUsed: models.TokenUsage{
			Prompt:     resp.PromptTokens,
			Completion: resp.CompletionTokens,
			Total:      resp.TotalTokens,
		},
	}, nil
}

// validateReply enforces the structural contract of a generation reply.
func validateReply(sqlQuery string, chartSpec map[string]any, analysis models.Analysis) error {
	if sqlQuery == "" {
		return apperrors.New(apperrors.KindGeneration, "reply is missing sqlQuery")
	}
	if chartSpec == nil {
		return apperrors.New(apperrors.KindGeneration, "reply is missing chartSpec")
	}
	if _, ok := chartSpec["$schema"]; !ok {
		return apperrors.New(apperrors.KindGeneration, "chartSpec is missing $schema")
	}
	if _, ok := chartSpec["encoding"].(map[string]any); !ok {
		return apperrors.New(apperrors.KindGeneration, "chartSpec is missing encoding")
	}
	if analysis.ChartType == "" {
		return apperrors.New(apperrors.KindGeneration, "analysis is missing chartType")
	}
	return nil
}
