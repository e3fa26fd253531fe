// Package models holds the shared value types passed between pipeline
// stages.
package models

import (
	"encoding/json"

	"github.com/vizgen/vizgen-engine/pkg/jsonutil"
)

// Analysis is the generator's structured reading of the user question.
type Analysis struct {
	Intent      string   `json:"intent"`
	TablesUsed  []string `json:"tablesUsed"`
	ChartType   string   `json:"chartType"`
	Aggregation string   `json:"aggregation"`
	GroupBy     string   `json:"groupBy"`
	Filters     []string `json:"filters"`
}

// UnmarshalJSON tolerates loosely typed generation replies: scalar fields
// may arrive as numbers, and array fields as single scalars.
func (a *Analysis) UnmarshalJSON(data []byte) error {
	var raw struct {
		Intent      json.RawMessage `json:"intent"`
		TablesUsed  json.RawMessage `json:"tablesUsed"`
		ChartType   json.RawMessage `json:"chartType"`
		Aggregation json.RawMessage `json:"aggregation"`
		GroupBy     json.RawMessage `json:"groupBy"`
		Filters     json.RawMessage `json:"filters"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	a.Intent = jsonutil.FlexibleString(raw.Intent)
	a.TablesUsed = jsonutil.FlexibleStringSlice(raw.TablesUsed)
	a.ChartType = jsonutil.FlexibleString(raw.ChartType)
	a.Aggregation = jsonutil.FlexibleString(raw.Aggregation)
	a.GroupBy = jsonutil.FlexibleString(raw.GroupBy)
	a.Filters = jsonutil.FlexibleStringSlice(raw.Filters)
	return nil
}

// TokenUsage accounts for one generation exchange. Cost observability
// only, not a correctness concern.
type TokenUsage struct {
	Prompt     int `json:"prompt"`
	Completion int `json:"completion"`
	Total      int `json:"total"`
}

// GenerationResult is the validated reply of the prompt compiler. It is
// never mutated after validation; downstream stages enrich copies.
type GenerationResult struct {
	Analysis    Analysis       `json:"analysis"`
	SQLQuery    string         `json:"sqlQuery"`
	ChartSpec   map[string]any `json:"chartSpec"`
	Explanation string         `json:"explanation"`
	TokensUsed  TokenUsage     `json:"tokensUsed"`
}
