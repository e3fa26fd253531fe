package chart

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"

	"github.com/vizgen/vizgen-engine/pkg/models"
)

// Summary describes a result set: total row count plus per-column
// statistics for every numeric column.
type Summary struct {
	RowCount int                    `json:"rowCount"`
	Columns  map[string]ColumnStats `json:"columns,omitempty"`
}

// ColumnStats holds descriptive statistics over the non-NaN numeric
// values of one column.
type ColumnStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
	Sum     float64 `json:"sum"`
	Count   int     `json:"count"`
}

// Suggestion proposes an alternative chart type with a justification.
// Suggestions are advisory; the caller decides whether to re-render.
type Suggestion struct {
	ChartType     string `json:"chartType"`
	Justification string `json:"justification"`
}

// maxArcRows is the largest result an arc (pie) chart stays readable at.
const maxArcRows = 8

var (
	temporalNamePattern  = regexp.MustCompile(`(?i)(date|time|year|month|day)`)
	temporalValuePattern = regexp.MustCompile(`^\d{4}(-\d{2})?(-\d{2})?$`)
)

// Summarize computes descriptive statistics for rows. A column counts
// as numeric when its first-row value is numeric or numeric-parseable;
// NaN values are skipped.
func Summarize(rows []map[string]any) Summary {
	summary := Summary{RowCount: len(rows)}
	if len(rows) == 0 {
		return summary
	}

	numericColumns := make([]string, 0, len(rows[0]))
	for name, v := range rows[0] {
		if _, ok := asFloat(v); ok {
			numericColumns = append(numericColumns, name)
		}
	}
	if len(numericColumns) == 0 {
		return summary
	}
	sort.Strings(numericColumns)

	summary.Columns = make(map[string]ColumnStats, len(numericColumns))
	for _, name := range numericColumns {
		stats := ColumnStats{Min: math.Inf(1), Max: math.Inf(-1)}
		for _, row := range rows {
			f, ok := asFloat(row[name])
			if !ok || math.IsNaN(f) {
				continue
			}
			stats.Min = math.Min(stats.Min, f)
			stats.Max = math.Max(stats.Max, f)
			stats.Sum += f
			stats.Count++
		}
		if stats.Count == 0 {
			continue
		}
		stats.Average = stats.Sum / float64(stats.Count)
		summary.Columns[name] = stats
	}

	return summary
}

// SuggestAlternatives proposes chart types the data shape also suits.
// The current type is never re-proposed.
func SuggestAlternatives(rows []map[string]any, analysis models.Analysis) []Suggestion {
	if len(rows) == 0 {
		return nil
	}

	var suggestions []Suggestion
	current := analysis.ChartType

	if current != "line" && hasTemporalColumn(rows[0]) {
		suggestions = append(suggestions, Suggestion{
			ChartType:     "line",
			Justification: "the data contains a time-like column, so a line chart would show the trend over time",
		})
	}

	if current != "arc" && len(rows) <= maxArcRows {
		suggestions = append(suggestions, Suggestion{
			ChartType: "arc",
			Justification: fmt.Sprintf(
				"with only %d rows, a pie chart would show each category's share of the whole", len(rows)),
		})
	}

	if current != "point" && countNumericColumns(rows[0]) >= 2 {
		suggestions = append(suggestions, Suggestion{
			ChartType:     "point",
			Justification: "two or more numeric columns are present, so a scatter plot could reveal their correlation",
		})
	}

	return suggestions
}

// hasTemporalColumn checks column names and first-row values against
// date/time heuristics.
func hasTemporalColumn(row map[string]any) bool {
	for name, v := range row {
		if temporalNamePattern.MatchString(name) {
			return true
		}
		if s, ok := v.(string); ok && temporalValuePattern.MatchString(s) {
			return true
		}
	}
	return false
}

func countNumericColumns(row map[string]any) int {
	n := 0
	for _, v := range row {
		if _, ok := asFloat(v); ok {
			n++
		}
	}
	return n
}

// asFloat widens any numeric scan type to float64, also accepting
// numeric-parseable strings.
func asFloat(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
