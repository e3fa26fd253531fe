// Package prompts builds the instruction documents sent to the
// text-generation service.
package prompts

import (
	"fmt"
	"strings"

	"github.com/vizgen/vizgen-engine/pkg/schema"
)

const (
	// DefaultRowLimit is the result-count limit queries should carry when
	// the question does not ask for more.
	DefaultRowLimit = 20

	// MaxRowLimit is the hard ceiling on the LIMIT a generated query may use.
	MaxRowLimit = 100

	// VegaLiteSchemaURL pins the visualization grammar version the
	// generator must emit.
	VegaLiteSchemaURL = "https://vega.github.io/schema/vega-lite/v5.json"
)

// ChartGenerationSystemMessage returns the role instruction for the
// generation service.
func ChartGenerationSystemMessage() string {
	return `You are a data analyst that converts natural-language analytics questions into a single SQL query and a Vega-Lite chart specification. You only produce read-only SELECT queries. You respond with a single JSON object and nothing else.`
}

// BuildChartGenerationPrompt creates the instruction document for one
// generation call: the full schema, the SQL and chart rules for the
// snapshot's dialect, and the required JSON reply format. The user's
// question is sent separately as the user message.
func BuildChartGenerationPrompt(desc *schema.Description) string {
	var prompt strings.Builder

	prompt.WriteString("# Database Schema\n\n")
	prompt.WriteString(fmt.Sprintf("Database: %s (dialect: %s)\n\n", desc.DatabaseName, desc.Dialect))

	for _, table := range desc.Tables {
		prompt.WriteString(fmt.Sprintf("### %s\n", table.Name))
		prompt.WriteString(table.Description + "\n")
		prompt.WriteString("Columns:\n")
		for _, col := range table.Columns {
			nullable := "NOT NULL"
			if col.Nullable {
				nullable = "nullable"
			}
			prompt.WriteString(fmt.Sprintf("- %s (%s, %s): %s\n",
				col.Name, col.NormalizedType, nullable, col.Description))
		}
		if len(table.Relationships) > 0 {
			prompt.WriteString("Relationships:\n")
			for _, rel := range table.Relationships {
				prompt.WriteString(fmt.Sprintf("- %s.%s → %s.%s\n",
					table.Name, rel.Column, rel.ForeignTable, rel.ForeignColumn))
			}
		}
		prompt.WriteString("\n")
	}

	if measures, temporals := classifyColumns(desc); len(measures) > 0 || len(temporals) > 0 {
		if len(measures) > 0 {
			prompt.WriteString(fmt.Sprintf("Measure columns (numeric): %s\n", strings.Join(measures, ", ")))
		}
		if len(temporals) > 0 {
			prompt.WriteString(fmt.Sprintf("Date/time columns (use for trends and bucketing): %s\n", strings.Join(temporals, ", ")))
		}
		prompt.WriteString("\n")
	}

	prompt.WriteString("# SQL Rules\n\n")
	prompt.WriteString(fmt.Sprintf("- Write a single SELECT statement using %s syntax. Never emit INSERT, UPDATE, DELETE, DDL, or multiple statements.\n", dialectName(desc.Dialect)))
	prompt.WriteString("- Only reference tables and columns listed in the schema above.\n")
	prompt.WriteString("- Filter NULL values out of every column you GROUP BY (add `WHERE col IS NOT NULL`).\n")
	prompt.WriteString("- Use explicit JOIN ... ON syntax; never comma joins.\n")
	prompt.WriteString("- Give every aggregate a snake_case alias (e.g. SUM(amount) AS total_amount).\n")
	prompt.WriteString(fmt.Sprintf("- Add LIMIT %d unless the question asks for more; never exceed LIMIT %d.\n", DefaultRowLimit, MaxRowLimit))
	prompt.WriteString(fmt.Sprintf("- For month bucketing use %s; for year bucketing use %s. Sort buckets ascending.\n",
		monthBucketExpr(desc.Dialect), yearBucketExpr(desc.Dialect)))

	prompt.WriteString("\n# Chart Rules\n\n")
	prompt.WriteString("Pick the chart type by data shape:\n")
	prompt.WriteString("- `bar` for comparing values across categories.\n")
	prompt.WriteString("- `line` for trends over time; requires at least 2 non-null points.\n")
	prompt.WriteString("- `arc` (pie) only for part-of-whole with at most 6 categories.\n")
	prompt.WriteString("- `point` (scatter) for correlation between two numeric measures.\n")
	prompt.WriteString("- `area` for cumulative trends over time.\n\n")

	prompt.WriteString("The chart specification must follow these rules:\n")
	prompt.WriteString(fmt.Sprintf("- Set \"$schema\" to %q.\n", VegaLiteSchemaURL))
	prompt.WriteString("- Set \"data\" to {\"values\": []}. The data is injected after the query runs.\n")
	prompt.WriteString("- Every field named in \"encoding\" must exactly match a column alias in the SQL.\n")
	prompt.WriteString("- Axis types: \"temporal\" only for raw DATE/TIMESTAMP columns; \"ordinal\" for aggregated month/year buckets (sorted ascending); \"nominal\" for unordered text; \"quantitative\" for numbers.\n")

	prompt.WriteString("\n# Reply Format\n\n")
	prompt.WriteString("Respond with a single JSON object:\n")
	prompt.WriteString("```json\n")
	prompt.WriteString(`{
  "analysis": {
    "intent": "what the user wants to learn",
    "tablesUsed": ["sales"],
    "chartType": "bar",
    "aggregation": "sum",
    "groupBy": "category",
    "filters": []
  },
  "sqlQuery": "SELECT category, SUM(amount) AS total_amount FROM sales WHERE category IS NOT NULL GROUP BY category ORDER BY total_amount DESC LIMIT 20",
  "chartSpec": {
    "$schema": "https://vega.github.io/schema/vega-lite/v5.json",
    "data": {"values": []},
    "mark": "bar",
    "encoding": {
      "x": {"field": "category", "type": "nominal"},
      "y": {"field": "total_amount", "type": "quantitative"}
    }
  },
  "explanation": "one or two sentences describing the chart"
}
`)
	prompt.WriteString("```\n\n")
	prompt.WriteString("Return ONLY the JSON, no additional text.\n")

	return prompt.String()
}

// classifyColumns lists table-qualified measure and temporal columns so
// the model does not have to infer roles from raw types.
func classifyColumns(desc *schema.Description) (measures, temporals []string) {
	for _, table := range desc.Tables {
		for _, col := range table.Columns {
			qualified := table.Name + "." + col.Name
			switch {
			case schema.IsNumericType(col.NormalizedType):
				measures = append(measures, qualified)
			case schema.IsTemporalType(col.NormalizedType):
				temporals = append(temporals, qualified)
			}
		}
	}
	return measures, temporals
}

func dialectName(d schema.Dialect) string {
	switch d {
	case schema.DialectPostgres:
		return "PostgreSQL"
	case schema.DialectMySQL:
		return "MySQL"
	case schema.DialectMariaDB:
		return "MariaDB"
	case schema.DialectSQLite:
		return "SQLite"
	}
	return string(d)
}

func monthBucketExpr(d schema.Dialect) string {
	switch d {
	case schema.DialectMySQL, schema.DialectMariaDB:
		return "DATE_FORMAT(col, '%Y-%m')"
	case schema.DialectSQLite:
		return "strftime('%Y-%m', col)"
	default:
		return "TO_CHAR(col, 'YYYY-MM')"
	}
}

func yearBucketExpr(d schema.Dialect) string {
	switch d {
	case schema.DialectMySQL, schema.DialectMariaDB:
		return "DATE_FORMAT(col, '%Y')"
	case schema.DialectSQLite:
		return "strftime('%Y', col)"
	default:
		return "TO_CHAR(col, 'YYYY')"
	}
}
