package sql

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vizgen/vizgen-engine/pkg/models"
	"github.com/vizgen/vizgen-engine/pkg/schema"
)

// selectPattern admits only statements that begin with SELECT, tolerating
// leading whitespace.
var selectPattern = regexp.MustCompile(`(?i)^\s*SELECT\b`)

// denyRule is one destructive/structural pattern the guard rejects.
type denyRule struct {
	pattern *regexp.Regexp
	rule    string
}

// denyRules is the fixed denylist. The match is a deliberately coarse
// substring-style regex anywhere in the text: a SELECT containing a
// denylisted phrase inside a string literal is still rejected. The cost
// of a false positive is a rejected query, not a security hole.
var denyRules = []denyRule{
	{regexp.MustCompile(`(?i)\bDROP\s+TABLE\b`), "DROP TABLE is not allowed"},
	{regexp.MustCompile(`(?i)\bDROP\s+DATABASE\b`), "DROP DATABASE is not allowed"},
	{regexp.MustCompile(`(?i)\bDELETE\s+FROM\s+\S+.*\bWHERE\b`), "DELETE is not allowed"},
	{regexp.MustCompile(`(?i)\bTRUNCATE\b`), "TRUNCATE is not allowed"},
	{regexp.MustCompile(`(?i)\bALTER\s+TABLE\b`), "ALTER TABLE is not allowed"},
	{regexp.MustCompile(`(?i)\bCREATE\s+TABLE\b`), "CREATE TABLE is not allowed"},
}

// tableRefPattern extracts identifiers following FROM or JOIN. It will
// misparse subqueries, CTEs, and quoted identifiers, which is why unknown
// tables are reported as warnings rather than errors.
var tableRefPattern = regexp.MustCompile(`(?i)\b(?:FROM|JOIN)\s+([a-zA-Z_][a-zA-Z0-9_.]*)`)

// Check runs admission control over a generated SQL statement. It is a
// pure function: no I/O, no parsing beyond pattern matching. It is a last
// line of defense, not a grammar-aware validator.
func Check(sqlText string, desc *schema.Description) models.ValidationResult {
	result := models.NewValidationResult()

	trimmed := strings.TrimSpace(sqlText)
	if trimmed == "" {
		result.AddError("query is empty")
		return result
	}

	normalized, err := NormalizeStatement(trimmed)
	if err != nil {
		result.AddError(err.Error())
		return result
	}

	if !selectPattern.MatchString(normalized) {
		result.AddError("query must begin with SELECT")
	}

	for _, deny := range denyRules {
		if deny.pattern.MatchString(normalized) {
			result.AddError(deny.rule)
		}
	}

	if desc != nil {
		for _, table := range ExtractTableNames(normalized) {
			if !desc.HasTable(table) {
				result.AddWarning(fmt.Sprintf("query references unknown table %q", table))
			}
		}
	}

	return result
}

// ExtractTableNames returns the identifiers found after FROM/JOIN
// keywords, schema qualifiers stripped, deduplicated in encounter order.
// Advisory only: subqueries and quoted identifiers are not understood.
func ExtractTableNames(sqlText string) []string {
	matches := tableRefPattern.FindAllStringSubmatch(sqlText, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	var names []string
	for _, m := range matches {
		name := m[1]
		// keep only the table part of schema-qualified references
		if i := strings.LastIndexByte(name, '.'); i >= 0 {
			name = name[i+1:]
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		names = append(names, name)
	}
	return names
}
