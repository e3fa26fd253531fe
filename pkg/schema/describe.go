package schema

import (
	"strings"

	"github.com/jinzhu/inflection"
)

// namePattern is one entry of the heuristic description dictionary.
// Match is consulted in order; the first hit wins.
type namePattern struct {
	match       func(name string) bool
	description func(name string) string
}

func prefixPattern(prefix, description string) namePattern {
	return namePattern{
		match:       func(name string) bool { return strings.HasPrefix(name, prefix) },
		description: func(string) string { return description },
	}
}

func exactPattern(exact, description string) namePattern {
	return namePattern{
		match:       func(name string) bool { return name == exact },
		description: func(string) string { return description },
	}
}

// tablePatterns describes common table names. Ordered by priority.
var tablePatterns = []namePattern{
	exactPattern("users", "Application user accounts"),
	exactPattern("customers", "Customer records"),
	exactPattern("orders", "Customer orders"),
	exactPattern("order_items", "Line items belonging to orders"),
	exactPattern("products", "Product catalog"),
	exactPattern("categories", "Product or content categories"),
	exactPattern("sales", "Sales transactions"),
	exactPattern("payments", "Payment transactions"),
	exactPattern("invoices", "Billing invoices"),
	exactPattern("sessions", "User sessions"),
	exactPattern("events", "Recorded application events"),
	exactPattern("logs", "Application log entries"),
}

// columnPatterns describes common column names. Ordered by priority:
// exact identity names first, then suffix/prefix conventions.
var columnPatterns = []namePattern{
	exactPattern("id", "Primary key identifier"),
	exactPattern("created_at", "Record creation timestamp"),
	exactPattern("updated_at", "Record last-update timestamp"),
	exactPattern("deleted_at", "Soft-delete timestamp"),
	exactPattern("name", "Display name"),
	exactPattern("email", "Email address"),
	exactPattern("status", "Current status"),
	exactPattern("amount", "Monetary amount"),
	exactPattern("price", "Unit price"),
	exactPattern("quantity", "Item quantity"),
	exactPattern("total", "Total amount"),
	exactPattern("description", "Free-text description"),
	{
		match: func(name string) bool { return strings.HasSuffix(name, "_id") },
		description: func(name string) string {
			ref := strings.ReplaceAll(strings.TrimSuffix(name, "_id"), "_", " ")
			return "Reference to the " + inflection.Singular(ref) + " record"
		},
	},
	{
		match: func(name string) bool { return strings.HasSuffix(name, "_at") },
		description: func(name string) string {
			event := strings.TrimSuffix(name, "_at")
			return "Timestamp of the " + strings.ReplaceAll(event, "_", " ") + " event"
		},
	},
	{
		match: func(name string) bool { return strings.HasSuffix(name, "_date") },
		description: func(name string) string {
			event := strings.TrimSuffix(name, "_date")
			return "Date of the " + strings.ReplaceAll(event, "_", " ") + " event"
		},
	},
	prefixPattern("is_", "Boolean flag"),
	prefixPattern("has_", "Boolean flag"),
	prefixPattern("num_", "Numeric count"),
	{
		match: func(name string) bool { return strings.HasSuffix(name, "_count") },
		description: func(name string) string {
			subject := strings.TrimSuffix(name, "_count")
			return "Count of " + strings.ReplaceAll(subject, "_", " ")
		},
	},
}

// DescribeTable returns a human-readable description for a table name.
// It is pure: the same name always yields the same description. The
// fallback is the name with underscores replaced by spaces.
func DescribeTable(name string) string {
	return describe(name, tablePatterns)
}

// DescribeColumn returns a human-readable description for a column name.
// Same purity and fallback rules as DescribeTable.
func DescribeColumn(name string) string {
	return describe(name, columnPatterns)
}

func describe(name string, patterns []namePattern) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	for _, p := range patterns {
		if p.match(lower) {
			return p.description(lower)
		}
	}
	return strings.ReplaceAll(lower, "_", " ")
}
