package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Widget is one persisted generated chart. The most recent widget carries
// MostRecent=true; saving a new one clears the flag on older rows.
type Widget struct {
	ID         uuid.UUID       `db:"id" json:"id"`
	Prompt     string          `db:"prompt" json:"prompt"`
	SQLQuery   string          `db:"sql_query" json:"sqlQuery"`
	ChartSpec  json.RawMessage `db:"chart_spec" json:"chartSpec"`
	Analysis   json.RawMessage `db:"analysis" json:"analysis"`
	MostRecent bool            `db:"most_recent" json:"mostRecent"`
	CreatedAt  time.Time       `db:"created_at" json:"createdAt"`
}
