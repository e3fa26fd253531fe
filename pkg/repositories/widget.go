// Package repositories persists generated charts.
package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/models"
)

// ErrNoWidgets is returned when no widget has been saved yet.
var ErrNoWidgets = errors.New("no widgets saved")

// widgetsSchema is portable across the supported dialects: text ids,
// text JSON payloads, and a boolean recency flag.
const widgetsSchema = `
CREATE TABLE IF NOT EXISTS widgets (
	id          VARCHAR(36) PRIMARY KEY,
	prompt      TEXT NOT NULL,
	sql_query   TEXT NOT NULL,
	chart_spec  TEXT NOT NULL,
	analysis    TEXT NOT NULL,
	most_recent BOOLEAN NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMP NOT NULL
)`

// WidgetRepository stores widgets in the analytics database.
type WidgetRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewWidgetRepository creates the repository and ensures its table
// exists.
func NewWidgetRepository(ctx context.Context, db *sqlx.DB, logger *zap.Logger) (*WidgetRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if _, err := db.ExecContext(ctx, widgetsSchema); err != nil {
		return nil, fmt.Errorf("ensure widgets table: %w", err)
	}
	return &WidgetRepository{
		db:     db,
		logger: logger.Named("widgets"),
	}, nil
}

// Save persists a widget as the most recent one, clearing the flag on
// every older row in the same transaction.
func (r *WidgetRepository) Save(ctx context.Context, widget *models.Widget) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin widget save: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback on defer is best-effort

	if _, err := tx.ExecContext(ctx,
		r.db.Rebind(`UPDATE widgets SET most_recent = ? WHERE most_recent = ?`),
		false, true); err != nil {
		return fmt.Errorf("clear recency flag: %w", err)
	}

	if _, err := tx.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO widgets (id, prompt, sql_query, chart_spec, analysis, most_recent, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		widget.ID.String(), widget.Prompt, widget.SQLQuery,
		string(widget.ChartSpec), string(widget.Analysis),
		widget.MostRecent, widget.CreatedAt); err != nil {
		return fmt.Errorf("insert widget: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit widget save: %w", err)
	}

	r.logger.Debug("widget saved", zap.String("widget_id", widget.ID.String()))
	return nil
}

// widgetRow is the scan shape; ids and JSON payloads travel as text.
type widgetRow struct {
	ID         string    `db:"id"`
	Prompt     string    `db:"prompt"`
	SQLQuery   string    `db:"sql_query"`
	ChartSpec  string    `db:"chart_spec"`
	Analysis   string    `db:"analysis"`
	MostRecent bool      `db:"most_recent"`
	CreatedAt  time.Time `db:"created_at"`
}

// GetMostRecent returns the widget saved last, or ErrNoWidgets.
func (r *WidgetRepository) GetMostRecent(ctx context.Context) (*models.Widget, error) {
	var row widgetRow
	err := r.db.GetContext(ctx, &row,
		r.db.Rebind(`SELECT id, prompt, sql_query, chart_spec, analysis, most_recent, created_at
			FROM widgets WHERE most_recent = ? LIMIT 1`), true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoWidgets
	}
	if err != nil {
		return nil, fmt.Errorf("load most recent widget: %w", err)
	}
	return row.toModel()
}

// List returns the newest widgets first, capped at limit.
func (r *WidgetRepository) List(ctx context.Context, limit int) ([]*models.Widget, error) {
	if limit <= 0 {
		limit = 50
	}

	var rows []widgetRow
	err := r.db.SelectContext(ctx, &rows,
		r.db.Rebind(`SELECT id, prompt, sql_query, chart_spec, analysis, most_recent, created_at
			FROM widgets ORDER BY created_at DESC LIMIT ?`), limit)
	if err != nil {
		return nil, fmt.Errorf("list widgets: %w", err)
	}

	widgets := make([]*models.Widget, 0, len(rows))
	for _, row := range rows {
		w, err := row.toModel()
		if err != nil {
			return nil, err
		}
		widgets = append(widgets, w)
	}
	return widgets, nil
}

func (row widgetRow) toModel() (*models.Widget, error) {
	id, err := uuid.Parse(row.ID)
	if err != nil {
		return nil, fmt.Errorf("parse widget id %q: %w", row.ID, err)
	}
	return &models.Widget{
		ID:         id,
		Prompt:     row.Prompt,
		SQLQuery:   row.SQLQuery,
		ChartSpec:  []byte(row.ChartSpec),
		Analysis:   []byte(row.Analysis),
		MostRecent: row.MostRecent,
		CreatedAt:  row.CreatedAt,
	}, nil
}
