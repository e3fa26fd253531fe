package datasource

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/apperrors"
	"github.com/vizgen/vizgen-engine/pkg/logging"
)

const (
	// DefaultQueryTimeout bounds a single chart query.
	DefaultQueryTimeout = 30 * time.Second
	// DefaultMaxRows caps the number of rows returned to the caller.
	DefaultMaxRows = 1000
)

// Executor runs read queries against the analytics database with a
// timeout and a row cap.
type Executor struct {
	db     *sqlx.DB
	logger *zap.Logger
}

// NewExecutor creates an executor over an open connection pool.
func NewExecutor(db *sqlx.DB, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		db:     db,
		logger: logger.Named("executor"),
	}
}

// Execute runs sqlText and returns up to maxRows rows as generic maps.
// Rows past the cap are discarded in order, not an error. Zero values
// for timeout and maxRows use the defaults.
func (e *Executor) Execute(ctx context.Context, sqlText string, timeout time.Duration, maxRows int) ([]map[string]any, error) {
	if timeout <= 0 {
		timeout = DefaultQueryTimeout
	}
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	rows, err := e.db.QueryxContext(ctx, sqlText)
	if err != nil {
		e.logger.Warn("query failed",
			zap.String("query", logging.TruncateQuery(sqlText)),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindDatabase, "execute query", err)
	}
	defer rows.Close()

	results := make([]map[string]any, 0, 16)
	truncated := false
	for rows.Next() {
		if len(results) >= maxRows {
			truncated = true
			break
		}
		row := map[string]any{}
		if err := rows.MapScan(row); err != nil {
			return nil, apperrors.Wrap(apperrors.KindDatabase, "scan row", err)
		}
		for k, v := range row {
			row[k] = normalizeValue(v)
		}
		results = append(results, row)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.Wrap(apperrors.KindDatabase, "iterate rows", err)
	}

	e.logger.Debug("query executed",
		zap.String("query", logging.TruncateQuery(sqlText)),
		zap.Int("rows", len(results)),
		zap.Bool("truncated", truncated),
		zap.Duration("elapsed", time.Since(start)))

	return results, nil
}

// Ping verifies the connection is still alive.
func (e *Executor) Ping(ctx context.Context) error {
	if err := e.db.PingContext(ctx); err != nil {
		return apperrors.Wrap(apperrors.KindDatabase, "ping database", err)
	}
	return nil
}

// normalizeValue converts driver-specific scan values into plain JSON
// friendly types. Byte slices become strings, and strings that parse as
// numbers become float64 so chart encodings treat them quantitatively.
func normalizeValue(v any) any {
	switch val := v.(type) {
	case []byte:
		return parseNumeric(string(val))
	case string:
		return parseNumeric(val)
	default:
		return v
	}
}

// parseNumeric converts a numeric-parseable string to float64 after
// trimming surrounding whitespace, leaving everything else untouched.
func parseNumeric(s string) any {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return s
	}
	f, err := strconv.ParseFloat(trimmed, 64)
	if err != nil {
		return s
	}
	return f
}
