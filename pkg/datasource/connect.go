// Package datasource connects to the analytics database, discovers its
// schema, and executes guarded queries with bounds.
package datasource

import (
	"context"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql" // mysql/mariadb driver
	_ "github.com/jackc/pgx/v5/stdlib" // postgres driver
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // sqlite driver
	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/logging"
	"github.com/vizgen/vizgen-engine/pkg/schema"
)

// connectTimeout bounds the initial connectivity probe.
const connectTimeout = 10 * time.Second

// driverName maps a dialect to its database/sql driver.
func driverName(dialect schema.Dialect) (string, error) {
	switch dialect {
	case schema.DialectPostgres:
		return "pgx", nil
	case schema.DialectMySQL, schema.DialectMariaDB:
		return "mysql", nil
	case schema.DialectSQLite:
		return "sqlite3", nil
	}
	return "", fmt.Errorf("unsupported dialect %q", dialect)
}

// Open connects to the analytics database for the given dialect and
// verifies connectivity before returning.
func Open(dialect schema.Dialect, dsn string, logger *zap.Logger) (*sqlx.DB, error) {
	driver, err := driverName(dialect)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", dialect, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		if logger != nil {
			// Driver errors can echo the DSN back; sanitize before logging.
			logger.Error("database unreachable",
				zap.String("dialect", string(dialect)),
				zap.String("error", logging.SanitizeError(err)))
		}
		return nil, fmt.Errorf("ping %s database: %w", dialect, err)
	}

	if logger != nil {
		logger.Info("connected to analytics database",
			zap.String("dialect", string(dialect)),
			zap.String("dsn", logging.SanitizeConnectionString(dsn)))
	}

	return db, nil
}
