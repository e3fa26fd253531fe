package datasource

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/vizgen/vizgen-engine/pkg/apperrors"
	"github.com/vizgen/vizgen-engine/pkg/schema"
)

// migrationTables are bookkeeping tables excluded from discovery.
var migrationTables = map[string]struct{}{
	"schema_migrations":          {},
	"migrations":                 {},
	"goose_db_version":           {},
	"flyway_schema_history":      {},
	"knex_migrations":            {},
	"knex_migrations_lock":       {},
	"alembic_version":            {},
	"__diesel_schema_migrations": {},
}

// Introspector builds a normalized schema description from the live
// database catalog.
type Introspector struct {
	db      *sqlx.DB
	dialect schema.Dialect
	dbName  string
	logger  *zap.Logger
}

// NewIntrospector creates an introspector for the given dialect.
func NewIntrospector(db *sqlx.DB, dialect schema.Dialect, databaseName string, logger *zap.Logger) (*Introspector, error) {
	if !dialect.Supported() {
		return nil, apperrors.New(apperrors.KindIntrospection,
			fmt.Sprintf("unsupported dialect %q", dialect))
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Introspector{
		db:      db,
		dialect: dialect,
		dbName:  databaseName,
		logger:  logger.Named("introspector"),
	}, nil
}

// Dialect returns the configured dialect.
func (in *Introspector) Dialect() schema.Dialect { return in.dialect }

// DatabaseName returns the configured database name.
func (in *Introspector) DatabaseName() string { return in.dbName }

// Introspect queries the catalog and returns a fresh schema snapshot.
// Table and column descriptions fall back to name heuristics when the
// catalog carries no comment.
func (in *Introspector) Introspect(ctx context.Context) (*schema.Description, error) {
	tables, err := in.listTables(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIntrospection, "list tables", err)
	}

	fksByTable, err := in.listForeignKeys(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindIntrospection, "list foreign keys", err)
	}

	desc := &schema.Description{
		DatabaseName: in.dbName,
		Dialect:      in.dialect,
		Tables:       make([]schema.Table, 0, len(tables)),
	}

	for _, t := range tables {
		if _, skip := migrationTables[strings.ToLower(t.name)]; skip {
			continue
		}

		columns, err := in.listColumns(ctx, t.name)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindIntrospection,
				fmt.Sprintf("list columns of %s", t.name), err)
		}

		description := t.comment
		if description == "" {
			description = schema.DescribeTable(t.name)
		}

		desc.Tables = append(desc.Tables, schema.Table{
			Name:          t.name,
			Description:   description,
			Columns:       columns,
			Relationships: fksByTable[strings.ToLower(t.name)],
		})
	}

	in.logger.Debug("catalog introspected",
		zap.String("database", in.dbName),
		zap.Int("tables", len(desc.Tables)))

	return desc, nil
}

type tableRow struct {
	name    string
	comment string
}

func (in *Introspector) listTables(ctx context.Context) ([]tableRow, error) {
	var query string
	switch in.dialect {
	case schema.DialectPostgres:
		// Scoped to current_schema() so same-named tables in other
		// schemas cannot produce duplicate snapshot entries.
		query = `
			SELECT t.table_name, COALESCE(obj_description(pc.oid), '') AS table_comment
			FROM information_schema.tables t
			LEFT JOIN pg_namespace pn ON pn.nspname = t.table_schema
			LEFT JOIN pg_class pc ON pc.relname = t.table_name AND pc.relnamespace = pn.oid
			WHERE t.table_type = 'BASE TABLE'
			  AND t.table_schema = current_schema()
			ORDER BY t.table_name`
	case schema.DialectMySQL, schema.DialectMariaDB:
		query = `
			SELECT table_name, COALESCE(table_comment, '') AS table_comment
			FROM information_schema.tables
			WHERE table_type = 'BASE TABLE'
			  AND table_schema = DATABASE()
			ORDER BY table_name`
	case schema.DialectSQLite:
		query = `
			SELECT name, '' AS table_comment
			FROM sqlite_master
			WHERE type = 'table' AND name NOT LIKE 'sqlite_%'
			ORDER BY name`
	}

	rows, err := in.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query tables: %w", err)
	}
	defer rows.Close()

	var tables []tableRow
	for rows.Next() {
		var t tableRow
		if err := rows.Scan(&t.name, &t.comment); err != nil {
			return nil, fmt.Errorf("scan table: %w", err)
		}
		tables = append(tables, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tables: %w", err)
	}

	return tables, nil
}

func (in *Introspector) listColumns(ctx context.Context, tableName string) ([]schema.Column, error) {
	var query string
	switch in.dialect {
	case schema.DialectPostgres:
		query = `
			SELECT c.column_name, c.data_type, c.is_nullable,
			       COALESCE(col_description(pc.oid, c.ordinal_position), '') AS column_comment
			FROM information_schema.columns c
			LEFT JOIN pg_namespace pn ON pn.nspname = c.table_schema
			LEFT JOIN pg_class pc ON pc.relname = c.table_name AND pc.relnamespace = pn.oid
			WHERE c.table_schema = current_schema()
			  AND c.table_name = ?
			ORDER BY c.ordinal_position`
	case schema.DialectMySQL, schema.DialectMariaDB:
		query = `
			SELECT column_name, data_type, is_nullable,
			       COALESCE(column_comment, '') AS column_comment
			FROM information_schema.columns
			WHERE table_schema = DATABASE() AND table_name = ?
			ORDER BY ordinal_position`
	case schema.DialectSQLite:
		// pragma_table_info reports notnull as 0/1; normalized below.
		query = `
			SELECT name, type, CASE "notnull" WHEN 0 THEN 'YES' ELSE 'NO' END, ''
			FROM pragma_table_info(?)
			ORDER BY cid`
	}

	rows, err := in.db.QueryContext(ctx, in.db.Rebind(query), tableName)
	if err != nil {
		return nil, fmt.Errorf("query columns: %w", err)
	}
	defer rows.Close()

	var columns []schema.Column
	for rows.Next() {
		var name, rawType, nullable, comment string
		if err := rows.Scan(&name, &rawType, &nullable, &comment); err != nil {
			return nil, fmt.Errorf("scan column: %w", err)
		}

		description := comment
		if description == "" {
			description = schema.DescribeColumn(name)
		}

		columns = append(columns, schema.Column{
			Name:           name,
			NormalizedType: schema.NormalizeType(rawType),
			Nullable:       strings.EqualFold(nullable, "YES"),
			Description:    description,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate columns: %w", err)
	}

	return columns, nil
}

// listForeignKeys returns relationships grouped by lower-cased source
// table name.
func (in *Introspector) listForeignKeys(ctx context.Context) (map[string][]schema.Relationship, error) {
	switch in.dialect {
	case schema.DialectPostgres:
		return in.listForeignKeysQuery(ctx, `
			SELECT kcu.table_name, kcu.column_name, ccu.table_name, ccu.column_name
			FROM information_schema.table_constraints tc
			JOIN information_schema.key_column_usage kcu
				ON tc.constraint_name = kcu.constraint_name
				AND tc.table_schema = kcu.table_schema
			JOIN information_schema.constraint_column_usage ccu
				ON tc.constraint_name = ccu.constraint_name
				AND tc.table_schema = ccu.table_schema
			WHERE tc.constraint_type = 'FOREIGN KEY'
			  AND tc.table_schema = current_schema()`)
	case schema.DialectMySQL, schema.DialectMariaDB:
		return in.listForeignKeysQuery(ctx, `
			SELECT table_name, column_name, referenced_table_name, referenced_column_name
			FROM information_schema.key_column_usage
			WHERE table_schema = DATABASE()
			  AND referenced_table_name IS NOT NULL`)
	case schema.DialectSQLite:
		return in.listSQLiteForeignKeys(ctx)
	}
	return nil, nil
}

func (in *Introspector) listForeignKeysQuery(ctx context.Context, query string) (map[string][]schema.Relationship, error) {
	rows, err := in.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query foreign keys: %w", err)
	}
	defer rows.Close()

	fks := make(map[string][]schema.Relationship)
	for rows.Next() {
		var sourceTable, sourceColumn, targetTable, targetColumn string
		if err := rows.Scan(&sourceTable, &sourceColumn, &targetTable, &targetColumn); err != nil {
			return nil, fmt.Errorf("scan foreign key: %w", err)
		}
		key := strings.ToLower(sourceTable)
		fks[key] = append(fks[key], schema.Relationship{
			Column:        sourceColumn,
			ForeignTable:  targetTable,
			ForeignColumn: targetColumn,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate foreign keys: %w", err)
	}

	return fks, nil
}

// listSQLiteForeignKeys walks pragma_foreign_key_list per table, since
// sqlite has no database-wide constraint catalog.
func (in *Introspector) listSQLiteForeignKeys(ctx context.Context) (map[string][]schema.Relationship, error) {
	tables, err := in.listTables(ctx)
	if err != nil {
		return nil, err
	}

	fks := make(map[string][]schema.Relationship)
	for _, t := range tables {
		rows, err := in.db.QueryContext(ctx,
			`SELECT "table", "from", "to" FROM pragma_foreign_key_list(?)`, t.name)
		if err != nil {
			return nil, fmt.Errorf("query foreign keys of %s: %w", t.name, err)
		}

		key := strings.ToLower(t.name)
		for rows.Next() {
			var targetTable, sourceColumn string
			// "to" is NULL when the reference names only the parent
			// table (REFERENCES parent), meaning its primary key.
			var targetColumn sql.NullString
			if err := rows.Scan(&targetTable, &sourceColumn, &targetColumn); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan foreign key of %s: %w", t.name, err)
			}

			foreignColumn := targetColumn.String
			if !targetColumn.Valid {
				foreignColumn, err = in.sqlitePrimaryKey(ctx, targetTable)
				if err != nil {
					rows.Close()
					return nil, err
				}
			}

			fks[key] = append(fks[key], schema.Relationship{
				Column:        sourceColumn,
				ForeignTable:  targetTable,
				ForeignColumn: foreignColumn,
			})
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return nil, fmt.Errorf("iterate foreign keys of %s: %w", t.name, err)
		}
		rows.Close()
	}

	return fks, nil
}

// sqlitePrimaryKey returns the first primary-key column of a table, or
// "" when the table has none (implicit rowid).
func (in *Introspector) sqlitePrimaryKey(ctx context.Context, tableName string) (string, error) {
	var name string
	err := in.db.GetContext(ctx, &name,
		`SELECT name FROM pragma_table_info(?) WHERE pk = 1`, tableName)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("resolve primary key of %s: %w", tableName, err)
	}
	return name, nil
}
