package dbprobe

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql" // for mariadb
	_ "github.com/lib/pq"              // for postgresql
	_ "modernc.org/sqlite"             // for sqlite

	"phpclientgen/internal/types"
)

// ErrTableNotFound is returned when the probed table has no columns
var ErrTableNotFound = errors.New("table not found")

// Config holds database connection configuration
type Config struct {
	Type types.DatabaseType
	DSN  string
}

// ColumnInfo represents information about a database column
type ColumnInfo struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Nullable  bool   `json:"nullable"`
	IsPrimary bool   `json:"isPrimary"`
}

// Prober reads table layouts from a live database
type Prober struct {
	db      *sql.DB
	dialect dialect
}

type dialect struct {
	driver       string
	tablesQuery  string
	columnsQuery string
}

var dialects = map[types.DatabaseType]dialect{
	types.DatabaseMariaDB: {
		driver: "mysql",
		tablesQuery: `
			SELECT table_name
			FROM information_schema.tables
			WHERE table_schema = DATABASE()
			AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columnsQuery: `
			SELECT column_name, column_type, is_nullable = 'YES', column_key = 'PRI'
			FROM information_schema.columns
			WHERE table_schema = DATABASE()
			AND LOWER(table_name) = LOWER(?)
			ORDER BY ordinal_position`,
	},
	types.DatabasePostgreSQL: {
		driver: "postgres",
		tablesQuery: `
			SELECT table_name
			FROM information_schema.tables
			WHERE table_schema = current_schema()
			AND table_type = 'BASE TABLE'
			ORDER BY table_name`,
		columnsQuery: `
			SELECT
				c.column_name,
				c.data_type,
				c.is_nullable = 'YES',
				EXISTS (
					SELECT 1
					FROM information_schema.table_constraints tc
					JOIN information_schema.key_column_usage kcu
						ON tc.constraint_name = kcu.constraint_name
						AND tc.table_schema = kcu.table_schema
					WHERE tc.constraint_type = 'PRIMARY KEY'
					AND tc.table_schema = c.table_schema
					AND tc.table_name = c.table_name
					AND kcu.column_name = c.column_name
				)
			FROM information_schema.columns c
			WHERE c.table_schema = current_schema()
			AND LOWER(c.table_name) = LOWER($1)
			ORDER BY c.ordinal_position`,
	},
	types.DatabaseSQLite: {
		driver: "sqlite",
		tablesQuery: `
			SELECT name
			FROM sqlite_master
			WHERE type = 'table'
			AND name NOT LIKE 'sqlite_%'
			ORDER BY name`,
		columnsQuery: `
			SELECT name, type, "notnull" = 0, pk > 0
			FROM pragma_table_info(?)
			ORDER BY cid`,
	},
}

// Open connects to the database and verifies the connection
func Open(ctx context.Context, cfg Config) (*Prober, error) {
	d, ok := dialects[cfg.Type]
	if !ok {
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Type)
	}
	if cfg.DSN == "" {
		return nil, errors.New("database DSN is required")
	}

	db, err := sql.Open(d.driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.Type == types.DatabaseSQLite && strings.Contains(cfg.DSN, ":memory:") {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &Prober{db: db, dialect: d}, nil
}

// Close closes the database connection
func (p *Prober) Close() error {
	return p.db.Close()
}

// Tables lists the base tables of the current schema
func (p *Prober) Tables(ctx context.Context) ([]string, error) {
	rows, err := p.db.QueryContext(ctx, p.dialect.tablesQuery)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	tables := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// Columns returns the columns of table in declaration order
func (p *Prober) Columns(ctx context.Context, table string) ([]ColumnInfo, error) {
	rows, err := p.db.QueryContext(ctx, p.dialect.columnsQuery, table)
	if err != nil {
		return nil, fmt.Errorf("failed to read columns of %s: %w", table, err)
	}
	defer rows.Close()

	var columns []ColumnInfo
	for rows.Next() {
		var col ColumnInfo
		if err := rows.Scan(&col.Name, &col.Type, &col.Nullable, &col.IsPrimary); err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrTableNotFound, table)
	}
	return columns, nil
}

// ColumnNames probes every table and returns its column names keyed by table.
// Tables that do not exist are skipped.
func (p *Prober) ColumnNames(ctx context.Context, tables []string) (map[string][]string, error) {
	out := make(map[string][]string, len(tables))
	for _, table := range tables {
		if _, done := out[table]; done || table == "" {
			continue
		}
		cols, err := p.Columns(ctx, table)
		if errors.Is(err, ErrTableNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		names := make([]string, len(cols))
		for i, c := range cols {
			names[i] = c.Name
		}
		out[table] = names
	}
	return out, nil
}
