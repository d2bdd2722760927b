package db

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	_ "github.com/duckdb/duckdb-go/v2"
	"github.com/google/uuid"

	"github.com/nickyhof/CommitView/core"
)

// Engine builds tables in a DuckDB database.
type Engine struct {
	db *sql.DB

	tables atomic.Int64
}

// Open opens a DuckDB database. An empty dsn opens an in-memory database.
func Open(dsn string) (*Engine, error) {
	conn, err := sql.Open("duckdb", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}
	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to connect to duckdb: %w", err)
	}
	return &Engine{db: conn}, nil
}

// New wraps an open DuckDB connection pool.
func New(conn *sql.DB) *Engine {
	return &Engine{db: conn}
}

// DB returns the underlying connection pool.
func (e *Engine) DB() *sql.DB {
	return e.db
}

// LiveTables returns the number of tables not yet deleted.
func (e *Engine) LiveTables() int64 {
	return e.tables.Load()
}

func (e *Engine) Close() error {
	return e.db.Close()
}

func (e *Engine) Table(ctx context.Context, data *core.Data, opts core.TableOptions) (core.TableHandle, error) {
	if data == nil || len(data.Columns) == 0 {
		return nil, core.ErrEmptyData
	}
	if opts.Index != "" && !slices.Contains(data.Columns, opts.Index) {
		return nil, fmt.Errorf("%w: index %s", core.ErrUnknownColumn, opts.Index)
	}

	t := &Table{
		engine:  e,
		name:    "t_" + strings.ReplaceAll(uuid.NewString(), "-", ""),
		columns: slices.Clone(data.Columns),
		schema:  core.InferSchema(data),
		index:   opts.Index,
		views:   map[*View]struct{}{},
	}

	defs := make([]string, 0, len(t.columns)+1)
	for _, c := range t.columns {
		defs = append(defs, quoteIdent(c)+" "+sqlType(t.schema[c]))
	}
	if t.index != "" {
		defs = append(defs, "PRIMARY KEY ("+quoteIdent(t.index)+")")
	}
	start := time.Now()
	if _, err := e.db.ExecContext(ctx, fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(t.name), strings.Join(defs, ", "))); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	if err := t.insert(ctx, data); err != nil {
		e.db.ExecContext(context.Background(), "DROP TABLE IF EXISTS "+quoteIdent(t.name))
		return nil, err
	}
	e.tables.Add(1)
	core.Debugf(ctx, "duckdb: created table %s with %d rows in %v", t.name, data.Len(), time.Since(start))
	return t, nil
}
