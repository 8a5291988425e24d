// Package postgres loads staging tables into PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/staging"
	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
)

// Loader replaces sink tables with the contents of staging CSV files.
type Loader struct {
	pool    *pgxpool.Pool
	metrics *observability.Metrics
	logger  *slog.Logger
}

// LoadResult reports what a LoadAll call did.
type LoadResult struct {
	Loaded  map[string]int64
	Skipped []string
}

// NewLoader connects to the database at url and verifies the connection.
func NewLoader(ctx context.Context, url string, metrics *observability.Metrics, logger *slog.Logger) (*Loader, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Loader{pool: pool, metrics: metrics, logger: logger}, nil
}

// Close releases the connection pool.
func (l *Loader) Close() {
	l.pool.Close()
}

// CheckReadiness pings the database.
func (l *Loader) CheckReadiness(ctx context.Context) error {
	return l.pool.Ping(ctx)
}

// LoadAll replaces every table in schemas from the CSV files under dir.
// Tables whose CSV file does not exist are skipped.
func (l *Loader) LoadAll(ctx context.Context, dir string, schemas []staging.Schema) (LoadResult, error) {
	res := LoadResult{Loaded: make(map[string]int64)}
	for _, s := range schemas {
		if !s.Exists(dir) {
			l.logger.Warn("staging table missing, skipping", "table", s.Name, "path", s.Path(dir))
			res.Skipped = append(res.Skipped, s.Name)
			continue
		}

		rows, err := s.ReadValues(dir)
		if err != nil {
			return res, err
		}
		n, err := l.ReplaceTable(ctx, s, rows)
		if err != nil {
			return res, err
		}
		res.Loaded[s.Name] = n
		l.logger.Info("table loaded", "table", s.Name, "rows", n)
	}
	return res, nil
}

// ReplaceTable drops and recreates the table described by s and bulk-copies
// rows into it, all in one transaction.
func (l *Loader) ReplaceTable(ctx context.Context, s staging.Schema, rows [][]any) (int64, error) {
	if len(s.Columns) == 0 {
		return 0, errors.New("replace table: schema has no columns")
	}

	var copied int64
	err := pgx.BeginFunc(ctx, l.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, dropTableSQL(s)); err != nil {
			return fmt.Errorf("drop table %s: %w", s.Name, err)
		}
		if _, err := tx.Exec(ctx, createTableSQL(s)); err != nil {
			return fmt.Errorf("create table %s: %w", s.Name, err)
		}

		n, err := tx.CopyFrom(ctx, pgx.Identifier{s.Name}, s.Header(), pgx.CopyFromRows(rows))
		if err != nil {
			return fmt.Errorf("copy into %s: %w", s.Name, err)
		}
		copied = n
		return nil
	})
	if err != nil {
		return 0, err
	}

	l.metrics.RowsLoaded.WithLabelValues(s.Name).Add(float64(copied))
	return copied, nil
}

func dropTableSQL(s staging.Schema) string {
	return "DROP TABLE IF EXISTS " + pgx.Identifier{s.Name}.Sanitize()
}

func createTableSQL(s staging.Schema) string {
	cols := make([]string, len(s.Columns))
	for i, c := range s.Columns {
		cols[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.Kind.SQLType()
	}
	return fmt.Sprintf("CREATE TABLE %s (%s)", pgx.Identifier{s.Name}.Sanitize(), strings.Join(cols, ", "))
}
