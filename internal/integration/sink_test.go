//go:build integration

package integration_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/postgres"
	"github.com/couchcryptid/restaurant-staging-etl/internal/adapter/staging"
	"github.com/couchcryptid/restaurant-staging-etl/internal/domain"
	"github.com/couchcryptid/restaurant-staging-etl/internal/observability"
	"github.com/couchcryptid/restaurant-staging-etl/internal/pipeline"
)

// TestTransformAndLoad runs the offline stages over the fixture documents and
// loads every staging table into a real PostgreSQL instance.
func TestTransformAndLoad(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url := startPostgres(ctx, t)
	cfg := stagedConfig(t)
	metrics := observability.NewMetricsForTesting()

	loader, err := postgres.NewLoader(ctx, url, metrics, discardLogger())
	require.NoError(t, err)
	t.Cleanup(loader.Close)

	transform, err := pipeline.Select([]string{"transform"}, false)
	require.NoError(t, err)
	load, err := pipeline.Select([]string{pipeline.StageLoad}, false)
	require.NoError(t, err)

	p := pipeline.New(cfg, discardLogger(), metrics, pipeline.WithSink(loader))
	require.NoError(t, p.Run(ctx, transform))
	require.NoError(t, p.Run(ctx, load))

	conn, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })

	want := map[string]int{
		staging.RestaurantsTable:     7,
		staging.CategoriesTable:      10,
		staging.CuisineMapTable:      3,
		staging.HoursTable:           6,
		staging.IndianTable:          3,
		staging.LateNightTable:       2,
		staging.LateNightIndianTable: 1,
	}
	for table, n := range want {
		var got int
		require.NoError(t, conn.QueryRow(ctx, "SELECT count(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&got), table)
		assert.Equal(t, n, got, table)
	}

	var (
		name      string
		distance  *float64
		lateNight bool
	)
	require.NoError(t, conn.QueryRow(ctx,
		`SELECT name, distance_to_ucf_miles FROM late_night_indian_restaurants WHERE source_id = 'r3'`,
	).Scan(&name, &distance))
	assert.NotEmpty(t, name)
	require.NotNil(t, distance)

	require.NoError(t, conn.QueryRow(ctx,
		`SELECT bool_or(is_late_night_11pm) FROM staging_hours WHERE source_id = 'r2'`,
	).Scan(&lateNight))
	assert.True(t, lateNight)
}

// TestLoadAll_ReplacesAndSkips verifies that a second load replaces rows
// rather than appending, and that absent CSVs are skipped.
func TestLoadAll_ReplacesAndSkips(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	url := startPostgres(ctx, t)
	dir := t.TempDir()

	loader, err := postgres.NewLoader(ctx, url, observability.NewMetricsForTesting(), discardLogger())
	require.NoError(t, err)
	t.Cleanup(loader.Close)
	require.NoError(t, loader.CheckReadiness(ctx))

	require.NoError(t, staging.LateNight.Write(dir, nil))

	schemas := []staging.Schema{staging.LateNight.Schema(), staging.Indian.Schema()}
	res, err := loader.LoadAll(ctx, dir, schemas)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{staging.LateNightTable: 0}, res.Loaded)
	assert.Equal(t, []string{staging.IndianTable}, res.Skipped)

	require.NoError(t, staging.LateNight.Write(dir, lateNightRows()))
	for range 2 {
		res, err = loader.LoadAll(ctx, dir, schemas[:1])
		require.NoError(t, err)
		assert.Equal(t, int64(2), res.Loaded[staging.LateNightTable])
	}

	conn, err := pgx.Connect(ctx, url)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close(context.Background()) })

	var count int
	require.NoError(t, conn.QueryRow(ctx, `SELECT count(*) FROM late_night_restaurants`).Scan(&count))
	assert.Equal(t, 2, count)

	var got *float64
	require.NoError(t, conn.QueryRow(ctx, `SELECT rating FROM late_night_restaurants WHERE source_id = 'b'`).Scan(&got))
	assert.Nil(t, got, "empty cells load as NULL")
}

func lateNightRows() []domain.Restaurant {
	rating := 4.5
	return []domain.Restaurant{
		{SourceID: "a", Name: "Curry House", Rating: &rating, URL: "https://example.com/a"},
		{SourceID: "b", Name: "Night Owl Diner"},
	}
}
