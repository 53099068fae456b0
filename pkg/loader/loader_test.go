package loader

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dh1921/movie-pipeline/pkg/database"
	"github.com/dh1921/movie-pipeline/pkg/models"
	"github.com/dh1921/movie-pipeline/pkg/testhelpers"
)

func setupLoader(t *testing.T) (Loader, *database.DB) {
	t.Helper()

	testDB := testhelpers.GetTestDB(t)
	db := &database.DB{Pool: testDB.Pool}

	// Each test starts from an empty store.
	_, err := db.Exec(context.Background(), "TRUNCATE movies, ratings, pipeline_runs CASCADE")
	require.NoError(t, err)

	return New(db, zap.NewNop()), db
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int) *int           { return &v }

func testRun(movies, ratings int) models.RunRecord {
	now := time.Now().UTC()
	return models.RunRecord{
		ID:            uuid.New(),
		StartedAt:     now.Add(-time.Minute),
		FinishedAt:    now,
		MoviesLoaded:  movies,
		RatingsLoaded: ratings,
		Sampled:       true,
	}
}

func testBatch() ([]models.EnrichedMovie, []models.Rating) {
	movies := []models.EnrichedMovie{
		{MovieID: 1, Title: "Toy Story", Year: intPtr(1995), Director: "John Lasseter",
			AvgRating: floatPtr(4.5), Genres: "Adventure, Animation", Decade: intPtr(1990)},
		{MovieID: 3, Title: "Heat", Director: "Unknown", Genres: "Action, Crime"},
	}
	ratings := []models.Rating{
		{UserID: 1, MovieID: 1, Rating: 4.0, Timestamp: 100},
		{UserID: 2, MovieID: 1, Rating: 5.0, Timestamp: 200},
		{UserID: 1, MovieID: 3, Rating: 3.5, Timestamp: 300},
	}
	return movies, ratings
}

func countRows(t *testing.T, db *database.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestLoadPersistsBatch(t *testing.T) {
	l, db := setupLoader(t)
	ctx := context.Background()

	movies, ratings := testBatch()
	require.NoError(t, l.Load(ctx, testRun(len(movies), len(ratings)), movies, ratings))

	assert.Equal(t, 2, countRows(t, db, "movies"))
	assert.Equal(t, 3, countRows(t, db, "ratings"))
	assert.Equal(t, 1, countRows(t, db, "pipeline_runs"))

	var title, director string
	var year, decade *int
	var rating *float64
	require.NoError(t, db.QueryRow(ctx,
		"SELECT title, director, year, decade, rating::float8 FROM movies WHERE movie_id = 1").
		Scan(&title, &director, &year, &decade, &rating))
	assert.Equal(t, "Toy Story", title)
	assert.Equal(t, "John Lasseter", director)
	require.NotNil(t, year)
	assert.Equal(t, 1995, *year)
	require.NotNil(t, decade)
	assert.Equal(t, 1990, *decade)
	require.NotNil(t, rating)
	assert.InDelta(t, 4.5, *rating, 1e-9)

	// The movie with no year/ratings keeps nulls, never a zero value.
	require.NoError(t, db.QueryRow(ctx,
		"SELECT title, director, year, decade, rating::float8 FROM movies WHERE movie_id = 3").
		Scan(&title, &director, &year, &decade, &rating))
	assert.Equal(t, "Unknown", director)
	assert.Nil(t, year)
	assert.Nil(t, decade)
	assert.Nil(t, rating)
}

func TestLoadIsIdempotent(t *testing.T) {
	l, db := setupLoader(t)
	ctx := context.Background()

	movies, ratings := testBatch()
	require.NoError(t, l.Load(ctx, testRun(len(movies), len(ratings)), movies, ratings))
	require.NoError(t, l.Load(ctx, testRun(len(movies), len(ratings)), movies, ratings))

	assert.Equal(t, 2, countRows(t, db, "movies"))
	assert.Equal(t, 3, countRows(t, db, "ratings"))
	// Run records are per-run, not idempotent rows.
	assert.Equal(t, 2, countRows(t, db, "pipeline_runs"))
}

func TestLoadUpdatesExistingRows(t *testing.T) {
	l, db := setupLoader(t)
	ctx := context.Background()

	movies, ratings := testBatch()
	require.NoError(t, l.Load(ctx, testRun(len(movies), len(ratings)), movies, ratings))

	movies[1].Director = "Michael Mann"
	require.NoError(t, l.Load(ctx, testRun(len(movies), len(ratings)), movies, ratings))

	var director string
	require.NoError(t, db.QueryRow(ctx,
		"SELECT director FROM movies WHERE movie_id = 3").Scan(&director))
	assert.Equal(t, "Michael Mann", director)
	assert.Equal(t, 2, countRows(t, db, "movies"))
}

func TestLoadLaterTimestampWins(t *testing.T) {
	l, db := setupLoader(t)
	ctx := context.Background()

	movies, _ := testBatch()
	newer := []models.Rating{{UserID: 1, MovieID: 1, Rating: 5.0, Timestamp: 500}}
	require.NoError(t, l.Load(ctx, testRun(len(movies), 1), movies, newer))

	// An older observation for the same (user, movie) must not overwrite.
	older := []models.Rating{{UserID: 1, MovieID: 1, Rating: 1.0, Timestamp: 50}}
	require.NoError(t, l.Load(ctx, testRun(len(movies), 1), movies, older))

	var rating float64
	var ratedAt int64
	require.NoError(t, db.QueryRow(ctx,
		"SELECT rating::float8, rated_at FROM ratings WHERE user_id = 1 AND movie_id = 1").
		Scan(&rating, &ratedAt))
	assert.InDelta(t, 5.0, rating, 1e-9)
	assert.Equal(t, int64(500), ratedAt)
}

func TestLoadRollsBackWholeBatchOnFailure(t *testing.T) {
	l, db := setupLoader(t)
	ctx := context.Background()

	movies, _ := testBatch()
	// Rating referencing a movie absent from both batch and table.
	bad := []models.Rating{{UserID: 1, MovieID: 999, Rating: 4.0, Timestamp: 100}}

	err := l.Load(ctx, testRun(len(movies), 1), movies, bad)
	require.Error(t, err)

	// Nothing from the failed batch is visible, movies included.
	assert.Equal(t, 0, countRows(t, db, "movies"))
	assert.Equal(t, 0, countRows(t, db, "ratings"))
	assert.Equal(t, 0, countRows(t, db, "pipeline_runs"))
}
