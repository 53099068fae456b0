package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dh1921/movie-pipeline/pkg/apperrors"
	"github.com/dh1921/movie-pipeline/pkg/config"
	"github.com/dh1921/movie-pipeline/pkg/models"
)

const moviesCSV = `movieId,title,genres
1,Toy Story (1995),Adventure|Animation
2,Jumanji (1995),Adventure|Children
3,Heat,Action|Crime
4,Casino (1995),Crime|Drama
`

const ratingsCSV = `userId,movieId,rating,timestamp
1,1,4.0,964982703
1,2,3.5,964981247
2,1,5.0,964982931
2,3,4.5,964983815
3,4,2.0,964984100
`

func writeInputs(t *testing.T, movies, ratings string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	mp := filepath.Join(dir, "movies.csv")
	rp := filepath.Join(dir, "ratings.csv")
	require.NoError(t, os.WriteFile(mp, []byte(movies), 0o600))
	require.NoError(t, os.WriteFile(rp, []byte(ratings), 0o600))
	return mp, rp
}

func newExtractor(t *testing.T, movies, ratings string, sample config.SampleConfig) *Extractor {
	t.Helper()
	mp, rp := writeInputs(t, movies, ratings)
	cfg := &config.Config{MoviesCSV: mp, RatingsCSV: rp, Sample: sample}
	return New(cfg, zap.NewNop())
}

func TestExtractWithoutSampling(t *testing.T) {
	e := newExtractor(t, moviesCSV, ratingsCSV, config.SampleConfig{Enabled: false})

	movies, ratings, err := e.Extract()
	require.NoError(t, err)

	require.Len(t, movies, 4)
	require.Len(t, ratings, 5)
	assert.Equal(t, models.Movie{MovieID: 1, Title: "Toy Story (1995)", Genres: "Adventure|Animation"}, movies[0])
	assert.Equal(t, models.Rating{UserID: 2, MovieID: 3, Rating: 4.5, Timestamp: 964983815}, ratings[3])
}

func TestExtractSamplingIsDeterministic(t *testing.T) {
	sample := config.SampleConfig{Enabled: true, Size: 2, Seed: 1}

	first, _, err := newExtractor(t, moviesCSV, ratingsCSV, sample).Extract()
	require.NoError(t, err)
	second, _, err := newExtractor(t, moviesCSV, ratingsCSV, sample).Extract()
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
}

func TestExtractSamplingFiltersRatings(t *testing.T) {
	sample := config.SampleConfig{Enabled: true, Size: 2, Seed: 1}
	e := newExtractor(t, moviesCSV, ratingsCSV, sample)

	movies, ratings, err := e.Extract()
	require.NoError(t, err)

	keep := make(map[int]bool)
	for _, m := range movies {
		keep[m.MovieID] = true
	}
	for _, r := range ratings {
		assert.True(t, keep[r.MovieID], "rating for movie %d outside sampled set", r.MovieID)
	}
}

func TestExtractSampleTooLarge(t *testing.T) {
	sample := config.SampleConfig{Enabled: true, Size: 10, Seed: 1}
	e := newExtractor(t, moviesCSV, ratingsCSV, sample)

	_, _, err := e.Extract()
	assert.ErrorIs(t, err, apperrors.ErrSampleTooLarge)
}

func TestExtractHeaderResolvedByName(t *testing.T) {
	// Different column order and casing than the default layout.
	reordered := `title,genres,movieID
Toy Story (1995),Adventure,1
`
	e := newExtractor(t, reordered, ratingsCSV, config.SampleConfig{Enabled: false})

	movies, _, err := e.Extract()
	require.NoError(t, err)
	require.Len(t, movies, 1)
	assert.Equal(t, 1, movies[0].MovieID)
	assert.Equal(t, "Toy Story (1995)", movies[0].Title)
}

func TestExtractMissingColumn(t *testing.T) {
	e := newExtractor(t, "id,name\n1,x\n", ratingsCSV, config.SampleConfig{Enabled: false})

	_, _, err := e.Extract()
	assert.ErrorIs(t, err, apperrors.ErrMissingColumn)
}

func TestExtractMalformedRow(t *testing.T) {
	bad := `movieId,title,genres
abc,Toy Story (1995),Adventure
`
	e := newExtractor(t, bad, ratingsCSV, config.SampleConfig{Enabled: false})

	_, _, err := e.Extract()
	assert.Error(t, err)
}

func TestExtractMissingFile(t *testing.T) {
	cfg := &config.Config{
		MoviesCSV:  filepath.Join(t.TempDir(), "absent.csv"),
		RatingsCSV: filepath.Join(t.TempDir(), "absent.csv"),
	}
	_, _, err := New(cfg, zap.NewNop()).Extract()
	assert.Error(t, err)
}
