package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/pkg/store"
)

type stubEmbedder struct{}

func (stubEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i := range texts {
		vec := make([]float32, 768)
		vec[i%768] = 1
		vectors[i] = vec
	}
	return vectors, nil
}

func TestNewRunID(t *testing.T) {
	a := store.NewRunID()
	b := store.NewRunID()
	assert.NotEmpty(t, a)
	assert.NotEqual(t, a, b)
}

func TestCorpusStoreRequiresConnString(t *testing.T) {
	_, err := store.NewWithConfig(store.CorpusStoreConfig{}, stubEmbedder{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection string")
}

// Requires a running Postgres with the pgvector extension.
func TestCorpusStore(t *testing.T) {
	connString := os.Getenv("TEST_DATABASE_URL")
	if connString == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	config := store.CorpusStoreConfig{
		ConnString: connString,
		TableName:  "test_records",
		VectorDim:  768,
	}

	s, err := store.NewWithConfig(config, stubEmbedder{})
	require.NoError(t, err)
	defer s.Close()

	records := []models.Record{
		{
			ID:          "youtube.comment:c1",
			Source:      models.SourceYouTube,
			CleanText:   "generative ai is moving fast",
			PublishedAt: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
			Keyword:     "generative ai",
			Compound:    0.4,
			Label:       "positive",
			Scored:      true,
		},
		{
			ID:          "gdelt.article:https://example.com/story:ai",
			Source:      models.SourceGDELT,
			CleanText:   "regulators weigh new rules for ai systems",
			PublishedAt: time.Date(2023, 5, 2, 0, 0, 0, 0, time.UTC),
			Keyword:     "ai",
			Compound:    -0.1,
			Label:       "negative",
			Scored:      true,
		},
	}

	runID := store.NewRunID()
	require.NoError(t, s.StoreRecords(context.Background(), runID, records))

	// Re-storing the same ids must not fail or duplicate rows.
	require.NoError(t, s.StoreRecords(context.Background(), runID, records))

	query := make([]float32, 768)
	query[0] = 1

	results, err := s.Similar(context.Background(), query, 1)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, records[0].ID, results[0].ID)
	assert.Equal(t, records[0].Keyword, results[0].Keyword)
}
