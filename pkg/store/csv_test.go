package store_test

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/pkg/store"
)

func TestDatasetComments(t *testing.T) {
	d := store.NewDataset(t.TempDir())

	comments := []models.Comment{
		{
			VideoID:          "vid1",
			VideoTitle:       "AI explained",
			Channel:          "Tech Channel",
			VideoPublishedAt: time.Date(2023, 5, 1, 10, 0, 0, 0, time.UTC),
			CommentID:        "c1",
			Text:             "This is great, \"really\" great",
			Likes:            42,
			PublishedAt:      time.Date(2023, 5, 2, 8, 30, 0, 0, time.UTC),
			Keyword:          "generative ai",
		},
		{
			VideoID:   "vid2",
			CommentID: "c2",
			Text:      "comment with, commas\nand newlines",
			Keyword:   "chatgpt",
		},
	}

	require.NoError(t, d.WriteComments(comments))

	got, err := d.ReadComments()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, comments[0], got[0])
	assert.Equal(t, "comment with, commas\nand newlines", got[1].Text)
	assert.True(t, got[1].PublishedAt.IsZero())
}

func TestDatasetArticlesTone(t *testing.T) {
	d := store.NewDataset(t.TempDir())

	articles := []models.Article{
		{
			URL:          "https://example.com/story",
			Title:        "AI policy shifts",
			SourceDomain: "example.com",
			Language:     "English",
			SeenDate:     time.Date(2023, 6, 15, 12, 0, 0, 0, time.UTC),
			Tone:         -2.5,
			HasTone:      true,
			Keyword:      "artificial intelligence",
		},
		{
			URL:     "https://example.com/other",
			Keyword: "artificial intelligence",
			// no tone reported
		},
	}

	require.NoError(t, d.WriteArticles(articles))

	got, err := d.ReadArticles()
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.True(t, got[0].HasTone)
	assert.Equal(t, -2.5, got[0].Tone)
	assert.False(t, got[1].HasTone)
}

func TestDatasetRecordsRoundTrip(t *testing.T) {
	d := store.NewDataset(t.TempDir())

	records := []models.Record{
		{
			ID:          "youtube.comment:c1",
			Source:      models.SourceYouTube,
			Text:        "AI is amazing!",
			CleanText:   "ai is amazing!",
			PublishedAt: time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
			Keyword:     "generative ai",
			Likes:       7,
			Lang:        "en",
			Compound:    0.6,
			Positive:    0.7,
			Neutral:     0.3,
			Label:       "positive",
			Scored:      true,
			TopicID:     2,
			TopicLabel:  "AI tools",
		},
	}

	require.NoError(t, d.WriteRecords(store.ScoredFile, records))

	got, err := d.ReadRecords(store.ScoredFile)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, records[0], got[0])
}

func TestDatasetMissingFile(t *testing.T) {
	d := store.NewDataset(t.TempDir())

	_, err := d.ReadRecords(store.RecordsFile)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "did the previous stage run")
}

func TestDatasetSeries(t *testing.T) {
	d := store.NewDataset(t.TempDir())

	series := []models.SentimentPoint{
		{
			Date:          time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC),
			Source:        models.SourceYouTube,
			Count:         12,
			MeanCompound:  0.25,
			PositiveRatio: 0.5,
			NegativeRatio: 0.25,
			NeutralRatio:  0.25,
		},
	}

	require.NoError(t, d.WriteSeries(series))

	got, err := d.ReadSeries()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, series[0], got[0])
}

func TestDatasetCreatesDir(t *testing.T) {
	dir := t.TempDir() + "/nested/data"
	d := store.NewDataset(dir)

	require.NoError(t, d.WriteForecast([]models.ForecastPoint{
		{Date: time.Date(2023, 7, 1, 0, 0, 0, 0, time.UTC), Value: 0.1, Lower: 0.0, Upper: 0.2},
	}))

	_, err := os.Stat(d.Path(store.ForecastFile))
	require.NoError(t, err)
}
