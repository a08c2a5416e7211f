// Package types defines the contracts between pipeline stages. Each
// stage package provides a concrete implementation and asserts
// conformance at compile time.
package types

import (
	"context"
	"time"

	"github.com/xhad/pulse/internal/models"
)

// CommentCollector gathers YouTube comments for the study window.
type CommentCollector interface {
	Collect(ctx context.Context, keywords []string, start, end time.Time) ([]models.Comment, error)
}

// ArticleCollector gathers news articles for the study window.
type ArticleCollector interface {
	Collect(ctx context.Context, keywords []string, start, end time.Time) ([]models.Article, error)
}

// Cleaner normalizes raw records into analysis-ready text.
type Cleaner interface {
	Clean(records []models.Record) ([]models.Record, error)
}

// Scorer assigns a sentiment score and label to a single record.
type Scorer interface {
	Score(ctx context.Context, rec *models.Record) error
	Name() string
}

// TopicModeller fits a topic model over the corpus and tags each
// record with its dominant topic.
type TopicModeller interface {
	Fit(records []models.Record) ([]models.Topic, []models.Record, error)
}

// Forecaster projects a daily sentiment series forward.
type Forecaster interface {
	Forecast(series []models.SentimentPoint, horizon int) ([]models.ForecastPoint, error)
}

// CorpusStore persists scored records with embeddings and serves
// nearest-neighbour queries over them.
type CorpusStore interface {
	StoreRecords(ctx context.Context, runID string, records []models.Record) error
	Similar(ctx context.Context, embedding []float32, limit int) ([]models.Record, error)
	Close()
}
