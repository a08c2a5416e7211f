package config

import (
	"fmt"
	"net/url"
	"time"
)

type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (c *Config) Validate() []ValidationError {
	var errors []ValidationError

	// Validate study config
	if len(c.Study.Keywords) == 0 {
		errors = append(errors, ValidationError{
			Field:   "study.keywords",
			Message: "at least one keyword is required",
		})
	}

	start, startErr := time.Parse("2006-01-02", c.Study.StartDate)
	if startErr != nil {
		errors = append(errors, ValidationError{
			Field:   "study.start_date",
			Message: "must be YYYY-MM-DD",
		})
	}

	end, endErr := time.Parse("2006-01-02", c.Study.EndDate)
	if endErr != nil {
		errors = append(errors, ValidationError{
			Field:   "study.end_date",
			Message: "must be YYYY-MM-DD",
		})
	}

	if startErr == nil && endErr == nil && end.Before(start) {
		errors = append(errors, ValidationError{
			Field:   "study.end_date",
			Message: "end_date must not precede start_date",
		})
	}

	// Validate collector config
	if c.YouTube.MaxVideosPerQuery < 1 {
		errors = append(errors, ValidationError{
			Field:   "youtube.max_videos_per_query",
			Message: "max_videos_per_query must be positive",
		})
	}

	if c.YouTube.MaxCommentsPerVid < 1 {
		errors = append(errors, ValidationError{
			Field:   "youtube.max_comments_per_video",
			Message: "max_comments_per_video must be positive",
		})
	}

	if c.YouTube.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "youtube.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	if c.GDELT.MaxRecords < 1 || c.GDELT.MaxRecords > 250 {
		errors = append(errors, ValidationError{
			Field:   "gdelt.max_records",
			Message: "max_records must be between 1 and 250",
		})
	}

	if c.GDELT.RateLimit <= 0 {
		errors = append(errors, ValidationError{
			Field:   "gdelt.rate_limit",
			Message: "rate_limit must be positive",
		})
	}

	// Validate sentiment config
	switch c.Sentiment.Engine {
	case "vader", "llm":
	default:
		errors = append(errors, ValidationError{
			Field:   "sentiment.engine",
			Message: fmt.Sprintf("unknown engine: %s", c.Sentiment.Engine),
		})
	}

	switch c.Sentiment.Bucket {
	case "day", "week":
	default:
		errors = append(errors, ValidationError{
			Field:   "sentiment.bucket",
			Message: fmt.Sprintf("unknown bucket: %s", c.Sentiment.Bucket),
		})
	}

	if (c.Sentiment.LexiconPath == "") != (c.Sentiment.EmojiLexiconPath == "") {
		errors = append(errors, ValidationError{
			Field:   "sentiment.lexicon_path",
			Message: "lexicon_path and emoji_lexicon_path must be set together",
		})
	}

	if c.Sentiment.Positive <= c.Sentiment.Negative {
		errors = append(errors, ValidationError{
			Field:   "sentiment.positive_threshold",
			Message: "positive_threshold must exceed negative_threshold",
		})
	}

	// Validate topics config
	if c.Topics.NumTopics < 2 {
		errors = append(errors, ValidationError{
			Field:   "topics.num_topics",
			Message: "num_topics must be at least 2",
		})
	}

	if c.Topics.Iterations < 1 {
		errors = append(errors, ValidationError{
			Field:   "topics.iterations",
			Message: "iterations must be positive",
		})
	}

	// Validate forecast config
	if c.Forecast.Horizon < 1 {
		errors = append(errors, ValidationError{
			Field:   "forecast.horizon",
			Message: "horizon must be positive",
		})
	}

	if c.Forecast.MinPoints < 4 {
		errors = append(errors, ValidationError{
			Field:   "forecast.min_points",
			Message: "min_points must be at least 4",
		})
	}

	if c.Forecast.Alpha <= 0 || c.Forecast.Alpha >= 1 {
		errors = append(errors, ValidationError{
			Field:   "forecast.alpha",
			Message: "alpha must be in (0, 1)",
		})
	}

	if c.Forecast.Beta <= 0 || c.Forecast.Beta >= 1 {
		errors = append(errors, ValidationError{
			Field:   "forecast.beta",
			Message: "beta must be in (0, 1)",
		})
	}

	// Validate database config
	if c.Database.URL != "" {
		if _, err := url.Parse(c.Database.URL); err != nil {
			errors = append(errors, ValidationError{
				Field:   "database.url",
				Message: "invalid database URL",
			})
		}
	}

	if c.Database.VectorDim < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.vector_dim",
			Message: "vector_dim must be positive",
		})
	}

	if c.Database.BatchSize < 1 {
		errors = append(errors, ValidationError{
			Field:   "database.batch_size",
			Message: "batch_size must be positive",
		})
	}

	// Validate LLM config
	if _, err := url.Parse(c.LLM.BaseURL); err != nil {
		errors = append(errors, ValidationError{
			Field:   "llm.base_url",
			Message: "invalid Ollama base URL",
		})
	}

	if c.LLM.MaxTokens < 1 || c.LLM.MaxTokens > 4096 {
		errors = append(errors, ValidationError{
			Field:   "llm.max_tokens",
			Message: "max_tokens must be between 1 and 4096",
		})
	}

	return errors
}
