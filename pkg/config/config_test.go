package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	// Create temporary config file
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configData := `
study:
  keywords:
    - "generative ai"
    - "ai regulation"
  start_date: "2022-01-01"
  end_date: "2024-06-30"

youtube:
  max_videos_per_query: 25
  max_comments_per_video: 200
  rate_limit: 2.5

gdelt:
  max_records: 100
  rate_limit: 0.5
  fetch_text: true

processor:
  lowercase: true
  remove_stopwords: true
  min_length: 20

sentiment:
  engine: "vader"
  bucket: "week"

topics:
  num_topics: 12
  iterations: 100

forecast:
  horizon: 30

database:
  url: "postgres://localhost:5432/pulse"
  table_name: "study_records"
  vector_dim: 768
  batch_size: 50

llm:
  base_url: "http://localhost:11434"
  model: "mistral"
  max_tokens: 1000
  temperature: 0.5
`
	err := os.WriteFile(configPath, []byte(configData), 0644)
	require.NoError(t, err)

	// Test loading config
	config, err := LoadConfig(configPath)
	require.NoError(t, err)

	// Verify loaded values
	assert.Equal(t, []string{"generative ai", "ai regulation"}, config.Study.Keywords)
	assert.Equal(t, "2022-01-01", config.Study.StartDate)
	assert.Equal(t, 25, config.YouTube.MaxVideosPerQuery)
	assert.Equal(t, 200, config.YouTube.MaxCommentsPerVid)
	assert.Equal(t, 100, config.GDELT.MaxRecords)
	assert.True(t, config.GDELT.FetchText)
	assert.Equal(t, 20, config.Processor.MinLength)
	assert.Equal(t, "week", config.Sentiment.Bucket)
	assert.Equal(t, 12, config.Topics.NumTopics)
	assert.Equal(t, 30, config.Forecast.Horizon)
	assert.Equal(t, "postgres://localhost:5432/pulse", config.Database.URL)
	assert.Equal(t, "study_records", config.Database.TableName)
	assert.Equal(t, 0.5, config.LLM.Temperature)

	// Defaults still fill what the file left unset
	assert.Equal(t, 0.05, config.Sentiment.Positive)
	assert.Equal(t, -0.05, config.Sentiment.Negative)
	assert.Equal(t, "data", config.Data.Dir)
}

func TestConfigDefaults(t *testing.T) {
	config, err := getDefaultConfig()
	require.NoError(t, err)

	assert.NotEmpty(t, config.Study.Keywords)
	assert.Equal(t, "vader", config.Sentiment.Engine)
	assert.Equal(t, "day", config.Sentiment.Bucket)
	assert.Equal(t, 8, config.Topics.NumTopics)
	assert.Equal(t, 14, config.Forecast.Horizon)
	assert.Equal(t, 250, config.GDELT.MaxRecords)
	assert.Empty(t, config.Validate())
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name          string
		mutate        func(c *Config)
		errorMessages []string
	}{
		{
			name:   "valid config",
			mutate: func(c *Config) {},
		},
		{
			name: "bad study dates",
			mutate: func(c *Config) {
				c.Study.StartDate = "2024-06-30"
				c.Study.EndDate = "2022-01-01"
			},
			errorMessages: []string{
				"study.end_date: end_date must not precede start_date",
			},
		},
		{
			name: "bad collector limits",
			mutate: func(c *Config) {
				c.YouTube.MaxVideosPerQuery = -1
				c.GDELT.MaxRecords = 5000
			},
			errorMessages: []string{
				"youtube.max_videos_per_query: max_videos_per_query must be positive",
				"gdelt.max_records: max_records must be between 1 and 250",
			},
		},
		{
			name: "unknown sentiment engine and bucket",
			mutate: func(c *Config) {
				c.Sentiment.Engine = "bert"
				c.Sentiment.Bucket = "month"
			},
			errorMessages: []string{
				"sentiment.engine: unknown engine: bert",
				"sentiment.bucket: unknown bucket: month",
			},
		},
		{
			name: "lexicon path without emoji path",
			mutate: func(c *Config) {
				c.Sentiment.LexiconPath = "lexicons/custom.txt"
			},
			errorMessages: []string{
				"sentiment.lexicon_path: lexicon_path and emoji_lexicon_path must be set together",
			},
		},
		{
			name: "bad smoothing parameters",
			mutate: func(c *Config) {
				c.Forecast.Alpha = 1.5
				c.Forecast.Beta = 0
			},
			errorMessages: []string{
				"forecast.alpha: alpha must be in (0, 1)",
				"forecast.beta: beta must be in (0, 1)",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config, err := getDefaultConfig()
			require.NoError(t, err)
			tt.mutate(config)

			errors := config.Validate()
			assert.Len(t, errors, len(tt.errorMessages))

			for i, msg := range tt.errorMessages {
				assert.Contains(t, errors[i].Error(), msg)
			}
		})
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	// Set environment variables
	os.Setenv("YOUTUBE_API_KEY", "env-yt-key")
	os.Setenv("DATABASE_URL", "postgres://env-db:5432/test")
	os.Setenv("OLLAMA_BASE_URL", "http://env-ollama:11434")
	defer func() {
		os.Unsetenv("YOUTUBE_API_KEY")
		os.Unsetenv("DATABASE_URL")
		os.Unsetenv("OLLAMA_BASE_URL")
	}()

	config := &Config{}
	mergeWithEnv(config)

	assert.Equal(t, "env-yt-key", config.YouTube.APIKey)
	assert.Equal(t, "postgres://env-db:5432/test", config.Database.URL)
	assert.Equal(t, "http://env-ollama:11434", config.LLM.BaseURL)
}
