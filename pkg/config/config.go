package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Study struct {
		Keywords  []string `yaml:"keywords"`
		StartDate string   `yaml:"start_date"` // YYYY-MM-DD
		EndDate   string   `yaml:"end_date"`   // YYYY-MM-DD
	} `yaml:"study"`

	YouTube struct {
		APIKey            string  `yaml:"api_key"`
		APIKeyFallback    string  `yaml:"api_key_fallback"`
		MaxVideosPerQuery int     `yaml:"max_videos_per_query"`
		MaxCommentsPerVid int     `yaml:"max_comments_per_video"`
		RateLimit         float64 `yaml:"rate_limit"`
	} `yaml:"youtube"`

	GDELT struct {
		MaxRecords int     `yaml:"max_records"`
		RateLimit  float64 `yaml:"rate_limit"`
		FetchText  bool    `yaml:"fetch_text"`
	} `yaml:"gdelt"`

	Processor struct {
		Lowercase       bool     `yaml:"lowercase"`
		RemoveStopwords bool     `yaml:"remove_stopwords"`
		CustomStopwords []string `yaml:"custom_stopwords"`
		MinLength       int      `yaml:"min_length"`
		Languages       []string `yaml:"languages"`
	} `yaml:"processor"`

	Sentiment struct {
		Engine           string  `yaml:"engine"`
		Bucket           string  `yaml:"bucket"`
		Positive         float64 `yaml:"positive_threshold"`
		Negative         float64 `yaml:"negative_threshold"`
		LexiconPath      string  `yaml:"lexicon_path"`
		EmojiLexiconPath string  `yaml:"emoji_lexicon_path"`
	} `yaml:"sentiment"`

	Topics struct {
		NumTopics    int  `yaml:"num_topics"`
		Iterations   int  `yaml:"iterations"`
		TopTerms     int  `yaml:"top_terms"`
		ExampleDocs  int  `yaml:"example_docs"`
		LabelWithLLM bool `yaml:"label_with_llm"`
	} `yaml:"topics"`

	Forecast struct {
		Horizon   int     `yaml:"horizon"`
		MinPoints int     `yaml:"min_points"`
		Alpha     float64 `yaml:"alpha"`
		Beta      float64 `yaml:"beta"`
	} `yaml:"forecast"`

	Database struct {
		URL       string `yaml:"url"`
		TableName string `yaml:"table_name"`
		VectorDim int    `yaml:"vector_dim"`
		BatchSize int    `yaml:"batch_size"`
	} `yaml:"database"`

	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		EmbedModel  string  `yaml:"embed_model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Data struct {
		Dir string `yaml:"dir"`
	} `yaml:"data"`
}

func LoadConfig(path string) (*Config, error) {
	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/pulse/config.yaml"),
			"/etc/pulse/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	// Merge with environment variables
	mergeWithEnv(&config)

	// Apply defaults for unset values
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	applyDefaults(config)
	mergeWithEnv(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if len(config.Study.Keywords) == 0 {
		config.Study.Keywords = []string{
			"generative ai",
			"chatgpt",
			"large language model",
			"ai replacing jobs",
			"ai regulation",
			"ai ethics",
		}
	}
	if config.Study.StartDate == "" {
		config.Study.StartDate = "2022-01-01"
	}
	if config.Study.EndDate == "" {
		config.Study.EndDate = "2025-12-08"
	}

	if config.YouTube.MaxVideosPerQuery == 0 {
		config.YouTube.MaxVideosPerQuery = 50
	}
	if config.YouTube.MaxCommentsPerVid == 0 {
		config.YouTube.MaxCommentsPerVid = 500
	}
	if config.YouTube.RateLimit == 0 {
		config.YouTube.RateLimit = 5.0
	}

	if config.GDELT.MaxRecords == 0 {
		config.GDELT.MaxRecords = 250
	}
	if config.GDELT.RateLimit == 0 {
		config.GDELT.RateLimit = 1.0
	}

	if config.Processor.MinLength == 0 {
		config.Processor.MinLength = 10
	}
	if len(config.Processor.Languages) == 0 {
		config.Processor.Languages = []string{"en", "english", ""}
	}

	if config.Sentiment.Engine == "" {
		config.Sentiment.Engine = "vader"
	}
	if config.Sentiment.Bucket == "" {
		config.Sentiment.Bucket = "day"
	}
	if config.Sentiment.Positive == 0 {
		config.Sentiment.Positive = 0.05
	}
	if config.Sentiment.Negative == 0 {
		config.Sentiment.Negative = -0.05
	}

	if config.Topics.NumTopics == 0 {
		config.Topics.NumTopics = 8
	}
	if config.Topics.Iterations == 0 {
		config.Topics.Iterations = 50
	}
	if config.Topics.TopTerms == 0 {
		config.Topics.TopTerms = 10
	}
	if config.Topics.ExampleDocs == 0 {
		config.Topics.ExampleDocs = 3
	}

	if config.Forecast.Horizon == 0 {
		config.Forecast.Horizon = 14
	}
	if config.Forecast.MinPoints == 0 {
		config.Forecast.MinPoints = 8
	}
	if config.Forecast.Alpha == 0 {
		config.Forecast.Alpha = 0.5
	}
	if config.Forecast.Beta == 0 {
		config.Forecast.Beta = 0.3
	}

	if config.Database.TableName == "" {
		config.Database.TableName = "records"
	}
	if config.Database.VectorDim == 0 {
		config.Database.VectorDim = 768
	}
	if config.Database.BatchSize == 0 {
		config.Database.BatchSize = 100
	}

	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.EmbedModel == "" {
		config.LLM.EmbedModel = "nomic-embed-text:latest"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.2
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Data.Dir == "" {
		config.Data.Dir = "data"
	}
}

func mergeWithEnv(config *Config) {
	if key := os.Getenv("YOUTUBE_API_KEY"); key != "" {
		config.YouTube.APIKey = key
	}
	if key := os.Getenv("YOUTUBE_API_KEY_FALLBACK"); key != "" {
		config.YouTube.APIKeyFallback = key
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Database.URL = dbURL
	}
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
	}
}
