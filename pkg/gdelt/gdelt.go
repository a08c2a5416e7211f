package gdelt

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/internal/types"
	"github.com/xhad/pulse/pkg/httpx"
	"golang.org/x/time/rate"
)

const docAPIURL = "https://api.gdeltproject.org/api/v2/doc/doc"

// gdeltTimeLayout is the YYYYMMDDHHMMSS format the DOC API speaks.
const gdeltTimeLayout = "20060102150405"

type ClientConfig struct {
	BaseURL    string
	MaxRecords int
	RateLimit  float64 // requests per second
	Timeout    time.Duration
	OnProgress func(keyword string, window Window)
}

var _ types.ArticleCollector = (*Client)(nil)

// Client queries the GDELT DOC 2.0 API in monthly windows per keyword.
type Client struct {
	config  ClientConfig
	client  *http.Client
	limiter *rate.Limiter
	retry   httpx.RetryConfig
}

func NewWithConfig(config ClientConfig) *Client {
	if config.BaseURL == "" {
		config.BaseURL = docAPIURL
	}
	if config.MaxRecords == 0 {
		config.MaxRecords = 250
	}
	if config.RateLimit == 0 {
		config.RateLimit = 1
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	return &Client{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
		retry:   httpx.DefaultRetryConfig,
	}
}

type docResponse struct {
	Articles []docArticle `json:"articles"`
}

type docArticle struct {
	URL               string `json:"url"`
	Title             string `json:"title"`
	SourceDomain      string `json:"sourceDomain"`
	Language          string `json:"language"`
	DomainCountryCode string `json:"domainCountryCode"`
	SeenDate          string `json:"seendate"`
	Tone              string `json:"tone"`
}

// Collect queries every keyword over every monthly window and deduplicates
// the combined result by url+keyword.
func (c *Client) Collect(ctx context.Context, keywords []string, start, end time.Time) ([]models.Article, error) {
	windows := MonthlyWindows(start, end)
	slog.Info("gdelt windows", slog.Int("count", len(windows)))

	var all []models.Article
	for _, keyword := range keywords {
		for _, w := range windows {
			articles, err := c.FetchWindow(ctx, keyword, w)
			if err != nil {
				if ctx.Err() != nil {
					return all, ctx.Err()
				}
				// A failed window is skipped, not fatal
				slog.Warn("gdelt window failed",
					slog.String("keyword", keyword),
					slog.Time("start", w.Start),
					slog.Any("error", err))
				continue
			}
			all = append(all, articles...)
			if c.config.OnProgress != nil {
				c.config.OnProgress(keyword, w)
			}
		}
	}

	return dedupe(all), nil
}

// FetchWindow fetches one keyword+window chunk from the DOC API.
func (c *Client) FetchWindow(ctx context.Context, keyword string, w Window) ([]models.Article, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	// Exact-phrase quoting also satisfies the API's minimum length
	// requirement for multi-word queries.
	params := url.Values{}
	params.Set("query", fmt.Sprintf("%q", keyword))
	params.Set("mode", "ArtList")
	params.Set("maxrecords", strconv.Itoa(c.config.MaxRecords))
	params.Set("format", "json")
	params.Set("startdatetime", w.Start.Format(gdeltTimeLayout))
	params.Set("enddatetime", w.End.Format(gdeltTimeLayout))

	apiURL := c.config.BaseURL + "?" + params.Encode()
	resp, err := httpx.DoRequest(ctx, c.retry, func() (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
		if err != nil {
			return nil, err
		}
		return c.client.Do(req)
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("received status code %d from GDELT", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	// GDELT sometimes answers with an empty body or a plaintext error
	// instead of JSON; both mean "no articles for this window".
	if strings.TrimSpace(string(body)) == "" {
		return nil, nil
	}

	var doc docResponse
	if err := json.Unmarshal(body, &doc); err != nil {
		slog.Debug("gdelt returned non-JSON body",
			slog.String("keyword", keyword),
			slog.String("prefix", prefix(string(body), 100)))
		return nil, nil
	}

	articles := make([]models.Article, 0, len(doc.Articles))
	for _, art := range doc.Articles {
		if art.URL == "" {
			continue
		}
		tone, hasTone := parseTone(art.Tone)
		articles = append(articles, models.Article{
			URL:          art.URL,
			Title:        art.Title,
			SourceDomain: art.SourceDomain,
			Language:     art.Language,
			Country:      art.DomainCountryCode,
			SeenDate:     ParseSeenDate(art.SeenDate),
			Tone:         tone,
			HasTone:      hasTone,
			Keyword:      keyword,
		})
	}

	return articles, nil
}

// ParseSeenDate converts a GDELT seendate (YYYYMMDDHHMMSS, sometimes with a
// trailing Z or embedded T) to a UTC time. Invalid input yields the zero time.
func ParseSeenDate(s string) time.Time {
	s = strings.TrimSuffix(s, "Z")
	s = strings.ReplaceAll(s, "T", "")
	t, err := time.ParseInLocation(gdeltTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	return t
}

func parseTone(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func dedupe(articles []models.Article) []models.Article {
	seen := make(map[string]bool, len(articles))
	out := make([]models.Article, 0, len(articles))
	for _, a := range articles {
		key := a.URL + "|" + a.Keyword
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, a)
	}
	return out
}

func prefix(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
