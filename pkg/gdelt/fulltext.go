package gdelt

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/xhad/pulse/internal/models"
	"golang.org/x/time/rate"
)

// FulltextConfig controls optional article-body fetching.
type FulltextConfig struct {
	RateLimit  float64
	Timeout    time.Duration
	MaxBytes   int
	OnProgress func(url string)
}

// FulltextFetcher downloads article pages and extracts their main text,
// so the article corpus is not limited to headlines.
type FulltextFetcher struct {
	config  FulltextConfig
	client  *http.Client
	limiter *rate.Limiter
}

func NewFulltextFetcher(config FulltextConfig) *FulltextFetcher {
	if config.RateLimit == 0 {
		config.RateLimit = 2
	}
	if config.Timeout == 0 {
		config.Timeout = 20 * time.Second
	}
	if config.MaxBytes == 0 {
		config.MaxBytes = 20000
	}

	return &FulltextFetcher{
		config: config,
		client: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(rate.Limit(config.RateLimit), 1),
	}
}

// Enrich fills Article.FullText in place where the page can be fetched.
// Fetch failures leave the article headline-only rather than failing the run.
func (f *FulltextFetcher) Enrich(ctx context.Context, articles []models.Article) {
	for i := range articles {
		if f.config.OnProgress != nil {
			f.config.OnProgress(articles[i].URL)
		}
		text, err := f.Fetch(ctx, articles[i].URL)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			slog.Debug("fulltext fetch failed", slog.String("url", articles[i].URL), slog.Any("error", err))
			continue
		}
		articles[i].FullText = text
	}
}

func (f *FulltextFetcher) Fetch(ctx context.Context, urlStr string) (string, error) {
	if err := f.limiter.Wait(ctx); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlStr, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, urlStr)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", err
	}

	content := f.extractMainContent(doc)
	if len(content) > f.config.MaxBytes {
		content = content[:f.config.MaxBytes]
	}
	return content, nil
}

func (f *FulltextFetcher) extractMainContent(doc *goquery.Document) string {
	// Try to find main content area
	selectors := []string{
		"article",
		"main",
		".article-body",
		".story-body",
		"#content",
		".content",
	}

	var content string
	for _, selector := range selectors {
		if selected := doc.Find(selector); selected.Length() > 0 {
			content = selected.Text()
			break
		}
	}

	// Fallback to body if no main content found
	if content == "" {
		content = doc.Find("body").Text()
	}

	return cleanContent(content)
}

func cleanContent(content string) string {
	// Remove extra whitespace
	content = strings.Join(strings.Fields(content), " ")

	// Remove common noise
	noisePatterns := []string{
		"Cookie Policy",
		"Accept Cookies",
		"Privacy Policy",
		"Terms of Service",
		"Subscribe to our newsletter",
	}

	for _, pattern := range noisePatterns {
		content = strings.ReplaceAll(content, pattern, "")
	}

	return strings.TrimSpace(content)
}
