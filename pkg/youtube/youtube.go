package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/internal/types"
	"github.com/xhad/pulse/pkg/httpx"
	"golang.org/x/time/rate"
)

const dataAPIBase = "https://www.googleapis.com/youtube/v3"

type ClientConfig struct {
	APIKey            string
	APIKeyFallback    string
	BaseURL           string
	MaxVideosPerQuery int
	MaxCommentsPerVid int
	RateLimit         float64 // requests per second
	Timeout           time.Duration
	OnProgress        func(videoID string)
}

var _ types.CommentCollector = (*Client)(nil)

// Client talks to the YouTube Data API v3 for video search and comment threads.
type Client struct {
	config  ClientConfig
	client  *http.Client
	limiter *rate.Limiter
	retry   httpx.RetryConfig
}

func NewWithConfig(config ClientConfig) (*Client, error) {
	if config.APIKey == "" {
		return nil, fmt.Errorf("youtube API key is required")
	}
	if config.BaseURL == "" {
		config.BaseURL = dataAPIBase
	}
	if config.MaxVideosPerQuery == 0 {
		config.MaxVideosPerQuery = 50
	}
	if config.MaxCommentsPerVid == 0 {
		config.MaxCommentsPerVid = 500
	}
	if config.RateLimit == 0 {
		config.RateLimit = 5
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
	}, nil
}

// --- Data API v3 response types ---

type searchResponse struct {
	NextPageToken string       `json:"nextPageToken"`
	Items         []searchItem `json:"items"`
}

type searchItem struct {
	ID struct {
		VideoID string `json:"videoId"`
	} `json:"id"`
	Snippet struct {
		Title        string `json:"title"`
		ChannelTitle string `json:"channelTitle"`
		PublishedAt  string `json:"publishedAt"`
	} `json:"snippet"`
}

type commentThreadsResponse struct {
	NextPageToken string              `json:"nextPageToken"`
	Items         []commentThreadItem `json:"items"`
}

type commentThreadItem struct {
	ID      string `json:"id"`
	Snippet struct {
		TopLevelComment struct {
			Snippet struct {
				TextDisplay string `json:"textDisplay"`
				LikeCount   int    `json:"likeCount"`
				PublishedAt string `json:"publishedAt"`
			} `json:"snippet"`
		} `json:"topLevelComment"`
	} `json:"snippet"`
}

// SearchVideos finds videos for each keyword inside the study window and
// deduplicates the combined result by video id.
func (c *Client) SearchVideos(ctx context.Context, keywords []string, start, end time.Time) ([]models.Video, error) {
	var all []models.Video

	for _, keyword := range keywords {
		videos, err := c.searchKeyword(ctx, keyword, start, end)
		if err != nil {
			if ctx.Err() != nil {
				return all, ctx.Err()
			}
			// One bad keyword should not sink the whole collection run.
			slog.Warn("video search failed", slog.String("keyword", keyword), slog.Any("error", err))
			continue
		}
		slog.Info("collected videos", slog.String("keyword", keyword), slog.Int("count", len(videos)))
		all = append(all, videos...)
	}

	seen := make(map[string]bool)
	unique := make([]models.Video, 0, len(all))
	for _, v := range all {
		if seen[v.ID] {
			continue
		}
		seen[v.ID] = true
		unique = append(unique, v)
	}

	return unique, nil
}

func (c *Client) searchKeyword(ctx context.Context, keyword string, start, end time.Time) ([]models.Video, error) {
	var videos []models.Video
	pageToken := ""

	for len(videos) < c.config.MaxVideosPerQuery {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("q", keyword)
		params.Set("type", "video")
		params.Set("publishedAfter", start.UTC().Format(time.RFC3339))
		params.Set("publishedBefore", end.UTC().Format(time.RFC3339))
		params.Set("maxResults", "50")
		params.Set("order", "relevance")
		params.Set("relevanceLanguage", "en")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp searchResponse
		if err := c.getJSON(ctx, "/search", params, &resp); err != nil {
			return videos, err
		}

		for _, item := range resp.Items {
			if item.ID.VideoID == "" {
				continue
			}
			published, _ := time.Parse(time.RFC3339, item.Snippet.PublishedAt)
			videos = append(videos, models.Video{
				ID:          item.ID.VideoID,
				Title:       item.Snippet.Title,
				Channel:     item.Snippet.ChannelTitle,
				PublishedAt: published,
				Keyword:     keyword,
			})
			if len(videos) >= c.config.MaxVideosPerQuery {
				break
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	return videos, nil
}

// FetchComments pulls top-level comments for a video, dropping anything
// published outside [start, end].
func (c *Client) FetchComments(ctx context.Context, video models.Video, start, end time.Time) ([]models.Comment, error) {
	var comments []models.Comment
	pageToken := ""

	for len(comments) < c.config.MaxCommentsPerVid {
		params := url.Values{}
		params.Set("part", "snippet")
		params.Set("videoId", video.ID)
		params.Set("maxResults", "100")
		params.Set("textFormat", "plainText")
		params.Set("order", "time")
		if pageToken != "" {
			params.Set("pageToken", pageToken)
		}

		var resp commentThreadsResponse
		if err := c.getJSON(ctx, "/commentThreads", params, &resp); err != nil {
			if ctx.Err() != nil {
				return comments, ctx.Err()
			}
			// Comments can be disabled per video; treat as partial result.
			slog.Warn("comment fetch failed", slog.String("video", video.ID), slog.Any("error", err))
			return comments, nil
		}

		for _, item := range resp.Items {
			snippet := item.Snippet.TopLevelComment.Snippet

			published, err := time.Parse(time.RFC3339, snippet.PublishedAt)
			if err != nil {
				// Skip rows with unparseable timestamps
				continue
			}
			if published.Before(start) || published.After(end) {
				continue
			}

			comments = append(comments, models.Comment{
				VideoID:          video.ID,
				VideoTitle:       video.Title,
				Channel:          video.Channel,
				VideoPublishedAt: video.PublishedAt,
				CommentID:        item.ID,
				Text:             snippet.TextDisplay,
				Likes:            snippet.LikeCount,
				PublishedAt:      published,
				Keyword:          video.Keyword,
			})
			if len(comments) >= c.config.MaxCommentsPerVid {
				break
			}
		}

		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if c.config.OnProgress != nil {
		c.config.OnProgress(video.ID)
	}

	return comments, nil
}

// Collect runs the full search-then-comments flow and flattens the result
// into one slice of comment rows.
func (c *Client) Collect(ctx context.Context, keywords []string, start, end time.Time) ([]models.Comment, error) {
	videos, err := c.SearchVideos(ctx, keywords, start, end)
	if err != nil {
		return nil, err
	}
	slog.Info("total unique videos", slog.Int("count", len(videos)))

	var all []models.Comment
	for _, video := range videos {
		comments, err := c.FetchComments(ctx, video, start, end)
		if err != nil {
			return all, err
		}
		all = append(all, comments...)
	}

	return all, nil
}

// getJSON performs a rate-limited, retried GET against the Data API.
// On quota errors (403) it retries once with the fallback key.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	keys := []string{c.config.APIKey}
	if c.config.APIKeyFallback != "" {
		keys = append(keys, c.config.APIKeyFallback)
	}

	var lastErr error
	for _, key := range keys {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		params.Set("key", key)
		apiURL := c.config.BaseURL + path + "?" + params.Encode()

		resp, err := httpx.DoRequest(ctx, c.retry, func() (*http.Response, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodGet, apiURL, nil)
			if err != nil {
				return nil, err
			}
			return c.client.Do(req)
		})
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusForbidden {
			resp.Body.Close()
			lastErr = fmt.Errorf("quota exhausted for key ending %s", tail(key))
			slog.Debug("youtube key rejected, trying fallback", slog.Any("error", lastErr))
			continue
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return fmt.Errorf("received status code %d for URL: %s", resp.StatusCode, c.config.BaseURL+path)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
		return nil
	}

	return lastErr
}

func tail(s string) string {
	if len(s) <= 4 {
		return "****"
	}
	return s[len(s)-4:]
}
