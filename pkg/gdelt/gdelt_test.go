package gdelt

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewWithConfig(ClientConfig{
		BaseURL:   srv.URL,
		RateLimit: 1000,
	})
}

func mustDate(t *testing.T, s string) time.Time {
	t.Helper()
	d, err := time.Parse("2006-01-02", s)
	require.NoError(t, err)
	return d
}

func TestMonthlyWindows(t *testing.T) {
	windows := MonthlyWindows(mustDate(t, "2023-01-15"), mustDate(t, "2023-03-10"))

	require.Len(t, windows, 3)

	// First window starts on the study start date, not the 1st
	assert.Equal(t, time.Date(2023, 1, 15, 0, 0, 0, 0, time.UTC), windows[0].Start)
	assert.Equal(t, time.Date(2023, 1, 31, 23, 59, 59, 0, time.UTC), windows[0].End)

	assert.Equal(t, time.Date(2023, 2, 1, 0, 0, 0, 0, time.UTC), windows[1].Start)
	assert.Equal(t, time.Date(2023, 2, 28, 23, 59, 59, 0, time.UTC), windows[1].End)

	// Last window is clamped to the study end date
	assert.Equal(t, time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC), windows[2].Start)
	assert.Equal(t, time.Date(2023, 3, 10, 23, 59, 59, 0, time.UTC), windows[2].End)
}

func TestMonthlyWindowsSingleMonth(t *testing.T) {
	windows := MonthlyWindows(mustDate(t, "2023-06-05"), mustDate(t, "2023-06-20"))

	require.Len(t, windows, 1)
	assert.Equal(t, time.Date(2023, 6, 5, 0, 0, 0, 0, time.UTC), windows[0].Start)
	assert.Equal(t, time.Date(2023, 6, 20, 23, 59, 59, 0, time.UTC), windows[0].End)
}

func TestMonthlyWindowsYearBoundary(t *testing.T) {
	windows := MonthlyWindows(mustDate(t, "2022-12-01"), mustDate(t, "2023-01-31"))

	require.Len(t, windows, 2)
	assert.Equal(t, time.Date(2022, 12, 31, 23, 59, 59, 0, time.UTC), windows[0].End)
	assert.Equal(t, time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC), windows[1].Start)
}

func TestFetchWindow(t *testing.T) {
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, `"ai regulation"`, q.Get("query"))
		assert.Equal(t, "ArtList", q.Get("mode"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "250", q.Get("maxrecords"))
		assert.Equal(t, "20230101000000", q.Get("startdatetime"))
		assert.Equal(t, "20230131235959", q.Get("enddatetime"))

		json.NewEncoder(w).Encode(map[string]interface{}{
			"articles": []map[string]string{
				{
					"url":               "https://news.example.com/a",
					"title":             "Rules proposed",
					"sourceDomain":      "news.example.com",
					"language":          "English",
					"domainCountryCode": "US",
					"seendate":          "20230115083000",
					"tone":              "-2.5",
				},
				{
					"url":      "https://news.example.com/b",
					"title":    "No tone field",
					"seendate": "garbage",
				},
			},
		})
	})

	c := newTestClient(t, handler)
	w := Window{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 1, 31, 23, 59, 59, 0, time.UTC),
	}

	articles, err := c.FetchWindow(context.Background(), "ai regulation", w)
	require.NoError(t, err)
	require.Len(t, articles, 2)

	assert.Equal(t, "https://news.example.com/a", articles[0].URL)
	assert.Equal(t, "ai regulation", articles[0].Keyword)
	assert.True(t, articles[0].HasTone)
	assert.Equal(t, -2.5, articles[0].Tone)
	assert.Equal(t, time.Date(2023, 1, 15, 8, 30, 0, 0, time.UTC), articles[0].SeenDate)

	assert.False(t, articles[1].HasTone)
	assert.True(t, articles[1].SeenDate.IsZero())
}

func TestFetchWindowEmptyBody(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// GDELT sends an empty 200 when a window has no matches
	}))

	articles, err := c.FetchWindow(context.Background(), "chatgpt", Window{Start: time.Now(), End: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestFetchWindowPlaintextError(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Your query was too short or too long."))
	}))

	articles, err := c.FetchWindow(context.Background(), "ai", Window{Start: time.Now(), End: time.Now()})
	require.NoError(t, err)
	assert.Empty(t, articles)
}

func TestCollectDedupes(t *testing.T) {
	c := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Same article in every window
		json.NewEncoder(w).Encode(map[string]interface{}{
			"articles": []map[string]string{
				{"url": "https://news.example.com/dup", "title": "Same", "seendate": "20230105000000"},
			},
		})
	}))

	articles, err := c.Collect(context.Background(), []string{"chatgpt"},
		mustDate(t, "2023-01-01"), mustDate(t, "2023-03-31"))
	require.NoError(t, err)
	assert.Len(t, articles, 1)
}

func TestParseSeenDate(t *testing.T) {
	tests := []struct {
		in   string
		zero bool
	}{
		{"20230115083000", false},
		{"20230115T083000Z", false},
		{"", true},
		{"2023-01-15", true},
	}
	for _, tt := range tests {
		got := ParseSeenDate(tt.in)
		assert.Equal(t, tt.zero, got.IsZero(), "input %q", tt.in)
	}
}

func TestFulltextFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>x</title></head><body>
			<nav>menu</nav>
			<article>The   actual story text. Privacy Policy</article>
		</body></html>`))
	}))
	defer srv.Close()

	f := NewFulltextFetcher(FulltextConfig{RateLimit: 1000})
	text, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "The actual story text.", text)
}

func TestFulltextFetcherBodyFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><body><p>plain page</p></body></html>`))
	}))
	defer srv.Close()

	f := NewFulltextFetcher(FulltextConfig{RateLimit: 1000})
	text, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "plain page", text)
}
