package store

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/xhad/pulse/internal/models"
)

// Stage output filenames inside the data directory.
const (
	CommentsFile = "youtube_raw.csv"
	ArticlesFile = "gdelt_raw.csv"
	RecordsFile  = "records_clean.csv"
	ScoredFile   = "records_scored.csv"
	SeriesFile   = "sentiment_series.csv"
	TopicsFile   = "topics.csv"
	ForecastFile = "forecast.csv"
)

// Dataset reads and writes the flat files the pipeline stages exchange.
type Dataset struct {
	dir string
}

func NewDataset(dir string) Dataset {
	if dir == "" {
		dir = "data"
	}
	return Dataset{dir: dir}
}

func (d Dataset) Path(name string) string {
	return filepath.Join(d.dir, name)
}

func (d Dataset) writeAll(name string, header []string, rows [][]string) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	f, err := os.Create(d.Path(name))
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	if err := w.WriteAll(rows); err != nil {
		return err
	}
	w.Flush()
	return w.Error()
}

func (d Dataset) readAll(name string, wantCols int) ([][]string, error) {
	f, err := os.Open(d.Path(name))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s (did the previous stage run?): %w", name, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = wantCols

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s is empty", name)
	}
	return rows[1:], nil // drop header
}

var commentsHeader = []string{
	"video_id", "video_title", "channel", "video_published_at",
	"comment_id", "comment_text", "comment_likes", "comment_published_at", "keyword",
}

func (d Dataset) WriteComments(comments []models.Comment) error {
	rows := make([][]string, 0, len(comments))
	for _, c := range comments {
		rows = append(rows, []string{
			c.VideoID, c.VideoTitle, c.Channel, formatTime(c.VideoPublishedAt),
			c.CommentID, c.Text, strconv.Itoa(c.Likes), formatTime(c.PublishedAt), c.Keyword,
		})
	}
	return d.writeAll(CommentsFile, commentsHeader, rows)
}

func (d Dataset) ReadComments() ([]models.Comment, error) {
	rows, err := d.readAll(CommentsFile, len(commentsHeader))
	if err != nil {
		return nil, err
	}

	comments := make([]models.Comment, 0, len(rows))
	for _, row := range rows {
		likes, _ := strconv.Atoi(row[6])
		comments = append(comments, models.Comment{
			VideoID:          row[0],
			VideoTitle:       row[1],
			Channel:          row[2],
			VideoPublishedAt: parseTime(row[3]),
			CommentID:        row[4],
			Text:             row[5],
			Likes:            likes,
			PublishedAt:      parseTime(row[7]),
			Keyword:          row[8],
		})
	}
	return comments, nil
}

var articlesHeader = []string{
	"url", "title", "source_domain", "language", "country",
	"published_at", "tone", "keyword", "full_text",
}

func (d Dataset) WriteArticles(articles []models.Article) error {
	rows := make([][]string, 0, len(articles))
	for _, a := range articles {
		tone := ""
		if a.HasTone {
			tone = strconv.FormatFloat(a.Tone, 'f', -1, 64)
		}
		rows = append(rows, []string{
			a.URL, a.Title, a.SourceDomain, a.Language, a.Country,
			formatTime(a.SeenDate), tone, a.Keyword, a.FullText,
		})
	}
	return d.writeAll(ArticlesFile, articlesHeader, rows)
}

func (d Dataset) ReadArticles() ([]models.Article, error) {
	rows, err := d.readAll(ArticlesFile, len(articlesHeader))
	if err != nil {
		return nil, err
	}

	articles := make([]models.Article, 0, len(rows))
	for _, row := range rows {
		tone, toneErr := strconv.ParseFloat(row[6], 64)
		articles = append(articles, models.Article{
			URL:          row[0],
			Title:        row[1],
			SourceDomain: row[2],
			Language:     row[3],
			Country:      row[4],
			SeenDate:     parseTime(row[5]),
			Tone:         tone,
			HasTone:      toneErr == nil,
			Keyword:      row[7],
			FullText:     row[8],
		})
	}
	return articles, nil
}

var recordsHeader = []string{
	"id", "source", "text", "clean_text", "published_at", "keyword", "likes", "lang",
	"compound", "positive", "negative", "neutral", "label", "scored",
	"topic_id", "topic_label",
}

func (d Dataset) WriteRecords(name string, records []models.Record) error {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.ID, string(r.Source), r.Text, r.CleanText, formatTime(r.PublishedAt),
			r.Keyword, strconv.Itoa(r.Likes), r.Lang,
			formatFloat(r.Compound), formatFloat(r.Positive),
			formatFloat(r.Negative), formatFloat(r.Neutral),
			r.Label, strconv.FormatBool(r.Scored),
			strconv.Itoa(r.TopicID), r.TopicLabel,
		})
	}
	return d.writeAll(name, recordsHeader, rows)
}

func (d Dataset) ReadRecords(name string) ([]models.Record, error) {
	rows, err := d.readAll(name, len(recordsHeader))
	if err != nil {
		return nil, err
	}

	records := make([]models.Record, 0, len(rows))
	for _, row := range rows {
		likes, _ := strconv.Atoi(row[6])
		topicID, _ := strconv.Atoi(row[14])
		records = append(records, models.Record{
			ID:          row[0],
			Source:      models.Source(row[1]),
			Text:        row[2],
			CleanText:   row[3],
			PublishedAt: parseTime(row[4]),
			Keyword:     row[5],
			Likes:       likes,
			Lang:        row[7],
			Compound:    parseFloat(row[8]),
			Positive:    parseFloat(row[9]),
			Negative:    parseFloat(row[10]),
			Neutral:     parseFloat(row[11]),
			Label:       row[12],
			Scored:      row[13] == "true",
			TopicID:     topicID,
			TopicLabel:  row[15],
		})
	}
	return records, nil
}

var seriesHeader = []string{
	"date", "source", "count", "mean_compound",
	"positive_ratio", "negative_ratio", "neutral_ratio",
}

func (d Dataset) WriteSeries(series []models.SentimentPoint) error {
	rows := make([][]string, 0, len(series))
	for _, p := range series {
		rows = append(rows, []string{
			p.Date.Format("2006-01-02"), string(p.Source), strconv.Itoa(p.Count),
			formatFloat(p.MeanCompound), formatFloat(p.PositiveRatio),
			formatFloat(p.NegativeRatio), formatFloat(p.NeutralRatio),
		})
	}
	return d.writeAll(SeriesFile, seriesHeader, rows)
}

func (d Dataset) ReadSeries() ([]models.SentimentPoint, error) {
	rows, err := d.readAll(SeriesFile, len(seriesHeader))
	if err != nil {
		return nil, err
	}

	series := make([]models.SentimentPoint, 0, len(rows))
	for _, row := range rows {
		date, err := time.Parse("2006-01-02", row[0])
		if err != nil {
			return nil, fmt.Errorf("bad date %q in series file: %w", row[0], err)
		}
		count, _ := strconv.Atoi(row[2])
		series = append(series, models.SentimentPoint{
			Date:          date,
			Source:        models.Source(row[1]),
			Count:         count,
			MeanCompound:  parseFloat(row[3]),
			PositiveRatio: parseFloat(row[4]),
			NegativeRatio: parseFloat(row[5]),
			NeutralRatio:  parseFloat(row[6]),
		})
	}
	return series, nil
}

var topicsHeader = []string{"topic_id", "label", "weight", "terms", "examples"}

func (d Dataset) WriteTopics(topics []models.Topic) error {
	rows := make([][]string, 0, len(topics))
	for _, t := range topics {
		rows = append(rows, []string{
			strconv.Itoa(t.ID), t.Label, formatFloat(t.Weight),
			strings.Join(t.Terms, "|"), strings.Join(t.Examples, "|"),
		})
	}
	return d.writeAll(TopicsFile, topicsHeader, rows)
}

var forecastHeader = []string{"date", "value", "lower", "upper"}

func (d Dataset) WriteForecast(points []models.ForecastPoint) error {
	rows := make([][]string, 0, len(points))
	for _, p := range points {
		rows = append(rows, []string{
			p.Date.Format("2006-01-02"), formatFloat(p.Value),
			formatFloat(p.Lower), formatFloat(p.Upper),
		})
	}
	return d.writeAll(ForecastFile, forecastHeader, rows)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func parseFloat(s string) float64 {
	f, _ := strconv.ParseFloat(s, 64)
	return f
}
