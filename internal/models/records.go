package models

import "time"

// Source identifies which collector produced a record.
type Source string

const (
	SourceYouTube Source = "youtube.comment"
	SourceGDELT   Source = "gdelt.article"
)

// Video is a YouTube search hit kept around while its comments are fetched.
type Video struct {
	ID          string
	Title       string
	Channel     string
	PublishedAt time.Time
	Keyword     string
}

// Comment is one top-level YouTube comment row.
type Comment struct {
	VideoID          string
	VideoTitle       string
	Channel          string
	VideoPublishedAt time.Time
	CommentID        string
	Text             string
	Likes            int
	PublishedAt      time.Time
	Keyword          string
}

// Article is one GDELT article row.
type Article struct {
	URL          string
	Title        string
	SourceDomain string
	Language     string
	Country      string
	SeenDate     time.Time
	Tone         float64
	HasTone      bool
	Keyword      string
	FullText     string
}

// RecordFromComment maps a YouTube comment onto the unified record schema.
// The id is stable across runs so re-collection upserts rather than duplicates.
func RecordFromComment(c Comment) Record {
	return Record{
		ID:          string(SourceYouTube) + ":" + c.CommentID,
		Source:      SourceYouTube,
		Text:        c.Text,
		PublishedAt: c.PublishedAt,
		Keyword:     c.Keyword,
		Likes:       c.Likes,
		Lang:        "en",
	}
}

// RecordFromArticle maps a GDELT article onto the unified record schema.
// GDELT can return the same url for different keywords, so the keyword is
// part of the id.
func RecordFromArticle(a Article) Record {
	text := a.Title
	if a.FullText != "" {
		text = a.Title + ". " + a.FullText
	}
	return Record{
		ID:          string(SourceGDELT) + ":" + a.URL + ":" + a.Keyword,
		Source:      SourceGDELT,
		Text:        text,
		PublishedAt: a.SeenDate,
		Keyword:     a.Keyword,
		Lang:        a.Language,
	}
}

// Record is the unified per-document schema the analysis stages operate on.
// Later stages append derived columns rather than inventing new shapes.
type Record struct {
	ID          string
	Source      Source
	Text        string
	CleanText   string
	PublishedAt time.Time
	Keyword     string
	Likes       int
	Lang        string

	// Appended by the sentiment stage.
	Compound  float64
	Positive  float64
	Negative  float64
	Neutral   float64
	Label     string
	Scored    bool

	// Appended by the topics stage.
	TopicID    int
	TopicLabel string
}

// SentimentPoint is one aggregated bucket of scored records.
type SentimentPoint struct {
	Date          time.Time
	Source        Source
	Count         int
	MeanCompound  float64
	PositiveRatio float64
	NegativeRatio float64
	NeutralRatio  float64
}

// Topic is one fitted topic with its strongest vocabulary terms.
type Topic struct {
	ID       int
	Terms    []string
	Weight   float64
	Label    string
	Examples []string
}

// ForecastPoint is one projected bucket of the aggregated sentiment series.
type ForecastPoint struct {
	Date  time.Time
	Value float64
	Lower float64
	Upper float64
}
