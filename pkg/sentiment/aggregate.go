package sentiment

import (
	"sort"
	"time"

	"github.com/xhad/pulse/internal/models"
)

// Bucket is the aggregation granularity for sentiment series.
type Bucket string

const (
	BucketDay  Bucket = "day"
	BucketWeek Bucket = "week"
)

// Aggregate buckets scored records into a per-source time series ordered by
// date. Unscored records and records without a publish date are ignored.
func Aggregate(records []models.Record, bucket Bucket) []models.SentimentPoint {
	type key struct {
		date   time.Time
		source models.Source
	}
	type acc struct {
		count    int
		sum      float64
		positive int
		negative int
		neutral  int
	}

	accs := make(map[key]*acc)
	for _, rec := range records {
		if !rec.Scored || rec.PublishedAt.IsZero() {
			continue
		}

		k := key{date: truncate(rec.PublishedAt, bucket), source: rec.Source}
		a := accs[k]
		if a == nil {
			a = &acc{}
			accs[k] = a
		}

		a.count++
		a.sum += rec.Compound
		switch rec.Label {
		case "positive":
			a.positive++
		case "negative":
			a.negative++
		default:
			a.neutral++
		}
	}

	points := make([]models.SentimentPoint, 0, len(accs))
	for k, a := range accs {
		n := float64(a.count)
		points = append(points, models.SentimentPoint{
			Date:          k.date,
			Source:        k.source,
			Count:         a.count,
			MeanCompound:  a.sum / n,
			PositiveRatio: float64(a.positive) / n,
			NegativeRatio: float64(a.negative) / n,
			NeutralRatio:  float64(a.neutral) / n,
		})
	}

	sort.Slice(points, func(i, j int) bool {
		if !points[i].Date.Equal(points[j].Date) {
			return points[i].Date.Before(points[j].Date)
		}
		return points[i].Source < points[j].Source
	})

	return points
}

// truncate maps a timestamp to its UTC bucket start. Weeks start on Monday.
func truncate(t time.Time, bucket Bucket) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	if bucket != BucketWeek {
		return day
	}

	weekday := int(day.Weekday())
	if weekday == 0 { // Sunday
		weekday = 7
	}
	return day.AddDate(0, 0, 1-weekday)
}
