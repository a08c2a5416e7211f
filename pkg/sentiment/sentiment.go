package sentiment

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/drankou/go-vader/vader"
	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/internal/types"
)

// The analyzer's no-argument Init resolves its lexicon files relative to
// GOPATH, which does not exist in module builds, so the lexicons ship with
// this repository instead.
var (
	//go:embed lexicon/vader_lexicon.txt
	defaultLexicon string

	//go:embed lexicon/emoji_utf8_lexicon.txt
	defaultEmojiLexicon string
)

// LabelThresholds convert a compound score into a categorical label.
type LabelThresholds struct {
	Positive float64
	Negative float64
}

// DefaultThresholds match the conventional VADER cutoffs.
var DefaultThresholds = LabelThresholds{Positive: 0.05, Negative: -0.05}

// Scorer scores one record. Implementations may be lexicon-based or
// model-backed; callers treat them interchangeably.
type Scorer interface {
	Score(ctx context.Context, rec *models.Record) error
	Name() string
}

func (lt LabelThresholds) Label(compound float64) string {
	switch {
	case compound >= lt.Positive:
		return "positive"
	case compound <= lt.Negative:
		return "negative"
	default:
		return "neutral"
	}
}

var _ types.Scorer = (*VaderScorer)(nil)

// VaderScorer scores records with the VADER sentiment lexicon.
type VaderScorer struct {
	analyzer   vader.SentimentIntensityAnalyzer
	thresholds LabelThresholds
}

// NewVaderScorer builds a scorer from the embedded lexicons.
func NewVaderScorer(thresholds LabelThresholds) (*VaderScorer, error) {
	s := &VaderScorer{thresholds: thresholds}

	lexicon, err := parseLexicon(defaultLexicon)
	if err != nil {
		return nil, fmt.Errorf("failed to load sentiment lexicon: %w", err)
	}
	s.analyzer.LexiconMap = lexicon
	s.analyzer.EmojiLexiconMap = parseEmojiLexicon(defaultEmojiLexicon)
	s.analyzer.SpecialCaseIdioms = vader.SpecialCaseIdioms
	return s, nil
}

// NewVaderScorerFromFiles loads a custom lexicon pair instead of the
// embedded defaults.
func NewVaderScorerFromFiles(thresholds LabelThresholds, lexiconPath, emojiPath string) (*VaderScorer, error) {
	s := &VaderScorer{thresholds: thresholds}
	if err := s.analyzer.Init(lexiconPath, emojiPath); err != nil {
		return nil, fmt.Errorf("failed to load sentiment lexicon: %w", err)
	}
	return s, nil
}

// parseLexicon reads "word<TAB>valence" lines, skipping blanks.
func parseLexicon(data string) (map[string]float64, error) {
	lexicon := make(map[string]float64)
	for _, line := range strings.Split(data, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed lexicon line %q", line)
		}
		valence, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("bad valence for %q: %w", fields[0], err)
		}
		lexicon[fields[0]] = valence
	}
	return lexicon, nil
}

// parseEmojiLexicon reads "emoji<TAB>description" lines, skipping anything
// malformed.
func parseEmojiLexicon(data string) map[string]string {
	emojis := make(map[string]string)
	for _, line := range strings.Split(data, "\n") {
		fields := strings.Split(strings.TrimSpace(line), "\t")
		if len(fields) < 2 {
			continue
		}
		emojis[fields[0]] = fields[1]
	}
	return emojis
}

func (s *VaderScorer) Name() string { return "vader" }

func (s *VaderScorer) Score(_ context.Context, rec *models.Record) error {
	text := rec.CleanText
	if text == "" {
		text = rec.Text
	}
	if text == "" {
		return fmt.Errorf("record %s has no text to score", rec.ID)
	}

	scores := s.analyzer.PolarityScores(text)
	rec.Compound = scores["compound"]
	rec.Positive = scores["pos"]
	rec.Negative = scores["neg"]
	rec.Neutral = scores["neu"]
	rec.Label = s.thresholds.Label(rec.Compound)
	rec.Scored = true
	return nil
}

// ScoreAll runs the scorer over every record, skipping (and counting)
// failures rather than aborting the stage.
func ScoreAll(ctx context.Context, scorer Scorer, records []models.Record, onProgress func()) ([]models.Record, int, error) {
	failed := 0
	for i := range records {
		if ctx.Err() != nil {
			return records, failed, ctx.Err()
		}
		if err := scorer.Score(ctx, &records[i]); err != nil {
			failed++
		}
		if onProgress != nil {
			onProgress()
		}
	}
	return records, failed, nil
}
