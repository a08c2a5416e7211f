package processor

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/internal/types"
)

type ProcessorConfig struct {
	Lowercase       bool
	RemoveStopwords bool
	CustomStopwords []string
	MinLength       int
	Languages       []string
	KeepEmoji       bool
}

type Processor struct {
	config    ProcessorConfig
	stopwords map[string]bool
	languages map[string]bool
}

var _ types.Cleaner = (*Processor)(nil)

var (
	htmlTagRE = regexp.MustCompile(`<[^>]+>`)
	urlRE     = regexp.MustCompile(`https?://\S+|www\.\S+`)
	mentionRE = regexp.MustCompile(`@[A-Za-z0-9_]+`)
)

func NewWithConfig(config ProcessorConfig) Processor {
	if config.MinLength == 0 {
		config.MinLength = 10
	}

	stopwords := make(map[string]bool)
	if config.RemoveStopwords {
		for _, w := range defaultStopwords() {
			stopwords[w] = true
		}
		for _, w := range config.CustomStopwords {
			stopwords[strings.ToLower(w)] = true
		}
	}

	languages := make(map[string]bool)
	for _, l := range config.Languages {
		languages[strings.ToLower(l)] = true
	}

	return Processor{
		config:    config,
		stopwords: stopwords,
		languages: languages,
	}
}

// Clean normalizes record text in place and drops records that are too
// short, in an excluded language, or near-duplicates of earlier records.
func (p *Processor) Clean(records []models.Record) ([]models.Record, error) {
	seen := make(map[string]bool, len(records))
	out := make([]models.Record, 0, len(records))

	for _, rec := range records {
		if len(p.languages) > 0 && !p.languages[strings.ToLower(rec.Lang)] {
			continue
		}

		clean := p.CleanText(rec.Text)
		if len(clean) < p.config.MinLength {
			continue
		}

		key := dedupeKey(clean)
		if seen[key] {
			continue
		}
		seen[key] = true

		rec.CleanText = clean
		out = append(out, rec)
	}

	return out, nil
}

// CleanText applies the full normalization chain to one string.
func (p *Processor) CleanText(text string) string {
	text = htmlTagRE.ReplaceAllString(text, " ")
	text = urlRE.ReplaceAllString(text, " ")
	text = mentionRE.ReplaceAllString(text, " ")

	if !p.config.KeepEmoji {
		text = stripSymbols(text)
	}

	if p.config.Lowercase {
		text = strings.ToLower(text)
	}

	// Replace multiple spaces with single space
	text = strings.Join(strings.Fields(text), " ")

	if p.config.RemoveStopwords {
		text = p.removeStopwords(text)
	}

	return strings.TrimSpace(text)
}

// Tokenize splits cleaned text into lowercase word tokens. Shared with the
// topic-modeling stage so both see identical vocabulary.
func Tokenize(text string) []string {
	var tokens []string
	var b strings.Builder

	flush := func() {
		if b.Len() > 1 { // single characters carry no topical signal
			tokens = append(tokens, b.String())
		}
		b.Reset()
	}

	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			b.WriteRune(r)
		} else {
			flush()
		}
	}
	flush()

	return tokens
}

func (p *Processor) removeStopwords(text string) string {
	words := strings.Fields(text)
	filtered := make([]string, 0, len(words))

	for _, word := range words {
		if !p.stopwords[strings.ToLower(strings.Trim(word, ".,!?;:\"'"))] {
			filtered = append(filtered, word)
		}
	}

	return strings.Join(filtered, " ")
}

// stripSymbols removes emoji and other symbol runes but keeps punctuation,
// which the sentiment lexicon uses for emphasis.
func stripSymbols(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	for _, r := range text {
		if unicode.IsSymbol(r) || unicode.In(r, unicode.So) {
			b.WriteRune(' ')
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// dedupeKey flattens text to a comparison key so trivially re-posted
// content collapses to one record.
func dedupeKey(text string) string {
	return strings.Join(Tokenize(text), " ")
}

// Common English stopwords
func defaultStopwords() []string {
	return []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"or", "that", "the", "this", "to", "was", "were", "will",
		"with", "you", "your", "i", "we", "they", "but", "not",
	}
}
