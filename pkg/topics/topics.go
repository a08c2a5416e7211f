package topics

import (
	"fmt"
	"sort"

	"github.com/james-bowman/nlp"
	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/internal/types"
	"gonum.org/v1/gonum/mat"
)

type ModellerConfig struct {
	NumTopics   int
	Iterations  int
	TopTerms    int
	ExampleDocs int
	Stopwords   []string
}

// Modeller fits a Latent Dirichlet Allocation topic model over the cleaned
// corpus and tags every record with its dominant topic.
type Modeller struct {
	config ModellerConfig
}

var _ types.TopicModeller = (*Modeller)(nil)

func NewWithConfig(config ModellerConfig) Modeller {
	if config.NumTopics == 0 {
		config.NumTopics = 8
	}
	if config.Iterations == 0 {
		config.Iterations = 50
	}
	if config.TopTerms == 0 {
		config.TopTerms = 10
	}
	if config.ExampleDocs == 0 {
		config.ExampleDocs = 3
	}
	if len(config.Stopwords) == 0 {
		config.Stopwords = defaultStopwords()
	}

	return Modeller{config: config}
}

// Fit runs LDA over the records' clean text. It returns the fitted topics
// and the same records with TopicID assigned.
func (m *Modeller) Fit(records []models.Record) ([]models.Topic, []models.Record, error) {
	if len(records) < m.config.NumTopics {
		return nil, nil, fmt.Errorf("corpus too small: %d documents for %d topics", len(records), m.config.NumTopics)
	}

	corpus := make([]string, len(records))
	for i, rec := range records {
		text := rec.CleanText
		if text == "" {
			text = rec.Text
		}
		corpus[i] = text
	}

	vectoriser := nlp.NewCountVectoriser(m.config.Stopwords...)
	termDocs, err := vectoriser.FitTransform(corpus...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to vectorise corpus: %w", err)
	}

	lda := nlp.NewLatentDirichletAllocation(m.config.NumTopics)
	lda.Iterations = m.config.Iterations
	lda.Processes = 1

	docsOverTopics, err := lda.FitTransform(termDocs)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fit topic model: %w", err)
	}

	// Dominant topic per document
	numTopics, numDocs := docsOverTopics.Dims()
	dominant := make([]int, numDocs)
	for d := 0; d < numDocs; d++ {
		best, bestVal := 0, docsOverTopics.At(0, d)
		for k := 1; k < numTopics; k++ {
			if v := docsOverTopics.At(k, d); v > bestVal {
				best, bestVal = k, v
			}
		}
		dominant[d] = best
		records[d].TopicID = best
	}

	// Invert the vocabulary so term indices map back to words
	vocab := make([]string, len(vectoriser.Vocabulary))
	for word, idx := range vectoriser.Vocabulary {
		vocab[idx] = word
	}

	topicsOverWords := lda.Components()
	topics := make([]models.Topic, numTopics)
	for k := 0; k < numTopics; k++ {
		topics[k] = models.Topic{
			ID:    k,
			Terms: m.topTerms(topicsOverWords, k, vocab),
		}
	}

	// Topic weight = share of documents dominated by it; examples are the
	// first few documents assigned to the topic.
	for d, k := range dominant {
		topics[k].Weight += 1.0 / float64(numDocs)
		if len(topics[k].Examples) < m.config.ExampleDocs {
			topics[k].Examples = append(topics[k].Examples, corpus[d])
		}
	}

	for k := range topics {
		topics[k].Label = defaultLabel(topics[k])
		for d := range records {
			if records[d].TopicID == k {
				records[d].TopicLabel = topics[k].Label
			}
		}
	}

	return topics, records, nil
}

func (m *Modeller) topTerms(topicsOverWords mat.Matrix, topic int, vocab []string) []string {
	_, numWords := topicsOverWords.Dims()

	type scored struct {
		word   string
		weight float64
	}
	terms := make([]scored, 0, numWords)
	for w := 0; w < numWords && w < len(vocab); w++ {
		terms = append(terms, scored{word: vocab[w], weight: topicsOverWords.At(topic, w)})
	}

	sort.Slice(terms, func(i, j int) bool { return terms[i].weight > terms[j].weight })

	n := m.config.TopTerms
	if n > len(terms) {
		n = len(terms)
	}
	out := make([]string, n)
	for i := 0; i < n; i++ {
		out[i] = terms[i].word
	}
	return out
}

// defaultLabel is the fallback when no LLM labeler is configured: the three
// strongest terms joined together.
func defaultLabel(t models.Topic) string {
	n := 3
	if n > len(t.Terms) {
		n = len(t.Terms)
	}
	label := ""
	for i := 0; i < n; i++ {
		if i > 0 {
			label += " / "
		}
		label += t.Terms[i]
	}
	return label
}

func defaultStopwords() []string {
	return []string{
		"a", "an", "and", "are", "as", "at", "be", "by", "for",
		"from", "has", "he", "in", "is", "it", "its", "of", "on",
		"or", "that", "the", "this", "to", "was", "were", "will",
		"with", "you", "your", "i", "we", "they", "but", "not",
		"my", "me", "so", "do", "if", "just", "like", "what",
	}
}
