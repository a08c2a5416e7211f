package topics

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/pulse/internal/models"
)

func testCorpus() []models.Record {
	// Two clearly separated vocabularies: job-loss talk and art-model talk.
	jobs := []string{
		"automation will replace jobs and workers worry about unemployment",
		"jobs and workers face automation and unemployment pressure",
		"unemployment fears grow as automation replaces workers jobs",
		"workers protest automation job losses and unemployment",
	}
	art := []string{
		"diffusion models generate beautiful images and digital art",
		"digital art from diffusion image models looks beautiful",
		"image generation art models produce beautiful digital pictures",
		"beautiful digital images generated by diffusion art models",
	}

	var records []models.Record
	for i, text := range append(jobs, art...) {
		records = append(records, models.Record{
			ID:        string(rune('a' + i)),
			CleanText: text,
		})
	}
	return records
}

func TestFitAssignsTopics(t *testing.T) {
	m := NewWithConfig(ModellerConfig{NumTopics: 2, Iterations: 100, TopTerms: 5})

	topics, records, err := m.Fit(testCorpus())
	require.NoError(t, err)

	require.Len(t, topics, 2)
	for _, topic := range topics {
		assert.Len(t, topic.Terms, 5)
		assert.NotEmpty(t, topic.Label)
		assert.NotEmpty(t, topic.Examples)
	}

	// Weights are document shares and sum to 1
	total := topics[0].Weight + topics[1].Weight
	assert.InDelta(t, 1.0, total, 1e-9)

	// Every record got a topic and its label
	for _, rec := range records {
		assert.Contains(t, []int{0, 1}, rec.TopicID)
		assert.NotEmpty(t, rec.TopicLabel)
	}
}

func TestFitCorpusTooSmall(t *testing.T) {
	m := NewWithConfig(ModellerConfig{NumTopics: 8})

	_, _, err := m.Fit([]models.Record{{CleanText: "only one document"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "corpus too small")
}

func TestDefaultLabel(t *testing.T) {
	topic := models.Topic{Terms: []string{"automation", "jobs", "workers", "extra"}}
	assert.Equal(t, "automation / jobs / workers", defaultLabel(topic))

	short := models.Topic{Terms: []string{"one"}}
	assert.Equal(t, "one", defaultLabel(short))
}

type fakeCompleter struct {
	err error
}

func (f *fakeCompleter) Complete(_ context.Context, _, prompt string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return `"AI and employment"`, nil
}

func TestLabelTopics(t *testing.T) {
	topics := []models.Topic{
		{ID: 0, Terms: []string{"automation", "jobs"}, Label: "automation / jobs", Examples: []string{"doc"}},
	}

	labeled := LabelTopics(context.Background(), &fakeCompleter{}, topics)
	assert.Equal(t, "AI and employment", labeled[0].Label)
}

func TestLabelTopicsKeepsDefaultOnError(t *testing.T) {
	topics := []models.Topic{
		{ID: 0, Terms: []string{"automation", "jobs"}, Label: "automation / jobs"},
	}

	labeled := LabelTopics(context.Background(), &fakeCompleter{err: errors.New("down")}, topics)
	assert.Equal(t, "automation / jobs", labeled[0].Label)
}
