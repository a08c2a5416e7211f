package sentiment

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/xhad/pulse/internal/models"
	"github.com/xhad/pulse/internal/types"
)

// Completer is the slice of the chat engine the LLM scorer needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const llmSystemPrompt = "You are a sentiment rater. Reply with a single number between -1.0 " +
	"(most negative) and 1.0 (most positive) describing the attitude of the text. " +
	"Reply with the number only."

var _ types.Scorer = (*LLMScorer)(nil)

// LLMScorer asks a local model for a compound-style score. Slower than the
// lexicon but better on sarcasm-heavy comment threads.
type LLMScorer struct {
	completer  Completer
	thresholds LabelThresholds
}

func NewLLMScorer(completer Completer, thresholds LabelThresholds) *LLMScorer {
	return &LLMScorer{completer: completer, thresholds: thresholds}
}

func (s *LLMScorer) Name() string { return "llm" }

func (s *LLMScorer) Score(ctx context.Context, rec *models.Record) error {
	text := rec.CleanText
	if text == "" {
		text = rec.Text
	}
	if text == "" {
		return fmt.Errorf("record %s has no text to score", rec.ID)
	}

	reply, err := s.completer.Complete(ctx, llmSystemPrompt, text)
	if err != nil {
		return fmt.Errorf("llm scoring failed: %w", err)
	}

	compound, err := parseScore(reply)
	if err != nil {
		return fmt.Errorf("llm returned unusable score %q: %w", reply, err)
	}

	rec.Compound = compound
	rec.Label = s.thresholds.Label(compound)
	rec.Scored = true
	return nil
}

// parseScore extracts the first float in the reply and clamps it to [-1, 1].
func parseScore(reply string) (float64, error) {
	for _, field := range strings.Fields(reply) {
		field = strings.Trim(field, ".,;:")
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			continue
		}
		if v > 1 {
			v = 1
		}
		if v < -1 {
			v = -1
		}
		return v, nil
	}
	return 0, fmt.Errorf("no number found")
}
