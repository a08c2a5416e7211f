package topics

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/xhad/pulse/internal/models"
)

// Completer is the slice of the chat engine topic labeling needs.
type Completer interface {
	Complete(ctx context.Context, system, prompt string) (string, error)
}

const labelSystemPrompt = "You name discussion topics. Given the strongest terms of a topic " +
	"and a few example documents, reply with a short human-readable label of at most five words. " +
	"Reply with the label only."

// LabelTopics asks the model for a readable label per topic. A failed call
// leaves the term-based default label in place.
func LabelTopics(ctx context.Context, completer Completer, topics []models.Topic) []models.Topic {
	for i := range topics {
		prompt := labelPrompt(topics[i])

		reply, err := completer.Complete(ctx, labelSystemPrompt, prompt)
		if err != nil {
			slog.Warn("topic labeling failed", slog.Int("topic", topics[i].ID), slog.Any("error", err))
			continue
		}

		label := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), `"`))
		if label != "" {
			topics[i].Label = label
		}
	}
	return topics
}

func labelPrompt(t models.Topic) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Terms: %s\n", strings.Join(t.Terms, ", "))
	for _, ex := range t.Examples {
		if len(ex) > 200 {
			ex = ex[:200]
		}
		fmt.Fprintf(&b, "Example: %s\n", ex)
	}
	return b.String()
}
