package prompts

import (
	"strings"

	"github.com/avvvet/companion-chat/internal/models"
)

// ContextOptions sets the message windows of a reply context
type ContextOptions struct {
	WithSummary    int // messages kept after the summary entry
	WithoutSummary int // messages kept when there is no summary
}

func DefaultContextOptions() ContextOptions {
	return ContextOptions{WithSummary: 10, WithoutSummary: 15}
}

// BuildContext shapes a message list into the role-tagged entries sent to
// the reply service. With a non-empty summary the window is one system
// entry plus the most recent WithSummary messages, otherwise the most
// recent WithoutSummary messages. Order is oldest to newest.
func BuildContext(messages []models.Message, summary, language string, opts ContextOptions) []models.ContextEntry {
	hasSummary := strings.TrimSpace(summary) != ""

	window := opts.WithoutSummary
	if hasSummary {
		window = opts.WithSummary
	}

	recent := tail(messages, window)

	entries := make([]models.ContextEntry, 0, len(recent)+1)
	if hasSummary {
		entries = append(entries, models.ContextEntry{
			Role:    models.RoleSystem,
			Content: SummaryContext(summary, language),
		})
	}
	for _, msg := range recent {
		entries = append(entries, models.ContextEntry{
			Role:    models.RoleFor(msg.Sender),
			Content: msg.Text,
		})
	}
	return entries
}

// BuildSummaryInput maps the last limit messages onto summary call entries,
// closed by the summary instruction
func BuildSummaryInput(messages []models.Message, limit int) []models.ContextEntry {
	recent := tail(messages, limit)
	entries := make([]models.ContextEntry, 0, len(recent)+1)
	for _, msg := range recent {
		entries = append(entries, models.ContextEntry{
			Role:    models.RoleFor(msg.Sender),
			Content: msg.Text,
		})
	}
	return append(entries, models.ContextEntry{Role: models.RoleUser, Content: SummaryInstruction})
}

func tail(messages []models.Message, n int) []models.Message {
	if n <= 0 {
		return nil
	}
	if len(messages) > n {
		return messages[len(messages)-n:]
	}
	return messages
}
