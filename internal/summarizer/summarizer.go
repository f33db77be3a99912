package summarizer

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/avvvet/companion-chat/internal/models"
)

const (
	// Separator joins a previous summary with the next one
	Separator = " | "

	localTopics      = 5
	localTopicLength = 20
)

// Generator produces summary text for a batch of messages
type Generator interface {
	Summarize(ctx context.Context, request *models.SummarizeRequest) (string, error)
}

type Options struct {
	Threshold     int // new messages needed before a (re)summary
	PriorMessages int // already summarized messages kept as context
	Now           func() time.Time
}

func DefaultOptions() Options {
	return Options{Threshold: 20, PriorMessages: 10, Now: time.Now}
}

// Summarizer maintains the rolling summary of a conversation
type Summarizer struct {
	generator Generator
	opts      Options
}

// New creates a summarizer; a nil generator always uses the local summary
func New(generator Generator, opts Options) *Summarizer {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Summarizer{generator: generator, opts: opts}
}

// ShouldSummarize reports whether enough messages accumulated since the
// existing summary, or since the start when there is none
func (s *Summarizer) ShouldSummarize(messages []models.Message, existing *models.ConversationSummary) bool {
	if existing == nil {
		return len(messages) >= s.opts.Threshold
	}
	return len(messages)-existing.MessageCount >= s.opts.Threshold
}

// Update folds messages newer than existing.LastMessageID into the summary.
// It returns existing unchanged when there is nothing new and never fails:
// a generator error yields a locally built summary instead.
func (s *Summarizer) Update(ctx context.Context, messages []models.Message, characterID, characterName string, existing *models.ConversationSummary) *models.ConversationSummary {
	fresh, prior := partition(messages, existing)
	if len(fresh) == 0 {
		return existing
	}

	input := make([]models.Message, 0, len(prior)+len(fresh))
	if len(prior) > s.opts.PriorMessages {
		prior = prior[len(prior)-s.opts.PriorMessages:]
	}
	input = append(input, prior...)
	input = append(input, fresh...)

	request := &models.SummarizeRequest{
		Messages:      models.ToWire(input),
		CharacterID:   characterID,
		CharacterName: characterName,
	}
	if existing != nil {
		request.PreviousSummary = existing.Summary
	}

	text := s.generate(ctx, request, input)

	now := s.opts.Now()
	result := &models.ConversationSummary{
		CharacterID:   characterID,
		Summary:       text,
		LastMessageID: messages[len(messages)-1].ID,
		MessageCount:  len(messages),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if existing != nil {
		result.Summary = existing.Summary + Separator + text
		if !existing.CreatedAt.IsZero() {
			result.CreatedAt = existing.CreatedAt
		}
	}

	log.Printf("📝 Summarized %d new messages of %s", len(fresh), characterID)
	return result
}

func (s *Summarizer) generate(ctx context.Context, request *models.SummarizeRequest, input []models.Message) string {
	if s.generator == nil {
		return LocalSummary(input, request.CharacterName)
	}

	text, err := s.generator.Summarize(ctx, request)
	if err == nil {
		text = strings.TrimSpace(text)
	}
	if err != nil || text == "" {
		if err == nil {
			err = fmt.Errorf("empty summary")
		}
		log.Printf("⚠️ Summary generation failed for %s, using local summary: %v", request.CharacterID, err)
		return LocalSummary(input, request.CharacterName)
	}
	return text
}

// LocalSummary lists the opening words of the latest user messages under a
// fixed label. It needs no external service.
func LocalSummary(messages []models.Message, characterName string) string {
	topics := make([]string, 0, localTopics)
	for i := len(messages) - 1; i >= 0 && len(topics) < localTopics; i-- {
		if messages[i].Sender == models.SenderUser {
			topics = append(topics, prefix(messages[i].Text, localTopicLength))
		}
	}
	for i, j := 0, len(topics)-1; i < j; i, j = i+1, j-1 {
		topics[i], topics[j] = topics[j], topics[i]
	}
	return fmt.Sprintf("Conversation with %s, main topics: %s...", characterName, strings.Join(topics, ", "))
}

// partition splits messages into those newer than the summary and those
// already folded into it
func partition(messages []models.Message, existing *models.ConversationSummary) (fresh, prior []models.Message) {
	if existing == nil {
		return messages, nil
	}
	for _, m := range messages {
		if m.ID > existing.LastMessageID {
			fresh = append(fresh, m)
		} else {
			prior = append(prior, m)
		}
	}
	return fresh, prior
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
