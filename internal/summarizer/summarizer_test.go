package summarizer

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/avvvet/companion-chat/internal/models"
)

var now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

// mockGenerator records requests and answers with a fixed summary
type mockGenerator struct {
	summary  string
	err      error
	requests []*models.SummarizeRequest
}

func (m *mockGenerator) Summarize(_ context.Context, request *models.SummarizeRequest) (string, error) {
	m.requests = append(m.requests, request)
	return m.summary, m.err
}

func messages(n int) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		sender := models.SenderUser
		if i%2 == 1 {
			sender = models.SenderCharacter
		}
		msgs[i] = models.Message{
			ID:        fmt.Sprintf("id-%03d", i+1),
			Text:      fmt.Sprintf("message %d", i+1),
			Sender:    sender,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		}
	}
	return msgs
}

func newSummarizer(g Generator) *Summarizer {
	opts := DefaultOptions()
	opts.Now = func() time.Time { return now }
	return New(g, opts)
}

func TestShouldSummarizeThreshold(t *testing.T) {
	s := newSummarizer(nil)

	assert.False(t, s.ShouldSummarize(messages(19), nil))
	assert.True(t, s.ShouldSummarize(messages(20), nil))

	existing := &models.ConversationSummary{MessageCount: 20}
	assert.False(t, s.ShouldSummarize(messages(39), existing))
	assert.True(t, s.ShouldSummarize(messages(40), existing))
}

func TestShouldSummarizeIsStable(t *testing.T) {
	s := newSummarizer(nil)
	msgs := messages(25)
	existing := &models.ConversationSummary{MessageCount: 10}

	first := s.ShouldSummarize(msgs, existing)
	assert.Equal(t, first, s.ShouldSummarize(msgs, existing))
}

func TestUpdateFirstSummary(t *testing.T) {
	gen := &mockGenerator{summary: "  They met and talked about cats.  "}
	s := newSummarizer(gen)
	msgs := messages(20)

	got := s.Update(context.Background(), msgs, "ethan", "Ethan", nil)

	want := &models.ConversationSummary{
		CharacterID:   "ethan",
		Summary:       "They met and talked about cats.",
		LastMessageID: "id-020",
		MessageCount:  20,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Update() mismatch (-want +got):\n%s", diff)
	}

	require.Len(t, gen.requests, 1)
	assert.Len(t, gen.requests[0].Messages, 20)
	assert.Equal(t, "Ethan", gen.requests[0].CharacterName)
	assert.Empty(t, gen.requests[0].PreviousSummary)
}

func TestUpdateMergesWithPrevious(t *testing.T) {
	gen := &mockGenerator{summary: "then about the rain"}
	s := newSummarizer(gen)
	msgs := messages(45)
	created := now.Add(-time.Hour)
	existing := &models.ConversationSummary{
		CharacterID:   "ethan",
		Summary:       "talked about cats",
		LastMessageID: "id-020",
		MessageCount:  20,
		CreatedAt:     created,
		UpdatedAt:     created,
	}

	got := s.Update(context.Background(), msgs, "ethan", "Ethan", existing)

	assert.Equal(t, "talked about cats | then about the rain", got.Summary)
	assert.Equal(t, "id-045", got.LastMessageID)
	assert.Equal(t, 45, got.MessageCount)
	assert.True(t, got.CreatedAt.Equal(created))
	assert.True(t, got.UpdatedAt.Equal(now))

	require.Len(t, gen.requests, 1)
	req := gen.requests[0]
	assert.Equal(t, "talked about cats", req.PreviousSummary)
	// 10 already summarized messages of context plus 25 new ones
	require.Len(t, req.Messages, 35)
	assert.Equal(t, "id-011", req.Messages[0].ID)
	assert.Equal(t, "id-045", req.Messages[34].ID)
}

func TestUpdateWithoutNewMessagesIsNoop(t *testing.T) {
	gen := &mockGenerator{summary: "unused"}
	s := newSummarizer(gen)
	existing := &models.ConversationSummary{
		CharacterID:   "ethan",
		Summary:       "talked about cats",
		LastMessageID: "id-020",
		MessageCount:  20,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	snapshot := *existing

	got := s.Update(context.Background(), messages(20), "ethan", "Ethan", existing)

	assert.Same(t, existing, got)
	assert.Equal(t, snapshot, *got)
	assert.Empty(t, gen.requests)

	assert.Nil(t, s.Update(context.Background(), nil, "ethan", "Ethan", nil))
}

func TestUpdateFallsBackToLocalSummary(t *testing.T) {
	for name, gen := range map[string]Generator{
		"error":        &mockGenerator{err: errors.New("service unavailable")},
		"empty":        &mockGenerator{summary: "   "},
		"no generator": nil,
	} {
		t.Run(name, func(t *testing.T) {
			s := newSummarizer(gen)
			msgs := messages(20)

			got := s.Update(context.Background(), msgs, "alex", "Alex", nil)

			require.NotNil(t, got)
			assert.Equal(t, LocalSummary(msgs, "Alex"), got.Summary)
			assert.Equal(t, "id-020", got.LastMessageID)
			assert.Equal(t, 20, got.MessageCount)
		})
	}
}

func TestLocalSummary(t *testing.T) {
	msgs := messages(20)
	msgs[18].Text = "this user message is definitely longer than twenty runes"

	got := LocalSummary(msgs, "Alex")
	assert.Equal(t,
		"Conversation with Alex, main topics: message 11, message 13, message 15, message 17, this user message is...",
		got)

	cjk := []models.Message{{ID: "1", Text: "今天天氣很好我們一起去公園散步然後吃冰淇淋好不好呢", Sender: models.SenderUser}}
	assert.Equal(t, "Conversation with Ethan, main topics: 今天天氣很好我們一起去公園散步然後吃冰淇...", LocalSummary(cjk, "Ethan"))

	assert.Equal(t, "Conversation with Kaito, main topics: ...", LocalSummary(nil, "Kaito"))
}
