package memory

import (
	"context"
	"errors"
	"log"
)

// Manager wires the message and summary stores onto the two storage channels
type Manager struct {
	Messages  *MessageStore
	Summaries *SummaryStore

	primary  Store
	fallback Store
}

// NewManager creates a new memory manager over a primary and a fallback channel
func NewManager(primary, fallback Store, opts Options) *Manager {
	return &Manager{
		Messages:  NewMessageStore(primary, fallback, opts),
		Summaries: NewSummaryStore(primary, opts),
		primary:   orDisabled(primary),
		fallback:  orDisabled(fallback),
	}
}

// ClearConversation removes messages and summary of one character
func (m *Manager) ClearConversation(ctx context.Context, characterID string) {
	m.Messages.Clear(ctx, characterID)
	m.Summaries.Clear(ctx, characterID)
}

// Close closes both channels
func (m *Manager) Close() error {
	var errs []error
	for _, s := range []Store{m.primary, m.fallback} {
		if closer, ok := s.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	if len(errs) > 0 {
		log.Printf("⚠️ Errors closing storage channels: %v", errs)
	}
	return errors.Join(errs...)
}
