package memory

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/avvvet/companion-chat/internal/models"
)

// SummaryStore persists one rolling summary per character in the primary channel
type SummaryStore struct {
	store  Store
	prefix string
}

// NewSummaryStore creates a summary store; a nil store is treated as disabled
func NewSummaryStore(store Store, opts Options) *SummaryStore {
	return &SummaryStore{
		store:  orDisabled(store),
		prefix: opts.SummaryPrefix,
	}
}

func (s *SummaryStore) key(characterID string) string {
	return s.prefix + characterID
}

// Save stores the summary for a character
func (s *SummaryStore) Save(ctx context.Context, characterID string, summary *models.ConversationSummary) {
	if characterID == "" || summary == nil {
		return
	}

	data, err := json.Marshal(summary)
	if err != nil {
		log.Printf("❌ Failed to serialize summary of %s: %v", characterID, err)
		return
	}
	if err := s.store.Set(ctx, s.key(characterID), data); err != nil {
		log.Printf("⚠️ Failed to save summary of %s: %v", characterID, err)
		return
	}
	log.Printf("💾 Saved summary of %s covering %d messages", characterID, summary.MessageCount)
}

// Load returns the stored summary, or nil when none exists or it is unreadable
func (s *SummaryStore) Load(ctx context.Context, characterID string) *models.ConversationSummary {
	if characterID == "" {
		return nil
	}

	data, err := s.store.Get(ctx, s.key(characterID))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) && !errors.Is(err, ErrStoreDisabled) {
			log.Printf("⚠️ Failed to load summary of %s: %v", characterID, err)
		}
		return nil
	}

	summary, err := decodeSummary(data)
	if err != nil {
		log.Printf("⚠️ Ignoring invalid summary of %s: %v", characterID, err)
		return nil
	}
	return summary
}

// Clear removes the summary of a character
func (s *SummaryStore) Clear(ctx context.Context, characterID string) {
	if characterID == "" {
		return
	}
	if err := s.store.Delete(ctx, s.key(characterID)); err != nil && !errors.Is(err, ErrStoreDisabled) {
		log.Printf("⚠️ Failed to clear summary of %s: %v", characterID, err)
	}
}
