package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/avvvet/companion-chat/internal/models"
)

const expirySuffix = "_expiry"

// Options configures key layout and retention of the message and summary stores
type Options struct {
	KeyPrefix        string        // primary record key prefix
	FallbackPrefix   string        // fallback record key prefix
	IndexPrefix      string        // compact index key prefix (fallback channel)
	SummaryPrefix    string        // summary key prefix (primary channel)
	MaxMessages      int           // retention cap, oldest evicted first
	FallbackMaxBytes int           // byte budget of a fallback record
	Retention        time.Duration // lifetime of a primary record
	Now              func() time.Time
}

// DefaultOptions mirrors the defaults of the config package
func DefaultOptions() Options {
	return Options{
		KeyPrefix:        "crushie_chat_",
		FallbackPrefix:   "crushie_chat_history_",
		IndexPrefix:      "crushie_chat_index_",
		SummaryPrefix:    "crushie_summary_",
		MaxMessages:      500,
		FallbackMaxBytes: 4000,
		Retention:        365 * 24 * time.Hour,
		Now:              time.Now,
	}
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// MessageStore persists a bounded message list per character. Writes go to
// the primary channel; the fallback channel holds a compact index record and,
// when the primary rejects a write, a trimmed copy of the conversation.
//
// No method returns an error: persistence failures are logged and the
// conversation carries on in memory.
type MessageStore struct {
	primary  Store
	fallback Store
	opts     Options
}

// NewMessageStore creates a message store; a nil channel is treated as disabled
func NewMessageStore(primary, fallback Store, opts Options) *MessageStore {
	return &MessageStore{
		primary:  orDisabled(primary),
		fallback: orDisabled(fallback),
		opts:     opts,
	}
}

func (s *MessageStore) recordKey(characterID string) string {
	return s.opts.KeyPrefix + characterID
}

func (s *MessageStore) expiryKey(characterID string) string {
	return s.recordKey(characterID) + expirySuffix
}

func (s *MessageStore) fallbackKey(characterID string) string {
	return s.opts.FallbackPrefix + characterID
}

func (s *MessageStore) indexKey(characterID string) string {
	return s.opts.IndexPrefix + characterID
}

// Save persists the most recent MaxMessages messages for a character
func (s *MessageStore) Save(ctx context.Context, messages []models.Message, characterID string) {
	if characterID == "" {
		log.Printf("⚠️ Refusing to save messages without a character id")
		return
	}

	kept := make([]models.Message, 0, len(messages))
	if s.opts.MaxMessages > 0 && len(messages) > s.opts.MaxMessages {
		kept = append(kept, messages[len(messages)-s.opts.MaxMessages:]...)
	} else {
		kept = append(kept, messages...)
	}

	now := s.opts.now()
	record := models.ConversationRecord{
		CharacterID: characterID,
		Messages:    kept,
		LastUpdated: now,
	}

	data, err := json.Marshal(record)
	if err != nil {
		log.Printf("❌ Failed to serialize conversation %s: %v", characterID, err)
		return
	}

	if err := s.writePrimary(ctx, characterID, data, now); err != nil {
		log.Printf("⚠️ Primary save failed for %s, using fallback: %v", characterID, err)
		s.writeFallback(ctx, record)
	}

	index := models.HistoryIndex{
		CharacterID:  characterID,
		MessageCount: len(kept),
		LastUpdated:  now,
	}
	if data, err := json.Marshal(index); err == nil {
		if err := s.fallback.Set(ctx, s.indexKey(characterID), data); err != nil {
			log.Printf("⚠️ Failed to save history index for %s: %v", characterID, err)
		}
	}
}

// writePrimary stores the record together with its expiry marker
func (s *MessageStore) writePrimary(ctx context.Context, characterID string, data []byte, now time.Time) error {
	if err := s.primary.Set(ctx, s.recordKey(characterID), data); err != nil {
		return err
	}
	deadline := now.Add(s.opts.Retention).UTC().Format(time.RFC3339Nano)
	if err := s.primary.Set(ctx, s.expiryKey(characterID), []byte(deadline)); err != nil {
		return fmt.Errorf("failed to save expiry marker: %w", err)
	}
	return nil
}

// writeFallback drops the oldest messages until the record fits the
// fallback channel's byte budget or no messages are left
func (s *MessageStore) writeFallback(ctx context.Context, record models.ConversationRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		log.Printf("❌ Failed to serialize fallback record: %v", err)
		return
	}

	budget := s.opts.FallbackMaxBytes
	dropped := 0
	for budget > 0 && len(data) > budget && len(record.Messages) > 0 {
		record.Messages = record.Messages[1:]
		dropped++
		if data, err = json.Marshal(record); err != nil {
			log.Printf("❌ Failed to serialize fallback record: %v", err)
			return
		}
	}
	if dropped > 0 {
		log.Printf("✂️ Dropped %d oldest messages of %s to fit %d-byte fallback budget", dropped, record.CharacterID, budget)
	}

	if err := s.fallback.Set(ctx, s.fallbackKey(record.CharacterID), data); err != nil {
		log.Printf("❌ Fallback save failed for %s: %v", record.CharacterID, err)
		return
	}
	log.Printf("💾 Saved %d messages of %s to fallback channel", len(record.Messages), record.CharacterID)
}

// Load returns the persisted messages for a character, or an empty list
func (s *MessageStore) Load(ctx context.Context, characterID string) []models.Message {
	if characterID == "" {
		return []models.Message{}
	}

	if s.expired(ctx, characterID) {
		log.Printf("🗑️ History of %s expired, removing it", characterID)
		s.deleteKeys(ctx, s.primary, s.recordKey(characterID), s.expiryKey(characterID))
		s.deleteKeys(ctx, s.fallback, s.fallbackKey(characterID), s.indexKey(characterID))
		return []models.Message{}
	}

	data, err := s.primary.Get(ctx, s.recordKey(characterID))
	switch {
	case err == nil:
		record, decodeErr := decodeRecord(data)
		if decodeErr == nil && record.CharacterID == characterID {
			return nonNil(record.Messages)
		}
		if decodeErr != nil {
			log.Printf("⚠️ Ignoring invalid primary record for %s: %v", characterID, decodeErr)
		}
	case !errors.Is(err, ErrKeyNotFound):
		log.Printf("⚠️ Primary load failed for %s, trying fallback: %v", characterID, err)
	}

	return s.loadFallback(ctx, characterID)
}

// loadFallback reads the fallback record and migrates it into the primary channel
func (s *MessageStore) loadFallback(ctx context.Context, characterID string) []models.Message {
	data, err := s.fallback.Get(ctx, s.fallbackKey(characterID))
	if err != nil {
		if !errors.Is(err, ErrKeyNotFound) {
			log.Printf("⚠️ Fallback load failed for %s: %v", characterID, err)
		}
		return []models.Message{}
	}

	record, err := decodeRecord(data)
	if err != nil {
		log.Printf("⚠️ Ignoring invalid fallback record for %s: %v", characterID, err)
		return []models.Message{}
	}
	if record.CharacterID != characterID {
		return []models.Message{}
	}

	if err := s.writePrimary(ctx, characterID, data, s.opts.now()); err != nil {
		log.Printf("⚠️ Could not migrate fallback record of %s to primary: %v", characterID, err)
	} else {
		log.Printf("📦 Migrated %d messages of %s from fallback to primary", len(record.Messages), characterID)
	}
	return nonNil(record.Messages)
}

// expired reports whether the primary record is past its expiry marker
func (s *MessageStore) expired(ctx context.Context, characterID string) bool {
	data, err := s.primary.Get(ctx, s.expiryKey(characterID))
	if err != nil {
		return false
	}
	deadline, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(string(data)))
	if err != nil {
		log.Printf("⚠️ Ignoring malformed expiry marker for %s: %v", characterID, err)
		return false
	}
	return deadline.Before(s.opts.now())
}

// Clear removes one character's history, or every history when characterID is empty
func (s *MessageStore) Clear(ctx context.Context, characterID string) {
	if characterID != "" {
		s.deleteKeys(ctx, s.primary, s.recordKey(characterID), s.expiryKey(characterID))
		s.deleteKeys(ctx, s.fallback, s.fallbackKey(characterID), s.indexKey(characterID))
		log.Printf("🗑️ Cleared history of %s", characterID)
		return
	}

	s.deletePrefix(ctx, s.primary, s.opts.KeyPrefix)
	s.deletePrefix(ctx, s.fallback, s.opts.FallbackPrefix)
	s.deletePrefix(ctx, s.fallback, s.opts.IndexPrefix)
	log.Printf("🗑️ Cleared all chat histories")
}

// SavedCharacterIDs lists characters that have a history in the primary channel
func (s *MessageStore) SavedCharacterIDs(ctx context.Context) []string {
	keys, err := s.primary.Keys(ctx, s.opts.KeyPrefix)
	if err != nil {
		log.Printf("⚠️ Failed to list saved conversations: %v", err)
		return []string{}
	}
	ids := make([]string, 0, len(keys))
	for _, k := range keys {
		if strings.HasSuffix(k, expirySuffix) {
			continue
		}
		if id := strings.TrimPrefix(k, s.opts.KeyPrefix); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func (s *MessageStore) deleteKeys(ctx context.Context, store Store, keys ...string) {
	if err := store.Delete(ctx, keys...); err != nil && !errors.Is(err, ErrStoreDisabled) {
		log.Printf("⚠️ Failed to delete %v: %v", keys, err)
	}
}

func (s *MessageStore) deletePrefix(ctx context.Context, store Store, prefix string) {
	keys, err := store.Keys(ctx, prefix)
	if err != nil {
		if !errors.Is(err, ErrStoreDisabled) {
			log.Printf("⚠️ Failed to list keys under %s: %v", prefix, err)
		}
		return
	}
	s.deleteKeys(ctx, store, keys...)
}

func nonNil(messages []models.Message) []models.Message {
	if messages == nil {
		return []models.Message{}
	}
	return messages
}
