package chat

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/avvvet/companion-chat/internal/characters"
	"github.com/avvvet/companion-chat/internal/memory"
	"github.com/avvvet/companion-chat/internal/models"
	"github.com/avvvet/companion-chat/internal/prompts"
	"github.com/avvvet/companion-chat/internal/summarizer"
)

// ReplyService produces one character reply for a built context
type ReplyService interface {
	Reply(ctx context.Context, character *characters.Character, language string, adult bool, entries []models.ContextEntry) (string, error)
}

// Notifier observes every change of a conversation's message list
type Notifier interface {
	Notify(update models.ConversationUpdate)
}

type Options struct {
	Language string // active language of replies and canned responses
	Adult    bool
	Context  prompts.ContextOptions
	Now      func() time.Time
	NewID    func() string
}

func DefaultOptions() Options {
	return Options{
		Language: "zh-TW",
		Context:  prompts.DefaultContextOptions(),
		Now:      time.Now,
		NewID:    newMessageID,
	}
}

// newMessageID returns a UUIDv7: time ordered, and monotonic within the process
func newMessageID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// conversation is the in-memory state of one character's chat
type conversation struct {
	mu   sync.Mutex
	turn *sync.Cond

	loaded   bool
	messages []models.Message
	summary  *models.ConversationSummary

	// tickets order character replies by send order
	nextTicket uint64
	serving    uint64

	// generation changes on Clear; replies of an older generation are dropped
	generation  uint64
	summarizing bool
}

// Orchestrator runs the send/reply cycle of every conversation
type Orchestrator struct {
	catalogue  *characters.Catalogue
	store      *memory.Manager
	replies    ReplyService
	summarizer *summarizer.Summarizer
	notifier   Notifier
	opts       Options

	mu            sync.Mutex
	conversations map[string]*conversation
	closed        bool
	background    sync.WaitGroup
}

// NewOrchestrator creates an orchestrator; notifier may be nil
func NewOrchestrator(catalogue *characters.Catalogue, store *memory.Manager, replies ReplyService, summ *summarizer.Summarizer, notifier Notifier, opts Options) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = newMessageID
	}
	if opts.Language == "" {
		opts.Language = catalogue.DefaultLanguage()
	}
	return &Orchestrator{
		catalogue:     catalogue,
		store:         store,
		replies:       replies,
		summarizer:    summ,
		notifier:      notifier,
		opts:          opts,
		conversations: make(map[string]*conversation),
	}
}

// Open loads a conversation and seeds the character's greeting when it has
// no history. The greeting is persisted with the first send.
func (o *Orchestrator) Open(ctx context.Context, characterID string) ([]models.Message, error) {
	character, err := o.catalogue.Get(characterID)
	if err != nil {
		return nil, err
	}

	conv := o.conversation(ctx, characterID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	if len(conv.messages) == 0 {
		o.seedGreeting(conv, character)
	}
	return snapshot(conv.messages), nil
}

// Send appends a user message, asks the reply service for an answer and
// appends the character's reply. A failed reply is replaced by a canned
// response, so only an unknown character yields an error. Whitespace-only
// text is a no-op.
func (o *Orchestrator) Send(ctx context.Context, characterID, text string) ([]models.Message, *models.Message, error) {
	character, err := o.catalogue.Get(characterID)
	if err != nil {
		return nil, nil, err
	}

	conv := o.conversation(ctx, characterID)

	text = strings.TrimSpace(text)
	if text == "" {
		conv.mu.Lock()
		defer conv.mu.Unlock()
		return snapshot(conv.messages), nil, nil
	}

	// Saves outlive the request: a reply that times out still persists its canned response
	storeCtx := context.WithoutCancel(ctx)

	// Optimistic update: the user message is stored and visible before the reply
	conv.mu.Lock()
	userMsg := o.newMessage(text, models.SenderUser)
	conv.messages = append(conv.messages, userMsg)
	ticket := conv.nextTicket
	conv.nextTicket++
	generation := conv.generation
	history := snapshot(conv.messages)
	var summaryText string
	if conv.summary != nil {
		summaryText = conv.summary.Summary
	}
	o.store.Messages.Save(storeCtx, conv.messages, characterID)
	o.notify(characterID, userMsg, len(conv.messages))
	o.maybeSummarize(storeCtx, conv, character)
	conv.mu.Unlock()

	entries := prompts.BuildContext(history, summaryText, o.opts.Language, o.opts.Context)

	replyText, err := o.reply(ctx, character, entries)
	replyText = strings.TrimSpace(replyText)
	if err != nil || replyText == "" {
		log.Printf("⚠️ Reply service unavailable for %s, using canned response: %v", characterID, err)
		replyText = character.RandomResponse(o.opts.Language)
	}

	conv.mu.Lock()
	defer conv.mu.Unlock()

	// Wait for every earlier send of this conversation to append its reply
	for conv.serving != ticket {
		conv.turn.Wait()
	}
	defer func() {
		conv.serving++
		conv.turn.Broadcast()
	}()

	if generation != conv.generation {
		log.Printf("🗑️ Dropping reply for cleared conversation %s", characterID)
		return snapshot(conv.messages), nil, nil
	}

	reply := o.newMessage(replyText, models.SenderCharacter)
	conv.messages = append(conv.messages, reply)
	o.store.Messages.Save(storeCtx, conv.messages, characterID)
	o.notify(characterID, reply, len(conv.messages))

	o.maybeSummarize(storeCtx, conv, character)

	return snapshot(conv.messages), &reply, nil
}

// reply calls the reply service; a panic counts as a failed reply so the
// conversation's ticket still advances
func (o *Orchestrator) reply(ctx context.Context, character *characters.Character, entries []models.ContextEntry) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reply service panicked: %v", r)
		}
	}()
	return o.replies.Reply(ctx, character, o.opts.Language, o.opts.Adult, entries)
}

// History returns the current messages of a conversation
func (o *Orchestrator) History(ctx context.Context, characterID string) ([]models.Message, error) {
	if _, err := o.catalogue.Get(characterID); err != nil {
		return nil, err
	}

	conv := o.conversation(ctx, characterID)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	return snapshot(conv.messages), nil
}

// Summary returns the rolling summary of a conversation, or nil
func (o *Orchestrator) Summary(ctx context.Context, characterID string) (*models.ConversationSummary, error) {
	if _, err := o.catalogue.Get(characterID); err != nil {
		return nil, err
	}

	conv := o.conversation(ctx, characterID)
	conv.mu.Lock()
	defer conv.mu.Unlock()
	if conv.summary == nil {
		return nil, nil
	}
	s := *conv.summary
	return &s, nil
}

// Clear deletes a conversation's messages and summary and reseeds the greeting
func (o *Orchestrator) Clear(ctx context.Context, characterID string) ([]models.Message, error) {
	character, err := o.catalogue.Get(characterID)
	if err != nil {
		return nil, err
	}

	conv := o.conversation(ctx, characterID)
	conv.mu.Lock()
	defer conv.mu.Unlock()

	o.store.ClearConversation(ctx, characterID)
	conv.messages = nil
	conv.summary = nil
	conv.generation++
	o.seedGreeting(conv, character)

	return snapshot(conv.messages), nil
}

// SavedCharacterIDs lists the characters that have a stored conversation
func (o *Orchestrator) SavedCharacterIDs(ctx context.Context) []string {
	return o.store.Messages.SavedCharacterIDs(ctx)
}

// Wait blocks until every background summarization has finished
func (o *Orchestrator) Wait() {
	o.background.Wait()
}

// Close stops new background work and waits for the running tasks
func (o *Orchestrator) Close() {
	o.mu.Lock()
	o.closed = true
	o.mu.Unlock()
	o.background.Wait()
}

// conversation returns the loaded state of a character's conversation
func (o *Orchestrator) conversation(ctx context.Context, characterID string) *conversation {
	o.mu.Lock()
	conv, ok := o.conversations[characterID]
	if !ok {
		conv = &conversation{}
		conv.turn = sync.NewCond(&conv.mu)
		o.conversations[characterID] = conv
	}
	o.mu.Unlock()

	conv.mu.Lock()
	defer conv.mu.Unlock()
	if !conv.loaded {
		conv.messages = o.store.Messages.Load(ctx, characterID)
		conv.summary = o.store.Summaries.Load(ctx, characterID)
		conv.loaded = true
		log.Printf("📚 Loaded conversation %s with %d messages", characterID, len(conv.messages))
	}
	return conv
}

// seedGreeting must be called with conv.mu held
func (o *Orchestrator) seedGreeting(conv *conversation, character *characters.Character) {
	greeting := character.Greeting(o.opts.Language, o.opts.Adult)
	if greeting == "" {
		return
	}
	msg := o.newMessage(greeting, models.SenderCharacter)
	conv.messages = append(conv.messages, msg)
	o.notify(character.ID, msg, len(conv.messages))
}

// maybeSummarize starts a background summary when the threshold is reached.
// It must be called with conv.mu held.
func (o *Orchestrator) maybeSummarize(ctx context.Context, conv *conversation, character *characters.Character) {
	if o.summarizer == nil || conv.summarizing {
		return
	}
	if !o.summarizer.ShouldSummarize(conv.messages, conv.summary) {
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.closed {
		return
	}

	conv.summarizing = true
	messages := snapshot(conv.messages)
	existing := conv.summary
	generation := conv.generation
	bg := context.WithoutCancel(ctx)

	o.background.Add(1)
	go func() {
		defer o.background.Done()
		o.summarize(bg, conv, character, messages, existing, generation)
	}()
}

func (o *Orchestrator) summarize(ctx context.Context, conv *conversation, character *characters.Character, messages []models.Message, existing *models.ConversationSummary, generation uint64) {
	updated := o.summarizer.Update(ctx, messages, character.ID, character.Name, existing)

	conv.mu.Lock()
	defer conv.mu.Unlock()
	conv.summarizing = false

	if generation != conv.generation {
		log.Printf("🗑️ Discarding summary of cleared conversation %s", character.ID)
		return
	}
	if updated == nil || updated == existing {
		return
	}

	conv.summary = updated
	o.store.Summaries.Save(ctx, character.ID, updated)
}

func (o *Orchestrator) newMessage(text string, sender models.Sender) models.Message {
	return models.Message{
		ID:        o.opts.NewID(),
		Text:      text,
		Sender:    sender,
		Timestamp: o.opts.Now(),
	}
}

func (o *Orchestrator) notify(characterID string, msg models.Message, count int) {
	if o.notifier == nil {
		return
	}
	o.notifier.Notify(models.ConversationUpdate{
		CharacterID: characterID,
		Message:     msg,
		Count:       count,
		At:          o.opts.Now(),
	})
}

func snapshot(messages []models.Message) []models.Message {
	out := make([]models.Message, len(messages))
	copy(out, messages)
	return out
}
