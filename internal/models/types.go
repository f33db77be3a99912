package models

import "time"

// Sender identifies who authored a message
type Sender string

const (
	SenderUser      Sender = "user"
	SenderCharacter Sender = "character"
)

// Message is a single chat line, never mutated after creation
type Message struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// ConversationRecord is the unit of storage, keyed by character
type ConversationRecord struct {
	CharacterID string    `json:"characterId"`
	Messages    []Message `json:"messages"`
	LastUpdated time.Time `json:"lastUpdated"`
}

// HistoryIndex is the compact record kept in the size-constrained channel
// for quick existence checks
type HistoryIndex struct {
	CharacterID  string    `json:"characterId"`
	MessageCount int       `json:"messageCount"`
	LastUpdated  time.Time `json:"lastUpdated"`
}

// ConversationSummary is the rolling summary of one conversation
type ConversationSummary struct {
	CharacterID   string    `json:"characterId"`
	Summary       string    `json:"summary"`
	LastMessageID string    `json:"lastMessageId"`
	MessageCount  int       `json:"messageCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Role is the role tag of a context entry sent to a text-generation service
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContextEntry is one role-tagged entry of a context window
type ContextEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RoleFor maps a message sender onto a context role
func RoleFor(sender Sender) Role {
	if sender == SenderUser {
		return RoleUser
	}
	return RoleAssistant
}

// WireMessage is the compact message shape used by the reply and
// summarization services
type WireMessage struct {
	ID     string `json:"id,omitempty"`
	Text   string `json:"text"`
	Sender Sender `json:"sender"`
}

// ChatRequest is the reply service request
type ChatRequest struct {
	CharacterID string        `json:"characterId"`
	Messages    []WireMessage `json:"messages"`
	Language    string        `json:"language,omitempty"`
	Summary     string        `json:"summary,omitempty"`
	IsAdult     bool          `json:"isAdult,omitempty"`
}

// ChatResponse is the reply service success response
type ChatResponse struct {
	Response string `json:"response"`
}

// SummarizeRequest is the summarization service request
type SummarizeRequest struct {
	Messages        []WireMessage `json:"messages"`
	CharacterID     string        `json:"characterId"`
	CharacterName   string        `json:"characterName"`
	PreviousSummary string        `json:"previousSummary,omitempty"`
}

// SummarizeResponse is the summarization service success response
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// SendRequest asks the orchestrator to send a user message
type SendRequest struct {
	CharacterID string `json:"characterId"`
	Text        string `json:"text"`
}

// ConversationRequest addresses a conversation for history and clear calls
type ConversationRequest struct {
	CharacterID string `json:"characterId"`
}

// ConversationResponse is the orchestrator's view of a conversation
type ConversationResponse struct {
	CharacterID string               `json:"characterId"`
	Messages    []Message            `json:"messages"`
	Reply       *Message             `json:"reply,omitempty"`
	Summary     *ConversationSummary `json:"summary,omitempty"`
}

// ConversationListResponse lists the characters with a stored conversation
type ConversationListResponse struct {
	CharacterIDs []string `json:"characterIds"`
}

// ConversationUpdate is published every time a conversation's message list changes
type ConversationUpdate struct {
	CharacterID string    `json:"characterId"`
	Message     Message   `json:"message"`
	Count       int       `json:"count"`
	At          time.Time `json:"at"`
}

// ErrorResponse is the structured failure result of every boundary
type ErrorResponse struct {
	Message string `json:"error"`
	Code    string `json:"code"`
	Status  int    `json:"-"`
}

func (e *ErrorResponse) Error() string {
	return e.Code + ": " + e.Message
}

// Error codes
const (
	ErrorInvalidRequest    = "INVALID_REQUEST"
	ErrorCharacterNotFound = "CHARACTER_NOT_FOUND"
	ErrorLLMFailed         = "LLM_API_FAILED"
	ErrorInternal          = "INTERNAL_ERROR"
)

// ToWire strips a message list down to the service wire shape
func ToWire(messages []Message) []WireMessage {
	out := make([]WireMessage, 0, len(messages))
	for _, m := range messages {
		out = append(out, WireMessage{ID: m.ID, Text: m.Text, Sender: m.Sender})
	}
	return out
}

// FromWire rebuilds messages from the service wire shape; ids and
// timestamps are left as the caller sent them
func FromWire(messages []WireMessage) []Message {
	out := make([]Message, 0, len(messages))
	for _, m := range messages {
		out = append(out, Message{ID: m.ID, Text: m.Text, Sender: m.Sender})
	}
	return out
}
