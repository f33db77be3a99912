package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avvvet/companion-chat/internal/config"
	"github.com/avvvet/companion-chat/internal/models"
)

// Subject names under the configured prefix
const (
	SubjectReply     = "reply"
	SubjectSummarize = "summarize"
	SubjectSend      = "send"
	SubjectHistory   = "history"
	SubjectClear     = "clear"
	SubjectUpdates   = "updates"
)

// NATSTransport serves the chat services over NATS request/reply and
// publishes conversation updates
type NATSTransport struct {
	conn     *nats.Conn
	config   *config.Config
	services *Services
	subs     []*nats.Subscription
}

func NewNATSTransport(cfg *config.Config) (*NATSTransport, error) {
	conn, err := nats.Connect(cfg.NatsURL,
		nats.Name(cfg.ServiceName),
		nats.Timeout(cfg.NatsTimeout),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1), // Infinite reconnects
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	log.Printf("Connected to NATS server: %s", cfg.NatsURL)

	return &NATSTransport{
		conn:   conn,
		config: cfg,
	}, nil
}

// Subject returns the full subject name for one of the Subject constants
func (nt *NATSTransport) Subject(name string) string {
	return nt.config.NatsSubjectPrefix + "." + name
}

// Start subscribes the request handlers
func (nt *NATSTransport) Start(services *Services) error {
	nt.services = services

	handlers := map[string]nats.MsgHandler{
		SubjectReply:     nt.handleChatRequest,
		SubjectSummarize: nt.handleSummarizeRequest,
		SubjectSend:      nt.handleSendRequest,
		SubjectHistory:   nt.handleHistoryRequest,
		SubjectClear:     nt.handleClearRequest,
	}

	for name, handler := range handlers {
		subject := nt.Subject(name)
		sub, err := nt.conn.Subscribe(subject, handler)
		if err != nil {
			return fmt.Errorf("failed to subscribe to %s: %w", subject, err)
		}
		nt.subs = append(nt.subs, sub)
		log.Printf("Subscribed to subject: %s", subject)
	}

	// Make sure the server has registered every subscription before callers send requests
	if err := nt.conn.Flush(); err != nil {
		return fmt.Errorf("failed to flush subscriptions: %w", err)
	}
	return nil
}

func (nt *NATSTransport) handleChatRequest(msg *nats.Msg) {
	var request models.ChatRequest
	if err := decodeRequest(chatRequestSchema, msg.Data, &request); err != nil {
		nt.sendErrorResponse(msg, err)
		return
	}

	log.Printf("Processing reply request for character: %s", request.CharacterID)

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.services.Chat.ProcessChat(ctx, &request)
	nt.respond(msg, response, err)
}

func (nt *NATSTransport) handleSummarizeRequest(msg *nats.Msg) {
	var request models.SummarizeRequest
	if err := decodeRequest(summarizeRequestSchema, msg.Data, &request); err != nil {
		nt.sendErrorResponse(msg, err)
		return
	}

	log.Printf("Processing summarize request for character: %s", request.CharacterID)

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.services.Summarize.ProcessSummarize(ctx, &request)
	nt.respond(msg, response, err)
}

func (nt *NATSTransport) handleSendRequest(msg *nats.Msg) {
	var request models.SendRequest
	if err := decodeRequest(sendRequestSchema, msg.Data, &request); err != nil {
		nt.sendErrorResponse(msg, err)
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.services.send(ctx, &request)
	nt.respond(msg, response, err)
}

func (nt *NATSTransport) handleHistoryRequest(msg *nats.Msg) {
	var request models.ConversationRequest
	if err := decodeRequest(conversationRequestSchema, msg.Data, &request); err != nil {
		nt.sendErrorResponse(msg, err)
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.services.history(ctx, request.CharacterID)
	nt.respond(msg, response, err)
}

func (nt *NATSTransport) handleClearRequest(msg *nats.Msg) {
	var request models.ConversationRequest
	if err := decodeRequest(conversationRequestSchema, msg.Data, &request); err != nil {
		nt.sendErrorResponse(msg, err)
		return
	}

	ctx, cancel := nt.requestContext()
	defer cancel()

	response, err := nt.services.clear(ctx, request.CharacterID)
	nt.respond(msg, response, err)
}

// Notify publishes a conversation update on <prefix>.updates.<characterId>
func (nt *NATSTransport) Notify(update models.ConversationUpdate) {
	data, err := json.Marshal(update)
	if err != nil {
		log.Printf("❌ Failed to marshal update for %s: %v", update.CharacterID, err)
		return
	}

	subject := nt.Subject(SubjectUpdates) + "." + update.CharacterID
	if err := nt.conn.Publish(subject, data); err != nil {
		log.Printf("⚠️ Failed to publish update on %s: %v", subject, err)
	}
}

func (nt *NATSTransport) requestContext() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), nt.config.NatsTimeout)
}

func (nt *NATSTransport) respond(msg *nats.Msg, response any, err error) {
	if err != nil {
		log.Printf("Error processing request on %s: %v", msg.Subject, err)
		nt.sendErrorResponse(msg, err)
		return
	}

	if err := nt.sendResponse(msg, response); err != nil {
		log.Printf("Error sending response: %v", err)
	}
}

func (nt *NATSTransport) sendResponse(msg *nats.Msg, response any) error {
	responseData, err := json.Marshal(response)
	if err != nil {
		return fmt.Errorf("failed to marshal response: %w", err)
	}

	if err := msg.Respond(responseData); err != nil {
		return fmt.Errorf("failed to send response: %w", err)
	}

	log.Printf("Response sent on subject: %s", msg.Subject)
	return nil
}

func (nt *NATSTransport) sendErrorResponse(msg *nats.Msg, err error) {
	if sendErr := nt.sendResponse(msg, asErrorResponse(err)); sendErr != nil {
		log.Printf("Failed to send error response: %v", sendErr)
	}
}

func (nt *NATSTransport) Close() error {
	for _, sub := range nt.subs {
		if err := sub.Unsubscribe(); err != nil {
			log.Printf("⚠️ Failed to unsubscribe from %s: %v", sub.Subject, err)
		}
	}
	if nt.conn != nil {
		nt.conn.Close()
		log.Println("NATS connection closed")
	}
	return nil
}
