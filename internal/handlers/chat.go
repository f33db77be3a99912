package handlers

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/avvvet/companion-chat/internal/characters"
	"github.com/avvvet/companion-chat/internal/config"
	"github.com/avvvet/companion-chat/internal/llm"
	"github.com/avvvet/companion-chat/internal/models"
	"github.com/avvvet/companion-chat/internal/prompts"
)

// Options tunes the reply and summary calls
type Options struct {
	ReplyMaxTokens       int
	ReplyTemperature     float64
	SummaryMaxTokens     int
	SummaryTemperature   float64
	SummaryInputMessages int
	Timeout              time.Duration
	Context              prompts.ContextOptions
}

func DefaultOptions() Options {
	return Options{
		ReplyMaxTokens:       200,
		ReplyTemperature:     0.7,
		SummaryMaxTokens:     100,
		SummaryTemperature:   0.3,
		SummaryInputMessages: 30,
		Timeout:              30 * time.Second,
		Context:              prompts.DefaultContextOptions(),
	}
}

// OptionsFromConfig maps the service configuration onto handler options
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		ReplyMaxTokens:       cfg.ReplyMaxTokens,
		ReplyTemperature:     cfg.ReplyTemperature,
		SummaryMaxTokens:     cfg.SummaryMaxTokens,
		SummaryTemperature:   cfg.SummaryTemperature,
		SummaryInputMessages: cfg.SummaryInputMessages,
		Timeout:              cfg.LLMTimeout,
		Context: prompts.ContextOptions{
			WithSummary:    cfg.ContextWithSummary,
			WithoutSummary: cfg.ContextWithoutSummary,
		},
	}
}

// ChatHandler is the reply service: persona + context in, one reply out
type ChatHandler struct {
	provider  llm.Provider
	catalogue *characters.Catalogue
	opts      Options
}

func NewChatHandler(provider llm.Provider, catalogue *characters.Catalogue, opts Options) *ChatHandler {
	return &ChatHandler{
		provider:  provider,
		catalogue: catalogue,
		opts:      opts,
	}
}

// ProcessChat answers a reply service request. Failures are returned as
// *models.ErrorResponse carrying the boundary status code.
func (h *ChatHandler) ProcessChat(ctx context.Context, request *models.ChatRequest) (*models.ChatResponse, error) {
	// Validate request
	if err := h.validateRequest(request); err != nil {
		return nil, createErrorResponse(http.StatusBadRequest, models.ErrorInvalidRequest, err.Error())
	}

	character, err := h.catalogue.Get(request.CharacterID)
	if err != nil {
		return nil, createErrorResponse(http.StatusNotFound, models.ErrorCharacterNotFound, "Character not found")
	}

	language := request.Language
	if language == "" {
		language = h.catalogue.DefaultLanguage()
	}

	// Build context
	entries := prompts.BuildContext(models.FromWire(request.Messages), request.Summary, language, h.opts.Context)

	reply, err := h.Reply(ctx, character, language, request.IsAdult, entries)
	if err != nil {
		return nil, createErrorResponse(http.StatusBadGateway, models.ErrorLLMFailed, err.Error())
	}

	return &models.ChatResponse{Response: reply}, nil
}

// Reply calls the LLM provider with the character's persona and a built context
func (h *ChatHandler) Reply(ctx context.Context, character *characters.Character, language string, adult bool, entries []models.ContextEntry) (string, error) {
	llmRequest := &llm.Request{
		SystemPrompt: prompts.BuildPersonaPrompt(character, language, adult),
		Messages:     entries,
		MaxTokens:    h.opts.ReplyMaxTokens,
		Temperature:  h.opts.ReplyTemperature,
	}

	response, err := callLLM(ctx, h.provider, llmRequest, h.opts.Timeout)
	if err != nil {
		if !errors.Is(err, llm.ErrNoCredentials) {
			log.Printf("❌ Reply call failed for %s: %v", character.ID, err)
		}
		return "", err
	}

	log.Printf("✅ Reply generated for %s via %s", character.ID, h.provider.Name())
	return response.Content, nil
}

func (h *ChatHandler) validateRequest(request *models.ChatRequest) error {
	if request == nil {
		return fmt.Errorf("request body is required")
	}
	if request.CharacterID == "" {
		return fmt.Errorf("characterId is required")
	}
	if len(request.Messages) == 0 {
		return fmt.Errorf("messages are required")
	}
	for i, msg := range request.Messages {
		if msg.Sender != models.SenderUser && msg.Sender != models.SenderCharacter {
			return fmt.Errorf("messages[%d].sender must be user or character", i)
		}
	}
	return nil
}

// callLLM bounds a provider call by the configured timeout
func callLLM(ctx context.Context, provider llm.Provider, request *llm.Request, timeout time.Duration) (*llm.Response, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	response, err := provider.Generate(ctx, request)
	if err != nil {
		return nil, err
	}
	if response == nil || strings.TrimSpace(response.Content) == "" {
		return nil, llm.ErrEmptyResponse
	}
	if response.Usage != nil {
		log.Printf("📊 Tokens used: input=%d output=%d", response.Usage.InputTokens, response.Usage.OutputTokens)
	}
	return response, nil
}

func createErrorResponse(status int, errorCode, errorMessage string) *models.ErrorResponse {
	return &models.ErrorResponse{
		Message: errorMessage,
		Code:    errorCode,
		Status:  status,
	}
}
