package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/avvvet/companion-chat/internal/llm"
	"github.com/avvvet/companion-chat/internal/models"
	"github.com/avvvet/companion-chat/internal/prompts"
)

// SummarizeHandler is the summarization service
type SummarizeHandler struct {
	provider llm.Provider
	opts     Options
}

func NewSummarizeHandler(provider llm.Provider, opts Options) *SummarizeHandler {
	return &SummarizeHandler{
		provider: provider,
		opts:     opts,
	}
}

// ProcessSummarize answers a summarization service request
func (h *SummarizeHandler) ProcessSummarize(ctx context.Context, request *models.SummarizeRequest) (*models.SummarizeResponse, error) {
	if err := h.validateRequest(request); err != nil {
		return nil, createErrorResponse(http.StatusBadRequest, models.ErrorInvalidRequest, err.Error())
	}

	summary, err := h.Summarize(ctx, request)
	if err != nil {
		return nil, createErrorResponse(http.StatusBadGateway, models.ErrorLLMFailed, err.Error())
	}

	return &models.SummarizeResponse{Summary: summary}, nil
}

// Summarize asks the provider for a short summary of the request's messages
func (h *SummarizeHandler) Summarize(ctx context.Context, request *models.SummarizeRequest) (string, error) {
	llmRequest := &llm.Request{
		SystemPrompt: prompts.BuildSummaryPrompt(request.CharacterName, request.PreviousSummary),
		Messages:     prompts.BuildSummaryInput(models.FromWire(request.Messages), h.opts.SummaryInputMessages),
		MaxTokens:    h.opts.SummaryMaxTokens,
		Temperature:  h.opts.SummaryTemperature,
	}

	response, err := callLLM(ctx, h.provider, llmRequest, h.opts.Timeout)
	if err != nil {
		return "", err
	}

	log.Printf("📝 Summary generated for %s via %s", request.CharacterID, h.provider.Name())
	return strings.TrimSpace(response.Content), nil
}

func (h *SummarizeHandler) validateRequest(request *models.SummarizeRequest) error {
	if request == nil || len(request.Messages) == 0 {
		return fmt.Errorf("messages are required")
	}
	if request.CharacterID == "" || request.CharacterName == "" {
		return fmt.Errorf("characterId and characterName are required")
	}
	return nil
}
