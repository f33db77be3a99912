package transport

import (
	"context"
	"errors"
	"net/http"

	"github.com/avvvet/companion-chat/internal/characters"
	"github.com/avvvet/companion-chat/internal/chat"
	"github.com/avvvet/companion-chat/internal/handlers"
	"github.com/avvvet/companion-chat/internal/models"
)

// Services bundles what the transports expose
type Services struct {
	Chat         *handlers.ChatHandler
	Summarize    *handlers.SummarizeHandler
	Orchestrator *chat.Orchestrator
	Catalogue    *characters.Catalogue
}

func (s *Services) send(ctx context.Context, request *models.SendRequest) (*models.ConversationResponse, error) {
	messages, reply, err := s.Orchestrator.Send(ctx, request.CharacterID, request.Text)
	if err != nil {
		return nil, conversationError(err)
	}
	return &models.ConversationResponse{
		CharacterID: request.CharacterID,
		Messages:    messages,
		Reply:       reply,
	}, nil
}

func (s *Services) history(ctx context.Context, characterID string) (*models.ConversationResponse, error) {
	messages, err := s.Orchestrator.Open(ctx, characterID)
	if err != nil {
		return nil, conversationError(err)
	}
	summary, err := s.Orchestrator.Summary(ctx, characterID)
	if err != nil {
		return nil, conversationError(err)
	}
	return &models.ConversationResponse{
		CharacterID: characterID,
		Messages:    messages,
		Summary:     summary,
	}, nil
}

func (s *Services) clear(ctx context.Context, characterID string) (*models.ConversationResponse, error) {
	messages, err := s.Orchestrator.Clear(ctx, characterID)
	if err != nil {
		return nil, conversationError(err)
	}
	return &models.ConversationResponse{
		CharacterID: characterID,
		Messages:    messages,
	}, nil
}

func (s *Services) conversations(ctx context.Context) *models.ConversationListResponse {
	ids := s.Orchestrator.SavedCharacterIDs(ctx)
	if ids == nil {
		ids = []string{}
	}
	return &models.ConversationListResponse{CharacterIDs: ids}
}

// conversationError maps orchestrator errors onto structured error responses
func conversationError(err error) *models.ErrorResponse {
	if errors.Is(err, characters.ErrNotFound) {
		return &models.ErrorResponse{
			Message: "Character not found",
			Code:    models.ErrorCharacterNotFound,
			Status:  http.StatusNotFound,
		}
	}
	return &models.ErrorResponse{
		Message: err.Error(),
		Code:    models.ErrorInternal,
		Status:  http.StatusInternalServerError,
	}
}

// asErrorResponse returns err as a structured error response, wrapping
// unknown errors as internal failures
func asErrorResponse(err error) *models.ErrorResponse {
	var errResp *models.ErrorResponse
	if errors.As(err, &errResp) {
		return errResp
	}
	return &models.ErrorResponse{
		Message: err.Error(),
		Code:    models.ErrorInternal,
		Status:  http.StatusInternalServerError,
	}
}
