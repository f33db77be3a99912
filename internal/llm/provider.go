package llm

import (
	"context"
	"errors"

	"github.com/avvvet/companion-chat/internal/models"
)

var (
	// ErrNoCredentials is returned by a provider configured without an API key
	ErrNoCredentials = errors.New("llm: API key not configured")

	// ErrEmptyResponse is returned when the model answered with no text
	ErrEmptyResponse = errors.New("llm: empty response")
)

// Provider defines the interface for LLM providers
type Provider interface {
	Generate(ctx context.Context, request *Request) (*Response, error)
	Name() string
}

// Request represents the structured request to LLM
type Request struct {
	SystemPrompt string
	Messages     []models.ContextEntry
	MaxTokens    int
	Temperature  float64
}

// Response represents the raw response from LLM
type Response struct {
	Content string
	Usage   *Usage
}

type Usage struct {
	InputTokens  int
	OutputTokens int
}

// splitSystem folds system entries of the context into the system prompt,
// for APIs that only accept a single system instruction
func splitSystem(request *Request) (string, []models.ContextEntry) {
	system := request.SystemPrompt
	rest := make([]models.ContextEntry, 0, len(request.Messages))
	for _, m := range request.Messages {
		if m.Role == models.RoleSystem {
			if system != "" {
				system += "\n\n"
			}
			system += m.Content
			continue
		}
		rest = append(rest, m)
	}
	return system, rest
}

// disabledProvider stands in when no API key is configured
type disabledProvider struct {
	name string
}

func (d disabledProvider) Generate(context.Context, *Request) (*Response, error) {
	return nil, ErrNoCredentials
}

func (d disabledProvider) Name() string {
	return d.name
}
