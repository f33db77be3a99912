package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/liushuangls/go-anthropic/v2"

	"github.com/avvvet/companion-chat/internal/models"
)

const AnthropicModel = "claude-3-5-haiku-latest"

type AnthropicProvider struct {
	client *anthropic.Client
	model  string
}

func NewAnthropicProvider(apiKey, model string) *AnthropicProvider {
	if model == "" {
		model = AnthropicModel
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(apiKey),
		model:  model,
	}
}

func (a *AnthropicProvider) Name() string {
	return "anthropic:" + a.model
}

func (a *AnthropicProvider) Generate(ctx context.Context, request *Request) (*Response, error) {
	system, rest := splitSystem(request)

	msgs := make([]anthropic.Message, 0, len(rest))
	for _, m := range rest {
		role := anthropic.RoleUser
		if m.Role == models.RoleAssistant {
			role = anthropic.RoleAssistant
		}
		msgs = append(msgs, anthropic.Message{
			Role:    role,
			Content: []anthropic.MessageContent{anthropic.NewTextMessageContent(m.Content)},
		})
	}

	temperature := float32(request.Temperature)
	req := anthropic.MessagesRequest{
		Model:       anthropic.Model(a.model),
		Messages:    msgs,
		MaxTokens:   request.MaxTokens,
		Temperature: &temperature,
	}
	if system != "" {
		req.MultiSystem = []anthropic.MessageSystemPart{{Type: "text", Text: system}}
	}

	resp, err := a.client.CreateMessages(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Anthropic call failed: %w", err)
	}

	var text strings.Builder
	for _, block := range resp.Content {
		if block.Type == anthropic.MessagesContentTypeText && block.Text != nil {
			text.WriteString(*block.Text)
		}
	}

	content := strings.TrimSpace(text.String())
	if content == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{
		Content: content,
		Usage: &Usage{
			InputTokens:  resp.Usage.InputTokens,
			OutputTokens: resp.Usage.OutputTokens,
		},
	}, nil
}
