package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/avvvet/companion-chat/internal/models"
)

const (
	DeepSeekBaseURL = "https://api.deepseek.com/v1"
	DeepSeekModel   = "deepseek-chat"
)

// LangChainProvider talks to any OpenAI-compatible endpoint through
// LangChainGo. DeepSeek is the default endpoint.
type LangChainProvider struct {
	llm   llms.Model
	model string
}

func NewLangChainProvider(apiKey, model, baseURL string) (*LangChainProvider, error) {
	if model == "" {
		model = DeepSeekModel
	}
	if baseURL == "" {
		baseURL = DeepSeekBaseURL
	}

	client, err := openai.New(
		openai.WithToken(apiKey),
		openai.WithModel(model),
		openai.WithBaseURL(baseURL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create LangChainGo client: %w", err)
	}

	return &LangChainProvider{llm: client, model: model}, nil
}

func (p *LangChainProvider) Name() string {
	return "langchain:" + p.model
}

func (p *LangChainProvider) Generate(ctx context.Context, request *Request) (*Response, error) {
	content := make([]llms.MessageContent, 0, len(request.Messages)+1)
	if request.SystemPrompt != "" {
		content = append(content, llms.TextParts(llms.ChatMessageTypeSystem, request.SystemPrompt))
	}
	for _, m := range request.Messages {
		content = append(content, llms.TextParts(chatMessageType(m.Role), m.Content))
	}

	resp, err := p.llm.GenerateContent(ctx, content,
		llms.WithMaxTokens(request.MaxTokens),
		llms.WithTemperature(request.Temperature),
	)
	if err != nil {
		return nil, fmt.Errorf("LangChainGo call failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyResponse
	}

	text := strings.TrimSpace(resp.Choices[0].Content)
	if text == "" {
		return nil, ErrEmptyResponse
	}

	return &Response{Content: text, Usage: langChainUsage(resp.Choices[0].GenerationInfo)}, nil
}

func chatMessageType(role models.Role) llms.ChatMessageType {
	switch role {
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// langChainUsage reads token counts from the generation info the OpenAI
// backend attaches to a choice
func langChainUsage(info map[string]any) *Usage {
	input, okIn := info["PromptTokens"].(int)
	output, okOut := info["CompletionTokens"].(int)
	if !okIn && !okOut {
		return nil
	}
	return &Usage{InputTokens: input, OutputTokens: output}
}
