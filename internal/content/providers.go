package content

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/emilythestrangee/ai-forum/backend/internal/config"
)

type Gemini struct {
	client *genai.Client
	model  string
}

func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	return &Gemini{client: client, model: model}, nil
}

func (g *Gemini) Name() string { return "gemini" }

func (g *Gemini) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("gemini: %w", err)
	}
	return resp.Text(), nil
}

type OpenAI struct {
	client *openai.Client
	model  string
}

func NewOpenAI(apiKey, model string) *OpenAI {
	return &OpenAI{client: openai.NewClient(apiKey), model: model}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: "You write posts for a community forum."},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

// FromConfig picks the provider named by CONTENT_PROVIDER. A missing API key
// is not an error: the service reports ErrNotConfigured per request instead.
func FromConfig(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Service, error) {
	var gen Generator
	switch cfg.ContentProvider {
	case "gemini", "":
		if cfg.GeminiAPIKey != "" {
			g, err := NewGemini(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
			if err != nil {
				return nil, err
			}
			gen = g
		}
	case "openai":
		if cfg.OpenAIAPIKey != "" {
			gen = NewOpenAI(cfg.OpenAIAPIKey, cfg.OpenAIModel)
		}
	default:
		return nil, fmt.Errorf("unknown CONTENT_PROVIDER %q", cfg.ContentProvider)
	}

	if gen == nil {
		logger.Warn("content generation disabled, no API key", zap.String("provider", cfg.ContentProvider))
	} else {
		logger.Info("content generation enabled", zap.String("provider", gen.Name()))
	}
	return NewService(gen, logger), nil
}
