package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/funnelgraph/internal/config"
)

// NewClient builds the text client and the image client. They may be the same
// provider value; Claude requires a separate image provider.
func NewClient(ctx context.Context, cfg config.LLMConfig) (LLMClient, ImageClient, error) {
	text, err := newProvider(ctx, cfg.Provider, cfg.APIKey, cfg.Model, cfg.ImageModel, cfg.BaseURL)
	if err != nil {
		return nil, nil, err
	}

	imageProvider := cfg.ImageProvider
	if imageProvider == "" {
		imageProvider = cfg.Provider
	}
	if strings.EqualFold(imageProvider, cfg.Provider) {
		if img, ok := text.(ImageClient); ok {
			return text, img, nil
		}
		return nil, nil, fmt.Errorf("llm provider %s cannot generate images; set image_provider", cfg.Provider)
	}

	imageKey := cfg.ImageAPIKey
	if imageKey == "" {
		imageKey = cfg.APIKey
	}
	// The base URL belongs to the text provider.
	other, err := newProvider(ctx, imageProvider, imageKey, cfg.Model, cfg.ImageModel, "")
	if err != nil {
		return nil, nil, err
	}
	img, ok := other.(ImageClient)
	if !ok {
		return nil, nil, fmt.Errorf("image provider %s cannot generate images", imageProvider)
	}
	return text, img, nil
}

func newProvider(ctx context.Context, provider, apiKey, model, imageModel, baseURL string) (LLMClient, error) {
	switch strings.ToLower(provider) {
	case "openai":
		return NewOpenAIClient(apiKey, model, imageModel, baseURL), nil

	case "gemini":
		return NewGeminiClient(ctx, apiKey, model, imageModel)

	case "claude":
		return NewClaudeClient(apiKey, model, baseURL), nil

	case "ollama":
		// Ollama speaks the OpenAI API under /v1, which also reports usage.
		if !strings.HasSuffix(baseURL, "/v1") {
			baseURL = fmt.Sprintf("%s/v1", strings.TrimRight(baseURL, "/"))
		}
		if apiKey == "" {
			apiKey = "ollama"
		}
		return NewOpenAIClient(apiKey, model, imageModel, baseURL), nil

	default:
		return nil, fmt.Errorf("unsupported llm provider: %s", provider)
	}
}
