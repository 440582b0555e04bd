package llm

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

type OpenAIClient struct {
	client     *openai.Client
	model      string
	imageModel string
}

func NewOpenAIClient(apiKey string, model string, imageModel string, baseURL string) *OpenAIClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(config)
	return &OpenAIClient{
		client:     client,
		model:      model,
		imageModel: imageModel,
	}
}

func (c *OpenAIClient) Generate(ctx context.Context, req Request) (Completion, error) {
	chat := openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Prompt,
			},
		},
		MaxTokens: req.MaxTokens,
	}
	if req.JSON {
		chat.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := c.client.CreateChatCompletion(ctx, chat)
	if err != nil {
		return Completion{}, err
	}
	if len(resp.Choices) > 0 {
		return Completion{
			Text:         resp.Choices[0].Message.Content,
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		}, nil
	}
	return Completion{}, fmt.Errorf("no response choices")
}

// GenerateImage asks the images endpoint for base64 output. The reference
// image is not forwarded; the endpoint does not accept one on create.
func (c *OpenAIClient) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	size := openai.CreateImageSize1024x1024
	if req.AspectRatio == "9:16" {
		size = openai.CreateImageSize1024x1792
		if c.imageModel == openai.CreateImageModelGptImage1 {
			size = openai.CreateImageSize1024x1536
		}
	}

	ir := openai.ImageRequest{
		Prompt: req.Prompt,
		Model:  c.imageModel,
		N:      1,
		Size:   size,
	}
	// gpt-image-1 always returns base64 and rejects response_format.
	if c.imageModel != openai.CreateImageModelGptImage1 {
		ir.ResponseFormat = openai.CreateImageResponseFormatB64JSON
	}

	resp, err := c.client.CreateImage(ctx, ir)
	if err != nil {
		return Image{}, err
	}

	img := Image{InputTokens: resp.Usage.InputTokens, OutputTokens: resp.Usage.OutputTokens}
	if len(resp.Data) > 0 {
		switch {
		case resp.Data[0].B64JSON != "":
			img.URL = "data:image/png;base64," + resp.Data[0].B64JSON
		case resp.Data[0].URL != "":
			img.URL = resp.Data[0].URL
		}
	}
	return img, nil
}
