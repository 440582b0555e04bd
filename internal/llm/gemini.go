package llm

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

type GeminiClient struct {
	client     *genai.Client
	model      string
	imageModel string
}

func NewGeminiClient(ctx context.Context, apiKey string, model string, imageModel string) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}
	return &GeminiClient{
		client:     client,
		model:      model,
		imageModel: imageModel,
	}, nil
}

func (c *GeminiClient) Generate(ctx context.Context, req Request) (Completion, error) {
	model := c.client.GenerativeModel(c.model)
	if req.JSON {
		model.ResponseMIMEType = "application/json"
	}
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return Completion{}, err
	}

	in, out := geminiUsage(resp)
	if len(resp.Candidates) > 0 && resp.Candidates[0].Content != nil {
		var sb strings.Builder
		for _, part := range resp.Candidates[0].Content.Parts {
			if txt, ok := part.(genai.Text); ok {
				sb.WriteString(string(txt))
			}
		}
		if sb.Len() > 0 {
			return Completion{Text: sb.String(), InputTokens: in, OutputTokens: out}, nil
		}
	}

	return Completion{InputTokens: in, OutputTokens: out}, fmt.Errorf("no response candidates or content")
}

// GenerateImage sends the prompt (and reference image, if any) to the image
// model and returns the first inline image as a data URL.
func (c *GeminiClient) GenerateImage(ctx context.Context, req ImageRequest) (Image, error) {
	model := c.client.GenerativeModel(c.imageModel)

	prompt := req.Prompt
	if req.AspectRatio != "" {
		prompt = fmt.Sprintf("%s\nAspect ratio: %s.", prompt, req.AspectRatio)
	}
	parts := []genai.Part{}
	if ref, ok := decodeReference(req.Reference); ok {
		parts = append(parts, genai.ImageData("png", ref))
		prompt += "\nUse the product/subject in the provided image as the reference. Maintain brand colors and visual identity."
	}
	parts = append(parts, genai.Text(prompt))

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return Image{}, err
	}

	in, out := geminiUsage(resp)
	img := Image{InputTokens: in, OutputTokens: out}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return img, nil
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if blob, ok := part.(genai.Blob); ok && len(blob.Data) > 0 {
			mime := blob.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			img.URL = fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(blob.Data))
			break
		}
	}
	return img, nil
}

func geminiUsage(resp *genai.GenerateContentResponse) (int, int) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}
	return int(resp.UsageMetadata.PromptTokenCount), int(resp.UsageMetadata.CandidatesTokenCount)
}

// decodeReference accepts a data URL or bare base64 payload.
func decodeReference(ref string) ([]byte, bool) {
	if ref == "" {
		return nil, false
	}
	if i := strings.Index(ref, ","); i >= 0 && strings.HasPrefix(ref, "data:") {
		ref = ref[i+1:]
	}
	data, err := base64.StdEncoding.DecodeString(ref)
	if err != nil || len(data) == 0 {
		return nil, false
	}
	return data, true
}
