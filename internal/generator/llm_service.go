package generator

import (
	"context"
	"fmt"
	"strings"

	"github.com/agenthands/funnelgraph/internal/core/common"
	"github.com/agenthands/funnelgraph/internal/core/model"
	"github.com/agenthands/funnelgraph/internal/llm"
)

// LLMService implements Service on top of a text client and an image client.
type LLMService struct {
	LLM    llm.LLMClient
	Images llm.ImageClient
}

func NewLLMService(text llm.LLMClient, images llm.ImageClient) *LLMService {
	return &LLMService{LLM: text, Images: images}
}

func (s *LLMService) complete(ctx context.Context, op, prompt string, asJSON bool) (llm.Completion, error) {
	c, err := s.LLM.Generate(ctx, llm.Request{Prompt: prompt, JSON: asJSON})
	if err != nil {
		return c, fmt.Errorf("%s: %w: %w", op, model.ErrServiceFailure, err)
	}
	return c, nil
}

// list runs a JSON list call and tags the result with usage.
func list[T any](ctx context.Context, s *LLMService, op, key, prompt string) (Result[[]T], error) {
	c, err := s.complete(ctx, op, prompt, true)
	res := Result[[]T]{InputTokens: c.InputTokens, OutputTokens: c.OutputTokens}
	if err != nil {
		return res, err
	}
	items, err := common.ParseList[T](c.Text, key)
	if err != nil {
		return res, fmt.Errorf("%s: %w: %w", op, model.ErrServiceFailure, err)
	}
	if len(items) == 0 {
		return res, fmt.Errorf("%s: %w", op, model.ErrEmptyResult)
	}
	res.Data = items
	return res, nil
}

func object[T any](ctx context.Context, s *LLMService, op, prompt string) (Result[T], error) {
	c, err := s.complete(ctx, op, prompt, true)
	res := Result[T]{InputTokens: c.InputTokens, OutputTokens: c.OutputTokens}
	if err != nil {
		return res, err
	}
	v, err := common.ParseJSON[T](c.Text)
	if err != nil {
		return res, fmt.Errorf("%s: %w: %w", op, model.ErrServiceFailure, err)
	}
	res.Data = v
	return res, nil
}

func text(ctx context.Context, s *LLMService, op, prompt string) (Result[string], error) {
	c, err := s.complete(ctx, op, prompt, false)
	res := Result[string]{InputTokens: c.InputTokens, OutputTokens: c.OutputTokens}
	if err != nil {
		return res, err
	}
	res.Data = strings.TrimSpace(c.Text)
	if res.Data == "" {
		return res, fmt.Errorf("%s: %w", op, model.ErrEmptyResult)
	}
	return res, nil
}

func (s *LLMService) Personas(ctx context.Context, p model.Project) (Result[[]model.Persona], error) {
	return list[model.Persona](ctx, s, "personas", "personas", personasPrompt(p))
}

func (s *LLMService) Angles(ctx context.Context, p model.Project, persona model.Meta) (Result[[]model.AngleOption], error) {
	return list[model.AngleOption](ctx, s, "angles", "angles", anglesPrompt(p, persona))
}

func (s *LLMService) StoryOptions(ctx context.Context, p model.Project, persona model.Meta) (Result[[]model.StoryOption], error) {
	res, err := list[model.StoryOption](ctx, s, "stories", "stories", storiesPrompt(p, persona))
	for i := range res.Data {
		res.Data[i].ID = fmt.Sprintf("story-%d", i)
	}
	return res, err
}

func (s *LLMService) BigIdeas(ctx context.Context, p model.Project, story model.StoryOption) (Result[[]model.BigIdeaOption], error) {
	res, err := list[model.BigIdeaOption](ctx, s, "big ideas", "bigIdeas", bigIdeasPrompt(p, story))
	for i := range res.Data {
		res.Data[i].ID = fmt.Sprintf("idea-%d", i)
	}
	return res, err
}

func (s *LLMService) Mechanisms(ctx context.Context, p model.Project, idea model.BigIdeaOption) (Result[[]model.MechanismOption], error) {
	res, err := list[model.MechanismOption](ctx, s, "mechanisms", "mechanisms", mechanismsPrompt(p, idea))
	for i := range res.Data {
		res.Data[i].ID = fmt.Sprintf("mech-%d", i)
	}
	return res, err
}

func (s *LLMService) Hooks(ctx context.Context, p model.Project, idea model.BigIdeaOption, mech model.MechanismOption) (Result[[]string], error) {
	res, err := list[string](ctx, s, "hooks", "hooks", hooksPrompt(p, idea, mech))
	if err != nil {
		return res, err
	}
	kept := res.Data[:0]
	for _, h := range res.Data {
		if h = strings.TrimSpace(h); h != "" {
			kept = append(kept, h)
		}
	}
	res.Data = kept
	if len(kept) == 0 {
		return res, fmt.Errorf("hooks: %w", model.ErrEmptyResult)
	}
	return res, nil
}

func (s *LLMService) HVCOIdeas(ctx context.Context, p model.Project, painPoint string) (Result[[]model.HVCOOption], error) {
	return list[model.HVCOOption](ctx, s, "hvco", "hvcos", hvcoPrompt(p, painPoint))
}

func (s *LLMService) MafiaOffer(ctx context.Context, p model.Project) (Result[model.MafiaOffer], error) {
	res, err := object[model.MafiaOffer](ctx, s, "mafia offer", mafiaOfferPrompt(p))
	if err == nil && res.Data.Headline == "" {
		return res, fmt.Errorf("mafia offer: %w", model.ErrEmptyResult)
	}
	return res, err
}

func (s *LLMService) CreativeConcept(ctx context.Context, p model.Project, persona model.Meta, angle string, format model.CreativeFormat) (Result[model.CreativeConcept], error) {
	return object[model.CreativeConcept](ctx, s, "creative concept", conceptPrompt(p, persona, angle, format))
}

func (s *LLMService) AdCopy(ctx context.Context, req CopyRequest) (Result[model.AdCopy], error) {
	res, err := object[model.AdCopy](ctx, s, "ad copy", adCopyPrompt(req))
	if err == nil && res.Data.PrimaryText == "" && res.Data.Headline == "" {
		return res, fmt.Errorf("ad copy: %w", model.ErrEmptyResult)
	}
	return res, err
}

func (s *LLMService) SalesLetter(ctx context.Context, p model.Project, b model.ContextBundle) (Result[string], error) {
	if !b.FullChain() {
		return Result[string]{}, fmt.Errorf("sales letter: %w: story, big idea, mechanism and hook are required", model.ErrPreconditionNotMet)
	}
	return text(ctx, s, "sales letter", salesLetterPrompt(p, b))
}

func (s *LLMService) Compliance(ctx context.Context, c model.AdCopy) (Result[string], error) {
	return text(ctx, s, "compliance", compliancePrompt(c))
}

func (s *LLMService) Image(ctx context.Context, req ImageRequest) (Result[string], error) {
	ref := req.Reference
	if ref == "" {
		ref = req.Project.ProductReferenceImage
	}
	img, err := s.Images.GenerateImage(ctx, llm.ImageRequest{
		Prompt:      imagePrompt(req),
		AspectRatio: req.AspectRatio,
		Reference:   ref,
	})
	res := Result[string]{Data: img.URL, InputTokens: img.InputTokens, OutputTokens: img.OutputTokens}
	if err != nil {
		return res, fmt.Errorf("image: %w: %w", model.ErrServiceFailure, err)
	}
	if img.URL == "" {
		return res, fmt.Errorf("image: %w", model.ErrEmptyResult)
	}
	return res, nil
}

func (s *LLMService) Prediction(ctx context.Context, p model.Project, n model.Node) (Result[model.Prediction], error) {
	return object[model.Prediction](ctx, s, "prediction", predictionPrompt(p, n))
}
