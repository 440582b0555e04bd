// Package generator defines the content-generation contract the campaign
// engine calls, and an implementation backed by the llm clients.
package generator

import (
	"context"

	"github.com/agenthands/funnelgraph/internal/core/model"
)

// Result is one generation call's payload plus the usage it was billed for.
type Result[T any] struct {
	Data         T
	InputTokens  int
	OutputTokens int
}

// CopyRequest is everything the copywriter step sees.
type CopyRequest struct {
	Project   model.Project
	Persona   model.Meta
	Concept   model.CreativeConcept
	Angle     string
	Format    model.CreativeFormat
	HVCOFlow  bool
	Mechanism *model.MechanismOption
}

// ImageRequest renders one visual from a concept.
type ImageRequest struct {
	Project     model.Project
	Persona     model.Meta
	Angle       string
	Format      model.CreativeFormat
	Concept     model.CreativeConcept
	AspectRatio string
	// Reference overrides Project.ProductReferenceImage when set.
	Reference string
}

// Service is one operation per generation kind. Implementations return an
// error wrapping model.ErrServiceFailure when the call fails and
// model.ErrEmptyResult when it succeeds with no usable data.
type Service interface {
	Personas(ctx context.Context, p model.Project) (Result[[]model.Persona], error)
	Angles(ctx context.Context, p model.Project, persona model.Meta) (Result[[]model.AngleOption], error)
	StoryOptions(ctx context.Context, p model.Project, persona model.Meta) (Result[[]model.StoryOption], error)
	BigIdeas(ctx context.Context, p model.Project, story model.StoryOption) (Result[[]model.BigIdeaOption], error)
	Mechanisms(ctx context.Context, p model.Project, idea model.BigIdeaOption) (Result[[]model.MechanismOption], error)
	Hooks(ctx context.Context, p model.Project, idea model.BigIdeaOption, mech model.MechanismOption) (Result[[]string], error)
	HVCOIdeas(ctx context.Context, p model.Project, painPoint string) (Result[[]model.HVCOOption], error)
	MafiaOffer(ctx context.Context, p model.Project) (Result[model.MafiaOffer], error)

	CreativeConcept(ctx context.Context, p model.Project, persona model.Meta, angle string, format model.CreativeFormat) (Result[model.CreativeConcept], error)
	AdCopy(ctx context.Context, req CopyRequest) (Result[model.AdCopy], error)
	SalesLetter(ctx context.Context, p model.Project, b model.ContextBundle) (Result[string], error)
	Compliance(ctx context.Context, copy model.AdCopy) (Result[string], error)
	Image(ctx context.Context, req ImageRequest) (Result[string], error)

	Prediction(ctx context.Context, p model.Project, n model.Node) (Result[model.Prediction], error)
}

var (
	_ Service = (*LLMService)(nil)
	_ Service = (*MockService)(nil)
)
