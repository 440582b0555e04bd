package generator

import (
	"context"
	"fmt"
	"sync"

	"github.com/agenthands/funnelgraph/internal/core/model"
)

// MockService is a scriptable Service for tests. Any nil func falls back to a
// small canned answer so tests only override the calls they care about.
// Calls records the operation names in order.
type MockService struct {
	PersonasFn        func(p model.Project) (Result[[]model.Persona], error)
	AnglesFn          func(p model.Project, persona model.Meta) (Result[[]model.AngleOption], error)
	StoryOptionsFn    func(p model.Project, persona model.Meta) (Result[[]model.StoryOption], error)
	BigIdeasFn        func(p model.Project, story model.StoryOption) (Result[[]model.BigIdeaOption], error)
	MechanismsFn      func(p model.Project, idea model.BigIdeaOption) (Result[[]model.MechanismOption], error)
	HooksFn           func(p model.Project, idea model.BigIdeaOption, mech model.MechanismOption) (Result[[]string], error)
	HVCOIdeasFn       func(p model.Project, painPoint string) (Result[[]model.HVCOOption], error)
	MafiaOfferFn      func(p model.Project) (Result[model.MafiaOffer], error)
	CreativeConceptFn func(p model.Project, persona model.Meta, angle string, f model.CreativeFormat) (Result[model.CreativeConcept], error)
	AdCopyFn          func(req CopyRequest) (Result[model.AdCopy], error)
	SalesLetterFn     func(p model.Project, b model.ContextBundle) (Result[string], error)
	ComplianceFn      func(c model.AdCopy) (Result[string], error)
	ImageFn           func(req ImageRequest) (Result[string], error)
	PredictionFn      func(p model.Project, n model.Node) (Result[model.Prediction], error)

	mu    sync.Mutex
	Calls []string
}

func (m *MockService) record(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, op)
}

// Count returns how many times op was called.
func (m *MockService) Count(op string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.Calls {
		if c == op {
			n++
		}
	}
	return n
}

func (m *MockService) Personas(_ context.Context, p model.Project) (Result[[]model.Persona], error) {
	m.record("Personas")
	if m.PersonasFn != nil {
		return m.PersonasFn(p)
	}
	return Result[[]model.Persona]{
		Data: []model.Persona{
			{Name: "Night Owl Coder", Profile: "Ships at 2AM", Motivation: "Stay sharp without jitters", VisceralSymptoms: []string{"3PM crash"}},
			{Name: "Finals Week Student", Profile: "Cramming", Motivation: "Remember what I read"},
			{Name: "Burnt-out Designer", Profile: "Creative block", Motivation: "Find flow again"},
		},
		InputTokens: 300, OutputTokens: 600,
	}, nil
}

func (m *MockService) Angles(_ context.Context, p model.Project, persona model.Meta) (Result[[]model.AngleOption], error) {
	m.record("Angles")
	if m.AnglesFn != nil {
		return m.AnglesFn(p, persona)
	}
	return Result[[]model.AngleOption]{
		Data: []model.AngleOption{
			{Headline: "Stop wasting money on coffee", PainPoint: "Caffeine crash", PsychologicalTrigger: "Loss Aversion", TestingTier: "TIER 1"},
			{Headline: "L-Theanine focus", PainPoint: "Jitters", PsychologicalTrigger: "Authority", TestingTier: "TIER 2"},
		},
		InputTokens: 100, OutputTokens: 200,
	}, nil
}

func (m *MockService) StoryOptions(_ context.Context, p model.Project, persona model.Meta) (Result[[]model.StoryOption], error) {
	m.record("StoryOptions")
	if m.StoryOptionsFn != nil {
		return m.StoryOptionsFn(p, persona)
	}
	return Result[[]model.StoryOption]{
		Data:        []model.StoryOption{{ID: "story-0", Title: "3AM exam panic", Narrative: "Staring at notes", EmotionalTheme: "Dread"}},
		InputTokens: 90, OutputTokens: 120,
	}, nil
}

func (m *MockService) BigIdeas(_ context.Context, p model.Project, story model.StoryOption) (Result[[]model.BigIdeaOption], error) {
	m.record("BigIdeas")
	if m.BigIdeasFn != nil {
		return m.BigIdeasFn(p, story)
	}
	return Result[[]model.BigIdeaOption]{
		Data:        []model.BigIdeaOption{{ID: "idea-0", Headline: "It's not your willpower", Concept: "Focus is chemistry", TargetBelief: "I'm lazy"}},
		InputTokens: 80, OutputTokens: 100,
	}, nil
}

func (m *MockService) Mechanisms(_ context.Context, p model.Project, idea model.BigIdeaOption) (Result[[]model.MechanismOption], error) {
	m.record("Mechanisms")
	if m.MechanismsFn != nil {
		return m.MechanismsFn(p, idea)
	}
	return Result[[]model.MechanismOption]{
		Data:        []model.MechanismOption{{ID: "mech-0", UMP: "Caffeine spikes cortisol", UMS: "Slow-release L-theanine", ScientificPseudo: "Calm-Focus Loop"}},
		InputTokens: 70, OutputTokens: 90,
	}, nil
}

func (m *MockService) Hooks(_ context.Context, p model.Project, idea model.BigIdeaOption, mech model.MechanismOption) (Result[[]string], error) {
	m.record("Hooks")
	if m.HooksFn != nil {
		return m.HooksFn(p, idea, mech)
	}
	return Result[[]string]{Data: []string{"Doctors hate this gummy", "The 3-second focus trick"}, InputTokens: 60, OutputTokens: 40}, nil
}

func (m *MockService) HVCOIdeas(_ context.Context, p model.Project, painPoint string) (Result[[]model.HVCOOption], error) {
	m.record("HVCOIdeas")
	if m.HVCOIdeasFn != nil {
		return m.HVCOIdeasFn(p, painPoint)
	}
	return Result[[]model.HVCOOption]{
		Data:        []model.HVCOOption{{Title: "The Focus Cheat Sheet", Format: "PDF", Hook: "Win back 3 hours a day"}},
		InputTokens: 50, OutputTokens: 50,
	}, nil
}

func (m *MockService) MafiaOffer(_ context.Context, p model.Project) (Result[model.MafiaOffer], error) {
	m.record("MafiaOffer")
	if m.MafiaOfferFn != nil {
		return m.MafiaOfferFn(p)
	}
	return Result[model.MafiaOffer]{
		Data: model.MafiaOffer{
			Headline: "Ace finals or it's free", ValueStack: []string{"Study Planner ($49)"},
			RiskReversal: "Double your money back", Scarcity: "Only 200 tins",
		},
		InputTokens: 40, OutputTokens: 60,
	}, nil
}

func (m *MockService) CreativeConcept(_ context.Context, p model.Project, persona model.Meta, angle string, f model.CreativeFormat) (Result[model.CreativeConcept], error) {
	m.record("CreativeConcept")
	if m.CreativeConceptFn != nil {
		return m.CreativeConceptFn(p, persona, angle, f)
	}
	return Result[model.CreativeConcept]{
		Data: model.CreativeConcept{
			VisualScene: "Desk at 3AM lit by a laptop", VisualStyle: "Lo-fi phone photo",
			TechnicalPrompt: "Candid vertical photo, messy desk, gummy tin in focus", Rationale: "Isolate the late-night struggle",
		},
		InputTokens: 100, OutputTokens: 100,
	}, nil
}

func (m *MockService) AdCopy(_ context.Context, req CopyRequest) (Result[model.AdCopy], error) {
	m.record("AdCopy")
	if m.AdCopyFn != nil {
		return m.AdCopyFn(req)
	}
	return Result[model.AdCopy]{
		Data:        model.AdCopy{Headline: "No more 3PM crash", PrimaryText: "I used to need four coffees to get through a sprint.", CTA: "Shop Now"},
		InputTokens: 100, OutputTokens: 100,
	}, nil
}

func (m *MockService) SalesLetter(_ context.Context, p model.Project, b model.ContextBundle) (Result[string], error) {
	m.record("SalesLetter")
	if m.SalesLetterFn != nil {
		return m.SalesLetterFn(p, b)
	}
	return Result[string]{Data: fmt.Sprintf("**%s**\n\nIt started at 3AM...", b.Hook), InputTokens: 200, OutputTokens: 800}, nil
}

func (m *MockService) Compliance(_ context.Context, c model.AdCopy) (Result[string], error) {
	m.record("Compliance")
	if m.ComplianceFn != nil {
		return m.ComplianceFn(c)
	}
	return Result[string]{Data: "Compliant", InputTokens: 10, OutputTokens: 2}, nil
}

func (m *MockService) Image(_ context.Context, req ImageRequest) (Result[string], error) {
	m.record("Image")
	if m.ImageFn != nil {
		return m.ImageFn(req)
	}
	return Result[string]{Data: "data:image/png;base64,aW1n", InputTokens: 20, OutputTokens: 0}, nil
}

func (m *MockService) Prediction(_ context.Context, p model.Project, n model.Node) (Result[model.Prediction], error) {
	m.record("Prediction")
	if m.PredictionFn != nil {
		return m.PredictionFn(p, n)
	}
	return Result[model.Prediction]{
		Data:        model.Prediction{Score: 72, HookStrength: "Moderate", Clarity: "Clear", EmotionalResonance: "Engaging", Reasoning: "Solid but familiar."},
		InputTokens: 30, OutputTokens: 30,
	}, nil
}
