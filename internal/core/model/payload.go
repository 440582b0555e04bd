package model

import (
	"encoding/json"
	"slices"
)

type Persona struct {
	Name             string   `json:"name"`
	Profile          string   `json:"profile"`
	Motivation       string   `json:"motivation"`
	Demographics     string   `json:"demographics,omitempty"`
	Psychographics   string   `json:"psychographics,omitempty"`
	VisceralSymptoms []string `json:"visceralSymptoms,omitempty"`
}

type AngleOption struct {
	Headline             string `json:"headline"`
	PainPoint            string `json:"painPoint"`
	PsychologicalTrigger string `json:"psychologicalTrigger"`
	TestingTier          string `json:"testingTier"`
	Hook                 string `json:"hook,omitempty"`
}

type StoryOption struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	Narrative      string `json:"narrative"`
	EmotionalTheme string `json:"emotionalTheme"`
}

type BigIdeaOption struct {
	ID           string `json:"id"`
	Headline     string `json:"headline"`
	Concept      string `json:"concept"`
	TargetBelief string `json:"targetBelief"`
}

// MechanismOption pairs the unique mechanism of the problem (UMP) with the
// unique mechanism of the solution (UMS).
type MechanismOption struct {
	ID               string `json:"id"`
	UMP              string `json:"ump"`
	UMS              string `json:"ums"`
	ScientificPseudo string `json:"scientificPseudo"`
}

type HVCOOption struct {
	Title  string `json:"title"`
	Format string `json:"format"`
	Hook   string `json:"hook"`
}

type MafiaOffer struct {
	Headline     string   `json:"headline"`
	ValueStack   []string `json:"valueStack"`
	RiskReversal string   `json:"riskReversal"`
	Scarcity     string   `json:"scarcity"`
}

// ContextBundle is the set of ancestor payloads copied onto a node when it is
// created, so generation never needs to walk the graph.
type ContextBundle struct {
	Story       *StoryOption     `json:"storyData,omitempty"`
	BigIdea     *BigIdeaOption   `json:"bigIdeaData,omitempty"`
	Mechanism   *MechanismOption `json:"mechanismData,omitempty"`
	Hook        string           `json:"hookData,omitempty"`
	HVCO        *HVCOOption      `json:"hvcoData,omitempty"`
	Offer       *MafiaOffer      `json:"mafiaOffer,omitempty"`
	SalesLetter string           `json:"salesLetter,omitempty"`
}

func (b ContextBundle) Clone() ContextBundle {
	out := b
	if b.Story != nil {
		s := *b.Story
		out.Story = &s
	}
	if b.BigIdea != nil {
		s := *b.BigIdea
		out.BigIdea = &s
	}
	if b.Mechanism != nil {
		s := *b.Mechanism
		out.Mechanism = &s
	}
	if b.HVCO != nil {
		s := *b.HVCO
		out.HVCO = &s
	}
	if b.Offer != nil {
		s := *b.Offer
		s.ValueStack = slices.Clone(b.Offer.ValueStack)
		out.Offer = &s
	}
	return out
}

// FullChain reports whether the story → big idea → mechanism → hook chain is complete.
func (b ContextBundle) FullChain() bool {
	return b.Story != nil && b.BigIdea != nil && b.Mechanism != nil && b.Hook != ""
}

type Prediction struct {
	Score              float64 `json:"score"`
	HookStrength       string  `json:"hookStrength"`
	Clarity            string  `json:"clarity"`
	EmotionalResonance string  `json:"emotionalResonance"`
	Reasoning          string  `json:"reasoning"`
}

// ToMeta flattens a JSON-tagged struct into a Meta map.
func ToMeta(v any) Meta {
	raw, err := json.Marshal(v)
	if err != nil {
		return Meta{}
	}
	var out Meta
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return Meta{}
	}
	return out
}
