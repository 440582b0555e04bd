// Package propagation builds the context every downstream generation call
// receives: the persona map and the rich angle string.
package propagation

import (
	"fmt"

	"github.com/agenthands/funnelgraph/internal/core/model"
)

const (
	DefaultPersonaName    = "General Audience"
	DefaultPersonaProfile = "Unknown"
)

// PersonaContext returns the node's inherited meta, or the generic audience
// when nothing has been established yet.
func PersonaContext(n model.Node) model.Meta {
	if len(n.Meta) == 0 {
		return model.Meta{"name": DefaultPersonaName, "profile": DefaultPersonaProfile}
	}
	return n.Meta.Clone()
}

// Inherit merges newly extracted fields over the parent's meta.
func Inherit(parent model.Node, extracted model.Meta) model.Meta {
	if len(extracted) == 0 {
		return parent.Meta.Clone()
	}
	return parent.Meta.Merge(extracted)
}

// AngleParts splits the rich angle into its surface label and the bracketed
// strategy annotation.
func AngleParts(n model.Node) (angle, deep string) {
	b := n.Bundle
	switch {
	case n.Type == model.NodeHook && b.Hook != "":
		var pseudo, ums string
		if b.Mechanism != nil {
			pseudo, ums = b.Mechanism.ScientificPseudo, b.Mechanism.UMS
		}
		return b.Hook, fmt.Sprintf(` [STRATEGY CONTEXT: This hook matches the Mechanism "%s" which works by "%s". Visual must show this logic.]`, pseudo, ums)

	case n.Type == model.NodeBigIdea && b.BigIdea != nil:
		return b.BigIdea.Headline, fmt.Sprintf(` [STRATEGY CONTEXT: The Big Idea Concept is "%s". We are shifting the user's belief from "%s". Visual must prove this shift.]`, b.BigIdea.Concept, b.BigIdea.TargetBelief)

	case n.Type == model.NodeMechanism && b.Mechanism != nil:
		m := b.Mechanism
		return m.ScientificPseudo, fmt.Sprintf(` [STRATEGY CONTEXT: Mechanism Name: "%s". HOW IT WORKS (UMS): %s. WHY OLD WAY FAILED (UMP): %s. Visual must show this unique mechanism in action.]`, m.ScientificPseudo, m.UMS, m.UMP)

	case n.Type == model.NodeStory && b.Story != nil:
		return b.Story.Title, fmt.Sprintf(` [STRATEGY CONTEXT: Narrative: "%s". Core Emotion: %s. Visual must be raw and authentic to this story.]`, b.Story.Narrative, b.Story.EmotionalTheme)

	case n.Type == model.NodeHVCO && b.HVCO != nil:
		return b.HVCO.Title, fmt.Sprintf(` [STRATEGY CONTEXT: Lead Magnet Hook: "%s". Format: %s. Visual should sell the VALUE of this free info.]`, b.HVCO.Hook, b.HVCO.Format)
	}
	return n.Title, ""
}

// RichAngle is the composite string passed to concept, copy and image calls.
func RichAngle(n model.Node) string {
	angle, deep := AngleParts(n)
	return angle + deep
}

// ProjectFor returns the project as seen from n: an attached Mafia offer
// replaces the plain offer text.
func ProjectFor(p model.Project, n model.Node) model.Project {
	return p.WithOffer(n.Bundle.Offer)
}

// PainPoint picks the most specific pain a persona map carries.
func PainPoint(meta model.Meta) string {
	if s := meta.Strings("visceralSymptoms"); len(s) > 0 && s[0] != "" {
		return s[0]
	}
	if m := meta.String("motivation"); m != "" {
		return m
	}
	return "Generic Pain"
}
