package model

import (
	"fmt"
	"maps"
	"slices"
)

type NodeType string

const (
	NodeRoot        NodeType = "ROOT"
	NodePersona     NodeType = "PERSONA"
	NodeAngle       NodeType = "ANGLE"
	NodeStory       NodeType = "STORY"
	NodeBigIdea     NodeType = "BIG_IDEA"
	NodeMechanism   NodeType = "MECHANISM"
	NodeHook        NodeType = "HOOK"
	NodeHVCO        NodeType = "HVCO"
	NodeCreative    NodeType = "CREATIVE"
	NodeSalesLetter NodeType = "SALES_LETTER"
)

type Stage string

const (
	StageTesting Stage = "TESTING"
	StageScaling Stage = "SCALING"
)

// Node is the envelope shared by every node kind. Type-specific payloads live
// in Bundle (carried forward from ancestors) and Creative (terminal output).
type Node struct {
	ID          string   `json:"id"`
	Type        NodeType `json:"type"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	X           float64  `json:"x"`
	Y           float64  `json:"y"`
	Stage       Stage    `json:"stage"`
	ParentID    string   `json:"parentId,omitempty"`
	Meta        Meta     `json:"meta,omitempty"`
	TestingTier string   `json:"testingTier,omitempty"`

	Bundle   ContextBundle `json:"bundle"`
	Creative *CreativeData `json:"creative,omitempty"`

	InputTokens   float64 `json:"inputTokens"`
	OutputTokens  float64 `json:"outputTokens"`
	ImageCount    int     `json:"imageCount"`
	EstimatedCost float64 `json:"estimatedCost"`

	IsLoading bool `json:"isLoading"`
	IsGhost   bool `json:"isGhost"`
	IsWinning bool `json:"isWinning"`

	Prediction *Prediction `json:"prediction,omitempty"`
}

// Active reports whether the node belongs to the working Lab view.
func (n Node) Active() bool {
	return n.Stage == StageTesting && !n.IsGhost
}

// Clone returns a deep copy so callers never share maps or slices with the store.
func (n Node) Clone() Node {
	out := n
	out.Meta = n.Meta.Clone()
	out.Bundle = n.Bundle.Clone()
	if n.Creative != nil {
		c := n.Creative.Clone()
		out.Creative = &c
	}
	if n.Prediction != nil {
		p := *n.Prediction
		out.Prediction = &p
	}
	return out
}

// Validate enforces the variant rules of the node registry.
func (n Node) Validate() error {
	if n.ID == "" {
		return fmt.Errorf("%w: empty id", ErrInvalidNode)
	}
	spec, ok := Lookup(n.Type)
	if !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidNode, n.Type)
	}
	if n.Stage != StageTesting && n.Stage != StageScaling {
		return fmt.Errorf("%w: node %s has unknown stage %q", ErrInvalidNode, n.ID, n.Stage)
	}
	if n.Type == NodeRoot && n.ParentID != "" {
		return fmt.Errorf("%w: root node %s cannot have a parent", ErrInvalidNode, n.ID)
	}
	if n.Creative != nil && n.Type != NodeCreative {
		return fmt.Errorf("%w: creative payload on %s node %s", ErrInvalidNode, n.Type, n.ID)
	}
	if spec.HasPayload != nil && !spec.HasPayload(n) {
		return fmt.Errorf("%w: %s node %s is missing its payload", ErrInvalidNode, n.Type, n.ID)
	}
	return nil
}

// Meta is the inherited persona/angle map.
type Meta map[string]any

func (m Meta) Clone() Meta {
	if m == nil {
		return nil
	}
	out := make(Meta, len(m))
	for k, v := range m {
		switch t := v.(type) {
		case []string:
			out[k] = slices.Clone(t)
		case []any:
			out[k] = slices.Clone(t)
		case map[string]any:
			out[k] = maps.Clone(t)
		default:
			out[k] = v
		}
	}
	return out
}

// Merge returns a copy of m overlaid with other. Keys in other win.
func (m Meta) Merge(other Meta) Meta {
	out := m.Clone()
	if out == nil {
		out = Meta{}
	}
	for k, v := range other.Clone() {
		out[k] = v
	}
	return out
}

func (m Meta) String(key string) string {
	if m == nil {
		return ""
	}
	if s, ok := m[key].(string); ok {
		return s
	}
	return ""
}

func (m Meta) Strings(key string) []string {
	if m == nil {
		return nil
	}
	switch t := m[key].(type) {
	case []string:
		return t
	case []any:
		var out []string
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}
