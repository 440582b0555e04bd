package model

import "slices"

type Action string

const (
	ActionExpandPersonas    Action = "expand_personas"
	ActionExpandAngles      Action = "expand_angles"
	ActionStartStoryFlow    Action = "start_story_flow"
	ActionGenerateBigIdeas  Action = "generate_big_ideas"
	ActionGenerateMechanism Action = "generate_mechanisms"
	ActionGenerateHooks     Action = "generate_hooks"
	ActionGenerateHVCO      Action = "generate_hvco"
	ActionWriteSalesLetter  Action = "write_sales_letter"
	ActionCraftOffer        Action = "craft_offer"
	ActionPromoteCreative   Action = "promote_creative"
	ActionGenerateCreatives Action = "generate_creatives"
)

// TypeSpec describes one variant of the node union.
type TypeSpec struct {
	Type  NodeType
	Label string
	// HasPayload reports whether the node carries its own variant payload.
	HasPayload func(Node) bool
	Actions    []Action
}

var registry = map[NodeType]TypeSpec{
	NodeRoot: {
		Type:    NodeRoot,
		Label:   "Product",
		Actions: []Action{ActionExpandPersonas, ActionStartStoryFlow},
	},
	NodePersona: {
		Type:    NodePersona,
		Label:   "Persona",
		Actions: []Action{ActionExpandAngles, ActionGenerateHVCO, ActionStartStoryFlow},
	},
	NodeAngle: {
		Type:    NodeAngle,
		Label:   "Angle",
		Actions: []Action{ActionGenerateCreatives, ActionCraftOffer, ActionGenerateHVCO},
	},
	NodeStory: {
		Type:       NodeStory,
		Label:      "Story",
		HasPayload: func(n Node) bool { return n.Bundle.Story != nil },
		Actions:    []Action{ActionGenerateBigIdeas, ActionGenerateCreatives, ActionCraftOffer},
	},
	NodeBigIdea: {
		Type:       NodeBigIdea,
		Label:      "Big Idea",
		HasPayload: func(n Node) bool { return n.Bundle.BigIdea != nil },
		Actions:    []Action{ActionGenerateMechanism, ActionGenerateCreatives, ActionCraftOffer},
	},
	NodeMechanism: {
		Type:       NodeMechanism,
		Label:      "Mechanism",
		HasPayload: func(n Node) bool { return n.Bundle.Mechanism != nil },
		Actions:    []Action{ActionGenerateHooks, ActionGenerateCreatives, ActionCraftOffer},
	},
	NodeHook: {
		Type:       NodeHook,
		Label:      "Hook",
		HasPayload: func(n Node) bool { return n.Bundle.Hook != "" },
		Actions:    []Action{ActionGenerateCreatives, ActionWriteSalesLetter, ActionCraftOffer},
	},
	NodeHVCO: {
		Type:       NodeHVCO,
		Label:      "Lead Magnet",
		HasPayload: func(n Node) bool { return n.Bundle.HVCO != nil },
		Actions:    []Action{ActionGenerateCreatives, ActionCraftOffer},
	},
	NodeCreative: {
		Type:       NodeCreative,
		Label:      "Creative",
		HasPayload: func(n Node) bool { return n.Creative != nil },
		Actions:    []Action{ActionPromoteCreative},
	},
	NodeSalesLetter: {
		Type:       NodeSalesLetter,
		Label:      "Sales Letter",
		HasPayload: func(n Node) bool { return n.Bundle.SalesLetter != "" },
	},
}

func Lookup(t NodeType) (TypeSpec, bool) {
	s, ok := registry[t]
	return s, ok
}

// Allows reports whether nodes of type t expose action a.
func Allows(t NodeType, a Action) bool {
	s, ok := registry[t]
	return ok && slices.Contains(s.Actions, a)
}

// AngleBearing reports whether a node of type t can seed creatives.
func AngleBearing(t NodeType) bool {
	return Allows(t, ActionGenerateCreatives)
}

// Shortcut types skip the angle step and feed the pipeline from a strategy payload.
func Shortcut(t NodeType) bool {
	switch t {
	case NodeBigIdea, NodeMechanism, NodeStory, NodeHVCO:
		return true
	}
	return false
}
