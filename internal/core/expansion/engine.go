// Package expansion turns a user action on a node into one generation call
// and a fan-out of child nodes.
package expansion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/agenthands/funnelgraph/internal/config"
	"github.com/agenthands/funnelgraph/internal/core/cost"
	"github.com/agenthands/funnelgraph/internal/core/graph"
	"github.com/agenthands/funnelgraph/internal/core/layout"
	"github.com/agenthands/funnelgraph/internal/core/model"
	"github.com/agenthands/funnelgraph/internal/core/propagation"
	"github.com/agenthands/funnelgraph/internal/generator"
	"github.com/agenthands/funnelgraph/internal/logger"
)

type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// Outcome reports what an action did. Skipped outcomes carry the unmet
// precondition in Reason.
type Outcome struct {
	Action   model.Action `json:"action"`
	SourceID string       `json:"sourceId"`
	Status   Status       `json:"status"`
	Reason   string       `json:"reason,omitempty"`
	Created  []string     `json:"created,omitempty"`
}

type Engine struct {
	Store   *graph.Store
	Service generator.Service
	Rates   cost.Rates
	Layout  config.LayoutConfig
	// Strict turns unknown ids and unmet preconditions into errors instead of
	// skipped outcomes.
	Strict bool
	NewID  func() string
	Log    *logger.Logger
}

func NewEngine(store *graph.Store, svc generator.Service, cfg *config.Config, log *logger.Logger) *Engine {
	return &Engine{
		Store:   store,
		Service: svc,
		Rates:   cfg.Pricing,
		Layout:  cfg.Layout,
		Strict:  cfg.Pipeline.Strict,
		NewID:   uuid.NewString,
		Log:     logger.OrNop(log),
	}
}

// child is one generated item before it becomes a node.
type child struct {
	Type        model.NodeType
	Title       string
	Description string
	Meta        model.Meta
	Bundle      model.ContextBundle
	TestingTier string
}

type batch struct {
	children []child
	usage    cost.Usage
}

type plan struct {
	prefix   string
	fanOut   func(config.LayoutConfig) layout.FanOut
	check    func(model.Node) error
	generate func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error)
}

var plans = map[model.Action]plan{
	model.ActionExpandPersonas: {
		prefix: "persona",
		fanOut: func(l config.LayoutConfig) layout.FanOut { return l.Personas },
		check:  requireType(model.NodeRoot),
		generate: func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error) {
			res, err := e.Service.Personas(ctx, p)
			b := batch{usage: usage(res.InputTokens, res.OutputTokens)}
			for _, persona := range res.Data {
				desc := persona.Profile
				if desc == "" {
					desc = persona.Motivation
				}
				b.children = append(b.children, child{
					Type:        model.NodePersona,
					Title:       persona.Name,
					Description: desc,
					Meta:        propagation.Inherit(src, model.ToMeta(persona)),
					Bundle:      src.Bundle.Clone(),
				})
			}
			return b, err
		},
	},
	model.ActionExpandAngles: {
		prefix: "angle",
		fanOut: func(l config.LayoutConfig) layout.FanOut { return l.Angles },
		check:  requirePersona,
		generate: func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error) {
			res, err := e.Service.Angles(ctx, p, src.Meta.Clone())
			b := batch{usage: usage(res.InputTokens, res.OutputTokens)}
			for _, a := range res.Data {
				b.children = append(b.children, child{
					Type:        model.NodeAngle,
					Title:       a.Headline,
					Description: "Hook: " + a.PainPoint,
					Meta:        propagation.Inherit(src, model.ToMeta(a)),
					Bundle:      src.Bundle.Clone(),
					TestingTier: a.TestingTier,
				})
			}
			return b, err
		},
	},
	model.ActionStartStoryFlow: {
		prefix: "story",
		fanOut: func(l config.LayoutConfig) layout.FanOut { return l.Stories },
		check:  requireType(model.NodeRoot, model.NodePersona),
		generate: func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error) {
			res, err := e.Service.StoryOptions(ctx, p, src.Meta.Clone())
			b := batch{usage: usage(res.InputTokens, res.OutputTokens)}
			for _, s := range res.Data {
				bundle := src.Bundle.Clone()
				bundle.Story = &s
				b.children = append(b.children, child{
					Type: model.NodeStory, Title: s.Title, Description: "Story Phase",
					Meta: src.Meta.Clone(), Bundle: bundle,
				})
			}
			return b, err
		},
	},
	model.ActionGenerateBigIdeas: {
		prefix: "big-idea",
		fanOut: func(l config.LayoutConfig) layout.FanOut { return l.BigIdeas },
		check: func(n model.Node) error {
			if n.Bundle.Story == nil {
				return missing(n, "story")
			}
			return nil
		},
		generate: func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error) {
			res, err := e.Service.BigIdeas(ctx, p, *src.Bundle.Story)
			b := batch{usage: usage(res.InputTokens, res.OutputTokens)}
			for _, idea := range res.Data {
				bundle := src.Bundle.Clone()
				bundle.BigIdea = &idea
				b.children = append(b.children, child{
					Type: model.NodeBigIdea, Title: idea.Headline, Description: "Big Idea Phase",
					Meta: src.Meta.Clone(), Bundle: bundle,
				})
			}
			return b, err
		},
	},
	model.ActionGenerateMechanism: {
		prefix: "mechanism",
		fanOut: func(l config.LayoutConfig) layout.FanOut { return l.Mechanisms },
		check: func(n model.Node) error {
			if n.Bundle.BigIdea == nil {
				return missing(n, "big idea")
			}
			return nil
		},
		generate: func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error) {
			res, err := e.Service.Mechanisms(ctx, p, *src.Bundle.BigIdea)
			b := batch{usage: usage(res.InputTokens, res.OutputTokens)}
			for _, m := range res.Data {
				bundle := src.Bundle.Clone()
				bundle.Mechanism = &m
				b.children = append(b.children, child{
					Type: model.NodeMechanism, Title: m.ScientificPseudo, Description: "Mechanism Phase",
					Meta: src.Meta.Clone(), Bundle: bundle,
				})
			}
			return b, err
		},
	},
	model.ActionGenerateHooks: {
		prefix: "hook",
		fanOut: func(l config.LayoutConfig) layout.FanOut { return l.Hooks },
		check: func(n model.Node) error {
			if n.Bundle.Mechanism == nil {
				return missing(n, "mechanism")
			}
			if n.Bundle.BigIdea == nil {
				return missing(n, "big idea")
			}
			return nil
		},
		generate: func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error) {
			res, err := e.Service.Hooks(ctx, p, *src.Bundle.BigIdea, *src.Bundle.Mechanism)
			b := batch{usage: usage(res.InputTokens, res.OutputTokens)}
			for _, h := range res.Data {
				bundle := src.Bundle.Clone()
				bundle.Hook = h
				b.children = append(b.children, child{
					Type: model.NodeHook, Title: "Hook Variation", Description: "Hook Phase",
					Meta: src.Meta.Clone(), Bundle: bundle,
				})
			}
			return b, err
		},
	},
	model.ActionGenerateHVCO: {
		prefix: "hvco",
		fanOut: func(l config.LayoutConfig) layout.FanOut { return l.HVCO },
		check:  requirePersona,
		generate: func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error) {
			res, err := e.Service.HVCOIdeas(ctx, p, propagation.PainPoint(src.Meta))
			b := batch{usage: usage(res.InputTokens, res.OutputTokens)}
			for _, h := range res.Data {
				bundle := src.Bundle.Clone()
				bundle.HVCO = &h
				b.children = append(b.children, child{
					Type: model.NodeHVCO, Title: h.Title, Description: "Lead Magnet (Blue Ocean)",
					Meta:   propagation.Inherit(src, model.Meta{"hvcoTitle": h.Title}),
					Bundle: bundle,
				})
			}
			return b, err
		},
	},
	model.ActionWriteSalesLetter: {
		prefix: "sales-letter",
		fanOut: func(l config.LayoutConfig) layout.FanOut { return l.SalesLetter },
		check: func(n model.Node) error {
			if n.Type != model.NodeHook || !n.Bundle.FullChain() {
				return missing(n, "story, big idea, mechanism and hook")
			}
			return nil
		},
		generate: func(ctx context.Context, e *Engine, p model.Project, src model.Node) (batch, error) {
			res, err := e.Service.SalesLetter(ctx, p, src.Bundle.Clone())
			b := batch{usage: usage(res.InputTokens, res.OutputTokens)}
			if res.Data != "" {
				bundle := src.Bundle.Clone()
				bundle.SalesLetter = res.Data
				b.children = append(b.children, child{
					Type: model.NodeSalesLetter, Title: "Sales Letter", Description: excerpt(res.Data),
					Meta: src.Meta.Clone(), Bundle: bundle,
				})
			}
			return b, err
		},
	},
}

// Actions lists the actions Expand handles, including craft_offer.
func Actions() []model.Action {
	out := []model.Action{model.ActionCraftOffer}
	for a := range plans {
		out = append(out, a)
	}
	return out
}

// Handles reports whether Expand owns action a.
func Handles(a model.Action) bool {
	_, ok := plans[a]
	return ok || a == model.ActionCraftOffer
}

// Expand runs one action against nodeID. Service failures and empty results
// abort the action with no children created. Unknown ids and unmet
// preconditions return a skipped Outcome, or an error in strict mode.
func (e *Engine) Expand(ctx context.Context, project model.Project, action model.Action, nodeID string) (Outcome, error) {
	out := Outcome{Action: action, SourceID: nodeID}
	if action == model.ActionCraftOffer {
		return e.craftOffer(ctx, project, nodeID)
	}
	pl, ok := plans[action]
	if !ok {
		return out, fmt.Errorf("action %s is not an expansion", action)
	}

	src, err := e.Store.Get(nodeID)
	if err != nil {
		return e.skip(out, err)
	}
	if err := pl.check(src); err != nil {
		return e.skip(out, err)
	}

	log := e.Log.With("action", action, "node_id", nodeID)
	e.setLoading(nodeID, true)
	defer e.setLoading(nodeID, false)

	b, err := pl.generate(ctx, e, propagation.ProjectFor(project, src), src)
	if err == nil && len(b.children) == 0 {
		err = fmt.Errorf("%s: %w", action, model.ErrEmptyResult)
	}
	if err != nil {
		log.Error("expansion failed", "error", err)
		out.Status = StatusFailed
		out.Reason = err.Error()
		return out, err
	}

	created, err := e.attach(pl, src, b)
	if err != nil {
		out.Status = StatusFailed
		out.Reason = err.Error()
		return out, err
	}

	out.Status = StatusCompleted
	out.Created = created
	log.Info("expansion complete", "children", len(created), "input_tokens", b.usage.InputTokens, "output_tokens", b.usage.OutputTokens)
	return out, nil
}

// attach lays out and stores the children, each carrying an equal share of
// the batch usage.
func (e *Engine) attach(pl plan, src model.Node, b batch) ([]string, error) {
	points := pl.fanOut(e.Layout).Column(layout.Point{X: src.X, Y: src.Y}, len(b.children))
	share := b.usage.Split(len(b.children))

	nodes := make([]model.Node, 0, len(b.children))
	for i, c := range b.children {
		n := model.Node{
			ID:            fmt.Sprintf("%s-%s", pl.prefix, e.NewID()),
			Type:          c.Type,
			Title:         c.Title,
			Description:   c.Description,
			X:             points[i].X,
			Y:             points[i].Y,
			Stage:         model.StageTesting,
			ParentID:      src.ID,
			Meta:          c.Meta,
			TestingTier:   c.TestingTier,
			Bundle:        c.Bundle,
			InputTokens:   share.InputTokens,
			OutputTokens:  share.OutputTokens,
			EstimatedCost: e.Rates.Of(share),
		}
		if err := n.Validate(); err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}

	if err := e.Store.AddAll(nodes, src.ID); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
	}
	return ids, nil
}

// craftOffer attaches a Mafia offer to the node itself. The call's usage is
// added to the node's own totals.
func (e *Engine) craftOffer(ctx context.Context, project model.Project, nodeID string) (Outcome, error) {
	out := Outcome{Action: model.ActionCraftOffer, SourceID: nodeID}
	src, err := e.Store.Get(nodeID)
	if err != nil {
		return e.skip(out, err)
	}
	if !model.Allows(src.Type, model.ActionCraftOffer) {
		return e.skip(out, fmt.Errorf("%w: %s nodes cannot carry an offer", model.ErrPreconditionNotMet, src.Type))
	}

	e.setLoading(nodeID, true)
	defer e.setLoading(nodeID, false)

	res, err := e.Service.MafiaOffer(ctx, project)
	if err != nil {
		e.Log.Error("offer generation failed", "node_id", nodeID, "error", err)
		out.Status = StatusFailed
		out.Reason = err.Error()
		return out, err
	}

	offer := res.Data
	err = e.Store.Update(nodeID, func(n *model.Node) {
		n.Bundle.Offer = &offer
		n.InputTokens += float64(res.InputTokens)
		n.OutputTokens += float64(res.OutputTokens)
		n.EstimatedCost = e.Rates.Estimate(n.InputTokens, n.OutputTokens, n.ImageCount)
	})
	if err != nil {
		return e.skip(out, err)
	}
	out.Status = StatusCompleted
	return out, nil
}

func (e *Engine) skip(out Outcome, err error) (Outcome, error) {
	out.Status = StatusSkipped
	out.Reason = err.Error()
	if e.Strict {
		return out, fmt.Errorf("%s on %s: %w", out.Action, out.SourceID, err)
	}
	e.Log.Debug("action skipped", "action", out.Action, "node_id", out.SourceID, "reason", out.Reason)
	return out, nil
}

func (e *Engine) setLoading(id string, on bool) {
	if err := e.Store.Update(id, func(n *model.Node) { n.IsLoading = on }); err != nil && !errors.Is(err, model.ErrNotFound) {
		e.Log.Warn("loading flag not updated", "node_id", id, "error", err)
	}
}

func requireType(types ...model.NodeType) func(model.Node) error {
	return func(n model.Node) error {
		for _, t := range types {
			if n.Type == t {
				return nil
			}
		}
		return fmt.Errorf("%w: node %s is %s", model.ErrPreconditionNotMet, n.ID, n.Type)
	}
}

func requirePersona(n model.Node) error {
	if n.Meta.String("name") == "" {
		return missing(n, "persona")
	}
	return nil
}

func missing(n model.Node, what string) error {
	return fmt.Errorf("%w: node %s has no %s", model.ErrPreconditionNotMet, n.ID, what)
}

func usage(in, out int) cost.Usage {
	var u cost.Usage
	u.Add(in, out)
	return u
}

func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= 100 {
		return s
	}
	return string(r[:100]) + "..."
}
