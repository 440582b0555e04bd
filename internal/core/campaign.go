// Package core wires the campaign graph to the expansion engine, the creative
// pipeline and the stage manager, and routes UI actions between them.
package core

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/agenthands/funnelgraph/internal/config"
	"github.com/agenthands/funnelgraph/internal/core/creative"
	"github.com/agenthands/funnelgraph/internal/core/expansion"
	"github.com/agenthands/funnelgraph/internal/core/graph"
	"github.com/agenthands/funnelgraph/internal/core/model"
	"github.com/agenthands/funnelgraph/internal/core/stage"
	"github.com/agenthands/funnelgraph/internal/driver"
	"github.com/agenthands/funnelgraph/internal/generator"
	"github.com/agenthands/funnelgraph/internal/logger"
)

const RootID = "root"

var ErrUnknownView = errors.New("unknown view")

// UUIDGenerator produces the suffix of every generated node id.
type UUIDGenerator func() string

type Campaign struct {
	ID        string
	Store     *graph.Store
	Expansion *expansion.Engine
	Creatives *creative.Pipeline
	Stages    *stage.Manager
	// Driver is optional; without it Export returns ErrExportDisabled.
	Driver driver.GraphDriver
	Log    *logger.Logger

	mu      sync.RWMutex
	project model.Project
}

// NewCampaign starts a session with a single root node built from the
// configured project.
func NewCampaign(d driver.GraphDriver, svc generator.Service, cfg *config.Config, log *logger.Logger) (*Campaign, error) {
	log = logger.OrNop(log)
	store := graph.NewStore()

	c := &Campaign{
		ID:        uuid.NewString(),
		Store:     store,
		Expansion: expansion.NewEngine(store, svc, cfg, log),
		Creatives: creative.NewPipeline(store, svc, cfg, log),
		Stages:    stage.NewManager(store, svc, cfg, log),
		Driver:    d,
		Log:       log,
		project:   cfg.Project,
	}

	root := model.Node{
		ID:          RootID,
		Type:        model.NodeRoot,
		Title:       cfg.Project.ProductName,
		Description: cfg.Project.ProductDescription,
		Stage:       model.StageTesting,
	}
	if err := store.Add(root, ""); err != nil {
		return nil, fmt.Errorf("campaign root: %w", err)
	}
	log.Info("campaign started", "campaign_id", c.ID, "product", cfg.Project.ProductName)
	return c, nil
}

// SetIDGenerator replaces the node id source for every component.
func (c *Campaign) SetIDGenerator(gen UUIDGenerator) {
	c.Expansion.NewID = gen
	c.Creatives.NewID = gen
}

func (c *Campaign) Project() model.Project {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.project
}

// UpdateProject replaces the project and re-syncs the root node.
func (c *Campaign) UpdateProject(p model.Project) error {
	c.mu.Lock()
	c.project = p
	c.mu.Unlock()

	return c.Store.Update(RootID, func(n *model.Node) {
		n.Title = p.ProductName
		n.Description = p.ProductDescription
	})
}

// ActionRequest is one UI action against a node. Formats is only read by
// generate_creatives.
type ActionRequest struct {
	Action  model.Action           `json:"action"`
	NodeID  string                 `json:"nodeId"`
	Formats []model.CreativeFormat `json:"formats,omitempty"`
}

// ActionResult carries whichever report the routed component produced.
type ActionResult struct {
	Action   model.Action          `json:"action"`
	NodeID   string                `json:"nodeId"`
	Status   string                `json:"status"`
	Reason   string                `json:"reason,omitempty"`
	Created  []string              `json:"created,omitempty"`
	Batch    *creative.BatchReport `json:"batch,omitempty"`
	Promoted *model.Node           `json:"promoted,omitempty"`
}

// HandleAction routes an action to the expansion engine, the creative
// pipeline or the stage manager.
func (c *Campaign) HandleAction(ctx context.Context, req ActionRequest) (*ActionResult, error) {
	res := &ActionResult{Action: req.Action, NodeID: req.NodeID}
	project := c.Project()

	switch {
	case expansion.Handles(req.Action):
		out, err := c.Expansion.Expand(ctx, project, req.Action, req.NodeID)
		res.Status, res.Reason, res.Created = string(out.Status), out.Reason, out.Created
		return res, err

	case req.Action == model.ActionGenerateCreatives:
		report, err := c.Creatives.Generate(ctx, project, req.NodeID, req.Formats)
		if report != nil {
			res.Status, res.Reason, res.Created = string(report.Status), report.Reason, report.Created
			res.Batch = report
		}
		return res, err

	case req.Action == model.ActionPromoteCreative:
		vault, err := c.Stages.Promote(req.NodeID)
		if err != nil {
			res.Status = string(expansion.StatusFailed)
			return res, err
		}
		if vault == nil {
			res.Status = string(expansion.StatusSkipped)
			return res, nil
		}
		res.Status = string(expansion.StatusCompleted)
		res.Created = []string{vault.ID}
		res.Promoted = vault
		return res, nil
	}
	return res, fmt.Errorf("%w: %s", model.ErrUnknownAction, req.Action)
}

func (c *Campaign) Regenerate(ctx context.Context, nodeID, aspect, reference string) (*model.Node, error) {
	return c.Creatives.Regenerate(ctx, c.Project(), nodeID, aspect, reference)
}

func (c *Campaign) Predict(ctx context.Context, nodeID string) (*model.Node, error) {
	return c.Stages.Predict(ctx, c.Project(), nodeID)
}

func (c *Campaign) Audit(ctx context.Context) (*stage.AuditReport, error) {
	return c.Stages.Audit(ctx, c.Project())
}

// MoveNode records a drag in the UI.
func (c *Campaign) MoveNode(id string, x, y float64) error {
	return c.Store.Update(id, func(n *model.Node) {
		n.X, n.Y = x, y
	})
}

type View string

const (
	ViewLab   View = "lab"
	ViewVault View = "vault"
	ViewAll   View = "all"
)

// GraphView is the node and edge set one canvas renders.
type GraphView struct {
	View  View         `json:"view"`
	Nodes []model.Node `json:"nodes"`
	Edges []model.Edge `json:"edges"`
}

func (c *Campaign) View(v View) (GraphView, error) {
	out := GraphView{View: v}
	switch v {
	case ViewLab, "":
		out.View = ViewLab
		out.Nodes, out.Edges = c.Store.LabNodes(), c.Store.LabEdges()
	case ViewVault:
		out.Nodes = c.Store.VaultNodes()
		out.Edges = c.Store.EdgesWhere(func(n model.Node) bool { return n.Stage == model.StageScaling })
	case ViewAll:
		out.Nodes, out.Edges = c.Store.Nodes(), c.Store.Edges()
	default:
		return out, fmt.Errorf("%w %q", ErrUnknownView, v)
	}
	if out.Nodes == nil {
		out.Nodes = []model.Node{}
	}
	if out.Edges == nil {
		out.Edges = []model.Edge{}
	}
	return out, nil
}
