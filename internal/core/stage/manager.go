// Package stage moves creatives from the Lab to the Vault and scores them.
package stage

import (
	"context"
	"fmt"
	"time"

	"github.com/agenthands/funnelgraph/internal/config"
	"github.com/agenthands/funnelgraph/internal/core/cost"
	"github.com/agenthands/funnelgraph/internal/core/graph"
	"github.com/agenthands/funnelgraph/internal/core/model"
	"github.com/agenthands/funnelgraph/internal/core/propagation"
	"github.com/agenthands/funnelgraph/internal/core/throttle"
	"github.com/agenthands/funnelgraph/internal/generator"
	"github.com/agenthands/funnelgraph/internal/logger"
)

const vaultSuffix = "-vault"

type Manager struct {
	Store   *graph.Store
	Service generator.Service
	Rates   cost.Rates
	// WinningScore is the prediction score at or above which a creative is
	// flagged as a winner.
	WinningScore float64
	AuditDelay   time.Duration
	Strict       bool
	Log          *logger.Logger
}

func NewManager(store *graph.Store, svc generator.Service, cfg *config.Config, log *logger.Logger) *Manager {
	return &Manager{
		Store:        store,
		Service:      svc,
		Rates:        cfg.Pricing,
		WinningScore: cfg.Pipeline.WinningScore,
		AuditDelay:   cfg.Pipeline.AuditDelay(),
		Strict:       cfg.Pipeline.Strict,
		Log:          logger.OrNop(log),
	}
}

// Promote copies a Lab creative into the Vault. The copy keeps the payload,
// has no parent and sits at the origin; the original stays in the Lab as a
// ghost. A nil node with a nil error means the promotion was skipped.
func (m *Manager) Promote(id string) (*model.Node, error) {
	src, err := m.Store.Get(id)
	if err != nil {
		return nil, m.reject("promote", id, err)
	}
	if src.Type != model.NodeCreative || !src.Active() {
		return nil, m.reject("promote", id, fmt.Errorf("%w: only active lab creatives can be promoted", model.ErrPreconditionNotMet))
	}
	if src.IsLoading {
		return nil, m.reject("promote", id, fmt.Errorf("%w: creative is still generating", model.ErrPreconditionNotMet))
	}

	vault := src.Clone()
	vault.ID = id + vaultSuffix
	vault.Stage = model.StageScaling
	vault.X, vault.Y = 0, 0
	vault.IsGhost = false
	vault.IsLoading = false
	if err := m.Store.Add(vault, ""); err != nil {
		return nil, m.reject("promote", id, err)
	}
	if err := m.Store.Update(id, func(n *model.Node) { n.IsGhost = true }); err != nil {
		return nil, err
	}
	m.Log.Info("creative promoted", "node_id", id, "vault_id", vault.ID)
	return &vault, nil
}

// Predict scores one node and attaches the prediction. Usage is added to the
// node's totals. The node shows as loading while the call runs.
func (m *Manager) Predict(ctx context.Context, project model.Project, id string) (*model.Node, error) {
	n, err := m.Store.Get(id)
	if err != nil {
		return nil, m.reject("predict", id, err)
	}

	m.setLoading(id, true)
	res, err := m.Service.Prediction(ctx, propagation.ProjectFor(project, n), n)
	if err != nil {
		m.setLoading(id, false)
		return nil, fmt.Errorf("predict %s: %w", id, err)
	}

	pred := res.Data
	err = m.Store.Update(id, func(n *model.Node) {
		n.IsLoading = false
		n.Prediction = &pred
		n.IsWinning = pred.Score >= m.WinningScore
		n.InputTokens += float64(res.InputTokens)
		n.OutputTokens += float64(res.OutputTokens)
		n.EstimatedCost = m.Rates.Estimate(n.InputTokens, n.OutputTokens, n.ImageCount)
	})
	if err != nil {
		return nil, err
	}
	out, err := m.Store.Get(id)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// AuditReport lists which creatives were scored by one Audit pass.
type AuditReport struct {
	Scored  []string `json:"scored,omitempty"`
	Winners []string `json:"winners,omitempty"`
	Failed  []string `json:"failed,omitempty"`
}

// Audit predicts every finished active Lab creative that has no prediction yet, one
// at a time through the throttle. A failed prediction is logged and skipped.
func (m *Manager) Audit(ctx context.Context, project model.Project) (*AuditReport, error) {
	pending := m.Store.NodesWhere(func(n model.Node) bool {
		return n.Type == model.NodeCreative && n.Active() && !n.IsLoading && n.Prediction == nil
	})
	report := &AuditReport{}
	if len(pending) == 0 {
		return report, nil
	}

	m.Log.Info("audit started", "pending", len(pending))
	err := throttle.Each(ctx, throttle.Every(m.AuditDelay), len(pending), func(i int) {
		id := pending[i].ID
		n, err := m.Predict(ctx, project, id)
		if err != nil || n == nil {
			m.Log.Warn("audit prediction failed", "node_id", id, "error", err)
			report.Failed = append(report.Failed, id)
			return
		}
		report.Scored = append(report.Scored, id)
		if n.IsWinning {
			report.Winners = append(report.Winners, id)
		}
	})
	m.Log.Info("audit finished", "scored", len(report.Scored), "winners", len(report.Winners), "failed", len(report.Failed))
	return report, err
}

func (m *Manager) setLoading(id string, on bool) {
	if err := m.Store.Update(id, func(n *model.Node) { n.IsLoading = on }); err != nil {
		m.Log.Warn("loading flag not updated", "node_id", id, "error", err)
	}
}

func (m *Manager) reject(op, id string, err error) error {
	if m.Strict {
		return fmt.Errorf("%s %s: %w", op, id, err)
	}
	m.Log.Debug("stage action skipped", "op", op, "node_id", id, "reason", err)
	return nil
}
