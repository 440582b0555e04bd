package core

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/agenthands/funnelgraph/internal/core/model"
	"github.com/agenthands/funnelgraph/internal/driver"
)

// ExportReport counts what one Export wrote.
type ExportReport struct {
	CampaignID string    `json:"campaignId"`
	Nodes      int       `json:"nodes"`
	Edges      int       `json:"edges"`
	ExportedAt time.Time `json:"exportedAt"`
}

// Export mirrors the current graph into the configured Cypher store. It is a
// one-way snapshot: the in-memory store stays authoritative, and earlier
// exports of the same campaign are replaced.
func (c *Campaign) Export(ctx context.Context) (*ExportReport, error) {
	if c.Driver == nil {
		return nil, model.ErrExportDisabled
	}
	now := time.Now().UTC()
	report := &ExportReport{CampaignID: c.ID, ExportedAt: now}
	project := c.Project()

	raw, err := json.Marshal(project)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}
	if _, err := c.Driver.ExecuteQuery(ctx, driver.DeleteCampaignQuery, map[string]any{"campaign_id": c.ID}); err != nil {
		return nil, fmt.Errorf("clear previous export: %w", err)
	}
	_, err = c.Driver.ExecuteQuery(ctx, driver.SaveCampaignQuery, map[string]any{
		"campaign_id":  c.ID,
		"product_name": project.ProductName,
		"offer":        project.Offer,
		"project":      string(raw),
		"exported_at":  now.Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("save campaign: %w", err)
	}

	for _, n := range c.Store.Nodes() {
		params, err := nodeParams(c.ID, n, now)
		if err != nil {
			return report, err
		}
		if _, err := c.Driver.ExecuteQuery(ctx, driver.SaveCampaignNodeQuery, params); err != nil {
			return report, fmt.Errorf("save node %s: %w", n.ID, err)
		}
		report.Nodes++
	}

	for _, e := range c.Store.Edges() {
		_, err := c.Driver.ExecuteQuery(ctx, driver.SaveCampaignEdgeQuery, map[string]any{
			"id":          e.ID,
			"campaign_id": c.ID,
			"source_id":   e.Source,
			"target_id":   e.Target,
		})
		if err != nil {
			return report, fmt.Errorf("save edge %s: %w", e.ID, err)
		}
		report.Edges++
	}

	_, err = c.Driver.ExecuteQuery(ctx, driver.LinkCampaignRootQuery, map[string]any{"campaign_id": c.ID, "root_id": RootID})
	if err != nil {
		return report, fmt.Errorf("link root: %w", err)
	}

	c.Log.Info("campaign exported", "campaign_id", c.ID, "nodes", report.Nodes, "edges", report.Edges)
	return report, nil
}

// nodeParams flattens a node for Cypher. Nested payloads are stored as JSON
// strings since property maps cannot hold arbitrary nesting.
func nodeParams(campaignID string, n model.Node, at time.Time) (map[string]any, error) {
	meta, err := json.Marshal(n.Meta)
	if err != nil {
		return nil, fmt.Errorf("encode meta of %s: %w", n.ID, err)
	}
	payload, err := json.Marshal(struct {
		Bundle     model.ContextBundle `json:"bundle"`
		Creative   *model.CreativeData `json:"creative,omitempty"`
		Prediction *model.Prediction   `json:"prediction,omitempty"`
	}{n.Bundle, n.Creative, n.Prediction})
	if err != nil {
		return nil, fmt.Errorf("encode payload of %s: %w", n.ID, err)
	}

	var score any
	if n.Prediction != nil {
		score = n.Prediction.Score
	}
	return map[string]any{
		"id":             n.ID,
		"campaign_id":    campaignID,
		"type":           string(n.Type),
		"title":          n.Title,
		"description":    n.Description,
		"stage":          string(n.Stage),
		"x":              n.X,
		"y":              n.Y,
		"parent_id":      n.ParentID,
		"is_ghost":       n.IsGhost,
		"is_winning":     n.IsWinning,
		"score":          score,
		"input_tokens":   n.InputTokens,
		"output_tokens":  n.OutputTokens,
		"image_count":    int64(n.ImageCount),
		"estimated_cost": n.EstimatedCost,
		"meta":           string(meta),
		"payload":        string(payload),
		"exported_at":    at.Format(time.RFC3339),
	}, nil
}
