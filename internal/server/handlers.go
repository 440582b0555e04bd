package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"

	"github.com/agenthands/funnelgraph/internal/core"
	"github.com/agenthands/funnelgraph/internal/core/model"
)

// tracker counts detached background work.
type tracker struct {
	wg sync.WaitGroup
}

func (t *tracker) goDetached(fn func()) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		fn()
	}()
}

func (t *tracker) wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// detached keeps generation running after the client disconnects; the
// canvas polls /graph for the result.
func detached(c *gin.Context) context.Context {
	return context.WithoutCancel(c.Request.Context())
}

func async(c *gin.Context) bool {
	v, _ := strconv.ParseBool(c.Query("async"))
	return v
}

func (s *Server) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "campaignId": s.Campaign.ID, "nodes": s.Campaign.Store.Len()})
}

func (s *Server) Formats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"groups": model.FormatGroups})
}

func (s *Server) GetProject(c *gin.Context) {
	c.JSON(http.StatusOK, s.Campaign.Project())
}

func (s *Server) UpdateProject(c *gin.Context) {
	var p model.Project
	if err := c.ShouldBindJSON(&p); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if p.ProductName == "" {
		respondError(c, badRequest(errors.New("productName is required")))
		return
	}
	if err := s.Campaign.UpdateProject(p); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.Campaign.Project())
}

func (s *Server) Graph(c *gin.Context) {
	view, err := s.Campaign.View(core.View(c.Query("view")))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

func (s *Server) GetNode(c *gin.Context) {
	n, err := s.Campaign.Store.Get(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) Children(c *gin.Context) {
	kids, err := s.Campaign.Store.Children(c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if kids == nil {
		kids = []model.Node{}
	}
	c.JSON(http.StatusOK, gin.H{"nodes": kids})
}

type positionRequest struct {
	X *float64 `json:"x"`
	Y *float64 `json:"y"`
}

func (s *Server) MoveNode(c *gin.Context) {
	var req positionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if req.X == nil || req.Y == nil {
		respondError(c, badRequest(errors.New("x and y are required")))
		return
	}
	if err := s.Campaign.MoveNode(c.Param("id"), *req.X, *req.Y); err != nil {
		respondError(c, err)
		return
	}
	s.GetNode(c)
}

func (s *Server) Action(c *gin.Context) {
	var req core.ActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	if req.Action == "" || req.NodeID == "" {
		respondError(c, badRequest(errors.New("action and nodeId are required")))
		return
	}
	s.runAction(c, req)
}

type creativesRequest struct {
	Formats []model.CreativeFormat `json:"formats"`
}

func (s *Server) GenerateCreatives(c *gin.Context) {
	var req creativesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, badRequest(err))
		return
	}
	s.runAction(c, core.ActionRequest{
		Action:  model.ActionGenerateCreatives,
		NodeID:  c.Param("id"),
		Formats: req.Formats,
	})
}

func (s *Server) Promote(c *gin.Context) {
	s.runAction(c, core.ActionRequest{Action: model.ActionPromoteCreative, NodeID: c.Param("id")})
}

// runAction answers 202 at once for ?async=true and reports the outcome in the
// server log; otherwise it blocks until the action finishes.
func (s *Server) runAction(c *gin.Context, req core.ActionRequest) {
	if req.Action == model.ActionGenerateCreatives {
		formats, err := model.SelectFormats(req.Formats)
		if err != nil {
			respondError(c, err)
			return
		}
		req.Formats = formats
	}

	ctx := detached(c)
	if async(c) {
		s.background.goDetached(func() {
			res, err := s.Campaign.HandleAction(ctx, req)
			if err != nil {
				s.Log.Error("async action failed", "action", req.Action, "node_id", req.NodeID, "error", err)
				return
			}
			s.Log.Info("async action finished", "action", req.Action, "node_id", req.NodeID, "status", res.Status)
		})
		c.JSON(http.StatusAccepted, gin.H{"action": req.Action, "nodeId": req.NodeID, "status": "accepted"})
		return
	}

	res, err := s.Campaign.HandleAction(ctx, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type regenerateRequest struct {
	AspectRatio string `json:"aspectRatio"`
	// ReferenceImage is a data URL used instead of the project's product image.
	ReferenceImage string `json:"referenceImage"`
}

func (s *Server) Regenerate(c *gin.Context) {
	var req regenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondError(c, badRequest(err))
			return
		}
	}
	switch req.AspectRatio {
	case "", model.AspectSquare, model.AspectTall:
	default:
		respondError(c, badRequest(errors.New("aspectRatio must be 1:1 or 9:16")))
		return
	}
	if req.ReferenceImage != "" && !strings.HasPrefix(req.ReferenceImage, "data:image/") {
		respondError(c, badRequest(errors.New("referenceImage must be an image data URL")))
		return
	}

	n, err := s.Campaign.Regenerate(detached(c), c.Param("id"), req.AspectRatio, req.ReferenceImage)
	if err != nil {
		respondError(c, err)
		return
	}
	if n == nil {
		c.JSON(http.StatusOK, gin.H{"nodeId": c.Param("id"), "status": "skipped"})
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) Predict(c *gin.Context) {
	n, err := s.Campaign.Predict(detached(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	if n == nil {
		c.JSON(http.StatusOK, gin.H{"nodeId": c.Param("id"), "status": "skipped"})
		return
	}
	c.JSON(http.StatusOK, n)
}

func (s *Server) Audit(c *gin.Context) {
	ctx := detached(c)
	if async(c) {
		s.background.goDetached(func() {
			if _, err := s.Campaign.Audit(ctx); err != nil {
				s.Log.Error("async audit failed", "error", err)
			}
		})
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted"})
		return
	}
	report, err := s.Campaign.Audit(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) Export(c *gin.Context) {
	report, err := s.Campaign.Export(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
