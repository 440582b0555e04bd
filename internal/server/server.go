package server

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/agenthands/funnelgraph/internal/config"
	"github.com/agenthands/funnelgraph/internal/core"
	"github.com/agenthands/funnelgraph/internal/driver"
	"github.com/agenthands/funnelgraph/internal/generator"
	"github.com/agenthands/funnelgraph/internal/llm"
	"github.com/agenthands/funnelgraph/internal/logger"
)

type Server struct {
	Campaign *core.Campaign
	Config   *config.Config
	Log      *logger.Logger
	// background tracks async actions so Close can wait for them.
	background *tracker
}

// NewServer wires the generation providers, the optional Memgraph export and
// a fresh campaign from cfg.
func NewServer(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Server, error) {
	log = logger.OrNop(log)

	var d driver.GraphDriver
	if cfg.Memgraph.URI != "" {
		md, err := driver.NewMemgraphDriver(ctx, cfg.Memgraph.URI, cfg.Memgraph.User, cfg.Memgraph.Password, log)
		if err != nil {
			log.Warn("memgraph unavailable, export disabled", "error", err)
		} else {
			if err := md.BuildIndices(ctx); err != nil {
				log.Warn("memgraph indices not built", "error", err)
			}
			d = md
		}
	}

	text, images, err := llm.NewClient(ctx, cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm client: %w", err)
	}
	log.Info("generation providers ready", "provider", cfg.LLM.Provider, "model", cfg.LLM.Model, "image_provider", cfg.LLM.ImageProvider)

	campaign, err := core.NewCampaign(d, generator.NewLLMService(text, images), cfg, log)
	if err != nil {
		return nil, err
	}
	return New(campaign, cfg, log), nil
}

// New serves an already wired campaign.
func New(c *core.Campaign, cfg *config.Config, log *logger.Logger) *Server {
	return &Server{Campaign: c, Config: cfg, Log: logger.OrNop(log), background: &tracker{}}
}

func (s *Server) SetupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(s.Log))
	if len(s.Config.Server.AllowOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins: s.Config.Server.AllowOrigins,
			AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"},
			AllowHeaders: []string{"Content-Type"},
			MaxAge:       12 * time.Hour,
		}))
	}

	r.GET("/health", s.Health)
	r.GET("/formats", s.Formats)

	r.GET("/project", s.GetProject)
	r.PUT("/project", s.UpdateProject)

	r.GET("/graph", s.Graph)
	r.POST("/actions", s.Action)
	r.POST("/audit", s.Audit)
	r.POST("/export", s.Export)

	nodes := r.Group("/nodes/:id")
	nodes.GET("", s.GetNode)
	nodes.GET("/children", s.Children)
	nodes.PATCH("/position", s.MoveNode)
	nodes.POST("/creatives", s.GenerateCreatives)
	nodes.POST("/regenerate", s.Regenerate)
	nodes.POST("/promote", s.Promote)
	nodes.POST("/predict", s.Predict)

	return r
}

// Close waits for in-flight async actions.
func (s *Server) Close(ctx context.Context) error {
	return s.background.wait(ctx)
}

func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []any{
			"method", strings.ToUpper(c.Request.Method),
			"path", path,
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}
		switch {
		case status >= 500:
			log.Error("HTTP request", fields...)
		case status >= 400:
			log.Warn("HTTP request", fields...)
		default:
			log.Debug("HTTP request", fields...)
		}
	}
}
