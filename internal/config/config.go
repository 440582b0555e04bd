package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/pelletier/go-toml/v2"

	"github.com/agenthands/funnelgraph/internal/core/cost"
	"github.com/agenthands/funnelgraph/internal/core/layout"
	"github.com/agenthands/funnelgraph/internal/core/model"
)

type LLMConfig struct {
	Provider   string `toml:"provider" env:"LLM_PROVIDER"`
	Model      string `toml:"model" env:"LLM_MODEL"`
	ImageModel string `toml:"image_model" env:"LLM_IMAGE_MODEL"`
	APIKey     string `toml:"api_key" env:"LLM_API_KEY"`
	BaseURL    string `toml:"base_url" env:"LLM_BASE_URL"`
	// ImageProvider defaults to Provider. Claude has no image endpoint, so a
	// Claude setup must name gemini or openai here.
	ImageProvider string `toml:"image_provider" env:"LLM_IMAGE_PROVIDER"`
	ImageAPIKey   string `toml:"image_api_key" env:"LLM_IMAGE_API_KEY"`
}

type MemgraphConfig struct {
	URI      string `toml:"uri" env:"MEMGRAPH_URI"`
	User     string `toml:"user" env:"MEMGRAPH_USER"`
	Password string `toml:"password" env:"MEMGRAPH_PASSWORD"`
}

type ServerConfig struct {
	Port    string `toml:"port" env:"PORT"`
	LogMode string `toml:"log_mode" env:"LOG_MODE"`
	// AllowOrigins lists the browser origins the canvas UI is served from.
	AllowOrigins []string `toml:"allow_origins" env:"CORS_ORIGINS" envSeparator:","`
}

// LayoutConfig holds one fan-out per expansion action plus the creative grid.
type LayoutConfig struct {
	Personas    layout.FanOut `toml:"personas"`
	Angles      layout.FanOut `toml:"angles"`
	Stories     layout.FanOut `toml:"stories"`
	BigIdeas    layout.FanOut `toml:"big_ideas"`
	Mechanisms  layout.FanOut `toml:"mechanisms"`
	Hooks       layout.FanOut `toml:"hooks"`
	HVCO        layout.FanOut `toml:"hvco"`
	SalesLetter layout.FanOut `toml:"sales_letter"`
	Creatives   layout.Grid   `toml:"creatives"`
}

type PipelineConfig struct {
	ItemDelayMS  int     `toml:"item_delay_ms"`
	AuditDelayMS int     `toml:"audit_delay_ms"`
	Strict       bool    `toml:"strict" env:"STRICT_PRECONDITIONS"`
	WinningScore float64 `toml:"winning_score"`
	// CarouselSlides caps concurrent slide renders for one creative.
	CarouselSlides int `toml:"carousel_slides"`
}

func (p PipelineConfig) ItemDelay() time.Duration {
	return time.Duration(p.ItemDelayMS) * time.Millisecond
}

func (p PipelineConfig) AuditDelay() time.Duration {
	return time.Duration(p.AuditDelayMS) * time.Millisecond
}

type Config struct {
	LLM      LLMConfig      `toml:"llm"`
	Memgraph MemgraphConfig `toml:"memgraph"`
	Server   ServerConfig   `toml:"server"`
	Pricing  cost.Rates     `toml:"pricing"`
	Layout   LayoutConfig   `toml:"layout"`
	Pipeline PipelineConfig `toml:"pipeline"`
	Project  model.Project  `toml:"project"`
}

// Default is the configuration the server starts from before the file and
// environment are applied.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:   "gemini",
			Model:      "gemini-2.5-flash",
			ImageModel: "gemini-2.5-flash-image",
		},
		Server: ServerConfig{
			Port:         "8080",
			LogMode:      "dev",
			AllowOrigins: []string{"http://localhost:5173", "http://localhost:3000"},
		},
		Pricing: cost.DefaultRates(),
		Layout: LayoutConfig{
			Personas:    layout.FanOut{Gap: 600, Spacing: 800},
			Angles:      layout.FanOut{Gap: 550, Spacing: 350},
			Stories:     layout.FanOut{Gap: 500, Spacing: 400},
			BigIdeas:    layout.FanOut{Gap: 500, Spacing: 300},
			Mechanisms:  layout.FanOut{Gap: 500, Spacing: 300},
			Hooks:       layout.FanOut{Gap: 400, Spacing: 200},
			HVCO:        layout.FanOut{Gap: 600, Spacing: 250},
			SalesLetter: layout.FanOut{Gap: 400, Spacing: 0},
			Creatives:   layout.Grid{Gap: 550, ColSpacing: 350, RowSpacing: 400, Columns: 3},
		},
		Pipeline: PipelineConfig{
			ItemDelayMS:    800,
			AuditDelayMS:   800,
			WinningScore:   85,
			CarouselSlides: 3,
		},
		Project: model.Project{
			ProductName:        "Zenith Focus Gummies",
			ProductDescription: "Nootropic gummies for focus and memory without the caffeine crash.",
			TargetAudience:     "Students, Programmers, and Creatives.",
			TargetCountry:      "USA",
			BrandVoice:         "Witty, Smart, but Approachable",
			FunnelStage:        "Top of Funnel (Cold)",
			MarketAwareness:    "Problem Aware",
			CopyFramework:      "PAS (Problem-Agitate-Solution)",
			Offer:              "Buy 2 Get 1 Free",
			LanguageRegister:   "Casual",
		},
	}
}

// Load reads the TOML file over the defaults and then applies environment
// overrides. A missing file is not an error; the defaults stand.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	default:
		if err := toml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse TOML: %w", err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LLM.fill()
	return cfg, nil
}

func (l *LLMConfig) fill() {
	if l.ImageProvider == "" {
		l.ImageProvider = l.Provider
	}
	if l.ImageAPIKey == "" {
		l.ImageAPIKey = l.APIKey
	}
}
