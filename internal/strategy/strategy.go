// Package strategy loads the externally editable ranking strategy: per-scenario
// exploration epsilon and an optional strategy version label. A missing or
// invalid file falls back to compiled defaults.
package strategy

import (
	"log/slog"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/rankpilot/rankd/internal/core/domain"
)

const (
	DefaultEpsilon = 0.10
	EpsilonFloor   = 0.05

	reloadTTL = time.Minute
)

type ScenarioStrategy struct {
	Epsilon *float64 `yaml:"epsilon"`
}

type Config struct {
	Version        string                      `yaml:"version"`
	DefaultEpsilon *float64                    `yaml:"default_epsilon"`
	Scenarios      map[string]ScenarioStrategy `yaml:"scenarios"`
}

type Provider struct {
	path string

	mu       sync.Mutex
	cfg      *Config
	loadedAt time.Time
	now      func() time.Time
}

// NewFileProvider reads the strategy YAML at path. An empty path disables file
// lookups and serves defaults.
func NewFileProvider(path string) *Provider {
	return &Provider{path: path, now: time.Now}
}

func (p *Provider) config() *Config {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.loadedAt.IsZero() && p.now().Sub(p.loadedAt) < reloadTTL {
		return p.cfg
	}
	p.loadedAt = p.now()

	if p.path == "" {
		p.cfg = nil
		return nil
	}
	data, err := os.ReadFile(p.path)
	if err != nil {
		if !os.IsNotExist(err) {
			slog.Warn("strategy_load_failed", "path", p.path, "error", err)
		}
		p.cfg = nil
		return nil
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		slog.Warn("strategy_parse_failed", "path", p.path, "error", err)
		p.cfg = nil
		return nil
	}
	p.cfg = &cfg
	return p.cfg
}

// Epsilon returns the exploration rate for a scenario, clamped to the floor.
func (p *Provider) Epsilon(s domain.Scenario) float64 {
	eps := DefaultEpsilon
	if cfg := p.config(); cfg != nil {
		if cfg.DefaultEpsilon != nil {
			eps = *cfg.DefaultEpsilon
		}
		if sc, ok := cfg.Scenarios[string(s)]; ok && sc.Epsilon != nil {
			eps = *sc.Epsilon
		}
	}
	if eps < EpsilonFloor {
		eps = EpsilonFloor
	}
	return eps
}

// Version labels the active strategy for decision provenance.
func (p *Provider) Version() string {
	if cfg := p.config(); cfg != nil && cfg.Version != "" {
		return cfg.Version
	}
	return "v1"
}
