package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/rvigier/loadshift/core/schedule"
	"github.com/rvigier/loadshift/infra/lpsolve"
	"github.com/rvigier/loadshift/infra/metrics"
	"github.com/rvigier/loadshift/infra/mqtt"
	"github.com/rvigier/loadshift/infra/store"
)

// Config is the full runtime configuration.
type Config struct {
	Store    store.Config    `json:"store"`
	Solver   lpsolve.Config  `json:"solver"`
	Schedule schedule.Config `json:"schedule"`
	Plan     PlanConfig      `json:"plan"`
	Metrics  MetricsConfig   `json:"metrics"`
	MQTT     mqtt.Config     `json:"mqtt"`
}

// MetricsConfig selects the observability sinks.
type MetricsConfig struct {
	PrometheusEnabled bool                 `json:"prometheus_enabled"`
	PrometheusPort    string               `json:"prometheus_port"`
	Influx            metrics.InfluxConfig `json:"influx"`
}

// Load reads the configuration file (yaml or json by extension), applies
// K_-prefixed environment overrides and fills defaults.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("K_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "k_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.Schedule.SetDefaults()
	cfg.Plan.SetDefaults()
	if err := cfg.Schedule.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}
	if cfg.Store.Path == "" {
		return nil, fmt.Errorf("store.path is required")
	}
	return &cfg, nil
}
