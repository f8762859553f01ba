package conf

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Bootstrap is the full service configuration.
type Bootstrap struct {
	Server     ServerConfig     `yaml:"server"`
	LLM        LLMConfig        `yaml:"llm"`
	Evaluation EvaluationConfig `yaml:"evaluation"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	DB         DBConfig         `yaml:"db"`
	Log        LogConfig        `yaml:"log"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr    string `yaml:"addr"`
	Timeout string `yaml:"timeout"`
}

// LLMConfig holds the chat-model endpoint settings.
type LLMConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	// RPM caps calls per minute across all models sharing the endpoint.
	RPM   int `yaml:"rpm"`
	Burst int `yaml:"burst"`
}

// EvaluationConfig selects the evaluator pool and the aggregator models.
type EvaluationConfig struct {
	// Models is the evaluator pool; it is shuffled per request and split
	// into primary/fallback pairs.
	Models []string `yaml:"models"`
	// MaxPairs is a hard ceiling on concurrent evaluator calls per request.
	MaxPairs int `yaml:"max_pairs"`
	// ConsensusModels is the primary/fallback pair used for consensus,
	// canonicalization and summary calls.
	ConsensusModels []string `yaml:"consensus_models"`
	// MaxContentChars bounds the article snippet sent to evaluators.
	MaxContentChars int `yaml:"max_content_chars"`
}

// ScraperConfig holds fetch and render-fallback settings.
type ScraperConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RenderBaseURL  string `yaml:"render_base_url"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

// Load reads and validates the configuration file at path. Values may
// reference environment variables as ${VAR}.
func Load(path string) (*Bootstrap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Bootstrap
	if err := yaml.Unmarshal([]byte(os.ExpandEnv(string(data))), &cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	if len(cfg.Evaluation.Models) < 2 {
		return nil, fmt.Errorf("evaluation.models needs at least one primary/fallback pair")
	}
	if len(cfg.Evaluation.ConsensusModels) == 0 {
		return nil, fmt.Errorf("evaluation.consensus_models must not be empty")
	}

	return &cfg, nil
}

func (c *Bootstrap) applyDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8000"
	}
	if c.LLM.RPM == 0 {
		c.LLM.RPM = 60
	}
	if c.LLM.Burst == 0 {
		c.LLM.Burst = 2
	}
	if c.Evaluation.MaxPairs == 0 {
		c.Evaluation.MaxPairs = 3
	}
	if c.Evaluation.MaxContentChars == 0 {
		c.Evaluation.MaxContentChars = 10000
	}
	if c.Scraper.TimeoutSeconds == 0 {
		c.Scraper.TimeoutSeconds = 20
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}
