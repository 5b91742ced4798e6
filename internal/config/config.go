// Package config loads the service configuration from YAML with
// environment-variable expansion and defaulting. Durations are expressed
// as millisecond or second integers so files stay shell-substitutable.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/etherlens/etherlens/internal/aggregate"
	"github.com/etherlens/etherlens/internal/cache"
	"github.com/etherlens/etherlens/internal/chain"
	"github.com/etherlens/etherlens/internal/explorer"
	"github.com/etherlens/etherlens/internal/inference"
	"github.com/etherlens/etherlens/internal/market"
	"github.com/etherlens/etherlens/internal/pipeline"
	"github.com/etherlens/etherlens/internal/scoring"
)

// Config is the root configuration structure for the analysis service.
type Config struct {
	General   GeneralConfig   `yaml:"general"`
	Server    ServerConfig    `yaml:"server"`
	Chain     ChainConfig     `yaml:"chain"`
	Explorer  ExplorerConfig  `yaml:"explorer"`
	Market    MarketConfig    `yaml:"market"`
	Inference InferenceConfig `yaml:"inference"`
	Aggregate AggregateConfig `yaml:"aggregate"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Cache     CacheConfig     `yaml:"cache"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
}

type GeneralConfig struct {
	InstanceID  string `yaml:"instance_id"`
	Environment string `yaml:"environment"` // production|staging|development
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"` // json|text
}

type ServerConfig struct {
	ListenAddr        string `yaml:"listen_addr"`
	ReadTimeoutMs     int    `yaml:"read_timeout_ms"`
	WriteTimeoutMs    int    `yaml:"write_timeout_ms"`
	ShutdownTimeoutMs int    `yaml:"shutdown_timeout_ms"`
}

type ChainConfig struct {
	Endpoint     string  `yaml:"endpoint"`
	TimeoutMs    int     `yaml:"timeout_ms"`
	MaxRetries   int     `yaml:"max_retries"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

type ExplorerConfig struct {
	BaseURL      string  `yaml:"base_url"`
	APIKey       string  `yaml:"api_key"`
	TimeoutMs    int     `yaml:"timeout_ms"`
	MaxRetries   int     `yaml:"max_retries"`
	RateLimitRPS float64 `yaml:"rate_limit_rps"`
}

type MarketConfig struct {
	BaseURL    string `yaml:"base_url"`
	APIKey     string `yaml:"api_key"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	MaxRetries int    `yaml:"max_retries"`
}

type InferenceConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Endpoint   string `yaml:"endpoint"`
	APIKey     string `yaml:"api_key"`
	TimeoutMs  int    `yaml:"timeout_ms"`
	MaxRetries int    `yaml:"max_retries"`
}

type AggregateConfig struct {
	StageTimeoutMs     int `yaml:"stage_timeout_ms"`
	SlotTimeoutMs      int `yaml:"slot_timeout_ms"`
	TxLimit            int `yaml:"tx_limit"`
	TransferWindowMins int `yaml:"transfer_window_mins"`
}

type ScoringConfig struct {
	SafeBelow       float64 `yaml:"safe_below"`
	HighAt          float64 `yaml:"high_at"`
	MaxExplanations int     `yaml:"max_explanations"`
	ModelTimeoutMs  int     `yaml:"model_timeout_ms"`

	NewContractDays     int     `yaml:"new_contract_days"`
	HighMintThreshold   int     `yaml:"high_mint_threshold"`
	MaturedAgeDays      int     `yaml:"matured_age_days"`
	FailedRatioPct      float64 `yaml:"failed_ratio_pct"`
	BurstCounterparties int     `yaml:"burst_counterparties"`
	BurstWindowDays     int     `yaml:"burst_window_days"`
	DormantGapDays      int     `yaml:"dormant_gap_days"`
	DormantRecentDays   int     `yaml:"dormant_recent_days"`

	Weights scoring.Weights `yaml:"weights"`
}

type CacheConfig struct {
	TTLSec   int `yaml:"ttl_sec"`
	Capacity int `yaml:"capacity"`
}

type PipelineConfig struct {
	AnalyzeTimeoutMs int `yaml:"analyze_timeout_ms"`
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	// Expand environment variables
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// Apply defaults
	applyDefaults(cfg)

	return cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.General.InstanceID == "" {
		cfg.General.InstanceID = "etherlens-1"
	}
	if cfg.General.Environment == "" {
		cfg.General.Environment = "development"
	}
	if cfg.General.LogLevel == "" {
		cfg.General.LogLevel = "info"
	}
	if cfg.General.LogFormat == "" {
		cfg.General.LogFormat = "json"
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = ":8080"
	}
	if cfg.Server.ReadTimeoutMs == 0 {
		cfg.Server.ReadTimeoutMs = 10_000
	}
	if cfg.Server.WriteTimeoutMs == 0 {
		cfg.Server.WriteTimeoutMs = 30_000
	}
	if cfg.Server.ShutdownTimeoutMs == 0 {
		cfg.Server.ShutdownTimeoutMs = 10_000
	}
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// ChainClientConfig materializes the node RPC client config. Zero fields
// fall through to the client's own defaults.
func (c *Config) ChainClientConfig() chain.Config {
	return chain.Config{
		Endpoint:     c.Chain.Endpoint,
		Timeout:      ms(c.Chain.TimeoutMs),
		MaxRetries:   c.Chain.MaxRetries,
		RateLimitRPS: c.Chain.RateLimitRPS,
	}
}

// ExplorerClientConfig materializes the explorer client config.
func (c *Config) ExplorerClientConfig() explorer.Config {
	return explorer.Config{
		BaseURL:      c.Explorer.BaseURL,
		APIKey:       c.Explorer.APIKey,
		Timeout:      ms(c.Explorer.TimeoutMs),
		MaxRetries:   c.Explorer.MaxRetries,
		RateLimitRPS: c.Explorer.RateLimitRPS,
	}
}

// MarketClientConfig materializes the market data client config.
func (c *Config) MarketClientConfig() market.Config {
	return market.Config{
		BaseURL:    c.Market.BaseURL,
		APIKey:     c.Market.APIKey,
		Timeout:    ms(c.Market.TimeoutMs),
		MaxRetries: c.Market.MaxRetries,
	}
}

// InferenceProviderConfig materializes the model provider config.
func (c *Config) InferenceProviderConfig() inference.Config {
	return inference.Config{
		Endpoint:   c.Inference.Endpoint,
		APIKey:     c.Inference.APIKey,
		Timeout:    ms(c.Inference.TimeoutMs),
		MaxRetries: uint64(c.Inference.MaxRetries),
	}
}

// AggregatorConfig materializes the aggregation stage config.
func (c *Config) AggregatorConfig() aggregate.Config {
	return aggregate.Config{
		StageTimeout:   ms(c.Aggregate.StageTimeoutMs),
		SlotTimeout:    ms(c.Aggregate.SlotTimeoutMs),
		TxLimit:        c.Aggregate.TxLimit,
		TransferWindow: time.Duration(c.Aggregate.TransferWindowMins) * time.Minute,
	}
}

// ScoringEngineConfig materializes the scoring engine config.
func (c *Config) ScoringEngineConfig() scoring.Config {
	return scoring.Config{
		SafeBelow:           c.Scoring.SafeBelow,
		HighAt:              c.Scoring.HighAt,
		MaxExplanations:     c.Scoring.MaxExplanations,
		ModelTimeout:        ms(c.Scoring.ModelTimeoutMs),
		NewContractDays:     c.Scoring.NewContractDays,
		HighMintThreshold:   c.Scoring.HighMintThreshold,
		MaturedAgeDays:      c.Scoring.MaturedAgeDays,
		FailedRatioPct:      c.Scoring.FailedRatioPct,
		BurstCounterparties: c.Scoring.BurstCounterparties,
		BurstWindowDays:     c.Scoring.BurstWindowDays,
		DormantGapDays:      c.Scoring.DormantGapDays,
		DormantRecentDays:   c.Scoring.DormantRecentDays,
		Weights:             c.Scoring.Weights,
	}
}

// ResultCacheConfig materializes the result cache config.
func (c *Config) ResultCacheConfig() cache.Config {
	return cache.Config{
		TTL:      time.Duration(c.Cache.TTLSec) * time.Second,
		Capacity: c.Cache.Capacity,
	}
}

// PipelineOrchestratorConfig materializes the orchestrator config.
func (c *Config) PipelineOrchestratorConfig() pipeline.Config {
	return pipeline.Config{
		AnalyzeTimeout: ms(c.Pipeline.AnalyzeTimeoutMs),
	}
}
