package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Config holds all configuration for biodb-engine.
// Configuration can come from a YAML file (config.yaml) or environment
// variables; environment variables always override YAML values. Secrets
// (API keys) must only come from environment variables.
type Config struct {
	Env     string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version string `yaml:"-"` // Set at load time, not from config

	Sampling      SamplingConfig     `yaml:"sampling"`
	Classifier    ClassifierConfig   `yaml:"classifier"`
	Relationships RelationshipConfig `yaml:"relationships"`
	Execution     ExecutionConfig    `yaml:"execution"`
	Assistant     AssistantConfig    `yaml:"assistant"`
	Cache         CacheConfig        `yaml:"cache"`
}

// SamplingConfig bounds per-column value sampling during discovery.
// Sampling is deterministic for a fixed seed so classification is
// reproducible across runs on the same database content.
type SamplingConfig struct {
	// Cap is the maximum number of rows sampled per column.
	Cap int `yaml:"cap" env:"SAMPLING_CAP" env-default:"1000"`
	// Seed drives the pseudo-random row ordering used when a table has
	// more rows than Cap.
	Seed int64 `yaml:"seed" env:"SAMPLING_SEED" env-default:"42"`
}

// ClassifierConfig holds the thresholds of the column classifier rule chain.
// Real assembly/annotation schemas vary widely in scale, so none of these are
// hard-coded assumptions.
type ClassifierConfig struct {
	// ContinuousRatio is the distinct/sampled ratio at or above which a
	// numeric column is continuous rather than discrete.
	ContinuousRatio float64 `yaml:"continuous_ratio" env:"CLASSIFIER_CONTINUOUS_RATIO" env-default:"0.5"`
	// CategoricalCap is the absolute distinct-value count below which a
	// non-numeric column is categorical.
	CategoricalCap int `yaml:"categorical_cap" env:"CLASSIFIER_CATEGORICAL_CAP" env-default:"50"`
	// SequenceMatchRate is the share of sampled values that must match an
	// accession/contig pattern for the sequence-reference role.
	SequenceMatchRate float64 `yaml:"sequence_match_rate" env:"CLASSIFIER_SEQUENCE_MATCH_RATE" env-default:"1.0"`
	// TopK is how many most-frequent values are kept per categorical column.
	TopK int `yaml:"top_k" env:"CLASSIFIER_TOP_K" env-default:"10"`
}

// RelationshipConfig holds relationship-inference thresholds.
type RelationshipConfig struct {
	// OverlapThreshold is the minimum share of the smaller column's
	// distinct values that must be present in the larger for an inferred
	// edge to be kept. Edges below threshold are dropped, not guessed.
	OverlapThreshold float64 `yaml:"overlap_threshold" env:"RELATIONSHIP_OVERLAP_THRESHOLD" env-default:"0.8"`
}

// ExecutionConfig bounds plan execution.
type ExecutionConfig struct {
	// RowCap limits how many rows a step fetches from the database.
	RowCap int `yaml:"row_cap" env:"EXECUTION_ROW_CAP" env-default:"10000"`
	// MinRows is the minimum non-null row count a step needs after
	// missing-data handling.
	MinRows int `yaml:"min_rows" env:"EXECUTION_MIN_ROWS" env-default:"3"`
}

// AssistantConfig holds the optional research-assistant endpoint settings.
// Provider "openai" talks to any OpenAI-compatible endpoint, which covers a
// local Ollama server; provider "anthropic" uses the Anthropic API.
type AssistantConfig struct {
	Provider    string  `yaml:"provider" env:"ASSISTANT_PROVIDER" env-default:""`
	Endpoint    string  `yaml:"endpoint" env:"ASSISTANT_ENDPOINT" env-default:"http://localhost:11434/v1"`
	Model       string  `yaml:"model" env:"ASSISTANT_MODEL" env-default:""`
	APIKey      string  `yaml:"-" env:"ASSISTANT_API_KEY"` // Secret - not in YAML
	Temperature float64 `yaml:"temperature" env:"ASSISTANT_TEMPERATURE" env-default:"0.7"`
	MaxTokens   int     `yaml:"max_tokens" env:"ASSISTANT_MAX_TOKENS" env-default:"2000"`
}

// IsAvailable returns true if an assistant provider is configured.
func (c *AssistantConfig) IsAvailable() bool {
	return c.Provider != "" && c.Model != ""
}

// CacheConfig bounds the on-disk assistant response cache.
type CacheConfig struct {
	Dir        string `yaml:"dir" env:"CACHE_DIR" env-default:".biodb-cache"`
	MaxSizeMB  int64  `yaml:"max_size_mb" env:"CACHE_MAX_SIZE_MB" env-default:"500"`
	MaxAgeSecs int64  `yaml:"max_age_seconds" env:"CACHE_MAX_AGE_SECONDS" env-default:"86400"`
}

// Load reads configuration from config.yaml with environment variable
// overrides. A missing config.yaml is not an error; defaults and environment
// variables apply.
func Load(version string) (*Config, error) {
	cfg := &Config{Version: version}

	if err := cleanenv.ReadConfig("config.yaml", cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config.yaml: %w", err)
		}
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("read environment: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Sampling.Cap <= 0 {
		return fmt.Errorf("sampling cap must be positive, got %d", c.Sampling.Cap)
	}
	if c.Classifier.ContinuousRatio < 0 || c.Classifier.ContinuousRatio > 1 {
		return fmt.Errorf("continuous ratio must be in [0,1], got %g", c.Classifier.ContinuousRatio)
	}
	if c.Relationships.OverlapThreshold < 0 || c.Relationships.OverlapThreshold > 1 {
		return fmt.Errorf("overlap threshold must be in [0,1], got %g", c.Relationships.OverlapThreshold)
	}
	if c.Execution.MinRows < 2 {
		return fmt.Errorf("execution min_rows must be at least 2, got %d", c.Execution.MinRows)
	}
	return nil
}
