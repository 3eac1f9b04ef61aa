package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the bazar API configuration.
type Config struct {
	HTTP     HTTPConfig     `yaml:"http"`
	Postgres PostgresConfig `yaml:"postgres"`
	Redis    RedisConfig    `yaml:"redis"`
	AI       AIConfig       `yaml:"ai"`
	Search   SearchConfig   `yaml:"search"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Auth     AuthConfig     `yaml:"auth"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// PostgresConfig holds primary store connection settings.
type PostgresConfig struct {
	DSN                string `yaml:"dsn"`
	MaxOpenConns       int    `yaml:"max_open_conns"`
	MaxIdleConns       int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeSec int    `yaml:"conn_max_lifetime_sec"`
	ReadinessTimeout   int    `yaml:"readiness_timeout_sec"`
}

// RedisConfig holds embedding cache settings.
// No addresses means the cache is disabled and every embedding goes to
// the provider.
type RedisConfig struct {
	Addrs            []string `yaml:"addrs"`
	Username         string   `yaml:"username"`
	Password         string   `yaml:"password"`
	DB               int      `yaml:"db"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// AIConfig selects and configures the extraction/embedding provider.
type AIConfig struct {
	Provider   string           `yaml:"provider"` // openai, mock
	OpenAI     OpenAIConfig     `yaml:"openai"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Scraper    ScraperConfig    `yaml:"scraper"`
	Mock       MockConfig       `yaml:"mock"`
}

// OpenAIConfig holds credentials for an OpenAI-compatible API.
type OpenAIConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	CacheTTLSec int    `yaml:"cache_ttl_sec"` // 0 = кэш живёт вечно

	// Prefixes for instruction-tuned models; empty when the model
	// wants the raw text.
	DocumentInstruction string `yaml:"document_instruction"`
	QueryInstruction    string `yaml:"query_instruction"`
}

// ExtractionConfig holds extraction model settings.
type ExtractionConfig struct {
	Model           string  `yaml:"model"`
	TranscribeModel string  `yaml:"transcribe_model"`
	Temperature     float32 `yaml:"temperature"`
	TimeoutSec      int     `yaml:"timeout_sec"`
}

// ScraperConfig holds image enrichment settings. SearchURL is a
// template with a single %s verb for the escaped product name.
type ScraperConfig struct {
	SearchURL  string `yaml:"search_url"`
	UserAgent  string `yaml:"user_agent"`
	MaxImages  int    `yaml:"max_images"`
	TimeoutSec int    `yaml:"timeout_sec"`
}

// MockConfig tunes the deterministic provider double.
type MockConfig struct {
	LatencyMs int `yaml:"latency_ms"`
}

// SearchConfig holds ranking settings.
type SearchConfig struct {
	CandidatePool int `yaml:"candidate_pool"`
}

// IngestConfig holds background worker settings.
type IngestConfig struct {
	Workers          int `yaml:"workers"`
	QueueSize        int `yaml:"queue_size"`
	SweepIntervalSec int `yaml:"sweep_interval_sec"`
	SweepBatch       int `yaml:"sweep_batch"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 30
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Postgres.ReadinessTimeout <= 0 {
		c.Postgres.ReadinessTimeout = 10
	}
	if c.Redis.ReadinessTimeout <= 0 {
		c.Redis.ReadinessTimeout = 10
	}
	if c.AI.Provider == "" {
		c.AI.Provider = "openai"
	}
	if c.AI.Embedding.Model == "" {
		c.AI.Embedding.Model = "text-embedding-3-small"
	}
	if c.AI.Embedding.Dimensions <= 0 {
		c.AI.Embedding.Dimensions = 768
	}
	if c.AI.Embedding.TimeoutSec <= 0 {
		c.AI.Embedding.TimeoutSec = 30
	}
	if c.AI.Extraction.Model == "" {
		c.AI.Extraction.Model = "gpt-4o-mini"
	}
	if c.AI.Extraction.TranscribeModel == "" {
		c.AI.Extraction.TranscribeModel = "whisper-1"
	}
	if c.AI.Extraction.TimeoutSec <= 0 {
		c.AI.Extraction.TimeoutSec = 60
	}
	if c.AI.Scraper.SearchURL == "" {
		c.AI.Scraper.SearchURL = "https://www.bing.com/images/search?q=%s"
	}
	if c.AI.Scraper.MaxImages <= 0 {
		c.AI.Scraper.MaxImages = 5
	}
	if c.AI.Scraper.TimeoutSec <= 0 {
		c.AI.Scraper.TimeoutSec = 20
	}
	if c.Search.CandidatePool <= 0 {
		c.Search.CandidatePool = 200
	}
	if c.Ingest.Workers <= 0 {
		c.Ingest.Workers = 4
	}
	if c.Ingest.QueueSize <= 0 {
		c.Ingest.QueueSize = 64
	}
	if c.Ingest.SweepIntervalSec <= 0 {
		c.Ingest.SweepIntervalSec = 30
	}
	if c.Ingest.SweepBatch <= 0 {
		c.Ingest.SweepBatch = 20
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn is required")
	}
	switch c.AI.Provider {
	case "openai":
		if c.AI.OpenAI.APIKey == "" {
			return fmt.Errorf("ai.openai.api_key is required with ai.provider %q", c.AI.Provider)
		}
	case "mock":
		// ok
	default:
		return fmt.Errorf("ai.provider must be \"openai\" or \"mock\", got %q", c.AI.Provider)
	}
	if !strings.Contains(c.AI.Scraper.SearchURL, "%s") {
		return fmt.Errorf("ai.scraper.search_url must contain a %%s placeholder, got %q", c.AI.Scraper.SearchURL)
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
