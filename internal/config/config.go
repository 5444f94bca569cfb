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

// Config holds the queryfuse engine configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Database   DatabaseConfig   `yaml:"database"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Reasoner   ReasonerConfig   `yaml:"reasoner"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Spaces     []SpaceConfig    `yaml:"spaces"`
	Search     SearchConfig     `yaml:"search"`
	Fusion     FusionConfig     `yaml:"fusion"`
	Cache      CacheConfig      `yaml:"cache"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds cache/index store connection settings.
type DatabaseConfig struct {
	Driver           string   `yaml:"driver"` // redis, memory (default: redis)
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey     string `yaml:"api_key"`
	BaseURL    string `yaml:"base_url"`
	Model      string `yaml:"model"`
	Dimensions int    `yaml:"dimensions"`
	Provider   string `yaml:"provider"`
}

// ReasonerConfig holds settings for the remote reasoning fallback.
type ReasonerConfig struct {
	BaseURL string `yaml:"base_url"`
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
}

// ExtractionConfig holds local extraction thresholds.
type ExtractionConfig struct {
	ConfidenceThreshold float64 `yaml:"confidence_threshold"` // entities and intent below this fall back
	WorkerPoolSize      int     `yaml:"worker_pool_size"`     // local model inference workers
}

// EnrichmentConfig holds context enrichment settings.
type EnrichmentConfig struct {
	MinScore float64 `yaml:"min_score"`
	// ResultCap bounds similarity hits per entity per space.
	ResultCap int `yaml:"result_cap"`
	// ConfidenceSampleDivisor sets confidence = min(sampleSize/divisor, 1).
	// Heuristic, kept configurable on purpose.
	ConfidenceSampleDivisor int `yaml:"confidence_sample_divisor"`
	// Spaces lists the vector spaces used to build entity statistics.
	Spaces []string `yaml:"spaces"`
}

// SpaceConfig defines one named vector space.
type SpaceConfig struct {
	Name        string  `yaml:"name"`
	Instruction string  `yaml:"instruction"`
	Weight      float64 `yaml:"weight"`
}

// SearchConfig holds multi-space fan-out settings.
type SearchConfig struct {
	LimitPerSpace   int     `yaml:"limit_per_space"`
	MinScore        float64 `yaml:"min_score"`
	SpaceTimeoutSec int     `yaml:"space_timeout_sec"`
	// DegradeTimeoutSec bounds the semantic-only retry after all spaces fail.
	DegradeTimeoutSec int `yaml:"degrade_timeout_sec"`
}

// FusionConfig holds rank fusion settings.
type FusionConfig struct {
	RRFK            int      `yaml:"rrf_k"`
	DefaultStrategy string   `yaml:"default_strategy"` // rrf, weighted-average, source-priority
	SourcePriority  []string `yaml:"source_priority"`  // highest first, for source-priority strategy
	DiversityTopK   int      `yaml:"diversity_top_k"`
}

// CacheConfig holds cache TTL and key settings. Statistics keep a longer
// TTL than raw result sets (they are statistically stable).
type CacheConfig struct {
	KeyPrefix        string `yaml:"key_prefix"`
	EmbeddingTTLSec  int    `yaml:"embedding_ttl_sec"`
	ResultsTTLSec    int    `yaml:"results_ttl_sec"`
	StatisticsTTLSec int    `yaml:"statistics_ttl_sec"`
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
	if c.Database.Driver == "" {
		c.Database.Driver = "redis"
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Extraction.ConfidenceThreshold <= 0 {
		c.Extraction.ConfidenceThreshold = 0.7
	}
	if c.Extraction.WorkerPoolSize <= 0 {
		c.Extraction.WorkerPoolSize = runtime.NumCPU()
	}
	if c.Enrichment.MinScore <= 0 {
		c.Enrichment.MinScore = 0.6
	}
	if c.Enrichment.ResultCap <= 0 {
		c.Enrichment.ResultCap = 30
	}
	if c.Enrichment.ConfidenceSampleDivisor <= 0 {
		c.Enrichment.ConfidenceSampleDivisor = 10
	}
	if len(c.Enrichment.Spaces) == 0 {
		c.Enrichment.Spaces = []string{"semantic", "category"}
	}
	if len(c.Spaces) == 0 {
		c.Spaces = defaultSpaces()
	}
	for i := range c.Spaces {
		if c.Spaces[i].Weight <= 0 {
			c.Spaces[i].Weight = 1.0
		}
	}
	if c.Search.LimitPerSpace <= 0 {
		c.Search.LimitPerSpace = 20
	}
	if c.Search.SpaceTimeoutSec <= 0 {
		c.Search.SpaceTimeoutSec = 3
	}
	if c.Search.DegradeTimeoutSec <= 0 {
		c.Search.DegradeTimeoutSec = 5
	}
	if c.Fusion.RRFK <= 0 {
		c.Fusion.RRFK = 60
	}
	if c.Fusion.DefaultStrategy == "" {
		c.Fusion.DefaultStrategy = "rrf"
	}
	if c.Fusion.DiversityTopK <= 0 {
		c.Fusion.DiversityTopK = 10
	}
	if c.Cache.KeyPrefix == "" {
		c.Cache.KeyPrefix = "queryfuse:"
	}
	if c.Cache.EmbeddingTTLSec <= 0 {
		c.Cache.EmbeddingTTLSec = 24 * 3600
	}
	if c.Cache.ResultsTTLSec <= 0 {
		c.Cache.ResultsTTLSec = 300
	}
	if c.Cache.StatisticsTTLSec <= 0 {
		c.Cache.StatisticsTTLSec = 3600
	}
}

func defaultSpaces() []SpaceConfig {
	return []SpaceConfig{
		{Name: "semantic", Instruction: "", Weight: 1.0},
		{Name: "category", Instruction: "Represent the product category of: ", Weight: 0.8},
		{Name: "functional", Instruction: "Represent the functional capabilities of: ", Weight: 0.8},
		{Name: "alias", Instruction: "Represent alternative names for: ", Weight: 0.6},
		{Name: "composite", Instruction: "Represent the product type and category of: ", Weight: 0.7},
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	switch c.Database.Driver {
	case "redis":
		if len(c.Database.Addrs) == 0 {
			return fmt.Errorf("database.addrs is required for the redis driver")
		}
	case "memory":
		// ok
	default:
		return fmt.Errorf("database.driver must be \"redis\" or \"memory\", got %q", c.Database.Driver)
	}
	if c.Extraction.ConfidenceThreshold > 1 {
		return fmt.Errorf("extraction.confidence_threshold must be in (0,1], got %f",
			c.Extraction.ConfidenceThreshold)
	}
	if c.Enrichment.MinScore > 1 {
		return fmt.Errorf("enrichment.min_score must be in (0,1], got %f", c.Enrichment.MinScore)
	}
	switch c.Fusion.DefaultStrategy {
	case "rrf", "weighted-average", "source-priority":
		// ok
	default:
		return fmt.Errorf("fusion.default_strategy must be one of rrf, weighted-average, source-priority, got %q",
			c.Fusion.DefaultStrategy)
	}
	names := make(map[string]bool, len(c.Spaces))
	for _, sp := range c.Spaces {
		if sp.Name == "" {
			return fmt.Errorf("spaces[].name is required")
		}
		if names[sp.Name] {
			return fmt.Errorf("duplicate space name %q", sp.Name)
		}
		names[sp.Name] = true
	}
	if !names["semantic"] {
		return fmt.Errorf("spaces must include the \"semantic\" space (degrade path)")
	}
	for _, sp := range c.Enrichment.Spaces {
		if !names[sp] {
			return fmt.Errorf("enrichment.spaces references unknown space %q", sp)
		}
	}
	for _, sp := range c.Fusion.SourcePriority {
		if !names[sp] {
			return fmt.Errorf("fusion.source_priority references unknown space %q", sp)
		}
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
