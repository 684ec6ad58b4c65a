// Package config loads pipeline settings from configs/pipeline.yaml, a
// .env file and the environment, in that order of precedence (lowest
// first).
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultPath = "configs/pipeline.yaml"

type Config struct {
	// Input/output layout
	DataDir        string `yaml:"data_dir"`
	MainOutputDir  string `yaml:"main_output_dir"`
	SpareOutputDir string `yaml:"spare_output_dir"`
	DisasterType   string `yaml:"disaster_type"`

	// Concurrency
	RegionWorkers    int `yaml:"region_workers"`
	FetchConcurrency int `yaml:"fetch_concurrency"`

	// Fetching
	HTTPTimeout     time.Duration `yaml:"http_timeout"`
	BrowserTimeout  time.Duration `yaml:"browser_timeout"`
	RetryAttempts   int           `yaml:"retry_attempts"`
	RetryDelay      time.Duration `yaml:"retry_delay"`
	HostRate        float64       `yaml:"host_rate"` // requests per second per host
	HostBurst       int           `yaml:"host_burst"`
	UserAgent       string        `yaml:"user_agent"`
	EnableBrowserA  bool          `yaml:"enable_browser_a"` // chromedp
	EnableBrowserB  bool          `yaml:"enable_browser_b"` // rod
	BrowserSessions int           `yaml:"browser_sessions"`

	// Extraction and deduplication
	MinPrimaryWords     int     `yaml:"min_primary_words"`
	MinUsableWords      int     `yaml:"min_usable_words"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MinTextSimilarity   float64 `yaml:"min_text_similarity"`

	// App settings
	Debug            bool   `yaml:"debug"`
	LogLevel         string `yaml:"log_level"`
	EnableMonitoring bool   `yaml:"enable_monitoring"`
	MonitoringPort   string `yaml:"monitoring_port"`

	Path string `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		DataDir:             "data",
		MainOutputDir:       "JSON Output",
		SpareOutputDir:      "JSON Output Spare",
		DisasterType:        "Monsoon",
		RegionWorkers:       4,
		FetchConcurrency:    8,
		HTTPTimeout:         20 * time.Second,
		BrowserTimeout:      45 * time.Second,
		RetryAttempts:       1,
		RetryDelay:          2 * time.Second,
		HostRate:            1,
		HostBurst:           2,
		EnableBrowserA:      true,
		EnableBrowserB:      true,
		BrowserSessions:     2,
		MinPrimaryWords:     50,
		MinUsableWords:      10,
		SimilarityThreshold: 0.85,
		MinTextSimilarity:   0.30,
		LogLevel:            "info",
		MonitoringPort:      "8080",
	}
}

// Load builds the configuration. A missing file at the default path is
// not an error; a missing file named explicitly is.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	explicit := path != ""
	if path == "" {
		path = getEnvOrDefault("MONSOON_CONFIG", DefaultPath)
		explicit = os.Getenv("MONSOON_CONFIG") != ""
	}

	cfg := defaults()
	if err := cfg.loadFile(path); err != nil {
		if explicit || !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	} else {
		cfg.Path = path
	}

	cfg.applyEnv()
	return cfg, cfg.Validate()
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.DataDir = getEnvOrDefault("DATA_DIR", c.DataDir)
	c.MainOutputDir = getEnvOrDefault("MAIN_OUTPUT_DIR", c.MainOutputDir)
	c.SpareOutputDir = getEnvOrDefault("SPARE_OUTPUT_DIR", c.SpareOutputDir)
	c.DisasterType = getEnvOrDefault("DISASTER_TYPE", c.DisasterType)

	c.RegionWorkers = getEnvIntOrDefault("REGION_WORKERS", c.RegionWorkers)
	c.FetchConcurrency = getEnvIntOrDefault("FETCH_CONCURRENCY", c.FetchConcurrency)
	c.HTTPTimeout = getEnvDurationOrDefault("HTTP_TIMEOUT", c.HTTPTimeout)
	c.BrowserTimeout = getEnvDurationOrDefault("BROWSER_TIMEOUT", c.BrowserTimeout)
	c.RetryAttempts = getEnvIntOrDefault("RETRY_ATTEMPTS", c.RetryAttempts)
	c.RetryDelay = getEnvDurationOrDefault("RETRY_DELAY", c.RetryDelay)
	c.HostRate = getEnvFloatOrDefault("HOST_RATE", c.HostRate)
	c.HostBurst = getEnvIntOrDefault("HOST_BURST", c.HostBurst)
	c.UserAgent = getEnvOrDefault("USER_AGENT", c.UserAgent)
	c.EnableBrowserA = getEnvBoolOrDefault("ENABLE_BROWSER_A", c.EnableBrowserA)
	c.EnableBrowserB = getEnvBoolOrDefault("ENABLE_BROWSER_B", c.EnableBrowserB)
	c.BrowserSessions = getEnvIntOrDefault("BROWSER_SESSIONS", c.BrowserSessions)

	c.MinPrimaryWords = getEnvIntOrDefault("MIN_PRIMARY_WORDS", c.MinPrimaryWords)
	c.MinUsableWords = getEnvIntOrDefault("MIN_USABLE_WORDS", c.MinUsableWords)
	c.SimilarityThreshold = getEnvFloatOrDefault("SIMILARITY_THRESHOLD", c.SimilarityThreshold)
	c.MinTextSimilarity = getEnvFloatOrDefault("MIN_TEXT_SIMILARITY", c.MinTextSimilarity)

	c.Debug = getEnvBoolOrDefault("DEBUG", c.Debug)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	if c.Debug {
		c.LogLevel = "debug"
	}
	// ENABLE_HTTP_MONITORING is the older name; ENABLE_MONITORING wins.
	c.EnableMonitoring = getEnvBoolOrDefault("ENABLE_HTTP_MONITORING", c.EnableMonitoring)
	c.EnableMonitoring = getEnvBoolOrDefault("ENABLE_MONITORING", c.EnableMonitoring)
	c.MonitoringPort = getEnvOrDefault("MONITORING_PORT", c.MonitoringPort)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloatOrDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.MainOutputDir == "" || c.SpareOutputDir == "" {
		return fmt.Errorf("main_output_dir and spare_output_dir are required")
	}
	if c.DisasterType == "" {
		return fmt.Errorf("disaster_type is required")
	}
	if c.RegionWorkers < 1 {
		return fmt.Errorf("region_workers must be at least 1")
	}
	if c.FetchConcurrency < 1 {
		return fmt.Errorf("fetch_concurrency must be at least 1")
	}
	if c.HTTPTimeout <= 0 || c.BrowserTimeout <= 0 {
		return fmt.Errorf("http_timeout and browser_timeout must be positive")
	}
	if c.RetryAttempts < 0 {
		return fmt.Errorf("retry_attempts must not be negative")
	}
	if c.HostRate < 0 {
		return fmt.Errorf("host_rate must not be negative")
	}
	if c.SimilarityThreshold <= 0 || c.SimilarityThreshold > 1 {
		return fmt.Errorf("similarity_threshold must be in (0, 1]")
	}
	if c.MinTextSimilarity < 0 || c.MinTextSimilarity > 1 {
		return fmt.Errorf("min_text_similarity must be in [0, 1]")
	}
	if c.MinUsableWords < 1 || c.MinPrimaryWords < c.MinUsableWords {
		return fmt.Errorf("min_primary_words must be >= min_usable_words >= 1")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log_level must be debug, info, warn or error")
	}
	return nil
}
