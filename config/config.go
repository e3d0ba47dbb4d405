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

// Fetch and checkpoint modes.
const (
	FetchHTTP    = "http"
	FetchBrowser = "browser"

	CheckpointRewrite = "rewrite"
	CheckpointAppend  = "append"
)

// Config holds all application configuration. Values come from, in
// increasing precedence: built-in defaults, an optional YAML file, the .env
// file and the process environment. Command-line flags are applied on top by
// main.
type Config struct {
	BaseURL  string `yaml:"base_url"`
	MaxPages int    `yaml:"max_pages"`

	MaxRetries     int           `yaml:"max_retries"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	RetryDelayMin  time.Duration `yaml:"retry_delay_min"`
	RetryDelayMax  time.Duration `yaml:"retry_delay_max"`
	PageDelay      time.Duration `yaml:"page_delay"`
	PaceDelayMin   time.Duration `yaml:"pace_delay_min"`
	PaceDelayMax   time.Duration `yaml:"pace_delay_max"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`

	Proxy     string `yaml:"proxy"`
	ProxyFile string `yaml:"proxy_file"`
	FetchMode string `yaml:"fetch_mode"`
	ChromeBin string `yaml:"chrome_bin"`

	BaseCSVPath         string `yaml:"base_csv_path"`
	EnrichedCSVPath     string `yaml:"enriched_csv_path"`
	CheckpointMode      string `yaml:"checkpoint_mode"`
	CheckpointIndexPath string `yaml:"checkpoint_index_path"`

	LogPath  string `yaml:"log_path"`
	LogLevel string `yaml:"log_level"`

	PostgresEnabled  bool   `yaml:"postgres_enabled"`
	PostgresHost     string `yaml:"postgres_host"`
	PostgresPort     string `yaml:"postgres_port"`
	PostgresUser     string `yaml:"postgres_user"`
	PostgresPassword string `yaml:"postgres_password"`
	PostgresDB       string `yaml:"postgres_db"`
	PostgresSSLMode  string `yaml:"postgres_sslmode"`

	// EnvFileLoaded reports whether a .env file was found.
	EnvFileLoaded bool `yaml:"-"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		BaseURL:  "https://www.zillow.com/ne",
		MaxPages: 0,

		MaxRetries:     3,
		RequestTimeout: 30 * time.Second,
		RetryDelayMin:  1 * time.Second,
		RetryDelayMax:  3 * time.Second,
		PageDelay:      5 * time.Second,
		PaceDelayMin:   1 * time.Second,
		PaceDelayMax:   5 * time.Second,

		FetchMode: FetchHTTP,

		BaseCSVPath:     "./output/house_details.csv",
		EnrichedCSVPath: "./output/house_details_enriched.csv",
		CheckpointMode:  CheckpointRewrite,

		LogPath:  "scraper.log",
		LogLevel: "info",

		PostgresHost:    "localhost",
		PostgresPort:    "5432",
		PostgresUser:    "scraper",
		PostgresDB:      "zillow",
		PostgresSSLMode: "disable",
	}
}

// Load builds the configuration. path names an optional YAML file; when
// empty, CONFIG_FILE is consulted.
func Load(path string) (*Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err == nil {
		cfg.EnvFileLoaded = true
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: read .env: %w", err)
	}

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnv("BASE_URL", c.BaseURL)
	c.MaxPages = getEnvInt("MAX_PAGES", c.MaxPages)

	c.MaxRetries = getEnvInt("MAX_RETRIES", c.MaxRetries)
	c.RequestTimeout = getEnvDuration("REQUEST_TIMEOUT", c.RequestTimeout)
	c.RetryDelayMin = getEnvDuration("RETRY_DELAY_MIN", c.RetryDelayMin)
	c.RetryDelayMax = getEnvDuration("RETRY_DELAY_MAX", c.RetryDelayMax)
	c.PageDelay = getEnvDuration("PAGE_DELAY", c.PageDelay)
	c.PaceDelayMin = getEnvDuration("PACE_DELAY_MIN", c.PaceDelayMin)
	c.PaceDelayMax = getEnvDuration("PACE_DELAY_MAX", c.PaceDelayMax)
	c.RateLimitRPS = getEnvFloat("RATE_LIMIT_RPS", c.RateLimitRPS)

	c.Proxy = getEnv("PROXY", c.Proxy)
	c.ProxyFile = getEnv("PROXY_FILE", c.ProxyFile)
	c.FetchMode = getEnv("FETCH_MODE", c.FetchMode)
	c.ChromeBin = getEnv("CHROME_BIN", c.ChromeBin)

	c.BaseCSVPath = getEnv("BASE_CSV_PATH", c.BaseCSVPath)
	c.EnrichedCSVPath = getEnv("ENRICHED_CSV_PATH", c.EnrichedCSVPath)
	c.CheckpointMode = getEnv("CHECKPOINT_MODE", c.CheckpointMode)
	c.CheckpointIndexPath = getEnv("CHECKPOINT_INDEX_PATH", c.CheckpointIndexPath)

	c.LogPath = getEnv("LOG_PATH", c.LogPath)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)

	c.PostgresEnabled = getEnvBool("POSTGRES_ENABLED", c.PostgresEnabled)
	c.PostgresHost = getEnv("POSTGRES_HOST", c.PostgresHost)
	c.PostgresPort = getEnv("POSTGRES_PORT", c.PostgresPort)
	c.PostgresUser = getEnv("POSTGRES_USER", c.PostgresUser)
	c.PostgresPassword = getEnv("POSTGRES_PASSWORD", c.PostgresPassword)
	c.PostgresDB = getEnv("POSTGRES_DB", c.PostgresDB)
	c.PostgresSSLMode = getEnv("POSTGRES_SSLMODE", c.PostgresSSLMode)
}

// Validate rejects settings the scraper cannot run with and fills derived
// defaults.
func (c *Config) Validate() error {
	var problems []string

	if strings.TrimSpace(c.BaseURL) == "" {
		problems = append(problems, "base URL is empty")
	}
	if c.MaxRetries < 1 {
		problems = append(problems, "max retries must be at least 1")
	}
	if c.RequestTimeout <= 0 {
		problems = append(problems, "request timeout must be positive")
	}
	if c.RetryDelayMin < 0 || c.RetryDelayMax < c.RetryDelayMin {
		problems = append(problems, "retry delay range is invalid")
	}
	if c.PaceDelayMin < 0 || c.PaceDelayMax < c.PaceDelayMin {
		problems = append(problems, "pace delay range is invalid")
	}
	if c.PageDelay < 0 {
		problems = append(problems, "page delay must not be negative")
	}
	if c.RateLimitRPS < 0 {
		problems = append(problems, "rate limit must not be negative")
	}

	c.FetchMode = strings.ToLower(strings.TrimSpace(c.FetchMode))
	if c.FetchMode != FetchHTTP && c.FetchMode != FetchBrowser {
		problems = append(problems, fmt.Sprintf("unknown fetch mode %q", c.FetchMode))
	}
	c.CheckpointMode = strings.ToLower(strings.TrimSpace(c.CheckpointMode))
	if c.CheckpointMode != CheckpointRewrite && c.CheckpointMode != CheckpointAppend {
		problems = append(problems, fmt.Sprintf("unknown checkpoint mode %q", c.CheckpointMode))
	}
	if c.BaseCSVPath == "" || c.EnrichedCSVPath == "" {
		problems = append(problems, "dataset paths must be set")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config: %s", strings.Join(problems, "; "))
	}

	if c.CheckpointIndexPath == "" {
		c.CheckpointIndexPath = c.EnrichedCSVPath + ".idx"
	}
	return nil
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if val := os.Getenv(key); val != "" {
		f, err := strconv.ParseFloat(val, 64)
		if err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}

// getEnvDuration accepts Go durations ("1500ms") or whole seconds ("5").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if d, err := time.ParseDuration(val); err == nil {
		return d
	}
	if n, err := strconv.Atoi(val); err == nil {
		return time.Duration(n) * time.Second
	}
	return fallback
}
