package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Scraper   ScraperConfig   `yaml:"scraper"`
	LLM       LLMConfig       `yaml:"llm"`
	Store     StoreConfig     `yaml:"store"`
	Catalog   CatalogConfig   `yaml:"catalog"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the headless Chromium used by the render worker.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"` // default: false

	// Bin overrides the Chromium binary path.
	Bin string `yaml:"bin"`
}

// ScraperConfig controls extraction behavior and time budgets.
type ScraperConfig struct {
	// FetchTimeout bounds the plain HTTP fetch of the target page.
	FetchTimeout time.Duration `yaml:"fetch_timeout"` // default: 20s

	// ProbeTimeout bounds each vendor JSON handle-candidate request.
	ProbeTimeout time.Duration `yaml:"probe_timeout"` // default: 10s

	// NavTimeout bounds browser navigation alone.
	NavTimeout time.Duration `yaml:"nav_timeout"` // default: 30s

	// SettleWait is the post-load pause that lets challenge redirects
	// resolve before the rendered DOM is captured.
	SettleWait time.Duration `yaml:"settle_wait"` // default: 3s

	// RenderBudget is the wall-clock deadline for a whole render job,
	// enforced by the caller independently of NavTimeout.
	RenderBudget time.Duration `yaml:"render_budget"` // default: 60s
}

// LLMConfig controls the Groq summarization client.
type LLMConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`    // default: "llama-3.3-70b-versatile"
	BaseURL string `yaml:"base_url"` // default: "https://api.groq.com/openai/v1"
}

// StoreConfig controls the sqlite database.
type StoreConfig struct {
	Path string `yaml:"path"` // default: "agentmap.db"
}

// CatalogConfig controls where generated sitemap files land.
type CatalogConfig struct {
	LLMsTxtPath  string `yaml:"llms_txt_path"`  // default: "llms.txt"
	AgentMapPath string `yaml:"agent_map_path"` // default: "agent-map.json"
}

// RateLimitConfig controls per-client rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 5
	Burst             int     `yaml:"burst"`               // default: 10
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// Load builds the configuration in three layers: built-in defaults, then an
// optional YAML file named by AGENTMAP_CONFIG, then AGENTMAP_* environment
// variables. Env always wins so containerized deployments can override a
// checked-in config file.
func Load() *Config {
	cfg := defaults()

	if path := os.Getenv("AGENTMAP_CONFIG"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			slog.Warn("config file not loaded, using defaults", "path", path, "error", err)
		}
	}

	applyEnv(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Browser: BrowserConfig{
			Headless: true,
		},
		Scraper: ScraperConfig{
			FetchTimeout: 20 * time.Second,
			ProbeTimeout: 10 * time.Second,
			NavTimeout:   30 * time.Second,
			SettleWait:   3 * time.Second,
			RenderBudget: 60 * time.Second,
		},
		LLM: LLMConfig{
			Model:   "llama-3.3-70b-versatile",
			BaseURL: "https://api.groq.com/openai/v1",
		},
		Store: StoreConfig{
			Path: "agentmap.db",
		},
		Catalog: CatalogConfig{
			LLMsTxtPath:  "llms.txt",
			AgentMapPath: "agent-map.json",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5.0,
			Burst:             10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config) {
	cfg.Server.Host = envOr("AGENTMAP_HOST", cfg.Server.Host)
	cfg.Server.Port = envIntOr("AGENTMAP_PORT", cfg.Server.Port)
	cfg.Server.Mode = envOr("AGENTMAP_MODE", cfg.Server.Mode)

	cfg.Browser.Headless = envBoolOr("AGENTMAP_HEADLESS", cfg.Browser.Headless)
	cfg.Browser.NoSandbox = envBoolOr("AGENTMAP_NO_SANDBOX", cfg.Browser.NoSandbox)
	cfg.Browser.Bin = envOr("AGENTMAP_BROWSER_BIN", cfg.Browser.Bin)

	cfg.Scraper.FetchTimeout = envDurationOr("AGENTMAP_FETCH_TIMEOUT", cfg.Scraper.FetchTimeout)
	cfg.Scraper.ProbeTimeout = envDurationOr("AGENTMAP_PROBE_TIMEOUT", cfg.Scraper.ProbeTimeout)
	cfg.Scraper.NavTimeout = envDurationOr("AGENTMAP_NAV_TIMEOUT", cfg.Scraper.NavTimeout)
	cfg.Scraper.SettleWait = envDurationOr("AGENTMAP_SETTLE_WAIT", cfg.Scraper.SettleWait)
	cfg.Scraper.RenderBudget = envDurationOr("AGENTMAP_RENDER_BUDGET", cfg.Scraper.RenderBudget)

	cfg.LLM.APIKey = envOr("GROQ_API_KEY", cfg.LLM.APIKey)
	cfg.LLM.Model = envOr("AGENTMAP_LLM_MODEL", cfg.LLM.Model)
	cfg.LLM.BaseURL = envOr("AGENTMAP_LLM_BASE_URL", cfg.LLM.BaseURL)

	cfg.Store.Path = envOr("AGENTMAP_DB_PATH", cfg.Store.Path)

	cfg.Catalog.LLMsTxtPath = envOr("AGENTMAP_LLMS_TXT_PATH", cfg.Catalog.LLMsTxtPath)
	cfg.Catalog.AgentMapPath = envOr("AGENTMAP_AGENT_MAP_PATH", cfg.Catalog.AgentMapPath)

	cfg.RateLimit.RequestsPerSecond = envFloatOr("AGENTMAP_RATE_RPS", cfg.RateLimit.RequestsPerSecond)
	cfg.RateLimit.Burst = envIntOr("AGENTMAP_RATE_BURST", cfg.RateLimit.Burst)

	cfg.Log.Level = envOr("AGENTMAP_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("AGENTMAP_LOG_FORMAT", cfg.Log.Format)
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
