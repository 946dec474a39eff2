// Package config provides configuration management for AuroraAI.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"auroraai/internal/domain"

	"github.com/BurntSushi/toml"
)

// Config is the root configuration structure
type Config struct {
	Server        ServerConfig             `toml:"server"`
	Telemetry     TelemetryConfig          `toml:"telemetry"`
	Database      DatabaseConfig           `toml:"database"`
	Tiers         map[string]TierConfig    `toml:"tiers"`
	Adapters      map[string]AdapterConfig `toml:"adapters"`
	Orchestration OrchestrationConfig      `toml:"orchestration"`
	RateLimit     RateLimitSettings        `toml:"ratelimit"`
}

// ServerConfig contains server settings
type ServerConfig struct {
	HTTPPort       int           `toml:"http_port"`
	BindAddress    string        `toml:"bind_address"`
	AdminAPIKey    string        `toml:"admin_api_key"`
	ReadTimeout    time.Duration `toml:"read_timeout"`
	WriteTimeout   time.Duration `toml:"write_timeout"`
	MaxRequestSize int64         `toml:"max_request_size"`
}

// TelemetryConfig contains telemetry settings
type TelemetryConfig struct {
	Enabled     bool   `toml:"enabled"`
	ServiceName string `toml:"service_name"`
	LogFormat   string `toml:"log_format"`
	LogLevel    string `toml:"log_level"`
}

// DatabaseConfig contains log sink database settings
type DatabaseConfig struct {
	Driver     string        `toml:"driver"` // "postgres" or "memory"
	DSN        string        `toml:"dsn"`
	Host       string        `toml:"host"`
	Port       int           `toml:"port"`
	User       string        `toml:"user"`
	Password   string        `toml:"password"`
	Database   string        `toml:"database"`
	SSLMode    string        `toml:"ssl_mode"`
	MaxConns   int           `toml:"max_conns"`
	MaxIdle    int           `toml:"max_idle"`
	ConnMaxAge time.Duration `toml:"conn_max_age"`
}

// GetDSN returns the DSN for the database
func (d *DatabaseConfig) GetDSN() string {
	if d.DSN != "" {
		return d.DSN
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Database, d.SSLMode)
}

// TierConfig contains per-tier limits and model eligibility
type TierConfig struct {
	RateLimit       domain.RateLimitConfig `toml:"ratelimit"`
	AvailableModels []string               `toml:"available_models"`
	MaxTokens       int                    `toml:"max_tokens"`
	// APIKeyHashes are bcrypt hashes of API keys granted this tier
	APIKeyHashes []string `toml:"api_key_hashes"`
}

// AdapterConfig contains model adapter settings
type AdapterConfig struct {
	Name           string   `toml:"name"`
	Modality       string   `toml:"modality"`
	Kind           string   `toml:"kind"` // "stub" or "openai_compat"
	BaseURL        string   `toml:"base_url"`
	APIKey         string   `toml:"api_key"`
	ModelID        string   `toml:"model_id"`
	MaxTokens      int      `toml:"max_tokens"`
	SupportedTiers []string `toml:"supported_tiers"`
	Enabled        bool     `toml:"enabled"`
}

// OrchestrationConfig contains orchestration engine settings
type OrchestrationConfig struct {
	Threshold      float64       `toml:"threshold"`
	MaxIterations  int           `toml:"max_iterations"`
	AdapterTimeout time.Duration `toml:"adapter_timeout"`
}

// RateLimitSettings contains limiter-wide settings (per-tier numeric limits
// live under [tiers.*.ratelimit])
type RateLimitSettings struct {
	ViolationPenalty time.Duration `toml:"violation_penalty"`
	ExtendedPenalty  time.Duration `toml:"extended_penalty"`
	MaxViolations    int           `toml:"max_violations"`
	CleanupInterval  time.Duration `toml:"cleanup_interval"`
}

// Default returns a default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       8080,
			BindAddress:    "0.0.0.0",
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   2 * time.Minute,
			MaxRequestSize: 1 * 1024 * 1024, // 1MB
		},
		Telemetry: TelemetryConfig{
			Enabled:     true,
			ServiceName: "auroraai",
			LogFormat:   "json",
			LogLevel:    "info",
		},
		Database: DatabaseConfig{
			Driver:     "memory",
			Host:       "localhost",
			Port:       5432,
			User:       "postgres",
			Password:   "postgres",
			Database:   "auroraai",
			SSLMode:    "disable",
			MaxConns:   20,
			MaxIdle:    5,
			ConnMaxAge: 30 * time.Minute,
		},
		Tiers: map[string]TierConfig{
			"free": {
				RateLimit: domain.RateLimitConfig{
					RequestsPerMinute: 10,
					RequestsPerHour:   100,
					RequestsPerDay:    500,
					TokensPerHour:     10000,
				},
				AvailableModels: []string{"neuromind", "logicflow", "livefetch"},
				MaxTokens:       1000,
			},
			"paid": {
				RateLimit: domain.RateLimitConfig{
					RequestsPerMinute: 60,
					RequestsPerHour:   1000,
					RequestsPerDay:    10000,
					TokensPerHour:     100000,
				},
				AvailableModels: []string{
					"neuromind", "logicflow", "cognitia",
					"visionary", "artforge", "pixeldream",
					"livefetch", "infopulse",
				},
				MaxTokens: 4000,
			},
		},
		Adapters: defaultAdapters(),
		Orchestration: OrchestrationConfig{
			Threshold:      0.6,
			MaxIterations:  3,
			AdapterTimeout: 30 * time.Second,
		},
		RateLimit: RateLimitSettings{
			ViolationPenalty: 5 * time.Minute,
			ExtendedPenalty:  1 * time.Hour,
			MaxViolations:    5,
			CleanupInterval:  5 * time.Minute,
		},
	}
}

// defaultAdapters returns the built-in model catalog
func defaultAdapters() map[string]AdapterConfig {
	return map[string]AdapterConfig{
		"neuromind": {
			Name: "NeuroMind", Modality: "text", Kind: "stub",
			MaxTokens: 4000, SupportedTiers: []string{"free", "paid"}, Enabled: true,
		},
		"logicflow": {
			Name: "LogicFlow", Modality: "text", Kind: "stub",
			MaxTokens: 4000, SupportedTiers: []string{"free", "paid"}, Enabled: true,
		},
		"cognitia": {
			Name: "Cognitia", Modality: "text", Kind: "stub",
			MaxTokens: 4000, SupportedTiers: []string{"paid"}, Enabled: true,
		},
		"visionary": {
			Name: "Visionary", Modality: "image", Kind: "stub",
			MaxTokens: 1000, SupportedTiers: []string{"paid"}, Enabled: true,
		},
		"artforge": {
			Name: "ArtForge", Modality: "image", Kind: "stub",
			MaxTokens: 1000, SupportedTiers: []string{"paid"}, Enabled: true,
		},
		"pixeldream": {
			Name: "PixelDream", Modality: "image", Kind: "stub",
			MaxTokens: 1000, SupportedTiers: []string{"paid"}, Enabled: true,
		},
		"livefetch": {
			Name: "LiveFetch", Modality: "realtime", Kind: "stub",
			MaxTokens: 500, SupportedTiers: []string{"free", "paid"}, Enabled: true,
		},
		"infopulse": {
			Name: "InfoPulse", Modality: "realtime", Kind: "stub",
			MaxTokens: 500, SupportedTiers: []string{"paid"}, Enabled: true,
		},
	}
}

// Load loads configuration from a file
func Load(path string) (*Config, error) {
	cfg := Default()

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		// If file doesn't exist, return defaults
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.substituteEnvVars()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// substituteEnvVars substitutes ${VAR} patterns with environment variables
// and applies direct AURORA_* environment variable overrides
func (c *Config) substituteEnvVars() {
	c.Server.AdminAPIKey = expandEnv(c.Server.AdminAPIKey)

	c.Database.DSN = expandEnv(c.Database.DSN)
	c.Database.Host = expandEnv(c.Database.Host)
	c.Database.User = expandEnv(c.Database.User)
	c.Database.Password = expandEnv(c.Database.Password)

	for id, a := range c.Adapters {
		a.APIKey = expandEnv(a.APIKey)
		a.BaseURL = expandEnv(a.BaseURL)
		c.Adapters[id] = a
	}

	if v := os.Getenv("AURORA_DB_DRIVER"); v != "" {
		c.Database.Driver = v
	}
	if v := os.Getenv("AURORA_DB_HOST"); v != "" {
		c.Database.Host = v
	}
	if v := os.Getenv("AURORA_DB_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Database.Port = port
		}
	}
	if v := os.Getenv("AURORA_DB_USER"); v != "" {
		c.Database.User = v
	}
	if v := os.Getenv("AURORA_DB_PASSWORD"); v != "" {
		c.Database.Password = v
	}
	if v := os.Getenv("AURORA_DB_NAME"); v != "" {
		c.Database.Database = v
	}
	if v := os.Getenv("AURORA_HTTP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.HTTPPort = port
		}
	}
	if v := os.Getenv("AURORA_LOG_LEVEL"); v != "" {
		c.Telemetry.LogLevel = v
	}
}

// expandEnv expands ${VAR} or $VAR patterns
func expandEnv(s string) string {
	if s == "" {
		return s
	}
	return os.ExpandEnv(s)
}

// Validate checks the configuration for inconsistencies
func (c *Config) Validate() error {
	if c.Orchestration.Threshold < 0 || c.Orchestration.Threshold > 1 {
		return fmt.Errorf("orchestration threshold must be in [0,1], got %.2f", c.Orchestration.Threshold)
	}
	if c.Orchestration.MaxIterations < 1 {
		return fmt.Errorf("orchestration max_iterations must be >= 1, got %d", c.Orchestration.MaxIterations)
	}
	if c.RateLimit.MaxViolations < 1 {
		return fmt.Errorf("ratelimit max_violations must be >= 1, got %d", c.RateLimit.MaxViolations)
	}

	for name := range c.Tiers {
		if _, ok := domain.ParseTier(name); !ok {
			return fmt.Errorf("unknown tier %q in config", name)
		}
	}

	for id, a := range c.Adapters {
		if _, ok := domain.ParseModality(a.Modality); !ok {
			return fmt.Errorf("adapter %q has unknown modality %q", id, a.Modality)
		}
		if a.Kind == "openai_compat" && a.BaseURL == "" {
			return fmt.Errorf("adapter %q requires base_url", id)
		}
	}

	return nil
}

// TierFor returns the tier configuration for a tier, falling back to free
func (c *Config) TierFor(tier domain.Tier) TierConfig {
	if tc, ok := c.Tiers[string(tier)]; ok {
		return tc
	}
	return c.Tiers[string(domain.TierFree)]
}
