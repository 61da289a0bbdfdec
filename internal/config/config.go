package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Feed      FeedConfig
	Narrative NarrativeConfig
	Logger    LoggerConfig
	Security  SecurityConfig
}

type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

type FeedConfig struct {
	Source       string
	Timeout      time.Duration
	CacheDir     string
	SampleSize   int
	SampleYear   int
	GoogleAPIKey string
}

type NarrativeConfig struct {
	APIKey  string
	Model   string
	Timeout time.Duration
	RPS     float64
	Burst   int
}

type LoggerConfig struct {
	Level  string
	Format string
}

type SecurityConfig struct {
	EnableCSRF      bool
	EnableRateLimit bool
	RateLimitRPS    int
	RateLimitBurst  int
	AllowedOrigins  []string
	TrustedProxies  []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_HOST", "localhost")
	v.SetDefault("SERVER_PORT", 8084)
	v.SetDefault("SERVER_READ_TIMEOUT", 10*time.Second)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER_IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second)

	v.SetDefault("FEED_SOURCE", "data.csv")
	v.SetDefault("FEED_TIMEOUT", 30*time.Second)
	v.SetDefault("FEED_CACHE_DIR", ".cache")
	v.SetDefault("FEED_SAMPLE_SIZE", 50)
	v.SetDefault("FEED_SAMPLE_YEAR", 2024)
	v.SetDefault("GOOGLE_API_KEY", "")

	v.SetDefault("NARRATIVE_API_KEY", "")
	v.SetDefault("NARRATIVE_MODEL", "gemini-2.5-flash")
	v.SetDefault("NARRATIVE_TIMEOUT", 30*time.Second)
	v.SetDefault("NARRATIVE_RPS", 1.0)
	v.SetDefault("NARRATIVE_BURST", 3)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SECURITY_CSRF_ENABLED", true)
	v.SetDefault("SECURITY_RATE_LIMIT_ENABLED", true)
	v.SetDefault("SECURITY_RATE_LIMIT_RPS", 100)
	v.SetDefault("SECURITY_RATE_LIMIT_BURST", 10)
	v.SetDefault("SECURITY_ALLOWED_ORIGINS", "http://localhost:8084")
	v.SetDefault("SECURITY_TRUSTED_PROXIES", "127.0.0.1")
}

// Load reads configuration from the environment.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile reads configuration from an optional YAML file, with environment
// variables taking precedence over file values.
func LoadFile(path string) (*Config, error) {
	v, err := NewViper(path)
	if err != nil {
		return nil, err
	}
	return FromViper(v)
}

// NewViper returns a viper instance holding the defaults, the environment
// and, when path is set, the config file. Commands bind their flags on it
// before calling FromViper.
func NewViper(path string) (*viper.Viper, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, fmt.Errorf("read config file: %w", err)
			}
		}
	}
	return v, nil
}

// FromViper builds a Config from an already populated viper instance, which
// lets commands bind flags before the config is materialised.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            v.GetString("SERVER_HOST"),
			Port:            v.GetInt("SERVER_PORT"),
			ReadTimeout:     v.GetDuration("SERVER_READ_TIMEOUT"),
			WriteTimeout:    v.GetDuration("SERVER_WRITE_TIMEOUT"),
			IdleTimeout:     v.GetDuration("SERVER_IDLE_TIMEOUT"),
			ShutdownTimeout: v.GetDuration("SERVER_SHUTDOWN_TIMEOUT"),
		},
		Feed: FeedConfig{
			Source:       v.GetString("FEED_SOURCE"),
			Timeout:      v.GetDuration("FEED_TIMEOUT"),
			CacheDir:     v.GetString("FEED_CACHE_DIR"),
			SampleSize:   v.GetInt("FEED_SAMPLE_SIZE"),
			SampleYear:   v.GetInt("FEED_SAMPLE_YEAR"),
			GoogleAPIKey: v.GetString("GOOGLE_API_KEY"),
		},
		Narrative: NarrativeConfig{
			APIKey:  v.GetString("NARRATIVE_API_KEY"),
			Model:   v.GetString("NARRATIVE_MODEL"),
			Timeout: v.GetDuration("NARRATIVE_TIMEOUT"),
			RPS:     v.GetFloat64("NARRATIVE_RPS"),
			Burst:   v.GetInt("NARRATIVE_BURST"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Security: SecurityConfig{
			EnableCSRF:      v.GetBool("SECURITY_CSRF_ENABLED"),
			EnableRateLimit: v.GetBool("SECURITY_RATE_LIMIT_ENABLED"),
			RateLimitRPS:    v.GetInt("SECURITY_RATE_LIMIT_RPS"),
			RateLimitBurst:  v.GetInt("SECURITY_RATE_LIMIT_BURST"),
			AllowedOrigins:  splitList(v.GetString("SECURITY_ALLOWED_ORIGINS")),
			TrustedProxies:  splitList(v.GetString("SECURITY_TRUSTED_PROXIES")),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Server.ReadTimeout <= 0 {
		return fmt.Errorf("server read timeout must be positive")
	}

	if c.Server.WriteTimeout <= 0 {
		return fmt.Errorf("server write timeout must be positive")
	}

	if strings.TrimSpace(c.Feed.Source) == "" {
		return fmt.Errorf("feed source cannot be empty")
	}

	if c.Feed.Timeout <= 0 {
		return fmt.Errorf("feed timeout must be positive")
	}

	if c.Feed.SampleSize <= 0 {
		return fmt.Errorf("sample size must be positive")
	}

	if c.Narrative.Timeout <= 0 {
		return fmt.Errorf("narrative timeout must be positive")
	}

	if c.Narrative.RPS <= 0 || c.Narrative.Burst <= 0 {
		return fmt.Errorf("narrative rate limit must be positive")
	}

	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.Logger.Level) {
		return fmt.Errorf("invalid log level %q, must be one of: %s", c.Logger.Level, strings.Join(validLogLevels, ", "))
	}

	validLogFormats := []string{"json", "text"}
	if !slices.Contains(validLogFormats, c.Logger.Format) {
		return fmt.Errorf("invalid log format %q, must be one of: %s", c.Logger.Format, strings.Join(validLogFormats, ", "))
	}

	if c.Security.RateLimitRPS <= 0 {
		return fmt.Errorf("rate limit RPS must be positive")
	}

	if c.Security.RateLimitBurst <= 0 {
		return fmt.Errorf("rate limit burst must be positive")
	}

	return nil
}

func splitList(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
