// Package config carrega a configuração do relay: valores padrão, arquivo
// YAML opcional e, por último, variáveis de ambiente.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ListenAddr string `yaml:"listen_addr"`
	LogLevel   string `yaml:"log_level"`
	LogFormat  string `yaml:"log_format"`

	Engine      EngineConfig      `yaml:"engine"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit"`
	Redis       RedisConfig       `yaml:"redis"`
	Cache       CacheConfig       `yaml:"cache"`
	GeoIP       GeoIPConfig       `yaml:"geoip"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	CORS        CORSConfig        `yaml:"cors"`
}

type EngineConfig struct {
	// Provider: anthropic | gemini
	Provider  string `yaml:"provider"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	Model     string `yaml:"model"`
	MaxTokens int    `yaml:"max_tokens"`
	// MinInterval espaça chamadas ao provedor (0 desliga).
	MinInterval time.Duration `yaml:"min_interval"`
	// Timeout 0 deixa o prazo por conta do transporte.
	Timeout time.Duration `yaml:"timeout"`
}

type RateLimitConfig struct {
	Enabled bool          `yaml:"enabled"`
	Max     int           `yaml:"max"`
	Window  time.Duration `yaml:"window"`
	// Backend: memory | redis
	Backend       string      `yaml:"backend"`
	KeyHeader     string      `yaml:"key_header"`
	TrustXFF      bool        `yaml:"trust_xff"`
	UseRemoteAddr bool        `yaml:"use_remote_addr"`
	Stats         StatsConfig `yaml:"stats"`
}

type StatsConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend: memory | redis
	Backend   string        `yaml:"backend"`
	Prefix    string        `yaml:"prefix"`
	TTL       time.Duration `yaml:"ttl"`
	Bucket    string        `yaml:"bucket"`
	TrackKeys bool          `yaml:"track_keys"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	Enabled bool `yaml:"enabled"`
	// Backend: memory | redis | postgres
	Backend     string        `yaml:"backend"`
	Freshness   time.Duration `yaml:"freshness"`
	Prefix      string        `yaml:"prefix"`
	DatabaseURL string        `yaml:"database_url"`
}

type GeoIPConfig struct {
	DBPath string `yaml:"db_path"`
}

type ConcurrencyConfig struct {
	Max            int           `yaml:"max"`
	AcquireTimeout time.Duration `yaml:"acquire_timeout"`
}

type CORSConfig struct {
	AllowOrigin string `yaml:"allow_origin"`
}

func Defaults() Config {
	return Config{
		ListenAddr: ":8080",
		LogLevel:   "info",
		LogFormat:  "json",
		Engine: EngineConfig{
			Provider:    "anthropic",
			MaxTokens:   2048,
			MinInterval: 100 * time.Millisecond,
		},
		RateLimit: RateLimitConfig{
			Enabled:  true,
			Max:      20,
			Window:   time.Hour,
			Backend:  "memory",
			TrustXFF: true,
			Stats: StatsConfig{
				Enabled: true,
				Backend: "memory",
				Prefix:  "ratelimit:stats",
				TTL:     24 * time.Hour,
				Bucket:  "minute",
			},
		},
		Cache: CacheConfig{
			Backend:   "memory",
			Freshness: 7 * 24 * time.Hour,
			Prefix:    "advisor:cache:",
		},
		CORS: CORSConfig{AllowOrigin: "*"},
	}
}

// Load aplica, nesta ordem: Defaults, o arquivo em path (se não vazio) e o
// ambiente. O resultado é validado.
func Load(path string) (Config, error) {
	cfg := Defaults()
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getenvDefault("LISTEN_ADDR", c.ListenAddr)
	c.LogLevel = getenvDefault("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getenvDefault("LOG_FORMAT", c.LogFormat)

	c.Engine.Provider = strings.ToLower(getenvDefault("ENGINE_PROVIDER", c.Engine.Provider))
	switch c.Engine.Provider {
	case "gemini":
		c.Engine.APIKey = getenvDefault("GEMINI_API_KEY", c.Engine.APIKey)
	default:
		c.Engine.APIKey = getenvDefault("ANTHROPIC_API_KEY", c.Engine.APIKey)
	}
	c.Engine.BaseURL = getenvDefault("ENGINE_BASE_URL", c.Engine.BaseURL)
	c.Engine.Model = getenvDefault("ENGINE_MODEL", c.Engine.Model)
	c.Engine.MaxTokens = getenvIntDefault("ENGINE_MAX_TOKENS", c.Engine.MaxTokens)
	c.Engine.MinInterval = getenvDurationDefault("ENGINE_MIN_INTERVAL", c.Engine.MinInterval)
	c.Engine.Timeout = getenvDurationDefault("ENGINE_TIMEOUT", c.Engine.Timeout)

	c.RateLimit.Enabled = getenvBoolDefault("RATE_ENABLED", c.RateLimit.Enabled)
	c.RateLimit.Max = getenvIntDefault("RATE_MAX", c.RateLimit.Max)
	c.RateLimit.Window = getenvDurationDefault("RATE_WINDOW", c.RateLimit.Window)
	c.RateLimit.Backend = getenvDefault("RATE_BACKEND", c.RateLimit.Backend)
	c.RateLimit.KeyHeader = getenvDefault("RATE_KEY_HEADER", c.RateLimit.KeyHeader)
	c.RateLimit.TrustXFF = getenvBoolDefault("TRUST_XFF", c.RateLimit.TrustXFF)
	c.RateLimit.UseRemoteAddr = getenvBoolDefault("RATE_USE_REMOTE_ADDR", c.RateLimit.UseRemoteAddr)

	s := &c.RateLimit.Stats
	s.Enabled = getenvBoolDefault("RATE_STATS_ENABLED", s.Enabled)
	s.Backend = getenvDefault("RATE_STATS_BACKEND", s.Backend)
	s.Prefix = getenvDefault("RATE_STATS_PREFIX", s.Prefix)
	s.TTL = getenvDurationDefault("RATE_STATS_TTL", s.TTL)
	s.Bucket = getenvDefault("RATE_STATS_BUCKET", s.Bucket)
	s.TrackKeys = getenvBoolDefault("RATE_STATS_TRACK_KEYS", s.TrackKeys)

	c.Redis.Addr = getenvDefault("REDIS_ADDR", c.Redis.Addr)
	c.Redis.Password = getenvDefault("REDIS_PASSWORD", c.Redis.Password)
	c.Redis.DB = getenvIntDefault("REDIS_DB", c.Redis.DB)

	c.Cache.Enabled = getenvBoolDefault("CACHE_ENABLED", c.Cache.Enabled)
	c.Cache.Backend = getenvDefault("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Freshness = getenvDurationDefault("CACHE_FRESHNESS", c.Cache.Freshness)
	c.Cache.Prefix = getenvDefault("CACHE_PREFIX", c.Cache.Prefix)
	c.Cache.DatabaseURL = getenvDefault("DATABASE_URL", c.Cache.DatabaseURL)

	c.GeoIP.DBPath = getenvDefault("GEOIP_DB_PATH", c.GeoIP.DBPath)

	c.Concurrency.Max = getenvIntDefault("CONCURRENCY_MAX", c.Concurrency.Max)
	c.Concurrency.AcquireTimeout = getenvDurationDefault("CONCURRENCY_TIMEOUT", c.Concurrency.AcquireTimeout)

	c.CORS.AllowOrigin = getenvDefault("CORS_ALLOW_ORIGIN", c.CORS.AllowOrigin)
}

// NeedsRedis indica se algum componente configurado usa Redis.
func (c Config) NeedsRedis() bool {
	return (c.RateLimit.Enabled && c.RateLimit.Backend == "redis") ||
		(c.RateLimit.Stats.Enabled && c.RateLimit.Stats.Backend == "redis") ||
		(c.Cache.Enabled && c.Cache.Backend == "redis")
}

// Validate não exige a chave da API: sem ela cada análise responde 500.
func (c Config) Validate() error {
	switch c.Engine.Provider {
	case "anthropic", "gemini":
	default:
		return fmt.Errorf("ENGINE_PROVIDER must be anthropic or gemini, got %q", c.Engine.Provider)
	}
	if c.Engine.MaxTokens <= 0 {
		return errors.New("ENGINE_MAX_TOKENS must be > 0")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.Max <= 0 {
			return errors.New("RATE_MAX must be > 0")
		}
		if c.RateLimit.Window <= 0 {
			return errors.New("RATE_WINDOW must be > 0")
		}
	}
	if !oneOf(c.RateLimit.Backend, "memory", "redis") {
		return fmt.Errorf("RATE_BACKEND must be memory or redis, got %q", c.RateLimit.Backend)
	}
	if !oneOf(c.RateLimit.Stats.Backend, "memory", "redis") {
		return fmt.Errorf("RATE_STATS_BACKEND must be memory or redis, got %q", c.RateLimit.Stats.Backend)
	}
	if !oneOf(c.Cache.Backend, "memory", "redis", "postgres") {
		return fmt.Errorf("CACHE_BACKEND must be memory, redis or postgres, got %q", c.Cache.Backend)
	}
	if c.NeedsRedis() && strings.TrimSpace(c.Redis.Addr) == "" {
		return errors.New("REDIS_ADDR is required when a redis backend is selected")
	}
	if c.Cache.Enabled && c.Cache.Backend == "postgres" && strings.TrimSpace(c.Cache.DatabaseURL) == "" {
		return errors.New("DATABASE_URL is required when CACHE_BACKEND=postgres")
	}
	if c.Concurrency.Max < 0 {
		return errors.New("CONCURRENCY_MAX must be >= 0")
	}
	return nil
}

func oneOf(v string, options ...string) bool {
	for _, o := range options {
		if v == o {
			return true
		}
	}
	return false
}
