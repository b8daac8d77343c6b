package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/kitbuilder587/negotiation-bridge/internal/bridge"
)

var (
	ErrNoLimit              = errors.New("NEG_STEPS or NEG_TIME_LIMIT_SEC must be positive")
	ErrInvalidNegotiatorTTL = errors.New("NEG_NEGOTIATOR_TIME_LIMIT_MS cannot be negative")
	ErrInvalidTimeout       = errors.New("PARTY_TIMEOUT_MS must be positive")
	ErrInvalidMaxFailures   = errors.New("PARTY_MAX_FAILURES cannot be negative")
	ErrInvalidPolicy        = errors.New("invalid FAILURE_POLICY")
	ErrInvalidCacheTTL      = errors.New("PROFILE_CACHE_TTL_SEC must be positive")
)

type Config struct {
	Log         LogConfig
	Database    DatabaseConfig
	Negotiation NegotiationConfig
	Bridge      BridgeConfig
	Cache       CacheConfig
	Metrics     MetricsConfig
}

type DatabaseConfig struct {
	URL string // пусто - сессии не сохраняются
}

type NegotiationConfig struct {
	Steps               int
	TimeLimit           time.Duration
	NegotiatorTimeLimit time.Duration // лимит на один колбэк переговорщика; 0 - без лимита
	EndOnNoOffer        bool
}

type BridgeConfig struct {
	PartyTimeout  time.Duration
	FailurePolicy string
	MaxFailures   int
	TmpDir        string
}

type CacheConfig struct {
	TTL time.Duration
}

type MetricsConfig struct {
	Addr string
}

func Load() (*Config, error) {
	cfg := &Config{
		Log: LogConfig{
			Level:  getEnvOrDefault("LOG_LEVEL", "info"),
			Format: getEnvOrDefault("LOG_FORMAT", "json"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Negotiation: NegotiationConfig{
			Steps:               getEnvIntOrDefault("NEG_STEPS", 100),
			TimeLimit:           time.Duration(getEnvIntOrDefault("NEG_TIME_LIMIT_SEC", 0)) * time.Second,
			NegotiatorTimeLimit: time.Duration(getEnvIntOrDefault("NEG_NEGOTIATOR_TIME_LIMIT_MS", 0)) * time.Millisecond,
			EndOnNoOffer:        getEnvBoolOrDefault("NEG_END_ON_NO_OFFER", false),
		},
		Bridge: BridgeConfig{
			PartyTimeout:  time.Duration(getEnvIntOrDefault("PARTY_TIMEOUT_MS", 3000)) * time.Millisecond,
			FailurePolicy: getEnvOrDefault("FAILURE_POLICY", bridge.Fallback.String()),
			MaxFailures:   getEnvIntOrDefault("PARTY_MAX_FAILURES", bridge.DefaultMaxFailures),
			TmpDir:        os.Getenv("BRIDGE_TMP_DIR"),
		},
		Cache: CacheConfig{
			TTL: time.Duration(getEnvIntOrDefault("PROFILE_CACHE_TTL_SEC", 3600)) * time.Second,
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Negotiation.Steps <= 0 && c.Negotiation.TimeLimit <= 0 {
		return ErrNoLimit
	}
	if c.Negotiation.NegotiatorTimeLimit < 0 {
		return ErrInvalidNegotiatorTTL
	}
	if c.Bridge.PartyTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.Bridge.MaxFailures < 0 {
		return ErrInvalidMaxFailures
	}
	if _, err := bridge.ParseFailurePolicy(c.Bridge.FailurePolicy); err != nil {
		return ErrInvalidPolicy
	}
	if c.Cache.TTL <= 0 {
		return ErrInvalidCacheTTL
	}
	return nil
}

// BridgeOptions - опции адаптера из конфига; политика уже проверена в Validate
func (c *Config) BridgeOptions() []bridge.Option {
	policy, _ := bridge.ParseFailurePolicy(c.Bridge.FailurePolicy)
	opts := []bridge.Option{
		bridge.WithPartyTimeout(c.Bridge.PartyTimeout),
		bridge.WithFailurePolicy(policy),
		bridge.WithMaxFailures(c.Bridge.MaxFailures),
	}
	if c.Bridge.TmpDir != "" {
		opts = append(opts, bridge.WithTmpDir(c.Bridge.TmpDir))
	}
	return opts
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
