package config

import (
	"errors"
	"os"
	"testing"
	"time"
)

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		envVars map[string]string
		wantErr error
	}{
		{
			name:    "defaults",
			envVars: map[string]string{},
			wantErr: nil,
		},
		{
			name: "time limit only",
			envVars: map[string]string{
				"NEG_STEPS":          "0",
				"NEG_TIME_LIMIT_SEC": "30",
			},
			wantErr: nil,
		},
		{
			name: "no limit",
			envVars: map[string]string{
				"NEG_STEPS": "0",
			},
			wantErr: ErrNoLimit,
		},
		{
			name: "negative negotiator limit",
			envVars: map[string]string{
				"NEG_NEGOTIATOR_TIME_LIMIT_MS": "-5",
			},
			wantErr: ErrInvalidNegotiatorTTL,
		},
		{
			name: "zero party timeout",
			envVars: map[string]string{
				"PARTY_TIMEOUT_MS": "0",
			},
			wantErr: ErrInvalidTimeout,
		},
		{
			name: "negative max failures",
			envVars: map[string]string{
				"PARTY_MAX_FAILURES": "-1",
			},
			wantErr: ErrInvalidMaxFailures,
		},
		{
			name: "unknown policy",
			envVars: map[string]string{
				"FAILURE_POLICY": "retry",
			},
			wantErr: ErrInvalidPolicy,
		},
		{
			name: "zero cache ttl",
			envVars: map[string]string{
				"PROFILE_CACHE_TTL_SEC": "0",
			},
			wantErr: ErrInvalidCacheTTL,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars()

			for k, v := range tt.envVars {
				os.Setenv(k, v)
			}
			defer clearEnvVars()

			cfg, err := Load()

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Load() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			if err != nil {
				t.Errorf("Load() unexpected error = %v", err)
				return
			}

			if cfg == nil {
				t.Error("Load() returned nil config")
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Log.Level != "info" {
		t.Errorf("Log.Level = %v, want %v", cfg.Log.Level, "info")
	}
	if cfg.Negotiation.Steps != 100 {
		t.Errorf("Negotiation.Steps = %v, want 100", cfg.Negotiation.Steps)
	}
	if cfg.Negotiation.TimeLimit != 0 {
		t.Errorf("Negotiation.TimeLimit = %v, want 0", cfg.Negotiation.TimeLimit)
	}
	if cfg.Negotiation.NegotiatorTimeLimit != 0 {
		t.Errorf("Negotiation.NegotiatorTimeLimit = %v, want 0", cfg.Negotiation.NegotiatorTimeLimit)
	}
	if cfg.Negotiation.EndOnNoOffer {
		t.Error("Negotiation.EndOnNoOffer = true, want false")
	}
	if cfg.Bridge.PartyTimeout != 3*time.Second {
		t.Errorf("Bridge.PartyTimeout = %v, want 3s", cfg.Bridge.PartyTimeout)
	}
	if cfg.Bridge.FailurePolicy != "fallback" {
		t.Errorf("Bridge.FailurePolicy = %v, want fallback", cfg.Bridge.FailurePolicy)
	}
	if cfg.Bridge.MaxFailures != 3 {
		t.Errorf("Bridge.MaxFailures = %v, want 3", cfg.Bridge.MaxFailures)
	}
	if cfg.Cache.TTL != time.Hour {
		t.Errorf("Cache.TTL = %v, want 1h", cfg.Cache.TTL)
	}
	if cfg.Database.URL != "" {
		t.Errorf("Database.URL = %q, want empty", cfg.Database.URL)
	}
}

func TestGetEnvIntOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal int
		want       int
	}{
		{"valid int", "42", 10, 42},
		{"empty string", "", 10, 10},
		{"invalid int", "abc", 10, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("TEST_INT", tt.envValue)
			defer os.Unsetenv("TEST_INT")

			got := getEnvIntOrDefault("TEST_INT", tt.defaultVal)
			if got != tt.want {
				t.Errorf("getEnvIntOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNegotiationEnv(t *testing.T) {
	clearEnvVars()
	defer clearEnvVars()

	os.Setenv("NEG_NEGOTIATOR_TIME_LIMIT_MS", "1500")
	os.Setenv("NEG_END_ON_NO_OFFER", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Negotiation.NegotiatorTimeLimit != 1500*time.Millisecond {
		t.Errorf("Negotiation.NegotiatorTimeLimit = %v, want 1.5s", cfg.Negotiation.NegotiatorTimeLimit)
	}
	if !cfg.Negotiation.EndOnNoOffer {
		t.Error("Negotiation.EndOnNoOffer = false, want true")
	}
}

func TestGetEnvBoolOrDefault(t *testing.T) {
	tests := []struct {
		name       string
		envValue   string
		defaultVal bool
		want       bool
	}{
		{"true", "true", false, true},
		{"one", "1", false, true},
		{"false", "false", true, false},
		{"empty string", "", true, true},
		{"invalid", "yes please", false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Setenv("TEST_BOOL", tt.envValue)
			defer os.Unsetenv("TEST_BOOL")

			if got := getEnvBoolOrDefault("TEST_BOOL", tt.defaultVal); got != tt.want {
				t.Errorf("getEnvBoolOrDefault() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestBridgeOptions(t *testing.T) {
	policies := []string{"fallback", "end", "end_on_failure", "propagate"}

	for _, policy := range policies {
		t.Run(policy, func(t *testing.T) {
			cfg := &Config{
				Negotiation: NegotiationConfig{Steps: 10},
				Bridge: BridgeConfig{
					PartyTimeout:  time.Second,
					FailurePolicy: policy,
					TmpDir:        t.TempDir(),
				},
				Cache: CacheConfig{TTL: time.Minute},
			}

			if err := cfg.Validate(); err != nil {
				t.Fatalf("Validate() error = %v for policy %s", err, policy)
			}
			if got := len(cfg.BridgeOptions()); got != 4 {
				t.Errorf("BridgeOptions() len = %d, want 4", got)
			}
		})
	}
}

func clearEnvVars() {
	envVars := []string{
		"LOG_LEVEL",
		"LOG_FORMAT",
		"DATABASE_URL",
		"NEG_STEPS",
		"NEG_TIME_LIMIT_SEC",
		"NEG_NEGOTIATOR_TIME_LIMIT_MS",
		"NEG_END_ON_NO_OFFER",
		"PARTY_TIMEOUT_MS",
		"FAILURE_POLICY",
		"PARTY_MAX_FAILURES",
		"BRIDGE_TMP_DIR",
		"PROFILE_CACHE_TTL_SEC",
		"METRICS_ADDR",
	}
	for _, v := range envVars {
		os.Unsetenv(v)
	}
}
