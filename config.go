package goRefresh

import (
	"errors"
	"time"
)

// Config holds all engine tuning parameters. Configure once before
// [Builder.Build]; the engine treats its config as immutable afterwards.
type Config struct {
	Family   FamilyConfig
	JWT      JWTConfig
	Security SecurityConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
FAMILY CONFIG
====================================
*/

// FamilyConfig controls lineage persistence.
type FamilyConfig struct {
	// RedisPrefix namespaces all store keys. Default "rf".
	RedisPrefix string
	// RefreshTTL is the default lifetime of an active family and of every
	// fingerprint index entry. It bounds both the credential's usability and
	// the replay-detection window.
	RefreshTTL time.Duration
	// AuditTTL is the retention of a revoked family record. Revoked families
	// are kept only for audit and short-window replay detection; they are safe
	// to forget once expired. Default 24h, independent of RefreshTTL.
	AuditTTL time.Duration
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig controls access-token issuance through the signer facade.
type JWTConfig struct {
	AccessTTL    time.Duration
	Issuer       string
	Audience     string
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
	// VerifyKeys maps key ids to verification key material for ParseAccess.
	// Optional: a deployment that only mints (and verifies elsewhere) can
	// leave it empty.
	VerifyKeys map[string][]byte
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig controls abuse throttles on the rotation path.
type SecurityConfig struct {
	EnableRotateThrottle   bool
	MaxRotateAttempts      int
	RotateCooldownDuration time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async security-event dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	// DropIfFull drops events instead of blocking the caller when the buffer
	// is saturated. Dropped counts are observable via [Engine.AuditDropped].
	// Replay detections and revocations are exempt: they are delivered
	// synchronously and never dropped.
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls the in-process metrics collector.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the baseline configuration: 7-day refresh TTL,
// 24-hour audit retention, 15-minute access tokens, audit and metrics on.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Family: FamilyConfig{
			RedisPrefix: "rf",
			RefreshTTL:  7 * 24 * time.Hour,
			AuditTTL:    24 * time.Hour,
		},
		JWT: JWTConfig{
			AccessTTL:    15 * time.Minute,
			Leeway:       30 * time.Second,
			MaxFutureIAT: 10 * time.Minute,
		},
		Security: SecurityConfig{
			EnableRotateThrottle:   true,
			MaxRotateAttempts:      30,
			RotateCooldownDuration: time.Minute,
		},
		Audit: AuditConfig{
			Enabled:    true,
			BufferSize: 256,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

// Validate checks the configuration for values the engine cannot operate
// with. Called by [Builder.Build]; exposed for config linting in deployments.
func (c *Config) Validate() error {
	if c.Family.RedisPrefix == "" {
		return errors.New("Family.RedisPrefix must not be empty")
	}
	if c.Family.RefreshTTL <= 0 {
		return errors.New("Family.RefreshTTL must be positive")
	}
	if c.Family.AuditTTL <= 0 {
		return errors.New("Family.AuditTTL must be positive")
	}
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT.AccessTTL must be positive")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT.Leeway out of range")
	}
	if c.Security.EnableRotateThrottle {
		if c.Security.MaxRotateAttempts <= 0 {
			return errors.New("Security.MaxRotateAttempts must be positive when throttling is enabled")
		}
		if c.Security.RotateCooldownDuration <= 0 {
			return errors.New("Security.RotateCooldownDuration must be positive when throttling is enabled")
		}
	}
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit.BufferSize must be positive when audit is enabled")
	}
	return nil
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.JWT.VerifyKeys != nil {
		out.JWT.VerifyKeys = make(map[string][]byte, len(cfg.JWT.VerifyKeys))
		for kid, key := range cfg.JWT.VerifyKeys {
			out.JWT.VerifyKeys[kid] = cloneBytes(key)
		}
	}
	return out
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
