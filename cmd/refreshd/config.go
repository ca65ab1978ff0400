package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// serverConfig is the refreshd process configuration, loaded from a YAML file
// with environment overrides for deployment secrets.
type serverConfig struct {
	HTTP struct {
		Addr            string        `yaml:"addr"`
		ReadTimeout     time.Duration `yaml:"read_timeout"`
		WriteTimeout    time.Duration `yaml:"write_timeout"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
	} `yaml:"http"`

	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`

	Engine struct {
		RedisPrefix     string        `yaml:"redis_prefix"`
		RefreshTTL      time.Duration `yaml:"refresh_ttl"`
		AuditTTL        time.Duration `yaml:"audit_ttl"`
		AccessTTL       time.Duration `yaml:"access_ttl"`
		Issuer          string        `yaml:"issuer"`
		Audience        string        `yaml:"audience"`
		RotateThrottle  bool          `yaml:"rotate_throttle"`
		MaxRotateTries  int           `yaml:"max_rotate_tries"`
		RotateCooldown  time.Duration `yaml:"rotate_cooldown"`
		AuditBufferSize int           `yaml:"audit_buffer_size"`
	} `yaml:"engine"`

	Signing struct {
		KeyID string `yaml:"key_id"`
		// Secret is taken from REFRESHD_SIGNING_SECRET; the YAML field exists
		// for local development only.
		Secret string `yaml:"secret"`
	} `yaml:"signing"`

	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func defaultServerConfig() serverConfig {
	var cfg serverConfig
	cfg.HTTP.Addr = ":8440"
	cfg.HTTP.ReadTimeout = 10 * time.Second
	cfg.HTTP.WriteTimeout = 10 * time.Second
	cfg.HTTP.ShutdownTimeout = 15 * time.Second
	cfg.Redis.Addr = "127.0.0.1:6379"
	cfg.Engine.RedisPrefix = "rf"
	cfg.Engine.RefreshTTL = 7 * 24 * time.Hour
	cfg.Engine.AuditTTL = 24 * time.Hour
	cfg.Engine.AccessTTL = 15 * time.Minute
	cfg.Engine.Issuer = "refreshd"
	cfg.Engine.RotateThrottle = true
	cfg.Engine.MaxRotateTries = 30
	cfg.Engine.RotateCooldown = time.Minute
	cfg.Engine.AuditBufferSize = 256
	cfg.Signing.KeyID = "local"
	cfg.Log.Level = "info"
	return cfg
}

// loadServerConfig reads the YAML config at path (optional), loads .env if
// present, and applies environment overrides. Environment always wins.
func loadServerConfig(path string) (serverConfig, error) {
	cfg := defaultServerConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	// Missing .env is not an error; it only exists in development.
	_ = godotenv.Load()

	if v := os.Getenv("REFRESHD_HTTP_ADDR"); v != "" {
		cfg.HTTP.Addr = v
	}
	if v := os.Getenv("REFRESHD_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("REFRESHD_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("REFRESHD_SIGNING_KEY_ID"); v != "" {
		cfg.Signing.KeyID = v
	}
	if v := os.Getenv("REFRESHD_SIGNING_SECRET"); v != "" {
		cfg.Signing.Secret = v
	}
	if v := os.Getenv("REFRESHD_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}

	return cfg, cfg.validate()
}

func (c *serverConfig) validate() error {
	if c.HTTP.Addr == "" {
		return errors.New("http.addr must not be empty")
	}
	if c.Redis.Addr == "" {
		return errors.New("redis.addr must not be empty")
	}
	if c.Engine.RefreshTTL <= 0 || c.Engine.AuditTTL <= 0 || c.Engine.AccessTTL <= 0 {
		return errors.New("engine TTLs must be positive")
	}
	if c.Signing.Secret == "" {
		return errors.New("signing secret required (REFRESHD_SIGNING_SECRET)")
	}
	if c.Signing.KeyID == "" {
		return errors.New("signing.key_id must not be empty")
	}
	return nil
}
