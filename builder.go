package goRefresh

import (
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goRefresh/family"
	"github.com/MrEthical07/goRefresh/internal/rate"
	"github.com/MrEthical07/goRefresh/jwt"
	"github.com/MrEthical07/goRefresh/signer"
)

// Builder assembles an [Engine]. Configure with the With* methods, then call
// [Builder.Build] exactly once.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	signer    signer.Signer
	auditSink AuditSink

	built bool
}

// New returns a [Builder] preloaded with [DefaultConfig].
func New() *Builder {
	return &Builder{
		config: defaultConfig(),
	}
}

// WithConfig replaces the builder's config. The config is cloned; later
// mutation of cfg by the caller has no effect.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis sets the Redis client backing the family store and the rotate
// throttle. Required.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithSigner sets the access-token signer. Optional: an engine without a
// signer serves refresh-only operations and rejects the pair and access
// operations with [ErrSignerNotConfigured].
func (b *Builder) WithSigner(s signer.Signer) *Builder {
	b.signer = s
	return b
}

// WithAuditSink sets the destination for security events. Defaults to
// [NoOpSink] when auditing is enabled without a sink.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithMetricsEnabled toggles metric collection.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the rotation latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build validates the configuration and assembles the engine.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	store := family.NewStore(b.redis, cfg.Family.RedisPrefix+":")

	var limiter *rate.Limiter
	if cfg.Security.EnableRotateThrottle {
		limiter = rate.New(b.redis, cfg.Family.RedisPrefix+":", rate.Config{
			EnableRotateThrottle:   cfg.Security.EnableRotateThrottle,
			MaxRotateAttempts:      cfg.Security.MaxRotateAttempts,
			RotateCooldownDuration: cfg.Security.RotateCooldownDuration,
		})
	}

	var jwtManager *jwt.Manager
	if b.signer != nil {
		manager, err := jwt.NewManager(jwt.Config{
			AccessTTL:    cfg.JWT.AccessTTL,
			Issuer:       cfg.JWT.Issuer,
			Audience:     cfg.JWT.Audience,
			Leeway:       cfg.JWT.Leeway,
			RequireIAT:   cfg.JWT.RequireIAT,
			MaxFutureIAT: cfg.JWT.MaxFutureIAT,
			VerifyKeys:   cfg.JWT.VerifyKeys,
		}, b.signer)
		if err != nil {
			return nil, err
		}
		jwtManager = manager
	}

	engine := &Engine{
		config:      cfg,
		store:       store,
		rateLimiter: limiter,
		audit:       newAuditDispatcher(cfg.Audit, b.auditSink),
		metrics:     NewMetrics(cfg.Metrics),
		jwtManager:  jwtManager,
		signer:      b.signer,
	}

	b.built = true

	return engine, nil
}
