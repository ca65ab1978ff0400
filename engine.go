package goRefresh

import (
	"context"
	"time"

	"github.com/MrEthical07/goRefresh/family"
	"github.com/MrEthical07/goRefresh/internal/rate"
	"github.com/MrEthical07/goRefresh/jwt"
	"github.com/MrEthical07/goRefresh/signer"
)

// Engine is the rotation coordinator. It owns the family store, the optional
// rotate throttle, the audit dispatcher, and the access token manager.
//
// Engine instances are intended to be configured during initialization and
// then treated as immutable. All methods are safe for concurrent use.
type Engine struct {
	config      Config
	store       *family.Store
	rateLimiter *rate.Limiter
	audit       *auditDispatcher
	metrics     *Metrics
	jwtManager  *jwt.Manager
	signer      signer.Signer
}

// Close flushes and stops the audit dispatcher. The engine must not be used
// after Close.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped reports how many audit events were discarded under
// backpressure since the engine started.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot returns a point-in-time copy of all engine metrics.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Ping verifies store connectivity and returns the round-trip latency.
func (e *Engine) Ping(ctx context.Context) (time.Duration, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	d, err := e.store.Ping(ctx)
	if err != nil {
		return d, ErrStoreUnavailable
	}
	return d, nil
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) metricObserve(id MetricID, d time.Duration) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Observe(id, d)
}
