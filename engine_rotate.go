package goRefresh

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goRefresh/family"
	"github.com/MrEthical07/goRefresh/internal"
	"github.com/MrEthical07/goRefresh/internal/rate"
)

// Rotate exchanges a presented refresh credential for its successor. Exactly
// one of four things happens, decided atomically in the store:
//
//   - the credential is current: the family advances one generation and a new
//     credential is returned;
//   - the credential belongs to an earlier generation of an active family:
//     the whole family is revoked and [ErrRefreshReuse] is returned;
//   - the family was already revoked: [ErrFamilyRevoked];
//   - the credential resolves to nothing: [ErrRefreshInvalid].
//
// Under concurrent rotation of the same credential exactly one caller wins;
// every loser observes the replay path.
//
//	Security: replay revocation is persisted by the store before the
//	replay_attack_detected event is emitted or the error returned.
func (e *Engine) Rotate(ctx context.Context, refreshToken string) (*RotateResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		e.metricObserve(MetricRotateLatency, time.Since(start))
	}()

	fingerprint, err := internal.Fingerprint(refreshToken)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", "", ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid
	}

	if e.rateLimiter != nil {
		if err := e.rateLimiter.CheckRotate(ctx, fingerprint); err != nil {
			if errors.Is(err, rate.ErrRateLimited) {
				e.metricInc(MetricRotateFailure)
				e.emitAudit(ctx, auditEventRotateRateLimited, false, "", "", "", ErrRotateRateLimited, nil)
				e.emitRateLimit(ctx, "rotate", nil)
				return nil, ErrRotateRateLimited
			}
			e.metricInc(MetricRotateFailure)
			return nil, ErrStoreUnavailable
		}
	}

	successor, err := internal.MintCredential()
	if err != nil {
		e.metricInc(MetricRotateFailure)
		return nil, ErrInternal
	}
	successorFP, err := internal.Fingerprint(successor)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		return nil, ErrInternal
	}

	outcome, fam, err := e.store.Rotate(
		ctx,
		fingerprint,
		successorFP,
		e.config.Family.RefreshTTL,
		e.config.Family.AuditTTL,
		time.Now(),
	)
	if err != nil {
		e.metricInc(MetricRotateFailure)
		if errors.Is(err, family.ErrFamilyCorrupt) {
			e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", "", ErrInternal, nil)
			return nil, ErrInternal
		}
		return nil, ErrStoreUnavailable
	}

	switch outcome {
	case family.RotateOK:
		e.metricInc(MetricRotateSuccess)
		if e.rateLimiter != nil {
			// The presented fingerprint is spent; best effort, its
			// throttle counter must not shadow later replay reporting.
			_ = e.rateLimiter.ResetRotate(ctx, fingerprint)
		}
		e.emitAudit(ctx, auditEventTokenRotated, true, fam.UserID, fam.SessionID, fam.FamilyID, nil, func() map[string]string {
			return map[string]string{
				"rotation_count": strconv.FormatUint(uint64(fam.RotationCount), 10),
			}
		})
		return &RotateResult{
			RefreshToken:  successor,
			FamilyID:      fam.FamilyID,
			UserID:        fam.UserID,
			SessionID:     fam.SessionID,
			RotationCount: fam.RotationCount,
		}, nil

	case family.RotateReplayRevoked:
		e.metricInc(MetricReplayDetected)
		e.metricInc(MetricFamilyRevoked)
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventReplayDetected, false, fam.UserID, fam.SessionID, fam.FamilyID, ErrRefreshReuse, func() map[string]string {
			return map[string]string{
				"rotation_count": strconv.FormatUint(uint64(fam.RotationCount), 10),
			}
		})
		e.emitAudit(ctx, auditEventFamilyRevoked, true, fam.UserID, fam.SessionID, fam.FamilyID, nil, func() map[string]string {
			return map[string]string{
				"reason": "replay",
			}
		})
		return nil, ErrRefreshReuse

	case family.RotateRevoked:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, fam.UserID, fam.SessionID, fam.FamilyID, ErrFamilyRevoked, nil)
		return nil, ErrFamilyRevoked

	default:
		e.metricInc(MetricRotateFailure)
		e.emitAudit(ctx, auditEventRotateInvalid, false, "", "", "", ErrRefreshInvalid, nil)
		return nil, ErrRefreshInvalid
	}
}

// RotatePair rotates the refresh credential and mints a matching access
// token. Requires a signer.
func (e *Engine) RotatePair(ctx context.Context, refreshToken, scope string) (*PairResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if e.jwtManager == nil {
		return nil, ErrSignerNotConfigured
	}

	rotated, err := e.Rotate(ctx, refreshToken)
	if err != nil {
		return nil, err
	}

	access, jti, err := e.jwtManager.CreateAccess(ctx, rotated.UserID, rotated.SessionID, rotated.FamilyID, scope)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricAccessIssued)

	return &PairResult{
		RefreshToken:  rotated.RefreshToken,
		AccessToken:   access,
		AccessJTI:     jti,
		FamilyID:      rotated.FamilyID,
		UserID:        rotated.UserID,
		SessionID:     rotated.SessionID,
		RotationCount: rotated.RotationCount,
	}, nil
}
