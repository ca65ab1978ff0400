package goRefresh

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/MrEthical07/goRefresh/family"
	"github.com/redis/go-redis/v9"
)

// RevokeFamily marks a rotation family revoked. The record is retained for
// the audit TTL so late replay attempts still resolve to a revoked lineage.
// Revoking an already revoked family is a no-op: no event, no error.
// Revocation is irreversible.
func (e *Engine) RevokeFamily(ctx context.Context, familyID string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if familyID == "" {
		return ErrRefreshInvalid
	}

	fam, err := e.store.GetFamily(ctx, familyID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return ErrRefreshInvalid
		}
		if errors.Is(err, family.ErrFamilyCorrupt) {
			return ErrInternal
		}
		return ErrStoreUnavailable
	}
	if fam.Revoked {
		return nil
	}

	revoked := fam.Revoke(time.Now())
	if err := e.store.PutFamily(ctx, revoked, e.config.Family.AuditTTL); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricFamilyRevoked)
	e.emitAudit(ctx, auditEventFamilyRevoked, true, fam.UserID, fam.SessionID, fam.FamilyID, nil, func() map[string]string {
		return map[string]string{
			"reason": "requested",
		}
	})

	return nil
}

// RevokeAllForUser revokes every active family tracked for the user and
// returns how many were revoked this call. Families whose records have
// TTL-expired are pruned from the user's set as they are discovered; families
// already revoked do not count.
func (e *Engine) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	if e == nil || e.store == nil {
		return 0, ErrEngineNotReady
	}
	if userID == "" {
		return 0, ErrRefreshInvalid
	}

	ids, err := e.store.UserFamilyIDs(ctx, userID)
	if err != nil {
		return 0, ErrStoreUnavailable
	}

	now := time.Now()
	revoked := 0
	for _, familyID := range ids {
		fam, err := e.store.GetFamily(ctx, familyID)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				// Record expired out from under the set entry.
				_ = e.store.ForgetUserFamily(ctx, userID, familyID)
				continue
			}
			if errors.Is(err, family.ErrFamilyCorrupt) {
				continue
			}
			return revoked, ErrStoreUnavailable
		}
		if fam.Revoked {
			continue
		}

		if err := e.store.PutFamily(ctx, fam.Revoke(now), e.config.Family.AuditTTL); err != nil {
			return revoked, ErrStoreUnavailable
		}
		revoked++
		e.metricInc(MetricFamilyRevoked)
		e.emitAudit(ctx, auditEventFamilyRevoked, true, fam.UserID, fam.SessionID, fam.FamilyID, nil, func() map[string]string {
			return map[string]string{
				"reason": "user_revocation",
			}
		})
	}

	e.metricInc(MetricUserRevocation)
	e.emitAudit(ctx, auditEventUserRevocation, true, userID, "", "", nil, func() map[string]string {
		return map[string]string{
			"revoked_count": strconv.Itoa(revoked),
		}
	})

	return revoked, nil
}
