package goRefresh

import (
	"context"

	"github.com/MrEthical07/goRefresh/jwt"
)

// ValidateAccess parses and validates an access token, then checks the
// denylist. Returns [ErrAccessRevoked] for denylisted tokens and
// [ErrRefreshInvalid] for tokens that fail structural or signature checks.
func (e *Engine) ValidateAccess(ctx context.Context, tokenStr string) (*jwt.AccessClaims, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if e.jwtManager == nil {
		return nil, ErrSignerNotConfigured
	}

	claims, err := e.jwtManager.ParseAccess(tokenStr)
	if err != nil {
		return nil, ErrRefreshInvalid
	}

	if claims.ID != "" {
		revoked, err := e.store.IsRevoked(ctx, claims.ID)
		if err != nil {
			return nil, ErrStoreUnavailable
		}
		if revoked {
			return nil, ErrAccessRevoked
		}
	}

	return claims, nil
}

// RevokeAccessToken denylists an access token jti for the access TTL. After
// the TTL the token has expired on its own and the entry is dropped.
func (e *Engine) RevokeAccessToken(ctx context.Context, jti string) error {
	if e == nil || e.store == nil {
		return ErrEngineNotReady
	}
	if jti == "" {
		return ErrRefreshInvalid
	}

	ttl := e.config.JWT.AccessTTL
	if err := e.store.AddRevocation(ctx, jti, ttl); err != nil {
		return ErrStoreUnavailable
	}

	e.metricInc(MetricAccessDenylisted)
	e.emitAudit(ctx, auditEventAccessDenylisted, true, "", "", "", nil, nil)

	return nil
}

// IsAccessTokenRevoked reports whether a jti is currently denylisted.
func (e *Engine) IsAccessTokenRevoked(ctx context.Context, jti string) (bool, error) {
	if e == nil || e.store == nil {
		return false, ErrEngineNotReady
	}
	revoked, err := e.store.IsRevoked(ctx, jti)
	if err != nil {
		return false, ErrStoreUnavailable
	}
	return revoked, nil
}
