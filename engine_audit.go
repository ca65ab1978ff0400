package goRefresh

import (
	"context"
	"errors"
	"time"
)

const (
	auditEventFamilyCreated      = "token_family_created"
	auditEventTokenRotated       = "token_rotated"
	auditEventFamilyRevoked      = "token_family_revoked"
	auditEventReplayDetected     = "replay_attack_detected"
	auditEventRotateInvalid      = "rotate_invalid"
	auditEventRotateRateLimited  = "rotate_rate_limited"
	auditEventUserRevocation     = "user_families_revoked"
	auditEventAccessDenylisted   = "access_token_denylisted"
	auditEventRateLimitTriggered = "rate_limit_triggered"
)

// AuditErrorCode is the stable error vocabulary carried in audit events.
type AuditErrorCode string

const (
	auditErrRefreshInvalid AuditErrorCode = "refresh_invalid"
	auditErrRefreshReuse   AuditErrorCode = "refresh_reuse"
	auditErrFamilyRevoked  AuditErrorCode = "family_revoked"
	auditErrRateLimited    AuditErrorCode = "rate_limited"
	auditErrUnavailable    AuditErrorCode = "backend_unavailable"
	auditErrSigner         AuditErrorCode = "signer_unavailable"
	auditErrInternal       AuditErrorCode = "internal_error"
)

func (e *Engine) emitAudit(
	ctx context.Context,
	eventType string,
	success bool,
	userID string,
	sessionID string,
	familyID string,
	err error,
	metadataBuilder func() map[string]string,
) {
	if e == nil || e.audit == nil {
		return
	}

	var metadata map[string]string
	if metadataBuilder != nil {
		metadata = metadataBuilder()
	}

	event := AuditEvent{
		Timestamp:     time.Now().UTC(),
		EventType:     eventType,
		UserID:        userID,
		SessionID:     sessionID,
		FamilyID:      familyID,
		CorrelationID: correlationIDFromContext(ctx),
		IP:            clientIPFromContext(ctx),
		Success:       success,
		Metadata:      metadata,
	}
	if code := auditErrorCode(err); code != "" {
		event.Error = string(code)
	}

	if isCriticalAuditEvent(eventType) {
		e.audit.EmitSync(event)
		return
	}
	e.audit.Emit(ctx, event)
}

// isCriticalAuditEvent marks the detection and revocation events whose
// delivery is guaranteed: duplicates are tolerated, losses are not.
func isCriticalAuditEvent(eventType string) bool {
	switch eventType {
	case auditEventReplayDetected,
		auditEventFamilyRevoked,
		auditEventUserRevocation,
		auditEventAccessDenylisted:
		return true
	}
	return false
}

func (e *Engine) emitRateLimit(
	ctx context.Context,
	scope string,
	metadataBuilder func() map[string]string,
) {
	e.metricInc(MetricRotateRateLimited)
	e.emitAudit(ctx, auditEventRateLimitTriggered, false, "", "", "", ErrRotateRateLimited, func() map[string]string {
		base := map[string]string{
			"scope": scope,
		}
		if metadataBuilder == nil {
			return base
		}
		for k, v := range metadataBuilder() {
			base[k] = v
		}
		return base
	})
}

func auditErrorCode(err error) AuditErrorCode {
	if err == nil {
		return ""
	}

	switch {
	case errors.Is(err, ErrRefreshReuse):
		return auditErrRefreshReuse
	case errors.Is(err, ErrFamilyRevoked):
		return auditErrFamilyRevoked
	case errors.Is(err, ErrRefreshInvalid):
		return auditErrRefreshInvalid
	case errors.Is(err, ErrRotateRateLimited):
		return auditErrRateLimited
	case errors.Is(err, ErrStoreUnavailable):
		return auditErrUnavailable
	case errors.Is(err, ErrSignerNotConfigured):
		return auditErrSigner
	default:
		return auditErrInternal
	}
}
