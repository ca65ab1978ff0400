package goRefresh

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goRefresh/family"
	"github.com/MrEthical07/goRefresh/internal"
)

// IssueRefresh mints a fresh opaque credential and starts a new rotation
// family for the user and session. The credential is returned exactly once
// and never stored; only its fingerprint is persisted.
//
//	Security: the family_created event is emitted only after the family
//	record is durably written.
func (e *Engine) IssueRefresh(ctx context.Context, userID, sessionID string) (*IssueResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		e.metricInc(MetricIssueFailure)
		return nil, ErrRefreshInvalid
	}

	credential, err := internal.MintCredential()
	if err != nil {
		e.metricInc(MetricIssueFailure)
		return nil, ErrInternal
	}
	fingerprint, err := internal.Fingerprint(credential)
	if err != nil {
		e.metricInc(MetricIssueFailure)
		return nil, ErrInternal
	}

	fam := family.New(internal.NewFamilyID(), userID, sessionID, fingerprint, time.Now())

	if err := e.store.PutFamily(ctx, fam, e.config.Family.RefreshTTL); err != nil {
		e.metricInc(MetricIssueFailure)
		if errors.Is(err, family.ErrRedisUnavailable) {
			return nil, ErrStoreUnavailable
		}
		return nil, ErrInternal
	}

	e.metricInc(MetricIssueSuccess)
	e.emitAudit(ctx, auditEventFamilyCreated, true, userID, sessionID, fam.FamilyID, nil, nil)

	return &IssueResult{
		RefreshToken:  credential,
		FamilyID:      fam.FamilyID,
		UserID:        userID,
		SessionID:     sessionID,
		RotationCount: fam.RotationCount,
	}, nil
}

// IssuePair issues a refresh credential and a matching access token in one
// call. Requires a signer; engines built without one serve IssueRefresh only.
func (e *Engine) IssuePair(ctx context.Context, userID, sessionID, scope string) (*PairResult, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if e.jwtManager == nil {
		return nil, ErrSignerNotConfigured
	}

	issued, err := e.IssueRefresh(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	access, jti, err := e.jwtManager.CreateAccess(ctx, userID, sessionID, issued.FamilyID, scope)
	if err != nil {
		return nil, err
	}
	e.metricInc(MetricAccessIssued)

	return &PairResult{
		RefreshToken: issued.RefreshToken,
		AccessToken:  access,
		AccessJTI:    jti,
		FamilyID:     issued.FamilyID,
		UserID:       userID,
		SessionID:    sessionID,
	}, nil
}
