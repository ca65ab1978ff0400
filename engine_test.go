package goRefresh

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/goRefresh/signer"
)

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return mr, client
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Issuer = "test"
	cfg.JWT.VerifyKeys = map[string][]byte{"test-key": []byte("test-secret-material")}
	cfg.Security.EnableRotateThrottle = false
	cfg.Audit.Enabled = false
	return cfg
}

func newTestEngine(t *testing.T, cfg Config) (*Engine, *miniredis.Miniredis) {
	t.Helper()

	mr, rdb := newTestRedis(t)

	hmacSigner, err := signer.NewHMAC("test-key", []byte("test-secret-material"))
	if err != nil {
		t.Fatalf("NewHMAC failed: %v", err)
	}

	engine, err := New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithSigner(hmacSigner).
		Build()
	if err != nil {
		t.Fatalf("engine build failed: %v", err)
	}
	t.Cleanup(engine.Close)

	return engine, mr
}

func TestIssueAndRotateHappyPath(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	issued, err := engine.IssueRefresh(ctx, "user-1", "sid-1")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}
	if issued.RefreshToken == "" || issued.FamilyID == "" {
		t.Fatalf("incomplete issue result: %+v", issued)
	}
	if issued.UserID != "user-1" || issued.RotationCount != 0 {
		t.Fatalf("issuance must report generation zero for the user: %+v", issued)
	}

	first, err := engine.Rotate(ctx, issued.RefreshToken)
	if err != nil {
		t.Fatalf("first rotate failed: %v", err)
	}
	if first.RefreshToken == issued.RefreshToken {
		t.Fatal("rotation must return a fresh credential")
	}
	if first.RotationCount != 1 {
		t.Fatalf("expected rotation count 1, got %d", first.RotationCount)
	}
	if first.FamilyID != issued.FamilyID {
		t.Fatal("rotation must stay within the same family")
	}

	second, err := engine.Rotate(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("second rotate failed: %v", err)
	}
	if second.RotationCount != 2 {
		t.Fatalf("expected rotation count 2, got %d", second.RotationCount)
	}
}

func TestReplayKillsWholeLineage(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	issued, err := engine.IssueRefresh(ctx, "user-1", "sid-1")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}
	first, err := engine.Rotate(ctx, issued.RefreshToken)
	if err != nil {
		t.Fatalf("first rotate failed: %v", err)
	}
	second, err := engine.Rotate(ctx, first.RefreshToken)
	if err != nil {
		t.Fatalf("second rotate failed: %v", err)
	}

	// Presenting a consumed credential is the replay witness.
	if _, err := engine.Rotate(ctx, issued.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse, got %v", err)
	}

	// Every descendant is collateral damage, the current credential included.
	if _, err := engine.Rotate(ctx, first.RefreshToken); !errors.Is(err, ErrFamilyRevoked) {
		t.Fatalf("expected ErrFamilyRevoked after replay, got %v", err)
	}
	if _, err := engine.Rotate(ctx, second.RefreshToken); !errors.Is(err, ErrFamilyRevoked) {
		t.Fatalf("expected ErrFamilyRevoked for current credential, got %v", err)
	}

	// Revocation is terminal.
	fam, err := engine.Family(ctx, issued.FamilyID)
	if err != nil {
		t.Fatalf("Family lookup failed: %v", err)
	}
	if !fam.Revoked {
		t.Fatal("family must stay revoked")
	}
}

func TestRotateUnknownCredential(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	if _, err := engine.Rotate(context.Background(), "never-issued-credential"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRotateMalformedCredential(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	for _, cred := range []string{"", "has space", "bad\nbytes"} {
		if _, err := engine.Rotate(context.Background(), cred); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("expected ErrRefreshInvalid for %q, got %v", cred, err)
		}
	}
}

func TestRotateAfterTTLExpiry(t *testing.T) {
	cfg := testConfig()
	cfg.Family.RefreshTTL = time.Minute
	engine, mr := newTestEngine(t, cfg)
	ctx := context.Background()

	issued, err := engine.IssueRefresh(ctx, "user-1", "sid-1")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	// Expired and never-issued are indistinguishable.
	if _, err := engine.Rotate(ctx, issued.RefreshToken); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid after expiry, got %v", err)
	}
}

func TestRevokeFamilyIsIdempotent(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	issued, err := engine.IssueRefresh(ctx, "user-1", "sid-1")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	if err := engine.RevokeFamily(ctx, issued.FamilyID); err != nil {
		t.Fatalf("RevokeFamily failed: %v", err)
	}
	if err := engine.RevokeFamily(ctx, issued.FamilyID); err != nil {
		t.Fatalf("second RevokeFamily must be a no-op, got %v", err)
	}

	if _, err := engine.Rotate(ctx, issued.RefreshToken); !errors.Is(err, ErrFamilyRevoked) {
		t.Fatalf("expected ErrFamilyRevoked, got %v", err)
	}
}

func TestRevokeFamilyUnknown(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	if err := engine.RevokeFamily(context.Background(), "no-such-family"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid, got %v", err)
	}
}

func TestRevokeAllForUserCountsOnlyNewRevocations(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	var familyIDs, credentials []string
	for i := 0; i < 3; i++ {
		issued, err := engine.IssueRefresh(ctx, "user-1", "sid")
		if err != nil {
			t.Fatalf("IssueRefresh failed: %v", err)
		}
		familyIDs = append(familyIDs, issued.FamilyID)
		credentials = append(credentials, issued.RefreshToken)
	}
	// A family belonging to someone else must be untouched.
	other, err := engine.IssueRefresh(ctx, "user-2", "sid")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	// Pre-revoke one family; the sweep must not count it again.
	if err := engine.RevokeFamily(ctx, familyIDs[0]); err != nil {
		t.Fatalf("RevokeFamily failed: %v", err)
	}

	count, err := engine.RevokeAllForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("RevokeAllForUser failed: %v", err)
	}
	if count != 2 {
		t.Fatalf("expected 2 new revocations, got %d", count)
	}

	for _, fid := range familyIDs {
		fam, err := engine.Family(ctx, fid)
		if err != nil {
			t.Fatalf("Family lookup failed: %v", err)
		}
		if !fam.Revoked {
			t.Fatalf("family %s should be revoked", fid)
		}
	}
	for _, cred := range credentials {
		if _, err := engine.Rotate(ctx, cred); !errors.Is(err, ErrFamilyRevoked) {
			t.Fatalf("expected ErrFamilyRevoked after sweep, got %v", err)
		}
	}

	fam, err := engine.Family(ctx, other.FamilyID)
	if err != nil {
		t.Fatalf("Family lookup failed: %v", err)
	}
	if fam.Revoked {
		t.Fatal("other user's family must not be revoked")
	}

	// Second sweep finds nothing active.
	count, err = engine.RevokeAllForUser(ctx, "user-1")
	if err != nil {
		t.Fatalf("second RevokeAllForUser failed: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected 0 on repeat sweep, got %d", count)
	}
}

func TestRotateRateLimited(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableRotateThrottle = true
	cfg.Security.MaxRotateAttempts = 2
	cfg.Security.RotateCooldownDuration = time.Minute
	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	// Hammer a single unknown credential: each attempt consumes budget.
	for i := 0; i < 2; i++ {
		if _, err := engine.Rotate(ctx, "probed-credential"); !errors.Is(err, ErrRefreshInvalid) {
			t.Fatalf("expected ErrRefreshInvalid, got %v", err)
		}
	}
	if _, err := engine.Rotate(ctx, "probed-credential"); !errors.Is(err, ErrRotateRateLimited) {
		t.Fatalf("expected ErrRotateRateLimited, got %v", err)
	}
}

func TestRotateSuccessResetsThrottleCounter(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableRotateThrottle = true
	cfg.Security.MaxRotateAttempts = 1
	cfg.Security.RotateCooldownDuration = time.Minute
	engine, _ := newTestEngine(t, cfg)
	ctx := context.Background()

	issued, err := engine.IssueRefresh(ctx, "user-1", "sid-1")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}
	if _, err := engine.Rotate(ctx, issued.RefreshToken); err != nil {
		t.Fatalf("Rotate failed: %v", err)
	}

	// The legitimate rotation consumed the fingerprint's whole budget. A
	// replay right after must still surface as reuse, not as throttled.
	if _, err := engine.Rotate(ctx, issued.RefreshToken); !errors.Is(err, ErrRefreshReuse) {
		t.Fatalf("expected ErrRefreshReuse, got %v", err)
	}
}

func TestIssueRequiresUserID(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())

	if _, err := engine.IssueRefresh(context.Background(), "", "sid-1"); !errors.Is(err, ErrRefreshInvalid) {
		t.Fatalf("expected ErrRefreshInvalid for empty user, got %v", err)
	}
}

func TestPairIssuanceAndValidation(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssuePair(ctx, "user-1", "sid-1", "read")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}
	if pair.AccessToken == "" || pair.AccessJTI == "" {
		t.Fatalf("incomplete pair: %+v", pair)
	}

	claims, err := engine.ValidateAccess(ctx, pair.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccess failed: %v", err)
	}
	if claims.UID != "user-1" || claims.FID != pair.FamilyID || claims.Scope != "read" {
		t.Fatalf("unexpected claims: %+v", claims)
	}

	rotated, err := engine.RotatePair(ctx, pair.RefreshToken, "read")
	if err != nil {
		t.Fatalf("RotatePair failed: %v", err)
	}
	if rotated.AccessToken == pair.AccessToken {
		t.Fatal("rotation must mint a fresh access token")
	}
}

func TestAccessDenylist(t *testing.T) {
	engine, _ := newTestEngine(t, testConfig())
	ctx := context.Background()

	pair, err := engine.IssuePair(ctx, "user-1", "sid-1", "")
	if err != nil {
		t.Fatalf("IssuePair failed: %v", err)
	}

	if err := engine.RevokeAccessToken(ctx, pair.AccessJTI); err != nil {
		t.Fatalf("RevokeAccessToken failed: %v", err)
	}

	if _, err := engine.ValidateAccess(ctx, pair.AccessToken); !errors.Is(err, ErrAccessRevoked) {
		t.Fatalf("expected ErrAccessRevoked, got %v", err)
	}

	revoked, err := engine.IsAccessTokenRevoked(ctx, pair.AccessJTI)
	if err != nil {
		t.Fatalf("IsAccessTokenRevoked failed: %v", err)
	}
	if !revoked {
		t.Fatal("jti should be on the denylist")
	}
}

func TestRetryableClassification(t *testing.T) {
	if !Retryable(ErrStoreUnavailable) {
		t.Fatal("store unavailability is retryable")
	}
	for _, err := range []error{ErrRefreshInvalid, ErrRefreshReuse, ErrFamilyRevoked, ErrRotateRateLimited, ErrInternal} {
		if Retryable(err) {
			t.Fatalf("%v must not be retryable", err)
		}
	}
}
