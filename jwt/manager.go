package jwt

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/MrEthical07/goRefresh/signer"
)

// Config controls access token issuance and validation.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable.
type Config struct {
	AccessTTL    time.Duration
	Issuer       string
	Audience     string
	Leeway       time.Duration
	RequireIAT   bool
	MaxFutureIAT time.Duration
	// VerifyKeys maps key ids to verification key material. Every token
	// must carry a kid present in this map.
	VerifyKeys map[string][]byte
}

// Manager mints and validates access tokens. Signing goes through the
// configured [signer.Signer]; validation uses Config.VerifyKeys.
type Manager struct {
	config Config
	signer signer.Signer
}

// AccessClaims is the claim set carried by minted access tokens.
type AccessClaims struct {
	UID   string `json:"uid"`
	SID   string `json:"sid"`
	FID   string `json:"fid"`
	Scope string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

// NewManager validates cfg against the signer and returns a [Manager].
func NewManager(cfg Config, s signer.Signer) (*Manager, error) {
	if s == nil {
		return nil, errors.New("signer is required")
	}
	if cfg.AccessTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.MaxFutureIAT == 0 {
		cfg.MaxFutureIAT = 10 * time.Minute
	}
	if cfg.MaxFutureIAT < 0 || cfg.MaxFutureIAT > 24*time.Hour {
		return nil, errors.New("invalid MaxFutureIAT configuration")
	}
	if jwt.GetSigningMethod(s.Algorithm()) == nil {
		return nil, fmt.Errorf("unsupported signing algorithm: %s", s.Algorithm())
	}
	for kid := range cfg.VerifyKeys {
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("verify key map contains empty kid")
		}
	}
	if strings.TrimSpace(s.KeyID()) == "" {
		return nil, errors.New("signer key id must not be empty")
	}
	if len(cfg.VerifyKeys) > 0 {
		if _, ok := cfg.VerifyKeys[s.KeyID()]; !ok {
			return nil, errors.New("signer key id is not present in VerifyKeys")
		}
	}

	return &Manager{config: cfg, signer: s}, nil
}

// CreateAccess mints a signed access token bound to a user, session, and
// rotation family. Returns the compact token and its jti, which callers
// keep if they may need to denylist the token later.
func (j *Manager) CreateAccess(ctx context.Context, uid, sid, fid, scope string) (string, string, error) {
	jti := uuid.NewString()
	now := time.Now()

	claims := AccessClaims{
		UID:   uid,
		SID:   sid,
		FID:   fid,
		Scope: scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(now.Add(j.config.AccessTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    j.config.Issuer,
		},
	}
	if j.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{j.config.Audience}
	}

	token := jwt.NewWithClaims(jwt.GetSigningMethod(j.signer.Algorithm()), claims)
	token.Header["kid"] = j.signer.KeyID()

	signingInput, err := token.SigningString()
	if err != nil {
		return "", "", err
	}

	sig, err := j.signer.Sign(ctx, []byte(signingInput))
	if err != nil {
		return "", "", err
	}

	return signingInput + "." + base64.RawURLEncoding.EncodeToString(sig), jti, nil
}

// ParseAccess validates a compact token and returns its claims. Validation
// covers signature, algorithm pinning, kid resolution, issuer, audience,
// expiry with leeway, and the future-iat ceiling. Requires VerifyKeys; a
// mint-only Manager cannot parse.
func (j *Manager) ParseAccess(tokenStr string) (*AccessClaims, error) {
	if len(j.config.VerifyKeys) == 0 {
		return nil, errors.New("no verify keys configured")
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{j.signer.Algorithm()}),
	}
	if j.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(j.config.Leeway))
	}
	if j.config.RequireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if j.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(j.config.Issuer))
	}
	if j.config.Audience != "" {
		options = append(options, jwt.WithAudience(j.config.Audience))
	}

	parser := jwt.NewParser(options...)
	token, err := parser.ParseWithClaims(tokenStr, &AccessClaims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != j.signer.Algorithm() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}

		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, errors.New("missing kid")
		}
		key, ok := j.config.VerifyKeys[kid]
		if !ok {
			return nil, errors.New("unknown kid")
		}
		return key, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*AccessClaims)
	if !ok || !token.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if claims.IssuedAt != nil && j.config.MaxFutureIAT > 0 {
		maxAllowed := time.Now().Add(j.config.MaxFutureIAT)
		if claims.IssuedAt.Time.After(maxAllowed) {
			return nil, errors.New("token iat too far in the future")
		}
	}

	return claims, nil
}

// AccessTTL exposes the configured access token lifetime. The engine uses
// it to size denylist entries.
func (j *Manager) AccessTTL() time.Duration {
	return j.config.AccessTTL
}
