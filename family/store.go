package family

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable wraps transient Redis failures. Callers classify it as
// retryable.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrFamilyCorrupt is returned when a stored family record fails to decode.
// Not retryable; the record is unusable.
var ErrFamilyCorrupt = errors.New("family record corrupt")

const minTTL = time.Second

// RotateOutcome classifies the result of the atomic rotation script.
type RotateOutcome int

const (
	// RotateNotFound: the fingerprint resolves to nothing — unknown or
	// TTL-expired, indistinguishable by design.
	RotateNotFound RotateOutcome = iota
	// RotateRevoked: the family was already revoked before this call.
	RotateRevoked
	// RotateReplayRevoked: the fingerprint belongs to an earlier generation
	// of an active family. The script has already persisted the revocation.
	RotateReplayRevoked
	// RotateOK: the family advanced one generation and the new fingerprint
	// index entry is live.
	RotateOK
)

const (
	rotateStatusNotFound int64 = 0
	rotateStatusRevoked  int64 = 1
	rotateStatusReplay   int64 = 2
	rotateStatusRotated  int64 = 3
	rotateStatusCorrupt  int64 = 4
)

// rotateScript is the whole rotation protocol in one atomic step: resolve the
// presented fingerprint through the index, classify it against the family's
// current generation, and commit either the replay-revocation (audit TTL) or
// the rotation (refresh TTL plus the successor's index entry). Concurrent
// calls against the same credential serialize here, so exactly one wins.
const rotateScript = `
local fid = redis.call("GET", KEYS[1])
if not fid then
  return {0}
end

local family_key = ARGV[2] .. fid
local data = redis.call("GET", family_key)
if not data then
  return {0}
end

local ok, fam = pcall(cjson.decode, data)
if not ok or type(fam) ~= "table" or not fam.family_id then
  return {4}
end

if fam.revoked then
  return {1, data}
end

if fam.current_fingerprint ~= ARGV[1] then
  fam.revoked = true
  fam.revoked_at = tonumber(ARGV[8])
  local updated = cjson.encode(fam)
  redis.call("SET", family_key, updated, "EX", tonumber(ARGV[7]))
  return {2, updated}
end

fam.current_fingerprint = ARGV[5]
fam.rotation_count = fam.rotation_count + 1
local updated = cjson.encode(fam)
redis.call("SET", family_key, updated, "EX", tonumber(ARGV[6]))
redis.call("SET", ARGV[3] .. ARGV[5], fid, "EX", tonumber(ARGV[6]))
redis.call("SADD", ARGV[4] .. fam.user_id, fid)
return {3, updated}
`

var rotateLua = redis.NewScript(rotateScript)

// Store is the Redis-backed persistence layer for rotation lineages: family
// records, the fingerprint index, the user-to-families set, and the
// per-access-token jti denylist.
type Store struct {
	redis  redis.UniversalClient
	prefix string
}

// NewStore creates a lineage [Store] backed by the given Redis client.
// prefix sets the Redis key namespace. The store never opens or closes the
// client; the caller owns its lifecycle.
func NewStore(redisClient redis.UniversalClient, prefix string) *Store {
	return &Store{
		redis:  redisClient,
		prefix: prefix,
	}
}

func (s *Store) familyKey(familyID string) string {
	return s.prefix + "f:" + familyID
}

func (s *Store) fingerprintKey(fingerprint string) string {
	return s.prefix + "fp:" + fingerprint
}

func (s *Store) userKey(userID string) string {
	return s.prefix + "u:" + userID
}

func (s *Store) denylistKey(jti string) string {
	return s.prefix + "rv:" + jti
}

// PutFamily persists a family record together with its fingerprint index
// entry and user-set membership in one transactional pipeline: readers
// observe all three writes or none.
//
//	Performance: 1 MULTI/EXEC round-trip (SET + SET + SADD).
func (s *Store) PutFamily(ctx context.Context, fam Family, ttl time.Duration) error {
	data, err := json.Marshal(fam)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrFamilyCorrupt, err)
	}
	if ttl < minTTL {
		ttl = minTTL
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, s.fingerprintKey(fam.CurrentFingerprint), fam.FamilyID, ttl)
		pipe.Set(ctx, s.familyKey(fam.FamilyID), data, ttl)
		pipe.SAdd(ctx, s.userKey(fam.UserID), fam.FamilyID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return nil
}

// GetFamily retrieves a family record by id. Returns redis.Nil when no record
// exists.
//
//	Performance: 1 Redis GET.
func (s *Store) GetFamily(ctx context.Context, familyID string) (*Family, error) {
	data, err := s.redis.Get(ctx, s.familyKey(familyID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return decodeFamily(data)
}

// FindByFingerprint resolves the fingerprint index and loads the family it
// points to. The family is returned unchanged even when its current
// fingerprint has moved on — the caller interprets the mismatch. Returns
// redis.Nil when the index entry or the record is gone.
//
//	Performance: 2 Redis GETs.
func (s *Store) FindByFingerprint(ctx context.Context, fingerprint string) (*Family, error) {
	familyID, err := s.redis.Get(ctx, s.fingerprintKey(fingerprint)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return s.GetFamily(ctx, familyID)
}

// Rotate atomically advances the family addressed by the presented
// fingerprint, or revokes it when the fingerprint turns out to be a replayed
// earlier generation. The returned family reflects the persisted state for
// every outcome except [RotateNotFound].
//
//	Performance: 1 Lua EVALSHA (atomic compare-and-swap).
//	Security: CAS guarantees a single winner under concurrent rotation.
func (s *Store) Rotate(
	ctx context.Context,
	fingerprint, newFingerprint string,
	ttl, auditTTL time.Duration,
	now time.Time,
) (RotateOutcome, *Family, error) {
	if ttl < minTTL {
		ttl = minTTL
	}
	if auditTTL < minTTL {
		auditTTL = minTTL
	}

	result, err := rotateLua.Run(
		ctx,
		s.redis,
		[]string{s.fingerprintKey(fingerprint)},
		fingerprint,
		s.prefix+"f:",
		s.prefix+"fp:",
		s.prefix+"u:",
		newFingerprint,
		int64(ttl/time.Second),
		int64(auditTTL/time.Second),
		now.Unix(),
	).Result()
	if err != nil {
		return RotateNotFound, nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	parts, ok := result.([]interface{})
	if !ok || len(parts) == 0 {
		return RotateNotFound, nil, fmt.Errorf("%w: invalid rotate script response", ErrRedisUnavailable)
	}

	code, ok := parts[0].(int64)
	if !ok {
		return RotateNotFound, nil, fmt.Errorf("%w: invalid rotate script status", ErrRedisUnavailable)
	}

	switch code {
	case rotateStatusNotFound:
		return RotateNotFound, nil, nil
	case rotateStatusCorrupt:
		return RotateNotFound, nil, ErrFamilyCorrupt
	case rotateStatusRevoked, rotateStatusReplay, rotateStatusRotated:
		if len(parts) < 2 {
			return RotateNotFound, nil, fmt.Errorf("%w: missing family payload", ErrRedisUnavailable)
		}

		var blob []byte
		switch v := parts[1].(type) {
		case string:
			blob = []byte(v)
		case []byte:
			blob = v
		default:
			return RotateNotFound, nil, fmt.Errorf("%w: invalid family payload", ErrRedisUnavailable)
		}

		fam, decErr := decodeFamily(blob)
		if decErr != nil {
			return RotateNotFound, nil, decErr
		}

		switch code {
		case rotateStatusRevoked:
			return RotateRevoked, fam, nil
		case rotateStatusReplay:
			return RotateReplayRevoked, fam, nil
		default:
			return RotateOK, fam, nil
		}
	default:
		return RotateNotFound, nil, fmt.Errorf("%w: unknown rotate script status", ErrRedisUnavailable)
	}
}

// UserFamilyIDs returns the tracked family ids for a user. The set may
// contain ids whose records have since expired; callers prune through
// [Store.ForgetUserFamily] when they notice.
func (s *Store) UserFamilyIDs(ctx context.Context, userID string) ([]string, error) {
	ids, err := s.redis.SMembers(ctx, s.userKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return ids, nil
}

// ForgetUserFamily removes a family id from the user's set. Used to repair
// entries left behind by TTL expiry of the underlying record.
func (s *Store) ForgetUserFamily(ctx context.Context, userID, familyID string) error {
	if err := s.redis.SRem(ctx, s.userKey(userID), familyID).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// AddRevocation adds an access-token jti to the denylist for ttl. Unrelated
// to family invariants; lives here because it shares the store.
func (s *Store) AddRevocation(ctx context.Context, jti string, ttl time.Duration) error {
	if ttl < minTTL {
		ttl = minTTL
	}
	if err := s.redis.Set(ctx, s.denylistKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// IsRevoked reports whether an access-token jti is on the denylist.
func (s *Store) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := s.redis.Exists(ctx, s.denylistKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n > 0, nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}

func decodeFamily(data []byte) (*Family, error) {
	var fam Family
	if err := json.Unmarshal(data, &fam); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFamilyCorrupt, err)
	}
	if fam.FamilyID == "" || fam.CurrentFingerprint == "" {
		return nil, fmt.Errorf("%w: missing required fields", ErrFamilyCorrupt)
	}
	return &fam, nil
}
