package goRefresh

import (
	"context"
	"errors"

	"github.com/MrEthical07/goRefresh/family"
	"github.com/redis/go-redis/v9"
)

// Family returns a copy of a lineage's metadata. Never exposes fingerprints
// to logs; the caller receives the record as stored.
func (e *Engine) Family(ctx context.Context, familyID string) (*family.Family, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if familyID == "" {
		return nil, ErrRefreshInvalid
	}

	fam, err := e.store.GetFamily(ctx, familyID)
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrRefreshInvalid
		}
		if errors.Is(err, family.ErrFamilyCorrupt) {
			return nil, ErrInternal
		}
		return nil, ErrStoreUnavailable
	}
	return fam, nil
}

// UserFamilies returns the lineage records currently tracked for a user,
// pruning set entries whose records have expired.
func (e *Engine) UserFamilies(ctx context.Context, userID string) ([]family.Family, error) {
	if e == nil || e.store == nil {
		return nil, ErrEngineNotReady
	}
	if userID == "" {
		return nil, ErrRefreshInvalid
	}

	ids, err := e.store.UserFamilyIDs(ctx, userID)
	if err != nil {
		return nil, ErrStoreUnavailable
	}

	out := make([]family.Family, 0, len(ids))
	for _, familyID := range ids {
		fam, err := e.store.GetFamily(ctx, familyID)
		if err != nil {
			if errors.Is(err, redis.Nil) {
				_ = e.store.ForgetUserFamily(ctx, userID, familyID)
				continue
			}
			if errors.Is(err, family.ErrFamilyCorrupt) {
				continue
			}
			return nil, ErrStoreUnavailable
		}
		out = append(out, *fam)
	}
	return out, nil
}
