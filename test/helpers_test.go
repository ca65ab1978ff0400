//go:build integration
// +build integration

package test

import (
	"testing"
	"time"

	"github.com/MrEthical07/goRefresh/family"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newIntegrationStore(t *testing.T) (*family.Store, *miniredis.Miniredis, func()) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := family.NewStore(rdb, "rf:")

	return store, mr, func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func makeFamily(userID, sessionID, fingerprint string) family.Family {
	return family.New("fam-"+fingerprint, userID, sessionID, fingerprint, time.Now())
}
