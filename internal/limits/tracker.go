// Package limits enforces per-user daily action quotas.
//
// Counters live in Redis keyed by (user, action, day key), where the
// day key is the calendar date in the user's zone. A new day simply
// addresses a fresh key that starts at zero, so the reset happens
// exactly once at the day boundary and never mid-day; stale keys age
// out via TTL.
package limits

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/cache"
	"github.com/sparkmatch/engine/internal/config"
	"github.com/sparkmatch/engine/internal/db"
)

// Counter keys outlive their day by enough to cover any zone skew.
const counterTTL = 48 * time.Hour

// Unlimited is returned as the remaining count for unmetered actions.
const Unlimited = -1

type Tracker struct {
	cache *cache.RedisCache
	cfg   config.Engine

	// now is swappable for day-boundary tests.
	now func() time.Time
}

func NewTracker(c *cache.RedisCache, cfg config.Engine) *Tracker {
	return &Tracker{cache: c, cfg: cfg, now: time.Now}
}

// WithNow overrides the clock. Test hook.
func (t *Tracker) WithNow(now func() time.Time) *Tracker {
	t.now = now
	return t
}

// DayKey returns the date key for now in the given zone, falling back
// to the fallback zone and then UTC.
func DayKey(now time.Time, zone, fallback string) string {
	return now.In(Location(zone, fallback)).Format("2006-01-02")
}

// Location resolves a zone name with fallback, never failing.
func Location(zone, fallback string) *time.Location {
	if zone != "" {
		if loc, err := time.LoadLocation(zone); err == nil {
			return loc
		}
	}
	if fallback != "" {
		if loc, err := time.LoadLocation(fallback); err == nil {
			return loc
		}
	}
	return time.UTC
}

// DayKey returns today's date key in the given zone, falling back to
// the configured default zone and then UTC.
func (t *Tracker) DayKey(zone string) string {
	return DayKey(t.now(), zone, t.cfg.DayZone)
}

func (t *Tracker) limitFor(action string) int {
	switch action {
	case db.DirectionLike:
		return t.cfg.DailyLikes
	case db.DirectionSuperLike:
		return t.cfg.DailySuperLikes
	case db.DirectionPass:
		return t.cfg.DailyPasses
	}
	return 0
}

// Reserve atomically claims one slot of the user's daily quota for the
// action. The INCR-then-check sequence means two goroutines can never
// both pass a check for the same last slot: the counter moves before
// the verdict, and an over-limit claim is rolled back.
//
// Returns ok=false with no quota consumed when the limit is exhausted.
func (t *Tracker) Reserve(ctx context.Context, userID uint64, action, zone string) (ok bool, remaining int, err error) {
	limit := t.limitFor(action)
	if limit <= 0 {
		return true, Unlimited, nil
	}

	key := t.cache.KeyForLimit(userID, action, t.DayKey(zone))
	n, err := t.cache.Incr(ctx, key)
	if err != nil {
		return false, 0, apperr.Storage(err)
	}
	if n == 1 {
		_ = t.cache.Client.Expire(ctx, key, counterTTL).Err()
	}
	if n > int64(limit) {
		_, _ = t.cache.Decr(ctx, key)
		return false, 0, nil
	}
	return true, limit - int(n), nil
}

// Release refunds one previously reserved slot, flooring at zero.
// Used when a reserved swipe fails to persist or is undone.
func (t *Tracker) Release(ctx context.Context, userID uint64, action, zone string) error {
	if t.limitFor(action) <= 0 {
		return nil
	}
	key := t.cache.KeyForLimit(userID, action, t.DayKey(zone))
	n, err := t.cache.Decr(ctx, key)
	if err != nil {
		return apperr.Storage(err)
	}
	if n < 0 {
		_, _ = t.cache.Incr(ctx, key)
	}
	return nil
}

// Remaining reports how many slots are left today, or Unlimited.
func (t *Tracker) Remaining(ctx context.Context, userID uint64, action, zone string) (int, error) {
	limit := t.limitFor(action)
	if limit <= 0 {
		return Unlimited, nil
	}
	key := t.cache.KeyForLimit(userID, action, t.DayKey(zone))
	used, err := t.cache.Client.Get(ctx, key).Int()
	if errors.Is(err, redis.Nil) {
		return limit, nil
	} else if err != nil {
		return 0, apperr.Storage(err)
	}
	if used > limit {
		return 0, nil
	}
	return limit - used, nil
}

// CanPerform reports whether one more action would fit the quota.
// Advisory only; Reserve is the authoritative check-and-claim.
func (t *Tracker) CanPerform(ctx context.Context, userID uint64, action, zone string) (bool, error) {
	r, err := t.Remaining(ctx, userID, action, zone)
	if err != nil {
		return false, err
	}
	return r == Unlimited || r > 0, nil
}
