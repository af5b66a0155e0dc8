package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math/rand"
	"time"

	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/repository"
)

const pickCacheTTL = 26 * time.Hour

// DailyPick returns the user's pick for today, computing and
// persisting it on first call.
//
// The selection is a deterministic draw: a PRNG seeded from
// (userID, dayKey) chooses uniformly among the candidates eligible at
// computation time, and the result is persisted immediately. Every
// later call that day returns the persisted pick no matter how the
// candidate pool moves, so the pick cannot drift as users join or
// leave. An empty pool yields (nil, nil): no pick today, not an error.
func (s *Service) DailyPick(ctx context.Context, userID uint64) (*db.DailyPick, error) {
	seeker, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	day := s.dayKey(seeker.Timezone)
	cacheKey := s.appCtx.RedisCache.KeyForDailyPick(userID, day)

	// Hot path: cache, then the persisted row.
	if cached, err := s.appCtx.RedisCache.Get(ctx, cacheKey); err == nil && cached != "" {
		var pick db.DailyPick
		if json.Unmarshal([]byte(cached), &pick) == nil {
			return &pick, nil
		}
	}

	// Single writer per (user, day): concurrent first calls serialize
	// here, and the insert-if-absent below makes even a missed lock
	// harmless.
	unlock := s.keyLocks.Lock(fmt.Sprintf("pick:%d:%s", userID, day))
	defer unlock()

	pick, err := s.recs.GetDailyPick(ctx, userID, day)
	if err == nil {
		s.cachePick(ctx, cacheKey, pick)
		return pick, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	eligible, err := s.eligible(ctx, seeker)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	r := rand.New(rand.NewSource(pickSeed(userID, day)))
	choice := eligible[r.Intn(len(eligible))]

	quality := s.scorer.Score(seeker, choice, s.stats.ReplyStats(ctx, userID, choice.ID))

	saved, err := s.recs.SaveDailyPick(ctx, &db.DailyPick{
		UserID:      userID,
		DayKey:      day,
		CandidateID: choice.ID,
		ReasonTags:  quality.Highlights,
	})
	if err != nil {
		return nil, err
	}

	s.cachePick(ctx, cacheKey, saved)
	s.log.Debug("daily pick computed",
		"user", userID, "day", day, "candidate", saved.CandidateID)
	return saved, nil
}

// MarkDailyPickViewed flags today's pick as seen.
func (s *Service) MarkDailyPickViewed(ctx context.Context, userID uint64) error {
	seeker, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return err
	}
	day := s.dayKey(seeker.Timezone)
	if err := s.recs.MarkPickViewed(ctx, userID, day); err != nil {
		return err
	}
	// Drop the stale cache entry; next read refills from the row.
	_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForDailyPick(userID, day))
	return nil
}

func (s *Service) cachePick(ctx context.Context, key string, pick *db.DailyPick) {
	payload, err := json.Marshal(pick)
	if err != nil {
		return
	}
	if err := s.appCtx.RedisCache.Set(ctx, key, payload, pickCacheTTL); err != nil {
		s.log.Debug("pick cache write failed", "err", err)
	}
}

// pickSeed derives the deterministic PRNG seed from (userID, dayKey).
func pickSeed(userID uint64, dayKey string) int64 {
	h := fnv.New64a()
	_, _ = fmt.Fprintf(h, "%d:%s", userID, dayKey)
	return int64(h.Sum64())
}
