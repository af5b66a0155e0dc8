package discover

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sparkmatch/engine/internal/db"
)

const standoutsCacheTTL = 26 * time.Hour

// StandoutsResult is a user's cached top-N ranking for a day.
type StandoutsResult struct {
	DayKey  string             `json:"day_key"`
	Entries []db.StandoutEntry `json:"entries"`
}

// Standouts returns today's top-N candidates by match quality,
// computing and persisting the ranking on first call. The ranking is
// recomputed once per day key, not per request; later calls serve the
// cached rows with their current interaction flags.
//
// Swiping on a standout goes through the ordinary swipe path — same
// daily limits, same locks — and only flips the entry's interaction
// flag as a side effect.
func (s *Service) Standouts(ctx context.Context, userID uint64) (*StandoutsResult, error) {
	seeker, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	day := s.dayKey(seeker.Timezone)
	cacheKey := s.appCtx.RedisCache.KeyForStandouts(userID, day)

	if cached, err := s.appCtx.RedisCache.Get(ctx, cacheKey); err == nil && cached != "" {
		var res StandoutsResult
		if json.Unmarshal([]byte(cached), &res) == nil {
			return &res, nil
		}
	}

	unlock := s.keyLocks.Lock(fmt.Sprintf("standouts:%d:%s", userID, day))
	defer unlock()

	entries, err := s.recs.GetStandouts(ctx, userID, day)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		entries, err = s.computeStandouts(ctx, seeker, day)
		if err != nil {
			return nil, err
		}
	}

	res := &StandoutsResult{DayKey: day, Entries: entries}
	s.cacheStandouts(ctx, cacheKey, res)
	return res, nil
}

func (s *Service) computeStandouts(ctx context.Context, seeker *db.Profile, day string) ([]db.StandoutEntry, error) {
	eligible, err := s.eligible(ctx, seeker)
	if err != nil {
		return nil, err
	}
	if len(eligible) == 0 {
		return nil, nil
	}

	type scored struct {
		profile *db.Profile
		score   float64
		tags    []string
	}
	ranked := make([]scored, 0, len(eligible))
	for _, c := range eligible {
		q := s.scorer.Score(seeker, c, s.stats.ReplyStats(ctx, seeker.ID, c.ID))
		ranked = append(ranked, scored{profile: c, score: q.Score, tags: q.Highlights})
	}

	// Highest score first; ties break on id so the ranking is stable.
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].score != ranked[j].score {
			return ranked[i].score > ranked[j].score
		}
		return ranked[i].profile.ID < ranked[j].profile.ID
	})

	n := s.appCtx.Engine.StandoutSize
	if n > len(ranked) {
		n = len(ranked)
	}

	entries := make([]db.StandoutEntry, 0, n)
	for i := 0; i < n; i++ {
		entries = append(entries, db.StandoutEntry{
			UserID:      seeker.ID,
			DayKey:      day,
			Rank:        i + 1,
			CandidateID: ranked[i].profile.ID,
			Score:       ranked[i].score,
			Highlights:  ranked[i].tags,
		})
	}

	if err := s.recs.SaveStandouts(ctx, entries); err != nil {
		return nil, err
	}

	// Re-read: if a concurrent computation won the insert race, serve
	// the winner's ranking rather than our own.
	saved, err := s.recs.GetStandouts(ctx, seeker.ID, day)
	if err != nil {
		return nil, err
	}

	s.log.Debug("standouts computed",
		"user", seeker.ID, "day", day, "count", len(saved))
	return saved, nil
}

func (s *Service) cacheStandouts(ctx context.Context, key string, res *StandoutsResult) {
	payload, err := json.Marshal(res)
	if err != nil {
		return
	}
	if err := s.appCtx.RedisCache.Set(ctx, key, payload, standoutsCacheTTL); err != nil {
		s.log.Debug("standouts cache write failed", "err", err)
	}
}
