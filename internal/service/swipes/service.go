// Package swipes implements swipe processing: the limit gate, the
// per-pair critical section, mutual-like detection, idempotent match
// creation, and the undo window.
package swipes

import (
	"context"
	"log/slog"
	"time"

	"github.com/sparkmatch/engine/internal/app"
	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/limits"
	"github.com/sparkmatch/engine/internal/metrics"
	"github.com/sparkmatch/engine/internal/pairlock"
	"github.com/sparkmatch/engine/internal/repository"
)

// Service is the matching core. All match-affecting writes funnel
// through Process so the per-pair lock discipline holds everywhere.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	swipes   *repository.SwipeRepository
	matches  *repository.MatchRepository
	recs     *repository.RecommendationRepository
	limiter  *limits.Tracker
	locks    *pairlock.Striped
	sink     EventSink
	log      *slog.Logger

	// now is swappable for window tests.
	now func() time.Time
}

// NewService wires the matching core from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	log := appCtx.Logger.With("subsystem", "swipes")
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
		swipes:   repository.NewSwipeRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		recs:     repository.NewRecommendationRepository(appCtx.DB),
		limiter:  limits.NewTracker(appCtx.RedisCache, appCtx.Engine),
		locks:    pairlock.NewStriped(appCtx.Engine.LockStripes),
		sink:     &LogSink{Logger: log},
		log:      log,
		now:      time.Now,
	}
}

// WithSink replaces the event sink. Side effects stay best-effort.
func (s *Service) WithSink(sink EventSink) *Service {
	s.sink = sink
	return s
}

// WithNow overrides the clock. Test hook; also propagates to the
// limit tracker so day keys agree.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	s.limiter.WithNow(now)
	return s
}

// SwipeResult reports the outcome of one processed swipe.
//
// LimitExhausted is a normal outcome, not an error: the swipe was
// rejected with no side effects. Matched reflects the *current* state
// of the pair's match; a mutual like against an archived match does
// not report a match.
type SwipeResult struct {
	Success        bool      `json:"success"`
	Matched        bool      `json:"matched"`
	NewMatch       bool      `json:"new_match"`
	MatchID        string    `json:"match_id,omitempty"`
	MatchState     string    `json:"match_state,omitempty"`
	LimitExhausted bool      `json:"limit_exhausted"`
	Remaining      int       `json:"remaining"`
	Swipe          *db.Swipe `json:"-"`
}

// Process records one swipe and resolves its consequences.
//
// Sequence: validate → reserve quota → acquire the canonical pair lock
// → active-match guard → persist swipe → arm undo → reciprocal check →
// create-or-fetch the match → release. A→B and B→A contend on the same
// lock, so two racing halves of a mutual like serialize and exactly one
// match row results; the insert-if-absent id makes even a lost race
// harmless.
func (s *Service) Process(ctx context.Context, actorID, targetID uint64, direction string) (SwipeResult, error) {
	log := s.log

	if actorID == targetID {
		return SwipeResult{}, apperr.Validationf("cannot swipe on yourself")
	}
	switch direction {
	case db.DirectionLike, db.DirectionPass, db.DirectionSuperLike:
	default:
		return SwipeResult{}, apperr.Validationf("unknown direction %q", direction)
	}

	pair, err := s.profiles.GetMany(ctx, []uint64{actorID, targetID})
	if err != nil {
		return SwipeResult{}, err
	}
	actor, ok := pair[actorID]
	if !ok {
		return SwipeResult{}, apperr.NotFoundf("profile %d", actorID)
	}
	if _, ok := pair[targetID]; !ok {
		return SwipeResult{}, apperr.NotFoundf("profile %d", targetID)
	}

	// Claim the quota slot before doing anything with side effects.
	// Reserve is atomic per user, so check-then-act cannot be split by
	// a concurrent swipe from the same user.
	reserved, remaining, err := s.limiter.Reserve(ctx, actorID, direction, actor.Timezone)
	if err != nil {
		return SwipeResult{}, err
	}
	if !reserved {
		metrics.RecordLimitRejection(direction)
		return SwipeResult{Success: false, LimitExhausted: true}, nil
	}

	unlock := s.locks.Lock(pairlock.PairKey(actorID, targetID))
	defer unlock()

	// A pair with an active match takes no further swipes: a pass here
	// would overwrite the like the match stands on, leaving a match
	// with no supporting like. Ending the match is an explicit End
	// transition, never a side effect of a swipe.
	if existing, err := s.matches.Get(ctx, pairlock.MatchID(actorID, targetID)); err == nil {
		if existing.State == db.MatchActive {
			_ = s.limiter.Release(ctx, actorID, direction, actor.Timezone)
			return SwipeResult{}, apperr.StateConflictf("users %d and %d have an active match", actorID, targetID)
		}
	} else if !repository.IsNotFound(err) {
		_ = s.limiter.Release(ctx, actorID, direction, actor.Timezone)
		return SwipeResult{}, err
	}

	swipe := &db.Swipe{ActorID: actorID, TargetID: targetID, Direction: direction}
	if err := s.swipes.Save(ctx, swipe); err != nil {
		// Persisting failed: hand the quota slot back so the rejected
		// swipe leaves no partial state behind.
		_ = s.limiter.Release(ctx, actorID, direction, actor.Timezone)
		return SwipeResult{}, err
	}

	result := SwipeResult{Success: true, Remaining: remaining, Swipe: swipe}

	if db.IsLike(direction) {
		mutual, err := s.swipes.HasLiked(ctx, targetID, actorID)
		if err != nil {
			return SwipeResult{}, err
		}
		if mutual {
			id := pairlock.MatchID(actorID, targetID)
			match, created, err := s.matches.CreateIfAbsent(ctx, id, actorID, targetID)
			if err != nil {
				return SwipeResult{}, err
			}
			if !created {
				// Lost a creation race or the pair matched before.
				// Resolved by returning the winning row; never an error.
				log.Debug("match creation conflict recovered", "match_id", id)
				metrics.RecordConflictRecovered()
			}
			result.MatchID = match.ID
			result.MatchState = match.State
			result.Matched = match.State == db.MatchActive
			result.NewMatch = created

			if created {
				metrics.RecordMatch()
				s.notifyMatch(ctx, match)
			}
		}
	}

	s.armUndo(ctx, actorID, swipe, result.NewMatch, result.MatchID)

	// Keep the standout ranking's interaction flag current; losing
	// this update only stales a display flag.
	dayKey := s.limiter.DayKey(actor.Timezone)
	if err := s.recs.MarkStandoutInteracted(ctx, actorID, dayKey, targetID); err != nil {
		log.Debug("standout interaction update failed", "err", err)
	}
	_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForStandouts(actorID, dayKey))

	metrics.RecordSwipe(direction)
	s.notifySwipe(ctx, swipe)

	log.Debug("swipe processed",
		"actor", actorID, "target", targetID, "direction", direction,
		"matched", result.Matched, "new_match", result.NewMatch)

	return result, nil
}

// CanLike reports whether the user has like quota left today.
func (s *Service) CanLike(ctx context.Context, userID uint64) (bool, error) {
	return s.can(ctx, userID, db.DirectionLike)
}

// CanPass reports whether the user has pass quota left today.
func (s *Service) CanPass(ctx context.Context, userID uint64) (bool, error) {
	return s.can(ctx, userID, db.DirectionPass)
}

func (s *Service) can(ctx context.Context, userID uint64, action string) (bool, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.limiter.CanPerform(ctx, userID, action, p.Timezone)
}

// RemainingLimits reports today's remaining quota per action.
func (s *Service) RemainingLimits(ctx context.Context, userID uint64) (map[string]int, error) {
	p, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make(map[string]int, 3)
	for _, action := range []string{db.DirectionLike, db.DirectionPass, db.DirectionSuperLike} {
		r, err := s.limiter.Remaining(ctx, userID, action, p.Timezone)
		if err != nil {
			return nil, err
		}
		out[action] = r
	}
	return out, nil
}

// End archives an active match. Transitions are one-way; ending an
// already-archived match reports a state conflict instead of silently
// succeeding.
func (s *Service) End(ctx context.Context, matchID string, byUser uint64, toState string) (*db.Match, error) {
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.Involves(byUser) {
		return nil, apperr.Validationf("user %d is not part of match %s", byUser, matchID)
	}

	unlock := s.locks.Lock(pairlock.PairKey(match.UserLowID, match.UserHighID))
	defer unlock()

	return s.matches.Transition(ctx, matchID, toState, byUser)
}

// ListMatches returns a page of the user's active matches.
func (s *Service) ListMatches(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]db.Match, *string, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.matches.ListActive(ctx, userID, paginationToken, limit)
}
