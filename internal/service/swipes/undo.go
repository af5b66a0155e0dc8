package swipes

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/metrics"
	"github.com/sparkmatch/engine/internal/pairlock"
)

// undoRecord is a user's single most recent swipe, stored in redis
// with TTL equal to the undo window. Expiry in the store and the
// strict timestamp check below enforce the same bound; the timestamp
// is authoritative.
type undoRecord struct {
	ActorID      uint64    `json:"actor_id"`
	TargetID     uint64    `json:"target_id"`
	Direction    string    `json:"direction"`
	MatchID      string    `json:"match_id,omitempty"`
	CreatedMatch bool      `json:"created_match"`
	SwipedAt     time.Time `json:"swiped_at"`
}

// UndoResult reports one undo attempt. An expired or absent record is
// a normal failed outcome, not an error.
type UndoResult struct {
	Undone       bool   `json:"undone"`
	TargetID     uint64 `json:"target_id,omitempty"`
	MatchDeleted bool   `json:"match_deleted"`
	Reason       string `json:"reason,omitempty"`
}

// armUndo replaces the user's undoable record with the swipe just
// processed. Each swipe overwrites the previous record: only the most
// recent swipe is ever reversible.
func (s *Service) armUndo(ctx context.Context, actorID uint64, swipe *db.Swipe, createdMatch bool, matchID string) {
	rec := undoRecord{
		ActorID:      actorID,
		TargetID:     swipe.TargetID,
		Direction:    swipe.Direction,
		MatchID:      matchID,
		CreatedMatch: createdMatch,
		SwipedAt:     s.now(),
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return
	}
	key := s.appCtx.RedisCache.KeyForUndo(actorID)
	if err := s.appCtx.RedisCache.Set(ctx, key, payload, s.appCtx.Engine.UndoWindow); err != nil {
		s.log.Debug("failed to arm undo", "user", actorID, "err", err)
	}
}

// CanUndo reports whether the user still has an undoable swipe.
func (s *Service) CanUndo(ctx context.Context, userID uint64) (bool, error) {
	rec, err := s.loadUndo(ctx, userID)
	if err != nil {
		return false, err
	}
	return rec != nil && s.now().Sub(rec.SwipedAt) < s.appCtx.Engine.UndoWindow, nil
}

// Undo reverses the user's most recent swipe if the window has not
// elapsed. On success the swipe record is deleted and, if that swipe
// created a match, the match goes with it so no match outlives its
// supporting like. A successful undo consumes the record: an immediate
// second call finds nothing to undo.
func (s *Service) Undo(ctx context.Context, userID uint64) (UndoResult, error) {
	rec, err := s.loadUndo(ctx, userID)
	if err != nil {
		return UndoResult{}, err
	}
	if rec == nil {
		metrics.RecordUndo("nothing")
		return UndoResult{Undone: false, Reason: "nothing to undo"}, nil
	}
	if s.now().Sub(rec.SwipedAt) >= s.appCtx.Engine.UndoWindow {
		// TTL should have evicted this; discard it regardless.
		_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForUndo(userID))
		metrics.RecordUndo("expired")
		return UndoResult{Undone: false, Reason: "undo window elapsed"}, nil
	}

	unlock := s.locks.Lock(pairlock.PairKey(rec.ActorID, rec.TargetID))
	defer unlock()

	if err := s.swipes.Delete(ctx, rec.ActorID, rec.TargetID); err != nil {
		return UndoResult{}, err
	}

	result := UndoResult{Undone: true, TargetID: rec.TargetID}
	if rec.CreatedMatch && rec.MatchID != "" {
		if err := s.matches.Delete(ctx, rec.MatchID); err != nil {
			return UndoResult{}, err
		}
		result.MatchDeleted = true
	}

	// A rewound like costs nothing: hand the quota slot back.
	if db.IsLike(rec.Direction) {
		if p, err := s.profiles.Get(ctx, userID); err == nil {
			_ = s.limiter.Release(ctx, userID, rec.Direction, p.Timezone)
		}
	}

	if err := s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForUndo(userID)); err != nil {
		s.log.Debug("failed to clear undo record", "user", userID, "err", err)
	}

	metrics.RecordUndo("undone")
	s.log.Debug("swipe undone",
		"user", userID, "target", rec.TargetID, "match_deleted", result.MatchDeleted)

	return result, nil
}

func (s *Service) loadUndo(ctx context.Context, userID uint64) (*undoRecord, error) {
	raw, err := s.appCtx.RedisCache.Get(ctx, s.appCtx.RedisCache.KeyForUndo(userID))
	if errors.Is(err, redis.Nil) {
		return nil, nil
	} else if err != nil {
		return nil, apperr.Storage(err)
	}

	var rec undoRecord
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, nil // corrupt record: treat as nothing to undo
	}
	return &rec, nil
}
