package swipes_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/sparkmatch/engine/internal/app"
	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/cache"
	"github.com/sparkmatch/engine/internal/config"
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/logger"
	"github.com/sparkmatch/engine/internal/pairlock"
	"github.com/sparkmatch/engine/internal/repository"
	"github.com/sparkmatch/engine/internal/service/swipes"
)

// seedProfiles inserts four mutually compatible profiles so any pair
// can swipe on any other.
func seedProfiles(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	profiles := make([]db.Profile, 0, 4)
	for i := uint64(1); i <= 4; i++ {
		profiles = append(profiles, db.Profile{
			ID:          i,
			DisplayName: fmt.Sprintf("user%d", i),
			Email:       fmt.Sprintf("u%d@test.com", i),
			Active:      true, Gender: "female", InterestedIn: "everyone",
			Age: 30, AgeMin: 18, AgeMax: 99,
			Timezone: "UTC",
		})
	}
	require.NoError(t, gdb.Create(&profiles).Error)
}

// setupService spins up an in-memory SQLite DB, a miniredis, and a
// fully wired swipe service. Each test gets its own isolated stack.
func setupService(t *testing.T, engine config.Engine) (*swipes.Service, *gorm.DB) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	// The shared-cache in-memory DB tolerates only one writer at a
	// time; a single connection serializes access below the service,
	// leaving the service-level race intact.
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(db.Models()...))
	seedProfiles(t, gdb)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)

	appCtx := app.New(gdb, redisCache, logger.Discard(), engine)
	return swipes.NewService(appCtx), gdb
}

func countMatches(t *testing.T, gdb *gorm.DB) int64 {
	t.Helper()
	var n int64
	require.NoError(t, gdb.Model(&db.Match{}).Count(&n).Error)
	return n
}

func TestMutualLikeCreatesMatch(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t, config.DefaultEngine())

	r1, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)
	assert.True(t, r1.Success)
	assert.False(t, r1.Matched)

	r2, err := svc.Process(ctx, 2, 1, db.DirectionLike)
	require.NoError(t, err)
	assert.True(t, r2.Success)
	assert.True(t, r2.Matched)
	assert.True(t, r2.NewMatch)
	assert.Equal(t, pairlock.MatchID(1, 2), r2.MatchID)
	assert.Equal(t, db.MatchActive, r2.MatchState)

	assert.Equal(t, int64(1), countMatches(t, gdb))
}

func TestPassNeverMatches(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)

	r, err := svc.Process(ctx, 2, 1, db.DirectionPass)
	require.NoError(t, err)
	assert.True(t, r.Success)
	assert.False(t, r.Matched)
	assert.Equal(t, int64(0), countMatches(t, gdb))
}

// Two racing halves of a mutual like must produce exactly one match
// row, with at least one side seeing the match.
func TestConcurrentMutualLikesCreateExactlyOneMatch(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t, config.DefaultEngine())

	var r1, r2 swipes.SwipeResult
	var err1, err2 error
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		r1, err1 = svc.Process(ctx, 1, 2, db.DirectionLike)
	}()
	go func() {
		defer wg.Done()
		r2, err2 = svc.Process(ctx, 2, 1, db.DirectionLike)
	}()
	wg.Wait()

	require.NoError(t, err1)
	require.NoError(t, err2)
	assert.True(t, r1.Matched || r2.Matched)
	assert.Equal(t, int64(1), countMatches(t, gdb))
}

func TestSelfSwipeRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 1, db.DirectionLike)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestUnknownDirectionRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 2, "wink")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestSwipeOnMissingProfileRejected(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 999, db.DirectionLike)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

// An exhausted limit rejects the swipe before any state changes: no
// swipe row, no match, and a clean LimitExhausted outcome instead of
// an error.
func TestLimitExhaustedLeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	engine := config.DefaultEngine()
	engine.DailyLikes = 1
	svc, gdb := setupService(t, engine)

	r, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)
	require.True(t, r.Success)

	r, err = svc.Process(ctx, 1, 3, db.DirectionLike)
	require.NoError(t, err)
	assert.False(t, r.Success)
	assert.True(t, r.LimitExhausted)

	var n int64
	require.NoError(t, gdb.Model(&db.Swipe{}).Where("actor_id = ? AND target_id = ?", 1, 3).Count(&n).Error)
	assert.Equal(t, int64(0), n)
}

func TestPassesDoNotConsumeLikeQuota(t *testing.T) {
	ctx := context.Background()
	engine := config.DefaultEngine()
	engine.DailyLikes = 1
	svc, _ := setupService(t, engine)

	_, err := svc.Process(ctx, 1, 2, db.DirectionPass)
	require.NoError(t, err)

	ok, err := svc.CanLike(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ok)
}

// A mutual like against an archived match returns the archived row
// untouched: no resurrection, no new match, no error.
func TestArchivedMatchIsNotResurrected(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)
	r, err := svc.Process(ctx, 2, 1, db.DirectionLike)
	require.NoError(t, err)
	require.True(t, r.Matched)

	_, err = svc.End(ctx, r.MatchID, 1, db.MatchUnmatched)
	require.NoError(t, err)

	again, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)
	assert.True(t, again.Success)
	assert.False(t, again.Matched)
	assert.False(t, again.NewMatch)
	assert.Equal(t, db.MatchUnmatched, again.MatchState)

	var m db.Match
	require.NoError(t, gdb.First(&m, "id = ?", r.MatchID).Error)
	assert.Equal(t, db.MatchUnmatched, m.State)
	assert.Equal(t, int64(1), countMatches(t, gdb))
}

// A pair with an active match takes no further swipes. Letting a pass
// through would overwrite the like the match stands on.
func TestSwipeOnActiveMatchIsRejected(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)
	r, err := svc.Process(ctx, 2, 1, db.DirectionLike)
	require.NoError(t, err)
	require.True(t, r.Matched)

	_, err = svc.Process(ctx, 1, 2, db.DirectionPass)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)

	// The match and the likes it stands on are untouched.
	var m db.Match
	require.NoError(t, gdb.First(&m, "id = ?", r.MatchID).Error)
	assert.Equal(t, db.MatchActive, m.State)

	var s db.Swipe
	require.NoError(t, gdb.First(&s, "actor_id = ? AND target_id = ?", 1, 2).Error)
	assert.Equal(t, db.DirectionLike, s.Direction)

	// The rejected swipe must not burn a quota slot either.
	remaining, err := svc.RemainingLimits(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, config.DefaultEngine().DailyLikes-1, remaining[db.DirectionLike])
}

// Every active match is backed by a standing like from each
// participant, so a user's active matches can never outnumber the
// likes they have given.
func TestActiveMatchesNeverExceedLikesGiven(t *testing.T) {
	ctx := context.Background()
	svc, gdb := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)
	r, err := svc.Process(ctx, 2, 1, db.DirectionLike)
	require.NoError(t, err)
	require.True(t, r.Matched)

	_, err = svc.Process(ctx, 1, 2, db.DirectionPass)
	require.ErrorIs(t, err, apperr.ErrStateConflict)

	swipeRepo := repository.NewSwipeRepository(gdb)
	matchRepo := repository.NewMatchRepository(gdb)
	for _, userID := range []uint64{1, 2} {
		likes, err := swipeRepo.CountLikesGiven(ctx, userID)
		require.NoError(t, err)
		active, err := matchRepo.CountActive(ctx, userID)
		require.NoError(t, err)
		assert.LessOrEqual(t, active, likes, "user %d", userID)
	}
}

func TestEndTwiceReportsConflict(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)
	r, err := svc.Process(ctx, 2, 1, db.DirectionLike)
	require.NoError(t, err)

	_, err = svc.End(ctx, r.MatchID, 1, db.MatchUnmatched)
	require.NoError(t, err)

	_, err = svc.End(ctx, r.MatchID, 2, db.MatchBlocked)
	assert.ErrorIs(t, err, apperr.ErrStateConflict)
}

func TestEndRequiresParticipant(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.DefaultEngine())

	_, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)
	r, err := svc.Process(ctx, 2, 1, db.DirectionLike)
	require.NoError(t, err)

	_, err = svc.End(ctx, r.MatchID, 3, db.MatchUnmatched)
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestRemainingLimits(t *testing.T) {
	ctx := context.Background()
	engine := config.DefaultEngine()
	engine.DailyLikes = 5
	svc, _ := setupService(t, engine)

	_, err := svc.Process(ctx, 1, 2, db.DirectionLike)
	require.NoError(t, err)

	remaining, err := svc.RemainingLimits(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, 4, remaining[db.DirectionLike])
	assert.Equal(t, -1, remaining[db.DirectionPass]) // unlimited
}

func TestListMatchesReturnsActiveOnly(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t, config.DefaultEngine())

	for _, partner := range []uint64{2, 3} {
		_, err := svc.Process(ctx, 1, partner, db.DirectionLike)
		require.NoError(t, err)
		_, err = svc.Process(ctx, partner, 1, db.DirectionLike)
		require.NoError(t, err)
	}
	_, err := svc.End(ctx, pairlock.MatchID(1, 3), 1, db.MatchUnmatched)
	require.NoError(t, err)

	matches, token, err := svc.ListMatches(ctx, 1, nil, 0)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, pairlock.MatchID(1, 2), matches[0].ID)
	assert.Nil(t, token)
}
