package discover_test

import (
	"context"
	"fmt"
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
	"github.com/sparkmatch/engine/internal/service/discover"
)

var testClock = time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)

// seedPool inserts seeker 1 and candidates 2..5, all mutually
// compatible.
func seedPool(t *testing.T, gdb *gorm.DB) {
	t.Helper()

	profiles := make([]db.Profile, 0, 5)
	for i := uint64(1); i <= 5; i++ {
		profiles = append(profiles, db.Profile{
			ID:          i,
			DisplayName: fmt.Sprintf("user%d", i),
			Email:       fmt.Sprintf("u%d@test.com", i),
			Active:      true, Gender: "female", InterestedIn: "everyone",
			Age: 30, AgeMin: 18, AgeMax: 99,
			Interests: []string{"jazz", "climbing"},
			Timezone:  "UTC",
		})
	}
	require.NoError(t, gdb.Create(&profiles).Error)
}

func setupDiscover(t *testing.T, engine config.Engine) (*discover.Service, *gorm.DB, *miniredis.Miniredis) {
	t.Helper()

	dbName := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	gdb, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{
		NowFunc:                func() time.Time { return time.Now().UTC().Truncate(time.Millisecond) },
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, gdb.AutoMigrate(db.Models()...))
	seedPool(t, gdb)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	redisCache := cache.NewRedisCache(cfg)

	appCtx := app.New(gdb, redisCache, logger.Discard(), engine)
	svc, err := discover.NewService(appCtx)
	require.NoError(t, err)
	return svc.WithNow(func() time.Time { return testClock }), gdb, mr
}

func candidateIDs(profiles []*db.Profile) []uint64 {
	ids := make([]uint64, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	return ids
}

func TestFindCandidatesExcludesBlockedAndSwiped(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupDiscover(t, config.DefaultEngine())

	require.NoError(t, gdb.Create(&db.Block{UserID: 3, BlockedID: 1}).Error) // either direction hides
	require.NoError(t, gdb.Create(&db.Swipe{ActorID: 1, TargetID: 4, Direction: db.DirectionPass}).Error)

	got, err := svc.FindCandidates(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []uint64{2, 5}, candidateIDs(got))
}

// NewService must refuse a misweighted engine before anything is
// scored with it.
func TestNewServiceRejectsBadWeights(t *testing.T) {
	engine := config.DefaultEngine()
	engine.Weights.Age += 0.1

	gdb, err := gorm.Open(sqlite.Open("file:badweights?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	cfg := config.New()
	cfg.Redis.Addr = mr.Addr()

	appCtx := app.New(gdb, cache.NewRedisCache(cfg), logger.Discard(), engine)
	_, err = discover.NewService(appCtx)
	assert.Error(t, err)
}

// The same (user, day) always draws the same pick, even across a cold
// cache and a shrinking candidate pool.
func TestDailyPickIsStableForTheDay(t *testing.T) {
	ctx := context.Background()
	svc, gdb, mr := setupDiscover(t, config.DefaultEngine())

	first, err := svc.DailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Contains(t, []uint64{2, 3, 4, 5}, first.CandidateID)

	// Wipe the hot cache and shrink the pool to nothing; the persisted
	// pick must still come back unchanged.
	mr.FlushAll()
	require.NoError(t, gdb.Model(&db.Profile{}).Where("id <> ?", 1).Update("active", false).Error)

	second, err := svc.DailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.CandidateID, second.CandidateID)
	assert.Equal(t, first.DayKey, second.DayKey)
}

func TestDailyPickEmptyPoolMeansNoPick(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupDiscover(t, config.DefaultEngine())

	require.NoError(t, gdb.Model(&db.Profile{}).Where("id <> ?", 1).Update("active", false).Error)

	pick, err := svc.DailyPick(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, pick)
}

func TestMarkDailyPickViewed(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := setupDiscover(t, config.DefaultEngine())

	first, err := svc.DailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, first)
	require.False(t, first.Viewed)

	require.NoError(t, svc.MarkDailyPickViewed(ctx, 1))

	after, err := svc.DailyPick(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, after)
	assert.True(t, after.Viewed)
}

func TestStandoutsRankedByScore(t *testing.T) {
	ctx := context.Background()
	engine := config.DefaultEngine()
	engine.StandoutSize = 2
	svc, _, mr := setupDiscover(t, engine)

	res, err := svc.Standouts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, res.Entries, 2)
	assert.Equal(t, 1, res.Entries[0].Rank)
	assert.Equal(t, 2, res.Entries[1].Rank)
	assert.GreaterOrEqual(t, res.Entries[0].Score, res.Entries[1].Score)

	// The ranking is computed once per day: a cold cache re-reads the
	// persisted rows rather than recomputing.
	mr.FlushAll()
	again, err := svc.Standouts(ctx, 1)
	require.NoError(t, err)
	require.Len(t, again.Entries, 2)
	assert.Equal(t, res.Entries[0].CandidateID, again.Entries[0].CandidateID)
	assert.Equal(t, res.Entries[1].CandidateID, again.Entries[1].CandidateID)
}

func TestComputeQuality(t *testing.T) {
	ctx := context.Background()
	svc, gdb, _ := setupDiscover(t, config.DefaultEngine())

	id := pairlock.MatchID(1, 2)
	require.NoError(t, gdb.Create(&db.Match{
		ID: id, UserLowID: 1, UserHighID: 2, State: db.MatchActive,
	}).Error)

	q, err := svc.ComputeQuality(ctx, id, 1)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, q.Score, 0.0)
	assert.LessOrEqual(t, q.Score, 100.0)
	assert.Equal(t, 1.0, q.Factors.Interests) // identical interest sets

	_, err = svc.ComputeQuality(ctx, id, 3)
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.ComputeQuality(ctx, "missing", 1)
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}
