// Package discover implements the read side of the engine: candidate
// finding, the daily pick, standout rankings, and match quality.
package discover

import (
	"context"
	"log/slog"
	"time"

	"github.com/sparkmatch/engine/internal/app"
	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/limits"
	"github.com/sparkmatch/engine/internal/matcher"
	"github.com/sparkmatch/engine/internal/metrics"
	"github.com/sparkmatch/engine/internal/pairlock"
	"github.com/sparkmatch/engine/internal/repository"
)

// StatsSource supplies a pair's reply behavior from the messaging
// collaborator. The default source knows nothing; the responsiveness
// factor then scores neutral.
type StatsSource interface {
	ReplyStats(ctx context.Context, userA, userB uint64) matcher.ReplyStats
}

type noStats struct{}

func (noStats) ReplyStats(context.Context, uint64, uint64) matcher.ReplyStats {
	return matcher.ReplyStats{}
}

// Service answers discovery queries. Computations for a given
// (user, day) are single-writer: a striped per-key lock plus
// insert-if-absent persistence keep concurrent callers from producing
// two different picks or rankings.
type Service struct {
	appCtx   *app.AppContext
	profiles *repository.ProfileRepository
	swipes   *repository.SwipeRepository
	matches  *repository.MatchRepository
	blocks   *repository.BlockRepository
	recs     *repository.RecommendationRepository
	scorer   *matcher.Scorer
	keyLocks *pairlock.Striped
	stats    StatsSource
	log      *slog.Logger

	now func() time.Time
}

// NewService wires the discovery service from AppContext. Fails when
// the configured scoring weights do not sum to 1.0.
func NewService(appCtx *app.AppContext) (*Service, error) {
	scorer, err := matcher.NewScorer(
		appCtx.Engine.Weights,
		appCtx.Engine.ResponsiveWeek,
		appCtx.Engine.ResponsiveMonth,
	)
	if err != nil {
		return nil, err
	}
	return &Service{
		appCtx:   appCtx,
		profiles: repository.NewProfileRepository(appCtx.DB),
		swipes:   repository.NewSwipeRepository(appCtx.DB),
		matches:  repository.NewMatchRepository(appCtx.DB),
		blocks:   repository.NewBlockRepository(appCtx.DB),
		recs:     repository.NewRecommendationRepository(appCtx.DB),
		scorer:   scorer,
		keyLocks: pairlock.NewStriped(appCtx.Engine.LockStripes),
		stats:    noStats{},
		log:      appCtx.Logger.With("subsystem", "discover"),
		now:      time.Now,
	}, nil
}

// WithStats plugs in a real reply-stats collaborator.
func (s *Service) WithStats(src StatsSource) *Service {
	s.stats = src
	return s
}

// WithNow overrides the clock. Test hook.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// FindCandidates returns the user's eligible candidate pool, ordered
// by profile id. No candidates is an empty result, never an error.
func (s *Service) FindCandidates(ctx context.Context, userID uint64) ([]*db.Profile, error) {
	seeker, err := s.profiles.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.eligible(ctx, seeker)
}

// ComputeQuality scores an existing match from the viewer's side.
// Works for archived matches too; history screens still show quality.
func (s *Service) ComputeQuality(ctx context.Context, matchID string, viewerID uint64) (*matcher.Quality, error) {
	match, err := s.matches.Get(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if !match.Involves(viewerID) {
		return nil, apperr.Validationf("user %d is not part of match %s", viewerID, matchID)
	}

	otherID := match.Other(viewerID)
	pair, err := s.profiles.GetMany(ctx, []uint64{viewerID, otherID})
	if err != nil {
		return nil, err
	}
	viewer, ok := pair[viewerID]
	if !ok {
		return nil, apperr.NotFoundf("profile %d", viewerID)
	}
	other, ok := pair[otherID]
	if !ok {
		return nil, apperr.NotFoundf("profile %d", otherID)
	}

	q := s.scorer.Score(viewer, other, s.stats.ReplyStats(ctx, viewerID, otherID))
	metrics.RecordQualityScore(q.Score)
	return &q, nil
}

// eligible loads the pool and exclusion sets once and filters. The
// seeker's derived state is computed a single time for the whole pool.
func (s *Service) eligible(ctx context.Context, seeker *db.Profile) ([]*db.Profile, error) {
	pool, err := s.profiles.ListActive(ctx, seeker.ID, s.appCtx.Engine.PoolLimit)
	if err != nil {
		return nil, err
	}
	blocked, err := s.blocks.BlockedSet(ctx, seeker.ID)
	if err != nil {
		return nil, err
	}

	var since *time.Time
	if s.appCtx.Engine.Reswipe == "daily" {
		t := s.startOfDay(seeker.Timezone)
		since = &t
	}
	swiped, err := s.swipes.SwipedTargets(ctx, seeker.ID, since)
	if err != nil {
		return nil, err
	}

	return matcher.NewFilter(seeker, blocked, swiped).Apply(pool), nil
}

func (s *Service) dayKey(zone string) string {
	return limits.DayKey(s.now(), zone, s.appCtx.Engine.DayZone)
}

func (s *Service) startOfDay(zone string) time.Time {
	loc := limits.Location(zone, s.appCtx.Engine.DayZone)
	y, m, d := s.now().In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}
