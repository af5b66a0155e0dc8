package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/db"
)

// RecommendationRepository stores daily picks and standout rankings so
// they survive restarts; the redis layer in front of it is a hot cache
// only.
type RecommendationRepository struct {
	db *gorm.DB
}

func NewRecommendationRepository(database *gorm.DB) *RecommendationRepository {
	return &RecommendationRepository{db: database}
}

// GetDailyPick fetches the persisted pick for (user, day), if any.
func (r *RecommendationRepository) GetDailyPick(ctx context.Context, userID uint64, dayKey string) (*db.DailyPick, error) {
	var p db.DailyPick
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND day_key = ?", userID, dayKey).
		First(&p).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &p, nil
}

// SaveDailyPick persists a pick. Insert-if-absent on the composite PK:
// when two computations race, the first write wins and both callers
// end up returning the same persisted pick.
func (r *RecommendationRepository) SaveDailyPick(ctx context.Context, pick *db.DailyPick) (*db.DailyPick, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(pick)
	if res.Error != nil {
		return nil, apperr.Storage(res.Error)
	}
	if res.RowsAffected > 0 {
		return pick, nil
	}
	return r.GetDailyPick(ctx, pick.UserID, pick.DayKey)
}

// MarkPickViewed flags the pick as seen.
func (r *RecommendationRepository) MarkPickViewed(ctx context.Context, userID uint64, dayKey string) error {
	err := r.db.WithContext(ctx).
		Model(&db.DailyPick{}).
		Where("user_id = ? AND day_key = ?", userID, dayKey).
		Update("viewed", true).Error
	return apperr.Storage(err)
}

// GetStandouts returns the cached ranking for (user, day) in rank order.
func (r *RecommendationRepository) GetStandouts(ctx context.Context, userID uint64, dayKey string) ([]db.StandoutEntry, error) {
	var entries []db.StandoutEntry
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND day_key = ?", userID, dayKey).
		Order("rank_no ASC").
		Find(&entries).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return entries, nil
}

// SaveStandouts persists a day's ranking in one batch. Insert-if-absent
// per (user, day, rank): a racing recomputation cannot splice two
// different rankings together.
func (r *RecommendationRepository) SaveStandouts(ctx context.Context, entries []db.StandoutEntry) error {
	if len(entries) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&entries).Error
	return apperr.Storage(err)
}

// MarkStandoutInteracted flags a standout once the user swipes on it.
func (r *RecommendationRepository) MarkStandoutInteracted(ctx context.Context, userID uint64, dayKey string, candidateID uint64) error {
	err := r.db.WithContext(ctx).
		Model(&db.StandoutEntry{}).
		Where("user_id = ? AND day_key = ? AND candidate_id = ?", userID, dayKey, candidateID).
		Update("has_interacted", true).Error
	return apperr.Storage(err)
}
