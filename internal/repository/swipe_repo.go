package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/db"
)

// SwipeRepository provides data access for swipe records.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// Save inserts or overwrites the actor→target decision.
//
// Composite PK (actor_id, target_id) guarantees a single row per
// ordered pair: a reswipe updates the direction instead of stacking a
// duplicate record.
func (r *SwipeRepository) Save(ctx context.Context, swipe *db.Swipe) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).
		Create(swipe).Error
	return apperr.Storage(err)
}

// Get fetches the actor→target swipe, if any.
func (r *SwipeRepository) Get(ctx context.Context, actorID, targetID uint64) (*db.Swipe, error) {
	var s db.Swipe
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		First(&s).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return &s, nil
}

// Delete removes the actor→target swipe. Used by undo.
func (r *SwipeRepository) Delete(ctx context.Context, actorID, targetID uint64) error {
	err := r.db.WithContext(ctx).
		Where("actor_id = ? AND target_id = ?", actorID, targetID).
		Delete(&db.Swipe{}).Error
	return apperr.Storage(err)
}

// HasLiked reports whether actor has a standing like (or super-like)
// toward target. The reciprocal check behind mutual-match detection.
func (r *SwipeRepository) HasLiked(ctx context.Context, actorID, targetID uint64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("actor_id = ? AND target_id = ? AND direction IN ?",
			actorID, targetID, []string{db.DirectionLike, db.DirectionSuperLike}).
		Count(&count).Error
	if err != nil {
		return false, apperr.Storage(err)
	}
	return count > 0, nil
}

// SwipedTargets returns the set of target ids the actor has decided
// on. A non-nil since restricts to swipes updated at or after it
// (daily reswipe policy).
func (r *SwipeRepository) SwipedTargets(ctx context.Context, actorID uint64, since *time.Time) (map[uint64]struct{}, error) {
	q := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("actor_id = ?", actorID)
	if since != nil {
		q = q.Where("updated_at >= ?", *since)
	}

	var ids []uint64
	if err := q.Pluck("target_id", &ids).Error; err != nil {
		return nil, apperr.Storage(err)
	}

	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// CountLikesGiven counts the actor's standing likes.
func (r *SwipeRepository) CountLikesGiven(ctx context.Context, actorID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("actor_id = ? AND direction IN ?",
			actorID, []string{db.DirectionLike, db.DirectionSuperLike}).
		Count(&count).Error
	return count, apperr.Storage(err)
}

// IsNotFound reports whether an error is the repository's not-found.
func IsNotFound(err error) bool {
	return errors.Is(err, apperr.ErrNotFound)
}
