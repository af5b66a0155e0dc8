package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/db"
)

// ProfileRepository reads user profiles. Profiles are owned by a
// collaborator service; the engine only reads them.
type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get fetches one profile by id.
func (r *ProfileRepository) Get(ctx context.Context, id uint64) (*db.Profile, error) {
	var p db.Profile
	if err := r.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return &p, nil
}

// GetMany batch-fetches profiles by id, avoiding N+1 lookups upstream.
// Missing ids are silently absent from the result.
func (r *ProfileRepository) GetMany(ctx context.Context, ids []uint64) (map[uint64]*db.Profile, error) {
	out := make(map[uint64]*db.Profile, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	var profiles []db.Profile
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&profiles).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	for i := range profiles {
		out[profiles[i].ID] = &profiles[i]
	}
	return out, nil
}

// ListActive returns the active candidate pool excluding the given
// user, ordered by id for deterministic downstream selection.
func (r *ProfileRepository) ListActive(ctx context.Context, excludeID uint64, limit int) ([]*db.Profile, error) {
	var profiles []*db.Profile
	err := r.db.WithContext(ctx).
		Where("active = ? AND id <> ?", true, excludeID).
		Order("id ASC").
		Limit(limit).
		Find(&profiles).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}
	return profiles, nil
}

// BlockRepository reads the block graph. Blocking itself is a
// collaborator concern; the engine only needs the exclusion set.
type BlockRepository struct {
	db *gorm.DB
}

func NewBlockRepository(database *gorm.DB) *BlockRepository {
	return &BlockRepository{db: database}
}

// BlockedSet returns every user blocked by or blocking the given user.
func (r *BlockRepository) BlockedSet(ctx context.Context, userID uint64) (map[uint64]struct{}, error) {
	var blocks []db.Block
	err := r.db.WithContext(ctx).
		Where("user_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, apperr.Storage(err)
	}

	set := make(map[uint64]struct{}, len(blocks))
	for _, b := range blocks {
		if b.UserID == userID {
			set[b.BlockedID] = struct{}{}
		} else {
			set[b.UserID] = struct{}{}
		}
	}
	return set, nil
}
