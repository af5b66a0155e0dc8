package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/sparkmatch/engine/internal/apperr"
	"github.com/sparkmatch/engine/internal/db"
	"github.com/sparkmatch/engine/internal/utils/pagination"
)

// MatchRepository provides data access for match rows.
type MatchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// CreateIfAbsent inserts the match row for a canonical id, or fetches
// the existing one.
//
// Insert-if-absent by primary key makes creation idempotent under
// races: when two goroutines both believe they should create the
// match, the loser's insert is a no-op and it returns the winner's
// row. The returned created flag is true only for the actual insert.
// An existing archived row is returned as-is; it is never resurrected.
func (r *MatchRepository) CreateIfAbsent(ctx context.Context, id string, userA, userB uint64) (*db.Match, bool, error) {
	low, high := userA, userB
	if low > high {
		low, high = high, low
	}

	m := db.Match{ID: id, UserLowID: low, UserHighID: high, State: db.MatchActive}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&m)
	if res.Error != nil {
		return nil, false, apperr.Storage(res.Error)
	}
	if res.RowsAffected > 0 {
		return &m, true, nil
	}

	existing, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}

// Get fetches a match by canonical id.
func (r *MatchRepository) Get(ctx context.Context, id string) (*db.Match, error) {
	var m db.Match
	if err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error; err != nil {
		return nil, apperr.Storage(err)
	}
	return &m, nil
}

// Delete removes a match row. Only undo uses this, to take back a
// match created by the swipe being undone.
func (r *MatchRepository) Delete(ctx context.Context, id string) error {
	return apperr.Storage(r.db.WithContext(ctx).Delete(&db.Match{}, "id = ?", id).Error)
}

// Transition moves an active match into a terminal state. One-way: the
// guarded UPDATE only fires while the row is still active, so archived
// matches stay archived no matter how calls interleave.
func (r *MatchRepository) Transition(ctx context.Context, id, toState string, byUser uint64) (*db.Match, error) {
	if !db.TerminalState(toState) {
		return nil, apperr.Validationf("unknown terminal state %q", toState)
	}

	now := time.Now()
	res := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("id = ? AND state = ?", id, db.MatchActive).
		Updates(map[string]any{"state": toState, "ended_by": byUser, "ended_at": now})
	if res.Error != nil {
		return nil, apperr.Storage(res.Error)
	}

	m, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.RowsAffected == 0 {
		return m, apperr.StateConflictf("match %s already %s", id, m.State)
	}
	return m, nil
}

// ListActive returns a page of the user's active matches, most
// recently updated first, with a cursor token for the next page.
func (r *MatchRepository) ListActive(ctx context.Context, userID uint64, paginationToken *string, limit int) ([]db.Match, *string, error) {
	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, apperr.Validationf("%v", err)
	}

	q := r.db.WithContext(ctx).
		Where("(user_low_id = ? OR user_high_id = ?) AND state = ?", userID, userID, db.MatchActive).
		Order("updated_at DESC, id DESC").
		Limit(limit + 1)

	if cursor.MatchID != "" && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		q = q.Where("(updated_at < ? OR (updated_at = ? AND id < ?))", ts, ts, cursor.MatchID)
	}

	var matches []db.Match
	if err := q.Find(&matches).Error; err != nil {
		return nil, nil, apperr.Storage(err)
	}

	var nextToken *string
	if len(matches) > limit {
		last := matches[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			MatchID:     last.ID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		matches = matches[:limit]
	}

	return matches, nextToken, nil
}

// CountActive counts the user's active matches.
func (r *MatchRepository) CountActive(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Match{}).
		Where("(user_low_id = ? OR user_high_id = ?) AND state = ?", userID, userID, db.MatchActive).
		Count(&count).Error
	return count, apperr.Storage(err)
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
