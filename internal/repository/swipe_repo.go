package repository

import (
	"context"
	"time"

	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/utils/pagination"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// likedDirections is the SQL-side set of directions that count as a like.
var likedDirections = []db.Direction{db.DirectionRight, db.DirectionUp}

// SwipeRepository provides data access for the swipe ledger. It encapsulates
// all queries on directional decisions between users, per mode.
type SwipeRepository struct {
	db *gorm.DB
}

// NewSwipeRepository creates a new repository bound to the given DB connection.
func NewSwipeRepository(database *gorm.DB) *SwipeRepository {
	return &SwipeRepository{db: database}
}

// CreateOrUpdateSwipe upserts the swipe made by actor -> target in a mode.
//
// Behavior:
//   - If the (actor_id, target_id, mode) row exists, direction is overwritten
//     (last-write-wins on a re-swipe).
//   - Otherwise a new row is inserted.
//   - The composite PK gives the overwrite guarantee; a timed-out call is
//     safely retryable.
func (r *SwipeRepository) CreateOrUpdateSwipe(
	ctx context.Context,
	actorID, targetID uint64,
	mode db.Mode,
	direction db.Direction,
) error {
	swipe := db.Swipe{
		ActorID:   actorID,
		TargetID:  targetID,
		Mode:      mode,
		Direction: direction,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "actor_id"}, {Name: "target_id"}, {Name: "mode"}},
			DoUpdates: clause.AssignmentColumns([]string{"direction", "updated_at"}),
		}).
		Create(&swipe).Error
}

// HasLiked checks whether actor has an active like on target in a mode.
// Used for the mutual-like check in RecordSwipe.
func (r *SwipeRepository) HasLiked(
	ctx context.Context,
	actorID, targetID uint64,
	mode db.Mode,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("actor_id = ? AND target_id = ? AND mode = ? AND direction IN ?",
			actorID, targetID, mode, likedDirections).
		Count(&count).Error
	return count > 0, err
}

// GetLikers returns users who liked the given target in a mode.
//
// Behavior:
//   - Only likes (direction right/up) toward target are returned.
//   - Excludes users the target explicitly passed (swiped left on).
//   - Ordered by updated_at DESC, actor_id DESC.
//   - Supports cursor-based pagination via paginationToken.
func (r *SwipeRepository) GetLikers(
	ctx context.Context,
	targetID uint64,
	mode db.Mode,
	paginationToken *string,
	limit int,
) ([]db.Swipe, *string, error) {
	return r.likers(ctx, targetID, mode, paginationToken, limit, false)
}

// GetNewLikers returns users who liked the target but have not been liked
// back yet (mutual likes are excluded on top of GetLikers semantics).
func (r *SwipeRepository) GetNewLikers(
	ctx context.Context,
	targetID uint64,
	mode db.Mode,
	paginationToken *string,
	limit int,
) ([]db.Swipe, *string, error) {
	return r.likers(ctx, targetID, mode, paginationToken, limit, true)
}

func (r *SwipeRepository) likers(
	ctx context.Context,
	targetID uint64,
	mode db.Mode,
	paginationToken *string,
	limit int,
	excludeMutual bool,
) ([]db.Swipe, *string, error) {
	var swipes []db.Swipe

	cursor, err := pagination.Decode(getString(paginationToken))
	if err != nil {
		return nil, nil, err
	}

	query := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.target_id = ? AND s.mode = ? AND s.direction IN ?", targetID, mode, likedDirections).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s2
				WHERE s2.actor_id = ?
				  AND s2.target_id = s.actor_id
				  AND s2.mode = s.mode
				  AND s2.direction = ?
			)`, targetID, db.DirectionLeft).
		Order("s.updated_at DESC, s.actor_id DESC").
		Limit(limit + 1)

	if excludeMutual {
		sub := r.db.
			Table("swipes").
			Select("1").
			Where("actor_id = s.target_id AND target_id = s.actor_id AND mode = s.mode AND direction IN ?",
				likedDirections)
		query = query.Where("NOT EXISTS (?)", sub)
	}

	if cursor.ActorID > 0 && cursor.UpdatedUnix > 0 {
		ts := time.UnixMilli(cursor.UpdatedUnix)
		query = query.Where(
			"(s.updated_at < ? OR (s.updated_at = ? AND s.actor_id < ?))",
			ts, ts, cursor.ActorID,
		)
	}

	if err := query.Find(&swipes).Error; err != nil {
		return nil, nil, err
	}

	var nextToken *string
	if len(swipes) > limit {
		last := swipes[limit-1]
		token, _ := pagination.Encode(pagination.Cursor{
			ActorID:     last.ActorID,
			UpdatedUnix: last.UpdatedAt.UnixMilli(),
		})
		nextToken = &token
		swipes = swipes[:limit]
	}

	return swipes, nextToken, nil
}

// CountLikers returns how many users liked the given target in a mode,
// with the same pass-exclusion semantics as GetLikers. Backs the Redis
// counter cache.
func (r *SwipeRepository) CountLikers(
	ctx context.Context,
	targetID uint64,
	mode db.Mode,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("swipes s").
		Where("s.target_id = ? AND s.mode = ? AND s.direction IN ?", targetID, mode, likedDirections).
		Where(`
			NOT EXISTS (
				SELECT 1 FROM swipes s2
				WHERE s2.actor_id = ?
				  AND s2.target_id = s.actor_id
				  AND s2.mode = s.mode
				  AND s2.direction = ?
			)`, targetID, db.DirectionLeft).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// SwipedIDs returns every target the actor has already swiped on in a mode,
// regardless of direction. Feeds the caller-side exclusion set.
func (r *SwipeRepository) SwipedIDs(
	ctx context.Context,
	actorID uint64,
	mode db.Mode,
) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Model(&db.Swipe{}).
		Where("actor_id = ? AND mode = ?", actorID, mode).
		Order("target_id").
		Pluck("target_id", &ids).Error
	return ids, err
}

// MutualLikeIDs returns the users that share a mutual like with userID in a
// mode. Used by the self-healing pass that re-derives matches missed by a
// partial failure: swipes are the ledger, matches are re-derivable.
func (r *SwipeRepository) MutualLikeIDs(
	ctx context.Context,
	userID uint64,
	mode db.Mode,
) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).
		Table("swipes s1").
		Joins(`JOIN swipes s2
			ON s2.actor_id = s1.target_id
			AND s2.target_id = s1.actor_id
			AND s2.mode = s1.mode`).
		Where("s1.actor_id = ? AND s1.mode = ?", userID, mode).
		Where("s1.direction IN ? AND s2.direction IN ?", likedDirections, likedDirections).
		Order("s1.target_id").
		Pluck("s1.target_id", &ids).Error
	return ids, err
}

// getString safely dereferences a string pointer for pagination tokens.
func getString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
