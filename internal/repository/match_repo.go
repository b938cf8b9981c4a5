package repository

import (
	"context"

	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/pair"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MatchRepository provides data access for derived Match rows, keyed by the
// canonical unordered pair plus mode.
type MatchRepository struct {
	db *gorm.DB
}

// NewMatchRepository creates a new repository bound to the given DB connection.
func NewMatchRepository(database *gorm.DB) *MatchRepository {
	return &MatchRepository{db: database}
}

// Ensure creates the Match for the pair if and only if it does not already
// exist, and reports whether this call created it.
//
// This is a single conditional write: the unique index on
// (user_a_id, user_b_id, mode) plus OnConflict DoNothing means two concurrent
// callers racing on the two swipe directions produce exactly one row; the
// loser's insert affects zero rows and it reads the winner's row back. No
// read-then-write window exists.
func (r *MatchRepository) Ensure(
	ctx context.Context,
	userA, userB uint64,
	mode db.Mode,
) (*db.Match, bool, error) {
	a, b := pair.Canonical(userA, userB)

	match := db.Match{UserAID: a, UserBID: b, Mode: mode}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&match)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	if !created {
		// lost the race or already matched; fetch the existing row
		if err := r.db.WithContext(ctx).
			Where("user_a_id = ? AND user_b_id = ? AND mode = ?", a, b, mode).
			First(&match).Error; err != nil {
			return nil, false, err
		}
	}
	return &match, created, nil
}

// Get returns the match for the unordered pair in a mode, or
// gorm.ErrRecordNotFound.
func (r *MatchRepository) Get(
	ctx context.Context,
	userA, userB uint64,
	mode db.Mode,
) (*db.Match, error) {
	a, b := pair.Canonical(userA, userB)
	var match db.Match
	if err := r.db.WithContext(ctx).
		Where("user_a_id = ? AND user_b_id = ? AND mode = ?", a, b, mode).
		First(&match).Error; err != nil {
		return nil, err
	}
	return &match, nil
}

// ListForUser returns every match involving userID in a mode, newest first.
func (r *MatchRepository) ListForUser(
	ctx context.Context,
	userID uint64,
	mode db.Mode,
) ([]db.Match, error) {
	var matches []db.Match
	err := r.db.WithContext(ctx).
		Where("(user_a_id = ? OR user_b_id = ?) AND mode = ?", userID, userID, mode).
		Order("created_at DESC, id DESC").
		Find(&matches).Error
	return matches, err
}

// MatchedIDs returns the ids of everyone userID is matched with in a mode.
func (r *MatchRepository) MatchedIDs(
	ctx context.Context,
	userID uint64,
	mode db.Mode,
) ([]uint64, error) {
	matches, err := r.ListForUser(ctx, userID, mode)
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, pair.Other(m.UserAID, m.UserBID, userID))
	}
	return ids, nil
}
