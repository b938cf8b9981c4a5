package repository

import (
	"context"

	"github.com/kindredapp/engine/internal/db"

	"gorm.io/gorm"
)

// maxCandidateFetch caps the candidate scan; ordering and truncation to the
// caller's limit happen in the service after distance sorting.
const maxCandidateFetch = 500

// ProfileRepository provides read access to profiles for the feed builder.
type ProfileRepository struct {
	db *gorm.DB
}

// NewProfileRepository creates a new repository bound to the given DB
// connection.
func NewProfileRepository(database *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: database}
}

// Get returns one profile by user id.
func (r *ProfileRepository) Get(ctx context.Context, userID uint64) (*db.Profile, error) {
	var profile db.Profile
	if err := r.db.WithContext(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return &profile, nil
}

// Candidates returns active profiles compatible with the given mode,
// excluding the requester and every id in excludeIDs. Rows come back in
// recency order with an id tiebreak; distance ordering is applied by the
// service when coordinates are available.
//
// A stale or empty exclusion set is fine: swipe recording is idempotent, so
// a candidate that should have been excluded is harmless to show.
func (r *ProfileRepository) Candidates(
	ctx context.Context,
	requesterID uint64,
	mode db.Mode,
	excludeIDs []uint64,
) ([]db.Profile, error) {
	compatible := []db.LookingFor{db.LookingFor(mode), db.LookingForBoth}

	query := r.db.WithContext(ctx).
		Table("profiles p").
		Joins("JOIN users u ON u.id = p.user_id").
		Where("u.active = ?", true).
		Where("p.user_id <> ?", requesterID).
		Where("p.looking_for IN ?", compatible).
		Order("p.last_active_at DESC, p.user_id ASC").
		Limit(maxCandidateFetch)

	if len(excludeIDs) > 0 {
		query = query.Where("p.user_id NOT IN ?", excludeIDs)
	}

	var profiles []db.Profile
	if err := query.Find(&profiles).Error; err != nil {
		return nil, err
	}
	return profiles, nil
}

// TouchLastActive refreshes a profile's last-active timestamp.
func (r *ProfileRepository) TouchLastActive(ctx context.Context, userID uint64) error {
	return r.db.WithContext(ctx).
		Model(&db.Profile{}).
		Where("user_id = ?", userID).
		Update("last_active_at", gorm.Expr("CURRENT_TIMESTAMP")).Error
}
