package repository

import (
	"context"
	"errors"

	"github.com/kindredapp/engine/internal/db"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// FriendRepository provides data access for friend requests and blocks, and
// produces the exclusion sets the candidate feed is filtered by.
type FriendRepository struct {
	db *gorm.DB
}

// NewFriendRepository creates a new repository bound to the given DB
// connection.
func NewFriendRepository(database *gorm.DB) *FriendRepository {
	return &FriendRepository{db: database}
}

// UpsertRequest records requester -> addressee. A brand-new or previously
// declined request lands in pending; a pending or accepted one is returned
// as-is (re-sending never downgrades status).
func (r *FriendRepository) UpsertRequest(
	ctx context.Context,
	requesterID, addresseeID uint64,
) (*db.FriendRequest, error) {
	req := db.FriendRequest{
		RequesterID: requesterID,
		AddresseeID: addresseeID,
		Status:      db.FriendRequestPending,
	}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&req)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 1 {
		return &req, nil
	}

	if err := r.db.WithContext(ctx).
		Where("requester_id = ? AND addressee_id = ?", requesterID, addresseeID).
		First(&req).Error; err != nil {
		return nil, err
	}
	if req.Status == db.FriendRequestDeclined {
		if err := r.db.WithContext(ctx).
			Model(&db.FriendRequest{}).
			Where("id = ?", req.ID).
			Update("status", db.FriendRequestPending).Error; err != nil {
			return nil, err
		}
		req.Status = db.FriendRequestPending
	}
	return &req, nil
}

// ReopenToward rewrites the pair's single request row so that requester asks
// addressee, returning the status to pending. Used when the pair's earlier
// request ran in the opposite direction and was declined: the one row per
// pair flips rather than gaining a sibling.
func (r *FriendRepository) ReopenToward(
	ctx context.Context,
	requestID, requesterID, addresseeID uint64,
) (*db.FriendRequest, error) {
	if err := r.db.WithContext(ctx).
		Model(&db.FriendRequest{}).
		Where("id = ?", requestID).
		Updates(map[string]any{
			"requester_id": requesterID,
			"addressee_id": addresseeID,
			"status":       db.FriendRequestPending,
		}).Error; err != nil {
		return nil, err
	}
	return r.GetRequest(ctx, requestID)
}

// GetRequest returns a friend request by id.
func (r *FriendRepository) GetRequest(ctx context.Context, id uint64) (*db.FriendRequest, error) {
	var req db.FriendRequest
	if err := r.db.WithContext(ctx).First(&req, id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

// GetRequestBetween returns the request between two users in either
// direction, or nil when none exists.
func (r *FriendRepository) GetRequestBetween(
	ctx context.Context,
	userA, userB uint64,
) (*db.FriendRequest, error) {
	var req db.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? AND addressee_id = ?) OR (requester_id = ? AND addressee_id = ?)",
			userA, userB, userB, userA).
		First(&req).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// UpdateStatus moves a request to the given status.
func (r *FriendRepository) UpdateStatus(
	ctx context.Context,
	requestID uint64,
	status db.FriendRequestStatus,
) error {
	return r.db.WithContext(ctx).
		Model(&db.FriendRequest{}).
		Where("id = ?", requestID).
		Update("status", status).Error
}

// PendingRequests returns requests awaiting a response from userID.
func (r *FriendRepository) PendingRequests(
	ctx context.Context,
	userID uint64,
) ([]db.FriendRequest, error) {
	var reqs []db.FriendRequest
	err := r.db.WithContext(ctx).
		Where("addressee_id = ? AND status = ?", userID, db.FriendRequestPending).
		Order("created_at DESC, id DESC").
		Find(&reqs).Error
	return reqs, err
}

// FriendIDs returns the ids of everyone userID has an accepted request with,
// in either direction.
func (r *FriendRepository) FriendIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	var reqs []db.FriendRequest
	err := r.db.WithContext(ctx).
		Where("(requester_id = ? OR addressee_id = ?) AND status = ?",
			userID, userID, db.FriendRequestAccepted).
		Find(&reqs).Error
	if err != nil {
		return nil, err
	}
	ids := make([]uint64, 0, len(reqs))
	for _, req := range reqs {
		if req.RequesterID == userID {
			ids = append(ids, req.AddresseeID)
		} else {
			ids = append(ids, req.RequesterID)
		}
	}
	return ids, nil
}

// CreateBlock records blocker -> blocked. Idempotent via the composite PK.
func (r *FriendRepository) CreateBlock(
	ctx context.Context,
	blockerID, blockedID uint64,
) error {
	block := db.Block{BlockerID: blockerID, BlockedID: blockedID}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&block).Error
}

// BlockedExclusionIDs returns the union of users the caller blocked and
// users who blocked the caller. Feed hiding is symmetric: neither side of a
// block should ever see the other again.
func (r *FriendRepository) BlockedExclusionIDs(
	ctx context.Context,
	userID uint64,
) ([]uint64, error) {
	var blocks []db.Block
	err := r.db.WithContext(ctx).
		Where("blocker_id = ? OR blocked_id = ?", userID, userID).
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}

	seen := make(map[uint64]struct{}, len(blocks))
	ids := make([]uint64, 0, len(blocks))
	for _, b := range blocks {
		other := b.BlockedID
		if other == userID {
			other = b.BlockerID
		}
		if _, dup := seen[other]; dup {
			continue
		}
		seen[other] = struct{}{}
		ids = append(ids, other)
	}
	return ids, nil
}
