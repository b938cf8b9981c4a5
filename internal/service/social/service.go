package social

import (
	"context"
	"errors"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/db"
	svcErr "github.com/kindredapp/engine/internal/errors"
	"github.com/kindredapp/engine/internal/realtime"
	"github.com/kindredapp/engine/internal/repository"

	"gorm.io/gorm"
)

// FriendRequestView is a friend request row for API responses.
type FriendRequestView struct {
	ID          uint64 `json:"id"`
	RequesterID uint64 `json:"requesterId"`
	AddresseeID uint64 `json:"addresseeId"`
	Status      string `json:"status"`
	CreatedAt   int64  `json:"createdAt"`
}

// Service owns friend requests, blocks and the exclusion-set queries the
// feed builder's callers compose.
type Service struct {
	appCtx     *app.AppContext
	friendRepo *repository.FriendRepository
	swipeRepo  *repository.SwipeRepository
	convRepo   *repository.ConversationRepository
}

// NewService creates the social service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:     appCtx,
		friendRepo: repository.NewFriendRepository(appCtx.DB),
		swipeRepo:  repository.NewSwipeRepository(appCtx.DB),
		convRepo:   repository.NewConversationRepository(appCtx.DB),
	}
}

// SendFriendRequest records requester -> addressee and notifies the
// addressee. Idempotent: re-sending a pending or accepted request returns
// the existing row; a declined one returns to pending.
func (s *Service) SendFriendRequest(
	ctx context.Context,
	requesterID, addresseeID uint64,
) (*FriendRequestView, error) {
	if requesterID == 0 || addresseeID == 0 {
		return nil, svcErr.InvalidArgument("requester and addressee ids are required")
	}
	if requesterID == addresseeID {
		return nil, svcErr.InvalidArgument("cannot send a friend request to yourself")
	}

	// the pair holds at most one request row; route by its state and direction
	existing, err := s.friendRepo.GetRequestBetween(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if existing != nil && existing.RequesterID == addresseeID {
		switch existing.Status {
		case db.FriendRequestAccepted:
			// already friends, nothing new to send
			return viewOf(existing), nil
		case db.FriendRequestPending:
			// an open request in the other direction is answered, not doubled
			return s.respond(ctx, existing, true)
		default:
			// the decline ran the other way; flip the row toward the new
			// addressee and reopen it
			req, err := s.friendRepo.ReopenToward(ctx, existing.ID, requesterID, addresseeID)
			if err != nil {
				return nil, svcErr.Map(err)
			}
			s.appCtx.Notifier.Publish(ctx, addresseeID,
				realtime.NewEvent(realtime.TopicFriendRequests, "friend_request", req.ID, realtime.ChangeCreated))
			return viewOf(req), nil
		}
	}

	req, err := s.friendRepo.UpsertRequest(ctx, requesterID, addresseeID)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if req.Status == db.FriendRequestPending {
		s.appCtx.Notifier.Publish(ctx, addresseeID,
			realtime.NewEvent(realtime.TopicFriendRequests, "friend_request", req.ID, realtime.ChangeCreated))
	}
	return viewOf(req), nil
}

// RespondToFriendRequest lets the addressee accept or decline. Accepting
// ensures the friends conversation exists, the same side effect as a dating
// match, and reactivates both members so a re-formed pair is never stuck
// mutually Left. Accepting an already-accepted request is a no-op.
func (s *Service) RespondToFriendRequest(
	ctx context.Context,
	requestID, responderID uint64,
	accept bool,
) (*FriendRequestView, error) {
	req, err := s.friendRepo.GetRequest(ctx, requestID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("friend request not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if responderID != req.AddresseeID {
		return nil, svcErr.InvalidArgument("only the addressee can respond to a friend request")
	}
	if req.Status == db.FriendRequestAccepted && accept {
		return viewOf(req), nil // idempotent re-accept
	}
	if req.Status != db.FriendRequestPending {
		return nil, svcErr.FailedPrecondition("friend request was already responded to")
	}

	return s.respond(ctx, req, accept)
}

func (s *Service) respond(
	ctx context.Context,
	req *db.FriendRequest,
	accept bool,
) (*FriendRequestView, error) {
	status := db.FriendRequestDeclined
	if accept {
		status = db.FriendRequestAccepted
	}
	if err := s.friendRepo.UpdateStatus(ctx, req.ID, status); err != nil {
		return nil, svcErr.Map(err)
	}
	req.Status = status

	if accept {
		conv, created, err := s.convRepo.FetchOrCreate(
			ctx, req.RequesterID, req.AddresseeID, db.ConversationFriends)
		if err != nil {
			return nil, svcErr.Map(err)
		}
		if !created {
			// re-formed friendship: bring the conversation back for both
			if err := s.convRepo.Reactivate(ctx, conv.ID, req.RequesterID, req.AddresseeID); err != nil {
				return nil, svcErr.Map(err)
			}
		}
		s.appCtx.Logger.Info("friend request accepted",
			"request_id", req.ID, "conversation_id", conv.ID)
		for _, uid := range []uint64{req.RequesterID, req.AddresseeID} {
			s.appCtx.Notifier.Publish(ctx, uid,
				realtime.NewEvent(realtime.TopicConversations, "conversation", conv.ID, realtime.ChangeCreated))
		}
	}

	s.appCtx.Notifier.Publish(ctx, req.RequesterID,
		realtime.NewEvent(realtime.TopicFriendRequests, "friend_request", req.ID, realtime.ChangeUpdated))

	return viewOf(req), nil
}

// ListPendingRequests returns requests awaiting the user's response.
func (s *Service) ListPendingRequests(ctx context.Context, userID uint64) ([]FriendRequestView, error) {
	if userID == 0 {
		return nil, svcErr.InvalidArgument("user_id is required")
	}
	reqs, err := s.friendRepo.PendingRequests(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]FriendRequestView, 0, len(reqs))
	for i := range reqs {
		out = append(out, *viewOf(&reqs[i]))
	}
	return out, nil
}

// FriendIDs returns the user's accepted friends.
func (s *Service) FriendIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	if userID == 0 {
		return nil, svcErr.InvalidArgument("user_id is required")
	}
	ids, err := s.friendRepo.FriendIDs(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return ids, nil
}

// BlockUser records a directed block. Idempotent. The pair drops out of each
// other's feeds via BlockedExclusionIDs; any existing conversation is left
// untouched; block and hide are independent primitives that callers compose.
func (s *Service) BlockUser(ctx context.Context, blockerID, blockedID uint64) error {
	if blockerID == 0 || blockedID == 0 {
		return svcErr.InvalidArgument("blocker and blocked ids are required")
	}
	if blockerID == blockedID {
		return svcErr.InvalidArgument("cannot block yourself")
	}
	if err := s.friendRepo.CreateBlock(ctx, blockerID, blockedID); err != nil {
		return svcErr.Map(err)
	}
	s.appCtx.Logger.Info("user blocked", "blocker", blockerID, "blocked", blockedID)
	return nil
}

// SwipedIDs returns every id the user already swiped on in a mode, for the
// caller-side exclusion set.
func (s *Service) SwipedIDs(ctx context.Context, userID uint64, mode db.Mode) ([]uint64, error) {
	if userID == 0 {
		return nil, svcErr.InvalidArgument("user_id is required")
	}
	if !db.ValidMode(string(mode)) {
		return nil, svcErr.InvalidArgument("mode must be dating or friends")
	}
	ids, err := s.swipeRepo.SwipedIDs(ctx, userID, mode)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return ids, nil
}

// BlockedExclusionIDs returns the union of users the caller blocked and
// users who blocked the caller.
func (s *Service) BlockedExclusionIDs(ctx context.Context, userID uint64) ([]uint64, error) {
	if userID == 0 {
		return nil, svcErr.InvalidArgument("user_id is required")
	}
	ids, err := s.friendRepo.BlockedExclusionIDs(ctx, userID)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return ids, nil
}

func viewOf(req *db.FriendRequest) *FriendRequestView {
	return &FriendRequestView{
		ID:          req.ID,
		RequesterID: req.RequesterID,
		AddresseeID: req.AddresseeID,
		Status:      string(req.Status),
		CreatedAt:   req.CreatedAt.UnixMilli(),
	}
}
