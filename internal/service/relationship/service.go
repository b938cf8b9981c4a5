package relationship

import (
	"context"
	"time"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/db"
	svcErr "github.com/kindredapp/engine/internal/errors"
	"github.com/kindredapp/engine/internal/pair"
	"github.com/kindredapp/engine/internal/realtime"
	"github.com/kindredapp/engine/internal/repository"
)

// MatchResult is returned to a swiper whose like completed (or re-confirmed)
// a mutual pair.
type MatchResult struct {
	MatchID        uint64 `json:"matchId"`
	OtherUserID    uint64 `json:"otherUserId"`
	Mode           string `json:"mode"`
	ConversationID uint64 `json:"conversationId"`
	CreatedAt      int64  `json:"createdAt"`
}

// MatchSummary is one row of a match listing.
type MatchSummary struct {
	MatchID        uint64 `json:"matchId"`
	OtherUserID    uint64 `json:"otherUserId"`
	Mode           string `json:"mode"`
	ConversationID uint64 `json:"conversationId"`
	CreatedAt      int64  `json:"createdAt"`
}

// Service owns the swipe ledger and mutual-match detection.
type Service struct {
	appCtx    *app.AppContext
	swipeRepo *repository.SwipeRepository
	matchRepo *repository.MatchRepository
	convRepo  *repository.ConversationRepository
}

// NewService creates the relationship service with dependencies from
// AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:    appCtx,
		swipeRepo: repository.NewSwipeRepository(appCtx.DB),
		matchRepo: repository.NewMatchRepository(appCtx.DB),
		convRepo:  repository.NewConversationRepository(appCtx.DB),
	}
}

// RecordSwipe upserts the swipe and, on a like, runs mutual-match detection.
//
// Behavior:
//   - Validates actor/target/direction/mode; swiping on yourself is rejected.
//   - The swipe write is an upsert (last-write-wins on direction), so a
//     timed-out request is safely retried.
//   - On a mutual like, match creation is a single conditional write keyed by
//     the canonical pair+mode: two concurrent swipes for the two directions
//     yield exactly one Match. The conversation is then ensured with the same
//     idempotent semantics, so a crash between the two steps heals on retry.
//   - Realtime events (one `matches` event per participant, a `swipes` event
//     to the target of a like) fire only for the writer that actually created
//     the match; the other swiper's client learns via its event stream.
//
// Returns the match when the pair is mutual, nil otherwise.
func (s *Service) RecordSwipe(
	ctx context.Context,
	actorID, targetID uint64,
	direction db.Direction,
	mode db.Mode,
) (*MatchResult, error) {
	log := s.appCtx.Logger
	log.Debug("RecordSwipe called",
		"actor", actorID, "target", targetID, "direction", direction, "mode", mode)

	if actorID == 0 || targetID == 0 {
		return nil, svcErr.InvalidArgument("actor and target user ids are required")
	}
	if actorID == targetID {
		return nil, svcErr.InvalidArgument("cannot swipe on yourself")
	}
	if !db.ValidDirection(string(direction)) {
		return nil, svcErr.InvalidArgument("direction must be left, right or up")
	}
	if !db.ValidMode(string(mode)) {
		return nil, svcErr.InvalidArgument("mode must be dating or friends")
	}

	if err := s.swipeRepo.CreateOrUpdateSwipe(ctx, actorID, targetID, mode, direction); err != nil {
		return nil, svcErr.Map(err)
	}

	liked := direction == db.DirectionRight || direction == db.DirectionUp

	// keep the target's cached like count warm
	key := s.appCtx.RedisCache.KeyForLikeCount(targetID, string(mode))
	if liked {
		_, _ = s.appCtx.RedisCache.Incr(ctx, key)
	} else {
		_, _ = s.appCtx.RedisCache.Decr(ctx, key)
	}
	_ = s.appCtx.RedisCache.Client.Expire(ctx, key, time.Hour).Err()

	if !liked {
		return nil, nil
	}

	s.appCtx.Notifier.Publish(ctx, targetID,
		realtime.NewEvent(realtime.TopicSwipes, "like", actorID, realtime.ChangeCreated))

	mutual, err := s.swipeRepo.HasLiked(ctx, targetID, actorID, mode)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if !mutual {
		return nil, nil
	}

	return s.ensureMatch(ctx, actorID, targetID, mode)
}

// ensureMatch creates (or re-reads) the match and its conversation for a
// mutual pair and fans out creation events exactly once.
func (s *Service) ensureMatch(
	ctx context.Context,
	userA, userB uint64,
	mode db.Mode,
) (*MatchResult, error) {
	match, created, err := s.matchRepo.Ensure(ctx, userA, userB, mode)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	// Ensured even when the match already existed: if an earlier writer died
	// between match and conversation creation, this read path repairs it.
	conv, _, err := s.convRepo.FetchOrCreate(ctx, userA, userB, db.ConversationTypeForMode(mode))
	if err != nil {
		return nil, svcErr.Map(err)
	}

	if created {
		s.appCtx.Logger.Info("match created",
			"match_id", match.ID, "user_a", match.UserAID, "user_b", match.UserBID, "mode", mode)
		for _, uid := range []uint64{match.UserAID, match.UserBID} {
			s.appCtx.Notifier.Publish(ctx, uid,
				realtime.NewEvent(realtime.TopicMatches, "match", match.ID, realtime.ChangeCreated))
			s.appCtx.Notifier.Publish(ctx, uid,
				realtime.NewEvent(realtime.TopicConversations, "conversation", conv.ID, realtime.ChangeCreated))
		}
	}

	return &MatchResult{
		MatchID:        match.ID,
		OtherUserID:    pair.Other(match.UserAID, match.UserBID, userA),
		Mode:           string(mode),
		ConversationID: conv.ID,
		CreatedAt:      match.CreatedAt.UnixMilli(),
	}, nil
}

// ListMatches returns the user's matches in a mode, newest first.
//
// Before reading, any mutual-like pair missing its match row is re-derived
// from the swipe ledger. Swipes are the source of truth and match creation is
// idempotent, so a write failure after swipe recording can never permanently
// drop a match; the next read repairs it.
func (s *Service) ListMatches(
	ctx context.Context,
	userID uint64,
	mode db.Mode,
) ([]MatchSummary, error) {
	if userID == 0 {
		return nil, svcErr.InvalidArgument("user_id is required")
	}
	if !db.ValidMode(string(mode)) {
		return nil, svcErr.InvalidArgument("mode must be dating or friends")
	}

	mutualIDs, err := s.swipeRepo.MutualLikeIDs(ctx, userID, mode)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	for _, other := range mutualIDs {
		if _, err := s.ensureMatch(ctx, userID, other, mode); err != nil {
			return nil, err
		}
	}

	matches, err := s.matchRepo.ListForUser(ctx, userID, mode)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := make([]MatchSummary, 0, len(matches))
	for _, m := range matches {
		other := pair.Other(m.UserAID, m.UserBID, userID)
		conv, _, err := s.convRepo.FetchOrCreate(ctx, m.UserAID, m.UserBID, db.ConversationTypeForMode(mode))
		if err != nil {
			return nil, svcErr.Map(err)
		}
		out = append(out, MatchSummary{
			MatchID:        m.ID,
			OtherUserID:    other,
			Mode:           string(m.Mode),
			ConversationID: conv.ID,
			CreatedAt:      m.CreatedAt.UnixMilli(),
		})
	}
	return out, nil
}
