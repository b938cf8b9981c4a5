package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/kindredapp/engine/internal/app"
	"github.com/kindredapp/engine/internal/db"
	svcErr "github.com/kindredapp/engine/internal/errors"
	"github.com/kindredapp/engine/internal/pair"
	"github.com/kindredapp/engine/internal/realtime"
	"github.com/kindredapp/engine/internal/repository"

	"gorm.io/gorm"
)

// ConversationSummary is a conversation as presented to one participant.
type ConversationSummary struct {
	ID          uint64 `json:"id"`
	Type        string `json:"type"`
	OtherUserID uint64 `json:"otherUserId"`
	Hidden      bool   `json:"hidden"`
	Unread      bool   `json:"unread"`
	UpdatedAt   int64  `json:"updatedAt"`
	CreatedAt   int64  `json:"createdAt"`
}

// MessageView is a message row for API responses.
type MessageView struct {
	ID             uint64 `json:"id"`
	ConversationID uint64 `json:"conversationId"`
	SenderID       uint64 `json:"senderId"`
	Content        string `json:"content"`
	CreatedAt      int64  `json:"createdAt"`
}

const maxMessageLen = 4000

// Service owns the conversation lifecycle and the per-participant visibility
// state machine (Active / Hidden / Left).
type Service struct {
	appCtx   *app.AppContext
	convRepo *repository.ConversationRepository
}

// NewService creates the chat service with dependencies from AppContext.
func NewService(appCtx *app.AppContext) *Service {
	return &Service{
		appCtx:   appCtx,
		convRepo: repository.NewConversationRepository(appCtx.DB),
	}
}

// FetchOrCreate returns the conversation for the unordered pair and type,
// creating it when absent. Idempotent: an existing row comes back
// unmodified, whatever its members' visibility states.
func (s *Service) FetchOrCreate(
	ctx context.Context,
	userID, otherUserID uint64,
	convType db.ConversationType,
) (*db.Conversation, error) {
	if userID == 0 || otherUserID == 0 {
		return nil, svcErr.InvalidArgument("both user ids are required")
	}
	if userID == otherUserID {
		return nil, svcErr.InvalidArgument("a conversation needs two distinct participants")
	}
	switch convType {
	case db.ConversationDating, db.ConversationFriends, db.ConversationActivity:
	default:
		return nil, svcErr.InvalidArgument("unknown conversation type")
	}

	conv, created, err := s.convRepo.FetchOrCreate(ctx, userID, otherUserID, convType)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if created {
		s.appCtx.Logger.Info("conversation created",
			"conversation_id", conv.ID, "type", convType, "user_a", conv.UserAID, "user_b", conv.UserBID)
		for _, uid := range []uint64{conv.UserAID, conv.UserBID} {
			s.appCtx.Notifier.Publish(ctx, uid,
				realtime.NewEvent(realtime.TopicConversations, "conversation", conv.ID, realtime.ChangeCreated))
		}
	}
	return conv, nil
}

// ListConversations returns the user's visible list (hidden=false) or hidden
// list (hidden=true). Conversations the user left appear in neither.
func (s *Service) ListConversations(
	ctx context.Context,
	userID uint64,
	hidden bool,
) ([]ConversationSummary, error) {
	if userID == 0 {
		return nil, svcErr.InvalidArgument("user_id is required")
	}

	views, err := s.convRepo.ListForUser(ctx, userID, hidden)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	out := make([]ConversationSummary, 0, len(views))
	for _, v := range views {
		out = append(out, ConversationSummary{
			ID:          v.Conversation.ID,
			Type:        string(v.Conversation.Type),
			OtherUserID: v.OtherUserID,
			Hidden:      v.Member.Hidden,
			Unread:      v.Unread,
			UpdatedAt:   v.Conversation.UpdatedAt.UnixMilli(),
			CreatedAt:   v.Conversation.CreatedAt.UnixMilli(),
		})
	}
	return out, nil
}

// member loads the caller's membership row, mapping a missing row to a
// NOT_FOUND on the conversation (non-participants can't probe for ids).
func (s *Service) member(
	ctx context.Context,
	conversationID, userID uint64,
) (*db.ConversationMember, error) {
	m, err := s.convRepo.GetMember(ctx, conversationID, userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("conversation not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return m, nil
}

// Hide moves the caller's view to Hidden. Reversible; messages and unread
// counters keep flowing. Hiding twice is a no-op.
func (s *Service) Hide(ctx context.Context, conversationID, userID uint64) error {
	return s.setHidden(ctx, conversationID, userID, true)
}

// Unhide restores the caller's view to Active.
func (s *Service) Unhide(ctx context.Context, conversationID, userID uint64) error {
	return s.setHidden(ctx, conversationID, userID, false)
}

func (s *Service) setHidden(ctx context.Context, conversationID, userID uint64, hidden bool) error {
	m, err := s.member(ctx, conversationID, userID)
	if err != nil {
		return err
	}
	if m.Left() {
		return svcErr.FailedPrecondition("conversation was left and cannot be hidden or unhidden")
	}
	if err := s.convRepo.SetHidden(ctx, conversationID, userID, hidden); err != nil {
		// raced with a concurrent Leave
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return svcErr.FailedPrecondition("conversation was left and cannot be hidden or unhidden")
		}
		return svcErr.Map(err)
	}
	s.appCtx.Notifier.Publish(ctx, userID,
		realtime.NewEvent(realtime.TopicConversations, "conversation", conversationID, realtime.ChangeUpdated))
	return nil
}

// Leave removes the conversation from the caller's lists permanently. One
// way: only an incoming message from the other participant brings it back
// (and then in the Active state). Idempotent. The other participant's view
// is untouched.
func (s *Service) Leave(ctx context.Context, conversationID, userID uint64) error {
	if _, err := s.member(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.convRepo.Leave(ctx, conversationID, userID); err != nil {
		return svcErr.Map(err)
	}
	s.appCtx.Notifier.Publish(ctx, userID,
		realtime.NewEvent(realtime.TopicConversations, "conversation", conversationID, realtime.ChangeUpdated))
	return nil
}

// SendMessage appends a message from sender.
//
// Rejected with FAILED_PRECONDITION when the sender has left. If the
// recipient had left, their view is reactivated to Active so the message is
// not silently lost; a recipient who merely hid the conversation stays
// Hidden but their unread state still advances.
func (s *Service) SendMessage(
	ctx context.Context,
	conversationID, senderID uint64,
	content string,
) (*MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, svcErr.InvalidArgument("message content is empty")
	}
	if len(content) > maxMessageLen {
		return nil, svcErr.InvalidArgument("message content is too long")
	}

	conv, err := s.convRepo.Get(ctx, conversationID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, svcErr.NotFound("conversation not found")
	}
	if err != nil {
		return nil, svcErr.Map(err)
	}
	if senderID != conv.UserAID && senderID != conv.UserBID {
		return nil, svcErr.NotFound("conversation not found")
	}

	m, err := s.member(ctx, conversationID, senderID)
	if err != nil {
		return nil, err
	}
	if m.Left() {
		return nil, svcErr.FailedPrecondition("sender has left this conversation")
	}

	recipientID := pair.Other(conv.UserAID, conv.UserBID, senderID)

	msg, err := s.convRepo.AppendMessage(ctx, conversationID, senderID, recipientID, content)
	if err != nil {
		return nil, svcErr.Map(err)
	}

	// invalidate the recipient's cached unread counter; the DB stays the truth
	key := s.appCtx.RedisCache.KeyForUnreadCount(recipientID)
	_ = s.appCtx.RedisCache.Del(ctx, key)

	for _, uid := range []uint64{senderID, recipientID} {
		s.appCtx.Notifier.Publish(ctx, uid,
			realtime.NewEvent(realtime.TopicConversations, "message", msg.ID, realtime.ChangeCreated))
	}

	return &MessageView{
		ID:             msg.ID,
		ConversationID: msg.ConversationID,
		SenderID:       msg.SenderID,
		Content:        msg.Content,
		CreatedAt:      msg.CreatedAt.UnixMilli(),
	}, nil
}

// ListMessages returns the conversation's messages for a participant,
// oldest first.
func (s *Service) ListMessages(
	ctx context.Context,
	conversationID, userID uint64,
	limit int,
) ([]MessageView, error) {
	m, err := s.member(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if m.Left() {
		return nil, svcErr.FailedPrecondition("conversation was left")
	}

	msgs, err := s.convRepo.ListMessages(ctx, conversationID, limit)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	out := make([]MessageView, 0, len(msgs))
	for _, msg := range msgs {
		out = append(out, MessageView{
			ID:             msg.ID,
			ConversationID: msg.ConversationID,
			SenderID:       msg.SenderID,
			Content:        msg.Content,
			CreatedAt:      msg.CreatedAt.UnixMilli(),
		})
	}
	return out, nil
}

// MarkRead records that the caller opened the conversation: their unread
// state clears until a newer message arrives. Affects only the caller.
func (s *Service) MarkRead(ctx context.Context, conversationID, userID uint64) error {
	if _, err := s.member(ctx, conversationID, userID); err != nil {
		return err
	}
	if err := s.convRepo.MarkRead(ctx, conversationID, userID); err != nil {
		return svcErr.Map(err)
	}
	_ = s.appCtx.RedisCache.Del(ctx, s.appCtx.RedisCache.KeyForUnreadCount(userID))
	return nil
}

// CountUnread returns the number of unread conversations for the user,
// cache-first with DB fallback and a 1h TTL.
func (s *Service) CountUnread(ctx context.Context, userID uint64) (int64, error) {
	if userID == 0 {
		return 0, svcErr.InvalidArgument("user_id is required")
	}

	key := s.appCtx.RedisCache.KeyForUnreadCount(userID)
	if n, hit, err := s.appCtx.RedisCache.GetCount(ctx, key); err == nil && hit {
		return n, nil
	}

	count, err := s.convRepo.CountUnread(ctx, userID)
	if err != nil {
		return 0, svcErr.Map(err)
	}
	_ = s.appCtx.RedisCache.UpdateCount(ctx, key, count)
	return count, nil
}

// Reactivate clears Left/Hidden for both participants. Used by the social
// service when a friend pair re-forms after both sides left.
func (s *Service) Reactivate(ctx context.Context, conversationID uint64, userIDs ...uint64) error {
	if err := s.convRepo.Reactivate(ctx, conversationID, userIDs...); err != nil {
		return svcErr.Map(err)
	}
	return nil
}
