package repository

import (
	"context"
	"time"

	"github.com/kindredapp/engine/internal/db"
	"github.com/kindredapp/engine/internal/pair"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ConversationView is a conversation as seen by one participant: the shared
// row plus that participant's visibility state and unread flag.
type ConversationView struct {
	Conversation db.Conversation
	Member       db.ConversationMember
	OtherUserID  uint64
	Unread       bool
}

// ConversationRepository provides data access for conversations, per-member
// visibility state and messages.
type ConversationRepository struct {
	db *gorm.DB
}

// NewConversationRepository creates a new repository bound to the given DB
// connection.
func NewConversationRepository(database *gorm.DB) *ConversationRepository {
	return &ConversationRepository{db: database}
}

// FetchOrCreate returns the conversation for the unordered pair and type,
// creating it (with both member rows defaulted to visible) when absent.
//
// Idempotent under concurrency: the unique index on the canonical pair plus
// OnConflict DoNothing means N racing callers agree on one row. An existing
// conversation is returned unmodified. The reported flag is true only for
// the call that created the row.
func (r *ConversationRepository) FetchOrCreate(
	ctx context.Context,
	userA, userB uint64,
	convType db.ConversationType,
) (*db.Conversation, bool, error) {
	a, b := pair.Canonical(userA, userB)

	conv := db.Conversation{UserAID: a, UserBID: b, Type: convType}
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&conv)
	if res.Error != nil {
		return nil, false, res.Error
	}
	created := res.RowsAffected == 1

	if !created {
		if err := r.db.WithContext(ctx).
			Where("user_a_id = ? AND user_b_id = ? AND type = ?", a, b, convType).
			First(&conv).Error; err != nil {
			return nil, false, err
		}
	}

	// Member rows are insert-if-absent so a retry after a partial failure
	// completes the creation instead of erroring.
	members := []db.ConversationMember{
		{ConversationID: conv.ID, UserID: a},
		{ConversationID: conv.ID, UserID: b},
	}
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&members).Error; err != nil {
		return nil, false, err
	}

	return &conv, created, nil
}

// Get returns the conversation row by id.
func (r *ConversationRepository) Get(ctx context.Context, id uint64) (*db.Conversation, error) {
	var conv db.Conversation
	if err := r.db.WithContext(ctx).First(&conv, id).Error; err != nil {
		return nil, err
	}
	return &conv, nil
}

// GetMember returns one participant's state row.
func (r *ConversationRepository) GetMember(
	ctx context.Context,
	conversationID, userID uint64,
) (*db.ConversationMember, error) {
	var member db.ConversationMember
	if err := r.db.WithContext(ctx).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		First(&member).Error; err != nil {
		return nil, err
	}
	return &member, nil
}

// SetHidden flips the hidden flag for a member who has not left. Returns
// gorm.ErrRecordNotFound when no such active membership exists, so callers
// can distinguish "already left" from success.
func (r *ConversationRepository) SetHidden(
	ctx context.Context,
	conversationID, userID uint64,
	hidden bool,
) error {
	res := r.db.WithContext(ctx).
		Model(&db.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Update("hidden", hidden)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// Leave marks the member as having left. Idempotent: leaving twice is a
// no-op, and the timestamp of the first leave is preserved.
func (r *ConversationRepository) Leave(
	ctx context.Context,
	conversationID, userID uint64,
) error {
	return r.db.WithContext(ctx).
		Model(&db.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ? AND left_at IS NULL", conversationID, userID).
		Updates(map[string]any{"left_at": time.Now().UTC(), "hidden": false}).Error
}

// Reactivate clears the left state for the given members and restores them
// to the visible list. Used when a friend pair re-forms.
func (r *ConversationRepository) Reactivate(
	ctx context.Context,
	conversationID uint64,
	userIDs ...uint64,
) error {
	return r.db.WithContext(ctx).
		Model(&db.ConversationMember{}).
		Where("conversation_id = ? AND user_id IN ?", conversationID, userIDs).
		Updates(map[string]any{"left_at": nil, "hidden": false}).Error
}

// AppendMessage atomically appends a message, advances the conversation's
// updated_at, and reactivates the recipient if they had left. An incoming
// message must never be silently lost to a departed view. A recipient who
// merely hid the conversation stays hidden.
func (r *ConversationRepository) AppendMessage(
	ctx context.Context,
	conversationID, senderID, recipientID uint64,
	content string,
) (*db.Message, error) {
	msg := db.Message{
		ConversationID: conversationID,
		SenderID:       senderID,
		Content:        content,
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return err
		}
		if err := tx.Model(&db.Conversation{}).
			Where("id = ?", conversationID).
			Update("updated_at", time.Now().UTC()).Error; err != nil {
			return err
		}
		return tx.Model(&db.ConversationMember{}).
			Where("conversation_id = ? AND user_id = ? AND left_at IS NOT NULL",
				conversationID, recipientID).
			Updates(map[string]any{"left_at": nil, "hidden": false}).Error
	})
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// MarkRead advances the member's read high-water mark to now.
func (r *ConversationRepository) MarkRead(
	ctx context.Context,
	conversationID, userID uint64,
) error {
	return r.db.WithContext(ctx).
		Model(&db.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Update("last_read_at", time.Now().UTC()).Error
}

// ListMessages returns a conversation's messages oldest first.
func (r *ConversationRepository) ListMessages(
	ctx context.Context,
	conversationID uint64,
	limit int,
) ([]db.Message, error) {
	var msgs []db.Message
	q := r.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("created_at ASC, id ASC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	err := q.Find(&msgs).Error
	return msgs, err
}

// unreadExpr is the unread predicate for one member row (aliased cm) over its
// conversation (aliased c): a message from the other participant newer than
// the member's read mark exists.
const unreadExpr = `EXISTS (
	SELECT 1 FROM messages m
	WHERE m.conversation_id = c.id
	  AND m.sender_id <> cm.user_id
	  AND (cm.last_read_at IS NULL OR m.created_at > cm.last_read_at)
)`

// ListForUser returns the conversations where userID's state matches hidden
// (false = visible list, true = hidden list). Members who left appear in
// neither list. Ordered by conversation recency.
func (r *ConversationRepository) ListForUser(
	ctx context.Context,
	userID uint64,
	hidden bool,
) ([]ConversationView, error) {
	type row struct {
		db.Conversation
		MUserID     uint64
		MHidden     bool
		MLeftAt     *time.Time
		MLastReadAt *time.Time
		Unread      bool
	}

	var rows []row
	err := r.db.WithContext(ctx).
		Table("conversations c").
		Select(`c.*,
			cm.user_id AS m_user_id,
			cm.hidden AS m_hidden,
			cm.left_at AS m_left_at,
			cm.last_read_at AS m_last_read_at,
			`+unreadExpr+` AS unread`).
		Joins("JOIN conversation_members cm ON cm.conversation_id = c.id").
		Where("cm.user_id = ? AND cm.left_at IS NULL AND cm.hidden = ?", userID, hidden).
		Order("c.updated_at DESC, c.id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	views := make([]ConversationView, 0, len(rows))
	for _, rw := range rows {
		views = append(views, ConversationView{
			Conversation: rw.Conversation,
			Member: db.ConversationMember{
				ConversationID: rw.Conversation.ID,
				UserID:         rw.MUserID,
				Hidden:         rw.MHidden,
				LeftAt:         rw.MLeftAt,
				LastReadAt:     rw.MLastReadAt,
			},
			OtherUserID: pair.Other(rw.Conversation.UserAID, rw.Conversation.UserBID, userID),
			Unread:      rw.Unread,
		})
	}
	return views, nil
}

// IsUnread evaluates the unread predicate for a single member.
func (r *ConversationRepository) IsUnread(
	ctx context.Context,
	conversationID, userID uint64,
) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("messages m").
		Joins("JOIN conversation_members cm ON cm.conversation_id = m.conversation_id AND cm.user_id = ?", userID).
		Where("m.conversation_id = ? AND m.sender_id <> ?", conversationID, userID).
		Where("cm.last_read_at IS NULL OR m.created_at > cm.last_read_at").
		Count(&count).Error
	return count > 0, err
}

// CountUnread counts the conversations that are unread for userID across the
// visible and hidden lists. Backs the Redis unread counter.
func (r *ConversationRepository) CountUnread(
	ctx context.Context,
	userID uint64,
) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("conversations c").
		Joins("JOIN conversation_members cm ON cm.conversation_id = c.id").
		Where("cm.user_id = ? AND cm.left_at IS NULL", userID).
		Where(unreadExpr).
		Count(&count).Error
	return count, err
}
