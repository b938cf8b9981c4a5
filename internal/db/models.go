package db

import (
	"time"
)

// Mode is the relationship namespace a swipe, match or feed belongs to.
// Dating and friends are independent graphs over the same users.
type Mode string

const (
	ModeDating  Mode = "dating"
	ModeFriends Mode = "friends"
)

// Direction of a swipe. Right and up both count as a like.
type Direction string

const (
	DirectionLeft  Direction = "left"
	DirectionRight Direction = "right"
	DirectionUp    Direction = "up"
)

// LookingFor is a profile's declared intent, matched against feed Mode.
type LookingFor string

const (
	LookingForDating  LookingFor = "dating"
	LookingForFriends LookingFor = "friends"
	LookingForBoth    LookingFor = "both"
)

// ConversationType mirrors Mode plus the activity namespace.
type ConversationType string

const (
	ConversationDating   ConversationType = "dating"
	ConversationFriends  ConversationType = "friends"
	ConversationActivity ConversationType = "activity"
)

// FriendRequestStatus lifecycle: pending -> accepted | declined.
// A declined request may be re-sent, which returns the row to pending.
type FriendRequestStatus string

const (
	FriendRequestPending  FriendRequestStatus = "pending"
	FriendRequestAccepted FriendRequestStatus = "accepted"
	FriendRequestDeclined FriendRequestStatus = "declined"
)

// User table. Accounts are soft-deactivated, never hard-deleted.
//
// Active carries no column default on purpose: GORM omits zero-value fields
// that have a default tag from INSERTs, which would silently store a
// deactivated user as active. Creators set the flag explicitly.
type User struct {
	ID           uint64 `gorm:"primaryKey;autoIncrement"`
	Username     string `gorm:"uniqueIndex;size:64;not null"`
	Email        string `gorm:"uniqueIndex;size:128;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	Active       bool   `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Profile holds the mutable attributes of exactly one User. Feed queries
// read it joined with users for the active flag.
type Profile struct {
	UserID       uint64     `gorm:"primaryKey;autoIncrement:false"`
	DisplayName  string     `gorm:"size:64;not null"`
	Age          int        `gorm:"not null"`
	Gender       string     `gorm:"size:16"`
	Lat          *float64   // nil when the user has not shared location
	Lon          *float64
	Interests    string     `gorm:"size:512"` // comma-joined tags
	LookingFor   LookingFor `gorm:"size:16;not null;index"`
	Verified     bool       `gorm:"default:false"`
	LastActiveAt time.Time  `gorm:"index"`
	CreatedAt    time.Time  `gorm:"autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"autoUpdateTime"`
}

// Swipe is an actor's directional decision on a target within one mode.
//
// Composite PK (ActorID, TargetID, Mode) gives the overwrite guarantee:
// a repeat swipe updates direction in place, never duplicates the row.
//
// idx_target_liked(target_id, mode, direction, updated_at DESC, actor_id)
// serves "who liked me" listings with cursor pagination.
type Swipe struct {
	ActorID   uint64    `gorm:"primaryKey;autoIncrement:false"`
	TargetID  uint64    `gorm:"primaryKey;autoIncrement:false;index:idx_target_liked,priority:1"`
	Mode      Mode      `gorm:"primaryKey;size:16;index:idx_target_liked,priority:2"`
	Direction Direction `gorm:"size:8;not null;index:idx_target_liked,priority:3"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
	UpdatedAt time.Time `gorm:"autoUpdateTime;index:idx_target_liked,priority:4,sort:desc"`
}

// Liked reports whether the swipe counts as a like.
func (s Swipe) Liked() bool {
	return s.Direction == DirectionRight || s.Direction == DirectionUp
}

// Match is derived from two mutual likes. UserAID < UserBID always (canonical
// pair); the unique index makes creation exactly-once under concurrent
// writers: the second writer's insert is a no-op and it reads the winner's
// row back. Matches are permanent: unmatching changes conversation
// visibility, never this table.
type Match struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement"`
	UserAID   uint64    `gorm:"not null;uniqueIndex:uniq_match_pair,priority:1;index"`
	UserBID   uint64    `gorm:"not null;uniqueIndex:uniq_match_pair,priority:2;index"`
	Mode      Mode      `gorm:"size:16;not null;uniqueIndex:uniq_match_pair,priority:3"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// FriendRequest is directed requester -> addressee. One row per ordered pair.
type FriendRequest struct {
	ID          uint64              `gorm:"primaryKey;autoIncrement"`
	RequesterID uint64              `gorm:"not null;uniqueIndex:uniq_friend_request,priority:1"`
	AddresseeID uint64              `gorm:"not null;uniqueIndex:uniq_friend_request,priority:2;index"`
	Status      FriendRequestStatus `gorm:"size:16;not null;default:'pending';index"`
	CreatedAt   time.Time           `gorm:"autoCreateTime"`
	UpdatedAt   time.Time           `gorm:"autoUpdateTime"`
}

// Block is a directed fact used only for exclusion sets and hiding content.
type Block struct {
	BlockerID uint64    `gorm:"primaryKey;autoIncrement:false"`
	BlockedID uint64    `gorm:"primaryKey;autoIncrement:false;index"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Conversation is shared by exactly two participants, keyed by the canonical
// pair plus type. Per-participant state lives in ConversationMember; this row
// only carries the shared content timeline.
type Conversation struct {
	ID        uint64           `gorm:"primaryKey;autoIncrement"`
	UserAID   uint64           `gorm:"not null;uniqueIndex:uniq_conversation,priority:1;index"`
	UserBID   uint64           `gorm:"not null;uniqueIndex:uniq_conversation,priority:2;index"`
	Type      ConversationType `gorm:"size:16;not null;uniqueIndex:uniq_conversation,priority:3"`
	CreatedAt time.Time        `gorm:"autoCreateTime"`
	UpdatedAt time.Time        `gorm:"autoUpdateTime"` // advances on each message
}

// ConversationMember is one participant's independent view of a conversation.
//
//   - Hidden: tucked away but still receiving messages and unread counts.
//   - LeftAt non-nil: removed from the member's lists permanently; only an
//     incoming message from the other participant reactivates it.
//   - LastReadAt: high-water mark for the unread computation.
type ConversationMember struct {
	ConversationID uint64 `gorm:"primaryKey;autoIncrement:false"`
	UserID         uint64 `gorm:"primaryKey;autoIncrement:false;index"`
	Hidden         bool   `gorm:"not null;default:false"`
	LeftAt         *time.Time
	LastReadAt     *time.Time
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// Left reports whether the member has left the conversation.
func (m ConversationMember) Left() bool { return m.LeftAt != nil }

// Message is immutable once created.
type Message struct {
	ID             uint64    `gorm:"primaryKey;autoIncrement"`
	ConversationID uint64    `gorm:"not null;index:idx_conversation_created,priority:1"`
	SenderID       uint64    `gorm:"not null"`
	Content        string    `gorm:"type:text;not null"`
	CreatedAt      time.Time `gorm:"autoCreateTime;index:idx_conversation_created,priority:2"`
}

// ValidMode reports whether s names a known relationship mode.
func ValidMode(s string) bool {
	return Mode(s) == ModeDating || Mode(s) == ModeFriends
}

// ValidDirection reports whether s names a known swipe direction.
func ValidDirection(s string) bool {
	switch Direction(s) {
	case DirectionLeft, DirectionRight, DirectionUp:
		return true
	}
	return false
}

// ConversationTypeForMode maps a relationship mode to its conversation type.
func ConversationTypeForMode(m Mode) ConversationType {
	if m == ModeFriends {
		return ConversationFriends
	}
	return ConversationDating
}

// Compatible reports whether a profile's intent admits the given feed mode.
func (l LookingFor) Compatible(m Mode) bool {
	if l == LookingForBoth {
		return true
	}
	return string(l) == string(m)
}
