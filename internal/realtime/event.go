package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Topic is a per-user event stream. Ordering is guaranteed only within one
// topic for one user; nothing is guaranteed across topics.
type Topic string

const (
	TopicMatches        Topic = "matches"
	TopicFriendRequests Topic = "friendrequests"
	TopicSwipes         Topic = "swipes"
	TopicConversations  Topic = "conversations"
)

// Topics lists every stream a client may subscribe to.
func Topics() []Topic {
	return []Topic{TopicMatches, TopicFriendRequests, TopicSwipes, TopicConversations}
}

// ValidTopic reports whether s names a known topic.
func ValidTopic(s string) bool {
	for _, t := range Topics() {
		if Topic(s) == t {
			return true
		}
	}
	return false
}

// ChangeKind of an event.
const (
	ChangeCreated = "created"
	ChangeUpdated = "updated"
)

// Event is the envelope delivered to subscribers. Delivery is at-least-once:
// the ID lets clients drop duplicates, and every event is only a hint to
// re-fetch or merge by entity id. The ledger is the source of truth.
type Event struct {
	ID         string    `json:"id"`
	Topic      Topic     `json:"topic"`
	EntityType string    `json:"entityType"`
	EntityID   uint64    `json:"entityId"`
	ChangeKind string    `json:"changeKind"`
	At         time.Time `json:"at"`
}

// NewEvent builds an Event with a fresh id and timestamp.
func NewEvent(topic Topic, entityType string, entityID uint64, changeKind string) Event {
	return Event{
		ID:         uuid.New().String(),
		Topic:      topic,
		EntityType: entityType,
		EntityID:   entityID,
		ChangeKind: changeKind,
		At:         time.Now().UTC(),
	}
}

// Encode marshals the event for the wire. Marshal of this struct cannot fail.
func (e Event) Encode() string {
	b, _ := json.Marshal(e)
	return string(b)
}
