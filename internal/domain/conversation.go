package domain

import (
	"slices"
	"time"
)

// Conversation is the live cached view of a direct conversation
type Conversation struct {
	RoomID       string         `json:"room_id"`
	Members      []string       `json:"members"`
	LastMessage  string         `json:"last_message"`
	LastSenderID string         `json:"last_sender_id"`
	UpdatedAt    time.Time      `json:"updated_at"`
	Unread       map[string]int `json:"unread"`
}

// NewConversation creates an empty conversation with zeroed unread counters
func NewConversation(roomID string, members ...string) Conversation {
	unread := make(map[string]int, len(members))
	for _, m := range members {
		unread[m] = 0
	}
	return Conversation{
		RoomID:  roomID,
		Members: slices.Clone(members),
		Unread:  unread,
	}
}

// HasMember reports whether userID belongs to the conversation
func (c Conversation) HasMember(userID string) bool {
	return slices.Contains(c.Members, userID)
}

// Clone returns a deep copy safe to hand out of the cache
func (c Conversation) Clone() Conversation {
	out := c
	out.Members = slices.Clone(c.Members)
	out.Unread = make(map[string]int, len(c.Unread))
	for k, v := range c.Unread {
		out.Unread[k] = v
	}
	return out
}

// Summary builds the conversation_updated payload for one member
func (c Conversation) Summary(memberID string) ConversationUpdatedPayload {
	return ConversationUpdatedPayload{
		RoomID:       c.RoomID,
		LastMessage:  c.LastMessage,
		LastSenderID: c.LastSenderID,
		UpdatedAt:    c.UpdatedAt,
		UnreadCount:  c.Unread[memberID],
	}
}
