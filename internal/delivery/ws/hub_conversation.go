package ws

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// LoadConversations seeds the cache from the store at startup
func (h *Hub) LoadConversations(convs []domain.Conversation) {
	h.conversations.Load(convs)
	h.log.Info("Conversations loaded", "count", len(convs))
}

// AddConversation caches a newly created conversation.
// It returns false if the room was already cached.
func (h *Hub) AddConversation(conv domain.Conversation) bool {
	return h.conversations.Add(conv)
}

// Conversation returns a copy of the cached conversation
func (h *Hub) Conversation(roomID string) (domain.Conversation, bool) {
	return h.conversations.Get(roomID)
}

// DeliverMessage appends a message to roomID and fans it out.
//
// Every member other than the sender gets their unread counter incremented.
// Channels focused on the room receive chat_message. A member with no channel
// focused on the room receives chat_message and a conversation_updated summary
// on all channels; a focused member's other channels get the summary only.
// The sender's channels get the summary, plus an echo where focused.
func (h *Hub) DeliverMessage(roomID, senderID, text string) (domain.ChatMessagePayload, error) {
	e := h.conversations.entry(roomID)
	if e == nil {
		return domain.ChatMessagePayload{}, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.conv.HasMember(senderID) {
		return domain.ChatMessagePayload{}, fmt.Errorf("%w: %s", domain.ErrNotMember, roomID)
	}

	msg := domain.ChatMessagePayload{
		ID:        uuid.New().String(),
		RoomID:    roomID,
		SenderID:  senderID,
		Text:      text,
		CreatedAt: time.Now().UTC(),
	}

	e.conv.LastMessage = text
	e.conv.LastSenderID = senderID
	e.conv.UpdatedAt = msg.CreatedAt
	for _, member := range e.conv.Members {
		if member != senderID {
			e.conv.Unread[member]++
		}
	}
	snapshot := e.conv.Clone()

	// Fan-out and the persistence enqueue stay under the room lock so every
	// recipient and the store observe this room's messages in order. Neither blocks.
	chat := Encode(msg)
	for _, member := range snapshot.Members {
		h.deliverToMember(member, senderID, roomID, chat, snapshot)
	}
	h.sink.SaveConversation(snapshot)
	h.metrics.MessagesDelivered.Inc()

	return msg, nil
}

func (h *Hub) deliverToMember(member, senderID, roomID string, chat []byte, conv domain.Conversation) {
	channels := h.registry.ChannelsFor(member)
	if len(channels) == 0 {
		return
	}

	focused := 0
	for _, c := range channels {
		if c.Focus() == roomID {
			focused++
		}
	}

	summary := Encode(conv.Summary(member))
	for _, c := range channels {
		switch {
		case c.Focus() == roomID:
			c.Send(chat)
		case member != senderID && focused == 0:
			c.Send(chat)
			c.Send(summary)
		default:
			c.Send(summary)
		}
	}
}

// MarkAsRead resets the caller's unread counter for roomID to zero and makes
// it the channel's focus. All of the caller's channels receive the summary.
func (h *Hub) MarkAsRead(c *Client, roomID string) error {
	viewer := c.UserID()
	e := h.conversations.entry(roomID)
	if e == nil {
		return fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.conv.HasMember(viewer) {
		return fmt.Errorf("%w: %s", domain.ErrNotMember, roomID)
	}

	c.setFocus(roomID)
	changed := e.conv.Unread[viewer] != 0
	e.conv.Unread[viewer] = 0
	snapshot := e.conv.Clone()

	h.sendToUser(viewer, snapshot.Summary(viewer))
	if changed {
		h.sink.SaveConversation(snapshot)
	}
	return nil
}

// SetFocus declares the room c is viewing. An empty roomID clears focus.
// Unread counters are not touched.
func (h *Hub) SetFocus(c *Client, roomID string) error {
	if roomID == "" {
		c.setFocus("")
		return nil
	}

	conv, ok := h.conversations.Get(roomID)
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}
	if !conv.HasMember(c.UserID()) {
		return fmt.Errorf("%w: %s", domain.ErrNotMember, roomID)
	}
	c.setFocus(roomID)
	return nil
}
