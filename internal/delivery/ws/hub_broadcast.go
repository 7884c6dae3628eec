package ws

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// Encode wraps an outbound payload in a Message envelope as JSON bytes
func Encode(p domain.Outbound) []byte {
	payload, _ := json.Marshal(p)

	msg := domain.Message{
		ID:        uuid.New().String(),
		Type:      p.OutboundType(),
		Payload:   payload,
		CreatedAt: time.Now(),
	}

	data, _ := json.Marshal(msg)
	return data
}

// sendTo delivers p to a single channel
func (h *Hub) sendTo(c *Client, p domain.Outbound) {
	if !c.Send(Encode(p)) {
		h.log.Warn("Dropped frame for slow channel", "channel_id", c.ID, "type", p.OutboundType())
	}
}

// sendToUser delivers p to every channel of userID and returns how many got it
func (h *Hub) sendToUser(userID string, p domain.Outbound) int {
	return h.sendToChannels(h.registry.ChannelsFor(userID), p)
}

func (h *Hub) sendToChannels(channels []*Client, p domain.Outbound) int {
	if len(channels) == 0 {
		return 0
	}
	data := Encode(p)
	sent := 0
	for _, c := range channels {
		if c.Send(data) {
			sent++
		} else {
			h.log.Warn("Dropped frame for slow channel", "channel_id", c.ID, "type", p.OutboundType())
		}
	}
	return sent
}

// markPresenceDirty schedules a presence snapshot; repeated calls coalesce
func (h *Hub) markPresenceDirty() {
	select {
	case h.presenceDirty <- struct{}{}:
	default:
	}
}

// broadcastPresence sends the current online_users snapshot to every subscribed channel
func (h *Hub) broadcastPresence() {
	users := h.registry.OnlineUsers()
	h.metrics.OnlineUsers.Set(float64(len(users)))

	h.mu.RLock()
	subscribers := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		if c.wantsPresence() {
			subscribers = append(subscribers, c)
		}
	}
	h.mu.RUnlock()

	h.sendToChannels(subscribers, domain.OnlineUsersPayload{Users: users})
}
