package ws

import (
	"time"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// DisconnectUser closes every channel of userID after telling them why.
// It returns the number of channels scheduled for closing.
func (h *Hub) DisconnectUser(userID, reason string) int {
	channels := h.registry.ChannelsFor(userID)
	if len(channels) == 0 {
		return 0
	}

	h.sendToChannels(channels, domain.KickedPayload{Reason: reason})
	h.log.Info("Disconnecting user", "user_id", userID, "channels", len(channels), "reason", reason)

	// Give the kick frame time to flush before the socket closes
	time.AfterFunc(h.opts.KickDelay, func() {
		for _, c := range channels {
			h.Disconnect(c)
		}
	})

	return len(channels)
}
