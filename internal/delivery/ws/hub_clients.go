package ws

import (
	"slices"
	"sync"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
	"github.com/samber/lo"
)

// Registry maps each online user to the set of channels bound to them.
// A channel belongs to at most one user; a user is online while the set is non-empty.
type Registry struct {
	mu     sync.RWMutex
	users  map[string]map[*Client]struct{}
	owners map[*Client]string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		users:  make(map[string]map[*Client]struct{}),
		owners: make(map[*Client]string),
	}
}

// Register binds c to userID. If c was bound to another user it is moved.
// cameOnline reports that userID had no channels before; previous is the
// user c was moved away from, when that left them with no channels.
func (r *Registry) Register(userID string, c *Client) (cameOnline bool, previous string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if owner, ok := r.owners[c]; ok {
		if owner == userID {
			return false, ""
		}
		if r.remove(owner, c) {
			previous = owner
		}
	}

	set, ok := r.users[userID]
	if !ok {
		set = make(map[*Client]struct{})
		r.users[userID] = set
		cameOnline = true
	}
	set[c] = struct{}{}
	r.owners[c] = userID
	return cameOnline, previous
}

// Unregister unbinds c. bound is false for channels that never registered.
func (r *Registry) Unregister(c *Client) (userID string, wentOffline, bound bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	userID, bound = r.owners[c]
	if !bound {
		return "", false, false
	}
	return userID, r.remove(userID, c), true
}

// remove drops c from userID's set and reports whether the set emptied
func (r *Registry) remove(userID string, c *Client) bool {
	delete(r.owners, c)
	set := r.users[userID]
	delete(set, c)
	if len(set) == 0 {
		delete(r.users, userID)
		return true
	}
	return false
}

// ChannelsFor returns a snapshot of userID's channels
func (r *Registry) ChannelsFor(userID string) []*Client {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return lo.Keys(r.users[userID])
}

// IsOnline reports whether userID has at least one channel
func (r *Registry) IsOnline(userID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.users[userID]) > 0
}

// OnlineUsers returns the sorted presence set
func (r *Registry) OnlineUsers() []string {
	r.mu.RLock()
	users := lo.Keys(r.users)
	r.mu.RUnlock()
	slices.Sort(users)
	return users
}

// RegisterUser binds c to userID (register_user). The channel is acknowledged,
// resumes any floating call and is re-rung for invites still pending.
func (h *Hub) RegisterUser(c *Client, userID string) error {
	h.mu.RLock()
	_, known := h.clients[c]
	h.mu.RUnlock()
	if !known {
		return domain.ErrChannelUnknown
	}

	cameOnline, previous := h.registry.Register(userID, c)
	h.mu.RLock()
	_, known = h.clients[c]
	h.mu.RUnlock()
	if !known {
		// Disconnected while binding
		if _, offline, _ := h.registry.Unregister(c); offline {
			h.userWentOffline(userID)
		}
		return domain.ErrChannelUnknown
	}
	c.setUserID(userID)
	c.setFocus("")
	h.dedupe.Keep(userID)

	h.log.Debug("Channel registered", "channel_id", c.ID, "user_id", userID, "first", cameOnline)
	h.sendTo(c, domain.RegisteredPayload{UserID: userID, ChannelID: c.ID})

	if previous != "" {
		h.userWentOffline(previous)
	}
	if cameOnline {
		h.markPresenceDirty()
	}

	h.resumeCalls(c, userID)
	return nil
}

// SubscribePresence opts c into online_users snapshots and sends the current one
func (h *Hub) SubscribePresence(c *Client) {
	c.subscribePresence()
	h.sendTo(c, domain.OnlineUsersPayload{Users: h.registry.OnlineUsers()})
}

// OnlineUsers returns the sorted set of users with at least one channel
func (h *Hub) OnlineUsers() []string {
	return h.registry.OnlineUsers()
}

// IsOnline reports whether userID has at least one channel
func (h *Hub) IsOnline(userID string) bool {
	return h.registry.IsOnline(userID)
}

// userWentOffline runs when a user's last channel is gone
func (h *Hub) userWentOffline(userID string) {
	h.markPresenceDirty()
	h.dedupe.Release(userID)
	h.endCallsFor(userID)
}
