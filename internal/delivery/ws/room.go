package ws

import (
	"sync"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// roomEntry guards one conversation. Deliveries and read-marks on the same
// room serialize on mu; different rooms proceed in parallel.
type roomEntry struct {
	mu   sync.Mutex
	conv domain.Conversation
}

// ConversationCache manages all live conversations
type ConversationCache struct {
	mu    sync.RWMutex
	rooms map[string]*roomEntry // map[roomID]*roomEntry
}

// NewConversationCache creates an empty cache
func NewConversationCache() *ConversationCache {
	return &ConversationCache{
		rooms: make(map[string]*roomEntry),
	}
}

// Load adds conversations restored from the store, replacing cached ones
func (cc *ConversationCache) Load(convs []domain.Conversation) {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	for _, conv := range convs {
		cc.rooms[conv.RoomID] = &roomEntry{conv: conv.Clone()}
	}
}

// Add caches a new conversation. It returns false if the room already exists.
func (cc *ConversationCache) Add(conv domain.Conversation) bool {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	if _, exists := cc.rooms[conv.RoomID]; exists {
		return false
	}
	cc.rooms[conv.RoomID] = &roomEntry{conv: conv.Clone()}
	return true
}

// entry returns the room's entry, or nil
func (cc *ConversationCache) entry(roomID string) *roomEntry {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return cc.rooms[roomID]
}

// Get returns a copy of the conversation
func (cc *ConversationCache) Get(roomID string) (domain.Conversation, bool) {
	e := cc.entry(roomID)
	if e == nil {
		return domain.Conversation{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.conv.Clone(), true
}

// Count returns the number of cached conversations
func (cc *ConversationCache) Count() int {
	cc.mu.RLock()
	defer cc.mu.RUnlock()
	return len(cc.rooms)
}
