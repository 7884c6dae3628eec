package ws

import (
	"sync"
	"time"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// FloatingListener is notified after a user's floating handle changes.
// handle is nil when the handle was cleared.
type FloatingListener func(userID string, handle *domain.FloatingSession)

// FloatingSessionStore holds each user's single floating session handle.
// The handle outlives view changes and reconnects; it is cleared when the call ends.
type FloatingSessionStore struct {
	mu        sync.RWMutex
	handles   map[string]domain.FloatingSession // userID -> handle
	listeners map[int]FloatingListener
	nextID    int
}

// NewFloatingSessionStore creates an empty store
func NewFloatingSessionStore() *FloatingSessionStore {
	return &FloatingSessionStore{
		handles:   make(map[string]domain.FloatingSession),
		listeners: make(map[int]FloatingListener),
	}
}

// Get returns userID's handle
func (s *FloatingSessionStore) Get(userID string) (domain.FloatingSession, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	handle, ok := s.handles[userID]
	return handle, ok
}

// IsBusy reports whether userID already owns a handle
func (s *FloatingSessionStore) IsBusy(userID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.handles[userID]
	return ok
}

// AcquirePair gives both parties of call a handle, or neither.
// It fails with ErrBusy when either party already owns one.
func (s *FloatingSessionStore) AcquirePair(call domain.CallSession) error {
	now := time.Now()
	caller := domain.FloatingSession{CallID: call.ID, MediaRoomID: call.MediaRoomID, PeerID: call.CalleeID, Since: now}
	callee := domain.FloatingSession{CallID: call.ID, MediaRoomID: call.MediaRoomID, PeerID: call.CallerID, Since: now}

	s.mu.Lock()
	_, callerBusy := s.handles[call.CallerID]
	_, calleeBusy := s.handles[call.CalleeID]
	if callerBusy || calleeBusy {
		s.mu.Unlock()
		return domain.ErrBusy
	}
	s.handles[call.CallerID] = caller
	s.handles[call.CalleeID] = callee
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(call.CallerID, &caller)
		fn(call.CalleeID, &callee)
	}
	return nil
}

// Release clears the handles that point at callID for the given users
func (s *FloatingSessionStore) Release(callID string, userIDs ...string) {
	s.mu.Lock()
	var cleared []string
	for _, userID := range userIDs {
		if handle, ok := s.handles[userID]; ok && handle.CallID == callID {
			delete(s.handles, userID)
			cleared = append(cleared, userID)
		}
	}
	listeners := s.snapshotListeners()
	s.mu.Unlock()

	for _, fn := range listeners {
		for _, userID := range cleared {
			fn(userID, nil)
		}
	}
}

// Subscribe registers fn and returns a function that removes it
func (s *FloatingSessionStore) Subscribe(fn FloatingListener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// NOTE: Caller must hold s.mu
func (s *FloatingSessionStore) snapshotListeners() []FloatingListener {
	out := make([]FloatingListener, 0, len(s.listeners))
	for _, fn := range s.listeners {
		out = append(out, fn)
	}
	return out
}

// Count returns the number of users holding a handle
func (s *FloatingSessionStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.handles)
}

// onFloatingChange mirrors handle changes to every channel of the user
func (h *Hub) onFloatingChange(userID string, handle *domain.FloatingSession) {
	payload := domain.FloatingSessionPayload{}
	if handle != nil {
		payload = domain.FloatingSessionPayload{
			Active:      true,
			CallID:      handle.CallID,
			MediaRoomID: handle.MediaRoomID,
			PeerID:      handle.PeerID,
		}
	}
	h.sendToUser(userID, payload)
}

// FloatingSession returns userID's handle, if any
func (h *Hub) FloatingSession(userID string) (domain.FloatingSession, bool) {
	return h.sessions.Get(userID)
}

// dedupeTracker remembers recent client event ids per user. A user's window
// survives their last disconnect for the grace period so a quick reconnect
// that retransmits is still suppressed.
type dedupeTracker struct {
	mu      sync.Mutex
	size    int
	grace   time.Duration
	windows map[string]*dedupeWindow
	leavers map[string]*time.Timer
}

func newDedupeTracker(size int, grace time.Duration) *dedupeTracker {
	if size <= 0 {
		size = domain.DedupeWindow
	}
	return &dedupeTracker{
		size:    size,
		grace:   grace,
		windows: make(map[string]*dedupeWindow),
		leavers: make(map[string]*time.Timer),
	}
}

// Seen records eventID for userID and reports whether it was already recorded
func (d *dedupeTracker) Seen(userID, eventID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	w, ok := d.windows[userID]
	if !ok {
		w = newDedupeWindow(d.size)
		d.windows[userID] = w
	}
	return w.seen(eventID)
}

// Forget drops eventID from userID's window so a retry is processed
func (d *dedupeTracker) Forget(userID, eventID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if w, ok := d.windows[userID]; ok {
		w.forget(eventID)
	}
}

// Keep cancels a pending cleanup for userID
func (d *dedupeTracker) Keep(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timer, ok := d.leavers[userID]; ok {
		timer.Stop()
		delete(d.leavers, userID)
	}
}

// Release drops userID's window once the grace period passes
func (d *dedupeTracker) Release(userID string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if timer, ok := d.leavers[userID]; ok {
		timer.Stop()
	}
	var timer *time.Timer
	timer = time.AfterFunc(d.grace, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		// A re-register may have replaced or cancelled this timer
		if d.leavers[userID] != timer {
			return
		}
		delete(d.leavers, userID)
		delete(d.windows, userID)
	})
	d.leavers[userID] = timer
}

// Tracked returns the number of users with a live window
func (d *dedupeTracker) Tracked() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.windows)
}

// Close stops all pending cleanups
func (d *dedupeTracker) Close() {
	d.mu.Lock()
	defer d.mu.Unlock()
	for userID, timer := range d.leavers {
		timer.Stop()
		delete(d.leavers, userID)
	}
}
