package ws

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// callEntry guards one call session. Lock order: callEntry.mu, then
// CallTable.mu or FloatingSessionStore.mu, then Registry.mu.
type callEntry struct {
	mu      sync.Mutex
	session domain.CallSession
	timer   *time.Timer // invite timeout, set while INVITED
}

// CallTable indexes call sessions by id and by participant
type CallTable struct {
	mu     sync.RWMutex
	calls  map[string]*callEntry
	byUser map[string]map[string]struct{} // userID -> non-terminal call ids
	purges map[string]*time.Timer
}

// NewCallTable creates an empty table
func NewCallTable() *CallTable {
	return &CallTable{
		calls:  make(map[string]*callEntry),
		byUser: make(map[string]map[string]struct{}),
		purges: make(map[string]*time.Timer),
	}
}

func (t *CallTable) insert(e *callEntry, live bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls[e.session.ID] = e
	if !live {
		return
	}
	for _, userID := range []string{e.session.CallerID, e.session.CalleeID} {
		set, ok := t.byUser[userID]
		if !ok {
			set = make(map[string]struct{})
			t.byUser[userID] = set
		}
		set[e.session.ID] = struct{}{}
	}
}

func (t *CallTable) get(callID string) *callEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.calls[callID]
}

// untrack removes a finished call from the participant index
func (t *CallTable) untrack(s domain.CallSession) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, userID := range []string{s.CallerID, s.CalleeID} {
		if set, ok := t.byUser[userID]; ok {
			delete(set, s.ID)
			if len(set) == 0 {
				delete(t.byUser, userID)
			}
		}
	}
}

// schedulePurge forgets a terminal call after the retention period
func (t *CallTable) schedulePurge(callID string, after time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.purges[callID]; ok {
		return
	}
	t.purges[callID] = time.AfterFunc(after, func() {
		t.mu.Lock()
		defer t.mu.Unlock()
		delete(t.calls, callID)
		delete(t.purges, callID)
	})
}

// liveFor returns the ids of userID's non-terminal calls
func (t *CallTable) liveFor(userID string) []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.byUser[userID]))
	for id := range t.byUser[userID] {
		ids = append(ids, id)
	}
	return ids
}

// live returns every non-terminal call
func (t *CallTable) live() []*callEntry {
	t.mu.RLock()
	defer t.mu.RUnlock()
	seen := make(map[string]struct{})
	var entries []*callEntry
	for _, set := range t.byUser {
		for id := range set {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			if e, ok := t.calls[id]; ok {
				entries = append(entries, e)
			}
		}
	}
	return entries
}

// Count returns the number of retained calls, terminal ones included
func (t *CallTable) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.calls)
}

func (t *CallTable) stopAll() {
	t.mu.Lock()
	entries := make([]*callEntry, 0, len(t.calls))
	for _, e := range t.calls {
		entries = append(entries, e)
	}
	for id, timer := range t.purges {
		timer.Stop()
		delete(t.purges, id)
	}
	t.mu.Unlock()

	for _, e := range entries {
		e.mu.Lock()
		if e.timer != nil {
			e.timer.Stop()
			e.timer = nil
		}
		e.mu.Unlock()
	}
}

// CallSnapshot returns a copy of a retained call session
func (h *Hub) CallSnapshot(callID string) (domain.CallSession, bool) {
	e := h.calls.get(callID)
	if e == nil {
		return domain.CallSession{}, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session, true
}

func (h *Hub) lookupCall(callID string) (*callEntry, error) {
	e := h.calls.get(callID)
	if e == nil {
		return nil, fmt.Errorf("%w: %s", domain.ErrCallNotFound, callID)
	}
	return e, nil
}

// InviteCall creates a call from callerID to calleeID and rings the callee.
// If the callee already owns a floating session the call is created in
// BUSY-ABORTED, only the caller is told, and ErrBusy is returned.
func (h *Hub) InviteCall(callerID, calleeID string) (domain.CallSession, error) {
	if callerID == calleeID {
		return domain.CallSession{}, domain.ErrSelfCall
	}

	e := &callEntry{session: domain.CallSession{
		ID:          uuid.New().String(),
		CallerID:    callerID,
		CalleeID:    calleeID,
		MediaRoomID: uuid.New().String(),
		CreatedAt:   time.Now().UTC(),
	}}

	e.mu.Lock()
	defer e.mu.Unlock()

	if h.sessions.IsBusy(calleeID) {
		e.session.State = domain.CallStateBusyAborted
		e.session.EndedAt = e.session.CreatedAt
		h.calls.insert(e, false)
		h.record(e)
		h.calls.schedulePurge(e.session.ID, h.opts.CallRetention)

		h.sendToUser(callerID, domain.CallBusyPayload{CallID: e.session.ID})
		return e.session, domain.ErrBusy
	}

	e.session.State = domain.CallStateInvited
	h.calls.insert(e, true)
	e.timer = time.AfterFunc(h.opts.CallInviteTimeout, func() { h.expireInvite(e) })
	h.record(e)

	h.sendToUser(calleeID, domain.IncomingCallPayload{
		CallID:      e.session.ID,
		From:        callerID,
		MediaRoomID: e.session.MediaRoomID,
	})
	h.sendToUser(callerID, domain.CallInvitedPayload{
		CallID:      e.session.ID,
		To:          calleeID,
		MediaRoomID: e.session.MediaRoomID,
	})

	h.log.Debug("Call invited", "call_id", e.session.ID, "caller", callerID, "callee", calleeID)
	return e.session, nil
}

// AcceptCall moves an INVITED call to ACTIVE. Only the callee may accept.
// Both parties get a floating session; if either already has one the
// call stays INVITED and ErrBusy is returned. A caller with no open channel
// cannot be connected, so the call is cancelled on their behalf.
func (h *Hub) AcceptCall(callID, userID string) error {
	e, err := h.lookupCall(callID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if userID != s.CalleeID {
		return fmt.Errorf("%w: only the callee may accept", domain.ErrNotParticipant)
	}
	if s.State != domain.CallStateInvited {
		return fmt.Errorf("%w: call is %s", domain.ErrStaleTransition, s.State)
	}
	// Disconnect unregisters before it reconciles calls, so a party seen
	// offline here will not be reconciled for this call again
	if !h.registry.IsOnline(s.CallerID) {
		h.finish(e, domain.CallStateCancelled, s.CallerID)
		h.sendToUser(s.CalleeID, domain.CancelCallPayload{CallID: s.ID})
		h.log.Debug("Call cancelled, caller offline", "call_id", s.ID)
		return fmt.Errorf("%w: caller is offline", domain.ErrStaleTransition)
	}
	if !h.registry.IsOnline(s.CalleeID) {
		return fmt.Errorf("%w: callee is offline", domain.ErrStaleTransition)
	}
	if err := h.sessions.AcquirePair(s); err != nil {
		return err
	}

	e.session.State = domain.CallStateActive
	e.session.AnsweredAt = time.Now().UTC()
	h.stopTimer(e)
	h.record(e)
	h.metrics.ActiveCalls.Inc()

	// The callee's other devices stop ringing on the same event
	accepted := domain.AcceptCallPayload{CallID: s.ID, To: s.CalleeID}
	h.sendToUser(s.CallerID, accepted)
	h.sendToUser(s.CalleeID, accepted)
	return nil
}

// RejectCall declines an INVITED call. Only the callee may reject.
func (h *Hub) RejectCall(callID, userID string) error {
	e, err := h.lookupCall(callID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if userID != s.CalleeID {
		return fmt.Errorf("%w: only the callee may reject", domain.ErrNotParticipant)
	}
	if s.State != domain.CallStateInvited {
		return fmt.Errorf("%w: call is %s", domain.ErrStaleTransition, s.State)
	}

	h.finish(e, domain.CallStateRejected, userID)

	rejected := domain.RejectCallPayload{CallID: s.ID, To: s.CalleeID}
	h.sendToUser(s.CallerID, rejected)
	h.sendToUser(s.CalleeID, rejected)
	return nil
}

// CancelCall withdraws an INVITED call. Only the caller may cancel.
func (h *Hub) CancelCall(callID, userID string) error {
	e, err := h.lookupCall(callID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	s := e.session
	if userID != s.CallerID {
		return fmt.Errorf("%w: only the caller may cancel", domain.ErrNotParticipant)
	}
	if s.State != domain.CallStateInvited {
		return fmt.Errorf("%w: call is %s", domain.ErrStaleTransition, s.State)
	}

	h.finish(e, domain.CallStateCancelled, userID)

	cancelled := domain.CancelCallPayload{CallID: s.ID}
	h.sendToUser(s.CalleeID, cancelled)
	h.sendToUser(s.CallerID, cancelled)
	return nil
}

// EndCall hangs up an ACTIVE call. Either party may end it.
func (h *Hub) EndCall(callID, userID string) error {
	e, err := h.lookupCall(callID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.IsParticipant(userID) {
		return domain.ErrNotParticipant
	}
	if e.session.State != domain.CallStateActive {
		return fmt.Errorf("%w: call is %s", domain.ErrStaleTransition, e.session.State)
	}

	h.endLocked(e, userID)
	return nil
}

// NOTE: Caller must hold e.mu and e.session.State must be ACTIVE
func (h *Hub) endLocked(e *callEntry, endedBy string) {
	s := e.session
	h.finish(e, domain.CallStateEnded, endedBy)
	h.metrics.ActiveCalls.Dec()

	ended := domain.EndCallPayload{CallID: s.ID}
	h.sendToUser(s.Peer(endedBy), ended)
	h.sendToUser(endedBy, ended)
	h.sessions.Release(s.ID, s.CallerID, s.CalleeID)
}

// expireInvite turns an unanswered invite into MISSED
func (h *Hub) expireInvite(e *callEntry) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session.State != domain.CallStateInvited {
		return
	}
	e.timer = nil
	h.finish(e, domain.CallStateMissed, "")

	missed := domain.CallMissedPayload{CallID: e.session.ID}
	h.sendToUser(e.session.CallerID, missed)
	h.sendToUser(e.session.CalleeID, missed)
	h.log.Debug("Call missed", "call_id", e.session.ID)
}

// endCallsFor ends userID's ACTIVE calls after their last channel left.
// Pending invites are left to time out so a quick reconnect can still answer.
func (h *Hub) endCallsFor(userID string) {
	for _, callID := range h.calls.liveFor(userID) {
		e := h.calls.get(callID)
		if e == nil {
			continue
		}
		e.mu.Lock()
		if e.session.State == domain.CallStateActive {
			h.endLocked(e, userID)
		}
		e.mu.Unlock()
	}
}

// settleLiveCalls records a terminal state for every call still in flight.
// Channels are already gone, so nobody is notified.
func (h *Hub) settleLiveCalls() int {
	entries := h.calls.live()
	for _, e := range entries {
		e.mu.Lock()
		switch e.session.State {
		case domain.CallStateActive:
			s := e.session
			h.finish(e, domain.CallStateEnded, "")
			h.metrics.ActiveCalls.Dec()
			h.sessions.Release(s.ID, s.CallerID, s.CalleeID)
		case domain.CallStateInvited:
			h.finish(e, domain.CallStateMissed, "")
		}
		e.mu.Unlock()
	}
	return len(entries)
}

// RelaySignal forwards an opaque media negotiation payload to the peer.
// Payloads for finished or purged calls are dropped silently.
func (h *Hub) RelaySignal(fromUser string, p domain.CallSignalPayload) error {
	e := h.calls.get(p.CallID)
	if e == nil {
		return nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.session.IsParticipant(fromUser) {
		return domain.ErrNotParticipant
	}
	if !e.session.State.Relayable() {
		return nil
	}

	p.From = fromUser
	h.sendToUser(e.session.Peer(fromUser), p)
	return nil
}

// resumeCalls re-attaches a newly registered channel to the user's calls
func (h *Hub) resumeCalls(c *Client, userID string) {
	if handle, ok := h.sessions.Get(userID); ok {
		state := domain.CallStateActive
		if s, ok := h.CallSnapshot(handle.CallID); ok {
			state = s.State
		}
		h.sendTo(c, domain.SessionResumePayload{
			CallID:      handle.CallID,
			MediaRoomID: handle.MediaRoomID,
			PeerID:      handle.PeerID,
			State:       state,
		})
	}

	for _, callID := range h.calls.liveFor(userID) {
		s, ok := h.CallSnapshot(callID)
		if !ok || s.State != domain.CallStateInvited {
			continue
		}
		if s.CalleeID == userID {
			h.sendTo(c, domain.IncomingCallPayload{CallID: s.ID, From: s.CallerID, MediaRoomID: s.MediaRoomID})
		} else {
			h.sendTo(c, domain.CallInvitedPayload{CallID: s.ID, To: s.CalleeID, MediaRoomID: s.MediaRoomID})
		}
	}
}

// finish moves e into a terminal state.
// NOTE: Caller must hold e.mu
func (h *Hub) finish(e *callEntry, state domain.CallState, endedBy string) {
	e.session.State = state
	e.session.EndedAt = time.Now().UTC()
	e.session.EndedBy = endedBy
	h.stopTimer(e)
	h.record(e)
	h.calls.untrack(e.session)
	h.calls.schedulePurge(e.session.ID, h.opts.CallRetention)
}

// NOTE: Caller must hold e.mu
func (h *Hub) stopTimer(e *callEntry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// record counts the transition and mirrors the session to the store.
// NOTE: Caller must hold e.mu so writes for one call stay ordered
func (h *Hub) record(e *callEntry) {
	h.metrics.CallTransitions.WithLabelValues(string(e.session.State)).Inc()
	h.sink.SaveCall(e.session)
}
