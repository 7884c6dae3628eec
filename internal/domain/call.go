package domain

import "time"

// CallState is the lifecycle state of a call session
type CallState string

const (
	CallStateInvited     CallState = "INVITED"
	CallStateActive      CallState = "ACTIVE"
	CallStateEnded       CallState = "ENDED"
	CallStateRejected    CallState = "REJECTED"
	CallStateMissed      CallState = "MISSED"
	CallStateBusyAborted CallState = "BUSY-ABORTED"
	CallStateCancelled   CallState = "CANCELLED"
)

// Terminal reports whether no further transition is possible
func (s CallState) Terminal() bool {
	switch s {
	case CallStateEnded, CallStateRejected, CallStateMissed, CallStateBusyAborted, CallStateCancelled:
		return true
	}
	return false
}

// Relayable reports whether media negotiation payloads may still flow
func (s CallState) Relayable() bool {
	return s == CallStateInvited || s == CallStateActive
}

// CallSession is a snapshot of one call. It doubles as the persisted call record.
type CallSession struct {
	ID          string    `json:"call_id"`
	CallerID    string    `json:"caller_id"`
	CalleeID    string    `json:"callee_id"`
	MediaRoomID string    `json:"media_room_id"`
	State       CallState `json:"state"`
	CreatedAt   time.Time `json:"created_at"`
	AnsweredAt  time.Time `json:"answered_at,omitzero"`
	EndedAt     time.Time `json:"ended_at,omitzero"`
	EndedBy     string    `json:"ended_by,omitempty"`
}

// IsParticipant reports whether userID is the caller or the callee
func (c CallSession) IsParticipant(userID string) bool {
	return userID == c.CallerID || userID == c.CalleeID
}

// Peer returns the other party of the call
func (c CallSession) Peer(userID string) string {
	if userID == c.CallerID {
		return c.CalleeID
	}
	return c.CallerID
}

// FloatingSession is the single in-progress call a user is attached to.
// It survives view navigation and reconnects.
type FloatingSession struct {
	CallID      string    `json:"call_id"`
	MediaRoomID string    `json:"media_room_id"`
	PeerID      string    `json:"peer_id"`
	Since       time.Time `json:"since"`
}
