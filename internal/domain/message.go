package domain

import (
	"encoding/json"
	"time"
)

// MessageType defines the type of event carried by a Message
type MessageType string

// Inbound events (client -> hub)
const (
	MessageTypeRegisterUser      MessageType = "register_user"
	MessageTypeSubscribePresence MessageType = "subscribe_presence"
	MessageTypeSendMessage       MessageType = "send_message"
	MessageTypeMarkAsRead        MessageType = "mark_as_read"
	MessageTypeSetFocus          MessageType = "set_focus"
	MessageTypeInviteCall        MessageType = "invite_call"
	MessageTypeAcceptCall        MessageType = "accept_call" // also outbound to caller
	MessageTypeRejectCall        MessageType = "reject_call" // also outbound to caller
	MessageTypeCancelCall        MessageType = "cancel_call" // also outbound to callee
	MessageTypeEndCall           MessageType = "end_call"    // also outbound to peer
	MessageTypeCallSignal        MessageType = "call_signal" // relayed as-is to peer
)

// Outbound events (hub -> client)
const (
	MessageTypeRegistered          MessageType = "registered"
	MessageTypeChatMessage         MessageType = "chat_message"
	MessageTypeConversationUpdated MessageType = "conversation_updated"
	MessageTypeIncomingCall        MessageType = "incoming_call"
	MessageTypeCallInvited         MessageType = "call_invited"
	MessageTypeCallMissed          MessageType = "call_missed"
	MessageTypeCallBusy            MessageType = "call_busy"
	MessageTypeOnlineUsers         MessageType = "online_users"
	MessageTypeSessionResume       MessageType = "session_resume"
	MessageTypeFloatingSession     MessageType = "floating_session"
	MessageTypeError               MessageType = "error"
	MessageTypeKicked              MessageType = "kicked"
)

// Message is the envelope for every frame on the wire.
// ID is an optional client event id on inbound frames and a server id on outbound ones.
type Message struct {
	ID        string          `json:"id,omitempty"`
	Type      MessageType     `json:"type"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

// Inbound is implemented by every payload a client may send
type Inbound interface {
	InboundType() MessageType
}

// Outbound is implemented by every payload the hub may send
type Outbound interface {
	OutboundType() MessageType
}

// RegisterUserPayload binds the sending channel to a user
type RegisterUserPayload struct {
	UserID string `json:"user_id" validate:"required,max=128"`
}

// SubscribePresencePayload opts the channel into online_users snapshots
type SubscribePresencePayload struct{}

// SendMessagePayload delivers a chat message to a room
type SendMessagePayload struct {
	RoomID string `json:"room_id" validate:"required,max=128"`
	Text   string `json:"text" validate:"required,max=4000"`
}

// MarkAsReadPayload resets the sender's unread counter and focuses the room
type MarkAsReadPayload struct {
	RoomID string `json:"room_id" validate:"required,max=128"`
}

// SetFocusPayload declares the room this channel is viewing; empty means none
type SetFocusPayload struct {
	RoomID string `json:"room_id" validate:"max=128"`
}

// InviteCallPayload starts a call towards another user
type InviteCallPayload struct {
	To string `json:"to" validate:"required,max=128"`
}

// AcceptCallPayload is sent by the callee and forwarded to the caller
type AcceptCallPayload struct {
	CallID string `json:"call_id" validate:"required,max=128"`
	To     string `json:"to,omitempty"`
}

// RejectCallPayload is sent by the callee and forwarded to the caller
type RejectCallPayload struct {
	CallID string `json:"call_id" validate:"required,max=128"`
	To     string `json:"to,omitempty"`
}

// CancelCallPayload withdraws an unanswered invite
type CancelCallPayload struct {
	CallID string `json:"call_id" validate:"required,max=128"`
}

// EndCallPayload hangs up an active call
type EndCallPayload struct {
	CallID string `json:"call_id" validate:"required,max=128"`
}

// CallSignalPayload carries opaque media negotiation data (session descriptions,
// connectivity candidates). Data is never inspected.
type CallSignalPayload struct {
	CallID string          `json:"call_id" validate:"required,max=128"`
	Kind   string          `json:"kind" validate:"required,oneof=offer answer candidate"`
	From   string          `json:"from,omitempty"`
	Data   json.RawMessage `json:"data" validate:"required"`
}

// RegisteredPayload acknowledges register_user
type RegisteredPayload struct {
	UserID    string `json:"user_id"`
	ChannelID string `json:"channel_id"`
}

// ChatMessagePayload is a delivered chat message
type ChatMessagePayload struct {
	ID        string    `json:"id"`
	RoomID    string    `json:"room_id"`
	SenderID  string    `json:"sender_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// ConversationUpdatedPayload is a per-recipient conversation summary
type ConversationUpdatedPayload struct {
	RoomID       string    `json:"room_id"`
	LastMessage  string    `json:"last_message"`
	LastSenderID string    `json:"last_sender_id"`
	UpdatedAt    time.Time `json:"updated_at"`
	UnreadCount  int       `json:"unread_count"`
}

// IncomingCallPayload rings the callee
type IncomingCallPayload struct {
	CallID      string `json:"call_id"`
	From        string `json:"from"`
	MediaRoomID string `json:"media_room_id"`
}

// CallInvitedPayload acknowledges an invite to the caller
type CallInvitedPayload struct {
	CallID      string `json:"call_id"`
	To          string `json:"to"`
	MediaRoomID string `json:"media_room_id"`
}

// CallMissedPayload reports an unanswered invite
type CallMissedPayload struct {
	CallID string `json:"call_id"`
}

// CallBusyPayload reports that the callee is already in a call
type CallBusyPayload struct {
	CallID string `json:"call_id"`
}

// OnlineUsersPayload is a full presence snapshot
type OnlineUsersPayload struct {
	Users []string `json:"users"`
}

// SessionResumePayload lets a reconnecting client re-attach to its call
type SessionResumePayload struct {
	CallID      string    `json:"call_id"`
	MediaRoomID string    `json:"media_room_id"`
	PeerID      string    `json:"peer_id"`
	State       CallState `json:"state"`
}

// FloatingSessionPayload mirrors the user's floating session handle
type FloatingSessionPayload struct {
	Active      bool   `json:"active"`
	CallID      string `json:"call_id,omitempty"`
	MediaRoomID string `json:"media_room_id,omitempty"`
	PeerID      string `json:"peer_id,omitempty"`
}

// KickedPayload tells a channel it is about to be closed by the server
type KickedPayload struct {
	Reason string `json:"reason"`
}

// ErrorPayload reports a failed inbound event to its sender only
type ErrorPayload struct {
	Code    string      `json:"code"`
	RefID   string      `json:"ref_id,omitempty"`
	RefType MessageType `json:"ref_type,omitempty"`
	Message string      `json:"message"`
}

func (RegisterUserPayload) InboundType() MessageType      { return MessageTypeRegisterUser }
func (SubscribePresencePayload) InboundType() MessageType { return MessageTypeSubscribePresence }
func (SendMessagePayload) InboundType() MessageType       { return MessageTypeSendMessage }
func (MarkAsReadPayload) InboundType() MessageType        { return MessageTypeMarkAsRead }
func (SetFocusPayload) InboundType() MessageType          { return MessageTypeSetFocus }
func (InviteCallPayload) InboundType() MessageType        { return MessageTypeInviteCall }
func (AcceptCallPayload) InboundType() MessageType        { return MessageTypeAcceptCall }
func (RejectCallPayload) InboundType() MessageType        { return MessageTypeRejectCall }
func (CancelCallPayload) InboundType() MessageType        { return MessageTypeCancelCall }
func (EndCallPayload) InboundType() MessageType           { return MessageTypeEndCall }
func (CallSignalPayload) InboundType() MessageType        { return MessageTypeCallSignal }

func (AcceptCallPayload) OutboundType() MessageType          { return MessageTypeAcceptCall }
func (RejectCallPayload) OutboundType() MessageType          { return MessageTypeRejectCall }
func (CancelCallPayload) OutboundType() MessageType          { return MessageTypeCancelCall }
func (EndCallPayload) OutboundType() MessageType             { return MessageTypeEndCall }
func (CallSignalPayload) OutboundType() MessageType          { return MessageTypeCallSignal }
func (RegisteredPayload) OutboundType() MessageType          { return MessageTypeRegistered }
func (ChatMessagePayload) OutboundType() MessageType         { return MessageTypeChatMessage }
func (ConversationUpdatedPayload) OutboundType() MessageType { return MessageTypeConversationUpdated }
func (IncomingCallPayload) OutboundType() MessageType        { return MessageTypeIncomingCall }
func (CallInvitedPayload) OutboundType() MessageType         { return MessageTypeCallInvited }
func (CallMissedPayload) OutboundType() MessageType          { return MessageTypeCallMissed }
func (CallBusyPayload) OutboundType() MessageType            { return MessageTypeCallBusy }
func (OnlineUsersPayload) OutboundType() MessageType         { return MessageTypeOnlineUsers }
func (SessionResumePayload) OutboundType() MessageType       { return MessageTypeSessionResume }
func (FloatingSessionPayload) OutboundType() MessageType     { return MessageTypeFloatingSession }
func (ErrorPayload) OutboundType() MessageType               { return MessageTypeError }
func (KickedPayload) OutboundType() MessageType              { return MessageTypeKicked }

// NewInbound returns an empty payload for an inbound type, or false if the type
// is not part of the inbound vocabulary
func NewInbound(t MessageType) (Inbound, bool) {
	switch t {
	case MessageTypeRegisterUser:
		return &RegisterUserPayload{}, true
	case MessageTypeSubscribePresence:
		return &SubscribePresencePayload{}, true
	case MessageTypeSendMessage:
		return &SendMessagePayload{}, true
	case MessageTypeMarkAsRead:
		return &MarkAsReadPayload{}, true
	case MessageTypeSetFocus:
		return &SetFocusPayload{}, true
	case MessageTypeInviteCall:
		return &InviteCallPayload{}, true
	case MessageTypeAcceptCall:
		return &AcceptCallPayload{}, true
	case MessageTypeRejectCall:
		return &RejectCallPayload{}, true
	case MessageTypeCancelCall:
		return &CancelCallPayload{}, true
	case MessageTypeEndCall:
		return &EndCallPayload{}, true
	case MessageTypeCallSignal:
		return &CallSignalPayload{}, true
	}
	return nil, false
}
