package domain

import "errors"

var (
	ErrRoomNotFound    = errors.New("room not found")
	ErrStaleTransition = errors.New("stale transition")
	ErrBusy            = errors.New("callee busy")
	ErrChannelUnknown  = errors.New("channel unknown")
	ErrCallNotFound    = errors.New("call not found")
	ErrNotParticipant  = errors.New("not a call participant")
	ErrNotMember       = errors.New("not a room member")
	ErrNotRegistered   = errors.New("channel not registered")
	ErrInvalidEvent    = errors.New("invalid event")
	ErrRateLimited     = errors.New("rate limited")
	ErrSelfCall        = errors.New("cannot call yourself")
)

// Wire error codes sent in error events
const (
	CodeRoomNotFound    = "room_not_found"
	CodeStaleTransition = "stale_transition"
	CodeBusy            = "busy"
	CodeCallNotFound    = "call_not_found"
	CodeNotParticipant  = "not_participant"
	CodeNotMember       = "not_member"
	CodeNotRegistered   = "not_registered"
	CodeInvalidEvent    = "invalid_event"
	CodeRateLimited     = "rate_limited"
	CodeInternal        = "internal"
)

var errorCodes = []struct {
	err  error
	code string
}{
	{ErrRoomNotFound, CodeRoomNotFound},
	{ErrStaleTransition, CodeStaleTransition},
	{ErrBusy, CodeBusy},
	{ErrCallNotFound, CodeCallNotFound},
	{ErrNotParticipant, CodeNotParticipant},
	{ErrNotMember, CodeNotMember},
	{ErrNotRegistered, CodeNotRegistered},
	{ErrInvalidEvent, CodeInvalidEvent},
	{ErrSelfCall, CodeInvalidEvent},
	{ErrRateLimited, CodeRateLimited},
}

// ErrorCode maps an error to its wire code
func ErrorCode(err error) string {
	for _, ec := range errorCodes {
		if errors.Is(err, ec.err) {
			return ec.code
		}
	}
	return CodeInternal
}
