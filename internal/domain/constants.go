package domain

import "time"

// ==== WebSocket Constants ====

// MaxMessageSize is the maximum allowed WebSocket frame size in bytes
const MaxMessageSize = 16384

// SendBufferSize is the number of outbound frames queued per channel
const SendBufferSize = 256

// MaxTextLength is the maximum chat message length in runes
const MaxTextLength = 4000

// MaxIDLength bounds user, room and call identifiers on the wire
const MaxIDLength = 128

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints (requests/sec)
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket upgrades (req/sec)
	DefaultRateLimitWS = 5

	// DefaultRateLimitEvents is the default inbound event rate per channel (events/sec)
	DefaultRateLimitEvents = 20
)

// ==== Timing Constants ====

const (
	// CallInviteTimeout is how long an invite rings before it becomes MISSED
	CallInviteTimeout = 30 * time.Second

	// CallRetention is how long a terminal call stays queryable
	CallRetention = 5 * time.Minute

	// ResumeGrace keeps per-user dedupe state after the last channel leaves
	ResumeGrace = 5 * time.Second
)

// DedupeWindow is the number of recent client event ids remembered per user
const DedupeWindow = 256
