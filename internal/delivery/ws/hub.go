package ws

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
	"github.com/mmuslimabdulj/campus-realtime/internal/observability"
	"golang.org/x/time/rate"
)

// RecordSink receives state snapshots to mirror into the collaborator store.
// Implementations must not block.
type RecordSink interface {
	SaveConversation(conv domain.Conversation)
	SaveCall(call domain.CallSession)
}

type discardSink struct{}

func (discardSink) SaveConversation(domain.Conversation) {}
func (discardSink) SaveCall(domain.CallSession)          {}

// Options tunes the hub
type Options struct {
	CallInviteTimeout time.Duration
	CallRetention     time.Duration
	ResumeGrace       time.Duration
	DedupeWindow      int
	MaxMessageSize    int64
	SendBufferSize    int
	EventRate         rate.Limit
	EventBurst        int
	KickDelay         time.Duration
}

// DefaultOptions returns the production defaults
func DefaultOptions() Options {
	return Options{
		CallInviteTimeout: domain.CallInviteTimeout,
		CallRetention:     domain.CallRetention,
		ResumeGrace:       domain.ResumeGrace,
		DedupeWindow:      domain.DedupeWindow,
		MaxMessageSize:    domain.MaxMessageSize,
		SendBufferSize:    domain.SendBufferSize,
		EventRate:         domain.DefaultRateLimitEvents,
		EventBurst:        2 * domain.DefaultRateLimitEvents,
		KickDelay:         500 * time.Millisecond,
	}
}

// Hub owns every channel, the user registry, the conversation cache and the
// call sessions. All exported methods are safe for concurrent use.
type Hub struct {
	opts    Options
	log     *slog.Logger
	metrics *observability.Metrics
	sink    RecordSink

	mu       sync.RWMutex
	clients  map[*Client]struct{}
	shutdown bool

	registry      *Registry
	conversations *ConversationCache
	calls         *CallTable
	sessions      *FloatingSessionStore
	dedupe        *dedupeTracker

	presenceDirty chan struct{}
	stopSessions  func()
}

// NewHub creates a new Hub. A nil sink discards writes; nil metrics register nothing.
func NewHub(opts Options, sink RecordSink, log *slog.Logger, metrics *observability.Metrics) *Hub {
	if sink == nil {
		sink = discardSink{}
	}
	if log == nil {
		log = slog.Default()
	}
	if metrics == nil {
		metrics = observability.NewMetrics(nil)
	}
	if opts.SendBufferSize <= 0 {
		opts.SendBufferSize = domain.SendBufferSize
	}
	if opts.EventBurst <= 0 {
		opts.EventBurst = 1
	}

	h := &Hub{
		opts:          opts,
		log:           log.With("component", "hub"),
		metrics:       metrics,
		sink:          sink,
		clients:       make(map[*Client]struct{}),
		registry:      NewRegistry(),
		conversations: NewConversationCache(),
		calls:         NewCallTable(),
		sessions:      NewFloatingSessionStore(),
		dedupe:        newDedupeTracker(opts.DedupeWindow, opts.ResumeGrace),
		presenceDirty: make(chan struct{}, 1),
	}
	h.stopSessions = h.sessions.Subscribe(h.onFloatingChange)
	return h
}

// Run publishes presence snapshots until ctx is cancelled.
// Registry changes are coalesced: a burst of joins yields one snapshot.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-h.presenceDirty:
			h.broadcastPresence()
		}
	}
}

// Close disconnects every channel, settles calls still in flight and stops
// all timers. Settled calls are written to the sink before Close returns.
func (h *Hub) Close() {
	h.mu.Lock()
	if h.shutdown {
		h.mu.Unlock()
		return
	}
	h.shutdown = true
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clients = make(map[*Client]struct{})
	h.mu.Unlock()

	for _, c := range clients {
		c.close()
	}
	settled := h.settleLiveCalls()
	h.calls.stopAll()
	h.dedupe.Close()
	h.stopSessions()
	h.metrics.Channels.Set(0)
	h.log.Info("Hub closed", "channels", len(clients), "calls_settled", settled)
}

// Connect admits a new, unbound channel
func (h *Hub) Connect(c *Client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.shutdown {
		return false
	}
	h.clients[c] = struct{}{}
	h.metrics.Channels.Inc()
	return true
}

// Disconnect removes a channel. When it was the user's last channel the user
// goes offline: presence is republished and their active calls end.
// Unknown channels are ignored.
func (h *Hub) Disconnect(c *Client) {
	h.mu.Lock()
	_, known := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	c.close()
	if !known {
		return
	}
	h.metrics.Channels.Dec()

	userID, wentOffline, bound := h.registry.Unregister(c)
	if !bound {
		return
	}
	h.log.Debug("Channel disconnected", "channel_id", c.ID, "user_id", userID, "offline", wentOffline)
	if wentOffline {
		h.userWentOffline(userID)
	}
}

// ChannelCount returns the number of connected channels, bound or not
func (h *Hub) ChannelCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Stats is a point-in-time view of the hub's tables
type Stats struct {
	Channels         int `json:"channels"`
	OnlineUsers      int `json:"online_users"`
	Conversations    int `json:"conversations"`
	RetainedCalls    int `json:"retained_calls"`
	FloatingSessions int `json:"floating_sessions"`
	DedupeWindows    int `json:"dedupe_windows"`
}

// Stats reports table sizes. Each figure is read separately, so the set is
// not a consistent snapshot under load.
func (h *Hub) Stats() Stats {
	return Stats{
		Channels:         h.ChannelCount(),
		OnlineUsers:      len(h.registry.OnlineUsers()),
		Conversations:    h.conversations.Count(),
		RetainedCalls:    h.calls.Count(),
		FloatingSessions: h.sessions.Count(),
		DedupeWindows:    h.dedupe.Tracked(),
	}
}

// Dispatch decodes one inbound frame and routes it. Failures are reported to
// the originating channel only.
func (h *Hub) Dispatch(c *Client, raw []byte) {
	msg, payload, err := decodeInbound(raw)
	if err != nil {
		h.reject(c, msg, err)
		return
	}

	userID := c.UserID()
	if _, ok := payload.(*domain.RegisterUserPayload); !ok && userID == "" {
		h.reject(c, msg, domain.ErrNotRegistered)
		return
	}

	if msg.ID != "" && userID != "" && h.dedupe.Seen(userID, msg.ID) {
		h.log.Debug("Duplicate event suppressed", "user_id", userID, "event_id", msg.ID, "type", msg.Type)
		return
	}

	switch p := payload.(type) {
	case *domain.RegisterUserPayload:
		err = h.RegisterUser(c, p.UserID)
	case *domain.SubscribePresencePayload:
		h.SubscribePresence(c)
	case *domain.SendMessagePayload:
		_, err = h.DeliverMessage(p.RoomID, userID, p.Text)
	case *domain.MarkAsReadPayload:
		err = h.MarkAsRead(c, p.RoomID)
	case *domain.SetFocusPayload:
		err = h.SetFocus(c, p.RoomID)
	case *domain.InviteCallPayload:
		_, err = h.InviteCall(userID, p.To)
		if errors.Is(err, domain.ErrBusy) {
			// The caller already got call_busy
			err = nil
		}
	case *domain.AcceptCallPayload:
		err = h.AcceptCall(p.CallID, userID)
	case *domain.RejectCallPayload:
		err = h.RejectCall(p.CallID, userID)
	case *domain.CancelCallPayload:
		err = h.CancelCall(p.CallID, userID)
	case *domain.EndCallPayload:
		err = h.EndCall(p.CallID, userID)
	case *domain.CallSignalPayload:
		err = h.RelaySignal(userID, *p)
	}

	if err != nil && msg.ID != "" && userID != "" {
		// Only applied events are suppressed; a rejected one may be retried
		h.dedupe.Forget(userID, msg.ID)
	}

	switch {
	case err == nil:
	case errors.Is(err, domain.ErrChannelUnknown):
		// Already cleaned up
		h.log.Debug("Event from departed channel", "channel_id", c.ID, "type", msg.Type)
	default:
		h.reject(c, msg, err)
	}
}

// reject sends an error event for msg to c
func (h *Hub) reject(c *Client, msg domain.Message, err error) {
	code := domain.ErrorCode(err)
	h.metrics.EventsRejected.WithLabelValues(code).Inc()
	if code == domain.CodeInternal {
		h.log.Error("Event failed", "channel_id", c.ID, "type", msg.Type, "error", err)
	}
	h.sendTo(c, domain.ErrorPayload{
		Code:    code,
		RefID:   msg.ID,
		RefType: msg.Type,
		Message: err.Error(),
	})
}

func (h *Hub) rejectRateLimited(c *Client) {
	h.reject(c, domain.Message{}, domain.ErrRateLimited)
}
