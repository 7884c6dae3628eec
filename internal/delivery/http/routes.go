package http

import (
	"net/http"

	"github.com/mmuslimabdulj/campus-realtime/internal/middleware"
)

// Routes registers every endpoint. metrics may be nil.
func (h *Handler) Routes(apiLimiter, wsLimiter *middleware.IPRateLimiter, metrics http.Handler) *http.ServeMux {
	mux := http.NewServeMux()

	// WebSocket route with rate limiting
	mux.HandleFunc("GET /ws", middleware.RateLimitFunc(wsLimiter, h.HandleWebSocket))

	// API routes with rate limiting
	mux.HandleFunc("GET /api/presence", middleware.RateLimitFunc(apiLimiter, h.HandlePresence))
	mux.HandleFunc("POST /api/conversations", middleware.RateLimitFunc(apiLimiter, h.HandleCreateConversation))
	mux.HandleFunc("GET /api/calls/{id}", middleware.RateLimitFunc(apiLimiter, h.HandleGetCall))
	mux.HandleFunc("GET /api/users/{id}/missed-calls", middleware.RateLimitFunc(apiLimiter, h.HandleMissedCalls))
	mux.HandleFunc("PUT /api/users/{id}/profile", middleware.RateLimitFunc(apiLimiter, h.HandleUpsertProfile))
	mux.HandleFunc("DELETE /api/users/{id}/channels", middleware.RateLimitFunc(apiLimiter, h.HandleDisconnectUser))

	mux.HandleFunc("GET /healthz", h.HandleHealth)
	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return mux
}
