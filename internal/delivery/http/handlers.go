package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/mmuslimabdulj/campus-realtime/internal/config"
	"github.com/mmuslimabdulj/campus-realtime/internal/delivery/ws"
	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
	"github.com/mmuslimabdulj/campus-realtime/internal/storage"
	"github.com/samber/lo"
)

const (
	defaultMissedLimit = 20
	maxMissedLimit     = 100
	storeTimeout       = 5 * time.Second
)

// Store is the slice of the collaborator store the HTTP surface needs
type Store interface {
	CreateConversation(ctx context.Context, conv domain.Conversation) error
	GetCall(ctx context.Context, callID string) (domain.CallSession, error)
	MissedCalls(ctx context.Context, calleeID string, limit int) ([]domain.CallSession, error)
	LookupProfiles(ctx context.Context, userIDs []string) (map[string]domain.Profile, error)
	UpsertProfile(ctx context.Context, p domain.Profile) error
	Ping(ctx context.Context) error
}

type Handler struct {
	hub      *ws.Hub
	store    Store
	log      *slog.Logger
	upgrader websocket.Upgrader
	validate *validator.Validate
}

func NewHandler(hub *ws.Hub, store Store, cfg *config.Config, log *slog.Logger) *Handler {
	return &Handler{
		hub:   hub,
		store: store,
		log:   log.With("component", "http"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.IsOriginAllowed(r.Header.Get("Origin"))
			},
		},
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// writeJSON encodes v with the given status
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// HandleWebSocket upgrades HTTP to WebSocket. The channel stays unbound until
// the client sends register_user.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already replied to the client
		h.log.Debug("Upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	client := ws.NewClient(h.hub, conn)
	if !h.hub.Connect(client) {
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"))
		conn.Close()
		return
	}

	// Start read/write pumps in goroutines
	go client.WritePump()
	go client.ReadPump()
}

type presenceResponse struct {
	Users []domain.PresenceEntry `json:"users"`
}

// HandlePresence returns the online users, enriched with profiles when known
func (h *Handler) HandlePresence(w http.ResponseWriter, r *http.Request) {
	online := h.hub.OnlineUsers()

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	profiles, err := h.store.LookupProfiles(ctx, online)
	if err != nil {
		// Presence is still useful without profiles
		h.log.Warn("Profile lookup failed", "error", err)
		profiles = nil
	}

	entries := lo.Map(online, func(userID string, _ int) domain.PresenceEntry {
		entry := domain.PresenceEntry{UserID: userID}
		if p, ok := profiles[userID]; ok {
			entry.Profile = &p
		}
		return entry
	})
	writeJSON(w, http.StatusOK, presenceResponse{Users: entries})
}

type createConversationRequest struct {
	RoomID  string   `json:"room_id" validate:"required,max=128"`
	Members []string `json:"members" validate:"len=2,unique,dive,required,max=128"`
}

// HandleCreateConversation registers a direct conversation with the store and the hub
func (h *Handler) HandleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var req createConversationRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	req.RoomID = strings.TrimSpace(req.RoomID)
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "a conversation needs a room_id and exactly two distinct members")
		return
	}

	conv := domain.NewConversation(req.RoomID, req.Members...)

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	if err := h.store.CreateConversation(ctx, conv); err != nil {
		if errors.Is(err, storage.ErrConversationExists) {
			writeError(w, http.StatusConflict, "conversation already exists")
			return
		}
		h.log.Error("Create conversation failed", "room_id", req.RoomID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not create conversation")
		return
	}

	h.hub.AddConversation(conv)
	h.log.Info("Conversation created", "room_id", conv.RoomID)
	writeJSON(w, http.StatusCreated, conv)
}

// HandleGetCall returns a call session, live from the hub or from the store
func (h *Handler) HandleGetCall(w http.ResponseWriter, r *http.Request) {
	callID := r.PathValue("id")
	if call, ok := h.hub.CallSnapshot(callID); ok {
		writeJSON(w, http.StatusOK, call)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	call, err := h.store.GetCall(ctx, callID)
	if errors.Is(err, domain.ErrCallNotFound) {
		writeError(w, http.StatusNotFound, "call not found")
		return
	}
	if err != nil {
		h.log.Error("Get call failed", "call_id", callID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load call")
		return
	}
	writeJSON(w, http.StatusOK, call)
}

// HandleMissedCalls lists the calls a user did not answer, newest first
func (h *Handler) HandleMissedCalls(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	limit := defaultMissedLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxMissedLimit)
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	calls, err := h.store.MissedCalls(ctx, userID, limit)
	if err != nil {
		h.log.Error("Missed calls failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not load calls")
		return
	}
	if calls == nil {
		calls = []domain.CallSession{}
	}
	writeJSON(w, http.StatusOK, calls)
}

type profileRequest struct {
	DisplayName string `json:"display_name" validate:"required,max=64"`
	AvatarURL   string `json:"avatar_url" validate:"omitempty,url,max=512"`
	University  string `json:"university" validate:"max=128"`
}

// HandleUpsertProfile stores the profile shown next to a user in presence lists
func (h *Handler) HandleUpsertProfile(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	var req profileRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid profile")
		return
	}

	profile := domain.Profile{
		UserID:      userID,
		DisplayName: strings.TrimSpace(req.DisplayName),
		AvatarURL:   req.AvatarURL,
		University:  strings.TrimSpace(req.University),
	}

	ctx, cancel := context.WithTimeout(r.Context(), storeTimeout)
	defer cancel()
	if err := h.store.UpsertProfile(ctx, profile); err != nil {
		h.log.Error("Upsert profile failed", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not save profile")
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleDisconnectUser closes every channel of a user
func (h *Handler) HandleDisconnectUser(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("id")
	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "disconnected by server"
	}
	n := h.hub.DisconnectUser(userID, reason)
	writeJSON(w, http.StatusOK, map[string]int{"channels": n})
}

// HandleHealth reports whether the store is reachable, with the hub's table sizes
func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	if err := h.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "degraded"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok", Hub: h.hub.Stats()})
}

type healthResponse struct {
	Status string   `json:"status"`
	Hub    ws.Stats `json:"hub"`
}
