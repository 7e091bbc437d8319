package session

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
)

// Handler exposes the websocket upgrade endpoint and connection stats.
type Handler struct {
	service *Service
}

// NewHandler creates a new session HTTP handler
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// HandleSession authenticates the handshake's identity claim and upgrades
// the connection. An unknown claim terminates the request before upgrade;
// the client must reconnect with new credentials.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	claim := bearerToken(r)
	if claim == "" {
		claim = r.URL.Query().Get("token")
	}

	user, sessErr := h.service.auth.Authenticate(r.Context(), claim)
	if sessErr != nil {
		log.Warn().Str("reason", sessErr.Message).Msg("websocket authentication rejected")
		http.Error(w, "authentication failed", http.StatusUnauthorized)
		return
	}

	if _, err := h.service.manager.Upgrade(w, r, user.ID, displayName(user)); err != nil {
		log.Error().Err(err).Msg("websocket upgrade failed")
		return
	}
}

// HandleStats returns counts of live connections and rooms.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	connections, rooms := h.service.manager.Stats()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"connections":` + strconv.Itoa(connections) + `,"active_rooms":` + strconv.Itoa(rooms) + `}`))
}

// RegisterRoutes registers the session routes with an HTTP mux.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/ws/session", h.HandleSession)
	mux.HandleFunc("/ws/stats", h.HandleStats)
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}
