package handlers

import (
	"net/http"

	"termiclad/internal/auth"
	"termiclad/internal/presence"
	"termiclad/internal/services"
	ws "termiclad/internal/websocket"
	"termiclad/pkg/logger"

	"github.com/gorilla/websocket"
)

type WebSocketHandlers struct {
	authService    *auth.Service
	messageService *services.MessageService
	userService    *services.UserService
	registry       *presence.Registry
	upgrader       websocket.Upgrader
}

func NewWebSocketHandlers(authService *auth.Service, messageService *services.MessageService, userService *services.UserService, registry *presence.Registry, allowedOrigins []string) *WebSocketHandlers {
	return &WebSocketHandlers{
		authService:    authService,
		messageService: messageService,
		userService:    userService,
		registry:       registry,
		upgrader: websocket.Upgrader{
			CheckOrigin: originChecker(allowedOrigins),
		},
	}
}

// HandleWebSocket verifies the token before upgrading and joins the
// connection to the verified identity's room. A connection can never join as
// an identity its credential did not prove.
func (h *WebSocketHandlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authService.IdentityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Error("Upgrade error: %v", err)
		return
	}

	client := ws.NewClient(conn, *identity, h.registry, h.messageService, h.userService)

	wasOnline := h.registry.IsOnline(identity.ID)
	h.registry.Join(identity.ID, client)
	if !wasOnline {
		h.userService.SetPresence(r.Context(), identity.ID, true)
	}
	logger.Info("User %s connected (session %s)", identity.Username, client.ID())

	go client.WritePump()
	go client.ReadPump()
}

func originChecker(allowed []string) func(r *http.Request) bool {
	allowAll := false
	set := make(map[string]struct{}, len(allowed))
	for _, origin := range allowed {
		if origin == "*" {
			allowAll = true
		}
		set[origin] = struct{}{}
	}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowAll {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
