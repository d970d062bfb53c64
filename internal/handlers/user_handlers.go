package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"termiclad/internal/auth"
	"termiclad/internal/models"
	"termiclad/internal/services"
	"termiclad/pkg/logger"
)

type UserHandlers struct {
	authService    *auth.Service
	userService    *services.UserService
	messageService *services.MessageService
}

func NewUserHandlers(authService *auth.Service, userService *services.UserService, messageService *services.MessageService) *UserHandlers {
	return &UserHandlers{
		authService:    authService,
		userService:    userService,
		messageService: messageService,
	}
}

func (h *UserHandlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authService.IdentityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	users, err := h.userService.ListUsers(r.Context(), identity.ID)
	if err != nil {
		logger.Error("List users error: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusOK, users)
}

// Conversation returns the direct history with another user and marks their
// messages to the caller as read.
func (h *UserHandlers) Conversation(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authService.IdentityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	otherID, err := userIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user ID")
		return
	}

	messages, err := h.userService.ConversationWith(r.Context(), identity.ID, otherID)
	if err != nil {
		logger.Error("Get messages error: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

// SendMessage drives the same pipeline as the websocket send_message event.
func (h *UserHandlers) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authService.IdentityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req models.SendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	msg, err := h.messageService.Send(r.Context(), *identity, &req)
	if err != nil {
		var verr *services.ValidationError
		if errors.As(err, &verr) {
			writeError(w, http.StatusBadRequest, verr.Reason)
			return
		}
		logger.Error("Send message error: %v", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

func userIDFromPath(r *http.Request) (int, error) {
	// /api/messages/{userId}
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 4 || parts[3] == "" {
		return 0, errors.New("invalid path")
	}
	return strconv.Atoi(parts[3])
}
