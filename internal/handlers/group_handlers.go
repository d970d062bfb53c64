package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"termiclad/internal/auth"
	"termiclad/internal/models"
	"termiclad/internal/services"
	"termiclad/pkg/logger"
)

type GroupHandlers struct {
	authService  *auth.Service
	groupService *services.GroupService
}

func NewGroupHandlers(authService *auth.Service, groupService *services.GroupService) *GroupHandlers {
	return &GroupHandlers{
		authService:  authService,
		groupService: groupService,
	}
}

func (h *GroupHandlers) CreateGroup(w http.ResponseWriter, r *http.Request) {
	identity, err := h.authService.IdentityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}

	var req models.CreateGroupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	group, err := h.groupService.CreateGroup(r.Context(), &req, identity.ID)
	if err != nil {
		logger.Error("Create group error: %v", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	writeJSON(w, http.StatusCreated, group)
}

func (h *GroupHandlers) GroupMembers(w http.ResponseWriter, r *http.Request) {
	identity, groupID, ok := h.identityAndGroupID(w, r)
	if !ok {
		return
	}

	members, err := h.groupService.GroupMembers(r.Context(), groupID, identity.ID)
	if err != nil {
		logger.Error("Get group members error: %v", err)
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, members)
}

func (h *GroupHandlers) InviteMember(w http.ResponseWriter, r *http.Request) {
	identity, groupID, ok := h.identityAndGroupID(w, r)
	if !ok {
		return
	}

	var req models.InviteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	if err := h.groupService.AddMember(r.Context(), groupID, req.UserID, identity.ID); err != nil {
		logger.Error("Invite member error: %v", err)
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "user added to group"})
}

func (h *GroupHandlers) GroupHistory(w http.ResponseWriter, r *http.Request) {
	identity, groupID, ok := h.identityAndGroupID(w, r)
	if !ok {
		return
	}

	messages, err := h.groupService.GroupHistory(r.Context(), groupID, identity.ID)
	if err != nil {
		logger.Error("Get group history error: %v", err)
		writeError(w, http.StatusForbidden, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, messages)
}

func (h *GroupHandlers) identityAndGroupID(w http.ResponseWriter, r *http.Request) (*models.Identity, int, bool) {
	identity, err := h.authService.IdentityFromRequest(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, err.Error())
		return nil, 0, false
	}

	groupID, err := groupIDFromPath(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid group ID")
		return nil, 0, false
	}

	return identity, groupID, true
}

func groupIDFromPath(r *http.Request) (int, error) {
	// /api/servers/{id}/...
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) < 4 || parts[3] == "" {
		return 0, fmt.Errorf("invalid path")
	}
	return strconv.Atoi(parts[3])
}
