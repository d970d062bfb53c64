package services

import (
	"context"

	"termiclad/internal/database"
	"termiclad/internal/models"
	"termiclad/pkg/logger"
)

type UserService struct {
	db database.Database
}

func NewUserService(db database.Database) *UserService {
	return &UserService{db: db}
}

func (s *UserService) ListUsers(ctx context.Context, viewerID int) ([]*models.UserSummary, error) {
	return s.db.ListUsers(ctx, viewerID)
}

// ConversationWith returns the direct history between the viewer and another
// user, then marks the other party's messages to the viewer as read. Reading
// history is the read-marking operation; the send pipeline never touches
// is_read.
func (s *UserService) ConversationWith(ctx context.Context, viewerID, otherID int) ([]*models.Message, error) {
	messages, err := s.db.ConversationBetween(ctx, viewerID, otherID)
	if err != nil {
		return nil, err
	}

	if err := s.db.MarkConversationRead(ctx, otherID, viewerID); err != nil {
		logger.Error("Error marking conversation %d->%d read: %v", otherID, viewerID, err)
	}

	return messages, nil
}

// SetPresence mirrors live-connection state into the users table so the
// user listing can sort online users first.
func (s *UserService) SetPresence(ctx context.Context, userID int, online bool) {
	if err := s.db.SetUserOnline(ctx, userID, online); err != nil {
		logger.Error("Error updating presence for user %d: %v", userID, err)
	}
}
