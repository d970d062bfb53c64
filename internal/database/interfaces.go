package database

import (
	"context"

	"termiclad/internal/models"
)

type UserRepository interface {
	CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
	ListUsers(ctx context.Context, excludeID int) ([]*models.UserSummary, error)
	SetUserOnline(ctx context.Context, id int, online bool) error
}

type MessageRepository interface {
	CreateMessage(ctx context.Context, senderID int, target models.MessageTarget, body string) (*models.Message, error)
	ConversationBetween(ctx context.Context, userID, otherID int) ([]*models.Message, error)
	MarkConversationRead(ctx context.Context, senderID, receiverID int) error
	GroupMessages(ctx context.Context, groupID int) ([]*models.Message, error)
}

type GroupRepository interface {
	CreateGroup(ctx context.Context, name string, creatorID int) (*models.Group, error)
	GetGroupByID(ctx context.Context, id int) (*models.Group, error)
	AddMember(ctx context.Context, groupID, userID int) error
	IsMember(ctx context.Context, groupID, userID int) (bool, error)
	GroupMembers(ctx context.Context, groupID int) ([]*models.Member, error)
	MembersOf(ctx context.Context, groupID int) ([]models.Identity, error)
}

type Database interface {
	UserRepository
	MessageRepository
	GroupRepository
	Bootstrap(ctx context.Context) error
	Close() error
}
