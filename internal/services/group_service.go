package services

import (
	"context"
	"fmt"

	"termiclad/internal/database"
	"termiclad/internal/models"

	"github.com/go-playground/validator/v10"
)

type GroupService struct {
	db       database.Database
	validate *validator.Validate
}

func NewGroupService(db database.Database) *GroupService {
	return &GroupService{
		db:       db,
		validate: validator.New(),
	}
}

func (s *GroupService) CreateGroup(ctx context.Context, req *models.CreateGroupRequest, creatorID int) (*models.Group, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("group name is required")
	}

	return s.db.CreateGroup(ctx, req.Name, creatorID)
}

func (s *GroupService) AddMember(ctx context.Context, groupID, userID, inviterID int) error {
	if _, err := s.db.GetGroupByID(ctx, groupID); err != nil {
		return fmt.Errorf("group not found")
	}

	isMember, err := s.db.IsMember(ctx, groupID, inviterID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if !isMember {
		return fmt.Errorf("forbidden - not a member of this group")
	}

	if _, err := s.db.GetUserByID(ctx, userID); err != nil {
		return fmt.Errorf("user not found")
	}

	return s.db.AddMember(ctx, groupID, userID)
}

func (s *GroupService) GroupMembers(ctx context.Context, groupID, viewerID int) ([]*models.Member, error) {
	if err := s.requireMember(ctx, groupID, viewerID); err != nil {
		return nil, err
	}

	return s.db.GroupMembers(ctx, groupID)
}

func (s *GroupService) GroupHistory(ctx context.Context, groupID, viewerID int) ([]*models.Message, error) {
	if err := s.requireMember(ctx, groupID, viewerID); err != nil {
		return nil, err
	}

	return s.db.GroupMessages(ctx, groupID)
}

func (s *GroupService) requireMember(ctx context.Context, groupID, viewerID int) error {
	if _, err := s.db.GetGroupByID(ctx, groupID); err != nil {
		return fmt.Errorf("group not found")
	}

	isMember, err := s.db.IsMember(ctx, groupID, viewerID)
	if err != nil {
		return fmt.Errorf("database error: %w", err)
	}
	if !isMember {
		return fmt.Errorf("forbidden - not a member of this group")
	}
	return nil
}
