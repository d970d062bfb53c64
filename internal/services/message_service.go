package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"termiclad/internal/database"
	"termiclad/internal/models"
	"termiclad/internal/presence"
	"termiclad/pkg/logger"
)

// MessageService is the send pipeline: it validates a request, persists it,
// and fans the persisted record out to every live connection of every target
// identity. Nothing is ever pushed before the durable write succeeds, so a
// delivered message is always recoverable from history.
type MessageService struct {
	db       database.Database
	registry *presence.Registry
}

func NewMessageService(db database.Database, registry *presence.Registry) *MessageService {
	return &MessageService{
		db:       db,
		registry: registry,
	}
}

// Send runs one request through the pipeline and returns the persisted
// record for the caller to acknowledge with. Failures are either a
// *ValidationError (nothing persisted) or a *PersistenceError.
func (s *MessageService) Send(ctx context.Context, sender models.Identity, req *models.SendRequest) (*models.Message, error) {
	body := strings.TrimSpace(req.Body)
	if body == "" {
		return nil, ErrEmptyBody
	}

	target := req.Target()
	kind, err := target.Kind()
	if err != nil {
		if errors.Is(err, models.ErrBothTarget) {
			return nil, ErrBothTargets
		}
		return nil, ErrNoTarget
	}

	// Group sends are authorized against current membership before the
	// write; a non-member leaves no rows behind.
	if kind == models.TargetGroup {
		isMember, err := s.db.IsMember(ctx, target.GroupID, sender.ID)
		if err != nil {
			return nil, &PersistenceError{Err: err}
		}
		if !isMember {
			return nil, ErrNotAGroupMember
		}
	}

	msg, err := s.db.CreateMessage(ctx, sender.ID, target, body)
	if err != nil {
		return nil, &PersistenceError{Err: err}
	}
	msg.SenderUsername = sender.Username

	s.route(ctx, sender, msg, kind)

	return msg, nil
}

// route resolves the target identities and pushes the persisted record to
// their live connections. Delivery is best effort: a target with no
// connections is skipped, and a push a connection refuses is dropped for
// that connection only. History remains the backstop either way.
func (s *MessageService) route(ctx context.Context, sender models.Identity, msg *models.Message, kind models.TargetKind) {
	data, err := json.Marshal(models.ServerEvent{
		Event: models.EventNewMessage,
		Data:  msg,
	})
	if err != nil {
		logger.Error("Error marshaling message %d for delivery: %v", msg.ID, err)
		return
	}

	switch kind {
	case models.TargetDirect:
		s.deliverTo(msg.ReceiverID, data, msg.ID)
	case models.TargetGroup:
		members, err := s.db.MembersOf(ctx, msg.GroupID)
		if err != nil {
			// Already durable; live delivery for this send is lost but
			// history serves it.
			logger.Error("Error resolving members of group %d: %v", msg.GroupID, err)
			return
		}
		// Group fan-out includes the sender's own connections so all their
		// devices see the message; the originating connection reconciles
		// via its ack.
		for _, member := range members {
			s.deliverTo(member.ID, data, msg.ID)
		}
	}
}

func (s *MessageService) deliverTo(userID int, data []byte, msgID int) {
	for _, conn := range s.registry.ConnectionsFor(userID) {
		if !conn.Push(data) {
			logger.Debug("Dropped message %d for connection %s of user %d", msgID, conn.ID(), userID)
		}
	}
}
