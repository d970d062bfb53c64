package models

import (
	"errors"
	"time"
)

type TargetKind string

const (
	TargetDirect TargetKind = "direct"
	TargetGroup  TargetKind = "group"
)

var (
	ErrNoTarget   = errors.New("message has no target")
	ErrBothTarget = errors.New("message has both a receiver and a group target")
)

// MessageTarget is a tagged union: exactly one of ReceiverID or GroupID is
// set. Kind reports which, or an error when the invariant is broken.
type MessageTarget struct {
	ReceiverID int
	GroupID    int
}

func DirectTarget(receiverID int) MessageTarget {
	return MessageTarget{ReceiverID: receiverID}
}

func GroupTarget(groupID int) MessageTarget {
	return MessageTarget{GroupID: groupID}
}

func (t MessageTarget) Kind() (TargetKind, error) {
	switch {
	case t.ReceiverID != 0 && t.GroupID != 0:
		return "", ErrBothTarget
	case t.ReceiverID != 0:
		return TargetDirect, nil
	case t.GroupID != 0:
		return TargetGroup, nil
	default:
		return "", ErrNoTarget
	}
}

// Message is immutable once persisted, except for the is_read flag which is
// flipped by the history fetch. ID and CreatedAt are assigned by the store,
// never by clients.
type Message struct {
	ID             int       `json:"id"`
	SenderID       int       `json:"sender_id"`
	ReceiverID     int       `json:"receiver_id,omitempty"`
	GroupID        int       `json:"group_id,omitempty"`
	Body           string    `json:"message"`
	CreatedAt      time.Time `json:"timestamp"`
	IsRead         bool      `json:"is_read"`
	SenderUsername string    `json:"sender_username,omitempty"`
}

func (m *Message) Target() MessageTarget {
	return MessageTarget{ReceiverID: m.ReceiverID, GroupID: m.GroupID}
}

// SendRequest is an inbound send, from the websocket send_message event or
// the REST send endpoint. The sender is never part of it; it comes from the
// verified identity.
type SendRequest struct {
	ReceiverID int    `json:"receiver_id,omitempty"`
	GroupID    int    `json:"group_id,omitempty"`
	Body       string `json:"message"`
}

func (r *SendRequest) Target() MessageTarget {
	return MessageTarget{ReceiverID: r.ReceiverID, GroupID: r.GroupID}
}
