package websocket

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"termiclad/internal/database"
	"termiclad/internal/models"
	"termiclad/internal/presence"
	"termiclad/internal/services"

	"github.com/stretchr/testify/require"
)

type fakeDB struct {
	database.Database

	nextID   int
	messages []*models.Message
}

func (db *fakeDB) CreateMessage(ctx context.Context, senderID int, target models.MessageTarget, body string) (*models.Message, error) {
	db.nextID++
	msg := &models.Message{
		ID:         db.nextID,
		SenderID:   senderID,
		ReceiverID: target.ReceiverID,
		GroupID:    target.GroupID,
		Body:       body,
		CreatedAt:  time.Now(),
	}
	db.messages = append(db.messages, msg)
	return msg, nil
}

func (db *fakeDB) SetUserOnline(ctx context.Context, id int, online bool) error { return nil }

func newTestClient(t *testing.T) (*Client, *presence.Registry, *fakeDB) {
	t.Helper()
	db := &fakeDB{}
	registry := presence.NewRegistry()
	messages := services.NewMessageService(db, registry)
	users := services.NewUserService(db)

	identity := models.Identity{ID: 1, Username: "alice"}
	client := NewClient(nil, identity, registry, messages, users)
	registry.Join(identity.ID, client)
	return client, registry, db
}

// drain decodes everything queued on the client's send channel.
func drain(t *testing.T, c *Client) []models.ServerEvent {
	t.Helper()
	var events []models.ServerEvent
	for {
		select {
		case data := <-c.send:
			var event models.ServerEvent
			require.NoError(t, json.Unmarshal(data, &event))
			events = append(events, event)
		default:
			return events
		}
	}
}

func event(name string, payload string) *models.ClientEvent {
	return &models.ClientEvent{Event: name, Data: json.RawMessage(payload)}
}

func TestHandleJoinRoom_RejectsForeignIdentity(t *testing.T) {
	req := require.New(t)
	client, registry, _ := newTestClient(t)

	client.handleEvent(event(models.EventJoinRoom, `{"user_id":99}`))

	events := drain(t, client)
	req.Len(events, 1)
	req.Equal(models.EventMessageError, events[0].Event)
	req.False(registry.IsOnline(99))
}

func TestHandleJoinRoom_OwnIdentityIsIdempotent(t *testing.T) {
	req := require.New(t)
	client, registry, _ := newTestClient(t)

	client.handleEvent(event(models.EventJoinRoom, `{"user_id":1}`))

	req.Empty(drain(t, client))
	req.Len(registry.ConnectionsFor(1), 1)
}

func TestHandleSendMessage_AcksSender(t *testing.T) {
	req := require.New(t)
	client, _, db := newTestClient(t)

	client.handleEvent(event(models.EventSendMessage, `{"receiver_id":2,"message":"hi"}`))

	req.Len(db.messages, 1)
	events := drain(t, client)
	req.Len(events, 1)
	req.Equal(models.EventMessageSent, events[0].Event)
}

func TestHandleSendMessage_GroupDeliveredToOwnConnectionToo(t *testing.T) {
	req := require.New(t)
	client, _, db := newTestClient(t)
	db.Database = groupDB{members: []models.Identity{{ID: 1, Username: "alice"}}}

	client.handleEvent(event(models.EventSendMessage, `{"group_id":7,"message":"hi all"}`))

	events := drain(t, client)
	req.Len(events, 2)
	req.Equal(models.EventNewMessage, events[0].Event)
	req.Equal(models.EventMessageSent, events[1].Event)
}

func TestHandleSendMessage_ValidationReportsError(t *testing.T) {
	req := require.New(t)
	client, _, db := newTestClient(t)

	client.handleEvent(event(models.EventSendMessage, `{"message":"no target"}`))

	req.Empty(db.messages)
	events := drain(t, client)
	req.Len(events, 1)
	req.Equal(models.EventMessageError, events[0].Event)
}

func TestHandleEvent_UnknownEvent(t *testing.T) {
	client, _, _ := newTestClient(t)

	client.handleEvent(event("presence_probe", `{}`))

	events := drain(t, client)
	require.Len(t, events, 1)
	require.Equal(t, models.EventMessageError, events[0].Event)
}

func TestPush_RefusedAfterClose(t *testing.T) {
	req := require.New(t)
	client, _, _ := newTestClient(t)

	req.True(client.Push([]byte("ok")))
	client.closeSend()
	req.False(client.Push([]byte("dropped")))
}

// groupDB satisfies the membership lookups for group sends.
type groupDB struct {
	database.Database
	members []models.Identity
}

func (db groupDB) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	for _, member := range db.members {
		if member.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (db groupDB) MembersOf(ctx context.Context, groupID int) ([]models.Identity, error) {
	return db.members, nil
}
