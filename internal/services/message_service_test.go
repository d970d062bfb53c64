package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"termiclad/internal/database"
	"termiclad/internal/models"
	"termiclad/internal/presence"

	"github.com/stretchr/testify/require"
)

// fakeDB implements the slice of database.Database the pipeline touches.
type fakeDB struct {
	database.Database

	mu         sync.Mutex
	nextID     int
	messages   []*models.Message
	members    map[int][]models.Identity
	groups     map[int]*models.Group
	users      map[int]*models.User
	failCreate bool
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		members: make(map[int][]models.Identity),
		groups:  make(map[int]*models.Group),
		users:   make(map[int]*models.User),
	}
}

func (db *fakeDB) CreateMessage(ctx context.Context, senderID int, target models.MessageTarget, body string) (*models.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	if db.failCreate {
		return nil, fmt.Errorf("store unavailable")
	}
	if _, err := target.Kind(); err != nil {
		return nil, err
	}

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

	saved := *msg
	return &saved, nil
}

func (db *fakeDB) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	for _, member := range db.members[groupID] {
		if member.ID == userID {
			return true, nil
		}
	}
	return false, nil
}

func (db *fakeDB) MembersOf(ctx context.Context, groupID int) ([]models.Identity, error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.members[groupID], nil
}

func (db *fakeDB) rowCount() int {
	db.mu.Lock()
	defer db.mu.Unlock()
	return len(db.messages)
}

// fakeConn records everything pushed to it.
type fakeConn struct {
	id     string
	refuse bool

	mu     sync.Mutex
	pushed [][]byte
}

func (c *fakeConn) ID() string { return c.id }

func (c *fakeConn) Push(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.refuse {
		return false
	}
	c.pushed = append(c.pushed, data)
	return true
}

func (c *fakeConn) received(t *testing.T) []models.Message {
	t.Helper()
	c.mu.Lock()
	defer c.mu.Unlock()

	var messages []models.Message
	for _, data := range c.pushed {
		var event struct {
			Event string         `json:"event"`
			Data  models.Message `json:"data"`
		}
		require.NoError(t, json.Unmarshal(data, &event))
		require.Equal(t, models.EventNewMessage, event.Event)
		messages = append(messages, event.Data)
	}
	return messages
}

var alice = models.Identity{ID: 1, Username: "alice"}

func newPipeline(db *fakeDB) (*MessageService, *presence.Registry) {
	registry := presence.NewRegistry()
	return NewMessageService(db, registry), registry
}

func TestSend_DirectPersistsAndReturnsRecord(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	svc, _ := newPipeline(db)

	msg, err := svc.Send(context.Background(), alice, &models.SendRequest{ReceiverID: 2, Body: "hi"})

	req.NoError(err)
	req.Equal(1, db.rowCount())
	req.NotZero(msg.ID)
	req.Equal(1, msg.SenderID)
	req.Equal(2, msg.ReceiverID)
	req.Equal("hi", msg.Body)
	req.False(msg.IsRead)
	req.Equal("alice", msg.SenderUsername)
	req.False(msg.CreatedAt.IsZero())
}

func TestSend_DeliversToLiveReceiverConnection(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	svc, registry := newPipeline(db)

	conn := &fakeConn{id: "bob-laptop"}
	registry.Join(2, conn)

	msg, err := svc.Send(context.Background(), alice, &models.SendRequest{ReceiverID: 2, Body: "hi"})
	req.NoError(err)

	delivered := conn.received(t)
	req.Len(delivered, 1)
	req.Equal(msg.ID, delivered[0].ID)
	req.Equal("hi", delivered[0].Body)
	req.Equal("alice", delivered[0].SenderUsername)
}

func TestSend_OfflineReceiverStillPersists(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	svc, _ := newPipeline(db)

	_, err := svc.Send(context.Background(), alice, &models.SendRequest{ReceiverID: 2, Body: "hi"})

	req.NoError(err)
	req.Equal(1, db.rowCount())
}

func TestSend_ValidationFailuresLeaveNoRows(t *testing.T) {
	cases := []struct {
		name string
		req  *models.SendRequest
		want *ValidationError
	}{
		{"empty body", &models.SendRequest{ReceiverID: 2, Body: "   "}, ErrEmptyBody},
		{"no target", &models.SendRequest{Body: "hi"}, ErrNoTarget},
		{"both targets", &models.SendRequest{ReceiverID: 2, GroupID: 7, Body: "hi"}, ErrBothTargets},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := require.New(t)
			db := newFakeDB()
			svc, _ := newPipeline(db)

			before := db.rowCount()
			_, err := svc.Send(context.Background(), alice, tc.req)

			var verr *ValidationError
			req.ErrorAs(err, &verr)
			req.Equal(tc.want.Reason, verr.Reason)
			req.Equal(before, db.rowCount())
		})
	}
}

func TestSend_GroupNonMemberRejected(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	db.members[7] = []models.Identity{{ID: 2, Username: "bob"}}
	svc, _ := newPipeline(db)

	_, err := svc.Send(context.Background(), alice, &models.SendRequest{GroupID: 7, Body: "hi"})

	var verr *ValidationError
	req.ErrorAs(err, &verr)
	req.Equal(ErrNotAGroupMember.Reason, verr.Reason)
	req.Zero(db.rowCount())
}

func TestSend_GroupFanOutIncludesSender(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	db.members[7] = []models.Identity{alice, {ID: 2, Username: "bob"}}
	svc, registry := newPipeline(db)

	aliceConn := &fakeConn{id: "alice-phone"}
	bobConn := &fakeConn{id: "bob-laptop"}
	registry.Join(1, aliceConn)
	registry.Join(2, bobConn)

	msg, err := svc.Send(context.Background(), alice, &models.SendRequest{GroupID: 7, Body: "hello all"})
	req.NoError(err)

	for _, conn := range []*fakeConn{aliceConn, bobConn} {
		delivered := conn.received(t)
		req.Len(delivered, 1)
		req.Equal(msg.ID, delivered[0].ID)
		req.Equal(7, delivered[0].GroupID)
	}
}

func TestSend_DisconnectedConnectionGetsNothing(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	svc, registry := newPipeline(db)

	conn := &fakeConn{id: "gone"}
	registry.Join(5, conn)
	registry.Leave(5, conn)

	_, err := svc.Send(context.Background(), alice, &models.SendRequest{ReceiverID: 5, Body: "hi"})

	req.NoError(err)
	req.Equal(1, db.rowCount())
	req.Empty(conn.received(t))
}

func TestSend_PersistenceFailureNothingDelivered(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	db.failCreate = true
	svc, registry := newPipeline(db)

	conn := &fakeConn{id: "bob"}
	registry.Join(2, conn)

	_, err := svc.Send(context.Background(), alice, &models.SendRequest{ReceiverID: 2, Body: "hi"})

	var perr *PersistenceError
	req.ErrorAs(err, &perr)
	req.Empty(conn.received(t))
}

func TestSend_RefusedPushIsSwallowed(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	svc, registry := newPipeline(db)

	dead := &fakeConn{id: "dead", refuse: true}
	registry.Join(2, dead)

	_, err := svc.Send(context.Background(), alice, &models.SendRequest{ReceiverID: 2, Body: "hi"})

	// The push failed but durability succeeded; the send is still a success
	req.NoError(err)
	req.Equal(1, db.rowCount())
}

func TestSend_ConcurrentDistinctSenders(t *testing.T) {
	req := require.New(t)
	db := newFakeDB()
	svc, registry := newPipeline(db)

	conn := &fakeConn{id: "receiver"}
	registry.Join(3, conn)

	senders := []models.Identity{
		{ID: 1, Username: "alice"},
		{ID: 2, Username: "bob"},
	}

	var wg sync.WaitGroup
	errs := make([]error, len(senders))
	for i, sender := range senders {
		wg.Add(1)
		go func(i int, sender models.Identity) {
			defer wg.Done()
			body := fmt.Sprintf("hello from %s", sender.Username)
			_, errs[i] = svc.Send(context.Background(), sender, &models.SendRequest{ReceiverID: 3, Body: body})
		}(i, sender)
	}
	wg.Wait()

	for _, err := range errs {
		req.NoError(err)
	}
	req.Equal(2, db.rowCount())

	// Every delivered body matches a persisted body, uncorrupted
	delivered := make(map[string]bool)
	for _, msg := range conn.received(t) {
		delivered[msg.Body] = true
	}
	req.Equal(map[string]bool{
		"hello from alice": true,
		"hello from bob":   true,
	}, delivered)
}

func TestValidationErrorIsNotPersistenceError(t *testing.T) {
	var perr *PersistenceError
	require.False(t, errors.As(ErrEmptyBody, &perr))
}
