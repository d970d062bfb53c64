package database

import (
	"context"
	"fmt"

	"termiclad/internal/models"
	"termiclad/pkg/logger"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDB struct {
	pool *pgxpool.Pool
}

func NewPostgresDB(databaseURL string) (*PostgresDB, error) {
	pool, err := pgxpool.New(context.Background(), databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Test connection
	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Connected to database successfully")
	return &PostgresDB{pool: pool}, nil
}

func (db *PostgresDB) Close() error {
	db.pool.Close()
	return nil
}

// User Repository Implementation
func (db *PostgresDB) CreateUser(ctx context.Context, username, email, passwordHash string) (*models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, username, email, created_at, last_seen, is_online`

	user := &models.User{PasswordHash: passwordHash}
	err := db.pool.QueryRow(ctx, query, username, email, passwordHash).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.LastSeen, &user.IsOnline,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return user, nil
}

func (db *PostgresDB) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT id, username, email, password_hash, created_at, last_seen, is_online FROM users WHERE email = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, email).Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.LastSeen, &user.IsOnline,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) GetUserByID(ctx context.Context, id int) (*models.User, error) {
	query := `SELECT id, username, email, created_at, last_seen, is_online FROM users WHERE id = $1`

	user := &models.User{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.CreatedAt, &user.LastSeen, &user.IsOnline,
	)
	if err != nil {
		return nil, err
	}

	return user, nil
}

func (db *PostgresDB) ListUsers(ctx context.Context, excludeID int) ([]*models.UserSummary, error) {
	query := `
		SELECT id, username, is_online, last_seen
		FROM users
		WHERE id != $1
		ORDER BY is_online DESC, username ASC`

	rows, err := db.pool.Query(ctx, query, excludeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.UserSummary
	for rows.Next() {
		user := &models.UserSummary{}
		if err := rows.Scan(&user.ID, &user.Username, &user.IsOnline, &user.LastSeen); err != nil {
			return nil, err
		}
		users = append(users, user)
	}

	return users, rows.Err()
}

func (db *PostgresDB) SetUserOnline(ctx context.Context, id int, online bool) error {
	query := `UPDATE users SET is_online = $2, last_seen = CURRENT_TIMESTAMP WHERE id = $1`
	_, err := db.pool.Exec(ctx, query, id, online)
	return err
}

// Message Repository Implementation
func (db *PostgresDB) CreateMessage(ctx context.Context, senderID int, target models.MessageTarget, body string) (*models.Message, error) {
	kind, err := target.Kind()
	if err != nil {
		return nil, err
	}

	msg := &models.Message{SenderID: senderID, Body: body}
	switch kind {
	case models.TargetDirect:
		query := `
			INSERT INTO messages (sender_id, receiver_id, message)
			VALUES ($1, $2, $3)
			RETURNING id, timestamp, is_read`
		msg.ReceiverID = target.ReceiverID
		err = db.pool.QueryRow(ctx, query, senderID, target.ReceiverID, body).Scan(
			&msg.ID, &msg.CreatedAt, &msg.IsRead,
		)
	case models.TargetGroup:
		query := `
			INSERT INTO messages (sender_id, group_id, message)
			VALUES ($1, $2, $3)
			RETURNING id, timestamp, is_read`
		msg.GroupID = target.GroupID
		err = db.pool.QueryRow(ctx, query, senderID, target.GroupID, body).Scan(
			&msg.ID, &msg.CreatedAt, &msg.IsRead,
		)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to save message: %w", err)
	}

	return msg, nil
}

func (db *PostgresDB) ConversationBetween(ctx context.Context, userID, otherID int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.receiver_id, m.message, m.timestamp, m.is_read, u.username
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE (m.sender_id = $1 AND m.receiver_id = $2)
		   OR (m.sender_id = $2 AND m.receiver_id = $1)
		ORDER BY m.timestamp ASC`

	rows, err := db.pool.Query(ctx, query, userID, otherID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows, false)
}

func (db *PostgresDB) MarkConversationRead(ctx context.Context, senderID, receiverID int) error {
	query := `UPDATE messages SET is_read = true WHERE sender_id = $1 AND receiver_id = $2`
	_, err := db.pool.Exec(ctx, query, senderID, receiverID)
	return err
}

func (db *PostgresDB) GroupMessages(ctx context.Context, groupID int) ([]*models.Message, error) {
	query := `
		SELECT m.id, m.sender_id, m.group_id, m.message, m.timestamp, m.is_read, u.username
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.group_id = $1
		ORDER BY m.timestamp ASC`

	rows, err := db.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows, true)
}

func scanMessages(rows pgx.Rows, group bool) ([]*models.Message, error) {
	var messages []*models.Message
	for rows.Next() {
		msg := &models.Message{}
		targetCol := &msg.ReceiverID
		if group {
			targetCol = &msg.GroupID
		}
		if err := rows.Scan(&msg.ID, &msg.SenderID, targetCol, &msg.Body, &msg.CreatedAt, &msg.IsRead, &msg.SenderUsername); err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// Group Repository Implementation
func (db *PostgresDB) CreateGroup(ctx context.Context, name string, creatorID int) (*models.Group, error) {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	group := &models.Group{}
	query := `
		INSERT INTO group_chats (name, created_by)
		VALUES ($1, $2)
		RETURNING id, name, created_by, created_at`
	err = tx.QueryRow(ctx, query, name, creatorID).Scan(
		&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create group: %w", err)
	}

	// Creator joins their own group
	if _, err := tx.Exec(ctx, `INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)`, group.ID, creatorID); err != nil {
		return nil, fmt.Errorf("failed to add creator to group: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return group, nil
}

func (db *PostgresDB) GetGroupByID(ctx context.Context, id int) (*models.Group, error) {
	query := `SELECT id, name, created_by, created_at FROM group_chats WHERE id = $1`

	group := &models.Group{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&group.ID, &group.Name, &group.CreatedBy, &group.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return group, nil
}

func (db *PostgresDB) AddMember(ctx context.Context, groupID, userID int) error {
	query := `
		INSERT INTO group_members (group_id, user_id) VALUES ($1, $2)
		ON CONFLICT (group_id, user_id) DO NOTHING`

	_, err := db.pool.Exec(ctx, query, groupID, userID)
	return err
}

func (db *PostgresDB) IsMember(ctx context.Context, groupID, userID int) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM group_members WHERE group_id = $1 AND user_id = $2)`

	var exists bool
	err := db.pool.QueryRow(ctx, query, groupID, userID).Scan(&exists)
	return exists, err
}

func (db *PostgresDB) GroupMembers(ctx context.Context, groupID int) ([]*models.Member, error) {
	query := `
		SELECT u.id, u.username, m.joined_at
		FROM group_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.group_id = $1
		ORDER BY u.username`

	rows, err := db.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []*models.Member
	for rows.Next() {
		member := &models.Member{}
		if err := rows.Scan(&member.ID, &member.Username, &member.JoinedAt); err != nil {
			return nil, err
		}
		members = append(members, member)
	}

	return members, rows.Err()
}

func (db *PostgresDB) MembersOf(ctx context.Context, groupID int) ([]models.Identity, error) {
	query := `
		SELECT u.id, u.username
		FROM group_members m
		JOIN users u ON m.user_id = u.id
		WHERE m.group_id = $1`

	rows, err := db.pool.Query(ctx, query, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.Identity
	for rows.Next() {
		var id models.Identity
		if err := rows.Scan(&id.ID, &id.Username); err != nil {
			return nil, err
		}
		members = append(members, id)
	}

	return members, rows.Err()
}
