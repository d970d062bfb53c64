package database

import (
	"context"
	"fmt"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id SERIAL PRIMARY KEY,
		username VARCHAR(50) UNIQUE NOT NULL,
		email VARCHAR(100) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		last_seen TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		is_online BOOLEAN DEFAULT false
	)`,
	`CREATE TABLE IF NOT EXISTS group_chats (
		id SERIAL PRIMARY KEY,
		name VARCHAR(100) NOT NULL,
		created_by INTEGER REFERENCES users(id),
		created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS group_members (
		id SERIAL PRIMARY KEY,
		group_id INTEGER REFERENCES group_chats(id),
		user_id INTEGER REFERENCES users(id),
		joined_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(group_id, user_id)
	)`,
	// Exactly one of receiver_id / group_id is set, enforced where the row
	// lives so no code path can write an untargeted message.
	`CREATE TABLE IF NOT EXISTS messages (
		id SERIAL PRIMARY KEY,
		sender_id INTEGER REFERENCES users(id),
		receiver_id INTEGER REFERENCES users(id),
		group_id INTEGER REFERENCES group_chats(id),
		message TEXT NOT NULL,
		timestamp TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
		is_read BOOLEAN DEFAULT false,
		CHECK ((receiver_id IS NULL) <> (group_id IS NULL))
	)`,
}

// Bootstrap creates the tables on startup if they do not exist yet.
func (db *PostgresDB) Bootstrap(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to initialize schema: %w", err)
		}
	}
	return nil
}
