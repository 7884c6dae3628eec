package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/mmuslimabdulj/campus-realtime/internal/domain"
)

// CreateConversation stores a new conversation with zeroed unread counters
func (d *DB) CreateConversation(ctx context.Context, conv domain.Conversation) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (room_id, last_message, last_sender_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room_id) DO NOTHING`,
		conv.RoomID, conv.LastMessage, conv.LastSenderID, toNanos(conv.UpdatedAt))
	if err != nil {
		return fmt.Errorf("insert conversation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrConversationExists, conv.RoomID)
	}

	for i, member := range conv.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_members (room_id, user_id, position, unread)
			VALUES (?, ?, ?, ?)`,
			conv.RoomID, member, i, conv.Unread[member]); err != nil {
			return fmt.Errorf("insert member: %w", err)
		}
	}

	return tx.Commit()
}

// SaveConversation writes the cached view of a conversation back to the store
func (d *DB) SaveConversation(ctx context.Context, conv domain.Conversation) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO conversations (room_id, last_message, last_sender_id, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(room_id) DO UPDATE SET
			last_message = excluded.last_message,
			last_sender_id = excluded.last_sender_id,
			updated_at = excluded.updated_at`,
		conv.RoomID, conv.LastMessage, conv.LastSenderID, toNanos(conv.UpdatedAt)); err != nil {
		return fmt.Errorf("upsert conversation: %w", err)
	}

	for i, member := range conv.Members {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO conversation_members (room_id, user_id, position, unread)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(room_id, user_id) DO UPDATE SET unread = excluded.unread`,
			conv.RoomID, member, i, conv.Unread[member]); err != nil {
			return fmt.Errorf("upsert member: %w", err)
		}
	}

	return tx.Commit()
}

// LoadConversations returns every stored conversation with its unread counters
func (d *DB) LoadConversations(ctx context.Context) ([]domain.Conversation, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT c.room_id, c.last_message, c.last_sender_id, c.updated_at, m.user_id, m.unread
		FROM conversations c
		JOIN conversation_members m ON m.room_id = c.room_id
		ORDER BY c.room_id, m.position`)
	if err != nil {
		return nil, fmt.Errorf("query conversations: %w", err)
	}
	defer rows.Close()

	var result []domain.Conversation
	index := make(map[string]int)
	for rows.Next() {
		var (
			roomID, lastMessage, lastSender, userID string
			updatedAt                               int64
			unread                                  int
		)
		if err := rows.Scan(&roomID, &lastMessage, &lastSender, &updatedAt, &userID, &unread); err != nil {
			return nil, fmt.Errorf("scan conversation: %w", err)
		}
		i, ok := index[roomID]
		if !ok {
			conv := domain.NewConversation(roomID)
			conv.LastMessage = lastMessage
			conv.LastSenderID = lastSender
			conv.UpdatedAt = fromNanos(updatedAt)
			result = append(result, conv)
			i = len(result) - 1
			index[roomID] = i
		}
		result[i].Members = append(result[i].Members, userID)
		result[i].Unread[userID] = unread
	}
	return result, rows.Err()
}

// GetConversation loads one conversation; sql.ErrNoRows maps to domain.ErrRoomNotFound
func (d *DB) GetConversation(ctx context.Context, roomID string) (domain.Conversation, error) {
	var (
		conv      = domain.NewConversation(roomID)
		updatedAt int64
	)
	err := d.db.QueryRowContext(ctx, `
		SELECT last_message, last_sender_id, updated_at FROM conversations WHERE room_id = ?`,
		roomID).Scan(&conv.LastMessage, &conv.LastSenderID, &updatedAt)
	if err == sql.ErrNoRows {
		return domain.Conversation{}, fmt.Errorf("%w: %s", domain.ErrRoomNotFound, roomID)
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("query conversation: %w", err)
	}
	conv.UpdatedAt = fromNanos(updatedAt)

	rows, err := d.db.QueryContext(ctx, `
		SELECT user_id, unread FROM conversation_members WHERE room_id = ? ORDER BY position`, roomID)
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var userID string
		var unread int
		if err := rows.Scan(&userID, &unread); err != nil {
			return domain.Conversation{}, fmt.Errorf("scan member: %w", err)
		}
		conv.Members = append(conv.Members, userID)
		conv.Unread[userID] = unread
	}
	return conv, rows.Err()
}
