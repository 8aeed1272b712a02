package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Chat methods
func (s *SQLiteStore) CreateChat(ctx context.Context, userID, title string) (*Chat, error) {
	now := time.Now().UTC()
	chat := &Chat{ID: uuid.NewString(), UserID: userID, Title: title, CreatedAt: now, UpdatedAt: now}

	_, err := s.db.ExecContext(ctx,
		"INSERT INTO chats (id, user_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		chat.ID, chat.UserID, chat.Title, chat.CreatedAt, chat.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to execute chat insert: %w", err)
	}
	return chat, nil
}

// GetChat loads a chat owned by userID together with its messages in
// insertion order. It returns nil when no such chat exists for that owner.
func (s *SQLiteStore) GetChat(ctx context.Context, chatID, userID string) (*Chat, error) {
	var chat Chat
	err := s.db.QueryRowContext(ctx,
		"SELECT id, user_id, title, created_at, updated_at FROM chats WHERE id = ? AND user_id = ?",
		chatID, userID).Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get chat: %w", err)
	}

	chat.Messages, err = s.getMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

func (s *SQLiteStore) getMessages(ctx context.Context, chatID string) ([]Message, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, chat_id, position, role, content, timestamp FROM messages WHERE chat_id = ? ORDER BY position ASC",
		chatID)
	if err != nil {
		return nil, fmt.Errorf("failed to query messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.ChatID, &msg.Position, &msg.Role, &msg.Content, &msg.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan message row: %w", err)
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}

// ListChats returns the user's chats without messages, most recently
// updated first.
func (s *SQLiteStore) ListChats(ctx context.Context, userID string) ([]Chat, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, title, created_at, updated_at FROM chats WHERE user_id = ? ORDER BY updated_at DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query chats: %w", err)
	}
	defer rows.Close()

	chats := []Chat{}
	for rows.Next() {
		var chat Chat
		if err := rows.Scan(&chat.ID, &chat.UserID, &chat.Title, &chat.CreatedAt, &chat.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan chat row: %w", err)
		}
		chats = append(chats, chat)
	}
	return chats, rows.Err()
}

// DeleteChat removes a chat owned by userID and its messages. It reports
// false when there was nothing to delete.
func (s *SQLiteStore) DeleteChat(ctx context.Context, chatID, userID string) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin chat delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, "DELETE FROM chats WHERE id = ? AND user_id = ?", chatID, userID)
	if err != nil {
		return false, fmt.Errorf("failed to delete chat: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return false, nil
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM messages WHERE chat_id = ?", chatID); err != nil {
		return false, fmt.Errorf("failed to delete chat messages: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit chat delete: %w", err)
	}
	return true, nil
}

// AppendMessages stores msgs at positions from, from+1, ... and bumps the
// chat's updated_at, all in one transaction. A position that is already
// taken fails the whole append with ErrDuplicate.
func (s *SQLiteStore) AppendMessages(ctx context.Context, chatID string, from int, msgs []Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin message append: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO messages (id, chat_id, position, role, content, timestamp) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return fmt.Errorf("failed to prepare message insert: %w", err)
	}
	defer stmt.Close()

	for i := range msgs {
		msg := &msgs[i]
		if msg.ID == "" {
			msg.ID = uuid.NewString()
		}
		if msg.Timestamp.IsZero() {
			msg.Timestamp = time.Now().UTC()
		}
		msg.ChatID = chatID
		msg.Position = from + i

		if _, err := stmt.ExecContext(ctx, msg.ID, chatID, msg.Position, msg.Role, msg.Content, msg.Timestamp); err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return fmt.Errorf("failed to execute message insert: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, "UPDATE chats SET updated_at = ? WHERE id = ?", time.Now().UTC(), chatID); err != nil {
		return fmt.Errorf("failed to touch chat: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit message append: %w", err)
	}
	return nil
}
