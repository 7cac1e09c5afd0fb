// Package transcript persists conversation history to PostgreSQL for the
// operations portal. Storage is best effort: every method no-ops on a nil
// store so transcript wiring stays optional.
package transcript

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/medprev-labs/medy-bot/internal/dialog"
)

const (
	// RoleUser marks messages written by the contact.
	RoleUser = "user"
	// RoleBot marks messages written by the bot.
	RoleBot = "bot"
)

// Message is one transcript entry.
type Message struct {
	ID        uuid.UUID
	Role      string
	Content   string
	Kind      string
	CreatedAt time.Time
}

// ConversationRecord is the stored conversation header.
type ConversationRecord struct {
	ID               uuid.UUID
	ConversationID   string
	Phone            string
	ContactName      string
	Status           string
	MessageCount     int
	UserMessageCount int
	BotMessageCount  int
	StartedAt        time.Time
	LastMessageAt    *time.Time
	EndedAt          *time.Time
}

// Store writes conversations and their messages to PostgreSQL.
type Store struct {
	db *sql.DB
}

var _ dialog.TranscriptRecorder = (*Store)(nil)

// NewStore creates a transcript store. A nil db yields a nil store, which is
// safe to call.
func NewStore(db *sql.DB) *Store {
	if db == nil {
		return nil
	}
	return &Store{db: db}
}

// RecordInbound stores the user's message, creating the conversation header
// on first contact.
func (s *Store) RecordInbound(ctx context.Context, input dialog.TurnInput) error {
	if s == nil || s.db == nil {
		return nil
	}
	if _, err := s.EnsureConversation(ctx, input.ConversationID, input.PhoneNumber, input.UserName); err != nil {
		return err
	}

	content := input.Text
	kind := string(dialog.ActivityText)
	if _, ok := input.FirstImage(); ok && content == "" {
		content = "[imagem]"
		kind = "image"
	}
	return s.appendMessage(ctx, input.ConversationID, RoleUser, content, kind)
}

// RecordOutbound stores one bot activity. Handoff activities close the
// transcript instead of adding an entry.
func (s *Store) RecordOutbound(ctx context.Context, conversationID string, activity dialog.OutboundActivity) error {
	if s == nil || s.db == nil {
		return nil
	}
	if activity.Kind == dialog.ActivityHandoff {
		return s.UpdateStatus(ctx, conversationID, "handoff")
	}
	return s.appendMessage(ctx, conversationID, RoleBot, activity.Text, string(activity.Kind))
}

// EnsureConversation creates the conversation header when missing and returns
// its row id.
func (s *Store) EnsureConversation(ctx context.Context, conversationID, phone, contactName string) (uuid.UUID, error) {
	if s == nil || s.db == nil {
		return uuid.Nil, nil
	}
	if strings.TrimSpace(conversationID) == "" {
		return uuid.Nil, fmt.Errorf("transcript: conversation id is required")
	}

	var existingID uuid.UUID
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM conversations WHERE conversation_id = $1`,
		conversationID,
	).Scan(&existingID)
	if err == nil {
		return existingID, nil
	}
	if err != sql.ErrNoRows {
		return uuid.Nil, fmt.Errorf("transcript: failed to check existing: %w", err)
	}

	newID := uuid.New()
	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO conversations (
			id, conversation_id, phone, contact_name, status,
			message_count, user_message_count, bot_message_count,
			started_at, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, newID, conversationID, phone, contactName, "active",
		0, 0, 0, now, now, now,
	)
	if err != nil {
		// Another worker may have created it between the check and the insert.
		if strings.Contains(err.Error(), "duplicate key") {
			return s.EnsureConversation(ctx, conversationID, phone, contactName)
		}
		return uuid.Nil, fmt.Errorf("transcript: failed to create: %w", err)
	}
	return newID, nil
}

func (s *Store) appendMessage(ctx context.Context, conversationID, role, content, kind string) error {
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversation_messages (
			id, conversation_id, role, content, kind, created_at
		) VALUES ($1, $2, $3, $4, $5, $6)
	`, uuid.New(), conversationID, role, content, kind, now)
	if err != nil {
		return fmt.Errorf("transcript: failed to insert message: %w", err)
	}

	counterColumn := "bot_message_count"
	if role == RoleUser {
		counterColumn = "user_message_count"
	}
	_, err = s.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE conversations SET
			message_count = message_count + 1,
			%s = %s + 1,
			last_message_at = $1,
			updated_at = $1
		WHERE conversation_id = $2
	`, counterColumn, counterColumn), now, conversationID)
	if err != nil {
		return fmt.Errorf("transcript: failed to update counters: %w", err)
	}
	return nil
}

// UpdateStatus changes the conversation status.
func (s *Store) UpdateStatus(ctx context.Context, conversationID, status string) error {
	if s == nil || s.db == nil {
		return nil
	}
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET status = $1, updated_at = $2
		WHERE conversation_id = $3
	`, status, time.Now(), conversationID)
	return err
}

// EndConversation marks a conversation as ended.
func (s *Store) EndConversation(ctx context.Context, conversationID string) error {
	if s == nil || s.db == nil {
		return nil
	}
	now := time.Now()
	_, err := s.db.ExecContext(ctx, `
		UPDATE conversations SET
			status = 'ended',
			ended_at = $1,
			updated_at = $1
		WHERE conversation_id = $2 AND ended_at IS NULL
	`, now, conversationID)
	return err
}

// GetConversation retrieves a conversation header by its channel id.
func (s *Store) GetConversation(ctx context.Context, conversationID string) (*ConversationRecord, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	var conv ConversationRecord
	var lastMessageAt, endedAt sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT id, conversation_id, phone, contact_name, status,
			   message_count, user_message_count, bot_message_count,
			   started_at, last_message_at, ended_at
		FROM conversations
		WHERE conversation_id = $1
	`, conversationID).Scan(
		&conv.ID, &conv.ConversationID, &conv.Phone, &conv.ContactName,
		&conv.Status, &conv.MessageCount, &conv.UserMessageCount,
		&conv.BotMessageCount, &conv.StartedAt, &lastMessageAt, &endedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("transcript: failed to get: %w", err)
	}

	if lastMessageAt.Valid {
		conv.LastMessageAt = &lastMessageAt.Time
	}
	if endedAt.Valid {
		conv.EndedAt = &endedAt.Time
	}
	return &conv, nil
}

// GetMessages retrieves a conversation's messages in creation order.
func (s *Store) GetMessages(ctx context.Context, conversationID string, limit int) ([]Message, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}

	query := `
		SELECT id, role, content, kind, created_at
		FROM conversation_messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC
	`
	args := []any{conversationID}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("transcript: failed to get messages: %w", err)
	}
	defer rows.Close()

	var messages []Message
	for rows.Next() {
		var msg Message
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Content, &msg.Kind, &msg.CreatedAt); err != nil {
			continue
		}
		messages = append(messages, msg)
	}
	return messages, rows.Err()
}
