package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const conversationColumns = `id, user_id, assistant_id, external_session_id, title, last_message_at,
	total_messages, total_tokens_used, is_archived, created_at, updated_at`

const messageColumns = `id, conversation_id, role, content, input_tokens, output_tokens, cost_usd,
	COALESCE(external_message_id, '') AS external_message_id, is_edited, edited_at, created_at`

// CreateConversation persists a new conversation bound to an external session
func (p *PostgresDB) CreateConversation(ctx context.Context, conversation *db.Conversation) (*db.Conversation, error) {
	if conversation.ID == "" {
		conversation.ID = uuid.New().String()
	}

	var saved db.Conversation
	query := `
	INSERT INTO conversations (id, user_id, assistant_id, external_session_id, title)
	VALUES ($1, $2, $3, $4, $5)
	RETURNING ` + conversationColumns

	err := p.conn.GetContext(ctx, &saved, query,
		conversation.ID, conversation.UserID, conversation.AssistantID, conversation.ExternalSessionID, conversation.Title)
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": saved.ID,
		"user_id":         saved.UserID,
		"assistant_id":    saved.AssistantID,
		"session_id":      saved.ExternalSessionID,
	}).Info("Created new conversation")

	return &saved, nil
}

// GetConversation retrieves a conversation owned by userID
func (p *PostgresDB) GetConversation(ctx context.Context, id, userID string) (*db.Conversation, error) {
	if !validID(id) || !validID(userID) {
		return nil, db.ErrNotFound
	}

	var conv db.Conversation
	query := `SELECT ` + conversationColumns + ` FROM conversations WHERE id = $1 AND user_id = $2`

	if err := p.conn.GetContext(ctx, &conv, query, id, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}

	return &conv, nil
}

// ListConversations retrieves a user's conversations, most recently active first
func (p *PostgresDB) ListConversations(ctx context.Context, userID string, includeArchived bool) ([]db.ConversationListItem, error) {
	if !validID(userID) {
		return nil, nil
	}

	query := `
	SELECT c.id, c.user_id, c.assistant_id, c.external_session_id, c.title, c.last_message_at,
	       c.total_messages, c.total_tokens_used, c.is_archived, c.created_at, c.updated_at,
	       a.id, a.name, a.specialty, a.description,
	       lm.role, lm.content, lm.created_at
	FROM conversations c
	JOIN assistants a ON a.id = c.assistant_id
	LEFT JOIN LATERAL (
		SELECT m.role, m.content, m.created_at
		FROM messages m
		WHERE m.conversation_id = c.id
		ORDER BY m.seq DESC
		LIMIT 1
	) lm ON TRUE
	WHERE c.user_id = $1 AND ($2 OR NOT c.is_archived)
	ORDER BY c.last_message_at DESC
	`

	rows, err := p.conn.QueryContext(ctx, query, userID, includeArchived)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	var items []db.ConversationListItem
	for rows.Next() {
		var item db.ConversationListItem
		var lastRole, lastContent sql.NullString
		var lastCreatedAt sql.NullTime

		c := &item.Conversation
		if err := rows.Scan(&c.ID, &c.UserID, &c.AssistantID, &c.ExternalSessionID, &c.Title, &c.LastMessageAt,
			&c.TotalMessages, &c.TotalTokensUsed, &c.IsArchived, &c.CreatedAt, &c.UpdatedAt,
			&item.Assistant.ID, &item.Assistant.Name, &item.Assistant.Specialty, &item.Assistant.Description,
			&lastRole, &lastContent, &lastCreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}

		if lastRole.Valid {
			item.LastMessage = &db.LastMessage{
				Role:      db.MessageRole(lastRole.String),
				Content:   lastContent.String,
				CreatedAt: lastCreatedAt.Time,
			}
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return items, nil
}

// GetConversationMessages retrieves all messages of a conversation in send order
func (p *PostgresDB) GetConversationMessages(ctx context.Context, conversationID string) ([]db.Message, error) {
	if !validID(conversationID) {
		return nil, nil
	}

	var messages []db.Message
	query := `SELECT ` + messageColumns + ` FROM messages WHERE conversation_id = $1 ORDER BY seq ASC`

	if err := p.conn.SelectContext(ctx, &messages, query, conversationID); err != nil {
		return nil, fmt.Errorf("error querying messages: %w", err)
	}

	return messages, nil
}

// ArchiveConversation marks a conversation read-only; archiving twice is a no-op
func (p *PostgresDB) ArchiveConversation(ctx context.Context, id, userID string) error {
	if !validID(id) || !validID(userID) {
		return db.ErrNotFound
	}

	query := `UPDATE conversations SET is_archived = TRUE, updated_at = CURRENT_TIMESTAMP WHERE id = $1 AND user_id = $2`
	result, err := p.conn.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("error archiving conversation: %w", err)
	}
	if err := requireOneRow(result); err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{"conversation_id": id, "user_id": userID}).Info("Archived conversation")
	return nil
}

// DeleteConversation deletes a conversation; its messages cascade
func (p *PostgresDB) DeleteConversation(ctx context.Context, id, userID string) error {
	if !validID(id) || !validID(userID) {
		return db.ErrNotFound
	}

	query := `DELETE FROM conversations WHERE id = $1 AND user_id = $2`
	result, err := p.conn.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
	}
	if err := requireOneRow(result); err != nil {
		return err
	}

	logger.Log.WithField("conversation_id", id).Info("Deleted conversation")
	return nil
}

// GetUserStats aggregates counters over all of a user's conversations
func (p *PostgresDB) GetUserStats(ctx context.Context, userID string) (*db.UserStats, error) {
	var stats db.UserStats
	if !validID(userID) {
		return &stats, nil
	}

	query := `
	SELECT COUNT(*) AS total_conversations,
	       COUNT(*) FILTER (WHERE NOT is_archived) AS active_conversations,
	       COALESCE(SUM(total_messages), 0) AS total_messages,
	       COALESCE(SUM(total_tokens_used), 0) AS total_tokens_used
	FROM conversations
	WHERE user_id = $1
	`

	if err := p.conn.GetContext(ctx, &stats, query, userID); err != nil {
		return nil, fmt.Errorf("error aggregating user stats: %w", err)
	}
	return &stats, nil
}

func requireOneRow(result sql.Result) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error reading affected rows: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}
	return nil
}
