package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
)

// RecordExchange writes a user/assistant message pair and applies every counter update in one
// transaction. Counters are incremented in SQL so concurrent exchanges never lose updates.
// An archived conversation rejects the exchange with db.ErrArchived and nothing is written.
func (p *PostgresDB) RecordExchange(ctx context.Context, exchange db.Exchange) (*db.ExchangeResult, error) {
	if !validID(exchange.ConversationID) || !validID(exchange.UserID) {
		return nil, db.ErrNotFound
	}

	var result db.ExchangeResult
	err := p.withTx(ctx, func(tx *sqlx.Tx) error {
		// Counters first so the conversation row is locked before any message is inserted.
		conversationQuery := `
		UPDATE conversations
		SET total_messages = total_messages + 2,
		    total_tokens_used = total_tokens_used + $1,
		    last_message_at = CURRENT_TIMESTAMP,
		    updated_at = CURRENT_TIMESTAMP,
		    title = CASE WHEN total_messages = 0 AND title IS NULL THEN $2 ELSE title END
		WHERE id = $3 AND user_id = $4 AND NOT is_archived
		RETURNING ` + conversationColumns

		var conversation db.Conversation
		err := tx.GetContext(ctx, &conversation, conversationQuery,
			exchange.Usage.TotalTokens, exchange.FirstMessageTitle, exchange.ConversationID, exchange.UserID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return rejectedExchange(ctx, tx, exchange.ConversationID, exchange.UserID)
			}
			return fmt.Errorf("error updating conversation counters: %w", err)
		}

		userMessage, err := insertMessage(ctx, tx, exchange.ConversationID, exchange.UserMessage)
		if err != nil {
			return fmt.Errorf("error saving user message: %w", err)
		}
		assistantMessage, err := insertMessage(ctx, tx, exchange.ConversationID, exchange.AssistantMessage)
		if err != nil {
			return fmt.Errorf("error saving assistant message: %w", err)
		}

		userQuery := `UPDATE users SET total_tokens_used = total_tokens_used + $1 WHERE id = $2`
		res, err := tx.ExecContext(ctx, userQuery, exchange.Usage.TotalTokens, exchange.UserID)
		if err != nil {
			return fmt.Errorf("error updating user token usage: %w", err)
		}
		if err := requireOneRow(res); err != nil {
			return err
		}

		result = db.ExchangeResult{
			UserMessage:      *userMessage,
			AssistantMessage: *assistantMessage,
			Conversation:     conversation,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": exchange.ConversationID,
		"user_id":         exchange.UserID,
		"total_tokens":    exchange.Usage.TotalTokens,
		"total_messages":  result.Conversation.TotalMessages,
	}).Debug("Recorded exchange")

	return &result, nil
}

// rejectedExchange tells an archived conversation apart from a missing one
func rejectedExchange(ctx context.Context, tx *sqlx.Tx, conversationID, userID string) error {
	var archived bool
	err := tx.GetContext(ctx, &archived, `SELECT is_archived FROM conversations WHERE id = $1 AND user_id = $2`, conversationID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return db.ErrNotFound
		}
		return fmt.Errorf("error checking conversation state: %w", err)
	}
	if archived {
		return db.ErrArchived
	}
	return db.ErrNotFound
}

func insertMessage(ctx context.Context, tx *sqlx.Tx, conversationID string, msg db.Message) (*db.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.New().String()
	}
	msg.ConversationID = conversationID

	query := `
	INSERT INTO messages (id, conversation_id, role, content, input_tokens, output_tokens, cost_usd, external_message_id)
	VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''))
	RETURNING created_at
	`

	err := tx.QueryRowxContext(ctx, query, msg.ID, conversationID, msg.Role, msg.Content,
		msg.InputTokens, msg.OutputTokens, msg.CostUSD, msg.ExternalMessageID).Scan(&msg.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}
