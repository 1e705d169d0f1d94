package db

import (
	"context"
	"time"
)

// Database defines the interface for all database operations
// This allows for easier testing through mocking and decouples the services from the specific database implementation
type Database interface {
	// Users
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	CreateUser(ctx context.Context, username, email, password string, status SubscriptionStatus, expiresAt *time.Time) (*User, error)

	// Assistants
	GetActiveAssistant(ctx context.Context, id string) (*Assistant, error)
	GetAssistant(ctx context.Context, id string) (*Assistant, error)
	UpsertAssistant(ctx context.Context, assistant *Assistant) (*Assistant, error)

	// Conversations, scoped to their owner
	CreateConversation(ctx context.Context, conversation *Conversation) (*Conversation, error)
	GetConversation(ctx context.Context, id, userID string) (*Conversation, error)
	ListConversations(ctx context.Context, userID string, includeArchived bool) ([]ConversationListItem, error)
	ArchiveConversation(ctx context.Context, id, userID string) error
	DeleteConversation(ctx context.Context, id, userID string) error
	GetUserStats(ctx context.Context, userID string) (*UserStats, error)

	// Messages
	GetConversationMessages(ctx context.Context, conversationID string) ([]Message, error)

	// RecordExchange atomically inserts both messages and bumps the conversation and user counters.
	// It fails with ErrArchived when the conversation is archived.
	RecordExchange(ctx context.Context, exchange Exchange) (*ExchangeResult, error)
}
