package db

import (
	"errors"
	"time"

	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNotFound is returned when a row does not exist or is not visible to the caller
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint rejects an insert
	ErrDuplicate = errors.New("record already exists")
	// ErrArchived is returned when an exchange targets a conversation that was archived
	ErrArchived = errors.New("conversation is archived")
)

// SubscriptionStatus is the user's plan
type SubscriptionStatus string

const (
	SubscriptionTrial   SubscriptionStatus = "TRIAL"
	SubscriptionActive  SubscriptionStatus = "ACTIVE"
	SubscriptionPremium SubscriptionStatus = "PREMIUM"
)

// MessageRole identifies which side of an exchange wrote a message
type MessageRole string

const (
	RoleUser      MessageRole = "USER"
	RoleAssistant MessageRole = "ASSISTANT"
)

// User represents a user in the database
type User struct {
	ID                    string             `db:"id"`
	Username              string             `db:"username"`
	Email                 string             `db:"email"`
	PasswordHash          string             `db:"password_hash"`
	SubscriptionStatus    SubscriptionStatus `db:"subscription_status"`
	SubscriptionExpiresAt *time.Time         `db:"subscription_expires_at"`
	TotalTokensUsed       int64              `db:"total_tokens_used"`
	CreatedAt             time.Time          `db:"created_at"`
}

// VerifyPassword checks if the provided password matches the user's hashed password
func (u *User) VerifyPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password))
	return err == nil
}

// Assistant is a specialty-bound assistant backed by an external profile
type Assistant struct {
	ID                string    `db:"id"`
	Name              string    `db:"name"`
	Specialty         string    `db:"specialty"`
	Description       string    `db:"description"`
	Instructions      string    `db:"instructions"`
	Model             string    `db:"model"`
	ExternalProfileID string    `db:"external_profile_id"`
	IsActive          bool      `db:"is_active"`
	CreatedAt         time.Time `db:"created_at"`
}

// AssistantSummary is the assistant projection embedded in conversation views
type AssistantSummary struct {
	ID          string
	Name        string
	Specialty   string
	Description string
}

// Conversation represents a conversation in the database
type Conversation struct {
	ID                string    `db:"id"`
	UserID            string    `db:"user_id"`
	AssistantID       string    `db:"assistant_id"`
	ExternalSessionID string    `db:"external_session_id"`
	Title             *string   `db:"title"`
	LastMessageAt     time.Time `db:"last_message_at"`
	TotalMessages     int       `db:"total_messages"`
	TotalTokensUsed   int64     `db:"total_tokens_used"`
	IsArchived        bool      `db:"is_archived"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// LastMessage is the most recent message preview shown in listings
type LastMessage struct {
	Role      MessageRole
	Content   string
	CreatedAt time.Time
}

// ConversationListItem is a conversation row joined with its assistant and latest message
type ConversationListItem struct {
	Conversation
	Assistant   AssistantSummary
	LastMessage *LastMessage
}

// Message represents a message in a conversation
type Message struct {
	ID                string      `db:"id"`
	ConversationID    string      `db:"conversation_id"`
	Role              MessageRole `db:"role"`
	Content           string      `db:"content"`
	InputTokens       int         `db:"input_tokens"`
	OutputTokens      int         `db:"output_tokens"`
	CostUSD           float64     `db:"cost_usd"`
	ExternalMessageID string      `db:"external_message_id"`
	IsEdited          bool        `db:"is_edited"`
	EditedAt          *time.Time  `db:"edited_at"`
	CreatedAt         time.Time   `db:"created_at"`
}

// TokenUsage is the provider-reported token count of one exchange
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Exchange is a user message and the assistant reply, persisted together
type Exchange struct {
	ConversationID   string
	UserID           string
	UserMessage      Message
	AssistantMessage Message
	Usage            TokenUsage
	// FirstMessageTitle is applied only when the conversation has no messages and no title yet
	FirstMessageTitle *string
}

// ExchangeResult holds the rows written by RecordExchange
type ExchangeResult struct {
	UserMessage      Message
	AssistantMessage Message
	Conversation     Conversation
}

// UserStats aggregates a user's conversations
type UserStats struct {
	TotalConversations  int   `db:"total_conversations"`
	ActiveConversations int   `db:"active_conversations"`
	TotalMessages       int64 `db:"total_messages"`
	TotalTokensUsed     int64 `db:"total_tokens_used"`
}
