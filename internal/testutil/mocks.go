package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"medmind-api/internal/config"
	"medmind-api/internal/lock"
	"medmind-api/internal/repository/db"
	"medmind-api/internal/service/session"
)

// MockDatabase is a mock implementation of db.Database for testing
type MockDatabase struct {
	// User mocks
	GetUserByIDFunc       func(ctx context.Context, id string) (*db.User, error)
	GetUserByUsernameFunc func(ctx context.Context, username string) (*db.User, error)
	CreateUserFunc        func(ctx context.Context, username, email, password string, status db.SubscriptionStatus, expiresAt *time.Time) (*db.User, error)

	// Assistant mocks
	GetActiveAssistantFunc func(ctx context.Context, id string) (*db.Assistant, error)
	GetAssistantFunc       func(ctx context.Context, id string) (*db.Assistant, error)
	UpsertAssistantFunc    func(ctx context.Context, assistant *db.Assistant) (*db.Assistant, error)

	// Conversation mocks
	CreateConversationFunc  func(ctx context.Context, conversation *db.Conversation) (*db.Conversation, error)
	GetConversationFunc     func(ctx context.Context, id, userID string) (*db.Conversation, error)
	ListConversationsFunc   func(ctx context.Context, userID string, includeArchived bool) ([]db.ConversationListItem, error)
	ArchiveConversationFunc func(ctx context.Context, id, userID string) error
	DeleteConversationFunc  func(ctx context.Context, id, userID string) error
	GetUserStatsFunc        func(ctx context.Context, userID string) (*db.UserStats, error)

	// Message mocks
	GetConversationMessagesFunc func(ctx context.Context, conversationID string) ([]db.Message, error)
	RecordExchangeFunc          func(ctx context.Context, exchange db.Exchange) (*db.ExchangeResult, error)
}

var _ db.Database = (*MockDatabase)(nil)

// User methods
func (m *MockDatabase) GetUserByID(ctx context.Context, id string) (*db.User, error) {
	if m.GetUserByIDFunc != nil {
		return m.GetUserByIDFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetUserByUsername(ctx context.Context, username string) (*db.User, error) {
	if m.GetUserByUsernameFunc != nil {
		return m.GetUserByUsernameFunc(ctx, username)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) CreateUser(ctx context.Context, username, email, password string, status db.SubscriptionStatus, expiresAt *time.Time) (*db.User, error) {
	if m.CreateUserFunc != nil {
		return m.CreateUserFunc(ctx, username, email, password, status, expiresAt)
	}
	return nil, errors.New("not implemented")
}

// Assistant methods
func (m *MockDatabase) GetActiveAssistant(ctx context.Context, id string) (*db.Assistant, error) {
	if m.GetActiveAssistantFunc != nil {
		return m.GetActiveAssistantFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetAssistant(ctx context.Context, id string) (*db.Assistant, error) {
	if m.GetAssistantFunc != nil {
		return m.GetAssistantFunc(ctx, id)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) UpsertAssistant(ctx context.Context, assistant *db.Assistant) (*db.Assistant, error) {
	if m.UpsertAssistantFunc != nil {
		return m.UpsertAssistantFunc(ctx, assistant)
	}
	return nil, errors.New("not implemented")
}

// Conversation methods
func (m *MockDatabase) CreateConversation(ctx context.Context, conversation *db.Conversation) (*db.Conversation, error) {
	if m.CreateConversationFunc != nil {
		return m.CreateConversationFunc(ctx, conversation)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) GetConversation(ctx context.Context, id, userID string) (*db.Conversation, error) {
	if m.GetConversationFunc != nil {
		return m.GetConversationFunc(ctx, id, userID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ListConversations(ctx context.Context, userID string, includeArchived bool) ([]db.ConversationListItem, error) {
	if m.ListConversationsFunc != nil {
		return m.ListConversationsFunc(ctx, userID, includeArchived)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) ArchiveConversation(ctx context.Context, id, userID string) error {
	if m.ArchiveConversationFunc != nil {
		return m.ArchiveConversationFunc(ctx, id, userID)
	}
	return errors.New("not implemented")
}

func (m *MockDatabase) DeleteConversation(ctx context.Context, id, userID string) error {
	if m.DeleteConversationFunc != nil {
		return m.DeleteConversationFunc(ctx, id, userID)
	}
	return errors.New("not implemented")
}

func (m *MockDatabase) GetUserStats(ctx context.Context, userID string) (*db.UserStats, error) {
	if m.GetUserStatsFunc != nil {
		return m.GetUserStatsFunc(ctx, userID)
	}
	return nil, errors.New("not implemented")
}

// Message methods
func (m *MockDatabase) GetConversationMessages(ctx context.Context, conversationID string) ([]db.Message, error) {
	if m.GetConversationMessagesFunc != nil {
		return m.GetConversationMessagesFunc(ctx, conversationID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockDatabase) RecordExchange(ctx context.Context, exchange db.Exchange) (*db.ExchangeResult, error) {
	if m.RecordExchangeFunc != nil {
		return m.RecordExchangeFunc(ctx, exchange)
	}
	return nil, errors.New("not implemented")
}

// MockProvider is a mock implementation of session.Provider for testing
type MockProvider struct {
	OpenSessionFunc    func(ctx context.Context) (string, error)
	CloseSessionFunc   func(ctx context.Context, sessionID string) error
	SubmitTurnFunc     func(ctx context.Context, sessionID, text string) (string, error)
	StartExecutionFunc func(ctx context.Context, sessionID, profileID string) (string, error)
	PollJobFunc        func(ctx context.Context, sessionID, jobID string) (*session.JobState, error)
	FetchMessagesFunc  func(ctx context.Context, sessionID string, limit int) ([]session.Message, error)
}

var _ session.Provider = (*MockProvider)(nil)

func (m *MockProvider) OpenSession(ctx context.Context) (string, error) {
	if m.OpenSessionFunc != nil {
		return m.OpenSessionFunc(ctx)
	}
	return "", errors.New("not implemented")
}

func (m *MockProvider) CloseSession(ctx context.Context, sessionID string) error {
	if m.CloseSessionFunc != nil {
		return m.CloseSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockProvider) SubmitTurn(ctx context.Context, sessionID, text string) (string, error) {
	if m.SubmitTurnFunc != nil {
		return m.SubmitTurnFunc(ctx, sessionID, text)
	}
	return "", errors.New("not implemented")
}

func (m *MockProvider) StartExecution(ctx context.Context, sessionID, profileID string) (string, error) {
	if m.StartExecutionFunc != nil {
		return m.StartExecutionFunc(ctx, sessionID, profileID)
	}
	return "", errors.New("not implemented")
}

func (m *MockProvider) PollJob(ctx context.Context, sessionID, jobID string) (*session.JobState, error) {
	if m.PollJobFunc != nil {
		return m.PollJobFunc(ctx, sessionID, jobID)
	}
	return nil, errors.New("not implemented")
}

func (m *MockProvider) FetchMessages(ctx context.Context, sessionID string, limit int) ([]session.Message, error) {
	if m.FetchMessagesFunc != nil {
		return m.FetchMessagesFunc(ctx, sessionID, limit)
	}
	return nil, errors.New("not implemented")
}

// NewCompletingProvider returns a provider whose every job completes on the first poll
// with the given reply and usage. The user turn is echoed back as the second message.
func NewCompletingProvider(reply string, usage session.Usage) *MockProvider {
	var mu sync.Mutex
	lastTurn := map[string]string{}

	return &MockProvider{
		OpenSessionFunc: func(ctx context.Context) (string, error) {
			return "thread_test", nil
		},
		SubmitTurnFunc: func(ctx context.Context, sessionID, text string) (string, error) {
			mu.Lock()
			lastTurn[sessionID] = text
			mu.Unlock()
			return "msg_user", nil
		},
		StartExecutionFunc: func(ctx context.Context, sessionID, profileID string) (string, error) {
			return "run_test", nil
		},
		PollJobFunc: func(ctx context.Context, sessionID, jobID string) (*session.JobState, error) {
			u := usage
			return &session.JobState{Status: session.StatusCompleted, Usage: &u}, nil
		},
		FetchMessagesFunc: func(ctx context.Context, sessionID string, limit int) ([]session.Message, error) {
			mu.Lock()
			turn := lastTurn[sessionID]
			mu.Unlock()
			return []session.Message{
				{ID: "msg_assistant", Role: session.RoleAssistant, Content: reply},
				{ID: "msg_user", Role: session.RoleUser, Content: turn},
			}, nil
		},
	}
}

// MockLocker is a lock.Locker that records acquired keys
type MockLocker struct {
	LockFunc func(ctx context.Context, key string) (lock.Unlock, error)

	mu       sync.Mutex
	Acquired []string
	Released int
}

var _ lock.Locker = (*MockLocker)(nil)

func (m *MockLocker) Lock(ctx context.Context, key string) (lock.Unlock, error) {
	if m.LockFunc != nil {
		return m.LockFunc(ctx, key)
	}
	m.mu.Lock()
	m.Acquired = append(m.Acquired, key)
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		m.Released++
		m.mu.Unlock()
	}, nil
}

// NewMockConfig creates an AppConfig with fast execution settings for testing
func NewMockConfig() *config.AppConfig {
	return &config.AppConfig{
		Server: config.ServerConfig{Port: "8080"},
		Auth: config.AuthConfig{
			JWTSecret:       []byte("test-secret-key-that-is-at-least-32-chars"),
			TokenExpiration: time.Hour,
			TrialDuration:   7 * 24 * time.Hour,
		},
		Execution: config.ExecutionConfig{
			Timeout:      time.Second,
			PollInterval: 5 * time.Millisecond,
			FetchLimit:   10,
		},
		Quota: config.QuotaConfig{
			FallbackTier: "TRIAL",
			Tiers: []config.Tier{
				{Name: "TRIAL", DisplayName: "Trial", TokenLimit: 10000, Validity: config.ValidityUntilExpiry},
				{Name: "ACTIVE", DisplayName: "Basic", TokenLimit: 100000, Validity: config.ValidityAlways},
				{Name: "PREMIUM", DisplayName: "Premium", TokenLimit: 500000, Validity: config.ValidityNone},
			},
		},
		Lock:    config.LockConfig{Driver: "memory"},
		Pricing: config.DefaultPricingCatalog(),
	}
}
