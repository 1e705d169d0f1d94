package conversation

import (
	"context"
	"errors"
	"strings"

	"medmind-api/internal/config"
	"medmind-api/internal/lock"
	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"
	"medmind-api/internal/service/quota"
	"medmind-api/internal/service/session"
	"medmind-api/pkg/validation"

	"github.com/sirupsen/logrus"
)

// Detail is a conversation with its assistant and full message history
type Detail struct {
	Conversation db.Conversation
	Assistant    db.AssistantSummary
	Messages     []db.Message
}

// Usage is the token and cost summary of one exchange
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
	CostUSD          float64
}

// SendResult is the outcome of a successful SendMessage
type SendResult struct {
	UserMessage      db.Message
	AssistantMessage db.Message
	Conversation     db.Conversation
	Usage            Usage
}

// ConversationService handles the business logic for conversations with assistants
type ConversationService struct {
	db        db.Database
	runner    *session.Runner
	gate      *quota.Gate
	locker    lock.Locker
	pricing   *config.PricingCatalog
	validator *validation.ConversationRequestValidator
}

// NewConversationService creates a new ConversationService
func NewConversationService(database db.Database, runner *session.Runner, gate *quota.Gate, locker lock.Locker, pricing *config.PricingCatalog) *ConversationService {
	return &ConversationService{
		db:        database,
		runner:    runner,
		gate:      gate,
		locker:    locker,
		pricing:   pricing,
		validator: validation.NewConversationRequestValidator(),
	}
}

// CreateConversation opens an external session for an active assistant and persists the
// conversation bound to it. No row is written if the session cannot be opened.
func (s *ConversationService) CreateConversation(ctx context.Context, userID, assistantID string, title *string) (*Detail, error) {
	if err := s.validator.ValidateCreateRequest(assistantID, title); err != nil {
		return nil, newError(KindValidation, err.Error(), err)
	}
	if title != nil && strings.TrimSpace(*title) == "" {
		title = nil
	}

	assistant, err := s.db.GetActiveAssistant(ctx, assistantID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, newError(KindNotFound, msgAssistantNotFound, err)
		}
		return nil, newError(KindInternal, msgInternal, err)
	}

	sessionID, err := s.runner.OpenSession(ctx)
	if err != nil {
		logger.Log.WithError(err).WithField("assistant_id", assistantID).Error("Failed to open provider session")
		return nil, newError(KindExternal, msgExternal, err)
	}

	conv, err := s.db.CreateConversation(ctx, &db.Conversation{
		UserID:            userID,
		AssistantID:       assistant.ID,
		ExternalSessionID: sessionID,
		Title:             title,
	})
	if err != nil {
		s.runner.CloseSession(context.WithoutCancel(ctx), sessionID)
		return nil, newError(KindPersistence, msgInternal, err)
	}

	return &Detail{
		Conversation: *conv,
		Assistant:    summarize(assistant),
		Messages:     []db.Message{},
	}, nil
}

// ListConversations returns the user's conversations, most recently active first
func (s *ConversationService) ListConversations(ctx context.Context, userID string, includeArchived bool) ([]db.ConversationListItem, error) {
	items, err := s.db.ListConversations(ctx, userID, includeArchived)
	if err != nil {
		return nil, newError(KindInternal, msgInternal, err)
	}
	if items == nil {
		items = []db.ConversationListItem{}
	}
	return items, nil
}

// GetConversation returns a conversation owned by userID with its messages in send order
func (s *ConversationService) GetConversation(ctx context.Context, id, userID string) (*Detail, error) {
	conv, err := s.loadConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	assistant, err := s.db.GetAssistant(ctx, conv.AssistantID)
	if err != nil {
		return nil, newError(KindInternal, msgInternal, err)
	}

	messages, err := s.db.GetConversationMessages(ctx, conv.ID)
	if err != nil {
		return nil, newError(KindInternal, msgInternal, err)
	}
	if messages == nil {
		messages = []db.Message{}
	}

	return &Detail{Conversation: *conv, Assistant: summarize(assistant), Messages: messages}, nil
}

// SendMessage runs one exchange with the conversation's assistant. Sends to the same
// conversation are serialized; the exchange is persisted only after the assistant replied.
func (s *ConversationService) SendMessage(ctx context.Context, id, userID, content string) (*SendResult, error) {
	if err := s.validator.ValidateContent(content); err != nil {
		return nil, newError(KindValidation, err.Error(), err)
	}

	unlock, err := s.locker.Lock(ctx, lock.ConversationKey(id))
	if err != nil {
		return nil, newError(KindInternal, msgInternal, err)
	}
	defer unlock()

	conv, err := s.loadConversation(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	if conv.IsArchived {
		return nil, newError(KindArchived, msgArchived, nil)
	}

	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		return nil, newError(KindInternal, msgInternal, err)
	}

	admission, err := s.gate.CheckAdmission(user)
	if err != nil {
		logger.Log.WithFields(logrus.Fields{"user_id": userID, "reason": err.Error()}).Info("Message send denied")
		return nil, newError(KindAdmissionDenied, err.Error(), err)
	}

	assistant, err := s.db.GetAssistant(ctx, conv.AssistantID)
	if err != nil {
		return nil, newError(KindInternal, msgInternal, err)
	}

	log := logger.Log.WithFields(logrus.Fields{
		"conversation_id": conv.ID,
		"user_id":         userID,
		"session_id":      conv.ExternalSessionID,
	})
	log.WithFields(logrus.Fields{"tier": admission.Tier, "tokens_remaining": admission.Remaining}).Debug("Sending message to assistant")

	result, err := s.runner.Exchange(ctx, conv.ExternalSessionID, assistant.ExternalProfileID, content)
	if err != nil {
		log.WithError(err).Warn("Assistant exchange failed")
		if errors.Is(err, session.ErrTimeout) {
			return nil, newError(KindExternalTimeout, msgExternal, err)
		}
		return nil, newError(KindExternal, msgExternal, err)
	}

	// most recent first: the assistant reply, then the user turn it answers
	if len(result.Messages) < 2 {
		log.WithFields(logrus.Fields{"job_id": result.JobID, "messages": len(result.Messages)}).Error("Assistant returned too few messages")
		return nil, newError(KindMalformedResponse, msgMalformed, session.ErrMalformedResponse)
	}
	assistantTurn, userTurn := result.Messages[0], result.Messages[1]
	if assistantTurn.Role != session.RoleAssistant || userTurn.Role != session.RoleUser {
		log.WithFields(logrus.Fields{
			"job_id":      result.JobID,
			"latest_role": assistantTurn.Role,
			"prior_role":  userTurn.Role,
		}).Error("Assistant run produced no reply to the submitted turn")
		return nil, newError(KindMalformedResponse, msgMalformed, session.ErrMalformedResponse)
	}

	usage := s.usage(assistant.Model, result.Usage)

	exchange := db.Exchange{
		ConversationID: conv.ID,
		UserID:         userID,
		UserMessage: db.Message{
			Role:              db.RoleUser,
			Content:           content,
			InputTokens:       usage.PromptTokens,
			ExternalMessageID: userTurn.ID,
		},
		AssistantMessage: db.Message{
			Role:              db.RoleAssistant,
			Content:           assistantTurn.Content,
			OutputTokens:      usage.CompletionTokens,
			CostUSD:           usage.CostUSD,
			ExternalMessageID: assistantTurn.ID,
		},
		Usage: db.TokenUsage{
			PromptTokens:     usage.PromptTokens,
			CompletionTokens: usage.CompletionTokens,
			TotalTokens:      usage.TotalTokens,
		},
	}
	if conv.Title == nil && conv.TotalMessages == 0 {
		title := GenerateTitle(content)
		exchange.FirstMessageTitle = &title
	}

	saved, err := s.db.RecordExchange(ctx, exchange)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, newError(KindNotFound, msgConversationNotFound, err)
		}
		if errors.Is(err, db.ErrArchived) {
			log.WithFields(logrus.Fields{"job_id": result.JobID, "total_tokens": usage.TotalTokens}).Warn("Conversation archived while the assistant was replying")
			return nil, newError(KindArchived, msgArchived, err)
		}
		log.WithError(err).WithFields(logrus.Fields{
			"job_id":       result.JobID,
			"total_tokens": usage.TotalTokens,
			"cost_usd":     usage.CostUSD,
		}).Error("Failed to persist exchange, tokens were spent without a record")
		return nil, newError(KindPersistence, msgPersistence, err)
	}

	log.WithFields(logrus.Fields{
		"job_id":         result.JobID,
		"total_tokens":   usage.TotalTokens,
		"total_messages": saved.Conversation.TotalMessages,
	}).Info("Recorded exchange")

	return &SendResult{
		UserMessage:      saved.UserMessage,
		AssistantMessage: saved.AssistantMessage,
		Conversation:     saved.Conversation,
		Usage:            usage,
	}, nil
}

// ArchiveConversation makes a conversation read-only. Archiving twice is a no-op.
// It waits for an in-flight send to the same conversation to finish.
func (s *ConversationService) ArchiveConversation(ctx context.Context, id, userID string) error {
	unlock, err := s.locker.Lock(ctx, lock.ConversationKey(id))
	if err != nil {
		return newError(KindInternal, msgInternal, err)
	}
	defer unlock()

	if err := s.db.ArchiveConversation(ctx, id, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return newError(KindNotFound, msgConversationNotFound, err)
		}
		return newError(KindInternal, msgInternal, err)
	}
	return nil
}

// DeleteConversation closes the external session best-effort, then deletes the conversation and its messages.
// It waits for an in-flight send to the same conversation to finish.
func (s *ConversationService) DeleteConversation(ctx context.Context, id, userID string) error {
	unlock, err := s.locker.Lock(ctx, lock.ConversationKey(id))
	if err != nil {
		return newError(KindInternal, msgInternal, err)
	}
	defer unlock()

	conv, err := s.loadConversation(ctx, id, userID)
	if err != nil {
		return err
	}

	s.runner.CloseSession(ctx, conv.ExternalSessionID)

	if err := s.db.DeleteConversation(ctx, conv.ID, userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return newError(KindNotFound, msgConversationNotFound, err)
		}
		return newError(KindInternal, msgInternal, err)
	}
	return nil
}

// GetUserLimits reports the user's token allowance
func (s *ConversationService) GetUserLimits(ctx context.Context, userID string) (*quota.Limits, error) {
	user, err := s.db.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, newError(KindNotFound, "user not found", err)
		}
		return nil, newError(KindInternal, msgInternal, err)
	}
	return s.gate.Limits(user), nil
}

// GetUserStats aggregates counters over the user's conversations
func (s *ConversationService) GetUserStats(ctx context.Context, userID string) (*db.UserStats, error) {
	stats, err := s.db.GetUserStats(ctx, userID)
	if err != nil {
		return nil, newError(KindInternal, msgInternal, err)
	}
	return stats, nil
}

func (s *ConversationService) loadConversation(ctx context.Context, id, userID string) (*db.Conversation, error) {
	conv, err := s.db.GetConversation(ctx, id, userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, newError(KindNotFound, msgConversationNotFound, err)
		}
		return nil, newError(KindInternal, msgInternal, err)
	}
	return conv, nil
}

// usage prices an exchange; the conversation and user counters grow by prompt plus completion tokens
func (s *ConversationService) usage(model string, u session.Usage) Usage {
	if model == "" {
		model = s.pricing.DefaultModel()
	}
	return Usage{
		PromptTokens:     u.PromptTokens,
		CompletionTokens: u.CompletionTokens,
		TotalTokens:      u.PromptTokens + u.CompletionTokens,
		CostUSD:          s.pricing.Cost(model, u.PromptTokens, u.CompletionTokens),
	}
}

func summarize(a *db.Assistant) db.AssistantSummary {
	return db.AssistantSummary{
		ID:          a.ID,
		Name:        a.Name,
		Specialty:   a.Specialty,
		Description: a.Description,
	}
}
