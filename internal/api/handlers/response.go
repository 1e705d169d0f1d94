package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"medmind-api/internal/auth"
	"medmind-api/internal/logger"
	"medmind-api/internal/repository/db"
	"medmind-api/internal/service/conversation"
	"medmind-api/internal/service/quota"
)

// Response is the JSON envelope of every successful request
type Response struct {
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

type AssistantData struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Specialty   string `json:"specialty"`
	Description string `json:"description,omitempty"`
}

type MessageData struct {
	ID           string    `json:"id"`
	Role         string    `json:"role"`
	Content      string    `json:"content"`
	InputTokens  int       `json:"input_tokens"`
	OutputTokens int       `json:"output_tokens"`
	CostUSD      float64   `json:"cost_usd"`
	IsEdited     bool      `json:"is_edited"`
	CreatedAt    time.Time `json:"created_at"`
}

type LastMessageData struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

type ConversationData struct {
	ID              string    `json:"id"`
	Title           *string   `json:"title"`
	AssistantID     string    `json:"assistant_id"`
	LastMessageAt   time.Time `json:"last_message_at"`
	TotalMessages   int       `json:"total_messages"`
	TotalTokensUsed int64     `json:"total_tokens_used"`
	IsArchived      bool      `json:"is_archived"`
	CreatedAt       time.Time `json:"created_at"`
}

type ConversationDetailData struct {
	ConversationData
	Assistant AssistantData `json:"assistant"`
	Messages  []MessageData `json:"messages"`
}

type ConversationListData struct {
	ConversationData
	Assistant   AssistantData    `json:"assistant"`
	LastMessage *LastMessageData `json:"last_message,omitempty"`
}

type ConversationCounters struct {
	ID              string `json:"id"`
	TotalMessages   int    `json:"total_messages"`
	TotalTokensUsed int64  `json:"total_tokens_used"`
}

type UsageData struct {
	PromptTokens     int     `json:"prompt_tokens"`
	CompletionTokens int     `json:"completion_tokens"`
	TotalTokens      int     `json:"total_tokens"`
	CostUSD          float64 `json:"cost_usd"`
}

type SendMessageData struct {
	UserMessage      MessageData          `json:"user_message"`
	AssistantMessage MessageData          `json:"assistant_message"`
	Conversation     ConversationCounters `json:"conversation"`
	Usage            UsageData            `json:"usage"`
}

type LimitsData struct {
	Subscription          string     `json:"subscription"`
	TokensUsed            int64      `json:"tokens_used"`
	TokenLimit            int64      `json:"token_limit"`
	TokensRemaining       int64      `json:"tokens_remaining"`
	PercentageUsed        int        `json:"percentage_used"`
	SubscriptionExpiresAt *time.Time `json:"subscription_expires_at"`
}

type StatsData struct {
	TotalConversations  int   `json:"total_conversations"`
	ActiveConversations int   `json:"active_conversations"`
	TotalMessages       int64 `json:"total_messages"`
	TotalTokensUsed     int64 `json:"total_tokens_used"`
}

// sendJSON writes a success envelope
func sendJSON(w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(Response{Message: message, Data: data})
}

// sendServiceError maps a conversation error kind onto an HTTP status
func sendServiceError(w http.ResponseWriter, err error) {
	var svcErr *conversation.Error
	if !errors.As(err, &svcErr) {
		logger.Log.WithError(err).Error("Unclassified service error")
		auth.SendError(w, http.StatusInternalServerError, "Internal server error", nil)
		return
	}

	status := statusForKind(svcErr.Kind)
	resp := auth.ErrorResponse{
		Code:    status,
		Message: svcErr.Message,
		Kind:    string(svcErr.Kind),
	}
	if svcErr.Kind == conversation.KindValidation {
		resp.Error = svcErr.Message
	}
	auth.WriteError(w, resp)
}

func statusForKind(kind conversation.Kind) int {
	switch kind {
	case conversation.KindNotFound:
		return http.StatusNotFound
	case conversation.KindAdmissionDenied:
		return http.StatusForbidden
	case conversation.KindValidation:
		return http.StatusBadRequest
	case conversation.KindArchived:
		return http.StatusConflict
	case conversation.KindExternal:
		return http.StatusBadGateway
	case conversation.KindExternalTimeout:
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func toConversationData(c db.Conversation) ConversationData {
	return ConversationData{
		ID:              c.ID,
		Title:           c.Title,
		AssistantID:     c.AssistantID,
		LastMessageAt:   c.LastMessageAt,
		TotalMessages:   c.TotalMessages,
		TotalTokensUsed: c.TotalTokensUsed,
		IsArchived:      c.IsArchived,
		CreatedAt:       c.CreatedAt,
	}
}

func toAssistantData(a db.AssistantSummary) AssistantData {
	return AssistantData{ID: a.ID, Name: a.Name, Specialty: a.Specialty, Description: a.Description}
}

func toMessageData(m db.Message) MessageData {
	return MessageData{
		ID:           m.ID,
		Role:         string(m.Role),
		Content:      m.Content,
		InputTokens:  m.InputTokens,
		OutputTokens: m.OutputTokens,
		CostUSD:      m.CostUSD,
		IsEdited:     m.IsEdited,
		CreatedAt:    m.CreatedAt,
	}
}

func toDetailData(d *conversation.Detail) ConversationDetailData {
	messages := make([]MessageData, 0, len(d.Messages))
	for _, m := range d.Messages {
		messages = append(messages, toMessageData(m))
	}
	return ConversationDetailData{
		ConversationData: toConversationData(d.Conversation),
		Assistant:        toAssistantData(d.Assistant),
		Messages:         messages,
	}
}

func toListData(item db.ConversationListItem) ConversationListData {
	data := ConversationListData{
		ConversationData: toConversationData(item.Conversation),
		Assistant:        AssistantData{ID: item.Assistant.ID, Name: item.Assistant.Name, Specialty: item.Assistant.Specialty},
	}
	if item.LastMessage != nil {
		data.LastMessage = &LastMessageData{
			Role:      string(item.LastMessage.Role),
			Content:   item.LastMessage.Content,
			CreatedAt: item.LastMessage.CreatedAt,
		}
	}
	return data
}

func toLimitsData(l *quota.Limits) LimitsData {
	return LimitsData{
		Subscription:          l.Subscription,
		TokensUsed:            l.TokensUsed,
		TokenLimit:            l.TokenLimit,
		TokensRemaining:       l.TokensRemaining,
		PercentageUsed:        l.PercentageUsed,
		SubscriptionExpiresAt: l.SubscriptionExpiresAt,
	}
}
