package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"medmind-api/internal/app"
	"medmind-api/internal/auth"
	"medmind-api/internal/logger"
	"medmind-api/internal/service/conversation"

	"github.com/sirupsen/logrus"
)

type CreateConversationRequest struct {
	AssistantID string  `json:"assistant_id"`
	Title       *string `json:"title,omitempty"`
}

type SendMessageRequest struct {
	Content string `json:"content"`
}

// ConversationHandlers exposes the conversation service over HTTP
type ConversationHandlers struct {
	service *conversation.ConversationService
}

// NewConversationHandlers creates a new ConversationHandlers
func NewConversationHandlers(config *app.Config) *ConversationHandlers {
	return &ConversationHandlers{
		service: config.Conversations,
	}
}

// CreateConversationHandler opens a conversation with an assistant
func (h *ConversationHandlers) CreateConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	detail, err := h.service.CreateConversation(r.Context(), userID, req.AssistantID, req.Title)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusCreated, "Conversation created", toDetailData(detail))
}

// ListConversationsHandler lists the user's conversations, most recently active first
func (h *ConversationHandlers) ListConversationsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	includeArchived := false
	if raw := r.URL.Query().Get("includeArchived"); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			auth.SendError(w, http.StatusBadRequest, "includeArchived must be a boolean", err)
			return
		}
		includeArchived = parsed
	}

	items, err := h.service.ListConversations(r.Context(), userID, includeArchived)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	data := make([]ConversationListData, 0, len(items))
	for _, item := range items {
		data = append(data, toListData(item))
	}
	sendJSON(w, http.StatusOK, "Conversations retrieved", data)
}

// GetConversationHandler returns one conversation with its messages
func (h *ConversationHandlers) GetConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	detail, err := h.service.GetConversation(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Conversation retrieved", toDetailData(detail))
}

// SendMessageHandler sends a message and waits for the assistant's reply
func (h *ConversationHandlers) SendMessageHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		auth.SendError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	conversationID := r.PathValue("id")
	logger.Log.WithFields(logrus.Fields{"conversation_id": conversationID, "user_id": userID}).Info("Send message request received")

	result, err := h.service.SendMessage(r.Context(), conversationID, userID, req.Content)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Message sent", SendMessageData{
		UserMessage:      toMessageData(result.UserMessage),
		AssistantMessage: toMessageData(result.AssistantMessage),
		Conversation: ConversationCounters{
			ID:              result.Conversation.ID,
			TotalMessages:   result.Conversation.TotalMessages,
			TotalTokensUsed: result.Conversation.TotalTokensUsed,
		},
		Usage: UsageData{
			PromptTokens:     result.Usage.PromptTokens,
			CompletionTokens: result.Usage.CompletionTokens,
			TotalTokens:      result.Usage.TotalTokens,
			CostUSD:          result.Usage.CostUSD,
		},
	})
}

// ArchiveConversationHandler makes a conversation read-only
func (h *ConversationHandlers) ArchiveConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.ArchiveConversation(r.Context(), r.PathValue("id"), userID); err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Conversation archived", nil)
}

// DeleteConversationHandler deletes a conversation and its messages
func (h *ConversationHandlers) DeleteConversationHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteConversation(r.Context(), r.PathValue("id"), userID); err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Conversation deleted", nil)
}

// GetUserLimitsHandler reports the user's token allowance
func (h *ConversationHandlers) GetUserLimitsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	limits, err := h.service.GetUserLimits(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Limits retrieved", toLimitsData(limits))
}

// GetUserStatsHandler aggregates the user's conversation counters
func (h *ConversationHandlers) GetUserStatsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	stats, err := h.service.GetUserStats(r.Context(), userID)
	if err != nil {
		sendServiceError(w, err)
		return
	}

	sendJSON(w, http.StatusOK, "Stats retrieved", StatsData{
		TotalConversations:  stats.TotalConversations,
		ActiveConversations: stats.ActiveConversations,
		TotalMessages:       stats.TotalMessages,
		TotalTokensUsed:     stats.TotalTokensUsed,
	})
}

func (h *ConversationHandlers) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		auth.SendError(w, http.StatusUnauthorized, "Unauthorized", nil)
	}
	return userID, ok
}
