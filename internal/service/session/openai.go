package session

import (
	"context"
	"fmt"
	"strings"

	"medmind-api/internal/config"
	"medmind-api/internal/logger"

	openai "github.com/sashabaranov/go-openai"
)

// Ensure OpenAIProvider implements Provider interface
var _ Provider = (*OpenAIProvider)(nil)

// OpenAIProvider maps sessions onto Assistants API threads and jobs onto runs
type OpenAIProvider struct {
	client *openai.Client
}

// NewOpenAIProvider creates a provider backed by the OpenAI Assistants API
func NewOpenAIProvider(cfg config.OpenAIConfig) *OpenAIProvider {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	if cfg.Organization != "" {
		clientConfig.OrgID = cfg.Organization
	}

	logger.Log.WithField("base_url", clientConfig.BaseURL).Info("Initialized OpenAI assistants provider")

	return &OpenAIProvider{client: openai.NewClientWithConfig(clientConfig)}
}

// OpenSession creates a new thread
func (p *OpenAIProvider) OpenSession(ctx context.Context) (string, error) {
	thread, err := p.client.CreateThread(ctx, openai.ThreadRequest{})
	if err != nil {
		return "", fmt.Errorf("%w: create thread: %v", ErrProvider, err)
	}
	return thread.ID, nil
}

// CloseSession deletes a thread
func (p *OpenAIProvider) CloseSession(ctx context.Context, sessionID string) error {
	if _, err := p.client.DeleteThread(ctx, sessionID); err != nil {
		return fmt.Errorf("%w: delete thread: %v", ErrProvider, err)
	}
	return nil
}

// SubmitTurn appends a user message to the thread
func (p *OpenAIProvider) SubmitTurn(ctx context.Context, sessionID, text string) (string, error) {
	msg, err := p.client.CreateMessage(ctx, sessionID, openai.MessageRequest{
		Role:    string(RoleUser),
		Content: text,
	})
	if err != nil {
		return "", fmt.Errorf("%w: create message: %v", ErrProvider, err)
	}
	return msg.ID, nil
}

// StartExecution starts a run of the assistant profile on the thread
func (p *OpenAIProvider) StartExecution(ctx context.Context, sessionID, profileID string) (string, error) {
	run, err := p.client.CreateRun(ctx, sessionID, openai.RunRequest{AssistantID: profileID})
	if err != nil {
		return "", fmt.Errorf("%w: create run: %v", ErrProvider, err)
	}
	return run.ID, nil
}

// PollJob retrieves the current state of a run
func (p *OpenAIProvider) PollJob(ctx context.Context, sessionID, jobID string) (*JobState, error) {
	run, err := p.client.RetrieveRun(ctx, sessionID, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: retrieve run: %v", ErrProvider, err)
	}

	state := &JobState{Status: runStatus(run.Status)}
	if state.Status == StatusCompleted && run.Usage.TotalTokens > 0 {
		state.Usage = &Usage{
			PromptTokens:     run.Usage.PromptTokens,
			CompletionTokens: run.Usage.CompletionTokens,
			TotalTokens:      run.Usage.TotalTokens,
		}
	}
	return state, nil
}

// FetchMessages lists the thread's most recent messages
func (p *OpenAIProvider) FetchMessages(ctx context.Context, sessionID string, limit int) ([]Message, error) {
	order := "desc"
	list, err := p.client.ListMessage(ctx, sessionID, &limit, &order, nil, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: list messages: %v", ErrProvider, err)
	}

	messages := make([]Message, 0, len(list.Messages))
	for _, m := range list.Messages {
		messages = append(messages, Message{
			ID:      m.ID,
			Role:    Role(m.Role),
			Content: ExtractText(m.Content),
		})
	}
	return messages, nil
}

// ExtractText joins the text parts of a message, skipping images and other part types
func ExtractText(parts []openai.MessageContent) string {
	var texts []string
	for _, part := range parts {
		if part.Type != "text" || part.Text == nil {
			continue
		}
		texts = append(texts, part.Text.Value)
	}
	return strings.TrimSpace(strings.Join(texts, "\n"))
}

func runStatus(status openai.RunStatus) Status {
	switch status {
	case openai.RunStatusCompleted:
		return StatusCompleted
	case openai.RunStatusFailed, "incomplete":
		return StatusFailed
	case openai.RunStatusCancelled:
		return StatusCancelled
	case openai.RunStatusExpired:
		return StatusExpired
	default:
		// queued, in_progress, requires_action, cancelling
		return StatusRunning
	}
}
