package validation

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	// MaxContentLength is the longest message a user may send, in characters
	MaxContentLength = 4000
	// MaxTitleLength is the longest explicit conversation title, in characters
	MaxTitleLength = 200
)

// ConversationRequestValidator validates conversation-related requests
type ConversationRequestValidator struct{}

// NewConversationRequestValidator creates a new ConversationRequestValidator
func NewConversationRequestValidator() *ConversationRequestValidator {
	return &ConversationRequestValidator{}
}

// ValidateContent validates a message sent to an assistant
func (v *ConversationRequestValidator) ValidateContent(content string) error {
	if strings.TrimSpace(content) == "" {
		return errors.New("message content cannot be empty")
	}

	if n := utf8.RuneCountInString(content); n > MaxContentLength {
		return fmt.Errorf("message content must be at most %d characters long, got %d", MaxContentLength, n)
	}

	return nil
}

// ValidateTitle validates an optional conversation title
func (v *ConversationRequestValidator) ValidateTitle(title *string) error {
	if title == nil {
		return nil
	}

	if n := utf8.RuneCountInString(*title); n > MaxTitleLength {
		return fmt.Errorf("title must be at most %d characters long, got %d", MaxTitleLength, n)
	}

	return nil
}

// ValidateAssistantID validates the assistant a conversation is opened with
func (v *ConversationRequestValidator) ValidateAssistantID(assistantID string) error {
	if strings.TrimSpace(assistantID) == "" {
		return errors.New("assistant id cannot be empty")
	}
	return nil
}

// ValidateCreateRequest validates a create conversation request
func (v *ConversationRequestValidator) ValidateCreateRequest(assistantID string, title *string) error {
	if err := v.ValidateAssistantID(assistantID); err != nil {
		return err
	}
	return v.ValidateTitle(title)
}
