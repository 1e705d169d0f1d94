package conversation

import "errors"

// Kind is a stable error category callers can branch on
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindAdmissionDenied   Kind = "admission_denied"
	KindValidation        Kind = "validation"
	KindArchived          Kind = "archived"
	KindExternal          Kind = "external"
	KindExternalTimeout   Kind = "external_timeout"
	KindMalformedResponse Kind = "malformed_response"
	KindPersistence       Kind = "persistence"
	KindInternal          Kind = "internal"
)

const (
	msgConversationNotFound = "conversation not found"
	msgAssistantNotFound    = "assistant not found"
	msgArchived             = "cannot message an archived conversation"
	msgExternal             = "communication error with the assistant, please retry"
	msgMalformed            = "malformed assistant response"
	msgPersistence          = "the reply could not be saved, please retry"
	msgInternal             = "the request could not be processed"
)

// Error is the only error type returned by ConversationService
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the kind of err, or KindInternal for foreign errors
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
