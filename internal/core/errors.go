package core

import "errors"

// Error codes for domain errors.
const (
	ErrCodeBadRequest     = "bad_request"
	ErrCodeForbidden      = "forbidden"
	ErrCodeAlreadyJoined  = "already_joined"
	ErrCodeInvalidMessage = "invalid_message"
)

var (
	// ErrHubNotReady is returned when publishing before Run has started.
	ErrHubNotReady = errors.New("hub not ready")
	// ErrHubStopped is returned when publishing after Run has returned.
	ErrHubStopped = errors.New("hub stopped")
)

// CoreError wraps a code and human-readable message.
type CoreError struct {
	Code    string
	Message string
}

func (e *CoreError) Error() string {
	return e.Message
}

func coreError(code, msg string) *CoreError {
	return &CoreError{Code: code, Message: msg}
}
