package api

import (
	"encoding/json"
	"errors"
	"fmt"
)

// FetchFailedMessage is the user-facing text for any non-success HTTP status.
const FetchFailedMessage = "Failed to fetch results"

// APIError represents a non-success HTTP response from the backend.
// Status codes are not distinguished by callers.
type APIError struct {
	StatusCode int
	Body       string
	Message    string
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Body
	}
	if msg == "" {
		return fmt.Sprintf("backend returned HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("backend returned HTTP %d: %s", e.StatusCode, msg)
}

// parseAPIError captures the message from a JSON error body when there is one.
func parseAPIError(code int, b []byte) *APIError {
	apiErr := &APIError{StatusCode: code, Body: string(b)}
	var msg struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if json.Unmarshal(b, &msg) == nil {
		if msg.Message != "" {
			apiErr.Message = msg.Message
		} else if msg.Error != "" {
			apiErr.Message = msg.Error
		}
	}
	return apiErr
}

// UserMessage collapses a fetch error into the single message shown to users:
// HTTP status failures read "Failed to fetch results", anything else shows the
// underlying error text.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return FetchFailedMessage
	}
	return err.Error()
}
