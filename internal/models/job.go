package models

import (
	"time"

	"github.com/google/uuid"
)

type NotificationEvent string

const (
	EventSessionStarted      NotificationEvent = "session_started"
	EventSessionEnded        NotificationEvent = "session_ended"
	EventPhoneRestrictionOn  NotificationEvent = "phone_restriction_on"
	EventPhoneRestrictionOff NotificationEvent = "phone_restriction_off"
	EventExceptionRequested  NotificationEvent = "exception_requested"
	EventExceptionProcessed  NotificationEvent = "exception_processed"
)

// NotificationJob is what the engine enqueues; the worker pool expands it
// into per-recipient notifications.
type NotificationJob struct {
	ID          uuid.UUID         `json:"id"`
	Event       NotificationEvent `json:"event"`
	SessionID   uuid.UUID         `json:"session_id"`
	GroupID     uuid.UUID         `json:"group_id"`
	SessionName string            `json:"session_name"`
	UserID      *uuid.UUID        `json:"user_id,omitempty"` // requester for exception events
	Decision    ExceptionStatus   `json:"decision,omitempty"`
	Note        string            `json:"note,omitempty"`
	RetryCount  int               `json:"retry_count"`
	CreatedAt   time.Time         `json:"created_at"`
}

type Notification struct {
	RecipientID uuid.UUID         `json:"recipient_id"`
	Event       NotificationEvent `json:"event"`
	SessionID   uuid.UUID         `json:"session_id"`
	GroupID     uuid.UUID         `json:"group_id"`
	Title       string            `json:"title"`
	Message     string            `json:"message"`
	SentAt      time.Time         `json:"sent_at"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
