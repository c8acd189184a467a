package models

import (
	"time"

	"github.com/google/uuid"
)

type SessionStatus string

const (
	SessionScheduled  SessionStatus = "SCHEDULED"
	SessionInProgress SessionStatus = "IN_PROGRESS"
	SessionCompleted  SessionStatus = "COMPLETED"
	SessionCancelled  SessionStatus = "CANCELLED"
)

func (s SessionStatus) Valid() bool {
	switch s {
	case SessionScheduled, SessionInProgress, SessionCompleted, SessionCancelled:
		return true
	}
	return false
}

// Terminal reports whether no further transition can leave s.
func (s SessionStatus) Terminal() bool {
	return s == SessionCompleted || s == SessionCancelled
}

type StudySession struct {
	ID              uuid.UUID     `json:"id"`
	GroupID         uuid.UUID     `json:"group_id"`
	Name            string        `json:"name"`
	StartTime       time.Time     `json:"start_time"`
	EndTime         time.Time     `json:"end_time"`
	DurationMinutes int           `json:"duration_minutes"`
	Status          SessionStatus `json:"status"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

// Contains reports whether t lies within [StartTime, EndTime].
func (s *StudySession) Contains(t time.Time) bool {
	return !t.Before(s.StartTime) && !t.After(s.EndTime)
}

// WholeMinutes truncates the span between two instants to whole minutes.
func WholeMinutes(from, to time.Time) int {
	return int(to.Sub(from) / time.Minute)
}

type CreateSessionRequest struct {
	GroupID   uuid.UUID `json:"group_id" validate:"required"`
	Name      string    `json:"name" validate:"required,max=200"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

type UpdateSessionRequest struct {
	Name      string    `json:"name" validate:"required,max=200"`
	StartTime time.Time `json:"start_time" validate:"required"`
	EndTime   time.Time `json:"end_time" validate:"required"`
}

type SessionStatusRequest struct {
	Status SessionStatus `json:"status" validate:"required,oneof=SCHEDULED IN_PROGRESS COMPLETED CANCELLED"`
}

type PhoneRestrictionStatus struct {
	SessionID  uuid.UUID `json:"session_id"`
	Restricted bool      `json:"restricted"`
	Reason     string    `json:"reason"`
	CheckedAt  time.Time `json:"checked_at"`
}

type SessionRestrictionSummary struct {
	SessionID          uuid.UUID `json:"session_id"`
	SessionName        string    `json:"session_name"`
	TotalExceptions    int       `json:"total_exceptions"`
	PendingExceptions  int       `json:"pending_exceptions"`
	ApprovedExceptions int       `json:"approved_exceptions"`
	RejectedExceptions int       `json:"rejected_exceptions"`
	SessionActive      bool      `json:"session_active"`
	SummaryAt          time.Time `json:"summary_at"`
}

type UserRealtimeStatus struct {
	UserID          uuid.UUID       `json:"user_id"`
	Restricted      bool            `json:"restricted"`
	CurrentSessions []*StudySession `json:"current_sessions"`
	Timestamp       time.Time       `json:"timestamp"`
}
