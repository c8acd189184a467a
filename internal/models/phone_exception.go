package models

import (
	"time"

	"github.com/google/uuid"
)

type ExceptionStatus string

const (
	ExceptionPending  ExceptionStatus = "PENDING"
	ExceptionApproved ExceptionStatus = "APPROVED"
	ExceptionRejected ExceptionStatus = "REJECTED"
	ExceptionExpired  ExceptionStatus = "EXPIRED"
)

// PhoneRestrictionException is a request to lift phone restriction for one
// user during part or all of a study session.
type PhoneRestrictionException struct {
	ID                 uuid.UUID       `json:"id"`
	UserID             uuid.UUID       `json:"user_id"`
	SessionID          uuid.UUID       `json:"session_id"`
	ApproverID         *uuid.UUID      `json:"approver_id,omitempty"`
	Status             ExceptionStatus `json:"status"`
	Reason             string          `json:"reason"`
	ExceptionStartTime *time.Time      `json:"exception_start_time,omitempty"`
	ExceptionEndTime   *time.Time      `json:"exception_end_time,omitempty"`
	ApprovedAt         *time.Time      `json:"approved_at,omitempty"`
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
}

type CreateExceptionRequest struct {
	SessionID          uuid.UUID  `json:"session_id" validate:"required"`
	Reason             string     `json:"reason" validate:"required,max=1000"`
	ExceptionStartTime *time.Time `json:"exception_start_time,omitempty"`
	ExceptionEndTime   *time.Time `json:"exception_end_time,omitempty"`
}

type UpdateExceptionRequest struct {
	Reason             string     `json:"reason" validate:"required,max=1000"`
	ExceptionStartTime *time.Time `json:"exception_start_time,omitempty"`
	ExceptionEndTime   *time.Time `json:"exception_end_time,omitempty"`
}

type ExceptionDecisionRequest struct {
	Status ExceptionStatus `json:"status" validate:"required,oneof=APPROVED REJECTED"`
	Note   string          `json:"note" validate:"max=1000"`
}
