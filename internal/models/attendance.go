package models

import (
	"time"

	"github.com/google/uuid"
)

type AttendanceStatus string

const (
	AttendancePresent    AttendanceStatus = "PRESENT"
	AttendanceAbsent     AttendanceStatus = "ABSENT"
	AttendanceLate       AttendanceStatus = "LATE"
	AttendanceEarlyLeave AttendanceStatus = "EARLY_LEAVE"
	AttendanceExcused    AttendanceStatus = "EXCUSED"
)

func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceEarlyLeave, AttendanceExcused:
		return true
	}
	return false
}

type Attendance struct {
	ID                uuid.UUID        `json:"id"`
	UserID            uuid.UUID        `json:"user_id"`
	SessionID         uuid.UUID        `json:"session_id"`
	Status            AttendanceStatus `json:"status"`
	ArrivalTime       *time.Time       `json:"arrival_time,omitempty"`
	DepartureTime     *time.Time       `json:"departure_time,omitempty"`
	LateMinutes       *int             `json:"late_minutes,omitempty"`
	EarlyLeaveMinutes *int             `json:"early_leave_minutes,omitempty"`
	Note              *string          `json:"note,omitempty"`
	CreatedAt         time.Time        `json:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at"`
}

type CreateAttendanceRequest struct {
	SessionID uuid.UUID        `json:"session_id" validate:"required"`
	UserID    *uuid.UUID       `json:"user_id,omitempty"` // defaults to the caller
	Status    AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EARLY_LEAVE EXCUSED"`
	Note      *string          `json:"note,omitempty" validate:"omitempty,max=1000"`
}

type UpdateAttendanceRequest struct {
	Status        AttendanceStatus `json:"status" validate:"required,oneof=PRESENT ABSENT LATE EARLY_LEAVE EXCUSED"`
	ArrivalTime   *time.Time       `json:"arrival_time,omitempty"`
	DepartureTime *time.Time       `json:"departure_time,omitempty"`
	Note          *string          `json:"note,omitempty" validate:"omitempty,max=1000"`
}

type AttendanceSummary struct {
	UserID          uuid.UUID `json:"user_id"`
	GroupID         uuid.UUID `json:"group_id"`
	TotalSessions   int       `json:"total_sessions"`
	PresentCount    int       `json:"present_count"`
	AbsentCount     int       `json:"absent_count"`
	LateCount       int       `json:"late_count"`
	EarlyLeaveCount int       `json:"early_leave_count"`
	ExcusedCount    int       `json:"excused_count"`
	AttendanceRate  float64   `json:"attendance_rate"`
}
