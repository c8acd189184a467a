package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/models"
)

var (
	ErrNotFound = errors.New("record not found")
	// ErrStatusMismatch is returned by conditional updates when the row no
	// longer carries the expected status.
	ErrStatusMismatch = errors.New("status no longer matches expected value")
	ErrDuplicate      = errors.New("record already exists")
)

type SessionStore interface {
	Create(ctx context.Context, s *models.StudySession) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.StudySession, error)
	ListUpcomingByGroup(ctx context.Context, groupID uuid.UUID, now time.Time) ([]*models.StudySession, error)
	ListByStatus(ctx context.Context, status models.SessionStatus) ([]*models.StudySession, error)
	// ListDueToStart returns SCHEDULED sessions with start_time <= now.
	ListDueToStart(ctx context.Context, now time.Time) ([]*models.StudySession, error)
	// ListCurrent returns IN_PROGRESS sessions whose window contains now.
	ListCurrent(ctx context.Context, now time.Time) ([]*models.StudySession, error)
	ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.StudySession, error)
	// UpdateDetails rewrites name and times only while the session is SCHEDULED.
	UpdateDetails(ctx context.Context, s *models.StudySession) error
	TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus, at time.Time) error
	DeleteScheduled(ctx context.Context, id uuid.UUID) error
}

type ExceptionStore interface {
	// Create fails with ErrDuplicate when (user, session) already has a record.
	Create(ctx context.Context, e *models.PhoneRestrictionException) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.PhoneRestrictionException, error)
	GetByUserAndSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.PhoneRestrictionException, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PhoneRestrictionException, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.PhoneRestrictionException, error)
	ListByStatus(ctx context.Context, status models.ExceptionStatus) ([]*models.PhoneRestrictionException, error)
	ListPendingByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.PhoneRestrictionException, error)
	// ListActive returns APPROVED records whose window contains now.
	ListActive(ctx context.Context, now time.Time) ([]*models.PhoneRestrictionException, error)
	// ListExpired returns APPROVED records whose exception_end_time < now.
	ListExpired(ctx context.Context, now time.Time) ([]*models.PhoneRestrictionException, error)
	UpdateRequest(ctx context.Context, e *models.PhoneRestrictionException) error
	Decide(ctx context.Context, id uuid.UUID, status models.ExceptionStatus, approverID uuid.UUID, at time.Time) error
	Expire(ctx context.Context, id uuid.UUID, at time.Time) error
	DeletePending(ctx context.Context, id uuid.UUID) error
}

type AttendanceStore interface {
	Create(ctx context.Context, a *models.Attendance) error
	// CreateIfAbsent inserts a unless (user, session) already has a record.
	CreateIfAbsent(ctx context.Context, a *models.Attendance) (bool, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Attendance, error)
	GetByUserAndSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.Attendance, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Attendance, error)
	ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Attendance, error)
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Attendance, error)
	ListByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) ([]*models.Attendance, error)
	Update(ctx context.Context, a *models.Attendance) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// MemberDirectory is the read-only view of group membership.
type MemberDirectory interface {
	ActiveMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error)
	LeaderOf(ctx context.Context, groupID uuid.UUID) (uuid.UUID, bool, error)
	Membership(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error)
	// GroupsOf returns the groups in which userID is an active member.
	GroupsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
}
