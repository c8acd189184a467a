package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

type AttendanceService struct {
	attendance repository.AttendanceStore
	sessions   repository.SessionStore
	members    repository.MemberDirectory
	clock      clock.Clock
}

func NewAttendanceService(
	attendance repository.AttendanceStore,
	sessions repository.SessionStore,
	members repository.MemberDirectory,
	clk clock.Clock,
) *AttendanceService {
	return &AttendanceService{attendance: attendance, sessions: sessions, members: members, clock: clk}
}

// stampAttendance fills arrival/departure defaults for the record's status
// and derives the minute offsets from the session window.
func stampAttendance(a *models.Attendance, s *models.StudySession, now time.Time) {
	switch a.Status {
	case models.AttendancePresent, models.AttendanceLate:
		if a.ArrivalTime == nil {
			t := now
			a.ArrivalTime = &t
		}
		a.LateMinutes = nil
		if a.ArrivalTime.After(s.StartTime) {
			a.LateMinutes = intPtr(models.WholeMinutes(s.StartTime, *a.ArrivalTime))
		}
	case models.AttendanceEarlyLeave:
		if a.DepartureTime == nil {
			t := now
			a.DepartureTime = &t
		}
		a.EarlyLeaveMinutes = nil
		if a.DepartureTime.Before(s.EndTime) {
			a.EarlyLeaveMinutes = intPtr(models.WholeMinutes(*a.DepartureTime, s.EndTime))
		}
	}
}

func (s *AttendanceService) Create(ctx context.Context, actorID uuid.UUID, req models.CreateAttendanceRequest) (*models.Attendance, error) {
	if !req.Status.Valid() {
		return nil, newError(KindValidationFailed, "unknown attendance status %q", req.Status)
	}
	session, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, notFound(err, "study session %s not found", req.SessionID)
	}

	userID := actorID
	if req.UserID != nil && *req.UserID != uuid.Nil {
		userID = *req.UserID
	}
	if userID != actorID {
		if err := requireLeader(ctx, s.members, session.GroupID, actorID); err != nil {
			return nil, err
		}
	}

	now := s.clock.Now()
	a := &models.Attendance{
		ID:        uuid.New(),
		UserID:    userID,
		SessionID: session.ID,
		Status:    req.Status,
		Note:      req.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	stampAttendance(a, session, now)

	if err := s.attendance.Create(ctx, a); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(KindDuplicateAttendance, "attendance already recorded for this session")
		}
		return nil, err
	}
	return a, nil
}

func (s *AttendanceService) Get(ctx context.Context, id uuid.UUID) (*models.Attendance, error) {
	a, err := s.attendance.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "attendance %s not found", id)
	}
	return a, nil
}

func (s *AttendanceService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Attendance, error) {
	return s.attendance.ListByUser(ctx, userID)
}

func (s *AttendanceService) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Attendance, error) {
	return s.attendance.ListBySession(ctx, sessionID)
}

func (s *AttendanceService) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Attendance, error) {
	return s.attendance.ListByGroup(ctx, groupID)
}

// authorize allows the record owner or the leader of the session's group.
func (s *AttendanceService) authorize(ctx context.Context, actorID uuid.UUID, a *models.Attendance) (*models.StudySession, error) {
	session, err := s.sessions.GetByID(ctx, a.SessionID)
	if err != nil {
		return nil, notFound(err, "study session %s not found", a.SessionID)
	}
	if a.UserID == actorID {
		return session, nil
	}
	leader, err := isLeader(ctx, s.members, session.GroupID, actorID)
	if err != nil {
		return nil, err
	}
	if !leader {
		return nil, newError(KindForbidden, "only the attendee or the group leader can change this record")
	}
	return session, nil
}

func (s *AttendanceService) Update(ctx context.Context, actorID, id uuid.UUID, req models.UpdateAttendanceRequest) (*models.Attendance, error) {
	if !req.Status.Valid() {
		return nil, newError(KindValidationFailed, "unknown attendance status %q", req.Status)
	}
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	session, err := s.authorize(ctx, actorID, a)
	if err != nil {
		return nil, err
	}

	changed := a.Status != req.Status
	a.Status = req.Status
	if req.ArrivalTime != nil {
		t := req.ArrivalTime.UTC()
		a.ArrivalTime = &t
	} else if changed {
		a.ArrivalTime = nil
	}
	if req.DepartureTime != nil {
		t := req.DepartureTime.UTC()
		a.DepartureTime = &t
	} else if changed {
		a.DepartureTime = nil
	}
	if changed {
		a.LateMinutes = nil
		a.EarlyLeaveMinutes = nil
	}
	if req.Note != nil {
		a.Note = req.Note
	}

	now := s.clock.Now()
	stampAttendance(a, session, now)
	a.UpdatedAt = now

	if err := s.attendance.Update(ctx, a); err != nil {
		return nil, notFound(err, "attendance %s not found", id)
	}
	return a, nil
}

func (s *AttendanceService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	a, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if _, err := s.authorize(ctx, actorID, a); err != nil {
		return err
	}
	if err := s.attendance.Delete(ctx, id); err != nil {
		return notFound(err, "attendance %s not found", id)
	}
	return nil
}

// attendanceRate is (PRESENT + LATE) / total as a percentage with two decimals.
func attendanceRate(attended, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(attended)/float64(total)*100*100) / 100
}

func (s *AttendanceService) Summary(ctx context.Context, userID, groupID uuid.UUID) (*models.AttendanceSummary, error) {
	records, err := s.attendance.ListByGroupAndUser(ctx, groupID, userID)
	if err != nil {
		return nil, err
	}

	summary := &models.AttendanceSummary{UserID: userID, GroupID: groupID, TotalSessions: len(records)}
	for _, a := range records {
		switch a.Status {
		case models.AttendancePresent:
			summary.PresentCount++
		case models.AttendanceAbsent:
			summary.AbsentCount++
		case models.AttendanceLate:
			summary.LateCount++
		case models.AttendanceEarlyLeave:
			summary.EarlyLeaveCount++
		case models.AttendanceExcused:
			summary.ExcusedCount++
		}
	}
	summary.AttendanceRate = attendanceRate(summary.PresentCount+summary.LateCount, summary.TotalSessions)
	return summary, nil
}

// ReconcileCurrentSessions records ABSENT for every active member of a
// current session who has no attendance record yet. Members with any record
// are left alone, so repeated ticks create nothing new.
func (s *AttendanceService) ReconcileCurrentSessions(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	current, err := s.sessions.ListCurrent(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, session := range current {
		members, err := s.members.ActiveMembers(ctx, session.GroupID)
		if err != nil {
			res.Failed++
			log.Printf("attendance sweep: failed to list members of group %s: %v", session.GroupID, err)
			continue
		}

		for _, m := range members {
			res.Examined++
			created, err := s.attendance.CreateIfAbsent(ctx, &models.Attendance{
				ID:        uuid.New(),
				UserID:    m.UserID,
				SessionID: session.ID,
				Status:    models.AttendanceAbsent,
				CreatedAt: now,
				UpdatedAt: now,
			})
			if err != nil {
				res.Failed++
				log.Printf("attendance sweep: failed to reconcile user %s in session %s: %v", m.UserID, session.ID, err)
				continue
			}
			if created {
				res.Applied++
			}
		}
	}
	return res, nil
}
