package services

import (
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/models"
)

var baseTime = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type engine struct {
	store      *memStore
	clock      *clock.Fake
	notifier   *recordingNotifier
	sessions   *SessionService
	exceptions *ExceptionService
	attendance *AttendanceService
	restrict   *RestrictionService

	groupID  uuid.UUID
	leaderID uuid.UUID
	memberID uuid.UUID
}

func newEngine(t *testing.T) *engine {
	t.Helper()

	store := newMemStore()
	clk := clock.NewFake(baseTime)
	notifier := &recordingNotifier{}

	e := &engine{
		store:    store,
		clock:    clk,
		notifier: notifier,
		groupID:  uuid.New(),
		leaderID: uuid.New(),
		memberID: uuid.New(),
	}
	store.addMember(e.groupID, e.leaderID, models.RoleLeader, true)
	store.addMember(e.groupID, e.memberID, models.RoleMember, true)

	e.sessions = NewSessionService(store.Sessions(), store.Members(), notifier, clk)
	e.exceptions = NewExceptionService(store.Exceptions(), store.Sessions(), store.Members(), notifier, clk)
	e.attendance = NewAttendanceService(store.Attendance(), store.Sessions(), store.Members(), clk)
	e.restrict = NewRestrictionService(store.Sessions(), store.Exceptions(), store.Members(), clk)
	return e
}

// seedSession stores a session in the given state without going through
// validation, so tests can place it anywhere on the timeline.
func (e *engine) seedSession(start, end time.Time, status models.SessionStatus) *models.StudySession {
	return e.store.putSession(models.StudySession{
		GroupID:         e.groupID,
		Name:            "Deep work",
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: models.WholeMinutes(start, end),
		Status:          status,
		CreatedAt:       baseTime,
		UpdatedAt:       baseTime,
	})
}

func at(minutes int) time.Time {
	return baseTime.Add(time.Duration(minutes) * time.Minute)
}

func timePtr(t time.Time) *time.Time { return &t }
