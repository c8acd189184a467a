package services

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanfIare/dmt-app/internal/models"
)

func TestEvaluateRestriction(t *testing.T) {
	session := &models.StudySession{StartTime: at(0), EndTime: at(60), Status: models.SessionInProgress}
	approved := &models.PhoneRestrictionException{Status: models.ExceptionApproved}
	pending := &models.PhoneRestrictionException{Status: models.ExceptionPending}
	rejected := &models.PhoneRestrictionException{Status: models.ExceptionRejected}
	expired := &models.PhoneRestrictionException{Status: models.ExceptionExpired}

	scheduled := *session
	scheduled.Status = models.SessionScheduled

	tests := []struct {
		name       string
		session    *models.StudySession
		exc        *models.PhoneRestrictionException
		minute     int
		restricted bool
		reason     string
	}{
		{"not started", &scheduled, nil, 10, false, reasonNotInProgress},
		{"before window", session, nil, -1, false, reasonOutsideWindow},
		{"after window", session, nil, 61, false, reasonOutsideWindow},
		{"window start inclusive", session, nil, 0, true, reasonRestricted},
		{"window end inclusive", session, nil, 60, true, reasonRestricted},
		{"approved", session, approved, 30, false, reasonExcepted},
		{"pending", session, pending, 30, true, reasonRestricted},
		{"rejected", session, rejected, 30, true, reasonRestricted},
		{"expired", session, expired, 30, true, reasonRestricted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			restricted, reason := evaluateRestriction(tt.session, tt.exc, at(tt.minute))
			assert.Equal(t, tt.restricted, restricted)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

// TestRestrictionTimeline walks one session from creation to an approved
// exception: the promotion tick, the absence tick, then restriction checks
// inside and after the exception window.
func TestRestrictionTimeline(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	s, err := e.sessions.Create(ctx, e.leaderID, models.CreateSessionRequest{
		GroupID:   e.groupID,
		Name:      "Exam prep",
		StartTime: at(0),
		EndTime:   at(60),
	})
	require.NoError(t, err)

	restricted, err := e.restrict.IsRestricted(ctx, e.memberID, s.ID)
	require.NoError(t, err)
	assert.False(t, restricted, "scheduled session must not restrict")

	// T+1: promotion sweep.
	e.clock.Set(at(1))
	res, err := e.sessions.StartDueSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Applied)
	assert.Contains(t, e.notifier.events(), models.EventSessionStarted)

	restricted, err = e.restrict.IsRestricted(ctx, e.memberID, s.ID)
	require.NoError(t, err)
	assert.True(t, restricted)

	// T+2: attendance sweep marks everyone without a record ABSENT.
	e.clock.Set(at(2))
	_, err = e.attendance.ReconcileCurrentSessions(ctx)
	require.NoError(t, err)
	rec, err := e.store.Attendance().GetByUserAndSession(ctx, e.memberID, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceAbsent, rec.Status)

	// Exception for [T+5, T+30], approved by the leader.
	exc, err := e.exceptions.Create(ctx, e.memberID, models.CreateExceptionRequest{
		SessionID:          s.ID,
		Reason:             "on call",
		ExceptionStartTime: timePtr(at(5)),
		ExceptionEndTime:   timePtr(at(30)),
	})
	require.NoError(t, err)

	restricted, err = e.restrict.IsRestricted(ctx, e.memberID, s.ID)
	require.NoError(t, err)
	assert.True(t, restricted, "pending exception must not lift the restriction")

	_, err = e.exceptions.Decide(ctx, e.leaderID, exc.ID, models.ExceptionDecisionRequest{Status: models.ExceptionApproved})
	require.NoError(t, err)

	e.clock.Set(at(10))
	restricted, err = e.restrict.IsRestricted(ctx, e.memberID, s.ID)
	require.NoError(t, err)
	assert.False(t, restricted)

	// The approval covers the whole session until it expires.
	e.clock.Set(at(45))
	restricted, err = e.restrict.IsRestricted(ctx, e.memberID, s.ID)
	require.NoError(t, err)
	assert.False(t, restricted)

	// The leader has no exception and stays restricted.
	restricted, err = e.restrict.IsRestricted(ctx, e.leaderID, s.ID)
	require.NoError(t, err)
	assert.True(t, restricted)
}

func TestRestrictionService_IsCurrentlyRestricted(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)

	restricted, err := e.restrict.IsCurrentlyRestricted(ctx, e.memberID)
	require.NoError(t, err)
	assert.False(t, restricted)

	// A session of some other group does not apply.
	foreign := e.store.putSession(models.StudySession{
		GroupID: uuid.New(), Name: "other", StartTime: at(-5), EndTime: at(55), Status: models.SessionInProgress,
	})
	restricted, err = e.restrict.IsCurrentlyRestricted(ctx, e.memberID)
	require.NoError(t, err)
	assert.False(t, restricted)

	mine := e.seedSession(at(-5), at(55), models.SessionInProgress)
	restricted, err = e.restrict.IsCurrentlyRestricted(ctx, e.memberID)
	require.NoError(t, err)
	assert.True(t, restricted)

	status, err := e.restrict.UserStatus(ctx, e.memberID)
	require.NoError(t, err)
	assert.True(t, status.Restricted)
	require.Len(t, status.CurrentSessions, 1)
	assert.Equal(t, mine.ID, status.CurrentSessions[0].ID)
	assert.NotEqual(t, foreign.ID, status.CurrentSessions[0].ID)

	// Past the end of the window the session is no longer current.
	e.clock.Set(at(56))
	restricted, err = e.restrict.IsCurrentlyRestricted(ctx, e.memberID)
	require.NoError(t, err)
	assert.False(t, restricted)
}

func TestRestrictionService_NonMemberIsNeverRestricted(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	e.seedSession(at(-5), at(55), models.SessionInProgress)

	status, err := e.restrict.UserStatus(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, status.Restricted)
	assert.Empty(t, status.CurrentSessions)
}

func TestRestrictionService_SessionSummary(t *testing.T) {
	ctx := context.Background()
	e := newEngine(t)
	s := e.seedSession(at(-5), at(55), models.SessionInProgress)

	second := uuid.New()
	third := uuid.New()
	e.store.addMember(e.groupID, second, models.RoleMember, true)
	e.store.addMember(e.groupID, third, models.RoleMember, true)

	for _, user := range []uuid.UUID{e.memberID, second, third} {
		_, err := e.exceptions.Create(ctx, user, models.CreateExceptionRequest{SessionID: s.ID, Reason: "r"})
		require.NoError(t, err)
	}
	excs, err := e.exceptions.ListBySession(ctx, s.ID)
	require.NoError(t, err)
	for _, exc := range excs {
		switch exc.UserID {
		case second:
			_, err = e.exceptions.Decide(ctx, e.leaderID, exc.ID, models.ExceptionDecisionRequest{Status: models.ExceptionApproved})
		case third:
			_, err = e.exceptions.Decide(ctx, e.leaderID, exc.ID, models.ExceptionDecisionRequest{Status: models.ExceptionRejected})
		}
		require.NoError(t, err)
	}

	summary, err := e.restrict.SessionSummary(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, summary.TotalExceptions)
	assert.Equal(t, 1, summary.PendingExceptions)
	assert.Equal(t, 1, summary.ApprovedExceptions)
	assert.Equal(t, 1, summary.RejectedExceptions)
	assert.True(t, summary.SessionActive)

	status, err := e.restrict.SessionStatus(ctx, s.ID)
	require.NoError(t, err)
	assert.True(t, status.Restricted)
	assert.Equal(t, reasonRestricted, status.Reason)
}
