package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

var base = time.Date(2026, 4, 6, 14, 0, 0, 0, time.UTC)

func openTempStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "study.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func newSession(groupID uuid.UUID, start time.Time, status models.SessionStatus) *models.StudySession {
	return &models.StudySession{
		GroupID:         groupID,
		Name:            "algebra review",
		StartTime:       start,
		EndTime:         start.Add(time.Hour),
		DurationMinutes: 60,
		Status:          status,
		CreatedAt:       base,
		UpdatedAt:       base,
	}
}

func TestOpenRequiresPath(t *testing.T) {
	_, err := Open("  ")
	require.Error(t, err)
}

func TestSessionRoundTripAndQueries(t *testing.T) {
	ctx := context.Background()
	sessions := openTempStore(t).Sessions()
	group := uuid.New()

	due := newSession(group, base.Add(-time.Minute), models.SessionScheduled)
	later := newSession(group, base.Add(time.Hour), models.SessionScheduled)
	running := newSession(group, base.Add(-10*time.Minute), models.SessionInProgress)
	for _, s := range []*models.StudySession{due, later, running} {
		require.NoError(t, sessions.Create(ctx, s))
	}

	got, err := sessions.GetByID(ctx, due.ID)
	require.NoError(t, err)
	assert.Equal(t, due.Name, got.Name)
	assert.True(t, got.StartTime.Equal(due.StartTime))
	assert.Equal(t, models.SessionScheduled, got.Status)

	dueList, err := sessions.ListDueToStart(ctx, base)
	require.NoError(t, err)
	require.Len(t, dueList, 1)
	assert.Equal(t, due.ID, dueList[0].ID)

	current, err := sessions.ListCurrent(ctx, base)
	require.NoError(t, err)
	require.Len(t, current, 1)
	assert.Equal(t, running.ID, current[0].ID)

	upcoming, err := sessions.ListUpcomingByGroup(ctx, group, base)
	require.NoError(t, err)
	require.Len(t, upcoming, 1)
	assert.Equal(t, later.ID, upcoming[0].ID)

	_, err = sessions.GetByID(ctx, uuid.New())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestSessionTransitionIsConditional(t *testing.T) {
	ctx := context.Background()
	sessions := openTempStore(t).Sessions()
	s := newSession(uuid.New(), base, models.SessionScheduled)
	require.NoError(t, sessions.Create(ctx, s))

	require.NoError(t, sessions.TransitionStatus(ctx, s.ID, models.SessionScheduled, models.SessionInProgress, base))

	err := sessions.TransitionStatus(ctx, s.ID, models.SessionScheduled, models.SessionInProgress, base)
	assert.ErrorIs(t, err, repository.ErrStatusMismatch)

	err = sessions.TransitionStatus(ctx, uuid.New(), models.SessionScheduled, models.SessionInProgress, base)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	err = sessions.DeleteScheduled(ctx, s.ID)
	assert.ErrorIs(t, err, repository.ErrStatusMismatch)
}

func TestExceptionUniquePerUserAndSession(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	s := newSession(uuid.New(), base, models.SessionScheduled)
	require.NoError(t, store.Sessions().Create(ctx, s))

	user := uuid.New()
	first := &models.PhoneRestrictionException{
		UserID: user, SessionID: s.ID, Status: models.ExceptionPending, Reason: "call home",
		CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, store.Exceptions().Create(ctx, first))

	second := &models.PhoneRestrictionException{
		UserID: user, SessionID: s.ID, Status: models.ExceptionPending, Reason: "again",
		CreatedAt: base, UpdatedAt: base,
	}
	assert.ErrorIs(t, store.Exceptions().Create(ctx, second), repository.ErrDuplicate)
}

func TestExceptionDecideAndExpire(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	exceptions := store.Exceptions()
	s := newSession(uuid.New(), base, models.SessionInProgress)
	require.NoError(t, store.Sessions().Create(ctx, s))

	start, end := base.Add(5*time.Minute), base.Add(30*time.Minute)
	approved := &models.PhoneRestrictionException{
		UserID: uuid.New(), SessionID: s.ID, Status: models.ExceptionPending, Reason: "doctor",
		ExceptionStartTime: &start, ExceptionEndTime: &end, CreatedAt: base, UpdatedAt: base,
	}
	pending := &models.PhoneRestrictionException{
		UserID: uuid.New(), SessionID: s.ID, Status: models.ExceptionPending, Reason: "pickup",
		ExceptionStartTime: &start, ExceptionEndTime: &end, CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, exceptions.Create(ctx, approved))
	require.NoError(t, exceptions.Create(ctx, pending))

	leader := uuid.New()
	require.NoError(t, exceptions.Decide(ctx, approved.ID, models.ExceptionApproved, leader, base))
	assert.ErrorIs(t, exceptions.Decide(ctx, approved.ID, models.ExceptionRejected, leader, base), repository.ErrStatusMismatch)

	got, err := exceptions.GetByID(ctx, approved.ID)
	require.NoError(t, err)
	require.NotNil(t, got.ApproverID)
	assert.Equal(t, leader, *got.ApproverID)
	require.NotNil(t, got.ApprovedAt)

	active, err := exceptions.ListActive(ctx, base.Add(10*time.Minute))
	require.NoError(t, err)
	require.Len(t, active, 1)

	expired, err := exceptions.ListExpired(ctx, base.Add(31*time.Minute))
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, approved.ID, expired[0].ID)

	require.NoError(t, exceptions.Expire(ctx, approved.ID, base.Add(31*time.Minute)))
	assert.ErrorIs(t, exceptions.Expire(ctx, pending.ID, base.Add(31*time.Minute)), repository.ErrStatusMismatch)

	pendingList, err := exceptions.ListPendingByGroup(ctx, s.GroupID)
	require.NoError(t, err)
	require.Len(t, pendingList, 1)
	assert.Equal(t, pending.ID, pendingList[0].ID)
}

func TestAttendanceCreateIfAbsent(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	s := newSession(uuid.New(), base, models.SessionInProgress)
	require.NoError(t, store.Sessions().Create(ctx, s))

	user := uuid.New()
	late := 4
	present := &models.Attendance{
		UserID: user, SessionID: s.ID, Status: models.AttendanceLate, LateMinutes: &late,
		CreatedAt: base, UpdatedAt: base,
	}
	require.NoError(t, store.Attendance().Create(ctx, present))

	created, err := store.Attendance().CreateIfAbsent(ctx, &models.Attendance{
		UserID: user, SessionID: s.ID, Status: models.AttendanceAbsent, CreatedAt: base, UpdatedAt: base,
	})
	require.NoError(t, err)
	assert.False(t, created)

	got, err := store.Attendance().GetByUserAndSession(ctx, user, s.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceLate, got.Status)
	require.NotNil(t, got.LateMinutes)
	assert.Equal(t, 4, *got.LateMinutes)

	byGroup, err := store.Attendance().ListByGroupAndUser(ctx, s.GroupID, user)
	require.NoError(t, err)
	assert.Len(t, byGroup, 1)
}

func TestMembers(t *testing.T) {
	ctx := context.Background()
	store := openTempStore(t)
	group := uuid.New()
	leader, member, gone := uuid.New(), uuid.New(), uuid.New()

	require.NoError(t, store.UpsertMember(ctx, models.GroupMember{GroupID: group, UserID: leader, Role: models.RoleLeader, IsActive: true}))
	require.NoError(t, store.UpsertMember(ctx, models.GroupMember{GroupID: group, UserID: member, Role: models.RoleMember, IsActive: true}))
	require.NoError(t, store.UpsertMember(ctx, models.GroupMember{GroupID: group, UserID: gone, Role: models.RoleMember, IsActive: false}))

	active, err := store.ActiveMembers(ctx, group)
	require.NoError(t, err)
	assert.Len(t, active, 2)

	got, ok, err := store.LeaderOf(ctx, group)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, leader, got)

	m, err := store.Membership(ctx, group, gone)
	require.NoError(t, err)
	assert.False(t, m.IsActive)

	groups, err := store.GroupsOf(ctx, member)
	require.NoError(t, err)
	assert.Equal(t, []uuid.UUID{group}, groups)

	_, ok, err = store.LeaderOf(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}
