package services

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

// memStore is an in-memory implementation of every store interface the
// services depend on.
type memStore struct {
	mu          sync.Mutex
	sessions    map[uuid.UUID]models.StudySession
	exceptions  map[uuid.UUID]models.PhoneRestrictionException
	attendance  map[uuid.UUID]models.Attendance
	members     []models.GroupMember
	failCreate  map[uuid.UUID]error // attendance CreateIfAbsent failures by user
	failStartOf map[uuid.UUID]error // session transition failures by id
}

func newMemStore() *memStore {
	return &memStore{
		sessions:    map[uuid.UUID]models.StudySession{},
		exceptions:  map[uuid.UUID]models.PhoneRestrictionException{},
		attendance:  map[uuid.UUID]models.Attendance{},
		failCreate:  map[uuid.UUID]error{},
		failStartOf: map[uuid.UUID]error{},
	}
}

type memSessions struct{ *memStore }
type memExceptions struct{ *memStore }
type memAttendance struct{ *memStore }
type memMembers struct{ *memStore }

func (m *memStore) Sessions() *memSessions     { return &memSessions{m} }
func (m *memStore) Exceptions() *memExceptions { return &memExceptions{m} }
func (m *memStore) Attendance() *memAttendance { return &memAttendance{m} }
func (m *memStore) Members() *memMembers       { return &memMembers{m} }

func (m *memStore) addMember(groupID, userID uuid.UUID, role models.MemberRole, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.members = append(m.members, models.GroupMember{GroupID: groupID, UserID: userID, Role: role, IsActive: active})
}

func (m *memStore) putSession(s models.StudySession) *models.StudySession {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	m.sessions[s.ID] = s
	return &s
}

func (m *memStore) sessionStatus(id uuid.UUID) models.SessionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sessions[id].Status
}

func (m *memStore) attendanceFor(sessionID uuid.UUID) []models.Attendance {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Attendance
	for _, a := range m.attendance {
		if a.SessionID == sessionID {
			out = append(out, a)
		}
	}
	return out
}

// ─── sessions ───

func (s *memSessions) Create(ctx context.Context, sess *models.StudySession) error {
	s.putSession(*sess)
	return nil
}

func (s *memSessions) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &sess, nil
}

func (s *memSessions) filter(keep func(models.StudySession) bool) []*models.StudySession {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.StudySession
	for _, sess := range s.sessions {
		if keep(sess) {
			c := sess
			out = append(out, &c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out
}

func (s *memSessions) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.StudySession, error) {
	return s.filter(func(x models.StudySession) bool { return x.GroupID == groupID }), nil
}

func (s *memSessions) ListUpcomingByGroup(ctx context.Context, groupID uuid.UUID, now time.Time) ([]*models.StudySession, error) {
	return s.filter(func(x models.StudySession) bool { return x.GroupID == groupID && !x.StartTime.Before(now) }), nil
}

func (s *memSessions) ListByStatus(ctx context.Context, status models.SessionStatus) ([]*models.StudySession, error) {
	return s.filter(func(x models.StudySession) bool { return x.Status == status }), nil
}

func (s *memSessions) ListDueToStart(ctx context.Context, now time.Time) ([]*models.StudySession, error) {
	return s.filter(func(x models.StudySession) bool {
		return x.Status == models.SessionScheduled && !x.StartTime.After(now)
	}), nil
}

func (s *memSessions) ListCurrent(ctx context.Context, now time.Time) ([]*models.StudySession, error) {
	return s.filter(func(x models.StudySession) bool {
		return x.Status == models.SessionInProgress && x.Contains(now)
	}), nil
}

func (s *memSessions) ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.StudySession, error) {
	return s.filter(func(x models.StudySession) bool {
		return !x.StartTime.Before(from) && !x.StartTime.After(to)
	}), nil
}

func (s *memSessions) UpdateDetails(ctx context.Context, sess *models.StudySession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[sess.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Status != models.SessionScheduled {
		return repository.ErrStatusMismatch
	}
	cur.Name, cur.StartTime, cur.EndTime = sess.Name, sess.StartTime, sess.EndTime
	cur.DurationMinutes, cur.UpdatedAt = sess.DurationMinutes, sess.UpdatedAt
	s.sessions[sess.ID] = cur
	return nil
}

func (s *memSessions) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failStartOf[id]; err != nil {
		return err
	}
	cur, ok := s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Status != from {
		return repository.ErrStatusMismatch
	}
	cur.Status, cur.UpdatedAt = to, at
	s.sessions[id] = cur
	return nil
}

func (s *memSessions) DeleteScheduled(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.sessions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if cur.Status != models.SessionScheduled {
		return repository.ErrStatusMismatch
	}
	delete(s.sessions, id)
	return nil
}

// ─── exceptions ───

func (e *memExceptions) Create(ctx context.Context, exc *models.PhoneRestrictionException) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, x := range e.exceptions {
		if x.UserID == exc.UserID && x.SessionID == exc.SessionID {
			return repository.ErrDuplicate
		}
	}
	if exc.ID == uuid.Nil {
		exc.ID = uuid.New()
	}
	e.exceptions[exc.ID] = *exc
	return nil
}

func (e *memExceptions) GetByID(ctx context.Context, id uuid.UUID) (*models.PhoneRestrictionException, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.exceptions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &x, nil
}

func (e *memExceptions) GetByUserAndSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.PhoneRestrictionException, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, x := range e.exceptions {
		if x.UserID == userID && x.SessionID == sessionID {
			c := x
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (e *memExceptions) filter(keep func(models.PhoneRestrictionException) bool) []*models.PhoneRestrictionException {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []*models.PhoneRestrictionException
	for _, x := range e.exceptions {
		if keep(x) {
			c := x
			out = append(out, &c)
		}
	}
	return out
}

func (e *memExceptions) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return e.filter(func(x models.PhoneRestrictionException) bool { return x.UserID == userID }), nil
}

func (e *memExceptions) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return e.filter(func(x models.PhoneRestrictionException) bool { return x.SessionID == sessionID }), nil
}

func (e *memExceptions) ListByStatus(ctx context.Context, status models.ExceptionStatus) ([]*models.PhoneRestrictionException, error) {
	return e.filter(func(x models.PhoneRestrictionException) bool { return x.Status == status }), nil
}

func (e *memExceptions) ListPendingByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	e.mu.Lock()
	groupOf := map[uuid.UUID]uuid.UUID{}
	for id, s := range e.sessions {
		groupOf[id] = s.GroupID
	}
	e.mu.Unlock()
	return e.filter(func(x models.PhoneRestrictionException) bool {
		return x.Status == models.ExceptionPending && groupOf[x.SessionID] == groupID
	}), nil
}

func (e *memExceptions) ListActive(ctx context.Context, now time.Time) ([]*models.PhoneRestrictionException, error) {
	return e.filter(func(x models.PhoneRestrictionException) bool {
		return x.Status == models.ExceptionApproved && x.ExceptionStartTime != nil && x.ExceptionEndTime != nil &&
			!x.ExceptionStartTime.After(now) && !x.ExceptionEndTime.Before(now)
	}), nil
}

func (e *memExceptions) ListExpired(ctx context.Context, now time.Time) ([]*models.PhoneRestrictionException, error) {
	return e.filter(func(x models.PhoneRestrictionException) bool {
		return x.Status == models.ExceptionApproved && x.ExceptionEndTime != nil && x.ExceptionEndTime.Before(now)
	}), nil
}

func (e *memExceptions) cas(id uuid.UUID, from models.ExceptionStatus, apply func(*models.PhoneRestrictionException)) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.exceptions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if x.Status != from {
		return repository.ErrStatusMismatch
	}
	apply(&x)
	e.exceptions[id] = x
	return nil
}

func (e *memExceptions) UpdateRequest(ctx context.Context, exc *models.PhoneRestrictionException) error {
	return e.cas(exc.ID, models.ExceptionPending, func(x *models.PhoneRestrictionException) {
		x.Reason, x.ExceptionStartTime, x.ExceptionEndTime, x.UpdatedAt = exc.Reason, exc.ExceptionStartTime, exc.ExceptionEndTime, exc.UpdatedAt
	})
}

func (e *memExceptions) Decide(ctx context.Context, id uuid.UUID, status models.ExceptionStatus, approverID uuid.UUID, at time.Time) error {
	return e.cas(id, models.ExceptionPending, func(x *models.PhoneRestrictionException) {
		x.Status, x.ApproverID, x.ApprovedAt, x.UpdatedAt = status, &approverID, &at, at
	})
}

func (e *memExceptions) Expire(ctx context.Context, id uuid.UUID, at time.Time) error {
	return e.cas(id, models.ExceptionApproved, func(x *models.PhoneRestrictionException) {
		x.Status, x.UpdatedAt = models.ExceptionExpired, at
	})
}

func (e *memExceptions) DeletePending(ctx context.Context, id uuid.UUID) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	x, ok := e.exceptions[id]
	if !ok {
		return repository.ErrNotFound
	}
	if x.Status != models.ExceptionPending {
		return repository.ErrStatusMismatch
	}
	delete(e.exceptions, id)
	return nil
}

// ─── attendance ───

func (a *memAttendance) Create(ctx context.Context, rec *models.Attendance) error {
	created, err := a.CreateIfAbsent(ctx, rec)
	if err != nil {
		return err
	}
	if !created {
		return repository.ErrDuplicate
	}
	return nil
}

func (a *memAttendance) CreateIfAbsent(ctx context.Context, rec *models.Attendance) (bool, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if err := a.failCreate[rec.UserID]; err != nil {
		return false, err
	}
	for _, x := range a.attendance {
		if x.UserID == rec.UserID && x.SessionID == rec.SessionID {
			return false, nil
		}
	}
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	a.attendance[rec.ID] = *rec
	return true, nil
}

func (a *memAttendance) GetByID(ctx context.Context, id uuid.UUID) (*models.Attendance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	x, ok := a.attendance[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &x, nil
}

func (a *memAttendance) GetByUserAndSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.Attendance, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, x := range a.attendance {
		if x.UserID == userID && x.SessionID == sessionID {
			c := x
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (a *memAttendance) filter(keep func(models.Attendance) bool) []*models.Attendance {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []*models.Attendance
	for _, x := range a.attendance {
		if keep(x) {
			c := x
			out = append(out, &c)
		}
	}
	return out
}

func (a *memAttendance) groupOf(sessionID uuid.UUID) uuid.UUID {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions[sessionID].GroupID
}

func (a *memAttendance) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Attendance, error) {
	return a.filter(func(x models.Attendance) bool { return x.UserID == userID }), nil
}

func (a *memAttendance) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Attendance, error) {
	return a.filter(func(x models.Attendance) bool { return x.SessionID == sessionID }), nil
}

func (a *memAttendance) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Attendance, error) {
	all := a.filter(func(models.Attendance) bool { return true })
	var out []*models.Attendance
	for _, x := range all {
		if a.groupOf(x.SessionID) == groupID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (a *memAttendance) ListByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) ([]*models.Attendance, error) {
	byGroup, _ := a.ListByGroup(ctx, groupID)
	var out []*models.Attendance
	for _, x := range byGroup {
		if x.UserID == userID {
			out = append(out, x)
		}
	}
	return out, nil
}

func (a *memAttendance) Update(ctx context.Context, rec *models.Attendance) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.attendance[rec.ID]; !ok {
		return repository.ErrNotFound
	}
	a.attendance[rec.ID] = *rec
	return nil
}

func (a *memAttendance) Delete(ctx context.Context, id uuid.UUID) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if _, ok := a.attendance[id]; !ok {
		return repository.ErrNotFound
	}
	delete(a.attendance, id)
	return nil
}

// ─── members ───

func (m *memMembers) ActiveMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.GroupMember
	for _, x := range m.members {
		if x.GroupID == groupID && x.IsActive {
			out = append(out, x)
		}
	}
	return out, nil
}

func (m *memMembers) LeaderOf(ctx context.Context, groupID uuid.UUID) (uuid.UUID, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.members {
		if x.GroupID == groupID && x.IsActive && x.Role == models.RoleLeader {
			return x.UserID, true, nil
		}
	}
	return uuid.Nil, false, nil
}

func (m *memMembers) Membership(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, x := range m.members {
		if x.GroupID == groupID && x.UserID == userID {
			c := x
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memMembers) GroupsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []uuid.UUID
	for _, x := range m.members {
		if x.UserID == userID && x.IsActive {
			out = append(out, x.GroupID)
		}
	}
	return out, nil
}

// ─── notifier ───

type notifyCall struct {
	Event     models.NotificationEvent
	SessionID uuid.UUID
	UserID    uuid.UUID
	Decision  models.ExceptionStatus
	Note      string
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []notifyCall
	err   error
}

func (n *recordingNotifier) record(c notifyCall) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, c)
	return n.err
}

func (n *recordingNotifier) events() []models.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]models.NotificationEvent, 0, len(n.calls))
	for _, c := range n.calls {
		out = append(out, c.Event)
	}
	return out
}

func (n *recordingNotifier) SessionStarted(ctx context.Context, s *models.StudySession) error {
	return n.record(notifyCall{Event: models.EventSessionStarted, SessionID: s.ID})
}

func (n *recordingNotifier) SessionEnded(ctx context.Context, s *models.StudySession) error {
	return n.record(notifyCall{Event: models.EventSessionEnded, SessionID: s.ID})
}

func (n *recordingNotifier) PhoneRestrictionOn(ctx context.Context, s *models.StudySession) error {
	return n.record(notifyCall{Event: models.EventPhoneRestrictionOn, SessionID: s.ID})
}

func (n *recordingNotifier) PhoneRestrictionOff(ctx context.Context, s *models.StudySession) error {
	return n.record(notifyCall{Event: models.EventPhoneRestrictionOff, SessionID: s.ID})
}

func (n *recordingNotifier) ExceptionRequested(ctx context.Context, userID uuid.UUID, s *models.StudySession) error {
	return n.record(notifyCall{Event: models.EventExceptionRequested, SessionID: s.ID, UserID: userID})
}

func (n *recordingNotifier) ExceptionProcessed(ctx context.Context, userID uuid.UUID, s *models.StudySession, decision models.ExceptionStatus, note string) error {
	return n.record(notifyCall{Event: models.EventExceptionProcessed, SessionID: s.ID, UserID: userID, Decision: decision, Note: note})
}

var errBoom = errors.New("boom")
