package services

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

// SessionService owns the study session state machine.
type SessionService struct {
	sessions repository.SessionStore
	members  repository.MemberDirectory
	notifier Notifier
	clock    clock.Clock
}

func NewSessionService(sessions repository.SessionStore, members repository.MemberDirectory, notifier Notifier, clk clock.Clock) *SessionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &SessionService{sessions: sessions, members: members, notifier: notifier, clock: clk}
}

func (s *SessionService) Create(ctx context.Context, actorID uuid.UUID, req models.CreateSessionRequest) (*models.StudySession, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &Error{Kind: KindValidationFailed, Message: "Validation failed", Fields: map[string]string{"name": "name is required"}}
	}
	if err := requireLeader(ctx, s.members, req.GroupID, actorID); err != nil {
		return nil, err
	}
	if err := validateSessionTime(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	if req.StartTime.Before(now) {
		return nil, newError(KindInvalidSessionTime, "start time must not be in the past")
	}

	session := &models.StudySession{
		ID:              uuid.New(),
		GroupID:         req.GroupID,
		Name:            strings.TrimSpace(req.Name),
		StartTime:       req.StartTime.UTC(),
		EndTime:         req.EndTime.UTC(),
		DurationMinutes: models.WholeMinutes(req.StartTime, req.EndTime),
		Status:          models.SessionScheduled,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *SessionService) Get(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	session, err := s.sessions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "study session %s not found", id)
	}
	return session, nil
}

func (s *SessionService) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.StudySession, error) {
	return s.sessions.ListByGroup(ctx, groupID)
}

func (s *SessionService) ListUpcoming(ctx context.Context, groupID uuid.UUID) ([]*models.StudySession, error) {
	return s.sessions.ListUpcomingByGroup(ctx, groupID, s.clock.Now())
}

func (s *SessionService) ListCurrent(ctx context.Context) ([]*models.StudySession, error) {
	return s.sessions.ListCurrent(ctx, s.clock.Now())
}

func (s *SessionService) ListByStatus(ctx context.Context, status models.SessionStatus) ([]*models.StudySession, error) {
	if !status.Valid() {
		return nil, newError(KindValidationFailed, "unknown session status %q", status)
	}
	return s.sessions.ListByStatus(ctx, status)
}

func (s *SessionService) ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.StudySession, error) {
	if to.Before(from) {
		return nil, newError(KindValidationFailed, "range end must not be before range start")
	}
	return s.sessions.ListByDateRange(ctx, from, to)
}

func (s *SessionService) Update(ctx context.Context, actorID, id uuid.UUID, req models.UpdateSessionRequest) (*models.StudySession, error) {
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireLeader(ctx, s.members, session.GroupID, actorID); err != nil {
		return nil, err
	}
	if session.Status != models.SessionScheduled {
		return nil, newError(KindSessionNotEditable, "session is %s; only scheduled sessions can be edited", session.Status)
	}
	if err := validateSessionTime(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	if name := strings.TrimSpace(req.Name); name != "" {
		session.Name = name
	}
	session.StartTime = req.StartTime.UTC()
	session.EndTime = req.EndTime.UTC()
	session.DurationMinutes = models.WholeMinutes(session.StartTime, session.EndTime)
	session.UpdatedAt = s.clock.Now()

	if err := s.sessions.UpdateDetails(ctx, session); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return nil, newError(KindSessionNotEditable, "session left the scheduled state while being edited")
		}
		return nil, notFound(err, "study session %s not found", id)
	}
	return session, nil
}

func (s *SessionService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if err := requireLeader(ctx, s.members, session.GroupID, actorID); err != nil {
		return err
	}
	if session.Status != models.SessionScheduled {
		return newError(KindSessionNotEditable, "session is %s; only scheduled sessions can be deleted", session.Status)
	}
	if err := s.sessions.DeleteScheduled(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return newError(KindSessionNotEditable, "session left the scheduled state before it could be deleted")
		}
		return notFound(err, "study session %s not found", id)
	}
	return nil
}

// UpdateStatus applies a leader-requested transition.
func (s *SessionService) UpdateStatus(ctx context.Context, actorID, id uuid.UUID, target models.SessionStatus) (*models.StudySession, error) {
	if !target.Valid() {
		return nil, newError(KindValidationFailed, "unknown session status %q", target)
	}
	session, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := requireLeader(ctx, s.members, session.GroupID, actorID); err != nil {
		return nil, err
	}
	if err := ValidateTransition(session.Status, target); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	if target == models.SessionInProgress && now.Before(session.StartTime) {
		return nil, newError(KindSessionNotYetStartable, "session starts at %s", session.StartTime.Format(time.RFC3339))
	}

	if err := s.sessions.TransitionStatus(ctx, id, session.Status, target, now); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return nil, newError(KindConflict, "session is no longer %s", session.Status)
		}
		return nil, notFound(err, "study session %s not found", id)
	}
	session.Status = target
	session.UpdatedAt = now

	switch target {
	case models.SessionInProgress:
		s.announceStart(ctx, session)
	case models.SessionCompleted:
		logNotifyErr("sessions", models.EventSessionEnded, session.ID, s.notifier.SessionEnded(ctx, session))
		logNotifyErr("sessions", models.EventPhoneRestrictionOff, session.ID, s.notifier.PhoneRestrictionOff(ctx, session))
	}
	return session, nil
}

// StartDueSessions promotes every SCHEDULED session whose start time has
// passed. Sessions are handled one at a time and a failure is logged and
// skipped. A session another actor already moved is not counted.
func (s *SessionService) StartDueSessions(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	due, err := s.sessions.ListDueToStart(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, session := range due {
		if session.StartTime.After(now) || session.Status != models.SessionScheduled {
			continue
		}
		res.Examined++

		err := s.sessions.TransitionStatus(ctx, session.ID, models.SessionScheduled, models.SessionInProgress, now)
		if errors.Is(err, repository.ErrStatusMismatch) {
			continue
		}
		if err != nil {
			res.Failed++
			log.Printf("session start sweep: failed to start session %s: %v", session.ID, err)
			continue
		}

		session.Status = models.SessionInProgress
		session.UpdatedAt = now
		res.Applied++
		s.announceStart(ctx, session)
	}
	return res, nil
}

func (s *SessionService) announceStart(ctx context.Context, session *models.StudySession) {
	logNotifyErr("sessions", models.EventSessionStarted, session.ID, s.notifier.SessionStarted(ctx, session))
	logNotifyErr("sessions", models.EventPhoneRestrictionOn, session.ID, s.notifier.PhoneRestrictionOn(ctx, session))
}
