package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

const (
	reasonNotInProgress = "session is not in progress"
	reasonOutsideWindow = "outside session time"
	reasonRestricted    = "session in progress - phone restricted"
	reasonExcepted      = "approved exception - phone allowed"
)

// RestrictionService answers "is this user's phone restricted right now".
// It never mutates state.
type RestrictionService struct {
	sessions   repository.SessionStore
	exceptions repository.ExceptionStore
	members    repository.MemberDirectory
	clock      clock.Clock
}

func NewRestrictionService(
	sessions repository.SessionStore,
	exceptions repository.ExceptionStore,
	members repository.MemberDirectory,
	clk clock.Clock,
) *RestrictionService {
	return &RestrictionService{sessions: sessions, exceptions: exceptions, members: members, clock: clk}
}

// evaluateRestriction applies the rules in order. Any APPROVED exception lifts
// the restriction for the whole session, not only its own window.
func evaluateRestriction(s *models.StudySession, exc *models.PhoneRestrictionException, now time.Time) (bool, string) {
	if s.Status != models.SessionInProgress {
		return false, reasonNotInProgress
	}
	if !s.Contains(now) {
		return false, reasonOutsideWindow
	}
	if exc != nil && exc.Status == models.ExceptionApproved {
		return false, reasonExcepted
	}
	return true, reasonRestricted
}

func (r *RestrictionService) IsRestricted(ctx context.Context, userID, sessionID uuid.UUID) (bool, error) {
	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return false, notFound(err, "study session %s not found", sessionID)
	}
	restricted, _, err := r.evaluate(ctx, userID, session, r.clock.Now())
	return restricted, err
}

func (r *RestrictionService) evaluate(ctx context.Context, userID uuid.UUID, session *models.StudySession, now time.Time) (bool, string, error) {
	if session.Status != models.SessionInProgress || !session.Contains(now) {
		restricted, reason := evaluateRestriction(session, nil, now)
		return restricted, reason, nil
	}

	exc, err := r.exceptions.GetByUserAndSession(ctx, userID, session.ID)
	if errors.Is(err, repository.ErrNotFound) {
		exc, err = nil, nil
	}
	if err != nil {
		return false, "", err
	}
	restricted, reason := evaluateRestriction(session, exc, now)
	return restricted, reason, nil
}

// IsCurrentlyRestricted reports whether any in-progress session of a group the
// user belongs to restricts them. The first restricting session wins.
func (r *RestrictionService) IsCurrentlyRestricted(ctx context.Context, userID uuid.UUID) (bool, error) {
	restricted, _, err := r.currentSessions(ctx, userID, true)
	return restricted, err
}

func (r *RestrictionService) UserStatus(ctx context.Context, userID uuid.UUID) (*models.UserRealtimeStatus, error) {
	restricted, sessions, err := r.currentSessions(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	if sessions == nil {
		sessions = []*models.StudySession{}
	}
	return &models.UserRealtimeStatus{
		UserID:          userID,
		Restricted:      restricted,
		CurrentSessions: sessions,
		Timestamp:       r.clock.Now(),
	}, nil
}

func (r *RestrictionService) currentSessions(ctx context.Context, userID uuid.UUID, stopAtFirst bool) (bool, []*models.StudySession, error) {
	now := r.clock.Now()
	groups, err := r.members.GroupsOf(ctx, userID)
	if err != nil {
		return false, nil, err
	}
	if len(groups) == 0 {
		return false, nil, nil
	}
	memberOf := make(map[uuid.UUID]bool, len(groups))
	for _, g := range groups {
		memberOf[g] = true
	}

	current, err := r.sessions.ListCurrent(ctx, now)
	if err != nil {
		return false, nil, err
	}

	var (
		restricted bool
		mine       []*models.StudySession
	)
	for _, session := range current {
		if !memberOf[session.GroupID] {
			continue
		}
		mine = append(mine, session)
		if restricted {
			continue
		}
		ok, _, err := r.evaluate(ctx, userID, session, now)
		if err != nil {
			return false, nil, err
		}
		if ok {
			restricted = true
			if stopAtFirst {
				break
			}
		}
	}
	return restricted, mine, nil
}

// SessionStatus describes the restriction state of a session as a whole.
func (r *RestrictionService) SessionStatus(ctx context.Context, sessionID uuid.UUID) (*models.PhoneRestrictionStatus, error) {
	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, "study session %s not found", sessionID)
	}
	now := r.clock.Now()
	restricted, reason := evaluateRestriction(session, nil, now)
	return &models.PhoneRestrictionStatus{
		SessionID:  session.ID,
		Restricted: restricted,
		Reason:     reason,
		CheckedAt:  now,
	}, nil
}

func (r *RestrictionService) SessionSummary(ctx context.Context, sessionID uuid.UUID) (*models.SessionRestrictionSummary, error) {
	session, err := r.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, notFound(err, "study session %s not found", sessionID)
	}
	exceptions, err := r.exceptions.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	summary := &models.SessionRestrictionSummary{
		SessionID:       session.ID,
		SessionName:     session.Name,
		TotalExceptions: len(exceptions),
		SessionActive:   session.Status == models.SessionInProgress,
		SummaryAt:       r.clock.Now(),
	}
	for _, exc := range exceptions {
		switch exc.Status {
		case models.ExceptionPending:
			summary.PendingExceptions++
		case models.ExceptionApproved:
			summary.ApprovedExceptions++
		case models.ExceptionRejected:
			summary.RejectedExceptions++
		}
	}
	return summary, nil
}
