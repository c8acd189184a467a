package services

import (
	"context"
	"errors"
	"log"
	"strings"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/clock"
	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

// ExceptionService runs the phone restriction exception workflow.
type ExceptionService struct {
	exceptions repository.ExceptionStore
	sessions   repository.SessionStore
	members    repository.MemberDirectory
	notifier   Notifier
	clock      clock.Clock
}

func NewExceptionService(
	exceptions repository.ExceptionStore,
	sessions repository.SessionStore,
	members repository.MemberDirectory,
	notifier Notifier,
	clk clock.Clock,
) *ExceptionService {
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ExceptionService{
		exceptions: exceptions,
		sessions:   sessions,
		members:    members,
		notifier:   notifier,
		clock:      clk,
	}
}

func (s *ExceptionService) Create(ctx context.Context, actorID uuid.UUID, req models.CreateExceptionRequest) (*models.PhoneRestrictionException, error) {
	if actorID == uuid.Nil {
		return nil, newError(KindForbidden, "requester could not be identified")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, &Error{Kind: KindValidationFailed, Message: "Validation failed", Fields: map[string]string{"reason": "reason is required"}}
	}

	session, err := s.sessions.GetByID(ctx, req.SessionID)
	if err != nil {
		return nil, notFound(err, "study session %s not found", req.SessionID)
	}
	if err := requireActiveMember(ctx, s.members, session.GroupID, actorID); err != nil {
		return nil, err
	}
	if session.Status.Terminal() {
		return nil, newError(KindSessionNotEditable, "session is %s; exceptions can no longer be requested", session.Status)
	}
	if err := validateExceptionWindow(session, req.ExceptionStartTime, req.ExceptionEndTime); err != nil {
		return nil, err
	}

	now := s.clock.Now()
	exc := &models.PhoneRestrictionException{
		ID:                 uuid.New(),
		UserID:             actorID,
		SessionID:          session.ID,
		Status:             models.ExceptionPending,
		Reason:             reason,
		ExceptionStartTime: utcPtr(req.ExceptionStartTime),
		ExceptionEndTime:   utcPtr(req.ExceptionEndTime),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.exceptions.Create(ctx, exc); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(KindDuplicateException, "an exception request already exists for this session")
		}
		return nil, err
	}

	logNotifyErr("exceptions", models.EventExceptionRequested, session.ID, s.notifier.ExceptionRequested(ctx, actorID, session))
	return exc, nil
}

func (s *ExceptionService) Get(ctx context.Context, id uuid.UUID) (*models.PhoneRestrictionException, error) {
	exc, err := s.exceptions.GetByID(ctx, id)
	if err != nil {
		return nil, notFound(err, "exception %s not found", id)
	}
	return exc, nil
}

func (s *ExceptionService) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return s.exceptions.ListByUser(ctx, userID)
}

func (s *ExceptionService) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return s.exceptions.ListBySession(ctx, sessionID)
}

func (s *ExceptionService) ListByStatus(ctx context.Context, status models.ExceptionStatus) ([]*models.PhoneRestrictionException, error) {
	return s.exceptions.ListByStatus(ctx, status)
}

// ListPendingByGroup is the leader's approval backlog.
func (s *ExceptionService) ListPendingByGroup(ctx context.Context, actorID, groupID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	if err := requireLeader(ctx, s.members, groupID, actorID); err != nil {
		return nil, err
	}
	return s.exceptions.ListPendingByGroup(ctx, groupID)
}

func (s *ExceptionService) ListActive(ctx context.Context) ([]*models.PhoneRestrictionException, error) {
	return s.exceptions.ListActive(ctx, s.clock.Now())
}

func (s *ExceptionService) Update(ctx context.Context, actorID, id uuid.UUID, req models.UpdateExceptionRequest) (*models.PhoneRestrictionException, error) {
	exc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if exc.UserID != actorID {
		return nil, newError(KindForbidden, "only the requester can modify this exception")
	}
	if exc.Status != models.ExceptionPending {
		return nil, newError(KindExceptionAlreadyProcessed, "exception is already %s", exc.Status)
	}

	session, err := s.sessions.GetByID(ctx, exc.SessionID)
	if err != nil {
		return nil, notFound(err, "study session %s not found", exc.SessionID)
	}
	if err := validateExceptionWindow(session, req.ExceptionStartTime, req.ExceptionEndTime); err != nil {
		return nil, err
	}

	if reason := strings.TrimSpace(req.Reason); reason != "" {
		exc.Reason = reason
	}
	exc.ExceptionStartTime = utcPtr(req.ExceptionStartTime)
	exc.ExceptionEndTime = utcPtr(req.ExceptionEndTime)
	exc.UpdatedAt = s.clock.Now()

	if err := s.exceptions.UpdateRequest(ctx, exc); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return nil, newError(KindExceptionAlreadyProcessed, "exception was processed while being edited")
		}
		return nil, notFound(err, "exception %s not found", id)
	}
	return exc, nil
}

// Decide approves or rejects a PENDING exception. Only the leader of the
// session's group may decide.
func (s *ExceptionService) Decide(ctx context.Context, actorID, id uuid.UUID, req models.ExceptionDecisionRequest) (*models.PhoneRestrictionException, error) {
	if req.Status != models.ExceptionApproved && req.Status != models.ExceptionRejected {
		return nil, newError(KindValidationFailed, "decision must be APPROVED or REJECTED")
	}
	exc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	session, err := s.sessions.GetByID(ctx, exc.SessionID)
	if err != nil {
		return nil, notFound(err, "study session %s not found", exc.SessionID)
	}
	if err := requireLeader(ctx, s.members, session.GroupID, actorID); err != nil {
		return nil, err
	}
	if exc.Status != models.ExceptionPending {
		return nil, newError(KindExceptionAlreadyProcessed, "exception is already %s", exc.Status)
	}

	now := s.clock.Now()
	if err := s.exceptions.Decide(ctx, id, req.Status, actorID, now); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return nil, newError(KindExceptionAlreadyProcessed, "exception was processed concurrently")
		}
		return nil, notFound(err, "exception %s not found", id)
	}
	exc.Status = req.Status
	exc.ApproverID = &actorID
	exc.ApprovedAt = &now
	exc.UpdatedAt = now

	note := strings.TrimSpace(req.Note)
	logNotifyErr("exceptions", models.EventExceptionProcessed, session.ID,
		s.notifier.ExceptionProcessed(ctx, exc.UserID, session, req.Status, note))
	return exc, nil
}

func (s *ExceptionService) Delete(ctx context.Context, actorID, id uuid.UUID) error {
	exc, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if exc.UserID != actorID {
		return newError(KindForbidden, "only the requester can delete this exception")
	}
	if exc.Status != models.ExceptionPending {
		return newError(KindExceptionAlreadyProcessed, "exception is already %s", exc.Status)
	}
	if err := s.exceptions.DeletePending(ctx, id); err != nil {
		if errors.Is(err, repository.ErrStatusMismatch) {
			return newError(KindExceptionAlreadyProcessed, "exception was processed before it could be deleted")
		}
		return notFound(err, "exception %s not found", id)
	}
	return nil
}

// ExpireApproved moves APPROVED exceptions whose window has closed to
// EXPIRED. PENDING requests are left alone.
func (s *ExceptionService) ExpireApproved(ctx context.Context) (SweepResult, error) {
	now := s.clock.Now()
	expired, err := s.exceptions.ListExpired(ctx, now)
	if err != nil {
		return SweepResult{}, err
	}

	var res SweepResult
	for _, exc := range expired {
		if exc.Status != models.ExceptionApproved || exc.ExceptionEndTime == nil || !exc.ExceptionEndTime.Before(now) {
			continue
		}
		res.Examined++

		err := s.exceptions.Expire(ctx, exc.ID, now)
		if errors.Is(err, repository.ErrStatusMismatch) {
			continue
		}
		if err != nil {
			res.Failed++
			log.Printf("exception expiry sweep: failed to expire %s: %v", exc.ID, err)
			continue
		}
		res.Applied++
	}
	return res, nil
}
