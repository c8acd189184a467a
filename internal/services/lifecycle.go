package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

// sessionTransitions lists every legal status change. COMPLETED and
// CANCELLED have no outgoing edges.
var sessionTransitions = map[models.SessionStatus][]models.SessionStatus{
	models.SessionScheduled:  {models.SessionInProgress, models.SessionCancelled},
	models.SessionInProgress: {models.SessionCompleted},
}

func ValidateTransition(from, to models.SessionStatus) error {
	for _, next := range sessionTransitions[from] {
		if next == to {
			return nil
		}
	}
	return newError(KindInvalidStateTransition, "cannot transition session from %s to %s", from, to)
}

func validateSessionTime(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return newError(KindInvalidSessionTime, "start and end time are required")
	}
	if !start.Before(end) {
		return newError(KindInvalidSessionTime, "start time must be before end time")
	}
	return nil
}

// validateExceptionWindow only applies when both bounds are present.
func validateExceptionWindow(s *models.StudySession, start, end *time.Time) error {
	if start == nil || end == nil {
		return nil
	}
	if start.After(*end) {
		return newError(KindInvalidExceptionTime, "exception start time must not be after its end time")
	}
	if start.Before(s.StartTime) || end.After(s.EndTime) {
		return newError(KindInvalidExceptionTime, "exception window must lie within the session (%s - %s)",
			s.StartTime.Format(time.RFC3339), s.EndTime.Format(time.RFC3339))
	}
	return nil
}

// SweepResult reports what one sweep tick did.
type SweepResult struct {
	Examined int
	Applied  int
	Failed   int
}

func (r SweepResult) String() string {
	return fmt.Sprintf("examined=%d applied=%d failed=%d", r.Examined, r.Applied, r.Failed)
}

// notFound converts the repository sentinel into an engine error.
func notFound(err error, format string, args ...interface{}) error {
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindNotFound, format, args...)
	}
	return err
}

func intPtr(n int) *int { return &n }

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}
