package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

const exceptionSelect = `
SELECT e.id, e.user_id, e.session_id, e.approver_id, e.status, e.reason,
	e.exception_start_time, e.exception_end_time, e.approved_at, e.created_at, e.updated_at
FROM phone_restriction_exceptions e
`

type ExceptionStore struct {
	db *sql.DB
}

func (s *ExceptionStore) Create(ctx context.Context, e *models.PhoneRestrictionException) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO phone_restriction_exceptions
	(id, user_id, session_id, status, reason, exception_start_time, exception_end_time, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		e.ID.String(),
		e.UserID.String(),
		e.SessionID.String(),
		e.Status,
		e.Reason,
		nullMs(e.ExceptionStartTime),
		nullMs(e.ExceptionEndTime),
		ms(e.CreatedAt),
		ms(e.UpdatedAt),
	)
	return translate(err)
}

func (s *ExceptionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.PhoneRestrictionException, error) {
	e, err := scanException(s.db.QueryRowContext(ctx, exceptionSelect+`WHERE e.id = ?`, id.String()))
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (s *ExceptionStore) GetByUserAndSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.PhoneRestrictionException, error) {
	e, err := scanException(s.db.QueryRowContext(ctx, exceptionSelect+`WHERE e.user_id = ? AND e.session_id = ?`,
		userID.String(), sessionID.String()))
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (s *ExceptionStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return s.list(ctx, exceptionSelect+`WHERE e.user_id = ? ORDER BY e.created_at DESC`, userID.String())
}

func (s *ExceptionStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return s.list(ctx, exceptionSelect+`WHERE e.session_id = ? ORDER BY e.created_at ASC`, sessionID.String())
}

func (s *ExceptionStore) ListByStatus(ctx context.Context, status models.ExceptionStatus) ([]*models.PhoneRestrictionException, error) {
	return s.list(ctx, exceptionSelect+`WHERE e.status = ? ORDER BY e.created_at ASC`, status)
}

func (s *ExceptionStore) ListPendingByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return s.list(ctx, exceptionSelect+`
JOIN study_sessions s ON s.id = e.session_id
WHERE s.group_id = ? AND e.status = ?
ORDER BY e.created_at ASC`, groupID.String(), models.ExceptionPending)
}

func (s *ExceptionStore) ListActive(ctx context.Context, now time.Time) ([]*models.PhoneRestrictionException, error) {
	return s.list(ctx, exceptionSelect+`
WHERE e.status = ? AND e.exception_start_time <= ? AND e.exception_end_time >= ?
ORDER BY e.exception_start_time ASC`, models.ExceptionApproved, ms(now), ms(now))
}

func (s *ExceptionStore) ListExpired(ctx context.Context, now time.Time) ([]*models.PhoneRestrictionException, error) {
	return s.list(ctx, exceptionSelect+`
WHERE e.status = ? AND e.exception_end_time < ?
ORDER BY e.exception_end_time ASC`, models.ExceptionApproved, ms(now))
}

func (s *ExceptionStore) UpdateRequest(ctx context.Context, e *models.PhoneRestrictionException) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE phone_restriction_exceptions
SET reason = ?, exception_start_time = ?, exception_end_time = ?, updated_at = ?
WHERE id = ? AND status = ?
`, e.Reason, nullMs(e.ExceptionStartTime), nullMs(e.ExceptionEndTime), ms(e.UpdatedAt),
		e.ID.String(), models.ExceptionPending)
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "phone_restriction_exceptions", e.ID)
}

func (s *ExceptionStore) Decide(ctx context.Context, id uuid.UUID, status models.ExceptionStatus, approverID uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE phone_restriction_exceptions
SET status = ?, approver_id = ?, approved_at = ?, updated_at = ?
WHERE id = ? AND status = ?
`, status, approverID.String(), ms(at), ms(at), id.String(), models.ExceptionPending)
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "phone_restriction_exceptions", id)
}

func (s *ExceptionStore) Expire(ctx context.Context, id uuid.UUID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE phone_restriction_exceptions SET status = ?, updated_at = ? WHERE id = ? AND status = ?
`, models.ExceptionExpired, ms(at), id.String(), models.ExceptionApproved)
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "phone_restriction_exceptions", id)
}

func (s *ExceptionStore) DeletePending(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM phone_restriction_exceptions WHERE id = ? AND status = ?`,
		id.String(), models.ExceptionPending)
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "phone_restriction_exceptions", id)
}

func (s *ExceptionStore) list(ctx context.Context, query string, args ...interface{}) ([]*models.PhoneRestrictionException, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list exceptions: %w", err)
	}
	defer rows.Close()

	var out []*models.PhoneRestrictionException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, fmt.Errorf("scan exception: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate exceptions: %w", err)
	}
	return out, nil
}

func scanException(row rowScanner) (*models.PhoneRestrictionException, error) {
	var (
		e                    models.PhoneRestrictionException
		approver             uuid.NullUUID
		start, end, approved sql.NullInt64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&e.ID, &e.UserID, &e.SessionID, &approver, &e.Status, &e.Reason,
		&start, &end, &approved, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	if approver.Valid {
		id := approver.UUID
		e.ApproverID = &id
	}
	e.ExceptionStartTime = timePtr(start)
	e.ExceptionEndTime = timePtr(end)
	e.ApprovedAt = timePtr(approved)
	e.CreatedAt = fromMs(createdAt)
	e.UpdatedAt = fromMs(updatedAt)
	return &e, nil
}

var _ repository.ExceptionStore = (*ExceptionStore)(nil)
