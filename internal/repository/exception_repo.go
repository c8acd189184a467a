package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbanfIare/dmt-app/internal/models"
)

const exceptionColumns = `e.id, e.user_id, e.session_id, e.approver_id, e.status, e.reason,
	e.exception_start_time, e.exception_end_time, e.approved_at, e.created_at, e.updated_at`

type ExceptionRepo struct {
	pool *pgxpool.Pool
}

func NewExceptionRepo(pool *pgxpool.Pool) *ExceptionRepo {
	return &ExceptionRepo{pool: pool}
}

// Create relies on the (user_id, session_id) unique constraint.
func (r *ExceptionRepo) Create(ctx context.Context, e *models.PhoneRestrictionException) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO phone_restriction_exceptions
			(id, user_id, session_id, status, reason, exception_start_time, exception_end_time, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, e.ID, e.UserID, e.SessionID, e.Status, e.Reason, e.ExceptionStartTime, e.ExceptionEndTime, e.CreatedAt, e.UpdatedAt)
	return translate(err)
}

func (r *ExceptionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.PhoneRestrictionException, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+exceptionColumns+` FROM phone_restriction_exceptions e WHERE e.id = $1`, id)
	e, err := scanException(row)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (r *ExceptionRepo) GetByUserAndSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.PhoneRestrictionException, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+exceptionColumns+` FROM phone_restriction_exceptions e
		WHERE e.user_id = $1 AND e.session_id = $2`, userID, sessionID)
	e, err := scanException(row)
	if err != nil {
		return nil, translate(err)
	}
	return e, nil
}

func (r *ExceptionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return r.list(ctx, `SELECT `+exceptionColumns+` FROM phone_restriction_exceptions e
		WHERE e.user_id = $1 ORDER BY e.created_at DESC`, userID)
}

func (r *ExceptionRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return r.list(ctx, `SELECT `+exceptionColumns+` FROM phone_restriction_exceptions e
		WHERE e.session_id = $1 ORDER BY e.created_at ASC`, sessionID)
}

func (r *ExceptionRepo) ListByStatus(ctx context.Context, status models.ExceptionStatus) ([]*models.PhoneRestrictionException, error) {
	return r.list(ctx, `SELECT `+exceptionColumns+` FROM phone_restriction_exceptions e
		WHERE e.status = $1 ORDER BY e.created_at ASC`, status)
}

func (r *ExceptionRepo) ListPendingByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.PhoneRestrictionException, error) {
	return r.list(ctx, `SELECT `+exceptionColumns+` FROM phone_restriction_exceptions e
		JOIN study_sessions s ON s.id = e.session_id
		WHERE s.group_id = $1 AND e.status = $2 ORDER BY e.created_at ASC`, groupID, models.ExceptionPending)
}

func (r *ExceptionRepo) ListActive(ctx context.Context, now time.Time) ([]*models.PhoneRestrictionException, error) {
	return r.list(ctx, `SELECT `+exceptionColumns+` FROM phone_restriction_exceptions e
		WHERE e.status = $1 AND e.exception_start_time <= $2 AND e.exception_end_time >= $2
		ORDER BY e.exception_start_time ASC`, models.ExceptionApproved, now)
}

func (r *ExceptionRepo) ListExpired(ctx context.Context, now time.Time) ([]*models.PhoneRestrictionException, error) {
	return r.list(ctx, `SELECT `+exceptionColumns+` FROM phone_restriction_exceptions e
		WHERE e.status = $1 AND e.exception_end_time < $2
		ORDER BY e.exception_end_time ASC`, models.ExceptionApproved, now)
}

func (r *ExceptionRepo) UpdateRequest(ctx context.Context, e *models.PhoneRestrictionException) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE phone_restriction_exceptions
		SET reason = $1, exception_start_time = $2, exception_end_time = $3, updated_at = $4
		WHERE id = $5 AND status = $6
	`, e.Reason, e.ExceptionStartTime, e.ExceptionEndTime, e.UpdatedAt, e.ID, models.ExceptionPending)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return missOrMismatch(ctx, r.pool, "phone_restriction_exceptions", e.ID)
	}
	return nil
}

func (r *ExceptionRepo) Decide(ctx context.Context, id uuid.UUID, status models.ExceptionStatus, approverID uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE phone_restriction_exceptions
		SET status = $1, approver_id = $2, approved_at = $3, updated_at = $3
		WHERE id = $4 AND status = $5
	`, status, approverID, at, id, models.ExceptionPending)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return missOrMismatch(ctx, r.pool, "phone_restriction_exceptions", id)
	}
	return nil
}

func (r *ExceptionRepo) Expire(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE phone_restriction_exceptions SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, models.ExceptionExpired, at, id, models.ExceptionApproved)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return missOrMismatch(ctx, r.pool, "phone_restriction_exceptions", id)
	}
	return nil
}

func (r *ExceptionRepo) DeletePending(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM phone_restriction_exceptions WHERE id = $1 AND status = $2`,
		id, models.ExceptionPending)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return missOrMismatch(ctx, r.pool, "phone_restriction_exceptions", id)
	}
	return nil
}

func (r *ExceptionRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.PhoneRestrictionException, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.PhoneRestrictionException
	for rows.Next() {
		e, err := scanException(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func scanException(row pgx.Row) (*models.PhoneRestrictionException, error) {
	e := &models.PhoneRestrictionException{}
	err := row.Scan(&e.ID, &e.UserID, &e.SessionID, &e.ApproverID, &e.Status, &e.Reason,
		&e.ExceptionStartTime, &e.ExceptionEndTime, &e.ApprovedAt, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return e, nil
}
