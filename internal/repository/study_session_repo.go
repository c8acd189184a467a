package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbanfIare/dmt-app/internal/models"
)

const sessionColumns = `id, group_id, name, start_time, end_time, duration_minutes, status, created_at, updated_at`

type StudySessionRepo struct {
	pool *pgxpool.Pool
}

func NewStudySessionRepo(pool *pgxpool.Pool) *StudySessionRepo {
	return &StudySessionRepo{pool: pool}
}

func (r *StudySessionRepo) Create(ctx context.Context, s *models.StudySession) error {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO study_sessions (`+sessionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, s.ID, s.GroupID, s.Name, s.StartTime, s.EndTime, s.DurationMinutes, s.Status, s.CreatedAt, s.UpdatedAt)
	return translate(err)
}

func (r *StudySessionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+sessionColumns+` FROM study_sessions WHERE id = $1`, id)
	s, err := scanSession(row)
	if err != nil {
		return nil, translate(err)
	}
	return s, nil
}

func (r *StudySessionRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.StudySession, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM study_sessions
		WHERE group_id = $1 ORDER BY start_time DESC`, groupID)
}

func (r *StudySessionRepo) ListUpcomingByGroup(ctx context.Context, groupID uuid.UUID, now time.Time) ([]*models.StudySession, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM study_sessions
		WHERE group_id = $1 AND start_time >= $2 ORDER BY start_time ASC`, groupID, now)
}

func (r *StudySessionRepo) ListByStatus(ctx context.Context, status models.SessionStatus) ([]*models.StudySession, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM study_sessions
		WHERE status = $1 ORDER BY start_time ASC`, status)
}

func (r *StudySessionRepo) ListDueToStart(ctx context.Context, now time.Time) ([]*models.StudySession, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM study_sessions
		WHERE status = $1 AND start_time <= $2 ORDER BY start_time ASC`, models.SessionScheduled, now)
}

func (r *StudySessionRepo) ListCurrent(ctx context.Context, now time.Time) ([]*models.StudySession, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM study_sessions
		WHERE status = $1 AND start_time <= $2 AND end_time >= $2 ORDER BY start_time ASC`, models.SessionInProgress, now)
}

func (r *StudySessionRepo) ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.StudySession, error) {
	return r.list(ctx, `SELECT `+sessionColumns+` FROM study_sessions
		WHERE start_time >= $1 AND start_time <= $2 ORDER BY start_time ASC`, from, to)
}

func (r *StudySessionRepo) UpdateDetails(ctx context.Context, s *models.StudySession) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions
		SET name = $1, start_time = $2, end_time = $3, duration_minutes = $4, updated_at = $5
		WHERE id = $6 AND status = $7
	`, s.Name, s.StartTime, s.EndTime, s.DurationMinutes, s.UpdatedAt, s.ID, models.SessionScheduled)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return missOrMismatch(ctx, r.pool, "study_sessions", s.ID)
	}
	return nil
}

func (r *StudySessionRepo) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus, at time.Time) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE study_sessions SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4
	`, to, at, id, from)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return missOrMismatch(ctx, r.pool, "study_sessions", id)
	}
	return nil
}

func (r *StudySessionRepo) DeleteScheduled(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM study_sessions WHERE id = $1 AND status = $2`, id, models.SessionScheduled)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return missOrMismatch(ctx, r.pool, "study_sessions", id)
	}
	return nil
}

func (r *StudySessionRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.StudySession, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*models.StudySession
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

func scanSession(row pgx.Row) (*models.StudySession, error) {
	s := &models.StudySession{}
	err := row.Scan(&s.ID, &s.GroupID, &s.Name, &s.StartTime, &s.EndTime,
		&s.DurationMinutes, &s.Status, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return s, nil
}
