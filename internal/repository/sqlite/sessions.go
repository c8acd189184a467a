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

const sessionSelect = `
SELECT id, group_id, name, start_time, end_time, duration_minutes, status, created_at, updated_at
FROM study_sessions
`

type SessionStore struct {
	db *sql.DB
}

func (s *SessionStore) Create(ctx context.Context, sess *models.StudySession) error {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO study_sessions (id, group_id, name, start_time, end_time, duration_minutes, status, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
`,
		sess.ID.String(),
		sess.GroupID.String(),
		sess.Name,
		ms(sess.StartTime),
		ms(sess.EndTime),
		sess.DurationMinutes,
		sess.Status,
		ms(sess.CreatedAt),
		ms(sess.UpdatedAt),
	)
	return translate(err)
}

func (s *SessionStore) GetByID(ctx context.Context, id uuid.UUID) (*models.StudySession, error) {
	row := s.db.QueryRowContext(ctx, sessionSelect+`WHERE id = ?`, id.String())
	sess, err := scanSession(row)
	if err != nil {
		return nil, translate(err)
	}
	return sess, nil
}

func (s *SessionStore) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.StudySession, error) {
	return s.list(ctx, sessionSelect+`WHERE group_id = ? ORDER BY start_time DESC`, groupID.String())
}

func (s *SessionStore) ListUpcomingByGroup(ctx context.Context, groupID uuid.UUID, now time.Time) ([]*models.StudySession, error) {
	return s.list(ctx, sessionSelect+`WHERE group_id = ? AND start_time >= ? ORDER BY start_time ASC`,
		groupID.String(), ms(now))
}

func (s *SessionStore) ListByStatus(ctx context.Context, status models.SessionStatus) ([]*models.StudySession, error) {
	return s.list(ctx, sessionSelect+`WHERE status = ? ORDER BY start_time ASC`, status)
}

func (s *SessionStore) ListDueToStart(ctx context.Context, now time.Time) ([]*models.StudySession, error) {
	return s.list(ctx, sessionSelect+`WHERE status = ? AND start_time <= ? ORDER BY start_time ASC`,
		models.SessionScheduled, ms(now))
}

func (s *SessionStore) ListCurrent(ctx context.Context, now time.Time) ([]*models.StudySession, error) {
	return s.list(ctx, sessionSelect+`WHERE status = ? AND start_time <= ? AND end_time >= ? ORDER BY start_time ASC`,
		models.SessionInProgress, ms(now), ms(now))
}

func (s *SessionStore) ListByDateRange(ctx context.Context, from, to time.Time) ([]*models.StudySession, error) {
	return s.list(ctx, sessionSelect+`WHERE start_time >= ? AND start_time <= ? ORDER BY start_time ASC`,
		ms(from), ms(to))
}

func (s *SessionStore) UpdateDetails(ctx context.Context, sess *models.StudySession) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE study_sessions
SET name = ?, start_time = ?, end_time = ?, duration_minutes = ?, updated_at = ?
WHERE id = ? AND status = ?
`, sess.Name, ms(sess.StartTime), ms(sess.EndTime), sess.DurationMinutes, ms(sess.UpdatedAt),
		sess.ID.String(), models.SessionScheduled)
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "study_sessions", sess.ID)
}

func (s *SessionStore) TransitionStatus(ctx context.Context, id uuid.UUID, from, to models.SessionStatus, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE study_sessions SET status = ?, updated_at = ? WHERE id = ? AND status = ?
`, to, ms(at), id.String(), from)
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "study_sessions", id)
}

func (s *SessionStore) DeleteScheduled(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM study_sessions WHERE id = ? AND status = ?`,
		id.String(), models.SessionScheduled)
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "study_sessions", id)
}

func (s *SessionStore) list(ctx context.Context, query string, args ...interface{}) ([]*models.StudySession, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []*models.StudySession
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate sessions: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanSession(row rowScanner) (*models.StudySession, error) {
	var (
		sess                 models.StudySession
		start, end           int64
		createdAt, updatedAt int64
	)
	if err := row.Scan(&sess.ID, &sess.GroupID, &sess.Name, &start, &end,
		&sess.DurationMinutes, &sess.Status, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	sess.StartTime = fromMs(start)
	sess.EndTime = fromMs(end)
	sess.CreatedAt = fromMs(createdAt)
	sess.UpdatedAt = fromMs(updatedAt)
	return &sess, nil
}

var _ repository.SessionStore = (*SessionStore)(nil)
