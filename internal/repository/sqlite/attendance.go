package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

const attendanceSelect = `
SELECT a.id, a.user_id, a.session_id, a.status, a.arrival_time, a.departure_time,
	a.late_minutes, a.early_leave_minutes, a.note, a.created_at, a.updated_at
FROM attendances a
`

type AttendanceStore struct {
	db *sql.DB
}

const attendanceInsert = `
INSERT INTO attendances
	(id, user_id, session_id, status, arrival_time, departure_time, late_minutes, early_leave_minutes, note, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`

func attendanceArgs(a *models.Attendance) []interface{} {
	var note sql.NullString
	if a.Note != nil {
		note = sql.NullString{String: *a.Note, Valid: true}
	}
	return []interface{}{
		a.ID.String(),
		a.UserID.String(),
		a.SessionID.String(),
		a.Status,
		nullMs(a.ArrivalTime),
		nullMs(a.DepartureTime),
		nullInt(a.LateMinutes),
		nullInt(a.EarlyLeaveMinutes),
		note,
		ms(a.CreatedAt),
		ms(a.UpdatedAt),
	}
}

func (s *AttendanceStore) Create(ctx context.Context, a *models.Attendance) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	_, err := s.db.ExecContext(ctx, attendanceInsert, attendanceArgs(a)...)
	return translate(err)
}

func (s *AttendanceStore) CreateIfAbsent(ctx context.Context, a *models.Attendance) (bool, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	res, err := s.db.ExecContext(ctx, attendanceInsert+`ON CONFLICT (user_id, session_id) DO NOTHING`, attendanceArgs(a)...)
	if err != nil {
		return false, translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (s *AttendanceStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Attendance, error) {
	a, err := scanAttendance(s.db.QueryRowContext(ctx, attendanceSelect+`WHERE a.id = ?`, id.String()))
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (s *AttendanceStore) GetByUserAndSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.Attendance, error) {
	a, err := scanAttendance(s.db.QueryRowContext(ctx, attendanceSelect+`WHERE a.user_id = ? AND a.session_id = ?`,
		userID.String(), sessionID.String()))
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (s *AttendanceStore) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Attendance, error) {
	return s.list(ctx, attendanceSelect+`WHERE a.user_id = ? ORDER BY a.created_at DESC`, userID.String())
}

func (s *AttendanceStore) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Attendance, error) {
	return s.list(ctx, attendanceSelect+`WHERE a.session_id = ? ORDER BY a.created_at ASC`, sessionID.String())
}

func (s *AttendanceStore) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Attendance, error) {
	return s.list(ctx, attendanceSelect+`
JOIN study_sessions s ON s.id = a.session_id
WHERE s.group_id = ?
ORDER BY s.start_time DESC, a.created_at ASC`, groupID.String())
}

func (s *AttendanceStore) ListByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) ([]*models.Attendance, error) {
	return s.list(ctx, attendanceSelect+`
JOIN study_sessions s ON s.id = a.session_id
WHERE s.group_id = ? AND a.user_id = ?
ORDER BY s.start_time DESC`, groupID.String(), userID.String())
}

func (s *AttendanceStore) Update(ctx context.Context, a *models.Attendance) error {
	var note sql.NullString
	if a.Note != nil {
		note = sql.NullString{String: *a.Note, Valid: true}
	}
	res, err := s.db.ExecContext(ctx, `
UPDATE attendances
SET status = ?, arrival_time = ?, departure_time = ?, late_minutes = ?, early_leave_minutes = ?, note = ?, updated_at = ?
WHERE id = ?
`, a.Status, nullMs(a.ArrivalTime), nullMs(a.DepartureTime), nullInt(a.LateMinutes),
		nullInt(a.EarlyLeaveMinutes), note, ms(a.UpdatedAt), a.ID.String())
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "attendances", a.ID)
}

func (s *AttendanceStore) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM attendances WHERE id = ?`, id.String())
	if err != nil {
		return translate(err)
	}
	return checkAffected(ctx, s.db, res, "attendances", id)
}

func (s *AttendanceStore) list(ctx context.Context, query string, args ...interface{}) ([]*models.Attendance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	defer rows.Close()

	var out []*models.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate attendance: %w", err)
	}
	return out, nil
}

func scanAttendance(row rowScanner) (*models.Attendance, error) {
	var (
		a                    models.Attendance
		arrival, departure   sql.NullInt64
		late, early          sql.NullInt64
		note                 sql.NullString
		createdAt, updatedAt int64
	)
	if err := row.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Status, &arrival, &departure,
		&late, &early, &note, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	a.ArrivalTime = timePtr(arrival)
	a.DepartureTime = timePtr(departure)
	a.LateMinutes = intPtr(late)
	a.EarlyLeaveMinutes = intPtr(early)
	if note.Valid {
		n := note.String
		a.Note = &n
	}
	a.CreatedAt = fromMs(createdAt)
	a.UpdatedAt = fromMs(updatedAt)
	return &a, nil
}

var _ repository.AttendanceStore = (*AttendanceStore)(nil)
