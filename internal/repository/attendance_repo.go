package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbanfIare/dmt-app/internal/models"
)

const attendanceColumns = `a.id, a.user_id, a.session_id, a.status, a.arrival_time, a.departure_time,
	a.late_minutes, a.early_leave_minutes, a.note, a.created_at, a.updated_at`

type AttendanceRepo struct {
	pool *pgxpool.Pool
}

func NewAttendanceRepo(pool *pgxpool.Pool) *AttendanceRepo {
	return &AttendanceRepo{pool: pool}
}

func (r *AttendanceRepo) Create(ctx context.Context, a *models.Attendance) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	_, err := r.pool.Exec(ctx, `
		INSERT INTO attendances
			(id, user_id, session_id, status, arrival_time, departure_time, late_minutes, early_leave_minutes, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, a.ID, a.UserID, a.SessionID, a.Status, a.ArrivalTime, a.DepartureTime,
		a.LateMinutes, a.EarlyLeaveMinutes, a.Note, a.CreatedAt, a.UpdatedAt)
	return translate(err)
}

func (r *AttendanceRepo) CreateIfAbsent(ctx context.Context, a *models.Attendance) (bool, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}

	tag, err := r.pool.Exec(ctx, `
		INSERT INTO attendances
			(id, user_id, session_id, status, arrival_time, departure_time, late_minutes, early_leave_minutes, note, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (user_id, session_id) DO NOTHING
	`, a.ID, a.UserID, a.SessionID, a.Status, a.ArrivalTime, a.DepartureTime,
		a.LateMinutes, a.EarlyLeaveMinutes, a.Note, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return false, translate(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (r *AttendanceRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Attendance, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+attendanceColumns+` FROM attendances a WHERE a.id = $1`, id)
	a, err := scanAttendance(row)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (r *AttendanceRepo) GetByUserAndSession(ctx context.Context, userID, sessionID uuid.UUID) (*models.Attendance, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+attendanceColumns+` FROM attendances a
		WHERE a.user_id = $1 AND a.session_id = $2`, userID, sessionID)
	a, err := scanAttendance(row)
	if err != nil {
		return nil, translate(err)
	}
	return a, nil
}

func (r *AttendanceRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]*models.Attendance, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendances a
		WHERE a.user_id = $1 ORDER BY a.created_at DESC`, userID)
}

func (r *AttendanceRepo) ListBySession(ctx context.Context, sessionID uuid.UUID) ([]*models.Attendance, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendances a
		WHERE a.session_id = $1 ORDER BY a.created_at ASC`, sessionID)
}

func (r *AttendanceRepo) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*models.Attendance, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendances a
		JOIN study_sessions s ON s.id = a.session_id
		WHERE s.group_id = $1 ORDER BY s.start_time DESC, a.created_at ASC`, groupID)
}

func (r *AttendanceRepo) ListByGroupAndUser(ctx context.Context, groupID, userID uuid.UUID) ([]*models.Attendance, error) {
	return r.list(ctx, `SELECT `+attendanceColumns+` FROM attendances a
		JOIN study_sessions s ON s.id = a.session_id
		WHERE s.group_id = $1 AND a.user_id = $2 ORDER BY s.start_time DESC`, groupID, userID)
}

func (r *AttendanceRepo) Update(ctx context.Context, a *models.Attendance) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE attendances
		SET status = $1, arrival_time = $2, departure_time = $3, late_minutes = $4,
			early_leave_minutes = $5, note = $6, updated_at = $7
		WHERE id = $8
	`, a.Status, a.ArrivalTime, a.DepartureTime, a.LateMinutes, a.EarlyLeaveMinutes, a.Note, a.UpdatedAt, a.ID)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AttendanceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM attendances WHERE id = $1`, id)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AttendanceRepo) list(ctx context.Context, query string, args ...interface{}) ([]*models.Attendance, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*models.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func scanAttendance(row pgx.Row) (*models.Attendance, error) {
	a := &models.Attendance{}
	err := row.Scan(&a.ID, &a.UserID, &a.SessionID, &a.Status, &a.ArrivalTime, &a.DepartureTime,
		&a.LateMinutes, &a.EarlyLeaveMinutes, &a.Note, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return a, nil
}
