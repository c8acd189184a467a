// Package sqlite is a single-file implementation of the session engine stores,
// used by studyctl and local development in place of Postgres.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

//go:embed schema.sql
var schema string

type Store struct {
	sqlDB *sql.DB
}

// Open opens the store at path and applies the schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One writer keeps conditional updates serialized.
	sqlDB.SetMaxOpenConns(1)
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schema); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Sessions() *SessionStore { return &SessionStore{db: s.sqlDB} }

func (s *Store) Exceptions() *ExceptionStore { return &ExceptionStore{db: s.sqlDB} }

func (s *Store) Attendance() *AttendanceStore { return &AttendanceStore{db: s.sqlDB} }

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func ms(t time.Time) int64 { return t.UTC().UnixMilli() }

func fromMs(v int64) time.Time { return time.UnixMilli(v).UTC() }

func nullMs(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: ms(*t), Valid: true}
}

func timePtr(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := fromMs(v.Int64)
	return &t
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}

func intPtr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return repository.ErrDuplicate
	}
	return err
}

// checkAffected resolves a conditional write that touched no rows.
func checkAffected(ctx context.Context, db *sql.DB, res sql.Result, table string, id uuid.UUID) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}
	var exists int
	err = db.QueryRowContext(ctx, "SELECT COUNT(1) FROM "+table+" WHERE id = ?", id.String()).Scan(&exists)
	if err != nil {
		return err
	}
	if exists == 0 {
		return repository.ErrNotFound
	}
	return repository.ErrStatusMismatch
}

// UpsertMember records or updates a group membership. The server reads
// memberships owned by the group service; this exists for local setups.
func (s *Store) UpsertMember(ctx context.Context, m models.GroupMember) error {
	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO study_group_members (group_id, user_id, role, is_active)
VALUES (?, ?, ?, ?)
ON CONFLICT (group_id, user_id) DO UPDATE SET role = excluded.role, is_active = excluded.is_active
`, m.GroupID.String(), m.UserID.String(), m.Role, m.IsActive)
	if err != nil {
		return fmt.Errorf("upsert member: %w", err)
	}
	return nil
}

func (s *Store) ActiveMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT group_id, user_id, role, is_active FROM study_group_members
WHERE group_id = ? AND is_active = 1
ORDER BY user_id
`, groupID.String())
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.IsActive); err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (s *Store) LeaderOf(ctx context.Context, groupID uuid.UUID) (uuid.UUID, bool, error) {
	var leader uuid.UUID
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT user_id FROM study_group_members
WHERE group_id = ? AND role = ? AND is_active = 1
LIMIT 1
`, groupID.String(), models.RoleLeader).Scan(&leader)
	if errors.Is(err, sql.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("leader of group: %w", err)
	}
	return leader, true, nil
}

func (s *Store) Membership(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	m := &models.GroupMember{}
	err := s.sqlDB.QueryRowContext(ctx, `
SELECT group_id, user_id, role, is_active FROM study_group_members
WHERE group_id = ? AND user_id = ?
`, groupID.String(), userID.String()).Scan(&m.GroupID, &m.UserID, &m.Role, &m.IsActive)
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

func (s *Store) GroupsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT group_id FROM study_group_members WHERE user_id = ? AND is_active = 1
`, userID.String())
	if err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	defer rows.Close()

	var groups []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan group: %w", err)
		}
		groups = append(groups, id)
	}
	return groups, rows.Err()
}

var _ repository.MemberDirectory = (*Store)(nil)
