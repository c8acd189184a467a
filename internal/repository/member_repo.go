package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/urbanfIare/dmt-app/internal/models"
)

// MemberRepo reads study_group_members, which the group service owns.
type MemberRepo struct {
	pool *pgxpool.Pool
}

func NewMemberRepo(pool *pgxpool.Pool) *MemberRepo {
	return &MemberRepo{pool: pool}
}

func (r *MemberRepo) ActiveMembers(ctx context.Context, groupID uuid.UUID) ([]models.GroupMember, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT group_id, user_id, role, is_active
		FROM study_group_members
		WHERE group_id = $1 AND is_active = TRUE
		ORDER BY user_id
	`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []models.GroupMember
	for rows.Next() {
		var m models.GroupMember
		if err := rows.Scan(&m.GroupID, &m.UserID, &m.Role, &m.IsActive); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *MemberRepo) LeaderOf(ctx context.Context, groupID uuid.UUID) (uuid.UUID, bool, error) {
	var leaderID uuid.UUID
	err := r.pool.QueryRow(ctx, `
		SELECT user_id FROM study_group_members
		WHERE group_id = $1 AND role = $2 AND is_active = TRUE
		LIMIT 1
	`, groupID, models.RoleLeader).Scan(&leaderID)
	if errors.Is(err, pgx.ErrNoRows) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, err
	}
	return leaderID, true, nil
}

func (r *MemberRepo) Membership(ctx context.Context, groupID, userID uuid.UUID) (*models.GroupMember, error) {
	m := &models.GroupMember{}
	err := r.pool.QueryRow(ctx, `
		SELECT group_id, user_id, role, is_active
		FROM study_group_members
		WHERE group_id = $1 AND user_id = $2
	`, groupID, userID).Scan(&m.GroupID, &m.UserID, &m.Role, &m.IsActive)
	if err != nil {
		return nil, translate(err)
	}
	return m, nil
}

func (r *MemberRepo) GroupsOf(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT group_id FROM study_group_members
		WHERE user_id = $1 AND is_active = TRUE
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var groups []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		groups = append(groups, id)
	}
	return groups, rows.Err()
}
