package models

import "github.com/google/uuid"

type MemberRole string

const (
	RoleLeader MemberRole = "LEADER"
	RoleMember MemberRole = "MEMBER"
)

// GroupMember is a read-only view of study group membership.
type GroupMember struct {
	GroupID  uuid.UUID  `json:"group_id"`
	UserID   uuid.UUID  `json:"user_id"`
	Role     MemberRole `json:"role"`
	IsActive bool       `json:"is_active"`
}
