package services

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/urbanfIare/dmt-app/internal/models"
	"github.com/urbanfIare/dmt-app/internal/repository"
)

func requireLeader(ctx context.Context, members repository.MemberDirectory, groupID, userID uuid.UUID) error {
	m, err := members.Membership(ctx, groupID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindForbidden, "only the group leader can perform this action")
	}
	if err != nil {
		return err
	}
	if !m.IsActive || m.Role != models.RoleLeader {
		return newError(KindForbidden, "only the group leader can perform this action")
	}
	return nil
}

func isLeader(ctx context.Context, members repository.MemberDirectory, groupID, userID uuid.UUID) (bool, error) {
	err := requireLeader(ctx, members, groupID, userID)
	if IsForbidden(err) {
		return false, nil
	}
	return err == nil, err
}

func requireActiveMember(ctx context.Context, members repository.MemberDirectory, groupID, userID uuid.UUID) error {
	m, err := members.Membership(ctx, groupID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return newError(KindForbidden, "user is not a member of this study group")
	}
	if err != nil {
		return err
	}
	if !m.IsActive {
		return newError(KindForbidden, "user is not an active member of this study group")
	}
	return nil
}
