package service

import (
	"context"
	"errors"

	"auth-template/internal/repository"
)

// RoleService answers authorization questions about a user's role.
type RoleService interface {
	HasRole(ctx context.Context, userID string, allowed ...int64) (bool, error)
}

type roleService struct {
	roles repository.RoleRepository
}

func NewRoleService(roles repository.RoleRepository) RoleService {
	return &roleService{roles: roles}
}

func (s *roleService) HasRole(ctx context.Context, userID string, allowed ...int64) (bool, error) {
	role, err := s.roles.GetForUser(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return false, nil
		}
		return false, unavailable("load role", err)
	}
	if !role.IsActive {
		return false, nil
	}
	for _, id := range allowed {
		if role.ID == id {
			return true, nil
		}
	}
	return false, nil
}
