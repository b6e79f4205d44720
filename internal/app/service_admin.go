package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"casedesk/api/internal/rbac"
)

// UserView is the admin-panel projection of an account. Password hashes and
// verification tokens never leave the store layer.
type UserView struct {
	ID              string    `json:"id"`
	Email           string    `json:"email"`
	FullName        string    `json:"fullName"`
	IsAdmin         bool      `json:"isAdmin"`
	IsEnabled       bool      `json:"isEnabled"`
	IsEmailVerified bool      `json:"isEmailVerified"`
	Permissions     []string  `json:"permissions"`
	CreatedAt       time.Time `json:"createdAt"`
}

// ListUsers returns every account with its granted permissions. Admin only.
func (s *Service) ListUsers(ctx context.Context, session Session) ([]UserView, error) {
	if !session.IsAdmin {
		return nil, domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}

	users, err := s.store.ListUsersWithPermissions(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	views := make([]UserView, 0, len(users))
	for _, u := range users {
		perms := u.Permissions
		if perms == nil {
			perms = []string{}
		}
		views = append(views, UserView{
			ID:              u.ID,
			Email:           u.Email,
			FullName:        u.FullName,
			IsAdmin:         u.IsAdmin,
			IsEnabled:       u.IsEnabled,
			IsEmailVerified: u.IsEmailVerified,
			Permissions:     perms,
			CreatedAt:       u.CreatedAt,
		})
	}
	return views, nil
}

// SetUserAccess enables or disables an account. Enabling requires the
// add_users grant, disabling requires delete_users; admins pass both.
func (s *Service) SetUserAccess(ctx context.Context, session Session, userID string, enabled bool) error {
	required := rbac.PermAddUsers
	if !enabled {
		required = rbac.PermDeleteUsers
	}
	ok, err := s.allowed(ctx, session, required)
	if err != nil {
		return err
	}
	if !ok {
		return domainError(http.StatusForbidden, "FORBIDDEN", "You do not have permission to change user access", nil)
	}
	if userID == session.UserID {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "You cannot change your own access", nil)
	}

	if err := s.store.SetUserEnabled(ctx, userID, enabled); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		}
		return fmt.Errorf("set user access: %w", err)
	}
	return nil
}

// GrantUserPermission adds a permission key to an account. Admin only.
func (s *Service) GrantUserPermission(ctx context.Context, session Session, userID string, permission rbac.Permission) error {
	if !session.IsAdmin {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if !rbac.Valid(permission) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown permission "+string(permission), nil)
	}

	if err := s.store.GrantPermission(ctx, userID, string(permission), session.UserID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domainError(http.StatusNotFound, "NOT_FOUND", "User not found", nil)
		}
		return fmt.Errorf("grant permission: %w", err)
	}
	return nil
}

// RevokeUserPermission removes a permission key from an account. Admin only.
func (s *Service) RevokeUserPermission(ctx context.Context, session Session, userID string, permission rbac.Permission) error {
	if !session.IsAdmin {
		return domainError(http.StatusForbidden, "FORBIDDEN", "Forbidden", nil)
	}
	if !rbac.Valid(permission) {
		return domainError(http.StatusUnprocessableEntity, "VALIDATION_ERROR", "unknown permission "+string(permission), nil)
	}

	if err := s.store.RevokePermission(ctx, userID, string(permission)); err != nil {
		return fmt.Errorf("revoke permission: %w", err)
	}
	return nil
}
