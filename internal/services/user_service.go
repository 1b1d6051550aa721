package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cardanocart/internal/apperr"
	"cardanocart/internal/models"
	"cardanocart/internal/policy"
	"cardanocart/internal/repositories"
	"cardanocart/pkg/storage"

	"github.com/sirupsen/logrus"
)

// UserService manages user profiles.
type UserService struct {
	users repositories.UserRepository
	blobs storage.Store
}

// NewUserService creates a new UserService. blobs may be nil when avatar
// uploads are not supported.
func NewUserService(users repositories.UserRepository, blobs storage.Store) *UserService {
	return &UserService{users: users, blobs: blobs}
}

// UpdateUserInput carries a partial profile update. Nil fields are left as they are.
type UpdateUserInput struct {
	Username        *string
	Email           *string
	FirstName       *string
	LastName        *string
	Address         *string
	PhoneNumber     *string
	WalletID        *string
	Role            *models.Role
	CurrentPassword *string
	NewPassword     *string
	Avatar          *ImageUpload
}

// Get returns a user that has not been soft-deleted.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, apperr.NotFound("User")
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user.IsDeleted {
		return nil, apperr.NotFound("User")
	}
	return user, nil
}

func (s *UserService) Me(ctx context.Context, actor policy.Actor) (*models.User, error) {
	return s.Get(ctx, actor.ID)
}

func (s *UserService) List(ctx context.Context) ([]models.User, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return users, nil
}

// Authorize checks that the user exists and that actor may change the profile.
func (s *UserService) Authorize(ctx context.Context, actor policy.Actor, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanMutate(actor, user) {
		return apperr.PermissionDenied()
	}
	return nil
}

// Update applies in to the user with the given id. Only the user or an
// admin may update a profile, and only an admin may change roles.
func (s *UserService) Update(ctx context.Context, actor policy.Actor, id string, in UpdateUserInput) (*models.User, error) {
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !policy.CanMutate(actor, user) {
		return nil, apperr.PermissionDenied()
	}

	details := map[string]string{}
	if in.Username != nil {
		if blank(in.Username) {
			details["username"] = "This field may not be blank."
		} else {
			user.Username = strings.TrimSpace(*in.Username)
		}
	}
	if in.Email != nil {
		if blank(in.Email) {
			details["email"] = "This field may not be blank."
		} else {
			user.Email = normalizeEmail(*in.Email)
		}
	}
	if in.Role != nil && actor.IsAdmin() {
		if !in.Role.Valid() {
			details["role"] = fmt.Sprintf("%q is not a valid role.", *in.Role)
		} else {
			user.Role = *in.Role
		}
	}
	if in.NewPassword != nil {
		if err := s.changePassword(actor, user, in.CurrentPassword, *in.NewPassword, details); err != nil {
			return nil, err
		}
	}
	if len(details) > 0 {
		return nil, apperr.Validation("Invalid user data", details)
	}

	setIfPresent(&user.FirstName, in.FirstName)
	setIfPresent(&user.LastName, in.LastName)
	setIfPresent(&user.Address, in.Address)
	setIfPresent(&user.PhoneNumber, in.PhoneNumber)
	setIfPresent(&user.WalletID, in.WalletID)

	var stored []string
	if in.Avatar != nil {
		_, urls, err := storeUploads(ctx, s.blobs, "avatars", []ImageUpload{*in.Avatar}, &stored)
		if err != nil {
			discardBlobs(s.blobs, stored)
			return nil, fmt.Errorf("failed to store avatar: %w", err)
		}
		user.Avatar = urls[0]
	}

	if err := s.users.Update(ctx, user); err != nil {
		discardBlobs(s.blobs, stored)
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, errDuplicateIdentity()
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	logrus.WithFields(logrus.Fields{"user_id": user.ID, "actor_id": actor.ID}).Info("User updated")
	return user, nil
}

// changePassword requires the current password unless an admin resets
// another user's password.
func (s *UserService) changePassword(actor policy.Actor, user *models.User, current *string, next string, details map[string]string) error {
	if next == "" {
		details["new_password"] = "This field may not be blank."
		return nil
	}
	adminReset := actor.IsAdmin() && actor.ID != user.ID
	if !adminReset {
		if current == nil {
			return apperr.Missing("current_password")
		}
		if !user.CheckPassword(*current) {
			details["current_password"] = "Current password is incorrect."
			return nil
		}
	}
	if err := user.SetPassword(next); err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	return nil
}

// Delete soft-deletes the user. The account can no longer log in or refresh.
func (s *UserService) Delete(ctx context.Context, actor policy.Actor, id string) error {
	user, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !policy.CanMutate(actor, user) {
		return apperr.PermissionDenied()
	}

	user.IsDeleted = true
	if err := s.users.Update(ctx, user); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	logrus.WithFields(logrus.Fields{"user_id": user.ID, "actor_id": actor.ID}).Info("User soft-deleted")
	return nil
}

func setIfPresent(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
