package service

import (
	"errors"
	"fmt"

	"github.com/wpjson/user-service/internal/apierr"
	"github.com/wpjson/user-service/internal/auth"
	"github.com/wpjson/user-service/internal/meta"
	"github.com/wpjson/user-service/internal/models"
)

// ListUsers returns all users ordered by login ascending, without metadata.
// Zero users is an empty collection, not an error.
func (s *Service) ListUsers(caps auth.Capabilities) ([]models.UserEntity, error) {
	if !caps.Can(auth.CapEditUsers) {
		return nil, errCannotGet
	}

	users, err := s.users.ListUsers("login", "ASC")
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}

	entities := make([]models.UserEntity, 0, len(users))
	for _, user := range users {
		entities = append(entities, s.toEntity(user, nil))
	}
	return entities, nil
}

// GetUser returns one user with its normalized metadata and computed links.
func (s *Service) GetUser(caps auth.Capabilities, id int64) (*models.UserEntity, error) {
	if !caps.Can(auth.CapEditUsers) {
		return nil, errCannotGet
	}
	if id <= 0 {
		return nil, errInvalidID
	}

	user, err := s.users.FindUserByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	if user == nil {
		return nil, errInvalidID
	}

	raw, err := s.meta.GetAllMeta(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load metadata for user %d: %w", id, err)
	}

	entity := s.toEntity(user, meta.Decode(raw))
	return &entity, nil
}

// EditUser applies a partial update and returns the freshly re-read user, so
// the response reflects whatever the store normalized rather than the
// in-memory patched record. Existence is checked before permission here,
// matching the upstream ordering for edits.
func (s *Service) EditUser(caps auth.Capabilities, id int64, patch *models.UserPatch) (*models.UserEntity, error) {
	if id <= 0 {
		return nil, errInvalidIDEmpty
	}

	user, err := s.users.FindUserByID(id)
	if err != nil {
		return nil, fmt.Errorf("failed to load user %d: %w", id, err)
	}
	if user == nil {
		return nil, errInvalidIDMissing
	}

	if !caps.Can(auth.CapEditUsers) {
		return nil, errCannotEdit
	}

	previousEmail := user.Email
	applyPatch(user, patch)

	if err := s.users.SaveUser(user); err != nil {
		var apiErr *apierr.Error
		if errors.As(err, &apiErr) {
			// The store's own validation (duplicate email etc) passes
			// through unchanged.
			return nil, apiErr
		}
		return nil, fmt.Errorf("failed to save user %d: %w", id, err)
	}

	// Metadata writes happen one value at a time; a failure mid-key leaves a
	// mix of old and new values and is not rolled back.
	for key, raw := range patch.UserMeta {
		for _, value := range meta.Values(raw) {
			if err := s.meta.UpsertMeta(id, key, meta.Encode(value)); err != nil {
				return nil, fmt.Errorf("failed to write metadata %q for user %d: %w", key, id, err)
			}
		}
	}

	if s.notifier != nil && user.Email != previousEmail {
		if err := s.notifier.SendEmailChangeNotification(user.Email, user.DisplayName, previousEmail); err != nil {
			s.log.Errorf("Failed to notify user %d of email change: %v", id, err)
		}
	}

	s.log.Infof("User updated: %d", id)
	return s.GetUser(caps, id)
}

// DeleteUser removes the user. The force flag of the HTTP surface is a shadow
// parameter: the delete is always the same unconditional delete, and owned
// content is not reassigned.
func (s *Service) DeleteUser(caps auth.Capabilities, id int64) error {
	if id <= 0 {
		return errInvalidID
	}

	user, err := s.users.FindUserByID(id)
	if err != nil {
		return fmt.Errorf("failed to load user %d: %w", id, err)
	}
	if user == nil {
		return errInvalidID
	}

	if !caps.Can(auth.CapEditUsers) {
		return errCannotEdit
	}

	if err := s.users.DeleteUser(id); err != nil {
		s.log.Errorf("Failed to delete user %d: %v", id, err)
		return errCannotDelete
	}

	s.log.Infof("User deleted: %d", id)
	return nil
}
