package service

import (
	"fmt"

	"github.com/wpjson/user-service/internal/models"
)

const registeredFormat = "2006-01-02 15:04:05"

// toEntity maps a stored user to its wire form. userMeta is included only when
// the caller loaded it; the list operation passes nil to omit it. The self and
// archives links are computed from the configured base URL, never stored.
func (s *Service) toEntity(user *models.User, userMeta map[string][]any) models.UserEntity {
	return models.UserEntity{
		ID:          user.ID,
		Login:       user.Login,
		Pass:        user.Pass,
		Nicename:    user.Nicename,
		Email:       user.Email,
		URL:         user.URL,
		Registered:  user.Registered.Format(registeredFormat),
		DisplayName: user.DisplayName,
		FirstName:   user.FirstName,
		LastName:    user.LastName,
		Nickname:    user.Nickname,
		Description: user.Description,
		Meta: models.EntityMeta{
			Links: models.Links{
				Self:     fmt.Sprintf("%s/users/%d", s.cfg.BaseURL, user.ID),
				Archives: fmt.Sprintf("%s/users/%d/posts", s.cfg.BaseURL, user.ID),
			},
		},
		UserMeta: userMeta,
	}
}

// applyPatch overwrites a mutable field only when the patch carries a
// non-empty value for it; blank or absent fields never erase stored values.
// ID, login, pass and registered cannot be changed through a patch at all.
func applyPatch(user *models.User, patch *models.UserPatch) {
	if patch.Nicename != "" {
		user.Nicename = patch.Nicename
	}
	if patch.Email != "" {
		user.Email = patch.Email
	}
	if patch.URL != "" {
		user.URL = patch.URL
	}
	if patch.DisplayName != "" {
		user.DisplayName = patch.DisplayName
	}
	if patch.FirstName != "" {
		user.FirstName = patch.FirstName
	}
	if patch.LastName != "" {
		user.LastName = patch.LastName
	}
	if patch.Nickname != "" {
		user.Nickname = patch.Nickname
	}
	if patch.Description != "" {
		user.Description = patch.Description
	}
}
