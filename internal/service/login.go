package service

import (
	"fmt"

	"github.com/wpjson/user-service/internal/apierr"
	"github.com/wpjson/user-service/internal/auth"
	"github.com/wpjson/user-service/internal/meta"
	"golang.org/x/crypto/bcrypt"
)

var errInvalidCredentials = apierr.New("invalid_credentials", "Invalid login or password.", 401)

// Login authenticates a user and returns a JWT carrying the capabilities
// derived from its roles.
func (s *Service) Login(login, password string) (string, error) {
	user, err := s.users.FindUserByLogin(login)
	if err != nil || user == nil {
		return "", errInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Pass), []byte(password)); err != nil {
		return "", errInvalidCredentials
	}

	token, err := auth.GenerateToken(user.ID, s.capabilitiesFor(user.ID), []byte(s.cfg.JWTSecret), s.cfg.TokenTTL)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}

	s.log.Infof("User logged in: %s", user.Login)
	return token, nil
}

// capabilitiesFor derives the capability set from the user's wp_capabilities
// metadata, a PHP-serialized map of role name to enabled flag.
func (s *Service) capabilitiesFor(userID int64) auth.Capabilities {
	raw, err := s.meta.GetAllMeta(userID)
	if err != nil {
		s.log.Errorf("Failed to load roles for user %d: %v", userID, err)
		return auth.NewCapabilities()
	}

	var roles []string
	for _, value := range meta.Decode(raw)["wp_capabilities"] {
		opaque, ok := value.(meta.Opaque)
		if !ok {
			continue
		}
		roleMap, ok := opaque.Unserialized.(map[string]any)
		if !ok {
			continue
		}
		for role, enabled := range roleMap {
			if flag, ok := enabled.(bool); ok && flag {
				roles = append(roles, role)
			}
		}
	}
	return auth.ForRoles(roles)
}
