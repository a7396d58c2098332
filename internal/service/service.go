package service

import (
	"github.com/sirupsen/logrus"
	"github.com/wpjson/user-service/internal/apierr"
	"github.com/wpjson/user-service/internal/config"
	"github.com/wpjson/user-service/internal/models"
)

// UserRepository is the durable user store the service orchestrates. A missing
// user is (nil, nil), not an error.
type UserRepository interface {
	FindUserByID(id int64) (*models.User, error)
	FindUserByLogin(login string) (*models.User, error)
	ListUsers(orderBy, order string) ([]*models.User, error)
	SaveUser(user *models.User) error
	DeleteUser(id int64) error
}

// MetaRepository is the per-user key/value store; a key may hold several
// values in insertion order, and values may be serialized blobs.
type MetaRepository interface {
	GetAllMeta(userID int64) (map[string][]string, error)
	UpsertMeta(userID int64, key, value string) error
}

// Notifier delivers best-effort notifications about profile changes.
type Notifier interface {
	SendEmailChangeNotification(to, displayName, previousEmail string) error
}

// Service handles business logic for the user resource
type Service struct {
	users    UserRepository
	meta     MetaRepository
	notifier Notifier
	log      *logrus.Logger
	cfg      *config.Config
}

// NewService initializes a new service. notifier may be nil to disable
// profile-change emails.
func NewService(users UserRepository, meta MetaRepository, notifier Notifier, log *logrus.Logger, cfg *config.Config) *Service {
	return &Service{users: users, meta: meta, notifier: notifier, log: log, cfg: cfg}
}

// Fixed denial and not-found responses. The messages match the upstream
// contract; edit distinguishes an empty id from a missing user only in text.
var (
	errCannotGet        = apierr.New(apierr.CodeCannotGet, "Sorry, you are not allowed to get users.", 401)
	errCannotEdit       = apierr.New(apierr.CodeCannotEdit, "Sorry, you are not allowed to edit this user.", 401)
	errInvalidID        = apierr.New(apierr.CodeInvalidID, "Invalid user ID.", 404)
	errInvalidIDEmpty   = apierr.New(apierr.CodeInvalidID, "Invalid user ID (empty).", 404)
	errInvalidIDMissing = apierr.New(apierr.CodeInvalidID, "Invalid user ID (could not load).", 404)
	errCannotDelete     = apierr.New(apierr.CodeCannotDelete, "The user cannot be deleted.", 500)
)
