package service

import (
	"encoding/json"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wpjson/user-service/internal/apierr"
	"github.com/wpjson/user-service/internal/auth"
	"github.com/wpjson/user-service/internal/config"
	"github.com/wpjson/user-service/internal/models"
)

// -------- test fakes --------

type fakeUsers struct {
	users     map[int64]*models.User
	findCalls int
	saveErr   error
	deleteErr error
	saveHook  func(*models.User)
}

func (f *fakeUsers) FindUserByID(id int64) (*models.User, error) {
	f.findCalls++
	u, ok := f.users[id]
	if !ok {
		return nil, nil
	}
	c := *u
	return &c, nil
}

func (f *fakeUsers) FindUserByLogin(login string) (*models.User, error) {
	for _, u := range f.users {
		if u.Login == login {
			c := *u
			return &c, nil
		}
	}
	return nil, nil
}

func (f *fakeUsers) ListUsers(orderBy, order string) ([]*models.User, error) {
	out := make([]*models.User, 0, len(f.users))
	for _, u := range f.users {
		c := *u
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Login < out[j].Login })
	return out, nil
}

func (f *fakeUsers) SaveUser(u *models.User) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	if f.saveHook != nil {
		f.saveHook(u)
	}
	c := *u
	f.users[u.ID] = &c
	return nil
}

func (f *fakeUsers) DeleteUser(id int64) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	delete(f.users, id)
	return nil
}

type metaWrite struct {
	userID int64
	key    string
	value  string
}

type fakeMeta struct {
	data   map[int64]map[string][]string
	writes []metaWrite
	getErr error
	upsErr error
}

func (f *fakeMeta) GetAllMeta(userID int64) (map[string][]string, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.data[userID], nil
}

func (f *fakeMeta) UpsertMeta(userID int64, key, value string) error {
	if f.upsErr != nil {
		return f.upsErr
	}
	f.writes = append(f.writes, metaWrite{userID, key, value})
	if f.data == nil {
		f.data = map[int64]map[string][]string{}
	}
	if f.data[userID] == nil {
		f.data[userID] = map[string][]string{}
	}
	if existing := f.data[userID][key]; len(existing) > 0 {
		existing[0] = value
	} else {
		f.data[userID][key] = []string{value}
	}
	return nil
}

func (f *fakeMeta) writesFor(key string) []string {
	var out []string
	for _, w := range f.writes {
		if w.key == key {
			out = append(out, w.value)
		}
	}
	return out
}

type fakeNotifier struct {
	to       []string
	previous []string
}

func (f *fakeNotifier) SendEmailChangeNotification(to, displayName, previousEmail string) error {
	f.to = append(f.to, to)
	f.previous = append(f.previous, previousEmail)
	return nil
}

// -------- helpers --------

var (
	editCaps = auth.NewCapabilities(auth.CapEditUsers)
	noCaps   = auth.NewCapabilities()
)

func newUser(id int64, login string) *models.User {
	return &models.User{
		ID:          id,
		Login:       login,
		Pass:        "$P$hash",
		Nicename:    login,
		Email:       login + "@example.com",
		URL:         "http://example.com/" + login,
		Registered:  time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		DisplayName: login + " display",
		FirstName:   "Jane",
		LastName:    "Doe",
		Nickname:    login,
		Description: "a user",
	}
}

func newTestService(users *fakeUsers, metaRepo *fakeMeta, notifier Notifier) *Service {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.Config{
		BaseURL:   "http://api.example.com",
		JWTSecret: "test-secret",
		TokenTTL:  time.Hour,
	}
	return NewService(users, metaRepo, notifier, logger, cfg)
}

func requireAPIError(t *testing.T, err error, code string, status int) *apierr.Error {
	t.Helper()
	require.Error(t, err)
	apiErr, ok := err.(*apierr.Error)
	require.True(t, ok, "expected *apierr.Error, got %T: %v", err, err)
	assert.Equal(t, code, apiErr.Code)
	assert.Equal(t, status, apiErr.Status)
	return apiErr
}

// -------- list --------

func TestListUsersOrdersByLogin(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{
		1: newUser(1, "zed"),
		2: newUser(2, "amy"),
		3: newUser(3, "bob"),
	}}
	svc := newTestService(users, &fakeMeta{}, nil)

	entities, err := svc.ListUsers(editCaps)
	require.NoError(t, err)

	logins := make([]string, 0, len(entities))
	for _, e := range entities {
		logins = append(logins, e.Login)
	}
	assert.Equal(t, []string{"amy", "bob", "zed"}, logins)

	// Metadata is omitted entirely from the collection view.
	for _, e := range entities {
		assert.Nil(t, e.UserMeta)
	}
}

func TestListUsersEmptyCollection(t *testing.T) {
	svc := newTestService(&fakeUsers{users: map[int64]*models.User{}}, &fakeMeta{}, nil)

	entities, err := svc.ListUsers(editCaps)
	require.NoError(t, err)
	require.NotNil(t, entities)
	assert.Empty(t, entities)
}

func TestListUsersUnauthorized(t *testing.T) {
	svc := newTestService(&fakeUsers{users: map[int64]*models.User{1: newUser(1, "amy")}}, &fakeMeta{}, nil)

	_, err := svc.ListUsers(noCaps)
	requireAPIError(t, err, apierr.CodeCannotGet, 401)
}

// -------- get --------

func TestGetUser(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	metaRepo := &fakeMeta{data: map[int64]map[string][]string{
		7: {
			"color":         {"blue"},
			"wp_user_level": {`a:1:{i:0;s:1:"0";}`},
		},
	}}
	svc := newTestService(users, metaRepo, nil)

	entity, err := svc.GetUser(editCaps, 7)
	require.NoError(t, err)

	assert.Equal(t, int64(7), entity.ID)
	assert.Equal(t, "amy", entity.Login)
	assert.Equal(t, "$P$hash", entity.Pass)
	assert.Equal(t, "2024-01-02 03:04:05", entity.Registered)
	assert.Equal(t, "http://api.example.com/users/7", entity.Meta.Links.Self)
	assert.Equal(t, "http://api.example.com/users/7/posts", entity.Meta.Links.Archives)

	require.Contains(t, entity.UserMeta, "color")
	assert.Equal(t, []any{"blue"}, entity.UserMeta["color"])
	require.Len(t, entity.UserMeta["wp_user_level"], 1)
}

func TestGetUserInvalidIDBeforeAnyRepositoryCall(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{}}
	svc := newTestService(users, &fakeMeta{}, nil)

	_, err := svc.GetUser(editCaps, 0)
	requireAPIError(t, err, apierr.CodeInvalidID, 404)
	assert.Zero(t, users.findCalls)

	_, err = svc.GetUser(editCaps, -3)
	requireAPIError(t, err, apierr.CodeInvalidID, 404)
	assert.Zero(t, users.findCalls)
}

func TestGetUserNotFound(t *testing.T) {
	svc := newTestService(&fakeUsers{users: map[int64]*models.User{}}, &fakeMeta{}, nil)

	_, err := svc.GetUser(editCaps, 42)
	requireAPIError(t, err, apierr.CodeInvalidID, 404)
}

func TestGetUserMetadataLoadFailure(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	svc := newTestService(users, &fakeMeta{getErr: assert.AnError}, nil)

	_, err := svc.GetUser(editCaps, 7)
	require.Error(t, err)
	var apiErr *apierr.Error
	assert.False(t, errors.As(err, &apiErr), "repository failures are internal, not API errors")
}

func TestGetUserUnauthorized(t *testing.T) {
	svc := newTestService(&fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}, &fakeMeta{}, nil)

	_, err := svc.GetUser(noCaps, 7)
	requireAPIError(t, err, apierr.CodeCannotGet, 401)

	// Denial does not depend on whether the id exists.
	_, err = svc.GetUser(noCaps, 999)
	requireAPIError(t, err, apierr.CodeCannotGet, 401)
}

// -------- edit --------

func TestEditUserPartialPatch(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	svc := newTestService(users, &fakeMeta{}, nil)

	entity, err := svc.EditUser(editCaps, 7, &models.UserPatch{Email: "a@b.com"})
	require.NoError(t, err)

	assert.Equal(t, "a@b.com", entity.Email)
	assert.Equal(t, "Jane", entity.FirstName)
	assert.Equal(t, "Doe", entity.LastName)
	assert.Equal(t, "amy", entity.Nicename)
}

func TestEditUserEmptyStringsNeverErase(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	svc := newTestService(users, &fakeMeta{}, nil)

	entity, err := svc.EditUser(editCaps, 7, &models.UserPatch{FirstName: "", LastName: "Smith"})
	require.NoError(t, err)

	assert.Equal(t, "Jane", entity.FirstName)
	assert.Equal(t, "Smith", entity.LastName)
}

func TestEditUserNoOpIsIdempotent(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	svc := newTestService(users, &fakeMeta{}, nil)

	before, err := svc.GetUser(editCaps, 7)
	require.NoError(t, err)

	after, err := svc.EditUser(editCaps, 7, &models.UserPatch{})
	require.NoError(t, err)

	assert.Equal(t, before, after)
}

func TestEditUserImmutableFieldsIgnored(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	svc := newTestService(users, &fakeMeta{}, nil)

	// A client submitting protected fields sees them silently dropped at the
	// decoding boundary, never an error.
	var patch models.UserPatch
	body := `{"ID":99,"login":"newname","pass":"x","registered":"2000-01-01 00:00:00","nickname":"amy2"}`
	require.NoError(t, json.Unmarshal([]byte(body), &patch))

	entity, err := svc.EditUser(editCaps, 7, &patch)
	require.NoError(t, err)

	assert.Equal(t, int64(7), entity.ID)
	assert.Equal(t, "amy", entity.Login)
	assert.Equal(t, "$P$hash", entity.Pass)
	assert.Equal(t, "2024-01-02 03:04:05", entity.Registered)
	assert.Equal(t, "amy2", entity.Nickname)
}

func TestEditUserChecksExistenceBeforePermission(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	svc := newTestService(users, &fakeMeta{}, nil)

	// Missing user: not-found wins even without the capability.
	_, err := svc.EditUser(noCaps, 42, &models.UserPatch{})
	requireAPIError(t, err, apierr.CodeInvalidID, 404)

	// Existing user without the capability: denied.
	_, err = svc.EditUser(noCaps, 7, &models.UserPatch{})
	requireAPIError(t, err, apierr.CodeCannotEdit, 401)
}

func TestEditUserReloadsFromStore(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	// The store normalizes on save; the response must reflect the stored
	// form, not the in-memory patched record.
	users.saveHook = func(u *models.User) {
		u.Nicename = "normalized-" + u.Nicename
	}
	svc := newTestService(users, &fakeMeta{}, nil)

	entity, err := svc.EditUser(editCaps, 7, &models.UserPatch{Nicename: "Amy!"})
	require.NoError(t, err)
	assert.Equal(t, "normalized-Amy!", entity.Nicename)
}

func TestEditUserWritesMetadataPerValue(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	metaRepo := &fakeMeta{}
	svc := newTestService(users, metaRepo, nil)

	_, err := svc.EditUser(editCaps, 7, &models.UserPatch{UserMeta: map[string]any{
		"color": "blue",
		"tags":  []any{"a", "b"},
		"blob": map[string]any{
			"unserialized": []any{"0"},
			"serialized":   "ignored on write",
		},
	}})
	require.NoError(t, err)

	// A bare scalar is a one-element sequence; lists write one value at a
	// time in order; wrappers write their decoded form re-serialized.
	assert.Equal(t, []string{"blue"}, metaRepo.writesFor("color"))
	assert.Equal(t, []string{"a", "b"}, metaRepo.writesFor("tags"))
	assert.Equal(t, []string{`a:1:{i:0;s:1:"0";}`}, metaRepo.writesFor("blob"))
}

func TestEditUserMetadataWriteFailure(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	metaRepo := &fakeMeta{upsErr: assert.AnError}
	svc := newTestService(users, metaRepo, nil)

	_, err := svc.EditUser(editCaps, 7, &models.UserPatch{UserMeta: map[string]any{"color": "blue"}})
	require.Error(t, err)
	// Field changes were already persisted; the metadata loop does not roll
	// them back.
	assert.Equal(t, "amy", users.users[7].Login)
}

func TestEditUserValidationPassthrough(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	users.saveErr = apierr.New("existing_user_email", "Sorry, that email address is already used!", 400)
	svc := newTestService(users, &fakeMeta{}, nil)

	_, err := svc.EditUser(editCaps, 7, &models.UserPatch{Email: "taken@example.com"})
	requireAPIError(t, err, "existing_user_email", 400)
}

func TestEditUserNotifiesOnEmailChange(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	notifier := &fakeNotifier{}
	svc := newTestService(users, &fakeMeta{}, notifier)

	_, err := svc.EditUser(editCaps, 7, &models.UserPatch{FirstName: "Janet"})
	require.NoError(t, err)
	assert.Empty(t, notifier.to)

	_, err = svc.EditUser(editCaps, 7, &models.UserPatch{Email: "new@example.com"})
	require.NoError(t, err)
	require.Equal(t, []string{"new@example.com"}, notifier.to)
	assert.Equal(t, []string{"amy@example.com"}, notifier.previous)
}

// -------- delete --------

func TestDeleteUser(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	svc := newTestService(users, &fakeMeta{}, nil)

	require.NoError(t, svc.DeleteUser(editCaps, 7))
	assert.NotContains(t, users.users, int64(7))
}

func TestDeleteUserInvalidOrMissingID(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{}}
	svc := newTestService(users, &fakeMeta{}, nil)

	err := svc.DeleteUser(editCaps, 0)
	requireAPIError(t, err, apierr.CodeInvalidID, 404)
	assert.Zero(t, users.findCalls)

	err = svc.DeleteUser(editCaps, 42)
	requireAPIError(t, err, apierr.CodeInvalidID, 404)
}

func TestDeleteUserRepositoryFailure(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	users.deleteErr = assert.AnError
	svc := newTestService(users, &fakeMeta{}, nil)

	err := svc.DeleteUser(editCaps, 7)
	requireAPIError(t, err, apierr.CodeCannotDelete, 500)
}

func TestDeleteUserChecksExistenceBeforePermission(t *testing.T) {
	users := &fakeUsers{users: map[int64]*models.User{7: newUser(7, "amy")}}
	svc := newTestService(users, &fakeMeta{}, nil)

	err := svc.DeleteUser(noCaps, 42)
	requireAPIError(t, err, apierr.CodeInvalidID, 404)

	err = svc.DeleteUser(noCaps, 7)
	requireAPIError(t, err, apierr.CodeCannotEdit, 401)
}
