package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/robert0714/scm-ldap-plugin/internal/auth"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/metrics"
	"github.com/robert0714/scm-ldap-plugin/internal/mocks"
	"github.com/robert0714/scm-ldap-plugin/internal/models"
	"github.com/robert0714/scm-ldap-plugin/internal/store"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("sqlite", ":memory:", nil)
	require.NoError(t, err)
	return s
}

// disabledAudit returns an audit service that drops everything.
func disabledAudit(db *store.Store) *AuditService {
	return NewAuditService(db, false, 1)
}

// newUserServiceForAuth builds a UserService with the given auth providers for
// authenticate tests. Metrics are no-op, audit is disabled.
func newUserServiceForAuth(
	db *store.Store,
	localProvider, ldapProvider, httpAPIProvider core.AuthProvider,
	authMode string,
) *UserService {
	return NewUserService(
		db, localProvider, ldapProvider, httpAPIProvider, authMode,
		disabledAudit(db), metrics.NewNoopMetrics(), nil,
	)
}

// mockProvider builds a provider mock whose Name is fixed; tests add their own
// Authenticate expectations.
func mockProvider(ctrl *gomock.Controller, name string) *mocks.MockAuthProvider {
	p := mocks.NewMockAuthProvider(ctrl)
	p.EXPECT().Name().Return(name).AnyTimes()
	return p
}

func makeTestUser(t *testing.T, db *store.Store) *models.User {
	t.Helper()
	u := &models.User{
		ID:           uuid.New().String(),
		Username:     "testuser-" + uuid.New().String()[:8],
		Email:        uuid.New().String() + "@example.com",
		PasswordHash: "hash",
		Role:         "user",
		AuthSource:   AuthModeLocal,
	}
	require.NoError(t, db.CreateUser(u))
	return u
}

func makeExternalUser(t *testing.T, db *store.Store, authSource string) *models.User {
	t.Helper()
	u := &models.User{
		ID:         uuid.New().String(),
		Username:   "extuser-" + uuid.New().String()[:8],
		Email:      uuid.New().String() + "@example.com",
		Role:       "user",
		ExternalID: "ext-" + uuid.New().String()[:8],
		AuthSource: authSource,
	}
	require.NoError(t, db.CreateUser(u))
	return u
}

func TestAuthenticate_LocalSuccess(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeTestUser(t, db) // auth_source=local

	local := mockProvider(ctrl, AuthModeLocal)
	local.EXPECT().
		Authenticate(gomock.Any(), u.Username, "correct-password").
		Return(&core.AuthResult{Username: u.Username, Success: true}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, local, nil, nil, AuthModeLocal)
	user, groups, err := svc.Authenticate(context.Background(), u.Username, "correct-password")
	require.NoError(t, err)
	assert.Equal(t, u.ID, user.ID)
	assert.Equal(t, u.Username, user.Username)
	assert.Empty(t, groups)
}

func TestAuthenticate_LocalProviderNil(t *testing.T) {
	db := setupTestStore(t)

	u := makeTestUser(t, db) // auth_source=local, localProvider=nil

	svc := newUserServiceForAuth(db, nil, nil, nil, AuthModeLocal)
	_, _, err := svc.Authenticate(context.Background(), u.Username, "any")
	assert.ErrorIs(t, err, ErrAuthProviderFailed)
}

func TestAuthenticate_WrongPassword(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeTestUser(t, db)

	local := mockProvider(ctrl, AuthModeLocal)
	local.EXPECT().
		Authenticate(gomock.Any(), u.Username, "wrong").
		Return(nil, auth.ErrInvalidCredentials).
		Times(1)

	svc := newUserServiceForAuth(db, local, nil, nil, AuthModeLocal)
	_, _, err := svc.Authenticate(context.Background(), u.Username, "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotErrorIs(t, err, ErrUserNotFound)
}

// TestAuthenticate_LocalSuccessFalse covers the provider returning a non-nil
// result with Success=false and a nil error, distinct from the error-return
// path.
func TestAuthenticate_LocalSuccessFalse(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeTestUser(t, db)

	local := mockProvider(ctrl, AuthModeLocal)
	local.EXPECT().
		Authenticate(gomock.Any(), u.Username, "bad-pass").
		Return(&core.AuthResult{Username: u.Username, Success: false}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, local, nil, nil, AuthModeLocal)
	_, _, err := svc.Authenticate(context.Background(), u.Username, "bad-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

// TestAuthenticate_ProviderErrorCollapsed verifies that infrastructure errors
// from a provider are indistinguishable from a rejected login for the caller.
func TestAuthenticate_ProviderErrorCollapsed(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeExternalUser(t, db, AuthModeHTTPAPI)

	httpAPI := mockProvider(ctrl, AuthModeHTTPAPI)
	httpAPI.EXPECT().
		Authenticate(gomock.Any(), u.Username, "pass").
		Return(nil, errors.New("connection refused")).
		Times(1)

	svc := newUserServiceForAuth(db, nil, nil, httpAPI, AuthModeHTTPAPI)
	_, _, err := svc.Authenticate(context.Background(), u.Username, "pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	assert.NotContains(t, err.Error(), "connection refused")
}

func TestAuthenticate_LDAPExistingUser(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeExternalUser(t, db, AuthModeLDAP)

	ldapProvider := mockProvider(ctrl, AuthModeLDAP)
	ldapProvider.EXPECT().
		Authenticate(gomock.Any(), u.Username, "pass").
		Return(&core.AuthResult{
			Username:   u.Username,
			ExternalID: u.ExternalID,
			ExternalDN: "uid=" + u.Username + ",ou=Staff,dc=example,dc=org",
			Email:      "fresh@example.org",
			FullName:   "Fresh Name",
			Groups:     []string{"dev", "ops"},
			Success:    true,
		}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, nil, ldapProvider, nil, AuthModeLDAP)
	user, groups, err := svc.Authenticate(context.Background(), u.Username, "pass")
	require.NoError(t, err)

	assert.Equal(t, u.ID, user.ID)
	assert.Equal(t, []string{"dev", "ops"}, groups)

	// Directory data is synced into the local record on every login
	assert.Equal(t, "fresh@example.org", user.Email)
	assert.Equal(t, "Fresh Name", user.FullName)
	assert.Equal(t, "uid="+u.Username+",ou=Staff,dc=example,dc=org", user.ExternalDN)
}

func TestAuthenticate_LDAPProviderNil(t *testing.T) {
	db := setupTestStore(t)

	u := makeExternalUser(t, db, AuthModeLDAP)

	svc := newUserServiceForAuth(db, nil, nil, nil, AuthModeLDAP)
	_, _, err := svc.Authenticate(context.Background(), u.Username, "pass")
	assert.ErrorIs(t, err, ErrAuthProviderFailed)
}

func TestAuthenticate_HTTPAPIExistingUser(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeExternalUser(t, db, AuthModeHTTPAPI)

	httpAPI := mockProvider(ctrl, AuthModeHTTPAPI)
	httpAPI.EXPECT().
		Authenticate(gomock.Any(), u.Username, "pass").
		Return(&core.AuthResult{
			Username:   u.Username,
			ExternalID: u.ExternalID,
			Success:    true,
		}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, nil, nil, httpAPI, AuthModeHTTPAPI)
	user, _, err := svc.Authenticate(context.Background(), u.Username, "pass")
	require.NoError(t, err)
	assert.Equal(t, u.Username, user.Username)
}

// TestAuthenticate_HTTPAPIExistingUser_SuccessFalse covers Success=false for
// an existing external user. No sync occurs because the login was rejected.
func TestAuthenticate_HTTPAPIExistingUser_SuccessFalse(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeExternalUser(t, db, AuthModeHTTPAPI)

	httpAPI := mockProvider(ctrl, AuthModeHTTPAPI)
	httpAPI.EXPECT().
		Authenticate(gomock.Any(), u.Username, "bad-pass").
		Return(&core.AuthResult{Username: u.Username, ExternalID: u.ExternalID, Success: false}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, nil, nil, httpAPI, AuthModeHTTPAPI)
	_, _, err := svc.Authenticate(context.Background(), u.Username, "bad-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_UserNotFound_LocalMode(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	// No expectations: the provider must not be consulted for a user
	// that does not exist
	local := mocks.NewMockAuthProvider(ctrl)

	svc := newUserServiceForAuth(db, local, nil, nil, AuthModeLocal)
	_, _, err := svc.Authenticate(context.Background(), "nonexistent-user", "pass")
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthenticate_LDAPNewUser_Success(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	ldapProvider := mockProvider(ctrl, AuthModeLDAP)
	ldapProvider.EXPECT().
		Authenticate(gomock.Any(), "newcomer", "pass").
		Return(&core.AuthResult{
			Username:   "newcomer",
			ExternalID: "newcomer",
			ExternalDN: "uid=newcomer,ou=People,dc=example,dc=org",
			Email:      "newcomer@example.org",
			FullName:   "New Comer",
			Groups:     []string{"staff"},
			Success:    true,
		}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, nil, ldapProvider, nil, AuthModeLDAP)
	user, groups, err := svc.Authenticate(context.Background(), "newcomer", "pass")
	require.NoError(t, err)

	assert.Equal(t, "newcomer", user.Username)
	assert.Equal(t, AuthModeLDAP, user.AuthSource)
	assert.Equal(t, "uid=newcomer,ou=People,dc=example,dc=org", user.ExternalDN)
	assert.Equal(t, []string{"staff"}, groups)

	// The user is persisted for future logins
	stored, err := db.GetUserByUsername("newcomer")
	require.NoError(t, err)
	assert.Equal(t, AuthModeLDAP, stored.AuthSource)
}

func TestAuthenticate_LDAPNewUser_AuthError(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	ldapProvider := mockProvider(ctrl, AuthModeLDAP)
	ldapProvider.EXPECT().
		Authenticate(gomock.Any(), "ghost", "pass").
		Return(nil, auth.ErrUserNotFound).
		Times(1)

	svc := newUserServiceForAuth(db, nil, ldapProvider, nil, AuthModeLDAP)
	_, _, err := svc.Authenticate(context.Background(), "ghost", "pass")
	assert.ErrorIs(t, err, ErrUserNotFound)

	// No record was created for the failed attempt
	_, err = db.GetUserByUsername("ghost")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

// TestAuthenticate_HTTPAPINewUser_SuccessFalse covers a new-user attempt the
// provider rejects with Success=false and a nil error.
func TestAuthenticate_HTTPAPINewUser_SuccessFalse(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	httpAPI := mockProvider(ctrl, AuthModeHTTPAPI)
	httpAPI.EXPECT().
		Authenticate(gomock.Any(), "ghost-user", "bad-pass").
		Return(&core.AuthResult{Username: "ghost-user", Success: false}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, nil, nil, httpAPI, AuthModeHTTPAPI)
	_, _, err := svc.Authenticate(context.Background(), "ghost-user", "bad-pass")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = db.GetUserByUsername("ghost-user")
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}

// TestAuthenticate_NewUserUsernameConflict covers the directory reporting a
// username that a local account already owns.
func TestAuthenticate_NewUserUsernameConflict(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	local := makeTestUser(t, db)

	ldapProvider := mockProvider(ctrl, AuthModeLDAP)
	ldapProvider.EXPECT().
		Authenticate(gomock.Any(), "Some.Login", "pass").
		Return(&core.AuthResult{
			Username:   local.Username,
			ExternalID: "ext-collide",
			Success:    true,
		}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, nil, ldapProvider, nil, AuthModeLDAP)
	_, _, err := svc.Authenticate(context.Background(), "Some.Login", "pass")
	assert.ErrorIs(t, err, ErrUserSyncFailed)
	// The conflict stays visible so the API can ask for an administrator
	assert.ErrorIs(t, err, ErrUsernameConflict)
}

// TestAuthenticate_ExistingUserSyncConflict covers a sync failure after a
// successful login of an existing user. The stale record is kept.
func TestAuthenticate_ExistingUserSyncConflict(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeExternalUser(t, db, AuthModeLDAP)
	other := makeExternalUser(t, db, AuthModeLDAP)

	// The directory reports a username that the other account owns
	ldapProvider := mockProvider(ctrl, AuthModeLDAP)
	ldapProvider.EXPECT().
		Authenticate(gomock.Any(), u.Username, "pass").
		Return(&core.AuthResult{
			Username:   other.Username,
			ExternalID: u.ExternalID,
			Groups:     []string{"dev"},
			Success:    true,
		}, nil).
		Times(1)

	svc := newUserServiceForAuth(db, nil, ldapProvider, nil, AuthModeLDAP)
	user, groups, err := svc.Authenticate(context.Background(), u.Username, "pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, user.ID)
	assert.Equal(t, u.Username, user.Username)
	assert.Equal(t, []string{"dev"}, groups)
}

func TestAuthenticate_DirectoryMetrics(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeExternalUser(t, db, AuthModeLDAP)

	ldapProvider := mockProvider(ctrl, AuthModeLDAP)
	ldapProvider.EXPECT().
		Authenticate(gomock.Any(), u.Username, "pass").
		Return(&core.AuthResult{
			Username:   u.Username,
			ExternalID: u.ExternalID,
			Groups:     []string{"dev", "ops"},
			Success:    true,
		}, nil).
		Times(1)

	rec := mocks.NewMockRecorder(ctrl)
	rec.EXPECT().RecordAuthAttempt(AuthModeLDAP, true, gomock.Any()).Times(1)
	rec.EXPECT().RecordDirectoryAuthentication("success", gomock.Any()).Times(1)
	rec.EXPECT().RecordDirectoryGroups(2).Times(1)
	rec.EXPECT().RecordLogin(AuthModeLDAP, true).Times(1)

	svc := NewUserService(db, nil, ldapProvider, nil, AuthModeLDAP, disabledAudit(db), rec, nil)
	_, _, err := svc.Authenticate(context.Background(), u.Username, "pass")
	require.NoError(t, err)
}

func TestAuthenticate_AuditTrail(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeTestUser(t, db)

	local := mockProvider(ctrl, AuthModeLocal)
	local.EXPECT().
		Authenticate(gomock.Any(), u.Username, "good").
		Return(&core.AuthResult{Username: u.Username, Success: true}, nil).
		Times(1)
	local.EXPECT().
		Authenticate(gomock.Any(), u.Username, "bad").
		Return(nil, auth.ErrInvalidCredentials).
		Times(1)

	audit := NewAuditService(db, true, 16)
	svc := NewUserService(db, local, nil, nil, AuthModeLocal, audit, metrics.NewNoopMetrics(), nil)

	_, _, err := svc.Authenticate(context.Background(), u.Username, "good")
	require.NoError(t, err)
	_, _, err = svc.Authenticate(context.Background(), u.Username, "bad")
	require.Error(t, err)
	_, _, err = svc.Authenticate(context.Background(), "nobody", "irrelevant")
	require.Error(t, err)

	// Entries flush asynchronously
	countEvents := func(eventType models.EventType) int {
		logs, _, err := db.GetAuditLogsPaginated(
			store.NewPaginationParams(1, 50, ""),
			store.AuditLogFilters{EventType: eventType},
		)
		if err != nil {
			return -1
		}
		return len(logs)
	}
	assert.Eventually(t, func() bool {
		return countEvents(models.EventAuthenticationSuccess) == 1 &&
			countEvents(models.EventAuthenticationFailure) == 1 &&
			countEvents(models.EventUserNotFound) == 1
	}, 5*time.Second, 50*time.Millisecond)

	require.NoError(t, audit.Shutdown(context.Background()))

	// The trail records the precise failure reason and the username the
	// attempt was made for, even though the response did not
	logs, _, err := db.GetAuditLogsPaginated(
		store.NewPaginationParams(1, 50, ""),
		store.AuditLogFilters{EventType: models.EventUserNotFound},
	)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, "nobody", logs[0].ActorUsername)
	assert.False(t, logs[0].Success)
	assert.NotEmpty(t, logs[0].ErrorMessage)
}

func TestAuthenticate_AuditTrailProviderDetails(t *testing.T) {
	db := setupTestStore(t)
	ctrl := gomock.NewController(t)

	u := makeExternalUser(t, db, AuthModeLDAP)

	ldapProvider := mockProvider(ctrl, AuthModeLDAP)
	ldapProvider.EXPECT().
		Authenticate(gomock.Any(), u.Username, "pass").
		Return(&core.AuthResult{
			Username:   u.Username,
			ExternalID: u.ExternalID,
			Groups:     []string{"crew", "heart-of-gold"},
			Success:    true,
			Details: map[string]any{
				"groups_entry":  1,
				"groups_search": 2,
			},
		}, nil).
		Times(1)

	audit := NewAuditService(db, true, 16)
	svc := NewUserService(db, nil, ldapProvider, nil, AuthModeLDAP, audit, metrics.NewNoopMetrics(), nil)

	_, _, err := svc.Authenticate(context.Background(), u.Username, "pass")
	require.NoError(t, err)

	var entry *models.AuditLog
	assert.Eventually(t, func() bool {
		logs, _, err := db.GetAuditLogsPaginated(
			store.NewPaginationParams(1, 10, ""),
			store.AuditLogFilters{EventType: models.EventAuthenticationSuccess},
		)
		if err != nil || len(logs) != 1 {
			return false
		}
		entry = &logs[0]
		return true
	}, 5*time.Second, 50*time.Millisecond)
	require.NoError(t, audit.Shutdown(context.Background()))

	// The merged group list is channel-blind, only the audit detail keeps
	// the per-channel split. Numbers come back as float64 from JSON.
	require.NotNil(t, entry)
	assert.EqualValues(t, 2, entry.Details["group_count"])
	assert.EqualValues(t, 1, entry.Details["groups_entry"])
	assert.EqualValues(t, 2, entry.Details["groups_search"])
}

func TestDirectoryResultLabels(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"success", nil, "success"},
		{"not found", auth.ErrUserNotFound, "not_found"},
		{"bad password", auth.ErrInvalidCredentials, "failed"},
		{"infrastructure", errors.New("dial tcp: connection refused"), "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, directoryResult(tt.err))
		})
	}
}

func TestGetUserByID(t *testing.T) {
	db := setupTestStore(t)
	svc := newUserServiceForAuth(db, nil, nil, nil, AuthModeLocal)

	u := makeTestUser(t, db)

	found, err := svc.GetUserByID(u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.Username, found.Username)

	_, err = svc.GetUserByID(uuid.New().String())
	assert.ErrorIs(t, err, store.ErrRecordNotFound)
}
