package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/robert0714/scm-ldap-plugin/internal/auth"
	"github.com/robert0714/scm-ldap-plugin/internal/core"
	"github.com/robert0714/scm-ldap-plugin/internal/ldap"
	"github.com/robert0714/scm-ldap-plugin/internal/metrics"
	"github.com/robert0714/scm-ldap-plugin/internal/models"
	"github.com/robert0714/scm-ldap-plugin/internal/services"
	"github.com/robert0714/scm-ldap-plugin/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newHandlerTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New("sqlite", ":memory:", nil)
	require.NoError(t, err)
	return s
}

// quietAudit returns a disabled audit service for tests that do not
// inspect audit output.
func quietAudit(db *store.Store) *services.AuditService {
	return services.NewAuditService(db, false, 1)
}

func createLocalUser(t *testing.T, s *store.Store, username, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &models.User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		Role:         "user",
		AuthSource:   services.AuthModeLocal,
	}
	require.NoError(t, s.CreateUser(user))
	return user
}

// stubDirectory is a directory engine with a canned answer.
type stubDirectory struct {
	result *ldap.Result
}

func (s *stubDirectory) Authenticate(_, _ string) *ldap.Result {
	return s.result
}

func acceptingDirectory(username string, groups ...string) *stubDirectory {
	return &stubDirectory{result: &ldap.Result{
		Status: ldap.StatusSuccess,
		User: &ldap.DirectoryUser{
			ID:          username,
			DisplayName: "Tricia McMillan",
			Mail:        username + "@hitchhiker.example",
			DN:          "uid=" + username + ",ou=People,dc=hitchhiker,dc=example",
		},
		Groups: groups,
		State:  &ldap.State{},
	}}
}

// newLoginRouter wires the login endpoint against real services backed
// by an in-memory store.
func newLoginRouter(
	db *store.Store,
	localProvider, ldapProvider core.AuthProvider,
	authMode string,
) *gin.Engine {
	gin.SetMode(gin.TestMode)

	userService := services.NewUserService(
		db, localProvider, ldapProvider, nil, authMode,
		quietAudit(db), metrics.NewNoopMetrics(), nil,
	)

	r := gin.New()
	r.POST("/api/v1/auth/login", NewAuthHandler(userService).Login)
	return r
}

// sendJSON sends a JSON body and returns the recorded response.
func sendJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req, err := http.NewRequestWithContext(
		context.Background(),
		method,
		path,
		&buf,
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func postJSON(t *testing.T, r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return sendJSON(t, r, http.MethodPost, path, body)
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var data map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &data))
	return data
}

// ============================================================
// Login with the local provider
// ============================================================

func TestLogin_LocalSuccess(t *testing.T) {
	db := newHandlerTestStore(t)
	u := createLocalUser(t, db, "zaphod", "heart-of-gold")

	r := newLoginRouter(db, auth.NewLocalAuthProvider(db), nil, services.AuthModeLocal)

	w := postJSON(t, r, "/api/v1/auth/login", gin.H{
		"username": "zaphod",
		"password": "heart-of-gold",
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)
	user, ok := data["user"].(map[string]any)
	require.True(t, ok, "response must carry a user object")
	assert.Equal(t, u.ID, user["id"])
	assert.Equal(t, "zaphod", user["username"])
	assert.Equal(t, "local", user["authSource"])

	// The credential material must never show up in a response
	assert.NotContains(t, w.Body.String(), "password")
	assert.NotContains(t, w.Body.String(), u.PasswordHash)
}

func TestLogin_SameResponseForUnknownUserAndWrongPassword(t *testing.T) {
	db := newHandlerTestStore(t)
	createLocalUser(t, db, "zaphod", "heart-of-gold")

	r := newLoginRouter(db, auth.NewLocalAuthProvider(db), nil, services.AuthModeLocal)

	unknown := postJSON(t, r, "/api/v1/auth/login", gin.H{
		"username": "no-such-user",
		"password": "whatever",
	})
	wrongPassword := postJSON(t, r, "/api/v1/auth/login", gin.H{
		"username": "zaphod",
		"password": "wrong",
	})

	// Byte-identical rejections, the endpoint must not leak which
	// usernames exist
	assert.Equal(t, http.StatusUnauthorized, unknown.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, unknown.Body.String(), wrongPassword.Body.String())
	assert.Contains(t, unknown.Body.String(), invalidCredentialsMessage)
}

func TestLogin_MissingFields(t *testing.T) {
	db := newHandlerTestStore(t)
	r := newLoginRouter(db, auth.NewLocalAuthProvider(db), nil, services.AuthModeLocal)

	for name, body := range map[string]gin.H{
		"no password": {"username": "zaphod"},
		"no username": {"password": "heart-of-gold"},
		"empty body":  {},
	} {
		t.Run(name, func(t *testing.T) {
			w := postJSON(t, r, "/api/v1/auth/login", body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, w.Body.String(), "required")
		})
	}
}

func TestLogin_MalformedBody(t *testing.T) {
	db := newHandlerTestStore(t)
	r := newLoginRouter(db, auth.NewLocalAuthProvider(db), nil, services.AuthModeLocal)

	req, err := http.NewRequestWithContext(
		context.Background(),
		http.MethodPost,
		"/api/v1/auth/login",
		bytes.NewBufferString("{not json"),
	)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

// ============================================================
// Login with the directory provider
// ============================================================

func TestLogin_DirectoryUserProvisionedOnFirstLogin(t *testing.T) {
	db := newHandlerTestStore(t)

	directory := auth.NewLDAPAuthProvider(acceptingDirectory("trillian", "crew", "bridge"))
	r := newLoginRouter(db, nil, directory, services.AuthModeLDAP)

	w := postJSON(t, r, "/api/v1/auth/login", gin.H{
		"username": "trillian",
		"password": "dont-panic",
	})
	require.Equal(t, http.StatusOK, w.Code)

	data := decodeBody(t, w)
	assert.Equal(t, []any{"crew", "bridge"}, data["groups"])

	user, ok := data["user"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "trillian", user["username"])
	assert.Equal(t, "ldap", user["authSource"])
	assert.Equal(t, "uid=trillian,ou=People,dc=hitchhiker,dc=example", user["externalDn"])

	// First login created the shadow record
	stored, err := db.GetUserByUsername("trillian")
	require.NoError(t, err)
	assert.Equal(t, "ldap", stored.AuthSource)
	assert.Empty(t, stored.PasswordHash)
}

func TestLogin_DirectoryRejectsCredentials(t *testing.T) {
	db := newHandlerTestStore(t)

	directory := auth.NewLDAPAuthProvider(&stubDirectory{result: &ldap.Result{
		Status: ldap.StatusFailed,
		State:  &ldap.State{},
	}})
	r := newLoginRouter(db, nil, directory, services.AuthModeLDAP)

	w := postJSON(t, r, "/api/v1/auth/login", gin.H{
		"username": "trillian",
		"password": "wrong",
	})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), invalidCredentialsMessage)
}

func TestLogin_UnknownDirectoryUserLooksLikeBadPassword(t *testing.T) {
	db := newHandlerTestStore(t)

	notFound := auth.NewLDAPAuthProvider(&stubDirectory{result: &ldap.Result{
		Status: ldap.StatusNotFound,
		State:  &ldap.State{},
	}})
	rejected := auth.NewLDAPAuthProvider(&stubDirectory{result: &ldap.Result{
		Status: ldap.StatusFailed,
		State:  &ldap.State{},
	}})

	missing := postJSON(t,
		newLoginRouter(db, nil, notFound, services.AuthModeLDAP),
		"/api/v1/auth/login",
		gin.H{"username": "ghost", "password": "boo"},
	)
	wrongPassword := postJSON(t,
		newLoginRouter(db, nil, rejected, services.AuthModeLDAP),
		"/api/v1/auth/login",
		gin.H{"username": "trillian", "password": "wrong"},
	)

	assert.Equal(t, http.StatusUnauthorized, missing.Code)
	assert.Equal(t, http.StatusUnauthorized, wrongPassword.Code)
	assert.Equal(t, missing.Body.String(), wrongPassword.Body.String())
}

func TestLogin_DirectoryUsernameConflict(t *testing.T) {
	db := newHandlerTestStore(t)
	createLocalUser(t, db, "arthur", "tea-please")

	// The directory resolves the login to a username a local account
	// already owns
	directory := auth.NewLDAPAuthProvider(&stubDirectory{result: &ldap.Result{
		Status: ldap.StatusSuccess,
		User: &ldap.DirectoryUser{
			ID: "arthur",
			DN: "uid=arthur,ou=People,dc=hitchhiker,dc=example",
		},
		State: &ldap.State{},
	}})
	r := newLoginRouter(db, nil, directory, services.AuthModeLDAP)

	w := postJSON(t, r, "/api/v1/auth/login", gin.H{
		"username": "arthur.dent",
		"password": "dont-panic",
	})

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), "conflict")
}

func TestLogin_ProviderNotConfigured(t *testing.T) {
	db := newHandlerTestStore(t)

	// Directory mode without a wired provider
	r := newLoginRouter(db, nil, nil, services.AuthModeLDAP)

	w := postJSON(t, r, "/api/v1/auth/login", gin.H{
		"username": "zaphod",
		"password": "heart-of-gold",
	})

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "not available")
}
