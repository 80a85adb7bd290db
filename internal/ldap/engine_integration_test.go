package ldap

import (
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/jimlambrt/gldap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testServiceDN  = "cn=service,dc=hitchhiker,dc=com"
	testServicePW  = "servicepw"
	testTrillianDN = "uid=trillian,ou=people,dc=hitchhiker,dc=com"
	testTrillianPW = "trillian123"
)

// startDirectory runs an in-process directory server seeded with one
// service account, one user and two groups. It returns the host URL.
func startDirectory(t *testing.T) string {
	t.Helper()

	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().String()
	require.NoError(t, l.Close())

	s, err := gldap.NewServer()
	require.NoError(t, err)

	mux, err := gldap.NewMux()
	require.NoError(t, err)
	require.NoError(t, mux.Bind(directoryBind))
	require.NoError(t, mux.Search(directorySearch))
	require.NoError(t, s.Router(mux))

	go func() {
		_ = s.Run(addr)
	}()
	t.Cleanup(func() { _ = s.Stop() })

	require.Eventually(t, func() bool {
		conn, err := net.Dial("tcp", addr)
		if err != nil {
			return false
		}
		_ = conn.Close()
		return true
	}, 5*time.Second, 50*time.Millisecond)

	return "ldap://" + addr
}

func directoryBind(w *gldap.ResponseWriter, r *gldap.Request) {
	resp := r.NewBindResponse(gldap.WithResponseCode(gldap.ResultInvalidCredentials))
	defer func() { _ = w.Write(resp) }()

	m, err := r.GetSimpleBindMessage()
	if err != nil {
		return
	}

	password := string(m.Password)
	switch m.UserName {
	case "":
		if password == "" {
			resp.SetResultCode(gldap.ResultSuccess)
		}
	case testServiceDN:
		if password == testServicePW {
			resp.SetResultCode(gldap.ResultSuccess)
		}
	case testTrillianDN:
		if password == testTrillianPW {
			resp.SetResultCode(gldap.ResultSuccess)
		}
	}
}

func directorySearch(w *gldap.ResponseWriter, r *gldap.Request) {
	resp := r.NewSearchDoneResponse()
	defer func() { _ = w.Write(resp) }()

	m, err := r.GetSearchMessage()
	if err != nil {
		return
	}

	switch m.BaseDN {
	case "ou=people,dc=hitchhiker,dc=com":
		if strings.Contains(m.Filter, "uid=trillian") {
			entry := r.NewSearchResponseEntry(testTrillianDN, gldap.WithAttributes(map[string][]string{
				"uid":      {"trillian"},
				"cn":       {"Tricia McMillan"},
				"mail":     {"tricia.mcmillan@hitchhiker.com"},
				"memberOf": {"cn=crew,ou=groups,dc=hitchhiker,dc=com"},
			}))
			_ = w.Write(entry)
		}
	case "ou=groups,dc=hitchhiker,dc=com":
		for _, group := range []string{"admins", "HeartOfGold"} {
			entry := r.NewSearchResponseEntry(
				fmt.Sprintf("cn=%s,ou=groups,dc=hitchhiker,dc=com", group),
				gldap.WithAttributes(map[string][]string{"cn": {group}}),
			)
			_ = w.Write(entry)
		}
	}
}

func TestEngineAgainstDirectory(t *testing.T) {
	cfg := testConfig()
	cfg.HostURL = startDirectory(t)
	cfg.ConnectTimeout = 5 * time.Second
	cfg.ReadTimeout = 5 * time.Second

	logger := zap.NewNop()
	eng := NewEngine(cfg, nil, nil, logger)

	t.Run("successful authentication", func(t *testing.T) {
		res := eng.Authenticate("trillian", testTrillianPW)

		require.Equal(t, StatusSuccess, res.Status)
		require.NotNil(t, res.User)
		assert.Equal(t, "trillian", res.User.ID)
		assert.Equal(t, "Tricia McMillan", res.User.DisplayName)
		assert.Equal(t, "tricia.mcmillan@hitchhiker.com", res.User.Mail)
		assert.Equal(t, testTrillianDN, res.User.DN)

		// groups merge the group search with the entry's own attribute
		assert.Subset(t, res.Groups, []string{"admins"})
		assert.Equal(t, []string{"HeartOfGold", "admins", "crew"}, res.Groups)
		assert.Equal(t, GroupChannels{Entry: 1, Search: 2}, res.GroupChannels)

		require.NotNil(t, res.State.Bind)
		require.NotNil(t, res.State.SearchUser)
		require.NotNil(t, res.State.AuthenticateUser)
		assert.True(t, *res.State.Bind)
		assert.True(t, *res.State.SearchUser)
		assert.True(t, *res.State.AuthenticateUser)
		assert.NoError(t, res.State.Err())
	})

	t.Run("wrong password", func(t *testing.T) {
		res := eng.Authenticate("trillian", "wrong")

		assert.Equal(t, StatusFailed, res.Status)
		assert.Nil(t, res.User)
		require.NotNil(t, res.State.AuthenticateUser)
		assert.False(t, *res.State.AuthenticateUser)
		assert.ErrorIs(t, res.State.Err(), ErrCredentials)
	})

	t.Run("empty password", func(t *testing.T) {
		res := eng.Authenticate("trillian", "")

		assert.Equal(t, StatusFailed, res.Status)
		require.NotNil(t, res.State.AuthenticateUser)
		assert.False(t, *res.State.AuthenticateUser)
	})

	t.Run("unknown user", func(t *testing.T) {
		res := eng.Authenticate("zaphod", "beeblebrox")

		assert.Equal(t, StatusNotFound, res.Status)
		require.NotNil(t, res.State.SearchUser)
		assert.True(t, *res.State.Bind)
		assert.False(t, *res.State.SearchUser)
		assert.Nil(t, res.State.AuthenticateUser)
	})

	t.Run("wrong service credentials", func(t *testing.T) {
		bad := cfg.clone()
		bad.ConnectionPassword = "nope"

		res := NewEngine(bad, nil, nil, logger).Authenticate("trillian", testTrillianPW)

		assert.Equal(t, StatusNotFound, res.Status)
		require.NotNil(t, res.State.Bind)
		assert.False(t, *res.State.Bind)
		assert.ErrorIs(t, res.State.Err(), ErrConnection)
	})

	t.Run("anonymous service bind", func(t *testing.T) {
		anon := cfg.clone()
		anon.ConnectionDN = ""
		anon.ConnectionPassword = ""

		res := NewEngine(anon, nil, nil, logger).Authenticate("trillian", testTrillianPW)

		require.Equal(t, StatusSuccess, res.Status)
		assert.Equal(t, "trillian", res.User.ID)
	})

	t.Run("unreachable directory", func(t *testing.T) {
		dead := cfg.clone()
		dead.HostURL = "ldap://127.0.0.1:1"
		dead.ConnectTimeout = time.Second

		res := NewEngine(dead, nil, nil, logger).Authenticate("trillian", testTrillianPW)

		assert.Equal(t, StatusNotFound, res.Status)
		require.NotNil(t, res.State.Bind)
		assert.False(t, *res.State.Bind)
		assert.ErrorIs(t, res.State.Err(), ErrConnection)
	})
}
