package service

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerpop/marketplaceapi/internal/config"
	"github.com/tigerpop/marketplaceapi/internal/models"
)

func authTestConfig() *config.Config {
	return &config.Config{
		JWTSecret: "test-secret",
		JWTExpiry: time.Hour,
		NetIDMin:  2,
		NetIDMax:  12,
	}
}

func TestResolveOrCreateUser_CreatesOnFirstLogin(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	user, err := svc.ResolveOrCreateUser("abc123")
	require.NoError(t, err)
	require.NotNil(t, user)
	assert.NotZero(t, user.ID)
	assert.Equal(t, "abc123", user.NetIDString())
	assert.Equal(t, 1, store.count())
}

func TestResolveOrCreateUser_Idempotent(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	first, err := svc.ResolveOrCreateUser("abc123")
	require.NoError(t, err)
	second, err := svc.ResolveOrCreateUser("abc123")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 1, store.count())
}

func TestResolveOrCreateUser_InvalidNetID(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	tests := []string{
		"",
		"a",
		"has space",
		"semi;colon",
		"way-too-long-netid",
		strings.Repeat("x", 13),
	}
	for _, netid := range tests {
		_, err := svc.ResolveOrCreateUser(netid)
		assert.ErrorIs(t, err, ErrInvalidNetID, "netid %q", netid)
	}
	assert.Equal(t, 0, store.count())
}

func TestResolveOrCreateUser_ConcurrentFirstLogin(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	const workers = 16
	ids := make([]uint, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user, err := svc.ResolveOrCreateUser("race99")
			if assert.NoError(t, err) {
				ids[i] = user.ID
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 1, store.count(), "insert race must resolve to a single row")
	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
}

func TestIssueVerifyToken_RoundTrip(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	user, err := svc.ResolveOrCreateUser("abc123")
	require.NoError(t, err)

	token, err := svc.IssueToken(user)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	got, netid, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.Equal(t, "abc123", netid)
}

func TestVerifyToken_Expired(t *testing.T) {
	cfg := authTestConfig()
	cfg.JWTExpiry = -time.Minute
	store := newFakeUserStore()
	svc := NewAuthService(store, cfg)

	user, err := svc.ResolveOrCreateUser("abc123")
	require.NoError(t, err)
	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	_, _, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyToken_WrongSecret(t *testing.T) {
	store := newFakeUserStore()
	issuer := NewAuthService(store, authTestConfig())

	otherCfg := authTestConfig()
	otherCfg.JWTSecret = "different-secret"
	verifier := NewAuthService(store, otherCfg)

	user, err := issuer.ResolveOrCreateUser("abc123")
	require.NoError(t, err)
	token, err := issuer.IssueToken(user)
	require.NoError(t, err)

	_, _, err = verifier.VerifyToken(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestVerifyToken_Garbage(t *testing.T) {
	svc := NewAuthService(newFakeUserStore(), authTestConfig())

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, _, err := svc.VerifyToken(token)
		assert.ErrorIs(t, err, ErrUnauthenticated, "token %q", token)
	}
}

func TestVerifyToken_DeletedUser(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	user, err := svc.ResolveOrCreateUser("abc123")
	require.NoError(t, err)
	token, err := svc.IssueToken(user)
	require.NoError(t, err)

	store.remove(user.ID)

	_, _, err = svc.VerifyToken(token)
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestSignupLogin(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	user, err := svc.Signup("seller1", "seller1@example.com", "hunter22")
	require.NoError(t, err)
	require.NotNil(t, user.PasswordHash)
	assert.NotEqual(t, "hunter22", *user.PasswordHash, "password must be stored hashed")

	got, token, err := svc.Login("seller1", "hunter22")
	require.NoError(t, err)
	assert.Equal(t, user.ID, got.ID)
	assert.NotEmpty(t, token)

	_, _, err = svc.Login("seller1", "wrong-password")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, _, err = svc.Login("no-such-user", "hunter22")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSignup_Duplicate(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	_, err := svc.Signup("seller1", "seller1@example.com", "hunter22")
	require.NoError(t, err)

	_, err = svc.Signup("seller1", "other@example.com", "hunter22")
	assert.ErrorIs(t, err, ErrDuplicateUser)
}

func TestLogin_SSOOnlyUser(t *testing.T) {
	store := newFakeUserStore()
	svc := NewAuthService(store, authTestConfig())

	// CAS-created rows have no password hash, and a netid is not a username.
	netid := "abc123"
	store.add(&models.User{NetID: &netid})

	_, _, err := svc.Login("abc123", "anything")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
