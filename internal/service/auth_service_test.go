package service_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/service"
	"github.com/dom/league-customs/internal/testutil"
)

func authService(t *testing.T, secret, adminKey string) *service.AuthService {
	t.Helper()

	cfg := testutil.TestConfig()
	cfg.AuthSecret = secret
	if adminKey != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(adminKey), bcrypt.DefaultCost)
		require.NoError(t, err)
		cfg.AdminKeyHash = string(hash)
	}
	return service.NewAuthService(cfg)
}

func TestAuthService_TokenRoundTrip(t *testing.T) {
	svc := authService(t, "test-secret", "")
	require.True(t, svc.Enabled())

	token, expiresAt, err := svc.IssueToken("Faker#KR1")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.False(t, expiresAt.IsZero())

	name, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "faker#kr1", name, "tokens carry the canonical name")
}

func TestAuthService_RejectsTamperedToken(t *testing.T) {
	svc := authService(t, "test-secret", "")

	token, _, err := svc.IssueToken("faker#kr1")
	require.NoError(t, err)

	_, err = svc.ValidateToken(token + "x")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	// A token minted under a different secret never validates
	other := authService(t, "other-secret", "")
	foreign, _, err := other.IssueToken("faker#kr1")
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestAuthService_VerifyIdentity(t *testing.T) {
	svc := authService(t, "test-secret", "")

	token, _, err := svc.IssueToken("faker#kr1")
	require.NoError(t, err)

	assert.NoError(t, svc.VerifyIdentity(token, "Faker#KR1"))
	assert.ErrorIs(t, svc.VerifyIdentity(token, "chovy#kr1"), domain.ErrForbidden)
	assert.ErrorIs(t, svc.VerifyIdentity("garbage", "faker#kr1"), domain.ErrUnauthorized)
}

func TestAuthService_DisabledMode(t *testing.T) {
	svc := authService(t, "", "")
	require.False(t, svc.Enabled())

	_, _, err := svc.IssueToken("faker#kr1")
	assert.Error(t, err, "cannot mint tokens without a secret")

	// Identity claims are taken at face value when auth is off
	assert.NoError(t, svc.VerifyIdentity("", "anyone#t"))
	assert.NoError(t, svc.VerifyIdentity("whatever", "anyone#t"))
}

func TestAuthService_AdminKey(t *testing.T) {
	svc := authService(t, "", "swordfish")

	assert.NoError(t, svc.CheckAdminKey("swordfish"))
	assert.ErrorIs(t, svc.CheckAdminKey("sw0rdfish"), domain.ErrUnauthorized)
	assert.ErrorIs(t, svc.CheckAdminKey(""), domain.ErrUnauthorized)

	// No hash configured keeps the admin surface closed entirely
	closed := authService(t, "", "")
	assert.ErrorIs(t, closed.CheckAdminKey("anything"), domain.ErrForbidden)
}
