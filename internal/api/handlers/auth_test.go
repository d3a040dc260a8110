package handlers_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/league-customs/internal/api/handlers"
	"github.com/dom/league-customs/internal/testutil"
)

func TestAuthHandler_SessionDisabledByDefault(t *testing.T) {
	ts := testutil.NewTestServer(t)

	// Without AUTH_SECRET the route is never mounted.
	req := testutil.CreateRequest(t, "POST", ts.APIURL("/auth/session"), nil, "faker#kr1", "")
	resp := testutil.DoRequest(t, req)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAuthHandler_SessionAndIdentity(t *testing.T) {
	cfg := testutil.TestConfig()
	cfg.AuthSecret = "test-secret"
	ts := testutil.NewTestServerWith(t, cfg)

	joinBody := map[string]string{"primaryLane": "top", "secondaryLane": "fill"}

	t.Run("minting requires the identity header", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/auth/session"), nil, "", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	var token string
	t.Run("mint a token", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/auth/session"), nil, "Faker#KR1", "")
		resp := testutil.DoRequest(t, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var session handlers.SessionResponse
		testutil.AssertJSONResponse(t, resp, &session)
		require.NotEmpty(t, session.Token)
		assert.True(t, session.ExpiresAt.After(time.Now()))
		token = session.Token
	})

	t.Run("protected route demands a token", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/queue/join"), joinBody, "faker#kr1", "")
		resp := testutil.DoRequest(t, req)
		testutil.AssertErrorResponse(t, resp, http.StatusUnauthorized, "Authorization header required")
	})

	t.Run("token bound to another name is rejected", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/queue/join"), joinBody, "impostor#kr1", token)
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("matching token passes", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/queue/join"), joinBody, "FAKER#kr1", token)
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}
