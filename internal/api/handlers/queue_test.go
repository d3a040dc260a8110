package handlers_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/testutil"
)

func TestHealthEndpoint(t *testing.T) {
	ts := testutil.NewTestServer(t)

	resp, err := http.Get(ts.BaseURL() + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestQueueHandler_JoinAndLeave(t *testing.T) {
	ts := testutil.NewTestServer(t)

	joinBody := map[string]string{"primaryLane": "mid", "secondaryLane": "fill"}

	t.Run("join requires identity header", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/queue/join"), joinBody, "", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("join", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/queue/join"), joinBody, "Faker#KR1", "")
		resp := testutil.DoRequest(t, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var entry domain.QueuePlayer
		testutil.AssertJSONResponse(t, resp, &entry)
		assert.Equal(t, "faker#kr1", entry.SummonerName)
		assert.Equal(t, domain.LaneMid, entry.PrimaryLane)
		assert.Equal(t, domain.LaneFill, entry.SecondaryLane)
	})

	t.Run("double join conflicts", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/queue/join"), joinBody, "FAKER#kr1", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})

	t.Run("lane validation", func(t *testing.T) {
		bad := map[string]string{"primaryLane": "mid", "secondaryLane": "mid"}
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/queue/join"), bad, "other#kr1", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("status lists the queue", func(t *testing.T) {
		resp, err := http.Get(ts.APIURL("/queue/status"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var status domain.QueueStatus
		testutil.AssertJSONResponse(t, resp, &status)
		assert.Equal(t, 1, status.PlayersInQueue)
		require.Len(t, status.Players, 1)
		assert.Equal(t, "faker#kr1", status.Players[0].SummonerName)
		assert.True(t, status.IsActive)
	})

	t.Run("leave", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", ts.APIURL("/queue/leave"), nil, "faker#kr1", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		// Leave is idempotent: repeating it is still a 200.
		req = testutil.CreateRequest(t, "POST", ts.APIURL("/queue/leave"), nil, "faker#kr1", "")
		resp = testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})
}

func TestQueueHandler_MyActiveMatch(t *testing.T) {
	ts := testutil.NewTestServer(t)

	match := testutil.NewMatchBuilder().
		WithNamePrefix("mam").
		WithStatus(domain.MatchStatusDraft).
		Build(t, ts.DB.DB)

	t.Run("finds the caller's match", func(t *testing.T) {
		resp, err := http.Get(ts.APIURL("/queue/my-active-match?summonerName=mam_blue0%23test"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got domain.Match
		testutil.AssertJSONResponse(t, resp, &got)
		assert.Equal(t, match.ID, got.ID)
		assert.Equal(t, domain.MatchStatusDraft, got.Status)
	})

	t.Run("no active match", func(t *testing.T) {
		resp, err := http.Get(ts.APIURL("/queue/my-active-match?summonerName=nobody%23test"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("name required", func(t *testing.T) {
		resp, err := http.Get(ts.APIURL("/queue/my-active-match"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}
