package handlers_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/league-customs/internal/api/handlers"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/testutil"
)

func TestMatchHandler_Get(t *testing.T) {
	ts := testutil.NewTestServer(t)

	match := testutil.NewMatchBuilder().
		WithNamePrefix("get").
		WithStatus(domain.MatchStatusDraft).
		Build(t, ts.DB.DB)

	t.Run("snapshot includes the draft document", func(t *testing.T) {
		resp, err := http.Get(ts.APIURL("/match/" + match.ID.String()))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var got domain.Match
		testutil.AssertJSONResponse(t, resp, &got)
		assert.Equal(t, match.ID, got.ID)

		doc, err := got.Document()
		require.NoError(t, err)
		assert.Len(t, got.Participants(), 10)
		assert.Len(t, doc.Actions, 20)
	})

	t.Run("unknown id", func(t *testing.T) {
		resp, err := http.Get(ts.APIURL("/match/" + uuid.New().String()))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("malformed id", func(t *testing.T) {
		resp, err := http.Get(ts.APIURL("/match/not-a-uuid"))
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestMatchHandler_VoteFlow(t *testing.T) {
	ts := testutil.NewTestServer(t)

	match := testutil.NewMatchBuilder().
		WithNamePrefix("vf").
		WithStatus(domain.MatchStatusInProgress).
		WithAllAccepted().
		Build(t, ts.DB.DB)

	voteURL := ts.APIURL("/match/" + match.ID.String() + "/vote")

	t.Run("participant vote lands", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", voteURL,
			map[string]string{"lcuGameId": "7001"}, "vf_blue0#test", "")
		resp := testutil.DoRequest(t, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tally struct {
			Counts       map[string]int `json:"counts"`
			Leader       string         `json:"leader"`
			QuorumTarget int            `json:"quorumTarget"`
		}
		testutil.AssertJSONResponse(t, resp, &tally)
		assert.Equal(t, 1, tally.Counts["7001"])
		assert.Equal(t, "7001", tally.Leader)
		assert.Equal(t, 6, tally.QuorumTarget)
	})

	t.Run("revote replaces the earlier ballot", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", voteURL,
			map[string]string{"lcuGameId": "7002"}, "vf_blue0#test", "")
		resp := testutil.DoRequest(t, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var tally struct {
			Counts map[string]int `json:"counts"`
		}
		testutil.AssertJSONResponse(t, resp, &tally)
		assert.Equal(t, 0, tally.Counts["7001"])
		assert.Equal(t, 1, tally.Counts["7002"])
	})

	t.Run("non-participant is forbidden", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", voteURL,
			map[string]string{"lcuGameId": "7001"}, "stranger#na1", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("empty game id rejected", func(t *testing.T) {
		req := testutil.CreateRequest(t, "POST", voteURL,
			map[string]string{"lcuGameId": ""}, "vf_blue1#test", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("votes view", func(t *testing.T) {
		resp, err := http.Get(ts.APIURL("/match/" + match.ID.String() + "/votes"))
		require.NoError(t, err)
		defer resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var votes handlers.VotesResponse
		testutil.AssertJSONResponse(t, resp, &votes)
		assert.Equal(t, 1, votes.Votes["7002"])
		assert.Equal(t, "7002", votes.Leader)
		assert.Equal(t, 6, votes.QuorumTarget)
	})
}

func TestMatchHandler_VoteBeforeGameRejected(t *testing.T) {
	ts := testutil.NewTestServer(t)

	match := testutil.NewMatchBuilder().
		WithNamePrefix("early").
		WithStatus(domain.MatchStatusDraft).
		Build(t, ts.DB.DB)

	req := testutil.CreateRequest(t, "POST", ts.APIURL("/match/"+match.ID.String()+"/vote"),
		map[string]string{"lcuGameId": "7001"}, "early_blue0#test", "")
	resp := testutil.DoRequest(t, req)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestMatchHandler_Cancel(t *testing.T) {
	ts := testutil.NewTestServer(t)

	match := testutil.NewMatchBuilder().
		WithNamePrefix("cnl").
		WithStatus(domain.MatchStatusDraft).
		WithAllAccepted().
		Build(t, ts.DB.DB)

	cancelURL := ts.APIURL("/match/" + match.ID.String() + "/cancel")

	t.Run("non-participant is forbidden", func(t *testing.T) {
		req := testutil.CreateRequest(t, "DELETE", cancelURL, nil, "stranger#na1", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("participant cancel lands", func(t *testing.T) {
		req := testutil.CreateRequest(t, "DELETE", cancelURL, nil, "cnl_red2#test", "")
		resp := testutil.DoRequest(t, req)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		ctx := context.Background()
		got, err := ts.Repos.Match.GetByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MatchStatusCancelled, got.Status)
		assert.Nil(t, got.OwnerBackendID)

		// Draft-phase cancels dissolve the lobby without a requeue.
		n, err := ts.Repos.Queue.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(0), n)
	})

	t.Run("terminal match conflicts", func(t *testing.T) {
		req := testutil.CreateRequest(t, "DELETE", cancelURL, nil, "cnl_red2#test", "")
		resp := testutil.DoRequest(t, req)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
	})
}
