package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository/postgres"
	"github.com/dom/league-customs/internal/testutil"
)

func TestMatchRepository_GetByID(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewMatchRepository(testDB.DB)
	ctx := context.Background()

	match := testutil.NewMatchBuilder().Build(t, testDB.DB)

	tests := []struct {
		name    string
		id      uuid.UUID
		wantErr error
	}{
		{
			name: "existing match",
			id:   match.ID,
		},
		{
			name:    "non-existent match",
			id:      uuid.New(),
			wantErr: domain.ErrMatchNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := repo.GetByID(ctx, tt.id)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, match.ID, got.ID)
			assert.Equal(t, domain.MatchStatusFound, got.Status)

			team1, team2, err := got.Teams()
			require.NoError(t, err)
			assert.Len(t, team1, 5)
			assert.Len(t, team2, 5)
		})
	}
}

func TestMatchRepository_GetActiveForPlayer(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewMatchRepository(testDB.DB)
	ctx := context.Background()

	match := testutil.NewMatchBuilder().
		WithNamePrefix("act").
		WithStatus(domain.MatchStatusDraft).
		Build(t, testDB.DB)

	t.Run("finds participant on either team", func(t *testing.T) {
		got, err := repo.GetActiveForPlayer(ctx, "act_blue0#test")
		require.NoError(t, err)
		assert.Equal(t, match.ID, got.ID)

		got, err = repo.GetActiveForPlayer(ctx, "act_red4#test")
		require.NoError(t, err)
		assert.Equal(t, match.ID, got.ID)
	})

	t.Run("name lookup ignores case and padding", func(t *testing.T) {
		got, err := repo.GetActiveForPlayer(ctx, "  ACT_Blue2#TEST ")
		require.NoError(t, err)
		assert.Equal(t, match.ID, got.ID)
	})

	t.Run("non-participant misses", func(t *testing.T) {
		_, err := repo.GetActiveForPlayer(ctx, "stranger#na1")
		assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	})

	t.Run("blank name rejected", func(t *testing.T) {
		_, err := repo.GetActiveForPlayer(ctx, "   ")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("terminal matches are not active", func(t *testing.T) {
		require.NoError(t, testDB.DB.Model(&domain.Match{}).
			Where("id = ?", match.ID).
			Update("status", domain.MatchStatusCancelled).Error)

		_, err := repo.GetActiveForPlayer(ctx, "act_blue0#test")
		assert.ErrorIs(t, err, domain.ErrMatchNotFound)
	})
}

func TestMatchRepository_TryClaimOwnership(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewMatchRepository(testDB.DB)
	ctx := context.Background()

	now := time.Now().UTC()
	staleBefore := now.Add(-5 * time.Second)

	t.Run("unheld lease is claimable", func(t *testing.T) {
		match := testutil.NewMatchBuilder().Build(t, testDB.DB)

		claimed, err := repo.TryClaimOwnership(ctx, match.ID, "backend-a", now, staleBefore)
		require.NoError(t, err)
		assert.True(t, claimed)

		got, err := repo.GetByID(ctx, match.ID)
		require.NoError(t, err)
		require.NotNil(t, got.OwnerBackendID)
		assert.Equal(t, "backend-a", *got.OwnerBackendID)
		require.NotNil(t, got.OwnerHeartbeat)
	})

	t.Run("live lease blocks rivals", func(t *testing.T) {
		match := testutil.NewMatchBuilder().WithOwner("backend-a").Build(t, testDB.DB)

		claimed, err := repo.TryClaimOwnership(ctx, match.ID, "backend-b", now, staleBefore)
		require.NoError(t, err)
		assert.False(t, claimed)

		got, err := repo.GetByID(ctx, match.ID)
		require.NoError(t, err)
		require.NotNil(t, got.OwnerBackendID)
		assert.Equal(t, "backend-a", *got.OwnerBackendID)
	})

	t.Run("owner can re-claim its own lease", func(t *testing.T) {
		match := testutil.NewMatchBuilder().WithOwner("backend-a").Build(t, testDB.DB)

		claimed, err := repo.TryClaimOwnership(ctx, match.ID, "backend-a", now, staleBefore)
		require.NoError(t, err)
		assert.True(t, claimed)
	})

	t.Run("stale heartbeat can be stolen", func(t *testing.T) {
		match := testutil.NewMatchBuilder().WithOwner("backend-a").Build(t, testDB.DB)
		require.NoError(t, testDB.DB.Model(&domain.Match{}).
			Where("id = ?", match.ID).
			Update("owner_heartbeat", now.Add(-time.Minute)).Error)

		claimed, err := repo.TryClaimOwnership(ctx, match.ID, "backend-b", now, staleBefore)
		require.NoError(t, err)
		assert.True(t, claimed)

		got, err := repo.GetByID(ctx, match.ID)
		require.NoError(t, err)
		require.NotNil(t, got.OwnerBackendID)
		assert.Equal(t, "backend-b", *got.OwnerBackendID)
	})

	t.Run("terminal matches are never claimable", func(t *testing.T) {
		match := testutil.NewMatchBuilder().WithStatus(domain.MatchStatusCompleted).Build(t, testDB.DB)

		claimed, err := repo.TryClaimOwnership(ctx, match.ID, "backend-a", now, staleBefore)
		require.NoError(t, err)
		assert.False(t, claimed)
	})
}

func TestMatchRepository_UpdateOwned(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewMatchRepository(testDB.DB)
	ctx := context.Background()

	t.Run("owned write persists", func(t *testing.T) {
		match := testutil.NewMatchBuilder().
			WithStatus(domain.MatchStatusAccepted).
			WithOwner("backend-a").
			Build(t, testDB.DB)

		match.Status = domain.MatchStatusDraft
		match.AverageMmrTeam1 = 1010
		match.AverageMmrTeam2 = 990
		require.NoError(t, repo.UpdateOwned(ctx, match, "backend-a"))

		got, err := repo.GetByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MatchStatusDraft, got.Status)
		assert.Equal(t, 1010, got.AverageMmrTeam1)
		assert.Equal(t, 990, got.AverageMmrTeam2)
		require.NotNil(t, got.OwnerBackendID)
		assert.Equal(t, "backend-a", *got.OwnerBackendID)
	})

	t.Run("lost lease surfaces as ErrLeaseLost", func(t *testing.T) {
		match := testutil.NewMatchBuilder().
			WithStatus(domain.MatchStatusDraft).
			WithOwner("backend-a").
			Build(t, testDB.DB)

		match.Status = domain.MatchStatusInProgress
		err := repo.UpdateOwned(ctx, match, "backend-b")
		assert.ErrorIs(t, err, domain.ErrLeaseLost)

		// The row is untouched.
		got, err := repo.GetByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MatchStatusDraft, got.Status)
	})

	t.Run("terminal write releases the lease", func(t *testing.T) {
		match := testutil.NewMatchBuilder().
			WithStatus(domain.MatchStatusInProgress).
			WithOwner("backend-a").
			Build(t, testDB.DB)

		winner := 1
		completedAt := time.Now().UTC()
		match.Status = domain.MatchStatusCompleted
		match.WinnerTeam = &winner
		match.CompletedAt = &completedAt
		match.RiotGameID = "4242"
		require.NoError(t, repo.UpdateOwned(ctx, match, "backend-a"))

		assert.Nil(t, match.OwnerBackendID)
		assert.Nil(t, match.OwnerHeartbeat)

		got, err := repo.GetByID(ctx, match.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.MatchStatusCompleted, got.Status)
		assert.Nil(t, got.OwnerBackendID)
		assert.Nil(t, got.OwnerHeartbeat)
		require.NotNil(t, got.WinnerTeam)
		assert.Equal(t, 1, *got.WinnerTeam)
		assert.Equal(t, "4242", got.RiotGameID)
		require.NotNil(t, got.CompletedAt)
	})
}

func TestMatchRepository_HeartbeatOwner(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewMatchRepository(testDB.DB)
	ctx := context.Background()

	match := testutil.NewMatchBuilder().WithOwner("backend-a").Build(t, testDB.DB)
	next := time.Now().UTC().Add(2 * time.Second)

	ok, err := repo.HeartbeatOwner(ctx, match.ID, "backend-a", next)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetByID(ctx, match.ID)
	require.NoError(t, err)
	require.NotNil(t, got.OwnerHeartbeat)
	assert.WithinDuration(t, next, *got.OwnerHeartbeat, time.Second)

	// A non-owner heartbeat touches nothing.
	ok, err = repo.HeartbeatOwner(ctx, match.ID, "backend-b", next.Add(time.Second))
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMatchRepository_ListResumable(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewMatchRepository(testDB.DB)
	ctx := context.Background()

	now := time.Now().UTC()
	staleBefore := now.Add(-5 * time.Second)

	free := testutil.NewMatchBuilder().WithStatus(domain.MatchStatusDraft).Build(t, testDB.DB)
	require.NoError(t, testDB.DB.Model(&domain.Match{}).
		Where("id = ?", free.ID).
		Update("created_at", now.Add(-2*time.Minute)).Error)

	stale := testutil.NewMatchBuilder().
		WithStatus(domain.MatchStatusInProgress).
		WithOwner("backend-dead").
		Build(t, testDB.DB)
	require.NoError(t, testDB.DB.Model(&domain.Match{}).
		Where("id = ?", stale.ID).
		Updates(map[string]interface{}{
			"created_at":      now.Add(-time.Minute),
			"owner_heartbeat": now.Add(-time.Minute),
		}).Error)

	// Live lease and terminal rows never resume.
	testutil.NewMatchBuilder().WithStatus(domain.MatchStatusDraft).WithOwner("backend-a").Build(t, testDB.DB)
	testutil.NewMatchBuilder().WithStatus(domain.MatchStatusCancelled).Build(t, testDB.DB)

	got, err := repo.ListResumable(ctx, staleBefore)
	require.NoError(t, err)
	require.Len(t, got, 2)

	// Oldest first.
	assert.Equal(t, free.ID, got[0].ID)
	assert.Equal(t, stale.ID, got[1].ID)
}
