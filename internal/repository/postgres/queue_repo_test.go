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

func TestQueuePlayerRepository_Insert(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewQueuePlayerRepository(testDB.DB)
	ctx := context.Background()

	player := testutil.NewPlayerBuilder().WithSummonerName("Faker#KR1").Build(t, testDB.DB)

	row := &domain.QueuePlayer{
		ID:            uuid.New(),
		PlayerID:      player.ID,
		SummonerName:  "  Faker#KR1 ",
		CustomMMR:     player.CustomMMR,
		PrimaryLane:   domain.LaneMid,
		SecondaryLane: domain.LaneFill,
		JoinTime:      time.Now(),
		Active:        true,
	}
	require.NoError(t, repo.Insert(ctx, row))
	assert.Equal(t, "faker#kr1", row.SummonerName)

	got, err := repo.GetBySummonerName(ctx, "faker#kr1")
	require.NoError(t, err)
	assert.Equal(t, row.ID, got.ID)
	assert.Equal(t, domain.LaneMid, got.PrimaryLane)

	t.Run("duplicate name rejected", func(t *testing.T) {
		dup := &domain.QueuePlayer{
			ID:            uuid.New(),
			PlayerID:      player.ID,
			SummonerName:  "FAKER#kr1",
			PrimaryLane:   domain.LaneTop,
			SecondaryLane: domain.LaneFill,
			JoinTime:      time.Now(),
			Active:        true,
		}
		err := repo.Insert(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrAlreadyQueued)
	})
}

func TestQueuePlayerRepository_GetBySummonerName_NotFound(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewQueuePlayerRepository(testDB.DB)

	_, err := repo.GetBySummonerName(context.Background(), "ghost#na1")
	assert.ErrorIs(t, err, domain.ErrNotInQueue)
}

func TestQueuePlayerRepository_DeleteBySummonerName(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewQueuePlayerRepository(testDB.DB)
	ctx := context.Background()

	testutil.NewQueueRowBuilder().
		WithPlayer(testutil.NewPlayerBuilder().WithSummonerName("leaver#test").Build(t, testDB.DB)).
		Build(t, testDB.DB)

	removed, err := repo.DeleteBySummonerName(ctx, "Leaver#TEST")
	require.NoError(t, err)
	assert.True(t, removed)

	// Second delete finds nothing.
	removed, err = repo.DeleteBySummonerName(ctx, "leaver#test")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestQueuePlayerRepository_ListActive(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewQueuePlayerRepository(testDB.DB)
	ctx := context.Background()

	base := time.Now().Add(-time.Minute)

	// Same join second for b and c so the name tiebreak shows.
	a := testutil.NewQueueRowBuilder().
		WithPlayer(testutil.NewPlayerBuilder().WithSummonerName("aaa#test").Build(t, testDB.DB)).
		WithJoinTime(base.Add(2 * time.Second)).
		Build(t, testDB.DB)
	b := testutil.NewQueueRowBuilder().
		WithPlayer(testutil.NewPlayerBuilder().WithSummonerName("bbb#test").Build(t, testDB.DB)).
		WithJoinTime(base).
		Build(t, testDB.DB)
	c := testutil.NewQueueRowBuilder().
		WithPlayer(testutil.NewPlayerBuilder().WithSummonerName("abc#test").Build(t, testDB.DB)).
		WithJoinTime(base).
		Build(t, testDB.DB)

	rows, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, c.SummonerName, rows[0].SummonerName)
	assert.Equal(t, b.SummonerName, rows[1].SummonerName)
	assert.Equal(t, a.SummonerName, rows[2].SummonerName)
}

func TestQueuePlayerRepository_DeleteByIDs(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repo := postgres.NewQueuePlayerRepository(testDB.DB)
	ctx := context.Background()

	rows := testutil.SeedQueue(t, testDB.DB, 3)

	require.NoError(t, repo.DeleteByIDs(ctx, []uuid.UUID{rows[0].ID, rows[2].ID}))

	n, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	remaining, err := repo.ListActive(ctx)
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, rows[1].ID, remaining[0].ID)

	// Empty slice is a no-op, not a full-table delete.
	require.NoError(t, repo.DeleteByIDs(ctx, nil))
	n, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
