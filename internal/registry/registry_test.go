package registry_test

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/registry"
	"github.com/dom/league-customs/internal/testutil"
)

func TestRegistry_RegisterAndLookup(t *testing.T) {
	testRedis := testutil.NewTestRedis(t)
	ctx := context.Background()

	reg := registry.New(testRedis.Client, "backend-a")
	require.NoError(t, reg.Register(ctx, "  Faker#KR1 ", "conn-1"))

	entry, err := reg.Lookup(ctx, "faker#kr1")
	require.NoError(t, err)
	assert.Equal(t, "backend-a", entry.InstanceID)
	assert.Equal(t, "conn-1", entry.ConnectionID)
	assert.False(t, entry.Stale)

	connID, local := reg.IsLocal("FAKER#kr1")
	assert.True(t, local)
	assert.Equal(t, "conn-1", connID)

	assert.Equal(t, []string{"faker#kr1"}, reg.ListLocal())

	t.Run("unknown name has no session", func(t *testing.T) {
		_, err := reg.Lookup(ctx, "ghost#na1")
		assert.ErrorIs(t, err, domain.ErrNoSession)
	})
}

func TestRegistry_TakeoverInvalidatesPreviousOwner(t *testing.T) {
	testRedis := testutil.NewTestRedis(t)
	ctx := context.Background()

	regA := registry.New(testRedis.Client, "backend-a")
	require.NoError(t, regA.Register(ctx, "faker#kr1", "conn-a"))

	type invalidation struct {
		name, oldInstance string
	}
	invalidated := make(chan invalidation, 1)

	regB := registry.New(testRedis.Client, "backend-b")
	regB.OnInvalidate(func(ctx context.Context, summonerName, oldInstanceID string) {
		invalidated <- invalidation{summonerName, oldInstanceID}
	})
	require.NoError(t, regB.Register(ctx, "faker#kr1", "conn-b"))

	select {
	case got := <-invalidated:
		assert.Equal(t, "faker#kr1", got.name)
		assert.Equal(t, "backend-a", got.oldInstance)
	case <-time.After(time.Second):
		t.Fatal("previous owner was never invalidated")
	}

	entry, err := regB.Lookup(ctx, "faker#kr1")
	require.NoError(t, err)
	assert.Equal(t, "backend-b", entry.InstanceID)
	assert.Equal(t, "conn-b", entry.ConnectionID)

	// Re-registering on the same instance must not self-invalidate.
	require.NoError(t, regB.Register(ctx, "faker#kr1", "conn-b2"))
	select {
	case got := <-invalidated:
		t.Fatalf("unexpected invalidation: %+v", got)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestRegistry_Unregister(t *testing.T) {
	testRedis := testutil.NewTestRedis(t)
	ctx := context.Background()

	reg := registry.New(testRedis.Client, "backend-a")
	require.NoError(t, reg.Register(ctx, "faker#kr1", "conn-1"))

	t.Run("stale connection id is ignored", func(t *testing.T) {
		reg.Unregister(ctx, "faker#kr1", "conn-0")

		entry, err := reg.Lookup(ctx, "faker#kr1")
		require.NoError(t, err)
		assert.Equal(t, "conn-1", entry.ConnectionID)

		_, local := reg.IsLocal("faker#kr1")
		assert.True(t, local)
	})

	t.Run("matching connection id clears the claim", func(t *testing.T) {
		reg.Unregister(ctx, "faker#kr1", "conn-1")

		_, err := reg.Lookup(ctx, "faker#kr1")
		assert.ErrorIs(t, err, domain.ErrNoSession)

		_, local := reg.IsLocal("faker#kr1")
		assert.False(t, local)
		assert.Empty(t, reg.ListLocal())
	})
}

func TestRegistry_DropLocalKeepsRedisKey(t *testing.T) {
	testRedis := testutil.NewTestRedis(t)
	ctx := context.Background()

	reg := registry.New(testRedis.Client, "backend-a")
	require.NoError(t, reg.Register(ctx, "faker#kr1", "conn-1"))

	reg.DropLocal("faker#kr1", "conn-1")

	_, local := reg.IsLocal("faker#kr1")
	assert.False(t, local)

	// The Redis session belongs to whichever instance took over.
	entry, err := reg.Lookup(ctx, "faker#kr1")
	require.NoError(t, err)
	assert.Equal(t, "backend-a", entry.InstanceID)
}

func TestRegistry_HeartbeatRefreshesTTL(t *testing.T) {
	testRedis := testutil.NewTestRedis(t)
	ctx := context.Background()

	reg := registry.New(testRedis.Client, "backend-a")
	require.NoError(t, reg.Register(ctx, "faker#kr1", "conn-1"))

	before, err := reg.Lookup(ctx, "faker#kr1")
	require.NoError(t, err)

	// The refresh is rate limited to once a second.
	time.Sleep(1100 * time.Millisecond)
	reg.Heartbeat(ctx, "faker#kr1")

	after, err := reg.Lookup(ctx, "faker#kr1")
	require.NoError(t, err)
	assert.True(t, after.LastHeartbeat.After(before.LastHeartbeat))
	assert.Equal(t, before.IdentifiedAt.Unix(), after.IdentifiedAt.Unix())

	// Heartbeats for names we do not hold are no-ops.
	reg.Heartbeat(ctx, "stranger#na1")
	_, err = reg.Lookup(ctx, "stranger#na1")
	assert.ErrorIs(t, err, domain.ErrNoSession)
}

func TestRegistry_LookupServesStaleCacheThroughOutage(t *testing.T) {
	testRedis := testutil.NewTestRedis(t)
	ctx := context.Background()

	// Separate client so killing it does not break cleanup.
	client := goredis.NewClient(testRedis.Client.Options())

	reg := registry.New(client, "backend-a")
	require.NoError(t, reg.Register(ctx, "faker#kr1", "conn-1"))

	_, err := reg.Lookup(ctx, "faker#kr1")
	require.NoError(t, err)

	require.NoError(t, client.Close())

	entry, err := reg.Lookup(ctx, "faker#kr1")
	require.NoError(t, err)
	assert.True(t, entry.Stale)
	assert.Equal(t, "conn-1", entry.ConnectionID)

	// Names never cached fail hard instead.
	_, err = reg.Lookup(ctx, "ghost#na1")
	assert.ErrorIs(t, err, domain.ErrRegistryUnavailable)
}

func TestRegistry_LCUCredentialsRoundTrip(t *testing.T) {
	testRedis := testutil.NewTestRedis(t)
	ctx := context.Background()

	reg := registry.New(testRedis.Client, "backend-a")

	_, err := reg.LCUCredentials(ctx, "faker#kr1")
	assert.ErrorIs(t, err, domain.ErrNoSession)

	in := domain.LCUCredentials{
		Port:      52301,
		Protocol:  "https",
		AuthToken: "riot-token",
		PUUID:     "puuid-123",
	}
	require.NoError(t, reg.StoreLCUCredentials(ctx, "Faker#KR1", in))

	got, err := reg.LCUCredentials(ctx, "faker#kr1")
	require.NoError(t, err)
	assert.Equal(t, 52301, got.Port)
	assert.Equal(t, "https", got.Protocol)
	assert.Equal(t, "riot-token", got.AuthToken)
	assert.Equal(t, "puuid-123", got.PUUID)
	assert.False(t, got.ConfiguredAt.IsZero())
}
