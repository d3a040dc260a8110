package testutil

import (
	"context"
	"fmt"
	"net/http/httptest"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcPostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcRedis "github.com/testcontainers/testcontainers-go/modules/redis"
	"github.com/testcontainers/testcontainers-go/wait"
	gormPostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dom/league-customs/internal/api"
	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/config"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/match"
	"github.com/dom/league-customs/internal/registry"
	"github.com/dom/league-customs/internal/repository"
	repoPostgres "github.com/dom/league-customs/internal/repository/postgres"
	"github.com/dom/league-customs/internal/service"
	"github.com/dom/league-customs/internal/websocket"
)

// TestDB manages a testcontainers PostgreSQL instance
type TestDB struct {
	Container testcontainers.Container
	DB        *gorm.DB
	DSN       string
}

// NewTestDB creates a new PostgreSQL testcontainer and returns a connection
func NewTestDB(t *testing.T) *TestDB {
	t.Helper()

	ctx := context.Background()

	container, err := tcPostgres.Run(ctx,
		"postgres:15-alpine",
		tcPostgres.WithDatabase("test_league_customs"),
		tcPostgres.WithUsername("test"),
		tcPostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("failed to get connection string: %v", err)
	}

	db, err := gorm.Open(gormPostgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}

	// Run migrations
	err = db.AutoMigrate(
		&domain.Player{},
		&domain.QueuePlayer{},
		&domain.Match{},
		&domain.MatchVote{},
		&domain.EventInbox{},
		&domain.Setting{},
	)
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	testDB := &TestDB{
		Container: container,
		DB:        db,
		DSN:       dsn,
	}

	t.Cleanup(func() {
		testDB.Cleanup()
	})

	return testDB
}

// Cleanup terminates the container
func (tdb *TestDB) Cleanup() {
	if tdb.Container != nil {
		ctx := context.Background()
		tdb.Container.Terminate(ctx)
	}
}

// Truncate clears all tables for test isolation
func (tdb *TestDB) Truncate(t *testing.T) {
	t.Helper()

	tables := []string{
		"match_votes",
		"queue_players",
		"custom_matches",
		"event_inbox",
		"settings",
		"players",
	}

	for _, table := range tables {
		if err := tdb.DB.Exec(fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)).Error; err != nil {
			t.Logf("warning: failed to truncate %s: %v", table, err)
		}
	}
}

// TestRedis manages a testcontainers Redis instance
type TestRedis struct {
	Container testcontainers.Container
	Client    *goredis.Client
	URL       string
}

// NewTestRedis creates a new Redis testcontainer and returns a connected client
func NewTestRedis(t *testing.T) *TestRedis {
	t.Helper()

	ctx := context.Background()

	container, err := tcRedis.Run(ctx, "redis:7-alpine")
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}

	url, err := container.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("failed to get redis connection string: %v", err)
	}

	opts, err := goredis.ParseURL(url)
	if err != nil {
		t.Fatalf("failed to parse redis url: %v", err)
	}
	client := goredis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("failed to ping redis: %v", err)
	}

	tr := &TestRedis{
		Container: container,
		Client:    client,
		URL:       url,
	}

	t.Cleanup(func() {
		tr.Cleanup()
	})

	return tr
}

// Cleanup closes the client and terminates the container
func (tr *TestRedis) Cleanup() {
	if tr.Client != nil {
		tr.Client.Close()
	}
	if tr.Container != nil {
		ctx := context.Background()
		tr.Container.Terminate(ctx)
	}
}

// TestConfig returns a configuration suitable for testing
func TestConfig() *config.Config {
	return &config.Config{
		Port:        "0", // Random port
		Environment: "test",
		InstanceID:  "test-instance",

		AuthSecret:          "", // Auth disabled unless a test opts in
		AuthExpirationHours: 1,

		MatchSize:      10,
		MaxMmrDelta:    200,
		WeightAutofill: 100,
		WeightPrimary:  25,
		WeightMmr:      1,

		AcceptanceTimeout:    2 * time.Second, // Fast timers for tests
		DraftActionTimeout:   2 * time.Second,
		ConfirmationRequired: false,
		GamePollInterval:     time.Second,
		GameInactivityCancel: 30 * time.Second,

		LinkVoteQuorum:   6,
		PrivilegedVoters: map[string]int{},

		OwnershipHeartbeat:   time.Second,
		OwnershipStaleCutoff: 5 * time.Second,

		RPCTimeout: 2 * time.Second,

		RatingLpDelta: 20,
	}
}

// TestServer holds all components for integration testing
type TestServer struct {
	Server      *httptest.Server
	DB          *TestDB
	Redis       *TestRedis
	Repos       *repository.Repositories
	Services    *service.Services
	Hub         *websocket.Hub
	Coordinator *match.Coordinator
	Registry    *registry.Registry
	Bus         *bus.Bus
	Config      *config.Config
}

// NewTestServer creates a complete test server with all dependencies
func NewTestServer(t *testing.T) *TestServer {
	return NewTestServerWith(t, TestConfig())
}

// NewTestServerWith boots the full stack against a caller-supplied config,
// wiring the components in the same order as cmd/server.
func NewTestServerWith(t *testing.T, cfg *config.Config) *TestServer {
	t.Helper()

	testDB := NewTestDB(t)
	testRedis := NewTestRedis(t)

	repos := repoPostgres.NewRepositories(testDB.DB)
	reg := registry.New(testRedis.Client, cfg.InstanceID)
	b := bus.New(testRedis.Client, repos.Inbox, cfg.InstanceID)

	hub := websocket.NewHub(reg, b, repos.Player, cfg.RPCTimeout)
	services := service.NewServices(repos, b, cfg)
	coordinator := match.NewCoordinator(cfg, repos, b, testRedis.Client, services.Match, cfg.InstanceID)

	hub.SetQueue(services.Queue)
	hub.SetDirector(coordinator)
	if services.Auth.Enabled() {
		hub.SetAuth(services.Auth.VerifyIdentity)
	}
	coordinator.SetGateway(hub)
	coordinator.SetRequeuer(services.Queue)
	services.Queue.SetAdopter(coordinator)

	hub.RegisterBusHandlers()
	services.Queue.RegisterBusHandlers()
	coordinator.RegisterBusHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	if err := b.Start(ctx); err != nil {
		cancel()
		t.Fatalf("failed to start event bus: %v", err)
	}
	services.Queue.LoadSettings(ctx)

	go hub.Run()
	go services.Queue.Run(ctx)
	coordinator.Start(ctx)

	router := api.NewRouter(services, hub, coordinator, reg, repos)
	server := httptest.NewServer(router)

	ts := &TestServer{
		Server:      server,
		DB:          testDB,
		Redis:       testRedis,
		Repos:       repos,
		Services:    services,
		Hub:         hub,
		Coordinator: coordinator,
		Registry:    reg,
		Bus:         b,
		Config:      cfg,
	}

	t.Cleanup(func() {
		server.Close()
		coordinator.Shutdown()
		hub.Shutdown()
		b.Stop()
		cancel()
	})

	return ts
}

// BaseURL returns the test server's base URL
func (ts *TestServer) BaseURL() string {
	return ts.Server.URL
}

// APIURL returns the full API URL for a given path
func (ts *TestServer) APIURL(path string) string {
	return fmt.Sprintf("%s/api%s", ts.Server.URL, path)
}

// WebSocketURL returns the WebSocket URL, with token when non-empty
func (ts *TestServer) WebSocketURL(token string) string {
	wsURL := "ws" + ts.Server.URL[4:] // Replace "http" with "ws"
	if token == "" {
		return fmt.Sprintf("%s/api/ws", wsURL)
	}
	return fmt.Sprintf("%s/api/ws?token=%s", wsURL, token)
}
