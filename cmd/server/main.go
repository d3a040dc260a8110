package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dom/league-customs/internal/api"
	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/config"
	"github.com/dom/league-customs/internal/match"
	"github.com/dom/league-customs/internal/redis"
	"github.com/dom/league-customs/internal/registry"
	"github.com/dom/league-customs/internal/repository/postgres"
	"github.com/dom/league-customs/internal/service"
	"github.com/dom/league-customs/internal/websocket"
)

func main() {
	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := postgres.NewConnection(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	repos := postgres.NewRepositories(db)

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}

	reg := registry.New(rdb, cfg.InstanceID)
	b := bus.New(rdb, repos.Inbox, cfg.InstanceID)

	hub := websocket.NewHub(reg, b, repos.Player, cfg.RPCTimeout)
	services := service.NewServices(repos, b, cfg)
	coordinator := match.NewCoordinator(cfg, repos, b, rdb, services.Match, cfg.InstanceID)

	// Cross-package wiring. Interfaces keep the packages apart; main is
	// the only place that sees all of them.
	hub.SetQueue(services.Queue)
	hub.SetDirector(coordinator)
	if services.Auth.Enabled() {
		hub.SetAuth(services.Auth.VerifyIdentity)
	}
	coordinator.SetGateway(hub)
	coordinator.SetRequeuer(services.Queue)
	services.Queue.SetAdopter(coordinator)

	// A superseded session elsewhere is told to hang up through the bus.
	reg.OnInvalidate(func(ctx context.Context, summonerName, oldInstanceID string) {
		b.Publish(ctx, bus.TopicGatewayInvalidate, bus.GatewayInvalidatePayload{
			SummonerName:  summonerName,
			InstanceID:    oldInstanceID,
			NewInstanceID: cfg.InstanceID,
		})
	})

	// All subscriptions must be in place before the bus starts consuming.
	hub.RegisterBusHandlers()
	services.Queue.RegisterBusHandlers()
	coordinator.RegisterBusHandlers()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := b.Start(ctx); err != nil {
		log.Fatalf("failed to start event bus: %v", err)
	}

	if voters, err := repos.Settings.GetPrivilegedVoters(ctx); err == nil {
		cfg.MergePrivilegedVoters(voters)
	} else {
		log.Printf("Main: privileged voters unavailable: %v", err)
	}
	services.Queue.LoadSettings(ctx)

	go hub.Run()
	go services.Queue.Run(ctx)
	coordinator.Start(ctx)

	router := api.NewRouter(services, hub, coordinator, reg, repos)

	srv := &http.Server{
		Addr:         "0.0.0.0:" + cfg.Port,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on port %s as instance %s", cfg.Port, cfg.InstanceID)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	coordinator.Shutdown()
	hub.Shutdown()
	b.Stop()
	cancel()

	log.Println("Server stopped")
}
