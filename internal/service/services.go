package service

import (
	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/config"
	"github.com/dom/league-customs/internal/repository"
)

// Services bundles the service layer for handler wiring.
type Services struct {
	Queue       *QueueService
	Matchmaking *MatchmakingService
	Match       *MatchService
	Auth        *AuthService
}

func NewServices(repos *repository.Repositories, b *bus.Bus, cfg *config.Config) *Services {
	mm := NewMatchmakingService(repos, cfg)
	return &Services{
		Queue:       NewQueueService(repos, b, cfg, mm),
		Matchmaking: mm,
		Match:       NewMatchService(repos, b, cfg),
		Auth:        NewAuthService(cfg),
	}
}
