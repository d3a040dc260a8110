package postgres

import (
	"context"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

func NewConnection(databaseURL string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Warn),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	// Auto-migrate tables
	err = db.AutoMigrate(
		&domain.Player{},
		&domain.QueuePlayer{},
		&domain.Match{},
		&domain.MatchVote{},
		&domain.EventInbox{},
		&domain.Setting{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func NewRepositories(db *gorm.DB) *repository.Repositories {
	return &repository.Repositories{
		Player:   NewPlayerRepository(db),
		Queue:    NewQueuePlayerRepository(db),
		Match:    NewMatchRepository(db),
		Vote:     NewMatchVoteRepository(db),
		Inbox:    NewEventInboxRepository(db),
		Settings: NewSettingsRepository(db),
		Tx:       &txRunner{db: db},
	}
}

type txRunner struct {
	db *gorm.DB
}

// InTx rebinds every repository onto one gorm transaction so queue
// deletion and match creation (and similar pairs) commit atomically.
func (t *txRunner) InTx(ctx context.Context, fn func(*repository.Repositories) error) error {
	return t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
