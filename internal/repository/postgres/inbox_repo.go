package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

type eventInboxRepository struct {
	db *gorm.DB
}

func NewEventInboxRepository(db *gorm.DB) repository.EventInboxRepository {
	return &eventInboxRepository{db: db}
}

// Insert claims an event id for one instance. A duplicate insert affects
// zero rows and reports false, which is how consumers drop re-deliveries.
func (r *eventInboxRepository) Insert(ctx context.Context, instanceID, eventID, eventType string) (bool, error) {
	res := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&domain.EventInbox{
			InstanceID: instanceID,
			EventID:    eventID,
			EventType:  eventType,
			ReceivedAt: time.Now().UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *eventInboxRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("received_at < ?", cutoff).
		Delete(&domain.EventInbox{})
	return res.RowsAffected, res.Error
}
