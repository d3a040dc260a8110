package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

type queuePlayerRepository struct {
	db *gorm.DB
}

func NewQueuePlayerRepository(db *gorm.DB) repository.QueuePlayerRepository {
	return &queuePlayerRepository{db: db}
}

func (r *queuePlayerRepository) Insert(ctx context.Context, qp *domain.QueuePlayer) error {
	qp.SummonerName = domain.NormalizeSummonerName(qp.SummonerName)
	err := r.db.WithContext(ctx).Create(qp).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrAlreadyQueued
	}
	return err
}

func (r *queuePlayerRepository) GetBySummonerName(ctx context.Context, summonerName string) (*domain.QueuePlayer, error) {
	var qp domain.QueuePlayer
	err := r.db.WithContext(ctx).
		Where("summoner_name = ?", domain.NormalizeSummonerName(summonerName)).
		First(&qp).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotInQueue
	}
	if err != nil {
		return nil, err
	}
	return &qp, nil
}

func (r *queuePlayerRepository) DeleteBySummonerName(ctx context.Context, summonerName string) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("summoner_name = ?", domain.NormalizeSummonerName(summonerName)).
		Delete(&domain.QueuePlayer{})
	return res.RowsAffected > 0, res.Error
}

func (r *queuePlayerRepository) DeleteByIDs(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Delete(&domain.QueuePlayer{}).Error
}

func (r *queuePlayerRepository) ListActive(ctx context.Context) ([]domain.QueuePlayer, error) {
	var rows []domain.QueuePlayer
	err := r.db.WithContext(ctx).
		Where("active = ?", true).
		Order("join_time ASC, summoner_name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *queuePlayerRepository) ListActiveLocked(ctx context.Context) ([]domain.QueuePlayer, error) {
	var rows []domain.QueuePlayer
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("active = ?", true).
		Order("join_time ASC, summoner_name ASC").
		Find(&rows).Error
	return rows, err
}

func (r *queuePlayerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).
		Model(&domain.QueuePlayer{}).
		Where("active = ?", true).
		Count(&n).Error
	return n, err
}
