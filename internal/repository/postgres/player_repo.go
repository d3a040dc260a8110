package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

type playerRepository struct {
	db *gorm.DB
}

func NewPlayerRepository(db *gorm.DB) repository.PlayerRepository {
	return &playerRepository{db: db}
}

func (r *playerRepository) GetOrCreate(ctx context.Context, summonerName string) (*domain.Player, error) {
	name := domain.NormalizeSummonerName(summonerName)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}
	gameName, tagLine := domain.SplitSummonerName(name)

	player := &domain.Player{
		SummonerName: name,
		GameName:     gameName,
		TagLine:      tagLine,
		CustomLP:     1000,
		CustomMMR:    1000,
	}
	// Racing first appearances resolve on the unique name index.
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "summoner_name"}},
			DoNothing: true,
		}).
		Create(player).Error
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return r.GetBySummonerName(ctx, name)
}

func (r *playerRepository) GetBySummonerName(ctx context.Context, summonerName string) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).
		Where("summoner_name = ?", domain.NormalizeSummonerName(summonerName)).
		First(&player).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	var player domain.Player
	err := r.db.WithContext(ctx).First(&player, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrPlayerNotFound
	}
	if err != nil {
		return nil, err
	}
	return &player, nil
}

func (r *playerRepository) UpdateProfile(ctx context.Context, summonerName, puuid, summonerID string, profileIconID int) error {
	updates := map[string]interface{}{}
	if puuid != "" {
		updates["puuid"] = puuid
	}
	if summonerID != "" {
		updates["summoner_id"] = summonerID
	}
	if profileIconID > 0 {
		updates["profile_icon_id"] = profileIconID
	}
	if len(updates) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(&domain.Player{}).
		Where("summoner_name = ?", domain.NormalizeSummonerName(summonerName)).
		Updates(updates).Error
}

func (r *playerRepository) ApplyResult(ctx context.Context, winners, losers []string, lpDelta int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if len(winners) > 0 {
			err := tx.Model(&domain.Player{}).
				Where("summoner_name IN ?", normalizeAll(winners)).
				UpdateColumns(map[string]interface{}{
					"custom_lp":  gorm.Expr("custom_lp + ?", lpDelta),
					"custom_mmr": gorm.Expr("custom_mmr + ?", lpDelta),
					"wins":       gorm.Expr("wins + 1"),
					"updated_at": gorm.Expr("NOW()"),
				}).Error
			if err != nil {
				return err
			}
		}
		if len(losers) > 0 {
			err := tx.Model(&domain.Player{}).
				Where("summoner_name IN ?", normalizeAll(losers)).
				UpdateColumns(map[string]interface{}{
					"custom_lp":  gorm.Expr("GREATEST(custom_lp - ?, 0)", lpDelta),
					"custom_mmr": gorm.Expr("GREATEST(custom_mmr - ?, 0)", lpDelta),
					"losses":     gorm.Expr("losses + 1"),
					"updated_at": gorm.Expr("NOW()"),
				}).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func normalizeAll(names []string) []string {
	out := make([]string, len(names))
	for i, n := range names {
		out[i] = domain.NormalizeSummonerName(n)
	}
	return out
}
