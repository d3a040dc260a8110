package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

type matchVoteRepository struct {
	db *gorm.DB
}

func NewMatchVoteRepository(db *gorm.DB) repository.MatchVoteRepository {
	return &matchVoteRepository{db: db}
}

// Upsert keeps the one-row-per-(match,player) invariant: re-voting
// overwrites the previous game id in place.
func (r *matchVoteRepository) Upsert(ctx context.Context, vote *domain.MatchVote) error {
	vote.SummonerName = domain.NormalizeSummonerName(vote.SummonerName)
	if vote.VotedAt.IsZero() {
		vote.VotedAt = time.Now().UTC()
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "match_id"}, {Name: "player_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"lcu_game_id", "voted_at", "summoner_name",
			}),
		}).
		Create(vote).Error
}

func (r *matchVoteRepository) ListByMatch(ctx context.Context, matchID uuid.UUID) ([]domain.MatchVote, error) {
	var votes []domain.MatchVote
	err := r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Order("voted_at ASC").
		Find(&votes).Error
	return votes, err
}

func (r *matchVoteRepository) DeleteByMatch(ctx context.Context, matchID uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("match_id = ?", matchID).
		Delete(&domain.MatchVote{}).Error
}
