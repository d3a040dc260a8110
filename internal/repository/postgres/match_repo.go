package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

var terminalStatuses = []domain.MatchStatus{
	domain.MatchStatusCompleted,
	domain.MatchStatusCancelled,
}

type matchRepository struct {
	db *gorm.DB
}

func NewMatchRepository(db *gorm.DB) repository.MatchRepository {
	return &matchRepository{db: db}
}

func (r *matchRepository) Create(ctx context.Context, m *domain.Match) error {
	return r.db.WithContext(ctx).Create(m).Error
}

func (r *matchRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	var m domain.Match
	err := r.db.WithContext(ctx).First(&m, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *matchRepository) GetActiveForPlayer(ctx context.Context, summonerName string) (*domain.Match, error) {
	name, err := jsonName(summonerName)
	if err != nil {
		return nil, err
	}
	var m domain.Match
	err = r.db.WithContext(ctx).
		Where("status NOT IN ?", terminalStatuses).
		Where("team1_players @> ? OR team2_players @> ?", name, name).
		Order("created_at DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrMatchNotFound
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *matchRepository) ListResumable(ctx context.Context, staleBefore time.Time) ([]domain.Match, error) {
	var out []domain.Match
	err := r.db.WithContext(ctx).
		Where("status NOT IN ?", terminalStatuses).
		Where("owner_backend_id IS NULL OR owner_heartbeat IS NULL OR owner_heartbeat < ?", staleBefore).
		Order("created_at ASC").
		Find(&out).Error
	return out, err
}

// TryClaimOwnership performs the row-atomic lease claim. The WHERE
// clause admits an unheld lease, a re-claim by the current owner, and a
// stale heartbeat; everyone else updates zero rows.
func (r *matchRepository) TryClaimOwnership(ctx context.Context, matchID uuid.UUID, newOwner string, now, staleBefore time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("id = ?", matchID).
		Where("status NOT IN ?", terminalStatuses).
		Where("owner_backend_id IS NULL OR owner_backend_id = ? OR owner_heartbeat IS NULL OR owner_heartbeat < ?",
			newOwner, staleBefore).
		Updates(map[string]interface{}{
			"owner_backend_id": newOwner,
			"owner_heartbeat":  now,
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpdateOwned is the only write path for non-terminal transitions: the
// statement carries the lease predicate, so a stolen lease shows up as
// zero affected rows and comes back as ErrLeaseLost. Terminal writes
// drop the lease columns in the same statement.
func (r *matchRepository) UpdateOwned(ctx context.Context, m *domain.Match, ownerID string) error {
	updates := map[string]interface{}{
		"status":            m.Status,
		"pick_ban_data":     m.PickBanData,
		"average_mmr_team1": m.AverageMmrTeam1,
		"average_mmr_team2": m.AverageMmrTeam2,
		"riot_game_id":      m.RiotGameID,
		"lcu_match_data":    m.LcuMatchData,
		"winner_team":       m.WinnerTeam,
		"completed_at":      m.CompletedAt,
		"updated_at":        time.Now().UTC(),
	}
	if m.Status.IsTerminal() {
		updates["owner_backend_id"] = nil
		updates["owner_heartbeat"] = nil
	}
	res := r.db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("id = ? AND owner_backend_id = ?", m.ID, ownerID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrLeaseLost
	}
	if m.Status.IsTerminal() {
		m.OwnerBackendID = nil
		m.OwnerHeartbeat = nil
	}
	return nil
}

func (r *matchRepository) HeartbeatOwner(ctx context.Context, matchID uuid.UUID, ownerID string, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&domain.Match{}).
		Where("id = ? AND owner_backend_id = ?", matchID, ownerID).
		Update("owner_heartbeat", now)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// jsonName renders a summoner name as a one-element JSON array for the
// jsonb containment operator.
func jsonName(summonerName string) (string, error) {
	name := domain.NormalizeSummonerName(summonerName)
	if name == "" {
		return "", domain.ErrInvalidInput
	}
	b, err := json.Marshal([]string{name})
	if err != nil {
		return "", err
	}
	return string(b), nil
}
