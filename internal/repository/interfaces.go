package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/dom/league-customs/internal/domain"
)

type PlayerRepository interface {
	// GetOrCreate resolves a canonical summoner name to its persistent
	// row, creating it with default ratings on first appearance.
	GetOrCreate(ctx context.Context, summonerName string) (*domain.Player, error)
	GetBySummonerName(ctx context.Context, summonerName string) (*domain.Player, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error)
	// UpdateProfile refreshes the vendor identifiers a gateway advertises.
	UpdateProfile(ctx context.Context, summonerName, puuid, summonerID string, profileIconID int) error
	// ApplyResult moves ratings and counters after a game is linked.
	ApplyResult(ctx context.Context, winners, losers []string, lpDelta int) error
}

type QueuePlayerRepository interface {
	Insert(ctx context.Context, qp *domain.QueuePlayer) error
	GetBySummonerName(ctx context.Context, summonerName string) (*domain.QueuePlayer, error)
	// DeleteBySummonerName reports whether a row existed, making leave
	// idempotent at the service layer.
	DeleteBySummonerName(ctx context.Context, summonerName string) (bool, error)
	DeleteByIDs(ctx context.Context, ids []uuid.UUID) error
	// ListActive returns active rows ordered by (join_time, summoner_name)
	// so match building is deterministic.
	ListActive(ctx context.Context) ([]domain.QueuePlayer, error)
	// ListActiveLocked is ListActive with row locks, used inside the
	// match-formation transaction so concurrent instances serialize.
	ListActiveLocked(ctx context.Context) ([]domain.QueuePlayer, error)
	Count(ctx context.Context) (int64, error)
}

type MatchRepository interface {
	Create(ctx context.Context, m *domain.Match) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Match, error)
	// GetActiveForPlayer finds the single non-terminal match containing
	// the summoner name, or ErrMatchNotFound.
	GetActiveForPlayer(ctx context.Context, summonerName string) (*domain.Match, error)
	// ListResumable returns non-terminal matches whose lease is free or
	// stale, for startup takeover sweeps.
	ListResumable(ctx context.Context, staleBefore time.Time) ([]domain.Match, error)
	// TryClaimOwnership is the row-atomic lease claim: it succeeds iff
	// the lease is unheld, already ours, or stale.
	TryClaimOwnership(ctx context.Context, matchID uuid.UUID, newOwner string, now, staleBefore time.Time) (bool, error)
	// UpdateOwned writes match state iff the caller still holds the
	// lease; zero affected rows surfaces ErrLeaseLost. Terminal writes
	// clear the lease columns in the same statement.
	UpdateOwned(ctx context.Context, m *domain.Match, ownerID string) error
	// HeartbeatOwner refreshes the lease timestamp, reporting whether the
	// caller still owned the row.
	HeartbeatOwner(ctx context.Context, matchID uuid.UUID, ownerID string, now time.Time) (bool, error)
}

type MatchVoteRepository interface {
	// Upsert inserts or overwrites the (match, player) vote.
	Upsert(ctx context.Context, vote *domain.MatchVote) error
	ListByMatch(ctx context.Context, matchID uuid.UUID) ([]domain.MatchVote, error)
	DeleteByMatch(ctx context.Context, matchID uuid.UUID) error
}

type EventInboxRepository interface {
	// Insert records an event id for one consuming instance, returning
	// false on a duplicate.
	Insert(ctx context.Context, instanceID, eventID, eventType string) (bool, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

type SettingsRepository interface {
	Get(ctx context.Context, key string) (*domain.Setting, error)
	Set(ctx context.Context, key string, value datatypes.JSON) error
	// SetJSON marshals value before storing it under key.
	SetJSON(ctx context.Context, key string, value any) error
	GetPrivilegedVoters(ctx context.Context) ([]domain.PrivilegedVoter, error)
}

// TxRunner executes fn with every repository bound to one transaction.
type TxRunner interface {
	InTx(ctx context.Context, fn func(*Repositories) error) error
}

type Repositories struct {
	Player   PlayerRepository
	Queue    QueuePlayerRepository
	Match    MatchRepository
	Vote     MatchVoteRepository
	Inbox    EventInboxRepository
	Settings SettingsRepository
	Tx       TxRunner
}
