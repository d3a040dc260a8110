package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/config"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

// MatchService serves match reads and the link-vote write path. State
// transitions stay with the owning instance's runner; votes are plain
// rows any instance may insert, with the owner reacting to the event.
type MatchService struct {
	repos *repository.Repositories
	bus   *bus.Bus
	cfg   *config.Config
}

func NewMatchService(repos *repository.Repositories, b *bus.Bus, cfg *config.Config) *MatchService {
	return &MatchService{repos: repos, bus: b, cfg: cfg}
}

func (s *MatchService) GetMatch(ctx context.Context, id uuid.UUID) (*domain.Match, error) {
	return s.repos.Match.GetByID(ctx, id)
}

// ActiveMatchFor finds the player's current non-terminal match.
func (s *MatchService) ActiveMatchFor(ctx context.Context, summonerName string) (*domain.Match, error) {
	return s.repos.Match.GetActiveForPlayer(ctx, domain.NormalizeSummonerName(summonerName))
}

// VoteTally is the weighted state of a match's link vote.
type VoteTally struct {
	Counts       map[string]int     `json:"counts"`
	Leader       string             `json:"leader,omitempty"`
	LeaderWeight int                `json:"leaderWeight"`
	QuorumTarget int                `json:"quorumTarget"`
	Votes        []domain.MatchVote `json:"votes"`
}

// Tally recomputes the current vote state from storage.
func (s *MatchService) Tally(ctx context.Context, match *domain.Match) (*VoteTally, error) {
	votes, err := s.repos.Vote.ListByMatch(ctx, match.ID)
	if err != nil {
		return nil, err
	}
	counts, leader, leaderWeight := domain.TallyVotes(votes, s.cfg.VoteWeight)
	return &VoteTally{
		Counts:       counts,
		Leader:       leader,
		LeaderWeight: leaderWeight,
		QuorumTarget: domain.QuorumTarget(s.cfg.LinkVoteQuorum, match.Participants(), s.cfg.VoteWeight),
		Votes:        votes,
	}, nil
}

// ListVotes answers the REST votes view.
func (s *MatchService) ListVotes(ctx context.Context, matchID uuid.UUID) (*VoteTally, error) {
	match, err := s.repos.Match.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	return s.Tally(ctx, match)
}

// CastVote records or overwrites one player's vote for the real game id
// behind an in-progress match, then announces the new tally. Participants
// and privileged voters may vote.
func (s *MatchService) CastVote(ctx context.Context, matchID uuid.UUID, summonerName, lcuGameID string) (*VoteTally, error) {
	if lcuGameID == "" {
		return nil, domain.ErrInvalidInput
	}
	name := domain.NormalizeSummonerName(summonerName)

	match, err := s.repos.Match.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match.Status.IsTerminal() {
		return nil, domain.ErrMatchTerminal
	}
	if match.Status != domain.MatchStatusInProgress {
		return nil, domain.ErrInvalidTransition
	}
	if !match.HasParticipant(name) && !s.cfg.IsPrivileged(name) {
		return nil, domain.ErrNotParticipant
	}

	player, err := s.repos.Player.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	vote := &domain.MatchVote{
		MatchID:      matchID,
		PlayerID:     player.ID,
		SummonerName: name,
		LcuGameID:    lcuGameID,
		VotedAt:      time.Now().UTC(),
	}
	if err := s.repos.Vote.Upsert(ctx, vote); err != nil {
		return nil, err
	}

	tally, err := s.Tally(ctx, match)
	if err != nil {
		return nil, err
	}
	log.Printf("Match: %s voted %s on %s (%d/%d)", name, lcuGameID, matchID, tally.Counts[lcuGameID], tally.QuorumTarget)

	payload := bus.GameVotePayload{
		MatchID:      matchID,
		SummonerName: name,
		LcuGameID:    lcuGameID,
		Counts:       tally.Counts,
		QuorumTarget: tally.QuorumTarget,
		Participants: match.Participants(),
	}
	if _, err := s.bus.Publish(ctx, bus.TopicGameVote, payload); err != nil {
		log.Printf("Match: publish game.vote: %v", err)
	}
	return tally, nil
}
