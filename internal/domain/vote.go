package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
)

// MatchVote links one player's opinion about which real game corresponds
// to the custom match. One row per (match, player); re-voting overwrites.
type MatchVote struct {
	ID           uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	MatchID      uuid.UUID `json:"matchId" gorm:"type:uuid;not null;uniqueIndex:idx_match_votes_match_player,priority:1"`
	PlayerID     uuid.UUID `json:"playerId" gorm:"type:uuid;not null;uniqueIndex:idx_match_votes_match_player,priority:2"`
	SummonerName string    `json:"summonerName" gorm:"not null"`
	LcuGameID    string    `json:"lcuGameId" gorm:"not null"`
	VotedAt      time.Time `json:"votedAt"`
}

func (MatchVote) TableName() string {
	return "match_votes"
}

// PrivilegedVoter carries a vote weight above 1 for the link quorum.
type PrivilegedVoter struct {
	SummonerName string `json:"summonerName"`
	Weight       int    `json:"weight"`
}

// TallyVotes folds votes into weighted counts per candidate game and
// returns the leading game with its total. Ties break toward the
// lexicographically smallest game id so the outcome is deterministic.
func TallyVotes(votes []MatchVote, weightOf func(summonerName string) int) (counts map[string]int, leader string, leaderWeight int) {
	counts = make(map[string]int)
	for _, v := range votes {
		w := 1
		if weightOf != nil {
			if got := weightOf(v.SummonerName); got > 1 {
				w = got
			}
		}
		counts[v.LcuGameID] += w
	}
	games := make([]string, 0, len(counts))
	for g := range counts {
		games = append(games, g)
	}
	sort.Strings(games)
	for _, g := range games {
		if counts[g] > leaderWeight {
			leader = g
			leaderWeight = counts[g]
		}
	}
	return counts, leader, leaderWeight
}

// QuorumTarget is min(configured quorum, sum of all participant weights):
// six weighted votes link a game, and a fully unanimous low-weight lobby
// links even when it cannot reach six.
func QuorumTarget(quorum int, participants []string, weightOf func(summonerName string) int) int {
	sum := 0
	for _, p := range participants {
		w := 1
		if weightOf != nil {
			if got := weightOf(p); got > 1 {
				w = got
			}
		}
		sum += w
	}
	if sum < quorum {
		return sum
	}
	return quorum
}
