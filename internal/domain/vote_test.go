package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dom/league-customs/internal/domain"
)

func vote(name, gameID string) domain.MatchVote {
	return domain.MatchVote{SummonerName: name, LcuGameID: gameID}
}

func TestTallyVotes_UnweightedMajority(t *testing.T) {
	votes := []domain.MatchVote{
		vote("a#t", "9000"),
		vote("b#t", "9000"),
		vote("c#t", "9000"),
		vote("d#t", "9001"),
	}

	counts, leader, weight := domain.TallyVotes(votes, nil)
	assert.Equal(t, 3, counts["9000"])
	assert.Equal(t, 1, counts["9001"])
	assert.Equal(t, "9000", leader)
	assert.Equal(t, 3, weight)
}

func TestTallyVotes_PrivilegedWeight(t *testing.T) {
	weightOf := func(name string) int {
		if name == "captain#t" {
			return 5
		}
		return 1
	}

	votes := []domain.MatchVote{
		vote("a#t", "9000"),
		vote("b#t", "9000"),
		vote("c#t", "9000"),
		vote("captain#t", "9001"),
	}

	counts, leader, weight := domain.TallyVotes(votes, weightOf)
	assert.Equal(t, 3, counts["9000"])
	assert.Equal(t, 5, counts["9001"])
	assert.Equal(t, "9001", leader)
	assert.Equal(t, 5, weight)
}

func TestTallyVotes_TieBreaksDeterministically(t *testing.T) {
	votes := []domain.MatchVote{
		vote("a#t", "9001"),
		vote("b#t", "9000"),
	}

	// Same weight on both games: the smaller game id leads regardless of
	// vote arrival order.
	_, leader, weight := domain.TallyVotes(votes, nil)
	assert.Equal(t, "9000", leader)
	assert.Equal(t, 1, weight)
}

func TestTallyVotes_Empty(t *testing.T) {
	counts, leader, weight := domain.TallyVotes(nil, nil)
	assert.Empty(t, counts)
	assert.Empty(t, leader)
	assert.Zero(t, weight)
}

func TestQuorumTarget(t *testing.T) {
	participants := []string{"a#t", "b#t", "c#t", "d#t", "e#t", "f#t", "g#t", "h#t", "i#t", "j#t"}

	assert.Equal(t, 6, domain.QuorumTarget(6, participants, nil))

	// A lobby whose total weight is below the quorum can still link when
	// unanimous.
	assert.Equal(t, 3, domain.QuorumTarget(6, participants[:3], nil))

	// Privileged weights push the total back over the configured quorum
	weightOf := func(name string) int {
		if name == "a#t" {
			return 4
		}
		return 1
	}
	assert.Equal(t, 6, domain.QuorumTarget(6, participants[:3], weightOf))
}
