package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/league-customs/internal/domain"
)

func TestMatchStatus_Transitions(t *testing.T) {
	forward := []domain.MatchStatus{
		domain.MatchStatusFound,
		domain.MatchStatusAccepted,
		domain.MatchStatusDraft,
		domain.MatchStatusInProgress,
		domain.MatchStatusCompleted,
	}

	// Each status reaches every later one but never an earlier one
	for i, from := range forward {
		for j, to := range forward {
			if i == j {
				continue
			}
			got := from.CanTransitionTo(to)
			if from.IsTerminal() {
				assert.False(t, got, "%s -> %s", from, to)
			} else {
				assert.Equal(t, j > i, got, "%s -> %s", from, to)
			}
		}
	}

	// Cancellation is reachable from any non-terminal status
	for _, from := range forward[:len(forward)-1] {
		assert.True(t, from.CanTransitionTo(domain.MatchStatusCancelled), "%s -> cancelled", from)
	}

	// Terminal states never swap
	assert.False(t, domain.MatchStatusCompleted.CanTransitionTo(domain.MatchStatusCancelled))
	assert.False(t, domain.MatchStatusCancelled.CanTransitionTo(domain.MatchStatusCompleted))

	assert.True(t, domain.MatchStatusCompleted.IsTerminal())
	assert.True(t, domain.MatchStatusCancelled.IsTerminal())
	assert.False(t, domain.MatchStatusDraft.IsTerminal())
}

func TestMatch_TeamsAndMembership(t *testing.T) {
	m := &domain.Match{}
	team1 := [5]string{"a#t", "b#t", "c#t", "d#t", "e#t"}
	team2 := [5]string{"f#t", "g#t", "h#t", "i#t", "j#t"}
	require.NoError(t, m.SetTeams(team1, team2))

	t1, t2, err := m.Teams()
	require.NoError(t, err)
	assert.Equal(t, team1, t1)
	assert.Equal(t, team2, t2)

	participants := m.Participants()
	require.Len(t, participants, 10)
	assert.Equal(t, "a#t", participants[0])
	assert.Equal(t, "j#t", participants[9])

	assert.True(t, m.HasParticipant("C#T"), "membership is case-insensitive")
	assert.False(t, m.HasParticipant("z#t"))

	assert.Equal(t, 1, m.TeamOf("e#t"))
	assert.Equal(t, 2, m.TeamOf("  F#T "))
	assert.Equal(t, 0, m.TeamOf("stranger#t"))
}

func TestMatch_DocumentRoundTrip(t *testing.T) {
	m := &domain.Match{}

	// Nil pickBanData still decodes into a usable empty document
	doc, err := m.Document()
	require.NoError(t, err)
	assert.Empty(t, doc.Roster)

	full := domain.NewPickBanDocument(laneTeam("blue"), laneTeam("red"))
	full.CurrentIndex = 7
	require.NoError(t, m.SetDocument(full))

	decoded, err := m.Document()
	require.NoError(t, err)
	assert.Equal(t, 7, decoded.CurrentIndex)
	assert.Len(t, decoded.Roster, 10)
	assert.Len(t, decoded.Actions, 20)
}

func TestSummonerNameHelpers(t *testing.T) {
	assert.Equal(t, "faker#kr1", domain.NormalizeSummonerName("  Faker#KR1 "))
	assert.Equal(t, "faker#kr1", domain.CanonicalSummonerName("Faker", "KR1"))

	game, tag := domain.SplitSummonerName("faker#kr1")
	assert.Equal(t, "faker", game)
	assert.Equal(t, "kr1", tag)

	game, tag = domain.SplitSummonerName("legacyname")
	assert.Equal(t, "legacyname", game)
	assert.Empty(t, tag)

	// The last separator wins for names that contain one
	game, tag = domain.SplitSummonerName("a#b#c")
	assert.Equal(t, "a#b", game)
	assert.Equal(t, "c", tag)
}
