package match

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/league-customs/internal/domain"
)

func TestWinFlag(t *testing.T) {
	assert.True(t, winFlag(json.RawMessage(`"Win"`)))
	assert.True(t, winFlag(json.RawMessage(`"win"`)))
	assert.True(t, winFlag(json.RawMessage(`true`)))
	assert.False(t, winFlag(json.RawMessage(`"Fail"`)))
	assert.False(t, winFlag(json.RawMessage(`false`)))
	assert.False(t, winFlag(json.RawMessage(`null`)))
	assert.False(t, winFlag(nil))
}

func linkedMatch(t *testing.T) *domain.Match {
	t.Helper()

	m := &domain.Match{}
	require.NoError(t, m.SetTeams(
		[5]string{"a#t", "b#t", "c#t", "d#t", "e#t"},
		[5]string{"f#t", "g#t", "h#t", "i#t", "j#t"},
	))
	return m
}

// gameBlob builds a vendor game blob placing two known players on the
// given sides, with side winnerSide marked as the winner.
func gameBlob(winEncoding func(won bool) string, winnerSide int, nameField string) []byte {
	blob := fmt.Sprintf(`{
		"teams": [
			{"teamId": 100, "win": %s},
			{"teamId": 200, "win": %s}
		],
		"participants": [
			{"participantId": 1, "teamId": 100},
			{"participantId": 6, "teamId": 200}
		],
		"participantIdentities": [
			{"participantId": 1, "player": {"%s": "A#T"}},
			{"participantId": 6, "player": {"%s": "F#T"}}
		]
	}`, winEncoding(winnerSide == 100), winEncoding(winnerSide == 200), nameField, nameField)
	return []byte(blob)
}

func stringWin(won bool) string {
	if won {
		return `"Win"`
	}
	return `"Fail"`
}

func boolWin(won bool) string {
	if won {
		return `true`
	}
	return `false`
}

func TestDeriveWinner_Team1OnWinningSide(t *testing.T) {
	m := linkedMatch(t)
	// Player a#t (our team 1) sits on side 100, which won
	assert.Equal(t, 1, deriveWinner(gameBlob(stringWin, 100, "summonerName"), m))
}

func TestDeriveWinner_Team1OnLosingSide(t *testing.T) {
	m := linkedMatch(t)
	// a#t sits on side 100, side 200 won, so our team 2 took the game
	assert.Equal(t, 2, deriveWinner(gameBlob(stringWin, 200, "summonerName"), m))
}

func TestDeriveWinner_BooleanEncoding(t *testing.T) {
	m := linkedMatch(t)
	assert.Equal(t, 1, deriveWinner(gameBlob(boolWin, 100, "summonerName"), m))
	assert.Equal(t, 2, deriveWinner(gameBlob(boolWin, 200, "summonerName"), m))
}

func TestDeriveWinner_GameNameFallback(t *testing.T) {
	m := linkedMatch(t)
	// Older clients omit summonerName and carry gameName only. a#t still
	// resolves because the riot id "a#t" is stored canonical.
	blob := []byte(`{
		"teams": [{"teamId": 100, "win": "Win"}, {"teamId": 200, "win": "Fail"}],
		"participants": [{"participantId": 3, "teamId": 100}],
		"participantIdentities": [{"participantId": 3, "player": {"gameName": "A#T"}}]
	}`)
	assert.Equal(t, 1, deriveWinner(blob, m))
}

func TestDeriveWinner_UnknownWithoutParticipants(t *testing.T) {
	m := linkedMatch(t)

	// Nobody in the blob belongs to the match
	blob := []byte(`{
		"teams": [{"teamId": 100, "win": "Win"}, {"teamId": 200, "win": "Fail"}],
		"participants": [{"participantId": 1, "teamId": 100}],
		"participantIdentities": [{"participantId": 1, "player": {"summonerName": "stranger#xx"}}]
	}`)
	assert.Zero(t, deriveWinner(blob, m))
}

func TestDeriveWinner_UnknownWithoutWinner(t *testing.T) {
	m := linkedMatch(t)

	// A remake-style blob where no side is marked as winning
	blob := []byte(`{
		"teams": [{"teamId": 100, "win": "Fail"}, {"teamId": 200, "win": "Fail"}],
		"participants": [{"participantId": 1, "teamId": 100}],
		"participantIdentities": [{"participantId": 1, "player": {"summonerName": "a#t"}}]
	}`)
	assert.Zero(t, deriveWinner(blob, m))
}

func TestDeriveWinner_ToleratesGarbage(t *testing.T) {
	m := linkedMatch(t)
	assert.Zero(t, deriveWinner(nil, m))
	assert.Zero(t, deriveWinner([]byte(`{}`), m))
	assert.Zero(t, deriveWinner([]byte(`not json`), m))
}
