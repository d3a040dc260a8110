package domain_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dom/league-customs/internal/domain"
)

func laneTeam(prefix string) [5]domain.QueuePlayer {
	var team [5]domain.QueuePlayer
	for i, slot := range domain.LaneSlots {
		team[i] = domain.QueuePlayer{
			ID:            uuid.New(),
			PlayerID:      uuid.New(),
			SummonerName:  fmt.Sprintf("%s_%s#test", prefix, slot),
			CustomMMR:     1000 + i*10,
			PrimaryLane:   slot,
			SecondaryLane: domain.LaneFill,
			JoinTime:      time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		}
	}
	return team
}

func TestDraftSchedule_Composition(t *testing.T) {
	require.Len(t, domain.DraftSchedule, 20)

	bans, picks := 0, 0
	blue, red := 0, 0
	for i, step := range domain.DraftSchedule {
		assert.Equal(t, i, step.Index, "schedule indexes must be dense")
		assert.True(t, step.Slot.IsSlot(), "every step needs a concrete slot")
		switch step.Type {
		case domain.ActionTypeBan:
			bans++
		case domain.ActionTypePick:
			picks++
		}
		switch step.Team {
		case domain.DraftTeamBlue:
			blue++
		case domain.DraftTeamRed:
			red++
		}
	}
	assert.Equal(t, 10, bans)
	assert.Equal(t, 10, picks)
	assert.Equal(t, 10, blue)
	assert.Equal(t, 10, red)
}

func TestDraftSchedule_PhaseOrder(t *testing.T) {
	// ban1 -> pick1 -> ban2 -> pick2, with no interleaving
	wantPhases := []domain.DraftPhase{}
	wantPhases = append(wantPhases, repeatPhase(domain.PhaseBan1, 6)...)
	wantPhases = append(wantPhases, repeatPhase(domain.PhasePick1, 6)...)
	wantPhases = append(wantPhases, repeatPhase(domain.PhaseBan2, 4)...)
	wantPhases = append(wantPhases, repeatPhase(domain.PhasePick2, 4)...)

	for i, step := range domain.DraftSchedule {
		assert.Equal(t, wantPhases[i], step.Phase, "step %d", i)
	}

	// First pick phase snakes: blue, red, red, blue, blue, red
	wantTeams := []domain.DraftTeam{
		domain.DraftTeamBlue, domain.DraftTeamRed, domain.DraftTeamRed,
		domain.DraftTeamBlue, domain.DraftTeamBlue, domain.DraftTeamRed,
	}
	for i, team := range wantTeams {
		assert.Equal(t, team, domain.DraftSchedule[6+i].Team, "pick1 step %d", i)
	}
}

func repeatPhase(p domain.DraftPhase, n int) []domain.DraftPhase {
	out := make([]domain.DraftPhase, n)
	for i := range out {
		out[i] = p
	}
	return out
}

func TestNewPickBanDocument_SeatsAndOwners(t *testing.T) {
	team1 := laneTeam("blue")
	team2 := laneTeam("red")

	doc := domain.NewPickBanDocument(team1, team2)

	require.Len(t, doc.Roster, 10)
	require.Len(t, doc.Actions, 20)
	assert.Equal(t, 0, doc.CurrentIndex)

	for i, r := range doc.Roster {
		assert.Equal(t, domain.AcceptancePending, r.AcceptanceStatus, "seat %d", i)
	}

	// Seats map back through PlayerAt
	assert.Equal(t, team1[0].SummonerName, doc.PlayerAt(domain.DraftTeamBlue, domain.LaneTop))
	assert.Equal(t, team2[4].SummonerName, doc.PlayerAt(domain.DraftTeamRed, domain.LaneSupport))

	// Every action owner is the seat holder of its (team, slot)
	for _, a := range doc.Actions {
		step := domain.DraftSchedule[a.Index]
		assert.Equal(t, doc.PlayerAt(step.Team, step.Slot), a.ByPlayer, "action %d", a.Index)
		assert.Equal(t, domain.DraftActionPending, a.Status)
		assert.Nil(t, a.ChampionID)
	}

	// First action belongs to blue top
	assert.Equal(t, team1[0].SummonerName, doc.Actions[0].ByPlayer)
}

func TestPickBanDocument_AcceptanceAccounting(t *testing.T) {
	doc := domain.NewPickBanDocument(laneTeam("blue"), laneTeam("red"))

	accepted, total := doc.AcceptanceCounts()
	assert.Equal(t, 0, accepted)
	assert.Equal(t, 10, total)
	assert.Len(t, doc.AtFaultPlayers(), 10)
	assert.Empty(t, doc.SurvivorQueueRows())

	// Seven accept, one declines, two never answer
	for i := 0; i < 7; i++ {
		doc.Roster[i].AcceptanceStatus = domain.AcceptanceAccepted
	}
	doc.Roster[7].AcceptanceStatus = domain.AcceptanceDeclined

	accepted, _ = doc.AcceptanceCounts()
	assert.Equal(t, 7, accepted)

	atFault := doc.AtFaultPlayers()
	assert.Len(t, atFault, 3)
	assert.Contains(t, atFault, doc.Roster[7].SummonerName)

	survivors := doc.SurvivorQueueRows()
	require.Len(t, survivors, 7)
	for _, s := range survivors {
		seat := doc.RosterFor(s.SummonerName)
		require.NotNil(t, seat)
		assert.Equal(t, seat.OriginalJoinTime, s.JoinTime, "survivors keep their original join time")
		assert.Equal(t, seat.PrimaryLane, s.PrimaryLane)
		assert.Equal(t, domain.AcceptancePending, s.AcceptanceStatus)
		assert.True(t, s.Active)
	}
}

func TestPickBanDocument_ChampionUniqueness(t *testing.T) {
	doc := domain.NewPickBanDocument(laneTeam("blue"), laneTeam("red"))

	now := time.Now()
	complete := func(index, champion int) {
		doc.Actions[index].Status = domain.DraftActionCompleted
		doc.Actions[index].ChampionID = &champion
		doc.Actions[index].CompletedAt = &now
	}

	complete(0, 1)
	complete(1, 2)
	complete(2, 4)

	used := doc.UsedChampionIDs()
	assert.True(t, used[1])
	assert.True(t, used[4])
	assert.False(t, used[3])

	assert.True(t, doc.ChampionUsed(2, -1))
	assert.False(t, doc.ChampionUsed(2, 1), "an edit keeping its own champion is not a collision")
	assert.False(t, doc.ChampionUsed(99, -1))

	// Lowest free positive id skips over the taken prefix
	assert.Equal(t, 3, doc.NextFreeChampionID())
	complete(3, 3)
	assert.Equal(t, 5, doc.NextFreeChampionID())
}

func TestPickBanDocument_SkippedActionsDoNotReserve(t *testing.T) {
	doc := domain.NewPickBanDocument(laneTeam("blue"), laneTeam("red"))

	champion := 7
	doc.Actions[0].Status = domain.DraftActionSkipped
	doc.Actions[0].ChampionID = &champion

	assert.False(t, doc.ChampionUsed(7, -1))
	assert.Equal(t, 1, doc.NextFreeChampionID())
}

func TestPickBanDocument_Confirmations(t *testing.T) {
	doc := domain.NewPickBanDocument(laneTeam("blue"), laneTeam("red"))

	assert.False(t, doc.InConfirmation())
	doc.CurrentIndex = domain.TotalDraftActions
	assert.True(t, doc.InConfirmation())

	now := time.Now()
	for _, r := range doc.Roster {
		doc.Confirmations[r.SummonerName] = domain.Confirmation{Confirmed: true, At: &now}
	}
	assert.Equal(t, 10, doc.ConfirmedCount())
	assert.True(t, doc.AllConfirmed())

	editor := doc.Roster[3].SummonerName
	doc.ResetConfirmationsExcept(editor)

	assert.Equal(t, 1, doc.ConfirmedCount(), "only the editor keeps their confirmation")
	assert.True(t, doc.Confirmations[editor].Confirmed)
	assert.False(t, doc.AllConfirmed())
}

func TestDecodePickBanDocument_NormalizesLegacyRows(t *testing.T) {
	raw := []byte(`{
		"roster": [
			{"summonerName": "  Faker#KR1 ", "team": 1, "slot": "adc", "acceptanceStatus": "accepted"}
		],
		"actions": [],
		"currentIndex": 3
	}`)

	doc, err := domain.DecodePickBanDocument(raw)
	require.NoError(t, err)

	require.Len(t, doc.Roster, 1)
	assert.Equal(t, "faker#kr1", doc.Roster[0].SummonerName)
	assert.Equal(t, domain.LaneBot, doc.Roster[0].Slot, "legacy adc slot maps to bot")
	assert.NotNil(t, doc.Confirmations, "missing maps are materialized")
	assert.NotNil(t, doc.EditWindows)
	assert.Equal(t, 3, doc.CurrentIndex)
}

func TestDecodePickBanDocument_EmptyAndInvalid(t *testing.T) {
	doc, err := domain.DecodePickBanDocument(nil)
	require.NoError(t, err)
	assert.Empty(t, doc.Roster)
	assert.NotNil(t, doc.Confirmations)

	_, err = domain.DecodePickBanDocument([]byte(`{"roster": "nope"}`))
	require.Error(t, err)
}

func TestPickBanDocument_RoundTrip(t *testing.T) {
	doc := domain.NewPickBanDocument(laneTeam("blue"), laneTeam("red"))
	champion := 42
	now := time.Now().UTC().Truncate(time.Second)
	doc.Actions[0].Status = domain.DraftActionCompleted
	doc.Actions[0].ChampionID = &champion
	doc.Actions[0].ChampionName = "Corki"
	doc.Actions[0].CompletedAt = &now
	doc.CurrentIndex = 1
	doc.CurrentActionStartedAt = &now

	data, err := json.Marshal(doc)
	require.NoError(t, err)

	decoded, err := domain.DecodePickBanDocument(data)
	require.NoError(t, err)
	assert.Equal(t, 1, decoded.CurrentIndex)
	require.NotNil(t, decoded.Actions[0].ChampionID)
	assert.Equal(t, 42, *decoded.Actions[0].ChampionID)
	assert.Equal(t, "Corki", decoded.Actions[0].ChampionName)
	assert.Equal(t, doc.Roster, decoded.Roster)
}
