package domain

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type MatchStatus string

const (
	MatchStatusPending    MatchStatus = "pending"
	MatchStatusFound      MatchStatus = "found"
	MatchStatusAccepted   MatchStatus = "accepted"
	MatchStatusDraft      MatchStatus = "draft"
	MatchStatusInProgress MatchStatus = "in_progress"
	MatchStatusCompleted  MatchStatus = "completed"
	MatchStatusCancelled  MatchStatus = "cancelled"
)

// statusRank orders the forward path found -> accepted -> draft ->
// in_progress -> completed. Cancellation is reachable from any
// non-terminal state; terminal states have no successors.
var statusRank = map[MatchStatus]int{
	MatchStatusPending:    0,
	MatchStatusFound:      1,
	MatchStatusAccepted:   2,
	MatchStatusDraft:      3,
	MatchStatusInProgress: 4,
	MatchStatusCompleted:  5,
	MatchStatusCancelled:  5,
}

func (s MatchStatus) IsTerminal() bool {
	return s == MatchStatusCompleted || s == MatchStatusCancelled
}

// CanTransitionTo enforces the monotone status path: strictly forward,
// never out of a terminal state, and completed/cancelled never swap.
func (s MatchStatus) CanTransitionTo(next MatchStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == MatchStatusCancelled {
		return true
	}
	return statusRank[next] > statusRank[s]
}

// Match is the central aggregate. team1Players and team2Players are
// ordered JSON arrays of summoner names where index 0..4 means
// top/jungle/mid/bot/support. Team 1 drafts blue side, team 2 red.
type Match struct {
	ID              uuid.UUID      `json:"id" gorm:"type:uuid;primary_key;default:gen_random_uuid()"`
	Status          MatchStatus    `json:"status" gorm:"not null;default:'found';index:idx_custom_matches_status_completed,priority:1"`
	Team1Players    datatypes.JSON `json:"team1Players"`
	Team2Players    datatypes.JSON `json:"team2Players"`
	AverageMmrTeam1 int            `json:"averageMmrTeam1"`
	AverageMmrTeam2 int            `json:"averageMmrTeam2"`
	PickBanData     datatypes.JSON `json:"pickBanData"`
	LcuMatchData    datatypes.JSON `json:"lcuMatchData,omitempty"`
	RiotGameID      string         `json:"riotGameId" gorm:"index"`
	WinnerTeam      *int           `json:"winnerTeam"`
	OwnerBackendID  *string        `json:"ownerBackendId"`
	OwnerHeartbeat  *time.Time     `json:"ownerHeartbeat"`
	CreatedAt       time.Time      `json:"createdAt"`
	CompletedAt     *time.Time     `json:"completedAt" gorm:"index:idx_custom_matches_status_completed,priority:2"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

func (Match) TableName() string {
	return "custom_matches"
}

// SetTeams stores the ordered rosters.
func (m *Match) SetTeams(team1, team2 [5]string) error {
	b1, err := json.Marshal(team1[:])
	if err != nil {
		return err
	}
	b2, err := json.Marshal(team2[:])
	if err != nil {
		return err
	}
	m.Team1Players = datatypes.JSON(b1)
	m.Team2Players = datatypes.JSON(b2)
	return nil
}

// Teams decodes the ordered rosters.
func (m *Match) Teams() (team1, team2 [5]string, err error) {
	var t1, t2 []string
	if err = json.Unmarshal(m.Team1Players, &t1); err != nil {
		return
	}
	if err = json.Unmarshal(m.Team2Players, &t2); err != nil {
		return
	}
	copy(team1[:], t1)
	copy(team2[:], t2)
	return
}

// Participants returns all 10 summoner names, team 1 first.
func (m *Match) Participants() []string {
	t1, t2, err := m.Teams()
	if err != nil {
		return nil
	}
	out := make([]string, 0, 10)
	out = append(out, t1[:]...)
	out = append(out, t2[:]...)
	return out
}

// HasParticipant checks membership by canonical name.
func (m *Match) HasParticipant(summonerName string) bool {
	name := NormalizeSummonerName(summonerName)
	for _, p := range m.Participants() {
		if p == name {
			return true
		}
	}
	return false
}

// TeamOf returns 1 or 2 for a participant, 0 otherwise.
func (m *Match) TeamOf(summonerName string) int {
	name := NormalizeSummonerName(summonerName)
	t1, t2, err := m.Teams()
	if err != nil {
		return 0
	}
	for _, p := range t1 {
		if p == name {
			return 1
		}
	}
	for _, p := range t2 {
		if p == name {
			return 2
		}
	}
	return 0
}

// Document decodes pickBanData. A nil slice yields an empty document so
// callers can rehydrate defensively.
func (m *Match) Document() (*PickBanDocument, error) {
	return DecodePickBanDocument(m.PickBanData)
}

// SetDocument re-encodes pickBanData after an FSM step.
func (m *Match) SetDocument(doc *PickBanDocument) error {
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	m.PickBanData = datatypes.JSON(b)
	return nil
}
