package domain

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

type DraftTeam string

const (
	DraftTeamBlue DraftTeam = "blue"
	DraftTeamRed  DraftTeam = "red"
)

// TeamNumber maps draft sides onto the match team arrays: blue is team 1,
// red is team 2.
func (t DraftTeam) TeamNumber() int {
	if t == DraftTeamRed {
		return 2
	}
	return 1
}

func DraftTeamOf(teamNumber int) DraftTeam {
	if teamNumber == 2 {
		return DraftTeamRed
	}
	return DraftTeamBlue
}

type ActionType string

const (
	ActionTypeBan  ActionType = "ban"
	ActionTypePick ActionType = "pick"
)

type DraftPhase string

const (
	PhaseBan1  DraftPhase = "ban1"
	PhasePick1 DraftPhase = "pick1"
	PhaseBan2  DraftPhase = "ban2"
	PhasePick2 DraftPhase = "pick2"
)

// ScheduledAction is one step of the fixed tournament draft order. The
// owner of the step is whoever sits in (Team, Slot).
type ScheduledAction struct {
	Index int
	Phase DraftPhase
	Type  ActionType
	Team  DraftTeam
	Slot  Lane
}

// DraftSchedule is the standard 10-ban / 10-pick tournament sequence
// with the snake pick order in the middle phases.
var DraftSchedule = [20]ScheduledAction{
	{0, PhaseBan1, ActionTypeBan, DraftTeamBlue, LaneTop},
	{1, PhaseBan1, ActionTypeBan, DraftTeamRed, LaneTop},
	{2, PhaseBan1, ActionTypeBan, DraftTeamBlue, LaneJungle},
	{3, PhaseBan1, ActionTypeBan, DraftTeamRed, LaneJungle},
	{4, PhaseBan1, ActionTypeBan, DraftTeamBlue, LaneMid},
	{5, PhaseBan1, ActionTypeBan, DraftTeamRed, LaneMid},
	{6, PhasePick1, ActionTypePick, DraftTeamBlue, LaneTop},
	{7, PhasePick1, ActionTypePick, DraftTeamRed, LaneTop},
	{8, PhasePick1, ActionTypePick, DraftTeamRed, LaneJungle},
	{9, PhasePick1, ActionTypePick, DraftTeamBlue, LaneJungle},
	{10, PhasePick1, ActionTypePick, DraftTeamBlue, LaneMid},
	{11, PhasePick1, ActionTypePick, DraftTeamRed, LaneMid},
	{12, PhaseBan2, ActionTypeBan, DraftTeamRed, LaneBot},
	{13, PhaseBan2, ActionTypeBan, DraftTeamBlue, LaneBot},
	{14, PhaseBan2, ActionTypeBan, DraftTeamRed, LaneSupport},
	{15, PhaseBan2, ActionTypeBan, DraftTeamBlue, LaneSupport},
	{16, PhasePick2, ActionTypePick, DraftTeamBlue, LaneBot},
	{17, PhasePick2, ActionTypePick, DraftTeamRed, LaneBot},
	{18, PhasePick2, ActionTypePick, DraftTeamBlue, LaneSupport},
	{19, PhasePick2, ActionTypePick, DraftTeamRed, LaneSupport},
}

const TotalDraftActions = len(DraftSchedule)

type DraftActionStatus string

const (
	DraftActionPending   DraftActionStatus = "pending"
	DraftActionCompleted DraftActionStatus = "completed"
	DraftActionSkipped   DraftActionStatus = "skipped"
)

// DraftAction is one materialized schedule step inside pickBanData.
type DraftAction struct {
	Index        int               `json:"index"`
	Type         ActionType        `json:"type"`
	Phase        DraftPhase        `json:"phase"`
	Team         DraftTeam         `json:"team"`
	ByPlayer     string            `json:"byPlayer"`
	ChampionID   *int              `json:"championId,omitempty"`
	ChampionName string            `json:"championName,omitempty"`
	Status       DraftActionStatus `json:"status"`
	AutoFilled   bool              `json:"autoFilled,omitempty"`
	CompletedAt  *time.Time        `json:"completedAt,omitempty"`
}

// RosterEntry freezes one seat of the match: who sits where, what they
// asked for in queue, and how they answered the acceptance prompt.
// Acceptance state lives here, not on the live queue rows (those are
// gone by the time the prompt goes out), and the queue preferences ride
// along so a cancelled match can re-queue its survivors losslessly.
type RosterEntry struct {
	SummonerName     string           `json:"summonerName"`
	PlayerID         uuid.UUID        `json:"playerId"`
	Team             int              `json:"team"`
	Slot             Lane             `json:"slot"`
	PrimaryLane      Lane             `json:"primaryLane"`
	SecondaryLane    Lane             `json:"secondaryLane"`
	CustomMMR        int              `json:"customMmr"`
	Region           string           `json:"region,omitempty"`
	AcceptanceStatus AcceptanceStatus `json:"acceptanceStatus"`
	OriginalJoinTime time.Time        `json:"originalJoinTime"`
}

// Confirmation is one player's post-draft sign-off. Edits by anyone clear
// every other player's confirmation.
type Confirmation struct {
	Confirmed bool       `json:"confirmed"`
	At        *time.Time `json:"at,omitempty"`
}

// EditWindow tracks per-player edit activity during confirmation.
type EditWindow struct {
	OpenedAt   *time.Time `json:"openedAt,omitempty"`
	LastEditAt *time.Time `json:"lastEditAt,omitempty"`
}

// PickBanDocument is the persisted draft state machine. Everything an
// instance needs to resume a match after taking over the lease lives in
// here or in match columns; nothing survives only in memory.
type PickBanDocument struct {
	Roster                 []RosterEntry           `json:"roster"`
	Actions                []DraftAction           `json:"actions"`
	CurrentIndex           int                     `json:"currentIndex"`
	CurrentActionStartedAt *time.Time              `json:"currentActionStartedAt,omitempty"`
	ConfirmationStartedAt  *time.Time              `json:"confirmationStartedAt,omitempty"`
	Confirmations          map[string]Confirmation `json:"confirmations"`
	EditWindows            map[string]EditWindow   `json:"editWindows"`
	LastQueryableAt        *time.Time              `json:"lastQueryableAt,omitempty"`
}

// NewPickBanDocument builds the skeleton written at match creation: the
// frozen roster with everyone pending, and all 20 actions pending with
// their owners resolved from the lane seating. Teams arrive in lane-slot
// order (top, jungle, mid, bot, support).
func NewPickBanDocument(team1, team2 [5]QueuePlayer) *PickBanDocument {
	doc := &PickBanDocument{
		Roster:        make([]RosterEntry, 0, 10),
		Actions:       make([]DraftAction, 0, TotalDraftActions),
		Confirmations: make(map[string]Confirmation),
		EditWindows:   make(map[string]EditWindow),
	}
	seat := func(team int, slot int, qp QueuePlayer) RosterEntry {
		return RosterEntry{
			SummonerName:     qp.SummonerName,
			PlayerID:         qp.PlayerID,
			Team:             team,
			Slot:             LaneSlots[slot],
			PrimaryLane:      qp.PrimaryLane,
			SecondaryLane:    qp.SecondaryLane,
			CustomMMR:        qp.CustomMMR,
			Region:           qp.Region,
			AcceptanceStatus: AcceptancePending,
			OriginalJoinTime: qp.JoinTime,
		}
	}
	for i, qp := range team1 {
		doc.Roster = append(doc.Roster, seat(1, i, qp))
	}
	for i, qp := range team2 {
		doc.Roster = append(doc.Roster, seat(2, i, qp))
	}
	for _, step := range DraftSchedule {
		doc.Actions = append(doc.Actions, DraftAction{
			Index:    step.Index,
			Type:     step.Type,
			Phase:    step.Phase,
			Team:     step.Team,
			ByPlayer: doc.PlayerAt(step.Team, step.Slot),
			Status:   DraftActionPending,
		})
	}
	return doc
}

// DecodePickBanDocument unmarshals and normalizes a stored document.
// Legacy rows are tolerated at read time (missing maps, "adc" slots) but
// the canonical shape is the only thing ever written back.
func DecodePickBanDocument(raw []byte) (*PickBanDocument, error) {
	doc := &PickBanDocument{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, doc); err != nil {
			return nil, err
		}
	}
	if doc.Confirmations == nil {
		doc.Confirmations = make(map[string]Confirmation)
	}
	if doc.EditWindows == nil {
		doc.EditWindows = make(map[string]EditWindow)
	}
	for i := range doc.Roster {
		doc.Roster[i].SummonerName = NormalizeSummonerName(doc.Roster[i].SummonerName)
		doc.Roster[i].Slot = NormalizeLane(string(doc.Roster[i].Slot))
	}
	return doc, nil
}

// PlayerAt resolves the seat owner for (team, slot).
func (d *PickBanDocument) PlayerAt(team DraftTeam, slot Lane) string {
	n := team.TeamNumber()
	for _, r := range d.Roster {
		if r.Team == n && r.Slot == slot {
			return r.SummonerName
		}
	}
	return ""
}

// RosterFor returns the seat of a participant, or nil.
func (d *PickBanDocument) RosterFor(summonerName string) *RosterEntry {
	name := NormalizeSummonerName(summonerName)
	for i := range d.Roster {
		if d.Roster[i].SummonerName == name {
			return &d.Roster[i]
		}
	}
	return nil
}

// AcceptanceCounts returns accepted and total seats.
func (d *PickBanDocument) AcceptanceCounts() (accepted, total int) {
	for _, r := range d.Roster {
		if r.AcceptanceStatus == AcceptanceAccepted {
			accepted++
		}
	}
	return accepted, len(d.Roster)
}

// AtFaultPlayers lists decliners and non-responders after the window.
func (d *PickBanDocument) AtFaultPlayers() []string {
	var out []string
	for _, r := range d.Roster {
		if r.AcceptanceStatus != AcceptanceAccepted {
			out = append(out, r.SummonerName)
		}
	}
	return out
}

// SurvivorQueueRows rebuilds queue rows for seats that accepted, with the
// original join times so survivors keep their place in line.
func (d *PickBanDocument) SurvivorQueueRows() []QueuePlayer {
	var out []QueuePlayer
	for _, r := range d.Roster {
		if r.AcceptanceStatus != AcceptanceAccepted {
			continue
		}
		out = append(out, QueuePlayer{
			PlayerID:         r.PlayerID,
			SummonerName:     r.SummonerName,
			Region:           r.Region,
			CustomMMR:        r.CustomMMR,
			PrimaryLane:      r.PrimaryLane,
			SecondaryLane:    r.SecondaryLane,
			JoinTime:         r.OriginalJoinTime,
			Active:           true,
			AcceptanceStatus: AcceptancePending,
		})
	}
	return out
}

// UsedChampionIDs collects champion ids over completed actions. The
// uniqueness invariant is checked against this set.
func (d *PickBanDocument) UsedChampionIDs() map[int]bool {
	used := make(map[int]bool)
	for _, a := range d.Actions {
		if a.Status == DraftActionCompleted && a.ChampionID != nil {
			used[*a.ChampionID] = true
		}
	}
	return used
}

// ChampionUsed checks one id, optionally ignoring one action index (for
// edits that keep the same champion).
func (d *PickBanDocument) ChampionUsed(championID int, ignoreIndex int) bool {
	for _, a := range d.Actions {
		if a.Index == ignoreIndex {
			continue
		}
		if a.Status == DraftActionCompleted && a.ChampionID != nil && *a.ChampionID == championID {
			return true
		}
	}
	return false
}

// NextFreeChampionID picks the deterministic auto-fill champion: the
// lowest positive id not yet picked or banned.
func (d *PickBanDocument) NextFreeChampionID() int {
	used := d.UsedChampionIDs()
	ids := make([]int, 0, len(used))
	for id := range used {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	next := 1
	for _, id := range ids {
		if id == next {
			next++
		} else if id > next {
			break
		}
	}
	return next
}

// InConfirmation reports whether all 20 actions have been resolved.
func (d *PickBanDocument) InConfirmation() bool {
	return d.CurrentIndex >= TotalDraftActions
}

// ConfirmedCount counts seats that signed off on the current snapshot.
func (d *PickBanDocument) ConfirmedCount() int {
	n := 0
	for _, c := range d.Confirmations {
		if c.Confirmed {
			n++
		}
	}
	return n
}

// AllConfirmed is the 10/10 quorum check.
func (d *PickBanDocument) AllConfirmed() bool {
	return d.ConfirmedCount() >= len(d.Roster) && len(d.Roster) > 0
}

// ResetConfirmationsExcept clears every confirmation but the editor's
// own. Called on each edit during the confirmation stage.
func (d *PickBanDocument) ResetConfirmationsExcept(summonerName string) {
	keep := NormalizeSummonerName(summonerName)
	for name, c := range d.Confirmations {
		if name != keep && c.Confirmed {
			d.Confirmations[name] = Confirmation{}
		}
	}
}
