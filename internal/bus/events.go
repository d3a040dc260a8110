package bus

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/domain"
)

// Topics, one Redis channel per event kind. The gateway.* and
// match.action channels are internal routing topics: they carry frames
// between instances and never reach a client directly.
const (
	TopicQueueUpdate       = "queue.update"
	TopicQueuePlayerJoined = "queue.player_joined"
	TopicQueuePlayerLeft   = "queue.player_left"
	TopicMatchFound        = "match.found"
	TopicMatchAcceptance   = "match.acceptance"
	TopicMatchCancelled    = "match.cancelled"
	TopicDraftStarted      = "draft.started"
	TopicDraftPick         = "draft.pick"
	TopicDraftBan          = "draft.ban"
	TopicDraftEdit         = "draft.edit"
	TopicDraftConfirm      = "draft.confirm"
	TopicDraftCompleted    = "draft.completed"
	TopicGameStarted       = "game.started"
	TopicGameEnded         = "game.ended"
	TopicGameVote          = "game.vote"
	TopicGameLinked        = "game.linked"
	TopicSpectatorJoined   = "spectator.joined"
	TopicSpectatorLeft     = "spectator.left"
	TopicSpectatorMuted    = "spectator.muted"

	TopicGatewayRequest    = "gateway.request"
	TopicGatewayResponse   = "gateway.response"
	TopicGatewayInvalidate = "gateway.invalidate"
	TopicGatewayPush       = "gateway.push"
	TopicMatchAction       = "match.action"
)

// AllTopics enumerates every channel an instance subscribes to.
func AllTopics() []string {
	return []string{
		TopicQueueUpdate, TopicQueuePlayerJoined, TopicQueuePlayerLeft,
		TopicMatchFound, TopicMatchAcceptance, TopicMatchCancelled,
		TopicDraftStarted, TopicDraftPick, TopicDraftBan, TopicDraftEdit,
		TopicDraftConfirm, TopicDraftCompleted,
		TopicGameStarted, TopicGameEnded, TopicGameVote, TopicGameLinked,
		TopicSpectatorJoined, TopicSpectatorLeft, TopicSpectatorMuted,
		TopicGatewayRequest, TopicGatewayResponse, TopicGatewayInvalidate,
		TopicGatewayPush, TopicMatchAction,
	}
}

// Event is the wire envelope shared by every topic.
type Event struct {
	ID        string          `json:"eventId"`
	Type      string          `json:"eventType"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

// Decode unmarshals the payload into a typed struct.
func (e Event) Decode(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// Queue events

type QueueUpdatePayload struct {
	PlayersInQueue       int                 `json:"playersInQueue"`
	Players              []domain.QueueEntry `json:"players"`
	EstimatedWaitSeconds int                 `json:"estimatedWaitSeconds"`
	IsActive             bool                `json:"isActive"`
}

type QueuePlayerPayload struct {
	SummonerName  string      `json:"summonerName"`
	PrimaryLane   domain.Lane `json:"primaryLane,omitempty"`
	SecondaryLane domain.Lane `json:"secondaryLane,omitempty"`
}

// Match lifecycle events. Participants rides along so that every
// instance can push to its local connections without a store read.

type MatchFoundPayload struct {
	MatchID            uuid.UUID            `json:"matchId"`
	Team1Players       []string             `json:"team1Players"`
	Team2Players       []string             `json:"team2Players"`
	AverageMmrTeam1    int                  `json:"averageMmrTeam1"`
	AverageMmrTeam2    int                  `json:"averageMmrTeam2"`
	Roster             []domain.RosterEntry `json:"roster"`
	AcceptanceDeadline time.Time            `json:"acceptanceDeadline"`
}

func (p MatchFoundPayload) Participants() []string {
	out := make([]string, 0, len(p.Team1Players)+len(p.Team2Players))
	out = append(out, p.Team1Players...)
	out = append(out, p.Team2Players...)
	return out
}

type MatchAcceptancePayload struct {
	MatchID      uuid.UUID               `json:"matchId"`
	SummonerName string                  `json:"summonerName"`
	Status       domain.AcceptanceStatus `json:"status"`
	Accepted     int                     `json:"accepted"`
	Total        int                     `json:"total"`
	Participants []string                `json:"participants"`
}

type MatchCancelledPayload struct {
	MatchID      uuid.UUID `json:"matchId"`
	Reason       string    `json:"reason"`
	AtFault      []string  `json:"atFault,omitempty"`
	Participants []string  `json:"participants"`
}

// Draft events

type DraftStartedPayload struct {
	MatchID      uuid.UUID  `json:"matchId"`
	CurrentIndex int        `json:"currentIndex"`
	Deadline     *time.Time `json:"deadline,omitempty"`
	Participants []string   `json:"participants"`
}

type DraftActionPayload struct {
	MatchID      uuid.UUID         `json:"matchId"`
	Index        int               `json:"index"`
	Type         domain.ActionType `json:"type"`
	ByPlayer     string            `json:"byPlayer"`
	ChampionID   *int              `json:"championId,omitempty"`
	ChampionName string            `json:"championName,omitempty"`
	Skipped      bool              `json:"skipped,omitempty"`
	AutoFilled   bool              `json:"autoFilled,omitempty"`
	NextIndex    int               `json:"nextIndex"`
	Deadline     *time.Time        `json:"deadline,omitempty"`
	Participants []string          `json:"participants"`
}

type DraftEditPayload struct {
	MatchID            uuid.UUID `json:"matchId"`
	Index              int       `json:"index"`
	ByPlayer           string    `json:"byPlayer"`
	ChampionID         int       `json:"championId"`
	ChampionName       string    `json:"championName,omitempty"`
	ConfirmationsReset bool      `json:"confirmationsReset"`
	Participants       []string  `json:"participants"`
}

type DraftConfirmPayload struct {
	MatchID      uuid.UUID `json:"matchId"`
	SummonerName string    `json:"summonerName"`
	Confirmed    int       `json:"confirmed"`
	Total        int       `json:"total"`
	Participants []string  `json:"participants"`
}

type DraftCompletedPayload struct {
	MatchID      uuid.UUID `json:"matchId"`
	Participants []string  `json:"participants"`
}

// Game events

type GameStartedPayload struct {
	MatchID      uuid.UUID `json:"matchId"`
	Participants []string  `json:"participants"`
}

// GameEndedPayload announces that the monitor saw the game finish; clients
// should prompt the link vote.
type GameEndedPayload struct {
	MatchID      uuid.UUID `json:"matchId"`
	CandidateIDs []string  `json:"candidateIds,omitempty"`
	Participants []string  `json:"participants"`
}

type GameVotePayload struct {
	MatchID      uuid.UUID      `json:"matchId"`
	SummonerName string         `json:"summonerName"`
	LcuGameID    string         `json:"lcuGameId"`
	Counts       map[string]int `json:"counts"`
	QuorumTarget int            `json:"quorumTarget"`
	Participants []string       `json:"participants"`
}

type GameLinkedPayload struct {
	MatchID      uuid.UUID `json:"matchId"`
	LcuGameID    string    `json:"lcuGameId"`
	WinnerTeam   int       `json:"winnerTeam"`
	Participants []string  `json:"participants"`
}

// Spectator events

type SpectatorPayload struct {
	MatchID      uuid.UUID `json:"matchId"`
	SummonerName string    `json:"summonerName"`
	MutedBy      string    `json:"mutedBy,omitempty"`
}

// Internal routing payloads

type GatewayRequestPayload struct {
	RequestID    string          `json:"requestId"`
	SummonerName string          `json:"summonerName"`
	Method       string          `json:"method"`
	Path         string          `json:"path"`
	Body         json.RawMessage `json:"body,omitempty"`
	ReplyTo      string          `json:"replyTo"`
}

type GatewayResponsePayload struct {
	RequestID string          `json:"requestId"`
	ReplyTo   string          `json:"replyTo"`
	Status    int             `json:"status"`
	Body      json.RawMessage `json:"body,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type GatewayInvalidatePayload struct {
	SummonerName  string `json:"summonerName"`
	InstanceID    string `json:"instanceId"`
	NewInstanceID string `json:"newInstanceId"`
}

type GatewayPushPayload struct {
	SummonerName string          `json:"summonerName"`
	Frame        json.RawMessage `json:"frame"`
}

type MatchActionPayload struct {
	MatchID      uuid.UUID       `json:"matchId"`
	SummonerName string          `json:"summonerName"`
	Frame        json.RawMessage `json:"frame"`
	// Admin marks a server-originated action (forced cancel). Never set
	// from client frames.
	Admin bool `json:"admin,omitempty"`
}
