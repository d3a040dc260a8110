package websocket

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/domain"
)

// FrameType discriminates websocket frames in both directions.
type FrameType string

const (
	// Client -> server.
	FrameTypeIdentify      FrameType = "identify"
	FrameTypeLCUResponse   FrameType = "lcu_response"
	FrameTypeLCUError      FrameType = "lcu_error"
	FrameTypeRegisterLCU   FrameType = "register_lcu_connection"
	FrameTypeQueueJoin     FrameType = "queue_join"
	FrameTypeQueueLeave    FrameType = "queue_leave"
	FrameTypeAcceptMatch   FrameType = "accept_match"
	FrameTypeDeclineMatch  FrameType = "decline_match"
	FrameTypeDraftAction   FrameType = "draft_action"
	FrameTypeDraftEdit     FrameType = "draft_edit"
	FrameTypeDraftConfirm  FrameType = "draft_confirm"
	FrameTypeVoteForMatch  FrameType = "vote_for_match"
	FrameTypeCancelMatch   FrameType = "cancel_match"
	FrameTypeSpectate      FrameType = "spectate"
	FrameTypeStopSpectate  FrameType = "stop_spectate"
	FrameTypeMuteSpectator FrameType = "mute_spectator"
	FrameTypePong          FrameType = "pong"

	// Server -> client.
	FrameTypeIdentified  FrameType = "identified"
	FrameTypeLCURequest  FrameType = "lcu_request"
	FrameTypePing        FrameType = "ping"
	FrameTypeError       FrameType = "error"
	FrameTypeQueueUpdate FrameType = "queue_update"
	FrameTypeMatchFound  FrameType = "match_found"
	FrameTypeAcceptance  FrameType = "match_acceptance"
	FrameTypeCancelled   FrameType = "match_cancelled"
	FrameTypeDraftUpdate FrameType = "draft_update"
	FrameTypeGameStarted FrameType = "game_started"
	FrameTypeGameEnded   FrameType = "game_ended"
	FrameTypeGameVote    FrameType = "game_vote"
	FrameTypeGameLinked  FrameType = "game_linked"
	FrameTypeSpectators  FrameType = "spectator_update"
)

// Error codes carried on error frames and HTTP error bodies.
const (
	CodeIdentifyExpected    = "IDENTIFY_EXPECTED"
	CodeDuplicateSession    = "DUPLICATE_SESSION"
	CodeAuthFailed          = "AUTH_FAILED"
	CodeInvalidFrame        = "INVALID_FRAME"
	CodeNotYourTurn         = "NOT_YOUR_TURN"
	CodeChampionUsed        = "CHAMPION_ALREADY_USED"
	CodeActionNotEditable   = "ACTION_NOT_EDITABLE"
	CodeDraftNotInProgress  = "DRAFT_NOT_IN_PROGRESS"
	CodeNotParticipant      = "NOT_PARTICIPANT"
	CodeMatchNotFound       = "MATCH_NOT_FOUND"
	CodeMatchTerminal       = "MATCH_TERMINAL"
	CodeInvalidState        = "INVALID_STATE"
	CodeNoSession           = "NO_SESSION"
	CodeGatewayDisconnected = "GATEWAY_DISCONNECTED"
	CodeRPCTimeout          = "RPC_TIMEOUT"
	CodeAlreadyQueued       = "ALREADY_QUEUED"
	CodeAlreadyInMatch      = "ALREADY_IN_MATCH"
	CodeNotInQueue          = "NOT_IN_QUEUE"
	CodeInvalidLane         = "INVALID_LANE"
	CodeQueueInactive       = "QUEUE_INACTIVE"
	CodeInternal            = "INTERNAL_ERROR"
)

type rawFrame struct {
	Type FrameType `json:"type"`
}

// PeekType extracts the frame discriminator without decoding the body.
func PeekType(data []byte) (FrameType, error) {
	var f rawFrame
	if err := json.Unmarshal(data, &f); err != nil {
		return "", err
	}
	if f.Type == "" {
		return "", errors.New("frame missing type")
	}
	return f.Type, nil
}

// IdentifyFrame must be the first frame on every connection.
type IdentifyFrame struct {
	Type         FrameType `json:"type"`
	SummonerName string    `json:"summonerName"`
	GameName     string    `json:"gameName,omitempty"`
	TagLine      string    `json:"tagLine,omitempty"`
	PUUID        string    `json:"puuid,omitempty"`
	Token        string    `json:"token,omitempty"`
}

type IdentifiedFrame struct {
	Type         FrameType `json:"type"`
	SummonerName string    `json:"summonerName"`
	InstanceID   string    `json:"instanceId"`
	ConnectionID string    `json:"connectionId"`
}

// LCURequestFrame asks the desktop client to perform a local LCU call.
type LCURequestFrame struct {
	Type   FrameType       `json:"type"`
	ID     string          `json:"id"`
	Method string          `json:"method"`
	Path   string          `json:"path"`
	Body   json.RawMessage `json:"body,omitempty"`
}

type LCUResponseFrame struct {
	Type   FrameType       `json:"type"`
	ID     string          `json:"id"`
	Status int             `json:"status"`
	Body   json.RawMessage `json:"body,omitempty"`
}

type LCUErrorFrame struct {
	Type  FrameType `json:"type"`
	ID    string    `json:"id"`
	Error string    `json:"error"`
}

// RegisterLCUFrame carries desktop connection details for later REST relays.
type RegisterLCUFrame struct {
	Type          FrameType `json:"type"`
	SummonerName  string    `json:"summonerName"`
	GameName      string    `json:"gameName,omitempty"`
	TagLine       string    `json:"tagLine,omitempty"`
	Port          int       `json:"port,omitempty"`
	AuthToken     string    `json:"authToken,omitempty"`
	Protocol      string    `json:"protocol,omitempty"`
	ProfileIconID int       `json:"profileIconId,omitempty"`
	PUUID         string    `json:"puuid,omitempty"`
	SummonerID    string    `json:"summonerId,omitempty"`
}

type QueueJoinFrame struct {
	Type          FrameType `json:"type"`
	PrimaryLane   string    `json:"primaryLane"`
	SecondaryLane string    `json:"secondaryLane"`
}

// PlayerActionFrame covers every match-scoped player action. Unused fields
// stay at their zero value; the director validates per frame type.
type PlayerActionFrame struct {
	Type         FrameType `json:"type"`
	MatchID      uuid.UUID `json:"matchId"`
	Index        *int      `json:"index,omitempty"`
	ChampionID   *int      `json:"championId,omitempty"`
	ChampionName string    `json:"championName,omitempty"`
	LcuGameID    string    `json:"lcuGameId,omitempty"`
	Target       string    `json:"target,omitempty"`
}

type PingFrame struct {
	Type FrameType `json:"type"`
	Ts   int64     `json:"ts"`
}

type PongFrame struct {
	Type FrameType `json:"type"`
	Ts   int64     `json:"ts"`
}

// ErrorFrame reports a rejected frame back to the sender.
type ErrorFrame struct {
	Type    FrameType  `json:"type"`
	Code    string     `json:"code"`
	Message string     `json:"message"`
	MatchID *uuid.UUID `json:"matchId,omitempty"`
}

// EventFrame is the envelope for server pushes derived from bus events.
// Event carries the originating topic for frame types that aggregate
// several topics (draft_update).
type EventFrame struct {
	Type      FrameType       `json:"type"`
	Event     string          `json:"event,omitempty"`
	EventID   string          `json:"eventId,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload"`
}

func newErrorFrame(code, message string) ErrorFrame {
	return ErrorFrame{Type: FrameTypeError, Code: code, Message: message}
}

// ErrorFrameFor maps service errors onto wire codes. Unknown errors become
// INTERNAL_ERROR so callers never leak internals to the client.
func ErrorFrameFor(err error) ErrorFrame {
	switch {
	case errors.Is(err, domain.ErrNotYourTurn):
		return newErrorFrame(CodeNotYourTurn, "it is not your turn to act")
	case errors.Is(err, domain.ErrChampionAlreadyUsed):
		return newErrorFrame(CodeChampionUsed, "champion already picked or banned in this draft")
	case errors.Is(err, domain.ErrActionNotEditable):
		return newErrorFrame(CodeActionNotEditable, "action cannot be edited")
	case errors.Is(err, domain.ErrDraftNotInProgress):
		return newErrorFrame(CodeDraftNotInProgress, "draft is not in progress")
	case errors.Is(err, domain.ErrNotParticipant):
		return newErrorFrame(CodeNotParticipant, "you are not a participant of this match")
	case errors.Is(err, domain.ErrMatchNotFound):
		return newErrorFrame(CodeMatchNotFound, "match not found")
	case errors.Is(err, domain.ErrMatchTerminal):
		return newErrorFrame(CodeMatchTerminal, "match already completed or cancelled")
	case errors.Is(err, domain.ErrInvalidTransition):
		return newErrorFrame(CodeInvalidState, "action not valid in the match's current state")
	case errors.Is(err, domain.ErrNoSession):
		return newErrorFrame(CodeNoSession, "player has no active gateway session")
	case errors.Is(err, domain.ErrGatewayDisconnected):
		return newErrorFrame(CodeGatewayDisconnected, "gateway connection dropped")
	case errors.Is(err, domain.ErrRPCTimeout):
		return newErrorFrame(CodeRPCTimeout, "desktop client did not answer in time")
	case errors.Is(err, domain.ErrAlreadyQueued):
		return newErrorFrame(CodeAlreadyQueued, "already in queue")
	case errors.Is(err, domain.ErrAlreadyInMatch):
		return newErrorFrame(CodeAlreadyInMatch, "already in an active match")
	case errors.Is(err, domain.ErrNotInQueue):
		return newErrorFrame(CodeNotInQueue, "not in queue")
	case errors.Is(err, domain.ErrInvalidLane):
		return newErrorFrame(CodeInvalidLane, "invalid lane selection")
	case errors.Is(err, domain.ErrQueueInactive):
		return newErrorFrame(CodeQueueInactive, "queue is currently disabled")
	case errors.Is(err, domain.ErrInvalidInput):
		return newErrorFrame(CodeInvalidFrame, err.Error())
	default:
		return newErrorFrame(CodeInternal, "internal error")
	}
}

func encodeFrame(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// Frames are built from our own structs; marshal cannot fail at runtime.
		panic(err)
	}
	return data
}
