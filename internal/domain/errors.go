package domain

import "errors"

// Queue errors
var (
	ErrAlreadyQueued  = errors.New("player is already in the queue")
	ErrAlreadyInMatch = errors.New("player is already in an active match")
	ErrNotInQueue     = errors.New("player is not in the queue")
	ErrInvalidLane    = errors.New("invalid lane")
	ErrQueueInactive  = errors.New("queue is not active")
)

// Auth errors
var (
	ErrUnauthorized = errors.New("missing or invalid credentials")
	ErrForbidden    = errors.New("not allowed")
)

// Draft errors
var (
	ErrNotYourTurn         = errors.New("it is not your turn to act")
	ErrChampionAlreadyUsed = errors.New("champion is already picked or banned")
	ErrActionNotEditable   = errors.New("action cannot be edited")
	ErrDraftNotInProgress  = errors.New("draft is not in progress")
)

// Routing and transport errors
var (
	ErrWrongInstance       = errors.New("request landed on an instance that does not own the session")
	ErrGatewayDisconnected = errors.New("gateway connection closed")
	ErrRPCTimeout          = errors.New("gateway request timed out")
	ErrIdentifyExpected    = errors.New("first frame must be identify")
	ErrDuplicateSession    = errors.New("connection is already identified")
	ErrNoSession           = errors.New("no live session for player")
)

// Infrastructure errors
var (
	ErrRegistryUnavailable = errors.New("session registry is unavailable")
	ErrStoreUnavailable    = errors.New("match store is unavailable")
	ErrBroadcastFailed     = errors.New("event broadcast failed")
	ErrLeaseLost           = errors.New("match lease lost")
)

// Lookup and validation errors
var (
	ErrInvalidInput      = errors.New("invalid input")
	ErrMatchNotFound     = errors.New("match not found")
	ErrPlayerNotFound    = errors.New("player not found")
	ErrNotParticipant    = errors.New("player is not a participant of this match")
	ErrMatchTerminal     = errors.New("match is already completed or cancelled")
	ErrInvalidTransition = errors.New("invalid match status transition")
)
