package domain

import "time"

// LCUCredentials are the local game-client connection details a desktop
// companion advertises. The server never dials them itself; it proxies
// calls through the companion's duplex connection.
type LCUCredentials struct {
	Host          string    `json:"host,omitempty"`
	Port          int       `json:"port"`
	Protocol      string    `json:"protocol"`
	AuthToken     string    `json:"authToken"`
	ProfileIconID int       `json:"profileIconId,omitempty"`
	PUUID         string    `json:"puuid,omitempty"`
	SummonerID    string    `json:"summonerId,omitempty"`
	ConfiguredAt  time.Time `json:"configuredAt"`
}

// Gameflow phases reported by the game client that the monitor reacts to.
const (
	GameflowInProgress = "InProgress"
	GameflowEndOfGame  = "EndOfGame"
	GameflowPostGame   = "PostGame"
)

// GameflowPhasePath is the LCU route polled by the game monitor.
const GameflowPhasePath = "/lol-gameflow/v1/gameflow-phase"

// MatchHistoryPath is the LCU route used to pull a player's recent games
// once any participant reports the end of game.
const MatchHistoryPath = "/lol-match-history/v1/products/lol/current-summoner/matches?begIndex=0&endIndex=10"

// IsGameEndedPhase groups the two terminal phases the client reports.
func IsGameEndedPhase(phase string) bool {
	return phase == GameflowEndOfGame || phase == GameflowPostGame
}
