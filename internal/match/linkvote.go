package match

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"time"

	"gorm.io/datatypes"

	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/domain"
)

// onVoteNudge re-tallies from storage whenever any instance records a
// vote. The payload is only a hint; the database decides.
func (r *Runner) onVoteNudge(ctx context.Context, p bus.GameVotePayload) {
	if r.match.Status != domain.MatchStatusInProgress {
		return
	}
	tally, err := r.c.matches.Tally(ctx, r.match)
	if err != nil {
		log.Printf("Runner %s: tally: %v", r.matchID, err)
		return
	}
	if tally.Leader == "" || tally.LeaderWeight < tally.QuorumTarget {
		return
	}
	if err := r.linkMatch(ctx, tally.Leader); err != nil {
		log.Printf("Runner %s: link %s: %v", r.matchID, tally.Leader, err)
	}
}

// linkMatch closes the loop: the quorum's game id becomes the official
// result. The vendor blob and the winner derivation are best effort; a
// match links even when no client can serve the history anymore, just
// without a winner or rating movement.
func (r *Runner) linkMatch(ctx context.Context, lcuGameID string) error {
	blob := r.fetchGameBlob(ctx, lcuGameID)
	winner := deriveWinner(blob, r.match)

	if winner != 0 {
		team1, team2, err := r.match.Teams()
		if err == nil {
			winners, losers := team1[:], team2[:]
			if winner == 2 {
				winners, losers = team2[:], team1[:]
			}
			if err := r.c.repos.Player.ApplyResult(ctx, winners, losers, r.c.cfg.RatingLpDelta); err != nil {
				log.Printf("Runner %s: apply ratings: %v", r.matchID, err)
			}
		}
	}

	now := time.Now().UTC()
	r.match.Status = domain.MatchStatusCompleted
	r.match.RiotGameID = lcuGameID
	r.match.CompletedAt = &now
	if len(blob) > 0 {
		r.match.LcuMatchData = datatypes.JSON(blob)
	}
	if winner != 0 {
		w := winner
		r.match.WinnerTeam = &w
	}
	if err := r.saveOwned(ctx); err != nil {
		return err
	}
	r.poll.Stop()
	r.deadline.Disarm()

	log.Printf("Runner %s: linked to game %s, winner team %d", r.matchID, lcuGameID, winner)
	r.c.emit.GameLinked(ctx, r.match, lcuGameID, winner)
	return nil
}

// fetchGameBlob tries a few participants for the full game payload.
func (r *Runner) fetchGameBlob(ctx context.Context, lcuGameID string) []byte {
	path := gameHistoryPath(lcuGameID)
	if path == "" || r.c.gateway == nil {
		return nil
	}
	participants := r.match.Participants()
	tries := len(participants)
	if tries > 3 {
		tries = 3
	}
	for i := 0; i < tries; i++ {
		name := participants[(r.pollSeat+i)%len(participants)]
		res, err := r.c.gateway.Request(ctx, name, "GET", path, nil)
		if err != nil || res == nil || res.Err != nil || res.Status != 200 {
			continue
		}
		if len(res.Body) > 0 {
			return res.Body
		}
	}
	return nil
}

// deriveWinner finds a known participant inside the blob and reads their
// side's win flag. Custom lobbies do not guarantee our team 1 sat on
// blue, so the mapping goes through player identity, not team id.
func deriveWinner(blob []byte, m *domain.Match) int {
	if len(blob) == 0 {
		return 0
	}
	var g struct {
		Teams []struct {
			TeamID int             `json:"teamId"`
			Win    json.RawMessage `json:"win"`
		} `json:"teams"`
		Participants []struct {
			ParticipantID int `json:"participantId"`
			TeamID        int `json:"teamId"`
		} `json:"participants"`
		ParticipantIdentities []struct {
			ParticipantID int `json:"participantId"`
			Player        struct {
				SummonerName string `json:"summonerName"`
				GameName     string `json:"gameName"`
			} `json:"player"`
		} `json:"participantIdentities"`
	}
	if err := json.Unmarshal(blob, &g); err != nil {
		return 0
	}

	winningSides := make(map[int]bool)
	for _, t := range g.Teams {
		if winFlag(t.Win) {
			winningSides[t.TeamID] = true
		}
	}
	if len(winningSides) == 0 {
		return 0
	}
	sideOf := make(map[int]int, len(g.Participants))
	for _, p := range g.Participants {
		sideOf[p.ParticipantID] = p.TeamID
	}

	team1, team2, err := m.Teams()
	if err != nil {
		return 0
	}
	ours := make(map[string]int, 10)
	for _, n := range team1 {
		ours[n] = 1
	}
	for _, n := range team2 {
		ours[n] = 2
	}
	for _, id := range g.ParticipantIdentities {
		name := domain.NormalizeSummonerName(id.Player.SummonerName)
		if name == "" {
			name = domain.NormalizeSummonerName(id.Player.GameName)
		}
		team, known := ours[name]
		if !known {
			continue
		}
		if winningSides[sideOf[id.ParticipantID]] {
			return team
		}
		return 3 - team
	}
	return 0
}

// winFlag tolerates both encodings the client has shipped: the string
// "Win"/"Fail" and a plain boolean.
func winFlag(raw json.RawMessage) bool {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	return strings.EqualFold(s, "win") || s == "true"
}
