package match

import (
	"context"
	"encoding/json"
	"log"
	"strconv"
	"time"

	"github.com/dom/league-customs/internal/domain"
)

// startMonitoring begins the in_progress phase: poll one participant's
// game client per tick, round-robin, to learn whether the custom game is
// still alive and when it ends.
func (r *Runner) startMonitoring(ctx context.Context) {
	if r.doc.LastQueryableAt == nil {
		now := time.Now().UTC()
		r.doc.LastQueryableAt = &now
		if err := r.saveOwned(ctx); err != nil {
			log.Printf("Runner %s: open grace window: %v", r.matchID, err)
		}
	}
	r.poll.Start(r.c.cfg.GamePollInterval)
}

func (r *Runner) pollGame(ctx context.Context) {
	if r.match.Status != domain.MatchStatusInProgress || r.c.gateway == nil {
		return
	}
	participants := r.match.Participants()
	if len(participants) == 0 {
		return
	}
	name := participants[r.pollSeat%len(participants)]
	r.pollSeat++

	phase, ok := r.queryPhase(ctx, name)
	now := time.Now().UTC()
	if ok {
		r.doc.LastQueryableAt = &now
		if err := r.saveOwned(ctx); err != nil {
			return
		}
		if domain.IsGameEndedPhase(phase) && !r.endedFired {
			r.handleGameEnded(ctx, name)
		}
		return
	}

	last := r.doc.LastQueryableAt
	if last != nil && now.Sub(*last) > r.c.cfg.GameInactivityCancel {
		log.Printf("Runner %s: no queryable participant for %s", r.matchID, r.c.cfg.GameInactivityCancel)
		if err := r.cancelMatch(ctx, "game no longer queryable", nil); err != nil {
			log.Printf("Runner %s: inactivity cancel: %v", r.matchID, err)
		}
	}
}

// queryPhase asks one participant's game client for its gameflow phase.
func (r *Runner) queryPhase(ctx context.Context, name string) (string, bool) {
	res, err := r.c.gateway.Request(ctx, name, "GET", domain.GameflowPhasePath, nil)
	if err != nil || res == nil || res.Err != nil || res.Status != 200 {
		return "", false
	}
	var phase string
	if err := json.Unmarshal(res.Body, &phase); err != nil {
		return "", false
	}
	return phase, true
}

// handleGameEnded pulls the reporting player's recent custom games and
// prompts everyone to vote on which one was this match. Fired once per
// runner; a takeover may prompt again, which clients tolerate.
func (r *Runner) handleGameEnded(ctx context.Context, reporter string) {
	r.endedFired = true
	candidates := r.recentGameIDs(ctx, reporter)
	log.Printf("Runner %s: game ended (reported by %s), %d candidates", r.matchID, reporter, len(candidates))
	r.c.emit.GameEnded(ctx, r.match, candidates)
}

// recentGameIDs lists the reporter's latest game ids from the client's
// match history, newest first. Best effort: an empty list still opens
// the vote, players can paste ids by hand.
func (r *Runner) recentGameIDs(ctx context.Context, name string) []string {
	res, err := r.c.gateway.Request(ctx, name, "GET", domain.MatchHistoryPath, nil)
	if err != nil || res == nil || res.Err != nil || res.Status != 200 {
		return nil
	}
	var history struct {
		Games struct {
			Games []struct {
				GameID json.Number `json:"gameId"`
			} `json:"games"`
		} `json:"games"`
	}
	if err := json.Unmarshal(res.Body, &history); err != nil {
		return nil
	}
	ids := make([]string, 0, len(history.Games.Games))
	for _, g := range history.Games.Games {
		if id := g.GameID.String(); id != "" && id != "0" {
			ids = append(ids, id)
		}
	}
	// Newest first for the vote prompt.
	for i, j := 0, len(ids)-1; i < j; i, j = i+1, j-1 {
		ids[i], ids[j] = ids[j], ids[i]
	}
	return ids
}

// gameHistoryPath builds the LCU route for one full game blob.
func gameHistoryPath(lcuGameID string) string {
	if _, err := strconv.ParseUint(lcuGameID, 10, 64); err == nil {
		return "/lol-match-history/v1/games/" + lcuGameID
	}
	return ""
}
