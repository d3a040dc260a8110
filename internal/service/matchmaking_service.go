package service

import (
	"context"
	"errors"
	"log"
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/config"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

// ErrNoViableSplit means every team split of the candidates exceeds the
// configured MMR delta; formation is deferred until the pool changes.
var ErrNoViableSplit = errors.New("no team split within mmr delta limit")

var errNotEnoughPlayers = errors.New("not enough players queued")

// MatchmakingService turns the queue into matches: it selects the ten
// longest-waiting players, splits them into two teams with lane
// assignments, and persists the match atomically with the queue rows it
// consumes.
type MatchmakingService struct {
	repos *repository.Repositories
	cfg   *config.Config
}

func NewMatchmakingService(repos *repository.Repositories, cfg *config.Config) *MatchmakingService {
	return &MatchmakingService{repos: repos, cfg: cfg}
}

// FormedMatch is one successful formation, with the consumed queue rows
// for wait-time accounting.
type FormedMatch struct {
	Match   *domain.Match
	Entries []domain.QueuePlayer
}

// TryFormMatch attempts one formation. Returns (nil, nil) when the pool
// is too small or deferred on the MMR limit. The selection, split and
// queue-row deletion run in a single transaction with the rows locked,
// so two instances never consume the same players.
func (s *MatchmakingService) TryFormMatch(ctx context.Context) (*FormedMatch, error) {
	var out *FormedMatch
	err := s.repos.Tx.InTx(ctx, func(tx *repository.Repositories) error {
		rows, err := tx.Queue.ListActiveLocked(ctx)
		if err != nil {
			return err
		}
		if len(rows) < s.cfg.MatchSize {
			return errNotEnoughPlayers
		}

		candidates := selectCandidates(rows, s.cfg.MatchSize)
		split, err := BuildTeams(candidates, s.cfg.WeightMmr, s.cfg.WeightPrimary, s.cfg.WeightAutofill, s.cfg.MaxMmrDelta)
		if err != nil {
			return err
		}

		match, err := s.buildMatch(split)
		if err != nil {
			return err
		}
		if err := tx.Match.Create(ctx, match); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(candidates))
		for i, qp := range candidates {
			ids[i] = qp.ID
		}
		if err := tx.Queue.DeleteByIDs(ctx, ids); err != nil {
			return err
		}

		out = &FormedMatch{Match: match, Entries: candidates}
		return nil
	})
	if errors.Is(err, errNotEnoughPlayers) {
		return nil, nil
	}
	if errors.Is(err, ErrNoViableSplit) {
		log.Printf("Matchmaking: deferred, no split within %d MMR", s.cfg.MaxMmrDelta)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

// selectCandidates takes the matchSize longest-waiting rows. Rows are
// already ordered by (joinTime, summonerName); when a block of rows
// sharing one joinTime straddles the cut, the seats left in that block
// go to the ratings closest to the running mean of the players already
// chosen, keeping team variance down.
func selectCandidates(rows []domain.QueuePlayer, matchSize int) []domain.QueuePlayer {
	if len(rows) <= matchSize {
		return rows
	}

	selected := make([]domain.QueuePlayer, 0, matchSize)
	sum := 0
	for i := 0; i < len(rows) && len(selected) < matchSize; {
		j := i
		for j < len(rows) && rows[j].JoinTime.Equal(rows[i].JoinTime) {
			j++
		}
		block := rows[i:j]
		if remaining := matchSize - len(selected); len(block) > remaining {
			block = append([]domain.QueuePlayer(nil), block...)
			mean := blockMean(selected, sum, block)
			sort.SliceStable(block, func(a, b int) bool {
				da := math.Abs(float64(block[a].CustomMMR) - mean)
				db := math.Abs(float64(block[b].CustomMMR) - mean)
				if da != db {
					return da < db
				}
				return block[a].SummonerName < block[b].SummonerName
			})
			block = block[:remaining]
		}
		for _, qp := range block {
			selected = append(selected, qp)
			sum += qp.CustomMMR
		}
		i = j
	}
	return selected
}

// blockMean is the running mean of the chosen rows, or the mean of the
// contested block itself when nothing is chosen yet.
func blockMean(selected []domain.QueuePlayer, sum int, block []domain.QueuePlayer) float64 {
	if len(selected) > 0 {
		return float64(sum) / float64(len(selected))
	}
	total := 0
	for _, qp := range block {
		total += qp.CustomMMR
	}
	return float64(total) / float64(len(block))
}

func (s *MatchmakingService) buildMatch(split *TeamSplit) (*domain.Match, error) {
	var team1, team2 [5]string
	for i := range domain.LaneSlots {
		team1[i] = split.Team1[i].SummonerName
		team2[i] = split.Team2[i].SummonerName
	}

	match := &domain.Match{
		Status:          domain.MatchStatusFound,
		AverageMmrTeam1: split.Avg1,
		AverageMmrTeam2: split.Avg2,
	}
	if err := match.SetTeams(team1, team2); err != nil {
		return nil, err
	}
	doc := domain.NewPickBanDocument(split.Team1, split.Team2)
	if err := match.SetDocument(doc); err != nil {
		return nil, err
	}
	return match, nil
}

// TeamSplit is the outcome of team building. Teams are in lane-slot
// order (top, jungle, mid, bot, support).
type TeamSplit struct {
	Team1, Team2 [5]domain.QueuePlayer
	Avg1, Avg2   int
	Cost         float64
	Autofills    int
	OffPrimary   int
}

// BuildTeams searches every 5/5 split and lane arrangement of exactly ten
// players, minimizing
//
//	wMMR*|avgMMR1-avgMMR2| + wAutofill*autofills + wPrimary*offPrimary
//
// over splits whose MMR delta stays within maxDelta. Players are scanned
// in their given order, so equal-cost outcomes are deterministic for a
// deterministic input order.
func BuildTeams(players []domain.QueuePlayer, wMMR, wPrimary, wAutofill float64, maxDelta int) (*TeamSplit, error) {
	if len(players) != 10 {
		return nil, errors.New("team building requires exactly 10 players")
	}

	var best *TeamSplit

	// Player 0 is pinned to team 1; mirrored splits are identical.
	for mask := 0; mask < 1024; mask++ {
		if mask&1 == 0 || popcount(mask) != 5 {
			continue
		}
		var t1, t2 []domain.QueuePlayer
		for i := 0; i < 10; i++ {
			if mask&(1<<i) != 0 {
				t1 = append(t1, players[i])
			} else {
				t2 = append(t2, players[i])
			}
		}

		avg1 := averageMMR(t1)
		avg2 := averageMMR(t2)
		delta := avg1 - avg2
		if delta < 0 {
			delta = -delta
		}
		if delta > maxDelta {
			continue
		}

		lanes1, cost1, auto1, off1 := assignLanes(t1, wPrimary, wAutofill)
		lanes2, cost2, auto2, off2 := assignLanes(t2, wPrimary, wAutofill)
		total := wMMR*float64(delta) + cost1 + cost2

		if best == nil || total < best.Cost {
			best = &TeamSplit{
				Team1:      lanes1,
				Team2:      lanes2,
				Avg1:       avg1,
				Avg2:       avg2,
				Cost:       total,
				Autofills:  auto1 + auto2,
				OffPrimary: off1 + off2,
			}
		}
	}

	if best == nil {
		return nil, ErrNoViableSplit
	}
	return best, nil
}

// assignLanes finds the cheapest lane arrangement for one team of five.
func assignLanes(team []domain.QueuePlayer, wPrimary, wAutofill float64) (arrangement [5]domain.QueuePlayer, cost float64, autofills, offPrimary int) {
	cost = math.MaxFloat64
	for _, perm := range lanePerms {
		var c float64
		var auto, off int
		for slot, pi := range perm {
			p := team[pi]
			lane := domain.LaneSlots[slot]
			switch {
			case p.Autofilled(lane):
				c += wAutofill
				auto++
			case p.OffPrimary(lane):
				c += wPrimary
				off++
			}
		}
		if c < cost {
			cost = c
			autofills = auto
			offPrimary = off
			for slot, pi := range perm {
				arrangement[slot] = team[pi]
			}
		}
	}
	return arrangement, cost, autofills, offPrimary
}

func averageMMR(team []domain.QueuePlayer) int {
	sum := 0
	for _, p := range team {
		sum += p.CustomMMR
	}
	return sum / len(team)
}

func popcount(x int) int {
	n := 0
	for x != 0 {
		x &= x - 1
		n++
	}
	return n
}

// lanePerms holds the 120 arrangements of five players over five lane
// slots, in lexicographic order.
var lanePerms = buildLanePerms()

func buildLanePerms() [][5]int {
	var out [][5]int
	var rec func(cur []int, used [5]bool)
	rec = func(cur []int, used [5]bool) {
		if len(cur) == 5 {
			var p [5]int
			copy(p[:], cur)
			out = append(out, p)
			return
		}
		for i := 0; i < 5; i++ {
			if used[i] {
				continue
			}
			used[i] = true
			rec(append(cur, i), used)
			used[i] = false
		}
	}
	rec(nil, [5]bool{})
	return out
}
