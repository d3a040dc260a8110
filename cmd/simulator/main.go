package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"
)

var lanes = []string{"top", "jungle", "mid", "bot", "support"}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	apiURL := "http://localhost:8080"
	if envURL := os.Getenv("API_URL"); envURL != "" {
		apiURL = envURL
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "full":
		fullCmd(apiURL, args)
	case "populate":
		populateCmd(apiURL, args)
	case "vote":
		voteCmd(apiURL, args)
	case "status":
		statusCmd(apiURL)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Printf("Unknown command: %s\n\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`Queue Simulator - Development tool for driving the matchmaking flow

USAGE:
  simulator <command> [options]

COMMANDS:
  full      Connect 10 players, queue, accept, draft, confirm, and link a game
  populate  Add fake players to the queue over REST
  vote      Cast link votes for a match on behalf of its participants
  status    Print the current queue
  help      Show this help message

ENVIRONMENT:
  API_URL   Backend API URL (default: http://localhost:8080)

EXAMPLES:
  # Run a complete match lifecycle with 10 simulated players
  simulator full

  # Put 8 fake players in the queue, then join yourself for a real match
  simulator populate --count=8

  # Force a quorum for a stuck link vote
  simulator vote --match=<uuid> --game=4971234567`)
}

func populateCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("populate", flag.ExitOnError)
	count := fs.Int("count", 8, "Number of fake players to queue")
	prefix := fs.String("prefix", "SimPlayer", "Summoner name prefix")
	fs.Parse(args)

	client := NewAPIClient(apiURL)
	suffix := time.Now().UnixNano() % 100000

	for i := 0; i < *count; i++ {
		name := fmt.Sprintf("%s%d_%d", *prefix, i+1, suffix)
		primary := lanes[i%len(lanes)]
		secondary := "fill"
		if _, err := client.JoinQueue(name, primary, secondary); err != nil {
			fmt.Printf("join %s: %v\n", name, err)
			os.Exit(1)
		}
		fmt.Printf("queued %s (%s/%s)\n", name, primary, secondary)
	}

	status, err := client.QueueStatus()
	if err == nil {
		fmt.Printf("\nqueue now holds %d players\n", status.PlayersInQueue)
	}
}

func statusCmd(apiURL string) {
	client := NewAPIClient(apiURL)
	status, err := client.QueueStatus()
	if err != nil {
		fmt.Printf("status: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("active=%v players=%d estimatedWait=%ds\n",
		status.IsActive, status.PlayersInQueue, status.EstimatedWaitSeconds)
	for _, p := range status.Players {
		fmt.Printf("  %-24s %s/%s\n", p.SummonerName, p.PrimaryLane, p.SecondaryLane)
	}
}

func voteCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("vote", flag.ExitOnError)
	matchID := fs.String("match", "", "Match id (required)")
	gameID := fs.String("game", "", "LCU game id to vote for (required)")
	voters := fs.Int("voters", 6, "How many participants cast the vote")
	fs.Parse(args)

	if *matchID == "" || *gameID == "" {
		fmt.Println("Error: --match and --game are required")
		os.Exit(1)
	}

	client := NewAPIClient(apiURL)
	m, err := client.GetMatch(*matchID)
	if err != nil {
		fmt.Printf("fetch match: %v\n", err)
		os.Exit(1)
	}
	participants := append(append([]string{}, m.Team1Players...), m.Team2Players...)
	if *voters > len(participants) {
		*voters = len(participants)
	}
	for i := 0; i < *voters; i++ {
		tally, err := client.Vote(participants[i], *matchID, *gameID)
		if err != nil {
			fmt.Printf("vote %s: %v\n", participants[i], err)
			continue
		}
		fmt.Printf("vote %d/%d: %s -> %s (leader %s at %d/%d)\n",
			i+1, *voters, participants[i], *gameID, tally.Leader, tally.LeaderWeight, tally.QuorumTarget)
	}
}

// frame payload slices the simulator needs to steer.
type simPayload struct {
	MatchID   string `json:"matchId"`
	NextIndex int    `json:"nextIndex"`
	Confirmed int    `json:"confirmed"`
	Total     int    `json:"total"`
}

func fullCmd(apiURL string, args []string) {
	fs := flag.NewFlagSet("full", flag.ExitOnError)
	prefix := fs.String("prefix", "SimFull", "Summoner name prefix")
	fs.Parse(args)

	suffix := time.Now().UnixNano() % 100000
	players := make([]*wsPlayer, 0, 10)
	defer func() {
		for _, p := range players {
			p.close()
		}
	}()

	fmt.Println("=== Queue Simulator: Full Match Lifecycle ===")

	fmt.Print("Connecting 10 players... ")
	for i := 0; i < 10; i++ {
		name := fmt.Sprintf("%s%d_%d", *prefix, i+1, suffix)
		p, err := dialPlayer(apiURL, name)
		if err != nil {
			fmt.Printf("FAILED\n  %v\n", err)
			os.Exit(1)
		}
		players = append(players, p)
	}
	fmt.Println("OK")

	fmt.Print("Joining queue... ")
	for i, p := range players {
		err := p.send(map[string]any{
			"type":          "queue_join",
			"primaryLane":   lanes[i%len(lanes)],
			"secondaryLane": "fill",
		})
		if err != nil {
			fmt.Printf("FAILED\n  %s: %v\n", p.name, err)
			os.Exit(1)
		}
	}
	fmt.Println("OK")

	fmt.Print("Waiting for match... ")
	var matchID string
	for _, p := range players {
		f, err := p.expect(30*time.Second, "match_found")
		if err != nil {
			fmt.Printf("FAILED\n  %v\n", err)
			os.Exit(1)
		}
		var payload simPayload
		json.Unmarshal(f.Payload, &payload)
		if payload.MatchID != "" {
			matchID = payload.MatchID
		}
	}
	fmt.Printf("OK (match %s)\n", matchID)

	fmt.Print("Accepting... ")
	for _, p := range players {
		p.send(map[string]any{"type": "accept_match", "matchId": matchID})
	}
	observer := players[0]
	if _, err := observer.expect(30*time.Second, "draft_update"); err != nil {
		fmt.Printf("FAILED\n  %v\n", err)
		os.Exit(1)
	}
	fmt.Println("OK, draft started")

	// Every player fires at every turn; the nine wrong ones are refused
	// with NOT_YOUR_TURN, the seat owner goes through. Champion ids are
	// unique per (player, round) so nothing ever collides.
	fmt.Print("Drafting")
	attempt := func(round int) {
		for i, p := range players {
			p.send(map[string]any{
				"type":       "draft_action",
				"matchId":    matchID,
				"championId": 100*(i+1) + round,
			})
		}
	}
	attempt(0)
	drafting := true
	for drafting {
		f, err := observer.expect(60*time.Second, "draft_update", "game_started")
		if err != nil {
			fmt.Printf(" FAILED\n  %v\n", err)
			os.Exit(1)
		}
		if f.Type == "game_started" {
			drafting = false
			continue
		}
		var payload simPayload
		json.Unmarshal(f.Payload, &payload)
		switch f.Event {
		case "draft.pick", "draft.ban":
			fmt.Print(".")
			if payload.NextIndex < 20 {
				attempt(payload.NextIndex)
			} else {
				for _, p := range players {
					p.send(map[string]any{"type": "draft_confirm", "matchId": matchID})
				}
			}
		case "draft.completed":
			drafting = false
		}
	}
	fmt.Println(" OK")

	fmt.Print("Voting to link... ")
	gameID := fmt.Sprintf("497%07d", suffix)
	for i := 0; i < 6; i++ {
		players[i].send(map[string]any{
			"type":      "vote_for_match",
			"matchId":   matchID,
			"lcuGameId": gameID,
		})
	}
	if _, err := observer.expect(30*time.Second, "game_linked"); err != nil {
		fmt.Printf("FAILED\n  %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("OK (game %s)\n", gameID)

	client := NewAPIClient(apiURL)
	if m, err := client.GetMatch(matchID); err == nil {
		fmt.Printf("\nFinal state: status=%s riotGameId=%s\n", m.Status, m.RiotGameID)
	}
	fmt.Println("Done.")
}
