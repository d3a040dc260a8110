package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

const divider = "============================================================"

// Two primaries per lane so matchmaking seats everyone on a preferred
// lane and the draft starts with zero autofills.
var lanePrefs = [10][2]string{
	{"top", "fill"},
	{"jungle", "top"},
	{"mid", "fill"},
	{"bot", "support"},
	{"support", "bot"},
	{"top", "mid"},
	{"jungle", "mid"},
	{"mid", "top"},
	{"bot", "fill"},
	{"support", "fill"},
}

var slotOrder = []string{"top", "jungle", "mid", "bot", "support"}

type seedPlayer struct {
	SummonerName string `json:"summonerName"`
	Token        string `json:"token,omitempty"`

	conn *websocket.Conn
}

// serverFrame is the loose client-side view of a gateway push.
type serverFrame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

type rosterSeat struct {
	SummonerName string `json:"summonerName"`
	Team         int    `json:"team"`
	Slot         string `json:"slot"`
}

type matchFoundPayload struct {
	MatchID            string       `json:"matchId"`
	Team1Players       []string     `json:"team1Players"`
	Team2Players       []string     `json:"team2Players"`
	AverageMmrTeam1    int          `json:"averageMmrTeam1"`
	AverageMmrTeam2    int          `json:"averageMmrTeam2"`
	Roster             []rosterSeat `json:"roster"`
	AcceptanceDeadline time.Time    `json:"acceptanceDeadline"`
}

type draftStartedPayload struct {
	CurrentIndex int        `json:"currentIndex"`
	Deadline     *time.Time `json:"deadline,omitempty"`
}

func apiBase() string {
	if url := os.Getenv("API_URL"); url != "" {
		return url
	}
	return "http://localhost:8080"
}

// mintToken asks the backend for a session token. A 404 means
// AUTH_SECRET is not configured and the gateway accepts bare identities.
func mintToken(base, summonerName string) (string, error) {
	req, _ := http.NewRequest("POST", base+"/api/auth/session", nil)
	req.Header.Set("X-Summoner-Name", summonerName)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", nil
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("mint token failed (%d): %s", resp.StatusCode, string(body))
	}

	var result struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode failed: %w", err)
	}
	return result.Token, nil
}

func connectPlayer(base string, p *seedPlayer) error {
	wsURL := strings.Replace(base, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/api/ws", nil)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	p.conn = conn

	identify := map[string]any{"type": "identify", "summonerName": p.SummonerName}
	if p.Token != "" {
		identify["token"] = p.Token
	}
	if err := conn.WriteJSON(identify); err != nil {
		return fmt.Errorf("identify failed: %w", err)
	}
	if _, err := waitFor(p, 10*time.Second, "identified", ""); err != nil {
		return err
	}
	return nil
}

func joinQueue(base string, p *seedPlayer, primary, secondary string) error {
	body, _ := json.Marshal(map[string]string{
		"primaryLane":   primary,
		"secondaryLane": secondary,
	})

	req, _ := http.NewRequest("POST", base+"/api/queue/join", bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Summoner-Name", p.SummonerName)
	if p.Token != "" {
		req.Header.Set("Authorization", "Bearer "+p.Token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("join queue failed (%d): %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// waitFor reads the connection until the wanted frame type (and, when
// given, event topic) shows up. Pings get answered inline; an error
// frame aborts the run since nothing in this flow should be rejected.
func waitFor(p *seedPlayer, timeout time.Duration, frameType, event string) (*serverFrame, error) {
	deadline := time.Now().Add(timeout)
	for {
		if err := p.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return nil, fmt.Errorf("%s: waiting for %s: %w", p.SummonerName, frameType, err)
		}
		var f serverFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		switch {
		case f.Type == "ping":
			p.conn.WriteJSON(map[string]any{"type": "pong", "ts": time.Now().UnixMilli()})
		case f.Type == "error":
			return nil, fmt.Errorf("%s: frame rejected: %s (%s)", p.SummonerName, f.Message, f.Code)
		case f.Type == frameType && (event == "" || f.Event == event):
			return &f, nil
		}
	}
}

func generateSummonerName(index int) string {
	const letters = "abcdefghijklmnopqrstuvwxyz0123456789"
	random := make([]byte, 4)
	for i := range random {
		random[i] = letters[rand.Intn(len(letters))]
	}
	return fmt.Sprintf("seed_%d_%d_%s", index, time.Now().Unix(), string(random))
}

func fail(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func main() {
	base := apiBase()

	fmt.Printf("Setting up a 5v5 draft against %s...\n\n", base)

	players := make([]*seedPlayer, 10)
	for i := range players {
		players[i] = &seedPlayer{SummonerName: generateSummonerName(i + 1)}
	}

	// Mint session tokens. The first call doubles as the probe for
	// whether auth is enabled at all.
	token, err := mintToken(base, players[0].SummonerName)
	if err != nil {
		fail("Failed to mint token: %v", err)
	}
	authEnabled := token != ""
	if authEnabled {
		fmt.Println("Minting session tokens...")
		players[0].Token = token
		for _, p := range players[1:] {
			if p.Token, err = mintToken(base, p.SummonerName); err != nil {
				fail("Failed to mint token for %s: %v", p.SummonerName, err)
			}
		}
		fmt.Println("  ✓ 10 tokens minted")
	} else {
		fmt.Println("Auth disabled on this backend; using bare identities")
	}

	// Connect the gateway clients first so everyone is reachable when
	// the match lands.
	fmt.Println("\nConnecting gateway clients...")
	for i, p := range players {
		if err := connectPlayer(base, p); err != nil {
			fail("Failed to connect %s: %v", p.SummonerName, err)
		}
		defer p.conn.Close()
		fmt.Printf("  ✓ Player %d: %s\n", i+1, p.SummonerName)
	}

	fmt.Println("\nJoining the queue...")
	for i, p := range players {
		prefs := lanePrefs[i]
		if err := joinQueue(base, p, prefs[0], prefs[1]); err != nil {
			fail("Failed to queue %s: %v", p.SummonerName, err)
		}
		fmt.Printf("  ✓ %s (%s/%s)\n", p.SummonerName, prefs[0], prefs[1])
	}

	// The tenth join triggers team formation; the push lands on every
	// client, one is enough to learn the match.
	fmt.Println("\nWaiting for the match...")
	frame, err := waitFor(players[0], 15*time.Second, "match_found", "")
	if err != nil {
		fail("No match formed: %v", err)
	}
	var found matchFoundPayload
	if err := json.Unmarshal(frame.Payload, &found); err != nil {
		fail("Failed to decode match_found: %v", err)
	}
	fmt.Printf("  ✓ Match %s (avg MMR %d vs %d)\n", found.MatchID, found.AverageMmrTeam1, found.AverageMmrTeam2)

	fmt.Println("\nAccepting on all 10 clients...")
	for _, p := range players {
		accept := map[string]any{"type": "accept_match", "matchId": found.MatchID}
		if err := p.conn.WriteJSON(accept); err != nil {
			fail("Failed to accept as %s: %v", p.SummonerName, err)
		}
	}
	frame, err = waitFor(players[0], 15*time.Second, "draft_update", "draft.started")
	if err != nil {
		fail("Draft never started: %v", err)
	}
	var started draftStartedPayload
	if err := json.Unmarshal(frame.Payload, &started); err != nil {
		fail("Failed to decode draft.started: %v", err)
	}
	fmt.Printf("  ✓ Draft started at action %d", started.CurrentIndex)
	if started.Deadline != nil {
		fmt.Printf(" (deadline %s)", started.Deadline.Format(time.Kitchen))
	}
	fmt.Println()

	seats := make(map[int]map[string]string)
	for _, seat := range found.Roster {
		if seats[seat.Team] == nil {
			seats[seat.Team] = make(map[string]string)
		}
		seats[seat.Team][seat.Slot] = seat.SummonerName
	}

	matchURL := fmt.Sprintf("%s/api/match/%s", base, found.MatchID)

	fmt.Println("\n" + divider)
	fmt.Println("5v5 DRAFT READY")
	fmt.Println(divider)

	fmt.Println("\nMatch Info:")
	fmt.Printf("  ID:  %s\n", found.MatchID)
	fmt.Printf("  URL: %s\n", matchURL)

	fmt.Println("\n  Blue Team (team 1):")
	for _, slot := range slotOrder {
		fmt.Printf("    %-8s %s\n", slot, seats[1][slot])
	}
	fmt.Println("\n  Red Team (team 2):")
	for _, slot := range slotOrder {
		fmt.Printf("    %-8s %s\n", slot, seats[2][slot])
	}
	fmt.Printf("\nFirst to act: %s (blue top, ban)\n", seats[1]["top"])

	fmt.Println("\n" + divider)
	fmt.Println("NEXT STEPS")
	fmt.Println(divider)
	fmt.Printf("\nWatch the draft:\n  curl %s\n", matchURL)
	fmt.Println("\nTo act, identify over /api/ws as a roster player and send")
	fmt.Println("draft_action frames. Actions left untaken resolve at each")
	fmt.Println("deadline: bans are skipped, picks autofill. With confirmation")
	fmt.Println("enabled the finished draft waits for all ten confirms.")

	output := map[string]any{
		"match": map[string]string{
			"id":     found.MatchID,
			"status": "draft",
			"url":    matchURL,
		},
		"players":     players,
		"authEnabled": authEnabled,
	}

	fmt.Println("\n" + divider)
	fmt.Println("JSON OUTPUT (for scripts):")
	fmt.Println(divider)
	jsonOutput, _ := json.MarshalIndent(output, "", "  ")
	fmt.Println(string(jsonOutput))
}
