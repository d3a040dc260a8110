package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// APIClient drives the REST surface with a simulated player identity.
type APIClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewAPIClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL: baseURL + "/api",
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Response types matching the backend.

type QueueEntry struct {
	SummonerName  string `json:"summonerName"`
	PrimaryLane   string `json:"primaryLane"`
	SecondaryLane string `json:"secondaryLane"`
	CustomMMR     int    `json:"customMmr"`
}

type QueueStatus struct {
	PlayersInQueue       int          `json:"playersInQueue"`
	Players              []QueueEntry `json:"players"`
	EstimatedWaitSeconds int          `json:"estimatedWaitSeconds"`
	IsActive             bool         `json:"isActive"`
}

type Match struct {
	ID              string   `json:"id"`
	Status          string   `json:"status"`
	Team1Players    []string `json:"team1Players"`
	Team2Players    []string `json:"team2Players"`
	AverageMmrTeam1 int      `json:"averageMmrTeam1"`
	AverageMmrTeam2 int      `json:"averageMmrTeam2"`
	RiotGameID      string   `json:"riotGameId"`
	WinnerTeam      *int     `json:"winnerTeam"`
}

type VoteTally struct {
	Counts       map[string]int `json:"counts"`
	Leader       string         `json:"leader"`
	LeaderWeight int            `json:"leaderWeight"`
	QuorumTarget int            `json:"quorumTarget"`
}

func (c *APIClient) do(method, path, summonerName string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if summonerName != "" {
		req.Header.Set("X-Summoner-Name", summonerName)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%s %s: %d: %s", method, path, resp.StatusCode, string(data))
	}
	if out != nil {
		return json.Unmarshal(data, out)
	}
	return nil
}

func (c *APIClient) JoinQueue(summonerName, primary, secondary string) (*QueueEntry, error) {
	var entry QueueEntry
	err := c.do("POST", "/queue/join", summonerName, map[string]string{
		"primaryLane":   primary,
		"secondaryLane": secondary,
	}, &entry)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (c *APIClient) LeaveQueue(summonerName string) error {
	return c.do("POST", "/queue/leave", summonerName, map[string]string{}, nil)
}

func (c *APIClient) QueueStatus() (*QueueStatus, error) {
	var status QueueStatus
	if err := c.do("GET", "/queue/status", "", nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

func (c *APIClient) GetMatch(matchID string) (*Match, error) {
	var m Match
	if err := c.do("GET", "/match/"+matchID, "", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *APIClient) MyActiveMatch(summonerName string) (*Match, error) {
	var m Match
	if err := c.do("GET", "/queue/my-active-match?summonerName="+summonerName, "", nil, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *APIClient) Vote(summonerName, matchID, lcuGameID string) (*VoteTally, error) {
	var tally VoteTally
	err := c.do("POST", "/match/"+matchID+"/vote", summonerName, map[string]string{
		"lcuGameId": lcuGameID,
	}, &tally)
	if err != nil {
		return nil, err
	}
	return &tally, nil
}
