package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dom/league-customs/internal/domain"
)

// PlayerBuilder creates test players with a builder pattern
type PlayerBuilder struct {
	summonerName string
	mmr          int
	lp           int
	wins         int
	losses       int
}

// NewPlayerBuilder creates a new PlayerBuilder with default values
func NewPlayerBuilder() *PlayerBuilder {
	return &PlayerBuilder{
		summonerName: fmt.Sprintf("player_%s#test", uuid.New().String()[:8]),
		mmr:          1000,
		lp:           1000,
	}
}

// WithSummonerName sets the summoner name
func (b *PlayerBuilder) WithSummonerName(name string) *PlayerBuilder {
	b.summonerName = name
	return b
}

// WithMMR sets the custom MMR
func (b *PlayerBuilder) WithMMR(mmr int) *PlayerBuilder {
	b.mmr = mmr
	return b
}

// WithRecord sets the win/loss counters
func (b *PlayerBuilder) WithRecord(wins, losses int) *PlayerBuilder {
	b.wins = wins
	b.losses = losses
	return b
}

// Build creates the player in the database
func (b *PlayerBuilder) Build(t *testing.T, db *gorm.DB) *domain.Player {
	t.Helper()

	name := domain.NormalizeSummonerName(b.summonerName)
	gameName, tagLine := domain.SplitSummonerName(name)
	player := &domain.Player{
		ID:           uuid.New(),
		SummonerName: name,
		GameName:     gameName,
		TagLine:      tagLine,
		CustomLP:     b.lp,
		CustomMMR:    b.mmr,
		Wins:         b.wins,
		Losses:       b.losses,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := db.Create(player).Error; err != nil {
		t.Fatalf("failed to create player: %v", err)
	}

	return player
}

// QueueRowBuilder creates active queue rows with a builder pattern
type QueueRowBuilder struct {
	player    *domain.Player
	primary   domain.Lane
	secondary domain.Lane
	joinTime  time.Time
}

// NewQueueRowBuilder creates a new QueueRowBuilder with default values
func NewQueueRowBuilder() *QueueRowBuilder {
	return &QueueRowBuilder{
		primary:   domain.LaneFill,
		secondary: domain.LaneFill,
		joinTime:  time.Now(),
	}
}

// WithPlayer sets the backing player
func (b *QueueRowBuilder) WithPlayer(p *domain.Player) *QueueRowBuilder {
	b.player = p
	return b
}

// WithLanes sets the lane preferences
func (b *QueueRowBuilder) WithLanes(primary, secondary domain.Lane) *QueueRowBuilder {
	b.primary = primary
	b.secondary = secondary
	return b
}

// WithJoinTime sets the join timestamp
func (b *QueueRowBuilder) WithJoinTime(ts time.Time) *QueueRowBuilder {
	b.joinTime = ts
	return b
}

// Build creates the queue row in the database
func (b *QueueRowBuilder) Build(t *testing.T, db *gorm.DB) *domain.QueuePlayer {
	t.Helper()

	if b.player == nil {
		b.player = NewPlayerBuilder().Build(t, db)
	}

	row := &domain.QueuePlayer{
		ID:               uuid.New(),
		PlayerID:         b.player.ID,
		SummonerName:     b.player.SummonerName,
		CustomMMR:        b.player.CustomMMR,
		PrimaryLane:      b.primary,
		SecondaryLane:    b.secondary,
		JoinTime:         b.joinTime,
		Active:           true,
		AcceptanceStatus: domain.AcceptancePending,
	}

	if err := db.Create(row).Error; err != nil {
		t.Fatalf("failed to create queue row: %v", err)
	}

	return row
}

// SeedQueue fills the queue with count players, one lane pair per slot so
// a full ten never needs autofill. Join times are staggered a second apart.
func SeedQueue(t *testing.T, db *gorm.DB, count int) []*domain.QueuePlayer {
	t.Helper()

	base := time.Now().Add(-time.Duration(count) * time.Second)
	rows := make([]*domain.QueuePlayer, count)
	for i := 0; i < count; i++ {
		slot := domain.LaneSlots[i%len(domain.LaneSlots)]
		player := NewPlayerBuilder().
			WithSummonerName(fmt.Sprintf("queued%02d#test", i)).
			Build(t, db)
		rows[i] = NewQueueRowBuilder().
			WithPlayer(player).
			WithLanes(slot, domain.LaneFill).
			WithJoinTime(base.Add(time.Duration(i) * time.Second)).
			Build(t, db)
	}
	return rows
}

// MatchBuilder creates matches with a frozen roster and draft document
type MatchBuilder struct {
	status      domain.MatchStatus
	namePrefix  string
	owner       string
	acceptedAll bool
	mutate      func(*domain.PickBanDocument)
}

// NewMatchBuilder creates a new MatchBuilder with default values
func NewMatchBuilder() *MatchBuilder {
	return &MatchBuilder{
		status:     domain.MatchStatusFound,
		namePrefix: fmt.Sprintf("m%s", uuid.New().String()[:4]),
	}
}

// WithStatus sets the match status
func (b *MatchBuilder) WithStatus(status domain.MatchStatus) *MatchBuilder {
	b.status = status
	return b
}

// WithNamePrefix sets the prefix participant names derive from
func (b *MatchBuilder) WithNamePrefix(prefix string) *MatchBuilder {
	b.namePrefix = prefix
	return b
}

// WithOwner sets the lease columns to the given instance id
func (b *MatchBuilder) WithOwner(instanceID string) *MatchBuilder {
	b.owner = instanceID
	return b
}

// WithAllAccepted marks every roster seat accepted
func (b *MatchBuilder) WithAllAccepted() *MatchBuilder {
	b.acceptedAll = true
	return b
}

// WithDocument applies fn to the draft document before it is stored
func (b *MatchBuilder) WithDocument(fn func(*domain.PickBanDocument)) *MatchBuilder {
	b.mutate = fn
	return b
}

// Build creates ten players and the match row in the database
func (b *MatchBuilder) Build(t *testing.T, db *gorm.DB) *domain.Match {
	t.Helper()

	var team1, team2 [5]domain.QueuePlayer
	joinBase := time.Now().Add(-time.Minute)
	for i := 0; i < 5; i++ {
		team1[i] = b.seatRow(t, db, fmt.Sprintf("%s_blue%d#test", b.namePrefix, i), i, joinBase)
		team2[i] = b.seatRow(t, db, fmt.Sprintf("%s_red%d#test", b.namePrefix, i), i, joinBase)
	}

	doc := domain.NewPickBanDocument(team1, team2)
	if b.acceptedAll {
		for i := range doc.Roster {
			doc.Roster[i].AcceptanceStatus = domain.AcceptanceAccepted
		}
	}
	if b.mutate != nil {
		b.mutate(doc)
	}

	m := &domain.Match{
		ID:        uuid.New(),
		Status:    b.status,
		CreatedAt: time.Now(),
	}
	var t1, t2 [5]string
	for i := 0; i < 5; i++ {
		t1[i] = team1[i].SummonerName
		t2[i] = team2[i].SummonerName
	}
	if err := m.SetTeams(t1, t2); err != nil {
		t.Fatalf("failed to set teams: %v", err)
	}
	if err := m.SetDocument(doc); err != nil {
		t.Fatalf("failed to set document: %v", err)
	}
	if b.owner != "" {
		now := time.Now()
		m.OwnerBackendID = &b.owner
		m.OwnerHeartbeat = &now
	}

	if err := db.Create(m).Error; err != nil {
		t.Fatalf("failed to create match: %v", err)
	}

	return m
}

// seatRow builds the in-memory queue row a seat is frozen from. These rows
// never touch the queue table; only the player behind them is persisted.
func (b *MatchBuilder) seatRow(t *testing.T, db *gorm.DB, name string, slot int, joinBase time.Time) domain.QueuePlayer {
	t.Helper()

	player := NewPlayerBuilder().WithSummonerName(name).Build(t, db)
	return domain.QueuePlayer{
		ID:            uuid.New(),
		PlayerID:      player.ID,
		SummonerName:  player.SummonerName,
		CustomMMR:     player.CustomMMR,
		PrimaryLane:   domain.LaneSlots[slot],
		SecondaryLane: domain.LaneFill,
		JoinTime:      joinBase.Add(time.Duration(slot) * time.Second),
	}
}

// VoteFor creates a vote row for a participant
func VoteFor(t *testing.T, db *gorm.DB, m *domain.Match, summonerName, gameID string) *domain.MatchVote {
	t.Helper()

	var player domain.Player
	if err := db.Where("summoner_name = ?", domain.NormalizeSummonerName(summonerName)).First(&player).Error; err != nil {
		t.Fatalf("failed to load player %s: %v", summonerName, err)
	}

	vote := &domain.MatchVote{
		ID:           uuid.New(),
		MatchID:      m.ID,
		PlayerID:     player.ID,
		SummonerName: player.SummonerName,
		LcuGameID:    gameID,
		VotedAt:      time.Now(),
	}
	if err := db.Create(vote).Error; err != nil {
		t.Fatalf("failed to create vote: %v", err)
	}
	return vote
}

// CreateRequest creates an HTTP request carrying the identity headers the
// API expects: X-Summoner-Name always, a bearer token when supplied.
func CreateRequest(t *testing.T, method, url string, body interface{}, summonerName, token string) *http.Request {
	t.Helper()

	var bodyReader *bytes.Buffer
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal body: %v", err)
		}
		bodyReader = bytes.NewBuffer(jsonBody)
	} else {
		bodyReader = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequestWithContext(context.Background(), method, url, bodyReader)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if summonerName != "" {
		req.Header.Set("X-Summoner-Name", summonerName)
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return req
}

// DoRequest executes the request and fails the test on transport errors
func DoRequest(t *testing.T, req *http.Request) *http.Response {
	t.Helper()

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}
