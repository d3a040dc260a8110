package service

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/config"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
)

const waitSampleWindow = 10

// MatchAdopter is told about matches formed on this instance so it can
// claim ownership before anyone else. Implemented by the match
// coordinator; wired in main.
type MatchAdopter interface {
	AdoptMatch(ctx context.Context, match *domain.Match)
}

// QueueService owns queue membership and drives match formation. One
// Run loop per instance; the database serializes competing instances.
type QueueService struct {
	repos *repository.Repositories
	bus   *bus.Bus
	cfg   *config.Config
	mm    *MatchmakingService

	adopter MatchAdopter

	wake chan struct{}

	mu          sync.Mutex
	active      bool
	waitSamples []time.Duration
}

func NewQueueService(repos *repository.Repositories, b *bus.Bus, cfg *config.Config, mm *MatchmakingService) *QueueService {
	return &QueueService{
		repos:  repos,
		bus:    b,
		cfg:    cfg,
		mm:     mm,
		wake:   make(chan struct{}, 1),
		active: true,
	}
}

func (s *QueueService) SetAdopter(a MatchAdopter) { s.adopter = a }

// RegisterBusHandlers must run before bus.Start. Remote joins and leaves
// wake the local formation loop; rows live in shared storage, so any
// instance may form the match.
func (s *QueueService) RegisterBusHandlers() {
	s.bus.Subscribe(bus.TopicQueuePlayerJoined, func(ctx context.Context, evt bus.Event) { s.Wake() })
	s.bus.Subscribe(bus.TopicQueuePlayerLeft, func(ctx context.Context, evt bus.Event) { s.Wake() })
}

// LoadSettings pulls the persisted queue-active flag, if any.
func (s *QueueService) LoadSettings(ctx context.Context) {
	setting, err := s.repos.Settings.Get(ctx, domain.SettingQueueActive)
	if err != nil || setting == nil {
		return
	}
	var active bool
	if err := setting.Decode(&active); err == nil {
		s.mu.Lock()
		s.active = active
		s.mu.Unlock()
	}
}

func (s *QueueService) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// SetActive toggles admissions. Existing queue rows and matches are
// unaffected.
func (s *QueueService) SetActive(ctx context.Context, active bool) error {
	s.mu.Lock()
	s.active = active
	s.mu.Unlock()
	if err := s.repos.Settings.SetJSON(ctx, domain.SettingQueueActive, active); err != nil {
		return err
	}
	s.publishQueueUpdate(ctx)
	return nil
}

// Join adds a player to the queue. The player must not already be queued
// or inside a non-terminal match.
func (s *QueueService) Join(ctx context.Context, summonerName string, primary, secondary domain.Lane) (*domain.QueuePlayer, error) {
	if !s.IsActive() {
		return nil, domain.ErrQueueInactive
	}
	name := domain.NormalizeSummonerName(summonerName)
	if name == "" {
		return nil, domain.ErrInvalidInput
	}

	qp := &domain.QueuePlayer{
		SummonerName:     name,
		PrimaryLane:      primary,
		SecondaryLane:    secondary,
		JoinTime:         time.Now().UTC(),
		Active:           true,
		AcceptanceStatus: domain.AcceptancePending,
	}
	if err := qp.ValidateLanes(); err != nil {
		return nil, err
	}

	if _, err := s.repos.Match.GetActiveForPlayer(ctx, name); err == nil {
		return nil, domain.ErrAlreadyInMatch
	} else if !errors.Is(err, domain.ErrMatchNotFound) {
		return nil, err
	}

	player, err := s.repos.Player.GetOrCreate(ctx, name)
	if err != nil {
		return nil, err
	}
	qp.PlayerID = player.ID
	qp.CustomMMR = player.CustomMMR

	if err := s.repos.Queue.Insert(ctx, qp); err != nil {
		return nil, err
	}
	log.Printf("Queue: %s joined (%s/%s)", name, primary, secondary)

	s.publishJoined(ctx, qp)
	s.publishQueueUpdate(ctx)
	s.Wake()
	return qp, nil
}

// Requeue restores queue rows for players who already accepted a match
// that fell apart. Original join times are preserved so they keep their
// place in line.
func (s *QueueService) Requeue(ctx context.Context, entries []domain.QueuePlayer) {
	requeued := 0
	for _, e := range entries {
		qp := &domain.QueuePlayer{
			PlayerID:         e.PlayerID,
			SummonerName:     e.SummonerName,
			Region:           e.Region,
			CustomMMR:        e.CustomMMR,
			PrimaryLane:      e.PrimaryLane,
			SecondaryLane:    e.SecondaryLane,
			JoinTime:         e.JoinTime,
			Active:           true,
			AcceptanceStatus: domain.AcceptancePending,
		}
		if qp.PlayerID == uuid.Nil {
			player, err := s.repos.Player.GetOrCreate(ctx, qp.SummonerName)
			if err != nil {
				log.Printf("Queue: requeue lookup %s: %v", qp.SummonerName, err)
				continue
			}
			qp.PlayerID = player.ID
		}
		err := s.repos.Queue.Insert(ctx, qp)
		if err != nil && !errors.Is(err, domain.ErrAlreadyQueued) {
			log.Printf("Queue: requeue %s: %v", e.SummonerName, err)
			continue
		}
		if err == nil {
			requeued++
		}
	}
	if requeued > 0 {
		log.Printf("Queue: requeued %d players after cancellation", requeued)
		s.publishQueueUpdate(ctx)
		s.Wake()
	}
}

// Leave removes a player from the queue before a match is found. Leaving
// while not queued is a no-op.
func (s *QueueService) Leave(ctx context.Context, summonerName string) error {
	name := domain.NormalizeSummonerName(summonerName)
	found, err := s.repos.Queue.DeleteBySummonerName(ctx, name)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	log.Printf("Queue: %s left", name)
	if _, err := s.bus.Publish(ctx, bus.TopicQueuePlayerLeft, bus.QueuePlayerPayload{SummonerName: name}); err != nil {
		log.Printf("Queue: publish player_left: %v", err)
	}
	s.publishQueueUpdate(ctx)
	return nil
}

// Status reports the live queue: waiting players in join order plus an
// estimated wait from recent formations.
func (s *QueueService) Status(ctx context.Context) (*domain.QueueStatus, error) {
	rows, err := s.repos.Queue.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]domain.QueueEntry, len(rows))
	for i, qp := range rows {
		entries[i] = domain.QueueEntry{
			SummonerName:  qp.SummonerName,
			PrimaryLane:   qp.PrimaryLane,
			SecondaryLane: qp.SecondaryLane,
			JoinTime:      qp.JoinTime,
		}
	}
	return &domain.QueueStatus{
		PlayersInQueue:       len(entries),
		Players:              entries,
		EstimatedWaitSeconds: s.EstimatedWaitSeconds(),
		IsActive:             s.IsActive(),
	}, nil
}

// EstimatedWaitSeconds averages the last formations' queue latencies.
// With no samples yet it answers one minute.
func (s *QueueService) EstimatedWaitSeconds() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.waitSamples) == 0 {
		return 60
	}
	var sum time.Duration
	for _, d := range s.waitSamples {
		sum += d
	}
	return int((sum / time.Duration(len(s.waitSamples))).Seconds())
}

// Wake nudges the formation loop without blocking.
func (s *QueueService) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Run drives match formation until ctx is done: a steady 1s tick plus
// wakes on joins, leaves and requeues.
func (s *QueueService) Run(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-s.wake:
		}
		s.formAll(ctx)
	}
}

// formAll drains the pool: keep forming while ten compatible players are
// waiting.
func (s *QueueService) formAll(ctx context.Context) {
	for {
		formed, err := s.mm.TryFormMatch(ctx)
		if err != nil {
			log.Printf("Queue: formation failed: %v", err)
			return
		}
		if formed == nil {
			return
		}
		s.handleFormed(ctx, formed)
	}
}

func (s *QueueService) handleFormed(ctx context.Context, formed *FormedMatch) {
	match := formed.Match
	now := time.Now().UTC()

	s.mu.Lock()
	for _, qp := range formed.Entries {
		s.waitSamples = append(s.waitSamples, now.Sub(qp.JoinTime))
	}
	if extra := len(s.waitSamples) - waitSampleWindow; extra > 0 {
		s.waitSamples = s.waitSamples[extra:]
	}
	s.mu.Unlock()

	log.Printf("Queue: match %s formed (avg mmr %d vs %d)", match.ID, match.AverageMmrTeam1, match.AverageMmrTeam2)

	// Claim ownership before announcing so the forming instance runs the
	// acceptance window; others only learn about it from the event.
	if s.adopter != nil {
		s.adopter.AdoptMatch(ctx, match)
	}

	team1, team2, err := match.Teams()
	if err != nil {
		log.Printf("Queue: formed match %s has bad teams: %v", match.ID, err)
		return
	}
	doc, err := match.Document()
	if err != nil {
		log.Printf("Queue: formed match %s has bad document: %v", match.ID, err)
		return
	}
	payload := bus.MatchFoundPayload{
		MatchID:            match.ID,
		Team1Players:       team1[:],
		Team2Players:       team2[:],
		AverageMmrTeam1:    match.AverageMmrTeam1,
		AverageMmrTeam2:    match.AverageMmrTeam2,
		Roster:             doc.Roster,
		AcceptanceDeadline: match.CreatedAt.Add(s.cfg.AcceptanceTimeout),
	}
	if _, err := s.bus.Publish(ctx, bus.TopicMatchFound, payload); err != nil {
		log.Printf("Queue: publish match.found: %v", err)
	}
	s.publishQueueUpdate(ctx)
}

func (s *QueueService) publishJoined(ctx context.Context, qp *domain.QueuePlayer) {
	payload := bus.QueuePlayerPayload{
		SummonerName:  qp.SummonerName,
		PrimaryLane:   qp.PrimaryLane,
		SecondaryLane: qp.SecondaryLane,
	}
	if _, err := s.bus.Publish(ctx, bus.TopicQueuePlayerJoined, payload); err != nil {
		log.Printf("Queue: publish player_joined: %v", err)
	}
}

func (s *QueueService) publishQueueUpdate(ctx context.Context) {
	status, err := s.Status(ctx)
	if err != nil {
		log.Printf("Queue: status for update: %v", err)
		return
	}
	payload := bus.QueueUpdatePayload{
		PlayersInQueue:       status.PlayersInQueue,
		Players:              status.Players,
		EstimatedWaitSeconds: status.EstimatedWaitSeconds,
		IsActive:             status.IsActive,
	}
	if _, err := s.bus.Publish(ctx, bus.TopicQueueUpdate, payload); err != nil {
		log.Printf("Queue: publish queue.update: %v", err)
	}
}
