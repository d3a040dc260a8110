package match

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/config"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/repository"
	"github.com/dom/league-customs/internal/service"
	"github.com/dom/league-customs/internal/websocket"
)

const (
	leaseMirrorTTL = 60 * time.Second
	resumeInterval = 30 * time.Second
)

func leaseKey(matchID uuid.UUID) string {
	return "match:" + matchID.String() + ":owner"
}

// Gateway is the slice of the websocket hub the match layer needs:
// desktop RPC relays and targeted push frames, both location-transparent.
type Gateway interface {
	Request(ctx context.Context, summonerName, method, path string, body json.RawMessage) (*websocket.RPCResult, error)
	PushToPlayer(ctx context.Context, summonerName string, frame any) error
}

// Requeuer restores queue rows for survivors of a cancelled match.
// Implemented by the queue service.
type Requeuer interface {
	Requeue(ctx context.Context, entries []domain.QueuePlayer)
}

// Coordinator owns the per-instance match runners. Exactly one instance
// runs a match's state machine at a time, enforced by the database lease
// and mirrored into Redis for observability.
type Coordinator struct {
	cfg     *config.Config
	repos   *repository.Repositories
	bus     *bus.Bus
	rdb     *redis.Client
	emit    *Emitter
	matches *service.MatchService

	instanceID string

	gateway Gateway
	requeue Requeuer

	mu      sync.Mutex
	runners map[uuid.UUID]*Runner
	stopped bool
	wg      sync.WaitGroup
}

func NewCoordinator(cfg *config.Config, repos *repository.Repositories, b *bus.Bus, rdb *redis.Client, matches *service.MatchService, instanceID string) *Coordinator {
	return &Coordinator{
		cfg:        cfg,
		repos:      repos,
		bus:        b,
		rdb:        rdb,
		emit:       NewEmitter(b),
		matches:    matches,
		instanceID: instanceID,
		runners:    make(map[uuid.UUID]*Runner),
	}
}

func (c *Coordinator) SetGateway(g Gateway)   { c.gateway = g }
func (c *Coordinator) SetRequeuer(r Requeuer) { c.requeue = r }

// RegisterBusHandlers must run before bus.Start.
func (c *Coordinator) RegisterBusHandlers() {
	c.bus.Subscribe(bus.TopicMatchAction, c.onMatchAction)
	c.bus.Subscribe(bus.TopicGameVote, c.onGameVote)
}

// Start launches the resume sweep: claim and resume any match whose
// lease is free or stale, at boot and periodically afterwards.
func (c *Coordinator) Start(ctx context.Context) {
	go func() {
		c.resumeSweep(ctx)
		ticker := time.NewTicker(resumeInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c.resumeSweep(ctx)
			}
		}
	}()
}

// Shutdown stops all runners and waits for them to drain. The leases stay
// in place and expire via the heartbeat cutoff, letting another instance
// take over.
func (c *Coordinator) Shutdown() {
	c.mu.Lock()
	c.stopped = true
	runners := make([]*Runner, 0, len(c.runners))
	for _, r := range c.runners {
		runners = append(runners, r)
	}
	c.mu.Unlock()
	for _, r := range runners {
		r.Stop()
	}
	c.wg.Wait()
}

func (c *Coordinator) resumeSweep(ctx context.Context) {
	staleBefore := time.Now().UTC().Add(-c.cfg.OwnershipStaleCutoff)
	matches, err := c.repos.Match.ListResumable(ctx, staleBefore)
	if err != nil {
		log.Printf("Coordinator: resume sweep: %v", err)
		return
	}
	for i := range matches {
		m := matches[i]
		if c.hasRunner(m.ID) {
			continue
		}
		if c.claim(ctx, m.ID) {
			log.Printf("Coordinator: resumed match %s (%s)", m.ID, m.Status)
			c.startRunner(&m)
		}
	}
}

// AdoptMatch claims a just-formed match on the forming instance, before
// the match.found event reaches anyone else.
func (c *Coordinator) AdoptMatch(ctx context.Context, m *domain.Match) {
	if c.claim(ctx, m.ID) {
		c.startRunner(m)
	}
}

// claim takes the database lease and mirrors it into Redis. The mirror is
// advisory; the row is authoritative.
func (c *Coordinator) claim(ctx context.Context, matchID uuid.UUID) bool {
	now := time.Now().UTC()
	ok, err := c.repos.Match.TryClaimOwnership(ctx, matchID, c.instanceID, now, now.Add(-c.cfg.OwnershipStaleCutoff))
	if err != nil {
		log.Printf("Coordinator: claim %s: %v", matchID, err)
		return false
	}
	if !ok {
		return false
	}
	if err := c.rdb.Set(ctx, leaseKey(matchID), c.instanceID, leaseMirrorTTL).Err(); err != nil {
		log.Printf("Coordinator: lease mirror %s: %v", matchID, err)
	}
	return true
}

func (c *Coordinator) refreshLeaseMirror(ctx context.Context, matchID uuid.UUID) {
	if err := c.rdb.Set(ctx, leaseKey(matchID), c.instanceID, leaseMirrorTTL).Err(); err != nil {
		log.Printf("Coordinator: lease mirror refresh %s: %v", matchID, err)
	}
}

func (c *Coordinator) dropLeaseMirror(ctx context.Context, matchID uuid.UUID) {
	c.rdb.Del(ctx, leaseKey(matchID))
}

func (c *Coordinator) hasRunner(matchID uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.runners[matchID]
	return ok
}

func (c *Coordinator) runner(matchID uuid.UUID) (*Runner, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.runners[matchID]
	return r, ok
}

// startRunner is idempotent per match id. The caller must hold the lease.
func (c *Coordinator) startRunner(m *domain.Match) *Runner {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}
	if r, ok := c.runners[m.ID]; ok {
		return r
	}
	r := newRunner(c, m)
	c.runners[m.ID] = r
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		defer c.runnerDone(m.ID)
		r.run()
	}()
	return r
}

func (c *Coordinator) runnerDone(matchID uuid.UUID) {
	c.mu.Lock()
	delete(c.runners, matchID)
	c.mu.Unlock()
	c.dropLeaseMirror(context.Background(), matchID)
}

// HandlePlayerAction implements websocket.MatchDirector. Votes and
// spectator actions execute anywhere; state-changing frames run on the
// owning instance, reached by local runner, takeover, or forwarding.
func (c *Coordinator) HandlePlayerAction(ctx context.Context, summonerName string, frame websocket.PlayerActionFrame, raw json.RawMessage) error {
	name := domain.NormalizeSummonerName(summonerName)
	switch frame.Type {
	case websocket.FrameTypeVoteForMatch:
		_, err := c.matches.CastVote(ctx, frame.MatchID, name, frame.LcuGameID)
		return err
	case websocket.FrameTypeSpectate, websocket.FrameTypeStopSpectate, websocket.FrameTypeMuteSpectator:
		return c.handleSpectatorAction(ctx, name, frame)
	}
	return c.routeToOwner(ctx, name, frame, raw, false)
}

func (c *Coordinator) handleSpectatorAction(ctx context.Context, name string, frame websocket.PlayerActionFrame) error {
	m, err := c.repos.Match.GetByID(ctx, frame.MatchID)
	if err != nil {
		return err
	}
	switch frame.Type {
	case websocket.FrameTypeSpectate:
		if m.Status.IsTerminal() {
			return domain.ErrMatchTerminal
		}
		if m.HasParticipant(name) {
			return fmt.Errorf("%w: participants receive match updates directly", domain.ErrInvalidInput)
		}
		c.emit.Spectator(ctx, bus.TopicSpectatorJoined, m.ID, name, "")
	case websocket.FrameTypeStopSpectate:
		c.emit.Spectator(ctx, bus.TopicSpectatorLeft, m.ID, name, "")
	case websocket.FrameTypeMuteSpectator:
		if !m.HasParticipant(name) {
			return domain.ErrNotParticipant
		}
		target := domain.NormalizeSummonerName(frame.Target)
		if target == "" || m.HasParticipant(target) {
			return domain.ErrInvalidInput
		}
		c.emit.Spectator(ctx, bus.TopicSpectatorMuted, m.ID, target, name)
	}
	return nil
}

// routeToOwner delivers a state-changing frame to the match's runner:
// locally when this instance owns the lease, by takeover when the lease
// is free or stale, otherwise forwarded over the bus. Inbound activity
// is itself a takeover trigger, so a dead owner never strands a match.
func (c *Coordinator) routeToOwner(ctx context.Context, name string, frame websocket.PlayerActionFrame, raw json.RawMessage, admin bool) error {
	if r, ok := c.runner(frame.MatchID); ok {
		return r.Submit(ctx, name, frame, admin)
	}

	m, err := c.repos.Match.GetByID(ctx, frame.MatchID)
	if err != nil {
		return err
	}
	if m.Status.IsTerminal() {
		return domain.ErrMatchTerminal
	}
	if !m.HasParticipant(name) && !admin {
		return domain.ErrNotParticipant
	}

	staleBefore := time.Now().UTC().Add(-c.cfg.OwnershipStaleCutoff)
	ownerAlive := m.OwnerBackendID != nil && *m.OwnerBackendID != c.instanceID &&
		m.OwnerHeartbeat != nil && m.OwnerHeartbeat.After(staleBefore)

	if !ownerAlive && c.claim(ctx, frame.MatchID) {
		log.Printf("Coordinator: took over match %s on player activity", frame.MatchID)
		if r := c.startRunner(m); r != nil {
			return r.Submit(ctx, name, frame, admin)
		}
		return domain.ErrStoreUnavailable
	}

	// Someone else owns it (or won the race); let their runner decide.
	_, err = c.bus.Publish(ctx, bus.TopicMatchAction, bus.MatchActionPayload{
		MatchID:      frame.MatchID,
		SummonerName: name,
		Frame:        raw,
		Admin:        admin,
	})
	return err
}

// onMatchAction executes forwarded frames when this instance runs the
// match. Rejections travel back to the player as targeted push frames.
func (c *Coordinator) onMatchAction(ctx context.Context, evt bus.Event) {
	var p bus.MatchActionPayload
	if err := evt.Decode(&p); err != nil {
		return
	}
	r, ok := c.runner(p.MatchID)
	if !ok {
		return
	}
	var frame websocket.PlayerActionFrame
	if err := json.Unmarshal(p.Frame, &frame); err != nil {
		return
	}
	frame.MatchID = p.MatchID
	if frameType, err := websocket.PeekType(p.Frame); err == nil {
		frame.Type = frameType
	}

	if err := r.Submit(ctx, p.SummonerName, frame, p.Admin); err != nil {
		ef := websocket.ErrorFrameFor(err)
		ef.MatchID = &p.MatchID
		if pushErr := c.gateway.PushToPlayer(ctx, p.SummonerName, ef); pushErr != nil {
			log.Printf("Coordinator: push rejection to %s: %v", p.SummonerName, pushErr)
		}
	}
}

// onGameVote lets the owner evaluate quorum after any instance recorded
// a vote.
func (c *Coordinator) onGameVote(ctx context.Context, evt bus.Event) {
	var p bus.GameVotePayload
	if err := evt.Decode(&p); err != nil {
		return
	}
	if r, ok := c.runner(p.MatchID); ok {
		r.SubmitVote(p)
	}
}

// RequestCancel cancels a match on behalf of a participant or the admin
// surface. Routed like any other state change; force skips the
// participant check and cancels regardless of phase.
func (c *Coordinator) RequestCancel(ctx context.Context, matchID uuid.UUID, by string, force bool) error {
	frame := websocket.PlayerActionFrame{
		Type:    websocket.FrameTypeCancelMatch,
		MatchID: matchID,
	}
	raw, err := json.Marshal(frame)
	if err != nil {
		return err
	}
	return c.routeToOwner(ctx, domain.NormalizeSummonerName(by), frame, raw, force)
}
