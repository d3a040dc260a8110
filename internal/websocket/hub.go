package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/domain"
	"github.com/dom/league-customs/internal/registry"
	"github.com/dom/league-customs/internal/repository"
)

// QueueOps is the slice of the queue service the gateway needs.
type QueueOps interface {
	Join(ctx context.Context, summonerName string, primary, secondary domain.Lane) (*domain.QueuePlayer, error)
	Leave(ctx context.Context, summonerName string) error
}

// MatchDirector routes match-scoped player actions to whichever instance
// owns the match. Implemented by the match coordinator.
type MatchDirector interface {
	HandlePlayerAction(ctx context.Context, summonerName string, frame PlayerActionFrame, raw json.RawMessage) error
}

// AuthFunc validates an identify token against the claimed summoner name.
// Nil disables authentication.
type AuthFunc func(token, summonerName string) error

// Hub owns every gateway connection on this instance, relays LCU requests
// to desktop clients, and fans bus events out as push frames.
type Hub struct {
	instanceID string
	registry   *registry.Registry
	bus        *bus.Bus
	players    repository.PlayerRepository
	rpcTimeout time.Duration

	queue    QueueOps
	director MatchDirector
	auth     AuthFunc

	register   chan *Client
	unregister chan *Client
	stop       chan struct{}

	mu         sync.RWMutex
	clients    map[string]*Client // connectionID -> client
	byName     map[string]*Client // summoner name -> identified client
	spectators map[uuid.UUID]map[*Client]bool
	muted      map[uuid.UUID]map[string]bool

	pending *pendingTable
}

func NewHub(reg *registry.Registry, b *bus.Bus, players repository.PlayerRepository, rpcTimeout time.Duration) *Hub {
	return &Hub{
		instanceID: reg.InstanceID(),
		registry:   reg,
		bus:        b,
		players:    players,
		rpcTimeout: rpcTimeout,
		register:   make(chan *Client),
		unregister: make(chan *Client),
		stop:       make(chan struct{}),
		clients:    make(map[string]*Client),
		byName:     make(map[string]*Client),
		spectators: make(map[uuid.UUID]map[*Client]bool),
		muted:      make(map[uuid.UUID]map[string]bool),
		pending:    newPendingTable(),
	}
}

func (h *Hub) SetQueue(q QueueOps)         { h.queue = q }
func (h *Hub) SetDirector(d MatchDirector) { h.director = d }
func (h *Hub) SetAuth(fn AuthFunc)         { h.auth = fn }

// Run processes connection registration until Shutdown.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.mu.Lock()
			h.clients[c.connectionID] = c
			h.mu.Unlock()
		case c := <-h.unregister:
			h.removeClient(c)
		case <-h.stop:
			h.closeAll()
			return
		}
	}
}

func (h *Hub) Shutdown() {
	close(h.stop)
}

// ServeWS upgrades an HTTP request into a gateway connection.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Hub: upgrade failed: %v", err)
		return
	}
	client := newClient(h, conn, uuid.NewString())
	h.register <- client
	go client.writePump()
	go client.readPump()
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.clients {
		c.closeSend()
	}
}

func (h *Hub) removeClient(c *Client) {
	h.mu.Lock()
	delete(h.clients, c.connectionID)
	if c.identified && h.byName[c.summonerName] == c {
		delete(h.byName, c.summonerName)
	}
	for matchID, set := range h.spectators {
		if set[c] {
			delete(set, c)
			if len(set) == 0 {
				delete(h.spectators, matchID)
			}
		}
	}
	h.mu.Unlock()

	h.pending.failForConnection(c.drainInflight(), domain.ErrGatewayDisconnected)

	if c.identified {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		h.registry.Unregister(ctx, c.summonerName, c.connectionID)
		cancel()
		log.Printf("Hub: %s disconnected (conn=%s)", c.summonerName, c.connectionID)
	}
	c.closeSend()
}

func (h *Hub) clientByName(summonerName string) (*Client, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	c, ok := h.byName[domain.NormalizeSummonerName(summonerName)]
	return c, ok
}

// SendToPlayer delivers a frame to a locally connected player. Returns
// false when the player is not connected to this instance.
func (h *Hub) SendToPlayer(summonerName string, frame any) bool {
	c, ok := h.clientByName(summonerName)
	if !ok {
		return false
	}
	return c.trySend(encodeFrame(frame))
}

// PushToPlayer delivers a frame wherever the player's session lives,
// using gateway.push when the session is on another instance.
func (h *Hub) PushToPlayer(ctx context.Context, summonerName string, frame any) error {
	data := encodeFrame(frame)
	if c, ok := h.clientByName(summonerName); ok {
		if !c.trySend(data) {
			return domain.ErrGatewayDisconnected
		}
		return nil
	}
	entry, err := h.registry.Lookup(ctx, summonerName)
	if err != nil {
		return err
	}
	if entry.InstanceID == h.instanceID {
		return domain.ErrGatewayDisconnected
	}
	_, err = h.bus.Publish(ctx, bus.TopicGatewayPush, bus.GatewayPushPayload{
		SummonerName: domain.NormalizeSummonerName(summonerName),
		Frame:        data,
	})
	return err
}

// Broadcast sends a frame to every identified local connection.
func (h *Hub) Broadcast(frame any) {
	data := encodeFrame(frame)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.byName {
		c.trySend(data)
	}
}

// Request relays one LCU call to the player's desktop client and waits
// for the answer. The connection may live on any instance.
func (h *Hub) Request(ctx context.Context, summonerName, method, path string, body json.RawMessage) (*RPCResult, error) {
	id := uuid.NewString()
	ch := h.pending.add(id)
	defer h.pending.remove(id)

	if c, ok := h.clientByName(summonerName); ok {
		c.trackRequest(id)
		defer c.untrackRequest(id)
		frame := LCURequestFrame{Type: FrameTypeLCURequest, ID: id, Method: method, Path: path, Body: body}
		if !c.trySend(encodeFrame(frame)) {
			return nil, domain.ErrGatewayDisconnected
		}
	} else {
		entry, err := h.registry.Lookup(ctx, summonerName)
		if err != nil {
			return nil, err
		}
		if entry.InstanceID == h.instanceID {
			// Registry says local but the connection is gone; a
			// re-register is in flight or the socket just dropped.
			return nil, domain.ErrGatewayDisconnected
		}
		_, err = h.bus.Publish(ctx, bus.TopicGatewayRequest, bus.GatewayRequestPayload{
			RequestID:    id,
			SummonerName: domain.NormalizeSummonerName(summonerName),
			Method:       method,
			Path:         path,
			Body:         body,
			ReplyTo:      h.instanceID,
		})
		if err != nil {
			return nil, err
		}
	}

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return &res, nil
	case <-time.After(h.rpcTimeout):
		return nil, domain.ErrRPCTimeout
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// routeFrame dispatches one inbound frame. The bool return asks the read
// pump to drop the connection.
func (h *Hub) routeFrame(c *Client, data []byte) bool {
	frameType, err := PeekType(data)
	if err != nil {
		if !c.identified {
			c.trySend(encodeFrame(newErrorFrame(CodeIdentifyExpected, "first frame must be identify")))
			return true
		}
		c.trySend(encodeFrame(newErrorFrame(CodeInvalidFrame, "unparseable frame")))
		return false
	}

	if frameType == FrameTypeIdentify {
		return h.handleIdentify(c, data)
	}
	if !c.identified {
		c.trySend(encodeFrame(newErrorFrame(CodeIdentifyExpected, "first frame must be identify")))
		return true
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.rpcTimeout+5*time.Second)
	defer cancel()

	switch frameType {
	case FrameTypePong:
		h.registry.Heartbeat(ctx, c.summonerName)
	case FrameTypeLCUResponse:
		var f LCUResponseFrame
		if err := json.Unmarshal(data, &f); err == nil && f.ID != "" {
			c.untrackRequest(f.ID)
			h.pending.resolve(f.ID, RPCResult{Status: f.Status, Body: f.Body})
		}
		h.registry.Heartbeat(ctx, c.summonerName)
	case FrameTypeLCUError:
		var f LCUErrorFrame
		if err := json.Unmarshal(data, &f); err == nil && f.ID != "" {
			c.untrackRequest(f.ID)
			h.pending.resolve(f.ID, RPCResult{Err: fmt.Errorf("lcu error: %s", f.Error)})
		}
	case FrameTypeRegisterLCU:
		h.handleRegisterLCU(ctx, c, data)
	case FrameTypeQueueJoin:
		var f QueueJoinFrame
		if err := json.Unmarshal(data, &f); err != nil {
			c.trySend(encodeFrame(newErrorFrame(CodeInvalidFrame, "bad queue_join frame")))
			return false
		}
		primary := domain.NormalizeLane(f.PrimaryLane)
		secondary := domain.NormalizeLane(f.SecondaryLane)
		if _, err := h.queue.Join(ctx, c.summonerName, primary, secondary); err != nil {
			c.trySend(encodeFrame(ErrorFrameFor(err)))
		}
	case FrameTypeQueueLeave:
		if err := h.queue.Leave(ctx, c.summonerName); err != nil {
			c.trySend(encodeFrame(ErrorFrameFor(err)))
		}
	case FrameTypeAcceptMatch, FrameTypeDeclineMatch, FrameTypeDraftAction,
		FrameTypeDraftEdit, FrameTypeDraftConfirm, FrameTypeVoteForMatch,
		FrameTypeCancelMatch, FrameTypeSpectate, FrameTypeStopSpectate,
		FrameTypeMuteSpectator:
		h.handlePlayerAction(ctx, c, frameType, data)
	default:
		c.trySend(encodeFrame(newErrorFrame(CodeInvalidFrame, "unknown frame type "+string(frameType))))
	}
	return false
}

func (h *Hub) handleIdentify(c *Client, data []byte) bool {
	if c.identified {
		c.trySend(encodeFrame(newErrorFrame(CodeDuplicateSession, "connection already identified")))
		return true
	}
	var f IdentifyFrame
	if err := json.Unmarshal(data, &f); err != nil || f.SummonerName == "" {
		c.trySend(encodeFrame(newErrorFrame(CodeInvalidFrame, "identify requires summonerName")))
		return true
	}
	name := domain.NormalizeSummonerName(f.SummonerName)
	if h.auth != nil {
		if err := h.auth(f.Token, name); err != nil {
			c.trySend(encodeFrame(newErrorFrame(CodeAuthFailed, "invalid or missing token")))
			return true
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if _, err := h.players.GetOrCreate(ctx, name); err != nil {
		log.Printf("Hub: get-or-create player %s: %v", name, err)
		c.trySend(encodeFrame(newErrorFrame(CodeInternal, "player lookup failed")))
		return true
	}

	// A fresh identify for a name connected here supersedes the old
	// socket; the newest registration always wins.
	h.mu.Lock()
	old := h.byName[name]
	c.summonerName = name
	c.identified = true
	h.byName[name] = c
	h.mu.Unlock()
	if old != nil && old != c {
		old.trySend(encodeFrame(newErrorFrame(CodeDuplicateSession, "session superseded by a new connection")))
		old.closeSend()
	}

	if err := h.registry.Register(ctx, name, c.connectionID); err != nil {
		log.Printf("Hub: register %s: %v", name, err)
		h.mu.Lock()
		if h.byName[name] == c {
			delete(h.byName, name)
		}
		c.identified = false
		h.mu.Unlock()
		c.trySend(encodeFrame(newErrorFrame(CodeInternal, "session registry unavailable")))
		return true
	}

	c.trySend(encodeFrame(IdentifiedFrame{
		Type:         FrameTypeIdentified,
		SummonerName: name,
		InstanceID:   h.instanceID,
		ConnectionID: c.connectionID,
	}))
	log.Printf("Hub: %s identified (conn=%s)", name, c.connectionID)
	return false
}

func (h *Hub) handleRegisterLCU(ctx context.Context, c *Client, data []byte) {
	var f RegisterLCUFrame
	if err := json.Unmarshal(data, &f); err != nil {
		c.trySend(encodeFrame(newErrorFrame(CodeInvalidFrame, "bad register_lcu_connection frame")))
		return
	}
	creds := domain.LCUCredentials{
		Host:          "127.0.0.1",
		Port:          f.Port,
		Protocol:      f.Protocol,
		AuthToken:     f.AuthToken,
		ProfileIconID: f.ProfileIconID,
		PUUID:         f.PUUID,
		SummonerID:    f.SummonerID,
		ConfiguredAt:  time.Now().UTC(),
	}
	if err := h.registry.StoreLCUCredentials(ctx, c.summonerName, creds); err != nil {
		log.Printf("Hub: store lcu credentials for %s: %v", c.summonerName, err)
	}
	if f.PUUID != "" || f.SummonerID != "" || f.ProfileIconID != 0 {
		if err := h.players.UpdateProfile(ctx, c.summonerName, f.PUUID, f.SummonerID, f.ProfileIconID); err != nil {
			log.Printf("Hub: update profile for %s: %v", c.summonerName, err)
		}
	}
}

func (h *Hub) handlePlayerAction(ctx context.Context, c *Client, frameType FrameType, data []byte) {
	if h.director == nil {
		c.trySend(encodeFrame(newErrorFrame(CodeInternal, "match routing unavailable")))
		return
	}
	var f PlayerActionFrame
	if err := json.Unmarshal(data, &f); err != nil || f.MatchID == uuid.Nil {
		c.trySend(encodeFrame(newErrorFrame(CodeInvalidFrame, "frame requires matchId")))
		return
	}
	f.Type = frameType

	// Spectator membership is per-instance state; the director only
	// validates and announces it.
	if frameType == FrameTypeSpectate {
		h.addSpectator(f.MatchID, c)
	}
	if frameType == FrameTypeStopSpectate {
		h.removeSpectator(f.MatchID, c)
	}

	if err := h.director.HandlePlayerAction(ctx, c.summonerName, f, data); err != nil {
		if frameType == FrameTypeSpectate {
			h.removeSpectator(f.MatchID, c)
		}
		ef := ErrorFrameFor(err)
		ef.MatchID = &f.MatchID
		c.trySend(encodeFrame(ef))
	}
}

func (h *Hub) addSpectator(matchID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set := h.spectators[matchID]
	if set == nil {
		set = make(map[*Client]bool)
		h.spectators[matchID] = set
	}
	set[c] = true
}

func (h *Hub) removeSpectator(matchID uuid.UUID, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set := h.spectators[matchID]; set != nil {
		delete(set, c)
		if len(set) == 0 {
			delete(h.spectators, matchID)
		}
	}
}
