package websocket

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/dom/league-customs/internal/bus"
	"github.com/dom/league-customs/internal/domain"
)

// RegisterBusHandlers wires the hub into the event bus. Must run before
// bus.Start.
func (h *Hub) RegisterBusHandlers() {
	h.bus.Subscribe(bus.TopicGatewayRequest, h.onGatewayRequest)
	h.bus.Subscribe(bus.TopicGatewayResponse, h.onGatewayResponse)
	h.bus.Subscribe(bus.TopicGatewayInvalidate, h.onGatewayInvalidate)
	h.bus.Subscribe(bus.TopicGatewayPush, h.onGatewayPush)

	h.bus.Subscribe(bus.TopicQueueUpdate, h.onQueueUpdate)

	h.bus.Subscribe(bus.TopicMatchFound, h.onMatchFound)
	h.bus.Subscribe(bus.TopicMatchAcceptance, h.matchEvent(FrameTypeAcceptance, false))
	h.bus.Subscribe(bus.TopicMatchCancelled, h.matchEvent(FrameTypeCancelled, true))
	h.bus.Subscribe(bus.TopicDraftStarted, h.matchEvent(FrameTypeDraftUpdate, false))
	h.bus.Subscribe(bus.TopicDraftPick, h.matchEvent(FrameTypeDraftUpdate, false))
	h.bus.Subscribe(bus.TopicDraftBan, h.matchEvent(FrameTypeDraftUpdate, false))
	h.bus.Subscribe(bus.TopicDraftEdit, h.matchEvent(FrameTypeDraftUpdate, false))
	h.bus.Subscribe(bus.TopicDraftConfirm, h.matchEvent(FrameTypeDraftUpdate, false))
	h.bus.Subscribe(bus.TopicDraftCompleted, h.matchEvent(FrameTypeDraftUpdate, false))
	h.bus.Subscribe(bus.TopicGameStarted, h.matchEvent(FrameTypeGameStarted, false))
	h.bus.Subscribe(bus.TopicGameEnded, h.matchEvent(FrameTypeGameEnded, false))
	h.bus.Subscribe(bus.TopicGameVote, h.matchEvent(FrameTypeGameVote, false))
	h.bus.Subscribe(bus.TopicGameLinked, h.matchEvent(FrameTypeGameLinked, true))

	h.bus.Subscribe(bus.TopicSpectatorJoined, h.onSpectatorEvent)
	h.bus.Subscribe(bus.TopicSpectatorLeft, h.onSpectatorEvent)
	h.bus.Subscribe(bus.TopicSpectatorMuted, h.onSpectatorEvent)
}

func pushFrame(frameType FrameType, evt bus.Event) []byte {
	return encodeFrame(EventFrame{
		Type:      frameType,
		Event:     evt.Type,
		EventID:   evt.ID,
		Timestamp: evt.Timestamp,
		Payload:   evt.Payload,
	})
}

// matchParticipants is the minimal shape shared by match-scoped payloads.
type matchParticipants struct {
	MatchID      uuid.UUID `json:"matchId"`
	Participants []string  `json:"participants"`
}

// deliverToMatch pushes a frame to the locally connected participants and
// the match's unmuted spectators.
func (h *Hub) deliverToMatch(matchID uuid.UUID, participants []string, data []byte) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(participants)+4)
	for _, name := range participants {
		if c, ok := h.byName[name]; ok {
			targets = append(targets, c)
		}
	}
	muted := h.muted[matchID]
	for c := range h.spectators[matchID] {
		if c.identified && !muted[c.summonerName] {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.trySend(data)
	}
}

func (h *Hub) clearMatchState(matchID uuid.UUID) {
	h.mu.Lock()
	delete(h.spectators, matchID)
	delete(h.muted, matchID)
	h.mu.Unlock()
}

func (h *Hub) onQueueUpdate(ctx context.Context, evt bus.Event) {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.byName))
	for _, c := range h.byName {
		targets = append(targets, c)
	}
	h.mu.RUnlock()

	data := pushFrame(FrameTypeQueueUpdate, evt)
	for _, c := range targets {
		c.trySend(data)
	}
}

func (h *Hub) onMatchFound(ctx context.Context, evt bus.Event) {
	var p bus.MatchFoundPayload
	if err := evt.Decode(&p); err != nil {
		log.Printf("Hub: bad match.found payload: %v", err)
		return
	}
	h.deliverToMatch(p.MatchID, p.Participants(), pushFrame(FrameTypeMatchFound, evt))
}

// matchEvent builds a handler that fans a match-scoped event out to local
// participants and spectators. Terminal events drop spectator state.
func (h *Hub) matchEvent(frameType FrameType, terminal bool) bus.Handler {
	return func(ctx context.Context, evt bus.Event) {
		var p matchParticipants
		if err := evt.Decode(&p); err != nil || p.MatchID == uuid.Nil {
			log.Printf("Hub: bad %s payload: %v", evt.Type, err)
			return
		}
		h.deliverToMatch(p.MatchID, p.Participants, pushFrame(frameType, evt))
		if terminal {
			h.clearMatchState(p.MatchID)
		}
	}
}

func (h *Hub) onSpectatorEvent(ctx context.Context, evt bus.Event) {
	var p bus.SpectatorPayload
	if err := evt.Decode(&p); err != nil || p.MatchID == uuid.Nil {
		return
	}
	if evt.Type == bus.TopicSpectatorMuted {
		h.mu.Lock()
		set := h.muted[p.MatchID]
		if set == nil {
			set = make(map[string]bool)
			h.muted[p.MatchID] = set
		}
		set[p.SummonerName] = true
		h.mu.Unlock()
	}

	// Spectator membership changes are public to everyone watching or
	// playing the match; Participants is not on this payload, so fan out
	// to spectators only plus the named player.
	data := pushFrame(FrameTypeSpectators, evt)
	h.mu.RLock()
	targets := make([]*Client, 0, 8)
	for c := range h.spectators[p.MatchID] {
		if c.identified {
			targets = append(targets, c)
		}
	}
	if c, ok := h.byName[p.SummonerName]; ok {
		targets = append(targets, c)
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.trySend(data)
	}
}

// onGatewayRequest serves relayed LCU requests for sessions that live on
// this instance. The origin instance ignores its own event here.
func (h *Hub) onGatewayRequest(ctx context.Context, evt bus.Event) {
	var p bus.GatewayRequestPayload
	if err := evt.Decode(&p); err != nil {
		return
	}
	if p.ReplyTo == h.instanceID {
		return
	}
	c, ok := h.clientByName(p.SummonerName)
	if !ok {
		return
	}

	// The desktop round trip can take seconds; never block dispatch.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), h.rpcTimeout)
		defer cancel()

		ch := h.pending.add(p.RequestID)
		defer h.pending.remove(p.RequestID)
		c.trackRequest(p.RequestID)
		defer c.untrackRequest(p.RequestID)

		resp := bus.GatewayResponsePayload{RequestID: p.RequestID, ReplyTo: p.ReplyTo}
		frame := LCURequestFrame{Type: FrameTypeLCURequest, ID: p.RequestID, Method: p.Method, Path: p.Path, Body: p.Body}
		if !c.trySend(encodeFrame(frame)) {
			resp.Error = "gateway disconnected"
		} else {
			select {
			case res := <-ch:
				if res.Err != nil {
					resp.Error = res.Err.Error()
				} else {
					resp.Status = res.Status
					resp.Body = res.Body
				}
			case <-time.After(h.rpcTimeout):
				resp.Error = "rpc timeout"
			case <-ctx.Done():
				resp.Error = "rpc timeout"
			}
		}
		if _, err := h.bus.Publish(context.Background(), bus.TopicGatewayResponse, resp); err != nil {
			log.Printf("Hub: publish gateway response %s: %v", p.RequestID, err)
		}
	}()
}

func (h *Hub) onGatewayResponse(ctx context.Context, evt bus.Event) {
	var p bus.GatewayResponsePayload
	if err := evt.Decode(&p); err != nil {
		return
	}
	if p.ReplyTo != h.instanceID {
		return
	}
	res := RPCResult{Status: p.Status, Body: p.Body}
	if p.Error != "" {
		res = RPCResult{Err: remoteRPCError(p.Error)}
	}
	h.pending.resolve(p.RequestID, res)
}

// onGatewayInvalidate closes a local connection whose session was
// re-registered on another instance. The Redis entry already belongs to
// the new instance, so only local state is dropped.
func (h *Hub) onGatewayInvalidate(ctx context.Context, evt bus.Event) {
	var p bus.GatewayInvalidatePayload
	if err := evt.Decode(&p); err != nil {
		return
	}
	if p.InstanceID != h.instanceID {
		return
	}
	c, ok := h.clientByName(p.SummonerName)
	if !ok {
		return
	}
	log.Printf("Hub: session for %s superseded by %s, closing local connection", p.SummonerName, p.NewInstanceID)
	h.registry.DropLocal(p.SummonerName, c.connectionID)
	c.trySend(encodeFrame(newErrorFrame(CodeDuplicateSession, "session superseded on another instance")))
	c.closeSend()
}

func (h *Hub) onGatewayPush(ctx context.Context, evt bus.Event) {
	var p bus.GatewayPushPayload
	if err := evt.Decode(&p); err != nil {
		return
	}
	if c, ok := h.clientByName(p.SummonerName); ok {
		c.trySend(p.Frame)
	}
}

// remoteRPCError maps the wire error of a forwarded request back onto
// the local sentinels so errors.Is works regardless of routing.
func remoteRPCError(msg string) error {
	switch msg {
	case "rpc timeout":
		return domain.ErrRPCTimeout
	case "gateway disconnected":
		return domain.ErrGatewayDisconnected
	default:
		return fmt.Errorf("remote lcu error: %s", msg)
	}
}
