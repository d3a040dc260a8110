package testutil

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	gorillaWS "github.com/gorilla/websocket"

	"github.com/dom/league-customs/internal/websocket"
)

// Frame is one server push as received on the wire, kept raw so tests
// decode only the frames they care about.
type Frame struct {
	Type websocket.FrameType
	Raw  json.RawMessage
}

// Decode unmarshals the raw frame into v
func (f *Frame) Decode(t *testing.T, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(f.Raw, v); err != nil {
		t.Fatalf("failed to decode %s frame: %v", f.Type, err)
	}
}

// LCUResponder plays the desktop client's role for relayed LCU calls.
type LCUResponder func(method, path string) (int, json.RawMessage)

// WSClient is a test WebSocket client
type WSClient struct {
	t      *testing.T
	conn   *gorillaWS.Conn
	frames chan *Frame
	errors chan error
	done   chan struct{}
	mu     sync.Mutex

	lcuMu sync.RWMutex
	onLCU LCUResponder
}

// NewWSClient connects a new test client to the gateway endpoint
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()

	dialer := gorillaWS.DefaultDialer
	dialer.HandshakeTimeout = 5 * time.Second

	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("failed to connect to websocket: %v", err)
	}

	client := &WSClient{
		t:      t,
		conn:   conn,
		frames: make(chan *Frame, 100),
		errors: make(chan error, 10),
		done:   make(chan struct{}),
	}

	go client.readPump()

	t.Cleanup(func() {
		client.Close()
	})

	return client
}

// readPump reads frames from the connection, answering pings itself so
// long-running tests never get disconnected.
func (c *WSClient) readPump() {
	defer close(c.frames)
	for {
		select {
		case <-c.done:
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				select {
				case <-c.done:
					return
				case c.errors <- err:
				}
				return
			}

			frameType, err := websocket.PeekType(data)
			if err != nil {
				c.errors <- err
				continue
			}

			if frameType == websocket.FrameTypePing {
				var ping websocket.PingFrame
				if json.Unmarshal(data, &ping) == nil {
					c.Send(websocket.PongFrame{Type: websocket.FrameTypePong, Ts: ping.Ts})
				}
				continue
			}

			if frameType == websocket.FrameTypeLCURequest {
				c.lcuMu.RLock()
				responder := c.onLCU
				c.lcuMu.RUnlock()
				if responder != nil {
					var req websocket.LCURequestFrame
					if json.Unmarshal(data, &req) == nil {
						status, body := responder(req.Method, req.Path)
						c.Send(websocket.LCUResponseFrame{
							Type:   websocket.FrameTypeLCUResponse,
							ID:     req.ID,
							Status: status,
							Body:   body,
						})
					}
					continue
				}
			}

			select {
			case c.frames <- &Frame{Type: frameType, Raw: data}:
			case <-c.done:
				return
			}
		}
	}
}

// Close closes the WebSocket connection gracefully
func (c *WSClient) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	select {
	case <-c.done:
		return
	default:
		close(c.done)
		c.conn.WriteMessage(gorillaWS.CloseMessage, gorillaWS.FormatCloseMessage(gorillaWS.CloseNormalClosure, ""))
		c.conn.Close()
	}
}

// Send marshals and writes one frame
func (c *WSClient) Send(v interface{}) {
	c.t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		c.t.Fatalf("failed to marshal frame: %v", err)
	}

	c.mu.Lock()
	err = c.conn.WriteMessage(gorillaWS.TextMessage, data)
	c.mu.Unlock()

	if err != nil {
		c.t.Fatalf("failed to send frame: %v", err)
	}
}

// Identify sends the identify frame and waits for the ack
func (c *WSClient) Identify(summonerName, token string) *websocket.IdentifiedFrame {
	c.t.Helper()

	c.Send(websocket.IdentifyFrame{
		Type:         websocket.FrameTypeIdentify,
		SummonerName: summonerName,
		Token:        token,
	})

	frame := c.ExpectFrame(websocket.FrameTypeIdentified, 5*time.Second)
	var ack websocket.IdentifiedFrame
	frame.Decode(c.t, &ack)
	return &ack
}

// JoinQueue sends a queue_join frame
func (c *WSClient) JoinQueue(primary, secondary string) {
	c.Send(websocket.QueueJoinFrame{
		Type:          websocket.FrameTypeQueueJoin,
		PrimaryLane:   primary,
		SecondaryLane: secondary,
	})
}

// LeaveQueue sends a queue_leave frame
func (c *WSClient) LeaveQueue() {
	c.Send(map[string]string{"type": string(websocket.FrameTypeQueueLeave)})
}

// Accept sends an accept_match frame
func (c *WSClient) Accept(matchID uuid.UUID) {
	c.Send(websocket.PlayerActionFrame{Type: websocket.FrameTypeAcceptMatch, MatchID: matchID})
}

// Decline sends a decline_match frame
func (c *WSClient) Decline(matchID uuid.UUID) {
	c.Send(websocket.PlayerActionFrame{Type: websocket.FrameTypeDeclineMatch, MatchID: matchID})
}

// DraftAction sends a draft_action frame for the given schedule index
func (c *WSClient) DraftAction(matchID uuid.UUID, index, championID int, championName string) {
	c.Send(websocket.PlayerActionFrame{
		Type:         websocket.FrameTypeDraftAction,
		MatchID:      matchID,
		Index:        &index,
		ChampionID:   &championID,
		ChampionName: championName,
	})
}

// DraftEdit sends a draft_edit frame
func (c *WSClient) DraftEdit(matchID uuid.UUID, index, championID int, championName string) {
	c.Send(websocket.PlayerActionFrame{
		Type:         websocket.FrameTypeDraftEdit,
		MatchID:      matchID,
		Index:        &index,
		ChampionID:   &championID,
		ChampionName: championName,
	})
}

// DraftConfirm sends a draft_confirm frame
func (c *WSClient) DraftConfirm(matchID uuid.UUID) {
	c.Send(websocket.PlayerActionFrame{Type: websocket.FrameTypeDraftConfirm, MatchID: matchID})
}

// Vote sends a vote_for_match frame
func (c *WSClient) Vote(matchID uuid.UUID, gameID string) {
	c.Send(websocket.PlayerActionFrame{
		Type:      websocket.FrameTypeVoteForMatch,
		MatchID:   matchID,
		LcuGameID: gameID,
	})
}

// Spectate sends a spectate frame
func (c *WSClient) Spectate(matchID uuid.UUID) {
	c.Send(websocket.PlayerActionFrame{Type: websocket.FrameTypeSpectate, MatchID: matchID})
}

// Mute sends a mute_spectator frame targeting another viewer
func (c *WSClient) Mute(matchID uuid.UUID, target string) {
	c.Send(websocket.PlayerActionFrame{Type: websocket.FrameTypeMuteSpectator, MatchID: matchID, Target: target})
}

// ExpectFrame waits for a frame of the specified type, skipping others
func (c *WSClient) ExpectFrame(frameType websocket.FrameType, timeout time.Duration) *Frame {
	c.t.Helper()

	deadline := time.After(timeout)
	for {
		select {
		case frame := <-c.frames:
			if frame == nil {
				c.t.Fatalf("connection closed while waiting for %s", frameType)
			}
			if frame.Type == frameType {
				return frame
			}
			// Skip other frame types (queue updates, spectator counts)
		case err := <-c.errors:
			c.t.Fatalf("error while waiting for %s: %v", frameType, err)
		case <-deadline:
			c.t.Fatalf("timeout waiting for frame type %s", frameType)
		}
	}
}

// ExpectError waits for an error frame and asserts its code
func (c *WSClient) ExpectError(code string, timeout time.Duration) *websocket.ErrorFrame {
	c.t.Helper()

	frame := c.ExpectFrame(websocket.FrameTypeError, timeout)
	var ef websocket.ErrorFrame
	frame.Decode(c.t, &ef)
	if ef.Code != code {
		c.t.Fatalf("expected error code %s, got %s (%s)", code, ef.Code, ef.Message)
	}
	return &ef
}

// RespondToLCU installs a handler answering relayed LCU requests, the
// way the real desktop companion would. Without one, lcu_request frames
// land in the frame channel like any other push.
func (c *WSClient) RespondToLCU(fn LCUResponder) {
	c.lcuMu.Lock()
	c.onLCU = fn
	c.lcuMu.Unlock()
}

// ExpectSilence fails if a frame of the given type arrives within the
// window. Frames of other types are discarded.
func (c *WSClient) ExpectSilence(frameType websocket.FrameType, window time.Duration) {
	c.t.Helper()

	deadline := time.After(window)
	for {
		select {
		case frame := <-c.frames:
			if frame == nil {
				return
			}
			if frame.Type == frameType {
				c.t.Fatalf("expected no %s frame within %s, got one", frameType, window)
			}
		case <-deadline:
			return
		}
	}
}

// DrainFrames discards everything buffered so far
func (c *WSClient) DrainFrames() {
	for {
		select {
		case <-c.frames:
		default:
			return
		}
	}
}

// ExpectEvent waits for an event-envelope frame and decodes its payload
func (c *WSClient) ExpectEvent(frameType websocket.FrameType, timeout time.Duration, payload interface{}) *websocket.EventFrame {
	c.t.Helper()

	frame := c.ExpectFrame(frameType, timeout)
	var ev websocket.EventFrame
	frame.Decode(c.t, &ev)
	if payload != nil {
		if err := json.Unmarshal(ev.Payload, payload); err != nil {
			c.t.Fatalf("failed to decode %s payload: %v", frameType, err)
		}
	}
	return &ev
}
