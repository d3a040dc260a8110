package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

// wsFrame is the loose client-side view of a server frame: push frames
// carry event/payload, error frames carry code/message.
type wsFrame struct {
	Type    string          `json:"type"`
	Event   string          `json:"event,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Code    string          `json:"code,omitempty"`
	Message string          `json:"message,omitempty"`
}

// wsPlayer is one simulated gateway connection. It answers pings on its
// own; everything else lands in the frames channel.
type wsPlayer struct {
	name   string
	conn   *websocket.Conn
	frames chan wsFrame
	closed chan struct{}
}

func dialPlayer(apiURL, name string) (*wsPlayer, error) {
	wsURL := strings.Replace(apiURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)

	conn, _, err := websocket.DefaultDialer.Dial(wsURL+"/api/ws", nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", name, err)
	}
	p := &wsPlayer{
		name:   name,
		conn:   conn,
		frames: make(chan wsFrame, 256),
		closed: make(chan struct{}),
	}
	if err := p.send(map[string]any{"type": "identify", "summonerName": name}); err != nil {
		conn.Close()
		return nil, err
	}
	go p.readLoop()

	if _, err := p.expect(10*time.Second, "identified"); err != nil {
		p.close()
		return nil, fmt.Errorf("%s: no identified ack: %w", name, err)
	}
	return p, nil
}

func (p *wsPlayer) readLoop() {
	defer close(p.closed)
	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			return
		}
		var f wsFrame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		if f.Type == "ping" {
			p.send(map[string]any{"type": "pong", "ts": time.Now().UnixMilli()})
			continue
		}
		select {
		case p.frames <- f:
		default:
			// Slow consumer; drop the oldest rather than block the pump.
			select {
			case <-p.frames:
			default:
			}
			p.frames <- f
		}
	}
}

func (p *wsPlayer) send(v any) error {
	return p.conn.WriteJSON(v)
}

// expect consumes frames until one of the wanted types shows up.
func (p *wsPlayer) expect(timeout time.Duration, types ...string) (wsFrame, error) {
	deadline := time.After(timeout)
	for {
		select {
		case f := <-p.frames:
			for _, t := range types {
				if f.Type == t {
					return f, nil
				}
			}
		case <-p.closed:
			return wsFrame{}, fmt.Errorf("%s: connection closed", p.name)
		case <-deadline:
			return wsFrame{}, fmt.Errorf("%s: timed out waiting for %v", p.name, types)
		}
	}
}

func (p *wsPlayer) close() {
	p.conn.Close()
}
