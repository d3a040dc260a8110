package websocket

import (
	"encoding/json"
	"sync"
)

// RPCResult is the outcome of one relayed LCU request.
type RPCResult struct {
	Status int
	Body   json.RawMessage
	Err    error
}

// pendingTable correlates in-flight LCU requests with their responses,
// whether the response arrives on a local connection or over the bus.
type pendingTable struct {
	mu sync.Mutex
	m  map[string]chan RPCResult
}

func newPendingTable() *pendingTable {
	return &pendingTable{m: make(map[string]chan RPCResult)}
}

func (p *pendingTable) add(id string) chan RPCResult {
	ch := make(chan RPCResult, 1)
	p.mu.Lock()
	p.m[id] = ch
	p.mu.Unlock()
	return ch
}

func (p *pendingTable) remove(id string) {
	p.mu.Lock()
	delete(p.m, id)
	p.mu.Unlock()
}

// resolve completes a pending request. Late or unknown responses are dropped.
func (p *pendingTable) resolve(id string, res RPCResult) bool {
	p.mu.Lock()
	ch, ok := p.m[id]
	if ok {
		delete(p.m, id)
	}
	p.mu.Unlock()
	if !ok {
		return false
	}
	ch <- res
	return true
}

// failForConnection aborts every request waiting on the given connection.
func (p *pendingTable) failForConnection(ids []string, err error) {
	for _, id := range ids {
		p.resolve(id, RPCResult{Err: err})
	}
}
