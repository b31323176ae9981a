package api

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// GateEvent describes websocket payloads emitted as checkout assessments are
// recorded, feeding the compliance review dashboard.
type GateEvent struct {
	Type       string         `json:"type"`
	Reference  string         `json:"reference,omitempty"`
	Gate       string         `json:"gate,omitempty"`
	Score      int            `json:"score,omitempty"`
	TotalValue float64        `json:"total_value,omitempty"`
	Assessment *AssessmentDTO `json:"assessment,omitempty"`
	Message    string         `json:"message,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// wsClient wraps a websocket connection with write locking.
type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// GateNotifier keeps track of active websocket clients and broadcasts gate
// decisions as they happen.
type GateNotifier struct {
	mu         sync.Mutex
	clients    map[*wsClient]struct{}
	lastStatus *GateEvent
}

// NewGateNotifier constructs a notifier instance.
func NewGateNotifier() *GateNotifier {
	return &GateNotifier{clients: make(map[*wsClient]struct{})}
}

// Register attaches a websocket connection and returns a client handle. The
// most recent event is replayed so new dashboards start with current state.
func (n *GateNotifier) Register(conn *websocket.Conn) *wsClient {
	client := &wsClient{conn: conn}
	n.mu.Lock()
	n.clients[client] = struct{}{}
	status := n.lastStatus
	n.mu.Unlock()

	if status != nil {
		_ = client.writeJSON(*status)
	}
	return client
}

// Unregister removes the websocket client from the notifier and closes the socket.
func (n *GateNotifier) Unregister(client *wsClient) {
	if client == nil {
		return
	}
	n.mu.Lock()
	delete(n.clients, client)
	n.mu.Unlock()
	_ = client.conn.Close()
}

// Broadcast sends the supplied event to all registered websocket clients.
func (n *GateNotifier) Broadcast(event GateEvent) {
	event.Timestamp = time.Now().UTC()

	n.mu.Lock()
	if event.Type == "assessment" {
		snapshot := event
		snapshot.Assessment = nil
		n.lastStatus = &snapshot
	}

	for client := range n.clients {
		if err := client.writeJSON(event); err != nil {
			delete(n.clients, client)
			_ = client.conn.Close()
		}
	}
	n.mu.Unlock()
}

// LastStatus returns a copy of the most recent broadcast summary.
func (n *GateNotifier) LastStatus() *GateEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.lastStatus == nil {
		return nil
	}
	copy := *n.lastStatus
	return &copy
}

func (c *wsClient) writeJSON(payload interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return nil
	}
	c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return c.conn.WriteJSON(payload)
}
