package relay

import (
	"encoding/json"
	"errors"
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

var (
	// ErrTooManyConnections is returned by Register when the configured
	// connection limit is reached.
	ErrTooManyConnections = errors.New("too many connections")

	// ErrConnectionClosed is returned by SendTo when the target connection
	// is unknown, dead, or too slow to keep up. The connection has already
	// been unregistered when this is returned.
	ErrConnectionClosed = errors.New("connection closed")
)

// ConnID identifies one registered connection.
type ConnID string

// Conn is the write half of a client connection. *websocket.Conn satisfies
// it; tests substitute their own implementations.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// client pairs a connection with its outbound queue. All writes to the
// connection go through writePump, so the registry's structural lock is
// never held for the duration of a socket write.
type client struct {
	id   ConnID
	conn Conn
	send chan []byte
	quit chan struct{} // closed by Unregister, tells the pump to stop
	done chan struct{} // closed when writePump exits
	once sync.Once
}

func (c *client) writePump() {
	defer func() {
		close(c.done)
		c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-c.quit:
			c.flush()
			return
		}
	}
}

// flush writes out whatever was queued before the shutdown signal, so
// events sent just ahead of an Unregister still reach the socket.
func (c *client) flush() {
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		default:
			return
		}
	}
}

// close signals the pump to shut down, exactly once. The send channel is
// never closed: a Broadcast snapshot or an in-flight SendTo may still hold
// this client, and a send on a closed channel would panic the process.
func (c *client) close() {
	c.once.Do(func() { close(c.quit) })
}

// Registry is the process-wide set of live client connections. Membership
// is guarded by a structural lock; delivery to individual connections is
// serialized per connection by its writePump, so a slow client never blocks
// the registry or other clients.
type Registry struct {
	mu         sync.RWMutex
	clients    map[ConnID]*client
	maxConns   int // 0 = unlimited
	sendBuffer int
}

func NewRegistry(maxConns, sendBuffer int) *Registry {
	if sendBuffer <= 0 {
		sendBuffer = 64
	}
	return &Registry{
		clients:    make(map[ConnID]*client),
		maxConns:   maxConns,
		sendBuffer: sendBuffer,
	}
}

// Register adds a newly-opened connection and starts its write pump.
func (r *Registry) Register(conn Conn) (ConnID, error) {
	c := &client{
		id:   ConnID(uuid.NewString()),
		conn: conn,
		send: make(chan []byte, r.sendBuffer),
		quit: make(chan struct{}),
		done: make(chan struct{}),
	}

	r.mu.Lock()
	if r.maxConns > 0 && len(r.clients) >= r.maxConns {
		r.mu.Unlock()
		return "", ErrTooManyConnections
	}
	r.clients[c.id] = c
	r.mu.Unlock()

	go c.writePump()
	return c.id, nil
}

// Unregister removes a connection and signals its pump to shut down.
// Removing an unknown or already-removed id is a no-op.
func (r *Registry) Unregister(id ConnID) {
	r.mu.Lock()
	c, ok := r.clients[id]
	if ok {
		delete(r.clients, id)
	}
	r.mu.Unlock()

	if ok {
		c.close()
	}
}

// SendTo serializes the event and queues it for the named connection. A
// dead or saturated connection is unregistered and ErrConnectionClosed
// returned; the failure never affects other connections.
func (r *Registry) SendTo(id ConnID, ev Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	r.mu.RLock()
	c, ok := r.clients[id]
	r.mu.RUnlock()
	if !ok {
		return ErrConnectionClosed
	}

	if !r.deliver(c, data) {
		r.Unregister(id)
		return ErrConnectionClosed
	}
	return nil
}

// Broadcast delivers the event to every registered connection. Membership
// is snapshotted first; connections that fail are collected and removed
// after the pass, so no recipient is skipped or hit twice.
func (r *Registry) Broadcast(ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Printf("broadcast marshal error: %v", err)
		return
	}

	r.mu.RLock()
	snapshot := make([]*client, 0, len(r.clients))
	for _, c := range r.clients {
		snapshot = append(snapshot, c)
	}
	r.mu.RUnlock()

	var dead []ConnID
	for _, c := range snapshot {
		if !r.deliver(c, data) {
			dead = append(dead, c.id)
		}
	}

	for _, id := range dead {
		log.Printf("ws client %s dropped during broadcast", id)
		r.Unregister(id)
	}
}

// deliver queues data without blocking. Returns false if the client has
// been unregistered, its pump has died, or its buffer is full.
func (r *Registry) deliver(c *client, data []byte) bool {
	select {
	case <-c.quit:
		return false
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- data:
		return true
	case <-c.quit:
		return false
	case <-c.done:
		return false
	default:
		log.Printf("ws client %s too slow, disconnecting", c.id)
		return false
	}
}

// ClientCount returns the number of registered connections.
func (r *Registry) ClientCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}
