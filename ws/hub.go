package ws

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/bookshelf/server/pkg/metrics"
)

// EventPublisher is what services use to push events. Services never see
// the Hub itself, so tests can record published events instead.
type EventPublisher interface {
	Publish(room string, event Event)
}

// Backplane forwards published events to every server process, including
// this one. Delivery happens when the process receives its own message.
type Backplane interface {
	Publish(ctx context.Context, room string, event Event) error
}

const backplanePublishTimeout = 2 * time.Second

// Hub owns the live connections and the room registry.
//
// Run serializes register/unregister; Deliver only takes the read lock so
// publishing never waits on another connection.
type Hub struct {
	clients map[string]*Client // connID -> client
	mu      sync.RWMutex

	rooms *RoomRegistry

	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	seq atomic.Int64

	backplane  Backplane
	authorizer RoomAuthorizer
	metrics    *metrics.Metrics
	log        *zap.Logger
}

func NewHub(authorizer RoomAuthorizer, m *metrics.Metrics, log *zap.Logger) *Hub {
	if log == nil {
		log = zap.NewNop()
	}
	return &Hub{
		clients:    make(map[string]*Client),
		rooms:      NewRoomRegistry(),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		authorizer: authorizer,
		metrics:    m,
		log:        log.Named("ws"),
	}
}

// UseBackplane routes Publish through b. Call before Run.
func (h *Hub) UseBackplane(b Backplane) {
	h.backplane = b
}

// Rooms exposes the registry, mainly for tests and diagnostics.
func (h *Hub) Rooms() *RoomRegistry {
	return h.rooms
}

// Run is the hub's event loop; main starts it with `go hub.Run()`.
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.addClient(client)
		case client := <-h.unregister:
			h.removeClient(client)
		case <-h.done:
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	h.log.Debug("client connected",
		zap.String("conn", client.id), zap.String("user", client.identity.UserID), zap.Int("connections", total))
}

// removeClient runs once per connection: the map lookup guards against
// the read pump and a slow-consumer drop both unregistering.
func (h *Hub) removeClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	h.mu.Unlock()

	left := h.rooms.RemoveConnection(client.id)
	h.metrics.ConnectionClosed()
	h.metrics.SetRoomMemberships(h.rooms.Memberships())
	h.log.Debug("client disconnected",
		zap.String("conn", client.id), zap.String("user", client.identity.UserID), zap.Strings("rooms", left))
}

// requestUnregister never blocks past shutdown.
func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) requestRegister(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Publish sends event to every connection in room, fire and forget.
// With a backplane the event goes through Redis so every process delivers
// it; if Redis is unreachable it is delivered locally instead.
func (h *Hub) Publish(room string, event Event) {
	if h.backplane != nil {
		ctx, cancel := context.WithTimeout(context.Background(), backplanePublishTimeout)
		err := h.backplane.Publish(ctx, room, event)
		cancel()
		if err == nil {
			return
		}
		h.metrics.EventDropped(metrics.DropBackplane)
		h.log.Warn("backplane publish failed, delivering locally",
			zap.String("room", room), zap.String("op", event.Op), zap.Error(err))
	}
	h.Deliver(room, event)
}

// Deliver fans event out to this process's members of room. The payload is
// marshaled once; a member whose send buffer is full is disconnected.
func (h *Hub) Deliver(room string, event Event) {
	members := h.rooms.Members(room)
	if len(members) == 0 {
		h.metrics.EventDropped(metrics.DropNoMembers)
		return
	}

	event.Seq = h.seq.Add(1)
	data, err := json.Marshal(event)
	if err != nil {
		h.metrics.EventDropped(metrics.DropMarshal)
		h.log.Error("failed to marshal event", zap.String("op", event.Op), zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()

	for _, connID := range members {
		client, ok := h.clients[connID]
		if !ok {
			continue
		}
		select {
		case client.send <- data:
		default:
			h.metrics.EventDropped(metrics.DropSlowConsumer)
			h.log.Warn("send buffer full, dropping connection",
				zap.String("conn", client.id), zap.String("user", client.identity.UserID))
			go h.requestUnregister(client)
		}
	}
	h.metrics.EventPublished(event.Op)
}

// sendTo queues data for one connection. The clients map check under the
// read lock makes this safe against a concurrent close of client.send.
func (h *Hub) sendTo(client *Client, data []byte) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if _, ok := h.clients[client.id]; !ok {
		return false
	}
	select {
	case client.send <- data:
		return true
	default:
		h.metrics.EventDropped(metrics.DropSlowConsumer)
		go h.requestUnregister(client)
		return false
	}
}

// joinRoom adds the membership only while the client is registered, so a
// join racing a disconnect cannot leave a stale membership behind.
func (h *Hub) joinRoom(client *Client, room string) {
	h.mu.RLock()
	_, live := h.clients[client.id]
	if live && h.rooms.Join(client.id, room) {
		h.metrics.SetRoomMemberships(h.rooms.Memberships())
	}
	h.mu.RUnlock()
}

// ConnectionCount is the number of live sockets on this process.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Shutdown closes every connection and stops Run.
func (h *Hub) Shutdown() {
	h.stopOnce.Do(func() {
		close(h.done)

		h.mu.Lock()
		for id, client := range h.clients {
			close(client.send)
			h.rooms.RemoveConnection(id)
			h.metrics.ConnectionClosed()
		}
		h.clients = make(map[string]*Client)
		h.mu.Unlock()

		h.metrics.SetRoomMemberships(0)
		h.log.Info("hub shut down, all connections closed")
	})
}
