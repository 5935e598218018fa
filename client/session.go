package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/bookshelf/server/ws"
)

// ErrGaveUp is returned by Session.Run once every reconnect attempt failed.
var ErrGaveUp = errors.New("client: gave up reconnecting")

// Backoff is the reconnect schedule. Attempt n waits Base*Factor^n,
// capped at Max.
type Backoff struct {
	Base        time.Duration
	Factor      float64
	Max         time.Duration
	MaxAttempts int
}

func DefaultBackoff() Backoff {
	return Backoff{
		Base:        500 * time.Millisecond,
		Factor:      2,
		Max:         30 * time.Second,
		MaxAttempts: 8,
	}
}

func (b Backoff) Delay(attempt int) time.Duration {
	d := float64(b.Base)
	for i := 0; i < attempt; i++ {
		d *= b.Factor
		if d >= float64(b.Max) {
			return b.Max
		}
	}
	return time.Duration(d)
}

const defaultHeartbeatInterval = 30 * time.Second

type SessionConfig struct {
	// URL of the socket endpoint, e.g. "wss://bookshelf.example/ws".
	URL   string
	Token string

	Dialer            *websocket.Dialer
	HeartbeatInterval time.Duration
	Backoff           Backoff

	// OnResync runs after every reconnect, once the rooms are re-joined.
	// Pushes sent while the socket was down are lost, so this is where
	// the unread count and open book views are re-fetched.
	OnResync func(ctx context.Context) error

	Log *zap.Logger
}

type roomRequest struct {
	op   string
	data any
}

// Session keeps one socket open, feeds every frame to a Dispatcher and
// restores room memberships after a reconnect.
type Session struct {
	cfg        SessionConfig
	dispatcher *Dispatcher
	log        *zap.Logger

	mu    sync.Mutex
	conn  *websocket.Conn
	rooms map[string]roomRequest

	writeMu sync.Mutex
}

func NewSession(cfg SessionConfig, dispatcher *Dispatcher) *Session {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = defaultHeartbeatInterval
	}
	if cfg.Backoff.MaxAttempts <= 0 {
		cfg.Backoff = DefaultBackoff()
	}
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Session{
		cfg:        cfg,
		dispatcher: dispatcher,
		log:        log.Named("session"),
		rooms:      make(map[string]roomRequest),
	}
}

// Run connects and serves until ctx ends or reconnecting fails
// Backoff.MaxAttempts times in a row.
func (s *Session) Run(ctx context.Context) error {
	connected := false
	failures := 0

	for {
		conn, err := s.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			failures++
			if failures >= s.cfg.Backoff.MaxAttempts {
				return fmt.Errorf("%w after %d attempts: %v", ErrGaveUp, failures, err)
			}

			delay := s.cfg.Backoff.Delay(failures - 1)
			s.log.Info("dial failed, retrying", zap.Int("attempt", failures), zap.Duration("delay", delay), zap.Error(err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
			continue
		}
		failures = 0

		if err := s.attach(conn); err != nil {
			s.log.Warn("rejoin failed", zap.Error(err))
		}
		if connected && s.cfg.OnResync != nil {
			if err := s.cfg.OnResync(ctx); err != nil {
				s.log.Warn("resync failed", zap.Error(err))
			}
		}
		connected = true

		err = s.serve(ctx, conn)
		s.detach(conn)

		if ctx.Err() != nil {
			return ctx.Err()
		}
		s.log.Info("connection lost", zap.Error(err))
	}
}

func (s *Session) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(s.cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("parse url: %w", err)
	}
	q := u.Query()
	q.Set("token", s.cfg.Token)
	u.RawQuery = q.Encode()

	conn, resp, err := s.cfg.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial: %s: %w", resp.Status, err)
		}
		return nil, fmt.Errorf("dial: %w", err)
	}
	return conn, nil
}

// attach makes conn current and re-sends every held room.
func (s *Session) attach(conn *websocket.Conn) error {
	s.mu.Lock()
	s.conn = conn
	requests := make([]roomRequest, 0, len(s.rooms))
	for _, r := range s.rooms {
		requests = append(requests, r)
	}
	s.mu.Unlock()

	var errs []error
	for _, r := range requests {
		if err := s.write(conn, r.op, r.data); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Session) detach(conn *websocket.Conn) {
	s.mu.Lock()
	if s.conn == conn {
		s.conn = nil
	}
	s.mu.Unlock()
	conn.Close()
}

func (s *Session) serve(ctx context.Context, conn *websocket.Conn) error {
	done := make(chan struct{})
	defer close(done)

	go func() {
		ticker := time.NewTicker(s.cfg.HeartbeatInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				conn.Close()
				return
			case <-ticker.C:
				if err := s.write(conn, ws.OpHeartbeat, nil); err != nil {
					conn.Close()
					return
				}
			}
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		ev, _, err := Decode(data)
		if err != nil {
			s.log.Debug("dropping frame", zap.Error(err))
			continue
		}
		s.dispatcher.Dispatch(ev)
	}
}

func (s *Session) write(conn *websocket.Conn, op string, data any) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteJSON(ws.Event{Op: op, Data: data})
}

// hold records a room and sends the join if a socket is open. Without one
// the join goes out on the next connect.
func (s *Session) hold(room string, req roomRequest) error {
	s.mu.Lock()
	s.rooms[room] = req
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return s.write(conn, req.op, req.data)
}

func (s *Session) release(room string, req roomRequest) error {
	s.mu.Lock()
	delete(s.rooms, room)
	conn := s.conn
	s.mu.Unlock()

	if conn == nil {
		return nil
	}
	return s.write(conn, req.op, req.data)
}

func (s *Session) JoinUserRoom(userID string) error {
	return s.hold(ws.UserRoom(userID), roomRequest{ws.OpJoinUserRoom, map[string]string{"userId": userID}})
}

func (s *Session) JoinBookRoom(bookID string) error {
	return s.hold(ws.BookRoom(bookID), roomRequest{ws.OpJoinBookRoom, map[string]string{"bookId": bookID}})
}

func (s *Session) LeaveBookRoom(bookID string) error {
	return s.release(ws.BookRoom(bookID), roomRequest{ws.OpLeaveBookRoom, map[string]string{"bookId": bookID}})
}

func (s *Session) JoinAdminRoom() error {
	return s.hold(ws.AdminRoom, roomRequest{ws.OpJoinAdminRoom, nil})
}

func (s *Session) LeaveAdminRoom() error {
	return s.release(ws.AdminRoom, roomRequest{ws.OpLeaveAdminRoom, nil})
}

// Rooms lists the rooms this session holds.
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.rooms))
	for room := range s.rooms {
		out = append(out, room)
	}
	return out
}
