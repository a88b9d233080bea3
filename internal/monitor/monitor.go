// Package monitor serves a live packet feed over WebSocket and the session
// metrics over HTTP.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/1ureka/ucctl/internal/report"
	"github.com/1ureka/ucctl/internal/transport"
	"github.com/1ureka/ucctl/internal/util"
)

const (
	// ClientBufferSize is the number of records queued per viewer before it
	// is considered too slow and dropped.
	ClientBufferSize = 256

	writeWait = 5 * time.Second
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Server broadcasts every event to the connected WebSocket viewers.
type Server struct {
	addr     string
	metrics  http.Handler
	listener net.Listener
	http     *http.Server

	mu      sync.Mutex
	nextID  uint64
	clients map[uint64]*viewer
	closed  bool
	wg      sync.WaitGroup
}

type viewer struct {
	conn *websocket.Conn
	send chan []byte
}

// New creates a server for addr. metrics, when non-nil, is mounted on
// /metrics.
func New(addr string, metrics http.Handler) *Server {
	return &Server{
		addr:    addr,
		metrics: metrics,
		clients: make(map[uint64]*viewer),
	}
}

// Start begins listening and returns the bound address.
func (s *Server) Start() (net.Addr, error) {
	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return nil, fmt.Errorf("monitor: listen %s: %w", s.addr, err)
	}
	s.listener = listener
	s.http = &http.Server{Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}

	go func() {
		if err := s.http.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			util.LogWarning("monitor stopped: %v", err)
		}
	}()

	util.LogInfo("monitor listening on http://%s (/ws, /metrics)", listener.Addr())
	return listener.Addr(), nil
}

// Handler returns the mux serving /ws and /metrics.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	if s.metrics != nil {
		mux.Handle("/metrics", s.metrics)
	}
	return mux
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	v := &viewer{conn: conn, send: make(chan []byte, ClientBufferSize)}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		conn.Close()
		return
	}
	id := s.nextID
	s.nextID++
	s.wg.Add(2)
	s.clients[id] = v
	s.mu.Unlock()

	util.LogDebug("monitor viewer %d connected from %s", id, r.RemoteAddr)

	go s.writeLoop(id, v)
	go s.readLoop(id, v)
}

// writeLoop drains the viewer's buffer until it is closed by remove.
func (s *Server) writeLoop(id uint64, v *viewer) {
	defer s.wg.Done()
	defer v.conn.Close()

	for msg := range v.send {
		v.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := v.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
			s.remove(id)
			for range v.send {
			}
			return
		}
	}
	v.conn.SetWriteDeadline(time.Now().Add(writeWait))
	v.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// readLoop discards viewer input and notices when the viewer goes away.
func (s *Server) readLoop(id uint64, v *viewer) {
	defer s.wg.Done()
	for {
		if _, _, err := v.conn.ReadMessage(); err != nil {
			s.remove(id)
			return
		}
	}
}

// remove unregisters a viewer and closes its buffer. Safe to call twice.
func (s *Server) remove(id uint64) {
	s.mu.Lock()
	v, ok := s.clients[id]
	delete(s.clients, id)
	s.mu.Unlock()

	if ok {
		close(v.send)
		util.LogDebug("monitor viewer %d disconnected", id)
	}
}

// Observe is a transport.Observer. Viewers whose buffer is full are
// dropped rather than slowing the session down.
func (s *Server) Observe(e transport.Event) {
	msg, err := json.Marshal(report.View(e))
	if err != nil {
		return
	}

	var slow []uint64
	s.mu.Lock()
	for id, v := range s.clients {
		select {
		case v.send <- msg:
		default:
			slow = append(slow, id)
		}
	}
	s.mu.Unlock()

	for _, id := range slow {
		util.LogWarning("monitor viewer %d too slow, dropping", id)
		s.remove(id)
	}
}

// Viewers reports the number of connected viewers.
func (s *Server) Viewers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// Close stops the HTTP server and disconnects all viewers.
func (s *Server) Close() error {
	var err error
	if s.http != nil {
		ctx, cancel := context.WithTimeout(context.Background(), writeWait)
		err = s.http.Shutdown(ctx)
		cancel()
	}

	s.mu.Lock()
	s.closed = true
	ids := make([]uint64, 0, len(s.clients))
	for id := range s.clients {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.remove(id)
	}

	s.wg.Wait()
	return err
}
