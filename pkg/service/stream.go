package service

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/miniheartx/heartx/pkg/logger"
	"github.com/miniheartx/heartx/pkg/session"
)

const (
	streamBuffer     = 32
	streamWriteWait  = 10 * time.Second
	streamPingPeriod = 30 * time.Second
)

// hub fans new entries out to every connected /api/stream client.
type hub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*streamClient]struct{}
	closed  bool
}

type streamClient struct {
	conn *websocket.Conn
	send chan session.Entry
	done chan struct{}
	once sync.Once
}

func (c *streamClient) stop() {
	c.once.Do(func() { close(c.done) })
}

func newHub(allowedOrigins []string) *hub {
	return &hub{
		clients: make(map[*streamClient]struct{}),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || originAllowed(allowedOrigins, origin)
			},
		},
	}
}

func (h *hub) add(c *streamClient) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[c] = struct{}{}
	return true
}

func (h *hub) remove(c *streamClient) {
	h.mu.Lock()
	delete(h.clients, c)
	h.mu.Unlock()
}

func (h *hub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// broadcast never blocks; a client that cannot keep up misses entries.
func (h *hub) broadcast(e session.Entry) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		select {
		case c.send <- e:
		default:
			logger.DebugCF("service", "Stream client lagging, entry dropped", map[string]interface{}{
				"entry_id": e.ID,
			})
		}
	}
}

func (h *hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for c := range h.clients {
		c.stop()
	}
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.hub.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		return
	}
	defer conn.Close()

	c := &streamClient{
		conn: conn,
		send: make(chan session.Entry, streamBuffer),
		done: make(chan struct{}),
	}
	if !s.hub.add(c) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		return
	}
	defer s.hub.remove(c)
	logger.DebugCF("service", "Stream client connected", map[string]interface{}{"remote": r.RemoteAddr})

	// Clients never send anything meaningful; reading surfaces their close.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		defer c.stop()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ping := time.NewTicker(streamPingPeriod)
	defer ping.Stop()

	for {
		select {
		case e := <-c.send:
			_ = conn.SetWriteDeadline(time.Now().Add(streamWriteWait))
			if err := conn.WriteJSON(e); err != nil {
				c.stop()
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteWait)); err != nil {
				c.stop()
			}
		case <-c.done:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			conn.Close()
			<-readDone
			return
		}
	}
}
