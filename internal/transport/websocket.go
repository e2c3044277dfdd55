// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"sonify/internal/log"
)

// FeedbackPath is the HTTP path clients connect to.
const FeedbackPath = "/feedback"

const (
	broadcastQueue = 256
	writeTimeout   = time.Second
)

// WebSocketTransport broadcasts every payload it is given as JSON to all
// connected WebSocket clients.
type WebSocketTransport struct {
	addr      string
	upgrader  websocket.Upgrader
	clients   map[*websocket.Conn]struct{}
	clientsMu sync.Mutex
	broadcast chan any
	done      chan struct{}
	closeOnce sync.Once
	server    *http.Server
	listener  net.Listener
}

// NewWebSocketTransport creates a transport for addr. Call Start to begin
// listening, or mount Handler on an existing server.
func NewWebSocketTransport(addr string) *WebSocketTransport {
	wst := &WebSocketTransport{
		addr: addr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Local viewers are served from anywhere.
			},
		},
		clients:   make(map[*websocket.Conn]struct{}),
		broadcast: make(chan any, broadcastQueue),
		done:      make(chan struct{}),
	}

	go wst.handleBroadcasts()
	return wst
}

// Handler returns the HTTP handler serving FeedbackPath.
func (wst *WebSocketTransport) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc(FeedbackPath, wst.handleWebSocket)
	return mux
}

// Start binds the listen address and serves in the background. Bind
// errors are returned synchronously.
func (wst *WebSocketTransport) Start() error {
	ln, err := net.Listen("tcp", wst.addr)
	if err != nil {
		return fmt.Errorf("WebSocketTransport: listen on %s: %w", wst.addr, err)
	}
	wst.listener = ln
	wst.server = &http.Server{
		Handler:           wst.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		log.Infof("WebSocketTransport: Serving ws://%s%s", ln.Addr(), FeedbackPath)
		if err := wst.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Errorf("WebSocketTransport: Server error: %v", err)
		}
	}()
	return nil
}

// Addr returns the bound address once Start has succeeded.
func (wst *WebSocketTransport) Addr() net.Addr {
	if wst.listener == nil {
		return nil
	}
	return wst.listener.Addr()
}

// Clients returns the number of connected clients.
func (wst *WebSocketTransport) Clients() int {
	wst.clientsMu.Lock()
	defer wst.clientsMu.Unlock()
	return len(wst.clients)
}

func (wst *WebSocketTransport) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := wst.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warnf("WebSocketTransport: Upgrade error: %v", err)
		return
	}

	wst.clientsMu.Lock()
	wst.clients[conn] = struct{}{}
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	log.Infof("WebSocketTransport: Client connected, total: %d", total)

	// Clients never send anything meaningful; a read error means they left.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				wst.drop(conn)
				return
			}
		}
	}()
}

func (wst *WebSocketTransport) drop(conn *websocket.Conn) {
	wst.clientsMu.Lock()
	_, ok := wst.clients[conn]
	delete(wst.clients, conn)
	total := len(wst.clients)
	wst.clientsMu.Unlock()
	if ok {
		conn.Close()
		log.Infof("WebSocketTransport: Client disconnected, total: %d", total)
	}
}

func (wst *WebSocketTransport) handleBroadcasts() {
	for {
		select {
		case <-wst.done:
			return
		case data := <-wst.broadcast:
			msg, err := prepare(data)
			if err != nil {
				log.Warnf("WebSocketTransport: cannot encode payload: %v", err)
				continue
			}
			wst.clientsMu.Lock()
			for client := range wst.clients {
				client.SetWriteDeadline(time.Now().Add(writeTimeout))
				if err := client.WritePreparedMessage(msg); err != nil {
					log.Debugf("WebSocketTransport: Error sending to client: %v", err)
					client.Close()
					delete(wst.clients, client)
				}
			}
			wst.clientsMu.Unlock()
		}
	}
}

// prepare encodes data once so every client receives the same frame.
func prepare(data any) (*websocket.PreparedMessage, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}
	return websocket.NewPreparedMessage(websocket.TextMessage, raw)
}

// Send queues data for broadcast. When the queue is full the payload is
// dropped rather than blocking the publisher.
func (wst *WebSocketTransport) Send(data any) error {
	select {
	case <-wst.done:
		return fmt.Errorf("WebSocketTransport: closed")
	default:
	}
	select {
	case wst.broadcast <- data:
	default:
		log.Debugf("WebSocketTransport: broadcast queue full, dropping payload")
	}
	return nil
}

// Close disconnects every client and shuts the server down.
func (wst *WebSocketTransport) Close() error {
	var err error
	wst.closeOnce.Do(func() {
		log.Infof("WebSocketTransport: Closing server")
		close(wst.done)

		wst.clientsMu.Lock()
		for client := range wst.clients {
			client.Close()
		}
		wst.clients = make(map[*websocket.Conn]struct{})
		wst.clientsMu.Unlock()

		if wst.server != nil {
			err = wst.server.Close()
		}
	})
	return err
}

var _ Transport = (*WebSocketTransport)(nil)
