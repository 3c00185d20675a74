package main

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/pcdogyu/market-dashboard/internal/memstore"
)

var wsUpgrader = websocket.Upgrader{
	CheckOrigin:       func(*http.Request) bool { return true },
	EnableCompression: true,
}

type frameMsg struct {
	Type  string         `json:"type"`
	Frame memstore.Frame `json:"frame"`
}

type controlMsg struct {
	Type string `json:"type"`
}

type wsClient struct {
	conn *websocket.Conn
	out  chan any
	done chan struct{}
}

// hub fans frames out to browser clients. It is a collector renderer.
type hub struct {
	mu      sync.RWMutex
	clients map[*wsClient]struct{}
	last    *memstore.Frame
	log     *slog.Logger
}

func newHub(logger *slog.Logger) *hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &hub{
		clients: make(map[*wsClient]struct{}),
		log:     logger.With("component", "ws"),
	}
}

// Render stores the frame for late joiners and broadcasts it. Slow clients
// miss frames instead of blocking the loop.
func (h *hub) Render(f memstore.Frame) {
	msg := frameMsg{Type: "frame", Frame: f}
	h.mu.Lock()
	h.last = &f
	h.mu.Unlock()
	h.broadcast(msg)
}

func (h *hub) broadcast(v any) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.out <- v:
		default:
		}
	}
}

func (h *hub) clientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *hub) serveWS(onRefresh func()) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := wsUpgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		cl := &wsClient{conn: conn, out: make(chan any, 256), done: make(chan struct{})}
		h.mu.Lock()
		h.clients[cl] = struct{}{}
		last := h.last
		h.mu.Unlock()
		h.log.Debug("client connected", "remote", r.RemoteAddr)

		defer func() {
			h.mu.Lock()
			delete(h.clients, cl)
			h.mu.Unlock()
			close(cl.done)
			h.log.Debug("client disconnected", "remote", r.RemoteAddr)
		}()

		go func() {
			ping := time.NewTicker(45 * time.Second)
			defer ping.Stop()
			for {
				select {
				case v := <-cl.out:
					_ = conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
					if err := conn.WriteJSON(v); err != nil {
						return
					}
				case <-ping.C:
					_ = conn.WriteMessage(websocket.PingMessage, nil)
				case <-cl.done:
					return
				}
			}
		}()

		if last != nil {
			select {
			case cl.out <- frameMsg{Type: "frame", Frame: *last}:
			default:
			}
		}

		_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		conn.SetPongHandler(func(string) error {
			_ = conn.SetReadDeadline(time.Now().Add(90 * time.Second))
			return nil
		})
		for {
			mt, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if mt != websocket.TextMessage {
				continue
			}
			var ctrl controlMsg
			if err := json.Unmarshal(data, &ctrl); err == nil && ctrl.Type == "refresh" && onRefresh != nil {
				onRefresh()
			}
		}
	}
}
