package api

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/wolftrace/deaddrop/pkg/fanout"
	"github.com/wolftrace/deaddrop/pkg/log"
)

const wsWriteWait = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browser origins are already filtered by the CORS layer; the
	// upgrade itself accepts any origin so ops tooling can connect.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSubscriber adapts a websocket connection to the fanout contract.
// The stream serializes Send calls per subscriber, but Close can race a
// Send, so writes are guarded.
type wsSubscriber struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsSubscriber) Send(msg fanout.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	_ = w.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
	return w.conn.WriteJSON(msg)
}

func (w *wsSubscriber) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.Close()
}

// handleCaseboardWS streams the full-graph snapshot followed by every
// mutation, in order.
func (s *Server) handleCaseboardWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := &wsSubscriber{conn: conn}
	s.engine.Store.SubscribeCaseboard(sub)
	log.WithStream("caseboard").Debug().Str("remote", r.RemoteAddr).Msg("Subscriber connected")

	// Reads are discarded; the read pump only detects disconnect.
	go func() {
		defer s.engine.Store.UnsubscribeCaseboard(sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// handleAlertsWS streams published alerts
func (s *Server) handleAlertsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	sub := &wsSubscriber{conn: conn}
	s.engine.AlertStream.Subscribe(sub)
	log.WithStream("alerts").Debug().Str("remote", r.RemoteAddr).Msg("Subscriber connected")

	go func() {
		defer s.engine.AlertStream.Unsubscribe(sub)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}
