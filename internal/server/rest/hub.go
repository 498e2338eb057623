package rest

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/VolegzhaninaEM/stellar-burger-sub000/internal/model"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	maxMsgSize = 4 * 1024
)

// feedFrame is one wholesale feed message pushed to subscribers.
type feedFrame struct {
	Success    bool          `json:"success"`
	Message    string        `json:"message,omitempty"`
	Orders     []model.Order `json:"orders"`
	Total      int           `json:"total"`
	TotalToday int           `json:"totalToday"`
}

func marshalSnapshot(snap *model.FeedSnapshot) []byte {
	orders := snap.Orders
	if orders == nil {
		orders = []model.Order{}
	}
	data, _ := json.Marshal(feedFrame{
		Success:    true,
		Orders:     orders,
		Total:      snap.Total,
		TotalToday: snap.TotalToday,
	})
	return data
}

// subscriber is a single feed connection. A Nil userID marks the public feed.
type subscriber struct {
	userID uuid.UUID
	conn   *websocket.Conn
	send   chan []byte
}

// Hub tracks active feed subscribers and fans snapshots out to them.
type Hub struct {
	mu   sync.RWMutex
	subs map[*subscriber]struct{}
	log  *zap.Logger
}

// NewHub constructs an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{subs: make(map[*subscriber]struct{}), log: log}
}

func (h *Hub) register(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.subs[s] = struct{}{}
}

func (h *Hub) unregister(s *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.send)
	}
}

// BroadcastPublic pushes a snapshot to every public subscriber.
func (h *Hub) BroadcastPublic(snap *model.FeedSnapshot) {
	h.broadcast(uuid.Nil, snap)
}

// BroadcastUser pushes a snapshot to every connection of one account.
func (h *Hub) BroadcastUser(userID uuid.UUID, snap *model.FeedSnapshot) {
	h.broadcast(userID, snap)
}

func (h *Hub) broadcast(userID uuid.UUID, snap *model.FeedSnapshot) {
	data := marshalSnapshot(snap)
	h.mu.RLock()
	defer h.mu.RUnlock()
	for s := range h.subs {
		if s.userID != userID {
			continue
		}
		select {
		case s.send <- data:
		default:
			// slow client, drop the frame; the next broadcast supersedes it
		}
	}
}

// ConnectedUsers lists the distinct account IDs with a live personal feed.
func (h *Hub) ConnectedUsers() []uuid.UUID {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[uuid.UUID]struct{})
	var out []uuid.UUID
	for s := range h.subs {
		if s.userID == uuid.Nil {
			continue
		}
		if _, ok := seen[s.userID]; ok {
			continue
		}
		seen[s.userID] = struct{}{}
		out = append(out, s.userID)
	}
	return out
}

// Serve registers the connection, queues the initial snapshot and blocks
// until the peer disconnects.
func (h *Hub) Serve(conn *websocket.Conn, userID uuid.UUID, initial *model.FeedSnapshot) {
	s := &subscriber{
		userID: userID,
		conn:   conn,
		send:   make(chan []byte, 8),
	}
	if initial != nil {
		s.send <- marshalSnapshot(initial)
	}

	h.register(s)

	go h.writePump(s)
	h.readPump(s)
}

func (h *Hub) readPump(s *subscriber) {
	defer func() {
		h.unregister(s)
		s.conn.Close()
	}()

	s.conn.SetReadLimit(maxMsgSize)
	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	// the feed is one-way; inbound frames are drained until close
	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				h.log.Debug("feed read ended", zap.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(s *subscriber) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.conn.Close()
	}()

	for {
		select {
		case data, ok := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = s.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := s.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
