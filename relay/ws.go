package relay

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	maxMessageSize = 1 << 16
	sendQueue      = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// Peers are native clients and browsers on any origin.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Peer is one relay websocket. Its room and seat are guarded by the hub.
type Peer struct {
	ID string

	hub  *Hub
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once

	room *Room
	seat int
}

func newPeer(hub *Hub, conn *websocket.Conn) *Peer {
	return &Peer{
		ID:   uuid.NewString(),
		hub:  hub,
		conn: conn,
		send: make(chan []byte, sendQueue),
		done: make(chan struct{}),
		seat: -1,
	}
}

// ServeWS upgrades the request and runs the peer until its socket closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "err", err)
		return
	}

	p := newPeer(h, conn)
	h.log.Debug("peer connected", "peer", p.ID, "remote", r.RemoteAddr)

	go p.writePump()
	p.readPump()
}

// deliver queues data for the peer. A peer that cannot keep up is dropped.
func (p *Peer) deliver(data []byte) {
	select {
	case <-p.done:
	case p.send <- data:
	default:
		p.hub.log.Warn("send queue full, closing peer", "peer", p.ID)
		p.close()
	}
}

func (p *Peer) close() {
	p.once.Do(func() {
		close(p.done)
		_ = p.conn.Close()
	})
}

func (p *Peer) sendError(err error) {
	p.deliver(encode(Envelope{Type: "error", Message: err.Error()}))
}

func (p *Peer) readPump() {
	defer func() {
		p.hub.Leave(p)
		p.close()
		p.hub.log.Debug("peer disconnected", "peer", p.ID)
	}()

	p.conn.SetReadLimit(maxMessageSize)
	_ = p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				p.hub.log.Debug("read failed", "peer", p.ID, "err", err)
			}
			return
		}
		if err := p.handle(data); err != nil {
			p.hub.log.Debug("rejected message", "peer", p.ID, "err", err)
			p.sendError(err)
		}
	}
}

func (p *Peer) handle(data []byte) error {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	switch env.Type {
	case "join":
		_, err := p.hub.Join(p, env.RoomID)
		return err
	case "offer", "answer", "ice":
		return p.hub.Forward(p, data)
	case "leave":
		p.hub.Leave(p)
		return nil
	default:
		return ErrUnknownMessage
	}
}

func (p *Peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.close()
	}()

	for {
		select {
		case <-p.done:
			return
		case data := <-p.send:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
