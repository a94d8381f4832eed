package relay

import (
	"encoding/json"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"
)

var (
	ErrRoomFull       = errors.New("room full")
	ErrNotJoined      = errors.New("not joined to a room")
	ErrAlreadyJoined  = errors.New("already joined to a room")
	ErrMissingRoom    = errors.New("missing roomId")
	ErrUnknownMessage = errors.New("unknown message type")
)

// Seats per room.
const Seats = 2

// Envelope is the part of a relay message the relay reads. Setup payloads
// (sdp, candidate) are forwarded untouched.
type Envelope struct {
	Type     string `json:"type"`
	RoomID   string `json:"roomId,omitempty"`
	PlayerID *int   `json:"playerId,omitempty"`
	Message  string `json:"message,omitempty"`
}

// Room pairs up to two peers.
type Room struct {
	ID      string
	Seats   [Seats]*Peer
	Created time.Time
}

func (r *Room) count() int {
	n := 0
	for _, p := range r.Seats {
		if p != nil {
			n++
		}
	}
	return n
}

// RoomInfo describes a room for the room listing.
type RoomInfo struct {
	ID        string `json:"id"`
	PeerCount int    `json:"peerCount"`
	Created   int64  `json:"created"`
}

// Hub tracks rooms and forwards messages between the two seats of a room.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*Room
	log   *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(log *slog.Logger) *Hub {
	if log == nil {
		log = slog.Default()
	}
	return &Hub{
		rooms: make(map[string]*Room),
		log:   log,
	}
}

// Join seats p in the first free seat of roomID, creating the room if
// needed. When the room fills, both seats receive start with their seat.
func (h *Hub) Join(p *Peer, roomID string) (int, error) {
	if roomID == "" {
		return -1, ErrMissingRoom
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if p.room != nil {
		return -1, ErrAlreadyJoined
	}

	room, ok := h.rooms[roomID]
	if !ok {
		room = &Room{ID: roomID, Created: time.Now()}
		h.rooms[roomID] = room
		h.log.Info("created room", "room", roomID)
	}

	seat := -1
	for i, occupant := range room.Seats {
		if occupant == nil {
			seat = i
			break
		}
	}
	if seat < 0 {
		return -1, ErrRoomFull
	}

	room.Seats[seat] = p
	p.room = room
	p.seat = seat
	h.log.Info("peer joined", "room", roomID, "peer", p.ID, "seat", seat)

	if room.count() == Seats {
		for i, occupant := range room.Seats {
			occupant.deliver(encode(Envelope{Type: "start", PlayerID: &i}))
		}
	}
	return seat, nil
}

// Forward sends data unchanged to the other seat of p's room. A message for
// an empty seat is dropped.
func (h *Hub) Forward(p *Peer, data []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if p.room == nil {
		return ErrNotJoined
	}
	other := p.room.Seats[1-p.seat]
	if other == nil {
		h.log.Debug("no opponent to forward to", "room", p.room.ID, "peer", p.ID)
		return nil
	}
	other.deliver(data)
	return nil
}

// Leave frees p's seat, tells the other seat, and drops the room once empty.
func (h *Hub) Leave(p *Peer) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room := p.room
	if room == nil {
		return
	}
	room.Seats[p.seat] = nil
	p.room = nil
	h.log.Info("peer left", "room", room.ID, "peer", p.ID, "seat", p.seat)

	if other := room.Seats[1-p.seat]; other != nil {
		other.deliver(encode(Envelope{Type: "leave"}))
	}
	if room.count() == 0 {
		delete(h.rooms, room.ID)
		h.log.Info("removed empty room", "room", room.ID)
	}
}

// Rooms lists the active rooms, oldest first.
func (h *Hub) Rooms() []RoomInfo {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make([]RoomInfo, 0, len(h.rooms))
	for _, r := range h.rooms {
		out = append(out, RoomInfo{ID: r.ID, PeerCount: r.count(), Created: r.Created.Unix()})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Created != out[j].Created {
			return out[i].Created < out[j].Created
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// encode marshals a relay-generated envelope, which has no failing fields.
func encode(e Envelope) []byte {
	data, _ := json.Marshal(e)
	return data
}
