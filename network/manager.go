package network

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"
)

const (
	writeWait    = 10 * time.Second
	inboundQueue = 256
	signalQueue  = 32
)

// Config configures a Manager.
type Config struct {
	RelayURL   string             // websocket URL of the relay, e.g. ws://host:8080/ws
	ICEServers []webrtc.ICEServer // DefaultICEServers when empty
	OnStatus   func(msg string)   // connection status for the presentation layer
}

// Manager runs one signaling session and owns the resulting peer connection.
// It implements the data channel the game talks through.
type Manager struct {
	cfg     Config
	dialer  *websocket.Dialer
	newPeer peerFactory

	mu      sync.Mutex
	state   State
	seat    int
	room    string
	conn    *websocket.Conn
	peer    peerConn
	ready   bool
	closing bool
	err     error

	// Owned by the read pump.
	remoteDescSet     bool
	pendingCandidates []webrtc.ICECandidateInit

	send     chan []byte
	inbound  chan []byte
	readyCh  chan struct{}
	done     chan struct{}
	closed   chan struct{}
	sockDone chan struct{}

	readyOnce  sync.Once
	doneOnce   sync.Once
	closedOnce sync.Once
	closeOnce  sync.Once
}

// NewManager creates a disconnected manager.
func NewManager(cfg Config) *Manager {
	if len(cfg.ICEServers) == 0 {
		cfg.ICEServers = DefaultICEServers()
	}
	return &Manager{
		cfg:      cfg,
		dialer:   websocket.DefaultDialer,
		newPeer:  newPionPeer,
		seat:     -1,
		send:     make(chan []byte, signalQueue),
		inbound:  make(chan []byte, inboundQueue),
		readyCh:  make(chan struct{}),
		done:     make(chan struct{}),
		closed:   make(chan struct{}),
		sockDone: make(chan struct{}),
	}
}

// Join connects to the relay and asks for a seat in room.
func (m *Manager) Join(ctx context.Context, room string) error {
	if room == "" {
		return errors.New("room must not be empty")
	}

	m.mu.Lock()
	if m.conn != nil || m.closing {
		m.mu.Unlock()
		return errors.New("manager already joined")
	}
	m.mu.Unlock()

	conn, _, err := m.dialer.DialContext(ctx, m.cfg.RelayURL, nil)
	if err != nil {
		return fmt.Errorf("dial relay %s: %w", m.cfg.RelayURL, err)
	}

	m.mu.Lock()
	m.conn = conn
	m.room = room
	m.state = StateJoined
	m.mu.Unlock()

	go m.writePump(conn)
	go m.readPump(conn)

	if err := m.sendSignal(&Signal{Type: SignalJoin, RoomID: room}); err != nil {
		return err
	}
	logger.Info("joined room", "room", room, "relay", m.cfg.RelayURL)
	m.status("Waiting for the second player...")
	return nil
}

// WaitReady blocks until the data channel is open and returns the seat.
func (m *Manager) WaitReady(ctx context.Context) (int, error) {
	select {
	case <-m.readyCh:
		return m.Seat(), nil
	case <-m.done:
		return -1, m.Err()
	case <-ctx.Done():
		return -1, ctx.Err()
	}
}

// Ready is closed when the data channel opens.
func (m *Manager) Ready() <-chan struct{} { return m.readyCh }

// Done is closed when the session fails before the channel opens, or on Close.
func (m *Manager) Done() <-chan struct{} { return m.done }

// Err returns the error that ended the session, if any.
func (m *Manager) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

func (m *Manager) Seat() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.seat
}

func (m *Manager) Room() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.room
}

func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Advance moves an open session between playing and ended. Other
// transitions belong to the handshake and are ignored.
func (m *Manager) Advance(next State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state.canAdvance(next) {
		m.state = next
	}
}

// Send implements the game data channel.
func (m *Manager) Send(data []byte, binary bool) error {
	m.mu.Lock()
	peer, ready := m.peer, m.ready
	m.mu.Unlock()

	if peer == nil {
		return ErrNoPeer
	}
	if !ready {
		return ErrChannelNotOpen
	}
	return peer.Send(data, binary)
}

// Inbound delivers data channel messages. It is never closed; watch Closed.
func (m *Manager) Inbound() <-chan []byte { return m.inbound }

// Closed is closed when the data channel closes or the manager is closed.
func (m *Manager) Closed() <-chan struct{} { return m.closed }

// Close tears down the peer connection and the relay socket.
func (m *Manager) Close() error {
	var errs []error
	m.closeOnce.Do(func() {
		m.mu.Lock()
		m.closing = true
		m.state = StateDisconnected
		conn, peer := m.conn, m.peer
		m.mu.Unlock()

		if peer != nil {
			if err := peer.Close(); err != nil {
				errs = append(errs, fmt.Errorf("close peer: %w", err))
			}
		}
		if conn != nil {
			msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
			_ = conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
			if err := conn.Close(); err != nil && !errors.Is(err, websocket.ErrCloseSent) {
				logger.Debug("closing relay socket", "err", err)
			}
		}

		m.markClosed()
		m.doneOnce.Do(func() { close(m.done) })
		logger.Info("session closed")
	})
	return errors.Join(errs...)
}

func (m *Manager) status(msg string) {
	logger.Info(msg)
	if m.cfg.OnStatus != nil {
		m.cfg.OnStatus(msg)
	}
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	m.state = s
	m.mu.Unlock()
	logger.Debug("state", "state", s.String())
}

func (m *Manager) isReady() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.ready
}

func (m *Manager) getPeer() peerConn {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peer
}

// fail ends a session that never reached an open channel. The user rejoins
// manually; there is no retry.
func (m *Manager) fail(err error) {
	m.mu.Lock()
	if m.err == nil {
		m.err = err
	}
	m.mu.Unlock()
	m.doneOnce.Do(func() { close(m.done) })
}

func (m *Manager) markReady() {
	m.mu.Lock()
	m.ready = true
	m.state = StateChannelOpen
	m.mu.Unlock()
	m.readyOnce.Do(func() { close(m.readyCh) })
	m.status("P2P connection established. Game started!")
}

func (m *Manager) markClosed() {
	m.closedOnce.Do(func() { close(m.closed) })
}

func (m *Manager) createPeer() (peerConn, error) {
	cfg := webrtc.Configuration{ICEServers: m.cfg.ICEServers}
	peer, err := m.newPeer(cfg, PeerEvents{
		Candidate: m.onLocalCandidate,
		Open:      m.markReady,
		Message:   m.deliver,
		Closed:    m.onChannelClosed,
		State:     m.onPeerState,
	})
	if err != nil {
		return nil, fmt.Errorf("create peer connection: %w", err)
	}

	m.mu.Lock()
	m.peer = peer
	m.mu.Unlock()
	return peer, nil
}

func (m *Manager) onLocalCandidate(c webrtc.ICECandidateInit) {
	if err := m.sendSignal(&Signal{Type: SignalICE, Candidate: &c}); err != nil {
		logger.Debug("dropping local candidate", "err", err)
	}
}

// deliver queues a data channel message for the game loop, dropping it when
// the loop has fallen behind.
func (m *Manager) deliver(data []byte) {
	cp := make([]byte, len(data))
	copy(cp, data)
	select {
	case m.inbound <- cp:
	default:
		logger.Warn("inbound queue full, dropping message")
	}
}

func (m *Manager) onChannelClosed() {
	m.mu.Lock()
	closing := m.closing
	m.mu.Unlock()
	if !closing {
		m.status("Connection to opponent closed.")
	}
	m.markClosed()
}

func (m *Manager) onPeerState(s webrtc.PeerConnectionState) {
	switch s {
	case webrtc.PeerConnectionStateFailed:
		logger.Warn("peer connection failed")
		m.status("Connection failed. Rejoin the room to try again.")
		if m.isReady() {
			m.markClosed()
		} else {
			m.fail(fmt.Errorf("%w: ICE failed", ErrChannelNotOpen))
		}
	case webrtc.PeerConnectionStateDisconnected:
		m.status("Connection state: disconnected")
	}
}

// sendSignal queues a message for the write pump.
func (m *Manager) sendSignal(s *Signal) error {
	data, err := json.Marshal(s)
	if err != nil {
		return err
	}
	select {
	case m.send <- data:
		return nil
	case <-m.sockDone:
		return ErrSignalingClosed
	}
}

func (m *Manager) writePump(conn *websocket.Conn) {
	for {
		select {
		case data := <-m.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				logger.Debug("relay write failed", "err", err)
				_ = conn.Close()
				return
			}
		case <-m.sockDone:
			return
		}
	}
}

// readPump handles relay messages one at a time, so handshake steps never
// interleave.
func (m *Manager) readPump(conn *websocket.Conn) {
	defer func() {
		close(m.sockDone)
		_ = conn.Close()
		m.socketLost()
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Debug("relay read failed", "err", err)
			}
			return
		}
		if err := m.dispatch(data); err != nil {
			logger.Warn("signal handling failed", "err", err)
		}
	}
}

func (m *Manager) socketLost() {
	m.mu.Lock()
	closing, ready := m.closing, m.ready
	m.mu.Unlock()
	if closing {
		return
	}

	m.status("Connection to server lost.")
	if !ready {
		m.fail(ErrSignalingClosed)
	}
}
