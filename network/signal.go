package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pion/webrtc/v4"
)

var (
	ErrSignalingClosed = errors.New("signaling connection closed")
	ErrRelay           = errors.New("relay error")
	ErrNoPeer          = errors.New("no peer connection")
	ErrChannelNotOpen  = errors.New("data channel not open")
	errBadSignal       = errors.New("malformed signal")
)

// SignalType identifies a relay message.
type SignalType string

const (
	SignalJoin   SignalType = "join"
	SignalStart  SignalType = "start"
	SignalOffer  SignalType = "offer"
	SignalAnswer SignalType = "answer"
	SignalICE    SignalType = "ice"
	SignalError  SignalType = "error"
	SignalLeave  SignalType = "leave"
)

// Signal is one message on the relay websocket.
type Signal struct {
	Type      SignalType                 `json:"type"`
	RoomID    string                     `json:"roomId,omitempty"`
	PlayerID  *int                       `json:"playerId,omitempty"`
	SDP       *webrtc.SessionDescription `json:"sdp,omitempty"`
	Candidate *webrtc.ICECandidateInit   `json:"candidate,omitempty"`
	Message   string                     `json:"message,omitempty"`
}

func decodeSignal(data []byte) (*Signal, error) {
	var s Signal
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadSignal, err)
	}
	if s.Type == "" {
		return nil, fmt.Errorf("%w: missing type", errBadSignal)
	}
	return &s, nil
}

type signalHandler func(m *Manager, s *Signal) error

// signalHandlers is the dispatch table for relay messages.
var signalHandlers = map[SignalType]signalHandler{
	SignalStart:  (*Manager).handleStart,
	SignalOffer:  (*Manager).handleOffer,
	SignalAnswer: (*Manager).handleAnswer,
	SignalICE:    (*Manager).handleICE,
	SignalError:  (*Manager).handleError,
	SignalLeave:  (*Manager).handleLeave,
}

func (m *Manager) dispatch(data []byte) error {
	s, err := decodeSignal(data)
	if err != nil {
		return err
	}
	logger.Debug("signal received", "type", s.Type)

	handle, ok := signalHandlers[s.Type]
	if !ok {
		return fmt.Errorf("%w: unknown type %q", errBadSignal, s.Type)
	}
	return handle(m, s)
}

// handleStart records the seat and creates the peer connection. Seat 0
// creates the data channel and sends the offer.
func (m *Manager) handleStart(s *Signal) error {
	if s.PlayerID == nil {
		return fmt.Errorf("%w: start without playerId", errBadSignal)
	}
	if m.getPeer() != nil {
		logger.Debug("ignoring repeated start")
		return nil
	}
	seat := *s.PlayerID & 1

	m.mu.Lock()
	m.seat = seat
	m.mu.Unlock()

	peer, err := m.createPeer()
	if err != nil {
		return err
	}
	m.status("Opponent found, connecting...")

	if seat != 0 {
		m.setState(StateAnswering)
		return nil
	}

	if err := peer.CreateChannel(); err != nil {
		return err
	}
	offer, err := peer.CreateOffer()
	if err != nil {
		return err
	}
	m.setState(StateOffering)
	return m.sendSignal(&Signal{Type: SignalOffer, SDP: &offer})
}

func (m *Manager) handleOffer(s *Signal) error {
	if s.SDP == nil {
		return fmt.Errorf("%w: offer without sdp", errBadSignal)
	}
	peer := m.getPeer()
	if peer == nil {
		var err error
		if peer, err = m.createPeer(); err != nil {
			return err
		}
	}

	if err := peer.SetRemoteDescription(*s.SDP); err != nil {
		return fmt.Errorf("set remote offer: %w", err)
	}
	m.remoteDescSet = true
	m.processPendingCandidates(peer)

	answer, err := peer.CreateAnswer()
	if err != nil {
		return err
	}
	return m.sendSignal(&Signal{Type: SignalAnswer, SDP: &answer})
}

func (m *Manager) handleAnswer(s *Signal) error {
	if s.SDP == nil {
		return fmt.Errorf("%w: answer without sdp", errBadSignal)
	}
	peer := m.getPeer()
	if peer == nil {
		return ErrNoPeer
	}

	if err := peer.SetRemoteDescription(*s.SDP); err != nil {
		return fmt.Errorf("set remote answer: %w", err)
	}
	m.remoteDescSet = true
	m.processPendingCandidates(peer)
	return nil
}

// handleICE applies a remote candidate, or buffers it until the remote
// description is set.
func (m *Manager) handleICE(s *Signal) error {
	if s.Candidate == nil {
		return fmt.Errorf("%w: ice without candidate", errBadSignal)
	}
	peer := m.getPeer()
	if peer == nil || !m.remoteDescSet {
		logger.Debug("buffering ICE candidate, remote description not set")
		m.pendingCandidates = append(m.pendingCandidates, *s.Candidate)
		return nil
	}
	m.addICECandidate(peer, *s.Candidate)
	return nil
}

func (m *Manager) handleError(s *Signal) error {
	m.status("Server error: " + s.Message)
	if !m.isReady() {
		m.fail(fmt.Errorf("%w: %s", ErrRelay, s.Message))
	}
	return nil
}

func (m *Manager) handleLeave(*Signal) error {
	m.status("Opponent left the room.")
	return nil
}

func (m *Manager) processPendingCandidates(peer peerConn) {
	if len(m.pendingCandidates) == 0 {
		return
	}
	logger.Debug("processing buffered candidates", "count", len(m.pendingCandidates))
	for _, c := range m.pendingCandidates {
		m.addICECandidate(peer, c)
	}
	m.pendingCandidates = nil
}

func (m *Manager) addICECandidate(peer peerConn, c webrtc.ICECandidateInit) {
	if err := peer.AddICECandidate(c); err != nil {
		logger.Warn("adding ICE candidate failed", "err", err)
	}
}
