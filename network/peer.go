package network

import (
	"sync"

	"github.com/pion/webrtc/v4"
)

// ChannelLabel is the label of the game data channel.
const ChannelLabel = "game"

// PeerEvents are the callbacks a peer connection reports through. They run
// on pion goroutines.
type PeerEvents struct {
	Candidate func(c webrtc.ICECandidateInit)
	Open      func()
	Message   func(data []byte)
	Closed    func()
	State     func(s webrtc.PeerConnectionState)
}

// peerConn is the part of a peer connection the handshake drives.
type peerConn interface {
	CreateChannel() error
	CreateOffer() (webrtc.SessionDescription, error)
	CreateAnswer() (webrtc.SessionDescription, error)
	SetRemoteDescription(desc webrtc.SessionDescription) error
	AddICECandidate(c webrtc.ICECandidateInit) error
	Send(data []byte, binary bool) error
	Close() error
}

type peerFactory func(cfg webrtc.Configuration, ev PeerEvents) (peerConn, error)

// PeerConnection wraps a pion peer connection and its game data channel.
type PeerConnection struct {
	conn   *webrtc.PeerConnection
	events PeerEvents

	mu          sync.Mutex
	dataChannel *webrtc.DataChannel
}

// NewPeerConnection creates a pion peer connection wired to ev.
func NewPeerConnection(cfg webrtc.Configuration, ev PeerEvents) (*PeerConnection, error) {
	pc, err := webrtc.NewPeerConnection(cfg)
	if err != nil {
		return nil, err
	}
	p := &PeerConnection{conn: pc, events: ev}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			logger.Debug("ICE gathering complete")
			return
		}
		logger.Debug("local ICE candidate", "candidate", c.String())
		if ev.Candidate != nil {
			ev.Candidate(c.ToJSON())
		}
	})

	pc.OnICEConnectionStateChange(func(s webrtc.ICEConnectionState) {
		logger.Debug("ICE connection state", "state", s.String())
	})

	pc.OnConnectionStateChange(func(s webrtc.PeerConnectionState) {
		logger.Debug("peer connection state", "state", s.String())
		if ev.State != nil {
			ev.State(s)
		}
	})

	// The answering seat receives the channel created by the offerer.
	pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != ChannelLabel {
			logger.Warn("ignoring unexpected data channel", "label", dc.Label())
			return
		}
		p.setupDataChannel(dc)
	})

	return p, nil
}

func newPionPeer(cfg webrtc.Configuration, ev PeerEvents) (peerConn, error) {
	return NewPeerConnection(cfg, ev)
}

// CreateChannel creates the game data channel. Only the offering seat calls it.
func (p *PeerConnection) CreateChannel() error {
	dc, err := p.conn.CreateDataChannel(ChannelLabel, nil)
	if err != nil {
		return err
	}
	p.setupDataChannel(dc)
	return nil
}

func (p *PeerConnection) setupDataChannel(dc *webrtc.DataChannel) {
	p.mu.Lock()
	p.dataChannel = dc
	p.mu.Unlock()

	dc.OnOpen(func() {
		logger.Debug("data channel open", "label", dc.Label())
		if p.events.Open != nil {
			p.events.Open()
		}
	})

	dc.OnClose(func() {
		logger.Debug("data channel closed", "label", dc.Label())
		if p.events.Closed != nil {
			p.events.Closed()
		}
	})

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		if p.events.Message != nil {
			p.events.Message(msg.Data)
		}
	})
}

// CreateOffer creates an offer and sets it as the local description.
func (p *PeerConnection) CreateOffer() (webrtc.SessionDescription, error) {
	offer, err := p.conn.CreateOffer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := p.conn.SetLocalDescription(offer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return offer, nil
}

// CreateAnswer creates an answer and sets it as the local description.
func (p *PeerConnection) CreateAnswer() (webrtc.SessionDescription, error) {
	answer, err := p.conn.CreateAnswer(nil)
	if err != nil {
		return webrtc.SessionDescription{}, err
	}
	if err := p.conn.SetLocalDescription(answer); err != nil {
		return webrtc.SessionDescription{}, err
	}
	return answer, nil
}

func (p *PeerConnection) SetRemoteDescription(desc webrtc.SessionDescription) error {
	return p.conn.SetRemoteDescription(desc)
}

func (p *PeerConnection) AddICECandidate(c webrtc.ICECandidateInit) error {
	return p.conn.AddICECandidate(c)
}

// Send writes one message to the data channel, as a binary or text frame.
func (p *PeerConnection) Send(data []byte, binary bool) error {
	p.mu.Lock()
	dc := p.dataChannel
	p.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return ErrChannelNotOpen
	}
	if binary {
		return dc.Send(data)
	}
	return dc.SendText(string(data))
}

// Close closes the data channel and the peer connection.
func (p *PeerConnection) Close() error {
	p.mu.Lock()
	dc := p.dataChannel
	p.mu.Unlock()

	if dc != nil {
		_ = dc.Close()
	}
	return p.conn.Close()
}
