package network

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pion/webrtc/v4"

	"github.com/simukka/duelo/relay"
)

func init() {
	SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// fakeNet links fake peers in memory: the offerer's partner is whichever
// peer applied its offer, and both channels open when the answer lands.
type fakeNet struct {
	mu    sync.Mutex
	peers []*fakePeer
}

func (n *fakeNet) factory(cfg webrtc.Configuration, ev PeerEvents) (peerConn, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	p := &fakePeer{net: n, events: ev, cfg: cfg}
	n.peers = append(n.peers, p)
	return p, nil
}

type fakePeer struct {
	net    *fakeNet
	events PeerEvents
	cfg    webrtc.Configuration

	mu         sync.Mutex
	partner    *fakePeer
	channel    bool
	local      *webrtc.SessionDescription
	remote     *webrtc.SessionDescription
	candidates []webrtc.ICECandidateInit
	calls      []string
	closed     bool
}

func (p *fakePeer) record(call string) {
	p.mu.Lock()
	p.calls = append(p.calls, call)
	p.mu.Unlock()
}

func (p *fakePeer) CreateChannel() error {
	p.record("channel")
	p.mu.Lock()
	p.channel = true
	p.mu.Unlock()
	return nil
}

func (p *fakePeer) describe(kind webrtc.SDPType) webrtc.SessionDescription {
	desc := webrtc.SessionDescription{Type: kind, SDP: "fake-" + kind.String()}
	p.mu.Lock()
	p.local = &desc
	p.mu.Unlock()

	// Candidates trickle after the local description, as with pion.
	go p.events.Candidate(webrtc.ICECandidateInit{Candidate: "candidate:" + kind.String()})
	return desc
}

func (p *fakePeer) CreateOffer() (webrtc.SessionDescription, error) {
	p.record("offer")
	return p.describe(webrtc.SDPTypeOffer), nil
}

func (p *fakePeer) CreateAnswer() (webrtc.SessionDescription, error) {
	p.record("answer")
	return p.describe(webrtc.SDPTypeAnswer), nil
}

func (p *fakePeer) SetRemoteDescription(desc webrtc.SessionDescription) error {
	p.record("remote:" + desc.Type.String())
	p.mu.Lock()
	p.remote = &desc
	p.mu.Unlock()

	if desc.Type != webrtc.SDPTypeAnswer {
		return nil
	}
	// The offerer got its answer: pair with the other peer and open.
	p.net.mu.Lock()
	var other *fakePeer
	for _, q := range p.net.peers {
		if q != p {
			other = q
		}
	}
	p.net.mu.Unlock()
	if other == nil {
		return nil
	}

	p.mu.Lock()
	p.partner = other
	p.mu.Unlock()
	other.mu.Lock()
	other.partner = p
	other.mu.Unlock()

	go p.events.Open()
	go other.events.Open()
	return nil
}

func (p *fakePeer) AddICECandidate(c webrtc.ICECandidateInit) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.remote == nil {
		return errors.New("remote description not set")
	}
	p.candidates = append(p.candidates, c)
	p.calls = append(p.calls, "candidate")
	return nil
}

func (p *fakePeer) Send(data []byte, binary bool) error {
	p.mu.Lock()
	partner, closed := p.partner, p.closed
	p.mu.Unlock()
	if partner == nil || closed {
		return ErrChannelNotOpen
	}
	partner.events.Message(data)
	return nil
}

func (p *fakePeer) Close() error {
	p.mu.Lock()
	p.closed = true
	partner := p.partner
	p.mu.Unlock()
	if partner != nil {
		go partner.events.Closed()
	}
	return nil
}

func (p *fakePeer) snapshot() ([]webrtc.ICECandidateInit, []string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]webrtc.ICECandidateInit(nil), p.candidates...), append([]string(nil), p.calls...)
}

func newRelay(t *testing.T) string {
	t.Helper()
	cfg := &relay.Config{Port: 8080, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
	srv := httptest.NewServer(relay.NewRouter(cfg, relay.NewHub(cfg.Logger), "127.0.0.1"))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func newTestManager(t *testing.T, relayURL string, net *fakeNet) (*Manager, *statusLog) {
	t.Helper()
	log := &statusLog{}
	m := NewManager(Config{RelayURL: relayURL, OnStatus: log.add})
	m.newPeer = net.factory
	t.Cleanup(func() { m.Close() })
	return m, log
}

type statusLog struct {
	mu   sync.Mutex
	msgs []string
}

func (l *statusLog) add(msg string) {
	l.mu.Lock()
	l.msgs = append(l.msgs, msg)
	l.mu.Unlock()
}

func (l *statusLog) has(msg string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, m := range l.msgs {
		if m == msg {
			return true
		}
	}
	return false
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func pair(t *testing.T) (*Manager, *Manager, *fakeNet) {
	t.Helper()
	ctx := testContext(t)
	url := newRelay(t)
	net := &fakeNet{}

	a, _ := newTestManager(t, url, net)
	b, _ := newTestManager(t, url, net)
	if err := a.Join(ctx, "duel"); err != nil {
		t.Fatalf("join a: %v", err)
	}
	if err := b.Join(ctx, "duel"); err != nil {
		t.Fatalf("join b: %v", err)
	}

	if _, err := a.WaitReady(ctx); err != nil {
		t.Fatalf("wait a: %v", err)
	}
	if _, err := b.WaitReady(ctx); err != nil {
		t.Fatalf("wait b: %v", err)
	}
	return a, b, net
}

// TestManager_HandshakeOpensChannel tests that two joiners end up with an open channel
func TestManager_HandshakeOpensChannel(t *testing.T) {
	a, b, _ := pair(t)

	if a.Seat()+b.Seat() != 1 || a.Seat() == b.Seat() {
		t.Errorf("Expected seats 0 and 1, got %d and %d", a.Seat(), b.Seat())
	}
	for _, m := range []*Manager{a, b} {
		if m.State() != StateChannelOpen {
			t.Errorf("Expected channel open, got %s", m.State())
		}
		select {
		case <-m.Ready():
		default:
			t.Error("Expected Ready to be closed")
		}
		select {
		case <-m.Done():
			t.Error("Expected Done to stay open while the session is live")
		default:
		}
	}
}

// TestManager_SeatZeroOffers tests that only seat 0 creates the offer
func TestManager_SeatZeroOffers(t *testing.T) {
	_, _, net := pair(t)

	net.mu.Lock()
	peers := append([]*fakePeer(nil), net.peers...)
	net.mu.Unlock()

	offerers := 0
	for _, p := range peers {
		_, calls := p.snapshot()
		if len(calls) > 1 && calls[0] == "channel" && calls[1] == "offer" {
			offerers++
		}
	}
	if offerers != 1 {
		t.Errorf("Expected exactly one offering peer, got %d", offerers)
	}
}

// TestManager_CandidatesReachPeers tests that ICE candidates cross the relay
func TestManager_CandidatesReachPeers(t *testing.T) {
	_, _, net := pair(t)

	net.mu.Lock()
	peers := append([]*fakePeer(nil), net.peers...)
	net.mu.Unlock()

	deadline := time.Now().Add(2 * time.Second)
	for _, p := range peers {
		for {
			cands, _ := p.snapshot()
			if len(cands) > 0 {
				break
			}
			if time.Now().After(deadline) {
				t.Fatal("Expected each peer to receive a remote candidate")
			}
			time.Sleep(5 * time.Millisecond)
		}
	}
}

// TestManager_SendDeliversInbound tests that Send arrives on the other Inbound
func TestManager_SendDeliversInbound(t *testing.T) {
	a, b, _ := pair(t)

	if err := a.Send([]byte(`{"type":"exit"}`), false); err != nil {
		t.Fatalf("Send: %v", err)
	}

	select {
	case data := <-b.Inbound():
		if string(data) != `{"type":"exit"}` {
			t.Errorf("Expected exit message, got %s", data)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for inbound message")
	}
}

// TestManager_CloseTearsDown tests that Close ends both sides
func TestManager_CloseTearsDown(t *testing.T) {
	a, b, _ := pair(t)

	if err := a.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if a.State() != StateDisconnected {
		t.Errorf("Expected disconnected, got %s", a.State())
	}

	for name, ch := range map[string]<-chan struct{}{"own": a.Closed(), "opponent": b.Closed(), "done": a.Done()} {
		select {
		case <-ch:
		case <-time.After(time.Second):
			t.Errorf("Expected %s channel to report closed", name)
		}
	}
	if err := a.Send([]byte("x"), false); err == nil {
		t.Error("Expected send after close to fail")
	}
}

// TestManager_ThirdJoinerFails tests that a third joiner gets the relay error
func TestManager_ThirdJoinerFails(t *testing.T) {
	ctx := testContext(t)
	url := newRelay(t)
	net := &fakeNet{}

	a, _ := newTestManager(t, url, net)
	b, _ := newTestManager(t, url, net)
	c, status := newTestManager(t, url, net)
	for _, m := range []*Manager{a, b} {
		if err := m.Join(ctx, "crowded"); err != nil {
			t.Fatalf("join: %v", err)
		}
	}
	for _, m := range []*Manager{a, b} {
		if _, err := m.WaitReady(ctx); err != nil {
			t.Fatalf("wait: %v", err)
		}
	}

	if err := c.Join(ctx, "crowded"); err != nil {
		t.Fatalf("join c: %v", err)
	}
	if _, err := c.WaitReady(ctx); !errors.Is(err, ErrRelay) {
		t.Errorf("Expected ErrRelay, got %v", err)
	}
	if !status.has("Server error: room full") {
		t.Error("Expected relay error surfaced as status")
	}
}

// TestManager_SocketLossBeforeOpenFailsJoin tests that losing the relay before the channel opens fails the join
func TestManager_SocketLossBeforeOpenFailsJoin(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_, _, _ = conn.ReadMessage()
		conn.Close()
	}))
	t.Cleanup(srv.Close)

	ctx := testContext(t)
	m, status := newTestManager(t, "ws"+strings.TrimPrefix(srv.URL, "http"), &fakeNet{})
	if err := m.Join(ctx, "lonely"); err != nil {
		t.Fatalf("Join: %v", err)
	}

	if _, err := m.WaitReady(ctx); !errors.Is(err, ErrSignalingClosed) {
		t.Errorf("Expected ErrSignalingClosed, got %v", err)
	}
	if !status.has("Connection to server lost.") {
		t.Error("Expected lost connection status")
	}
}

// TestManager_BuffersCandidatesUntilRemoteDescription tests that early candidates wait for the remote description
func TestManager_BuffersCandidatesUntilRemoteDescription(t *testing.T) {
	net := &fakeNet{}
	m := NewManager(Config{})
	m.newPeer = net.factory

	seat := 1
	if err := m.handleStart(&Signal{Type: SignalStart, PlayerID: &seat}); err != nil {
		t.Fatalf("start: %v", err)
	}
	for _, c := range []string{"candidate:1", "candidate:2"} {
		if err := m.handleICE(&Signal{Type: SignalICE, Candidate: &webrtc.ICECandidateInit{Candidate: c}}); err != nil {
			t.Fatalf("ice: %v", err)
		}
	}
	if len(m.pendingCandidates) != 2 {
		t.Fatalf("Expected 2 buffered candidates, got %d", len(m.pendingCandidates))
	}

	offer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: "v=0"}
	if err := m.handleOffer(&Signal{Type: SignalOffer, SDP: &offer}); err != nil {
		t.Fatalf("offer: %v", err)
	}

	cands, calls := net.peers[0].snapshot()
	if len(cands) != 2 || cands[0].Candidate != "candidate:1" {
		t.Errorf("Expected buffered candidates applied in order, got %v", cands)
	}
	want := []string{"remote:offer", "candidate", "candidate", "answer"}
	if strings.Join(calls, ",") != strings.Join(want, ",") {
		t.Errorf("Expected calls %v, got %v", want, calls)
	}
	if len(m.pendingCandidates) != 0 {
		t.Errorf("Expected buffer drained, got %d", len(m.pendingCandidates))
	}
	if m.State() != StateAnswering {
		t.Errorf("Expected answering, got %s", m.State())
	}

	// The local candidate may be queued on either side of the answer.
	for {
		select {
		case data := <-m.send:
			if strings.Contains(string(data), `"type":"answer"`) {
				return
			}
		case <-time.After(time.Second):
			t.Fatal("Expected answer queued for the relay")
		}
	}
}

// TestManager_AdvanceOnlyAfterOpen tests state transitions
func TestManager_AdvanceOnlyAfterOpen(t *testing.T) {
	m := NewManager(Config{})

	m.Advance(StatePlaying)
	if m.State() != StateDisconnected {
		t.Errorf("Expected advance before open to be ignored, got %s", m.State())
	}

	m.setState(StateChannelOpen)
	m.Advance(StatePlaying)
	m.Advance(StateEnded)
	if m.State() != StateEnded {
		t.Errorf("Expected ended, got %s", m.State())
	}
	m.Advance(StatePlaying)
	if m.State() != StatePlaying {
		t.Errorf("Expected rematch to resume playing, got %s", m.State())
	}
}

// TestDispatch_RejectsBadSignals tests that bad signals are rejected
func TestDispatch_RejectsBadSignals(t *testing.T) {
	m := NewManager(Config{})

	tests := []struct {
		name string
		data string
	}{
		{"Not JSON", "{"},
		{"No type", `{"roomId":"x"}`},
		{"Unknown type", `{"type":"teleport"}`},
		{"Start without seat", `{"type":"start"}`},
		{"Offer without sdp", `{"type":"offer"}`},
		{"Ice without candidate", `{"type":"ice"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := m.dispatch([]byte(tt.data)); !errors.Is(err, errBadSignal) {
				t.Errorf("Expected errBadSignal, got %v", err)
			}
		})
	}
}
