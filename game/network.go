package game

import (
	"errors"
	"fmt"
)

var (
	ErrExited        = errors.New("local player exited")
	ErrPeerExited    = errors.New("opponent exited")
	ErrChannelClosed = errors.New("data channel closed")
)

// Channel is the peer data channel as seen by the game.
type Channel interface {
	Send(data []byte, binary bool) error
	Inbound() <-chan []byte
	Closed() <-chan struct{}
}

type messageHandler func(g *Game, msg *Message) error

// handlers is the dispatch table for data channel messages.
var handlers = map[MessageType]messageHandler{
	MsgMove:        (*Game).handleMove,
	MsgShoot:       (*Game).handleShoot,
	MsgHealth:      (*Game).handleHealth,
	MsgGameOver:    (*Game).handleGameOver,
	MsgScoreUpdate: (*Game).handleScoreUpdate,
	MsgRestart:     (*Game).handleRestart,
	MsgRematch:     (*Game).handleRestart,
	MsgExit:        (*Game).handleExit,
}

// Receive decodes and applies one message from the opponent.
func (g *Game) Receive(data []byte) error {
	msg, err := g.codec.Decode(data)
	if err != nil {
		return err
	}
	handle, ok := handlers[msg.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownMessage, msg.Type)
	}
	return handle(g, msg)
}

// broadcast sends a message to the opponent. Send failures are logged; the
// game carries on without acknowledgement.
func (g *Game) broadcast(msg *Message) {
	if g.link == nil {
		return
	}
	data, err := g.codec.Encode(msg)
	if err != nil {
		logger.Error("encode failed", "type", msg.Type, "err", err)
		return
	}
	if err := g.link.Send(data, g.codec.Binary()); err != nil {
		logger.Debug("send failed", "type", msg.Type, "err", err)
	}
}

// mirrorSeat validates a seat named by the opponent. The opponent can only
// speak for its own seat.
func (g *Game) mirrorSeat(seat int) (int, bool) {
	if seat != g.RemoteSeat() {
		return 0, false
	}
	return seat, true
}

func (g *Game) handleMove(msg *Message) error {
	if msg.Position == nil {
		return fmt.Errorf("%w: move without position", ErrMalformed)
	}
	seat, ok := g.mirrorSeat(msg.PlayerID)
	if !ok {
		logger.Debug("ignoring move for non-mirror seat", "seat", msg.PlayerID)
		return nil
	}
	g.Players[seat].Apply(*msg.Position)
	return nil
}

func (g *Game) handleShoot(msg *Message) error {
	if msg.Bullet == nil {
		return fmt.Errorf("%w: shoot without bullet", ErrMalformed)
	}
	if g.Phase != PhasePlaying {
		return nil
	}
	// Two seats per room: whoever sent it is the opponent.
	if g.Bullets.Spawn(*msg.Bullet, g.RemoteSeat()) == nil {
		logger.Warn("bullet pool full, dropping remote bullet")
	}
	return nil
}

func (g *Game) handleHealth(msg *Message) error {
	if msg.Health == nil {
		return fmt.Errorf("%w: health without value", ErrMalformed)
	}
	seat, ok := g.mirrorSeat(msg.PlayerID)
	if !ok {
		return nil
	}
	g.Players[seat].Health = *msg.Health
	return nil
}

func (g *Game) handleGameOver(msg *Message) error {
	if msg.Winner == nil {
		return fmt.Errorf("%w: gameOver without winner", ErrMalformed)
	}
	switch g.Phase {
	case PhaseIdle:
		return nil
	case PhaseEnded:
		// Our own hit already decided this round.
		g.Final = g.Final || msg.IsFinal
		return nil
	}
	g.Phase = PhaseEnded
	g.Winner = *msg.Winner & 1
	g.Final = msg.IsFinal
	logger.Info("round over", "winner", g.Winner, "final", g.Final)
	return nil
}

// handleScoreUpdate overwrites the tally, keeping any entry that would go
// down. Both peers only ever increment, so a lower value is stale.
func (g *Game) handleScoreUpdate(msg *Message) error {
	if msg.Scores == nil {
		return fmt.Errorf("%w: scoreUpdate without scores", ErrMalformed)
	}
	for seat, v := range msg.Scores {
		if v > g.Score[seat] {
			g.Score[seat] = v
		}
	}
	return nil
}

// handleRestart starts the next round from an end screen. When both players
// ask at once the requests cross, and the late one must not reset the round
// already under way.
func (g *Game) handleRestart(msg *Message) error {
	if g.Phase != PhaseEnded {
		logger.Debug("ignoring restart outside end screen", "type", msg.Type, "phase", g.Phase)
		return nil
	}
	if msg.Type == MsgRematch {
		g.Final = true
	}
	g.reset()
	logger.Info("round restarted by opponent", "type", msg.Type)
	return nil
}

func (g *Game) handleExit(*Message) error {
	g.Phase = PhaseIdle
	g.exitErr = ErrPeerExited
	return nil
}

// RequestRematch starts the next round after an end screen. After a final
// round it asks for a rematch, which also clears the score.
func (g *Game) RequestRematch() bool {
	if g.Phase != PhaseEnded {
		return false
	}
	kind := MsgRestart
	if g.Final {
		kind = MsgRematch
	}
	g.broadcast(&Message{Type: kind, PlayerID: g.Seat})
	g.reset()
	return true
}

// RequestExit tells the opponent we are leaving and stops the loop.
func (g *Game) RequestExit() {
	if g.Phase == PhaseIdle {
		return
	}
	g.broadcast(&Message{Type: MsgExit, PlayerID: g.Seat})
	g.Phase = PhaseIdle
	g.exitErr = ErrExited
}
