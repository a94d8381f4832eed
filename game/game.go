package game

import "time"

// Options configure a Game.
type Options struct {
	WinScore int   // points that end the match; DefaultWinScore when zero
	Codec    Codec // JSONCodec when nil
}

// Game holds the complete state of one peer's view of a duel. It replaces
// the ambient player/bullet/score globals of a browser page and is owned by
// a single goroutine (see Run).
type Game struct {
	Seat     int
	Players  [2]*Player
	Bullets  *BulletPool
	Score    Score
	Phase    Phase
	Winner   int
	Final    bool
	WinScore int
	Frames   uint64

	// Input
	Keys     map[int]bool
	Joystick Joystick

	codec    Codec
	link     Channel
	lastMove time.Time
	exitErr  error
}

// NewGame creates a game for the local seat. The remote player starts as a
// mirror at its spawn point until its first move arrives.
func NewGame(seat int, opts Options) *Game {
	if opts.WinScore <= 0 {
		opts.WinScore = DefaultWinScore
	}
	if opts.Codec == nil {
		opts.Codec = JSONCodec{}
	}
	seat &= 1
	g := &Game{
		Seat:     seat,
		Bullets:  NewBulletPool(MaxBullets),
		Phase:    PhaseWaiting,
		Winner:   NoSeat,
		WinScore: opts.WinScore,
		Keys:     make(map[int]bool),
		codec:    opts.Codec,
	}
	g.Players[seat] = NewPlayer(seat, true)
	g.Players[1-seat] = NewPlayer(1-seat, false)
	return g
}

// Attach connects the game to the peer data channel.
func (g *Game) Attach(link Channel) {
	g.link = link
}

// Local returns the authoritative player.
func (g *Game) Local() *Player {
	return g.Players[g.Seat]
}

// Remote returns the mirror of the opponent.
func (g *Game) Remote() *Player {
	return g.Players[g.RemoteSeat()]
}

// RemoteSeat returns the opponent's seat.
func (g *Game) RemoteSeat() int {
	return 1 - g.Seat
}

// Start begins the first round once the data channel is open.
func (g *Game) Start() {
	if g.Phase == PhaseWaiting {
		g.Phase = PhasePlaying
		logger.Info("game started", "seat", g.Seat)
	}
}

// reset starts a new round. The score survives unless the round that just
// ended was final.
func (g *Game) reset() {
	if g.Final {
		g.Score = Score{}
	}
	for _, p := range g.Players {
		p.Reset()
	}
	g.Bullets.Clear()
	g.lastMove = time.Time{}
	g.Winner = NoSeat
	g.Final = false
	g.Phase = PhasePlaying
}

// Snapshot is a copy of the game state for presentation.
type Snapshot struct {
	Seat    int
	Phase   Phase
	Players [2]Player
	Bullets []Bullet
	Score   Score
	Winner  int
	Final   bool
	Frames  uint64
}

// Snapshot copies the current state for a renderer.
func (g *Game) Snapshot() Snapshot {
	return Snapshot{
		Seat:    g.Seat,
		Phase:   g.Phase,
		Players: [2]Player{*g.Players[0], *g.Players[1]},
		Bullets: g.Bullets.Active(),
		Score:   g.Score,
		Winner:  g.Winner,
		Final:   g.Final,
		Frames:  g.Frames,
	}
}
