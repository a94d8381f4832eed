package game

import (
	"context"
	"time"
)

// Renderer draws snapshots. It is the presentation boundary of the game.
type Renderer interface {
	Render(s Snapshot)
}

// Run is the frame loop. It is the only goroutine that touches g: inbound
// messages, input events and frame ticks are serialized through one select,
// and each runs to completion before the next.
//
// Run returns when ctx is done, when either player exits, or when the data
// channel closes.
func (g *Game) Run(ctx context.Context, events <-chan InputEvent, r Renderer) error {
	ticker := time.NewTicker(FrameDuration)
	defer ticker.Stop()

	var inbound <-chan []byte
	var closed <-chan struct{}
	if g.link != nil {
		inbound = g.link.Inbound()
		closed = g.link.Closed()
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case <-closed:
			return ErrChannelClosed

		case data, ok := <-inbound:
			if !ok {
				return ErrChannelClosed
			}
			if err := g.Receive(data); err != nil {
				logger.Warn("ignoring message", "err", err)
			}

		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			g.HandleInput(ev, time.Now())

		case now := <-ticker.C:
			g.Frame(now)
			if r != nil {
				r.Render(g.Snapshot())
			}
		}

		if g.Phase == PhaseIdle {
			if r != nil {
				r.Render(g.Snapshot())
			}
			return g.exitErr
		}
	}
}

// Frame advances the simulation by one tick. It does nothing unless a round
// is being played.
func (g *Game) Frame(now time.Time) {
	local := g.Local()
	if local == nil || g.Phase != PhasePlaying {
		return
	}
	g.Frames++

	// Player input
	local.Steer(g.velocity())
	if g.Keys[KeyFire] {
		g.Shoot(now)
	}

	local.Move()

	if now.Sub(g.lastMove) >= MoveInterval {
		state := local.State()
		g.broadcast(&Message{Type: MsgMove, PlayerID: g.Seat, Position: &state})
		g.lastMove = now
	}

	g.UpdateBullets()
	g.CheckHits()
}

// UpdateBullets advances every bullet and drops those that left the arena.
func (g *Game) UpdateBullets() {
	g.Bullets.ForEachReverse(func(b *Bullet, i int) {
		b.Advance()
		if !b.InArena() {
			g.Bullets.Release(i)
		}
	})
}

// CheckHits tests opponent bullets against the local player. Only the
// non-owner of a bullet can declare itself hit, so each hit is counted once.
func (g *Game) CheckHits() {
	local := g.Local()
	g.Bullets.ForEachReverse(func(b *Bullet, i int) {
		if g.Phase != PhasePlaying || !local.IsAlive() || !b.Hits(local) {
			return
		}
		owner := b.Owner
		g.Bullets.Release(i)
		g.hit(owner)
	})
}

// hit ends the round in favour of owner and announces the outcome.
func (g *Game) hit(owner int) {
	local := g.Local()
	local.Health = 0

	g.Score[owner]++
	g.Winner = owner
	g.Final = g.Score[owner] >= g.WinScore
	g.Phase = PhaseEnded

	score := g.Score
	g.broadcast(&Message{Type: MsgHealth, PlayerID: g.Seat, Health: intPtr(local.Health)})
	g.broadcast(&Message{Type: MsgScoreUpdate, PlayerID: g.Seat, Scores: &score})
	g.broadcast(&Message{Type: MsgGameOver, PlayerID: g.Seat, Winner: intPtr(owner), IsFinal: g.Final})

	logger.Info("hit", "by", owner, "score", g.Score, "final", g.Final)
}

// Shoot fires along the local player's heading, rate limited against the
// local clock. The bullet is appended locally and broadcast.
func (g *Game) Shoot(now time.Time) bool {
	if g.Phase != PhasePlaying {
		return false
	}
	p := g.Local()
	if !p.CanShoot(now) {
		return false
	}
	dx, dy := p.Aim()
	state := BulletState{X: p.X, Y: p.Y, DX: dx * BulletSpeed, DY: dy * BulletSpeed}
	if g.Bullets.Spawn(state, g.Seat) == nil {
		return false
	}
	p.LastShot = now
	g.broadcast(&Message{Type: MsgShoot, PlayerID: g.Seat, Bullet: &state})
	return true
}
