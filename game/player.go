package game

import (
	"math"
	"time"
)

// Player holds one duelist. Exactly one Player per Game is local and
// authoritative; the other is a mirror that only received messages touch.
type Player struct {
	Seat             int
	X, Y             float64
	DX, DY           float64
	R                float64
	FacingX, FacingY float64 // last nonzero heading, unit length
	LastShot         time.Time
	Health           int
	local            bool
}

// NewPlayer creates a player at the spawn point of its seat.
func NewPlayer(seat int, local bool) *Player {
	p := &Player{Seat: seat, local: local}
	p.Reset()
	return p
}

// Reset puts the player back at its spawn point, facing the opponent.
func (p *Player) Reset() {
	spawn := spawnPoints[p.Seat&1]
	p.X, p.Y = spawn[0], spawn[1]
	p.DX, p.DY = 0, 0
	p.R = PlayerR
	p.FacingX, p.FacingY = 1, 0
	if p.Seat == 1 {
		p.FacingX = -1
	}
	p.LastShot = time.Time{}
	p.Health = MaxHealth
}

// Local reports whether this peer owns the player.
func (p *Player) Local() bool {
	return p.local
}

// GetPosition implements Collidable.
func (p *Player) GetPosition() (x, y float64) {
	return p.X, p.Y
}

// GetRadius implements Collidable.
func (p *Player) GetRadius() float64 {
	return p.R
}

// IsAlive returns true while the player has health left.
func (p *Player) IsAlive() bool {
	return p.Health > 0
}

// Steer sets the velocity and remembers the heading when it is nonzero,
// so a stationary player still fires along its last direction.
func (p *Player) Steer(dx, dy float64) {
	p.DX, p.DY = dx, dy
	if length := math.Hypot(dx, dy); length > 0 {
		p.FacingX, p.FacingY = dx/length, dy/length
	}
}

// Move integrates one frame of velocity and clamps to the arena.
func (p *Player) Move() {
	p.X = clamp(p.X+p.DX, 0, WIDTH)
	p.Y = clamp(p.Y+p.DY, 0, HEIGHT)
}

// CanShoot reports whether the shot interval has elapsed.
func (p *Player) CanShoot(now time.Time) bool {
	return p.LastShot.IsZero() || now.Sub(p.LastShot) >= ShotInterval
}

// Aim returns the unit firing direction.
func (p *Player) Aim() (dx, dy float64) {
	return p.FacingX, p.FacingY
}

// State returns the wire form of the player.
func (p *Player) State() PlayerState {
	return PlayerState{
		X:  p.X,
		Y:  p.Y,
		DX: p.DX,
		DY: p.DY,
		FX: p.FacingX,
		FY: p.FacingY,
	}
}

// Apply overwrites a mirror with the last announced state. Last write wins.
func (p *Player) Apply(s PlayerState) {
	p.X, p.Y = s.X, s.Y
	p.DX, p.DY = s.DX, s.DY
	if s.FX != 0 || s.FY != 0 {
		p.FacingX, p.FacingY = s.FX, s.FY
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
