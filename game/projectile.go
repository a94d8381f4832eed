package game

// Collidable is anything with a circular hit area.
type Collidable interface {
	GetPosition() (x, y float64)
	GetRadius() float64
}

// Bullet is a projectile. Once spawned it is simulated independently on
// each peer.
type Bullet struct {
	X, Y      float64
	DX, DY    float64
	R         float64
	Owner     int // seat that fired it
	PoolIndex int // index in pool for swap-and-pop
}

// GetPosition implements Collidable.
func (b *Bullet) GetPosition() (x, y float64) {
	return b.X, b.Y
}

// GetRadius implements Collidable.
func (b *Bullet) GetRadius() float64 {
	return b.R
}

// Advance moves the bullet by one frame of velocity.
func (b *Bullet) Advance() {
	b.X += b.DX
	b.Y += b.DY
}

// InArena reports whether the bullet is still inside the arena bounds.
func (b *Bullet) InArena() bool {
	return b.X >= 0 && b.X <= WIDTH && b.Y >= 0 && b.Y <= HEIGHT
}

// Hits reports whether the bullet strikes p. A bullet never hits the seat
// that fired it.
func (b *Bullet) Hits(p *Player) bool {
	if p == nil || b.Owner == p.Seat {
		return false
	}
	return Overlaps(b, p)
}

// State returns the wire form of the bullet.
func (b *Bullet) State() BulletState {
	return BulletState{X: b.X, Y: b.Y, DX: b.DX, DY: b.DY}
}

// Overlaps is the circle-circle predicate: true iff the distance between
// centers is strictly less than the sum of radii.
func Overlaps(a, b Collidable) bool {
	ax, ay := a.GetPosition()
	bx, by := b.GetPosition()
	dx, dy := ax-bx, ay-by
	r := a.GetRadius() + b.GetRadius()
	return dx*dx+dy*dy < r*r
}
