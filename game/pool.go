package game

// BulletPool manages reusable bullet objects. Active bullets occupy
// Pool[0:ActiveCount].
type BulletPool struct {
	Pool        []*Bullet
	ActiveCount int
	MaxSize     int
}

// NewBulletPool creates a new bullet pool with pre-allocated objects.
func NewBulletPool(maxSize int) *BulletPool {
	pool := &BulletPool{
		Pool:    make([]*Bullet, maxSize),
		MaxSize: maxSize,
	}
	for i := 0; i < maxSize; i++ {
		pool.Pool[i] = &Bullet{PoolIndex: i}
	}
	return pool
}

// Acquire gets an available bullet from the pool, or nil when it is full.
func (p *BulletPool) Acquire() *Bullet {
	if p.ActiveCount >= p.MaxSize {
		return nil
	}
	b := p.Pool[p.ActiveCount]
	b.PoolIndex = p.ActiveCount
	p.ActiveCount++
	return b
}

// Spawn acquires a bullet and initializes it from the wire state.
func (p *BulletPool) Spawn(s BulletState, owner int) *Bullet {
	b := p.Acquire()
	if b == nil {
		return nil
	}
	b.X, b.Y = s.X, s.Y
	b.DX, b.DY = s.DX, s.DY
	b.R = BulletR
	b.Owner = owner
	return b
}

// Release returns a bullet to the pool using swap-and-pop.
func (p *BulletPool) Release(index int) {
	if index >= p.ActiveCount || index < 0 {
		return
	}
	lastIndex := p.ActiveCount - 1
	if index != lastIndex {
		p.Pool[index], p.Pool[lastIndex] = p.Pool[lastIndex], p.Pool[index]
		p.Pool[index].PoolIndex = index
		p.Pool[lastIndex].PoolIndex = lastIndex
	}
	p.ActiveCount--
}

// Clear marks all bullets inactive.
func (p *BulletPool) Clear() {
	p.ActiveCount = 0
}

// ForEachReverse iterates over active bullets in reverse order, which keeps
// iteration valid while fn releases the current index.
func (p *BulletPool) ForEachReverse(fn func(*Bullet, int)) {
	for i := p.ActiveCount - 1; i >= 0; i-- {
		fn(p.Pool[i], i)
	}
}

// Active returns copies of the active bullets.
func (p *BulletPool) Active() []Bullet {
	out := make([]Bullet, p.ActiveCount)
	for i := 0; i < p.ActiveCount; i++ {
		out[i] = *p.Pool[i]
	}
	return out
}
