package game

import "time"

// Arena and entity constants. Values follow the browser client so a native
// peer can play against it.
const (
	WIDTH  = 800
	HEIGHT = 600

	PlayerR     = 20.0
	BulletR     = 5.0
	PlayerSpeed = 5.0
	BulletSpeed = 10.0
	MaxHealth   = 100
)

// Timing constants.
const (
	FrameDuration = time.Second / 60
	MoveInterval  = 50 * time.Millisecond // outbound move rate limit
	ShotInterval  = 250 * time.Millisecond
)

const (
	DefaultWinScore = 10
	MaxBullets      = 256
)

// Canonical control codes. Alternate keys are folded onto these by KeyMap.
const (
	KeyLeft  = 37
	KeyUp    = 38
	KeyRight = 39
	KeyDown  = 40
	KeyFire  = 88
)

// NoSeat marks an unset winner.
const NoSeat = -1

// spawnPoints holds the initial position per seat.
var spawnPoints = [2][2]float64{
	{100, 300},
	{700, 300},
}

// Phase is the gameplay part of the session lifecycle.
type Phase int

const (
	PhaseWaiting Phase = iota
	PhasePlaying
	PhaseEnded
	PhaseIdle
)

func (p Phase) String() string {
	switch p {
	case PhaseWaiting:
		return "waiting"
	case PhasePlaying:
		return "playing"
	case PhaseEnded:
		return "ended"
	case PhaseIdle:
		return "idle"
	}
	return "unknown"
}
