package game

import "time"

// KeyMap maps alternative keys to canonical control codes.
var KeyMap = map[int]int{
	32: 88, // Space => X
	65: 37, // A => Left
	67: 88, // C => X
	68: 39, // D => Right
	73: 38, // I => Up
	74: 37, // J => Left
	75: 40, // K => Down
	76: 39, // L => Right
	83: 40, // S => Down
	87: 38, // W => Up
	90: 88, // Z => X
}

// TranslateKeyCode converts alternative key codes to canonical control codes.
func TranslateKeyCode(keyCode int) int {
	if mapped, ok := KeyMap[keyCode]; ok {
		return mapped
	}
	return keyCode
}

// InputKind enumerates the discrete events the presentation layer feeds in.
type InputKind int

const (
	InputKeyDown InputKind = iota
	InputKeyUp
	InputJoystick
	InputJoystickRelease
	InputFire
	InputRematch
	InputExit
)

// InputEvent is one discrete input. Key is used by key events, X and Y by
// joystick events.
type InputEvent struct {
	Kind InputKind
	Key  int
	X, Y float64
}

// Joystick is the virtual stick. While active it overrides the keys.
type Joystick struct {
	Active bool
	X, Y   float64
}

// HandleInput applies one event.
func (g *Game) HandleInput(ev InputEvent, now time.Time) {
	switch ev.Kind {
	case InputKeyDown:
		g.Keys[TranslateKeyCode(ev.Key)] = true
	case InputKeyUp:
		g.Keys[TranslateKeyCode(ev.Key)] = false
	case InputJoystick:
		g.Joystick = Joystick{Active: true, X: clamp(ev.X, -1, 1), Y: clamp(ev.Y, -1, 1)}
	case InputJoystickRelease:
		g.Joystick = Joystick{}
	case InputFire:
		g.Shoot(now)
	case InputRematch:
		g.RequestRematch()
	case InputExit:
		g.RequestExit()
	}
}

// velocity computes the local velocity for this frame from keys or stick.
func (g *Game) velocity() (dx, dy float64) {
	if g.Keys[KeyUp] {
		dy = -PlayerSpeed
	}
	if g.Keys[KeyDown] {
		dy = PlayerSpeed
	}
	if g.Keys[KeyLeft] {
		dx = -PlayerSpeed
	}
	if g.Keys[KeyRight] {
		dx = PlayerSpeed
	}

	if g.Joystick.Active {
		dx = g.Joystick.X * PlayerSpeed
		dy = g.Joystick.Y * PlayerSpeed
	}
	return dx, dy
}
