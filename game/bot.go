package game

import (
	"context"
	"time"

	"github.com/simukka/duelo/common"
)

// BotInterval is how often a bot changes its mind.
const BotInterval = 200 * time.Millisecond

var botKeys = []int{KeyUp, KeyDown, KeyLeft, KeyRight}

// Bot drives a peer with seeded pseudo-random input. Two runs with the same
// seed produce the same event stream.
type Bot struct {
	rng      *common.SeededRNG
	held     int // canonical key currently held, 0 for none
	stick    bool
	FireP    float64
	StickP   float64
	RematchP float64
}

// NewBot creates a bot with the given seed.
func NewBot(seed uint32) *Bot {
	return &Bot{
		rng:      common.NewSeededRNG(seed),
		FireP:    0.4,
		StickP:   0.1,
		RematchP: 0.05,
	}
}

// Next returns the events for one decision step.
func (b *Bot) Next() []InputEvent {
	var events []InputEvent

	// Keep heading most of the time, otherwise steer with the stick, pick a
	// new key or stop.
	if (b.held == 0 && !b.stick) || b.rng.Chance(0.3) {
		if b.stick {
			events = append(events, InputEvent{Kind: InputJoystickRelease})
			b.stick = false
		}
		next := 0
		switch {
		case b.rng.Chance(b.StickP):
			events = append(events, InputEvent{
				Kind: InputJoystick,
				X:    b.rng.RandomFloat(-1, 1),
				Y:    b.rng.RandomFloat(-1, 1),
			})
			b.stick = true
		case !b.rng.Chance(0.15):
			next = botKeys[b.rng.RandomInt(0, len(botKeys))]
		}
		if next != b.held {
			if b.held != 0 {
				events = append(events, InputEvent{Kind: InputKeyUp, Key: b.held})
			}
			if next != 0 {
				events = append(events, InputEvent{Kind: InputKeyDown, Key: next})
			}
			b.held = next
		}
	}

	if b.rng.Chance(b.FireP) {
		events = append(events, InputEvent{Kind: InputFire})
	}
	// Ignored by the game unless a round has ended.
	if b.rng.Chance(b.RematchP) {
		events = append(events, InputEvent{Kind: InputRematch})
	}
	return events
}

// Drive feeds events into out every BotInterval until ctx is done.
func (b *Bot) Drive(ctx context.Context, out chan<- InputEvent) error {
	ticker := time.NewTicker(BotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for _, ev := range b.Next() {
				select {
				case out <- ev:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
		}
	}
}
