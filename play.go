package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/simukka/duelo/common"
	"github.com/simukka/duelo/game"
	"github.com/simukka/duelo/network"
)

const commandHelp = "Commands: w a s d move, stop, f fire, j X Y joystick, j release, r rematch, q exit"

// sessionView renders snapshots and keeps the signaling session's state in
// step with the round.
type sessionView struct {
	overlay *game.Overlay
	mgr     *network.Manager
}

func (s sessionView) Render(snap game.Snapshot) {
	s.overlay.Render(snap)
	switch snap.Phase {
	case game.PhasePlaying:
		s.mgr.Advance(network.StatePlaying)
	case game.PhaseEnded:
		s.mgr.Advance(network.StateEnded)
	}
}

func play(ctx context.Context, cfg *Config, room string) error {
	log := cfg.logger()
	game.SetLogger(log)
	network.SetLogger(log)

	codec, err := game.CodecByName(cfg.codec)
	if err != nil {
		return err
	}

	overlay := game.NewOverlay(os.Stdout)
	mgr := network.NewManager(network.Config{
		RelayURL:   cfg.relay,
		ICEServers: network.ResolveICEServers(ctx, cfg.iceEndpoint(), cfg.stun),
		OnStatus:   overlay.Status,
	})
	defer mgr.Close()

	if err := mgr.Join(ctx, room); err != nil {
		return err
	}
	seat, err := mgr.WaitReady(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}

	g := game.NewGame(seat, game.Options{WinScore: cfg.winScore, Codec: codec})
	g.Attach(mgr)
	g.Start()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan game.InputEvent, 64)
	if cfg.bot {
		seed := cfg.botSeed
		if seed == 0 {
			seed = common.SeatSeed(room, seat)
		}
		overlay.Status(fmt.Sprintf("Bot playing seat %d with seed %d", seat, seed))
		go func() {
			_ = game.NewBot(seed).Drive(runCtx, events)
		}()
	} else {
		overlay.Status(commandHelp)
		go readCommands(runCtx, os.Stdin, events, overlay.Status)
	}

	err = g.Run(runCtx, events, sessionView{overlay: overlay, mgr: mgr})
	switch {
	case errors.Is(err, game.ErrExited):
		overlay.Status("You left the game.")
	case errors.Is(err, game.ErrPeerExited):
		overlay.Status("Opponent left the game.")
	case errors.Is(err, game.ErrChannelClosed):
		overlay.Status("Connection to opponent lost.")
	case ctx.Err() != nil:
	default:
		return err
	}
	return nil
}

// readCommands turns stdin lines into input events until r is exhausted or
// ctx is done.
func readCommands(ctx context.Context, r io.Reader, out chan<- game.InputEvent, status func(string)) {
	var p commandParser
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		events, err := p.parse(scanner.Text())
		if err != nil {
			status(err.Error() + ". " + commandHelp)
			continue
		}
		for _, ev := range events {
			select {
			case out <- ev:
			case <-ctx.Done():
				return
			}
		}
	}
}

// commandParser maps text commands to input events. A terminal has no key
// release, so a direction is held until another direction or stop.
type commandParser struct {
	held int // key code currently held, 0 for none
}

func (p *commandParser) parse(line string) ([]game.InputEvent, error) {
	fields := strings.Fields(strings.ToLower(line))
	if len(fields) == 0 {
		return nil, nil
	}

	switch cmd := fields[0]; cmd {
	case "w", "a", "s", "d":
		key := int(strings.ToUpper(cmd)[0])
		return p.hold(key), nil
	case "stop":
		return p.hold(0), nil
	case "f", "fire":
		return []game.InputEvent{{Kind: game.InputFire}}, nil
	case "r", "rematch":
		return []game.InputEvent{{Kind: game.InputRematch}}, nil
	case "q", "quit", "exit":
		return []game.InputEvent{{Kind: game.InputExit}}, nil
	case "j", "joystick":
		if len(fields) == 1 {
			return []game.InputEvent{{Kind: game.InputJoystickRelease}}, nil
		}
		if len(fields) != 3 {
			return nil, fmt.Errorf("joystick needs X and Y")
		}
		x, errX := strconv.ParseFloat(fields[1], 64)
		y, errY := strconv.ParseFloat(fields[2], 64)
		if errX != nil || errY != nil {
			return nil, fmt.Errorf("joystick X and Y must be numbers")
		}
		return []game.InputEvent{{Kind: game.InputJoystick, X: x, Y: y}}, nil
	default:
		return nil, fmt.Errorf("unknown command %q", cmd)
	}
}

func (p *commandParser) hold(key int) []game.InputEvent {
	if key == p.held {
		return nil
	}
	var events []game.InputEvent
	if p.held != 0 {
		events = append(events, game.InputEvent{Kind: game.InputKeyUp, Key: p.held})
	}
	if key != 0 {
		events = append(events, game.InputEvent{Kind: game.InputKeyDown, Key: key})
	}
	p.held = key
	return events
}
