package game

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/fatih/color"
)

// Overlay is a terminal stand-in for the canvas. It prints a line whenever
// the connection status, the phase or the score changes, rather than
// redrawing every frame. Status may be called from any goroutine.
type Overlay struct {
	mu  sync.Mutex
	out io.Writer

	statusColor *color.Color
	gameColor   *color.Color
	winColor    *color.Color
	loseColor   *color.Color
	infoColor   *color.Color

	lastStatus string
	lastPhase  Phase
	lastScore  Score
	started    bool
}

// NewOverlay creates an overlay writing to out.
func NewOverlay(out io.Writer) *Overlay {
	return &Overlay{
		out:         out,
		statusColor: color.New(color.FgCyan, color.Bold),
		gameColor:   color.New(color.FgYellow, color.Bold),
		winColor:    color.New(color.FgGreen, color.Bold),
		loseColor:   color.New(color.FgRed, color.Bold),
		infoColor:   color.New(color.FgWhite),
	}
}

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// Status shows a connection status message. Repeats are suppressed.
func (o *Overlay) Status(message string) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if message == o.lastStatus {
		return
	}
	o.lastStatus = message
	o.statusColor.Fprintf(o.out, "[%s] [STATUS] %s\n", timestamp(), message)
}

// Render implements Renderer.
func (o *Overlay) Render(s Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.started && s.Phase == o.lastPhase && s.Score == o.lastScore {
		return
	}
	phaseChanged := !o.started || s.Phase != o.lastPhase
	o.started = true
	o.lastPhase = s.Phase
	o.lastScore = s.Score

	if s.Score != (Score{}) || phaseChanged {
		o.gameColor.Fprintf(o.out, "[%s] [SCORE] you %d : %d opponent\n",
			timestamp(), s.Score[s.Seat], s.Score[1-s.Seat])
	}
	if !phaseChanged {
		return
	}

	switch s.Phase {
	case PhasePlaying:
		o.infoColor.Fprintf(o.out, "[%s] [GAME] round started, you are seat %d\n", timestamp(), s.Seat)
	case PhaseEnded:
		o.renderEndScreen(s)
	case PhaseIdle:
		o.infoColor.Fprintf(o.out, "[%s] [GAME] session closed\n", timestamp())
	}
}

func (o *Overlay) renderEndScreen(s Snapshot) {
	c, verdict := o.loseColor, "You were hit!"
	if s.Winner == s.Seat {
		c, verdict = o.winColor, "Opponent hit!"
	}
	if s.Final {
		verdict = fmt.Sprintf("%s Match over, seat %d wins.", verdict, s.Winner)
	}
	c.Fprintf(o.out, "[%s] [END] %s\n", timestamp(), verdict)

	hint := "r = next round, q = exit"
	if s.Final {
		hint = "r = rematch, q = exit"
	}
	o.infoColor.Fprintf(o.out, "[%s] [END] %s\n", timestamp(), hint)
}
