package game

import (
	"log/slog"
	"os"
)

var logger = slog.New(slog.NewTextHandler(os.Stderr, nil)).With("component", "game")

// SetLogger replaces the package logger. Call it before starting a Game.
func SetLogger(l *slog.Logger) {
	if l != nil {
		logger = l.With("component", "game")
	}
}
