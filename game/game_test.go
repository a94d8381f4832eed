package game

import (
	"testing"
	"time"
)

// TestNewGame_SpawnPoints tests that seats spawn on opposite sides facing each other
func TestNewGame_SpawnPoints(t *testing.T) {
	g := NewGame(0, Options{})

	if g.Local().X != 100 || g.Local().Y != 300 {
		t.Errorf("Expected seat 0 at (100, 300), got (%f, %f)", g.Local().X, g.Local().Y)
	}
	if g.Remote().X != 700 || g.Remote().Y != 300 {
		t.Errorf("Expected seat 1 at (700, 300), got (%f, %f)", g.Remote().X, g.Remote().Y)
	}
	if !g.Local().Local() {
		t.Error("Expected seat 0 to be local")
	}
	if g.Remote().Local() {
		t.Error("Expected seat 1 to be a mirror")
	}
}

// TestNewGame_Defaults tests default options
func TestNewGame_Defaults(t *testing.T) {
	g := NewGame(1, Options{})

	if g.Phase != PhaseWaiting {
		t.Errorf("Expected phase waiting, got %s", g.Phase)
	}
	if g.WinScore != DefaultWinScore {
		t.Errorf("Expected win score %d, got %d", DefaultWinScore, g.WinScore)
	}
	if g.Winner != NoSeat {
		t.Errorf("Expected no winner, got %d", g.Winner)
	}
	if g.RemoteSeat() != 0 {
		t.Errorf("Expected remote seat 0, got %d", g.RemoteSeat())
	}
	if g.Local().FacingX != -1 {
		t.Errorf("Expected seat 1 to face left, got %f", g.Local().FacingX)
	}
	if g.Local().Health != MaxHealth {
		t.Errorf("Expected health %d, got %d", MaxHealth, g.Local().Health)
	}
}

// TestStart_EntersPlaying tests that Start begins the first round
func TestStart_EntersPlaying(t *testing.T) {
	g := NewGame(0, Options{})
	g.Start()

	if g.Phase != PhasePlaying {
		t.Errorf("Expected phase playing, got %s", g.Phase)
	}
}

// TestFrame_NoopUnlessPlaying tests that frames do nothing outside a round
func TestFrame_NoopUnlessPlaying(t *testing.T) {
	g := NewGame(0, Options{})
	g.Keys[KeyRight] = true

	g.Frame(time.Now())

	if g.Local().X != 100 {
		t.Errorf("Expected player not to move before start, got x=%f", g.Local().X)
	}
	if g.Frames != 0 {
		t.Errorf("Expected no frames counted, got %d", g.Frames)
	}
}

// TestFrame_MovesAndClamps tests that the local player moves and stays in the arena
func TestFrame_MovesAndClamps(t *testing.T) {
	g := NewGame(0, Options{})
	g.Start()
	g.Keys[KeyLeft] = true

	now := time.Now()
	for i := 0; i < 30; i++ {
		now = now.Add(FrameDuration)
		g.Frame(now)
	}

	if g.Local().X != 0 {
		t.Errorf("Expected player clamped at x=0, got %f", g.Local().X)
	}
	if g.Local().DX != -PlayerSpeed {
		t.Errorf("Expected dx=%f, got %f", -PlayerSpeed, g.Local().DX)
	}
}

// TestRestart_KeepsScoreAfterNonFinalRound tests that the next round keeps the tally
func TestRestart_KeepsScoreAfterNonFinalRound(t *testing.T) {
	g := NewGame(0, Options{})
	g.Start()
	g.Local().X = 333
	g.Bullets.Spawn(BulletState{X: 10, Y: 10, DX: 1}, 1)
	g.Score = Score{2, 3}
	g.Phase = PhaseEnded

	if !g.RequestRematch() {
		t.Fatal("Expected rematch to be accepted after a round ended")
	}

	if g.Phase != PhasePlaying {
		t.Errorf("Expected phase playing, got %s", g.Phase)
	}
	if g.Local().X != 100 || g.Local().DX != 0 {
		t.Errorf("Expected player reset to spawn, got x=%f dx=%f", g.Local().X, g.Local().DX)
	}
	if g.Bullets.ActiveCount != 0 {
		t.Errorf("Expected bullets cleared, got %d", g.Bullets.ActiveCount)
	}
	if g.Score != (Score{2, 3}) {
		t.Errorf("Expected score kept, got %v", g.Score)
	}
}

// TestRematch_ResetsScoreAfterFinalRound tests that a rematch after the final round clears the tally
func TestRematch_ResetsScoreAfterFinalRound(t *testing.T) {
	g := NewGame(0, Options{})
	g.Start()
	g.Score = Score{10, 4}
	g.Phase = PhaseEnded
	g.Final = true
	g.Winner = 0

	g.RequestRematch()

	if g.Score != (Score{}) {
		t.Errorf("Expected score reset after final round, got %v", g.Score)
	}
	if g.Final || g.Winner != NoSeat {
		t.Errorf("Expected final/winner cleared, got final=%v winner=%d", g.Final, g.Winner)
	}
}

// TestRequestRematch_IgnoredWhilePlaying tests that r does nothing during a round
func TestRequestRematch_IgnoredWhilePlaying(t *testing.T) {
	g := NewGame(0, Options{})
	g.Start()

	if g.RequestRematch() {
		t.Error("Expected rematch to be refused during a round")
	}
}

// TestSnapshot_IsACopy tests that snapshots do not alias game state
func TestSnapshot_IsACopy(t *testing.T) {
	g := NewGame(0, Options{})
	g.Start()
	g.Bullets.Spawn(BulletState{X: 50, Y: 50, DX: 1}, 0)

	s := g.Snapshot()
	g.Local().X = 500
	g.Bullets.Pool[0].X = 999

	if s.Players[0].X != 100 {
		t.Errorf("Expected snapshot player x=100, got %f", s.Players[0].X)
	}
	if len(s.Bullets) != 1 || s.Bullets[0].X != 50 {
		t.Errorf("Expected snapshot bullet at x=50, got %+v", s.Bullets)
	}
	if s.Phase != PhasePlaying {
		t.Errorf("Expected snapshot phase playing, got %s", s.Phase)
	}
}
