package main

import "testing"

// TestNewCmd_EnvConfiguresRelay tests that DUELO_RELAY_ env vars reach relay config
func TestNewCmd_EnvConfiguresRelay(t *testing.T) {
	t.Setenv("DUELO_RELAY_PORT", "9443")
	t.Setenv("DUELO_RELAY_TURN_PORT", "5349")

	cfg := &Config{}
	newCmd(cfg)

	rc := cfg.relayConfig()
	if rc.Port != 9443 || rc.TURNPort != 5349 {
		t.Errorf("Expected ports from env, got %d and %d", rc.Port, rc.TURNPort)
	}
	if rc.Version != releaseVersion {
		t.Errorf("Expected version %s, got %s", releaseVersion, rc.Version)
	}
}

// TestRelayConfig_TURNNeedsPassword tests that TURN without a password is rejected
func TestRelayConfig_TURNNeedsPassword(t *testing.T) {
	cfg := &Config{}
	newCmd(cfg)
	cfg.turn = true

	if err := cfg.relayConfig().Validate(); err == nil {
		t.Error("Expected --turn without a password to be rejected")
	}
}
