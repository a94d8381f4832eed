package main

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/simukka/duelo/game"
	"github.com/simukka/duelo/network"
)

type Config struct {
	relay    string
	iceURL   string
	stun     []string
	codec    string
	winScore int
	bot      bool
	botSeed  uint32
	verbose  bool
	version  bool
}

func (c *Config) validate() error {
	u, err := url.Parse(c.relay)
	if err != nil {
		return fmt.Errorf("invalid --relay: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid --relay scheme (must be ws or wss): %q", u.Scheme)
	}
	if _, err := game.CodecByName(c.codec); err != nil {
		return err
	}
	if c.winScore < 1 {
		return fmt.Errorf("invalid --win-score (must be at least 1): %d", c.winScore)
	}
	for _, s := range c.stun {
		if !strings.HasPrefix(s, "stun:") {
			return fmt.Errorf("invalid --stun url (must start with stun:): %q", s)
		}
	}
	return nil
}

// iceEndpoint is --ice-url, or the relay's own ICE endpoint when unset.
func (c *Config) iceEndpoint() string {
	if c.iceURL != "" {
		return c.iceURL
	}
	endpoint, err := network.ICEEndpoint(c.relay)
	if err != nil {
		return ""
	}
	return endpoint
}

func (c *Config) logger() *slog.Logger {
	level := slog.LevelWarn
	if c.verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DUELO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "duelo [flags] ROOM",
		Short:         "A two-player peer-to-peer duel over a WebRTC data channel.",
		Args:          cobra.ExactArgs(1),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			return play(cmd.Context(), cfg, args[0])
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.relay, "relay", "r", "ws://localhost:8080/ws", "signaling relay websocket url (env: DUELO_RELAY)")
	fs.StringVar(&cfg.iceURL, "ice-url", "", "ICE configuration url, derived from --relay when empty (env: DUELO_ICE_URL)")
	fs.StringSliceVar(&cfg.stun, "stun", nil, "additional STUN server urls (env: DUELO_STUN)")
	fs.StringVar(&cfg.codec, "codec", "json", "data channel encoding, json or msgpack; both peers must match (env: DUELO_CODEC)")
	fs.IntVar(&cfg.winScore, "win-score", game.DefaultWinScore, "points that end a match (env: DUELO_WIN_SCORE)")
	fs.BoolVar(&cfg.bot, "bot", false, "play with a seeded bot instead of stdin commands (env: DUELO_BOT)")
	fs.Uint32Var(&cfg.botSeed, "bot-seed", 0, "bot seed, derived from room and seat when zero (env: DUELO_BOT_SEED)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DUELO_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DUELO_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("duelo v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
