package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/simukka/duelo/relay"
)

type Config struct {
	bind         string
	port         int
	turn         bool
	turnPort     int
	publicIP     string
	turnRealm    string
	turnUser     string
	turnPassword string
	publicURL    string
	tlsCert      string
	tlsKey       string
	verbose      bool
	version      bool
}

func (c *Config) relayConfig() *relay.Config {
	level := slog.LevelInfo
	if c.verbose {
		level = slog.LevelDebug
	}

	return &relay.Config{
		Bind:         c.bind,
		Port:         c.port,
		TURN:         c.turn,
		TURNPort:     c.turnPort,
		PublicIP:     c.publicIP,
		TURNRealm:    c.turnRealm,
		TURNUser:     c.turnUser,
		TURNPassword: c.turnPassword,
		PublicURL:    c.publicURL,
		TLSCert:      c.tlsCert,
		TLSKey:       c.tlsKey,
		Version:      releaseVersion,
		Logger:       slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).With("component", "relay"),
	}
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("DUELO_RELAY")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:           "duelo-relay",
		Short:         "Signaling relay and TURN server for duelo.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			rc := cfg.relayConfig()
			if err := rc.Validate(); err != nil {
				return err
			}
			return relay.Serve(cmd.Context(), rc)
		},
	}

	fs := cmd.Flags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.bind, "bind", "b", "0.0.0.0", "address to bind to (env: DUELO_RELAY_BIND)")
	fs.IntVarP(&cfg.port, "port", "p", 8080, "port to listen on (env: DUELO_RELAY_PORT)")
	fs.BoolVar(&cfg.turn, "turn", false, "run a TURN server alongside the relay (env: DUELO_RELAY_TURN)")
	fs.IntVar(&cfg.turnPort, "turn-port", 3478, "TURN server port, UDP and TCP (env: DUELO_RELAY_TURN_PORT)")
	fs.StringVar(&cfg.publicIP, "public-ip", "", "public IP for TURN relaying, auto-detected when empty (env: DUELO_RELAY_PUBLIC_IP)")
	fs.StringVar(&cfg.turnRealm, "turn-realm", "duelo", "TURN realm (env: DUELO_RELAY_TURN_REALM)")
	fs.StringVar(&cfg.turnUser, "turn-user", "duelo", "TURN username (env: DUELO_RELAY_TURN_USER)")
	fs.StringVar(&cfg.turnPassword, "turn-password", "", "TURN password, required with --turn (env: DUELO_RELAY_TURN_PASSWORD)")
	fs.StringVar(&cfg.publicURL, "public-url", "", "base url encoded in room QR codes (env: DUELO_RELAY_PUBLIC_URL)")
	fs.StringVar(&cfg.tlsCert, "tls-cert", "", "path to tls certificate (env: DUELO_RELAY_TLS_CERT)")
	fs.StringVar(&cfg.tlsKey, "tls-key", "", "path to tls keyfile (env: DUELO_RELAY_TLS_KEY)")
	fs.BoolVarP(&cfg.verbose, "verbose", "v", false, "display additional output (env: DUELO_RELAY_VERBOSE)")
	fs.BoolVarP(&cfg.version, "version", "V", false, "display version and exit (env: DUELO_RELAY_VERSION)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("duelo-relay v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
