package relay

import (
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
)

// Config configures the relay server.
type Config struct {
	Bind string
	Port int

	TURN         bool
	TURNPort     int
	PublicIP     string
	TURNRealm    string
	TURNUser     string
	TURNPassword string

	PublicURL string // base of room join links encoded in QR codes
	TLSCert   string
	TLSKey    string

	Version string
	Logger  *slog.Logger
}

// Validate checks the configuration before serving.
func (c *Config) Validate() error {
	if (c.TLSCert == "") != (c.TLSKey == "") {
		return errors.New("both --tls-cert and --tls-key must be provided together")
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.TURN {
		if c.TURNPort < 1 || c.TURNPort > 65535 {
			return fmt.Errorf("invalid turn port (must be between 1-65535 inclusive): %d", c.TURNPort)
		}
		if c.TURNUser == "" || c.TURNPassword == "" {
			return errors.New("--turn requires --turn-user and --turn-password")
		}
		if c.PublicIP != "" && net.ParseIP(c.PublicIP) == nil {
			return fmt.Errorf("invalid public ip: %q", c.PublicIP)
		}
	}
	return nil
}

func (c *Config) scheme() string {
	if c.TLSCert != "" && c.TLSKey != "" {
		return "https"
	}
	return "http"
}

func (c *Config) addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// baseURL is where peers reach the relay, used in QR join links.
func (c *Config) baseURL() string {
	if c.PublicURL != "" {
		return strings.TrimSuffix(c.PublicURL, "/")
	}
	host := c.Bind
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	return c.scheme() + "://" + net.JoinHostPort(host, strconv.Itoa(c.Port))
}

func (c *Config) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// ICEServer is one entry of the published ICE configuration.
type ICEServer struct {
	URLs       []string `json:"urls"`
	Username   string   `json:"username,omitempty"`
	Credential string   `json:"credential,omitempty"`
}

// ICEServers returns the configuration published to peers. turnIP is the
// address the TURN server relays on.
func (c *Config) ICEServers(turnIP string) []ICEServer {
	servers := []ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
	if !c.TURN {
		return servers
	}
	hostPort := net.JoinHostPort(turnIP, strconv.Itoa(c.TURNPort))
	return append(servers, ICEServer{
		URLs: []string{
			"turn:" + hostPort,
			"turn:" + hostPort + "?transport=tcp",
		},
		Username:   c.TURNUser,
		Credential: c.TURNPassword,
	})
}
