package network

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pion/webrtc/v4"
)

// DefaultSTUN is used when the relay provides no ICE configuration.
const DefaultSTUN = "stun:stun.l.google.com:19302"

const iceFetchTimeout = 5 * time.Second

// DefaultICEServers returns the fallback ICE configuration.
func DefaultICEServers() []webrtc.ICEServer {
	return []webrtc.ICEServer{{URLs: []string{DefaultSTUN}}}
}

// urlList accepts both a single URL and a list, as browsers do.
type urlList []string

func (u *urlList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		*u = urlList{one}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*u = many
	return nil
}

type iceServerJSON struct {
	URLs       urlList `json:"urls"`
	Username   string  `json:"username,omitempty"`
	Credential string  `json:"credential,omitempty"`
}

type iceConfigJSON struct {
	ICEServers []iceServerJSON `json:"iceServers"`
}

// FetchICEServers loads the ICE configuration a relay publishes at
// /api/ice-servers.
func FetchICEServers(ctx context.Context, endpoint string) ([]webrtc.ICEServer, error) {
	ctx, cancel := context.WithTimeout(ctx, iceFetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch ICE servers: unexpected status %s", resp.Status)
	}

	var cfg iceConfigJSON
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode ICE servers: %w", err)
	}

	servers := make([]webrtc.ICEServer, 0, len(cfg.ICEServers))
	for _, s := range cfg.ICEServers {
		if len(s.URLs) == 0 {
			continue
		}
		server := webrtc.ICEServer{URLs: s.URLs, Username: s.Username}
		if s.Credential != "" {
			server.Credential = s.Credential
		}
		servers = append(servers, server)
	}
	if len(servers) == 0 {
		return nil, fmt.Errorf("fetch ICE servers: empty configuration")
	}
	return servers, nil
}

// ResolveICEServers returns the relay's ICE configuration plus any extra
// STUN URLs, falling back to DefaultICEServers when the fetch fails.
func ResolveICEServers(ctx context.Context, endpoint string, stun []string) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if endpoint != "" {
		fetched, err := FetchICEServers(ctx, endpoint)
		if err != nil {
			logger.Warn("using default ICE config", "err", err)
		} else {
			logger.Debug("fetched ICE config", "endpoint", endpoint, "servers", len(fetched))
			servers = fetched
		}
	}
	if len(stun) > 0 {
		servers = append(servers, webrtc.ICEServer{URLs: stun})
	}
	if len(servers) == 0 {
		return DefaultICEServers()
	}
	return servers
}

// ICEEndpoint derives the ICE configuration URL from a relay websocket URL.
func ICEEndpoint(relayURL string) (string, error) {
	u, err := url.Parse(relayURL)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "http":
		u.Scheme = "http"
	case "wss", "https":
		u.Scheme = "https"
	default:
		return "", fmt.Errorf("unsupported relay scheme %q", u.Scheme)
	}
	u.Path = "/api/ice-servers"
	u.RawQuery = ""
	u.Fragment = ""
	return u.String(), nil
}
