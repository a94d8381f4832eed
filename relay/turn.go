package relay

import (
	"fmt"
	"net"

	"github.com/pion/turn/v3"
)

// ResolveTURNIP picks the address the TURN server relays on: the configured
// public IP, else the preferred outbound address, else loopback.
func ResolveTURNIP(publicIP string) net.IP {
	if ip := net.ParseIP(publicIP); ip != nil {
		return ip
	}
	if ip := outboundIP(); ip != nil {
		return ip
	}
	return net.ParseIP("127.0.0.1")
}

// outboundIP gets the preferred outbound IP of this machine. No packets
// are sent.
func outboundIP() net.IP {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return nil
	}
	defer conn.Close()

	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return nil
	}
	return addr.IP
}

// StartTURN starts a pion TURN server on UDP and TCP at cfg.TURNPort,
// relaying on relayIP. The caller closes the returned server.
func StartTURN(cfg *Config, relayIP net.IP) (*turn.Server, error) {
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.TURNPort)

	udpListener, err := net.ListenPacket("udp4", addr)
	if err != nil {
		return nil, fmt.Errorf("create TURN UDP listener: %w", err)
	}

	tcpListener, err := net.Listen("tcp4", addr)
	if err != nil {
		_ = udpListener.Close()
		return nil, fmt.Errorf("create TURN TCP listener: %w", err)
	}

	log := cfg.logger()
	authKey := turn.GenerateAuthKey(cfg.TURNUser, cfg.TURNRealm, cfg.TURNPassword)

	s, err := turn.NewServer(turn.ServerConfig{
		Realm: cfg.TURNRealm,
		// Called for every allocation.
		AuthHandler: func(username, realm string, srcAddr net.Addr) ([]byte, bool) {
			if username == cfg.TURNUser {
				return authKey, true
			}
			log.Debug("rejected TURN allocation", "user", username, "src", srcAddr.String())
			return nil, false
		},
		PacketConnConfigs: []turn.PacketConnConfig{
			{
				PacketConn: udpListener,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: relayIP,
					Address:      "0.0.0.0",
				},
			},
		},
		ListenerConfigs: []turn.ListenerConfig{
			{
				Listener: tcpListener,
				RelayAddressGenerator: &turn.RelayAddressGeneratorStatic{
					RelayAddress: relayIP,
					Address:      "0.0.0.0",
				},
			},
		},
	})
	if err != nil {
		_ = udpListener.Close()
		_ = tcpListener.Close()
		return nil, fmt.Errorf("start TURN server: %w", err)
	}

	log.Info("TURN server started", "port", cfg.TURNPort, "relay_ip", relayIP.String(), "realm", cfg.TURNRealm)
	return s, nil
}
