package relay

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"
)

const qrSize = 256

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	securityHeaders(cfg, w)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		cfg.logger().Debug("write response failed", "err", err)
	}
}

// NewRouter builds the relay's HTTP surface. turnIP is advertised in the
// ICE configuration when TURN is enabled.
func NewRouter(cfg *Config, hub *Hub, turnIP string) *httprouter.Router {
	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		cfg.logger().Error("handler panic", "path", r.URL.Path, "panic", i)
		writeJSON(cfg, w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}

	mux.GET("/ws", serveWS(hub))
	mux.GET("/api/rooms", serveRooms(cfg, hub))
	mux.GET("/api/rooms/:room/qr", serveRoomQR(cfg))
	mux.GET("/api/ice-servers", serveICEServers(cfg, turnIP))
	mux.GET("/api/health", serveHealth(cfg))
	mux.GET("/version", serveVersion(cfg))

	return mux
}

func serveWS(hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		hub.ServeWS(w, r)
	}
}

func serveRooms(cfg *Config, hub *Hub) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, map[string]any{"rooms": hub.Rooms()})
	}
}

func serveICEServers(cfg *Config, turnIP string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, map[string]any{"iceServers": cfg.ICEServers(turnIP)})
	}
}

func serveHealth(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(cfg, w, http.StatusOK, map[string]string{"status": "healthy"})
	}
}

// JoinURL is the link a QR code for room encodes.
func JoinURL(cfg *Config, room string) string {
	return cfg.baseURL() + "/?room=" + url.QueryEscape(room)
}

func serveRoomQR(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()
		room := p.ByName("room")

		png, err := qrcode.Encode(JoinURL(cfg, room), qrcode.Medium, qrSize)
		if err != nil {
			cfg.logger().Warn("qr encode failed", "room", room, "err", err)
			writeJSON(cfg, w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(png); err != nil {
			return
		}

		cfg.logger().Debug("served room qr", "room", room, "bytes", len(png),
			"took", time.Since(startTime).Round(time.Microsecond))
	}
}

func serveVersion(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "duelo-relay v"+cfg.Version+"\n")
	}
}
