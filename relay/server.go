package relay

import (
	"context"
	"errors"
	"net/http"
	"time"
)

const (
	timeout         = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// Serve runs the relay until ctx is done.
func Serve(ctx context.Context, cfg *Config) error {
	log := cfg.logger()
	log.Info("starting duelo-relay", "version", cfg.Version)

	turnIP := ResolveTURNIP(cfg.PublicIP)
	if cfg.TURN {
		s, err := StartTURN(cfg, turnIP)
		if err != nil {
			return err
		}
		defer s.Close()
	}

	hub := NewHub(log)
	srv := &http.Server{
		Addr:              cfg.addr(),
		Handler:           NewRouter(cfg, hub, turnIP.String()),
		IdleTimeout:       10 * time.Minute,
		ReadHeaderTimeout: timeout,
	}

	errs := make(chan error, 1)
	go func() {
		var err error
		log.Info("listening", "url", cfg.scheme()+"://"+srv.Addr, "ws", "/ws", "ice", "/api/ice-servers")
		if cfg.TLSCert != "" && cfg.TLSKey != "" {
			err = srv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
		} else {
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case err, ok := <-errs:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
