package gateway

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

const (
	DefaultPort = "5000"

	readHeaderTimeout = 15 * time.Second
	idleTimeout       = 60 * time.Second
)

// Start listens on port and serves until ctx is cancelled. A bind
// failure is returned to the caller.
func (g *Gateway) Start(ctx context.Context, port string) error {
	if port == "" {
		port = DefaultPort
	}

	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", ":"+port)
	if err != nil {
		return fmt.Errorf("failed to listen on port %s: %w", port, err)
	}
	return g.Serve(ctx, ln)
}

// Serve runs the gateway on an existing listener and shuts down
// gracefully when ctx is done.
func (g *Gateway) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		IdleTimeout:       idleTimeout,
	}

	_, port, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		_ = ln.Close()
		return fmt.Errorf("failed to parse listener address: %w", err)
	}
	g.log.WithFields(logrus.Fields{
		"port":     port,
		"health":   fmt.Sprintf("http://localhost:%s/health", port),
		"api_base": fmt.Sprintf("http://localhost:%s/api", port),
	}).Infof("Server running on port %s", port)

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		g.log.Info("Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), g.opts.ShutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	}
}
