// Package server wraps http.Server with signal-driven graceful shutdown
// and SIGHUP configuration reload.
package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dd0wney/cluso-zerotrust/pkg/logging"
)

// ConfigReloadFunc is a function that reloads configuration
type ConfigReloadFunc func() error

// GracefulServer wraps an HTTP server with graceful shutdown capabilities
type GracefulServer struct {
	server          *http.Server
	logger          logging.Logger
	shutdownTimeout time.Duration
	shutdownCh      chan struct{}
	shutdownOnce    sync.Once
	configReloadFn  ConfigReloadFunc
	configMu        sync.RWMutex
}

// NewGracefulServer creates a new graceful HTTP server
func NewGracefulServer(addr string, handler http.Handler, logger logging.Logger) *GracefulServer {
	if logger == nil {
		logger = logging.DefaultLogger()
	}
	return &GracefulServer{
		server: &http.Server{
			Addr:           addr,
			Handler:        handler,
			ReadTimeout:    30 * time.Second,
			WriteTimeout:   30 * time.Second,
			IdleTimeout:    120 * time.Second,
			MaxHeaderBytes: 1 << 20,
		},
		logger:          logger.With(logging.Component("server")),
		shutdownTimeout: 30 * time.Second,
		shutdownCh:      make(chan struct{}),
	}
}

// SetShutdownTimeout overrides the default 30s drain timeout
func (gs *GracefulServer) SetShutdownTimeout(d time.Duration) {
	gs.shutdownTimeout = d
}

// Start starts the server and handles graceful shutdown signals. It
// blocks until the server stops.
func (gs *GracefulServer) Start() error {
	go gs.handleSignals()

	gs.logger.Info("http server listening", logging.String("addr", gs.server.Addr))
	if err := gs.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}

	return nil
}

// Shutdown initiates a graceful shutdown
func (gs *GracefulServer) Shutdown(timeout time.Duration) error {
	var err error
	gs.shutdownOnce.Do(func() {
		close(gs.shutdownCh)

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		gs.logger.Info("starting graceful shutdown", logging.Duration("timeout", timeout))

		if shutdownErr := gs.server.Shutdown(ctx); shutdownErr != nil {
			err = shutdownErr
			gs.logger.Error("shutdown failed", logging.Error(shutdownErr))
		} else {
			gs.logger.Info("server shutdown complete")
		}
	})
	return err
}

// handleSignals listens for OS signals and triggers graceful shutdown
// or configuration reload.
func (gs *GracefulServer) handleSignals() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		syscall.SIGINT,  // Ctrl+C
		syscall.SIGTERM, // Termination signal (systemd, docker, k8s)
		syscall.SIGHUP,  // Reload configuration
	)
	defer signal.Stop(sigCh)

	for {
		select {
		case sig := <-sigCh:
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM:
				gs.logger.Info("shutdown signal received", logging.String("signal", sig.String()))
				if err := gs.Shutdown(gs.shutdownTimeout); err != nil {
					gs.logger.Error("shutdown error", logging.Error(err))
				}
				return
			case syscall.SIGHUP:
				gs.logger.Info("reload signal received")
				if err := gs.ReloadConfig(); err != nil {
					gs.logger.Error("configuration reload error", logging.Error(err))
				}
			}
		case <-gs.shutdownCh:
			return
		}
	}
}

// IsShuttingDown returns true if shutdown has been initiated
func (gs *GracefulServer) IsShuttingDown() bool {
	select {
	case <-gs.shutdownCh:
		return true
	default:
		return false
	}
}

// ShutdownChannel returns a channel that closes when shutdown is initiated
func (gs *GracefulServer) ShutdownChannel() <-chan struct{} {
	return gs.shutdownCh
}

// SetConfigReloadFunc sets the function to call when configuration reload is triggered
func (gs *GracefulServer) SetConfigReloadFunc(fn ConfigReloadFunc) {
	gs.configMu.Lock()
	defer gs.configMu.Unlock()
	gs.configReloadFn = fn
}

// ReloadConfig triggers a configuration reload
func (gs *GracefulServer) ReloadConfig() error {
	gs.configMu.RLock()
	reloadFn := gs.configReloadFn
	gs.configMu.RUnlock()

	if reloadFn == nil {
		gs.logger.Warn("reload requested but no reload function configured")
		return nil
	}

	if err := reloadFn(); err != nil {
		return err
	}

	gs.logger.Info("configuration reload complete")
	return nil
}
