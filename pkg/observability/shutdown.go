package observability

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// ShutdownFunc tears down one resource during shutdown.
type ShutdownFunc func(context.Context) error

// ShutdownManager drains the HTTP server and tears down registered
// resources when the process receives SIGINT or SIGTERM. Resources are
// released in reverse registration order, so dependents registered later
// close before what they depend on.
type ShutdownManager struct {
	logger  *Logger
	server  *http.Server
	timeout time.Duration

	mu    sync.Mutex
	funcs []ShutdownFunc
}

// NewShutdownManager creates a shutdown manager. A zero timeout defaults to
// 30 seconds.
func NewShutdownManager(logger *Logger, server *http.Server, timeout time.Duration) *ShutdownManager {
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &ShutdownManager{logger: logger, server: server, timeout: timeout}
}

// RegisterShutdownFunc adds a teardown step. Safe to call concurrently.
func (sm *ShutdownManager) RegisterShutdownFunc(fn ShutdownFunc) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	sm.funcs = append(sm.funcs, fn)
}

// WaitForShutdown blocks until a termination signal arrives, then runs the
// shutdown sequence under the configured timeout.
func (sm *ShutdownManager) WaitForShutdown() error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	sm.logger.WithField("signal", sig.String()).Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), sm.timeout)
	defer cancel()
	return sm.Shutdown(ctx)
}

// Shutdown drains the HTTP server, then runs every registered teardown step
// in reverse registration order. Step failures are collected rather than
// aborting the sequence; a context expiry stops the sequence and is
// reported alongside them.
func (sm *ShutdownManager) Shutdown(ctx context.Context) error {
	var errs []error

	if sm.server != nil {
		if err := sm.server.Shutdown(ctx); err != nil {
			sm.logger.WithError(err).Error("http server shutdown failed")
			errs = append(errs, fmt.Errorf("http server: %w", err))
		}
	}

	sm.mu.Lock()
	funcs := make([]ShutdownFunc, len(sm.funcs))
	copy(funcs, sm.funcs)
	sm.mu.Unlock()

	for i := len(funcs) - 1; i >= 0; i-- {
		if ctx.Err() != nil {
			errs = append(errs, fmt.Errorf("shutdown timeout with %d steps remaining", i+1))
			break
		}
		if err := funcs[i](ctx); err != nil {
			sm.logger.WithError(err).Errorf("shutdown step %d failed", i)
			errs = append(errs, err)
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("shutdown finished with %d errors: %v", len(errs), errs)
	}
	sm.logger.Info("shutdown complete")
	return nil
}
