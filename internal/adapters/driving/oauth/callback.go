// Package oauth provides the local redirect receiver and browser utilities
// used by consent flows.
package oauth

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os/exec"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"golang.org/x/time/rate"

	"github.com/custodia-labs/authflow/internal/core/domain"
	"github.com/custodia-labs/authflow/internal/core/ports/driven"
	"github.com/custodia-labs/authflow/internal/logger"
)

// Ensure CallbackHost implements the interface.
var _ driven.CallbackHost = (*CallbackHost)(nil)

// Callback request limits. Browsers retry and fetch favicons, so a few hits
// per flow are normal; anything beyond is shed.
const (
	callbackRate  = 10
	callbackBurst = 20
)

// CallbackHost runs one redirect receiver per port on the loopback interface.
// Each receiver forwards the provider redirect to the management API and
// shuts itself down shortly after the first successful redirect.
type CallbackHost struct {
	mu            sync.Mutex
	servers       map[int]*callbackServer
	shutdownDelay time.Duration
}

// callbackServer is one bound receiver.
type callbackServer struct {
	host     *CallbackHost
	binding  domain.CallbackBinding
	server   *http.Server
	listener net.Listener
	limiter  *rate.Limiter
	served   chan struct{}

	scheduleOnce sync.Once
	stopOnce     sync.Once
	mu           sync.Mutex
	timer        *time.Timer
	stopErr      error
}

// NewCallbackHost creates a host. shutdownDelay is how long a receiver keeps
// running after a redirect; zero uses domain.DefaultCallbackShutdownDelay.
func NewCallbackHost(shutdownDelay time.Duration) *CallbackHost {
	if shutdownDelay <= 0 {
		shutdownDelay = domain.DefaultCallbackShutdownDelay
	}
	return &CallbackHost{
		servers:       make(map[int]*callbackServer),
		shutdownDelay: shutdownDelay,
	}
}

// Start binds 127.0.0.1 on binding.ListenPort. It fails with
// domain.ErrConfiguration if the redirect target cannot be computed and with
// domain.ErrResourceBusy if the port is already held.
func (h *CallbackHost) Start(ctx context.Context, binding domain.CallbackBinding) error {
	if _, err := binding.RedirectTarget(""); err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.servers[binding.ListenPort]; ok {
		return errors.Mark(
			errors.Newf("callback port %d is already in use by this process", binding.ListenPort),
			domain.ErrResourceBusy,
		)
	}

	addr := fmt.Sprintf("127.0.0.1:%d", binding.ListenPort)
	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		if errors.Is(err, syscall.EADDRINUSE) {
			return errors.Mark(errors.Wrapf(err, "failed to listen on %s", addr), domain.ErrResourceBusy)
		}
		return errors.Wrapf(err, "failed to listen on %s", addr)
	}

	s := &callbackServer{
		host:     h,
		binding:  binding,
		listener: listener,
		limiter:  rate.NewLimiter(rate.Limit(callbackRate), callbackBurst),
		served:   make(chan struct{}),
	}
	s.server = &http.Server{
		Handler:      s,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	h.servers[binding.ListenPort] = s

	go func() {
		defer close(s.served)
		if err := s.server.Serve(listener); err != nil &&
			!errors.Is(err, http.ErrServerClosed) && !errors.Is(err, net.ErrClosed) {
			logger.Warn("callback server on %s stopped: %v", addr, err)
		}
	}()

	logger.Debug("callback server for %s listening on %s (%s mode, target %s)",
		binding.Provider, addr, binding.Mode, binding.TargetBaseURL)
	return nil
}

// Stop shuts down the receiver on port. Stopping a port that is not bound is a no-op.
func (h *CallbackHost) Stop(port int) error {
	h.mu.Lock()
	s := h.servers[port]
	delete(h.servers, port)
	h.mu.Unlock()

	if s == nil {
		return nil
	}
	return s.shutdown()
}

// Bound reports whether a receiver currently holds port.
func (h *CallbackHost) Bound(port int) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.servers[port]
	return ok
}

// release removes s if it still owns its port, then shuts it down.
// A newer receiver on the same port is left alone.
func (h *CallbackHost) release(s *callbackServer) {
	h.mu.Lock()
	if h.servers[s.binding.ListenPort] == s {
		delete(h.servers, s.binding.ListenPort)
	}
	h.mu.Unlock()

	if err := s.shutdown(); err != nil {
		logger.Warn("failed to stop callback server on port %d: %v", s.binding.ListenPort, err)
	}
}

// ServeHTTP redirects any request to the management callback, keeping the query.
func (s *callbackServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if !s.limiter.Allow() {
		http.Error(w, "Too many requests", http.StatusTooManyRequests)
		return
	}

	target, err := s.binding.RedirectTarget(r.URL.RawQuery)
	if err != nil {
		logger.Warn("callback redirect for %s failed: %v", s.binding.Provider, err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	logger.Debug("forwarding %s callback to %s", s.binding.Provider, target)
	http.Redirect(w, r, target, http.StatusFound)
	s.scheduleShutdown()
}

// scheduleShutdown lets the browser follow the redirect before the receiver goes away.
func (s *callbackServer) scheduleShutdown() {
	s.scheduleOnce.Do(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.timer = time.AfterFunc(s.host.shutdownDelay, func() { s.host.release(s) })
	})
}

// shutdown stops the server and returns once the port is free.
// Shutdown alone does not close a listener that Serve has not picked up yet,
// so the listener is closed here and the Serve goroutine is awaited.
func (s *callbackServer) shutdown() error {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		if s.timer != nil {
			s.timer.Stop()
		}
		s.mu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.stopErr = s.server.Shutdown(ctx)

		if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) && s.stopErr == nil {
			s.stopErr = errors.Wrapf(err, "failed to close callback listener on port %d", s.binding.ListenPort)
		}

		select {
		case <-s.served:
		case <-ctx.Done():
			if s.stopErr == nil {
				s.stopErr = errors.Wrapf(ctx.Err(), "callback server on port %d did not stop", s.binding.ListenPort)
			}
		}
		logger.Debug("callback server on port %d stopped", s.binding.ListenPort)
	})
	return s.stopErr
}

// OpenBrowser opens the default browser to the given URL.
func OpenBrowser(url string) error {
	var cmd *exec.Cmd

	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}

	return cmd.Start()
}
