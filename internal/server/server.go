// Package server runs the SSH front door and the optional status endpoint.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"golang.org/x/sync/errgroup"

	"reveal-terminal/internal/config"
	"reveal-terminal/internal/logging"
	"reveal-terminal/internal/router"
	"reveal-terminal/internal/sessions"
	"reveal-terminal/internal/status"
	"reveal-terminal/internal/theme"
)

// Version is reported at startup and by the status endpoint.
var Version = "dev"

const shutdownTimeout = 10 * time.Second

// Runtime wires config, middleware, the reveal UI and the session registry
// as a testable unit.
type Runtime struct {
	cfg        config.Config
	chain      []router.Descriptor
	themes     *theme.Registry
	registry   *sessions.Registry
	logger     *log.Logger
	server     *ssh.Server
	statusHTTP *http.Server
}

// New builds the runtime. A nil themes registry uses the built-in catalog.
func New(cfg config.Config, themes *theme.Registry, logger *log.Logger) (*Runtime, error) {
	if logger == nil {
		logger = log.Default()
	}
	if themes == nil {
		themes = theme.DefaultRegistry()
	}
	for _, id := range []string{cfg.OptionA, cfg.OptionB} {
		if _, ok := themes.Lookup(theme.ID(id)); !ok {
			logger.Warn("configured option not in registry", "event", "unknown_theme", "err", fmt.Errorf("%w: %s", theme.ErrUnknownTheme, id))
		}
	}

	r := &Runtime{
		cfg:      cfg,
		themes:   themes,
		registry: sessions.NewRegistry(),
		logger:   logger,
	}
	r.chain = append(router.DefaultChain(router.Settings{
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		RateLimitBurst:     cfg.RateLimitBurst,
		MaxSessions:        cfg.MaxSessions,
		Logger:             logging.Component(logger, "router"),
	}),
		router.Descriptor{Name: nameLifecycle, Middleware: r.lifecycle()},
		router.Descriptor{Name: nameBubbleTea, Middleware: r.teaMiddleware()},
	)

	if dir := filepath.Dir(cfg.HostKeyPath); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create host key directory: %w", err)
		}
	}

	srv, err := wish.NewServer(
		wish.WithAddress(cfg.Addr()),
		wish.WithHostKeyPath(cfg.HostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(router.ForWish(router.MiddlewareFromDescriptors(r.chain))...),
	)
	if err != nil {
		return nil, fmt.Errorf("create ssh server: %w", err)
	}
	r.server = srv

	if cfg.StatusAddr != "" {
		r.statusHTTP = &http.Server{
			Addr:              cfg.StatusAddr,
			Handler:           status.NewHandler(r.registry, Version, logging.Component(logger, "status")).Routes(),
			ReadHeaderTimeout: 5 * time.Second,
		}
	}
	return r, nil
}

// MiddlewareIDs lists the chain in execution order.
func (r *Runtime) MiddlewareIDs() []string { return router.Names(r.chain) }

// Address is the SSH listen address.
func (r *Runtime) Address() string { return r.server.Addr }

// StatusAddress is the status listen address, or "" when disabled.
func (r *Runtime) StatusAddress() string {
	if r.statusHTTP == nil {
		return ""
	}
	return r.statusHTTP.Addr
}

// Sessions is the live session registry.
func (r *Runtime) Sessions() *sessions.Registry { return r.registry }

// Run serves until ctx ends or SIGINT/SIGTERM arrives.
func (r *Runtime) Run(ctx context.Context) error {
	ctx, stopSignals := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	r.logger.Info("startup",
		"event", "startup",
		"version", Version,
		"addr", r.cfg.Addr(),
		"status_addr", r.cfg.StatusAddr,
		"middleware", r.MiddlewareIDs(),
		"host_key_path", r.cfg.HostKeyPath,
		"idle_timeout", r.cfg.IdleTimeout,
		"max_sessions", r.cfg.MaxSessions,
		"options", []string{r.cfg.OptionA, r.cfg.OptionB},
		"audio_mode", r.cfg.AudioMode,
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := r.server.ListenAndServe(); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			return fmt.Errorf("ssh server: %w", err)
		}
		return nil
	})
	if r.statusHTTP != nil {
		g.Go(func() error {
			if err := r.statusHTTP.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("status server: %w", err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		r.logger.Info("shutting down", "event", "shutdown", "active_sessions", r.registry.Stats().Active)
		var errs []error
		if err := r.server.Shutdown(shutdownCtx); err != nil && !errors.Is(err, ssh.ErrServerClosed) {
			errs = append(errs, fmt.Errorf("ssh shutdown: %w", err))
		}
		if r.statusHTTP != nil {
			if err := r.statusHTTP.Shutdown(shutdownCtx); err != nil {
				errs = append(errs, fmt.Errorf("status shutdown: %w", err))
			}
		}
		return errors.Join(errs...)
	})
	return g.Wait()
}
