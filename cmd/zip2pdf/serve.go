package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	zip2pdf "github.com/alnah/go-zip2pdf"
	"github.com/alnah/go-zip2pdf/internal/config"
	"github.com/alnah/go-zip2pdf/internal/history"
	"github.com/alnah/go-zip2pdf/internal/server"
)

// HTTP server timeouts. The write timeout is extended by the render timeout
// so a slow conversion is not cut off mid-response.
const (
	readHeaderTimeout = 10 * time.Second
	idleTimeout       = 60 * time.Second
	writeSlack        = 30 * time.Second
	shutdownTimeout   = 30 * time.Second
)

// runServe runs the HTTP API until ctx is canceled.
func runServe(ctx context.Context, args []string, env *Environment) error {
	flags, err := parseServeFlags(args, env.Stderr)
	if err != nil {
		return err
	}

	cfg, err := loadConfig(flags.common.config, env.LookupEnv)
	if err != nil {
		return err
	}
	if flags.addr != "" {
		cfg.Server.Addr = flags.addr
	}
	if flags.workers > 0 {
		cfg.Server.Workers = flags.workers
	}

	logger, err := newLogger(cfg, env.Stderr, flags.common)
	if err != nil {
		return err
	}

	var (
		store *history.Store
		rec   zip2pdf.Recorder
	)
	if cfg.History.Path != "" {
		store, err = history.Open(cfg.History.Path, cfg.History.Limit)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrOpenHistory, err)
		}
		defer func() { _ = store.Close() }()
		rec = store
	}

	conv, err := env.NewConverter(cfg, logger, rec)
	if err != nil {
		return err
	}
	defer func() {
		if err := conv.Close(); err != nil {
			logger.Warn("closing converter", "error", err)
		}
	}()

	if n, err := conv.SweepWorkspaces(cfg.SweepAge()); err != nil {
		logger.Warn("sweeping stale workspaces", "error", err)
	} else if n > 0 {
		logger.Info("removed stale workspaces", "count", n)
	}

	opts := []server.Option{server.WithLogger(logger), server.WithClock(env.Now)}
	if store != nil {
		opts = append(opts, server.WithHistory(store))
	}
	api := server.New(conv, serverConfig(cfg), opts...)

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrListen, err)
	}
	return serveUntilDone(ctx, ln, api.Handler(), cfg.RenderTimeout(), logger)
}

// serverConfig extracts what the HTTP layer reports and enforces.
func serverConfig(cfg *config.Config) server.Config {
	return server.Config{
		Version:        Version,
		Environment:    cfg.Server.Env,
		MaxUploadSize:  cfg.Limits.MaxUploadSize,
		PageFormats:    config.PageFormats,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	}
}

// serveUntilDone serves on ln and shuts down gracefully once ctx is done.
func serveUntilDone(ctx context.Context, ln net.Listener, h http.Handler, renderTimeout time.Duration, logger *slog.Logger) error {
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: readHeaderTimeout,
		WriteTimeout:      renderTimeout + writeSlack,
		IdleTimeout:       idleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", ln.Addr().String(), "version", Version)
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("%w: %w", ErrListen, err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	<-errCh
	logger.Info("server stopped")
	return nil
}
