package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"pamong_newsroom/server"
)

const shutdownTimeout = 10 * time.Second

func newServeCommand(ctx *commandContext) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the admin API and the autopilot loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), ctx, addr)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address (overrides server.addr)")
	return cmd
}

func runServe(cmdCtx context.Context, ctx *commandContext, addr string) error {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = cfg.Server.Addr
	}
	logger := ctx.logger

	signalCtx, cancel := signal.NotifyContext(cmdCtx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lock, err := lockDataDir(cfg.DataDir)
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			logger.Warn("release data dir lock failed", "error", err)
		}
	}()

	room, err := openNewsroom(signalCtx, cfg, logger)
	if err != nil {
		return err
	}
	defer room.Close()

	g, gctx := errgroup.WithContext(signalCtx)

	srv, err := server.New(server.Options{
		Autopilot:   room.autopilot,
		Articles:    room.articles,
		Assistant:   room.agent,
		Logger:      logger,
		BaseContext: gctx,
	})
	if err != nil {
		return err
	}
	httpSrv := &http.Server{
		Addr:              addr,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return gctx },
	}

	room.autopilot.Start(gctx)

	g.Go(func() error {
		fmt.Fprintf(ctx.stdout, "Listening on %s\n", addr)
		logger.Info("http server starting", "addr", addr, "store", cfg.Store.Driver, "state", cfg.State.Driver)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpSrv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	srv.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
