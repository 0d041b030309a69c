package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/grovetools/phlux/cli"
	"github.com/grovetools/phlux/config"
	"github.com/grovetools/phlux/internal/server"
	"github.com/grovetools/phlux/logging"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func NewServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve counter scopes over websockets",
		Long: `Starts the websocket server. Each connection to /ws owns a counter scope.
A dropped connection saves its scope and keeps it in memory for the configured
resume grace; reconnect with /ws?key=<scope> to continue it. Sending {"op":"quit"}
disposes of the scope and its saved copy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cli.GetLogger(cmd)
			cfg, err := cli.LoadConfig(cmd)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = cfg.Server.Addr
			}

			rt, err := newRuntime(cfg, logging.NewLogger("phlux-store"))
			if err != nil {
				return err
			}
			defer rt.Close()

			opts := server.Options{
				Store:       rt.store,
				Codec:       rt.codec,
				Repo:        rt.repo,
				ResumeGrace: cfg.ResumeGrace(),
				Logger:      logging.NewLogger("phlux-server"),
			}
			if rt.registry != nil {
				opts.Gatherer = rt.registry
			}
			srv := server.New(opts)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if path, err := cli.ConfigPath(cmd); err == nil && path != "" {
				watcher, err := config.NewWatcher(path, 250*time.Millisecond, func(next *config.Config) {
					if err := logging.Apply(next); err != nil {
						logger.WithError(err).Warn("Ignoring logging section of reloaded config")
					}
				}, logger)
				if err != nil {
					logger.WithError(err).Warn("Config watching disabled")
				} else {
					defer watcher.Close()
					go watcher.Start(ctx)
				}
			}

			errCh := make(chan error, 1)
			go func() {
				errCh <- srv.ListenAndServe(addr)
			}()
			logger.WithFields(logrus.Fields{
				"addr":         addr,
				"resume_grace": cfg.ResumeGrace(),
			}).Info("Serving")

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			logger.Info("Shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (defaults to server.addr)")
	return cmd
}
