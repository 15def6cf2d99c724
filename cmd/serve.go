/*
Copyright © 2025 Ken'ichiro Oyama <k1lowxb@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/k1LoW/postshot"
	"github.com/k1LoW/postshot/config"
	"github.com/spf13/cobra"
)

var (
	listen string
	watch  bool
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "serve post cards over HTTP",
	Long:  `serve post cards over HTTP at /{id}.png and /{id}-{width}.png.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		cfg, err := config.Load(profile)
		if err != nil {
			return err
		}
		if listen != "" {
			cfg.Listen = listen
		}
		logger, closer, err := newLogger(cfg, slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel()}))
		if err != nil {
			return err
		}
		defer closer.Close()

		s, err := newShot(ctx, cfg, logger)
		if err != nil {
			return err
		}
		srv := postshot.NewServer(s, logger)
		if watch {
			go func() {
				if err := config.Watch(ctx, profile, reloader(ctx, srv, cfg.Listen, logger)); err != nil {
					logger.Error("failed to watch config", slog.String("error", err.Error()))
				}
			}()
		}

		hs := &http.Server{
			Addr:              cfg.Listen,
			Handler:           srv.Handler(),
			ReadHeaderTimeout: 10 * time.Second,
		}
		errCh := make(chan error, 1)
		go func() {
			logger.Info("listening", slog.String("addr", cfg.Listen))
			errCh <- hs.ListenAndServe()
		}()
		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}
		logger.Info("shutting down")
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return hs.Shutdown(sctx)
	},
}

// reloader rebuilds the Shot from each new configuration and swaps it into srv.
func reloader(ctx context.Context, srv *postshot.Server, addr string, logger *slog.Logger) func(*config.Config, error) {
	return func(cfg *config.Config, err error) {
		if err != nil {
			logger.Error("failed to reload config", slog.String("error", err.Error()))
			return
		}
		if cfg.Listen != addr && listen == "" {
			logger.Warn("listen address change needs a restart", slog.String("addr", cfg.Listen))
		}
		s, err := newShot(ctx, cfg, logger)
		if err != nil {
			logger.Error("failed to reload config", slog.String("error", err.Error()))
			return
		}
		srv.Swap(s)
		logger.Info("reloaded config")
	}
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&listen, "listen", "l", "", "listen address (default from config, \":8080\")")
	serveCmd.Flags().BoolVarP(&watch, "watch", "w", false, "reload on config file changes")
}
