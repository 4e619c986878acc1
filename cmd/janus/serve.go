package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/dropDatabas3/janus/internal/app"
	"github.com/dropDatabas3/janus/internal/config"
	httpx "github.com/dropDatabas3/janus/internal/http"
	"github.com/dropDatabas3/janus/internal/observability/logger"
)

func newServeCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Levanta el authorization server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()
			log := logger.L()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := app.New(ctx, cfg)
			if err != nil {
				return err
			}
			defer c.Close()

			srv := httpx.NewServer(cfg.Server.Addr, c.Router)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				log.Info("listening",
					zap.String("addr", cfg.Server.Addr),
					zap.String("issuer", cfg.OAuth2.Issuer),
				)
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return err
				}
				return nil
			})
			g.Go(func() error {
				c.RunSweeper(gctx, cfg.SweeperInterval())
				return nil
			})
			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down")
				return httpx.Shutdown(srv, 10*time.Second)
			})

			return g.Wait()
		},
	}
}
