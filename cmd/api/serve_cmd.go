package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/swenlog/carrier-directory/internal/database"
	"github.com/swenlog/carrier-directory/internal/metrics"
)

func newServeCmd(a *app) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			db, err := database.Open(ctx, a.cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			a.logger.Info("connected to the database")

			if migrate {
				if err := database.Migrate(db); err != nil {
					return err
				}
			}

			router, err := newRouter(a.cfg, db, a.logger, metrics.New())
			if err != nil {
				return err
			}

			srv := &http.Server{
				Addr:              ":" + a.cfg.Server.Port,
				Handler:           router,
				ReadHeaderTimeout: 10 * time.Second,
			}
			errCh := make(chan error, 1)
			go func() {
				a.logger.WithFields(logrus.Fields{
					"addr":        srv.Addr,
					"environment": a.cfg.Environment,
					"production":  a.cfg.IsProduction(),
				}).Info("carrier directory API starting")
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					errCh <- err
				}
				close(errCh)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().BoolVar(&migrate, "migrate", false, "apply migrations before serving")
	return cmd
}
