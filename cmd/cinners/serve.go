package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anon55555/cinners"
	"github.com/anon55555/cinners/server"
	"github.com/anon55555/cinners/store"
)

func serveCmd(cfgPath *string) *cobra.Command {
	var listen, admin string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the chat server",
		Long: `Run the chat server.

Examples:
  cinners serve
  cinners serve --listen 0.0.0.0:1044 --admin localhost:9090`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup(*cfgPath)
			if err != nil {
				return err
			}
			if listen != "" {
				cfg.Listen = listen
			}
			if admin != "" {
				cfg.AdminAddr = admin
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			pc, err := listenPacket(cfg, cfg.Listen)
			if err != nil {
				return err
			}

			srv := server.New(store.New(),
				server.WithLogger(log),
				server.WithDisconnectAttempts(cfg.DisconnectAttempts),
			)

			if cfg.AdminAddr != "" {
				hs := &http.Server{
					Addr:              cfg.AdminAddr,
					Handler:           srv.AdminHandler(),
					ReadHeaderTimeout: 5 * time.Second,
				}
				go func() {
					log.Info("admin API listening", "addr", cfg.AdminAddr)
					if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						log.Error("admin API", "err", err)
					}
				}()
				defer func() {
					ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer cancel()
					hs.Shutdown(ctx)
				}()
			}

			err = srv.Serve(ctx, cinners.Listen(pc, cfg.RDT(log)))
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&listen, "listen", "l", "", "UDP address to listen on (default from config)")
	cmd.Flags().StringVar(&admin, "admin", "", "HTTP address of the admin API (default from config)")

	return cmd
}
