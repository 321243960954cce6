package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cqframework/cqftooling/cmd/drool/api"
	"github.com/spf13/cobra"
)

func serveCmd(envFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the conversion over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, *envFile)
			if err != nil {
				return err
			}

			log := newLogger(os.Stdout, cfg.Level())
			svc, err := newServices(cfg, log)
			if err != nil {
				return err
			}

			cacheConfig := api.DefaultCacheConfig()
			cacheConfig.Enabled = cfg.CacheTTL > 0
			cacheConfig.TTL = cfg.CacheTTL
			cacheConfig.MaxSize = cfg.CacheMaxSize
			cache := api.NewResultCache(cacheConfig, log)
			defer cache.Stop()

			router := api.NewDroolRouter(svc.generator, svc.renderer, svc.valueSets, svc.table, cache, cfg.LibraryName, log)
			server := &http.Server{
				Addr:              cfg.HTTPAddr,
				Handler:           router.SetupRoutes(),
				ReadHeaderTimeout: 10 * time.Second,
				ReadTimeout:       cfg.HTTPTimeout,
				WriteTimeout:      cfg.HTTPTimeout,
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				log.Info().Str("addr", cfg.HTTPAddr).Msg("Server started")
				errCh <- server.ListenAndServe()
			}()

			select {
			case err := <-errCh:
				if !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("server failed: %w", err)
				}
				return nil
			case <-ctx.Done():
			}

			log.Info().Msg("Shutting down server")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("failed to shut down server: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().String("addr", ":8080", "Listen address")
	return cmd
}
