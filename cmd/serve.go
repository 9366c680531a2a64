package cmd

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/samber/do"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yz4230/sitehost/internal/config"
	"github.com/yz4230/sitehost/internal/server"
	"github.com/yz4230/sitehost/internal/usecase"
)

const shutdownTimeout = 30 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the deployment API",
	Run: func(cmd *cobra.Command, args []string) {
		appConfig, err := config.Load(viper.GetViper())
		if err != nil {
			log.Fatal().Err(err).Msg("load config")
		}

		injector := server.NewInjector(appConfig, log.Logger)
		if _, err := do.Invoke[usecase.DeployOrderItemUsecase](injector); err != nil {
			log.Fatal().Err(err).Msg("wire deployment pipeline")
		}

		cfg := &server.Config{Port: appConfig.Port, Logger: log.Logger, Injector: injector}
		srv := server.New(cfg)
		chSignal := make(chan os.Signal, 1)
		signal.Notify(chSignal, os.Interrupt, syscall.SIGTERM)

		wg := &sync.WaitGroup{}
		wg.Go(func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				cfg.Logger.Fatal().Err(err).Msg("server error")
			}
		})

		sig := <-chSignal
		cfg.Logger.Info().Str("signal", sig.String()).Msg("shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Stop(ctx); err != nil {
			cfg.Logger.Error().Err(err).Msg("error during server shutdown")
		}

		wg.Wait()
		cfg.Logger.Info().Msg("server stopped")
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	lo.Must0(viper.BindPFlag("port", serveCmd.Flags().Lookup("port")))
}
