package site

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/samber/do"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/yz4230/sitehost/internal/config"
	"github.com/yz4230/sitehost/internal/server"
)

// SiteCmd groups the operator commands working on single deployments
var SiteCmd = &cobra.Command{
	Use:   "site",
	Short: "Deploy, inspect and delete order item sites",
}

func init() {
	SiteCmd.AddCommand(deployCmd)
	SiteCmd.AddCommand(deployOrderCmd)
	SiteCmd.AddCommand(deleteCmd)
	SiteCmd.AddCommand(statusCmd)
}

// session wires the same container the server uses. Interrupts cancel the
// returned context; call close when done.
func session(cmd *cobra.Command) (context.Context, *do.Injector, func(), error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, nil, nil, err
	}
	injector := server.NewInjector(cfg, log.Logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	ctx = log.Logger.WithContext(ctx)
	closeFn := func() {
		stop()
		if err := injector.Shutdown(); err != nil {
			log.Warn().Err(err).Msg("shutdown services")
		}
	}
	return ctx, injector, closeFn, nil
}
