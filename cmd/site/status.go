package site

import (
	"encoding/json"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/usecase"
)

var statusFlags struct {
	json bool
}

var statusCmd = &cobra.Command{
	Use:          "status <order-item-id>",
	Short:        "Show the deployment of an order item",
	Args:         cobra.ExactArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := entity.ParseID(args[0])
		if err != nil {
			return err
		}
		ctx, injector, closeFn, err := session(cmd)
		if err != nil {
			return err
		}
		defer closeFn()

		unit, err := do.MustInvoke[usecase.GetDeploymentUsecase](injector).Execute(ctx, id)
		if err != nil {
			return err
		}
		if statusFlags.json {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(unit)
		}
		printUnit(cmd.OutOrStdout(), unit)
		return nil
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false, "Print the deployment as JSON")
}
