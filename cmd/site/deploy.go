package site

import (
	"errors"
	"fmt"

	"github.com/samber/do"
	"github.com/spf13/cobra"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/usecase"
)

var errDeployFailed = errors.New("deployment failed")

var deployCmd = &cobra.Command{
	Use:           "deploy <order-item-id>",
	Short:         "Build and publish the site of one order item",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
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

		result := do.MustInvoke[usecase.DeployOrderItemUsecase](injector).Execute(ctx, id)
		printResult(cmd.OutOrStdout(), result)
		if !result.OK {
			return errDeployFailed
		}
		return nil
	},
}

var deployOrderCmd = &cobra.Command{
	Use:           "deploy-order <order-id>",
	Short:         "Build and publish the sites of every item of an order",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
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

		results, err := do.MustInvoke[usecase.DeployOrderUsecase](injector).Execute(ctx, id)
		if err != nil {
			printError(cmd.ErrOrStderr(), err)
			return err
		}
		failed := printResults(cmd.OutOrStdout(), results)
		if failed > 0 {
			return fmt.Errorf("%d of %d items: %w", failed, len(results), errDeployFailed)
		}
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:           "delete <order-item-id>",
	Short:         "Take the site of a deployed order item down",
	Args:          cobra.ExactArgs(1),
	SilenceErrors: true,
	SilenceUsage:  true,
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

		result := do.MustInvoke[usecase.DeleteDeploymentUsecase](injector).Execute(ctx, id)
		printResult(cmd.OutOrStdout(), result)
		if !result.OK {
			return errors.New(result.Message)
		}
		return nil
	},
}
