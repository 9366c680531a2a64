package usecase

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/samber/do"
	"github.com/sourcegraph/conc/iter"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/repository"
)

type DeployOrderUsecase interface {
	// Execute deploys every item of an order and returns one result per item,
	// in item order. One failing item never stops the others; the error is
	// set only when the items cannot be listed.
	Execute(ctx context.Context, orderID entity.ID) ([]entity.DeployResult, error)
}

type deployOrderUsecaseImpl struct {
	items   repository.OrderItemRepository
	deploy  DeployOrderItemUsecase
	options DeployOptions
	log     zerolog.Logger
}

// Execute implements DeployOrderUsecase.
func (u *deployOrderUsecaseImpl) Execute(ctx context.Context, orderID entity.ID) ([]entity.DeployResult, error) {
	units, err := u.items.ListOrderItems(ctx, orderID)
	if err != nil {
		return nil, err
	}
	u.log.Info().Str("order_id", orderID.String()).Int("items", len(units)).Msg("deploying order")

	deployOne := func(unit **entity.DeploymentUnit) entity.DeployResult {
		return u.deploy.Execute(ctx, (*unit).ID)
	}
	if u.options.Concurrency <= 1 {
		results := make([]entity.DeployResult, len(units))
		for i := range units {
			results[i] = deployOne(&units[i])
		}
		return results, nil
	}
	mapper := iter.Mapper[*entity.DeploymentUnit, entity.DeployResult]{MaxGoroutines: u.options.Concurrency}
	return mapper.Map(units, deployOne), nil
}

func NewDeployOrderUsecase(injector *do.Injector) (DeployOrderUsecase, error) {
	return &deployOrderUsecaseImpl{
		items:   do.MustInvoke[repository.OrderItemRepository](injector),
		deploy:  do.MustInvoke[DeployOrderItemUsecase](injector),
		options: do.MustInvoke[DeployOptions](injector),
		log:     do.MustInvoke[zerolog.Logger](injector),
	}, nil
}
