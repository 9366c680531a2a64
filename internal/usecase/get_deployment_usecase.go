package usecase

import (
	"context"

	"github.com/samber/do"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/repository"
)

type GetDeploymentUsecase interface {
	Execute(ctx context.Context, orderItemID entity.ID) (*entity.DeploymentUnit, error)
}

type getDeploymentUsecaseImpl struct {
	items repository.OrderItemRepository
}

// Execute implements GetDeploymentUsecase.
func (g *getDeploymentUsecaseImpl) Execute(ctx context.Context, id entity.ID) (*entity.DeploymentUnit, error) {
	return g.items.GetOrderItem(ctx, id)
}

func NewGetDeploymentUsecase(injector *do.Injector) (GetDeploymentUsecase, error) {
	return &getDeploymentUsecaseImpl{
		items: do.MustInvoke[repository.OrderItemRepository](injector),
	}, nil
}
