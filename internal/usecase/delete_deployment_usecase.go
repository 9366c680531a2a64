package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/samber/do"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/locker"
	"github.com/yz4230/sitehost/internal/metrics"
	"github.com/yz4230/sitehost/internal/notify"
	"github.com/yz4230/sitehost/internal/publisher"
	"github.com/yz4230/sitehost/internal/repository"
	"github.com/yz4230/sitehost/internal/storage"
	"github.com/yz4230/sitehost/internal/tracker"
)

type DeleteDeploymentUsecase interface {
	// Execute takes a deployed site down: its published objects and build
	// workspace are removed and the item goes back to pending.
	Execute(ctx context.Context, orderItemID entity.ID) entity.DeployResult
}

type deleteDeploymentUsecaseImpl struct {
	items     repository.OrderItemRepository
	tracker   tracker.Tracker
	workspace storage.Workspace
	publisher publisher.Publisher
	locker    locker.Locker
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	log       zerolog.Logger
}

// Execute implements DeleteDeploymentUsecase.
func (u *deleteDeploymentUsecaseImpl) Execute(ctx context.Context, id entity.ID) (result entity.DeployResult) {
	log := u.log.With().Str("order_item_id", id.String()).Logger()
	defer func() { u.metrics.RecordDelete(result) }()

	unlock, err := u.locker.Lock(ctx, id.String())
	if err != nil {
		return entity.Failed(id, "a deployment of this site is in progress", err)
	}
	defer unlock()
	// runs to completion once the lock is held
	ctx = context.WithoutCancel(ctx)

	unit, err := u.items.GetOrderItem(ctx, id)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.Failed(id, "order item not found", err)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load order item")
		return entity.Failed(id, fmt.Sprintf("failed to load order item: %v", err), err)
	}
	if unit.Status != entity.DeploymentStatusDeployed || unit.Subdomain == "" {
		return entity.Failed(id, fmt.Sprintf("only deployed sites can be deleted (status is %s)", unit.Status), entity.ErrNotDeployed)
	}

	deleted, err := u.publisher.DeletePrefix(ctx, unit.Subdomain)
	if err != nil {
		log.Error().Err(err).Str("subdomain", unit.Subdomain).Msg("failed to delete published files")
		return entity.Failed(id, fmt.Sprintf("failed to delete published files: %v", err), fmt.Errorf("%w: %w", entity.ErrPublishFailed, err))
	}
	if err := u.workspace.RemoveBuild(unit.Subdomain); err != nil {
		// the site is already offline; a leftover workspace is only disk space
		log.Warn().Err(err).Str("subdomain", unit.Subdomain).Msg("failed to remove build workspace")
	}
	if err := u.tracker.Reset(ctx, id); err != nil {
		log.Error().Err(err).Msg("failed to reset deployment status")
		return entity.Failed(id, fmt.Sprintf("failed to reset deployment status: %v", err), err)
	}

	log.Info().Str("subdomain", unit.Subdomain).Int("objects", deleted).Msg("deployment deleted")
	u.notifier.OrderStale(ctx, unit.OrderID)
	return entity.Succeeded(id, "deployment deleted", "")
}

func NewDeleteDeploymentUsecase(injector *do.Injector) (DeleteDeploymentUsecase, error) {
	return &deleteDeploymentUsecaseImpl{
		items:     do.MustInvoke[repository.OrderItemRepository](injector),
		tracker:   do.MustInvoke[tracker.Tracker](injector),
		workspace: do.MustInvoke[storage.Workspace](injector),
		publisher: do.MustInvoke[publisher.Publisher](injector),
		locker:    do.MustInvoke[locker.Locker](injector),
		notifier:  do.MustInvoke[notify.Notifier](injector),
		metrics:   do.MustInvoke[*metrics.Metrics](injector),
		log:       do.MustInvoke[zerolog.Logger](injector),
	}, nil
}
