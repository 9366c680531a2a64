package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/do"

	"github.com/yz4230/sitehost/internal/builder"
	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/locker"
	"github.com/yz4230/sitehost/internal/metrics"
	"github.com/yz4230/sitehost/internal/notify"
	"github.com/yz4230/sitehost/internal/publisher"
	"github.com/yz4230/sitehost/internal/repository"
	"github.com/yz4230/sitehost/internal/site"
	"github.com/yz4230/sitehost/internal/storage"
	"github.com/yz4230/sitehost/internal/tracker"
)

// DeployOptions tunes the deployment pipeline.
type DeployOptions struct {
	// BuildTimeout bounds install plus build; zero means no limit.
	BuildTimeout time.Duration
	// CheckCollision refuses to publish over a subdomain prefix that another
	// order item already occupies.
	CheckCollision bool
	// Concurrency is the number of items of one order deployed at once.
	Concurrency int
}

type DeployOrderItemUsecase interface {
	// Execute runs the whole pipeline for one order item. It never returns
	// an error: failures are reported in the result and mirrored to the
	// item's deployment status. ctx only bounds the wait for the item's
	// lock; once acquired the deployment runs to completion.
	Execute(ctx context.Context, orderItemID entity.ID) entity.DeployResult
}

type deployOrderItemUsecaseImpl struct {
	items     repository.OrderItemRepository
	tracker   tracker.Tracker
	workspace storage.Workspace
	builder   builder.Builder
	publisher publisher.Publisher
	locker    locker.Locker
	notifier  notify.Notifier
	metrics   *metrics.Metrics
	options   DeployOptions
	log       zerolog.Logger
}

// Execute implements DeployOrderItemUsecase.
func (u *deployOrderItemUsecaseImpl) Execute(ctx context.Context, id entity.ID) (result entity.DeployResult) {
	log := u.log.With().Str("order_item_id", id.String()).Logger()
	ctx = log.WithContext(ctx)

	done := u.metrics.DeployStarted()
	defer func() { done(result) }()
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("deployment panicked")
			u.tracker.MarkFailed(ctx, id)
			result = entity.Failed(id, fmt.Sprintf("deployment error: %v", r), entity.ErrInternal)
		}
	}()

	unlock, err := u.locker.Lock(ctx, id.String())
	if err != nil {
		log.Warn().Err(err).Msg("could not acquire deployment lock")
		return entity.Failed(id, "a deployment of this site is already in progress", err)
	}
	defer unlock()

	result = u.deploy(context.WithoutCancel(ctx), id)
	if result.OK {
		log.Info().Str("url", result.DeploymentURL).Msg("site deployed")
	}
	return result
}

func (u *deployOrderItemUsecaseImpl) deploy(ctx context.Context, id entity.ID) entity.DeployResult {
	log := zerolog.Ctx(ctx)

	unit, err := u.items.GetOrderItem(ctx, id)
	if errors.Is(err, entity.ErrNotFound) {
		return entity.Failed(id, "order item not found", err)
	}
	if err != nil {
		log.Error().Err(err).Msg("failed to load order item")
		return entity.Failed(id, fmt.Sprintf("failed to load order item: %v", err), err)
	}
	if !unit.IsOrderPaid {
		return entity.Failed(id, "the order is not paid", entity.ErrNotPaid)
	}

	if unit.Status.InProgress() {
		// we hold the lock, so the previous attempt is gone
		log.Warn().Str("status", unit.Status.String()).Msg("recovering interrupted deployment")
		u.tracker.MarkFailed(ctx, id)
	}

	subdomain := site.GenerateSubdomain(unit.SiteName(), id.String())
	log.UpdateContext(func(c zerolog.Context) zerolog.Context { return c.Str("subdomain", subdomain) })
	log.Info().Msg("starting deployment...")

	if err := u.tracker.SetStatus(ctx, id, entity.DeploymentStatusBuilding, tracker.WithSubdomain(subdomain)); err != nil {
		log.Error().Err(err).Msg("failed to start deployment")
		return entity.Failed(id, fmt.Sprintf("failed to start deployment: %v", err), err)
	}

	if u.options.CheckCollision {
		exists, err := u.publisher.PrefixExists(ctx, subdomain)
		if err != nil {
			return u.fail(ctx, id, "failed to check subdomain availability", fmt.Errorf("%w: %w", entity.ErrPublishFailed, err))
		}
		if exists && unit.Subdomain != subdomain {
			return u.fail(ctx, id, fmt.Sprintf("subdomain %s is already in use", subdomain), entity.ErrConflict)
		}
	}

	source, err := u.workspace.FindTemplateSource(unit.TemplateType, unit.TemplateSlug)
	if err != nil {
		return u.fail(ctx, id, fmt.Sprintf("no template found for %s", unit.TemplateType), err)
	}

	buildDir, err := u.workspace.Prepare(source, subdomain)
	if err != nil {
		return u.fail(ctx, id, fmt.Sprintf("failed to prepare workspace: %v", err), err)
	}
	if err := u.workspace.ConfigureEnvironment(buildDir, unit.SiteConfig); err != nil {
		return u.fail(ctx, id, fmt.Sprintf("failed to write site configuration: %v", err), err)
	}

	buildCtx := ctx
	if u.options.BuildTimeout > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, u.options.BuildTimeout)
		defer cancel()
	}
	log.Info().Str("dir", buildDir).Str("template", source).Msg("building site...")
	if err := u.builder.Build(buildCtx, u.workspace.Abs(buildDir)); err != nil {
		result := u.fail(ctx, id, fmt.Sprintf("build failed: %v", err), err)
		var berr *builder.BuildError
		if errors.As(err, &berr) {
			result.Output = berr.Output()
		}
		return result
	}

	outDir, ok := u.workspace.LocateOutput(buildDir)
	if !ok {
		return u.fail(ctx, id,
			`the build produced no static export; the template must be built with output: "export"`,
			entity.ErrOutputMissing)
	}

	if err := u.tracker.SetStatus(ctx, id, entity.DeploymentStatusDeploying); err != nil {
		return u.fail(ctx, id, fmt.Sprintf("failed to record deployment progress: %v", err), err)
	}
	log.Info().Str("dir", outDir).Msg("publishing site...")
	uploaded, err := u.publisher.Publish(ctx, outDir, subdomain)
	u.metrics.RecordPublished(uploaded)
	if err != nil {
		return u.fail(ctx, id, fmt.Sprintf("failed to publish site: %v", err), err)
	}

	url := u.publisher.GenerateDeploymentURL(subdomain)
	err = u.tracker.SetStatus(ctx, id, entity.DeploymentStatusDeployed,
		tracker.WithURL(url), tracker.WithSubdomain(subdomain))
	if err != nil {
		return u.fail(ctx, id, fmt.Sprintf("failed to record deployment: %v", err), err)
	}

	u.notifier.OrderStale(ctx, unit.OrderID)
	return entity.Succeeded(id, "site deployed successfully", url)
}

// fail mirrors a pipeline failure into the status record and builds the result.
func (u *deployOrderItemUsecaseImpl) fail(ctx context.Context, id entity.ID, message string, err error) entity.DeployResult {
	zerolog.Ctx(ctx).Error().Err(err).Str("kind", string(entity.KindOf(err))).Msg("deployment failed")
	u.tracker.MarkFailed(ctx, id)
	return entity.Failed(id, message, err)
}

func NewDeployOrderItemUsecase(injector *do.Injector) (DeployOrderItemUsecase, error) {
	return &deployOrderItemUsecaseImpl{
		items:     do.MustInvoke[repository.OrderItemRepository](injector),
		tracker:   do.MustInvoke[tracker.Tracker](injector),
		workspace: do.MustInvoke[storage.Workspace](injector),
		builder:   do.MustInvoke[builder.Builder](injector),
		publisher: do.MustInvoke[publisher.Publisher](injector),
		locker:    do.MustInvoke[locker.Locker](injector),
		notifier:  do.MustInvoke[notify.Notifier](injector),
		metrics:   do.MustInvoke[*metrics.Metrics](injector),
		options:   do.MustInvoke[DeployOptions](injector),
		log:       do.MustInvoke[zerolog.Logger](injector),
	}, nil
}
