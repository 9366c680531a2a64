package server

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/samber/do"
	"gorm.io/gorm"

	"github.com/yz4230/sitehost/internal/builder"
	"github.com/yz4230/sitehost/internal/config"
	"github.com/yz4230/sitehost/internal/locker"
	"github.com/yz4230/sitehost/internal/metrics"
	"github.com/yz4230/sitehost/internal/notify"
	"github.com/yz4230/sitehost/internal/publisher"
	"github.com/yz4230/sitehost/internal/repository"
	"github.com/yz4230/sitehost/internal/storage"
	"github.com/yz4230/sitehost/internal/tracker"
	"github.com/yz4230/sitehost/internal/usecase"
)

// NewInjector wires the deployment pipeline from cfg. Services are built
// lazily, so commands that never publish do not need AWS settings.
func NewInjector(cfg *config.Config, log zerolog.Logger) *do.Injector {
	injector := do.New()
	injectDependencies(injector, cfg, log)
	return injector
}

func injectDependencies(injector *do.Injector, cfg *config.Config, log zerolog.Logger) {
	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, log)
	do.ProvideValue(injector, usecase.DeployOptions{
		BuildTimeout:   cfg.Build.Timeout,
		CheckCollision: cfg.Deploy.CheckCollision,
		Concurrency:    cfg.Deploy.Concurrency,
	})

	do.Provide(injector, func(i *do.Injector) (*gorm.DB, error) {
		return repository.NewDB(cfg.Database.URL)
	})
	do.Provide(injector, func(i *do.Injector) (repository.OrderItemRepository, error) {
		db := do.MustInvoke[*gorm.DB](i)
		return repository.NewOrderItemRepository(db), nil
	})
	do.Provide(injector, func(i *do.Injector) (repository.OrderRepository, error) {
		db := do.MustInvoke[*gorm.DB](i)
		return repository.NewOrderRepository(db), nil
	})
	do.Provide(injector, func(i *do.Injector) (tracker.Tracker, error) {
		items := do.MustInvoke[repository.OrderItemRepository](i)
		return tracker.NewTracker(items, log), nil
	})

	do.Provide(injector, func(i *do.Injector) (storage.Workspace, error) {
		return storage.NewOSWorkspace(cfg.Templates.Root, log)
	})
	do.Provide(injector, func(i *do.Injector) (builder.Runner, error) {
		if cfg.Build.Runner == config.RunnerDocker {
			return builder.NewDockerRunner(cfg.Build.Image, log)
		}
		return builder.NewExecRunner(), nil
	})
	do.Provide(injector, func(i *do.Injector) (builder.Builder, error) {
		runner := do.MustInvoke[builder.Runner](i)
		return builder.NewBuilder(runner, builder.Config{
			InstallCommand: cfg.Build.InstallCommand,
			BuildCommand:   cfg.Build.Command,
		}, log), nil
	})

	do.Provide(injector, func(i *do.Injector) (publisher.S3API, error) {
		return publisher.NewS3Client(context.Background(), publisher.ClientConfig{
			Region:          cfg.AWS.Region,
			AccessKeyID:     cfg.AWS.AccessKeyID,
			SecretAccessKey: cfg.AWS.SecretAccessKey,
			Endpoint:        cfg.AWS.Endpoint,
			PathStyle:       cfg.AWS.PathStyle,
		})
	})
	do.Provide(injector, func(i *do.Injector) (publisher.Publisher, error) {
		if cfg.AWS.Bucket == "" {
			return nil, errors.New("aws.bucket is not configured")
		}
		client := do.MustInvoke[publisher.S3API](i)
		ws := do.MustInvoke[storage.Workspace](i)
		return publisher.NewPublisher(client, ws.Filesystem(), publisher.Config{
			Bucket:    cfg.AWS.Bucket,
			Region:    cfg.AWS.Region,
			CDNDomain: cfg.CDN.Domain,
		}, log), nil
	})

	do.Provide(injector, func(i *do.Injector) (locker.Locker, error) {
		if cfg.Redis.Addr == "" {
			return locker.NewMemoryLocker(), nil
		}
		client, err := locker.NewRedisClient(context.Background(), cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
		return locker.NewRedisLocker(client, log), nil
	})
	do.Provide(injector, func(i *do.Injector) (*notify.Hub, error) {
		return notify.NewHub(log), nil
	})
	do.Provide(injector, func(i *do.Injector) (notify.Notifier, error) {
		hub := do.MustInvoke[*notify.Hub](i)
		return notify.Multi{notify.NewLogNotifier(log), hub}, nil
	})
	do.Provide(injector, func(i *do.Injector) (*metrics.Metrics, error) {
		return metrics.New(), nil
	})

	do.Provide(injector, usecase.NewDeployOrderItemUsecase)
	do.Provide(injector, usecase.NewDeployOrderUsecase)
	do.Provide(injector, usecase.NewDeleteDeploymentUsecase)
	do.Provide(injector, usecase.NewGetDeploymentUsecase)
}
