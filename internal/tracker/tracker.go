// Package tracker owns the deployment status of order items. Every status
// write goes through it so that the transition table is enforced.
package tracker

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/yz4230/sitehost/internal/entity"
	"github.com/yz4230/sitehost/internal/repository"
)

type Option func(*entity.DeploymentPatch)

func WithURL(url string) Option {
	return func(p *entity.DeploymentPatch) { p.DeploymentURL = url }
}

func WithSubdomain(subdomain string) Option {
	return func(p *entity.DeploymentPatch) { p.Subdomain = subdomain }
}

type Tracker interface {
	// SetStatus moves an order item to status. The move must be allowed from
	// the stored status and is written only if nobody changed it meanwhile.
	SetStatus(ctx context.Context, id entity.ID, status entity.DeploymentStatus, opts ...Option) error
	// MarkFailed moves the item to failed when it is mid-deploy. Errors are
	// logged, never returned: it runs on paths that already failed.
	MarkFailed(ctx context.Context, id entity.ID)
	// Reset moves a rest state back to pending and clears the published url,
	// subdomain and deploy time.
	Reset(ctx context.Context, id entity.ID) error
	Current(ctx context.Context, id entity.ID) (entity.DeploymentStatus, error)
}

type trackerImpl struct {
	items repository.OrderItemRepository
	now   func() time.Time
	log   zerolog.Logger
}

func NewTracker(items repository.OrderItemRepository, log zerolog.Logger) Tracker {
	return &trackerImpl{items: items, now: time.Now, log: log}
}

// SetStatus implements Tracker.
func (t *trackerImpl) SetStatus(ctx context.Context, id entity.ID, status entity.DeploymentStatus, opts ...Option) error {
	current, err := t.Current(ctx, id)
	if err != nil {
		return err
	}
	if err := current.ValidateTransition(status); err != nil {
		return fmt.Errorf("order item %s: %w", id, err)
	}

	patch := entity.DeploymentPatch{Status: status}
	for _, opt := range opts {
		opt(&patch)
	}
	if status == entity.DeploymentStatusDeployed {
		now := t.now().UTC()
		patch.DeployedAt = &now
	}

	if err := t.items.UpdateDeployment(ctx, id, current, patch); err != nil {
		return fmt.Errorf("set status %s: %w", status, err)
	}
	t.log.Debug().
		Str("order_item_id", id.String()).
		Str("from", current.String()).
		Str("status", status.String()).
		Msg("deployment status changed")
	return nil
}

// MarkFailed implements Tracker.
func (t *trackerImpl) MarkFailed(ctx context.Context, id entity.ID) {
	// the failure is recorded even when the caller gave up
	ctx = context.WithoutCancel(ctx)

	current, err := t.Current(ctx, id)
	if err != nil {
		t.log.Error().Err(err).Str("order_item_id", id.String()).Msg("failed to read status before marking failed")
		return
	}
	if !current.CanTransitionTo(entity.DeploymentStatusFailed) {
		return
	}
	if err := t.items.UpdateDeployment(ctx, id, current, entity.DeploymentPatch{Status: entity.DeploymentStatusFailed}); err != nil {
		t.log.Error().Err(err).Str("order_item_id", id.String()).Msg("failed to mark deployment failed")
		return
	}
	t.log.Debug().Str("order_item_id", id.String()).Str("from", current.String()).Msg("deployment marked failed")
}

// Reset implements Tracker.
func (t *trackerImpl) Reset(ctx context.Context, id entity.ID) error {
	current, err := t.Current(ctx, id)
	if err != nil {
		return err
	}
	if err := current.ValidateTransition(entity.DeploymentStatusPending); err != nil {
		return fmt.Errorf("order item %s: %w", id, err)
	}
	if err := t.items.ResetDeployment(ctx, id, current); err != nil {
		return fmt.Errorf("reset deployment: %w", err)
	}
	return nil
}

// Current implements Tracker.
func (t *trackerImpl) Current(ctx context.Context, id entity.ID) (entity.DeploymentStatus, error) {
	unit, err := t.items.GetOrderItem(ctx, id)
	if err != nil {
		return "", err
	}
	return unit.Status, nil
}
