package repository

import (
	"context"
	"fmt"

	"github.com/yz4230/sitehost/internal/entity"
	"gorm.io/gorm"
)

// OrderItemRepository is the order store as seen by the deployment pipeline.
type OrderItemRepository interface {
	// GetOrderItem returns the deployment snapshot of an order item with its
	// order and product joined in.
	GetOrderItem(ctx context.Context, id entity.ID) (*entity.DeploymentUnit, error)
	// ListOrderItems returns the items of an order in creation order.
	ListOrderItems(ctx context.Context, orderID entity.ID) ([]*entity.DeploymentUnit, error)
	// UpdateDeployment writes patch only if the stored status is still from.
	// It returns entity.ErrConflict when another writer got there first.
	UpdateDeployment(ctx context.Context, id entity.ID, from entity.DeploymentStatus, patch entity.DeploymentPatch) error
	// ResetDeployment moves the item back to pending and clears its url,
	// subdomain and deploy time, again conditional on from.
	ResetDeployment(ctx context.Context, id entity.ID, from entity.DeploymentStatus) error
}

type orderItemRepositoryImpl struct {
	db *gorm.DB
}

func NewOrderItemRepository(db *gorm.DB) OrderItemRepository {
	return &orderItemRepositoryImpl{db: db}
}

// GetOrderItem implements OrderItemRepository.
func (r *orderItemRepositoryImpl) GetOrderItem(ctx context.Context, id entity.ID) (*entity.DeploymentUnit, error) {
	var model OrderItem
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Product").
		Where("id = ?", id.String()).
		First(&model).Error
	if err != nil {
		return nil, mapError(err)
	}
	return model.ToEntity(), nil
}

// ListOrderItems implements OrderItemRepository.
func (r *orderItemRepositoryImpl) ListOrderItems(ctx context.Context, orderID entity.ID) ([]*entity.DeploymentUnit, error) {
	if _, err := gorm.G[Order](r.db).Where("id = ?", orderID.String()).First(ctx); err != nil {
		return nil, mapError(err)
	}

	var founds []OrderItem
	err := r.db.WithContext(ctx).
		Preload("Order").
		Preload("Product").
		Where("order_id = ?", orderID.String()).
		Order("created_at, id").
		Find(&founds).Error
	if err != nil {
		return nil, mapError(err)
	}
	res := make([]*entity.DeploymentUnit, len(founds))
	for i, f := range founds {
		res[i] = f.ToEntity()
	}
	return res, nil
}

// UpdateDeployment implements OrderItemRepository.
func (r *orderItemRepositoryImpl) UpdateDeployment(ctx context.Context, id entity.ID, from entity.DeploymentStatus, patch entity.DeploymentPatch) error {
	updates := map[string]any{"deployment_status": patch.Status.String()}
	if patch.DeploymentURL != "" {
		updates["deployment_url"] = patch.DeploymentURL
	}
	if patch.Subdomain != "" {
		updates["subdomain"] = patch.Subdomain
	}
	if patch.DeployedAt != nil {
		updates["deployed_at"] = *patch.DeployedAt
	}
	return r.update(ctx, id, from, updates)
}

// ResetDeployment implements OrderItemRepository.
func (r *orderItemRepositoryImpl) ResetDeployment(ctx context.Context, id entity.ID, from entity.DeploymentStatus) error {
	return r.update(ctx, id, from, map[string]any{
		"deployment_status": entity.DeploymentStatusPending.String(),
		"deployment_url":    nil,
		"subdomain":         nil,
		"deployed_at":       nil,
	})
}

func knownStatuses() []string {
	statuses := entity.DeploymentStatuses()
	known := make([]string, len(statuses))
	for i, s := range statuses {
		known[i] = s.String()
	}
	return known
}

func (r *orderItemRepositoryImpl) update(ctx context.Context, id entity.ID, from entity.DeploymentStatus, updates map[string]any) error {
	tx := r.db.WithContext(ctx).Model(&OrderItem{}).Where("id = ?", id.String())
	switch from {
	case entity.DeploymentStatusPending:
		// rows written before the column had a default
		tx = tx.Where("deployment_status = ? OR deployment_status = '' OR deployment_status IS NULL", from.String())
	case entity.DeploymentStatusFailed:
		// unknown stored values read as failed
		tx = tx.Where("deployment_status = ? OR (deployment_status <> '' AND deployment_status NOT IN ?)", from.String(), knownStatuses())
	default:
		tx = tx.Where("deployment_status = ?", from.String())
	}

	res := tx.Updates(updates)
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		if _, err := gorm.G[OrderItem](r.db).Where("id = ?", id.String()).First(ctx); err != nil {
			return mapError(err)
		}
		return fmt.Errorf("order item %s is no longer %s: %w", id, from, entity.ErrConflict)
	}
	return nil
}
