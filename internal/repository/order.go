package repository

import (
	"context"
	"time"

	"github.com/yz4230/sitehost/internal/entity"
	"gorm.io/gorm"
)

// OrderRepository writes the checkout side of the order store: orders,
// products and the items linking them.
type OrderRepository interface {
	CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error)
	CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error)
	CreateOrderItem(ctx context.Context, item *entity.OrderItem) (*entity.OrderItem, error)
	MarkPaid(ctx context.Context, orderID entity.ID, at time.Time) error
}

type orderRepositoryImpl struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepositoryImpl{db: db}
}

// CreateOrder implements OrderRepository.
func (r *orderRepositoryImpl) CreateOrder(ctx context.Context, order *entity.Order) (*entity.Order, error) {
	var model Order
	model.FromEntity(order)
	if err := gorm.G[Order](r.db).Create(ctx, &model); err != nil {
		return nil, mapError(err)
	}
	return model.ToEntity(), nil
}

// CreateProduct implements OrderRepository.
func (r *orderRepositoryImpl) CreateProduct(ctx context.Context, product *entity.Product) (*entity.Product, error) {
	var model Product
	model.FromEntity(product)
	if err := gorm.G[Product](r.db).Create(ctx, &model); err != nil {
		return nil, mapError(err)
	}
	return model.ToEntity(), nil
}

// CreateOrderItem implements OrderRepository.
func (r *orderRepositoryImpl) CreateOrderItem(ctx context.Context, item *entity.OrderItem) (*entity.OrderItem, error) {
	var model OrderItem
	if err := model.FromEntity(item); err != nil {
		return nil, err
	}
	if err := gorm.G[OrderItem](r.db).Create(ctx, &model); err != nil {
		return nil, mapError(err)
	}
	created := *item
	created.ID = entity.ID(model.ID)
	return &created, nil
}

// MarkPaid implements OrderRepository.
func (r *orderRepositoryImpl) MarkPaid(ctx context.Context, orderID entity.ID, at time.Time) error {
	res := r.db.WithContext(ctx).Model(&Order{}).
		Where("id = ?", orderID.String()).
		Updates(map[string]any{"is_paid": true, "paid_at": at})
	if res.Error != nil {
		return mapError(res.Error)
	}
	if res.RowsAffected == 0 {
		return entity.ErrNotFound
	}
	return nil
}
