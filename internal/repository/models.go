package repository

import (
	"encoding/json"
	"time"

	"github.com/yz4230/sitehost/internal/entity"
	"gorm.io/gorm"
)

type Order struct {
	ID        string `gorm:"primaryKey;size:36"`
	IsPaid    bool
	PaidAt    *time.Time
	Items     []OrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == "" {
		o.ID = entity.NewID().String()
	}
	return nil
}

func (o *Order) ToEntity() *entity.Order {
	return &entity.Order{
		ID:     entity.ID(o.ID),
		IsPaid: o.IsPaid,
		PaidAt: o.PaidAt,
	}
}

func (o *Order) FromEntity(e *entity.Order) {
	o.ID = e.ID.String()
	o.IsPaid = e.IsPaid
	o.PaidAt = e.PaidAt
}

type Product struct {
	ID           string `gorm:"primaryKey;size:36"`
	Title        string
	Slug         string `gorm:"index"`
	TemplateType string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = entity.NewID().String()
	}
	return nil
}

func (p *Product) ToEntity() *entity.Product {
	return &entity.Product{
		ID:           entity.ID(p.ID),
		Title:        p.Title,
		Slug:         p.Slug,
		TemplateType: p.TemplateType,
	}
}

func (p *Product) FromEntity(e *entity.Product) {
	p.ID = e.ID.String()
	p.Title = e.Title
	p.Slug = e.Slug
	p.TemplateType = e.TemplateType
}

// OrderItem holds the deployment columns the pipeline reads and writes.
// SiteConfig is stored as the JSON document the checkout form produced.
type OrderItem struct {
	ID               string `gorm:"primaryKey;size:36"`
	OrderID          string `gorm:"size:36;index"`
	Order            Order
	ProductID        string `gorm:"size:36"`
	Product          Product
	SiteConfig       string
	DeploymentStatus string `gorm:"size:16;default:pending;index"`
	DeploymentURL    *string
	Subdomain        *string `gorm:"index"`
	DeployedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func (i *OrderItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = entity.NewID().String()
	}
	if i.DeploymentStatus == "" {
		i.DeploymentStatus = entity.DeploymentStatusPending.String()
	}
	return nil
}

// ToEntity builds the deployment snapshot. Order and Product must be preloaded.
// A site config that is not a JSON object is treated as empty: the pipeline
// then falls back to defaults instead of refusing to deploy.
func (i *OrderItem) ToEntity() *entity.DeploymentUnit {
	cfg, err := entity.ParseSiteConfig([]byte(i.SiteConfig))
	if err != nil {
		cfg = entity.NewSiteConfig(nil)
	}
	status, err := entity.ParseDeploymentStatus(i.DeploymentStatus)
	if err != nil {
		status = entity.DeploymentStatusFailed
	}
	return &entity.DeploymentUnit{
		ID:            entity.ID(i.ID),
		OrderID:       entity.ID(i.OrderID),
		IsOrderPaid:   i.Order.IsPaid,
		TemplateType:  i.Product.TemplateType,
		TemplateSlug:  i.Product.Slug,
		ProductTitle:  i.Product.Title,
		SiteConfig:    cfg,
		Status:        status,
		DeploymentURL: deref(i.DeploymentURL),
		Subdomain:     deref(i.Subdomain),
		DeployedAt:    i.DeployedAt,
	}
}

func (i *OrderItem) FromEntity(e *entity.OrderItem) error {
	cfg, err := json.Marshal(e.SiteConfig)
	if err != nil {
		return err
	}
	i.ID = e.ID.String()
	i.OrderID = e.OrderID.String()
	i.ProductID = e.ProductID.String()
	i.SiteConfig = string(cfg)
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
