package entity

import "time"

type Product struct {
	ID           ID     `json:"id"`
	Title        string `json:"title"`
	Slug         string `json:"slug"`
	TemplateType string `json:"template_type"`
}

type Order struct {
	ID     ID         `json:"id"`
	IsPaid bool       `json:"is_paid"`
	PaidAt *time.Time `json:"paid_at,omitempty"`
}

// OrderItem is a purchased template together with the buyer's configuration.
type OrderItem struct {
	ID         ID         `json:"id"`
	OrderID    ID         `json:"order_id"`
	ProductID  ID         `json:"product_id"`
	SiteConfig SiteConfig `json:"site_config"`
}
