package entity

import (
	"fmt"
	"maps"
	"slices"
	"time"
)

type DeploymentStatus string

const (
	DeploymentStatusPending   DeploymentStatus = "pending"
	DeploymentStatusBuilding  DeploymentStatus = "building"
	DeploymentStatusDeploying DeploymentStatus = "deploying"
	DeploymentStatusDeployed  DeploymentStatus = "deployed"
	DeploymentStatusFailed    DeploymentStatus = "failed"
)

// deploymentTransitions lists the statuses reachable from each status.
// deployed and failed are rest states: both accept a new attempt, and both
// can be reset to pending when the deployment is deleted.
var deploymentTransitions = map[DeploymentStatus][]DeploymentStatus{
	DeploymentStatusPending:   {DeploymentStatusBuilding},
	DeploymentStatusBuilding:  {DeploymentStatusDeploying, DeploymentStatusFailed},
	DeploymentStatusDeploying: {DeploymentStatusDeployed, DeploymentStatusFailed},
	DeploymentStatusDeployed:  {DeploymentStatusBuilding, DeploymentStatusPending},
	DeploymentStatusFailed:    {DeploymentStatusBuilding, DeploymentStatusPending},
}

func ParseDeploymentStatus(s string) (DeploymentStatus, error) {
	if s == "" {
		return DeploymentStatusPending, nil
	}
	status := DeploymentStatus(s)
	if !status.Valid() {
		return "", fmt.Errorf("unknown deployment status %q: %w", s, ErrInvalid)
	}
	return status, nil
}

// DeploymentStatuses returns every known status in lexical order.
func DeploymentStatuses() []DeploymentStatus {
	statuses := slices.Collect(maps.Keys(deploymentTransitions))
	slices.Sort(statuses)
	return statuses
}

func (s DeploymentStatus) Valid() bool {
	_, ok := deploymentTransitions[s]
	return ok
}

func (s DeploymentStatus) String() string { return string(s) }

// InProgress reports whether a deploy is running for the record.
func (s DeploymentStatus) InProgress() bool {
	return s == DeploymentStatusBuilding || s == DeploymentStatusDeploying
}

func (s DeploymentStatus) CanTransitionTo(next DeploymentStatus) bool {
	return slices.Contains(deploymentTransitions[s], next)
}

// ValidateTransition returns ErrInvalidTransition when next is not reachable from s.
func (s DeploymentStatus) ValidateTransition(next DeploymentStatus) error {
	if !s.CanTransitionTo(next) {
		return fmt.Errorf("%s -> %s: %w", s, next, ErrInvalidTransition)
	}
	return nil
}

// DeploymentUnit is the per-invocation snapshot of an order item the pipeline works on.
type DeploymentUnit struct {
	ID            ID               `json:"id"`
	OrderID       ID               `json:"order_id"`
	IsOrderPaid   bool             `json:"is_order_paid"`
	TemplateType  string           `json:"template_type"`
	TemplateSlug  string           `json:"template_slug"`
	ProductTitle  string           `json:"product_title"`
	SiteConfig    SiteConfig       `json:"site_config"`
	Status        DeploymentStatus `json:"deployment_status"`
	DeploymentURL string           `json:"deployment_url,omitempty"`
	Subdomain     string           `json:"subdomain,omitempty"`
	DeployedAt    *time.Time       `json:"deployed_at,omitempty"`
}

// SiteName returns the configured site name, falling back to the product title.
func (u *DeploymentUnit) SiteName() string {
	if name := u.SiteConfig.String("siteName"); name != "" {
		return name
	}
	return u.ProductTitle
}

// DeploymentPatch carries the optional fields written alongside a status change.
// Empty fields are left untouched.
type DeploymentPatch struct {
	Status        DeploymentStatus
	DeploymentURL string
	Subdomain     string
	DeployedAt    *time.Time
}
