package site

import (
	"bytes"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"

	"github.com/yz4230/sitehost/internal/entity"
)

func init() {
	color.NoColor = true
}

func TestPrintResult(t *testing.T) {
	var buf bytes.Buffer
	printResult(&buf, entity.Succeeded("item-1", "site deployed successfully", "https://cdn.example.com/mi-tienda/index.html"))
	assert.Equal(t, "✓ item-1: site deployed successfully\n  https://cdn.example.com/mi-tienda/index.html\n", buf.String())

	buf.Reset()
	result := entity.DeployResult{
		OrderItemID: "item-2",
		Message:     "build failed",
		Kind:        entity.FailureBuildFailed,
		Output:      "Error: missing script: build",
	}
	printResult(&buf, result)
	assert.Equal(t, "✗ item-2: build failed (build_failed)\nError: missing script: build\n", buf.String())
}

func TestPrintResults(t *testing.T) {
	var buf bytes.Buffer
	failed := printResults(&buf, []entity.DeployResult{
		entity.Succeeded("a", "ok", ""),
		{OrderItemID: "b", Message: "the order is not paid", Kind: entity.FailureNotPaid},
		entity.Succeeded("c", "ok", ""),
	})
	assert.Equal(t, 1, failed)
	assert.Contains(t, buf.String(), "2/3 deployed\n")
}

func TestPrintUnit(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	unit := &entity.DeploymentUnit{
		ID:            "item-1",
		OrderID:       "order-1",
		IsOrderPaid:   true,
		TemplateType:  "landing",
		TemplateSlug:  "landing-page-producto",
		ProductTitle:  "Mi Tienda",
		Status:        entity.DeploymentStatusDeployed,
		Subdomain:     "mi-tienda-item-1",
		DeploymentURL: "https://cdn.example.com/mi-tienda-item-1/index.html",
		DeployedAt:    &at,
	}

	var buf bytes.Buffer
	printUnit(&buf, unit)
	out := buf.String()
	assert.Contains(t, out, "template    landing/landing-page-producto\n")
	assert.Contains(t, out, "site        Mi Tienda\n")
	assert.Contains(t, out, "status      deployed\n")
	assert.Contains(t, out, "deployed at 2024-05-01T12:00:00Z\n")
}
