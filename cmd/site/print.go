package site

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/yz4230/sitehost/internal/entity"
)

var (
	green  = color.New(color.FgGreen, color.Bold)
	red    = color.New(color.FgRed, color.Bold)
	yellow = color.New(color.FgYellow)
	faint  = color.New(color.Faint)
)

func printResult(w io.Writer, result entity.DeployResult) {
	if result.OK {
		green.Fprint(w, "✓ ")
		fmt.Fprintf(w, "%s: %s\n", result.OrderItemID, result.Message)
		if result.DeploymentURL != "" {
			fmt.Fprintf(w, "  %s\n", result.DeploymentURL)
		}
		return
	}

	red.Fprint(w, "✗ ")
	fmt.Fprintf(w, "%s: %s", result.OrderItemID, result.Message)
	if result.Kind != entity.FailureNone {
		faint.Fprintf(w, " (%s)", result.Kind)
	}
	fmt.Fprintln(w)
	if result.Output != "" {
		faint.Fprintln(w, result.Output)
	}
}

// printResults prints one line per result and a summary; it returns the
// number of failed items.
func printResults(w io.Writer, results []entity.DeployResult) int {
	failed := 0
	for _, result := range results {
		printResult(w, result)
		if !result.OK {
			failed++
		}
	}
	fmt.Fprintf(w, "%d/%d deployed\n", len(results)-failed, len(results))
	return failed
}

func printError(w io.Writer, err error) {
	red.Fprint(w, "error: ")
	fmt.Fprintln(w, err)
}

func statusColor(status entity.DeploymentStatus) *color.Color {
	switch status {
	case entity.DeploymentStatusDeployed:
		return green
	case entity.DeploymentStatusFailed:
		return red
	case entity.DeploymentStatusBuilding, entity.DeploymentStatusDeploying:
		return yellow
	}
	return faint
}

func printUnit(w io.Writer, unit *entity.DeploymentUnit) {
	fmt.Fprintf(w, "order item  %s\n", unit.ID)
	fmt.Fprintf(w, "order       %s (paid: %t)\n", unit.OrderID, unit.IsOrderPaid)
	fmt.Fprintf(w, "template    %s/%s\n", unit.TemplateType, unit.TemplateSlug)
	fmt.Fprintf(w, "site        %s\n", unit.SiteName())
	fmt.Fprint(w, "status      ")
	statusColor(unit.Status).Fprintln(w, unit.Status)
	if unit.Subdomain != "" {
		fmt.Fprintf(w, "subdomain   %s\n", unit.Subdomain)
	}
	if unit.DeploymentURL != "" {
		fmt.Fprintf(w, "url         %s\n", unit.DeploymentURL)
	}
	if unit.DeployedAt != nil {
		fmt.Fprintf(w, "deployed at %s\n", unit.DeployedAt.Format(time.RFC3339))
	}
}
