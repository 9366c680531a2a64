// Package site derives the per-site identifiers and build configuration of a
// deployment from an order item.
package site

import (
	"strings"

	"github.com/yz4230/sitehost/internal/utils"
)

const (
	maxSlugLength  = 30
	idSuffixLength = 8
)

// GenerateSubdomain derives the subdomain of an order item from its site name.
// The result is deterministic, at most 39 characters long and only contains
// [a-z0-9-]. It is not guaranteed to be globally unique.
func GenerateSubdomain(siteName, orderItemID string) string {
	// hyphens are trimmed before truncation only, so a cut right after a
	// hyphen keeps it
	slug := utils.Slugify(siteName)
	if len(slug) > maxSlugLength {
		slug = slug[:maxSlugLength]
	}

	suffix := idSuffix(orderItemID)
	switch {
	case slug == "":
		return suffix
	case suffix == "":
		return slug
	}
	return slug + "-" + suffix
}

func idSuffix(id string) string {
	r := []rune(strings.ToLower(id))
	if len(r) > idSuffixLength {
		r = r[:idSuffixLength]
	}
	return strings.Map(func(c rune) rune {
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') {
			return c
		}
		return '-'
	}, string(r))
}
