package site

import (
	"regexp"
	"slices"
	"strings"

	"github.com/yz4230/sitehost/internal/entity"
)

const (
	envPrefix = "NEXT_PUBLIC_"
	envHeader = "# generated site configuration"

	DefaultPrimaryColor   = "#3B82F6"
	DefaultSecondaryColor = "#1E40AF"
)

var (
	reNonEnvKey = regexp.MustCompile(`[^A-Z0-9]`)

	// Values end up inside KEY="..." lines read by dotenv loaders, which
	// unescape \\ \" \n and expand $VAR.
	envValueEscaper = strings.NewReplacer(
		`\`, `\\`,
		`"`, `\"`,
		"\n", `\n`,
		"\r", `\r`,
		"$", `\$`,
	)
)

type knownField struct {
	key, env, fallback string
}

var knownFields = []knownField{
	{"siteName", "SITE_NAME", ""},
	{"siteDescription", "SITE_DESCRIPTION", ""},
	{"primaryColor", "PRIMARY_COLOR", DefaultPrimaryColor},
	{"secondaryColor", "SECONDARY_COLOR", DefaultSecondaryColor},
	{"logo", "LOGO_URL", ""},
	{"email", "EMAIL", ""},
	{"phone", "PHONE", ""},
	{"address", "ADDRESS", ""},
}

const socialLinksKey = "socialLinks"

var socialNetworks = []string{"facebook", "twitter", "instagram", "linkedin", "github"}

// GenerateEnvContent renders the site configuration as an env file: the known
// fields in a fixed order, then the populated social links, then every other
// non-empty key in the configuration's own order.
func GenerateEnvContent(cfg entity.SiteConfig) string {
	lines := []string{envHeader}

	for _, f := range knownFields {
		v := cfg.String(f.key)
		if v == "" {
			v = f.fallback
		}
		lines = append(lines, envLine(envPrefix+f.env, v))
	}

	social := cfg.StringMap(socialLinksKey)
	for _, network := range socialNetworks {
		if v := social[network]; v != "" {
			lines = append(lines, envLine(envPrefix+strings.ToUpper(network), v))
		}
	}

	for _, key := range cfg.Keys() {
		if isKnownKey(key) {
			continue
		}
		v := cfg.String(key)
		if v == "" {
			continue
		}
		lines = append(lines, envLine(EnvKey(key), v))
	}

	return strings.Join(lines, "\n")
}

// EnvKey turns a configuration key into a public env variable name.
func EnvKey(key string) string {
	return envPrefix + reNonEnvKey.ReplaceAllString(strings.ToUpper(key), "_")
}

// EscapeEnvValue escapes v for use between double quotes in an env file.
func EscapeEnvValue(v string) string {
	return envValueEscaper.Replace(v)
}

func envLine(key, value string) string {
	return key + `="` + EscapeEnvValue(value) + `"`
}

func isKnownKey(key string) bool {
	if key == socialLinksKey {
		return true
	}
	return slices.ContainsFunc(knownFields, func(f knownField) bool { return f.key == key })
}
