package site

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yz4230/sitehost/internal/entity"
)

func TestGenerateEnvContentKnownFields(t *testing.T) {
	cfg := entity.NewSiteConfig(map[string]any{"siteName": "Acme", "email": "a@b.com"})
	content := GenerateEnvContent(cfg)
	lines := strings.Split(content, "\n")

	assert.Contains(t, lines, `NEXT_PUBLIC_SITE_NAME="Acme"`)
	assert.Contains(t, lines, `NEXT_PUBLIC_EMAIL="a@b.com"`)
	assert.Contains(t, lines, `NEXT_PUBLIC_PRIMARY_COLOR="#3B82F6"`)
	assert.Contains(t, lines, `NEXT_PUBLIC_SECONDARY_COLOR="#1E40AF"`)
	assert.Contains(t, lines, `NEXT_PUBLIC_PHONE=""`)
	assert.Len(t, lines, 1+len(knownFields))
	assert.False(t, strings.HasSuffix(content, "\n"))
}

func TestGenerateEnvContentOrdering(t *testing.T) {
	cfg, err := entity.ParseSiteConfig([]byte(`{
		"zeta": "last-defined-first",
		"siteName": "Acme",
		"socialLinks": {"github": "https://github.com/acme", "facebook": "https://fb.com/acme", "twitter": ""},
		"opening-hours": "9-18",
		"hidden": "",
		"enabled": false,
		"primaryColor": "#000000"
	}`))
	require.NoError(t, err)

	lines := strings.Split(GenerateEnvContent(cfg), "\n")
	expected := []string{
		envHeader,
		`NEXT_PUBLIC_SITE_NAME="Acme"`,
		`NEXT_PUBLIC_SITE_DESCRIPTION=""`,
		`NEXT_PUBLIC_PRIMARY_COLOR="#000000"`,
		`NEXT_PUBLIC_SECONDARY_COLOR="#1E40AF"`,
		`NEXT_PUBLIC_LOGO_URL=""`,
		`NEXT_PUBLIC_EMAIL=""`,
		`NEXT_PUBLIC_PHONE=""`,
		`NEXT_PUBLIC_ADDRESS=""`,
		`NEXT_PUBLIC_FACEBOOK="https://fb.com/acme"`,
		`NEXT_PUBLIC_GITHUB="https://github.com/acme"`,
		`NEXT_PUBLIC_ZETA="last-defined-first"`,
		`NEXT_PUBLIC_OPENING_HOURS="9-18"`,
	}
	assert.Equal(t, expected, lines)
}

func TestGenerateEnvContentEscapesValues(t *testing.T) {
	cfg := entity.NewSiteConfig(map[string]any{
		"siteName":  "Evil\"\nNEXT_PUBLIC_INJECTED=\"1",
		"address":   `C:\path $HOME`,
		"tagline":   "line1\r\nline2",
		"weird key": "ok",
	})
	content := GenerateEnvContent(cfg)
	lines := strings.Split(content, "\n")

	assert.Contains(t, lines, `NEXT_PUBLIC_SITE_NAME="Evil\"\nNEXT_PUBLIC_INJECTED=\"1"`)
	assert.Contains(t, lines, `NEXT_PUBLIC_ADDRESS="C:\\path \$HOME"`)
	assert.Contains(t, lines, `NEXT_PUBLIC_TAGLINE="line1\r\nline2"`)
	assert.Contains(t, lines, `NEXT_PUBLIC_WEIRD_KEY="ok"`)
	for _, l := range lines {
		assert.False(t, strings.HasPrefix(l, "NEXT_PUBLIC_INJECTED"), "injected line %q", l)
	}
}

func TestEnvKey(t *testing.T) {
	assert.Equal(t, "NEXT_PUBLIC_HERO_TITLE", EnvKey("hero_title"))
	assert.Equal(t, "NEXT_PUBLIC_HEROTITLE", EnvKey("heroTitle"))
	assert.Equal(t, "NEXT_PUBLIC_A_B_C", EnvKey("a.b-c"))
	assert.Equal(t, "NEXT_PUBLIC_A_O", EnvKey("año"))
}
