package site

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSubdomain(t *testing.T) {
	tests := []struct {
		name, siteName, id, expected string
	}{
		{"diacritics and symbols", "Café & Co!", "abcdefgh-1234", "cafe-co-abcdefgh"},
		{"spaces", "Mi Tienda", "9f1c2d3e-aaaa-bbbb", "mi-tienda-9f1c2d3e"},
		{"empty name", "", "abcdefgh-1234", "abcdefgh"},
		{"symbols only", "¡¿?!", "abcdefgh-1234", "abcdefgh"},
		{"short id", "Shop", "ab", "shop-ab"},
		{"uppercase id", "Shop", "ABCDEF12-xx", "shop-abcdef12"},
		{"truncated", "The Very Best Bakery In The Whole Wide World", "12345678", "the-very-best-bakery-in-the-wh-12345678"},
		{"truncated at hyphen", "abcdefghij abcdefghij abcdefg xyz", "12345678", "abcdefghij-abcdefghij-abcdefg--12345678"},
		{"truncated before hyphen", "abcdefghijklmnopqrstuvwxyz123 x", "abcdefgh-1234", "abcdefghijklmnopqrstuvwxyz123--abcdefgh"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, GenerateSubdomain(tt.siteName, tt.id))
		})
	}
}

func TestGenerateSubdomainProperties(t *testing.T) {
	reValid := regexp.MustCompile(`^[a-z0-9-]*$`)
	inputs := []string{
		"", "a", "Café & Co!", strings.Repeat("x", 100), strings.Repeat("é-", 40),
		"ÀÉÎÕÜ ñ ç", "tab\tnew\nline", "日本語のサイト", "--edge--", "emoji 🚀 rocket",
	}
	ids := []string{"", "1", "abcdefgh-1234", "ZZZZ_ZZZZ_ZZZZ", "ñññññññññ"}
	for _, name := range inputs {
		for _, id := range ids {
			got := GenerateSubdomain(name, id)
			assert.Regexp(t, reValid, got, "name=%q id=%q", name, id)
			assert.LessOrEqual(t, len(got), maxSlugLength+1+idSuffixLength)
			assert.Equal(t, got, GenerateSubdomain(name, id))
		}
	}
}
