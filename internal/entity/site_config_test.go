package entity

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSiteConfigKeepsKeyOrder(t *testing.T) {
	c, err := ParseSiteConfig([]byte(`{"zeta":"1","siteName":"Acme","alpha":"2","socialLinks":{"github":"gh"}}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"zeta", "siteName", "alpha", "socialLinks"}, c.Keys())
	assert.Equal(t, "Acme", c.String("siteName"))
	assert.Equal(t, map[string]string{"github": "gh"}, c.StringMap("socialLinks"))

	out, err := json.Marshal(c)
	require.NoError(t, err)
	assert.JSONEq(t, `{"zeta":"1","siteName":"Acme","alpha":"2","socialLinks":{"github":"gh"}}`, string(out))
	assert.Equal(t, `{"zeta":"1","siteName":"Acme","alpha":"2","socialLinks":{"github":"gh"}}`, string(out))
}

func TestParseSiteConfigEmptyAndInvalid(t *testing.T) {
	c, err := ParseSiteConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	c, err = ParseSiteConfig([]byte("null"))
	require.NoError(t, err)
	assert.Equal(t, 0, c.Len())

	_, err = ParseSiteConfig([]byte(`["a"]`))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestNewSiteConfigSortsKeys(t *testing.T) {
	c := NewSiteConfig(map[string]any{"b": "2", "a": "1"})
	assert.Equal(t, []string{"a", "b"}, c.Keys())
}

func TestFormatValue(t *testing.T) {
	assert.Equal(t, "", FormatValue(nil))
	assert.Equal(t, "", FormatValue(false))
	assert.Equal(t, "true", FormatValue(true))
	assert.Equal(t, "", FormatValue(float64(0)))
	assert.Equal(t, "42", FormatValue(float64(42)))
	assert.Equal(t, "hi", FormatValue("hi"))
	assert.Equal(t, `["a","b"]`, FormatValue([]any{"a", "b"}))
}
