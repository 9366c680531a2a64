package entity

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/samber/lo"
)

// SiteConfig is the buyer-supplied configuration of a site. It keeps the key
// order of the JSON document it was decoded from so that generated output is
// stable. Values are untrusted.
type SiteConfig struct {
	values map[string]any
	keys   []string
}

// NewSiteConfig builds a SiteConfig from m. Keys are ordered lexically since a
// Go map carries no order.
func NewSiteConfig(m map[string]any) SiteConfig {
	keys := lo.Keys(m)
	slices.Sort(keys)
	values := make(map[string]any, len(m))
	for k, v := range m {
		values[k] = v
	}
	return SiteConfig{values: values, keys: keys}
}

func ParseSiteConfig(data []byte) (SiteConfig, error) {
	var c SiteConfig
	if len(bytes.TrimSpace(data)) == 0 {
		return c, nil
	}
	if err := json.Unmarshal(data, &c); err != nil {
		return SiteConfig{}, err
	}
	return c, nil
}

func (c SiteConfig) Keys() []string { return slices.Clone(c.keys) }

func (c SiteConfig) Len() int { return len(c.keys) }

func (c SiteConfig) Get(key string) (any, bool) {
	v, ok := c.values[key]
	return v, ok
}

// String returns the value at key rendered as text, or "" when absent or empty.
func (c SiteConfig) String(key string) string {
	v, ok := c.values[key]
	if !ok {
		return ""
	}
	return FormatValue(v)
}

// StringMap returns the nested string map at key (e.g. socialLinks).
func (c SiteConfig) StringMap(key string) map[string]string {
	v, ok := c.values[key]
	if !ok {
		return nil
	}
	switch m := v.(type) {
	case map[string]string:
		return m
	case map[string]any:
		return lo.MapValues(m, func(v any, _ string) string { return FormatValue(v) })
	}
	return nil
}

// FormatValue renders a config value the way it ends up in an env file.
// Falsy values (nil, false, "", 0) render as "".
func FormatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case bool:
		if !t {
			return ""
		}
		return "true"
	case float64:
		if t == 0 {
			return ""
		}
		return fmt.Sprint(t)
	case int:
		if t == 0 {
			return ""
		}
		return fmt.Sprint(t)
	case json.Number:
		if t.String() == "0" {
			return ""
		}
		return t.String()
	case map[string]any, []any:
		b, err := json.Marshal(t)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return fmt.Sprint(v)
}

func (c SiteConfig) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		vb, err := json.Marshal(c.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (c *SiteConfig) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		*c = SiteConfig{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("site config must be a JSON object: %w", ErrInvalid)
	}
	values := map[string]any{}
	var keys []string
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("site config key %v: %w", tok, ErrInvalid)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return err
		}
		if _, dup := values[key]; !dup {
			keys = append(keys, key)
		}
		values[key] = v
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*c = SiteConfig{values: values, keys: keys}
	return nil
}
