package publisher

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const defaultContentType = "application/octet-stream"

// webTypes pins the types of static site assets. System mime tables differ
// between hosts (".js" is "application/javascript" on some), so these win.
var webTypes = map[string]string{
	".html":        "text/html; charset=utf-8",
	".htm":         "text/html; charset=utf-8",
	".css":         "text/css; charset=utf-8",
	".js":          "text/javascript; charset=utf-8",
	".mjs":         "text/javascript; charset=utf-8",
	".json":        "application/json",
	".map":         "application/json",
	".txt":         "text/plain; charset=utf-8",
	".xml":         "text/xml; charset=utf-8",
	".svg":         "image/svg+xml",
	".png":         "image/png",
	".jpg":         "image/jpeg",
	".jpeg":        "image/jpeg",
	".gif":         "image/gif",
	".webp":        "image/webp",
	".avif":        "image/avif",
	".ico":         "image/x-icon",
	".webmanifest": "application/manifest+json",
	".woff":        "font/woff",
	".woff2":       "font/woff2",
	".ttf":         "font/ttf",
	".otf":         "font/otf",
	".wasm":        "application/wasm",
}

// ContentType infers the type of a file from its extension. Files without a
// known extension are sniffed from their content, and anything unrecognised
// is served as a generic binary.
func ContentType(name string, content []byte) string {
	ext := strings.ToLower(filepath.Ext(name))
	if typ, ok := webTypes[ext]; ok {
		return typ
	}
	if typ := mime.TypeByExtension(ext); ext != "" && typ != "" {
		return typ
	}
	if len(content) > 0 {
		if mt := mimetype.Detect(content); mt != nil {
			return mt.String()
		}
	}
	return defaultContentType
}
