package ototahmin

import (
	"io/fs"

	"github.com/goliatone/go-ototahmin/pkg/renderers/web"
)

// EmbeddedTemplates exposes the built-in web page templates so callers can
// copy or extend them and pass the result to web.WithTemplatesFS.
func EmbeddedTemplates() fs.FS {
	return web.TemplatesFS()
}
