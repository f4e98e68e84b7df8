package template

import (
	"io"
)

// TemplateRenderer is the contract renderers use to turn views into markup.
type TemplateRenderer interface {
	// RenderTemplate executes the named template with data. The rendered
	// markup is returned and copied to every writer in out.
	RenderTemplate(name string, data any, out ...io.Writer) (string, error)
	// GlobalContext merges data into the values every template sees.
	GlobalContext(data any) error
}
