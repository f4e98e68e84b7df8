// Package template defines the renderer-agnostic template seam used by the
// HTML presentation. Concrete engines live in subpackages.
package template
