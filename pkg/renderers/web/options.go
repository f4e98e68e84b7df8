package web

import (
	"io/fs"
	"log/slog"

	theme "github.com/goliatone/go-theme"
	"golang.org/x/time/rate"

	rendertemplate "github.com/goliatone/go-ototahmin/pkg/render/template"
)

// Option configures the web renderer.
type Option func(*config)

type config struct {
	templateFS       fs.FS
	templateRenderer rendertemplate.TemplateRenderer
	limiter          *rate.Limiter
	selector         theme.ThemeSelector
	themeName        string
	themeVariant     string
	themeTokens      map[string]string
	logger           *slog.Logger
}

// WithTemplatesFS supplies an alternate template bundle. It must contain
// templates/page.tpl.
func WithTemplatesFS(files fs.FS) Option {
	return func(cfg *config) {
		if files != nil {
			cfg.templateFS = files
		}
	}
}

// WithTemplateRenderer injects a custom template renderer implementation.
func WithTemplateRenderer(renderer rendertemplate.TemplateRenderer) Option {
	return func(cfg *config) {
		if renderer != nil {
			cfg.templateRenderer = renderer
		}
	}
}

// WithRateLimit caps prediction submissions with a token bucket. A
// non-positive limit disables it.
func WithRateLimit(limit rate.Limit, burst int) Option {
	return func(cfg *config) {
		if limit <= 0 {
			cfg.limiter = nil
			return
		}
		if burst < 1 {
			burst = 1
		}
		cfg.limiter = rate.NewLimiter(limit, burst)
	}
}

// WithThemeSelector resolves the page theme through a go-theme selector
// instead of the built-in manifest.
func WithThemeSelector(selector theme.ThemeSelector) Option {
	return func(cfg *config) {
		cfg.selector = selector
	}
}

// WithTheme chooses the theme name and variant passed to the selector.
func WithTheme(name, variant string) Option {
	return func(cfg *config) {
		cfg.themeName = name
		cfg.themeVariant = variant
	}
}

// WithThemeTokens overrides individual theme tokens.
func WithThemeTokens(tokens map[string]string) Option {
	return func(cfg *config) {
		if len(tokens) == 0 {
			return
		}
		if cfg.themeTokens == nil {
			cfg.themeTokens = make(map[string]string, len(tokens))
		}
		for key, value := range tokens {
			cfg.themeTokens[key] = value
		}
	}
}

// WithLogger sets the logger used for handler diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}
