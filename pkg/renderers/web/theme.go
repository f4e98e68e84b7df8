package web

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	theme "github.com/goliatone/go-theme"
)

// DefaultThemeName names the built-in manifest.
const DefaultThemeName = "ototahmin"

// DefaultManifest returns the built-in theme with a light base and a "dark"
// variant.
func DefaultManifest() *theme.Manifest {
	return &theme.Manifest{
		Name:    DefaultThemeName,
		Version: "1.0.0",
		Tokens: map[string]string{
			"color-bg":     "#f7f7f5",
			"color-fg":     "#1f2328",
			"color-muted":  "#6b7280",
			"color-accent": "#c8102e",
			"radius":       "6px",
			"font-family":  "system-ui, sans-serif",
		},
		Assets: theme.Assets{
			Files: map[string]string{
				"stylesheet": "/theme.css",
			},
		},
		Variants: map[string]theme.Variant{
			"dark": {
				Tokens: map[string]string{
					"color-bg":    "#111418",
					"color-fg":    "#e6e6e6",
					"color-muted": "#9aa0a6",
				},
			},
		},
	}
}

// manifestSelector serves a single manifest regardless of the requested
// theme name.
type manifestSelector struct {
	manifest *theme.Manifest
}

func (s manifestSelector) Select(_ string, variant string, _ ...theme.QueryOption) (*theme.Selection, error) {
	if s.manifest == nil {
		return nil, errors.New("web theme: manifest is nil")
	}
	return &theme.Selection{
		Theme:    s.manifest.Name,
		Variant:  variant,
		Manifest: s.manifest,
	}, nil
}

// resolveTheme selects a theme and flattens it into renderer configuration:
// base tokens, then variant tokens, then overrides.
func resolveTheme(selector theme.ThemeSelector, name, variant string, overrides map[string]string) (*theme.RendererConfig, error) {
	if selector == nil {
		selector = manifestSelector{manifest: DefaultManifest()}
	}
	selection, err := selector.Select(name, variant)
	if err != nil {
		return nil, fmt.Errorf("web theme: select %q/%q: %w", name, variant, err)
	}
	if selection == nil || selection.Manifest == nil {
		return nil, fmt.Errorf("web theme: no manifest for %q", name)
	}

	manifest := selection.Manifest
	tokens := make(map[string]string, len(manifest.Tokens))
	for key, value := range manifest.Tokens {
		tokens[key] = value
	}
	if v, ok := manifest.Variants[selection.Variant]; ok {
		for key, value := range v.Tokens {
			tokens[key] = value
		}
	}
	for key, value := range overrides {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		tokens[key] = value
	}

	return &theme.RendererConfig{
		Theme:   selection.Theme,
		Variant: selection.Variant,
		Tokens:  tokens,
		CSSVars: cssVars(tokens),
	}, nil
}

func cssVars(tokens map[string]string) map[string]string {
	out := make(map[string]string, len(tokens))
	for key, value := range tokens {
		out["--"+strings.TrimPrefix(key, "--")] = value
	}
	return out
}

// stylesheet renders the custom properties as a :root block followed by the
// base stylesheet.
func stylesheet(cfg *theme.RendererConfig) string {
	var b strings.Builder
	if cfg != nil && len(cfg.CSSVars) > 0 {
		keys := make([]string, 0, len(cfg.CSSVars))
		for key := range cfg.CSSVars {
			keys = append(keys, key)
		}
		sort.Strings(keys)

		b.WriteString(":root {\n")
		for _, key := range keys {
			b.WriteString("  ")
			b.WriteString(key)
			b.WriteString(": ")
			b.WriteString(sanitizeCSSValue(cfg.CSSVars[key]))
			b.WriteString(";\n")
		}
		b.WriteString("}\n\n")
	}
	b.WriteString(baseStylesheet())
	return b.String()
}

// sanitizeCSSValue keeps a token from closing the declaration or block.
func sanitizeCSSValue(v string) string {
	return strings.TrimSpace(strings.NewReplacer(";", "", "{", "", "}", "", "<", "", "\n", " ").Replace(v))
}
