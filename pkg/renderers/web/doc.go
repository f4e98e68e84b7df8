// Package web serves the prediction form as a local, single-session web page.
//
// The page is rendered server side from embedded pongo2 templates and works
// without JavaScript: every field posts back to /change and the page
// redirects to itself. A JSON API under /api mirrors the same operations for
// scripted clients. Theme tokens resolved through go-theme are emitted as CSS
// custom properties at /theme.css.
package web
