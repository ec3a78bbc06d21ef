// Package template holds the embedded server-rendered views.
package template

import (
	"embed"
	"html/template"
)

//go:embed *.html
var files embed.FS

// Load parses every embedded view. Panics on malformed templates, which
// only happens at build time.
func Load() *template.Template {
	return template.Must(template.ParseFS(files, "*.html"))
}
