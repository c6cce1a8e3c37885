// Package site renders the single-page HTML shell.
//
// The page is a pure function of the catalog: the profile fills the hero and
// contact sections, and the project list is embedded as a JSON payload that
// the inline script filters and searches client-side.
package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"

	"portfolioos/internal/catalog"
)

//go:embed templates/index.html
var templatesFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templatesFS, "templates/index.html"))

// CacheControl is sent with the rendered page.
const CacheControl = "public, max-age=120, stale-while-revalidate=600"

// Page is the template data for index.html.
type Page struct {
	Profile    catalog.Profile
	Projects   []catalog.Project
	Categories []string
}

// NewPage collects the template data from a registry.
func NewPage(reg *catalog.Registry) Page {
	return Page{
		Profile:    reg.Profile(),
		Projects:   reg.All(),
		Categories: reg.Categories(),
	}
}

// Render executes the page template. Output is identical for identical input.
func Render(reg *catalog.Registry) ([]byte, error) {
	var buf bytes.Buffer
	if err := indexTemplate.Execute(&buf, NewPage(reg)); err != nil {
		return nil, fmt.Errorf("failed to render index page: %w", err)
	}
	return buf.Bytes(), nil
}
